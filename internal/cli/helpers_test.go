package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alnah/audiosplit/internal/config"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	configLoader *mockConfigLoader
	splitter     *mockSplitterFactory
	prober       *mockProber
}

func newTestMocks() *testMocks {
	return &testMocks{
		configLoader: &mockConfigLoader{},
		splitter:     &mockSplitterFactory{},
		prober:       &mockProber{},
	}
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

// testEnvOptions configures a test environment.
type testEnvOptions struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	tty    bool
	mocks  *testMocks
}

// testEnvOption configures testEnv.
type testEnvOption func(*testEnvOptions)

// withTTY makes the test Env report stdout as a terminal.
func withTTY() testEnvOption {
	return func(o *testEnvOptions) {
		o.tty = true
	}
}

// withMocks replaces the default mocks.
func withMocks(m *testMocks) testEnvOption {
	return func(o *testEnvOptions) {
		o.mocks = m
	}
}

// testEnv creates a test Env with all dependencies mocked.
// Stdout and Stderr are *syncBuffer. Returns the Env and the mocks for assertions.
func testEnv(opts ...testEnvOption) (*Env, *testMocks) {
	options := &testEnvOptions{
		stdout: &syncBuffer{},
		stderr: &syncBuffer{},
		getenv: staticEnv(nil),
		mocks:  newTestMocks(),
	}

	for _, opt := range opts {
		opt(options)
	}

	env := &Env{
		Stdout:          options.stdout,
		Stderr:          options.stderr,
		Getenv:          options.getenv,
		Now:             fixedTime(time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)),
		IsTerminal:      func(io.Writer) bool { return options.tty },
		ConfigLoader:    options.mocks.configLoader,
		SplitterFactory: options.mocks.splitter,
		Prober:          options.mocks.prober,
	}

	return env, options.mocks
}

// stdoutOf returns what env wrote to stdout.
func stdoutOf(env *Env) string {
	return env.Stdout.(*syncBuffer).String()
}

// stderrOf returns what env wrote to stderr.
func stderrOf(env *Env) string {
	return env.Stderr.(*syncBuffer).String()
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// createTestAudioFile creates a temporary audio file for testing.
// Returns the file path. The file is automatically cleaned up after the test.
func createTestAudioFile(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)

	// Write minimal content to make the file non-empty
	if err := os.WriteFile(path, []byte("fake audio content"), 0644); err != nil {
		t.Fatalf("failed to create test audio file: %v", err)
	}
	return path
}

// configWith returns a ConfigLoader that returns cfg.
func configWith(cfg config.Config) *mockConfigLoader {
	return &mockConfigLoader{
		LoadFunc: func() (config.Config, error) {
			return cfg, nil
		},
	}
}

// mp3Frames returns n silent 128 kbps 44.1 kHz MPEG-1 Layer III frames.
func mp3Frames(n int) []byte {
	const frameSize = 417
	header := []byte{0xff, 0xfb, 0x90, 0xc4}
	out := make([]byte, 0, n*frameSize)
	for range n {
		frame := make([]byte, frameSize)
		copy(frame, header)
		out = append(out, frame...)
	}
	return out
}
