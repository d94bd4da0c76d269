package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/alnah/audiosplit/internal/audio"
	"github.com/alnah/audiosplit/internal/config"
	"github.com/alnah/audiosplit/internal/media"
)

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{}, nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// Mock SplitterFactory + Splitter
// ---------------------------------------------------------------------------

// newSplitterCall records the arguments of one NewSplitter call.
type newSplitterCall struct {
	Strategy audio.Strategy
	Path     string
	Opts     audio.Options
}

type mockSplitterFactory struct {
	NewSplitterFunc func(strategy audio.Strategy, path string, opts audio.Options) (audio.Splitter, error)

	// mockSplitter is returned when NewSplitterFunc is nil.
	mockSplitter *mockSplitter

	mu    sync.Mutex
	calls []newSplitterCall
}

func (m *mockSplitterFactory) NewSplitter(strategy audio.Strategy, path string, opts audio.Options) (audio.Splitter, error) {
	m.mu.Lock()
	m.calls = append(m.calls, newSplitterCall{Strategy: strategy, Path: path, Opts: opts})
	m.mu.Unlock()

	if m.NewSplitterFunc != nil {
		return m.NewSplitterFunc(strategy, path, opts)
	}
	if m.mockSplitter != nil {
		return m.mockSplitter.withProgress(opts.Progress), nil
	}
	return (&mockSplitter{}).withProgress(opts.Progress), nil
}

func (m *mockSplitterFactory) Calls() []newSplitterCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]newSplitterCall(nil), m.calls...)
}

// splitCall records the arguments of one Split call.
type splitCall struct {
	Input     string
	OutputDir string
}

type mockSplitter struct {
	SplitFunc func(ctx context.Context, inputPath, outputDir string) ([]audio.Chunk, error)

	progress audio.ProgressFunc
	shared   *mockSplitter // Call log owner when cloned by the factory.

	mu    sync.Mutex
	calls []splitCall
}

// withProgress returns a splitter sharing m's behavior and call log that
// reports chunks through fn.
func (m *mockSplitter) withProgress(fn audio.ProgressFunc) *mockSplitter {
	return &mockSplitter{SplitFunc: m.SplitFunc, progress: fn, shared: m}
}

func (m *mockSplitter) Split(ctx context.Context, inputPath, outputDir string) ([]audio.Chunk, error) {
	owner := m
	if m.shared != nil {
		owner = m.shared
	}
	owner.mu.Lock()
	owner.calls = append(owner.calls, splitCall{Input: inputPath, OutputDir: outputDir})
	owner.mu.Unlock()

	var (
		chunks []audio.Chunk
		err    error
	)
	if m.SplitFunc != nil {
		chunks, err = m.SplitFunc(ctx, inputPath, outputDir)
	} else {
		chunks = fakeChunks(outputDir, filepath.Ext(inputPath), 25*time.Second, 10*time.Second)
	}
	if err != nil {
		return nil, err
	}

	if m.progress != nil {
		for _, c := range chunks {
			m.progress(c)
		}
	}
	return chunks, nil
}

func (m *mockSplitter) SplitCalls() []splitCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]splitCall(nil), m.calls...)
}

// fakeChunks returns ceil(total/length) chunks laid out under dir.
func fakeChunks(dir, ext string, total, length time.Duration) []audio.Chunk {
	var chunks []audio.Chunk
	for i, start := 1, time.Duration(0); start < total; i, start = i+1, start+length {
		end := min(start+length, total)
		chunks = append(chunks, audio.Chunk{
			Index:     i,
			StartTime: start,
			EndTime:   end,
			Path:      filepath.Join(dir, fmt.Sprintf("chunk_%03d%s", i, ext)),
		})
	}
	return chunks
}

// ---------------------------------------------------------------------------
// Mock Prober
// ---------------------------------------------------------------------------

type mockProber struct {
	ProbeFunc func(path string) (audio.Source, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockProber) Probe(path string) (audio.Source, error) {
	m.mu.Lock()
	m.calls = append(m.calls, path)
	m.mu.Unlock()

	if m.ProbeFunc != nil {
		return m.ProbeFunc(path)
	}
	return audio.Source{
		Path:        path,
		Format:      "m4a",
		Codec:       "aac",
		StreamIndex: 1,
		TimeBase:    media.Rational{Num: 1, Den: 44100},
		Duration:    25 * time.Second,
		Stream:      media.Stream{Index: 1, Type: media.MediaAudio, SampleRate: 44100, Channels: 2},
	}, nil
}

func (m *mockProber) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Compile-time interface verification.
var (
	_ ConfigLoader    = (*mockConfigLoader)(nil)
	_ SplitterFactory = (*mockSplitterFactory)(nil)
	_ audio.Splitter  = (*mockSplitter)(nil)
	_ Prober          = (*mockProber)(nil)
)
