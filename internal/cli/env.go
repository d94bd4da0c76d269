package cli

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/alnah/audiosplit/internal/audio"
	"github.com/alnah/audiosplit/internal/config"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout     io.Writer
	Stderr     io.Writer
	Getenv     func(string) string
	Now        func() time.Time
	IsTerminal func(io.Writer) bool

	// Factories for domain objects
	ConfigLoader    ConfigLoader
	SplitterFactory SplitterFactory
	Prober          Prober
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// SplitterFactory creates splitters for a given input.
type SplitterFactory interface {
	NewSplitter(strategy audio.Strategy, path string, opts audio.Options) (audio.Splitter, error)
}

// Prober describes the audio stream of an input file.
type Prober interface {
	Probe(path string) (audio.Source, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithIsTerminal sets the terminal detector used to pick table or plain output.
func WithIsTerminal(fn func(io.Writer) bool) EnvOption {
	return func(e *Env) {
		e.IsTerminal = fn
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithSplitterFactory sets the splitter factory.
func WithSplitterFactory(f SplitterFactory) EnvOption {
	return func(e *Env) {
		e.SplitterFactory = f
	}
}

// WithProber sets the prober.
func WithProber(p Prober) EnvOption {
	return func(e *Env) {
		e.Prober = p
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
		Getenv:          os.Getenv,
		Now:             time.Now,
		IsTerminal:      isTerminal,
		ConfigLoader:    &defaultConfigLoader{},
		SplitterFactory: &defaultSplitterFactory{},
		Prober:          audio.NewProber(),
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultSplitterFactory implements SplitterFactory using the audio package.
type defaultSplitterFactory struct{}

func (defaultSplitterFactory) NewSplitter(strategy audio.Strategy, path string, opts audio.Options) (audio.Splitter, error) {
	return audio.NewSplitter(strategy, path, opts)
}

// isTerminal reports whether w is a terminal (including Cygwin/MSYS ptys).
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Compile-time interface verification.
var (
	_ ConfigLoader    = (*defaultConfigLoader)(nil)
	_ SplitterFactory = (*defaultSplitterFactory)(nil)
	_ Prober          = (*audio.Prober)(nil)
)
