package audio

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Strategy selects how a file is split.
type Strategy int

const (
	// StrategyAuto picks StrategyPCM for .wav inputs and StrategyCopy otherwise.
	StrategyAuto Strategy = iota

	// StrategyCopy copies encoded packets into new containers.
	StrategyCopy

	// StrategyPCM slices decoded WAV samples.
	StrategyPCM
)

// String returns the strategy name accepted by ParseStrategy.
func (s Strategy) String() string {
	switch s {
	case StrategyCopy:
		return "copy"
	case StrategyPCM:
		return "pcm"
	default:
		return "auto"
	}
}

// ParseStrategy parses "auto", "copy" or "pcm". An empty name selects StrategyAuto.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return StrategyAuto, nil
	case "copy":
		return StrategyCopy, nil
	case "pcm":
		return StrategyPCM, nil
	default:
		return StrategyAuto, fmt.Errorf("%w: %q (valid: auto, copy, pcm)", ErrUnknownStrategy, name)
	}
}

// StrategyFor returns the strategy StrategyAuto resolves to for path.
func StrategyFor(path string) Strategy {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return StrategyPCM
	}
	return StrategyCopy
}

// Options holds the settings shared by both splitters.
type Options struct {
	ChunkDuration time.Duration // Zero selects the default.
	Policy        Policy
	Parallelism   int  // Stream copy only.
	Streaming     bool // PCM only.
	Progress      ProgressFunc
}

// NewSplitter returns the splitter for path under strategy.
func NewSplitter(strategy Strategy, path string, opts Options) (Splitter, error) {
	if strategy == StrategyAuto {
		strategy = StrategyFor(path)
	}

	switch strategy {
	case StrategyPCM:
		pcmOpts := []PCMOption{
			WithPCMPolicy(opts.Policy),
			WithPCMProgress(opts.Progress),
		}
		if opts.Streaming {
			pcmOpts = append(pcmOpts, WithStreaming())
		}
		s, err := NewPCMSplitter(opts.ChunkDuration, pcmOpts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StrategyCopy:
		s, err := NewStreamCopySplitter(opts.ChunkDuration,
			WithPolicy(opts.Policy),
			WithParallelism(opts.Parallelism),
			WithProgress(opts.Progress),
		)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownStrategy, strategy)
	}
}
