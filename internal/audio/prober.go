package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/audiosplit/internal/media"
)

// Source describes the audio stream selected in an input container.
type Source struct {
	Path        string
	Format      string // Container extension without the dot, e.g. "m4a".
	Codec       string
	StreamIndex int
	TimeBase    media.Rational
	Duration    time.Duration // Container duration, microsecond precision.

	// Stream is the selected stream. Its Params are copied to every output
	// container unchanged.
	Stream media.Stream
}

// Prober inspects input containers. WAV files are read through the PCM
// decoder, everything else through the container registry.
type Prober struct {
	open  containerOpener
	files fileOpener
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithProberOpener sets the container opener for Prober.
func WithProberOpener(o containerOpener) ProberOption {
	return func(p *Prober) {
		p.open = o
	}
}

// WithProberFileOpener sets the WAV file opener for Prober.
func WithProberFileOpener(o fileOpener) ProberOption {
	return func(p *Prober) {
		p.files = o
	}
}

// NewProber creates a Prober.
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{open: mediaOpener{}, files: osFileOpener{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe opens path, selects its best audio stream and returns its description.
// The container handle is closed before returning.
func (p *Prober) Probe(path string) (Source, error) {
	if StrategyFor(path) == StrategyPCM {
		return probeWAV(p.files, path)
	}

	dmx, err := openContainer(p.open, path)
	if err != nil {
		return Source{}, err
	}
	defer func() { _ = dmx.Close() }()

	return describeSource(path, dmx)
}

// Probe inspects path with a default Prober.
func Probe(path string) (Source, error) {
	return NewProber().Probe(path)
}

// openContainer opens path, mapping failures to ErrFileNotFound or ErrOpen.
func openContainer(o containerOpener, path string) (media.Demuxer, error) {
	dmx, err := o.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	return dmx, nil
}

// describeSource builds the Source of an open container.
func describeSource(path string, dmx media.Demuxer) (Source, error) {
	stream, ok := bestAudioStream(dmx.Streams())
	if !ok {
		return Source{}, fmt.Errorf("%w: %s", ErrNoAudioStream, path)
	}

	dur := dmx.Duration()
	if dur == media.NoTimestamp || dur <= 0 {
		return Source{}, fmt.Errorf("%w: %s", ErrEmptySource, path)
	}

	return Source{
		Path:        path,
		Format:      strings.TrimPrefix(filepath.Ext(path), "."),
		Codec:       stream.Codec,
		StreamIndex: stream.Index,
		TimeBase:    stream.TimeBase,
		Duration:    time.Duration(dur) * time.Microsecond,
		Stream:      stream,
	}, nil
}

// bestAudioStream picks the audio stream with the highest sample rate times
// channel count. Ties go to the lowest index.
func bestAudioStream(streams []media.Stream) (media.Stream, bool) {
	var (
		best      media.Stream
		bestScore = -1
	)
	for _, s := range streams {
		if s.Type != media.MediaAudio {
			continue
		}
		score := s.SampleRate * max(s.Channels, 1)
		if score > bestScore {
			best, bestScore = s, score
		}
	}
	return best, bestScore >= 0
}
