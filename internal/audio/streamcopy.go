package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/audiosplit/internal/media"
)

// Default splitting parameters.
const (
	// DefaultChunkDuration is the chunk length used when none is given.
	DefaultChunkDuration = 10 * time.Minute

	// outputDirPerm is the permission mode for created output directories.
	outputDirPerm = 0750
)

// StreamCopySplitter splits a compressed audio file by copying its packets
// into one new container per chunk, without transcoding.
//
// By default chunks are extracted sequentially through a single demuxer whose
// read cursor is re-seeked for every chunk. WithParallelism opens one
// independent demuxer per chunk instead.
type StreamCopySplitter struct {
	chunkDuration time.Duration
	policy        Policy
	parallelism   int
	progress      ProgressFunc

	// Injectable dependencies (defaults to media registry and OS implementations).
	open   containerOpener
	create containerCreator
	dirs   dirMaker
}

// StreamCopyOption configures a StreamCopySplitter.
type StreamCopyOption func(*StreamCopySplitter)

// WithPolicy sets the trailing-window policy. Default: PolicyCeil.
func WithPolicy(p Policy) StreamCopyOption {
	return func(s *StreamCopySplitter) {
		s.policy = p
	}
}

// WithParallelism sets how many chunks are extracted concurrently, each from
// its own demuxer. Values below 2 select sequential extraction.
func WithParallelism(n int) StreamCopyOption {
	return func(s *StreamCopySplitter) {
		s.parallelism = n
	}
}

// WithProgress sets a callback invoked after each chunk is written.
// With parallelism it may be called from several goroutines, one call at a time.
func WithProgress(fn ProgressFunc) StreamCopyOption {
	return func(s *StreamCopySplitter) {
		s.progress = fn
	}
}

// WithContainerOpener sets the container opener for StreamCopySplitter.
func WithContainerOpener(o containerOpener) StreamCopyOption {
	return func(s *StreamCopySplitter) {
		s.open = o
	}
}

// WithContainerCreator sets the container creator for StreamCopySplitter.
func WithContainerCreator(c containerCreator) StreamCopyOption {
	return func(s *StreamCopySplitter) {
		s.create = c
	}
}

// WithDirMaker sets the directory creator for StreamCopySplitter.
func WithDirMaker(d dirMaker) StreamCopyOption {
	return func(s *StreamCopySplitter) {
		s.dirs = d
	}
}

// NewStreamCopySplitter creates a StreamCopySplitter producing chunks of at
// most chunkDuration. A zero duration selects the default of 10 minutes.
func NewStreamCopySplitter(chunkDuration time.Duration, opts ...StreamCopyOption) (*StreamCopySplitter, error) {
	if chunkDuration < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChunkDuration, chunkDuration)
	}
	if chunkDuration == 0 {
		chunkDuration = DefaultChunkDuration
	}

	s := &StreamCopySplitter{
		chunkDuration: chunkDuration,
		policy:        PolicyCeil,
		parallelism:   1,
		open:          mediaOpener{},
		create:        mediaCreator{},
		dirs:          osDirMaker{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Split writes the chunks of inputPath into outputDir. Output files keep the
// input's extension.
//
// The first failure aborts the run. Chunks finalized before it stay on disk,
// and the chunk being written when it happened may be truncated. Cancellation
// is honored between chunks only.
func (s *StreamCopySplitter) Split(ctx context.Context, inputPath, outputDir string) ([]Chunk, error) {
	dmx, err := openContainer(s.open, inputPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dmx.Close() }()

	src, err := describeSource(inputPath, dmx)
	if err != nil {
		return nil, err
	}

	chunks, err := Plan(src.Duration, s.chunkDuration, s.policy)
	if err != nil {
		return nil, err
	}

	if err := s.dirs.MkdirAll(outputDir, outputDirPerm); err != nil {
		return nil, fmt.Errorf("%w: create output directory %s: %w", ErrDestination, outputDir, err)
	}
	assignPaths(chunks, outputDir, src.Format)

	md := dmx.Metadata()

	if s.parallelism > 1 && len(chunks) > 1 {
		if err := s.splitParallel(ctx, src, md, chunks); err != nil {
			return nil, err
		}
		return chunks, nil
	}

	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.writeChunk(dmx, src, md, c); err != nil {
			return nil, err
		}
		if s.progress != nil {
			s.progress(c)
		}
	}

	return chunks, nil
}

// splitParallel extracts chunks concurrently, each worker owning its demuxer.
func (s *StreamCopySplitter) splitParallel(ctx context.Context, src Source, md media.Metadata, chunks []Chunk) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	var progressMu sync.Mutex
	for _, c := range chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			dmx, err := openContainer(s.open, src.Path)
			if err != nil {
				return err
			}
			defer func() { _ = dmx.Close() }()

			if err := s.writeChunk(dmx, src, md, c); err != nil {
				return err
			}

			if s.progress != nil {
				progressMu.Lock()
				s.progress(c)
				progressMu.Unlock()
			}
			return nil
		})
	}

	return g.Wait()
}

// writeChunk writes the window of c from dmx into a new container at c.Path.
func (s *StreamCopySplitter) writeChunk(dmx media.Demuxer, src Source, md media.Metadata, c Chunk) error {
	mux, err := s.create.Create(c.Path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrDestination, c.Path, err)
	}

	out := src.Stream
	out.Index = 0
	if err := mux.WriteHeader([]media.Stream{out}, md); err != nil {
		_ = mux.Close()
		return fmt.Errorf("%w: write header of %s: %w", ErrDestination, c.Path, err)
	}

	if err := dmx.SeekBackward(c.StartTime.Microseconds()); err != nil {
		_ = mux.Close()
		return fmt.Errorf("%w: to %v in %s: %w", ErrSeek, c.StartTime, src.Path, err)
	}

	if _, err := copyPackets(dmx, mux, src, c.EndTime.Microseconds()); err != nil {
		_ = mux.Close()
		return fmt.Errorf("%s: %w", c.Path, err)
	}

	if err := mux.WriteTrailer(); err != nil {
		return fmt.Errorf("%w: finalize %s: %w", ErrDestination, c.Path, err)
	}
	return nil
}

// packetReader is the part of media.Demuxer used by copyPackets.
type packetReader interface {
	ReadPacket() (media.Packet, error)
}

// packetWriter is the part of media.Muxer used by copyPackets.
type packetWriter interface {
	WritePacket(pkt media.Packet) error
}

// copyPackets copies packets of the source stream from r to w until one
// starts at or after end (in microseconds) or the input is exhausted.
// Every copied packet gets repaired timestamps, no position hint, and output
// stream index 0. It returns the final timestamp state of the chunk.
func copyPackets(r packetReader, w packetWriter, src Source, end int64) (TimestampState, error) {
	var state TimestampState
	for {
		pkt, err := r.ReadPacket()
		if errors.Is(err, io.EOF) {
			return state, nil
		}
		if err != nil {
			return state, fmt.Errorf("%w: %w", ErrRead, err)
		}
		if pkt.Stream != src.StreamIndex {
			continue
		}

		ts := pkt.PTS
		if ts == media.NoTimestamp {
			ts = pkt.DTS
		}
		if ts == media.NoTimestamp {
			ts = 0
		}

		if src.TimeBase.Rescale(ts, media.Microsecond) >= end {
			return state, nil
		}

		var out int64
		state, out = state.Repair(ts)
		pkt.PTS = out
		pkt.DTS = out
		pkt.Pos = -1
		pkt.Stream = 0

		if err := w.WritePacket(pkt); err != nil {
			return state, fmt.Errorf("%w: write packet: %w", ErrDestination, err)
		}
	}
}
