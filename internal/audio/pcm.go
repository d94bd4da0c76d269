package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/alnah/audiosplit/internal/media"
)

// wavFormatPCM is the WAVE format tag of integer PCM.
const wavFormatPCM = 1

// pcmExtension is the extension of PCM chunk files.
const pcmExtension = "wav"

// supportedBitDepths lists the integer sample widths PCMSplitter accepts.
var supportedBitDepths = []int{8, 16, 24, 32}

// pcmFormat is the format descriptor shared by the input and every chunk.
type pcmFormat struct {
	sampleRate  int
	channels    int
	bitDepth    int
	audioFormat int
}

// PCMSplitter splits an uncompressed WAV file by slicing its samples.
// No timestamps are involved: a sample's position is its index divided by
// the sample rate.
//
// By default the whole file is decoded into memory before slicing, so inputs
// must fit in memory. WithStreaming bounds memory to one chunk instead.
type PCMSplitter struct {
	chunkDuration time.Duration
	policy        Policy
	streaming     bool
	progress      ProgressFunc

	// Injectable dependencies (defaults to OS implementations).
	files   fileOpener
	outputs fileCreator
	dirs    dirMaker
}

// PCMOption configures a PCMSplitter.
type PCMOption func(*PCMSplitter)

// WithPCMPolicy sets the trailing-chunk policy. Default: PolicyCeil.
func WithPCMPolicy(p Policy) PCMOption {
	return func(s *PCMSplitter) {
		s.policy = p
	}
}

// WithStreaming decodes and writes one chunk at a time instead of decoding
// the whole file first.
func WithStreaming() PCMOption {
	return func(s *PCMSplitter) {
		s.streaming = true
	}
}

// WithPCMProgress sets a callback invoked after each chunk is written.
func WithPCMProgress(fn ProgressFunc) PCMOption {
	return func(s *PCMSplitter) {
		s.progress = fn
	}
}

// WithFileOpener sets the input file opener for PCMSplitter.
func WithFileOpener(o fileOpener) PCMOption {
	return func(s *PCMSplitter) {
		s.files = o
	}
}

// WithFileCreator sets the output file creator for PCMSplitter.
func WithFileCreator(c fileCreator) PCMOption {
	return func(s *PCMSplitter) {
		s.outputs = c
	}
}

// WithPCMDirMaker sets the directory creator for PCMSplitter.
func WithPCMDirMaker(d dirMaker) PCMOption {
	return func(s *PCMSplitter) {
		s.dirs = d
	}
}

// NewPCMSplitter creates a PCMSplitter producing chunks of at most
// chunkDuration. A zero duration selects the default of 10 minutes.
func NewPCMSplitter(chunkDuration time.Duration, opts ...PCMOption) (*PCMSplitter, error) {
	if chunkDuration < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChunkDuration, chunkDuration)
	}
	if chunkDuration == 0 {
		chunkDuration = DefaultChunkDuration
	}

	s := &PCMSplitter{
		chunkDuration: chunkDuration,
		policy:        PolicyCeil,
		files:         osFileOpener{},
		outputs:       osFileCreator{},
		dirs:          osDirMaker{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Split writes the chunks of the WAV file inputPath into outputDir as
// chunk_NNN.wav, each with the input's sample rate, channel count and bit depth.
//
// A failure aborts the run; chunks written before it stay on disk.
func (s *PCMSplitter) Split(ctx context.Context, inputPath, outputDir string) ([]Chunk, error) {
	f, err := s.files.Open(inputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, inputPath)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, inputPath, err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	pf, err := readPCMFormat(dec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inputPath, err)
	}

	frames := int64(s.chunkDuration) * int64(pf.sampleRate) / int64(time.Second)
	if frames < 1 {
		return nil, fmt.Errorf("%w: %v is shorter than one sample at %d Hz",
			ErrInvalidChunkDuration, s.chunkDuration, pf.sampleRate)
	}
	chunkSamples := int(frames) * pf.channels

	if err := s.dirs.MkdirAll(outputDir, outputDirPerm); err != nil {
		return nil, fmt.Errorf("%w: create output directory %s: %w", ErrDestination, outputDir, err)
	}

	declared, err := pcmDataSamples(dec, pf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inputPath, err)
	}

	if s.streaming {
		chunks, err := s.splitStreaming(ctx, dec, pf, chunkSamples, declared, outputDir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", inputPath, err)
		}
		return chunks, nil
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, inputPath, err)
	}
	samples := buf.Data
	// Bytes after the declared data are not samples.
	if len(samples) > declared {
		samples = samples[:declared]
	}
	if len(samples) != declared {
		return nil, fmt.Errorf("%w: %s: decoded %d samples, header declares %d",
			ErrDecode, inputPath, len(samples), declared)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, inputPath)
	}

	groups := splitSamples(samples, chunkSamples, s.policy)
	chunks := make([]Chunk, 0, len(groups))
	offset := 0
	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := pcmChunk(i+1, offset, len(group), pf)
		c.Path = outputPath(outputDir, c.Index)
		if err := s.writeWAV(c.Path, pf, group); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
		offset += len(group)
		if s.progress != nil {
			s.progress(c)
		}
	}

	return chunks, nil
}

// splitStreaming reads one chunk of samples at a time and writes it out.
// It reads exactly declared samples, the count announced by the data chunk
// header, and fails with ErrDecode when the input ends before that.
func (s *PCMSplitter) splitStreaming(ctx context.Context, dec *wav.Decoder, pf pcmFormat, chunkSamples, declared int, outputDir string) ([]Chunk, error) {
	data := make([]int, chunkSamples)
	var (
		chunks []Chunk
		offset int
	)

	for offset < declared {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		want := min(chunkSamples, declared-offset)
		n, err := fillSamples(dec, data[:want], pf)
		if err != nil {
			return nil, err
		}
		if n < want {
			return nil, fmt.Errorf("%w: decoded %d samples, header declares %d",
				ErrDecode, offset+n, declared)
		}
		// Floor drops a trailing partial chunk unless nothing was written yet.
		if n < chunkSamples && s.policy == PolicyFloor && len(chunks) > 0 {
			break
		}

		c := pcmChunk(len(chunks)+1, offset, n, pf)
		c.Path = outputPath(outputDir, c.Index)
		if err := s.writeWAV(c.Path, pf, data[:n]); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
		offset += n
		if s.progress != nil {
			s.progress(c)
		}
	}

	if len(chunks) == 0 {
		return nil, ErrEmptySource
	}
	return chunks, nil
}

// fillSamples reads from dec until data is full or the input ends, and
// returns the number of samples read.
func fillSamples(dec *wav.Decoder, data []int, pf pcmFormat) (int, error) {
	filled := 0
	for filled < len(data) {
		view := &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: pf.channels, SampleRate: pf.sampleRate},
			Data:           data[filled:],
			SourceBitDepth: pf.bitDepth,
		}
		n, err := dec.PCMBuffer(view)
		filled += n
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return filled, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		if n == 0 {
			break
		}
	}
	return filled, nil
}

// probeWAV describes a WAV file as a single-stream Source.
func probeWAV(files fileOpener, path string) (Source, error) {
	f, err := files.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Source{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return Source{}, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	pf, err := readPCMFormat(dec)
	if err != nil {
		return Source{}, fmt.Errorf("%s: %w", path, err)
	}
	samples, err := pcmDataSamples(dec, pf)
	if err != nil {
		return Source{}, fmt.Errorf("%s: %w", path, err)
	}
	if samples == 0 {
		return Source{}, fmt.Errorf("%w: %s", ErrEmptySource, path)
	}
	dur := sampleTime(samples, pf)

	tb := media.Rational{Num: 1, Den: int64(pf.sampleRate)}
	codec := fmt.Sprintf("pcm_s%dle", pf.bitDepth)
	if pf.bitDepth == 8 {
		codec = "pcm_u8"
	}
	return Source{
		Path:     path,
		Format:   strings.TrimPrefix(filepath.Ext(path), "."),
		Codec:    codec,
		TimeBase: tb,
		Duration: dur.Truncate(time.Microsecond),
		Stream: media.Stream{
			Type:       media.MediaAudio,
			Codec:      codec,
			TimeBase:   tb,
			SampleRate: pf.sampleRate,
			Channels:   pf.channels,
		},
	}, nil
}

// readPCMFormat reads and validates the WAV format descriptor.
func readPCMFormat(dec *wav.Decoder) (pcmFormat, error) {
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return pcmFormat{}, fmt.Errorf("%w: not a valid WAV file: %w", ErrDecode, err)
		}
		return pcmFormat{}, fmt.Errorf("%w: not a valid WAV file", ErrDecode)
	}

	pf := pcmFormat{
		sampleRate:  int(dec.SampleRate),
		channels:    int(dec.NumChans),
		bitDepth:    int(dec.BitDepth),
		audioFormat: int(dec.WavAudioFormat),
	}
	if pf.audioFormat != wavFormatPCM {
		return pf, fmt.Errorf("%w: WAVE format tag %d is not integer PCM", ErrDecode, pf.audioFormat)
	}
	if !slices.Contains(supportedBitDepths, pf.bitDepth) {
		return pf, fmt.Errorf("%w: unsupported sample width %d bits", ErrDecode, pf.bitDepth)
	}
	if pf.sampleRate <= 0 || pf.channels <= 0 {
		return pf, fmt.Errorf("%w: invalid format %d Hz, %d channels", ErrDecode, pf.sampleRate, pf.channels)
	}
	return pf, nil
}

// pcmDataSamples moves dec to the start of the sample data and returns the
// number of interleaved samples the data chunk declares.
func pcmDataSamples(dec *wav.Decoder, pf pcmFormat) (int, error) {
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	frameBytes := pf.channels * pf.bitDepth / 8
	if dec.PCMSize < 0 || dec.PCMSize%frameBytes != 0 {
		return 0, fmt.Errorf("%w: data chunk of %d bytes is not a whole number of %d-byte frames",
			ErrDecode, dec.PCMSize, frameBytes)
	}
	return dec.PCMSize / (pf.bitDepth / 8), nil
}

// splitSamples partitions samples into consecutive groups of size samples.
// The last group may be shorter; PolicyFloor drops it unless it is the only one.
func splitSamples(samples []int, size int, policy Policy) [][]int {
	n := int(chunkCount(int64(len(samples)), int64(size), policy))
	groups := make([][]int, 0, n)
	for i := range n {
		start := i * size
		end := min(start+size, len(samples))
		groups = append(groups, samples[start:end])
	}
	return groups
}

// pcmChunk describes the chunk holding count samples starting at sample offset.
func pcmChunk(index, offset, count int, pf pcmFormat) Chunk {
	return Chunk{
		Index:     index,
		StartTime: sampleTime(offset, pf),
		EndTime:   sampleTime(offset+count, pf),
	}
}

// sampleTime converts an interleaved sample offset to a time position.
func sampleTime(offset int, pf pcmFormat) time.Duration {
	frames := int64(offset / pf.channels)
	return time.Duration(frames * int64(time.Second) / int64(pf.sampleRate))
}

// outputPath returns the path of the PCM chunk at the one-based index.
func outputPath(outputDir string, index int) string {
	chunks := []Chunk{{Index: index}}
	assignPaths(chunks, outputDir, pcmExtension)
	return chunks[0].Path
}

// writeWAV writes samples to path as a WAV file with format pf.
func (s *PCMSplitter) writeWAV(path string, pf pcmFormat, samples []int) error {
	out, err := s.outputs.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrDestination, path, err)
	}

	enc := wav.NewEncoder(out, pf.sampleRate, pf.bitDepth, pf.channels, pf.audioFormat)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: pf.channels, SampleRate: pf.sampleRate},
		Data:           samples,
		SourceBitDepth: pf.bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: write %s: %w", ErrDestination, path, err)
	}
	if err := enc.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: finalize %s: %w", ErrDestination, path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrDestination, path, err)
	}
	return nil
}
