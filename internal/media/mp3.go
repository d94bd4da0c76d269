package media

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// MPEG audio framing limits.
const (
	id3HeaderSize  = 10
	mp3HeaderSize  = 4
	xingSearchSize = 64 // Xing/Info tags sit right after the side information
)

// ErrInvalidFrame is returned when bytes do not form a valid MPEG Layer III frame header.
var ErrInvalidFrame = errors.New("invalid or unsupported MP3 frame")

// frameHeader is the decoded form of a 4-byte MPEG audio frame header.
type frameHeader struct {
	length     int // whole frame in bytes, header included
	sampleRate int
	samples    int // PCM samples per channel carried by the frame
	channels   int
}

// parseFrameHeader decodes an MPEG-1/2/2.5 Layer III frame header.
func parseFrameHeader(hdr []byte) (frameHeader, error) {
	if len(hdr) < mp3HeaderSize {
		return frameHeader{}, ErrInvalidFrame
	}
	if hdr[0] != 0xff || hdr[1]&0xe0 != 0xe0 {
		return frameHeader{}, ErrInvalidFrame
	}

	mpegVer := (hdr[1] >> 3) & 0x03
	layer := (hdr[1] >> 1) & 0x03
	if mpegVer == 1 || layer != 1 { // version 1 is reserved, layer bits 01 mean Layer III
		return frameHeader{}, ErrInvalidFrame
	}

	bitRateIdx := (hdr[2] >> 4) & 0x0f
	if bitRateIdx == 0 || bitRateIdx == 0x0f {
		return frameHeader{}, ErrInvalidFrame
	}
	sampleRateIdx := (hdr[2] >> 2) & 0x03
	if sampleRateIdx == 3 {
		return frameHeader{}, ErrInvalidFrame
	}
	if hdr[3]&0x03 == 2 { // reserved emphasis
		return frameHeader{}, ErrInvalidFrame
	}

	var (
		bitrates    []int
		sampleRates []int
		multiplier  int
		samples     int
	)
	if mpegVer == 3 {
		bitrates = []int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
		sampleRates = []int{44100, 48000, 32000, 0}
		multiplier = 144
		samples = 1152
	} else {
		bitrates = []int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}
		sampleRates = []int{22050, 24000, 16000, 0}
		if mpegVer == 0 {
			sampleRates = []int{11025, 12000, 8000, 0}
		}
		multiplier = 72
		samples = 576
	}

	padding := int((hdr[2] >> 1) & 1)
	bitRate := bitrates[bitRateIdx] * 1000
	sampleRate := sampleRates[sampleRateIdx]

	channels := 2
	if hdr[3]>>6 == 3 {
		channels = 1
	}

	return frameHeader{
		length:     multiplier*bitRate/sampleRate + padding,
		sampleRate: sampleRate,
		samples:    samples,
		channels:   channels,
	}, nil
}

// id3v2Size returns the total size of an ID3v2 tag starting at b, or 0 when
// b does not start with one.
func id3v2Size(b []byte) int {
	if len(b) < id3HeaderSize || string(b[:3]) != "ID3" {
		return 0
	}
	// Tag size is a 28-bit syncsafe integer.
	size := int(b[6]&0x7f)<<21 | int(b[7]&0x7f)<<14 | int(b[8]&0x7f)<<7 | int(b[9]&0x7f)
	total := id3HeaderSize + size
	if b[5]&0x10 != 0 { // footer present
		total += id3HeaderSize
	}
	return total
}

// mp3Params is the opaque parameter block of an MPEG audio stream: the
// header of its first audio frame.
type mp3Params struct {
	header [mp3HeaderSize]byte
}

// mp3Frame locates one frame in the source file.
type mp3Frame struct {
	offset  int64
	size    int
	pts     int64
	samples int
}

// mp3Index is the result of scanning an MPEG audio file.
type mp3Index struct {
	tag    []byte
	first  frameHeader
	params mp3Params
	frames []mp3Frame
}

// indexMP3 scans r for an optional leading ID3v2 tag followed by Layer III
// frames. Bytes that do not form a frame consistent with the first one are
// skipped. A Xing/Info frame in first position carries no audio and is left
// out of the index.
func indexMP3(r io.Reader) (mp3Index, error) {
	var idx mp3Index
	br := bufio.NewReaderSize(r, 8192)
	var offset int64

	if head, err := br.Peek(id3HeaderSize); err == nil {
		if n := id3v2Size(head); n > 0 {
			idx.tag = make([]byte, n)
			if _, err := io.ReadFull(br, idx.tag); err != nil {
				return idx, fmt.Errorf("%w: truncated ID3v2 tag: %v", ErrInvalidContainer, err)
			}
			offset += int64(n)
		}
	}

	var pts int64
	for {
		hdr, err := br.Peek(mp3HeaderSize)
		if err != nil {
			break
		}
		h, err := parseFrameHeader(hdr)
		if err != nil || (len(idx.frames) > 0 && h.sampleRate != idx.first.sampleRate) {
			_, _ = br.Discard(1)
			offset++
			continue
		}

		frame, err := br.Peek(h.length)
		if err != nil {
			break // truncated trailing frame
		}

		if len(idx.frames) == 0 && idx.first.sampleRate == 0 {
			idx.first = h
			copy(idx.params.header[:], frame[:mp3HeaderSize])
			if isXingFrame(frame) {
				_, _ = br.Discard(h.length)
				offset += int64(h.length)
				continue
			}
		}

		idx.frames = append(idx.frames, mp3Frame{
			offset:  offset,
			size:    h.length,
			pts:     pts,
			samples: h.samples,
		})
		pts += int64(h.samples)
		_, _ = br.Discard(h.length)
		offset += int64(h.length)
	}

	if len(idx.frames) == 0 {
		return idx, fmt.Errorf("%w: no MPEG audio frames", ErrInvalidContainer)
	}
	return idx, nil
}

// isXingFrame reports whether frame holds a Xing or Info VBR header.
func isXingFrame(frame []byte) bool {
	end := min(len(frame), xingSearchSize)
	body := frame[mp3HeaderSize:end]
	return bytes.Contains(body, []byte("Xing")) || bytes.Contains(body, []byte("Info"))
}

// mp3Demuxer reads frames of an MPEG audio elementary stream.
type mp3Demuxer struct {
	f      *os.File
	stream Stream
	meta   Metadata
	frames []mp3Frame
	next   int
}

func openMP3(path string) (Demuxer, error) {
	f, err := os.Open(path) // #nosec G304 -- path is the user-selected input file
	if err != nil {
		return nil, err
	}

	idx, err := indexMP3(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &mp3Demuxer{
		f: f,
		stream: Stream{
			Index:      0,
			Type:       MediaAudio,
			Codec:      "mp3",
			TimeBase:   Rational{Num: 1, Den: int64(idx.first.sampleRate)},
			SampleRate: idx.first.sampleRate,
			Channels:   idx.first.channels,
			Params:     idx.params,
		},
		meta:   Metadata{Header: idx.tag},
		frames: idx.frames,
	}, nil
}

func (d *mp3Demuxer) Streams() []Stream {
	return []Stream{d.stream}
}

func (d *mp3Demuxer) Duration() int64 {
	last := d.frames[len(d.frames)-1]
	return d.stream.TimeBase.Rescale(last.pts+int64(last.samples), Microsecond)
}

func (d *mp3Demuxer) Metadata() Metadata {
	return d.meta
}

// SeekBackward moves to the last frame starting at or before ts.
func (d *mp3Demuxer) SeekBackward(ts int64) error {
	target := Microsecond.Rescale(ts, d.stream.TimeBase)
	i := sort.Search(len(d.frames), func(i int) bool {
		return d.frames[i].pts > target
	})
	d.next = max(i-1, 0)
	return nil
}

func (d *mp3Demuxer) ReadPacket() (Packet, error) {
	if d.next >= len(d.frames) {
		return Packet{}, io.EOF
	}
	fr := d.frames[d.next]
	data := make([]byte, fr.size)
	if _, err := d.f.ReadAt(data, fr.offset); err != nil {
		return Packet{}, fmt.Errorf("read frame at %d: %w", fr.offset, err)
	}
	d.next++

	return Packet{
		Stream:   0,
		PTS:      fr.pts,
		DTS:      fr.pts,
		Duration: int64(fr.samples),
		Pos:      fr.offset,
		KeyFrame: true,
		Data:     data,
	}, nil
}

func (d *mp3Demuxer) Close() error {
	return d.f.Close()
}

// mp3Muxer writes frames back to back after an optional ID3v2 tag.
type mp3Muxer struct {
	f      *os.File
	w      *bufio.Writer
	header bool
	closed bool
}

func createMP3(path string) (Muxer, error) {
	f, err := os.Create(path) // #nosec G304 -- chunk path built by the splitter
	if err != nil {
		return nil, err
	}
	return &mp3Muxer{f: f, w: bufio.NewWriter(f)}, nil
}

func (m *mp3Muxer) WriteHeader(streams []Stream, md Metadata) error {
	if len(streams) != 1 {
		return fmt.Errorf("%w: mp3 holds exactly one stream, got %d", ErrIncompatibleParams, len(streams))
	}
	if _, ok := streams[0].Params.(mp3Params); !ok {
		return fmt.Errorf("%w: %T", ErrIncompatibleParams, streams[0].Params)
	}
	if len(md.Header) > 0 {
		if _, err := m.w.Write(md.Header); err != nil {
			return err
		}
	}
	m.header = true
	return nil
}

func (m *mp3Muxer) WritePacket(pkt Packet) error {
	if !m.header {
		return ErrHeaderNotWritten
	}
	_, err := m.w.Write(pkt.Data)
	return err
}

func (m *mp3Muxer) WriteTrailer() error {
	if !m.header {
		return ErrHeaderNotWritten
	}
	if err := m.w.Flush(); err != nil {
		_ = m.Close()
		return err
	}
	m.closed = true
	return m.f.Close()
}

func (m *mp3Muxer) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.f.Close()
}
