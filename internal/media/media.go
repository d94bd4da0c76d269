// Package media is the container layer used by the splitters: it opens audio
// containers as packet streams and writes packets into new containers without
// touching the encoded payload.
package media

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"
)

// NoTimestamp marks a packet timestamp the container did not provide.
const NoTimestamp int64 = math.MinInt64

// ErrUnknownFormat indicates no backend handles the file extension.
var ErrUnknownFormat = errors.New("unknown container format")

// ErrInvalidContainer indicates the file could not be parsed by its backend.
var ErrInvalidContainer = errors.New("invalid container")

// ErrIncompatibleParams indicates stream parameters produced by one backend
// were handed to a muxer of another backend.
var ErrIncompatibleParams = errors.New("codec parameters not accepted by muxer")

// ErrHeaderNotWritten indicates a packet or trailer write before WriteHeader.
var ErrHeaderNotWritten = errors.New("container header not written")

// Rational is a time base: one tick lasts Num/Den seconds.
type Rational struct {
	Num int64
	Den int64
}

// Microsecond is the global time unit used for container durations and
// chunk boundaries.
var Microsecond = Rational{Num: 1, Den: 1_000_000}

// nanosecond matches time.Duration resolution.
var nanosecond = Rational{Num: 1, Den: int64(time.Second)}

// Valid reports whether both terms are positive.
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// String returns the time base as "num/den".
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Rescale converts ts from r ticks into to ticks, rounding half away from zero.
// NoTimestamp is passed through unchanged.
func (r Rational) Rescale(ts int64, to Rational) int64 {
	if ts == NoTimestamp {
		return NoTimestamp
	}
	if r == to {
		return ts
	}

	num := new(big.Int).SetInt64(ts)
	num.Mul(num, big.NewInt(r.Num))
	num.Mul(num, big.NewInt(to.Den))
	den := new(big.Int).SetInt64(r.Den)
	den.Mul(den, big.NewInt(to.Num))

	// Round half away from zero: (2*num + sign*den) / (2*den).
	twice := new(big.Int).Lsh(num, 1)
	if num.Sign() >= 0 {
		twice.Add(twice, den)
	} else {
		twice.Sub(twice, den)
	}
	q := new(big.Int).Quo(twice, new(big.Int).Lsh(den, 1))
	if !q.IsInt64() {
		if q.Sign() > 0 {
			return math.MaxInt64
		}
		return math.MinInt64 + 1
	}
	return q.Int64()
}

// ToDuration converts ticks in r to a time.Duration.
func (r Rational) ToDuration(ts int64) time.Duration {
	return time.Duration(r.Rescale(ts, nanosecond))
}

// FromDuration converts a time.Duration to ticks in r.
func (r Rational) FromDuration(d time.Duration) int64 {
	return nanosecond.Rescale(int64(d), r)
}

// MediaType classifies a stream.
type MediaType int

// Stream media types.
const (
	MediaUnknown MediaType = iota
	MediaAudio
	MediaVideo
)

// String returns the lower-case media type name.
func (t MediaType) String() string {
	switch t {
	case MediaAudio:
		return "audio"
	case MediaVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Stream describes one elementary stream of a container.
type Stream struct {
	Index      int
	Type       MediaType
	Codec      string
	TimeBase   Rational
	SampleRate int
	Channels   int

	// Params is the backend's codec parameter block. It is handed to a muxer
	// of the same backend as-is and never inspected outside the backend.
	Params any
}

// Metadata is container-level information copied from an input to every
// output container.
type Metadata struct {
	Tags map[string]string

	// Header holds a container-specific leading tag block (an ID3v2 tag for
	// MPEG audio) written verbatim before the first packet.
	Header []byte
}

// Packet is one unit of encoded data. Timestamps are in the stream's time base.
type Packet struct {
	Stream   int
	PTS      int64
	DTS      int64
	Duration int64

	// Pos is the byte offset in the source file, or -1 when unknown.
	Pos int64

	KeyFrame bool
	Data     []byte
}

// Demuxer reads packets from a container in decode order.
type Demuxer interface {
	// Streams lists the container's streams ordered by index.
	Streams() []Stream

	// Duration returns the container duration in Microsecond units, or
	// NoTimestamp when it cannot be determined.
	Duration() int64

	// Metadata returns container-level metadata.
	Metadata() Metadata

	// SeekBackward positions the read cursor on a packet at or before ts,
	// expressed in Microsecond units. Packets read afterwards may start
	// slightly before ts.
	SeekBackward(ts int64) error

	// ReadPacket returns the next packet, or io.EOF at the end of the data.
	ReadPacket() (Packet, error)

	Close() error
}

// Muxer writes packets into a new container file.
type Muxer interface {
	// WriteHeader declares the output streams and writes the container header.
	WriteHeader(streams []Stream, md Metadata) error

	// WritePacket writes one packet in interleaved order.
	WritePacket(pkt Packet) error

	// WriteTrailer finalizes the container and closes the file.
	WriteTrailer() error

	// Close releases the file without finalizing it. It is a no-op after
	// WriteTrailer.
	Close() error
}
