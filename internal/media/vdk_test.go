package media_test

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deepch/vdk/av"
	"github.com/deepch/vdk/codec/aacparser"

	"github.com/alnah/audiosplit/internal/media"
)

const (
	aacSampleRate   = 44100
	aacFrameSamples = 1024
)

var aacTimeBase = media.Rational{Num: 1, Den: aacSampleRate}

// vdkExtensions lists one extension per vdk-backed container.
var vdkExtensions = []string{"aac", "ts", "m4a", "flv"}

// aacStream returns a stereo AAC-LC stream at 44.1 kHz.
func aacStream(t *testing.T) media.Stream {
	t.Helper()
	cd, err := aacparser.NewCodecDataFromMPEG4AudioConfig(aacparser.MPEG4AudioConfig{
		ObjectType:      aacparser.AOT_AAC_LC,
		SampleRate:      aacSampleRate,
		SampleRateIndex: 4,
		ChannelConfig:   2,
		ChannelLayout:   av.CH_STEREO,
	})
	if err != nil {
		t.Fatalf("aac codec data: %v", err)
	}
	return media.Stream{
		Type:       media.MediaAudio,
		Codec:      "aac",
		TimeBase:   aacTimeBase,
		SampleRate: aacSampleRate,
		Channels:   2,
		Params:     cd,
	}
}

// writeTestAAC writes frames AAC packets into dir/audio.<ext>.
func writeTestAAC(t *testing.T, dir, ext string, frames int) string {
	t.Helper()
	p := filepath.Join(dir, "audio."+ext)
	mux, err := media.Create(p)
	if err != nil {
		t.Fatalf("Create(%s) error = %v", p, err)
	}
	if err := mux.WriteHeader([]media.Stream{aacStream(t)}, media.Metadata{}); err != nil {
		t.Fatalf("WriteHeader(%s) error = %v", ext, err)
	}
	payload := bytes.Repeat([]byte{0x21, 0x10}, 16)
	for i := range frames {
		ts := int64(i * aacFrameSamples)
		pkt := media.Packet{PTS: ts, DTS: ts, Duration: aacFrameSamples, Pos: -1, KeyFrame: true, Data: payload}
		if err := mux.WritePacket(pkt); err != nil {
			t.Fatalf("WritePacket(%s, %d) error = %v", ext, i, err)
		}
	}
	if err := mux.WriteTrailer(); err != nil {
		t.Fatalf("WriteTrailer(%s) error = %v", ext, err)
	}
	return p
}

// ---------------------------------------------------------------------------
// vdk backend - Round trip
// ---------------------------------------------------------------------------

func TestVDK_RoundTrip(t *testing.T) {
	t.Parallel()

	const frames = 108 // ~2.508s
	wantUS := int64(frames*aacFrameSamples) * 1_000_000 / aacSampleRate

	for _, ext := range vdkExtensions {
		t.Run(ext, func(t *testing.T) {
			t.Parallel()

			path := writeTestAAC(t, t.TempDir(), ext, frames)
			d, err := media.Open(path)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer func() { _ = d.Close() }()

			streams := d.Streams()
			if len(streams) != 1 {
				t.Fatalf("Streams() = %d streams, want 1", len(streams))
			}
			s := streams[0]
			if s.Type != media.MediaAudio || s.SampleRate != aacSampleRate || s.Channels != 2 {
				t.Errorf("stream = %+v, want stereo 44.1 kHz audio", s)
			}
			if !strings.EqualFold(s.Codec, "aac") {
				t.Errorf("stream codec = %q, want AAC", s.Codec)
			}
			if s.TimeBase != aacTimeBase {
				t.Errorf("stream time base = %v, want %v", s.TimeBase, aacTimeBase)
			}
			if _, ok := s.Params.(av.CodecData); !ok {
				t.Errorf("stream params = %T, want av.CodecData", s.Params)
			}

			// Container clocks round to ms (flv) or 90 kHz (ts); allow one frame.
			if diff := d.Duration() - wantUS; diff < -25_000 || diff > 25_000 {
				t.Errorf("Duration() = %dµs, want about %dµs", d.Duration(), wantUS)
			}

			count := 0
			last := int64(-1)
			for {
				pkt, err := d.ReadPacket()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("ReadPacket() error = %v", err)
				}
				if pkt.PTS < last {
					t.Errorf("packet %d PTS %d before previous %d", count, pkt.PTS, last)
				}
				if pkt.Pos != -1 || len(pkt.Data) == 0 {
					t.Errorf("packet %d = %+v", count, pkt)
				}
				last = pkt.PTS
				count++
			}
			if count != frames {
				t.Errorf("read %d packets, want %d", count, frames)
			}
		})
	}
}

func TestVDKDemuxer_SeekBackward(t *testing.T) {
	t.Parallel()

	for _, ext := range vdkExtensions {
		t.Run(ext, func(t *testing.T) {
			t.Parallel()

			d, err := media.Open(writeTestAAC(t, t.TempDir(), ext, 108))
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer func() { _ = d.Close() }()

			for _, target := range []int64{1_000_000, 0, 2_000_000, 1_000_000} {
				if err := d.SeekBackward(target); err != nil {
					t.Fatalf("SeekBackward(%d) error = %v", target, err)
				}
				first, err := d.ReadPacket()
				if err != nil {
					t.Fatalf("ReadPacket() after seek to %d error = %v", target, err)
				}
				second, err := d.ReadPacket()
				if err != nil {
					t.Fatalf("second ReadPacket() after seek to %d error = %v", target, err)
				}

				firstUS := aacTimeBase.Rescale(first.PTS, media.Microsecond)
				secondUS := aacTimeBase.Rescale(second.PTS, media.Microsecond)
				if firstUS > target {
					t.Errorf("seek to %dµs: first packet at %dµs, want at or before", target, firstUS)
				}
				if target > 0 && secondUS <= target {
					t.Errorf("seek to %dµs: second packet at %dµs, want after", target, secondUS)
				}
			}
		})
	}
}

func TestVDKMuxer_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("packet before header", func(t *testing.T) {
		t.Parallel()
		mux, err := media.Create(filepath.Join(dir, "early.m4a"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		defer func() { _ = mux.Close() }()
		if err := mux.WritePacket(media.Packet{Data: []byte{1}}); !errors.Is(err, media.ErrHeaderNotWritten) {
			t.Errorf("WritePacket() error = %v, want ErrHeaderNotWritten", err)
		}
		if err := mux.WriteTrailer(); !errors.Is(err, media.ErrHeaderNotWritten) {
			t.Errorf("WriteTrailer() error = %v, want ErrHeaderNotWritten", err)
		}
	})

	t.Run("foreign params", func(t *testing.T) {
		t.Parallel()
		mux, err := media.Create(filepath.Join(dir, "foreign.ts"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		defer func() { _ = mux.Close() }()
		s := media.Stream{Type: media.MediaAudio, TimeBase: aacTimeBase, Params: "mp3 frame header"}
		if err := mux.WriteHeader([]media.Stream{s}, media.Metadata{}); !errors.Is(err, media.ErrIncompatibleParams) {
			t.Errorf("WriteHeader() error = %v, want ErrIncompatibleParams", err)
		}
	})
}
