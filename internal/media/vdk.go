package media

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/deepch/vdk/av"
	"github.com/deepch/vdk/format/aac"
	"github.com/deepch/vdk/format/flv"
	"github.com/deepch/vdk/format/mp4"
	"github.com/deepch/vdk/format/ts"
)

// videoTimeBase is used for non-audio streams, which carry no sample rate.
var videoTimeBase = Rational{Num: 1, Den: 90000}

// vdkContainer adapts one github.com/deepch/vdk format package.
type vdkContainer struct {
	name       string
	extensions []string
	demuxer    func(r io.ReadSeeker) av.Demuxer
	muxer      func(w io.WriteSeeker) av.Muxer
}

var (
	mp4Container = vdkContainer{
		name:       "mp4",
		extensions: []string{".mp4", ".m4a", ".m4b", ".mov"},
		demuxer:    func(r io.ReadSeeker) av.Demuxer { return mp4.NewDemuxer(r) },
		muxer:      func(w io.WriteSeeker) av.Muxer { return mp4.NewMuxer(w) },
	}
	tsContainer = vdkContainer{
		name:       "mpegts",
		extensions: []string{".ts"},
		demuxer:    func(r io.ReadSeeker) av.Demuxer { return ts.NewDemuxer(r) },
		muxer:      func(w io.WriteSeeker) av.Muxer { return ts.NewMuxer(w) },
	}
	flvContainer = vdkContainer{
		name:       "flv",
		extensions: []string{".flv"},
		demuxer:    func(r io.ReadSeeker) av.Demuxer { return flv.NewDemuxer(r) },
		muxer:      func(w io.WriteSeeker) av.Muxer { return flv.NewMuxer(w) },
	}
	aacContainer = vdkContainer{
		name:       "adts",
		extensions: []string{".aac"},
		demuxer:    func(r io.ReadSeeker) av.Demuxer { return aac.NewDemuxer(r) },
		muxer:      func(w io.WriteSeeker) av.Muxer { return aac.NewMuxer(w) },
	}
)

func vdkBackend(c vdkContainer) backend {
	return backend{
		name:       c.name,
		extensions: c.extensions,
		open: func(path string) (Demuxer, error) {
			return openVDK(c, path)
		},
		create: func(path string) (Muxer, error) {
			return createVDK(c, path)
		},
	}
}

// streamFromCodec describes a vdk codec as a Stream.
func streamFromCodec(i int, cd av.CodecData) Stream {
	s := Stream{
		Index:    i,
		Type:     MediaUnknown,
		Codec:    cd.Type().String(),
		TimeBase: videoTimeBase,
		Params:   cd,
	}
	switch {
	case cd.Type().IsAudio():
		s.Type = MediaAudio
		if ad, ok := cd.(av.AudioCodecData); ok {
			s.SampleRate = ad.SampleRate()
			s.Channels = ad.ChannelLayout().Count()
			if s.SampleRate > 0 {
				s.TimeBase = Rational{Num: 1, Den: int64(s.SampleRate)}
			}
		}
	case cd.Type().IsVideo():
		s.Type = MediaVideo
	}
	return s
}

// vdkDemuxer reads one container through a vdk demuxer. vdk demuxers only
// read forward, so a seek reopens the file and skips to the target.
type vdkDemuxer struct {
	c        vdkContainer
	path     string
	f        *os.File
	dmx      av.Demuxer
	codecs   []av.CodecData
	streams  []Stream
	duration int64
	pending  []av.Packet
}

func openVDK(c vdkContainer, path string) (Demuxer, error) {
	d := &vdkDemuxer{c: c, path: path, duration: NoTimestamp}
	if err := d.reopen(); err != nil {
		return nil, err
	}

	d.streams = make([]Stream, len(d.codecs))
	for i, cd := range d.codecs {
		d.streams[i] = streamFromCodec(i, cd)
	}

	if err := d.measure(); err != nil {
		_ = d.Close()
		return nil, err
	}
	if err := d.reopen(); err != nil {
		return nil, err
	}
	return d, nil
}

// reopen starts reading the file from its beginning.
func (d *vdkDemuxer) reopen() error {
	if d.f != nil {
		_ = d.f.Close()
		d.f = nil
	}
	f, err := os.Open(d.path) // #nosec G304 -- path is the user-selected input file
	if err != nil {
		return err
	}
	dmx := d.c.demuxer(f)
	codecs, err := dmx.Streams()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %s: %v", ErrInvalidContainer, d.c.name, err)
	}
	d.f = f
	d.dmx = dmx
	d.codecs = codecs
	d.pending = nil
	return nil
}

// measure reads every packet once and records the end time of the last one.
func (d *vdkDemuxer) measure() error {
	var end int64 = NoTimestamp
	for {
		pkt, err := d.dmx.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidContainer, d.c.name, err)
		}
		dur := pkt.Duration
		if dur <= 0 && int(pkt.Idx) < len(d.codecs) {
			if ad, ok := d.codecs[pkt.Idx].(av.AudioCodecData); ok {
				if pd, err := ad.PacketDuration(pkt.Data); err == nil {
					dur = pd
				}
			}
		}
		if e := (pkt.Time + dur).Microseconds(); end == NoTimestamp || e > end {
			end = e
		}
	}
	d.duration = end
	return nil
}

func (d *vdkDemuxer) Streams() []Stream {
	return d.streams
}

func (d *vdkDemuxer) Duration() int64 {
	return d.duration
}

// Metadata is empty: vdk does not surface container tags.
func (d *vdkDemuxer) Metadata() Metadata {
	return Metadata{}
}

// SeekBackward reopens the file and queues the last packet at or before ts
// followed by the first packet after it.
func (d *vdkDemuxer) SeekBackward(ts int64) error {
	if err := d.reopen(); err != nil {
		return err
	}

	var prev *av.Packet
	for {
		pkt, err := d.dmx.ReadPacket()
		if errors.Is(err, io.EOF) {
			if prev != nil {
				d.pending = []av.Packet{*prev}
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidContainer, d.c.name, err)
		}
		if pkt.Time.Microseconds() > ts {
			if prev != nil {
				d.pending = append(d.pending, *prev)
			}
			d.pending = append(d.pending, pkt)
			return nil
		}
		p := pkt
		prev = &p
	}
}

func (d *vdkDemuxer) ReadPacket() (Packet, error) {
	var pkt av.Packet
	if len(d.pending) > 0 {
		pkt = d.pending[0]
		d.pending = d.pending[1:]
	} else {
		var err error
		pkt, err = d.dmx.ReadPacket()
		if err != nil {
			return Packet{}, err
		}
	}

	idx := int(pkt.Idx)
	tb := videoTimeBase
	if idx < len(d.streams) {
		tb = d.streams[idx].TimeBase
	}
	return Packet{
		Stream:   idx,
		PTS:      tb.FromDuration(pkt.Time + pkt.CompositionTime),
		DTS:      tb.FromDuration(pkt.Time),
		Duration: tb.FromDuration(pkt.Duration),
		Pos:      -1,
		KeyFrame: pkt.IsKeyFrame,
		Data:     pkt.Data,
	}, nil
}

func (d *vdkDemuxer) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// vdkMuxer writes one container through a vdk muxer.
type vdkMuxer struct {
	c       vdkContainer
	f       *os.File
	mux     av.Muxer
	streams []Stream
	closed  bool
}

func createVDK(c vdkContainer, path string) (Muxer, error) {
	f, err := os.Create(path) // #nosec G304 -- chunk path built by the splitter
	if err != nil {
		return nil, err
	}
	return &vdkMuxer{c: c, f: f, mux: c.muxer(f)}, nil
}

func (m *vdkMuxer) WriteHeader(streams []Stream, _ Metadata) error {
	codecs := make([]av.CodecData, len(streams))
	for i, s := range streams {
		cd, ok := s.Params.(av.CodecData)
		if !ok {
			return fmt.Errorf("%w: %s: %T", ErrIncompatibleParams, m.c.name, s.Params)
		}
		codecs[i] = cd
	}
	if err := m.mux.WriteHeader(codecs); err != nil {
		return err
	}
	m.streams = streams
	return nil
}

func (m *vdkMuxer) WritePacket(pkt Packet) error {
	if m.streams == nil {
		return ErrHeaderNotWritten
	}
	if pkt.Stream < 0 || pkt.Stream >= len(m.streams) {
		return fmt.Errorf("packet for stream %d, container has %d", pkt.Stream, len(m.streams))
	}
	tb := m.streams[pkt.Stream].TimeBase
	return m.mux.WritePacket(av.Packet{
		Idx:             int8(pkt.Stream),
		IsKeyFrame:      pkt.KeyFrame,
		Time:            tb.ToDuration(pkt.DTS),
		CompositionTime: tb.ToDuration(pkt.PTS - pkt.DTS),
		Duration:        tb.ToDuration(pkt.Duration),
		Data:            pkt.Data,
	})
}

func (m *vdkMuxer) WriteTrailer() error {
	if m.streams == nil {
		return ErrHeaderNotWritten
	}
	if err := m.mux.WriteTrailer(); err != nil {
		_ = m.Close()
		return err
	}
	m.closed = true
	return m.f.Close()
}

func (m *vdkMuxer) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.f.Close()
}
