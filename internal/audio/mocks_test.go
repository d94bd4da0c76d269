package audio_test

import (
	"io"
	"os"
	"sync"

	"github.com/alnah/audiosplit/internal/media"
)

// ---------------------------------------------------------------------------
// Mock Demuxer
// ---------------------------------------------------------------------------

// mockDemuxer serves packets from memory. SeekBackward positions the cursor on
// the last packet whose PTS is at or before the target.
type mockDemuxer struct {
	streams  []media.Stream
	duration int64 // microseconds
	metadata media.Metadata
	packets  []media.Packet

	SeekFunc func(ts int64) error
	ReadFunc func() (media.Packet, error) // overrides the packet list when set

	pos    int
	seeks  []int64
	closed bool
}

func (m *mockDemuxer) Streams() []media.Stream  { return m.streams }
func (m *mockDemuxer) Duration() int64          { return m.duration }
func (m *mockDemuxer) Metadata() media.Metadata { return m.metadata }

func (m *mockDemuxer) SeekBackward(ts int64) error {
	m.seeks = append(m.seeks, ts)
	if m.SeekFunc != nil {
		if err := m.SeekFunc(ts); err != nil {
			return err
		}
	}
	m.pos = 0
	for i, p := range m.packets {
		tb := m.timeBase(p.Stream)
		if tb.Rescale(p.PTS, media.Microsecond) <= ts {
			m.pos = i
		}
	}
	return nil
}

func (m *mockDemuxer) ReadPacket() (media.Packet, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc()
	}
	if m.pos >= len(m.packets) {
		return media.Packet{}, io.EOF
	}
	p := m.packets[m.pos]
	m.pos++
	return p, nil
}

func (m *mockDemuxer) Close() error {
	m.closed = true
	return nil
}

func (m *mockDemuxer) timeBase(index int) media.Rational {
	for _, s := range m.streams {
		if s.Index == index {
			return s.TimeBase
		}
	}
	return media.Microsecond
}

// clone returns an independent demuxer over the same packets.
func (m *mockDemuxer) clone() *mockDemuxer {
	return &mockDemuxer{
		streams:  m.streams,
		duration: m.duration,
		metadata: m.metadata,
		packets:  m.packets,
		SeekFunc: m.SeekFunc,
	}
}

// ---------------------------------------------------------------------------
// Mock Muxer
// ---------------------------------------------------------------------------

type mockMuxer struct {
	WriteHeaderFunc  func(streams []media.Stream, md media.Metadata) error
	WritePacketFunc  func(pkt media.Packet) error
	WriteTrailerFunc func() error

	streams   []media.Stream
	metadata  media.Metadata
	packets   []media.Packet
	finalized bool
	closed    bool
}

func (m *mockMuxer) WriteHeader(streams []media.Stream, md media.Metadata) error {
	if m.WriteHeaderFunc != nil {
		if err := m.WriteHeaderFunc(streams, md); err != nil {
			return err
		}
	}
	m.streams = streams
	m.metadata = md
	return nil
}

func (m *mockMuxer) WritePacket(pkt media.Packet) error {
	if m.WritePacketFunc != nil {
		if err := m.WritePacketFunc(pkt); err != nil {
			return err
		}
	}
	m.packets = append(m.packets, pkt)
	return nil
}

func (m *mockMuxer) WriteTrailer() error {
	if m.WriteTrailerFunc != nil {
		if err := m.WriteTrailerFunc(); err != nil {
			return err
		}
	}
	m.finalized = true
	return nil
}

func (m *mockMuxer) Close() error {
	m.closed = true
	return nil
}

// pts returns the PTS of every written packet.
func (m *mockMuxer) pts() []int64 {
	out := make([]int64, len(m.packets))
	for i, p := range m.packets {
		out[i] = p.PTS
	}
	return out
}

// ---------------------------------------------------------------------------
// Mock containerOpener
// ---------------------------------------------------------------------------

// mockOpener hands out clones of a template demuxer.
type mockOpener struct {
	OpenFunc func(path string) (media.Demuxer, error)
	template *mockDemuxer

	mu     sync.Mutex
	opened []*mockDemuxer
}

func (m *mockOpener) Open(path string) (media.Demuxer, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(path)
	}
	d := m.template.clone()
	m.mu.Lock()
	m.opened = append(m.opened, d)
	m.mu.Unlock()
	return d, nil
}

func (m *mockOpener) OpenCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.opened)
}

// ---------------------------------------------------------------------------
// Mock containerCreator
// ---------------------------------------------------------------------------

// mockCreator records one muxer per created path.
type mockCreator struct {
	CreateFunc func(path string) (media.Muxer, error)
	NewMuxer   func() *mockMuxer

	mu     sync.Mutex
	muxers map[string]*mockMuxer
	order  []string
}

func (m *mockCreator) Create(path string) (media.Muxer, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(path)
	}
	mux := &mockMuxer{}
	if m.NewMuxer != nil {
		mux = m.NewMuxer()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.muxers == nil {
		m.muxers = make(map[string]*mockMuxer)
	}
	m.muxers[path] = mux
	m.order = append(m.order, path)
	return mux, nil
}

func (m *mockCreator) Muxer(path string) *mockMuxer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muxers[path]
}

// ---------------------------------------------------------------------------
// Mock dirMaker
// ---------------------------------------------------------------------------

type mockDirMaker struct {
	MkdirAllFunc func(path string, perm os.FileMode) error

	mu    sync.Mutex
	calls []string
}

func (m *mockDirMaker) MkdirAll(path string, perm os.FileMode) error {
	m.mu.Lock()
	m.calls = append(m.calls, path)
	m.mu.Unlock()
	if m.MkdirAllFunc != nil {
		return m.MkdirAllFunc(path, perm)
	}
	return nil
}
