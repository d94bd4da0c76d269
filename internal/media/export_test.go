package media

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// FrameHeaderTest is a test-visible version of frameHeader.
type FrameHeaderTest struct {
	Length     int
	SampleRate int
	Samples    int
	Channels   int
}

// ParseFrameHeader exports parseFrameHeader for testing.
func ParseFrameHeader(hdr []byte) (FrameHeaderTest, error) {
	h, err := parseFrameHeader(hdr)
	return FrameHeaderTest{
		Length:     h.length,
		SampleRate: h.sampleRate,
		Samples:    h.samples,
		Channels:   h.channels,
	}, err
}

// ID3v2Size exports id3v2Size for testing.
var ID3v2Size = id3v2Size
