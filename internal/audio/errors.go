package audio

import "errors"

// Source errors.

// ErrFileNotFound indicates the specified input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrOpen indicates the input container is unreadable or its format is unrecognized.
var ErrOpen = errors.New("cannot open media container")

// ErrNoAudioStream indicates the input container holds no audio stream.
var ErrNoAudioStream = errors.New("no audio stream found")

// ErrEmptySource indicates the audio stream has no measurable duration.
var ErrEmptySource = errors.New("audio stream is empty")

// ErrRead indicates a packet could not be read from the input.
var ErrRead = errors.New("cannot read source packet")

// Destination errors.

// ErrDestination indicates the output directory, container, or stream could
// not be created, or a write or flush failed.
var ErrDestination = errors.New("cannot write chunk")

// Seek errors.

// ErrSeek indicates the demuxer rejected the requested seek position.
var ErrSeek = errors.New("seek failed")

// Decode errors.

// ErrDecode indicates PCM sample data could not be parsed, uses an
// unsupported sample width, or disagrees with its declared format.
var ErrDecode = errors.New("cannot decode PCM data")

// Usage errors.

// ErrInvalidChunkDuration indicates a non-positive chunk or source duration.
var ErrInvalidChunkDuration = errors.New("chunk duration must be positive")

// ErrUnknownPolicy indicates a boundary policy name is not recognized.
var ErrUnknownPolicy = errors.New("unknown boundary policy")

// ErrUnknownStrategy indicates a splitting strategy name is not recognized.
var ErrUnknownStrategy = errors.New("unknown splitting strategy")
