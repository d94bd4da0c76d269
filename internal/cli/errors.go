package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrInvalidDuration indicates a duration string could not be parsed.
	ErrInvalidDuration = errors.New("invalid duration format")

	// ErrUnsupportedFormat indicates an audio file has an unsupported extension.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrUnknownConfigKey indicates a config key that audiosplit does not know.
	ErrUnknownConfigKey = errors.New("unknown config key")
)
