package cli

import (
	"errors"
	"fmt"
	"testing"
)

// ---------------------------------------------------------------------------
// Tests for sentinel errors
// ---------------------------------------------------------------------------

func TestSentinelErrors_AreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		ErrInvalidDuration,
		ErrUnsupportedFormat,
		ErrFileNotFound,
		ErrUnknownConfigKey,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("sentinels %d and %d should not match: %v == %v", i, j, err1, err2)
			}
		}
	}
}

func TestSentinelErrors_CanBeWrapped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sentinel error
	}{
		{"ErrInvalidDuration", ErrInvalidDuration},
		{"ErrUnsupportedFormat", ErrUnsupportedFormat},
		{"ErrFileNotFound", ErrFileNotFound},
		{"ErrUnknownConfigKey", ErrUnknownConfigKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wrapped := fmt.Errorf("context: %w", tt.sentinel)

			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("wrapped error should match sentinel via errors.Is")
			}
			if wrapped.Error() == tt.sentinel.Error() {
				t.Errorf("wrapped error should have additional context")
			}
		})
	}
}
