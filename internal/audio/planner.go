package audio

import (
	"fmt"
	"strings"
	"time"
)

// Policy decides what happens to a trailing window shorter than the chunk length.
type Policy int

const (
	// PolicyCeil keeps the trailing partial window so the whole source is
	// covered: N = ceil(D / C).
	PolicyCeil Policy = iota

	// PolicyFloor drops a trailing partial window: N = floor(D / C). A source
	// shorter than one chunk still yields a single chunk.
	PolicyFloor
)

// String returns the policy name accepted by ParsePolicy.
func (p Policy) String() string {
	switch p {
	case PolicyFloor:
		return "floor"
	default:
		return "ceil"
	}
}

// ParsePolicy parses "ceil" or "floor". An empty name selects PolicyCeil.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ceil":
		return PolicyCeil, nil
	case "floor":
		return PolicyFloor, nil
	default:
		return PolicyCeil, fmt.Errorf("%w: %q (valid: ceil, floor)", ErrUnknownPolicy, name)
	}
}

// chunkCount returns how many windows of size length fit into total under policy.
// Both arguments must be positive.
func chunkCount(total, length int64, policy Policy) int64 {
	n := total / length
	if policy == PolicyCeil && total%length != 0 {
		n++
	}
	return max(n, 1)
}

// Plan computes the ordered chunk windows for a source of the given total
// duration. Chunks are returned without output paths.
//
// Windows are contiguous, never overlap, and never extend past total; each
// one is at most length long. An exact multiple of length yields no empty
// trailing window.
func Plan(total, length time.Duration, policy Policy) ([]Chunk, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: chunk length %v", ErrInvalidChunkDuration, length)
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: source duration %v", ErrEmptySource, total)
	}

	n := chunkCount(int64(total), int64(length), policy)
	chunks := make([]Chunk, 0, n)
	for i := range n {
		start := time.Duration(i) * length
		chunks = append(chunks, Chunk{
			Index:     int(i) + 1,
			StartTime: start,
			EndTime:   min(start+length, total),
		})
	}
	return chunks, nil
}
