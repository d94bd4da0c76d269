// Package audio splits one audio file into an ordered set of smaller,
// independently decodable files bounded by a target duration.
//
// Two strategies are provided. StreamCopySplitter copies encoded packets into
// new containers and repairs their timestamps. PCMSplitter slices decoded WAV
// samples. Both write chunk_001.<ext>, chunk_002.<ext>, ... into an output
// directory and return the chunks in order.
package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/audiosplit/internal/format"
)

// Compile-time interface implementation checks.
var (
	_ Splitter = (*StreamCopySplitter)(nil)
	_ Splitter = (*PCMSplitter)(nil)
)

// chunkNameWidth is the zero-padded width of the chunk index in file names.
const chunkNameWidth = 3

// Chunk describes one output file and the window of the source it covers.
type Chunk struct {
	Index     int           // One-based position in the output sequence.
	StartTime time.Duration // Start of the window in the source audio.
	EndTime   time.Duration // End of the window, exclusive.
	Path      string        // Output file path.
}

// Duration returns the length of the window.
func (c Chunk) Duration() time.Duration {
	return c.EndTime - c.StartTime
}

// String returns a human-readable representation for logging.
func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d: %s-%s",
		c.Index,
		format.Duration(c.StartTime),
		format.Duration(c.EndTime))
}

// Splitter splits an audio file into chunk files.
type Splitter interface {
	// Split writes the chunks of inputPath into outputDir, creating the
	// directory if needed. Chunks are returned in source order. Files left by
	// an earlier run are neither removed nor checked.
	Split(ctx context.Context, inputPath, outputDir string) ([]Chunk, error)
}

// ProgressFunc is called after each chunk file is finalized.
type ProgressFunc func(c Chunk)

// chunkFileName returns the file name of the chunk at the one-based index.
// ext may be given with or without its leading dot.
func chunkFileName(index int, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("chunk_%0*d.%s", chunkNameWidth, index, ext)
}

// assignPaths sets the output path of every planned chunk.
func assignPaths(chunks []Chunk, outputDir, ext string) {
	for i := range chunks {
		chunks[i].Path = filepath.Join(outputDir, chunkFileName(chunks[i].Index, ext))
	}
}
