package media

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// backend opens and creates containers for a set of file extensions.
type backend struct {
	name       string
	extensions []string
	open       func(path string) (Demuxer, error)
	create     func(path string) (Muxer, error)
}

// backends lists every supported container, looked up by extension.
var backends = []backend{
	{
		name:       "mp3",
		extensions: []string{".mp3", ".mpga"},
		open:       openMP3,
		create:     createMP3,
	},
	vdkBackend(mp4Container),
	vdkBackend(tsContainer),
	vdkBackend(flvContainer),
	vdkBackend(aacContainer),
}

// lookup returns the backend registered for path's extension.
func lookup(path string) (backend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, b := range backends {
		if slices.Contains(b.extensions, ext) {
			return b, nil
		}
	}
	return backend{}, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
}

// Open opens path for demuxing using the backend registered for its extension.
func Open(path string) (Demuxer, error) {
	b, err := lookup(path)
	if err != nil {
		return nil, err
	}
	return b.open(path)
}

// Create creates path for muxing using the backend registered for its extension.
// An existing file is truncated.
func Create(path string) (Muxer, error) {
	b, err := lookup(path)
	if err != nil {
		return nil, err
	}
	return b.create(path)
}

// FormatName returns the backend name handling path, or "" if none does.
func FormatName(path string) string {
	b, err := lookup(path)
	if err != nil {
		return ""
	}
	return b.name
}

// Extensions returns every extension the stream-copy backends accept, sorted.
func Extensions() []string {
	var exts []string
	for _, b := range backends {
		exts = append(exts, b.extensions...)
	}
	slices.Sort(exts)
	return exts
}
