package audio

import (
	"io"
	"os"

	"github.com/alnah/audiosplit/internal/media"
)

// containerOpener opens an input container for demuxing.
type containerOpener interface {
	Open(path string) (media.Demuxer, error)
}

// containerCreator creates an output container for muxing.
type containerCreator interface {
	Create(path string) (media.Muxer, error)
}

// dirMaker creates output directories.
type dirMaker interface {
	MkdirAll(path string, perm os.FileMode) error
}

// writeSeekCloser is an output file the WAV encoder can rewind to patch its header.
type writeSeekCloser interface {
	io.WriteSeeker
	io.Closer
}

// fileOpener opens PCM input files.
type fileOpener interface {
	Open(name string) (io.ReadSeekCloser, error)
}

// fileCreator creates PCM output files.
type fileCreator interface {
	Create(name string) (writeSeekCloser, error)
}

// --- Default implementations using real OS functions ---

// mediaOpener implements containerOpener using the media format registry.
type mediaOpener struct{}

func (mediaOpener) Open(path string) (media.Demuxer, error) {
	return media.Open(path)
}

// mediaCreator implements containerCreator using the media format registry.
type mediaCreator struct{}

func (mediaCreator) Create(path string) (media.Muxer, error) {
	return media.Create(path)
}

// osDirMaker implements dirMaker using os.MkdirAll.
type osDirMaker struct{}

func (osDirMaker) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// osFileOpener implements fileOpener using os.Open.
type osFileOpener struct{}

func (osFileOpener) Open(name string) (io.ReadSeekCloser, error) {
	// #nosec G304 -- path is the user-selected input file
	return os.Open(name)
}

// osFileCreator implements fileCreator using os.Create.
type osFileCreator struct{}

func (osFileCreator) Create(name string) (writeSeekCloser, error) {
	// #nosec G304 -- chunk path built by the splitter
	return os.Create(name)
}
