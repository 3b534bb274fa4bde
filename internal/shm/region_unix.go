//go:build unix

package shm

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Dir is where named regions live on unix systems.
var Dir = "/dev/shm"

type region struct {
	path string
	file *os.File
	info os.FileInfo
	data []byte

	mutex  sync.Mutex
	closed bool
}

// OpenRegion maps the named region read-only.
func OpenRegion(name string) (Mapping, error) {
	path := name

	if !filepath.IsAbs(path) {
		path = filepath.Join(Dir, name)
	}

	f, err := os.Open(path)

	if err != nil {
		return nil, classifyOpenError(err, path)
	}

	info, err := f.Stat()

	if err != nil {
		_ = f.Close()
		return nil, classifyOpenError(err, path)
	}

	if info.Size() < MinRegionSize {
		_ = f.Close()
		return nil, errors.Wrapf(ErrIncompatibleRegion, "%s is %d bytes", path, info.Size())
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)

	if err != nil {
		_ = f.Close()
		return nil, classifyOpenError(err, path)
	}

	return &region{
		path: path,
		file: f,
		info: info,
		data: data,
	}, nil
}

func (r *region) Size() int {
	return len(r.data)
}

func (r *region) Copy(dst []byte) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return 0
	}

	// touching pages past a truncated file raises SIGBUS, so re-check the size
	// right before the copy. a truncate racing this check is a known limitation.
	info, err := r.file.Stat()

	if err != nil || info.Size() < int64(len(r.data)) {
		return 0
	}

	return copy(dst, r.data)
}

// Valid reports false once the producer has removed or replaced the region.
func (r *region) Valid() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return false
	}

	info, err := os.Stat(r.path)

	if err != nil {
		return false
	}

	return os.SameFile(r.info, info) && info.Size() >= int64(len(r.data))
}

func (r *region) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true

	err := unix.Munmap(r.data)
	r.data = nil

	if closeErr := r.file.Close(); err == nil {
		err = closeErr
	}

	return err
}
