//go:build windows

package shm

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

var (
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procOpenFileMappingW = kernel32.NewProc("OpenFileMappingW")
)

// region is a view of a named file mapping. Windows keeps the mapping alive
// for as long as any handle is open, so a producer exit is only visible as a
// frozen sequence counter until the region is closed and opened again.
type region struct {
	handle windows.Handle
	addr   uintptr
	data   []byte

	mutex  sync.Mutex
	closed bool
}

// OpenRegion maps the named file mapping object read-only.
func OpenRegion(name string) (Mapping, error) {
	namePtr, err := windows.UTF16PtrFromString(name)

	if err != nil {
		return nil, errors.Wrapf(err, "shm: invalid region name %q", name)
	}

	h, _, callErr := procOpenFileMappingW.Call(uintptr(windows.FILE_MAP_READ), 0, uintptr(unsafe.Pointer(namePtr)))

	if h == 0 {
		return nil, classifyWindowsError(callErr, name)
	}

	handle := windows.Handle(h)

	addr, err := windows.MapViewOfFile(handle, windows.FILE_MAP_READ, 0, 0, 0)

	if err != nil {
		_ = windows.CloseHandle(handle)
		return nil, classifyWindowsError(err, name)
	}

	var info windows.MemoryBasicInformation

	if err := windows.VirtualQuery(addr, &info, unsafe.Sizeof(info)); err != nil {
		_ = windows.UnmapViewOfFile(addr)
		_ = windows.CloseHandle(handle)
		return nil, classifyWindowsError(err, name)
	}

	if info.RegionSize < MinRegionSize {
		_ = windows.UnmapViewOfFile(addr)
		_ = windows.CloseHandle(handle)
		return nil, errors.Wrapf(ErrIncompatibleRegion, "%s is %d bytes", name, info.RegionSize)
	}

	return &region{
		handle: handle,
		addr:   addr,
		data:   unsafe.Slice((*byte)(unsafe.Pointer(addr)), info.RegionSize),
	}, nil
}

func classifyWindowsError(err error, name string) error {
	switch err {
	case windows.ERROR_NOT_ENOUGH_MEMORY, windows.ERROR_OUTOFMEMORY, windows.ERROR_TOO_MANY_OPEN_FILES:
		return errors.Wrapf(ErrResourceExhausted, "open %s: %v", name, err)
	}

	return classifyOpenError(err, name)
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

	return copy(dst, r.data)
}

func (r *region) Valid() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return !r.closed
}

func (r *region) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	r.data = nil

	err := windows.UnmapViewOfFile(r.addr)

	if closeErr := windows.CloseHandle(r.handle); err == nil {
		err = closeErr
	}

	return err
}
