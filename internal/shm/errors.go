package shm

import (
	"errors"
	"os"
	"syscall"

	pkgerrors "github.com/pkg/errors"
)

var (
	ErrNotFound           = errors.New("shm: shared memory region not found")
	ErrPermissionDenied   = errors.New("shm: permission denied opening shared memory region")
	ErrIncompatibleRegion = errors.New("shm: shared memory region is too small to hold a telemetry header")

	// ErrResourceExhausted is terminal: the OS refused to hand out another mapping.
	// The surrounding application decides whether to keep retrying.
	ErrResourceExhausted = errors.New("shm: operating system resources exhausted")
)

// IsFatal reports whether an Attach error should not be retried blindly.
func IsFatal(err error) bool {
	return errors.Is(err, ErrResourceExhausted)
}

func classifyOpenError(err error, name string) error {
	switch {
	case err == nil:
		return nil
	case os.IsNotExist(err):
		return pkgerrors.Wrapf(ErrNotFound, "open %s: %v", name, err)
	case os.IsPermission(err):
		return pkgerrors.Wrapf(ErrPermissionDenied, "open %s: %v", name, err)
	case errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE), errors.Is(err, syscall.ENOMEM):
		return pkgerrors.Wrapf(ErrResourceExhausted, "open %s: %v", name, err)
	default:
		return pkgerrors.Wrapf(err, "shm: open %s", name)
	}
}
