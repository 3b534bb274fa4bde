//go:build !unix && !windows

package shm

import (
	"runtime"

	"github.com/pkg/errors"
)

func OpenRegion(name string) (Mapping, error) {
	return nil, errors.Wrapf(ErrNotFound, "%s: shared memory regions are not supported on %s", name, runtime.GOOS)
}
