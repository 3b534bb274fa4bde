package main

import (
	"os"

	"github.com/pkg/errors"
)

// frameWriter publishes frames into a shared memory file in the order readers
// rely on: the begin counter first, then the payload, then the end counter.
type frameWriter struct {
	f    *os.File
	size int
}

func (w *frameWriter) write(frame []byte) error {
	if len(frame) < 8 {
		return errors.Errorf("frame of %d bytes has no counters", len(frame))
	}

	if len(frame) != w.size {
		if err := w.f.Truncate(int64(len(frame))); err != nil {
			return errors.Wrap(err, "could not resize region")
		}

		w.size = len(frame)
	}

	for _, part := range []struct {
		offset int
		data   []byte
	}{
		{0, frame[0:4]},
		{8, frame[8:]},
		{4, frame[4:8]},
	} {
		if _, err := w.f.WriteAt(part.data, int64(part.offset)); err != nil {
			return errors.Wrapf(err, "could not write region at %d", part.offset)
		}
	}

	return nil
}
