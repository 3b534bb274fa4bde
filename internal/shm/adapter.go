package shm

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Logger = logrus.FieldLogger

// DefaultStaleTimeout is how long the sequence counter may stand still before
// a source is reported as Stale.
const DefaultStaleTimeout = 1500 * time.Millisecond

// RawFrame is one copy of the region. Data is owned by the Handle and is only
// valid until the next Poll on that Handle.
type RawFrame struct {
	Data       []byte
	Sequence   uint32
	Poll       uint64
	CapturedAt time.Time
	Live       bool
}

// Handle is an attachment to a region. It is owned by a single goroutine.
type Handle struct {
	mapping Mapping
	buf     []byte

	polls        uint64
	lastSequence uint32
	lastChange   time.Time
	seen         bool

	detached bool
}

// Adapter attaches to a named region and copies frames out of it.
type Adapter struct {
	name         string
	open         Opener
	staleTimeout time.Duration
	now          func() time.Time
	logger       Logger
}

type AdapterOption func(a *Adapter)

func WithOpener(open Opener) AdapterOption {
	return func(a *Adapter) {
		a.open = open
	}
}

func WithStaleTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.staleTimeout = d
		}
	}
}

func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) {
		a.now = now
	}
}

func WithLogger(logger Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func NewAdapter(name string, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		name:         name,
		open:         OpenRegion,
		staleTimeout: DefaultStaleTimeout,
		now:          time.Now,
		logger:       logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Adapter) Name() string {
	return a.name
}

// Attach opens the region. Errors match ErrNotFound, ErrPermissionDenied,
// ErrIncompatibleRegion or ErrResourceExhausted.
func (a *Adapter) Attach() (*Handle, error) {
	mapping, err := a.open(a.name)

	if err != nil {
		return nil, err
	}

	if mapping.Size() < MinRegionSize {
		size := mapping.Size()
		_ = mapping.Close()

		return nil, errors.Wrapf(ErrIncompatibleRegion, "%s is %d bytes", a.name, size)
	}

	a.logger.Debugf("Attached to shared memory region %s (%d bytes)", a.name, mapping.Size())

	return &Handle{
		mapping:    mapping,
		buf:        make([]byte, mapping.Size()),
		lastChange: a.now(),
	}, nil
}

// Poll copies the current region contents. It never waits on the producer.
func (a *Adapter) Poll(h *Handle) RawFrame {
	now := a.now()

	if h == nil || h.detached {
		return RawFrame{CapturedAt: now}
	}

	size := h.mapping.Size()

	if cap(h.buf) < size {
		h.buf = make([]byte, size)
	}

	n := h.mapping.Copy(h.buf[:size])
	data := h.buf[:n]

	h.polls++

	frame := RawFrame{
		Data:       data,
		Poll:       h.polls,
		CapturedAt: now,
	}

	if n >= 4 {
		frame.Sequence = binary.LittleEndian.Uint32(data[0:4])

		if !h.seen || frame.Sequence != h.lastSequence {
			h.seen = true
			h.lastSequence = frame.Sequence
			h.lastChange = now
		}
	}

	frame.Live = a.IsLive(h) == Live

	return frame
}

// IsLive derives the source state from the handle and the time since the
// sequence counter last changed.
func (a *Adapter) IsLive(h *Handle) SourceState {
	if h == nil || h.detached || !h.mapping.Valid() {
		return Disconnected
	}

	if a.now().Sub(h.lastChange) > a.staleTimeout {
		return Stale
	}

	return Live
}

// Detach releases the mapping. Calling it more than once is a no-op.
func (a *Adapter) Detach(h *Handle) error {
	if h == nil || h.detached {
		return nil
	}

	h.detached = true
	h.buf = nil

	a.logger.Debugf("Detached from shared memory region %s", a.name)

	return h.mapping.Close()
}
