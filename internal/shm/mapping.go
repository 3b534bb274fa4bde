package shm

import (
	"sync"
)

// MinRegionSize is the smallest region that can contain a telemetry header.
const MinRegionSize = 16

// Mapping is a read-only view of a shared memory region.
type Mapping interface {
	// Size is the number of bytes currently mapped.
	Size() int
	// Copy copies the region into dst in a single bounded operation and returns
	// the number of bytes copied. The producer may be writing concurrently.
	Copy(dst []byte) int
	// Valid reports whether the backing object still belongs to a producer.
	Valid() bool
	Close() error
}

// Opener opens the named region.
type Opener func(name string) (Mapping, error)

// Memory is an in-process Mapping. Writers call Write to publish a new region
// image; the adapter copies it out like it would an OS mapping.
type Memory struct {
	mu      sync.Mutex
	data    []byte
	invalid bool
	closed  bool
}

func NewMemory(b []byte) *Memory {
	m := &Memory{}
	m.Write(b)

	return m
}

// Write replaces the region contents.
func (m *Memory) Write(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = append(m.data[:0], b...)
}

// Invalidate marks the region as abandoned by its producer.
func (m *Memory) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.invalid = true
}

func (m *Memory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.data)
}

func (m *Memory) Copy(dst []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return copy(dst, m.data)
}

func (m *Memory) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return !m.invalid && !m.closed
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

// Opener returns an Opener that always hands out m, reopening it if it was closed.
func (m *Memory) Opener() Opener {
	return func(string) (Mapping, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.invalid {
			return nil, ErrNotFound
		}

		m.closed = false

		return m, nil
	}
}
