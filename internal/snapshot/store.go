package snapshot

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"justapengu.in/pedal/internal/shm"
	"justapengu.in/pedal/internal/telemetry"
)

// MinCapacity keeps enough history for a derivative.
const MinCapacity = 2

var ErrOutOfOrder = errors.New("snapshot: record sequence is not newer than history")

// Store holds the latest record plus a bounded history. It has a single writer;
// any number of readers may call Current concurrently and only ever see fully
// published snapshots.
type Store struct {
	capacity int

	// mutex serialises writers, readers never take it.
	mutex   sync.Mutex
	current atomic.Pointer[Snapshot]
}

func NewStore(capacity int) *Store {
	if capacity < MinCapacity {
		capacity = MinCapacity
	}

	s := &Store{capacity: capacity}
	s.current.Store(&Snapshot{Session: uuid.New(), State: shm.Disconnected})

	return s
}

func (s *Store) Capacity() int {
	return s.capacity
}

// Current returns the latest published snapshot. It never returns nil.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Commit appends rec to the history, evicting the oldest record when full.
func (s *Store) Commit(rec *telemetry.Record) error {
	if rec == nil {
		return errors.New("snapshot: nil record")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	prev := s.current.Load()

	if n := len(prev.History); n > 0 && rec.Sequence <= prev.History[n-1].Sequence {
		return errors.Wrapf(ErrOutOfOrder, "%d after %d", rec.Sequence, prev.History[n-1].Sequence)
	}

	start := 0

	if len(prev.History) >= s.capacity {
		start = len(prev.History) - s.capacity + 1
	}

	history := make([]*telemetry.Record, 0, s.capacity)
	history = append(history, prev.History[start:]...)
	history = append(history, rec)

	next := *prev
	next.Latest = rec
	next.History = history
	next.Version++

	s.current.Store(&next)

	return nil
}

// History returns the records within d of the newest record, oldest first. It
// may return fewer records than d covers, e.g. right after a reconnect.
func (s *Store) History(d time.Duration) []*telemetry.Record {
	return s.Current().Window(d)
}

// Reset clears the history and starts a new session. With keepLast the most
// recent record stays available as Latest.
func (s *Store) Reset(keepLast bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	prev := s.current.Load()

	next := &Snapshot{
		Version: prev.Version + 1,
		Epoch:   prev.Epoch + 1,
		Session: uuid.New(),
		State:   prev.State,
	}

	if keepLast {
		next.Latest = prev.Latest
	}

	s.current.Store(next)
}

// SetSourceState publishes a new source state. Publishing the same state again
// is a no-op.
func (s *Store) SetSourceState(state shm.SourceState) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	prev := s.current.Load()

	if prev.State == state {
		return
	}

	next := *prev
	next.State = state
	next.Version++

	s.current.Store(&next)
}
