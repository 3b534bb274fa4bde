package snapshot

import (
	"time"

	"github.com/google/uuid"

	"justapengu.in/pedal/internal/shm"
	"justapengu.in/pedal/internal/telemetry"
)

// Snapshot is an immutable view of the store. Nothing reachable from a
// Snapshot is modified after it is published.
type Snapshot struct {
	// Latest is the most recent record, nil before the first commit. After a
	// Reset(true) it is the continuity anchor while History is empty.
	Latest *telemetry.Record

	// History is ordered by strictly increasing sequence, oldest first. When
	// non-empty its last entry is Latest.
	History []*telemetry.Record

	// Version increases with every publish.
	Version uint64

	// Epoch increases with every Reset; calculators drop their baselines when
	// it changes.
	Epoch uint64

	// Session identifies the attachment the history belongs to.
	Session uuid.UUID

	State shm.SourceState
}

// Window returns the records captured within d of the newest record.
func (s *Snapshot) Window(d time.Duration) []*telemetry.Record {
	if len(s.History) == 0 {
		return nil
	}

	cutoff := s.History[len(s.History)-1].CapturedAt.Add(-d)

	i := len(s.History)

	for i > 0 && !s.History[i-1].CapturedAt.Before(cutoff) {
		i--
	}

	return s.History[i:]
}

// Previous is the record committed before Latest, if it is still in history.
func (s *Snapshot) Previous() *telemetry.Record {
	if len(s.History) < 2 {
		return nil
	}

	return s.History[len(s.History)-2]
}

// Available reports whether the latest record may be treated as current.
func (s *Snapshot) Available() bool {
	return s.Latest != nil && len(s.History) > 0 && s.State.Available()
}
