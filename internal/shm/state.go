package shm

// SourceState describes the producer as seen from the consumer side.
type SourceState int32

const (
	Disconnected SourceState = iota
	Connecting
	Live
	// Stale means the region is attached but the producer has not advanced its
	// sequence counter within the stale timeout, e.g. the simulator is paused.
	Stale
)

func (s SourceState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Live:
		return "Live"
	case Stale:
		return "Stale"
	default:
		return "Unknown"
	}
}

func (s SourceState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Available reports whether frames from this state may be trusted as current.
func (s SourceState) Available() bool {
	return s == Live
}
