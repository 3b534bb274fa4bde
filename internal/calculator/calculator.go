package calculator

import (
	"justapengu.in/pedal/internal/snapshot"
	"justapengu.in/pedal/internal/telemetry"
)

// Calculator derives one metric from a snapshot. A calculator owns its
// baseline state and is only ever called from the scheduler loop, so it needs
// no locking. It must not look at other calculators' results.
type Calculator interface {
	Name() string
	Update(snap *snapshot.Snapshot) Result
}

type Kind uint8

const (
	KindNumber Kind = iota
	KindText
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Value is a metric value. Enums carry their ordinal in Number and their name
// in Text.
type Value struct {
	Kind   Kind    `json:"kind"`
	Number float64 `json:"number"`
	Text   string  `json:"text,omitempty"`
}

func Number(v float64) Value {
	return Value{Kind: KindNumber, Number: v}
}

func Text(s string) Value {
	return Value{Kind: KindText, Text: s}
}

func Enum(ordinal int, name string) Value {
	return Value{Kind: KindEnum, Number: float64(ordinal), Text: name}
}

// Reason explains why a result is invalid.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonSourceUnavailable
	ReasonInsufficientData
	ReasonOutOfRange
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonSourceUnavailable:
		return "source unavailable"
	case ReasonInsufficientData:
		return "insufficient data"
	case ReasonOutOfRange:
		return "out of range"
	default:
		return "unknown"
	}
}

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Result is the output of one calculator cycle. An invalid result carries a
// zero Value; widgets decide how to display it.
type Result struct {
	Name     string `json:"name"`
	Value    Value  `json:"value"`
	Sequence uint32 `json:"sequence"`
	Valid    bool   `json:"valid"`
	Reason   Reason `json:"reason,omitempty"`
}

func valid(name string, rec *telemetry.Record, v Value) Result {
	return Result{
		Name:     name,
		Value:    v,
		Sequence: sequenceOf(rec),
		Valid:    true,
	}
}

func invalid(name string, rec *telemetry.Record, reason Reason) Result {
	return Result{
		Name:     name,
		Sequence: sequenceOf(rec),
		Reason:   reason,
	}
}

// number turns sentinel values into an OutOfRange result.
func number(name string, rec *telemetry.Record, v float64) Result {
	if !telemetry.Known(v) {
		return invalid(name, rec, ReasonOutOfRange)
	}

	return valid(name, rec, Number(v))
}

func sequenceOf(rec *telemetry.Record) uint32 {
	if rec == nil {
		return 0
	}

	return rec.Sequence
}

// unavailable reports an invalid result when the snapshot must not be
// treated as current: disconnected, stale or empty.
func unavailable(name string, snap *snapshot.Snapshot) (Result, bool) {
	if snap == nil {
		return invalid(name, nil, ReasonSourceUnavailable), true
	}

	if !snap.Available() {
		return invalid(name, snap.Latest, ReasonSourceUnavailable), true
	}

	return Result{}, false
}

// cursor tracks which history records a calculator has already consumed, so
// calculators running every Nth tick still see every committed record that is
// still in history.
type cursor struct {
	epoch    uint64
	sequence uint32
	started  bool
}

// advance returns the records committed since the last call. reset is true
// when the store was reset in between and baselines must be dropped.
func (c *cursor) advance(snap *snapshot.Snapshot) (records []*telemetry.Record, reset bool) {
	if c.started && snap.Epoch != c.epoch {
		reset = true
		c.started = false
	}

	if !c.started {
		c.epoch = snap.Epoch
	}

	i := len(snap.History)

	for i > 0 && (!c.started || snap.History[i-1].Sequence > c.sequence) {
		i--
	}

	records = snap.History[i:]

	if len(records) > 0 {
		c.sequence = records[len(records)-1].Sequence
		c.started = true
	}

	return records, reset
}

// wrapFraction is how far the lap fraction must fall between two records to
// count as crossing the line rather than noise or a reverse.
const wrapFraction = 0.5

// lapTracker detects the start of a new lap from consecutive records.
type lapTracker struct {
	prev *telemetry.Record
}

// observe reports whether rec is the first record of a new lap.
func (l *lapTracker) observe(rec *telemetry.Record) bool {
	prev := l.prev
	l.prev = rec

	if prev == nil {
		return false
	}

	if rec.LapNumber > prev.LapNumber {
		return true
	}

	if rec.LapNumber < prev.LapNumber {
		return false
	}

	from, to := prev.LapFraction(), rec.LapFraction()

	return telemetry.Known(from) && telemetry.Known(to) && from-to > wrapFraction
}

func (l *lapTracker) reset() {
	l.prev = nil
}

// lapTotal accumulates a per-lap quantity. The total of the previous lap is
// only kept once a lap has been seen from line to line.
type lapTotal struct {
	laps    lapTracker
	current float64
	last    float64
	full    bool
}

func newLapTotal() lapTotal {
	return lapTotal{last: telemetry.Unknown}
}

// observe rolls the total over when rec starts a new lap. Call it for every
// record before adding that record's share.
func (t *lapTotal) observe(rec *telemetry.Record) {
	if !t.laps.observe(rec) {
		return
	}

	if t.full {
		t.last = t.current
	}

	t.full = true
	t.current = 0
}

func (t *lapTotal) reset() {
	t.laps.reset()
	t.current = 0
	t.last = telemetry.Unknown
	t.full = false
}
