package telemetry

import (
	"errors"
	"fmt"
)

type DecodeErrorKind int

const (
	VersionMismatch DecodeErrorKind = iota
	Truncated
	Inconsistent
)

func (k DecodeErrorKind) String() string {
	switch k {
	case VersionMismatch:
		return "version mismatch"
	case Truncated:
		return "truncated"
	case Inconsistent:
		return "inconsistent"
	default:
		return "unknown"
	}
}

var (
	ErrVersionMismatch = errors.New("telemetry: version mismatch")
	ErrTruncated       = errors.New("telemetry: truncated frame")
	ErrInconsistent    = errors.New("telemetry: inconsistent frame")
)

// DecodeError is returned for every frame that cannot be published. None of
// them are fatal; the next poll may decode fine.
type DecodeError struct {
	Kind   DecodeErrorKind
	Detail string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("telemetry: %s: %s", e.Kind, e.Detail)
}

func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrVersionMismatch:
		return e.Kind == VersionMismatch
	case ErrTruncated:
		return e.Kind == Truncated
	case ErrInconsistent:
		return e.Kind == Inconsistent
	default:
		return false
	}
}

func versionMismatch(format string, args ...interface{}) error {
	return &DecodeError{Kind: VersionMismatch, Detail: fmt.Sprintf(format, args...)}
}

func truncated(format string, args ...interface{}) error {
	return &DecodeError{Kind: Truncated, Detail: fmt.Sprintf(format, args...)}
}

func inconsistent(format string, args ...interface{}) error {
	return &DecodeError{Kind: Inconsistent, Detail: fmt.Sprintf(format, args...)}
}

// KindOf reports the decode error kind of err, if any.
func KindOf(err error) (DecodeErrorKind, bool) {
	var decodeErr *DecodeError

	if errors.As(err, &decodeErr) {
		return decodeErr.Kind, true
	}

	return 0, false
}
