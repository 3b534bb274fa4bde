package telemetry

import "fmt"

// Callout is a pace note code as exported by the simulator. Codes 1-6 are left
// corners by severity (1 tightest), 7-12 right corners.
type Callout uint16

const (
	CalloutNone Callout = 0

	CalloutHairpinLeft  Callout = 13
	CalloutHairpinRight Callout = 14
	CalloutCaution      Callout = 15
	CalloutBrake        Callout = 16
	CalloutJump         Callout = 17
	CalloutPitEntry     Callout = 18
)

func (c Callout) String() string {
	switch {
	case c == CalloutNone:
		return ""
	case c >= 1 && c <= 6:
		return fmt.Sprintf("Left %d", c)
	case c >= 7 && c <= 12:
		return fmt.Sprintf("Right %d", c-6)
	case c == CalloutHairpinLeft:
		return "Hairpin Left"
	case c == CalloutHairpinRight:
		return "Hairpin Right"
	case c == CalloutCaution:
		return "Caution"
	case c == CalloutBrake:
		return "Brake"
	case c == CalloutJump:
		return "Jump"
	case c == CalloutPitEntry:
		return "Pit Entry"
	default:
		return fmt.Sprintf("Callout %d", uint16(c))
	}
}
