package telemetry

import "unsafe"

// layoutV3 extends v2 with brakes and hybrid data.
type layoutV3 struct {
	Base layoutV2 // 0

	BrakeThickness [4]float64 // 624, metres
	BrakeTemp      [4]float64 // 656, Kelvin
	BatteryCharge  float64    // 688, fraction
	MotorState     uint8      // 696
	_              [7]byte    // 697
}

const layoutV3Size = 704

var (
	_ [layoutV3Size - unsafe.Sizeof(layoutV3{})]byte
	_ [unsafe.Sizeof(layoutV3{}) - layoutV3Size]byte
)

func decodeV3(p *Packet, rec *Record) error {
	var l layoutV3

	p.Read(&l)

	if err := p.Err(); err != nil {
		return truncated("version 3 payload: %v", err)
	}

	if err := applyV2(&l.Base, rec); err != nil {
		return err
	}

	for i := range rec.Brakes {
		rec.Brakes[i].Thickness = millimetres(l.BrakeThickness[i])
		rec.Brakes[i].Temp = celsius(l.BrakeTemp[i])
	}

	rec.BatteryCharge = fraction(l.BatteryCharge)
	rec.MotorState = MotorState(l.MotorState)

	return nil
}

func encodeV3(p *Packet, rec *Record) {
	l := layoutV3{
		Base:          buildV2(rec),
		BatteryCharge: sentinel(rec.BatteryCharge),
		MotorState:    uint8(rec.MotorState),
	}

	for i, brake := range rec.Brakes {
		l.BrakeThickness[i] = metres(brake.Thickness)
		l.BrakeTemp[i] = kelvin(brake.Temp)
	}

	p.Write(&l)
}
