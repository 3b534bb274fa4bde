package telemetry

import "unsafe"

// layoutV1 is the original export. It has no mirrored counter, so torn copies
// cannot be detected.
type layoutV1 struct {
	ElapsedTime  float64    // 0
	TrackLength  float64    // 8
	LapDistance  float64    // 16
	LastLapTime  float64    // 24
	BestLapTime  float64    // 32
	Position     [3]float64 // 40
	Velocity     [3]float64 // 64
	Fuel         float64    // 88
	FuelCapacity float64    // 96
	TyreTemp     [4]float64 // 104, Kelvin
	LapNumber    int32      // 136
	Phase        uint8      // 140
	Sector       int8       // 141
	InPits       uint8      // 142
	_            uint8      // 143
	VehicleName  [64]byte   // 144
	TrackName    [64]byte   // 208
}

const layoutV1Size = 272

var (
	_ [layoutV1Size - unsafe.Sizeof(layoutV1{})]byte
	_ [unsafe.Sizeof(layoutV1{}) - layoutV1Size]byte
)

func decodeV1(p *Packet, rec *Record) error {
	var l layoutV1

	p.Read(&l)

	if err := p.Err(); err != nil {
		return truncated("version 1 payload: %v", err)
	}

	rec.VehicleName = decodeName(l.VehicleName)
	rec.TrackName = decodeName(l.TrackName)
	rec.Phase = SessionPhase(l.Phase)

	rec.ElapsedTime = finite(l.ElapsedTime)
	rec.TrackLength = nonNegative(l.TrackLength)
	rec.LapNumber = l.LapNumber
	rec.LapDistance = nonNegative(l.LapDistance)
	rec.LastLapTime = lapTime(l.LastLapTime)
	rec.BestLapTime = lapTime(l.BestLapTime)
	rec.Sector = l.Sector

	rec.Position = vector(l.Position)
	rec.Velocity = vector(l.Velocity)
	rec.Speed = speed(rec.Velocity)

	rec.Fuel = nonNegative(l.Fuel)
	rec.FuelCapacity = nonNegative(l.FuelCapacity)
	rec.InPits = l.InPits != 0

	for i, temp := range l.TyreTemp {
		c := celsius(temp)
		rec.Tyres[i].SurfaceTemp = [3]float64{c, c, c}
	}

	return nil
}

func encodeV1(p *Packet, rec *Record) {
	l := layoutV1{
		ElapsedTime:  sentinel(rec.ElapsedTime),
		TrackLength:  sentinel(rec.TrackLength),
		LapDistance:  sentinel(rec.LapDistance),
		LastLapTime:  sentinel(rec.LastLapTime),
		BestLapTime:  sentinel(rec.BestLapTime),
		Position:     [3]float64{rec.Position.X, rec.Position.Y, rec.Position.Z},
		Velocity:     [3]float64{rec.Velocity.X, rec.Velocity.Y, rec.Velocity.Z},
		Fuel:         sentinel(rec.Fuel),
		FuelCapacity: sentinel(rec.FuelCapacity),
		LapNumber:    rec.LapNumber,
		Phase:        uint8(rec.Phase),
		Sector:       rec.Sector,
		InPits:       boolByte(rec.InPits),
		VehicleName:  encodeName(rec.VehicleName),
		TrackName:    encodeName(rec.TrackName),
	}

	for i, tyre := range rec.Tyres {
		l.TyreTemp[i] = kelvin(tyre.AverageSurfaceTemp())
	}

	p.Write(&l)
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}

	return 0
}
