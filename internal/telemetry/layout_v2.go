package telemetry

import "unsafe"

// MaxPaceNotes is the size of the pace note marker array in v2+ payloads.
const MaxPaceNotes = 8

type tyreV2 struct {
	SurfaceTemp [3]float64 // 0, Kelvin, left/centre/right
	InnerTemp   [3]float64 // 24, Kelvin
	Pressure    float64    // 48, kPa
	Wear        float64    // 56, fraction remaining
}

type paceNoteV2 struct {
	Distance float32 // 0, metres from the start line
	Callout  uint16  // 4
	_        [2]byte // 6
}

type layoutV2 struct {
	ElapsedTime  float64 // 0
	TrackLength  float64 // 8
	LapDistance  float64 // 16
	LapStartTime float64 // 24
	LastLapTime  float64 // 32
	BestLapTime  float64 // 40
	CurSector1   float64 // 48
	CurSector2   float64 // 56
	LastSector1  float64 // 64
	LastSector2  float64 // 72
	BestSector1  float64 // 80
	BestSector2  float64 // 88

	Position     [3]float64 // 96
	Velocity     [3]float64 // 120
	Fuel         float64    // 144
	FuelCapacity float64    // 152
	Tyres        [4]tyreV2  // 160

	LapNumber    int32   // 416
	SessionType  uint8   // 420
	Phase        uint8   // 421
	Sector       int8    // 422
	InPits       uint8   // 423
	NumPaceNotes uint8   // 424
	_            [7]byte // 425

	PaceNotes   [MaxPaceNotes]paceNoteV2 // 432
	VehicleName [64]byte                 // 496
	TrackName   [64]byte                 // 560
}

const layoutV2Size = 624

var (
	_ [layoutV2Size - unsafe.Sizeof(layoutV2{})]byte
	_ [unsafe.Sizeof(layoutV2{}) - layoutV2Size]byte
	_ [64 - unsafe.Sizeof(tyreV2{})]byte
	_ [8 - unsafe.Sizeof(paceNoteV2{})]byte
)

func decodeV2(p *Packet, rec *Record) error {
	var l layoutV2

	p.Read(&l)

	if err := p.Err(); err != nil {
		return truncated("version 2 payload: %v", err)
	}

	return applyV2(&l, rec)
}

func applyV2(l *layoutV2, rec *Record) error {
	if int(l.NumPaceNotes) > MaxPaceNotes {
		return inconsistent("pace note count %d exceeds %d", l.NumPaceNotes, MaxPaceNotes)
	}

	rec.VehicleName = decodeName(l.VehicleName)
	rec.TrackName = decodeName(l.TrackName)
	rec.SessionType = SessionType(l.SessionType)
	rec.Phase = SessionPhase(l.Phase)

	rec.ElapsedTime = finite(l.ElapsedTime)
	rec.TrackLength = nonNegative(l.TrackLength)
	rec.LapNumber = l.LapNumber
	rec.LapDistance = nonNegative(l.LapDistance)
	rec.LapStartTime = nonNegative(l.LapStartTime)
	rec.LastLapTime = lapTime(l.LastLapTime)
	rec.BestLapTime = lapTime(l.BestLapTime)

	rec.Sector = l.Sector
	rec.CurrentSector1 = lapTime(l.CurSector1)
	rec.CurrentSector2 = lapTime(l.CurSector2)
	rec.LastSector1 = lapTime(l.LastSector1)
	rec.LastSector2 = lapTime(l.LastSector2)
	rec.BestSector1 = lapTime(l.BestSector1)
	rec.BestSector2 = lapTime(l.BestSector2)

	rec.Position = vector(l.Position)
	rec.Velocity = vector(l.Velocity)
	rec.Speed = speed(rec.Velocity)

	rec.Fuel = nonNegative(l.Fuel)
	rec.FuelCapacity = nonNegative(l.FuelCapacity)
	rec.InPits = l.InPits != 0

	for i, tyre := range l.Tyres {
		for j := range tyre.SurfaceTemp {
			rec.Tyres[i].SurfaceTemp[j] = celsius(tyre.SurfaceTemp[j])
			rec.Tyres[i].InnerTemp[j] = celsius(tyre.InnerTemp[j])
		}

		rec.Tyres[i].Pressure = nonNegative(tyre.Pressure)
		rec.Tyres[i].Wear = fraction(tyre.Wear)
	}

	rec.PaceNotes = make([]PaceNote, 0, l.NumPaceNotes)

	for _, note := range l.PaceNotes[:l.NumPaceNotes] {
		distance := nonNegative(float64(note.Distance))

		if !Known(distance) {
			continue
		}

		rec.PaceNotes = append(rec.PaceNotes, PaceNote{Distance: distance, Callout: Callout(note.Callout)})
	}

	return nil
}

func encodeV2(p *Packet, rec *Record) {
	l := buildV2(rec)

	p.Write(&l)
}

func buildV2(rec *Record) layoutV2 {
	l := layoutV2{
		ElapsedTime:  sentinel(rec.ElapsedTime),
		TrackLength:  sentinel(rec.TrackLength),
		LapDistance:  sentinel(rec.LapDistance),
		LapStartTime: sentinel(rec.LapStartTime),
		LastLapTime:  sentinel(rec.LastLapTime),
		BestLapTime:  sentinel(rec.BestLapTime),
		CurSector1:   sentinel(rec.CurrentSector1),
		CurSector2:   sentinel(rec.CurrentSector2),
		LastSector1:  sentinel(rec.LastSector1),
		LastSector2:  sentinel(rec.LastSector2),
		BestSector1:  sentinel(rec.BestSector1),
		BestSector2:  sentinel(rec.BestSector2),
		Position:     [3]float64{rec.Position.X, rec.Position.Y, rec.Position.Z},
		Velocity:     [3]float64{rec.Velocity.X, rec.Velocity.Y, rec.Velocity.Z},
		Fuel:         sentinel(rec.Fuel),
		FuelCapacity: sentinel(rec.FuelCapacity),
		LapNumber:    rec.LapNumber,
		SessionType:  uint8(rec.SessionType),
		Phase:        uint8(rec.Phase),
		Sector:       rec.Sector,
		InPits:       boolByte(rec.InPits),
		VehicleName:  encodeName(rec.VehicleName),
		TrackName:    encodeName(rec.TrackName),
	}

	for i, tyre := range rec.Tyres {
		for j := range tyre.SurfaceTemp {
			l.Tyres[i].SurfaceTemp[j] = kelvin(tyre.SurfaceTemp[j])
			l.Tyres[i].InnerTemp[j] = kelvin(tyre.InnerTemp[j])
		}

		l.Tyres[i].Pressure = sentinel(tyre.Pressure)
		l.Tyres[i].Wear = sentinel(tyre.Wear)
	}

	for _, note := range rec.PaceNotes {
		if int(l.NumPaceNotes) == MaxPaceNotes {
			break
		}

		l.PaceNotes[l.NumPaceNotes] = paceNoteV2{Distance: float32(note.Distance), Callout: uint16(note.Callout)}
		l.NumPaceNotes++
	}

	return l
}
