package telemetry

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"justapengu.in/pedal/internal/shm"
)

type goldenFrame struct {
	b []byte
}

func newGoldenFrame(version uint16, begin, end uint32, payloadSize int) *goldenFrame {
	g := &goldenFrame{b: make([]byte, HeaderSize+payloadSize)}

	binary.LittleEndian.PutUint32(g.b[0:], begin)
	binary.LittleEndian.PutUint32(g.b[4:], end)
	binary.LittleEndian.PutUint16(g.b[8:], version)
	binary.LittleEndian.PutUint32(g.b[12:], uint32(payloadSize))

	return g
}

// offsets below are payload relative
func (g *goldenFrame) f64(off int, v float64) {
	binary.LittleEndian.PutUint64(g.b[HeaderSize+off:], math.Float64bits(v))
}

func (g *goldenFrame) f32(off int, v float32) {
	binary.LittleEndian.PutUint32(g.b[HeaderSize+off:], math.Float32bits(v))
}

func (g *goldenFrame) i32(off int, v int32) {
	binary.LittleEndian.PutUint32(g.b[HeaderSize+off:], uint32(v))
}

func (g *goldenFrame) u16(off int, v uint16) {
	binary.LittleEndian.PutUint16(g.b[HeaderSize+off:], v)
}

func (g *goldenFrame) u8(off int, v uint8) {
	g.b[HeaderSize+off] = v
}

func (g *goldenFrame) str(off int, s string) {
	copy(g.b[HeaderSize+off:HeaderSize+off+64], s)
}

func (g *goldenFrame) frame() shm.RawFrame {
	return shm.RawFrame{Data: g.b, Sequence: binary.LittleEndian.Uint32(g.b), CapturedAt: time.Unix(1600000000, 0)}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func checkFloat(t *testing.T, name string, got, expected float64) {
	t.Helper()

	if !approx(got, expected) {
		t.Errorf("%s: expected %v, got %v", name, expected, got)
	}
}

func checkUnknown(t *testing.T, name string, got float64) {
	t.Helper()

	if Known(got) {
		t.Errorf("%s: expected unknown, got %v", name, got)
	}
}

func TestDecodeGoldenV1(t *testing.T) {
	g := newGoldenFrame(1, 99, 0, layoutV1Size)

	g.f64(0, 312.5)   // elapsed
	g.f64(8, 5000)    // track length
	g.f64(16, 1234.5) // lap distance
	g.f64(24, 92.25)  // last lap
	g.f64(32, -1)     // best lap sentinel
	g.f64(40, 10)     // position
	g.f64(48, 1)
	g.f64(56, -20)
	g.f64(64, 30) // velocity
	g.f64(72, 0)
	g.f64(80, 40)
	g.f64(88, 42.5) // fuel
	g.f64(96, 100)  // capacity
	g.f64(104, 353.15)
	g.f64(112, 358.15)
	g.f64(120, 0) // sentinel temperature
	g.f64(128, 343.15)
	g.i32(136, 4)
	g.u8(140, uint8(PhaseGreenFlag))
	g.u8(141, 2)
	g.u8(142, 1)
	g.str(144, "Formula Test")
	g.str(208, "Monza")

	rec, err := Decode(g.frame())

	if err != nil {
		t.Fatal(err)
	}

	if rec.Version != 1 || rec.Sequence != 99 || !rec.CapturedAt.Equal(time.Unix(1600000000, 0)) {
		t.Errorf("Unexpected record identity: %s", spew.Sdump(rec))
	}

	checkFloat(t, "elapsed", rec.ElapsedTime, 312.5)
	checkFloat(t, "track length", rec.TrackLength, 5000)
	checkFloat(t, "lap distance", rec.LapDistance, 1234.5)
	checkFloat(t, "last lap", rec.LastLapTime, 92.25)
	checkUnknown(t, "best lap", rec.BestLapTime)
	checkUnknown(t, "lap start", rec.LapStartTime)
	checkFloat(t, "position z", rec.Position.Z, -20)
	checkFloat(t, "speed", rec.Speed, 50)
	checkFloat(t, "fuel", rec.Fuel, 42.5)
	checkFloat(t, "fuel capacity", rec.FuelCapacity, 100)
	checkFloat(t, "fl temp", rec.Tyres[FrontLeft].AverageSurfaceTemp(), 80)
	checkFloat(t, "fr temp", rec.Tyres[FrontRight].AverageSurfaceTemp(), 85)
	checkUnknown(t, "rl temp", rec.Tyres[RearLeft].AverageSurfaceTemp())
	checkFloat(t, "rr temp", rec.Tyres[RearRight].AverageSurfaceTemp(), 70)
	checkUnknown(t, "wear", rec.Tyres[FrontLeft].Wear)
	checkUnknown(t, "battery", rec.BatteryCharge)

	if rec.LapNumber != 4 || rec.Phase != PhaseGreenFlag || rec.Sector != 2 || !rec.InPits {
		t.Errorf("Unexpected lap state: %s", spew.Sdump(rec))
	}

	if rec.VehicleName != "Formula Test" || rec.TrackName != "Monza" {
		t.Errorf("Unexpected names: %q %q", rec.VehicleName, rec.TrackName)
	}
}

func goldenV2(version uint16, payloadSize int) *goldenFrame {
	g := newGoldenFrame(version, 7, 7, payloadSize)

	g.f64(0, 1000)   // elapsed
	g.f64(8, 1)      // track length
	g.f64(16, 0.5)   // lap distance
	g.f64(24, 950)   // lap start
	g.f64(32, 101.5) // last lap
	g.f64(40, 99.75) // best lap
	g.f64(48, 31.25) // cur sector 1
	g.f64(56, -1)    // cur sector 2
	g.f64(64, 32)    // last sector 1
	g.f64(72, 66)    // last sector 2
	g.f64(80, 31)    // best sector 1
	g.f64(88, 65.5)  // best sector 2
	g.f64(120, 3)    // velocity
	g.f64(136, 4)
	g.f64(144, 49.8) // fuel
	g.f64(152, 110)  // capacity

	for i := 0; i < 4; i++ {
		base := 160 + i*64

		g.f64(base, 363.15)
		g.f64(base+8, 373.15)
		g.f64(base+16, 383.15)
		g.f64(base+24, 373.15+float64(i))
		g.f64(base+32, 373.15)
		g.f64(base+40, 373.15)
		g.f64(base+48, 165)
		g.f64(base+56, 0.9-float64(i)*0.1)
	}

	g.i32(416, 12)
	g.u8(420, uint8(SessionTypeRace))
	g.u8(421, uint8(PhaseFullCourseYellow))
	g.u8(422, 1)
	g.u8(423, 0)
	g.u8(424, 2)
	g.f32(432, 0.25)
	g.u16(436, 3)
	g.f32(440, 0.75)
	g.u16(444, uint16(CalloutHairpinRight))
	g.str(496, "GT3 Test")
	g.str(560, "Spa")

	return g
}

func checkV2Fields(t *testing.T, rec *Record) {
	t.Helper()

	checkFloat(t, "lap distance", rec.LapDistance, 0.5)
	checkFloat(t, "lap start", rec.LapStartTime, 950)
	checkFloat(t, "lap elapsed", rec.LapElapsed(), 50)
	checkFloat(t, "last lap", rec.LastLapTime, 101.5)
	checkFloat(t, "best lap", rec.BestLapTime, 99.75)
	checkFloat(t, "cur sector 1", rec.CurrentSector1, 31.25)
	checkUnknown(t, "cur sector 2", rec.CurrentSector2)
	checkFloat(t, "last sector 2", rec.LastSector2, 66)
	checkFloat(t, "best sector 2", rec.BestSector2, 65.5)
	checkFloat(t, "speed", rec.Speed, 5)
	checkFloat(t, "fuel", rec.Fuel, 49.8)
	checkFloat(t, "lap fraction", rec.LapFraction(), 0.5)

	for i, tyre := range rec.Tyres {
		checkFloat(t, "surface temp", tyre.AverageSurfaceTemp(), 100)
		checkFloat(t, "inner temp", tyre.InnerTemp[0], 100+float64(i))
		checkFloat(t, "pressure", tyre.Pressure, 165)
		checkFloat(t, "wear", tyre.Wear, 0.9-float64(i)*0.1)
	}

	if rec.LapNumber != 12 || rec.SessionType != SessionTypeRace || rec.Phase != PhaseFullCourseYellow || rec.Sector != 1 || rec.InPits {
		t.Errorf("Unexpected session state: %s", spew.Sdump(rec))
	}

	if len(rec.PaceNotes) != 2 || rec.PaceNotes[1].Callout != CalloutHairpinRight || !approx(rec.PaceNotes[0].Distance, 0.25) {
		t.Errorf("Unexpected pace notes: %s", spew.Sdump(rec.PaceNotes))
	}

	if rec.VehicleName != "GT3 Test" || rec.TrackName != "Spa" {
		t.Errorf("Unexpected names: %q %q", rec.VehicleName, rec.TrackName)
	}
}

func TestDecodeGoldenV2(t *testing.T) {
	rec, err := Decode(goldenV2(2, layoutV2Size).frame())

	if err != nil {
		t.Fatal(err)
	}

	if rec.Version != 2 || rec.Sequence != 7 {
		t.Errorf("Expected version 2 sequence 7, got %d %d", rec.Version, rec.Sequence)
	}

	checkV2Fields(t, rec)

	for _, brake := range rec.Brakes {
		checkUnknown(t, "brake thickness", brake.Thickness)
	}
}

func TestDecodeGoldenV3(t *testing.T) {
	g := goldenV2(3, layoutV3Size)

	for i := 0; i < 4; i++ {
		g.f64(624+i*8, 0.03)
		g.f64(656+i*8, 773.15)
	}

	g.f64(688, 0.65)
	g.u8(696, uint8(MotorRegeneration))

	rec, err := Decode(g.frame())

	if err != nil {
		t.Fatal(err)
	}

	checkV2Fields(t, rec)

	for _, brake := range rec.Brakes {
		checkFloat(t, "brake thickness", brake.Thickness, 30)
		checkFloat(t, "brake temp", brake.Temp, 500)
	}

	checkFloat(t, "battery", rec.BatteryCharge, 0.65)

	if rec.MotorState != MotorRegeneration {
		t.Errorf("Expected regeneration, got %d", rec.MotorState)
	}
}
