package telemetry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"justapengu.in/pedal/internal/shm"
)

func sampleRecord(version uint16) *Record {
	rec := newRecord()

	rec.Version = version
	rec.VehicleName = "Hypercar Nürburgring"
	rec.TrackName = "Le Mans"
	rec.SessionType = SessionTypeRace
	rec.Phase = PhaseGreenFlag
	rec.ElapsedTime = 1800.5
	rec.TrackLength = 13626
	rec.LapNumber = 9
	rec.LapDistance = 4200
	rec.LapStartTime = 1750
	rec.LastLapTime = 215.3
	rec.BestLapTime = 212.9
	rec.Sector = 1
	rec.CurrentSector1 = 71.2
	rec.LastSector1 = 72
	rec.LastSector2 = 150
	rec.BestSector1 = 70.5
	rec.BestSector2 = 148.25
	rec.Position = Vector3{X: 100, Y: 2, Z: -300}
	rec.Velocity = Vector3{X: 60, Y: 0, Z: 80}
	rec.Speed = 100
	rec.Fuel = 61.5
	rec.FuelCapacity = 90

	for i := range rec.Tyres {
		rec.Tyres[i].SurfaceTemp = [3]float64{85, 90, 95}
		rec.Tyres[i].InnerTemp = [3]float64{95, 95, 95}
		rec.Tyres[i].Pressure = 170
		rec.Tyres[i].Wear = 0.8
		rec.Brakes[i] = Brake{Thickness: 28, Temp: 450}
	}

	rec.BatteryCharge = 0.5
	rec.MotorState = MotorPropulsion
	rec.PaceNotes = []PaceNote{{Distance: 4300, Callout: 2}, {Distance: 5100, Callout: 9}}

	return rec
}

func encodeFrame(t *testing.T, rec *Record, seq uint32) shm.RawFrame {
	t.Helper()

	b, err := Encode(rec, seq)

	if err != nil {
		t.Fatal(err)
	}

	return shm.RawFrame{Data: b, Sequence: seq, CapturedAt: time.Unix(1600000000, 0)}
}

func TestEncodeDecode(t *testing.T) {
	for _, version := range Versions() {
		version := version

		t.Run(fmt.Sprintf("version %d", version), func(t *testing.T) {
			frame := encodeFrame(t, sampleRecord(version), 1234)

			if len(frame.Data) != HeaderSize+PayloadSize(version) {
				t.Fatalf("Expected %d bytes, got %d", HeaderSize+PayloadSize(version), len(frame.Data))
			}

			rec, err := Decode(frame)

			if err != nil {
				t.Fatal(err)
			}

			if rec.Sequence != 1234 || rec.Version != version {
				t.Errorf("Expected sequence 1234 version %d, got %d %d", version, rec.Sequence, rec.Version)
			}

			checkFloat(t, "lap distance", rec.LapDistance, 4200)
			checkFloat(t, "fuel", rec.Fuel, 61.5)
			checkFloat(t, "speed", rec.Speed, 100)
			checkFloat(t, "tyre temp", rec.Tyres[RearRight].AverageSurfaceTemp(), 90)

			if rec.VehicleName != "Hypercar Nürburgring" {
				t.Errorf("Expected the vehicle name to survive windows-1252, got %q", rec.VehicleName)
			}

			if version >= 2 {
				checkFloat(t, "wear", rec.Tyres[FrontLeft].Wear, 0.8)

				if len(rec.PaceNotes) != 2 {
					t.Errorf("Expected 2 pace notes, got %s", spew.Sdump(rec.PaceNotes))
				}
			}

			if version == 3 {
				checkFloat(t, "brake thickness", rec.Brakes[FrontRight].Thickness, 28)
				checkFloat(t, "battery", rec.BatteryCharge, 0.5)
			} else {
				checkUnknown(t, "battery", rec.BatteryCharge)
			}
		})
	}
}

func TestEncodeUnsupportedVersion(t *testing.T) {
	rec := sampleRecord(9)

	if _, err := Encode(rec, 1); !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("Expected ErrVersionMismatch, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := func() []byte {
		b, err := Encode(sampleRecord(2), 10)

		if err != nil {
			t.Fatal(err)
		}

		return b
	}

	tests := []struct {
		name     string
		data     func() []byte
		expected error
	}{
		{
			name:     "empty frame",
			data:     func() []byte { return nil },
			expected: ErrTruncated,
		},
		{
			name:     "partial header",
			data:     func() []byte { return valid()[:HeaderSize-1] },
			expected: ErrTruncated,
		},
		{
			name: "unknown version",
			data: func() []byte {
				b := valid()
				binary.LittleEndian.PutUint16(b[8:], 42)
				return b
			},
			expected: ErrVersionMismatch,
		},
		{
			name: "declared payload larger than frame",
			data: func() []byte {
				b := valid()
				binary.LittleEndian.PutUint32(b[12:], uint32(len(b)))
				return b
			},
			expected: ErrTruncated,
		},
		{
			name: "declared payload at max uint32",
			data: func() []byte {
				b := valid()
				binary.LittleEndian.PutUint32(b[12:], math.MaxUint32)
				return b
			},
			expected: ErrTruncated,
		},
		{
			name: "declared payload smaller than layout",
			data: func() []byte {
				b := valid()
				binary.LittleEndian.PutUint32(b[12:], uint32(layoutV2Size-8))
				return b
			},
			expected: ErrVersionMismatch,
		},
		{
			name: "torn counters",
			data: func() []byte {
				b := valid()
				binary.LittleEndian.PutUint32(b[4:], 9)
				return b
			},
			expected: ErrInconsistent,
		},
		{
			name: "pace note count out of range",
			data: func() []byte {
				b := valid()
				b[HeaderSize+424] = MaxPaceNotes + 1
				return b
			},
			expected: ErrInconsistent,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec, err := Decode(shm.RawFrame{Data: test.data()})

			if rec != nil {
				t.Errorf("Expected no record, got %s", spew.Sdump(rec))
			}

			if !errors.Is(err, test.expected) {
				t.Errorf("Expected %v, got %v", test.expected, err)
			}
		})
	}
}

func TestDecodeV1AcceptsMismatchedCounters(t *testing.T) {
	frame := encodeFrame(t, sampleRecord(1), 77)
	binary.LittleEndian.PutUint32(frame.Data[4:], 12345)

	if _, err := Decode(frame); err != nil {
		t.Errorf("Version 1 has no self-check and should decode, got %v", err)
	}
}

func TestDecodeSentinels(t *testing.T) {
	rec := sampleRecord(2)
	frame := encodeFrame(t, rec, 5)

	putF64 := func(off int, v float64) {
		binary.LittleEndian.PutUint64(frame.Data[HeaderSize+off:], math.Float64bits(v))
	}

	putF64(32, -1)          // last lap
	putF64(144, math.NaN()) // fuel, torn float
	putF64(152, math.Inf(1))
	putF64(160, 0) // surface temp 0 K
	putF64(160+56, 1.5)

	decoded, err := Decode(frame)

	if err != nil {
		t.Fatal(err)
	}

	checkUnknown(t, "last lap", decoded.LastLapTime)
	checkUnknown(t, "fuel", decoded.Fuel)
	checkUnknown(t, "fuel capacity", decoded.FuelCapacity)
	checkUnknown(t, "surface temp", decoded.Tyres[FrontLeft].SurfaceTemp[0])
	checkFloat(t, "average of the remaining readings", decoded.Tyres[FrontLeft].AverageSurfaceTemp(), 92.5)
	checkUnknown(t, "wear above 1", decoded.Tyres[FrontLeft].Wear)
}

func TestDecodeIsPure(t *testing.T) {
	frame := encodeFrame(t, sampleRecord(3), 99)

	a, errA := Decode(frame)
	b, errB := Decode(frame)

	if errA != nil || errB != nil {
		t.Fatal(errA, errB)
	}

	if spew.Sdump(*a) != spew.Sdump(*b) {
		t.Errorf("Decoding identical bytes produced different records:\n%s\n%s", spew.Sdump(*a), spew.Sdump(*b))
	}

	if a == b {
		t.Errorf("Expected separate records")
	}
}

func TestDecodeRandomTruncations(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for _, version := range Versions() {
		full := encodeFrame(t, sampleRecord(version), 3).Data

		for i := 0; i < 500; i++ {
			n := r.Intn(len(full))

			// copy so a read past n would hit a different backing array
			data := make([]byte, n)
			copy(data, full[:n])

			rec, err := Decode(shm.RawFrame{Data: data})

			if rec != nil || !errors.Is(err, ErrTruncated) {
				t.Fatalf("version %d truncated to %d bytes: expected ErrTruncated, got %v", version, n, err)
			}
		}
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	frame := encodeFrame(t, sampleRecord(2), 3)
	frame.Data = append(frame.Data, make([]byte, 100)...)

	if _, err := Decode(frame); err != nil {
		t.Errorf("Expected trailing region bytes to be ignored, got %v", err)
	}
}

func FuzzDecode(f *testing.F) {
	for _, version := range Versions() {
		b, err := Encode(sampleRecord(version), 1)

		if err != nil {
			f.Fatal(err)
		}

		f.Add(b)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		rec, err := Decode(shm.RawFrame{Data: data})

		if (rec == nil) == (err == nil) {
			t.Fatalf("Expected exactly one of record and error, got %v and %v", rec, err)
		}

		if err != nil {
			if _, ok := KindOf(err); !ok {
				t.Fatalf("Expected a DecodeError, got %T: %v", err, err)
			}
		}
	})
}
