package telemetry

import (
	"math"
	"time"
)

// Unknown marks a field the simulator did not report or reported as a sentinel.
var Unknown = math.NaN()

// Known reports whether v carries a real value.
func Known(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type Vector3 struct {
	X float64
	Y float64
	Z float64
}

func (a Vector3) DistanceTo(b Vector3) float64 {
	x := math.Pow(b.X-a.X, 2)
	y := math.Pow(b.Y-a.Y, 2)
	z := math.Pow(b.Z-a.Z, 2)

	return math.Sqrt(x + y + z)
}

func (a Vector3) Length() float64 {
	return a.DistanceTo(Vector3{})
}

type Corner int

const (
	FrontLeft Corner = iota
	FrontRight
	RearLeft
	RearRight
)

var Corners = [4]Corner{FrontLeft, FrontRight, RearLeft, RearRight}

func (c Corner) String() string {
	switch c {
	case FrontLeft:
		return "fl"
	case FrontRight:
		return "fr"
	case RearLeft:
		return "rl"
	case RearRight:
		return "rr"
	default:
		return "unknown"
	}
}

type SessionType uint8

const (
	SessionTypeTestDay SessionType = iota
	SessionTypePractice
	SessionTypeQualifying
	SessionTypeWarmup
	SessionTypeRace
)

func (s SessionType) String() string {
	switch s {
	case SessionTypeTestDay:
		return "Test Day"
	case SessionTypePractice:
		return "Practice"
	case SessionTypeQualifying:
		return "Qualifying"
	case SessionTypeWarmup:
		return "Warmup"
	case SessionTypeRace:
		return "Race"
	default:
		return "Unknown Session"
	}
}

type SessionPhase uint8

const (
	PhaseGarage SessionPhase = iota
	PhaseWarmup
	PhaseGridWalk
	PhaseFormation
	PhaseCountdown
	PhaseGreenFlag
	PhaseFullCourseYellow
	PhaseStopped
	PhaseOver
	PhasePaused
)

var sessionPhaseNames = map[SessionPhase]string{
	PhaseGarage:           "Garage",
	PhaseWarmup:           "Warmup",
	PhaseGridWalk:         "Grid Walk",
	PhaseFormation:        "Formation Lap",
	PhaseCountdown:        "Countdown",
	PhaseGreenFlag:        "Green Flag",
	PhaseFullCourseYellow: "Full Course Yellow",
	PhaseStopped:          "Session Stopped",
	PhaseOver:             "Session Over",
	PhasePaused:           "Paused",
}

func (p SessionPhase) String() string {
	if name, ok := sessionPhaseNames[p]; ok {
		return name
	}

	return "Unknown Phase"
}

type MotorState uint8

const (
	MotorUnavailable MotorState = iota
	MotorInactive
	MotorPropulsion
	MotorRegeneration
)

// Tyre temperatures are Celsius, pressure kPa, wear is the fraction of tread
// remaining.
type Tyre struct {
	SurfaceTemp [3]float64
	InnerTemp   [3]float64
	Pressure    float64
	Wear        float64
}

// AverageSurfaceTemp is the mean of the known surface readings.
func (t Tyre) AverageSurfaceTemp() float64 {
	var sum float64
	var n int

	for _, temp := range t.SurfaceTemp {
		if Known(temp) {
			sum += temp
			n++
		}
	}

	if n == 0 {
		return Unknown
	}

	return sum / float64(n)
}

// Brake thickness is millimetres, temperature Celsius.
type Brake struct {
	Thickness float64
	Temp      float64
}

type PaceNote struct {
	Distance float64
	Callout  Callout
}

// Record is one decoded telemetry frame. Distances are metres, speeds m/s,
// times seconds, fuel litres. A Record is never modified after Decode returns.
type Record struct {
	Version    uint16
	Sequence   uint32
	CapturedAt time.Time

	VehicleName string
	TrackName   string
	SessionType SessionType
	Phase       SessionPhase

	ElapsedTime  float64
	TrackLength  float64
	LapNumber    int32
	LapDistance  float64
	LapStartTime float64
	LastLapTime  float64
	BestLapTime  float64

	// Sector is zero based. Sector times are cumulative from the lap start.
	Sector         int8
	CurrentSector1 float64
	CurrentSector2 float64
	LastSector1    float64
	LastSector2    float64
	BestSector1    float64
	BestSector2    float64

	Position Vector3
	Velocity Vector3
	Speed    float64

	Fuel         float64
	FuelCapacity float64
	InPits       bool

	Tyres  [4]Tyre
	Brakes [4]Brake

	BatteryCharge float64
	MotorState    MotorState

	PaceNotes []PaceNote
}

// LapFraction is the lap distance as a fraction of the track length.
func (r *Record) LapFraction() float64 {
	if !Known(r.LapDistance) || !Known(r.TrackLength) || r.TrackLength <= 0 {
		return Unknown
	}

	return r.LapDistance / r.TrackLength
}

// LapElapsed is the time spent on the current lap.
func (r *Record) LapElapsed() float64 {
	if !Known(r.ElapsedTime) || !Known(r.LapStartTime) {
		return Unknown
	}

	return r.ElapsedTime - r.LapStartTime
}

func newRecord() *Record {
	r := &Record{
		ElapsedTime:    Unknown,
		TrackLength:    Unknown,
		LapDistance:    Unknown,
		LapStartTime:   Unknown,
		LastLapTime:    Unknown,
		BestLapTime:    Unknown,
		CurrentSector1: Unknown,
		CurrentSector2: Unknown,
		LastSector1:    Unknown,
		LastSector2:    Unknown,
		BestSector1:    Unknown,
		BestSector2:    Unknown,
		Speed:          Unknown,
		Fuel:           Unknown,
		FuelCapacity:   Unknown,
		BatteryCharge:  Unknown,
	}

	for i := range r.Tyres {
		r.Tyres[i] = Tyre{
			SurfaceTemp: [3]float64{Unknown, Unknown, Unknown},
			InnerTemp:   [3]float64{Unknown, Unknown, Unknown},
			Pressure:    Unknown,
			Wear:        Unknown,
		}

		r.Brakes[i] = Brake{Thickness: Unknown, Temp: Unknown}
	}

	return r
}
