package main

import (
	"math"

	"justapengu.in/pedal/internal/telemetry"
)

// lapSim drives a car around a track at a constant lap time, burning fuel,
// tyres, brakes and battery at fixed rates.
type lapSim struct {
	version     uint16
	trackLength float64
	lapTime     float64

	elapsed      float64
	lapNumber    int32
	lapStart     float64
	lastLapTime  float64
	bestLapTime  float64
	sectorTimes  [2]float64
	lastSectors  [2]float64
	bestSectors  [2]float64
	fuel         float64
	fuelCapacity float64
	tyreWear     float64
	brake        float64
	battery      float64
}

const (
	fuelPerLap     = 2.8
	wearPerLap     = 0.012
	brakePerLap    = 0.15
	batteryPerLap  = 0.35
	batteryRegen   = 0.25
	startingFuel   = 90
	brakeThickness = 32
)

var paceNotes = []telemetry.PaceNote{
	{Distance: 0.08, Callout: telemetry.CalloutBrake},
	{Distance: 0.1, Callout: telemetry.CalloutHairpinRight},
	{Distance: 0.31, Callout: 3},
	{Distance: 0.45, Callout: 11},
	{Distance: 0.62, Callout: telemetry.CalloutJump},
	{Distance: 0.78, Callout: 1},
	{Distance: 0.95, Callout: telemetry.CalloutPitEntry},
}

func newLapSim(version uint16, trackLength, lapTime float64) *lapSim {
	return &lapSim{
		version:      version,
		trackLength:  trackLength,
		lapTime:      lapTime,
		lapNumber:    1,
		lastLapTime:  telemetry.Unknown,
		bestLapTime:  telemetry.Unknown,
		sectorTimes:  [2]float64{telemetry.Unknown, telemetry.Unknown},
		lastSectors:  [2]float64{telemetry.Unknown, telemetry.Unknown},
		bestSectors:  [2]float64{telemetry.Unknown, telemetry.Unknown},
		fuel:         startingFuel,
		fuelCapacity: startingFuel,
		tyreWear:     1,
		brake:        brakeThickness,
		battery:      1,
	}
}

// pace varies the lap slightly so deltas move.
func (s *lapSim) pace() float64 {
	return s.lapTime * (1 + 0.01*math.Sin(float64(s.lapNumber)))
}

// step advances the simulation by dt seconds. It reports whether a new lap
// started.
func (s *lapSim) step(dt float64) bool {
	s.elapsed += dt
	lapTime := s.pace()
	progress := (s.elapsed - s.lapStart) / lapTime

	fraction := dt / lapTime
	s.fuel = math.Max(0, s.fuel-fuelPerLap*fraction)
	s.tyreWear = math.Max(0, s.tyreWear-wearPerLap*fraction)
	s.brake = math.Max(0, s.brake-brakePerLap*fraction)

	if progress < 0.7 {
		s.battery = math.Max(0, s.battery-batteryPerLap*fraction/0.7)
	} else {
		s.battery = math.Min(1, s.battery+batteryRegen*fraction/0.3)
	}

	elapsedLap := s.elapsed - s.lapStart

	if progress >= 1.0/3 && !telemetry.Known(s.sectorTimes[0]) {
		s.sectorTimes[0] = elapsedLap
	}

	if progress >= 2.0/3 && !telemetry.Known(s.sectorTimes[1]) {
		s.sectorTimes[1] = elapsedLap
	}

	if progress < 1 {
		return false
	}

	s.lastLapTime = elapsedLap
	s.lastSectors = s.sectorTimes

	if !telemetry.Known(s.bestLapTime) || s.lastLapTime < s.bestLapTime {
		s.bestLapTime = s.lastLapTime
		s.bestSectors = s.sectorTimes
	}

	s.sectorTimes = [2]float64{telemetry.Unknown, telemetry.Unknown}
	s.lapStart = s.elapsed
	s.lapNumber++

	return true
}

func (s *lapSim) record() *telemetry.Record {
	progress := math.Min((s.elapsed-s.lapStart)/s.pace(), 0.999999)
	speed := s.trackLength / s.pace()

	sector := int8(0)

	switch {
	case telemetry.Known(s.sectorTimes[1]):
		sector = 2
	case telemetry.Known(s.sectorTimes[0]):
		sector = 1
	}

	angle := 2 * math.Pi * progress
	radius := s.trackLength / (2 * math.Pi)

	rec := &telemetry.Record{
		Version:        s.version,
		VehicleName:    "Pedal Prototype",
		TrackName:      "Circuit de Test",
		SessionType:    telemetry.SessionTypePractice,
		Phase:          telemetry.PhaseGreenFlag,
		ElapsedTime:    s.elapsed,
		TrackLength:    s.trackLength,
		LapNumber:      s.lapNumber,
		LapDistance:    progress * s.trackLength,
		LapStartTime:   s.lapStart,
		LastLapTime:    s.lastLapTime,
		BestLapTime:    s.bestLapTime,
		Sector:         sector,
		CurrentSector1: s.sectorTimes[0],
		CurrentSector2: s.sectorTimes[1],
		LastSector1:    s.lastSectors[0],
		LastSector2:    s.lastSectors[1],
		BestSector1:    s.bestSectors[0],
		BestSector2:    s.bestSectors[1],
		Position:       telemetry.Vector3{X: radius * math.Cos(angle), Z: radius * math.Sin(angle)},
		Velocity:       telemetry.Vector3{X: -speed * math.Sin(angle), Z: speed * math.Cos(angle)},
		Fuel:           s.fuel,
		FuelCapacity:   s.fuelCapacity,
		BatteryCharge:  s.battery,
		MotorState:     telemetry.MotorPropulsion,
	}

	if progress >= 0.7 {
		rec.MotorState = telemetry.MotorRegeneration
	}

	for i := range rec.Tyres {
		temp := 85 + 5*math.Sin(angle+float64(i))

		rec.Tyres[i] = telemetry.Tyre{
			SurfaceTemp: [3]float64{temp - 3, temp, temp + 2},
			InnerTemp:   [3]float64{temp + 5, temp + 7, temp + 6},
			Pressure:    172,
			Wear:        s.tyreWear,
		}

		rec.Brakes[i] = telemetry.Brake{Thickness: s.brake, Temp: 450 + 150*math.Cos(angle)}
	}

	for _, note := range paceNotes {
		rec.PaceNotes = append(rec.PaceNotes, telemetry.PaceNote{Distance: note.Distance * s.trackLength, Callout: note.Callout})
	}

	return rec
}
