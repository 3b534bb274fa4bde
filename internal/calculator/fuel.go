package calculator

import (
	"justapengu.in/pedal/internal/snapshot"
	"justapengu.in/pedal/internal/telemetry"
)

// minLapProgress is the lap fraction needed before a per-lap extrapolation is
// trusted.
const minLapProgress = 0.05

// fuelRate is the mean fuel drop per committed sample across the history
// window. Samples where the car did not move or was refuelled are skipped.
type fuelRate struct{}

func (fuelRate) Name() string {
	return "fuel_rate"
}

func (c fuelRate) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	var used float64
	var samples int

	for i := 1; i < len(snap.History); i++ {
		prev, cur := snap.History[i-1], snap.History[i]

		if !telemetry.Known(prev.Fuel) || !telemetry.Known(cur.Fuel) || cur.Fuel > prev.Fuel || !moved(prev, cur) {
			continue
		}

		used += prev.Fuel - cur.Fuel
		samples++
	}

	if samples == 0 {
		return invalid(c.Name(), snap.Latest, ReasonInsufficientData)
	}

	return number(c.Name(), snap.Latest, used/float64(samples))
}

func moved(prev, cur *telemetry.Record) bool {
	if prev.LapNumber != cur.LapNumber {
		return true
	}

	return telemetry.Known(prev.LapDistance) && telemetry.Known(cur.LapDistance) && prev.LapDistance != cur.LapDistance
}

// fuelPerLap extrapolates the fuel used since the lap (or measurement) began
// to a full lap.
type fuelPerLap struct {
	cursor cursor
	laps   lapTracker

	start    *telemetry.Record
	estimate float64
}

func newFuelPerLap() *fuelPerLap {
	return &fuelPerLap{estimate: telemetry.Unknown}
}

func (c *fuelPerLap) Name() string {
	return "fuel_per_lap"
}

func (c *fuelPerLap) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	records, reset := c.cursor.advance(snap)

	if reset {
		c.laps.reset()
		c.start = nil
		c.estimate = telemetry.Unknown
	}

	for _, rec := range records {
		newLap := c.laps.observe(rec)

		if !telemetry.Known(rec.Fuel) || !telemetry.Known(rec.LapFraction()) {
			continue
		}

		if newLap || c.start == nil || rec.Fuel > c.start.Fuel {
			c.start = rec
			continue
		}

		progress := rec.LapFraction() - c.start.LapFraction()

		if progress >= minLapProgress {
			c.estimate = (c.start.Fuel - rec.Fuel) / progress
		}
	}

	if !telemetry.Known(c.estimate) {
		return invalid(c.Name(), snap.Latest, ReasonInsufficientData)
	}

	return number(c.Name(), snap.Latest, c.estimate)
}

// lapFuel measures the fuel used over complete laps, line to line. Laps with a
// refuel are discarded.
type lapFuel struct {
	cursor cursor
	laps   lapTracker

	start     float64
	refuelled bool
	last      float64
}

func newLapFuel() lapFuel {
	return lapFuel{start: telemetry.Unknown, last: telemetry.Unknown}
}

func (f *lapFuel) update(snap *snapshot.Snapshot) {
	records, reset := f.cursor.advance(snap)

	if reset {
		cur := f.cursor
		*f = newLapFuel()
		f.cursor = cur
	}

	for _, rec := range records {
		prev := f.laps.prev

		if f.laps.observe(rec) {
			if telemetry.Known(f.start) && telemetry.Known(rec.Fuel) && !f.refuelled && f.start >= rec.Fuel {
				f.last = f.start - rec.Fuel
			}

			f.start = rec.Fuel
			f.refuelled = false

			continue
		}

		if prev != nil && telemetry.Known(prev.Fuel) && telemetry.Known(rec.Fuel) && rec.Fuel > prev.Fuel {
			f.refuelled = true
		}
	}
}

type fuelLastLap struct {
	fuel lapFuel
}

func newFuelLastLap() *fuelLastLap {
	return &fuelLastLap{fuel: newLapFuel()}
}

func (c *fuelLastLap) Name() string {
	return "fuel_last_lap"
}

func (c *fuelLastLap) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	c.fuel.update(snap)

	if !telemetry.Known(c.fuel.last) {
		return invalid(c.Name(), snap.Latest, ReasonInsufficientData)
	}

	return number(c.Name(), snap.Latest, c.fuel.last)
}

// fuelLapsRemaining divides the fuel in the tank by the last full lap's usage.
type fuelLapsRemaining struct {
	fuel lapFuel
}

func newFuelLapsRemaining() *fuelLapsRemaining {
	return &fuelLapsRemaining{fuel: newLapFuel()}
}

func (c *fuelLapsRemaining) Name() string {
	return "fuel_laps_remaining"
}

func (c *fuelLapsRemaining) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	c.fuel.update(snap)

	switch {
	case !telemetry.Known(c.fuel.last):
		return invalid(c.Name(), snap.Latest, ReasonInsufficientData)
	case c.fuel.last <= 0 || !telemetry.Known(snap.Latest.Fuel):
		return invalid(c.Name(), snap.Latest, ReasonOutOfRange)
	}

	return number(c.Name(), snap.Latest, snap.Latest.Fuel/c.fuel.last)
}
