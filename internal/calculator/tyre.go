package calculator

import (
	"fmt"

	"justapengu.in/pedal/internal/snapshot"
	"justapengu.in/pedal/internal/telemetry"
)

// tyreWear is the tread worn on the current lap, or on the last full lap, in
// percent. Wear only ever accumulates drops, so a tyre change mid-lap does not
// produce a negative value.
type tyreWear struct {
	corner  telemetry.Corner
	lastLap bool

	cursor cursor
	total  lapTotal

	prevWear float64
}

func newTyreWear(corner telemetry.Corner, lastLap bool) *tyreWear {
	return &tyreWear{
		corner:   corner,
		lastLap:  lastLap,
		total:    newLapTotal(),
		prevWear: telemetry.Unknown,
	}
}

func (c *tyreWear) Name() string {
	if c.lastLap {
		return fmt.Sprintf("tyre_wear_last_%s", c.corner)
	}

	return fmt.Sprintf("tyre_wear_%s", c.corner)
}

func (c *tyreWear) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	records, reset := c.cursor.advance(snap)

	if reset {
		c.total.reset()
		c.prevWear = telemetry.Unknown
	}

	for _, rec := range records {
		c.total.observe(rec)

		wear := rec.Tyres[c.corner].Wear

		if !telemetry.Known(wear) {
			continue
		}

		if telemetry.Known(c.prevWear) && c.prevWear > wear {
			c.total.current += c.prevWear - wear
		}

		c.prevWear = wear
	}

	if c.lastLap {
		if !telemetry.Known(c.total.last) {
			return invalid(c.Name(), snap.Latest, ReasonInsufficientData)
		}

		return valid(c.Name(), snap.Latest, Number(c.total.last*100))
	}

	if !telemetry.Known(snap.Latest.Tyres[c.corner].Wear) {
		return invalid(c.Name(), snap.Latest, ReasonOutOfRange)
	}

	return valid(c.Name(), snap.Latest, Number(c.total.current*100))
}

// tyreTemp is the mean surface temperature of one tyre in Celsius.
type tyreTemp struct {
	corner telemetry.Corner
}

func (c tyreTemp) Name() string {
	return fmt.Sprintf("tyre_temp_%s", c.corner)
}

func (c tyreTemp) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	return number(c.Name(), snap.Latest, snap.Latest.Tyres[c.corner].AverageSurfaceTemp())
}

type brakeMetric uint8

const (
	// brakeRemaining is the thickness left as a percentage of the thickest
	// reading seen since the last reset.
	brakeRemaining brakeMetric = iota
	// brakeLapWear is the percentage of that maximum worn on the current lap.
	brakeLapWear
	// brakeLastLapWear is the percentage worn on the last full lap.
	brakeLastLapWear
)

type brakeWear struct {
	corner telemetry.Corner
	metric brakeMetric

	cursor  cursor
	total   lapTotal
	maximum float64
	prev    float64
}

func newBrakeWear(corner telemetry.Corner, metric brakeMetric) *brakeWear {
	return &brakeWear{
		corner:  corner,
		metric:  metric,
		total:   newLapTotal(),
		maximum: telemetry.Unknown,
		prev:    telemetry.Unknown,
	}
}

func (c *brakeWear) Name() string {
	switch c.metric {
	case brakeLapWear:
		return fmt.Sprintf("brake_wear_lap_%s", c.corner)
	case brakeLastLapWear:
		return fmt.Sprintf("brake_wear_last_%s", c.corner)
	default:
		return fmt.Sprintf("brake_wear_%s", c.corner)
	}
}

func (c *brakeWear) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	records, reset := c.cursor.advance(snap)

	if reset {
		c.total.reset()
		c.maximum = telemetry.Unknown
		c.prev = telemetry.Unknown
	}

	for _, rec := range records {
		c.total.observe(rec)

		thickness := rec.Brakes[c.corner].Thickness

		if !telemetry.Known(thickness) {
			continue
		}

		if !telemetry.Known(c.maximum) || thickness > c.maximum {
			c.maximum = thickness
		}

		if c.maximum <= 0 {
			continue
		}

		remaining := thickness / c.maximum * 100

		if telemetry.Known(c.prev) && c.prev > remaining {
			c.total.current += c.prev - remaining
		}

		c.prev = remaining
	}

	if c.metric == brakeLastLapWear {
		if !telemetry.Known(c.total.last) {
			return invalid(c.Name(), snap.Latest, ReasonInsufficientData)
		}

		return valid(c.Name(), snap.Latest, Number(c.total.last))
	}

	thickness := snap.Latest.Brakes[c.corner].Thickness

	if !telemetry.Known(thickness) || !telemetry.Known(c.maximum) || c.maximum <= 0 {
		return invalid(c.Name(), snap.Latest, ReasonOutOfRange)
	}

	if c.metric == brakeLapWear {
		return valid(c.Name(), snap.Latest, Number(c.total.current))
	}

	return valid(c.Name(), snap.Latest, Number(thickness/c.maximum*100))
}
