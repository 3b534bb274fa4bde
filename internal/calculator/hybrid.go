package calculator

import (
	"justapengu.in/pedal/internal/snapshot"
	"justapengu.in/pedal/internal/telemetry"
)

// batteryUsage is the battery charge drained (or regenerated) on the current
// lap, or on the last full lap, in percent.
type batteryUsage struct {
	regen   bool
	lastLap bool

	cursor cursor
	total  lapTotal

	prevCharge float64
}

func newBatteryUsage(regen, lastLap bool) *batteryUsage {
	return &batteryUsage{
		regen:      regen,
		lastLap:    lastLap,
		total:      newLapTotal(),
		prevCharge: telemetry.Unknown,
	}
}

func (c *batteryUsage) Name() string {
	name := "battery_drain"

	if c.regen {
		name = "battery_regen"
	}

	if c.lastLap {
		name += "_last"
	}

	return name
}

func (c *batteryUsage) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	records, reset := c.cursor.advance(snap)

	if reset {
		c.total.reset()
		c.prevCharge = telemetry.Unknown
	}

	for _, rec := range records {
		c.total.observe(rec)

		charge := rec.BatteryCharge

		if !telemetry.Known(charge) || rec.MotorState == telemetry.MotorUnavailable {
			continue
		}

		if telemetry.Known(c.prevCharge) {
			change := charge - c.prevCharge

			if c.regen && change > 0 {
				c.total.current += change
			} else if !c.regen && change < 0 {
				c.total.current -= change
			}
		}

		c.prevCharge = charge
	}

	latest := snap.Latest

	if c.lastLap {
		if !telemetry.Known(c.total.last) {
			return invalid(c.Name(), latest, ReasonInsufficientData)
		}

		return valid(c.Name(), latest, Number(c.total.last*100))
	}

	if !telemetry.Known(latest.BatteryCharge) || latest.MotorState == telemetry.MotorUnavailable {
		return invalid(c.Name(), latest, ReasonOutOfRange)
	}

	return valid(c.Name(), latest, Number(c.total.current*100))
}

// motorActiveTime is the time in seconds the electric motor has spent driving
// the car on the current lap.
type motorActiveTime struct {
	cursor cursor
	total  lapTotal
	prev   *telemetry.Record
}

func newMotorActiveTime() *motorActiveTime {
	return &motorActiveTime{total: newLapTotal()}
}

func (c *motorActiveTime) Name() string {
	return "motor_active_time"
}

func (c *motorActiveTime) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	records, reset := c.cursor.advance(snap)

	if reset {
		c.total.reset()
		c.prev = nil
	}

	for _, rec := range records {
		c.total.observe(rec)

		prev := c.prev
		c.prev = rec

		if prev == nil || prev.MotorState != telemetry.MotorPropulsion {
			continue
		}

		if dt := rec.ElapsedTime - prev.ElapsedTime; dt > 0 {
			c.total.current += dt
		}
	}

	if snap.Latest.MotorState == telemetry.MotorUnavailable {
		return invalid(c.Name(), snap.Latest, ReasonOutOfRange)
	}

	return valid(c.Name(), snap.Latest, Number(c.total.current))
}
