package calculator

import (
	"sort"

	"justapengu.in/pedal/internal/snapshot"
	"justapengu.in/pedal/internal/telemetry"
)

// lapsCompleted counts line crossings since the store was last reset.
type lapsCompleted struct {
	cursor cursor
	laps   lapTracker
	count  int
}

func (c *lapsCompleted) Name() string {
	return "laps_completed"
}

func (c *lapsCompleted) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	records, reset := c.cursor.advance(snap)

	if reset {
		c.laps.reset()
		c.count = 0
	}

	for _, rec := range records {
		if c.laps.observe(rec) {
			c.count++
		}
	}

	if c.count == 0 {
		return invalid(c.Name(), snap.Latest, ReasonInsufficientData)
	}

	return valid(c.Name(), snap.Latest, Number(float64(c.count)))
}

type lastLapTime struct{}

func (lastLapTime) Name() string {
	return "last_lap_time"
}

func (c lastLapTime) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	return number(c.Name(), snap.Latest, snap.Latest.LastLapTime)
}

type lapSample struct {
	distance float64
	elapsed  float64
}

// deltaBest compares the time into the current lap against the fastest lap
// completed since the last reset, at the same lap distance.
type deltaBest struct {
	cursor cursor
	laps   lapTracker

	// lineTime is the elapsed session time when the line was last crossed,
	// Unknown until the first crossing.
	lineTime float64
	current  []lapSample
	best     []lapSample
	bestTime float64
}

func newDeltaBest() *deltaBest {
	return &deltaBest{lineTime: telemetry.Unknown, bestTime: telemetry.Unknown}
}

func (c *deltaBest) Name() string {
	return "delta_best"
}

func (c *deltaBest) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	records, reset := c.cursor.advance(snap)

	if reset {
		c.laps.reset()
		c.lineTime = telemetry.Unknown
		c.current = nil
		c.best = nil
		c.bestTime = telemetry.Unknown
	}

	for _, rec := range records {
		c.observe(rec)
	}

	latest := snap.Latest

	if c.best == nil || !telemetry.Known(c.lineTime) {
		return invalid(c.Name(), latest, ReasonInsufficientData)
	}

	if !telemetry.Known(latest.LapDistance) || !telemetry.Known(latest.ElapsedTime) {
		return invalid(c.Name(), latest, ReasonOutOfRange)
	}

	reference := interpolate(c.best, latest.LapDistance)

	return number(c.Name(), latest, (latest.ElapsedTime-c.lineTime)-reference)
}

func (c *deltaBest) observe(rec *telemetry.Record) {
	prev := c.laps.prev

	if c.laps.observe(rec) {
		if telemetry.Known(c.lineTime) && telemetry.Known(rec.ElapsedTime) && len(c.current) >= 2 {
			lapTime := rec.ElapsedTime - c.lineTime

			if lapTime > 0 && (!telemetry.Known(c.bestTime) || lapTime < c.bestTime) {
				if telemetry.Known(prev.TrackLength) && prev.TrackLength > c.current[len(c.current)-1].distance {
					c.current = append(c.current, lapSample{distance: prev.TrackLength, elapsed: lapTime})
				}

				c.best = c.current
				c.bestTime = lapTime
			}
		}

		c.lineTime = rec.ElapsedTime
		c.current = make([]lapSample, 0, len(c.best))
	}

	if !telemetry.Known(c.lineTime) || !telemetry.Known(rec.LapDistance) || !telemetry.Known(rec.ElapsedTime) {
		return
	}

	sample := lapSample{distance: rec.LapDistance, elapsed: rec.ElapsedTime - c.lineTime}

	if n := len(c.current); n == 0 || sample.distance > c.current[n-1].distance {
		c.current = append(c.current, sample)
	}
}

// interpolate returns the elapsed lap time at distance along a reference lap.
func interpolate(samples []lapSample, distance float64) float64 {
	i := sort.Search(len(samples), func(i int) bool {
		return samples[i].distance >= distance
	})

	switch {
	case i == len(samples):
		return samples[len(samples)-1].elapsed
	case i == 0:
		if samples[0].distance <= 0 {
			return samples[0].elapsed
		}

		return samples[0].elapsed * distance / samples[0].distance
	}

	a, b := samples[i-1], samples[i]

	return a.elapsed + (b.elapsed-a.elapsed)*(distance-a.distance)/(b.distance-a.distance)
}

// sectorDelta is the last completed sector time against the best time for
// that sector since the last reset.
type sectorDelta struct {
	cursor cursor
	prev   *telemetry.Record

	best  [3]float64
	delta float64
}

func newSectorDelta() *sectorDelta {
	c := &sectorDelta{}
	c.clear()

	return c
}

func (c *sectorDelta) clear() {
	c.prev = nil
	c.best = [3]float64{telemetry.Unknown, telemetry.Unknown, telemetry.Unknown}
	c.delta = telemetry.Unknown
}

func (c *sectorDelta) Name() string {
	return "sector_delta"
}

func (c *sectorDelta) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	records, reset := c.cursor.advance(snap)

	if reset {
		c.clear()
	}

	for _, rec := range records {
		prev := c.prev
		c.prev = rec

		if prev == nil || rec.Sector == prev.Sector || prev.Sector < 0 || prev.Sector > 2 {
			continue
		}

		completed := prev.Sector
		sectorTime := completedSectorTime(completed, rec)

		if !telemetry.Known(sectorTime) || sectorTime <= 0 {
			continue
		}

		best := c.best[completed]

		if telemetry.Known(best) {
			c.delta = sectorTime - best
		}

		if !telemetry.Known(best) || sectorTime < best {
			c.best[completed] = sectorTime
		}
	}

	if !telemetry.Known(c.delta) {
		return invalid(c.Name(), snap.Latest, ReasonInsufficientData)
	}

	return number(c.Name(), snap.Latest, c.delta)
}

// completedSectorTime reads the time of the sector just left from the first
// record of the next sector. Sector times are cumulative from the line.
func completedSectorTime(sector int8, rec *telemetry.Record) float64 {
	switch sector {
	case 0:
		return rec.CurrentSector1
	case 1:
		return rec.CurrentSector2 - rec.CurrentSector1
	default:
		return rec.LastLapTime - rec.LastSector2
	}
}
