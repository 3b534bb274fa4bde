package main

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/sirupsen/logrus"

	"justapengu.in/pedal/internal/scheduler"
	"justapengu.in/pedal/internal/shm"
)

const statusInterval = 30 * time.Second

// reportStatus logs a summary line every statusInterval until ctx is done.
func reportStatus(ctx context.Context, query scheduler.Query, logger logrus.FieldLogger) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	state := query.SourceState()
	since := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if current := query.SourceState(); current != state {
				state = current
				since = now
			}

			logger.Info(statusLine(query, state, now.Sub(since)))
		}
	}
}

func statusLine(query scheduler.Query, state shm.SourceState, duration time.Duration) string {
	line := state.String() + " for " + durafmt.ParseShort(duration).String()

	snap := query.Current()

	if snap.Latest == nil {
		return line
	}

	line += ", " + humanize.Comma(int64(len(snap.History))) + " records in history, " +
		humanize.Comma(int64(snap.Latest.Sequence)) + " frames from the simulator"

	if snap.Latest.LapNumber > 0 {
		line += ", " + humanize.Ordinal(int(snap.Latest.LapNumber)) + " lap"
	}

	if snap.Latest.VehicleName != "" {
		line += " in " + snap.Latest.VehicleName
	}

	if snap.Latest.TrackName != "" {
		line += " at " + snap.Latest.TrackName
	}

	if result, ok := query.Metric("fuel_laps_remaining"); ok && result.Valid {
		line += ", fuel for " + humanize.FormatFloat("#.#", result.Value.Number) + " laps"
	}

	return line
}
