package calculator

import (
	"time"

	"justapengu.in/pedal/internal/snapshot"
	"justapengu.in/pedal/internal/telemetry"
)

// minCueSpeed is the speed (m/s) below which no pace note is called.
const minCueSpeed = 1

// paceNote calls out the nearest pace note the car will reach within the
// lookahead time at its current speed. No note in range is a valid empty
// cue.
type paceNote struct {
	lookahead time.Duration
}

func (paceNote) Name() string {
	return "pace_note"
}

func (c paceNote) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	latest := snap.Latest

	if latest.Version < 2 || !telemetry.Known(latest.LapDistance) {
		return invalid(c.Name(), latest, ReasonOutOfRange)
	}

	if !telemetry.Known(latest.Speed) || latest.Speed < minCueSpeed {
		return valid(c.Name(), latest, Text(""))
	}

	horizon := latest.Speed * c.lookahead.Seconds()
	nearest := telemetry.Unknown
	var callout telemetry.Callout

	for _, note := range latest.PaceNotes {
		if !telemetry.Known(note.Distance) || note.Callout == telemetry.CalloutNone {
			continue
		}

		ahead := note.Distance - latest.LapDistance

		if ahead < 0 && telemetry.Known(latest.TrackLength) {
			ahead += latest.TrackLength
		}

		if ahead < 0 || ahead > horizon {
			continue
		}

		if !telemetry.Known(nearest) || ahead < nearest {
			nearest = ahead
			callout = note.Callout
		}
	}

	return valid(c.Name(), latest, Text(callout.String()))
}

type sessionPhase struct{}

func (sessionPhase) Name() string {
	return "session_phase"
}

func (c sessionPhase) Update(snap *snapshot.Snapshot) Result {
	if res, ok := unavailable(c.Name(), snap); ok {
		return res
	}

	phase := snap.Latest.Phase

	return valid(c.Name(), snap.Latest, Enum(int(phase), phase.String()))
}
