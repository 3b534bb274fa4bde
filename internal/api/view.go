package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"justapengu.in/pedal/internal/shm"
	"justapengu.in/pedal/internal/snapshot"
	"justapengu.in/pedal/internal/telemetry"
)

// Number marshals unknown telemetry values as null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	if !telemetry.Known(float64(n)) {
		return []byte("null"), nil
	}

	return json.Marshal(float64(n))
}

type StateView struct {
	State   shm.SourceState `json:"state"`
	Session uuid.UUID       `json:"session"`
	Epoch   uint64          `json:"epoch"`
	Version uint64          `json:"version"`
	History int             `json:"history"`
}

type TyreView struct {
	Corner      string `json:"corner"`
	SurfaceTemp Number `json:"surface_temp"`
	Pressure    Number `json:"pressure"`
	Wear        Number `json:"wear"`
	BrakeTemp   Number `json:"brake_temp"`
	Brake       Number `json:"brake_thickness"`
}

type PaceNoteView struct {
	Distance Number `json:"distance"`
	Callout  string `json:"callout"`
}

type RecordView struct {
	Sequence   uint32    `json:"sequence"`
	Version    uint16    `json:"version"`
	CapturedAt time.Time `json:"captured_at"`

	Vehicle     string `json:"vehicle"`
	Track       string `json:"track"`
	SessionType string `json:"session_type"`
	Phase       string `json:"phase"`

	ElapsedTime Number `json:"elapsed_time"`
	LapNumber   int32  `json:"lap_number"`
	LapDistance Number `json:"lap_distance"`
	LapFraction Number `json:"lap_fraction"`
	LastLapTime Number `json:"last_lap_time"`
	BestLapTime Number `json:"best_lap_time"`
	Sector      int8   `json:"sector"`

	Speed        Number `json:"speed"`
	Fuel         Number `json:"fuel"`
	FuelCapacity Number `json:"fuel_capacity"`
	InPits       bool   `json:"in_pits"`

	Tyres         []TyreView     `json:"tyres"`
	BatteryCharge Number         `json:"battery_charge"`
	PaceNotes     []PaceNoteView `json:"pace_notes"`
}

type SnapshotView struct {
	StateView

	Latest *RecordView `json:"latest"`
}

func newStateView(snap *snapshot.Snapshot) StateView {
	return StateView{
		State:   snap.State,
		Session: snap.Session,
		Epoch:   snap.Epoch,
		Version: snap.Version,
		History: len(snap.History),
	}
}

func newRecordView(rec *telemetry.Record) *RecordView {
	if rec == nil {
		return nil
	}

	view := &RecordView{
		Sequence:      rec.Sequence,
		Version:       rec.Version,
		CapturedAt:    rec.CapturedAt,
		Vehicle:       rec.VehicleName,
		Track:         rec.TrackName,
		SessionType:   rec.SessionType.String(),
		Phase:         rec.Phase.String(),
		ElapsedTime:   Number(rec.ElapsedTime),
		LapNumber:     rec.LapNumber,
		LapDistance:   Number(rec.LapDistance),
		LapFraction:   Number(rec.LapFraction()),
		LastLapTime:   Number(rec.LastLapTime),
		BestLapTime:   Number(rec.BestLapTime),
		Sector:        rec.Sector,
		Speed:         Number(rec.Speed),
		Fuel:          Number(rec.Fuel),
		FuelCapacity:  Number(rec.FuelCapacity),
		InPits:        rec.InPits,
		BatteryCharge: Number(rec.BatteryCharge),
		PaceNotes:     make([]PaceNoteView, 0, len(rec.PaceNotes)),
	}

	for _, corner := range telemetry.Corners {
		tyre, brake := rec.Tyres[corner], rec.Brakes[corner]

		view.Tyres = append(view.Tyres, TyreView{
			Corner:      corner.String(),
			SurfaceTemp: Number(tyre.AverageSurfaceTemp()),
			Pressure:    Number(tyre.Pressure),
			Wear:        Number(tyre.Wear),
			BrakeTemp:   Number(brake.Temp),
			Brake:       Number(brake.Thickness),
		})
	}

	for _, note := range rec.PaceNotes {
		view.PaceNotes = append(view.PaceNotes, PaceNoteView{
			Distance: Number(note.Distance),
			Callout:  note.Callout.String(),
		})
	}

	return view
}
