package telemetry

import (
	"justapengu.in/pedal/internal/shm"
)

// Decode interprets a raw frame. It only ever reads frame.Data[:len(frame.Data)]
// and, within that, only the payload length the header declares. Decode keeps
// no state between calls.
//
// Versions 2 and 3 detect torn copies through the mirrored counter. A copy that
// starts before the producer bumps updateBegin and finishes after it writes
// updateEnd still passes, so tearing is reduced, not ruled out. Version 1 has no
// self-check at all.
func Decode(frame shm.RawFrame) (*Record, error) {
	data := frame.Data

	if len(data) < HeaderSize {
		return nil, truncated("frame is %d bytes, header needs %d", len(data), HeaderSize)
	}

	var h header

	p := NewPacket(data[:HeaderSize])
	p.Read(&h)

	if err := p.Err(); err != nil {
		return nil, truncated("header: %v", err)
	}

	f, ok := formats[h.Version]

	if !ok {
		return nil, versionMismatch("unsupported format version %d", h.Version)
	}

	available := len(data) - HeaderSize

	if uint64(h.PayloadSize) > uint64(available) {
		return nil, truncated("header declares %d payload bytes, frame has %d", h.PayloadSize, available)
	}

	if int(h.PayloadSize) < f.size {
		return nil, versionMismatch("version %d payload needs %d bytes, header declares %d", h.Version, f.size, h.PayloadSize)
	}

	if f.mirrored && h.UpdateBegin != h.UpdateEnd {
		return nil, inconsistent("update counters differ: begin %d, end %d", h.UpdateBegin, h.UpdateEnd)
	}

	rec := newRecord()
	rec.Version = h.Version
	rec.Sequence = h.UpdateBegin
	rec.CapturedAt = frame.CapturedAt

	payload := data[HeaderSize : HeaderSize+int(h.PayloadSize)]

	if err := f.decode(NewPacket(payload), rec); err != nil {
		return nil, err
	}

	return rec, nil
}
