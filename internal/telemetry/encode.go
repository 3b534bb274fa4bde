package telemetry

// Encode produces a complete frame for rec.Version with both update counters
// set to seq. Version 1 frames leave updateEnd at zero.
func Encode(rec *Record, seq uint32) ([]byte, error) {
	f, ok := formats[rec.Version]

	if !ok {
		return nil, versionMismatch("unsupported format version %d", rec.Version)
	}

	h := header{
		UpdateBegin: seq,
		Version:     f.version,
		PayloadSize: uint32(f.size),
	}

	if f.mirrored {
		h.UpdateEnd = seq
	}

	p := NewPacket(make([]byte, 0, HeaderSize+f.size))
	p.Write(&h)
	f.encode(p, rec)

	if err := p.Err(); err != nil {
		return nil, err
	}

	return p.Bytes(), nil
}
