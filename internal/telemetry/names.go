package telemetry

import (
	"bytes"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const nameSize = 64

// decodeName reads a NUL terminated Windows-1252 string.
func decodeName(b [nameSize]byte) string {
	raw := b[:]

	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}

	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)

	if err != nil {
		return ""
	}

	return string(bytes.TrimSpace(out))
}

func encodeName(s string) [nameSize]byte {
	var out [nameSize]byte

	encoded, err := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()).Bytes([]byte(s))

	if err != nil {
		return out
	}

	// leave room for the terminator
	copy(out[:nameSize-1], encoded)

	return out
}
