package telemetry

import "unsafe"

// HeaderSize is the fixed header at the start of every region:
//
//	0  uint32 updateBegin  sequence counter, written before the payload
//	4  uint32 updateEnd    copy of updateBegin, written after the payload (v2+)
//	8  uint16 version
//	10 uint16 flags        reserved
//	12 uint32 payloadSize  bytes following the header
const HeaderSize = 16

type header struct {
	UpdateBegin uint32
	UpdateEnd   uint32
	Version     uint16
	Flags       uint16
	PayloadSize uint32
}

var (
	_ [HeaderSize - unsafe.Sizeof(header{})]byte
	_ [unsafe.Sizeof(header{}) - HeaderSize]byte
)

// format describes one supported payload layout.
type format struct {
	version uint16
	size    int
	// mirrored layouts repeat the sequence counter at offset 4 so a copy taken
	// mid-write can be detected.
	mirrored bool

	decode func(p *Packet, rec *Record) error
	encode func(p *Packet, rec *Record)
}

var formats = map[uint16]format{
	1: {version: 1, size: layoutV1Size, decode: decodeV1, encode: encodeV1},
	2: {version: 2, size: layoutV2Size, mirrored: true, decode: decodeV2, encode: encodeV2},
	3: {version: 3, size: layoutV3Size, mirrored: true, decode: decodeV3, encode: encodeV3},
}

// Versions lists the supported format versions in ascending order.
func Versions() []uint16 {
	return []uint16{1, 2, 3}
}

// PayloadSize is the fixed payload length of a version, or 0 if unsupported.
func PayloadSize(version uint16) int {
	return formats[version].size
}
