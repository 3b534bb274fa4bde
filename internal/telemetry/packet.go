package telemetry

import (
	"bytes"
	"encoding/binary"
)

// Packet is a little-endian reader/writer over a bounded byte slice. Reads never
// go past the slice it was created with; the first failed read is kept in Err
// and every later read is a no-op.
type Packet struct {
	buf *bytes.Buffer
	err error
}

func NewPacket(b []byte) *Packet {
	return &Packet{
		buf: bytes.NewBuffer(b),
	}
}

func (p *Packet) Write(val interface{}) {
	if p.err != nil {
		return
	}

	p.err = binary.Write(p.buf, binary.LittleEndian, val)
}

func (p *Packet) Read(out interface{}) {
	if p.err != nil {
		return
	}

	p.err = binary.Read(p.buf, binary.LittleEndian, out)
}

func (p *Packet) ReadUint16() uint16 {
	var i uint16

	p.Read(&i)

	return i
}

func (p *Packet) ReadUint32() uint32 {
	var i uint32

	p.Read(&i)

	return i
}

// Len is the number of unread bytes.
func (p *Packet) Len() int {
	return p.buf.Len()
}

func (p *Packet) Bytes() []byte {
	return p.buf.Bytes()
}

func (p *Packet) Err() error {
	return p.err
}
