// Package stream frames packets on a byte stream. Each packet is prefixed by
// its length as a varint, the delimited format of protobuf streams.
package stream

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"github.com/golang/protobuf/proto"
)

// MaxPacketSize bounds the length accepted by ReadPacket.
const MaxPacketSize = 1 << 16

// ErrPacketTooLarge indicates a length prefix above MaxPacketSize.
var ErrPacketTooLarge = errors.New("packet too large")

// ReadWriter implements PacketReadWriter.
type ReadWriter struct {
	r *bufio.Reader
	w io.Writer
	c io.Closer
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	rw := &ReadWriter{r: bufio.NewReader(s), w: s}
	if c, ok := s.(io.Closer); ok {
		rw.c = c
	}
	return rw
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	size, err := binary.ReadUvarint(p.r)
	if err != nil {
		return nil, err
	}
	if size > MaxPacketSize {
		return nil, ErrPacketTooLarge
	}
	pkt := make([]byte, size)
	_, err = io.ReadFull(p.r, pkt)
	return pkt, err
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > MaxPacketSize {
		return ErrPacketTooLarge
	}
	buf := append(proto.EncodeVarint(uint64(len(pkt))), pkt...)
	_, err := p.w.Write(buf)
	return err
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	if p.c != nil {
		return p.c.Close()
	}
	return nil
}
