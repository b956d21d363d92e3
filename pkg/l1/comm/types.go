// Package comm moves encoded reports over packet oriented transports.
package comm

import "io"

// PacketReader reads packets in bytes, one encoded report per packet.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes. A packet is written whole or not at
// all, so a report never spans two packets.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter is a connection to one report consumer. Close releases
// the connection and unblocks a pending ReadPacket.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
	io.Closer
}
