package websocket

import "golang.org/x/net/websocket"

// ReadWriter carries one encoded report per binary websocket message.
// It implements comm.PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps a connection accepted by Hub or dialed by a monitor.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// ReadPacket receives one message. Text frames are accepted as well.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket sends pkt as one binary message.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close closes the connection, failing a pending ReadPacket.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}
