package comm

import (
	"io"
	"sync"

	"github.com/robotalks/tmc.go/pkg/l1/report"
)

// PacketSink publishes each report as one packet.
type PacketSink struct {
	Writer PacketWriter

	lock sync.Mutex
}

// NewPacketSink creates a PacketSink.
func NewPacketSink(w PacketWriter) *PacketSink {
	return &PacketSink{Writer: w}
}

// Publish implements report.Sink.
func (s *PacketSink) Publish(r *report.Report) error {
	pkt, err := r.Encode()
	if err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.Writer.WritePacket(pkt)
}

// Close implements io.Closer.
func (s *PacketSink) Close() error {
	if closer, ok := s.Writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ReadReport reads one packet and decodes it as a report.
func ReadReport(r PacketReader) (*report.Report, error) {
	pkt, err := r.ReadPacket()
	if err != nil {
		return nil, err
	}
	return report.Decode(pkt)
}
