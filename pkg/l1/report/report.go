// Package report carries register values observed on the bus to other
// processes. A Report is encoded in protobuf wire format so any protobuf
// runtime can consume it with the schema:
//
//	message Report {
//	  string source   = 1;
//	  uint32 channel  = 2;
//	  uint32 device   = 3;
//	  uint32 register = 4;
//	  uint32 value    = 5;
//	  uint32 status   = 6;
//	  int64  time     = 7; // unix nanoseconds
//	}
package report

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/tmc.go/pkg/l0/tmc"
)

// Report is a register value observed on a channel.
type Report struct {
	Source   string
	Channel  int
	Device   uint8
	Register tmc.Register
	Value    uint32
	Status   tmc.Status
	Time     time.Time
}

// pbReport is the wire form of Report.
type pbReport struct {
	Source   string `protobuf:"bytes,1,opt,name=source,proto3" json:"source,omitempty"`
	Channel  uint32 `protobuf:"varint,2,opt,name=channel,proto3" json:"channel,omitempty"`
	Device   uint32 `protobuf:"varint,3,opt,name=device,proto3" json:"device,omitempty"`
	Register uint32 `protobuf:"varint,4,opt,name=register,proto3" json:"register,omitempty"`
	Value    uint32 `protobuf:"varint,5,opt,name=value,proto3" json:"value,omitempty"`
	Status   uint32 `protobuf:"varint,6,opt,name=status,proto3" json:"status,omitempty"`
	Time     int64  `protobuf:"varint,7,opt,name=time,proto3" json:"time,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *pbReport) ProtoMessage() {}

// Reset implements proto.Message.
func (m *pbReport) Reset() { *m = pbReport{} }

// String implements proto.Message.
func (m *pbReport) String() string { return proto.CompactTextString(m) }

// FromTicket creates a Report from a completed ticket.
func FromTicket(source string, channel int, t *tmc.Ticket) *Report {
	return &Report{
		Source:   source,
		Channel:  channel,
		Device:   t.Device(),
		Register: t.Register(),
		Value:    t.Value(),
		Status:   t.Status(),
		Time:     time.Now(),
	}
}

// Err returns the failure of the observed access.
func (r *Report) Err() error {
	return r.Status.Err()
}

// String implements fmt.Stringer.
func (r *Report) String() string {
	return fmt.Sprintf("%s ch%d dev%d %s=0x%08x %s", r.Source, r.Channel, r.Device, r.Register, r.Value, r.Status)
}

// Encode serializes the report. Zero fields are omitted.
func (r *Report) Encode() ([]byte, error) {
	m := &pbReport{
		Source:   r.Source,
		Channel:  uint32(r.Channel),
		Device:   uint32(r.Device),
		Register: uint32(r.Register),
		Value:    r.Value,
		Status:   uint32(r.Status),
	}
	if !r.Time.IsZero() {
		m.Time = r.Time.UnixNano()
	}
	return proto.Marshal(m)
}

// Decode parses an encoded report. Unknown fields are skipped.
func Decode(data []byte) (*Report, error) {
	var m pbReport
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	r := &Report{
		Source:   m.Source,
		Channel:  int(m.Channel),
		Device:   uint8(m.Device),
		Register: tmc.Register(m.Register),
		Value:    m.Value,
		Status:   tmc.Status(m.Status),
	}
	if m.Time != 0 {
		r.Time = time.Unix(0, m.Time)
	}
	return r, nil
}
