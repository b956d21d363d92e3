package tmc

import (
	"encoding/binary"
	"fmt"
)

const (
	// Sync is the sync nibble carried in the low bits of byte 0.
	Sync byte = 0x05
	// RegisterMask masks the 7-bit register address.
	RegisterMask byte = 0x7f
	// WriteFlag is the read/write bit of the register byte.
	WriteFlag byte = 0x80

	// ReadRequestLen is the length of a read request datagram.
	ReadRequestLen = 4
	// DataFrameLen is the length of a write or reply datagram.
	DataFrameLen = 8
)

// ReadRequest is a 4-byte read request datagram.
type ReadRequest [ReadRequestLen]byte

// DataFrame is an 8-byte datagram carrying a register value.
type DataFrame [DataFrameLen]byte

// NewReadRequest builds a read request with the checksum filled in.
func NewReadRequest(device uint8, reg Register) (r ReadRequest) {
	r[0] = Sync
	r[1] = device
	r[2] = byte(reg) & RegisterMask
	r[3] = CRC(r[:])
	return
}

// Device returns the device address.
func (r ReadRequest) Device() uint8 {
	return r[1]
}

// Register returns the register address.
func (r ReadRequest) Register() Register {
	return Register(r[2] & RegisterMask)
}

// Valid verifies the checksum.
func (r ReadRequest) Valid() bool {
	return r[0]&0x0f == Sync && r[2]&WriteFlag == 0 && CRC(r[:]) == r[3]
}

// NewWriteFrame builds a write datagram with the checksum filled in.
func NewWriteFrame(device uint8, reg Register, value uint32) DataFrame {
	return newDataFrame(device, byte(reg)&RegisterMask|WriteFlag, value)
}

// NewReplyFrame builds the datagram a device answers a read request with.
// Replies are addressed to the master (0xff).
func NewReplyFrame(reg Register, value uint32) DataFrame {
	return newDataFrame(0xff, byte(reg)&RegisterMask, value)
}

func newDataFrame(device, regByte byte, value uint32) (f DataFrame) {
	f[0] = Sync
	f[1] = device
	f[2] = regByte
	binary.BigEndian.PutUint32(f[3:7], value)
	f[7] = CRC(f[:])
	return
}

// ParseDataFrame copies b into a DataFrame.
func ParseDataFrame(b []byte) (f DataFrame, err error) {
	if len(b) != DataFrameLen {
		return f, fmt.Errorf("%w: %d", ErrFrameLength, len(b))
	}
	copy(f[:], b)
	return f, nil
}

// Device returns the device address, 0xff on replies.
func (f DataFrame) Device() uint8 {
	return f[1]
}

// Register returns the register address.
func (f DataFrame) Register() Register {
	return Register(f[2] & RegisterMask)
}

// IsWrite indicates the read/write flag is set.
func (f DataFrame) IsWrite() bool {
	return f[2]&WriteFlag != 0
}

// Value reassembles the register value, data3 being the most significant byte.
func (f DataFrame) Value() uint32 {
	return binary.BigEndian.Uint32(f[3:7])
}

// Valid verifies the checksum.
func (f DataFrame) Valid() bool {
	return f[0]&0x0f == Sync && CRC(f[:]) == f[7]
}

// String formats the datagram as hex bytes.
func (f DataFrame) String() string {
	return fmt.Sprintf("% x", f[:])
}
