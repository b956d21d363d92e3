package tmc

import (
	"errors"
	"fmt"
)

var (
	// ErrCRCMismatch indicates the received datagram failed the checksum.
	ErrCRCMismatch = errors.New("crc mismatch")
	// ErrTimeout indicates the bus went idle before the transfer completed.
	ErrTimeout = errors.New("timeout")
	// ErrPending indicates the ticket has not completed yet.
	ErrPending = errors.New("pending")
	// ErrTicketNotPending indicates the ticket was already enqueued or completed.
	ErrTicketNotPending = errors.New("ticket not pending")
	// ErrInvalidRegister indicates a register address outside 0..0x7f.
	ErrInvalidRegister = errors.New("invalid register address")
	// ErrFrameLength indicates a datagram of unexpected size.
	ErrFrameLength = errors.New("invalid datagram length")
	// ErrChannelInUse indicates the channel id is already opened.
	ErrChannelInUse = errors.New("channel in use")
	// ErrNoChannel indicates the channel id is not opened.
	ErrNoChannel = errors.New("no such channel")
	// ErrChannelBusy indicates the channel still has tickets queued.
	ErrChannelBusy = errors.New("channel busy")
	// ErrClosed indicates the channel has been closed.
	ErrClosed = errors.New("channel closed")
)

// UnknownRegisterError is returned when a register name can't be resolved.
type UnknownRegisterError struct {
	Name string
}

// Error implements error.
func (e *UnknownRegisterError) Error() string {
	return fmt.Sprintf("unknown register %q", e.Name)
}
