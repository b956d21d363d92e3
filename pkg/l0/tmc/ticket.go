package tmc

import (
	"sync/atomic"
)

// Kind is the request variant of a Ticket.
type Kind uint8

// Ticket kinds.
const (
	KindRead Kind = iota
	KindWrite
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == KindWrite {
		return "write"
	}
	return "read"
}

// Status is the state of a Ticket.
type Status int32

// Ticket states. Pending is the only initial state, the others are terminal.
const (
	Pending Status = iota
	CompletedOK
	CRCError
	TimedOut
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case CompletedOK:
		return "ok"
	case CRCError:
		return "crc-error"
	case TimedOut:
		return "timeout"
	}
	return "unknown"
}

// Terminal indicates the status is final.
func (s Status) Terminal() bool {
	return s == CompletedOK || s == CRCError || s == TimedOut
}

// Err maps the status to an error, nil for CompletedOK.
func (s Status) Err() error {
	switch s {
	case CompletedOK:
		return nil
	case CRCError:
		return ErrCRCMismatch
	case TimedOut:
		return ErrTimeout
	}
	return ErrPending
}

// Handler is notified when a Ticket reaches its terminal status.
type Handler interface {
	HandleTicket(*Ticket)
}

// HandleTicketFunc is func form of Handler.
type HandleTicketFunc func(*Ticket)

// HandleTicket implements Handler.
func (f HandleTicketFunc) HandleTicket(t *Ticket) {
	f(t)
}

// Release is the default handler of write tickets. The caller gives up the
// ticket when enqueueing it.
var Release Handler = HandleTicketFunc(func(t *Ticket) {
	t.Release()
})

// StoreTo returns a Handler which stores the value of a successful read at p.
// Failed reads leave p untouched.
func StoreTo(p *uint32) Handler {
	return HandleTicketFunc(func(t *Ticket) {
		if t.Status() == CompletedOK {
			atomic.StoreUint32(p, t.Value())
		}
	})
}

// Ticket is one register transaction.
type Ticket struct {
	kind     Kind
	device   uint8
	register Register
	value    uint32
	frame    DataFrame
	handler  Handler

	status   int32
	queued   int32
	released int32
	done     chan struct{}
}

// NewReadTicket creates a ticket reading reg from device.
// The handler is optional.
func NewReadTicket(device uint8, reg Register, handler Handler) (*Ticket, error) {
	if !reg.Valid() {
		return nil, ErrInvalidRegister
	}
	t := newTicket(KindRead, device, reg, handler)
	req := NewReadRequest(device, reg)
	copy(t.frame[:], req[:])
	return t, nil
}

// NewWriteTicket creates a ticket writing value into reg of device.
// A nil handler selects Release.
func NewWriteTicket(device uint8, reg Register, value uint32, handler Handler) (*Ticket, error) {
	if !reg.Valid() {
		return nil, ErrInvalidRegister
	}
	if handler == nil {
		handler = Release
	}
	t := newTicket(KindWrite, device, reg, handler)
	t.value = value
	t.frame = NewWriteFrame(device, reg, value)
	return t, nil
}

func newTicket(kind Kind, device uint8, reg Register, handler Handler) *Ticket {
	return &Ticket{
		kind:     kind,
		device:   device,
		register: reg,
		handler:  handler,
		done:     make(chan struct{}),
	}
}

// Kind returns the request variant.
func (t *Ticket) Kind() Kind {
	return t.kind
}

// Device returns the device address.
func (t *Ticket) Device() uint8 {
	return t.device
}

// Register returns the register address.
func (t *Ticket) Register() Register {
	return t.register
}

// Status returns the current status.
func (t *Ticket) Status() Status {
	return Status(atomic.LoadInt32(&t.status))
}

// Err returns nil when the ticket completed successfully, ErrPending before
// it completes, otherwise the failure.
func (t *Ticket) Err() error {
	return t.Status().Err()
}

// Done returns a chan closed after the ticket completed and its handler returned.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Value returns the register value. For a write it's the value written.
// For a read it's the received value, meaningful once the status is CompletedOK.
func (t *Ticket) Value() uint32 {
	if t.kind == KindWrite {
		return t.value
	}
	if t.Status() == Pending {
		return 0
	}
	return t.frame.Value()
}

// Frame returns a copy of the datagram buffer. For a completed read it holds
// the reply, for a write the echo.
func (t *Ticket) Frame() DataFrame {
	return t.frame
}

// Release marks the ticket as given up by its owner.
func (t *Ticket) Release() {
	atomic.StoreInt32(&t.released, 1)
}

// Released indicates Release has been called.
func (t *Ticket) Released() bool {
	return atomic.LoadInt32(&t.released) != 0
}

// markQueued claims the ticket for a channel. It fails for a ticket already
// enqueued once, or released.
func (t *Ticket) markQueued() bool {
	return !t.Released() && atomic.CompareAndSwapInt32(&t.queued, 0, 1)
}

// transfer lays out the peripheral buffers over the datagram buffer.
func (t *Ticket) transfer(timeoutBits uint32) Transfer {
	if t.kind == KindRead {
		return Transfer{
			TX:          t.frame[:ReadRequestLen:ReadRequestLen],
			RX:          t.frame[:ReadRequestLen:ReadRequestLen],
			RXNext:      t.frame[:],
			TimeoutBits: timeoutBits,
		}
	}
	return Transfer{
		TX:          t.frame[:],
		RX:          t.frame[:],
		TimeoutBits: timeoutBits,
	}
}

// complete classifies the outcome and sets the terminal status.
// It must be called once, after the peripheral stopped touching the buffer.
func (t *Ticket) complete(timedOut bool) Status {
	status := CompletedOK
	if timedOut {
		status = TimedOut
	} else if !t.frame.Valid() {
		status = CRCError
	}
	atomic.StoreInt32(&t.status, int32(status))
	return status
}

// notify invokes the handler and closes the done chan.
func (t *Ticket) notify() {
	if t.handler != nil {
		t.handler.HandleTicket(t)
	}
	close(t.done)
}
