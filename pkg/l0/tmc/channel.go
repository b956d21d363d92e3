package tmc

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/tmc.go/pkg/l0/ringq"
)

const (
	// DefaultBaud is the baud rate configured when none is given.
	DefaultBaud = 115200
	// DefaultIdleDebounce is the number of idle ticks which must pass after
	// a completion before the next transfer starts.
	DefaultIdleDebounce = 1

	idleInactive = -1
)

// Option configures a Channel.
type Option func(*Channel)

// WithBaud sets the baud rate passed to Peripheral.Configure.
func WithBaud(baud uint32) Option {
	return func(c *Channel) { c.baud = baud }
}

// WithTimeoutBits sets the receive timeout armed for every transfer.
func WithTimeoutBits(bits uint32) Option {
	return func(c *Channel) { c.timeoutBits = bits }
}

// WithIdleDebounce sets the idle debounce in ticks.
func WithIdleDebounce(ticks int) Option {
	return func(c *Channel) { c.debounce = ticks }
}

// WithQueueCapacity sets the initial capacity of the ticket queue.
func WithQueueCapacity(n int) Option {
	return func(c *Channel) { c.queue = ringq.New[*Ticket](n) }
}

// Stats are counters of a Channel.
type Stats struct {
	Enqueued  uint64
	Started   uint64
	Completed uint64
	CRCErrors uint64
	Timeouts  uint64
	Spurious  uint64
	MaxDepth  int
}

// Channel schedules tickets on one half-duplex bus.
type Channel struct {
	id          int
	periph      Peripheral
	baud        uint32
	timeoutBits uint32
	debounce    int

	// lock masks completion and idle tick while held.
	lock   sync.Mutex
	queue  *ringq.Queue[*Ticket]
	idle   int
	active bool
	closed bool
	stats  Stats
}

// NewChannel creates a Channel over periph. The peripheral is not configured;
// Registry.Open does that.
func NewChannel(id int, periph Peripheral, opts ...Option) *Channel {
	c := &Channel{
		id:          id,
		periph:      periph,
		baud:        DefaultBaud,
		timeoutBits: DefaultTimeoutBits,
		debounce:    DefaultIdleDebounce,
		idle:        idleInactive,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.queue == nil {
		c.queue = ringq.New[*Ticket](0)
	}
	return c
}

// ID returns the channel id.
func (c *Channel) ID() int {
	return c.id
}

// Baud returns the configured baud rate.
func (c *Channel) Baud() uint32 {
	return c.baud
}

// Read enqueues a read of reg from device.
func (c *Channel) Read(device uint8, reg Register, handler Handler) (*Ticket, error) {
	t, err := NewReadTicket(device, reg, handler)
	if err != nil {
		return nil, err
	}
	return t, c.Enqueue(t)
}

// Write enqueues a fire-and-forget write. The returned ticket is already
// released and only useful for observation.
func (c *Channel) Write(device uint8, reg Register, value uint32) (*Ticket, error) {
	return c.WriteWith(device, reg, value, Release)
}

// WriteWith enqueues a write notifying handler on completion.
func (c *Channel) WriteWith(device uint8, reg Register, value uint32, handler Handler) (*Ticket, error) {
	t, err := NewWriteTicket(device, reg, value, handler)
	if err != nil {
		return nil, err
	}
	return t, c.Enqueue(t)
}

// Enqueue appends t to the queue. The transfer starts right away when the
// queue was empty, otherwise after the tickets ahead of it.
func (c *Channel) Enqueue(t *Ticket) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !t.markQueued() {
		return ErrTicketNotPending
	}
	wasEmpty := c.queue.Empty()
	c.queue.Push(t)
	c.stats.Enqueued++
	if size := c.queue.Size(); size > c.stats.MaxDepth {
		c.stats.MaxDepth = size
	}
	if wasEmpty {
		c.start(t)
	}
	return nil
}

// OnCompletion is the completion interrupt entry point.
func (c *Channel) OnCompletion(flags StatusFlags) {
	c.lock.Lock()
	if flags&(FlagRxComplete|FlagTimeout) == 0 || !c.active {
		c.stats.Spurious++
		active := c.active
		c.lock.Unlock()
		glog.Warningf("channel %d: spurious completion %s (active=%v)", c.id, flags, active)
		return
	}
	t, _ := c.queue.Pull()
	c.active = false
	c.periph.DisableInterrupts(IntTransfer)
	c.periph.DisableAndReset()
	status := t.complete(flags&FlagTimeout != 0)
	c.stats.Completed++
	switch status {
	case CRCError:
		c.stats.CRCErrors++
	case TimedOut:
		c.stats.Timeouts++
	}
	if !c.queue.Empty() {
		c.idle = 0
	}
	c.lock.Unlock()

	if status == CompletedOK {
		if glog.V(4) {
			glog.Infof("channel %d: %s %s@%d %s [%s]", c.id, t.kind, t.register, t.device, status, t.frame)
		}
	} else {
		glog.Warningf("channel %d: %s %s@%d %s", c.id, t.kind, t.register, t.device, status)
	}
	t.notify()
}

// OnIdleTick is the periodic tick entry point. It starts the queue head once
// the bus stayed idle for the debounce period after a completion.
func (c *Channel) OnIdleTick() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.idle == idleInactive {
		return
	}
	c.idle++
	if c.idle <= c.debounce {
		return
	}
	c.idle = idleInactive
	if t, ok := c.queue.Peek(); ok && !c.active && !c.closed {
		c.start(t)
	}
}

// Pending returns the number of queued tickets including the one in flight.
func (c *Channel) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.queue.Size()
}

// Stats returns a snapshot of the counters.
func (c *Channel) Stats() Stats {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.stats
}

// close disables the channel. It refuses while tickets are queued, as they
// would never complete.
func (c *Channel) close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return nil
	}
	if !c.queue.Empty() {
		return ErrChannelBusy
	}
	c.closed = true
	c.periph.DisableInterrupts(IntTransfer)
	c.periph.DisableAndReset()
	return nil
}

// start must be called with the lock held.
func (c *Channel) start(t *Ticket) {
	c.active = true
	c.stats.Started++
	if glog.V(4) {
		glog.Infof("channel %d: start %s %s@%d [%s]", c.id, t.kind, t.register, t.device, t.frame)
	}
	c.periph.StartTransfer(t.transfer(c.timeoutBits))
	c.periph.EnableInterrupts(IntTransfer)
}

// Service reads the peripheral status and handles it as a completion
// interrupt. It's the vector for peripherals which don't raise interrupts
// themselves.
func (c *Channel) Service() {
	c.OnCompletion(c.periph.ReadStatus())
}
