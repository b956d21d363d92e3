// Package uart implements tmc.Peripheral on a host byte stream, e.g. a
// USB-serial adapter wired to the single-wire bus.
package uart

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/tmc.go/pkg/l0/tmc"
)

// DefaultMinTimeout is the floor of the receive timeout. Host serial stacks
// buffer bytes for milliseconds, far above the bit-time timeout of the bus.
// Input received before a transfer transmits is flushed; a reply still in the
// host stack when the next transfer starts is only caught by its CRC.
const DefaultMinTimeout = 20 * time.Millisecond

// Port is a tmc.Peripheral over an io.ReadWriter.
//
// Run is the hardware: it transmits, receives into the transfer buffers,
// times out an idle line and raises the interrupt from its own goroutine.
// All the Peripheral methods only touch state under a lock and never block,
// so they are safe to call from the interrupt handler.
type Port struct {
	// MinTimeout floors the receive timeout. Zero selects DefaultMinTimeout.
	MinTimeout time.Duration
	// IdleEOF treats io.EOF without data as an idle read, the way a serial
	// port with a read timeout reports it.
	IdleEOF bool

	rw        io.ReadWriter
	fixedBaud uint32

	lock    sync.Mutex
	baud    uint32
	handler func(tmc.StatusFlags)
	enabled tmc.InterruptMask
	next    *tmc.Transfer
	gen     uint64
	status  tmc.StatusFlags
	raised  bool
	kickCh  chan struct{}
}

// NewPort creates a Port on rw.
func NewPort(rw io.ReadWriter) *Port {
	return &Port{rw: rw, kickCh: make(chan struct{}, 1)}
}

// Configure implements tmc.Peripheral.
func (p *Port) Configure(baud uint32) error {
	if baud == 0 {
		return fmt.Errorf("invalid baud rate %d", baud)
	}
	if p.fixedBaud != 0 && baud != p.fixedBaud {
		return fmt.Errorf("port opened at %d baud, %d requested", p.fixedBaud, baud)
	}
	p.lock.Lock()
	p.baud = baud
	p.lock.Unlock()
	return nil
}

// SetInterruptHandler implements tmc.InterruptSource.
func (p *Port) SetInterruptHandler(fn func(tmc.StatusFlags)) {
	p.lock.Lock()
	p.handler = fn
	p.lock.Unlock()
}

// StartTransfer implements tmc.Peripheral.
func (p *Port) StartTransfer(tr tmc.Transfer) {
	p.lock.Lock()
	p.gen++
	p.next = &tr
	p.status, p.raised = 0, false
	p.lock.Unlock()
	p.kick()
}

// DisableAndReset implements tmc.Peripheral. The transfer in progress is
// abandoned and a pending interrupt is dropped.
func (p *Port) DisableAndReset() {
	p.lock.Lock()
	p.gen++
	p.next = nil
	p.raised = false
	p.lock.Unlock()
}

// ReadStatus implements tmc.Peripheral.
func (p *Port) ReadStatus() tmc.StatusFlags {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.status
}

// EnableInterrupts implements tmc.Peripheral.
func (p *Port) EnableInterrupts(m tmc.InterruptMask) {
	p.lock.Lock()
	p.enabled |= m
	raised := p.raised
	p.lock.Unlock()
	if raised {
		p.kick()
	}
}

// DisableInterrupts implements tmc.Peripheral.
func (p *Port) DisableInterrupts(m tmc.InterruptMask) {
	p.lock.Lock()
	p.enabled &^= m
	p.lock.Unlock()
}

func (p *Port) kick() {
	select {
	case p.kickCh <- struct{}{}:
	default:
	}
}

type transferState struct {
	tmc.Transfer
	gen    uint64
	buf    []byte
	pos    int
	second bool
}

type readResult struct {
	data []byte
	err  error
}

// Run implements framework.Runnable.
func (p *Port) Run(ctx context.Context) error {
	readCh := make(chan readResult, 16)
	stopCh := make(chan struct{})
	defer close(stopCh)
	go p.readLoop(readCh, stopCh)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	var cur *transferState
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.kickCh:
			if next := p.takeNext(); next != nil {
				if err := flushInput(readCh); err != nil {
					return err
				}
				if _, err := p.rw.Write(next.TX); err != nil {
					return err
				}
				cur = next
				resetTimer(timer, p.timeout(next.TimeoutBits))
			}
		case res := <-readCh:
			if res.err != nil {
				return res.err
			}
			if cur == nil || !p.current(cur) {
				cur = nil
				glog.V(4).Infof("uart: dropped %d stray bytes", len(res.data))
				break
			}
			if cur.feed(res.data) {
				timer.Stop()
				p.complete(cur, tmc.FlagRxComplete)
				cur = nil
			} else {
				resetTimer(timer, p.timeout(cur.TimeoutBits))
			}
		case <-timer.C:
			if cur != nil {
				glog.V(4).Infof("uart: timeout after %d bytes", cur.pos)
				p.complete(cur, tmc.FlagTimeout)
				cur = nil
			}
		}
		p.deliver()
	}
}

// flushInput drops bytes received before a transmission, e.g. a reply that
// arrived after its transfer timed out.
func flushInput(readCh <-chan readResult) error {
	for {
		select {
		case res := <-readCh:
			if res.err != nil {
				return res.err
			}
			glog.V(4).Infof("uart: flushed %d late bytes", len(res.data))
		default:
			return nil
		}
	}
}

func (p *Port) takeNext() *transferState {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.next == nil {
		return nil
	}
	st := &transferState{Transfer: *p.next, gen: p.gen, buf: p.next.RX}
	p.next = nil
	return st
}

func (p *Port) current(st *transferState) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return st.gen == p.gen
}

func (p *Port) complete(st *transferState, flags tmc.StatusFlags) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if st.gen != p.gen {
		return
	}
	p.status, p.raised = flags, true
}

// deliver invokes the interrupt handler when an enabled interrupt is raised.
func (p *Port) deliver() {
	p.lock.Lock()
	if !p.raised || p.handler == nil || p.enabled&tmc.IntTransfer == 0 {
		p.lock.Unlock()
		return
	}
	p.raised = false
	fn, flags := p.handler, p.status
	p.lock.Unlock()
	fn(flags)
}

// timeout converts bit times to a duration.
func (p *Port) timeout(bits uint32) time.Duration {
	p.lock.Lock()
	baud := p.baud
	p.lock.Unlock()
	min := p.MinTimeout
	if min <= 0 {
		min = DefaultMinTimeout
	}
	if baud == 0 {
		return min
	}
	if d := time.Duration(uint64(bits) * uint64(time.Second) / uint64(baud)); d > min {
		return d
	}
	return min
}

func (p *Port) readLoop(readCh chan<- readResult, stopCh <-chan struct{}) {
	buf := make([]byte, 64)
	for {
		n, err := p.rw.Read(buf)
		if n == 0 && err == io.EOF && p.IdleEOF {
			err = nil
		}
		var res readResult
		if n > 0 {
			res.data = append([]byte(nil), buf[:n]...)
		}
		res.err = err
		if res.data == nil && res.err == nil {
			select {
			case <-stopCh:
				return
			default:
			}
			continue
		}
		select {
		case readCh <- res:
		case <-stopCh:
			return
		}
		if err != nil {
			return
		}
	}
}

// feed stores received bytes and reports whether the transfer is complete.
// A read switches to RXNext once the echo filled RX.
func (st *transferState) feed(data []byte) bool {
	for len(data) > 0 {
		n := copy(st.buf[st.pos:], data)
		st.pos += n
		data = data[n:]
		if st.pos < len(st.buf) {
			return false
		}
		if st.second || st.RXNext == nil {
			return true
		}
		st.buf, st.pos, st.second = st.RXNext, 0, true
	}
	return st.pos >= len(st.buf)
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
