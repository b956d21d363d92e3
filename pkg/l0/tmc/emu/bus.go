package emu

import (
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/tmc.go/pkg/l0/ringq"
	"github.com/robotalks/tmc.go/pkg/l0/tmc"
)

// Faults selects injected failures. Each counter applies to that many
// upcoming replies.
type Faults struct {
	DropReplies    int
	CorruptReplies int
}

// Bus is an emulated single-wire UART shared by devices.
// It implements io.ReadWriteCloser from the host's point of view.
type Bus struct {
	lock    sync.Mutex
	cond    *sync.Cond
	devices map[uint8]*Device
	rx      *ringq.Queue[byte]
	tx      *ringq.Queue[byte]
	faults  Faults
	closed  bool
}

// NewBus creates a Bus with the devices attached.
func NewBus(devices ...*Device) *Bus {
	b := &Bus{
		devices: make(map[uint8]*Device),
		rx:      ringq.New[byte](0),
		tx:      ringq.New[byte](0),
	}
	b.cond = sync.NewCond(&b.lock)
	for _, dev := range devices {
		b.devices[dev.Address] = dev
	}
	return b
}

// Device returns the device at addr, nil if absent.
func (b *Bus) Device(addr uint8) *Device {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.devices[addr]
}

// Inject adds faults to the pending ones.
func (b *Bus) Inject(f Faults) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.faults.DropReplies += f.DropReplies
	b.faults.CorruptReplies += f.CorruptReplies
}

// Write puts bytes on the wire. They are echoed, and complete datagrams are
// handled by the addressed device.
func (b *Bus) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	b.tx.PushN(p...)
	b.rx.PushN(p...)
	b.process()
	b.cond.Broadcast()
	return len(p), nil
}

// Read returns bytes from the wire, blocking until some are available.
func (b *Bus) Read(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	for b.tx.Empty() && !b.closed {
		b.cond.Wait()
	}
	if b.tx.Empty() {
		return 0, io.EOF
	}
	n := len(p)
	if size := b.tx.Size(); n > size {
		n = size
	}
	out, _ := b.tx.PullN(n)
	return copy(p, out), nil
}

// Close unblocks readers.
func (b *Bus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.closed = true
	b.cond.Broadcast()
	return nil
}

// process consumes complete datagrams from rx.
func (b *Bus) process() {
	for {
		// resync on the sync nibble
		for head, ok := b.rx.Peek(); ok && head&0x0f != tmc.Sync; head, ok = b.rx.Peek() {
			b.rx.Pop()
		}
		if b.rx.Size() < tmc.ReadRequestLen {
			return
		}
		hdr, _ := b.rx.PeekN(3)
		if hdr[2]&tmc.WriteFlag == 0 {
			var req tmc.ReadRequest
			buf, _ := b.rx.PeekN(tmc.ReadRequestLen)
			copy(req[:], buf)
			if !req.Valid() {
				b.rx.Pop()
				continue
			}
			b.rx.PopN(tmc.ReadRequestLen)
			b.handleRead(req)
			continue
		}
		if b.rx.Size() < tmc.DataFrameLen {
			return
		}
		buf, _ := b.rx.PeekN(tmc.DataFrameLen)
		frame, _ := tmc.ParseDataFrame(buf)
		if !frame.Valid() {
			b.rx.Pop()
			continue
		}
		b.rx.PopN(tmc.DataFrameLen)
		if dev := b.devices[frame.Device()]; dev != nil {
			dev.write(frame.Register(), frame.Value())
			glog.V(4).Infof("emu: dev %d write %s=%08x", dev.Address, frame.Register(), frame.Value())
		}
	}
}

func (b *Bus) handleRead(req tmc.ReadRequest) {
	dev := b.devices[req.Device()]
	if dev == nil {
		return
	}
	if b.faults.DropReplies > 0 {
		b.faults.DropReplies--
		return
	}
	reply := tmc.NewReplyFrame(req.Register(), dev.read(req.Register()))
	if b.faults.CorruptReplies > 0 {
		b.faults.CorruptReplies--
		reply[tmc.DataFrameLen-1] ^= 0xff
	}
	glog.V(4).Infof("emu: dev %d read %s -> %s", dev.Address, req.Register(), reply)
	// the reply travels on the wire too but devices ignore master-bound frames
	b.tx.PushN(reply[:]...)
}
