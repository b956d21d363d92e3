package emu

import (
	"sync"

	"github.com/robotalks/tmc.go/pkg/l0/tmc"
)

// Version is the IOIN version of an emulated TMC2209.
const Version = 0x21

// Device is one emulated driver IC.
type Device struct {
	Address uint8

	lock sync.Mutex
	regs map[tmc.Register]uint32
}

// NewDevice creates a Device with power-on register values.
func NewDevice(addr uint8) *Device {
	return &Device{
		Address: addr,
		regs: map[tmc.Register]uint32{
			tmc.GCONF:      0x00000041,
			tmc.GSTAT:      0x00000001,
			tmc.IOIN:       Version<<24 | 0x40,
			tmc.IHOLDIRUN:  0x00071f08,
			tmc.TPOWERDOWN: 0x00000014,
			tmc.TSTEP:      0x000fffff,
			tmc.CHOPCONF:   0x10000053,
			tmc.DRVSTATUS:  0xc0000000,
			tmc.PWMCONF:    0xc10d0024,
			tmc.PWMSCALE:   0x00000000,
			tmc.PWMAUTO:    0x000e0024,
		},
	}
}

// Get returns the current value of reg.
func (d *Device) Get(reg tmc.Register) uint32 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.regs[reg]
}

// Set overrides the value of reg, bypassing access modes.
func (d *Device) Set(reg tmc.Register, value uint32) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.regs[reg] = value
}

// read answers a read request. Write-only registers read as zero.
func (d *Device) read(reg tmc.Register) uint32 {
	d.lock.Lock()
	defer d.lock.Unlock()
	if info, ok := reg.Info(); ok && !info.Access.Readable() {
		return 0
	}
	return d.regs[reg]
}

// write applies an accepted write datagram.
func (d *Device) write(reg tmc.Register, value uint32) {
	d.lock.Lock()
	defer d.lock.Unlock()
	info, known := reg.Info()
	switch {
	case known && info.Access&tmc.AccessClear != 0:
		d.regs[reg] &^= value
	case known && !info.Access.Writable():
		// read-only registers ignore writes but still count them
	default:
		d.regs[reg] = value
	}
	d.regs[tmc.IFCNT] = (d.regs[tmc.IFCNT] + 1) & 0xff
}
