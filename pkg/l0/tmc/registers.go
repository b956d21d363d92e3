package tmc

import (
	"fmt"
	"strconv"
	"strings"
)

// Register is a 7-bit register address.
type Register uint8

// TMC2209 register map.
const (
	GCONF       Register = 0x00
	GSTAT       Register = 0x01
	IFCNT       Register = 0x02
	SLAVECONF   Register = 0x03
	OTPPROG     Register = 0x04
	OTPREAD     Register = 0x05
	IOIN        Register = 0x06
	FACTORYCONF Register = 0x07
	IHOLDIRUN   Register = 0x10
	TPOWERDOWN  Register = 0x11
	TSTEP       Register = 0x12
	TPWMTHRS    Register = 0x13
	TCOOLTHRS   Register = 0x14
	VACTUAL     Register = 0x22
	SGTHRS      Register = 0x40
	SGRESULT    Register = 0x41
	COOLCONF    Register = 0x42
	MSCNT       Register = 0x6a
	MSCURACT    Register = 0x6b
	CHOPCONF    Register = 0x6c
	DRVSTATUS   Register = 0x6f
	PWMCONF     Register = 0x70
	PWMSCALE    Register = 0x71
	PWMAUTO     Register = 0x72
)

// Access describes how a register can be accessed.
type Access uint8

// Access modes.
const (
	AccessRead Access = 1 << iota
	AccessWrite
	// AccessClear marks flags cleared by writing 1.
	AccessClear

	AccessReadWrite = AccessRead | AccessWrite
)

// Readable indicates the register can be read.
func (a Access) Readable() bool {
	return a&AccessRead != 0
}

// Writable indicates the register accepts writes.
func (a Access) Writable() bool {
	return a&(AccessWrite|AccessClear) != 0
}

// String implements fmt.Stringer.
func (a Access) String() string {
	var s string
	if a&AccessRead != 0 {
		s += "R"
	}
	if a&AccessWrite != 0 {
		s += "W"
	}
	if a&AccessClear != 0 {
		s += "C"
	}
	if s == "" {
		return "-"
	}
	return s
}

// RegisterInfo describes a known register.
type RegisterInfo struct {
	Register Register
	Name     string
	Access   Access
}

// Registers is the known register table ordered by address.
var Registers = []RegisterInfo{
	{GCONF, "GCONF", AccessReadWrite},
	{GSTAT, "GSTAT", AccessRead | AccessClear},
	{IFCNT, "IFCNT", AccessRead},
	{SLAVECONF, "SLAVECONF", AccessWrite},
	{OTPPROG, "OTP_PROG", AccessWrite},
	{OTPREAD, "OTP_READ", AccessRead},
	{IOIN, "IOIN", AccessRead},
	{FACTORYCONF, "FACTORY_CONF", AccessReadWrite},
	{IHOLDIRUN, "IHOLD_IRUN", AccessWrite},
	{TPOWERDOWN, "TPOWERDOWN", AccessWrite},
	{TSTEP, "TSTEP", AccessRead},
	{TPWMTHRS, "TPWMTHRS", AccessWrite},
	{TCOOLTHRS, "TCOOLTHRS", AccessWrite},
	{VACTUAL, "VACTUAL", AccessWrite},
	{SGTHRS, "SGTHRS", AccessWrite},
	{SGRESULT, "SG_RESULT", AccessRead},
	{COOLCONF, "COOLCONF", AccessWrite},
	{MSCNT, "MSCNT", AccessRead},
	{MSCURACT, "MSCURACT", AccessRead},
	{CHOPCONF, "CHOPCONF", AccessReadWrite},
	{DRVSTATUS, "DRV_STATUS", AccessRead},
	{PWMCONF, "PWMCONF", AccessReadWrite},
	{PWMSCALE, "PWM_SCALE", AccessRead},
	{PWMAUTO, "PWM_AUTO", AccessRead},
}

var (
	registersByAddr = make(map[Register]*RegisterInfo)
	registersByName = make(map[string]*RegisterInfo)
)

func init() {
	for n := range Registers {
		info := &Registers[n]
		registersByAddr[info.Register] = info
		registersByName[info.Name] = info
		// also accept the name without underscores
		registersByName[strings.Replace(info.Name, "_", "", -1)] = info
	}
}

// Info returns the table entry of a known register.
func (r Register) Info() (RegisterInfo, bool) {
	if info := registersByAddr[r]; info != nil {
		return *info, true
	}
	return RegisterInfo{}, false
}

// Valid indicates the address fits in 7 bits.
func (r Register) Valid() bool {
	return byte(r)&^RegisterMask == 0
}

// String returns the register name, or the hex address when unknown.
func (r Register) String() string {
	if info := registersByAddr[r]; info != nil {
		return info.Name
	}
	return fmt.Sprintf("0x%02x", uint8(r))
}

// ParseRegister resolves a register from its name (case-insensitive) or
// a numeric address (decimal or 0x-prefixed hex).
func ParseRegister(s string) (Register, error) {
	s = strings.TrimSpace(s)
	if info := registersByName[strings.ToUpper(s)]; info != nil {
		return info.Register, nil
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, &UnknownRegisterError{Name: s}
	}
	reg := Register(n)
	if !reg.Valid() {
		return 0, ErrInvalidRegister
	}
	return reg, nil
}

// Field is a bit field within a register value.
type Field struct {
	Shift uint
	Mask  uint32
}

// FieldBits creates a Field of width bits starting at shift.
func FieldBits(shift, bits uint) Field {
	if bits >= 32 {
		return Field{Shift: shift, Mask: 0xffffffff}
	}
	return Field{Shift: shift, Mask: (1 << bits) - 1}
}

// Get extracts the field from a register value.
func (f Field) Get(regVal uint32) uint32 {
	return (regVal >> f.Shift) & f.Mask
}

// Set returns regVal with the field replaced by val.
func (f Field) Set(regVal, val uint32) uint32 {
	return (regVal &^ (f.Mask << f.Shift)) | ((val & f.Mask) << f.Shift)
}

// Frequently used fields.
var (
	FieldIHold       = FieldBits(0, 5)
	FieldIRun        = FieldBits(8, 5)
	FieldIHoldDelay  = FieldBits(16, 4)
	FieldToff        = FieldBits(0, 4)
	FieldMRes        = FieldBits(24, 4)
	FieldSendDelay   = FieldBits(8, 4)
	FieldIOINVersion = FieldBits(24, 8)
	FieldCSActual    = FieldBits(16, 5)
)
