package sh

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/tmc.go/pkg/l0/tmc"
)

// deviceArg returns the device from args[n] or the default.
func deviceArg(c *ishell.Context, n int) (uint8, error) {
	if len(c.Args) > n {
		return ParseDevice(c.Args[n])
	}
	return ShellFrom(c).Device, nil
}

func regResult(dev uint8, reg tmc.Register, value uint32, err error) Result {
	res := Result{Device: dev, Register: reg.String(), Address: uint8(reg), Value: value, Status: tmc.CompletedOK.String()}
	if err != nil {
		res.Status = err.Error()
	}
	return res
}

var (
	// ReadCmd reads a register.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r", "get"},
		Help:    "REG [DEV]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("register expected"))
				return
			}
			reg, err := tmc.ParseRegister(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			dev, err := deviceArg(c, 1)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			value, err := s.Read(dev, reg)
			s.Print(c, regResult(dev, reg, value, err))
		},
	}

	// WriteCmd writes a register.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w", "set"},
		Help:    "REG VALUE [DEV]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("register and value expected"))
				return
			}
			reg, err := tmc.ParseRegister(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			value, err := ParseValue(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			dev, err := deviceArg(c, 2)
			if err != nil {
				c.Err(err)
				return
			}
			if info, ok := reg.Info(); ok && !info.Access.Writable() {
				c.Err(fmt.Errorf("%s is read-only", reg))
				return
			}
			s := ShellFrom(c)
			s.Print(c, regResult(dev, reg, value, s.Write(dev, reg, value)))
		},
	}

	// FieldCmd reads or updates a bit field.
	FieldCmd = ishell.Cmd{
		Name:    "field",
		Aliases: []string{"f"},
		Help:    "REG SHIFT BITS [VALUE]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 3 {
				c.Err(fmt.Errorf("register, shift and bits expected"))
				return
			}
			reg, err := tmc.ParseRegister(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			shift, err := strconv.ParseUint(c.Args[1], 0, 5)
			if err != nil {
				c.Err(fmt.Errorf("invalid shift %q", c.Args[1]))
				return
			}
			bits, err := strconv.ParseUint(c.Args[2], 0, 6)
			if err != nil || bits == 0 || shift+bits > 32 {
				c.Err(fmt.Errorf("invalid bits %q", c.Args[2]))
				return
			}
			f := tmc.FieldBits(uint(shift), uint(bits))
			s := ShellFrom(c)
			if len(c.Args) < 4 {
				value, err := s.Read(s.Device, reg)
				if err != nil {
					c.Err(err)
					return
				}
				c.Printf("%s[%d:%d] = %d\n", reg, shift+bits-1, shift, f.Get(value))
				return
			}
			value, err := ParseValue(c.Args[3])
			if err != nil {
				c.Err(err)
				return
			}
			updated, err := s.UpdateField(s.Device, reg, f, value)
			s.Print(c, regResult(s.Device, reg, updated, err))
		},
	}

	// DumpCmd reads all readable registers.
	DumpCmd = ishell.Cmd{
		Name:    "dump",
		Aliases: []string{"d"},
		Help:    "[DEV]",
		Func: func(c *ishell.Context) {
			dev, err := deviceArg(c, 0)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			s.Print(c, s.Dump(dev)...)
		},
	}

	// RegsCmd lists known registers.
	RegsCmd = ishell.Cmd{
		Name: "regs",
		Help: "",
		Func: func(c *ishell.Context) {
			for _, info := range tmc.Registers {
				c.Printf("0x%02x  %-12s %s\n", uint8(info.Register), info.Name, info.Access)
			}
		},
	}

	// StatsCmd prints channel counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			st := s.Channel.Stats()
			c.Printf("enqueued=%d started=%d completed=%d crc-errors=%d timeouts=%d spurious=%d max-depth=%d pending=%d\n",
				st.Enqueued, st.Started, st.Completed, st.CRCErrors, st.Timeouts, st.Spurious, st.MaxDepth, s.Channel.Pending())
		},
	}

	// DeviceCmd shows or changes the default device address.
	DeviceCmd = ishell.Cmd{
		Name:    "device",
		Aliases: []string{"dev"},
		Help:    "[DEV]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) == 0 {
				c.Println(s.Device)
				return
			}
			dev, err := ParseDevice(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			s.SetDevice(dev)
		},
	}
)
