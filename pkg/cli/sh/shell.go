// Package sh provides an interactive shell to access registers on a channel.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/tmc.go/pkg/l0/tmc"
)

// DefaultTimeout bounds the wait for a ticket to complete.
const DefaultTimeout = time.Second

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	Timeout     time.Duration

	Shell   *ishell.Shell
	Channel *tmc.Channel
	Device  uint8
}

// Result is the outcome of one register access.
type Result struct {
	Device   uint8  `json:"device"`
	Register string `json:"register"`
	Address  uint8  `json:"address"`
	Value    uint32 `json:"value"`
	Status   string `json:"status"`
}

const shellKey = "$shell"

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ReadCmd,
		&WriteCmd,
		&FieldCmd,
		&DumpCmd,
		&RegsCmd,
		&StatsCmd,
		&DeviceCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell on a channel.
func New(ch *tmc.Channel, device uint8) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     DefaultTimeout,

		Shell:   ishell.New(),
		Channel: ch,
		Device:  device,
	}
	s.Shell.Set(shellKey, s)
	s.updatePrompt()
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// SetDevice changes the default device address.
func (s *Shell) SetDevice(dev uint8) {
	s.Device = dev
	s.updatePrompt()
}

func (s *Shell) updatePrompt() {
	if s.Shell != nil {
		s.Shell.SetPrompt(fmt.Sprintf("ch%d/dev%d > ", s.Channel.ID(), s.Device))
	}
}

// Do waits for a ticket to complete. The channel itself never blocks; only
// the shell waits, bounded by Timeout.
func (s *Shell) Do(t *tmc.Ticket, err error) (*tmc.Ticket, error) {
	if err != nil {
		return nil, err
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	select {
	case <-t.Done():
		return t, t.Err()
	case <-time.After(timeout):
		return t, context.DeadlineExceeded
	}
}

// Read reads a register.
func (s *Shell) Read(dev uint8, reg tmc.Register) (uint32, error) {
	t, err := s.Do(s.Channel.Read(dev, reg, nil))
	if err != nil {
		return 0, err
	}
	return t.Value(), nil
}

// Write writes a register and waits for the echo.
func (s *Shell) Write(dev uint8, reg tmc.Register, value uint32) error {
	_, err := s.Do(s.Channel.WriteWith(dev, reg, value, tmc.HandleTicketFunc(func(*tmc.Ticket) {})))
	return err
}

// UpdateField reads a register, replaces a field and writes it back.
// It returns the new register value.
func (s *Shell) UpdateField(dev uint8, reg tmc.Register, f tmc.Field, value uint32) (uint32, error) {
	current, err := s.Read(dev, reg)
	if err != nil {
		return 0, err
	}
	updated := f.Set(current, value)
	if updated == current {
		return current, nil
	}
	return updated, s.Write(dev, reg, updated)
}

// Dump reads every readable register of dev.
func (s *Shell) Dump(dev uint8) []Result {
	var results []Result
	for _, info := range tmc.Registers {
		if !info.Access.Readable() {
			continue
		}
		res := Result{Device: dev, Register: info.Name, Address: uint8(info.Register)}
		t, err := s.Do(s.Channel.Read(dev, info.Register, nil))
		if t != nil {
			res.Status = t.Status().String()
			res.Value = t.Value()
		}
		if err == context.DeadlineExceeded {
			res.Status = "no-completion"
		}
		results = append(results, res)
	}
	return results
}

// Print outputs results in text or JSON.
func (s *Shell) Print(c *ishell.Context, results ...Result) {
	if s.OutputJSON {
		out, err := json.Marshal(results)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	for _, res := range results {
		if res.Status == tmc.CompletedOK.String() {
			c.Printf("%-12s 0x%02x  0x%08x  %d\n", res.Register, res.Address, res.Value, res.Value)
		} else {
			c.Printf("%-12s 0x%02x  %s\n", res.Register, res.Address, res.Status)
		}
	}
}

// ParseValue parses a decimal or 0x-prefixed value.
func ParseValue(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	return uint32(v), nil
}

// ParseDevice parses a device address.
func ParseDevice(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid device address %q", s)
	}
	return uint8(v), nil
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}
