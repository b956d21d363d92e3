// Package env provides the common options of the commands.
package env

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robotalks/tmc.go/pkg/l0/tmc"
	"github.com/robotalks/tmc.go/pkg/l0/tmc/emu"
	"github.com/robotalks/tmc.go/pkg/l0/uart"
	"github.com/robotalks/tmc.go/pkg/l1/comm/mqtt"
)

// EmuScheme selects the emulated bus as port, e.g. emu://2 for two devices.
const EmuScheme = "emu"

// Config provides common options to setup a channel and its bridges.
type Config struct {
	// Port is a serial device or emu://N.
	Port    string
	Baud    uint
	Channel int
	// Device is the default device address.
	Device uint

	TickPeriod  time.Duration
	MinTimeout  time.Duration
	TimeoutBits uint

	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	ClientID      string
	HTTPAddr      string

	// Poll is a comma separated list of registers read periodically.
	Poll         string
	PollInterval time.Duration
}

var defaultConfig = Config{
	Port:          "emu://1",
	Baud:          tmc.DefaultBaud,
	TickPeriod:    tmc.DefaultTickPeriod,
	MinTimeout:    uart.DefaultMinTimeout,
	TimeoutBits:   tmc.DefaultTimeoutBits,
	MQTTBrokerURL: "mqtt://localhost:1883/robo/",
	PollInterval:  time.Second,
}

func init() {
	if val := os.Getenv("TMC_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val, err := strconv.ParseUint(os.Getenv("TMC_BAUD"), 10, 32); err == nil {
		defaultConfig.Baud = uint(val)
	}
	if val, err := strconv.Atoi(os.Getenv("TMC_CHANNEL")); err == nil {
		defaultConfig.Channel = val
	}
	if val, err := strconv.ParseUint(os.Getenv("TMC_DEVICE"), 0, 8); err == nil {
		defaultConfig.Device = uint(val)
	}
	if val := os.Getenv("TMC_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("TMC_HTTP_ADDR"); val != "" {
		defaultConfig.HTTPAddr = val
	}
	if val := os.Getenv("TMC_POLL"); val != "" {
		defaultConfig.Poll = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port, or emu://N for N emulated devices")
	flag.UintVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Baud rate")
	flag.IntVar(&defaultConfig.Channel, "channel", defaultConfig.Channel, "Channel ID")
	flag.UintVar(&defaultConfig.Device, "device", defaultConfig.Device, "Default device address")
	flag.DurationVar(&defaultConfig.TickPeriod, "tick", defaultConfig.TickPeriod, "Idle tick period")
	flag.DurationVar(&defaultConfig.MinTimeout, "min-timeout", defaultConfig.MinTimeout, "Minimum receive timeout")
	flag.UintVar(&defaultConfig.TimeoutBits, "timeout-bits", defaultConfig.TimeoutBits, "Receive timeout in bit times")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.StringVar(&defaultConfig.ClientID, "client-id", defaultConfig.ClientID, "MQTT client ID and report source, default from machine ID")
	flag.StringVar(&defaultConfig.HTTPAddr, "http", defaultConfig.HTTPAddr, "HTTP listen address of the websocket report stream, empty to disable")
	flag.StringVar(&defaultConfig.Poll, "poll", defaultConfig.Poll, "Comma separated registers to poll")
	flag.DurationVar(&defaultConfig.PollInterval, "poll-interval", defaultConfig.PollInterval, "Poll interval")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Source returns the client ID, or the machine ID when not set.
func (c *Config) Source() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return "tmc-" + MachineID()
}

// DeviceAddr returns the default device address.
func (c *Config) DeviceAddr() uint8 {
	return uint8(c.Device)
}

// PollRegisters parses Poll.
func (c *Config) PollRegisters() ([]tmc.Register, error) {
	var regs []tmc.Register
	for _, name := range strings.Split(c.Poll, ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		reg, err := tmc.ParseRegister(name)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

// OpenPort opens the serial port or creates an emulated bus.
func (c *Config) OpenPort() (*uart.Port, error) {
	if u, err := url.Parse(c.Port); err == nil && u.Scheme == EmuScheme {
		count := 1
		if u.Host != "" {
			if count, err = strconv.Atoi(u.Host); err != nil || count < 0 || count > 256 {
				return nil, fmt.Errorf("invalid emulated device count: %q", u.Host)
			}
		}
		devices := make([]*emu.Device, count)
		for n := range devices {
			devices[n] = emu.NewDevice(uint8(n))
		}
		port := uart.NewPort(emu.NewBus(devices...))
		port.MinTimeout = c.MinTimeout
		return port, nil
	}
	port, err := uart.OpenSerial(c.Port, uint32(c.Baud))
	if err != nil {
		return nil, err
	}
	port.MinTimeout = c.MinTimeout
	return port, nil
}

// OpenChannel opens the port and the channel on it.
func (c *Config) OpenChannel(reg *tmc.Registry) (*tmc.Channel, *uart.Port, error) {
	port, err := c.OpenPort()
	if err != nil {
		return nil, nil, err
	}
	ch, err := reg.Open(c.Channel, port,
		tmc.WithBaud(uint32(c.Baud)),
		tmc.WithTimeoutBits(uint32(c.TimeoutBits)))
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	return ch, port, nil
}

// MustOpenChannel opens the channel and fails on error.
func (c *Config) MustOpenChannel(reg *tmc.Registry) (*tmc.Channel, *uart.Port) {
	ch, port, err := c.OpenChannel(reg)
	if err != nil {
		log.Fatalln(err)
	}
	return ch, port
}

// NewQueue creates the MQTT queue.
func (c *Config) NewQueue() (*mqtt.Queue, error) {
	q, err := mqtt.NewQueueFromURL(c.MQTTBrokerURL, c.Source())
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT URL: %v", err)
	}
	return q, nil
}

// MustNewQueue creates the MQTT queue and fails on error.
func (c *Config) MustNewQueue() *mqtt.Queue {
	q, err := c.NewQueue()
	if err != nil {
		log.Fatalln(err)
	}
	return q
}
