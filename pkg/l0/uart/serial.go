package uart

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// SerialReadTimeout bounds a blocking read on a serial port so the reader
// notices shutdown.
const SerialReadTimeout = 100 * time.Millisecond

// OpenSerial opens a serial device as a Port fixed at baud.
func OpenSerial(name string, baud uint32) (*Port, error) {
	sp, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        int(baud),
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: SerialReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	p := NewPort(sp)
	p.fixedBaud = baud
	p.IdleEOF = true
	return p, nil
}

// Close closes the underlying stream when it's an io.Closer.
func (p *Port) Close() error {
	if c, ok := p.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
