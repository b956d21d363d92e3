package tmc

// StatusFlags is the completion status reported by a Peripheral.
type StatusFlags uint8

// Status flags.
const (
	// FlagRxComplete is set when the receive buffer is filled.
	FlagRxComplete StatusFlags = 1 << iota
	// FlagTimeout is set when the line stayed idle past the armed timeout.
	FlagTimeout
)

// InterruptMask selects interrupt sources.
type InterruptMask uint8

// Interrupt sources.
const (
	IntRxBuffer InterruptMask = 1 << iota
	IntTimeout

	IntTransfer = IntRxBuffer | IntTimeout
)

// DefaultTimeoutBits is the receive timeout in bit times.
const DefaultTimeoutBits = 24

// Transfer describes one bus transaction handed to a Peripheral.
//
// TX is transmitted while RX fills up. Once RX is full and RXNext is not nil,
// reception continues into RXNext from its start. Reads use this to absorb the
// echo of the request, then let the reply overwrite it. TimeoutBits arms the
// receive timeout, counted in bit times of line idle.
type Transfer struct {
	TX          []byte
	RX          []byte
	RXNext      []byte
	TimeoutBits uint32
}

// Peripheral is the UART hardware a Channel drives.
//
// Implementations must not report a completion from inside StartTransfer.
type Peripheral interface {
	Configure(baud uint32) error
	StartTransfer(Transfer)
	DisableAndReset()
	ReadStatus() StatusFlags
	EnableInterrupts(InterruptMask)
	DisableInterrupts(InterruptMask)
}

// InterruptSource is implemented by a Peripheral which raises completions by
// itself. The handler is invoked from the peripheral's own goroutine.
type InterruptSource interface {
	SetInterruptHandler(func(StatusFlags))
}

// String implements fmt.Stringer.
func (f StatusFlags) String() string {
	switch f & (FlagRxComplete | FlagTimeout) {
	case FlagRxComplete:
		return "rx-complete"
	case FlagTimeout:
		return "timeout"
	case FlagRxComplete | FlagTimeout:
		return "rx-complete|timeout"
	}
	return "none"
}
