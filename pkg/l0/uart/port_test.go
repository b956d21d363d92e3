package uart

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/tmc.go/pkg/l0/tmc"
	"github.com/robotalks/tmc.go/pkg/l0/tmc/emu"
)

type testBench struct {
	bus    *emu.Bus
	port   *Port
	reg    *tmc.Registry
	ch     *tmc.Channel
	cancel context.CancelFunc
	errCh  chan error
}

func newTestBench(t *testing.T, devices ...*emu.Device) *testBench {
	b := &testBench{bus: emu.NewBus(devices...), errCh: make(chan error, 2)}
	b.port = NewPort(b.bus)
	b.port.MinTimeout = 30 * time.Millisecond
	b.reg = tmc.NewRegistry()
	ch, err := b.reg.Open(0, b.port)
	require.NoError(t, err)
	b.ch = ch
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	ticker := &tmc.IdleTicker{Registry: b.reg, Period: time.Millisecond}
	go func() { b.errCh <- b.port.Run(ctx) }()
	go func() { b.errCh <- ticker.Run(ctx) }()
	return b
}

func (b *testBench) stop(t *testing.T) {
	b.cancel()
	b.bus.Close()
	for i := 0; i < 2; i++ {
		require.Equal(t, context.Canceled, <-b.errCh)
	}
}

func wait(t *testing.T, tk *tmc.Ticket) {
	select {
	case <-tk.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("ticket %s not completed", tk.Register())
	}
}

func TestPortReadWrite(t *testing.T) {
	dev := emu.NewDevice(0)
	b := newTestBench(t, dev)
	defer b.stop(t)

	var done []*tmc.Ticket
	wr, err := b.ch.WriteWith(0, tmc.CHOPCONF, 0x10000054, nil)
	require.NoError(t, err)
	rd, err := b.ch.Read(0, tmc.CHOPCONF, nil)
	require.NoError(t, err)
	cnt, err := b.ch.Read(0, tmc.IFCNT, nil)
	require.NoError(t, err)
	done = append(done, wr, rd, cnt)
	for _, tk := range done {
		wait(t, tk)
		require.Equalf(t, tmc.CompletedOK, tk.Status(), "%s %s", tk.Kind(), tk.Register())
	}
	require.Equal(t, uint32(0x10000054), rd.Value())
	require.Equal(t, uint32(1), cnt.Value())
	require.Equal(t, uint32(0x10000054), dev.Get(tmc.CHOPCONF))
}

func TestPortTimeout(t *testing.T) {
	b := newTestBench(t, emu.NewDevice(0))
	defer b.stop(t)

	b.bus.Inject(emu.Faults{DropReplies: 1})
	rd, err := b.ch.Read(0, tmc.GCONF, nil)
	require.NoError(t, err)
	next, err := b.ch.Read(0, tmc.GCONF, nil)
	require.NoError(t, err)
	wait(t, rd)
	require.Equal(t, tmc.TimedOut, rd.Status())
	wait(t, next)
	require.Equal(t, tmc.CompletedOK, next.Status(), "the bus recovers after a timeout")
	require.Equal(t, uint32(0x41), next.Value())
}

func TestPortCRCError(t *testing.T) {
	b := newTestBench(t, emu.NewDevice(0))
	defer b.stop(t)

	b.bus.Inject(emu.Faults{CorruptReplies: 1})
	rd, err := b.ch.Read(0, tmc.IOIN, nil)
	require.NoError(t, err)
	wait(t, rd)
	require.Equal(t, tmc.CRCError, rd.Status())
	require.Equal(t, uint64(1), b.ch.Stats().CRCErrors)
}

func TestPortNoDevice(t *testing.T) {
	b := newTestBench(t)
	defer b.stop(t)
	rd, err := b.ch.Read(2, tmc.IOIN, nil)
	require.NoError(t, err)
	wait(t, rd)
	require.Equal(t, tmc.TimedOut, rd.Status())
}

func TestPortTimeoutDuration(t *testing.T) {
	p := NewPort(emu.NewBus())
	require.Error(t, p.Configure(0))
	require.NoError(t, p.Configure(9600))
	p.MinTimeout = time.Millisecond
	require.Equal(t, 2500*time.Microsecond, p.timeout(24))
	p.MinTimeout = 10 * time.Millisecond
	require.Equal(t, 10*time.Millisecond, p.timeout(24))

	p.fixedBaud = 115200
	require.Error(t, p.Configure(9600))
}

func TestTransferFeed(t *testing.T) {
	frame := make([]byte, 8)
	st := &transferState{Transfer: tmc.Transfer{RX: frame[:4], RXNext: frame}}
	st.buf = st.RX
	require.False(t, st.feed([]byte{1, 2, 3}))
	require.False(t, st.feed([]byte{4, 5, 6}))
	require.Equal(t, []byte{5, 6, 3, 4}, frame[:4])
	require.True(t, st.feed([]byte{7, 8, 9, 10, 11, 12}))
	require.Equal(t, []byte{5, 6, 7, 8, 9, 10, 11, 12}, frame)
}

// scriptedLine is a byte stream whose receive side is fed by the test.
type scriptedLine struct {
	rxCh chan []byte
	txCh chan []byte
}

func newScriptedLine() *scriptedLine {
	return &scriptedLine{rxCh: make(chan []byte), txCh: make(chan []byte, 4)}
}

func (l *scriptedLine) Read(p []byte) (int, error) {
	data, ok := <-l.rxCh
	if !ok {
		return 0, io.EOF
	}
	return copy(p, data), nil
}

func (l *scriptedLine) Write(p []byte) (int, error) {
	l.txCh <- append([]byte(nil), p...)
	return len(p), nil
}

func (l *scriptedLine) transmitted(t *testing.T) []byte {
	select {
	case tx := <-l.txCh:
		return tx
	case <-time.After(2 * time.Second):
		t.Fatal("nothing transmitted")
		return nil
	}
}

func TestPortFlushesLateReply(t *testing.T) {
	// the late reply and the next start race in Run, repeat to hit both orders
	for round := 0; round < 10; round++ {
		line := newScriptedLine()
		port := NewPort(line)
		port.MinTimeout = 10 * time.Millisecond
		reg := tmc.NewRegistry()
		ch, err := reg.Open(0, port)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- port.Run(ctx) }()

		var next *tmc.Ticket
		var nextErr error
		late := tmc.NewReplyFrame(tmc.GCONF, 0x41)
		first, err := ch.Read(0, tmc.GCONF, tmc.HandleTicketFunc(func(*tmc.Ticket) {
			// runs on the Run goroutine: the reply arrives after the
			// timeout and is queued before the next transfer starts
			line.rxCh <- late[:]
			time.Sleep(20 * time.Millisecond)
			next, nextErr = ch.Read(0, tmc.IOIN, nil)
		}))
		require.NoError(t, err)

		line.rxCh <- line.transmitted(t)
		wait(t, first)
		require.Equal(t, tmc.TimedOut, first.Status())
		require.NoError(t, nextErr)

		tx := line.transmitted(t)
		require.Equal(t, tmc.ReadRequestLen, len(tx))
		reply := tmc.NewReplyFrame(tmc.IOIN, 0x21000040)
		line.rxCh <- append(tx, reply[:]...)
		wait(t, next)
		require.Equalf(t, tmc.CompletedOK, next.Status(), "round %d", round)
		require.Equal(t, uint32(0x21000040), next.Value())

		cancel()
		require.Equal(t, context.Canceled, <-errCh)
		close(line.rxCh)
	}
}
