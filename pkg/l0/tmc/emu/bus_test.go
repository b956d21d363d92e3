package emu

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/tmc.go/pkg/l0/tmc"
)

func readN(t *testing.T, b *Bus, n int) []byte {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		c, err := b.Read(buf[:n-len(out)])
		require.NoError(t, err)
		out = append(out, buf[:c]...)
	}
	return out
}

func TestBusRead(t *testing.T) {
	b := NewBus(NewDevice(0))
	req := tmc.NewReadRequest(0, tmc.IOIN)
	_, err := b.Write(req[:])
	require.NoError(t, err)
	out := readN(t, b, tmc.ReadRequestLen+tmc.DataFrameLen)
	require.Equal(t, req[:], out[:4], "echo")
	reply, err := tmc.ParseDataFrame(out[4:])
	require.NoError(t, err)
	require.True(t, reply.Valid())
	require.Equal(t, uint8(0xff), reply.Device())
	require.Equal(t, tmc.IOIN, reply.Register())
	require.Equal(t, uint32(Version), tmc.FieldIOINVersion.Get(reply.Value()))
}

func TestBusWrite(t *testing.T) {
	dev := NewDevice(1)
	b := NewBus(NewDevice(0), dev)
	frame := tmc.NewWriteFrame(1, tmc.CHOPCONF, 0x10000054)
	// split writes are reassembled
	_, err := b.Write(frame[:3])
	require.NoError(t, err)
	_, err = b.Write(frame[3:])
	require.NoError(t, err)
	require.Equal(t, frame[:], readN(t, b, tmc.DataFrameLen))
	require.Equal(t, uint32(0x10000054), dev.Get(tmc.CHOPCONF))
	require.Equal(t, uint32(1), dev.Get(tmc.IFCNT))
	require.Equal(t, uint32(0x10000053), b.Device(0).Get(tmc.CHOPCONF), "other devices untouched")
}

func TestBusWriteAccess(t *testing.T) {
	dev := NewDevice(0)
	b := NewBus(dev)
	dev.Set(tmc.GSTAT, 0x7)
	for _, f := range []tmc.DataFrame{
		tmc.NewWriteFrame(0, tmc.GSTAT, 0x1),
		tmc.NewWriteFrame(0, tmc.IFCNT, 0x55),
	} {
		_, err := b.Write(f[:])
		require.NoError(t, err)
	}
	require.Equal(t, uint32(0x6), dev.Get(tmc.GSTAT), "write 1 to clear")
	require.Equal(t, uint32(2), dev.Get(tmc.IFCNT), "IFCNT is read-only")

	dev.Set(tmc.IFCNT, 0xff)
	f := tmc.NewWriteFrame(0, tmc.GCONF, 0)
	_, err := b.Write(f[:])
	require.NoError(t, err)
	require.Equal(t, uint32(0), dev.Get(tmc.IFCNT), "IFCNT wraps")
}

func TestBusIgnoresCorrupted(t *testing.T) {
	dev := NewDevice(0)
	b := NewBus(dev)
	frame := tmc.NewWriteFrame(0, tmc.GCONF, 0x1c0)
	frame[7] ^= 0x01
	req := tmc.NewReadRequest(0, tmc.GCONF)
	_, err := b.Write(append(frame[:], req[:]...))
	require.NoError(t, err)
	out := readN(t, b, tmc.DataFrameLen+tmc.ReadRequestLen+tmc.DataFrameLen)
	reply, err := tmc.ParseDataFrame(out[12:])
	require.NoError(t, err)
	require.Equal(t, uint32(0x41), reply.Value(), "corrupted write not applied")
	require.Equal(t, uint32(0), dev.Get(tmc.IFCNT))
}

func TestBusFaults(t *testing.T) {
	b := NewBus(NewDevice(0))
	b.Inject(Faults{DropReplies: 1, CorruptReplies: 1})
	req := tmc.NewReadRequest(0, tmc.GCONF)

	_, err := b.Write(req[:])
	require.NoError(t, err)
	require.Equal(t, req[:], readN(t, b, tmc.ReadRequestLen))
	require.True(t, b.tx.Empty(), "reply dropped")

	_, err = b.Write(req[:])
	require.NoError(t, err)
	out := readN(t, b, tmc.ReadRequestLen+tmc.DataFrameLen)
	reply, _ := tmc.ParseDataFrame(out[4:])
	require.False(t, reply.Valid())

	_, err = b.Write(req[:])
	require.NoError(t, err)
	out = readN(t, b, tmc.ReadRequestLen+tmc.DataFrameLen)
	reply, _ = tmc.ParseDataFrame(out[4:])
	require.True(t, reply.Valid())
}

func TestBusNoDevice(t *testing.T) {
	b := NewBus(NewDevice(0))
	req := tmc.NewReadRequest(3, tmc.GCONF)
	_, err := b.Write(req[:])
	require.NoError(t, err)
	require.Equal(t, req[:], readN(t, b, tmc.ReadRequestLen))
	require.True(t, b.tx.Empty())
}

func TestBusClose(t *testing.T) {
	b := NewBus()
	done := make(chan error, 1)
	go func() {
		_, err := b.Read(make([]byte, 1))
		done <- err
	}()
	require.NoError(t, b.Close())
	require.Equal(t, io.EOF, <-done)
	_, err := b.Write([]byte{0})
	require.Equal(t, io.ErrClosedPipe, err)
}
