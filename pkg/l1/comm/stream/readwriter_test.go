package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type testStream struct {
	bytes.Buffer
}

func TestReadWritePackets(t *testing.T) {
	s := &testStream{}
	rw := New(s)
	big := bytes.Repeat([]byte{0x5a}, 300)
	require.NoError(t, rw.WritePacket([]byte{1, 2, 3}))
	require.NoError(t, rw.WritePacket(nil))
	require.NoError(t, rw.WritePacket(big))
	require.Equal(t, []byte{3, 1, 2, 3, 0, 0xac, 0x02}, s.Bytes()[:7])

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, big, pkt)
	_, err = rw.ReadPacket()
	require.Equal(t, io.EOF, err)
}

func TestPacketTooLarge(t *testing.T) {
	s := &testStream{}
	rw := New(s)
	require.Equal(t, ErrPacketTooLarge, rw.WritePacket(make([]byte, MaxPacketSize+1)))
	s.Write([]byte{0x80, 0x80, 0x08})
	_, err := rw.ReadPacket()
	require.Equal(t, ErrPacketTooLarge, err)
}
