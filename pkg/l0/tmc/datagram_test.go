package tmc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWriteFrame(t *testing.T) {
	f := NewWriteFrame(0, GCONF, 0xaabbccdd)
	require.Equal(t, DataFrame{0x05, 0x00, 0x80, 0xaa, 0xbb, 0xcc, 0xdd, 0xab}, f)
	require.True(t, f.Valid())
	require.True(t, f.IsWrite())
	require.Equal(t, GCONF, f.Register())
	require.Equal(t, uint32(0xaabbccdd), f.Value())

	f = NewWriteFrame(0, IHOLDIRUN, 0x00011f0a)
	require.Equal(t, byte(0x90), f[2])
	require.Equal(t, byte(0x50), f[7])
}

func TestNewReadRequest(t *testing.T) {
	r := NewReadRequest(0, IOIN)
	require.Equal(t, ReadRequest{0x05, 0x00, 0x06, 0x6f}, r)
	require.Zero(t, r[2]&WriteFlag, "read has rw=0")
	require.Equal(t, CRC(r[:]), r[3])
	require.True(t, r.Valid())
	require.Equal(t, IOIN, r.Register())
	require.Equal(t, uint8(0), r.Device())

	r = NewReadRequest(3, SGRESULT)
	require.Equal(t, ReadRequest{0x05, 0x03, 0x41, 0x22}, r)
}

func TestParseDataFrame(t *testing.T) {
	f, err := ParseDataFrame([]byte{0x05, 0xff, 0x06, 0x00, 0x00, 0x00, 0x40, 0x26})
	require.NoError(t, err)
	require.True(t, f.Valid())
	require.False(t, f.IsWrite())
	require.Equal(t, uint8(0xff), f.Device())
	require.Equal(t, uint32(0x40), f.Value())

	f[7] ^= 0x01
	require.False(t, f.Valid())

	_, err = ParseDataFrame([]byte{0x05, 0xff})
	require.True(t, errors.Is(err, ErrFrameLength))
}

func TestNewReplyFrame(t *testing.T) {
	f := NewReplyFrame(IFCNT, 5)
	require.Equal(t, DataFrame{0x05, 0xff, 0x02, 0x00, 0x00, 0x00, 0x05, 0x25}, f)
	require.Equal(t, "05 ff 02 00 00 00 05 25", f.String())
}
