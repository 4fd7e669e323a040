package wire

import (
	"bytes"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.clipscout.dev/clipscout/internal/crypto"
)

// pipe returns two framed ends of an in-memory connection.
func pipe(t *testing.T, key *[32]byte) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return New(a, key), New(b, key)
}

func TestRoundTrip(t *testing.T) {
	a, b := pipe(t, nil)

	payloads := [][]byte{
		[]byte("hello"),
		{},
		bytes.Repeat([]byte{0x00, 0xff}, 1024),
	}

	done := make(chan error, 1)
	go func() {
		for _, p := range payloads {
			if err := a.WriteFrame(p); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	for _, want := range payloads {
		got, err := b.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	require.NoError(t, <-done)
}

func TestRoundTripEncrypted(t *testing.T) {
	key, err := crypto.DeriveKey("hunter2")
	require.NoError(t, err)
	a, b := pipe(t, key)

	go func() { _ = a.WriteFrame([]byte("secret")) }()
	got, err := b.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), got)
}

func TestWrongKeyIsDecodeError(t *testing.T) {
	k1, err := crypto.DeriveKey("one")
	require.NoError(t, err)
	k2, err := crypto.DeriveKey("two")
	require.NoError(t, err)

	ac, bc := net.Pipe()
	t.Cleanup(func() { ac.Close(); bc.Close() })
	a, b := New(ac, k1), New(bc, k2)

	go func() { _ = a.WriteFrame([]byte("secret")) }()
	_, err = b.ReadFrame()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode), "decrypt failure must be drop-and-continue, got %v", err)
}

func TestOversizeHeaderRejected(t *testing.T) {
	ac, bc := net.Pipe()
	t.Cleanup(func() { ac.Close(); bc.Close() })
	b := New(bc, nil)

	go func() {
		// 17 MiB announced length.
		_, _ = ac.Write([]byte{0x01, 0x10, 0x00, 0x00})
	}()

	_, err := b.ReadFrame()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDecode), "oversize frames are a channel failure")
}

func TestWriteOversizeRejected(t *testing.T) {
	ac, _ := net.Pipe()
	t.Cleanup(func() { ac.Close() })
	a := New(ac, nil)
	err := a.WriteFrame(make([]byte, MaxFrameSize+1))
	assert.Error(t, err)
}

func TestReadAfterPeerClose(t *testing.T) {
	ac, bc := net.Pipe()
	b := New(bc, nil)
	require.NoError(t, ac.Close())
	_, err := b.ReadFrame()
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrDecode))
	bc.Close()
}
