// Package wire frames opaque payloads over a net.Conn for the monitor
// protocol, with optional NaCl secretbox encryption.
//
// Frame format:
//
//	[ 4-byte big-endian payload length ][ payload ]
//
// With encryption enabled the payload is nonce+ciphertext; the framing is
// identical either way. What the payload means is the caller's business —
// the channel treats it as opaque bytes.
package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"go.clipscout.dev/clipscout/internal/crypto"
)

const (
	// MaxFrameSize is the largest payload we will read or write (16 MiB).
	MaxFrameSize = 16 * 1024 * 1024

	writeDeadline = 5 * time.Second
)

// ErrDecode marks failures that invalidate a single frame but leave the
// channel itself healthy: a failed decrypt, or a payload the caller cannot
// parse. Callers drop the frame and keep reading. Any other read error is a
// channel failure.
var ErrDecode = errors.New("frame decode failed")

// Conn wraps a net.Conn with length-prefixed framing and optional encryption.
type Conn struct {
	conn net.Conn
	br   *bufio.Reader
	key  *[32]byte // nil = no encryption
}

// New wraps conn. If key is non-nil every payload is sealed with NaCl
// secretbox before being written and opened after being read.
func New(conn net.Conn, key *[32]byte) *Conn {
	return &Conn{
		conn: conn,
		br:   bufio.NewReaderSize(conn, 64*1024),
		key:  key,
	}
}

// Underlying returns the underlying net.Conn.
func (c *Conn) Underlying() net.Conn { return c.conn }

// SetReadDeadline sets or clears the read deadline.
func (c *Conn) SetReadDeadline(d time.Duration) {
	if d == 0 {
		_ = c.conn.SetReadDeadline(time.Time{})
	} else {
		_ = c.conn.SetReadDeadline(time.Now().Add(d))
	}
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.conn.Close() }

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// WriteFrame seals payload if a key is set and writes it as one frame.
func (c *Conn) WriteFrame(payload []byte) error {
	if c.key != nil {
		sealed, err := crypto.Seal(payload, c.key)
		if err != nil {
			return fmt.Errorf("encrypt: %w", err)
		}
		payload = sealed
	}
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("frame too large (%d bytes)", len(payload))
	}

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	defer func() { _ = c.conn.SetWriteDeadline(time.Time{}) }()

	if _, err := c.conn.Write(hdr[:]); err != nil {
		return err
	}
	_, err := c.conn.Write(payload)
	return err
}

// ReadFrame reads one frame and returns its payload, decrypted if a key is
// set. A failed decrypt returns an error wrapping ErrDecode; everything else
// that goes wrong here is a channel-level failure.
func (c *Conn) ReadFrame() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(c.br, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("frame too large (%d bytes)", n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(c.br, payload); err != nil {
		return nil, err
	}

	if c.key != nil {
		plain, err := crypto.Open(payload, c.key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		payload = plain
	}
	return payload, nil
}
