// Package ipc locates and opens the local socket that connects monitor
// processes to the clipscout manager. The manager listens; each monitor
// dials once at startup and keeps the connection for its lifetime.
package ipc

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// ConnectTimeout bounds the one blocking wait a monitor is allowed: the
// startup dial. Missing it is fatal.
const ConnectTimeout = 2 * time.Second

// SocketPath returns the platform-appropriate path for the manager socket.
//
//   - Linux: $XDG_RUNTIME_DIR/clipscout.sock when set
//     (override with $CLIPSCOUT_SOCKET)
//   - macOS / fallback: $TMPDIR/clipscout.sock
//   - Windows: \\.\pipe\clipscout (named pipe — not yet implemented)
func SocketPath() string {
	if s := os.Getenv("CLIPSCOUT_SOCKET"); s != "" {
		return s
	}
	if runtime.GOOS == "windows" {
		return `\\.\pipe\clipscout`
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "clipscout.sock")
	}
	return filepath.Join(os.TempDir(), "clipscout.sock")
}

// Listen creates a net.Listener on the socket path, removing any stale
// socket file from a previous (crashed) run first.
func Listen(path string) (net.Listener, error) {
	if path == "" {
		path = SocketPath()
	}
	_ = os.Remove(path)
	return net.Listen("unix", path)
}

// Dial connects to the manager socket with the bounded startup timeout.
func Dial(path string) (net.Conn, error) {
	if path == "" {
		path = SocketPath()
	}
	return net.DialTimeout("unix", path, ConnectTimeout)
}

// IsRunning reports whether a manager is accepting connections on path.
func IsRunning(path string) bool {
	conn, err := Dial(path)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
