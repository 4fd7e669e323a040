//go:build linux

package selection

import (
	"log/slog"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// x11Guard queries the pointer state over its own X connection. The
// connection opens lazily on first use and reopens after any failure, so a
// display that comes and goes (or is absent at startup) degrades to "never
// ready" instead of crashing the monitor.
type x11Guard struct {
	conn *xgb.Conn
	root xproto.Window
}

// New returns the X11 selection guard.
func New() Guard {
	return &x11Guard{}
}

func (g *x11Guard) Ready() bool {
	if g.conn == nil {
		conn, err := xgb.NewConn()
		if err != nil {
			slog.Debug("selection guard: cannot open display", "err", err)
			return false
		}
		g.conn = conn
		g.root = xproto.Setup(conn).DefaultScreen(conn).Root
	}

	reply, err := xproto.QueryPointer(g.conn, g.root).Reply()
	if err != nil {
		slog.Debug("selection guard: pointer query failed", "err", err)
		g.Close()
		return false
	}

	// Button1 held means a mouse drag; shift held means a keyboard
	// selection may be growing. Either way the selection is incomplete.
	const busy = xproto.KeyButMaskButton1 | xproto.KeyButMaskShift
	return reply.Mask&busy == 0
}

func (g *x11Guard) Close() {
	if g.conn != nil {
		g.conn.Close()
		g.conn = nil
	}
}
