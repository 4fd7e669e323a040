// Package board provides a unified interface to the platform clipboard
// buffers. Build constraints select the implementation:
//
//	board_linux.go   — X11/Wayland via golang.design/x/clipboard (CLIPBOARD,
//	                   polling) plus xclip for the PRIMARY selection
//	board_darwin.go  — macOS via golang.design/x/clipboard + cgo changeCount
//	board_windows.go — Windows via golang.design/x/clipboard +
//	                   AddClipboardFormatListener
//	board_other.go   — headless / container stub
//
// Only the Linux backend exposes a selection buffer; everywhere else
// SupportsSelection reports false and selection operations are no-ops.
package board

import "go.clipscout.dev/clipscout/internal/bundle"

// Mode names one of the two platform buffers.
type Mode int

const (
	// ModeClipboard is the explicit copy/paste buffer.
	ModeClipboard Mode = iota
	// ModeSelection is the X11 PRIMARY buffer fed by mouse selection.
	ModeSelection
)

func (m Mode) String() string {
	if m == ModeSelection {
		return "selection"
	}
	return "clipboard"
}

// Other returns the opposite buffer, for mirroring.
func (m Mode) Other() Mode {
	if m == ModeClipboard {
		return ModeSelection
	}
	return ModeClipboard
}

// Board is the interface all platform implementations satisfy.
type Board interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current contents of the given buffer as a bundle.
	// An empty buffer yields an empty bundle, not an error.
	Read(m Mode) (bundle.Bundle, error)

	// Write replaces the contents of the given buffer.
	Write(m Mode, b bundle.Bundle) error

	// Owns reports whether this process currently owns the buffer, where
	// the platform can tell. Backends that cannot tell report false; the
	// engine keeps its own self-write marker for exactly that reason.
	Owns(m Mode) bool

	// SupportsSelection reports whether ModeSelection is a real buffer here.
	SupportsSelection() bool

	// Changed returns a channel that receives the affected Mode whenever a
	// buffer changes. The channel is never closed. On platforms without
	// native change notification this is implemented via polling. The
	// receiver should Read() the named buffer on each event.
	Changed() <-chan Mode

	// Close releases any resources held by the backend.
	Close()
}
