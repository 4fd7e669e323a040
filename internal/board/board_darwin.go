//go:build darwin

package board

// #cgo CFLAGS: -x objective-c
// #cgo LDFLAGS: -framework Cocoa
// #import <Cocoa/Cocoa.h>
//
// NSInteger clipscout_changeCount() {
//     return [[NSPasteboard generalPasteboard] changeCount];
// }
import "C"

import (
	"fmt"
	"log/slog"
	"time"

	"golang.design/x/clipboard"

	"go.clipscout.dev/clipscout/internal/bundle"
)

const darwinPollInterval = 100 * time.Millisecond

type darwinBoard struct {
	lastChange C.NSInteger
	changed    chan Mode
	done       chan struct{}
}

// New returns the macOS board. There is no separate selection buffer on
// macOS, so ModeSelection is a no-op. clipboard.Init is called here rather
// than in init() so CLI sub-commands stay quiet on headless systems.
func New() Board {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard init failed", "err", err)
	}
	b := &darwinBoard{
		lastChange: C.clipscout_changeCount(),
		changed:    make(chan Mode, 1),
		done:       make(chan struct{}),
	}
	go b.poll()
	return b
}

func (b *darwinBoard) Name() string { return "macOS NSPasteboard" }

func (b *darwinBoard) poll() {
	t := time.NewTicker(darwinPollInterval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			cc := C.clipscout_changeCount()
			if cc != b.lastChange {
				b.lastChange = cc
				select {
				case b.changed <- ModeClipboard:
				default:
				}
			}
		}
	}
}

func (b *darwinBoard) Read(m Mode) (bundle.Bundle, error) {
	if m == ModeSelection {
		return nil, nil
	}
	var items bundle.Bundle
	if text := clipboard.Read(clipboard.FmtText); text != nil {
		items = append(items, bundle.Item{MIME: "text/plain", Data: text})
	}
	if img := clipboard.Read(clipboard.FmtImage); img != nil {
		items = append(items, bundle.Item{MIME: "image/png", Data: img})
	}
	return items, nil
}

func (b *darwinBoard) Write(m Mode, items bundle.Bundle) error {
	if m == ModeSelection {
		return nil
	}
	for _, it := range items {
		switch it.MIME {
		case "text/plain":
			clipboard.Write(clipboard.FmtText, it.Data)
		case "image/png":
			clipboard.Write(clipboard.FmtImage, it.Data)
		default:
			return fmt.Errorf("unsupported MIME type: %s", it.MIME)
		}
	}
	return nil
}

func (b *darwinBoard) Owns(Mode) bool          { return false }
func (b *darwinBoard) SupportsSelection() bool { return false }
func (b *darwinBoard) Changed() <-chan Mode    { return b.changed }
func (b *darwinBoard) Close()                  { close(b.done) }
