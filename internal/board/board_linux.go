//go:build linux

package board

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.design/x/clipboard"

	"go.clipscout.dev/clipscout/internal/bundle"
)

const (
	clipboardPollInterval = 250 * time.Millisecond
	selectionPollInterval = 500 * time.Millisecond
)

type linuxBoard struct {
	changed chan Mode
	done    chan struct{}

	selection bool // xclip + display available

	lastText []byte
	lastImg  []byte
	lastSel  []byte
}

// New returns the Linux board, or a headless no-op board if the display
// environment is unavailable. clipboard.Init is called here rather than in
// init() so CLI sub-commands that never touch the clipboard stay quiet.
//
// The CLIPBOARD buffer is handled by golang.design/x/clipboard (text and
// PNG). The PRIMARY selection has no pure-Go driver there, so it is bridged
// through xclip and carries text only; without xclip or a display the board
// runs in clipboard-only mode.
func New() Board {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return newHeadless()
	}
	b := &linuxBoard{
		changed:   make(chan Mode, 2),
		done:      make(chan struct{}),
		selection: selectionAvailable(),
	}
	if !b.selection {
		slog.Info("PRIMARY selection unavailable (xclip or display missing), clipboard only")
	}
	go b.poll()
	return b
}

func selectionAvailable() bool {
	if os.Getenv("DISPLAY") == "" {
		return false
	}
	_, err := exec.LookPath("xclip")
	return err == nil
}

func (b *linuxBoard) Name() string {
	if b.selection {
		return "Linux clipboard+selection (poll)"
	}
	return "Linux clipboard (poll)"
}

func (b *linuxBoard) poll() {
	clip := time.NewTicker(clipboardPollInterval)
	defer clip.Stop()
	sel := time.NewTicker(selectionPollInterval)
	defer sel.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-clip.C:
			text := clipboard.Read(clipboard.FmtText)
			img := clipboard.Read(clipboard.FmtImage)
			if !bytes.Equal(text, b.lastText) || !bytes.Equal(img, b.lastImg) {
				b.lastText = text
				b.lastImg = img
				b.notify(ModeClipboard)
			}
		case <-sel.C:
			if !b.selection {
				continue
			}
			cur, err := readPrimary()
			if err != nil {
				continue // transient; next tick retries
			}
			if !bytes.Equal(cur, b.lastSel) {
				b.lastSel = cur
				b.notify(ModeSelection)
			}
		}
	}
}

func (b *linuxBoard) notify(m Mode) {
	select {
	case b.changed <- m:
	default:
	}
}

func (b *linuxBoard) Read(m Mode) (bundle.Bundle, error) {
	if m == ModeSelection {
		if !b.selection {
			return nil, nil
		}
		text, err := readPrimary()
		if err != nil {
			return nil, err
		}
		if len(text) == 0 {
			return nil, nil
		}
		return bundle.Bundle{{MIME: "text/plain", Data: text}}, nil
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

func (b *linuxBoard) Write(m Mode, items bundle.Bundle) error {
	if m == ModeSelection {
		if !b.selection {
			return nil
		}
		if text, ok := items.Get("text/plain"); ok {
			return writePrimary(text)
		}
		return nil // selection carries text only
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

// Owns always reports false on Linux: neither golang.design/x/clipboard nor
// the xclip bridge exposes selection ownership. The engine's self-write
// marker does the suppression instead.
func (b *linuxBoard) Owns(Mode) bool { return false }

func (b *linuxBoard) SupportsSelection() bool { return b.selection }
func (b *linuxBoard) Changed() <-chan Mode    { return b.changed }
func (b *linuxBoard) Close()                  { close(b.done) }

// readPrimary reads the PRIMARY selection via xclip. An empty selection makes
// xclip exit 1, which is not an error here.
func readPrimary() ([]byte, error) {
	out, err := exec.Command("xclip", "-selection", "primary", "-o").Output()
	if err != nil {
		if strings.Contains(err.Error(), "exit status 1") {
			return nil, nil
		}
		return nil, fmt.Errorf("read PRIMARY selection: %w", err)
	}
	return out, nil
}

// writePrimary writes text to the PRIMARY selection via xclip.
func writePrimary(text []byte) error {
	cmd := exec.Command("xclip", "-selection", "primary", "-i")
	cmd.Stdin = bytes.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("write PRIMARY selection: %w", err)
	}
	return nil
}
