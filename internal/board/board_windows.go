//go:build windows

package board

// #cgo LDFLAGS: -luser32
//
// #include <windows.h>
// #include <stdlib.h>
//
// static HWND clipscout_create_listener_window();
// static void clipscout_pump_messages(HWND hwnd, int* changed);
//
// static LRESULT CALLBACK clipscout_wnd_proc(HWND hwnd, UINT msg, WPARAM wp, LPARAM lp) {
//     if (msg == WM_CLIPBOARDUPDATE) {
//         PostMessage(hwnd, WM_USER + 1, 0, 0);
//         return 0;
//     }
//     return DefWindowProc(hwnd, msg, wp, lp);
// }
//
// static HWND clipscout_create_listener_window() {
//     WNDCLASS wc = {0};
//     wc.lpfnWndProc   = clipscout_wnd_proc;
//     wc.hInstance     = GetModuleHandle(NULL);
//     wc.lpszClassName = "ClipscoutClipboard";
//     RegisterClass(&wc);
//     HWND hwnd = CreateWindowEx(0, "ClipscoutClipboard", NULL, 0,
//         0, 0, 0, 0, HWND_MESSAGE, NULL, GetModuleHandle(NULL), NULL);
//     AddClipboardFormatListener(hwnd);
//     return hwnd;
// }
//
// static void clipscout_pump_messages(HWND hwnd, int* changed) {
//     MSG msg;
//     *changed = 0;
//     while (PeekMessage(&msg, hwnd, 0, 0, PM_REMOVE)) {
//         if (msg.message == WM_USER + 1) { *changed = 1; }
//         TranslateMessage(&msg);
//         DispatchMessage(&msg);
//     }
// }
import "C"

import (
	"fmt"
	"log/slog"
	"time"

	"golang.design/x/clipboard"

	"go.clipscout.dev/clipscout/internal/bundle"
)

type windowsBoard struct {
	hwnd    C.HWND
	changed chan Mode
	done    chan struct{}
}

// New returns the Windows board using AddClipboardFormatListener. Windows has
// no selection buffer, so ModeSelection is a no-op. clipboard.Init is called
// here rather than in init() so CLI sub-commands stay quiet on headless
// systems.
func New() Board {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard init failed", "err", err)
	}
	hwnd := C.clipscout_create_listener_window()
	b := &windowsBoard{
		hwnd:    hwnd,
		changed: make(chan Mode, 1),
		done:    make(chan struct{}),
	}
	go b.pump()
	return b
}

func (b *windowsBoard) Name() string { return "Windows Clipboard" }

func (b *windowsBoard) pump() {
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			var changed C.int
			C.clipscout_pump_messages(b.hwnd, &changed)
			if changed != 0 {
				select {
				case b.changed <- ModeClipboard:
				default:
				}
			}
		}
	}
}

func (b *windowsBoard) Read(m Mode) (bundle.Bundle, error) {
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

func (b *windowsBoard) Write(m Mode, items bundle.Bundle) error {
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

func (b *windowsBoard) Owns(Mode) bool          { return false }
func (b *windowsBoard) SupportsSelection() bool { return false }
func (b *windowsBoard) Changed() <-chan Mode    { return b.changed }
func (b *windowsBoard) Close()                  { close(b.done) }
