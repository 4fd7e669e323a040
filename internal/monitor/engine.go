// Package monitor implements the clipboard change-detection engine. It owns
// the tracked-format configuration, the dedup fingerprint, and the debounce
// and selection-retry timers, and drives everything from one goroutine: all
// state is touched only by Run's event loop, so nothing here needs locking.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.clipscout.dev/clipscout/internal/board"
	"go.clipscout.dev/clipscout/internal/bundle"
	"go.clipscout.dev/clipscout/internal/message"
	"go.clipscout.dev/clipscout/internal/wire"
)

// Channel is the engine's view of the manager connection. *wire.Conn
// satisfies it; tests substitute one end of a net.Pipe.
type Channel interface {
	WriteFrame(payload []byte) error
	ReadFrame() ([]byte, error)
	Close() error
}

// Guard answers whether the selection buffer is safe to read right now.
// selection.Guard satisfies it.
type Guard interface {
	Ready() bool
}

// Config holds the monitor's behaviour flags. The manager mutates them at
// runtime through sparse settings messages; each recognized field in a
// settings payload overwrites only itself.
type Config struct {
	// Formats is the tracked MIME type allow-list; empty tracks everything.
	Formats []string

	CheckClipboard           bool
	CheckSelection           bool
	SyncClipboardToSelection bool
	SyncSelectionToClipboard bool
}

// Options tune the engine's timers. Zero values pick the defaults; tests
// shrink them to keep runs fast.
type Options struct {
	// UpdateInterval is the debounce window for manager-directed clipboard
	// writes (default 500ms).
	UpdateInterval time.Duration

	// RetryInterval is how long to wait before re-checking the selection
	// while a drag is in progress (default 100ms).
	RetryInterval time.Duration
}

const (
	defaultUpdateInterval = 500 * time.Millisecond
	defaultRetryInterval  = 100 * time.Millisecond
)

// Engine watches a Board for changes and reports them to the manager over a
// Channel, applying settings and clipboard-set directives pushed back the
// other way.
type Engine struct {
	board board.Board
	guard Guard
	ch    Channel
	log   *slog.Logger

	source string
	cfg    Config

	// lastDigest is the shared dedup fingerprint across both buffers;
	// bundle.EmptyDigest means nothing has been observed yet.
	lastDigest uint64

	// pending is the most recent manager-directed bundle awaiting the
	// debounce window. At most one exists; newer arrivals replace it.
	pending bundle.Bundle

	// selfWrite marks buffers this engine just wrote, so the notification
	// the write triggers is swallowed instead of echoed back as a change.
	selfWrite [2]bool

	update *singleShot
	retry  *singleShot

	inbox   chan []byte
	readErr chan error
}

// New builds an engine over the given board, guard, and manager channel.
func New(b board.Board, g Guard, ch Channel, source string, cfg Config, opts Options) *Engine {
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = defaultUpdateInterval
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	return &Engine{
		board:   b,
		guard:   g,
		ch:      ch,
		log:     slog.Default().With("component", "monitor"),
		source:  source,
		cfg:     cfg,
		update:  newSingleShot(opts.UpdateInterval),
		retry:   newSingleShot(opts.RetryInterval),
		inbox:   make(chan []byte, 16),
		readErr: make(chan error, 1),
	}
}

// Run drives the event loop until ctx is cancelled or the channel dies. A
// channel read failure is fatal and is returned; everything else is absorbed
// and logged. Run must be the only goroutine touching the engine's state.
func (e *Engine) Run(ctx context.Context) error {
	go e.reader()
	defer e.update.Stop()
	defer e.retry.Stop()

	e.log.Info("monitoring", "board", e.board.Name(),
		"selection", e.board.SupportsSelection(), "formats", e.cfg.Formats)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case m := <-e.board.Changed():
			e.onChanged(m)

		case payload := <-e.inbox:
			// Drain everything already buffered before going back to
			// sleep, so a burst of directives is handled as one batch.
			e.handlePayload(payload)
			e.drainInbox()

		case <-e.update.C():
			e.update.fired()
			if e.pending != nil {
				e.updateClipboard(e.pending, true)
			}

		case <-e.retry.C():
			e.retry.fired()
			e.checkBoard(board.ModeSelection)

		case err := <-e.readErr:
			return fmt.Errorf("manager channel failed: %w", err)
		}
	}
}

// drainInbox handles whatever frames are already buffered without blocking.
func (e *Engine) drainInbox() {
	for {
		select {
		case payload := <-e.inbox:
			e.handlePayload(payload)
		default:
			return
		}
	}
}

// reader feeds inbound frames to the loop. Any read error ends the engine;
// the channel is the monitor's whole reason to run.
func (e *Engine) reader() {
	for {
		payload, err := e.ch.ReadFrame()
		if err != nil {
			if errors.Is(err, wire.ErrDecode) {
				e.log.Warn("dropping undecodable frame", "err", err)
				continue
			}
			e.readErr <- err
			return
		}
		e.inbox <- payload
	}
}

// onChanged handles a native change notification for one buffer. The
// self-write marker is consumed here and only here: a programmatic write
// swallows exactly the next notification for that buffer.
func (e *Engine) onChanged(m board.Mode) {
	if e.selfWrite[m] {
		e.selfWrite[m] = false
		return
	}
	e.checkBoard(m)
}

// checkBoard reads a buffer, dedups against the shared fingerprint, and
// reports and/or mirrors the filtered contents.
func (e *Engine) checkBoard(m board.Mode) {
	report, mirror := e.cfg.CheckClipboard, e.cfg.SyncClipboardToSelection
	if m == board.ModeSelection {
		if !e.board.SupportsSelection() {
			return
		}
		report, mirror = e.cfg.CheckSelection, e.cfg.SyncSelectionToClipboard
	}
	if !report && !mirror {
		return
	}

	if m == board.ModeSelection {
		if e.retry.Active() {
			return
		}
		if !e.guard.Ready() {
			e.retry.Start()
			return
		}
		// A clipboard change racing this selection change wins; the
		// selection is about to be superseded. Best-effort peek only.
		if e.cfg.CheckClipboard {
			select {
			case m2 := <-e.board.Changed():
				if m2 == board.ModeClipboard {
					e.onChanged(m2)
				} else if e.selfWrite[m2] {
					// The queued event is the echo of our own earlier
					// selection write; consume its marker so the next
					// real change is not swallowed.
					e.selfWrite[m2] = false
				}
			default:
			}
		}
	}

	if e.board.Owns(m) {
		return
	}

	b, err := e.board.Read(m)
	if err != nil {
		e.log.Warn("read failed", "mode", m.String(), "err", err)
		return
	}

	digest := bundle.Digest(b, e.cfg.Formats)
	if digest == e.lastDigest {
		return
	}
	filtered := bundle.Filter(b, e.cfg.Formats)
	if len(filtered) == 0 {
		return
	}
	e.lastDigest = digest

	if report {
		e.report(filtered)
	}
	if mirror {
		e.writeBoard(m.Other(), filtered.Clone())
	}
}

// report sends a change message for items to the manager.
func (e *Engine) report(items bundle.Bundle) {
	msg := message.NewReport(e.source, items)
	payload, err := msg.Encode()
	if err != nil {
		e.log.Error("encode failed", "err", err)
		return
	}
	if err := e.ch.WriteFrame(payload); err != nil {
		e.log.Error("send failed", "err", err)
		return
	}
	e.log.Debug("reported change", "id", msg.ID, "mimes", items.MIMEs())
}

// writeBoard performs a programmatic buffer write, marking it so the
// resulting notification is not mistaken for a user change.
func (e *Engine) writeBoard(m board.Mode, b bundle.Bundle) {
	e.selfWrite[m] = true
	if err := e.board.Write(m, b); err != nil {
		e.selfWrite[m] = false
		e.log.Warn("write failed", "mode", m.String(), "err", err)
	}
}

// handlePayload decodes one inbound frame and dispatches it. A payload that
// will not parse is dropped; the channel stays open.
func (e *Engine) handlePayload(payload []byte) {
	msg, err := message.Decode(payload)
	if err != nil {
		e.log.Warn("dropping bad message", "err", err)
		return
	}
	if msg.IsSettings() {
		e.applySettings(msg.Settings)
		return
	}
	if len(msg.Items) == 0 {
		return
	}
	e.updateClipboard(msg.Items, false)
}

// applySettings merges a sparse settings payload into the config. Selection
// keys only apply where a selection buffer exists. Afterwards the selection
// (where supported) and then the clipboard are re-checked so a flipped flag
// can surface an already-pending change without waiting for the next native
// notification. The clipboard re-check runs on every platform.
func (e *Engine) applySettings(s *message.Settings) {
	if s.LastDigest != nil && e.lastDigest == bundle.EmptyDigest {
		e.lastDigest = *s.LastDigest
	}
	if s.Formats != nil {
		e.cfg.Formats = bundle.ParseFormats(*s.Formats)
	}
	if s.CheckClipboard != nil {
		e.cfg.CheckClipboard = *s.CheckClipboard
	}
	if e.board.SupportsSelection() {
		if s.CheckSelection != nil {
			e.cfg.CheckSelection = *s.CheckSelection
		}
		if s.SyncClipboardToSelection != nil {
			e.cfg.SyncClipboardToSelection = *s.SyncClipboardToSelection
		}
		if s.SyncSelectionToClipboard != nil {
			e.cfg.SyncSelectionToClipboard = *s.SyncSelectionToClipboard
		}
		e.checkBoard(board.ModeSelection)
	}
	e.checkBoard(board.ModeClipboard)
	e.log.Debug("settings applied", "formats", e.cfg.Formats,
		"clipboard", e.cfg.CheckClipboard, "selection", e.cfg.CheckSelection)
}

// updateClipboard applies a manager-directed bundle to the platform buffers,
// debounced: during an active window the bundle just replaces pending and is
// written when the window elapses. Writes update the dedup fingerprint over
// every MIME type present so the manager's own data never echoes back.
func (e *Engine) updateClipboard(b bundle.Bundle, force bool) {
	e.pending = b
	if !force && e.update.Active() {
		return
	}

	e.lastDigest = bundle.Digest(b, nil)
	e.writeBoard(board.ModeClipboard, b)
	if e.board.SupportsSelection() {
		e.writeBoard(board.ModeSelection, b.Clone())
	}
	e.pending = nil
	e.update.Start()
}
