package board

import "go.clipscout.dev/clipscout/internal/bundle"

// headlessBoard is a no-op backend for environments without a display server
// (headless servers, containers, CI). It never produces change events and
// silently discards writes.
type headlessBoard struct {
	changed chan Mode
}

func newHeadless() *headlessBoard {
	return &headlessBoard{changed: make(chan Mode)}
}

func (b *headlessBoard) Name() string                     { return "headless (no-op)" }
func (b *headlessBoard) Read(Mode) (bundle.Bundle, error) { return nil, nil }
func (b *headlessBoard) Write(Mode, bundle.Bundle) error  { return nil }
func (b *headlessBoard) Owns(Mode) bool                   { return false }
func (b *headlessBoard) SupportsSelection() bool          { return false }
func (b *headlessBoard) Changed() <-chan Mode             { return b.changed }
func (b *headlessBoard) Close()                           {}
