// Package selection guards the X11 PRIMARY buffer against mid-drag reads.
//
// While the user is still sweeping out a selection (mouse button held, or
// shift held for keyboard selection) the PRIMARY contents are incomplete;
// reading them would report a truncated selection. The guard answers "is it
// safe to read the selection right now" by querying the pointer button and
// modifier state; the engine defers and retries while it says no.
package selection

// Guard reports whether the selection buffer is safe to read.
type Guard interface {
	// Ready returns true when no selection drag appears to be in progress.
	// When the platform state cannot be queried the guard errs on the side
	// of "not yet" rather than failing.
	Ready() bool

	// Close releases the guard's platform connection, if any.
	Close()
}
