package monitor

import "time"

// singleShot is a restartable one-shot timer. At most one firing is pending
// at a time; Start while pending reschedules instead of queueing a second
// firing. The event loop receives from C and must call fired() when it does.
type singleShot struct {
	d      time.Duration
	timer  *time.Timer
	active bool
}

func newSingleShot(d time.Duration) *singleShot {
	t := time.NewTimer(d)
	if !t.Stop() {
		<-t.C
	}
	return &singleShot{d: d, timer: t}
}

// Start arms the timer for a fresh window, cancelling any pending firing.
func (s *singleShot) Start() {
	s.Stop()
	s.timer.Reset(s.d)
	s.active = true
}

// Stop cancels a pending firing, draining a tick that already landed.
func (s *singleShot) Stop() {
	if !s.timer.Stop() {
		select {
		case <-s.timer.C:
		default:
		}
	}
	s.active = false
}

// Active reports whether a firing is pending.
func (s *singleShot) Active() bool { return s.active }

// C is the firing channel for the event loop's select.
func (s *singleShot) C() <-chan time.Time { return s.timer.C }

// fired records that the loop consumed a firing from C.
func (s *singleShot) fired() { s.active = false }
