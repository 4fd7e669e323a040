//go:build !linux

package selection

// noGuard is used on platforms without a selection buffer; nothing to wait
// for, always ready.
type noGuard struct{}

// New returns a guard that is always ready.
func New() Guard { return noGuard{} }

func (noGuard) Ready() bool { return true }
func (noGuard) Close()      {}
