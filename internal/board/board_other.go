//go:build !linux && !darwin && !windows

package board

// New returns a no-op board suitable for headless platforms.
func New() Board {
	return newHeadless()
}
