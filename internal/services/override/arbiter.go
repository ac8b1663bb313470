// Package override arbitrates between procedural rendering and direct pixel writes
// from outside. An accepted write takes over the whole frame until one cycle duration
// has passed without further writes.
package override

import (
	"sync/atomic"

	"github.com/bbernstein/lacylights-strip/internal/services/clock"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// Write is one external pixel write.
type Write struct {
	Pixel int
	Color rgb.Color
}

// Arbiter applies external writes to the frame and tracks the suppression window.
// It is owned by the frame driver goroutine; only Stats may be called elsewhere.
type Arbiter struct {
	frame     rgb.Frame
	window    func() uint32
	lastWrite uint32
	written   bool
	accepted  atomic.Uint64
	ignored   atomic.Uint64
}

// NewArbiter creates an arbiter writing into frame. window returns the current
// suppression duration in milliseconds.
func NewArbiter(frame rgb.Frame, window func() uint32) *Arbiter {
	return &Arbiter{frame: frame, window: window}
}

// ApplyExternalWrite sets one pixel and restarts the suppression window.
// Out-of-range pixels are ignored and do not touch the window.
func (a *Arbiter) ApplyExternalWrite(pixel int, c rgb.Color, at uint32) bool {
	if !a.frame.Set(pixel, c) {
		a.ignored.Add(1)
		return false
	}
	a.lastWrite = at
	a.written = true
	a.accepted.Add(1)
	return true
}

// IsSuppressed reports whether procedural rendering is suppressed at the given time.
func (a *Arbiter) IsSuppressed(at uint32) bool {
	return a.written && clock.Since(at, a.lastWrite) < a.window()
}

// Reset forgets all writes, ending any suppression. Expired writes must be reset
// before the clock wraps back into their window.
func (a *Arbiter) Reset() {
	a.written = false
	a.lastWrite = 0
}

// Stats returns the number of accepted and ignored writes.
func (a *Arbiter) Stats() (accepted, ignored uint64) {
	return a.accepted.Load(), a.ignored.Load()
}
