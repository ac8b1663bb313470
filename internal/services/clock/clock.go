// Package clock provides the monotonic millisecond counter that drives all animation timing.
//
// Millisecond values are uint32 and wrap after roughly 49.7 days. All duration math on them
// must use unsigned subtraction (now - then), which stays correct across the wrap.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonically increasing millisecond counter.
type Clock interface {
	Millis() uint32
}

// System counts milliseconds since it was created, using the monotonic clock.
type System struct {
	start time.Time
}

// NewSystem creates a System clock starting at zero.
func NewSystem() *System {
	return &System{start: time.Now()}
}

// Millis returns the milliseconds elapsed since creation, truncated to 32 bits.
func (s *System) Millis() uint32 {
	return uint32(time.Since(s.start).Milliseconds())
}

// Manual is a clock that only moves when told to. It is safe for concurrent use.
type Manual struct {
	now atomic.Uint32
}

// NewManual creates a manual clock set to start.
func NewManual(start uint32) *Manual {
	m := &Manual{}
	m.now.Store(start)
	return m
}

// Millis returns the current manual time.
func (m *Manual) Millis() uint32 {
	return m.now.Load()
}

// Set sets the current time.
func (m *Manual) Set(ms uint32) {
	m.now.Store(ms)
}

// Advance moves the clock forward by ms, wrapping at 2^32.
func (m *Manual) Advance(ms uint32) uint32 {
	return m.now.Add(ms)
}

// Since returns now - then using wrap-tolerant unsigned arithmetic.
func Since(now, then uint32) uint32 {
	return now - then
}
