// Package modes implements the mode dispatch table: an ordered registry of generators,
// the current mode selector and the once-per-transition activation of spark modes.
package modes

import (
	"sync/atomic"

	"github.com/bbernstein/lacylights-strip/internal/services/generator"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// DefaultMode is the mode used at startup and for out-of-range requests.
const DefaultMode = 0

// none marks "no procedural mode active" in the previous-mode bookkeeping.
const none = -1

// Entry is one registered mode.
type Entry struct {
	Name      string
	Generator generator.Generator
}

// Table dispatches rendering to the generator of the requested mode.
//
// SetMode, Mode and Invalidate may be called from any goroutine. Prepare, ColorAt,
// Suspend and Resume belong to the frame driver goroutine.
type Table struct {
	entries []Entry

	requested  atomic.Int64
	invalidate atomic.Bool

	previous      int
	suspendedMode int
	activations   int
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		previous:      none,
		suspendedMode: none,
	}
}

// Add registers a generator under its name and returns its mode index.
func (t *Table) Add(g generator.Generator) int {
	t.entries = append(t.entries, Entry{Name: g.Name(), Generator: g})
	return len(t.entries) - 1
}

// Len returns the number of registered modes.
func (t *Table) Len() int {
	return len(t.entries)
}

// Names returns the mode names in index order.
func (t *Table) Names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.Name
	}
	return names
}

// Lookup returns the entry for a mode, resolving out-of-range modes to the default.
func (t *Table) Lookup(m int) (Entry, bool) {
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return t.entries[t.Resolve(m)], true
}

// Resolve maps any requested mode onto a registered one; out-of-range is the default.
func (t *Table) Resolve(m int) int {
	if m < 0 || m >= len(t.entries) {
		return DefaultMode
	}
	return m
}

// Valid reports whether m names a registered mode.
func (t *Table) Valid(m int) bool {
	return m >= 0 && m < len(t.entries)
}

// SetMode requests a mode change. It takes effect on the next Prepare.
func (t *Table) SetMode(m int) {
	t.requested.Store(int64(m))
}

// Requested returns the raw requested mode, which may be out of range.
func (t *Table) Requested() int {
	return int(t.requested.Load())
}

// Mode returns the resolved requested mode.
func (t *Table) Mode() int {
	r := t.requested.Load()
	if r < 0 || r >= int64(len(t.entries)) {
		return DefaultMode
	}
	return int(r)
}

// Invalidate forces the current mode to be activated again on the next Prepare,
// e.g. after the cycle duration changed.
func (t *Table) Invalidate() {
	t.invalidate.Store(true)
}

// Prepare activates the requested mode if it differs from the one rendered last.
// It runs once per frame before any ColorAt call.
func (t *Table) Prepare(now uint32) {
	if len(t.entries) == 0 {
		return
	}
	mode := t.Mode()
	forced := t.invalidate.Swap(false)
	if mode == t.previous && !forced {
		return
	}
	if a, ok := t.entries[mode].Generator.(generator.Activator); ok {
		a.Activate(now)
		t.activations++
	}
	t.previous = mode
}

// Suspend marks the start of an override window. Nothing procedural is rendered
// until Resume.
func (t *Table) Suspend() {
	if t.previous == none {
		return
	}
	t.suspendedMode = t.previous
	t.previous = none
}

// Resume ends an override window. If the requested mode is still the one that was
// active before, it continues without re-activation; otherwise the next Prepare
// activates the new mode.
func (t *Table) Resume() {
	if t.suspendedMode != none && t.Mode() == t.suspendedMode {
		t.previous = t.suspendedMode
	}
	t.suspendedMode = none
}

// Activations returns how many times a spark mode has been activated.
func (t *Table) Activations() int {
	return t.activations
}

// ColorAt renders one pixel of the active mode.
func (t *Table) ColorAt(now uint32, pixel int) rgb.Color {
	if len(t.entries) == 0 {
		return rgb.Black
	}
	mode := t.previous
	if mode == none {
		mode = t.Mode()
	}
	return t.entries[mode].Generator.ColorAt(now, pixel)
}

// Render fills frame with the active mode.
func (t *Table) Render(now uint32, frame rgb.Frame) {
	for i := range frame {
		frame[i] = t.ColorAt(now, i)
	}
}
