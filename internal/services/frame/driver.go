// Package frame provides the frame driver: the fixed-cadence loop that polls external
// writes, renders the active mode and hands each finished frame to the output sink.
package frame

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bbernstein/lacylights-strip/internal/services/clock"
	"github.com/bbernstein/lacylights-strip/internal/services/generator"
	"github.com/bbernstein/lacylights-strip/internal/services/modes"
	"github.com/bbernstein/lacylights-strip/internal/services/override"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// Sink receives every finished frame. The frame must not be retained after Show returns.
type Sink interface {
	Show(frame rgb.Frame) error
}

// Config holds the driver settings.
type Config struct {
	// Interval is the minimum time per frame.
	Interval time.Duration
	// MaxWritesPerFrame bounds the external writes consumed per frame.
	MaxWritesPerFrame int
	// WriteBuffer is the capacity of the external write channel.
	WriteBuffer int
}

// DefaultConfig returns a 50 fps driver configuration.
func DefaultConfig() Config {
	return Config{
		Interval:          20 * time.Millisecond,
		MaxWritesPerFrame: 1024,
		WriteBuffer:       4096,
	}
}

// Driver renders frames at a fixed cadence.
type Driver struct {
	mu sync.RWMutex

	table   *modes.Table
	arbiter *override.Arbiter
	clock   clock.Clock
	sink    Sink
	writes  chan override.Write

	// owned by the loop goroutine
	frame       rgb.Frame
	suppressed  bool
	sinkFailing bool

	// latest finished frame for readers on other goroutines
	last    rgb.Frame
	onFrame func(rgb.Frame)

	// Control
	stopChan chan struct{}
	doneChan chan struct{}
	running  bool

	// Configuration
	interval  time.Duration
	maxWrites int

	frames     atomic.Uint64
	overruns   atomic.Uint64
	dropped    atomic.Uint64
	sinkErrors atomic.Uint64
}

// NewDriver creates a frame driver for the table. The override window follows the
// shared cycle duration. sink may be nil.
func NewDriver(table *modes.Table, params *generator.Params, clk clock.Clock, sink Sink, cfg Config) *Driver {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.MaxWritesPerFrame <= 0 {
		cfg.MaxWritesPerFrame = DefaultConfig().MaxWritesPerFrame
	}
	if cfg.WriteBuffer <= 0 {
		cfg.WriteBuffer = DefaultConfig().WriteBuffer
	}

	frame := rgb.NewFrame(params.Pixels())
	return &Driver{
		table:     table,
		arbiter:   override.NewArbiter(frame, params.Cycle),
		clock:     clk,
		sink:      sink,
		writes:    make(chan override.Write, cfg.WriteBuffer),
		frame:     frame,
		last:      rgb.NewFrame(params.Pixels()),
		interval:  cfg.Interval,
		maxWrites: cfg.MaxWritesPerFrame,
	}
}

// Start starts the frame loop.
func (d *Driver) Start() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.stopChan = make(chan struct{})
	d.doneChan = make(chan struct{})
	d.mu.Unlock()

	log.Printf("🎨 Frame driver started: %d pixels every %v", len(d.frame), d.interval)
	go d.loop(d.stopChan, d.doneChan)
}

// Stop stops the frame loop and waits for the current frame to finish.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopChan)
	done := d.doneChan
	d.mu.Unlock()

	<-done
	log.Printf("🎨 Frame driver stopped after %d frames (%d overruns)", d.Frames(), d.Overruns())
}

// IsRunning returns whether the loop is running.
func (d *Driver) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// SetOnFrame registers a callback that receives a copy of every finished frame.
// It runs on the loop goroutine and must not block.
func (d *Driver) SetOnFrame(fn func(rgb.Frame)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onFrame = fn
}

// Submit queues an external write without blocking. It returns false if the
// queue is full and the write was dropped.
func (d *Driver) Submit(w override.Write) bool {
	select {
	case d.writes <- w:
		return true
	default:
		d.dropped.Add(1)
		return false
	}
}

// Snapshot returns a copy of the last finished frame.
func (d *Driver) Snapshot() rgb.Frame {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last.Clone()
}

// Frames returns the number of frames rendered.
func (d *Driver) Frames() uint64 { return d.frames.Load() }

// Overruns returns the number of frames that took longer than the interval.
func (d *Driver) Overruns() uint64 { return d.overruns.Load() }

// Dropped returns the number of external writes dropped because the queue was full.
func (d *Driver) Dropped() uint64 { return d.dropped.Load() }

// SinkErrors returns the number of failed Show calls.
func (d *Driver) SinkErrors() uint64 { return d.sinkErrors.Load() }

// Writes returns how many external writes were applied and how many were ignored
// for addressing a pixel outside the strip.
func (d *Driver) Writes() (accepted, ignored uint64) { return d.arbiter.Stats() }

// Suppressed reports whether the last frame was externally owned.
func (d *Driver) Suppressed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.suppressed
}

func (d *Driver) loop(stop, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		start := time.Now()
		d.Step(d.clock.Millis())

		wait := Residual(d.interval, time.Since(start))
		if wait == 0 {
			d.overruns.Add(1)
		}
		timer.Reset(wait)
	}
}

// Residual returns how long to sleep after a frame that took elapsed, never negative.
func Residual(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

// Step renders and shows one frame at time now.
func (d *Driver) Step(now uint32) {
	d.drain(now)

	if d.arbiter.IsSuppressed(now) {
		if !d.suppressed {
			d.setSuppressed(true)
			d.table.Suspend()
		}
	} else {
		// an expired write would suppress again once the clock wraps past it
		d.arbiter.Reset()
		if d.suppressed {
			d.setSuppressed(false)
			d.table.Resume()
		}
		d.table.Prepare(now)
		d.table.Render(now, d.frame)
	}

	d.show()
	d.frames.Add(1)

	d.mu.Lock()
	d.last.CopyFrom(d.frame)
	onFrame := d.onFrame
	d.mu.Unlock()

	if onFrame != nil {
		onFrame(d.frame.Clone())
	}
}

// drain applies at most maxWrites queued external writes.
func (d *Driver) drain(now uint32) {
	for i := 0; i < d.maxWrites; i++ {
		select {
		case w := <-d.writes:
			d.arbiter.ApplyExternalWrite(w.Pixel, w.Color, now)
		default:
			return
		}
	}
}

func (d *Driver) setSuppressed(v bool) {
	d.mu.Lock()
	d.suppressed = v
	d.mu.Unlock()
}

func (d *Driver) show() {
	if d.sink == nil {
		return
	}
	if err := d.sink.Show(d.frame); err != nil {
		d.sinkErrors.Add(1)
		if !d.sinkFailing {
			log.Printf("⚠️  Output sink failed: %v", err)
			d.sinkFailing = true
		}
		return
	}
	if d.sinkFailing {
		log.Printf("✅ Output sink recovered")
		d.sinkFailing = false
	}
}
