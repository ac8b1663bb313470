package clock

import (
	"math"
	"testing"
	"time"
)

func TestManual(t *testing.T) {
	c := NewManual(100)
	if c.Millis() != 100 {
		t.Errorf("Millis() = %d, want 100", c.Millis())
	}

	c.Advance(50)
	if c.Millis() != 150 {
		t.Errorf("Millis() after Advance = %d, want 150", c.Millis())
	}

	c.Set(7)
	if c.Millis() != 7 {
		t.Errorf("Millis() after Set = %d, want 7", c.Millis())
	}
}

func TestManual_Wraps(t *testing.T) {
	c := NewManual(math.MaxUint32 - 9)
	c.Advance(20)
	if c.Millis() != 10 {
		t.Errorf("Millis() after wrap = %d, want 10", c.Millis())
	}
}

func TestSince_AcrossWrap(t *testing.T) {
	then := uint32(math.MaxUint32 - 99)
	now := uint32(400)
	if got := Since(now, then); got != 500 {
		t.Errorf("Since across wrap = %d, want 500", got)
	}
}

func TestSystem_Monotonic(t *testing.T) {
	c := NewSystem()
	first := c.Millis()
	time.Sleep(5 * time.Millisecond)
	second := c.Millis()
	if second < first {
		t.Errorf("System clock went backwards: %d -> %d", first, second)
	}
}
