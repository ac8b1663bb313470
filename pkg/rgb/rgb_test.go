package rgb

import (
	"testing"
)

func TestPackUnpack_RoundTrip(t *testing.T) {
	colors := []Color{
		{0, 0, 0},
		{255, 255, 255},
		{1, 2, 3},
		{0x12, 0x34, 0x56},
		{255, 0, 128},
	}

	for _, c := range colors {
		got := Unpack(c.Pack())
		if got != c {
			t.Errorf("Unpack(Pack(%v)) = %v", c, got)
		}
	}
}

func TestPack_ByteOrder(t *testing.T) {
	c := Color{R: 0x12, G: 0x34, B: 0x56}
	if got := c.Pack(); got != 0x123456 {
		t.Errorf("Pack() = 0x%06x, want 0x123456", got)
	}
}

func TestUnpack_IgnoresHighBits(t *testing.T) {
	got := Unpack(0xff123456)
	want := Color{R: 0x12, G: 0x34, B: 0x56}
	if got != want {
		t.Errorf("Unpack(0xff123456) = %v, want %v", got, want)
	}
}

func TestSquare16(t *testing.T) {
	tests := []struct {
		in   uint16
		want uint8
	}{
		{0, 0},
		{0xffff, 255},
		{0x8000, 64},
		{0x7fff, 63},
		{0x0100, 0},
	}

	for _, tt := range tests {
		if got := Square16(tt.in); got != tt.want {
			t.Errorf("Square16(0x%04x) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSquare16_Monotonic(t *testing.T) {
	prev := Square16(0)
	for v := 1; v <= 0xffff; v++ {
		got := Square16(uint16(v))
		if got < prev {
			t.Fatalf("Square16 not monotonic at 0x%04x: %d < %d", v, got, prev)
		}
		prev = got
	}
}

func TestSquare8(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{-10, 0},
		{0, 0},
		{255, 255},
		{300, 255},
		{127.5, 64},
	}

	for _, tt := range tests {
		if got := Square8(tt.in); got != tt.want {
			t.Errorf("Square8(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#ff8000")
	if err != nil {
		t.Fatalf("ParseHex failed: %v", err)
	}
	if c != (Color{R: 255, G: 128, B: 0}) {
		t.Errorf("ParseHex(#ff8000) = %v", c)
	}

	if _, err := ParseHex("not-a-color"); err == nil {
		t.Error("ParseHex should fail for invalid input")
	}
}

func TestHex(t *testing.T) {
	if got := (Color{R: 1, G: 0xab, B: 0xff}).Hex(); got != "#01abff" {
		t.Errorf("Hex() = %s, want #01abff", got)
	}
}

func TestFrame(t *testing.T) {
	f := NewFrame(3)
	if len(f) != 3 {
		t.Fatalf("NewFrame(3) length = %d", len(f))
	}

	if !f.Set(1, White) {
		t.Error("Set(1) should succeed")
	}
	if f.Set(3, White) || f.Set(-1, White) {
		t.Error("Set out of range should be ignored")
	}

	want := []byte{0, 0, 0, 255, 255, 255, 0, 0, 0}
	got := f.Bytes()
	if string(got) != string(want) {
		t.Errorf("Bytes() = %v, want %v", got, want)
	}

	clone := f.Clone()
	clone.Fill(Black)
	if f[1] != White {
		t.Error("Clone should not share storage")
	}

	if NewFrame(-1) == nil || len(NewFrame(-1)) != 0 {
		t.Error("NewFrame with negative size should return an empty frame")
	}
}
