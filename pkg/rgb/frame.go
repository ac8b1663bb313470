package rgb

// Frame is an ordered buffer of pixel colors, one per LED on the strip.
type Frame []Color

// NewFrame creates a frame of n pixels, initialized to black (off).
func NewFrame(n int) Frame {
	if n < 0 {
		n = 0
	}
	return make(Frame, n)
}

// Set sets pixel i. Out-of-range indices are ignored and reported as false.
func (f Frame) Set(i int, c Color) bool {
	if i < 0 || i >= len(f) {
		return false
	}
	f[i] = c
	return true
}

// Fill sets every pixel to c.
func (f Frame) Fill(c Color) {
	for i := range f {
		f[i] = c
	}
}

// CopyFrom copies as many pixels from other as fit and returns the count copied.
func (f Frame) CopyFrom(other Frame) int {
	return copy(f, other)
}

// Clone returns an independent copy of the frame.
func (f Frame) Clone() Frame {
	out := make(Frame, len(f))
	copy(out, f)
	return out
}

// Bytes returns the frame as RGB triplets, three bytes per pixel.
func (f Frame) Bytes() []byte {
	return f.AppendBytes(make([]byte, 0, 3*len(f)))
}

// AppendBytes appends the RGB triplets of the frame to dst.
func (f Frame) AppendBytes(dst []byte) []byte {
	for _, c := range f {
		dst = append(dst, c.R, c.G, c.B)
	}
	return dst
}

// Hex returns every pixel formatted as #rrggbb.
func (f Frame) Hex() []string {
	out := make([]string, len(f))
	for i, c := range f {
		out[i] = c.Hex()
	}
	return out
}
