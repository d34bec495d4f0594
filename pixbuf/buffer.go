package pixbuf

import "fmt"

// Buffer is a single image: dimensions, pixel format, per-plane byte
// slices with their strides, and an ownership flag.
//
// A Buffer is a plain value type with no internal synchronization.
// See the package documentation for the ownership contract.
type Buffer struct {
	Width   int
	Height  int
	Format  Format
	Planes  [][]byte
	Strides []int

	// Owned is true when the plane memory belongs exclusively to this
	// buffer. When false, the planes alias decoder-owned memory and the
	// buffer must be cloned before the producing context decodes again
	// or closes.
	Owned bool
}

// Alloc creates an owned, zero-filled buffer of the given format and
// dimensions with tightly packed strides.
func Alloc(format Format, width, height int) *Buffer {
	n := format.PlaneCount()
	buf := &Buffer{
		Width:   width,
		Height:  height,
		Format:  format,
		Planes:  make([][]byte, n),
		Strides: make([]int, n),
		Owned:   true,
	}
	for i := 0; i < n; i++ {
		pw, ph := PlaneDims(format, i, width, height)
		stride := pw
		if format.IsPacked() {
			stride = pw * format.BytesPerPixel()
		}
		buf.Strides[i] = stride
		buf.Planes[i] = make([]byte, stride*ph)
	}
	return buf
}

// Validate checks the structural invariants of the buffer: positive
// dimensions, matching plane and stride counts, and plane byte lengths
// of at least stride * plane height.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("pixel buffer cannot be nil")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("invalid buffer dimensions: %dx%d", b.Width, b.Height)
	}
	if len(b.Planes) != len(b.Strides) {
		return fmt.Errorf("plane/stride count mismatch: %d planes, %d strides",
			len(b.Planes), len(b.Strides))
	}
	if len(b.Planes) != b.Format.PlaneCount() {
		return fmt.Errorf("%s requires %d planes, got %d",
			b.Format, b.Format.PlaneCount(), len(b.Planes))
	}
	for i, plane := range b.Planes {
		_, ph := PlaneDims(b.Format, i, b.Width, b.Height)
		min := b.Strides[i] * ph
		if len(plane) < min {
			return fmt.Errorf("plane %d too small: got %d bytes, need %d", i, len(plane), min)
		}
		minStride := b.rowBytes(i)
		if b.Strides[i] < minStride {
			return fmt.Errorf("plane %d stride too small: got %d, need %d", i, b.Strides[i], minStride)
		}
	}
	return nil
}

// rowBytes returns the minimum number of payload bytes per row of plane i.
func (b *Buffer) rowBytes(i int) int {
	pw, _ := PlaneDims(b.Format, i, b.Width, b.Height)
	if b.Format.IsPacked() {
		return pw * b.Format.BytesPerPixel()
	}
	return pw
}

// Clone returns a deep copy of the buffer with tightly packed strides
// and Owned set to true. Stride padding in the source is dropped.
func (b *Buffer) Clone() *Buffer {
	out := Alloc(b.Format, b.Width, b.Height)
	for i := range b.Planes {
		_, ph := PlaneDims(b.Format, i, b.Width, b.Height)
		row := b.rowBytes(i)
		for y := 0; y < ph; y++ {
			src := b.Planes[i][y*b.Strides[i]:]
			dst := out.Planes[i][y*out.Strides[i]:]
			copy(dst[:row], src[:row])
		}
	}
	return out
}

// String returns a short description used in logs.
func (b *Buffer) String() string {
	return fmt.Sprintf("%s %dx%d (%d planes, owned=%v)",
		b.Format, b.Width, b.Height, len(b.Planes), b.Owned)
}
