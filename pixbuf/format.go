package pixbuf

import "fmt"

// Format identifies the pixel layout of a Buffer.
//
// Packed formats store all channels interleaved in a single plane.
// Planar formats store one plane per channel with chroma planes
// subsampled according to the format's sampling mode.
type Format int

const (
	// FormatRGB24 is packed 8-bit RGB, 3 bytes per pixel.
	FormatRGB24 Format = iota
	// FormatRGBA32 is packed 8-bit RGBA, 4 bytes per pixel.
	FormatRGBA32
	// FormatBGRA32 is packed 8-bit BGRA, 4 bytes per pixel.
	FormatBGRA32
	// FormatYUV420P is planar YUV with chroma subsampled 2x2.
	FormatYUV420P
	// FormatYUV422P is planar YUV with chroma subsampled horizontally.
	FormatYUV422P
	// FormatYUV444P is planar YUV with full resolution chroma.
	FormatYUV444P
)

// String returns the conventional name of the format.
func (f Format) String() string {
	switch f {
	case FormatRGB24:
		return "RGB24"
	case FormatRGBA32:
		return "RGBA32"
	case FormatBGRA32:
		return "BGRA32"
	case FormatYUV420P:
		return "YUV420P"
	case FormatYUV422P:
		return "YUV422P"
	case FormatYUV444P:
		return "YUV444P"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// IsPacked reports whether the format stores all channels in one plane.
func (f Format) IsPacked() bool {
	switch f {
	case FormatRGB24, FormatRGBA32, FormatBGRA32:
		return true
	default:
		return false
	}
}

// IsPlanar reports whether the format stores one plane per channel.
func (f Format) IsPlanar() bool {
	switch f {
	case FormatYUV420P, FormatYUV422P, FormatYUV444P:
		return true
	default:
		return false
	}
}

// HasAlpha reports whether the format carries an alpha channel.
func (f Format) HasAlpha() bool {
	return f == FormatRGBA32 || f == FormatBGRA32
}

// PlaneCount returns the number of planes the format uses.
func (f Format) PlaneCount() int {
	if f.IsPlanar() {
		return 3
	}
	return 1
}

// BytesPerPixel returns the packed pixel size in bytes, or 0 for planar
// formats where the notion does not apply.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGB24:
		return 3
	case FormatRGBA32, FormatBGRA32:
		return 4
	default:
		return 0
	}
}

// Sampling returns the colour sampling mode of a planar format.
// The second return value is false for packed formats.
func (f Format) Sampling() (ColourSampling, bool) {
	switch f {
	case FormatYUV420P:
		return Sampling420, true
	case FormatYUV422P:
		return Sampling422, true
	case FormatYUV444P:
		return Sampling444, true
	default:
		return Sampling420, false
	}
}

// ColourSampling describes how finely the chroma channels are sampled
// relative to luma. 420 is the most compressed, 444 is full fidelity.
type ColourSampling int

const (
	// Sampling420 subsamples chroma by two in both dimensions.
	Sampling420 ColourSampling = iota
	// Sampling422 subsamples chroma by two horizontally only.
	Sampling422
	// Sampling444 keeps chroma at full resolution.
	Sampling444
)

// String returns the conventional name of the sampling mode.
func (s ColourSampling) String() string {
	switch s {
	case Sampling420:
		return "420"
	case Sampling422:
		return "422"
	case Sampling444:
		return "444"
	default:
		return fmt.Sprintf("ColourSampling(%d)", int(s))
	}
}

// Valid reports whether s is one of the three defined sampling modes.
func (s ColourSampling) Valid() bool {
	switch s {
	case Sampling420, Sampling422, Sampling444:
		return true
	default:
		return false
	}
}

// PlanarFormat returns the planar pixel format matching the sampling mode.
func (s ColourSampling) PlanarFormat() Format {
	switch s {
	case Sampling422:
		return FormatYUV422P
	case Sampling444:
		return FormatYUV444P
	default:
		return FormatYUV420P
	}
}

// ChromaDims returns the chroma plane dimensions for a luma plane of the
// given size. Odd dimensions round up so no samples are dropped.
func (s ColourSampling) ChromaDims(width, height int) (int, int) {
	switch s {
	case Sampling420:
		return (width + 1) / 2, (height + 1) / 2
	case Sampling422:
		return (width + 1) / 2, height
	default:
		return width, height
	}
}

// PlaneDims returns the dimensions of plane index for an image of the
// given format and size. Plane 0 is luma (or the single packed plane);
// planes 1 and 2 are chroma.
func PlaneDims(format Format, index, width, height int) (int, int) {
	if index == 0 || !format.IsPlanar() {
		return width, height
	}
	sampling, _ := format.Sampling()
	return sampling.ChromaDims(width, height)
}
