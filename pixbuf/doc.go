// Package pixbuf provides the pixel buffer value type shared by the
// encode and decode sides of the framecast codec pipeline.
//
// A Buffer describes one image: dimensions, a pixel format tag, one byte
// slice per plane, per-plane strides, and an ownership flag. Packed RGB
// formats carry exactly one plane; planar YUV formats carry three planes
// whose chroma dimensions follow the standard 4:2:0 / 4:2:2 / 4:4:4
// subsampling rules.
//
// # Ownership
//
// Owned is true when the buffer's memory belongs exclusively to the
// Buffer and may be retained indefinitely. Owned is false when the
// planes alias memory belonging to a decoder context; such a buffer is
// only valid until the producing context performs another decode or is
// closed, and must be deep-copied with Clone before that boundary if the
// caller wants to keep it.
//
//	buf := pixbuf.Alloc(pixbuf.FormatYUV420P, 640, 480)
//	view := buf            // shares planes
//	kept := buf.Clone()    // independent copy, Owned=true
//	_ = view
//	_ = kept
package pixbuf
