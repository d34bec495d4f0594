package csc

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/framecast/framecast/pixbuf"
)

// Converter converts buffers between one packed RGB format and one
// planar YUV format, in a single fixed direction.
type Converter struct {
	src       pixbuf.Format
	dst       pixbuf.Format
	alg       Algorithm
	fullRange bool
}

// NewConverter creates a converter for the given source and target
// formats. Exactly one side must be packed RGB and the other planar YUV.
func NewConverter(src, dst pixbuf.Format, alg Algorithm) (*Converter, error) {
	rgbToYUV := src.IsPacked() && dst.IsPlanar()
	yuvToRGB := src.IsPlanar() && dst.IsPacked()
	if !rgbToYUV && !yuvToRGB {
		return nil, fmt.Errorf("unsupported conversion %s -> %s", src, dst)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "NewConverter",
		"source":    src.String(),
		"target":    dst.String(),
		"algorithm": alg.String(),
	}).Debug("Created colourspace converter")

	return &Converter{src: src, dst: dst, alg: alg}, nil
}

// Source returns the input pixel format.
func (c *Converter) Source() pixbuf.Format { return c.src }

// Target returns the output pixel format.
func (c *Converter) Target() pixbuf.Format { return c.dst }

// Algorithm returns the configured resampling algorithm.
func (c *Converter) Algorithm() Algorithm { return c.alg }

// SetFullRange switches between studio range (the default) and full
// range coefficients. The flag typically arrives as a per-stream hint
// on the decode side.
func (c *Converter) SetFullRange(full bool) { c.fullRange = full }

// Convert converts one buffer. The input is only borrowed for the
// duration of the call; the output is always a freshly owned buffer.
func (c *Converter) Convert(buf *pixbuf.Buffer) (*pixbuf.Buffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source buffer: %w", err)
	}
	if buf.Format != c.src {
		return nil, fmt.Errorf("converter expects %s input, got %s", c.src, buf.Format)
	}
	if c.src.IsPacked() {
		return c.rgbToYUV(buf)
	}
	return c.yuvToRGB(buf)
}

// channelOffsets returns the byte offsets of the R, G, B and A channels
// within one packed pixel, with alpha = -1 when absent.
func channelOffsets(f pixbuf.Format) (r, g, b, a int) {
	switch f {
	case pixbuf.FormatRGB24:
		return 0, 1, 2, -1
	case pixbuf.FormatRGBA32:
		return 0, 1, 2, 3
	case pixbuf.FormatBGRA32:
		return 2, 1, 0, 3
	default:
		return 0, 1, 2, -1
	}
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
