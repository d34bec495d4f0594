package csc

import (
	"github.com/framecast/framecast/pixbuf"
)

// yuvToRGB converts a planar YUV buffer into the packed target format.
//
// Chroma planes are first brought back to full resolution with the
// configured algorithm, then combined with luma per pixel using the
// inverse BT.601 fixed-point transform.
func (c *Converter) yuvToRGB(buf *pixbuf.Buffer) (*pixbuf.Buffer, error) {
	w, h := buf.Width, buf.Height
	out := pixbuf.Alloc(c.dst, w, h)

	sampling, _ := buf.Format.Sampling()
	cw, ch := sampling.ChromaDims(w, h)

	fullU := c.upsamplePlane(buf.Planes[1], buf.Strides[1], cw, ch, w, h)
	fullV := c.upsamplePlane(buf.Planes[2], buf.Strides[2], cw, ch, w, h)

	rOff, gOff, bOff, aOff := channelOffsets(c.dst)
	bpp := c.dst.BytesPerPixel()
	dst := out.Planes[0]
	dstStride := out.Strides[0]

	for y := 0; y < h; y++ {
		yRow := buf.Planes[0][y*buf.Strides[0]:]
		uRow := fullU[y*w:]
		vRow := fullV[y*w:]
		row := dst[y*dstStride:]
		for x := 0; x < w; x++ {
			pi := x * bpp
			d := int(uRow[x]) - 128
			e := int(vRow[x]) - 128
			if c.fullRange {
				yy := int(yRow[x])
				row[pi+rOff] = clampByte(yy + ((359*e + 128) >> 8))
				row[pi+gOff] = clampByte(yy - ((88*d + 183*e + 128) >> 8))
				row[pi+bOff] = clampByte(yy + ((454*d + 128) >> 8))
			} else {
				cc := 298 * (int(yRow[x]) - 16)
				row[pi+rOff] = clampByte((cc + 409*e + 128) >> 8)
				row[pi+gOff] = clampByte((cc - 100*d - 208*e + 128) >> 8)
				row[pi+bOff] = clampByte((cc + 516*d + 128) >> 8)
			}
			if aOff >= 0 {
				row[pi+aOff] = 0xff
			}
		}
	}
	return out, nil
}

// upsamplePlane brings one chroma plane from (sw,sh) up to (dw,dh),
// returning a tightly packed plane. Same-size planes are repacked only.
func (c *Converter) upsamplePlane(src []byte, srcStride, sw, sh, dw, dh int) []byte {
	dst := make([]byte, dw*dh)
	if sw == dw && sh == dh {
		for y := 0; y < dh; y++ {
			copy(dst[y*dw:y*dw+dw], src[y*srcStride:y*srcStride+dw])
		}
		return dst
	}
	if c.alg == AlgorithmFiltered {
		// Repack to drop stride padding before scaling.
		packed := src
		if srcStride != sw {
			packed = make([]byte, sw*sh)
			for y := 0; y < sh; y++ {
				copy(packed[y*sw:y*sw+sw], src[y*srcStride:y*srcStride+sw])
			}
		}
		c.resamplePlane(packed, sw, sh, dst, dw, dw, dh)
		return dst
	}
	// Point sampling: replicate the nearest chroma sample.
	for y := 0; y < dh; y++ {
		sy := y * sh / dh
		srcRow := src[sy*srcStride:]
		dstRow := dst[y*dw:]
		for x := 0; x < dw; x++ {
			dstRow[x] = srcRow[x*sw/dw]
		}
	}
	return dst
}
