package csc

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/framecast/framecast/pixbuf"
)

// rgbToYUV converts a packed RGB buffer into the planar target format.
//
// Luma is computed per pixel; chroma is first computed at full
// resolution and then resampled down to the target sampling. BT.601
// fixed-point coefficients, two passes for cache locality.
func (c *Converter) rgbToYUV(buf *pixbuf.Buffer) (*pixbuf.Buffer, error) {
	w, h := buf.Width, buf.Height
	out := pixbuf.Alloc(c.dst, w, h)

	rOff, gOff, bOff, _ := channelOffsets(buf.Format)
	bpp := buf.Format.BytesPerPixel()
	src := buf.Planes[0]
	stride := buf.Strides[0]

	// Full resolution chroma, subsampled below.
	fullU := make([]byte, w*h)
	fullV := make([]byte, w*h)
	yPlane := out.Planes[0]
	yStride := out.Strides[0]

	for y := 0; y < h; y++ {
		row := src[y*stride:]
		yRow := yPlane[y*yStride:]
		uRow := fullU[y*w:]
		vRow := fullV[y*w:]
		for x := 0; x < w; x++ {
			pi := x * bpp
			r := int(row[pi+rOff])
			g := int(row[pi+gOff])
			b := int(row[pi+bOff])
			if c.fullRange {
				yRow[x] = clampByte((77*r + 150*g + 29*b + 128) >> 8)
				uRow[x] = clampByte(((-43*r-85*g+128*b+128)>>8) + 128)
				vRow[x] = clampByte(((128*r-107*g-21*b+128)>>8) + 128)
			} else {
				// Studio range: Y in [16,235], chroma in [16,240].
				yRow[x] = byte(((66*r + 129*g + 25*b + 128) >> 8) + 16)
				uRow[x] = byte(((-38*r-74*g+112*b+128)>>8) + 128)
				vRow[x] = byte(((112*r-94*g-18*b+128)>>8) + 128)
			}
		}
	}

	sampling, _ := c.dst.Sampling()
	cw, ch := sampling.ChromaDims(w, h)
	c.resamplePlane(fullU, w, h, out.Planes[1], out.Strides[1], cw, ch)
	c.resamplePlane(fullV, w, h, out.Planes[2], out.Strides[2], cw, ch)
	return out, nil
}

// resamplePlane scales one 8-bit plane from (sw,sh) to (dw,dh) using the
// configured algorithm. Same-size planes are copied row by row.
func (c *Converter) resamplePlane(src []byte, sw, sh int, dst []byte, dstStride, dw, dh int) {
	if sw == dw && sh == dh {
		for y := 0; y < dh; y++ {
			copy(dst[y*dstStride:y*dstStride+dw], src[y*sw:y*sw+dw])
		}
		return
	}
	if c.alg == AlgorithmFiltered {
		srcImg := &image.Gray{Pix: src, Stride: sw, Rect: image.Rect(0, 0, sw, sh)}
		dstImg := &image.Gray{Pix: dst, Stride: dstStride, Rect: image.Rect(0, 0, dw, dh)}
		draw.CatmullRom.Scale(dstImg, dstImg.Rect, srcImg, srcImg.Rect, draw.Src, nil)
		return
	}
	// Point sampling: nearest source sample per target position.
	for y := 0; y < dh; y++ {
		sy := y * sh / dh
		srcRow := src[sy*sw:]
		dstRow := dst[y*dstStride:]
		for x := 0; x < dw; x++ {
			dstRow[x] = srcRow[x*sw/dw]
		}
	}
}
