// Package vp8 implements a decode-only VP8 codec backend on top of the
// pure Go decoder in golang.org/x/image/vp8.
//
// VP8 always encodes 4:2:0 chroma, so the backend reports Sampling420
// regardless of the sampling the context was constructed to expect; the
// owning decoder context updates its bookkeeping from the stream. The
// backend registers itself with the codec package on import:
//
//	import _ "github.com/framecast/framecast/codec/vp8"
package vp8

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"
	xvp8 "golang.org/x/image/vp8"

	"github.com/framecast/framecast/codec"
	"github.com/framecast/framecast/pixbuf"
)

func init() {
	codec.RegisterDecoderBackend(codec.CodecVP8,
		[]pixbuf.ColourSampling{pixbuf.Sampling420}, newDecoder)
}

// decoder is one open VP8 decoder instance.
type decoder struct {
	width  int
	height int
	closed bool
}

func newDecoder(width, height int, sampling pixbuf.ColourSampling) (codec.DecoderBackend, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}

	logrus.WithFields(logrus.Fields{
		"function": "vp8.newDecoder",
		"width":    width,
		"height":   height,
		"expected": sampling.String(),
	}).Debug("Opened VP8 decoder")

	return &decoder{width: width, height: height}, nil
}

func (d *decoder) Decode(data []byte) (*codec.BackendFrame, bool, error) {
	if d.closed {
		return nil, false, fmt.Errorf("%w: vp8 decoder closed", codec.ErrCodecFatal)
	}
	if len(data) == 0 {
		return nil, false, fmt.Errorf("empty payload")
	}

	dec := xvp8.NewDecoder()
	dec.Init(bytes.NewReader(data), len(data))
	fh, err := dec.DecodeFrameHeader()
	if err != nil {
		return nil, false, fmt.Errorf("frame header: %w", err)
	}
	if fh.Width != d.width || fh.Height != d.height {
		return nil, false, fmt.Errorf("stream is %dx%d, decoder is %dx%d",
			fh.Width, fh.Height, d.width, d.height)
	}

	img, err := dec.DecodeFrame()
	if err != nil {
		return nil, false, fmt.Errorf("frame body: %w", err)
	}

	return &codec.BackendFrame{
		Width:    d.width,
		Height:   d.height,
		Sampling: pixbuf.Sampling420,
		Planes:   [][]byte{img.Y, img.Cb, img.Cr},
		Strides:  []int{img.YStride, img.CStride, img.CStride},
	}, true, nil
}

func (d *decoder) Reconfigure(sampling pixbuf.ColourSampling) bool {
	// VP8 output is always 4:2:0; any other expectation needs a different
	// codec, not a reopen.
	return sampling == pixbuf.Sampling420
}

func (d *decoder) Close() error {
	d.closed = true
	return nil
}
