// Package rawz implements the rawz codec backend: planar YUV frames,
// quantized and compressed with zstd behind a small fixed header.
//
// rawz is the pipeline's pure Go workhorse codec. It supports all three
// colour sampling modes in both directions, maps the quantizer range
// onto a sample coarsening step and the speed preset onto the zstd
// encoder level, and registers itself with the codec package on import:
//
//	import _ "github.com/framecast/framecast/codec/rawz"
//
// # Bitstream
//
// Each frame is a 12 byte header followed by the zstd-compressed
// concatenation of the tightly packed planes:
//
//	offset 0  magic "RFZ1"
//	offset 4  width  uint16 big endian
//	offset 6  height uint16 big endian
//	offset 8  colour sampling (0=420, 1=422, 2=444)
//	offset 9  flags (bit 0: alpha present)
//	offset 10 quantizer step
//	offset 11 reserved
//
// A payload starting with the continuation magic "RFZC" carries no
// complete frame; decoders report it as a wait, not an error.
package rawz

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"github.com/framecast/framecast/codec"
	"github.com/framecast/framecast/pixbuf"
)

const (
	headerSize = 12
	magic      = "RFZ1"
	// magicContinuation marks a payload fragment with no complete frame.
	magicContinuation = "RFZC"
)

var allSamplings = []pixbuf.ColourSampling{
	pixbuf.Sampling420,
	pixbuf.Sampling422,
	pixbuf.Sampling444,
}

func init() {
	codec.RegisterEncoderBackend(codec.CodecRawZ, allSamplings, newEncoder)
	codec.RegisterDecoderBackend(codec.CodecRawZ, allSamplings, newDecoder)
}

// levelForPreset maps a speed preset bucket onto a zstd encoder level.
// Slower presets buy compression, faster presets buy throughput.
func levelForPreset(index int) zstd.EncoderLevel {
	switch {
	case index <= 2:
		return zstd.SpeedBestCompression
	case index <= 4:
		return zstd.SpeedBetterCompression
	case index <= 6:
		return zstd.SpeedDefault
	default:
		return zstd.SpeedFastest
	}
}

// stepForQuantizer maps a quantizer range onto a sample coarsening step.
// Higher quantizers coarsen samples more, which both loses fidelity and
// compresses better; step 1 is lossless.
func stepForQuantizer(q codec.QuantizerRange) int {
	return 1 + q.Max/16
}

// planeSizes returns the tightly packed byte size of each plane.
func planeSizes(sampling pixbuf.ColourSampling, width, height int) [3]int {
	cw, ch := sampling.ChromaDims(width, height)
	return [3]int{width * height, cw * ch, cw * ch}
}

// encoder is one open rawz encoder instance.
type encoder struct {
	params codec.Params
	step   int
	zenc   *zstd.Encoder
	// payload is the quantized plane scratch reused across frames.
	payload []byte
	closed  bool
}

func newEncoder(p codec.Params) (codec.EncoderBackend, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", p.Width, p.Height)
	}
	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(levelForPreset(p.PresetIndex)))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	e := &encoder{
		params: p,
		step:   stepForQuantizer(p.Quantizer),
		zenc:   zenc,
	}

	logrus.WithFields(logrus.Fields{
		"function": "rawz.newEncoder",
		"width":    p.Width,
		"height":   p.Height,
		"sampling": p.Sampling.String(),
		"step":     e.step,
		"level":    levelForPreset(p.PresetIndex).String(),
	}).Debug("Opened rawz encoder")

	return e, nil
}

func (e *encoder) Encode(buf *pixbuf.Buffer) ([]byte, error) {
	if e.closed {
		return nil, fmt.Errorf("%w: rawz encoder closed", codec.ErrCodecFatal)
	}
	if buf.Format != e.params.Sampling.PlanarFormat() {
		return nil, fmt.Errorf("rawz expects %s, got %s",
			e.params.Sampling.PlanarFormat(), buf.Format)
	}

	sizes := planeSizes(e.params.Sampling, e.params.Width, e.params.Height)
	total := sizes[0] + sizes[1] + sizes[2]
	if cap(e.payload) < total {
		e.payload = make([]byte, total)
	}
	payload := e.payload[:total]

	// Quantize into the scratch payload; the input buffer is only
	// borrowed and must not be mutated.
	offset := 0
	for i := 0; i < 3; i++ {
		pw, ph := pixbuf.PlaneDims(buf.Format, i, buf.Width, buf.Height)
		stride := buf.Strides[i]
		for y := 0; y < ph; y++ {
			src := buf.Planes[i][y*stride : y*stride+pw]
			dst := payload[offset : offset+pw]
			if e.step > 1 {
				step := byte(e.step)
				for x, v := range src {
					dst[x] = v - v%step
				}
			} else {
				copy(dst, src)
			}
			offset += pw
		}
	}

	out := make([]byte, headerSize, headerSize+total/4)
	copy(out[0:4], magic)
	binary.BigEndian.PutUint16(out[4:6], uint16(e.params.Width))
	binary.BigEndian.PutUint16(out[6:8], uint16(e.params.Height))
	out[8] = byte(e.params.Sampling)
	out[9] = 0
	out[10] = byte(e.step)

	return e.zenc.EncodeAll(payload, out), nil
}

func (e *encoder) Params() codec.Params {
	return e.params
}

func (e *encoder) Reconfigure(p codec.Params) error {
	if p.Width != e.params.Width || p.Height != e.params.Height ||
		p.Sampling != e.params.Sampling || p.Profile != e.params.Profile {
		return fmt.Errorf("structural parameters cannot change in place")
	}
	if levelForPreset(p.PresetIndex) != levelForPreset(e.params.PresetIndex) {
		zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(levelForPreset(p.PresetIndex)))
		if err != nil {
			return fmt.Errorf("zstd encoder: %w", err)
		}
		e.zenc.Close()
		e.zenc = zenc
	}
	e.params = p
	e.step = stepForQuantizer(p.Quantizer)
	return nil
}

func (e *encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.zenc.Close()
	return nil
}

// decoder is one open rawz decoder instance. Decoded planes alias the
// scratch payload, which the next Decode call overwrites; the owning
// context enforces the resulting borrow contract.
type decoder struct {
	width    int
	height   int
	sampling pixbuf.ColourSampling
	zdec     *zstd.Decoder
	scratch  []byte
	closed   bool
}

func newDecoder(width, height int, sampling pixbuf.ColourSampling) (codec.DecoderBackend, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	zdec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "rawz.newDecoder",
		"width":    width,
		"height":   height,
		"sampling": sampling.String(),
	}).Debug("Opened rawz decoder")

	return &decoder{width: width, height: height, sampling: sampling, zdec: zdec}, nil
}

func (d *decoder) Decode(data []byte) (*codec.BackendFrame, bool, error) {
	if d.closed {
		return nil, false, fmt.Errorf("%w: rawz decoder closed", codec.ErrCodecFatal)
	}
	if len(data) >= 4 && string(data[0:4]) == magicContinuation {
		return nil, false, nil
	}
	if len(data) < headerSize || string(data[0:4]) != magic {
		return nil, false, fmt.Errorf("unrecognized rawz bitstream")
	}

	width := int(binary.BigEndian.Uint16(data[4:6]))
	height := int(binary.BigEndian.Uint16(data[6:8]))
	sampling := pixbuf.ColourSampling(data[8])
	if !sampling.Valid() {
		// An unrecognized output format leaves no way to interpret the
		// frame memory: unrecoverable.
		return nil, false, fmt.Errorf("%w: unknown colour sampling %d", codec.ErrCodecFatal, data[8])
	}

	sizes := planeSizes(sampling, width, height)
	total := sizes[0] + sizes[1] + sizes[2]

	payload, err := d.zdec.DecodeAll(data[headerSize:], d.scratch[:0])
	if err != nil {
		return nil, false, fmt.Errorf("payload: %w", err)
	}
	d.scratch = payload
	if len(payload) != total {
		return nil, false, fmt.Errorf("payload is %d bytes, frame needs %d", len(payload), total)
	}

	cw, _ := sampling.ChromaDims(width, height)
	frame := &codec.BackendFrame{
		Width:    width,
		Height:   height,
		Sampling: sampling,
		Planes: [][]byte{
			payload[:sizes[0]],
			payload[sizes[0] : sizes[0]+sizes[1]],
			payload[sizes[0]+sizes[1]:],
		},
		Strides: []int{width, cw, cw},
	}
	return frame, true, nil
}

func (d *decoder) Reconfigure(sampling pixbuf.ColourSampling) bool {
	// The expectation is bookkeeping only; the stream header drives the
	// actual frame layout, so switching in place is always possible.
	d.sampling = sampling
	return true
}

func (d *decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.zdec.Close()
	return nil
}
