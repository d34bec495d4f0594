package codec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/framecast/framecast/pixbuf"
)

// DecodeOptions is the per-call options bag handed in by the transport.
type DecodeOptions struct {
	// DelayedFrames is incremented by Decode whenever the backend is
	// buffering input and has no output yet, informing the caller how
	// many submissions are outstanding inside the decoder.
	DelayedFrames int

	// FullRange is a colour hint consumed when the decoded frame is
	// converted for display.
	FullRange bool
}

// DecodeStatus distinguishes a delivered frame from a retryable wait.
type DecodeStatus int

const (
	// DecodeFrame: the result carries a decoded frame.
	DecodeFrame DecodeStatus = iota
	// DecodeWait: the backend needs more input before it can emit a
	// frame. Not an error; the caller continues with the next payload.
	DecodeWait
)

// DecodeResult is the outcome of one successful Decode call.
type DecodeResult struct {
	Status DecodeStatus

	// Frame is nil when Status is DecodeWait.
	Frame *FrameWrapper
}

// Decoder owns one backend decoder instance bound to a fixed surface
// size. It tracks the outstanding zero-copy frames it has handed out and
// upgrades them to owned copies before any operation that would
// invalidate their memory.
//
// Not safe for concurrent use: callers serialize access per Decoder.
type Decoder struct {
	id     string
	kind   CodecKind
	width  int
	height int

	// sampling is the expected output colour sampling. It is a hint: the
	// sampling the backend actually emits is authoritative, and a
	// recognized mismatch updates this bookkeeping instead of failing.
	sampling pixbuf.ColourSampling

	factory DecoderFactory
	backend DecoderBackend

	outMu       sync.Mutex
	outstanding map[*FrameWrapper]struct{}

	frames  uint64
	delayed uint64
	closed  bool
}

// NewDecoder opens a decoder context for the given codec kind, surface
// size and expected colour sampling.
func NewDecoder(kind CodecKind, width, height int, sampling pixbuf.ColourSampling) (*Decoder, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidConfiguration, width, height)
	}
	if !sampling.Valid() {
		return nil, fmt.Errorf("%w: colour sampling %d", ErrInvalidConfiguration, int(sampling))
	}
	reg, ok := decoderFactory(kind)
	if !ok {
		return nil, fmt.Errorf("%w: no decoder for %s", ErrUnsupportedCodec, kind)
	}

	backend, err := reg.factory(width, height, sampling)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s decoder: %v", ErrInvalidConfiguration, kind, err)
	}

	d := &Decoder{
		id:          uuid.NewString(),
		kind:        kind,
		width:       width,
		height:      height,
		sampling:    sampling,
		factory:     reg.factory,
		backend:     backend,
		outstanding: make(map[*FrameWrapper]struct{}),
	}

	logrus.WithFields(logrus.Fields{
		"function":   "NewDecoder",
		"context_id": d.id,
		"codec":      kind.String(),
		"width":      width,
		"height":     height,
		"sampling":   sampling.String(),
	}).Info("Decoder context opened")

	return d, nil
}

// Decode submits one compressed payload.
//
// A DecodeWait result means the backend buffered the input and has no
// output yet; the delayed-frame counter in opts is incremented and the
// caller resubmits later. Frames are returned as zero-copy wrappers; the
// wrapped buffer stays valid only until the next Decode or Close on this
// context, at which point any wrapper the caller still holds is upgraded
// to an owned copy automatically.
func (d *Decoder) Decode(data []byte, opts *DecodeOptions) (*DecodeResult, error) {
	if d.closed {
		return nil, ErrContextClosed
	}

	// The backend reuses its frame memory: every previously returned
	// zero-copy view dies now, so upgrade the live ones first.
	d.sweep("decode")

	frame, ready, err := d.backend.Decode(data)
	if err != nil {
		if errors.Is(err, ErrCodecFatal) {
			d.closed = true
			_ = d.backend.Close()
		}
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	if !ready {
		d.delayed++
		if opts != nil {
			opts.DelayedFrames++
		}
		logrus.WithFields(logrus.Fields{
			"function":   "Decode",
			"context_id": d.id,
			"delayed":    d.delayed,
		}).Debug("Decoder buffering, no frame yet")
		return &DecodeResult{Status: DecodeWait}, nil
	}

	if frame.Width != d.width || frame.Height != d.height {
		d.closed = true
		_ = d.backend.Close()
		return nil, fmt.Errorf("%w: stream is %dx%d, context is %dx%d",
			ErrCodecFatal, frame.Width, frame.Height, d.width, d.height)
	}
	if frame.Sampling != d.sampling {
		// Some codecs legitimately emit a different sampling than was
		// requested; the stream is authoritative.
		logrus.WithFields(logrus.Fields{
			"function":   "Decode",
			"context_id": d.id,
			"expected":   d.sampling.String(),
			"actual":     frame.Sampling.String(),
		}).Info("Decoder output sampling differs from expectation, updating")
		d.sampling = frame.Sampling
	}

	buf := &pixbuf.Buffer{
		Width:   frame.Width,
		Height:  frame.Height,
		Format:  frame.Sampling.PlanarFormat(),
		Planes:  frame.Planes,
		Strides: frame.Strides,
		Owned:   false,
	}
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: backend produced invalid frame: %v", ErrDecodeFailed, err)
	}

	w := &FrameWrapper{buf: buf, owner: d}
	d.outMu.Lock()
	d.outstanding[w] = struct{}{}
	d.outMu.Unlock()

	d.frames++
	logrus.WithFields(logrus.Fields{
		"function":   "Decode",
		"context_id": d.id,
		"frame":      d.frames,
		"sampling":   frame.Sampling.String(),
	}).Debug("Decoded frame")

	return &DecodeResult{Status: DecodeFrame, Frame: w}, nil
}

// Reconfigure changes the expected output colour sampling. When the
// backend supports switching in place the size and codec binding is
// kept; otherwise the backend is closed and reopened.
func (d *Decoder) Reconfigure(sampling pixbuf.ColourSampling) error {
	if d.closed {
		return ErrContextClosed
	}
	if !sampling.Valid() {
		return fmt.Errorf("%w: colour sampling %d", ErrInvalidConfiguration, int(sampling))
	}
	if sampling == d.sampling {
		return nil
	}

	d.sweep("reconfigure")

	if d.backend.Reconfigure(sampling) {
		logrus.WithFields(logrus.Fields{
			"function":   "Reconfigure",
			"context_id": d.id,
			"sampling":   sampling.String(),
		}).Debug("Decoder sampling updated in place")
		d.sampling = sampling
		return nil
	}

	_ = d.backend.Close()
	backend, err := d.factory(d.width, d.height, sampling)
	if err != nil {
		d.closed = true
		return fmt.Errorf("%w: reopening %s decoder at %s: %v",
			ErrCodecFatal, d.kind, sampling, err)
	}
	d.backend = backend
	d.sampling = sampling

	logrus.WithFields(logrus.Fields{
		"function":   "Reconfigure",
		"context_id": d.id,
		"sampling":   sampling.String(),
	}).Info("Decoder reopened for new sampling")

	return nil
}

// Close upgrades every outstanding zero-copy frame to an owned copy and
// releases the backend decoder. Buffers the caller still holds remain
// valid afterwards. Idempotent.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.sweep("close")
	err := d.backend.Close()

	logrus.WithFields(logrus.Fields{
		"function":   "Close",
		"context_id": d.id,
		"frames":     d.frames,
		"delayed":    d.delayed,
	}).Info("Decoder context closed")

	return err
}

// sweep force-detaches every still-live outstanding wrapper. Called
// before any operation that invalidates backend frame memory.
func (d *Decoder) sweep(reason string) {
	d.outMu.Lock()
	if len(d.outstanding) == 0 {
		d.outMu.Unlock()
		return
	}
	live := make([]*FrameWrapper, 0, len(d.outstanding))
	for w := range d.outstanding {
		live = append(live, w)
	}
	d.outMu.Unlock()

	for _, w := range live {
		w.forceDetach()
	}

	logrus.WithFields(logrus.Fields{
		"function":   "sweep",
		"context_id": d.id,
		"reason":     reason,
		"upgraded":   len(live),
	}).Debug("Upgraded outstanding frames to owned copies")
}

// unregister removes a wrapper from the outstanding set. Called from the
// wrapper when it detaches or is released.
func (d *Decoder) unregister(w *FrameWrapper) {
	d.outMu.Lock()
	delete(d.outstanding, w)
	d.outMu.Unlock()
}

// ID returns the stable context identifier used in log fields.
func (d *Decoder) ID() string { return d.id }

// Kind returns the codec kind the context was opened for.
func (d *Decoder) Kind() CodecKind { return d.kind }

// Width returns the fixed surface width.
func (d *Decoder) Width() int { return d.width }

// Height returns the fixed surface height.
func (d *Decoder) Height() int { return d.height }

// ColourSampling returns the current expected output sampling.
func (d *Decoder) ColourSampling() pixbuf.ColourSampling { return d.sampling }

// Outstanding returns the number of live zero-copy frames.
func (d *Decoder) Outstanding() int {
	d.outMu.Lock()
	defer d.outMu.Unlock()
	return len(d.outstanding)
}
