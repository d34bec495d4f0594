package codec

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/framecast/framecast/csc"
	"github.com/framecast/framecast/pixbuf"
)

// EncoderOptions tunes the adaptation behaviour of an Encoder.
// The zero value selects the defaults for every field.
type EncoderOptions struct {
	// Thresholds steer colour sampling selection. Invalid values are
	// replaced by DefaultThresholds.
	Thresholds Thresholds

	// CSCQualityThreshold is the quality percentage at or above which the
	// filtered conversion algorithm is selected. Zero selects the default.
	CSCQualityThreshold int
}

// Encoder owns one backend encoder instance bound to a fixed surface
// size, and adapts its configuration to a live (quality, speed) target.
//
// Not safe for concurrent use: callers serialize access per Encoder,
// typically by owning one Encoder per forwarded surface.
type Encoder struct {
	id     string
	kind   CodecKind
	width  int
	height int

	thresholds   Thresholds
	cscThreshold int

	// Adaptation state.
	quality     int
	speed       int
	sampling    pixbuf.ColourSampling
	profile     Profile
	quantizer   QuantizerRange
	presetIndex int
	cscAlg      csc.Algorithm

	// conv is the converter for the current (source format, sampling,
	// algorithm) triple, rebuilt lazily when any of those change.
	conv    *csc.Converter
	convSrc pixbuf.Format

	factory    EncoderFactory
	backend    EncoderBackend
	generation int
	frames     uint64
	closed     bool
}

// NewEncoder opens an encoder context for the given codec kind and
// surface size, with initial quality and speed targets.
//
// The initial colour sampling is computed purely from the quality target
// with no hysteresis: there is no prior state to reconcile. The backend
// opens with slice parallelism disabled for determinism, no periodic
// forced keyframes, and no intra refresh; the transport below this layer
// delivers losslessly and in order.
func NewEncoder(kind CodecKind, width, height, quality, speed int, opts *EncoderOptions) (*Encoder, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidConfiguration, width, height)
	}
	reg, ok := encoderFactory(kind)
	if !ok {
		return nil, fmt.Errorf("%w: no encoder for %s", ErrUnsupportedCodec, kind)
	}

	thresholds := DefaultThresholds()
	cscThreshold := csc.DefaultQualityThreshold
	if opts != nil {
		if opts.Thresholds.Valid() {
			thresholds = opts.Thresholds
		} else if opts.Thresholds != (Thresholds{}) {
			logrus.WithFields(logrus.Fields{
				"function":   "NewEncoder",
				"thresholds": fmt.Sprintf("%+v", opts.Thresholds),
			}).Warn("Invalid sampling thresholds, using defaults")
		}
		if opts.CSCQualityThreshold > 0 {
			cscThreshold = opts.CSCQualityThreshold
		}
	}

	quality = clampPct(quality)
	speed = clampPct(speed)
	sampling := thresholds.pickSampling(quality)
	if !samplingSupported(reg.samplings, sampling) {
		return nil, fmt.Errorf("%w: %s does not encode %s", ErrUnsupportedFormat, kind, sampling)
	}

	e := &Encoder{
		id:           uuid.NewString(),
		kind:         kind,
		width:        width,
		height:       height,
		thresholds:   thresholds,
		cscThreshold: cscThreshold,
		quality:      quality,
		speed:        speed,
		sampling:     sampling,
		profile:      ProfileForSampling(sampling),
		quantizer:    QuantizerForQuality(quality),
		presetIndex:  PresetForSpeed(speed),
		cscAlg:       csc.AlgorithmForQuality(quality, cscThreshold),
		factory:      reg.factory,
	}

	backend, err := reg.factory(e.params())
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s encoder: %v", ErrInvalidConfiguration, kind, err)
	}
	e.backend = backend

	logrus.WithFields(logrus.Fields{
		"function":   "NewEncoder",
		"context_id": e.id,
		"codec":      kind.String(),
		"width":      width,
		"height":     height,
		"quality":    quality,
		"speed":      speed,
		"sampling":   sampling.String(),
		"profile":    e.profile.String(),
	}).Info("Encoder context opened")

	return e, nil
}

// params assembles the backend parameter set from the current
// adaptation state.
func (e *Encoder) params() Params {
	return Params{
		Width:       e.width,
		Height:      e.height,
		Sampling:    e.sampling,
		Profile:     e.profile,
		Quantizer:   e.quantizer,
		PresetIndex: e.presetIndex,
	}
}

// SetQuality applies a new quality target.
//
// The candidate sampling for the target is computed first; if the
// current sampling is still inside its hysteresis band it is kept and
// only the quantizer is updated in place. Only when the band is left and
// the candidate differs does the encoder perform a structural
// reconfiguration: close the backend, re-derive profile, quantizer and
// conversion algorithm for the new sampling, and reopen. The conversion
// algorithm is additionally retuned on its own simpler threshold, which
// rebuilds only the converter, never the backend.
func (e *Encoder) SetQuality(pct int) error {
	if e.closed {
		return ErrContextClosed
	}
	pct = clampPct(pct)

	newSampling := e.thresholds.pickSampling(pct)
	canKeep := e.thresholds.hysteresisOK(e.sampling, pct)

	if !canKeep && newSampling != e.sampling {
		if err := e.reopen(newSampling, pct); err != nil {
			return err
		}
	} else if quant := QuantizerForQuality(pct); quant != e.quantizer {
		params := e.backend.Params()
		params.Quantizer = quant
		if err := e.backend.Reconfigure(params); err != nil {
			return fmt.Errorf("%w: quantizer update: %v", ErrEncodeFailed, err)
		}
		e.quantizer = quant

		logrus.WithFields(logrus.Fields{
			"function":      "SetQuality",
			"context_id":    e.id,
			"quality":       pct,
			"quantizer_min": quant.Min,
			"quantizer_max": quant.Max,
		}).Debug("Updated quantizer in place")
	}

	if alg := csc.AlgorithmForQuality(pct, e.cscThreshold); alg != e.cscAlg {
		e.cscAlg = alg
		e.conv = nil

		logrus.WithFields(logrus.Fields{
			"function":   "SetQuality",
			"context_id": e.id,
			"quality":    pct,
			"algorithm":  alg.String(),
		}).Debug("Conversion algorithm changed, converter will be rebuilt")
	}

	e.quality = pct
	return nil
}

// reopen performs a structural reconfiguration to a new colour sampling.
// This is the expensive path the hysteresis bands exist to minimize.
func (e *Encoder) reopen(sampling pixbuf.ColourSampling, quality int) error {
	reg, ok := encoderFactory(e.kind)
	if !ok || !samplingSupported(reg.samplings, sampling) {
		return fmt.Errorf("%w: %s does not encode %s", ErrUnsupportedFormat, e.kind, sampling)
	}

	old := e.sampling
	if err := e.backend.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "reopen",
			"context_id": e.id,
			"error":      err.Error(),
		}).Warn("Closing encoder backend for reconfiguration failed")
	}

	e.sampling = sampling
	e.profile = ProfileForSampling(sampling)
	e.quantizer = QuantizerForQuality(quality)
	e.cscAlg = csc.AlgorithmForQuality(quality, e.cscThreshold)
	e.conv = nil

	backend, err := reg.factory(e.params())
	if err != nil {
		// A failed reopen leaves no usable backend: surface as fatal.
		e.closed = true
		return fmt.Errorf("%w: reopening %s encoder at %s: %v",
			ErrCodecFatal, e.kind, sampling, err)
	}
	e.backend = backend
	e.generation++

	logrus.WithFields(logrus.Fields{
		"function":     "reopen",
		"context_id":   e.id,
		"old_sampling": old.String(),
		"new_sampling": sampling.String(),
		"profile":      e.profile.String(),
		"generation":   e.generation,
	}).Info("Structural encoder reconfiguration")

	return nil
}

// SetSpeed applies a new speed target.
//
// The percentage is bucketed onto the preset table; an unchanged bucket
// is a no-op. Otherwise the current backend parameters are re-read, the
// preset replaced, and the active quantizer and profile re-applied on
// top, so a speed change never silently resets quality. Speed changes
// are always parameter changes, never structural.
func (e *Encoder) SetSpeed(pct int) error {
	if e.closed {
		return ErrContextClosed
	}
	pct = clampPct(pct)

	index := PresetForSpeed(pct)
	if index == e.presetIndex {
		e.speed = pct
		return nil
	}

	params := e.backend.Params()
	params.PresetIndex = index
	params.Quantizer = e.quantizer
	params.Profile = e.profile
	if err := e.backend.Reconfigure(params); err != nil {
		return fmt.Errorf("%w: preset update: %v", ErrEncodeFailed, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "SetSpeed",
		"context_id": e.id,
		"speed":      pct,
		"old_preset": PresetName(e.presetIndex),
		"new_preset": PresetName(index),
	}).Debug("Updated speed preset in place")

	e.presetIndex = index
	e.speed = pct
	return nil
}

// Encode compresses one pixel buffer.
//
// Packed RGB input is converted to the encoder's configured colour
// sampling first; planar input must already match it. The input buffer
// is borrowed only for the duration of the call and may be reused by the
// caller as soon as Encode returns.
func (e *Encoder) Encode(buf *pixbuf.Buffer) (*CompressedFrame, error) {
	if e.closed {
		return nil, ErrContextClosed
	}
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if buf.Width != e.width || buf.Height != e.height {
		// The context is bound to one surface size; a mismatch means the
		// caller lost track of which context owns which surface.
		e.closed = true
		_ = e.backend.Close()
		return nil, fmt.Errorf("%w: frame is %dx%d, context is %dx%d",
			ErrCodecFatal, buf.Width, buf.Height, e.width, e.height)
	}

	planar := buf
	target := e.sampling.PlanarFormat()
	switch {
	case buf.Format == target:
		// Capture already supplies the sampling the encoder expects.
	case buf.Format.IsPacked():
		conv, err := e.converter(buf.Format)
		if err != nil {
			return nil, err
		}
		planar, err = conv.Convert(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: colourspace conversion: %v", ErrEncodeFailed, err)
		}
	default:
		return nil, fmt.Errorf("%w: encoder wants %s, got %s", ErrUnsupportedFormat, target, buf.Format)
	}

	data, err := e.backend.Encode(planar)
	if err != nil {
		if errors.Is(err, ErrCodecFatal) {
			e.closed = true
			_ = e.backend.Close()
		}
		// Non-fatal backend errors are transient: the backend is buffering
		// or skipped this frame, the context stays usable and the caller
		// retries at the next frame.
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}

	e.frames++
	logrus.WithFields(logrus.Fields{
		"function":   "Encode",
		"context_id": e.id,
		"frame":      e.frames,
		"input":      buf.Format.String(),
		"bytes":      len(data),
	}).Debug("Encoded frame")

	return &CompressedFrame{
		Data:         data,
		Kind:         e.kind,
		Sampling:     e.sampling,
		Width:        e.width,
		Height:       e.height,
		AlphaPresent: buf.Format.HasAlpha(),
	}, nil
}

// converter returns the converter for the given packed source format,
// rebuilding it when the source format, target sampling or algorithm
// changed since the last frame.
func (e *Encoder) converter(src pixbuf.Format) (*csc.Converter, error) {
	if e.conv != nil && e.convSrc == src {
		return e.conv, nil
	}
	conv, err := csc.NewConverter(src, e.sampling.PlanarFormat(), e.cscAlg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	e.conv = conv
	e.convSrc = src
	return conv, nil
}

// Close releases the backend encoder. Idempotent.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	err := e.backend.Close()

	logrus.WithFields(logrus.Fields{
		"function":   "Close",
		"context_id": e.id,
		"frames":     e.frames,
		"generation": e.generation,
	}).Info("Encoder context closed")

	return err
}

// ID returns the stable context identifier used in log fields.
func (e *Encoder) ID() string { return e.id }

// Kind returns the codec kind the context was opened for.
func (e *Encoder) Kind() CodecKind { return e.kind }

// Width returns the fixed surface width.
func (e *Encoder) Width() int { return e.width }

// Height returns the fixed surface height.
func (e *Encoder) Height() int { return e.height }

// Quality returns the last applied quality target.
func (e *Encoder) Quality() int { return e.quality }

// Speed returns the last applied speed target.
func (e *Encoder) Speed() int { return e.speed }

// ColourSampling returns the active colour sampling mode.
func (e *Encoder) ColourSampling() pixbuf.ColourSampling { return e.sampling }

// Profile returns the active profile tier.
func (e *Encoder) Profile() Profile { return e.profile }

// Quantizer returns the active quantizer range.
func (e *Encoder) Quantizer() QuantizerRange { return e.quantizer }

// SpeedPreset returns the name of the active speed preset.
func (e *Encoder) SpeedPreset() string { return PresetName(e.presetIndex) }

// ConversionAlgorithm returns the active colourspace conversion algorithm.
func (e *Encoder) ConversionAlgorithm() csc.Algorithm { return e.cscAlg }

// Generation returns the number of structural reconfigurations the
// context has performed since it was opened.
func (e *Encoder) Generation() int { return e.generation }
