package codec

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/framecast/framecast/pixbuf"
)

// Params is a snapshot of an encoder backend's live configuration.
// Parameter-only adaptation fetches the current Params, overwrites the
// field that changed and pushes the result back with Reconfigure,
// leaving the backend open.
type Params struct {
	Width    int
	Height   int
	Sampling pixbuf.ColourSampling
	Profile  Profile

	Quantizer   QuantizerRange
	PresetIndex int
}

// EncoderBackend is one open native encoder instance, bound to a fixed
// size, sampling and profile for its lifetime. Changing any of those is
// a structural operation performed by the owning Encoder: Close followed
// by a fresh factory call.
type EncoderBackend interface {
	// Encode compresses one planar buffer matching the configured
	// sampling. The buffer is borrowed only for the duration of the call.
	Encode(buf *pixbuf.Buffer) ([]byte, error)

	// Params returns the current live configuration.
	Params() Params

	// Reconfigure pushes updated rate-control and preset parameters into
	// the open backend. Structural fields must not differ.
	Reconfigure(p Params) error

	// Close releases the backend. Idempotent.
	Close() error
}

// BackendFrame is one decoded frame as produced by a decoder backend.
// Planes may alias backend-owned scratch memory that the next decode
// call invalidates; the owning Decoder enforces that contract.
type BackendFrame struct {
	Width    int
	Height   int
	Sampling pixbuf.ColourSampling
	Planes   [][]byte
	Strides  []int
}

// DecoderBackend is one open native decoder instance bound to a fixed
// size.
type DecoderBackend interface {
	// Decode submits one compressed frame. ready=false means the backend
	// is buffering input and has no output yet; this is not an error and
	// the caller resubmits later.
	Decode(data []byte) (frame *BackendFrame, ready bool, err error)

	// Reconfigure updates the expected output sampling in place, returning
	// false when the backend cannot and must be reopened instead.
	Reconfigure(sampling pixbuf.ColourSampling) bool

	// Close releases the backend. Idempotent.
	Close() error
}

// EncoderFactory opens an encoder backend with the given initial
// parameters.
type EncoderFactory func(p Params) (EncoderBackend, error)

// DecoderFactory opens a decoder backend bound to the given size, with
// the sampling the stream is expected to carry.
type DecoderFactory func(width, height int, sampling pixbuf.ColourSampling) (DecoderBackend, error)

type encoderRegistration struct {
	factory   EncoderFactory
	samplings []pixbuf.ColourSampling
}

type decoderRegistration struct {
	factory   DecoderFactory
	samplings []pixbuf.ColourSampling
}

var (
	registryMu sync.RWMutex
	encoders   = map[CodecKind]encoderRegistration{}
	decoders   = map[CodecKind]decoderRegistration{}
)

// RegisterEncoderBackend makes an encoder factory available under a
// codec kind, declaring the colour samplings it supports. Backends call
// this from their package init.
func RegisterEncoderBackend(kind CodecKind, samplings []pixbuf.ColourSampling, factory EncoderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	encoders[kind] = encoderRegistration{factory: factory, samplings: samplings}

	logrus.WithFields(logrus.Fields{
		"function": "RegisterEncoderBackend",
		"codec":    kind.String(),
	}).Debug("Registered encoder backend")
}

// RegisterDecoderBackend makes a decoder factory available under a
// codec kind, declaring the colour samplings it can emit.
func RegisterDecoderBackend(kind CodecKind, samplings []pixbuf.ColourSampling, factory DecoderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	decoders[kind] = decoderRegistration{factory: factory, samplings: samplings}

	logrus.WithFields(logrus.Fields{
		"function": "RegisterDecoderBackend",
		"codec":    kind.String(),
	}).Debug("Registered decoder backend")
}

func encoderFactory(kind CodecKind) (encoderRegistration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := encoders[kind]
	return reg, ok
}

func decoderFactory(kind CodecKind) (decoderRegistration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := decoders[kind]
	return reg, ok
}

func samplingSupported(samplings []pixbuf.ColourSampling, s pixbuf.ColourSampling) bool {
	for _, have := range samplings {
		if have == s {
			return true
		}
	}
	return false
}
