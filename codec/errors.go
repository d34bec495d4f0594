package codec

import "errors"

// Sentinel errors for codec context operations.
// These errors enable reliable error classification using errors.Is().

// Construction and configuration errors.
var (
	// ErrInvalidConfiguration indicates invalid dimensions, thresholds or
	// parameters at construction or reconfiguration; the context never opens.
	ErrInvalidConfiguration = errors.New("invalid codec configuration")

	// ErrUnsupportedCodec indicates no backend is registered for the
	// requested codec kind and direction.
	ErrUnsupportedCodec = errors.New("unsupported codec kind")

	// ErrUnsupportedFormat indicates a pixel format or colour sampling the
	// context cannot accept.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
)

// Runtime errors.
var (
	// ErrEncodeFailed indicates the encoder backend reported a failure.
	ErrEncodeFailed = errors.New("encode failed")

	// ErrDecodeFailed indicates the decoder backend reported a failure.
	ErrDecodeFailed = errors.New("decode failed")

	// ErrCodecFatal marks a backend failure as unrecoverable. Backends wrap
	// it together with ErrEncodeFailed or ErrDecodeFailed; the context
	// closes itself and the caller must recreate it.
	ErrCodecFatal = errors.New("codec state unrecoverable")

	// ErrContextClosed indicates use of a context after Close.
	ErrContextClosed = errors.New("codec context is closed")
)

// Ownership errors.
var (
	// ErrOwnershipViolation indicates a frame lifetime invariant was
	// broken: a double release, or use of a wrapper after release. This is
	// a programming error, never an expected runtime condition.
	ErrOwnershipViolation = errors.New("frame ownership violation")
)
