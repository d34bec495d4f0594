// Package codec implements the adaptive video codec contexts of the
// framecast pipeline: the encoder adaptation state machine and the
// decoder frame-lifecycle model.
//
// # Encoder adaptation
//
// An Encoder is bound to one surface size for its lifetime. It carries a
// live (quality, speed) target supplied by a scheduling collaborator and
// continuously retunes its colour sampling, profile, quantizer range,
// speed preset and colourspace-conversion algorithm in response, while
// avoiding needless destruction of backend state:
//
//   - Parameter changes (quantizer, speed preset) are pushed into the
//     open backend in place.
//   - Structural changes (colour sampling, and with it the profile) close
//     and reopen the backend. Hysteresis thresholds keep quality drift
//     near a sampling boundary from oscillating between configurations.
//
// Encoders emit no periodic keyframes: the transport below this layer
// guarantees ordered lossless delivery, so forced keyframes would only
// waste bandwidth.
//
// # Decoder frame lifecycle
//
// A Decoder returns zero-copy views of backend-owned frame memory,
// wrapped in a FrameWrapper. A view stays valid only until the next
// Decode or Close on the producing context; at that boundary the context
// sweeps its outstanding wrappers and upgrades every live view to an
// owned copy, so callers never observe invalidated memory. Callers that
// want to keep a frame past the boundary call Clone explicitly.
//
// # Backends
//
// Concrete codecs register themselves from their package init, in the
// manner of database/sql drivers:
//
//	import (
//	    "github.com/framecast/framecast/codec"
//	    _ "github.com/framecast/framecast/codec/rawz"
//	)
//
//	enc, err := codec.NewEncoder(codec.CodecRawZ, 640, 480, 85, 50, nil)
//
// A single Encoder or Decoder is not safe for concurrent use; callers
// serialize access per context. Independent contexts run fully in
// parallel.
package codec
