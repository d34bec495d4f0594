package codec

import (
	"fmt"

	"github.com/framecast/framecast/pixbuf"
)

// stubKind is a private codec kind backed by in-memory stub backends,
// so the adaptation and lifecycle logic can be exercised without a real
// compressor.
const stubKind CodecKind = 77

var (
	stubEncoderOpens int
	stubLastEncoder  *stubEncoder
	stubDecoderOpens int
	stubLastDecoder  *stubDecoder
)

func resetStubCounters() {
	stubEncoderOpens = 0
	stubLastEncoder = nil
	stubDecoderOpens = 0
	stubLastDecoder = nil
}

type stubEncoder struct {
	params       Params
	reconfigures int
	closed       bool
}

func (s *stubEncoder) Encode(buf *pixbuf.Buffer) ([]byte, error) {
	if buf.Format != s.params.Sampling.PlanarFormat() {
		return nil, fmt.Errorf("stub wants %s, got %s", s.params.Sampling.PlanarFormat(), buf.Format)
	}
	return []byte{0xFC, byte(s.params.Sampling)}, nil
}

func (s *stubEncoder) Params() Params { return s.params }

func (s *stubEncoder) Reconfigure(p Params) error {
	if p.Width != s.params.Width || p.Height != s.params.Height ||
		p.Sampling != s.params.Sampling || p.Profile != s.params.Profile {
		return fmt.Errorf("structural change pushed through Reconfigure")
	}
	s.params = p
	s.reconfigures++
	return nil
}

func (s *stubEncoder) Close() error {
	s.closed = true
	return nil
}

// Stub decoder protocol: payload[0] is the command, payload[1] the
// colour sampling, payload[2] the fill value for every plane sample.
const (
	stubCmdFrame byte = iota
	stubCmdWait
	stubCmdError
	stubCmdFatal
)

type stubDecoder struct {
	width, height  int
	canReconfigure bool
	scratch        *pixbuf.Buffer
	closed         bool
}

func (s *stubDecoder) Decode(data []byte) (*BackendFrame, bool, error) {
	if len(data) < 3 {
		return nil, false, fmt.Errorf("short stub payload")
	}
	switch data[0] {
	case stubCmdWait:
		return nil, false, nil
	case stubCmdError:
		return nil, false, fmt.Errorf("stub decode error")
	case stubCmdFatal:
		return nil, false, fmt.Errorf("%w: stub fatal", ErrCodecFatal)
	}

	sampling := pixbuf.ColourSampling(data[1])
	format := sampling.PlanarFormat()
	if s.scratch == nil || s.scratch.Format != format {
		s.scratch = pixbuf.Alloc(format, s.width, s.height)
	}
	// Overwrite the reused scratch planes, as a real decoder would.
	for _, plane := range s.scratch.Planes {
		for i := range plane {
			plane[i] = data[2]
		}
	}
	return &BackendFrame{
		Width:    s.width,
		Height:   s.height,
		Sampling: sampling,
		Planes:   s.scratch.Planes,
		Strides:  s.scratch.Strides,
	}, true, nil
}

func (s *stubDecoder) Reconfigure(sampling pixbuf.ColourSampling) bool {
	return s.canReconfigure
}

func (s *stubDecoder) Close() error {
	s.closed = true
	return nil
}

func init() {
	all := []pixbuf.ColourSampling{pixbuf.Sampling420, pixbuf.Sampling422, pixbuf.Sampling444}
	RegisterEncoderBackend(stubKind, all, func(p Params) (EncoderBackend, error) {
		stubEncoderOpens++
		stubLastEncoder = &stubEncoder{params: p}
		return stubLastEncoder, nil
	})
	RegisterDecoderBackend(stubKind, all, func(width, height int, sampling pixbuf.ColourSampling) (DecoderBackend, error) {
		stubDecoderOpens++
		stubLastDecoder = &stubDecoder{width: width, height: height, canReconfigure: true}
		return stubLastDecoder, nil
	})
}
