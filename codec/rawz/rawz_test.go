package rawz

import (
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framecast/framecast/codec"
	"github.com/framecast/framecast/pixbuf"
)

func testParams(width, height int, sampling pixbuf.ColourSampling) codec.Params {
	return codec.Params{
		Width:       width,
		Height:      height,
		Sampling:    sampling,
		Profile:     codec.ProfileForSampling(sampling),
		Quantizer:   codec.QuantizerRange{Min: 0, Max: 0},
		PresetIndex: 5,
	}
}

func testFrame(sampling pixbuf.ColourSampling, width, height int) *pixbuf.Buffer {
	buf := pixbuf.Alloc(sampling.PlanarFormat(), width, height)
	for p, plane := range buf.Planes {
		for i := range plane {
			plane[i] = byte(i + p*89)
		}
	}
	return buf
}

func TestLevelForPreset(t *testing.T) {
	assert.Equal(t, zstd.SpeedBestCompression, levelForPreset(0))
	assert.Equal(t, zstd.SpeedBestCompression, levelForPreset(2))
	assert.Equal(t, zstd.SpeedBetterCompression, levelForPreset(3))
	assert.Equal(t, zstd.SpeedDefault, levelForPreset(5))
	assert.Equal(t, zstd.SpeedFastest, levelForPreset(7))
	assert.Equal(t, zstd.SpeedFastest, levelForPreset(9))
}

func TestStepForQuantizer(t *testing.T) {
	assert.Equal(t, 1, stepForQuantizer(codec.QuantizerRange{Max: 0}))
	assert.Equal(t, 1, stepForQuantizer(codec.QuantizerRange{Max: 15}))
	assert.Equal(t, 2, stepForQuantizer(codec.QuantizerRange{Max: 16}))
	assert.Equal(t, 4, stepForQuantizer(codec.QuantizerRange{Max: 63}))
}

func TestEncoderHeader(t *testing.T) {
	enc, err := newEncoder(testParams(320, 200, pixbuf.Sampling422))
	require.NoError(t, err)
	defer enc.Close()

	data, err := enc.Encode(testFrame(pixbuf.Sampling422, 320, 200))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), headerSize)

	assert.Equal(t, magic, string(data[0:4]))
	assert.Equal(t, uint16(320), binary.BigEndian.Uint16(data[4:6]))
	assert.Equal(t, uint16(200), binary.BigEndian.Uint16(data[6:8]))
	assert.Equal(t, byte(pixbuf.Sampling422), data[8])
	assert.Equal(t, byte(1), data[10])
}

func TestEncoderRejectsWrongFormat(t *testing.T) {
	enc, err := newEncoder(testParams(64, 48, pixbuf.Sampling420))
	require.NoError(t, err)
	defer enc.Close()

	_, err = enc.Encode(testFrame(pixbuf.Sampling444, 64, 48))
	assert.Error(t, err)
}

func TestEncoderReconfigure(t *testing.T) {
	p := testParams(64, 48, pixbuf.Sampling420)
	enc, err := newEncoder(p)
	require.NoError(t, err)
	defer enc.Close()

	// Structural parameters are pinned for the lifetime of the instance.
	wider := p
	wider.Width = 128
	assert.Error(t, enc.Reconfigure(wider))

	resampled := p
	resampled.Sampling = pixbuf.Sampling444
	resampled.Profile = codec.ProfileForSampling(pixbuf.Sampling444)
	assert.Error(t, enc.Reconfigure(resampled))

	// Quantizer and preset move freely.
	tuned := p
	tuned.Quantizer = codec.QuantizerRange{Min: 49, Max: 57}
	tuned.PresetIndex = 9
	require.NoError(t, enc.Reconfigure(tuned))
	assert.Equal(t, tuned, enc.Params())

	data, err := enc.Encode(testFrame(pixbuf.Sampling420, 64, 48))
	require.NoError(t, err)
	assert.Equal(t, byte(4), data[10], "quantizer step must follow the reconfigure")
}

func TestBackendRoundTrip(t *testing.T) {
	for _, sampling := range []pixbuf.ColourSampling{
		pixbuf.Sampling420, pixbuf.Sampling422, pixbuf.Sampling444,
	} {
		t.Run(sampling.String(), func(t *testing.T) {
			enc, err := newEncoder(testParams(61, 43, sampling))
			require.NoError(t, err)
			defer enc.Close()

			src := testFrame(sampling, 61, 43)
			data, err := enc.Encode(src)
			require.NoError(t, err)

			dec, err := newDecoder(61, 43, sampling)
			require.NoError(t, err)
			defer dec.Close()

			frame, ready, err := dec.Decode(data)
			require.NoError(t, err)
			require.True(t, ready)
			assert.Equal(t, 61, frame.Width)
			assert.Equal(t, 43, frame.Height)
			assert.Equal(t, sampling, frame.Sampling)

			for p := range src.Planes {
				assert.Equal(t, src.Planes[p], frame.Planes[p], "plane %d", p)
			}
		})
	}
}

func TestDecoderScratchReuse(t *testing.T) {
	enc, err := newEncoder(testParams(32, 32, pixbuf.Sampling420))
	require.NoError(t, err)
	defer enc.Close()

	dec, err := newDecoder(32, 32, pixbuf.Sampling420)
	require.NoError(t, err)
	defer dec.Close()

	first := testFrame(pixbuf.Sampling420, 32, 32)
	data, err := enc.Encode(first)
	require.NoError(t, err)
	frameA, ready, err := dec.Decode(data)
	require.NoError(t, err)
	require.True(t, ready)
	luma := frameA.Planes[0][0]

	// The second decode overwrites the memory the first frame aliased.
	second := pixbuf.Alloc(pixbuf.FormatYUV420P, 32, 32)
	for _, plane := range second.Planes {
		for i := range plane {
			plane[i] = ^luma
		}
	}
	data, err = enc.Encode(second)
	require.NoError(t, err)
	_, ready, err = dec.Decode(data)
	require.NoError(t, err)
	require.True(t, ready)

	assert.Equal(t, ^luma, frameA.Planes[0][0], "planes alias reused scratch memory")
}

func TestDecoderContinuation(t *testing.T) {
	dec, err := newDecoder(64, 48, pixbuf.Sampling420)
	require.NoError(t, err)
	defer dec.Close()

	frame, ready, err := dec.Decode([]byte(magicContinuation))
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Nil(t, frame)
}

func TestDecoderErrors(t *testing.T) {
	dec, err := newDecoder(64, 48, pixbuf.Sampling420)
	require.NoError(t, err)
	defer dec.Close()

	_, _, err = dec.Decode([]byte("xx"))
	assert.Error(t, err)

	_, _, err = dec.Decode([]byte("BOGUS header padding."))
	assert.Error(t, err)

	// A well-formed header with an unknown sampling is unrecoverable.
	bad := make([]byte, headerSize)
	copy(bad, magic)
	binary.BigEndian.PutUint16(bad[4:6], 64)
	binary.BigEndian.PutUint16(bad[6:8], 48)
	bad[8] = 9
	_, _, err = dec.Decode(bad)
	assert.ErrorIs(t, err, codec.ErrCodecFatal)
}
