package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/framecast/framecast/pixbuf"
)

func TestCodecKindString(t *testing.T) {
	assert.Equal(t, "rawz", CodecRawZ.String())
	assert.Equal(t, "vp8", CodecVP8.String())
	assert.Contains(t, CodecKind(42).String(), "42")
}

func TestProfileForSampling(t *testing.T) {
	tests := []struct {
		name     string
		sampling pixbuf.ColourSampling
		expected Profile
	}{
		{"420 maps to main", pixbuf.Sampling420, ProfileMain},
		{"422 maps to high422", pixbuf.Sampling422, ProfileHigh422},
		{"444 maps to high444", pixbuf.Sampling444, ProfileHigh444},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ProfileForSampling(tt.sampling))
		})
	}
}

func TestQuantizerForQualityMonotonic(t *testing.T) {
	prev := QuantizerForQuality(0)
	assert.Equal(t, quantizerScale, prev.Max)

	for q := 1; q <= 100; q++ {
		cur := QuantizerForQuality(q)
		assert.LessOrEqual(t, cur.Max, prev.Max, "quantizer must not rise with quality (q=%d)", q)
		assert.LessOrEqual(t, cur.Min, cur.Max)
		assert.GreaterOrEqual(t, cur.Min, 0)
		prev = cur
	}
	assert.Equal(t, QuantizerRange{Min: 0, Max: 0}, QuantizerForQuality(100))
}

func TestQuantizerForQualityClamps(t *testing.T) {
	assert.Equal(t, QuantizerForQuality(0), QuantizerForQuality(-5))
	assert.Equal(t, QuantizerForQuality(100), QuantizerForQuality(250))
}

func TestPresetForSpeed(t *testing.T) {
	assert.Equal(t, 0, PresetForSpeed(0))
	assert.Equal(t, SpeedPresetCount()-1, PresetForSpeed(100))

	prev := PresetForSpeed(0)
	for s := 1; s <= 100; s++ {
		cur := PresetForSpeed(s)
		assert.GreaterOrEqual(t, cur, prev, "preset bucket must not fall with speed (s=%d)", s)
		prev = cur
	}
}

func TestPresetName(t *testing.T) {
	assert.Equal(t, "placebo", PresetName(0))
	assert.Equal(t, "ultrafast", PresetName(SpeedPresetCount()-1))
	// Out of range indexes clamp instead of panicking.
	assert.Equal(t, "placebo", PresetName(-3))
	assert.Equal(t, "ultrafast", PresetName(99))
}

func TestThresholdsValid(t *testing.T) {
	tests := []struct {
		name       string
		thresholds Thresholds
		valid      bool
	}{
		{"defaults", DefaultThresholds(), true},
		{"equal floors and enters", Thresholds{I422Enter: 50, I444Enter: 50, I422Floor: 50, I444Floor: 50}, true},
		{"floor above enter", Thresholds{I422Enter: 60, I444Enter: 90, I422Floor: 70, I444Floor: 70}, false},
		{"enters out of order", Thresholds{I422Enter: 95, I444Enter: 90, I422Floor: 70, I444Floor: 70}, false},
		{"negative floor", Thresholds{I422Enter: 80, I444Enter: 90, I422Floor: -1, I444Floor: 70}, false},
		{"enter above 100", Thresholds{I422Enter: 80, I444Enter: 101, I422Floor: 70, I444Floor: 70}, false},
		{"444 floor below 422 floor", Thresholds{I422Enter: 80, I444Enter: 90, I422Floor: 70, I444Floor: 60}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.thresholds.Valid())
		})
	}
}

func TestPickSampling(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		quality  int
		expected pixbuf.ColourSampling
	}{
		{0, pixbuf.Sampling420},
		{79, pixbuf.Sampling420},
		{80, pixbuf.Sampling422},
		{89, pixbuf.Sampling422},
		{90, pixbuf.Sampling444},
		{100, pixbuf.Sampling444},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, th.pickSampling(tt.quality), "quality %d", tt.quality)
	}
}

func TestHysteresisOK(t *testing.T) {
	th := DefaultThresholds()

	// 422 survives down to its floor and up to the 444 enter point.
	assert.True(t, th.hysteresisOK(pixbuf.Sampling422, 70))
	assert.True(t, th.hysteresisOK(pixbuf.Sampling422, 90))
	assert.False(t, th.hysteresisOK(pixbuf.Sampling422, 69))
	assert.False(t, th.hysteresisOK(pixbuf.Sampling422, 91))

	// 444 survives down to its floor.
	assert.True(t, th.hysteresisOK(pixbuf.Sampling444, 70))
	assert.False(t, th.hysteresisOK(pixbuf.Sampling444, 69))

	// 420 survives up to the 422 enter point.
	assert.True(t, th.hysteresisOK(pixbuf.Sampling420, 80))
	assert.False(t, th.hysteresisOK(pixbuf.Sampling420, 81))
}
