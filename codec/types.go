package codec

import (
	"fmt"

	"github.com/framecast/framecast/pixbuf"
)

// CodecKind identifies a compressed bitstream family. The set is closed;
// lookups over it use exhaustive switches rather than string tags.
type CodecKind int

const (
	// CodecRawZ is the zstd-backed planar codec (encode and decode).
	CodecRawZ CodecKind = iota
	// CodecVP8 is the VP8 bitstream (decode only in this build).
	CodecVP8
)

// String returns the canonical lower-case name of the codec kind.
func (k CodecKind) String() string {
	switch k {
	case CodecRawZ:
		return "rawz"
	case CodecVP8:
		return "vp8"
	default:
		return fmt.Sprintf("CodecKind(%d)", int(k))
	}
}

// Profile names the constraint set a decoder must support to play back a
// bitstream. Each colour sampling tier maps to exactly one profile, so a
// sampling change always implies a profile change.
type Profile int

const (
	// ProfileMain is the 4:2:0 tier.
	ProfileMain Profile = iota
	// ProfileHigh422 is the 4:2:2 tier.
	ProfileHigh422
	// ProfileHigh444 is the 4:4:4 tier.
	ProfileHigh444
)

// String returns the profile name.
func (p Profile) String() string {
	switch p {
	case ProfileMain:
		return "main"
	case ProfileHigh422:
		return "high422"
	case ProfileHigh444:
		return "high444"
	default:
		return fmt.Sprintf("Profile(%d)", int(p))
	}
}

// ProfileForSampling returns the profile tier for a colour sampling mode.
func ProfileForSampling(s pixbuf.ColourSampling) Profile {
	switch s {
	case pixbuf.Sampling422:
		return ProfileHigh422
	case pixbuf.Sampling444:
		return ProfileHigh444
	default:
		return ProfileMain
	}
}

// QuantizerRange is the rate-control window handed to a backend, on the
// conventional 0..63 scale. Higher values mean smaller, lower-quality
// output.
type QuantizerRange struct {
	Min int
	Max int
}

// quantizerScale is the top of the quantizer range. The exact mapping
// from quality to quantizer is backend-family specific; only its shape
// (monotonically decreasing in quality) is fixed here.
const quantizerScale = 63

// QuantizerForQuality maps a quality percentage onto a quantizer range.
// The mapping is linear and monotonically decreasing: quality 0 yields
// the widest, coarsest range and quality 100 yields {0, 0}.
func QuantizerForQuality(quality int) QuantizerRange {
	quality = clampPct(quality)
	max := quantizerScale - quantizerScale*quality/100
	min := max - 8
	if min < 0 {
		min = 0
	}
	return QuantizerRange{Min: min, Max: max}
}

// speedPresets is the ordered set of backend speed presets, slowest and
// best-compressing first. The speed percentage is bucketed onto it.
var speedPresets = [...]string{
	"placebo", "veryslow", "slower", "slow", "medium",
	"fast", "faster", "veryfast", "superfast", "ultrafast",
}

// SpeedPresetCount returns the number of speed preset buckets.
func SpeedPresetCount() int { return len(speedPresets) }

// PresetForSpeed buckets a speed percentage (0 = slowest/best compression,
// 100 = fastest/cheapest) onto a preset index.
func PresetForSpeed(speed int) int {
	speed = clampPct(speed)
	return speed * (len(speedPresets) - 1) / 100
}

// PresetName returns the name of a preset index, clamping out-of-range
// indexes into the table.
func PresetName(index int) string {
	if index < 0 {
		index = 0
	}
	if index >= len(speedPresets) {
		index = len(speedPresets) - 1
	}
	return speedPresets[index]
}

// CompressedFrame is one encoded frame handed to the transport
// collaborator, together with the stream metadata a decoder needs.
type CompressedFrame struct {
	Data     []byte
	Kind     CodecKind
	Sampling pixbuf.ColourSampling
	Width    int
	Height   int

	// AlphaPresent records whether the source buffer carried an alpha
	// channel; the display side uses it to pick a compositing path.
	AlphaPresent bool
}

// Thresholds are the quality percentages steering colour sampling
// selection. Enter values are the qualities at or above which 4:2:2 and
// 4:4:4 are first chosen; floor values are the lower bounds below which
// the current sampling must be abandoned. The gap between enter and
// floor is the hysteresis band that keeps quality drift near a boundary
// from oscillating between structural configurations.
type Thresholds struct {
	I422Enter int
	I444Enter int
	I422Floor int
	I444Floor int
}

// DefaultThresholds returns the stock sampling thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{I422Enter: 80, I444Enter: 90, I422Floor: 70, I444Floor: 70}
}

// Valid reports whether the threshold ordering invariant holds:
// 0 <= I422Floor <= I422Enter <= I444Enter <= 100, with the 444 floor
// between the 422 floor and the 444 enter point.
func (t Thresholds) Valid() bool {
	return t.I422Floor >= 0 &&
		t.I422Floor <= t.I422Enter &&
		t.I422Enter <= t.I444Enter &&
		t.I444Enter <= 100 &&
		t.I444Floor <= t.I444Enter &&
		t.I444Floor >= t.I422Floor
}

// pickSampling selects the colour sampling for a quality percentage with
// no regard to current state. Used at construction and as the candidate
// during adaptation.
func (t Thresholds) pickSampling(quality int) pixbuf.ColourSampling {
	switch {
	case quality >= t.I444Enter:
		return pixbuf.Sampling444
	case quality >= t.I422Enter:
		return pixbuf.Sampling422
	default:
		return pixbuf.Sampling420
	}
}

// hysteresisOK reports whether the current sampling may be kept at the
// given quality. The bands are deliberately asymmetric with pickSampling
// so that a sampling, once entered, survives moderate quality drift.
func (t Thresholds) hysteresisOK(current pixbuf.ColourSampling, quality int) bool {
	switch current {
	case pixbuf.Sampling444:
		return quality >= t.I444Floor
	case pixbuf.Sampling422:
		return quality >= t.I422Floor && quality <= t.I444Enter
	default:
		return quality <= t.I422Enter
	}
}

func clampPct(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
