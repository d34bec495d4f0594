// Package config provides tuning configuration for the framecast codec
// pipeline.
//
// The sampling thresholds and conversion threshold are deployment
// tuning, not protocol constants: operators adjust them per codec
// family and workload. Values outside their valid ranges are replaced
// by defaults rather than rejected, so a partially broken tuning file
// degrades to stock behaviour instead of taking the pipeline down.
package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/framecast/framecast/codec"
	"github.com/framecast/framecast/csc"
)

// Tuning holds the adaptation tuning knobs of the codec pipeline.
type Tuning struct {
	// Colour sampling thresholds (quality percentages).
	I422Enter int `yaml:"i422_enter"`
	I444Enter int `yaml:"i444_enter"`
	I422Floor int `yaml:"i422_floor"`
	I444Floor int `yaml:"i444_floor"`

	// CSCQualityThreshold selects the conversion algorithm boundary.
	CSCQualityThreshold int `yaml:"csc_quality_threshold"`
}

// Defaults returns a Tuning with the stock values.
func Defaults() Tuning {
	t := codec.DefaultThresholds()
	return Tuning{
		I422Enter:           t.I422Enter,
		I444Enter:           t.I444Enter,
		I422Floor:           t.I422Floor,
		I444Floor:           t.I444Floor,
		CSCQualityThreshold: csc.DefaultQualityThreshold,
	}
}

// Load reads a YAML tuning file. Missing keys keep their defaults;
// invalid threshold combinations are replaced by defaults with a
// warning.
func Load(path string) (Tuning, error) {
	tuning := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return tuning, fmt.Errorf("reading tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return Defaults(), fmt.Errorf("parsing tuning file: %w", err)
	}

	return tuning.Normalized(), nil
}

// Normalized returns the tuning with out-of-range values replaced by
// defaults.
func (t Tuning) Normalized() Tuning {
	if !t.Thresholds().Valid() {
		logrus.WithFields(logrus.Fields{
			"function":   "Normalized",
			"i422_enter": t.I422Enter,
			"i444_enter": t.I444Enter,
			"i422_floor": t.I422Floor,
			"i444_floor": t.I444Floor,
		}).Warn("Invalid sampling thresholds in tuning, using defaults")
		d := Defaults()
		t.I422Enter, t.I444Enter = d.I422Enter, d.I444Enter
		t.I422Floor, t.I444Floor = d.I422Floor, d.I444Floor
	}
	if t.CSCQualityThreshold <= 0 || t.CSCQualityThreshold > 100 {
		t.CSCQualityThreshold = csc.DefaultQualityThreshold
	}
	return t
}

// Thresholds converts the tuning into the codec threshold set.
func (t Tuning) Thresholds() codec.Thresholds {
	return codec.Thresholds{
		I422Enter: t.I422Enter,
		I444Enter: t.I444Enter,
		I422Floor: t.I422Floor,
		I444Floor: t.I444Floor,
	}
}

// EncoderOptions converts the tuning into encoder options.
func (t Tuning) EncoderOptions() *codec.EncoderOptions {
	return &codec.EncoderOptions{
		Thresholds:          t.Thresholds(),
		CSCQualityThreshold: t.CSCQualityThreshold,
	}
}
