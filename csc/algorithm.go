package csc

import "fmt"

// Algorithm selects the chroma resampling strategy of a Converter,
// trading accuracy for speed.
type Algorithm int

const (
	// AlgorithmPoint picks the nearest chroma sample. Fastest.
	AlgorithmPoint Algorithm = iota
	// AlgorithmFiltered resamples chroma with a Catmull-Rom kernel.
	AlgorithmFiltered
)

// String returns the name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmPoint:
		return "point"
	case AlgorithmFiltered:
		return "filtered"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// DefaultQualityThreshold is the quality percentage at or above which
// the filtered algorithm is selected.
const DefaultQualityThreshold = 70

// AlgorithmForQuality maps a quality percentage onto an algorithm using
// a single threshold. A threshold of zero or less selects the default.
func AlgorithmForQuality(quality, threshold int) Algorithm {
	if threshold <= 0 {
		threshold = DefaultQualityThreshold
	}
	if quality >= threshold {
		return AlgorithmFiltered
	}
	return AlgorithmPoint
}
