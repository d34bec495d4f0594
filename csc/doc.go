// Package csc converts packed RGB pixel buffers to planar YUV buffers
// and back for the framecast codec pipeline.
//
// A Converter is stateless per configuration: it is built for one
// (source format, target format, algorithm) triple and can convert any
// number of buffers of that shape. Rebuilding a converter is cheap, by
// contrast with the structural reconfiguration of an encoder context,
// which is why the encoder retunes its conversion algorithm on a simpler
// quality threshold than its colour sampling.
//
// # Algorithms
//
// AlgorithmPoint subsamples and upsamples chroma by point sampling: the
// fastest option, used at low quality targets. AlgorithmFiltered resamples
// chroma planes with a Catmull-Rom kernel for noticeably better chroma
// edges, used at high quality targets.
//
// Conversions use BT.601 integer arithmetic in studio range by default;
// the full-range flag switches both directions to full-range coefficients.
package csc
