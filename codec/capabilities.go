package codec

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/framecast/framecast/pixbuf"
)

// Capability describes what one codec kind can do in this process.
type Capability struct {
	Kind      CodecKind
	CanEncode bool
	CanDecode bool

	// EncodeSamplings and DecodeSamplings list the colour samplings the
	// registered backends accept and emit respectively.
	EncodeSamplings []pixbuf.ColourSampling
	DecodeSamplings []pixbuf.ColourSampling
}

var (
	capOnce  sync.Once
	capTable map[CodecKind]Capability
)

// buildCapabilities probes the backend registry once and freezes the
// result. Registration happens in package inits, which complete before
// any user code can call into this package, so the table never misses a
// linked-in backend.
func buildCapabilities() {
	registryMu.RLock()
	defer registryMu.RUnlock()

	capTable = make(map[CodecKind]Capability, len(encoders)+len(decoders))
	for kind, reg := range encoders {
		c := capTable[kind]
		c.Kind = kind
		c.CanEncode = true
		c.EncodeSamplings = append([]pixbuf.ColourSampling(nil), reg.samplings...)
		capTable[kind] = c
	}
	for kind, reg := range decoders {
		c := capTable[kind]
		c.Kind = kind
		c.CanDecode = true
		c.DecodeSamplings = append([]pixbuf.ColourSampling(nil), reg.samplings...)
		capTable[kind] = c
	}

	for _, c := range capTable {
		logrus.WithFields(logrus.Fields{
			"function": "buildCapabilities",
			"codec":    c.Kind.String(),
			"encode":   c.CanEncode,
			"decode":   c.CanDecode,
		}).Debug("Probed codec capability")
	}
}

// Capabilities returns the process-wide codec capability table, sorted
// by kind. The table is built once on first use and read-only afterwards.
func Capabilities() []Capability {
	capOnce.Do(buildCapabilities)
	out := make([]Capability, 0, len(capTable))
	for _, c := range capTable {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// CapabilityFor returns the capability entry for one codec kind.
func CapabilityFor(kind CodecKind) (Capability, bool) {
	capOnce.Do(buildCapabilities)
	c, ok := capTable[kind]
	return c, ok
}
