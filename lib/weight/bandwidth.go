package weight

// Bandwidth is a relay's advertised capacity as reported by the consensus.
type Bandwidth struct {
	Value uint32
	// Measured is set when bandwidth authorities measured Value rather than
	// copying the relay's self-report.
	Measured bool
}

// BandwidthFn decides how raw bandwidth feeds into a weight.
type BandwidthFn uint8

const (
	// BandwidthUniform weights every relay as 1.
	BandwidthUniform BandwidthFn = iota
	// BandwidthIncludeUnmeasured uses every value, measured or not.
	BandwidthIncludeUnmeasured
	// BandwidthMeasuredOnly uses measured values and treats the rest as 0.
	BandwidthMeasuredOnly
)

func (f BandwidthFn) String() string {
	switch f {
	case BandwidthUniform:
		return "uniform"
	case BandwidthIncludeUnmeasured:
		return "include-unmeasured"
	case BandwidthMeasuredOnly:
		return "measured-only"
	default:
		return "unknown"
	}
}

// Apply converts a bandwidth into the value that gets multiplied by a
// coefficient.
func (f BandwidthFn) Apply(bw Bandwidth) uint32 {
	switch f {
	case BandwidthUniform:
		return 1
	case BandwidthIncludeUnmeasured:
		return bw.Value
	case BandwidthMeasuredOnly:
		if bw.Measured {
			return bw.Value
		}
		return 0
	default:
		return 0
	}
}

// PickBandwidthFn chooses the function for a whole view:
// no nonzero values gives uniform, no measured values gives
// include-unmeasured, a nonzero measured value gives measured-only.
func PickBandwidthFn(bws []Bandwidth) BandwidthFn {
	var hasMeasured, hasNonzero, hasNonzeroMeasured bool
	for _, bw := range bws {
		hasMeasured = hasMeasured || bw.Measured
		hasNonzero = hasNonzero || bw.Value != 0
		hasNonzeroMeasured = hasNonzeroMeasured || (bw.Measured && bw.Value != 0)
	}
	switch {
	case !hasNonzero:
		return BandwidthUniform
	case !hasMeasured:
		return BandwidthIncludeUnmeasured
	case hasNonzeroMeasured:
		return BandwidthMeasuredOnly
	default:
		return BandwidthUniform
	}
}
