package weight

import (
	"math/bits"

	"github.com/go-i2p/logger"

	"github.com/go-i2p/go-relayselect/lib/relay"
)

// Set turns bandwidths into sampling weights for one view. The shift is
// chosen so that the sum of all weights for any role fits in a uint64.
type Set struct {
	table *Table
	fn    BandwidthFn
	shift uint
}

// NewSet prepares weights for a view whose relays advertise bws.
func NewSet(table *Table, bws []Bandwidth) *Set {
	if table == nil {
		table = Neutral("neutral")
	}
	fn := PickBandwidthFn(bws)

	var total uint64
	for _, bw := range bws {
		total += uint64(fn.Apply(bw))
	}
	s := &Set{
		table: table,
		fn:    fn,
		shift: calculateShift(total, uint64(table.MaxNumerator())),
	}

	log.WithFields(logger.Fields{
		"at":           "weight.NewSet",
		"bandwidth_fn": fn.String(),
		"total_bw":     total,
		"shift":        s.shift,
		"relays":       len(bws),
	}).Debug("prepared weight set")
	return s
}

// Weight returns the sampling weight of a relay with bandwidth bw and
// flags f when it fills role.
func (s *Set) Weight(bw Bandwidth, f relay.Flags, role relay.Role) uint64 {
	w := uint64(s.fn.Apply(bw)) * uint64(s.table.Numerator(role, KindOf(f)))
	return w >> s.shift
}

// Table returns the coefficient table in use.
func (s *Set) Table() *Table { return s.table }

// BandwidthFn returns the bandwidth function chosen for the view.
func (s *Set) BandwidthFn() BandwidthFn { return s.fn }

// Shift returns how many bits each product is shifted right by.
func (s *Set) Shift() uint { return s.shift }

// calculateShift returns how far a product of a and b must be shifted to
// fit in 64 bits.
func calculateShift(a, b uint64) uint {
	need := bits.Len64(a) + bits.Len64(b)
	if need < 64 {
		return 0
	}
	return uint(need - 64)
}
