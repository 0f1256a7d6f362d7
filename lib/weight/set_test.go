package weight

import (
	"math"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-i2p/go-relayselect/lib/relay"
)

func TestPickBandwidthFn(t *testing.T) {
	cases := []struct {
		name string
		bws  []Bandwidth
		want BandwidthFn
	}{
		{"empty", nil, BandwidthUniform},
		{"all zero", []Bandwidth{{0, true}, {0, false}}, BandwidthUniform},
		{"none measured", []Bandwidth{{10, false}, {0, false}}, BandwidthIncludeUnmeasured},
		{"some measured nonzero", []Bandwidth{{10, false}, {5, true}}, BandwidthMeasuredOnly},
		{"measured only zero", []Bandwidth{{10, false}, {0, true}}, BandwidthUniform},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PickBandwidthFn(tc.bws))
		})
	}
}

func TestBandwidthFn_Apply(t *testing.T) {
	m := Bandwidth{Value: 7, Measured: true}
	u := Bandwidth{Value: 9}
	assert.Equal(t, uint32(1), BandwidthUniform.Apply(u))
	assert.Equal(t, uint32(9), BandwidthIncludeUnmeasured.Apply(u))
	assert.Equal(t, uint32(7), BandwidthMeasuredOnly.Apply(m))
	assert.Equal(t, uint32(0), BandwidthMeasuredOnly.Apply(u))
	assert.Equal(t, "measured-only", BandwidthMeasuredOnly.String())
}

func TestSet_Weight(t *testing.T) {
	tbl := FromBandwidthWeights("t", map[string]int32{"Wgg": 5000}, 10000)
	s := NewSet(tbl, []Bandwidth{{100, true}, {50, true}})

	assert.Equal(t, BandwidthMeasuredOnly, s.BandwidthFn())
	assert.Zero(t, s.Shift())
	assert.Same(t, tbl, s.Table())

	guard := relay.FlagGuard | relay.FlagFast
	assert.Equal(t, uint64(100*5000), s.Weight(Bandwidth{100, true}, guard, relay.RoleGuard))
	assert.Equal(t, uint64(100*10000), s.Weight(Bandwidth{100, true}, guard, relay.RoleMiddle))
	assert.Zero(t, s.Weight(Bandwidth{100, false}, guard, relay.RoleMiddle))
}

func TestCalculateShift(t *testing.T) {
	assert.Zero(t, calculateShift(0, 0))
	assert.Zero(t, calculateShift(1<<40, 10000))
	// 61 bits of bandwidth and 14 bits of coefficient need 11 bits of shift
	assert.Equal(t, uint(11), calculateShift(1<<60, 10000))
	assert.Equal(t, uint(64), calculateShift(math.MaxUint64, math.MaxUint64))
}

func TestSet_ShiftPreventsOverflow(t *testing.T) {
	tbl := Neutral("n")
	total := uint64(1) << 62
	s := &Set{table: tbl, fn: BandwidthIncludeUnmeasured, shift: calculateShift(total, uint64(tbl.MaxNumerator()))}
	assert.Positive(t, s.Shift())

	// a quarter of the total in four relays still sums without carry
	var sum uint64
	bw := Bandwidth{Value: math.MaxUint32}
	for range 4 {
		var carry uint64
		sum, carry = bits.Add64(sum, s.Weight(bw, relay.FlagExit, relay.RoleExit), 0)
		assert.Zero(t, carry)
	}
	assert.Positive(t, sum)
}

func TestSet_NilTableIsNeutral(t *testing.T) {
	s := NewSet(nil, nil)
	assert.Equal(t, BandwidthUniform, s.BandwidthFn())
	assert.Equal(t, uint64(DefaultScale), s.Weight(Bandwidth{}, 0, relay.RoleMiddle))
}
