package weight

import (
	"github.com/go-i2p/logger"

	"github.com/go-i2p/go-relayselect/lib/relay"
)

// Kind is the combination of Guard, Exit and V2Dir flags that decides which
// coefficients apply to a relay.
type Kind uint8

const (
	KindGuard Kind = 1 << iota
	KindExit
	KindDir
)

// numKinds is every combination of the three Kind bits.
const numKinds = 8

// KindOf derives a relay's Kind from its consensus flags.
func KindOf(f relay.Flags) Kind {
	var k Kind
	if f.Has(relay.FlagGuard) {
		k |= KindGuard
	}
	if f.Has(relay.FlagExit) {
		k |= KindExit
	}
	if f.Has(relay.FlagV2Dir) {
		k |= KindDir
	}
	return k
}

// Slot is the position a coefficient is looked up for.
type Slot uint8

const (
	SlotGuard Slot = iota
	SlotMiddle
	SlotExit
	SlotDir
	numSlots
)

// SlotFor maps a path role to its coefficient slot. Onion service roles are
// weighted as middle hops.
func SlotFor(role relay.Role) Slot {
	switch role {
	case relay.RoleGuard:
		return SlotGuard
	case relay.RoleExit:
		return SlotExit
	case relay.RoleDirectoryCache:
		return SlotDir
	default:
		return SlotMiddle
	}
}

// DefaultScale is the denominator used when a view does not publish one.
const DefaultScale = 10000

// Table is a versioned lookup of role coefficients, stored as numerators
// over Scale. Tables are immutable once built.
type Table struct {
	Version string
	Scale   uint32
	w       [numKinds][numSlots]uint32
}

// keyword rows for the non-directory kinds, in slot order. "---" is a
// fixed zero: an exit-only relay is never weighted as a guard.
var keywordRows = [4][numSlots]string{
	0:                    {"Wgm", "Wmm", "Wem", "Wbm"},
	KindGuard:            {"Wgg", "Wmg", "Weg", "Wbg"},
	KindExit:             {"---", "Wme", "Wee", "Wbe"},
	KindGuard | KindExit: {"Wgd", "Wmd", "Wed", "Wbd"},
}

// dirKeywords scale the rows above for relays that are also directory caches.
var dirKeywords = [4]string{
	0:                    "Wmb",
	KindGuard:            "Wgb",
	KindExit:             "Web",
	KindGuard | KindExit: "Wdb",
}

// FromBandwidthWeights builds a Table from consensus bandwidth-weight
// keywords. Values are clamped to [0, Scale] so that every coefficient
// lies in [0, 1].
//
// A missing keyword is neutral (Scale, coefficient 1). Tor clients instead
// read a missing keyword as the raw value 1, which makes the coefficient
// nearly 0 and starves that position. Here a view that publishes no
// weights at all weights every position by plain bandwidth; callers that
// want Tor's reading can pass every keyword explicitly.
func FromBandwidthWeights(version string, weights map[string]int32, scale uint32) *Table {
	if scale == 0 {
		scale = DefaultScale
	}
	t := &Table{Version: version, Scale: scale}

	param := func(kw string) uint32 {
		if kw == "---" {
			return 0
		}
		v, ok := weights[kw]
		if !ok {
			return scale
		}
		if v < 0 {
			return 0
		}
		if uint32(v) > scale {
			return scale
		}
		return uint32(v)
	}

	for k := range keywordRows {
		dirMul := uint64(param(dirKeywords[k]))
		for s := range numSlots {
			base := param(keywordRows[k][s])
			t.w[k][s] = base
			t.w[Kind(k)|KindDir][s] = uint32(uint64(base) * dirMul / uint64(scale))
		}
	}

	log.WithFields(logger.Fields{
		"at":      "weight.FromBandwidthWeights",
		"version": version,
		"scale":   scale,
		"given":   len(weights),
	}).Debug("built role coefficient table")
	return t
}

// Neutral returns a table where every coefficient is 1 except the guard
// slot of exit-only relays.
func Neutral(version string) *Table {
	return FromBandwidthWeights(version, nil, DefaultScale)
}

// Numerator returns the raw coefficient numerator for role and kind.
func (t *Table) Numerator(role relay.Role, kind Kind) uint32 {
	return t.w[kind&(numKinds-1)][SlotFor(role)]
}

// Coefficient returns the coefficient for role and kind as a fraction in [0,1].
func (t *Table) Coefficient(role relay.Role, kind Kind) float64 {
	return float64(t.Numerator(role, kind)) / float64(t.Scale)
}

// MaxNumerator returns the largest numerator in the table.
func (t *Table) MaxNumerator() uint32 {
	var m uint32
	for k := range t.w {
		for _, v := range t.w[k] {
			m = max(m, v)
		}
	}
	return m
}
