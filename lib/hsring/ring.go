package hsring

import (
	"iter"
	"sort"

	"github.com/go-i2p/go-relayselect/lib/netview"
	"github.com/go-i2p/go-relayselect/lib/relay"
)

// IsRingMember reports whether r takes part in the ring for role.
// HsDir rings hold HSDir-flagged relays; introduction and rendezvous rings
// hold Fast and Stable relays. Every member needs an Ed25519 identity
// and must pass the basic usability filter.
func IsRingMember(r *netview.Relay, role relay.Role) bool {
	if !r.HasEd25519 || !r.IsUsable() {
		return false
	}
	switch role {
	case relay.RoleHsDir:
		return r.Flags.Has(relay.FlagHSDir)
	case relay.RoleIntroduction, relay.RoleRendezvous:
		return r.Flags.Has(relay.FlagFast | relay.FlagStable)
	default:
		return false
	}
}

// IsRingRole reports whether role can be placed on a ring.
func IsRingRole(role relay.Role) bool {
	return role.IsOnionService()
}

type entry struct {
	index Index
	relay *netview.Relay
}

// Ring is the relays of one role ordered by ascending ring index for one
// period. A Ring is immutable.
type Ring struct {
	period  Period
	role    relay.Role
	entries []entry
}

func buildRing(v *netview.View, p Period, role relay.Role) *Ring {
	ring := &Ring{period: p, role: role}
	for r := range v.All() {
		if IsRingMember(r, role) {
			ring.entries = append(ring.entries, entry{index: RelayIndex(r.Ed25519Identity, p), relay: r})
		}
	}
	sort.Slice(ring.entries, func(i, j int) bool {
		if c := ring.entries[i].index.Compare(ring.entries[j].index); c != 0 {
			return c < 0
		}
		return ring.entries[i].relay.ID().Compare(ring.entries[j].relay.ID()) < 0
	})
	return ring
}

// Period returns the period the ring was built for.
func (r *Ring) Period() Period { return r.period }

// Role returns the role the ring was built for.
func (r *Ring) Role() relay.Role { return r.role }

// Len returns the number of relays on the ring.
func (r *Ring) Len() int { return len(r.entries) }

// At returns the relay at position i and its index.
func (r *Ring) At(i int) (*netview.Relay, Index) {
	e := r.entries[i]
	return e.relay, e.index
}

// All yields every relay in ring order. It can be ranged over any number
// of times.
func (r *Ring) All() iter.Seq2[int, *netview.Relay] {
	return func(yield func(int, *netview.Relay) bool) {
		for i, e := range r.entries {
			if !yield(i, e.relay) {
				return
			}
		}
	}
}

// Position returns the first position whose index is at least idx,
// wrapping to 0 past the end.
func (r *Ring) Position(idx Index) int {
	pos := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].index.Compare(idx) >= 0
	})
	if pos == len(r.entries) {
		return 0
	}
	return pos
}

// From yields every relay exactly once, starting at Position(idx) and
// wrapping around the ring.
func (r *Ring) From(idx Index) iter.Seq[*netview.Relay] {
	return func(yield func(*netview.Relay) bool) {
		n := len(r.entries)
		if n == 0 {
			return
		}
		start := r.Position(idx)
		for k := range n {
			if !yield(r.entries[(start+k)%n].relay) {
				return
			}
		}
	}
}

// Op is the operation an onion service directory lookup is for.
type Op uint8

const (
	// OpFetch is a client downloading a descriptor.
	OpFetch Op = iota
	// OpStore is a service uploading its descriptor.
	OpStore
)

func (o Op) String() string {
	if o == OpStore {
		return "store"
	}
	return "fetch"
}

// Params are the ring network parameters.
type Params struct {
	Replicas    int
	SpreadFetch int
	SpreadStore int
}

// Spread returns the spread for op.
func (p Params) Spread(op Op) int {
	if op == OpStore {
		return p.SpreadStore
	}
	return p.SpreadFetch
}

// Responsible returns the directories responsible for a service. For each
// replica from 1 to Replicas it walks the ring from the replica's service
// index and takes the next Spread(op) relays not already chosen for a
// lower replica. The result is in selection order.
func (r *Ring) Responsible(blinded BlindedID, params Params, op Op) []*netview.Relay {
	spread := params.Spread(op)
	if spread <= 0 || params.Replicas <= 0 {
		return nil
	}

	chosen := make(map[*netview.Relay]struct{})
	var out []*netview.Relay
	for replica := 1; replica <= params.Replicas && replica <= 255; replica++ {
		added := 0
		for cand := range r.From(ServiceIndex(blinded, uint8(replica), r.period)) {
			if added == spread {
				break
			}
			if _, dup := chosen[cand]; dup {
				continue
			}
			chosen[cand] = struct{}{}
			out = append(out, cand)
			added++
		}
	}
	return out
}
