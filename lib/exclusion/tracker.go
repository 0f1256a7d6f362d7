package exclusion

import (
	"github.com/go-i2p/go-relayselect/lib/netview"
	"github.com/go-i2p/go-relayselect/lib/relay"
)

// Tracker accumulates exclusions while one path is built. It grows with
// every committed hop and is discarded with the path.
//
// A Tracker belongs to a single path build and is not safe for concurrent
// use; build independent paths with independent trackers.
type Tracker struct {
	set  *Set
	hops []*netview.Relay
}

// NewTracker returns an empty tracker grouping subnets by cfg.
func NewTracker(cfg relay.SubnetConfig) *Tracker {
	return &Tracker{set: newSet(cfg)}
}

// Commit adds r's identities, its family closure and its subnet keys.
func (t *Tracker) Commit(r *netview.Relay) {
	t.set.add(r)
	t.hops = append(t.hops, r)
}

// Match reports why r would be excluded given the hops committed so far.
func (t *Tracker) Match(r *netview.Relay) Match {
	if t == nil {
		return MatchNone
	}
	return t.set.Match(r)
}

// WouldExclude reports whether r conflicts with a committed hop. It never
// changes the tracker.
func (t *Tracker) WouldExclude(r *netview.Relay) bool {
	return t.Match(r) != MatchNone
}

// Snapshot returns an independent copy of the current exclusions.
func (t *Tracker) Snapshot() *Set {
	return t.set.clone()
}

// Len returns the number of committed hops.
func (t *Tracker) Len() int { return len(t.hops) }

// Hops returns the committed relays in commit order.
func (t *Tracker) Hops() []*netview.Relay {
	return append([]*netview.Relay(nil), t.hops...)
}
