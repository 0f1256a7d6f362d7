package exclusion

import (
	"maps"
	"net/netip"

	"github.com/go-i2p/go-relayselect/lib/netview"
	"github.com/go-i2p/go-relayselect/lib/relay"
)

// Match says why a relay is excluded.
type Match uint8

const (
	MatchNone Match = iota
	MatchIdentity
	MatchFamily
	MatchSubnet
)

func (m Match) String() string {
	switch m {
	case MatchNone:
		return "none"
	case MatchIdentity:
		return "identity"
	case MatchFamily:
		return "family"
	case MatchSubnet:
		return "subnet"
	default:
		return "unknown"
	}
}

// Excluder is anything that can rule relays out of a path.
type Excluder interface {
	Match(r *netview.Relay) Match
}

var (
	_ Excluder = (*Set)(nil)
	_ Excluder = (*Tracker)(nil)
)

// Set is a read-only collection of identities, family members and subnet
// keys. A nil *Set excludes nothing.
type Set struct {
	cfg     relay.SubnetConfig
	ids     relay.IDSet
	family  relay.IDSet
	subnets map[netip.Prefix]struct{}
}

func newSet(cfg relay.SubnetConfig) *Set {
	return &Set{
		cfg:     cfg,
		ids:     relay.NewIDSet(),
		family:  relay.NewIDSet(),
		subnets: make(map[netip.Prefix]struct{}),
	}
}

// ExcludeIdentities returns a set that excludes exactly the given
// identities. Families and subnets of those relays are not excluded.
func ExcludeIdentities(cfg relay.SubnetConfig, ids ...relay.ID) *Set {
	s := newSet(cfg)
	s.ids.Add(ids...)
	return s
}

// ExcludeRelays returns a set that excludes the relays, their families and
// their subnets, as if each had been committed to a path.
func ExcludeRelays(cfg relay.SubnetConfig, relays ...*netview.Relay) *Set {
	s := newSet(cfg)
	for _, r := range relays {
		s.add(r)
	}
	return s
}

func (s *Set) add(r *netview.Relay) {
	s.ids.AddSet(r.Identities())
	s.family.AddSet(r.Family())
	for _, k := range r.SubnetKeys(s.cfg) {
		s.subnets[k] = struct{}{}
	}
}

// Match reports the first reason r is excluded, checking identity, then
// family, then subnet. An identity match is decisive.
func (s *Set) Match(r *netview.Relay) Match {
	if s == nil || r == nil {
		return MatchNone
	}
	ids := r.Identities()
	for id := range ids {
		if s.ids.Contains(id) {
			return MatchIdentity
		}
	}
	for id := range ids {
		if s.family.Contains(id) {
			return MatchFamily
		}
	}
	for id := range r.Family() {
		if s.ids.Contains(id) {
			return MatchFamily
		}
	}
	if len(s.subnets) > 0 {
		for _, k := range r.SubnetKeys(s.cfg) {
			if _, ok := s.subnets[k]; ok {
				return MatchSubnet
			}
		}
	}
	return MatchNone
}

// WouldExclude reports whether r matches the set for any reason.
func (s *Set) WouldExclude(r *netview.Relay) bool {
	return s.Match(r) != MatchNone
}

// Union returns a new set excluding everything s or other excludes. The
// subnet config of s is kept.
func (s *Set) Union(other *Set) *Set {
	switch {
	case s == nil && other == nil:
		return nil
	case s == nil:
		return other.clone()
	}
	out := s.clone()
	if other != nil {
		out.ids.AddSet(other.ids)
		out.family.AddSet(other.family)
		maps.Copy(out.subnets, other.subnets)
	}
	return out
}

// Len returns the number of excluded identities.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return s.ids.Len()
}

// SubnetConfig returns the grouping used for subnet keys.
func (s *Set) SubnetConfig() relay.SubnetConfig { return s.cfg }

func (s *Set) clone() *Set {
	return &Set{
		cfg:     s.cfg,
		ids:     s.ids.Clone(),
		family:  s.family.Clone(),
		subnets: maps.Clone(s.subnets),
	}
}
