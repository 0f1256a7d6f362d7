package exclusion

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/go-i2p/go-relayselect/lib/netview"
	"github.com/go-i2p/go-relayselect/lib/relay"
)

func relayAt(t testing.TB, v *netview.View, n int) *netview.Relay {
	r, ok := v.ByID(relay.FromRSA(netview.TestRSA(n)))
	require.True(t, ok)
	return r
}

func TestTracker_Empty(t *testing.T) {
	tr := NewTracker(relay.DefaultSubnetConfig())
	v := netview.TestNet()
	for r := range v.All() {
		assert.False(t, tr.WouldExclude(r))
	}
	assert.Zero(t, tr.Len())
}

func TestTracker_Identity(t *testing.T) {
	v := netview.TestNet()
	tr := NewTracker(relay.DefaultSubnetConfig())
	tr.Commit(relayAt(t, v, 7))
	assert.Equal(t, MatchIdentity, tr.Match(relayAt(t, v, 7)))
	assert.Equal(t, MatchNone, tr.Match(relayAt(t, v, 8)))
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_FamilyBothDirections(t *testing.T) {
	v := netview.TestNet()

	tr := NewTracker(relay.DefaultSubnetConfig())
	tr.Commit(relayAt(t, v, 2))
	assert.Equal(t, MatchFamily, tr.Match(relayAt(t, v, 1)))

	tr = NewTracker(relay.DefaultSubnetConfig())
	tr.Commit(relayAt(t, v, 1))
	assert.Equal(t, MatchFamily, tr.Match(relayAt(t, v, 2)))
}

func TestTracker_FamilyOfRelayOutsideView(t *testing.T) {
	committed := netview.NewTestRelay(200, 0)
	candidate := netview.NewTestRelay(201, 0)
	candidate.DeclaredFamily = []relay.ID{committed.ID()}

	tr := NewTracker(relay.DefaultSubnetConfig())
	tr.Commit(&committed)
	assert.Equal(t, MatchFamily, tr.Match(&candidate))
}

func TestTracker_Subnet(t *testing.T) {
	v := netview.TestNet()
	tr := NewTracker(relay.DefaultSubnetConfig())
	tr.Commit(relayAt(t, v, 38))
	assert.Equal(t, MatchSubnet, tr.Match(relayAt(t, v, 39)))

	tr = NewTracker(relay.SubnetConfig{V4Bits: 24, V6Bits: 64})
	tr.Commit(relayAt(t, v, 38))
	assert.Equal(t, MatchNone, tr.Match(relayAt(t, v, 39)))
}

func TestTracker_IdentityIsDecisive(t *testing.T) {
	a := netview.NewTestRelay(1, 0)
	b := netview.NewTestRelay(2, 0)
	a.DeclaredFamily = []relay.ID{b.ID()}
	b.Addrs = a.Addrs
	v := netview.MustNew(netview.Snapshot{Relays: []netview.Relay{a, b}})

	tr := NewTracker(relay.DefaultSubnetConfig())
	tr.Commit(v.Relays()[0])
	assert.Equal(t, MatchIdentity, tr.Match(v.Relays()[0]))
	assert.Equal(t, MatchFamily, tr.Match(v.Relays()[1]))
}

func TestTracker_SnapshotIsIndependent(t *testing.T) {
	v := netview.TestNet()
	tr := NewTracker(relay.DefaultSubnetConfig())
	tr.Commit(relayAt(t, v, 3))
	snap := tr.Snapshot()
	tr.Commit(relayAt(t, v, 5))

	assert.True(t, snap.WouldExclude(relayAt(t, v, 3)))
	assert.False(t, snap.WouldExclude(relayAt(t, v, 5)))
	assert.Equal(t, 2, tr.Len())
	assert.Len(t, tr.Hops(), 2)
}

func TestSet_Constructors(t *testing.T) {
	v := netview.TestNet()
	cfg := relay.DefaultSubnetConfig()

	ids := ExcludeIdentities(cfg, relay.FromRSA(netview.TestRSA(2)))
	assert.Equal(t, MatchIdentity, ids.Match(relayAt(t, v, 2)))
	// relay 1 declared relay 2, so it is caught through its own family
	assert.Equal(t, MatchFamily, ids.Match(relayAt(t, v, 1)))

	rel := ExcludeRelays(cfg, relayAt(t, v, 38))
	assert.Equal(t, MatchSubnet, rel.Match(relayAt(t, v, 39)))

	u := ids.Union(rel)
	assert.True(t, u.WouldExclude(relayAt(t, v, 2)))
	assert.True(t, u.WouldExclude(relayAt(t, v, 39)))
	assert.False(t, ids.WouldExclude(relayAt(t, v, 39)))
	assert.Equal(t, cfg, u.SubnetConfig())

	var none *Set
	assert.Equal(t, MatchNone, none.Match(relayAt(t, v, 1)))
	assert.Zero(t, none.Len())
	assert.Nil(t, none.Union(nil))
	assert.Equal(t, 1, none.Union(ids).Len())
}

func TestSet_IPv6Subnet(t *testing.T) {
	a := netview.NewTestRelay(1, 0)
	b := netview.NewTestRelay(2, 0)
	a.Addrs = append(a.Addrs, netip.MustParseAddrPort("[2001:db8:1::1]:443"))
	b.Addrs = append(b.Addrs, netip.MustParseAddrPort("[2001:db8:2::1]:443"))
	s := ExcludeRelays(relay.DefaultSubnetConfig(), &a)
	assert.Equal(t, MatchSubnet, s.Match(&b))
}

// =============================================================================
// Properties
// =============================================================================

// TestTracker_NoSharedAttributes checks that a relay the tracker accepts
// never shares an identity, family member or subnet with a committed hop.
func TestTracker_NoSharedAttributes(t *testing.T) {
	v := netview.TestNet()
	cfg := relay.DefaultSubnetConfig()

	rapid.Check(t, func(t *rapid.T) {
		picks := rapid.SliceOfNDistinct(rapid.IntRange(0, netview.TestNetSize-1), 1, 6, rapid.ID[int]).Draw(t, "hops")
		tr := NewTracker(cfg)
		for _, n := range picks {
			tr.Commit(v.Relays()[n])
		}

		for cand := range v.All() {
			if tr.WouldExclude(cand) {
				continue
			}
			for _, hop := range tr.Hops() {
				if hop.SameRelay(cand) || hop.InFamilyWith(cand) || cand.InFamilyWith(hop) ||
					cfg.AnySameSubnet(hop.Addrs, cand.Addrs) {
					t.Fatalf("%s conflicts with committed %s", cand, hop)
				}
			}
		}
	})
}
