package hsring

import (
	"bytes"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/go-i2p/go-relayselect/lib/netview"
	"github.com/go-i2p/go-relayselect/lib/relay"
)

func testPeriod() Period {
	return Period{Number: 42, Length: 24 * time.Hour, SharedRandom: bytes.Repeat([]byte{0x43}, 32)}
}

func TestIndexVectors(t *testing.T) {
	p := testPeriod()

	var blinded BlindedID
	copy(blinded[:], bytes.Repeat([]byte{0x42}, 32))
	assert.Equal(t,
		"37e5cbbd56a22823714f18f1623ece5983a0d64c78495a8cfab854245e5f9a8a",
		ServiceIndex(blinded, 1, p).String())

	var ed relay.Ed25519Identity
	copy(ed[:], bytes.Repeat([]byte{0x42}, 32))
	assert.Equal(t,
		"db475361014a09965e7e5e4d4a25b8f8d4b8f16cb1d8a7e95eed50249cc1a2d5",
		RelayIndex(ed, p).String())
}

func TestParseBlindedID(t *testing.T) {
	id, err := ParseBlindedID("42424242424242424242424242424242424242424242424242424242424242ff")
	require.NoError(t, err)
	assert.Equal(t, byte(0xff), id[31])

	_, err = ParseBlindedID("4242")
	assert.Error(t, err)
}

func TestLocate_Errors(t *testing.T) {
	l, err := NewLocator(netview.TestNet())
	require.NoError(t, err)

	_, err = l.Locate(testPeriod(), relay.RoleExit)
	assert.True(t, errors.Is(err, ErrNotRingRole))

	p := testPeriod()
	p.SharedRandom = nil
	_, err = l.Locate(p, relay.RoleHsDir)
	assert.True(t, errors.Is(err, ErrNoSharedRandom))

	p = testPeriod()
	p.Length = time.Second
	_, err = l.Locate(p, relay.RoleHsDir)
	assert.True(t, errors.Is(err, ErrInvalidPeriod))

	_, err = NewLocator(nil)
	assert.Error(t, err)
	_, err = NewLocator(netview.TestNet(), WithCacheSize(0))
	assert.Error(t, err)
}

func TestLocate_RingOrderAndMembership(t *testing.T) {
	v := netview.TestNet()
	l, err := NewLocator(v)
	require.NoError(t, err)

	ring, err := l.Locate(testPeriod(), relay.RoleHsDir)
	require.NoError(t, err)
	assert.Equal(t, relay.RoleHsDir, ring.Role())

	// multiples of 3 below 40 carry HSDir
	assert.Equal(t, 14, ring.Len())
	var prev Index
	for i, r := range ring.All() {
		assert.True(t, r.Flags.Has(relay.FlagHSDir))
		_, idx := ring.At(i)
		if i > 0 {
			assert.Positive(t, idx.Compare(prev))
		}
		prev = idx
	}
}

func TestLocate_IntroductionRing(t *testing.T) {
	l, err := NewLocator(netview.TestNet())
	require.NoError(t, err)
	ring, err := l.Locate(testPeriod(), relay.RoleIntroduction)
	require.NoError(t, err)
	// even relays are Stable, all are Fast
	assert.Equal(t, 20, ring.Len())
}

func TestLocate_IsMemoised(t *testing.T) {
	l, err := NewLocator(netview.TestNet(), WithCacheSize(1))
	require.NoError(t, err)

	a, err := l.Locate(testPeriod(), relay.RoleHsDir)
	require.NoError(t, err)
	b, err := l.Locate(testPeriod(), relay.RoleHsDir)
	require.NoError(t, err)
	assert.Same(t, a, b)

	// evicted by a different period, rebuilt identically
	other := testPeriod()
	other.Number++
	_, err = l.Locate(other, relay.RoleHsDir)
	require.NoError(t, err)
	c, err := l.Locate(testPeriod(), relay.RoleHsDir)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, ringNames(a), ringNames(c))
}

func TestLocate_PeriodChangesRing(t *testing.T) {
	l, err := NewLocator(netview.TestNet())
	require.NoError(t, err)
	a, err := l.Locate(testPeriod(), relay.RoleHsDir)
	require.NoError(t, err)

	p := testPeriod()
	p.SharedRandom = bytes.Repeat([]byte{0x44}, 32)
	b, err := l.Locate(p, relay.RoleHsDir)
	require.NoError(t, err)
	assert.ElementsMatch(t, ringNames(a), ringNames(b))
	assert.NotEqual(t, ringNames(a), ringNames(b))
}

func TestRing_FromWraps(t *testing.T) {
	l, err := NewLocator(netview.TestNet())
	require.NoError(t, err)
	ring, err := l.Locate(testPeriod(), relay.RoleHsDir)
	require.NoError(t, err)

	_, idx := ring.At(3)
	walk := slices.Collect(ring.From(idx))
	require.Len(t, walk, ring.Len())
	first, _ := ring.At(3)
	assert.Same(t, first, walk[0])
	last, _ := ring.At(2)
	assert.Same(t, last, walk[len(walk)-1])

	var top Index
	for i := range top {
		top[i] = 0xff
	}
	first, _ = ring.At(0)
	assert.Same(t, first, slices.Collect(ring.From(top))[0])
}

func TestRing_Empty(t *testing.T) {
	l, err := NewLocator(netview.MustNew(netview.Snapshot{}))
	require.NoError(t, err)
	ring, err := l.Locate(testPeriod(), relay.RoleHsDir)
	require.NoError(t, err)
	assert.Zero(t, ring.Len())
	assert.Empty(t, slices.Collect(ring.From(Index{})))
	assert.Empty(t, ring.Responsible(BlindedID{}, DefaultParams(), OpFetch))
}

func TestResponsible(t *testing.T) {
	l, err := NewLocator(netview.TestNet())
	require.NoError(t, err)
	assert.Equal(t, Params{Replicas: 2, SpreadFetch: 3, SpreadStore: 4}, l.Params())

	var blinded BlindedID
	copy(blinded[:], bytes.Repeat([]byte{0x42}, 32))

	fetch, err := l.Responsible(blinded, OpFetch, testPeriod())
	require.NoError(t, err)
	assert.Len(t, fetch, 6)

	store, err := l.Responsible(blinded, OpStore, testPeriod())
	require.NoError(t, err)
	assert.Len(t, store, 8)

	seen := map[*netview.Relay]bool{}
	for _, r := range store {
		assert.False(t, seen[r], "%s chosen twice", r)
		seen[r] = true
	}
	// the first replica's walk is a prefix of both results
	assert.Equal(t, fetch[:3], store[:3])
}

func TestResponsible_SmallRing(t *testing.T) {
	snap := netview.Snapshot{Relays: []netview.Relay{
		netview.NewTestRelay(1, relay.FlagHSDir),
		netview.NewTestRelay(2, relay.FlagHSDir),
	}}
	l, err := NewLocator(netview.MustNew(snap), WithDefaultParams(Params{Replicas: 3, SpreadFetch: 5, SpreadStore: 5}))
	require.NoError(t, err)
	got, err := l.Responsible(BlindedID{1}, OpFetch, testPeriod())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestResponsible_ViewParamsOverrideDefaults(t *testing.T) {
	snap := netview.TestNetSnapshot()
	snap.Params.Values[netview.ParamHsDirSpreadFetch] = 1
	l, err := NewLocator(netview.MustNew(snap), WithDefaultParams(Params{Replicas: 9, SpreadFetch: 9, SpreadStore: 9}))
	require.NoError(t, err)
	assert.Equal(t, Params{Replicas: 2, SpreadFetch: 1, SpreadStore: 4}, l.Params())
}

func TestResponsible_ViewParamsAreClamped(t *testing.T) {
	snap := netview.TestNetSnapshot()
	snap.Params.Values[netview.ParamHsDirReplicas] = 0
	snap.Params.Values[netview.ParamHsDirSpreadFetch] = -3
	snap.Params.Values[netview.ParamHsDirSpreadStore] = 1000
	l, err := NewLocator(netview.MustNew(snap))
	require.NoError(t, err)
	assert.Equal(t, Params{Replicas: MinReplicas, SpreadFetch: MinSpread, SpreadStore: MaxSpread}, l.Params())

	snap.Params.Values[netview.ParamHsDirReplicas] = 40
	l, err = NewLocator(netview.MustNew(snap))
	require.NoError(t, err)
	assert.Equal(t, MaxReplicas, l.Params().Replicas)

	// a zero replica count used to leave no responsible directories
	snap.Params.Values[netview.ParamHsDirReplicas] = 0
	snap.Params.Values[netview.ParamHsDirSpreadStore] = 4
	l, err = NewLocator(netview.MustNew(snap))
	require.NoError(t, err)
	dirs, err := l.Responsible(BlindedID{1}, OpStore, testPeriod())
	require.NoError(t, err)
	assert.Len(t, dirs, 4)
}

func ringNames(r *Ring) []string {
	var out []string
	for _, rel := range r.All() {
		out = append(out, rel.Nickname)
	}
	return out
}

// =============================================================================
// Properties
// =============================================================================

// TestLocate_Deterministic checks that two independent locators over the
// same view agree on every ring.
func TestLocate_Deterministic(t *testing.T) {
	v := netview.TestNet()
	rapid.Check(t, func(t *rapid.T) {
		p := Period{
			Number:       rapid.Uint64().Draw(t, "number"),
			Length:       time.Duration(rapid.IntRange(1, 7*24*60).Draw(t, "minutes")) * time.Minute,
			SharedRandom: rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "srv"),
		}
		role := rapid.SampledFrom([]relay.Role{relay.RoleHsDir, relay.RoleIntroduction, relay.RoleRendezvous}).Draw(t, "role")

		l1, _ := NewLocator(v)
		l2, _ := NewLocator(v)
		a, err := l1.Locate(p, role)
		if err != nil {
			t.Fatal(err)
		}
		b, err := l2.Locate(p, role)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(ringNames(a), ringNames(b)) {
			t.Fatalf("rings differ for %s", p)
		}
		again, _ := l1.Locate(p, role)
		if !slices.Equal(ringNames(a), ringNames(again)) {
			t.Fatalf("re-locating changed the ring")
		}
	})
}
