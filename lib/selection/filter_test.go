package selection

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-i2p/go-relayselect/lib/netview"
	"github.com/go-i2p/go-relayselect/lib/relay"
)

// countingFilter counts how many times Accept is called.
type countingFilter struct {
	count int
}

func (f *countingFilter) Name() string { return "CountingFilter" }
func (f *countingFilter) Accept(r *netview.Relay) bool {
	f.count++
	return true
}

var (
	acceptAll = NewFuncFilter("AlwaysAccept", func(*netview.Relay) bool { return true })
	rejectAll = NewFuncFilter("AlwaysReject", func(*netview.Relay) bool { return false })
)

func TestFuncFilter(t *testing.T) {
	stable := NewFuncFilter("stable", func(r *netview.Relay) bool { return r.Flags.Has(relay.FlagStable) })
	assert.Equal(t, "stable", stable.Name())
	assert.True(t, stable.Accept(testRelay(1, relay.FlagStable)))
	assert.False(t, stable.Accept(testRelay(1, relay.FlagFast)))
}

func TestCompositeFilter(t *testing.T) {
	r := testRelay(1, 0)
	counter := &countingFilter{}

	assert.True(t, NewCompositeFilter("all", acceptAll, counter).Accept(r))
	assert.Equal(t, 1, counter.count)

	// short-circuits on the first rejection
	assert.False(t, NewCompositeFilter("all", rejectAll, counter).Accept(r))
	assert.Equal(t, 1, counter.count)

	assert.True(t, NewCompositeFilter("empty").Accept(r))
}

func TestAnyFilter(t *testing.T) {
	r := testRelay(1, 0)
	assert.True(t, NewAnyFilter("any", rejectAll, acceptAll).Accept(r))
	assert.False(t, NewAnyFilter("any", rejectAll, rejectAll).Accept(r))
	assert.True(t, NewAnyFilter("empty").Accept(r))
	assert.Equal(t, "any", NewAnyFilter("any").Name())
}

func TestInvertFilter(t *testing.T) {
	r := testRelay(1, 0)
	inv := NewInvertFilter(rejectAll)
	assert.Equal(t, "NOT(AlwaysReject)", inv.Name())
	assert.True(t, inv.Accept(r))
	assert.False(t, NewInvertFilter(acceptAll).Accept(r))
}

func TestAddressFilter(t *testing.T) {
	f := NewAddressFilter("lab", netip.MustParsePrefix("20.4.9.9/16"), netip.MustParsePrefix("2001:db8::/32"))

	assert.True(t, f.Accept(testRelay(4, 0)))
	assert.False(t, f.Accept(testRelay(5, 0)))

	v6 := testRelay(5, 0)
	v6.Addrs = append(v6.Addrs, netip.MustParseAddrPort("[2001:db8::1]:443"))
	assert.True(t, f.Accept(v6))

	mapped := testRelay(5, 0)
	mapped.Addrs = []netip.AddrPort{netip.MustParseAddrPort("[::ffff:20.4.1.1]:443")}
	assert.True(t, f.Accept(mapped))
}
