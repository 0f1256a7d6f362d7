package selection

import (
	"net/netip"

	"github.com/go-i2p/go-relayselect/lib/netview"
)

// AddressFilter accepts relays with at least one address inside one of
// its prefixes, for example to keep a path within reachable networks.
type AddressFilter struct {
	name     string
	prefixes []netip.Prefix
}

// NewAddressFilter creates an address filter. Prefixes are masked.
func NewAddressFilter(name string, prefixes ...netip.Prefix) *AddressFilter {
	masked := make([]netip.Prefix, len(prefixes))
	for i, p := range prefixes {
		masked[i] = p.Masked()
	}
	return &AddressFilter{name: name, prefixes: masked}
}

// Name returns the filter name.
func (f *AddressFilter) Name() string { return f.name }

// Accept reports whether any relay address is covered.
func (f *AddressFilter) Accept(r *netview.Relay) bool {
	for _, ap := range r.Addrs {
		addr := ap.Addr().Unmap()
		for _, p := range f.prefixes {
			if p.Contains(addr) {
				return true
			}
		}
	}
	return false
}

var _ RelayFilter = (*AddressFilter)(nil)
