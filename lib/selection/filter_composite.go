package selection

import "github.com/go-i2p/go-relayselect/lib/netview"

// CompositeFilter combines multiple filters with AND logic.
type CompositeFilter struct {
	name    string
	filters []RelayFilter
}

// NewCompositeFilter creates a composite AND filter.
func NewCompositeFilter(name string, filters ...RelayFilter) *CompositeFilter {
	return &CompositeFilter{name: name, filters: filters}
}

// Name returns the filter name.
func (f *CompositeFilter) Name() string { return f.name }

// Accept returns true only if all inner filters accept the relay.
func (f *CompositeFilter) Accept(r *netview.Relay) bool {
	_, rejected := firstRejecting(f.filters, r)
	return !rejected
}

var _ RelayFilter = (*CompositeFilter)(nil)
