package selection

import "github.com/go-i2p/go-relayselect/lib/netview"

// AnyFilter combines multiple filters with OR logic.
type AnyFilter struct {
	name    string
	filters []RelayFilter
}

// NewAnyFilter creates a composite OR filter.
func NewAnyFilter(name string, filters ...RelayFilter) *AnyFilter {
	return &AnyFilter{name: name, filters: filters}
}

// Name returns the filter name.
func (f *AnyFilter) Name() string { return f.name }

// Accept returns true if any inner filter accepts the relay, or if there
// are no inner filters.
func (f *AnyFilter) Accept(r *netview.Relay) bool {
	if len(f.filters) == 0 {
		return true
	}
	for _, filter := range f.filters {
		if filter.Accept(r) {
			return true
		}
	}
	return false
}

var _ RelayFilter = (*AnyFilter)(nil)
