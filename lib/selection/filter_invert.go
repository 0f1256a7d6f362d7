package selection

import "github.com/go-i2p/go-relayselect/lib/netview"

// InvertFilter negates another filter's result.
type InvertFilter struct {
	inner RelayFilter
}

// NewInvertFilter creates a filter that inverts another filter.
func NewInvertFilter(inner RelayFilter) *InvertFilter {
	return &InvertFilter{inner: inner}
}

// Name returns the inner name wrapped in NOT(...).
func (f *InvertFilter) Name() string { return "NOT(" + f.inner.Name() + ")" }

// Accept returns the opposite of the inner filter's result.
func (f *InvertFilter) Accept(r *netview.Relay) bool {
	return !f.inner.Accept(r)
}

var _ RelayFilter = (*InvertFilter)(nil)
