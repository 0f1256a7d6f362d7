package selection

import "github.com/go-i2p/go-relayselect/lib/netview"

// FuncFilter wraps a simple function as a RelayFilter.
type FuncFilter struct {
	name     string
	acceptFn func(r *netview.Relay) bool
}

// NewFuncFilter creates a filter from a function.
func NewFuncFilter(name string, acceptFn func(r *netview.Relay) bool) *FuncFilter {
	return &FuncFilter{name: name, acceptFn: acceptFn}
}

// Name returns the filter name.
func (f *FuncFilter) Name() string { return f.name }

// Accept returns whether the relay passes the filter function.
func (f *FuncFilter) Accept(r *netview.Relay) bool { return f.acceptFn(r) }

// Compile-time interface check
var _ RelayFilter = (*FuncFilter)(nil)
