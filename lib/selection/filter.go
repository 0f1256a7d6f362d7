package selection

import "github.com/go-i2p/go-relayselect/lib/netview"

// RelayFilter is an extra caller restriction applied after IsSuitable.
// Filters can be stacked to create composite selection logic.
type RelayFilter interface {
	// Name identifies the filter in diagnostics.
	Name() string

	// Accept returns false to drop the relay from this selection.
	Accept(r *netview.Relay) bool
}

// firstRejecting returns the name of the first filter rejecting r.
func firstRejecting(filters []RelayFilter, r *netview.Relay) (string, bool) {
	for _, f := range filters {
		if !f.Accept(r) {
			return f.Name(), true
		}
	}
	return "", false
}
