// Package netview provides the immutable relay snapshot every selection
// operation reads from.
//
// A View is built once per directory update with New (or from a YAML
// fixture with LoadDocument). Construction validates identities, computes
// the symmetric family closure and prepares bandwidth weights, so that the
// selection code only performs set lookups.
package netview
