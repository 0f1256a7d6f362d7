// Package exclusion tracks which relays may no longer appear in a path
// because they share an identity, a family or a subnet with a hop that
// was already chosen.
package exclusion
