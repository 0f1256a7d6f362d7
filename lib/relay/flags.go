package relay

import (
	"strings"

	"github.com/samber/oops"
)

// Flags is the set of consensus flags assigned to a relay.
type Flags uint16

const (
	FlagAuthority Flags = 1 << iota
	FlagBadExit
	FlagExit
	FlagFast
	FlagGuard
	FlagHSDir
	FlagMiddleOnly
	FlagRunning
	FlagStable
	FlagStaleDesc
	FlagV2Dir
	FlagValid
)

// flagNames is in canonical (consensus) order.
var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagAuthority, "Authority"},
	{FlagBadExit, "BadExit"},
	{FlagExit, "Exit"},
	{FlagFast, "Fast"},
	{FlagGuard, "Guard"},
	{FlagHSDir, "HSDir"},
	{FlagMiddleOnly, "MiddleOnly"},
	{FlagRunning, "Running"},
	{FlagStable, "Stable"},
	{FlagStaleDesc, "StaleDesc"},
	{FlagV2Dir, "V2Dir"},
	{FlagValid, "Valid"},
}

// ParseFlag parses a single flag name. Matching is case-insensitive.
func ParseFlag(name string) (Flags, error) {
	for _, fn := range flagNames {
		if strings.EqualFold(fn.name, name) {
			return fn.flag, nil
		}
	}
	return 0, oops.Code("unknown_flag").In("relay").With("flag", name).Errorf("unknown relay flag %q", name)
}

// ParseFlags parses a list of flag names into a set.
func ParseFlags(names []string) (Flags, error) {
	var out Flags
	for _, n := range names {
		f, err := ParseFlag(strings.TrimSpace(n))
		if err != nil {
			return 0, err
		}
		out |= f
	}
	return out, nil
}

// Has reports whether every bit in f2 is set. Has(0) is true.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Missing returns the subset of required that f lacks.
func (f Flags) Missing(required Flags) Flags { return required &^ f }

// Names returns the flag names in canonical order.
func (f Flags) Names() []string {
	var out []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			out = append(out, fn.name)
		}
	}
	return out
}

// String returns the flag names separated by spaces.
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	return strings.Join(f.Names(), " ")
}

// HasAny reports whether at least one bit in f2 is set.
func (f Flags) HasAny(f2 Flags) bool { return f&f2 != 0 }
