package relay

import (
	"strings"

	"github.com/samber/oops"
)

// Role is the position a relay is being chosen to fill.
type Role uint8

const (
	RoleGuard Role = iota + 1
	RoleMiddle
	RoleExit
	RoleHsDir
	RoleIntroduction
	RoleRendezvous
	// RoleDirectoryCache is a one-hop begin-dir fetch from a directory cache.
	RoleDirectoryCache
)

var roleNames = map[Role]string{
	RoleGuard:          "guard",
	RoleMiddle:         "middle",
	RoleExit:           "exit",
	RoleHsDir:          "hsdir",
	RoleIntroduction:   "introduction",
	RoleRendezvous:     "rendezvous",
	RoleDirectoryCache: "dircache",
}

// Roles lists every role in declaration order.
func Roles() []Role {
	return []Role{RoleGuard, RoleMiddle, RoleExit, RoleHsDir, RoleIntroduction, RoleRendezvous, RoleDirectoryCache}
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return "unknown"
}

// IsOnionService reports whether the role only exists for onion services.
func (r Role) IsOnionService() bool {
	return r == RoleHsDir || r == RoleIntroduction || r == RoleRendezvous
}

// ParseRole parses a role name such as "guard" or "intro".
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "intro":
		return RoleIntroduction, nil
	case "rend":
		return RoleRendezvous, nil
	case "directory", "dir":
		return RoleDirectoryCache, nil
	}
	for r, n := range roleNames {
		if n == s {
			return r, nil
		}
	}
	return 0, oops.Code("unknown_role").In("relay").With("role", s).Errorf("unknown role %q", s)
}
