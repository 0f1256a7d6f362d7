package hsring

import (
	"errors"

	"github.com/samber/oops"
)

var (
	// ErrNotRingRole is returned when a ring is requested for a role that
	// is not placed by consistent hashing.
	ErrNotRingRole = errors.New("role is not placed on a ring")
	// ErrNoSharedRandom is returned for a period without a shared random value.
	ErrNoSharedRandom = errors.New("time period has no shared random value")
	// ErrInvalidPeriod is returned for a period shorter than one minute.
	ErrInvalidPeriod = errors.New("time period length must be at least one minute")
)

func errInvalidBlindedID(s string) error {
	return oops.Code("invalid_blinded_id").In("hsring").With("input", s).
		Errorf("blinded id must be %d hex characters", 2*len(BlindedID{}))
}
