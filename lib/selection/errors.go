package selection

import (
	"errors"
	"fmt"

	"github.com/go-i2p/go-relayselect/lib/netview"
	"github.com/go-i2p/go-relayselect/lib/relay"
)

var (
	// ErrEmptyCandidateSet means no relay in the view passed the basic
	// usability filter, which usually points at a tiny or stale view.
	ErrEmptyCandidateSet = errors.New("no usable relays in view")
	// ErrNoSuitableRelay means candidates existed but none met the usage.
	ErrNoSuitableRelay = errors.New("no suitable relay")
	// ErrPathIncomplete means BuildPath could not fill every position.
	ErrPathIncomplete = errors.New("path incomplete")
	// ErrUnsuitable is matched by every *UnsuitableError.
	ErrUnsuitable = errors.New("relay unsuitable")
)

// SelectionError reports a failed pick. Kind is ErrEmptyCandidateSet or
// ErrNoSuitableRelay.
type SelectionError struct {
	Kind error
	Role relay.Role
	// Reason is the most common rejection, nil when nothing was rejected.
	Reason *UnsuitableReason
	Info   SelectionInfo
	// Detail is extra context, such as a relay missing from the view.
	Detail string
}

func (e *SelectionError) Error() string {
	msg := fmt.Sprintf("%v for %s", e.Kind, e.Role)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Info.Considered > 0 {
		msg += ": " + e.Info.String()
	}
	return msg
}

func (e *SelectionError) Unwrap() error { return e.Kind }

// ReasonText is the most common rejection reason in readable form. It does
// not re-run the predicate.
func (e *SelectionError) ReasonText() string {
	if e.Reason == nil {
		return "none"
	}
	return e.Reason.String()
}

// UnsuitableError reports why Check refused a specific relay.
type UnsuitableError struct {
	Relay  *netview.Relay
	Reason UnsuitableReason
}

func (e *UnsuitableError) Error() string {
	return fmt.Sprintf("relay %s unsuitable: %s", e.Relay, e.Reason)
}

func (e *UnsuitableError) Unwrap() error { return ErrUnsuitable }

// PathError reports the position BuildPath failed at. It matches both
// ErrPathIncomplete and the underlying error.
type PathError struct {
	Index int
	Role  relay.Role
	Err   error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path incomplete at hop %d (%s): %v", e.Index, e.Role, e.Err)
}

func (e *PathError) Unwrap() []error { return []error{ErrPathIncomplete, e.Err} }
