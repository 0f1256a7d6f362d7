package selection

// ReasonKind classifies why one relay could not be used.
type ReasonKind uint8

const (
	ExcludedByPath ReasonKind = iota + 1
	MissingRequiredFlag
	InsufficientBandwidthInfo
	ExitPolicyMismatch
	RoleNotPermitted
	// FilteredOut is a rejection by a caller supplied RelayFilter.
	FilteredOut
)

var reasonKinds = []ReasonKind{
	ExcludedByPath,
	MissingRequiredFlag,
	InsufficientBandwidthInfo,
	ExitPolicyMismatch,
	RoleNotPermitted,
	FilteredOut,
}

func (k ReasonKind) String() string {
	switch k {
	case ExcludedByPath:
		return "excluded by path"
	case MissingRequiredFlag:
		return "missing required flag"
	case InsufficientBandwidthInfo:
		return "insufficient bandwidth info"
	case ExitPolicyMismatch:
		return "exit policy mismatch"
	case RoleNotPermitted:
		return "role not permitted"
	case FilteredOut:
		return "filtered out"
	default:
		return "unknown"
	}
}

// UnsuitableReason is the first check a relay failed.
type UnsuitableReason struct {
	Kind   ReasonKind
	Detail string
}

func (r UnsuitableReason) String() string {
	if r.Detail == "" {
		return r.Kind.String()
	}
	return r.Kind.String() + " (" + r.Detail + ")"
}
