package selection

import (
	"github.com/go-i2p/go-relayselect/lib/exclusion"
	"github.com/go-i2p/go-relayselect/lib/netview"
	"github.com/go-i2p/go-relayselect/lib/relay"
)

// IsSuitable reports the first reason r cannot serve p, or nil if it can.
//
// Checks run cheapest first and stop at the first failure: path exclusion,
// required flags, bandwidth information, exit policy, then role
// constraints. excl may be nil. The result depends only on the arguments.
func IsSuitable(r *netview.Relay, p UsageProfile, excl exclusion.Excluder) *UnsuitableReason {
	if reason := excludedBy(r, excl); reason != nil {
		return reason
	}

	if missing := r.Flags.Missing(p.EffectiveFlags()); missing != 0 {
		return &UnsuitableReason{Kind: MissingRequiredFlag, Detail: missing.String()}
	}

	if p.MinimumBandwidthInfo && !r.Bandwidth.Measured {
		return &UnsuitableReason{Kind: InsufficientBandwidthInfo, Detail: "bandwidth not measured"}
	}

	if p.Role == relay.RoleExit {
		if reason := checkExit(r, p); reason != nil {
			return reason
		}
	}

	return checkRole(r, p)
}

func excludedBy(r *netview.Relay, excl exclusion.Excluder) *UnsuitableReason {
	if excl == nil {
		return nil
	}
	if m := excl.Match(r); m != exclusion.MatchNone {
		return &UnsuitableReason{Kind: ExcludedByPath, Detail: "same " + m.String()}
	}
	return nil
}

func checkExit(r *netview.Relay, p UsageProfile) *UnsuitableReason {
	if r.Flags.Has(relay.FlagBadExit) {
		return &UnsuitableReason{Kind: ExitPolicyMismatch, Detail: "flagged BadExit"}
	}

	ipv4, ipv6 := r.IPv4Policy, r.IPv6Policy
	supported := func(t relay.TargetPort) bool { return t.SupportedBy(ipv4, ipv6) }

	switch {
	case len(p.ExitPorts) == 0 && len(p.StablePorts) == 0:
		if !ipv4.AllowsSomePort() && !ipv6.AllowsSomePort() {
			return &UnsuitableReason{Kind: ExitPolicyMismatch, Detail: "policy allows no ports"}
		}
	case p.ExitToAllPorts:
		for _, t := range p.ExitPorts {
			if !supported(t) {
				return &UnsuitableReason{Kind: ExitPolicyMismatch, Detail: "rejects port " + t.String()}
			}
		}
	default:
		for _, t := range p.ExitPorts {
			if supported(t) {
				return nil
			}
		}
		if r.Flags.Has(relay.FlagStable) {
			for _, t := range p.StablePorts {
				if supported(t) {
					return nil
				}
			}
		}
		return &UnsuitableReason{Kind: ExitPolicyMismatch, Detail: "rejects every requested port"}
	}
	return nil
}

func checkRole(r *netview.Relay, p UsageProfile) *UnsuitableReason {
	notPermitted := func(detail string) *UnsuitableReason {
		return &UnsuitableReason{Kind: RoleNotPermitted, Detail: detail}
	}

	if r.Flags.Has(relay.FlagMiddleOnly) && p.Role != relay.RoleMiddle {
		return notPermitted("MiddleOnly relay")
	}

	switch p.Role {
	case relay.RoleGuard:
		if !r.Flags.Has(relay.FlagGuard) {
			return notPermitted("no Guard flag")
		}
		if !r.Flags.Has(relay.FlagV2Dir) {
			return notPermitted("not a directory cache")
		}
		if r.IsBridge && !p.AllowBridges {
			return notPermitted("bridges not allowed")
		}
		return nil
	case relay.RoleHsDir:
		if !r.Flags.Has(relay.FlagHSDir) {
			return notPermitted("no HSDir flag")
		}
		if !r.HasEd25519 {
			return notPermitted("no ed25519 identity")
		}
	case relay.RoleIntroduction, relay.RoleRendezvous:
		if !r.Flags.Has(relay.FlagStable) {
			return notPermitted("not Stable")
		}
	case relay.RoleDirectoryCache:
		if !r.Flags.Has(relay.FlagV2Dir) {
			return notPermitted("not a directory cache")
		}
	}

	if r.IsBridge {
		return notPermitted("bridge outside guard position")
	}
	return nil
}
