package selection

import (
	"github.com/go-i2p/go-relayselect/lib/config"
	"github.com/go-i2p/go-relayselect/lib/hsring"
	"github.com/go-i2p/go-relayselect/lib/relay"
)

// RingTarget asks for deterministic placement on an onion service ring:
// the first suitable relay at or after Index in Period is chosen.
type RingTarget struct {
	Period hsring.Period
	Index  hsring.Index
}

// UsageProfile describes what a relay is being chosen for.
type UsageProfile struct {
	Role relay.Role

	// RequiredFlags must all be present. Fast is always required on top.
	RequiredFlags relay.Flags

	// ExitPorts are the destination ports an exit must support. With
	// ExitToAllPorts every port must be supported, otherwise one is
	// enough. No ports at all means any exit port will do.
	ExitPorts []relay.TargetPort
	// StablePorts are long-lived ports that only count when the relay is
	// flagged Stable. They are ignored with ExitToAllPorts.
	StablePorts    []relay.TargetPort
	ExitToAllPorts bool

	AllowBridges         bool
	MinimumBandwidthInfo bool
	NeedStable           bool

	// Ring switches an onion service role from weighted sampling to ring
	// placement.
	Ring *RingTarget

	// Flexible allows the selector to fall back to a middle usage when no
	// relay satisfies the profile.
	Flexible bool
}

// GuardProfile is the usage for a new or continuing entry guard.
func GuardProfile() UsageProfile {
	return UsageProfile{Role: relay.RoleGuard, NeedStable: true}
}

// MiddleProfile is a middle hop. It needs Stable when the final hop does;
// with no known final hop it needs Stable.
func MiddleProfile(finalHop *UsageProfile) UsageProfile {
	needStable := true
	if finalHop != nil {
		needStable = finalHop.NeedStable
	}
	return UsageProfile{Role: relay.RoleMiddle, NeedStable: needStable}
}

// ExitProfile is an exit that supports at least one of ports. Long-lived
// ports only count on Stable relays, and if every port is long-lived the
// whole circuit needs Stable. With no ports any exit will do.
func ExitProfile(cfg config.SelectionDefaults, ports ...relay.TargetPort) UsageProfile {
	p := UsageProfile{Role: relay.RoleExit}
	for _, port := range ports {
		if cfg.IsLongLived(port.Port) {
			p.StablePorts = append(p.StablePorts, port)
		} else {
			p.ExitPorts = append(p.ExitPorts, port)
		}
	}
	p.NeedStable = len(p.ExitPorts) == 0 && len(p.StablePorts) > 0
	return p
}

// ExitToAllProfile is an exit that supports every one of ports.
func ExitToAllProfile(cfg config.SelectionDefaults, ports ...relay.TargetPort) UsageProfile {
	p := UsageProfile{Role: relay.RoleExit, ExitToAllPorts: true, ExitPorts: ports}
	for _, port := range ports {
		if cfg.IsLongLived(port.Port) {
			p.NeedStable = true
			break
		}
	}
	return p
}

// IntroductionProfile is an onion service introduction point.
func IntroductionProfile() UsageProfile {
	return UsageProfile{Role: relay.RoleIntroduction, NeedStable: true}
}

// RendezvousProfile is a rendezvous point.
func RendezvousProfile() UsageProfile {
	return UsageProfile{Role: relay.RoleRendezvous, NeedStable: true}
}

// HsDirProfile is an onion service directory. target may be nil for a
// weighted pick.
func HsDirProfile(target *RingTarget) UsageProfile {
	return UsageProfile{Role: relay.RoleHsDir, Ring: target}
}

// DirectoryCacheProfile is a one-hop directory fetch.
func DirectoryCacheProfile() UsageProfile {
	return UsageProfile{Role: relay.RoleDirectoryCache}
}

// EffectiveFlags is the full flag set IsSuitable requires.
func (p UsageProfile) EffectiveFlags() relay.Flags {
	f := p.RequiredFlags | relay.FlagFast
	if p.NeedStable {
		f |= relay.FlagStable
	}
	return f
}

// Relaxed returns the middle usage a flexible profile falls back to. Flag,
// bandwidth and bridge requirements are kept.
func (p UsageProfile) Relaxed() UsageProfile {
	return UsageProfile{
		Role:                 relay.RoleMiddle,
		RequiredFlags:        p.RequiredFlags,
		AllowBridges:         p.AllowBridges,
		MinimumBandwidthInfo: p.MinimumBandwidthInfo,
		NeedStable:           p.NeedStable,
	}
}

func (p UsageProfile) valid() bool {
	for _, r := range relay.Roles() {
		if p.Role == r {
			return true
		}
	}
	return false
}

// Description names the kind of relay the profile rejects, for messages
// such as "rejected 4/10 as not exit".
func (p UsageProfile) Description() string {
	switch p.Role {
	case relay.RoleExit:
		switch {
		case len(p.ExitPorts) == 0 && len(p.StablePorts) == 0:
			return "non-exit"
		case p.ExitToAllPorts:
			return "not exiting to desired ports"
		default:
			return "not exiting to any desired port"
		}
	case relay.RoleGuard:
		return "not guard"
	case relay.RoleMiddle:
		return "useless for middle relay"
	case relay.RoleIntroduction:
		return "not introduction point"
	case relay.RoleRendezvous:
		return "not rendezvous point"
	case relay.RoleHsDir:
		return "not onion service directory"
	case relay.RoleDirectoryCache:
		return "not directory cache"
	default:
		return "unknown usage"
	}
}
