package netview

import (
	"net/netip"

	"github.com/go-i2p/go-relayselect/lib/relay"
	"github.com/go-i2p/go-relayselect/lib/weight"
)

// Relay is one router listed in a View.
//
// The exported fields are supplied by whoever builds the snapshot. The
// identity set and the symmetric family closure are computed by New and
// must be read through Identities and Family.
type Relay struct {
	Nickname        string
	RSAIdentity     relay.RSAIdentity
	Ed25519Identity relay.Ed25519Identity
	HasEd25519      bool

	// Addrs is ordered; the first IPv4 entry is the primary address.
	Addrs []netip.AddrPort

	Flags     relay.Flags
	Bandwidth weight.Bandwidth

	// DeclaredFamily holds the identities this relay declares as co-administered.
	DeclaredFamily []relay.ID

	IPv4Policy *relay.ExitPolicy
	IPv6Policy *relay.ExitPolicy

	IsBridge   bool
	HasNtorKey bool

	ids    relay.IDSet
	family relay.IDSet
}

// ID returns the relay's RSA identity.
func (r *Relay) ID() relay.ID { return relay.FromRSA(r.RSAIdentity) }

// Ed25519ID returns the relay's Ed25519 identity if it has one.
func (r *Relay) Ed25519ID() (relay.ID, bool) {
	if !r.HasEd25519 {
		return relay.ID{}, false
	}
	return relay.FromEd25519(r.Ed25519Identity), true
}

// Identities returns every identity key of the relay. The returned set is
// shared and must not be modified.
func (r *Relay) Identities() relay.IDSet {
	if r.ids != nil {
		return r.ids
	}
	return r.computeIdentities()
}

func (r *Relay) computeIdentities() relay.IDSet {
	ids := relay.NewIDSet(r.ID())
	if ed, ok := r.Ed25519ID(); ok {
		ids.Add(ed)
	}
	return ids
}

// Family returns the symmetric family closure: every identity the relay
// declared plus every relay in the view that declared it. The relay's own
// identities are never members. Outside a View this is the declared set.
// The returned set is shared and must not be modified.
func (r *Relay) Family() relay.IDSet {
	if r.family != nil {
		return r.family
	}
	own := r.Identities()
	fam := relay.NewIDSet()
	for _, id := range r.DeclaredFamily {
		if !own.Contains(id) {
			fam.Add(id)
		}
	}
	return fam
}

// SameRelay reports whether r and other share an identity.
func (r *Relay) SameRelay(other *Relay) bool {
	if r == nil || other == nil {
		return false
	}
	if r == other {
		return true
	}
	for id := range other.Identities() {
		if r.Identities().Contains(id) {
			return true
		}
	}
	return false
}

// InFamilyWith reports whether other is a member of r's family closure.
func (r *Relay) InFamilyWith(other *Relay) bool {
	for id := range other.Identities() {
		if r.Family().Contains(id) {
			return true
		}
	}
	return false
}

// IsUsable reports whether the relay passes the basic filter every role
// shares: Running and Valid, with an ntor onion key to extend to.
func (r *Relay) IsUsable() bool {
	return r.Flags.Has(relay.FlagRunning|relay.FlagValid) && r.HasNtorKey
}

// PrimaryIPv4 returns the first IPv4 address of the relay.
func (r *Relay) PrimaryIPv4() (netip.Addr, bool) {
	for _, ap := range r.Addrs {
		if a := ap.Addr().Unmap(); a.Is4() {
			return a, true
		}
	}
	return netip.Addr{}, false
}

// SubnetKeys returns the subnet prefix of every address under cfg.
func (r *Relay) SubnetKeys(cfg relay.SubnetConfig) []netip.Prefix {
	keys := make([]netip.Prefix, 0, len(r.Addrs))
	for _, ap := range r.Addrs {
		if k, ok := cfg.Key(ap.Addr()); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// ExitPolicyFor returns the policy matching the address family.
func (r *Relay) ExitPolicyFor(ipv6 bool) *relay.ExitPolicy {
	if ipv6 {
		return r.IPv6Policy
	}
	return r.IPv4Policy
}

// String returns the nickname and RSA identity.
func (r *Relay) String() string {
	if r.Nickname == "" {
		return r.ID().String()
	}
	return r.Nickname + "~" + r.ID().String()
}
