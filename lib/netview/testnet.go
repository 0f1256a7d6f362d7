package netview

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"time"

	"github.com/go-i2p/go-relayselect/lib/relay"
	"github.com/go-i2p/go-relayselect/lib/weight"
)

// TestNetSize is the number of relays in TestNet.
const TestNetSize = 40

// TestNetValidAfter is the valid-after time of TestNet.
var TestNetValidAfter = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// TestRSA returns the RSA identity of synthetic relay n.
func TestRSA(n int) relay.RSAIdentity {
	var id relay.RSAIdentity
	id[0] = 0xAA
	binary.BigEndian.PutUint32(id[16:], uint32(n)+1)
	return id
}

// TestEd25519 returns the Ed25519 identity of synthetic relay n.
func TestEd25519(n int) relay.Ed25519Identity {
	var id relay.Ed25519Identity
	id[0] = 0xED
	binary.BigEndian.PutUint32(id[28:], uint32(n)+1)
	return id
}

// NewTestRelay returns a usable synthetic relay numbered n. Its address is
// in a /16 of its own, it carries flags plus Running and Valid, and exits
// (if flagged Exit) to ports 80 and 443.
func NewTestRelay(n int, flags relay.Flags) Relay {
	r := Relay{
		Nickname:        fmt.Sprintf("test%03d", n),
		RSAIdentity:     TestRSA(n),
		Ed25519Identity: TestEd25519(n),
		HasEd25519:      true,
		Addrs: []netip.AddrPort{
			netip.AddrPortFrom(netip.AddrFrom4([4]byte{byte(n>>8) + 20, byte(n), 0, 1}), 9001),
		},
		Flags:      flags | relay.FlagRunning | relay.FlagValid,
		Bandwidth:  weight.Bandwidth{Value: uint32(n+1) * 100, Measured: true},
		HasNtorKey: true,
	}
	if flags.Has(relay.FlagExit) {
		r.IPv4Policy, _ = relay.ParsePortSummary("accept 80,443")
	}
	return r
}

// TestNetSnapshot returns the snapshot behind TestNet. Every relay is Fast
// and V2Dir. In addition:
//
//   - relays whose number is a multiple of 4 are Guard and Stable
//   - multiples of 5 are Exit
//   - multiples of 3 are HSDir
//   - even relays are Stable
//   - relay 1 declares relay 2 as family (one direction only)
//   - relays 38 and 39 share the 99.99.0.0/16 subnet
func TestNetSnapshot() Snapshot {
	s := Snapshot{
		Version:    "testnet",
		ValidAfter: TestNetValidAfter,
		Params: Params{
			Values: map[string]int32{
				ParamHsDirReplicas:    2,
				ParamHsDirSpreadFetch: 3,
				ParamHsDirSpreadStore: 4,
			},
		},
	}
	for n := range TestNetSize {
		flags := relay.FlagFast | relay.FlagV2Dir
		if n%4 == 0 {
			flags |= relay.FlagGuard | relay.FlagStable
		}
		if n%5 == 0 {
			flags |= relay.FlagExit
		}
		if n%3 == 0 {
			flags |= relay.FlagHSDir
		}
		if n%2 == 0 {
			flags |= relay.FlagStable
		}
		r := NewTestRelay(n, flags)
		if n == 1 {
			r.DeclaredFamily = []relay.ID{relay.FromRSA(TestRSA(2))}
		}
		if n >= 38 {
			r.Addrs[0] = netip.AddrPortFrom(netip.AddrFrom4([4]byte{99, 99, byte(n), 1}), 9001)
		}
		s.Relays = append(s.Relays, r)
	}
	return s
}

// TestNet returns a fresh synthetic view. See TestNetSnapshot.
func TestNet() *View {
	return MustNew(TestNetSnapshot())
}

// MustNew is New for fixtures known to be valid. It panics on error.
func MustNew(s Snapshot, opts ...Option) *View {
	v, err := New(s, opts...)
	if err != nil {
		panic(err)
	}
	return v
}
