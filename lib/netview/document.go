package netview

import (
	"io"
	"net/netip"
	"os"
	"time"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/go-i2p/go-relayselect/lib/relay"
	"github.com/go-i2p/go-relayselect/lib/weight"
)

// Document is the YAML form of a Snapshot, used for fixtures and by the
// command line tool. It is not a Tor directory format.
type Document struct {
	Version          string           `yaml:"version"`
	ValidAfter       time.Time        `yaml:"valid_after"`
	Params           map[string]int32 `yaml:"params"`
	BandwidthWeights map[string]int32 `yaml:"bandwidth_weights"`
	WeightsVersion   string           `yaml:"weights_version"`
	Relays           []RelayDocument  `yaml:"relays"`
}

// RelayDocument is the YAML form of a Relay.
type RelayDocument struct {
	Nickname  string   `yaml:"nickname"`
	RSA       string   `yaml:"rsa"`
	Ed25519   string   `yaml:"ed25519,omitempty"`
	Addrs     []string `yaml:"addrs"`
	Flags     []string `yaml:"flags"`
	Bandwidth uint32   `yaml:"bandwidth"`
	Measured  bool     `yaml:"measured"`
	Family    []string `yaml:"family,omitempty"`
	// Policy lists full rules; PolicySummary is a port summary such as
	// "accept 80,443". At most one of each pair may be set.
	Policy         []string `yaml:"policy,omitempty"`
	PolicySummary  string   `yaml:"policy_summary,omitempty"`
	Policy6        []string `yaml:"policy6,omitempty"`
	Policy6Summary string   `yaml:"policy6_summary,omitempty"`
	Bridge         bool     `yaml:"bridge,omitempty"`
	// NtorKey defaults to true when omitted.
	NtorKey *bool `yaml:"ntor_key,omitempty"`
}

// LoadFile reads a YAML document from path and builds a View.
func LoadFile(path string, opts ...Option) (*View, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, oops.In("netview").With("path", path).Wrapf(err, "opening view document")
	}
	defer f.Close()
	return LoadDocument(f, opts...)
}

// LoadDocument decodes a YAML document from r and builds a View.
func LoadDocument(r io.Reader, opts ...Option) (*View, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, oops.Code("invalid_document").In("netview").Wrapf(err, "decoding view document")
	}
	snap, err := doc.Snapshot()
	if err != nil {
		return nil, err
	}
	return New(snap, opts...)
}

// Snapshot converts the document into a Snapshot.
func (d *Document) Snapshot() (Snapshot, error) {
	s := Snapshot{
		Version:    d.Version,
		ValidAfter: d.ValidAfter,
		Relays:     make([]Relay, 0, len(d.Relays)),
		Params: Params{
			Values:           d.Params,
			BandwidthWeights: d.BandwidthWeights,
			WeightsVersion:   d.WeightsVersion,
		},
	}
	for i := range d.Relays {
		r, err := d.Relays[i].Relay()
		if err != nil {
			return Snapshot{}, oops.With("index", i).Wrapf(err, "relay %q", d.Relays[i].Nickname)
		}
		s.Relays = append(s.Relays, r)
	}
	return s, nil
}

// Relay converts the document entry into a Relay.
func (rd *RelayDocument) Relay() (Relay, error) {
	errb := oops.Code("invalid_document").In("netview").With("nickname", rd.Nickname)

	r := Relay{
		Nickname:   rd.Nickname,
		Bandwidth:  weight.Bandwidth{Value: rd.Bandwidth, Measured: rd.Measured},
		IsBridge:   rd.Bridge,
		HasNtorKey: rd.NtorKey == nil || *rd.NtorKey,
	}

	id, err := relay.ParseID(rd.RSA)
	if err != nil {
		return Relay{}, errb.Wrap(err)
	}
	if id.Kind() != relay.RSA {
		return Relay{}, errb.Errorf("rsa field holds a %s identity", id.Kind())
	}
	copy(r.RSAIdentity[:], id.Bytes())

	if rd.Ed25519 != "" {
		ed, err := relay.ParseID(rd.Ed25519)
		if err != nil {
			return Relay{}, errb.Wrap(err)
		}
		if ed.Kind() != relay.Ed25519 {
			return Relay{}, errb.Errorf("ed25519 field holds a %s identity", ed.Kind())
		}
		copy(r.Ed25519Identity[:], ed.Bytes())
		r.HasEd25519 = true
	}

	for _, a := range rd.Addrs {
		ap, err := netip.ParseAddrPort(a)
		if err != nil {
			return Relay{}, errb.With("addr", a).Wrapf(err, "parsing address")
		}
		r.Addrs = append(r.Addrs, ap)
	}

	if r.Flags, err = relay.ParseFlags(rd.Flags); err != nil {
		return Relay{}, errb.Wrap(err)
	}

	for _, f := range rd.Family {
		fid, err := relay.ParseID(f)
		if err != nil {
			return Relay{}, errb.Wrap(err)
		}
		r.DeclaredFamily = append(r.DeclaredFamily, fid)
	}

	if r.IPv4Policy, err = parsePolicy(rd.Policy, rd.PolicySummary); err != nil {
		return Relay{}, errb.With("family", "ipv4").Wrap(err)
	}
	if r.IPv6Policy, err = parsePolicy(rd.Policy6, rd.Policy6Summary); err != nil {
		return Relay{}, errb.With("family", "ipv6").Wrap(err)
	}
	return r, nil
}

func parsePolicy(rules []string, summary string) (*relay.ExitPolicy, error) {
	switch {
	case len(rules) > 0 && summary != "":
		return nil, oops.Errorf("policy rules and a policy summary are mutually exclusive")
	case len(rules) > 0:
		return relay.ParseExitPolicy(rules)
	case summary != "":
		return relay.ParsePortSummary(summary)
	default:
		return nil, nil
	}
}

func policyLines(p *relay.ExitPolicy) []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.Rules))
	for i, rule := range p.Rules {
		out[i] = rule.String()
	}
	return out
}

// Document renders a View back into its YAML form.
func (v *View) Document() *Document {
	d := &Document{
		Version:          v.version,
		ValidAfter:       v.validAfter,
		Params:           v.params.Values,
		BandwidthWeights: v.params.BandwidthWeights,
		WeightsVersion:   v.params.WeightsVersion,
	}
	for _, r := range v.relays {
		rd := RelayDocument{
			Nickname:  r.Nickname,
			RSA:       r.ID().String(),
			Flags:     r.Flags.Names(),
			Bandwidth: r.Bandwidth.Value,
			Measured:  r.Bandwidth.Measured,
			Bridge:    r.IsBridge,
		}
		if ed, ok := r.Ed25519ID(); ok {
			rd.Ed25519 = ed.String()
		}
		for _, ap := range r.Addrs {
			rd.Addrs = append(rd.Addrs, ap.String())
		}
		for _, f := range r.DeclaredFamily {
			rd.Family = append(rd.Family, f.String())
		}
		rd.Policy = policyLines(r.IPv4Policy)
		rd.Policy6 = policyLines(r.IPv6Policy)
		if !r.HasNtorKey {
			no := false
			rd.NtorKey = &no
		}
		d.Relays = append(d.Relays, rd)
	}
	return d
}

// WriteDocument encodes the view as YAML.
func (v *View) WriteDocument(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v.Document()); err != nil {
		return oops.In("netview").Wrapf(err, "encoding view document")
	}
	return enc.Close()
}
