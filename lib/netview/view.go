package netview

import (
	"iter"
	"net/netip"
	"time"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"

	"github.com/go-i2p/go-relayselect/lib/relay"
	"github.com/go-i2p/go-relayselect/lib/weight"
)

// Network parameter names understood by this package and its consumers.
const (
	ParamHsDirReplicas    = "hsdir_n_replicas"
	ParamHsDirSpreadFetch = "hsdir_spread_fetch"
	ParamHsDirSpreadStore = "hsdir_spread_store"
	ParamBwWeightScale    = "bwweightscale"
)

// Params carries the consensus network parameters and bandwidth weights.
type Params struct {
	Values           map[string]int32
	BandwidthWeights map[string]int32
	// WeightsVersion labels the coefficient table built from BandwidthWeights.
	WeightsVersion string
}

// Get returns the named parameter or def if it is not set.
func (p Params) Get(name string, def int32) int32 {
	if v, ok := p.Values[name]; ok {
		return v
	}
	return def
}

// Has reports whether the named parameter is set.
func (p Params) Has(name string) bool {
	_, ok := p.Values[name]
	return ok
}

// Snapshot is the raw material for a View.
type Snapshot struct {
	Version    string
	ValidAfter time.Time
	Relays     []Relay
	Params     Params
}

// View is an immutable snapshot of the relays known from one directory.
// Any number of goroutines may read a View concurrently. A directory
// update produces a new View; existing ones never change.
type View struct {
	version    string
	validAfter time.Time
	relays     []*Relay
	byID       map[relay.ID]*Relay
	params     Params
	weights    *weight.Set
}

// Option customises View construction.
type Option func(*viewOptions)

type viewOptions struct {
	table   *weight.Table
	scale   int32
	version string
}

// WithWeightTable overrides the coefficient table derived from the
// snapshot's bandwidth weights.
func WithWeightTable(t *weight.Table) Option {
	return func(o *viewOptions) { o.table = t }
}

// WithDefaultScale sets the keyword denominator used when the snapshot
// does not publish bwweightscale.
func WithDefaultScale(scale int32) Option {
	return func(o *viewOptions) { o.scale = scale }
}

// WithDefaultWeightsVersion labels the derived table when the snapshot
// does not name its weights.
func WithDefaultWeightsVersion(version string) Option {
	return func(o *viewOptions) { o.version = version }
}

// New builds a View from a snapshot. Relays are copied, so the snapshot may
// be reused. Every relay must have a unique RSA identity, and a unique
// Ed25519 identity if it has one.
func New(s Snapshot, opts ...Option) (*View, error) {
	o := viewOptions{scale: weight.DefaultScale, version: DefaultWeightsVersion}
	for _, opt := range opts {
		opt(&o)
	}

	v := &View{
		version:    s.Version,
		validAfter: s.ValidAfter,
		relays:     make([]*Relay, 0, len(s.Relays)),
		byID:       make(map[relay.ID]*Relay, 2*len(s.Relays)),
		params:     copyParams(s.Params),
	}

	for i := range s.Relays {
		r := copyRelay(&s.Relays[i])
		if err := v.index(r, i); err != nil {
			return nil, err
		}
		v.relays = append(v.relays, r)
	}

	v.computeFamilies()

	table := o.table
	if table == nil {
		version := v.params.WeightsVersion
		if version == "" {
			version = o.version
		}
		scale := v.params.Get(ParamBwWeightScale, o.scale)
		if scale <= 0 {
			scale = weight.DefaultScale
		}
		table = weight.FromBandwidthWeights(version, v.params.BandwidthWeights, uint32(scale))
	}
	bws := make([]weight.Bandwidth, len(v.relays))
	for i, r := range v.relays {
		bws[i] = r.Bandwidth
	}
	v.weights = weight.NewSet(table, bws)

	log.WithFields(logger.Fields{
		"at":      "netview.New",
		"version": v.version,
		"relays":  len(v.relays),
		"table":   table.Version,
	}).Debug("built relay view")
	return v, nil
}

// DefaultWeightsVersion names tables built from a snapshot's own weights.
const DefaultWeightsVersion = "consensus"

func (v *View) index(r *Relay, pos int) error {
	if r.RSAIdentity == (relay.RSAIdentity{}) {
		return oops.Code("missing_identity").In("netview").
			With("index", pos).With("nickname", r.Nickname).
			Errorf("relay %d (%q) has no RSA identity", pos, r.Nickname)
	}
	r.ids = r.computeIdentities()
	for id := range r.ids {
		if prev, ok := v.byID[id]; ok {
			return oops.Code("duplicate_identity").In("netview").
				With("index", pos).With("identity", id.String()).With("previous", prev.Nickname).
				Errorf("identity %s is listed twice", id)
		}
		v.byID[id] = r
	}
	return nil
}

// computeFamilies fills the symmetric closure of declared family
// relationships. Declared identities that are not in the view are kept.
func (v *View) computeFamilies() {
	for _, r := range v.relays {
		r.family = relay.NewIDSet()
	}
	for _, r := range v.relays {
		for _, id := range r.DeclaredFamily {
			if id.IsZero() || r.ids.Contains(id) {
				continue
			}
			r.family.Add(id)
			if peer, ok := v.byID[id]; ok && peer != r {
				r.family.AddSet(peer.ids)
				peer.family.AddSet(r.ids)
			}
		}
	}
}

func copyRelay(src *Relay) *Relay {
	r := *src
	r.Addrs = append([]netip.AddrPort(nil), src.Addrs...)
	r.DeclaredFamily = append([]relay.ID(nil), src.DeclaredFamily...)
	r.ids = nil
	r.family = nil
	return &r
}

func copyParams(p Params) Params {
	out := Params{
		Values:           make(map[string]int32, len(p.Values)),
		BandwidthWeights: make(map[string]int32, len(p.BandwidthWeights)),
		WeightsVersion:   p.WeightsVersion,
	}
	for k, val := range p.Values {
		out.Values[k] = val
	}
	for k, val := range p.BandwidthWeights {
		out.BandwidthWeights[k] = val
	}
	return out
}

// Version returns the snapshot version label.
func (v *View) Version() string { return v.version }

// ValidAfter returns when the underlying directory became valid.
func (v *View) ValidAfter() time.Time { return v.validAfter }

// Len returns the number of relays.
func (v *View) Len() int { return len(v.relays) }

// Relays returns the relays in snapshot order. The slice is shared and
// must not be modified.
func (v *View) Relays() []*Relay { return v.relays }

// All iterates over the relays in snapshot order.
func (v *View) All() iter.Seq[*Relay] {
	return func(yield func(*Relay) bool) {
		for _, r := range v.relays {
			if !yield(r) {
				return
			}
		}
	}
}

// ByID finds a relay by any of its identities.
func (v *View) ByID(id relay.ID) (*Relay, bool) {
	r, ok := v.byID[id]
	return r, ok
}

// Lookup finds this view's record for r, which may come from another
// view. Every identity r carries must resolve to the same record;
// a relay whose keys were split or rotated is not found.
func (v *View) Lookup(r *Relay) (*Relay, bool) {
	if r == nil {
		return nil, false
	}
	var found *Relay
	for id := range r.Identities() {
		cur, ok := v.byID[id]
		if !ok || (found != nil && found != cur) {
			return nil, false
		}
		found = cur
	}
	return found, found != nil
}

// Weight returns the sampling weight of r for role.
func (v *View) Weight(r *Relay, role relay.Role) uint64 {
	return v.weights.Weight(r.Bandwidth, r.Flags, role)
}

// WeightTable returns the coefficient table in use.
func (v *View) WeightTable() *weight.Table { return v.weights.Table() }

// WeightSet returns the weight set computed for this view.
func (v *View) WeightSet() *weight.Set { return v.weights }

// Params returns the network parameters. The maps are shared and must not
// be modified.
func (v *View) Params() Params { return v.params }
