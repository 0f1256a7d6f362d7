package hsring

import (
	"time"

	"github.com/go-i2p/logger"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/oops"

	"github.com/go-i2p/go-relayselect/lib/netview"
	"github.com/go-i2p/go-relayselect/lib/relay"
)

// DefaultCacheSize is the number of rings a Locator keeps by default.
const DefaultCacheSize = 8

// DefaultParams are used for parameters a view does not publish.
func DefaultParams() Params {
	return Params{Replicas: 2, SpreadFetch: 3, SpreadStore: 4}
}

type cacheKey struct {
	number uint64
	length time.Duration
	srv    string
	role   relay.Role
}

// Locator builds rings for one View. Rings are memoised, so locating the
// same period and role twice returns the same *Ring. A Locator is safe
// for concurrent use.
type Locator struct {
	view   *netview.View
	params Params
	cache  *lru.Cache[cacheKey, *Ring]
}

// LocatorOption configures a Locator.
type LocatorOption func(*locatorConfig)

type locatorConfig struct {
	cacheSize int
	params    Params
}

// WithCacheSize sets how many rings are memoised.
func WithCacheSize(n int) LocatorOption {
	return func(c *locatorConfig) { c.cacheSize = n }
}

// WithDefaultParams sets the parameters used when the view does not
// publish hsdir_n_replicas, hsdir_spread_fetch or hsdir_spread_store.
func WithDefaultParams(p Params) LocatorOption {
	return func(c *locatorConfig) { c.params = p }
}

// NewLocator returns a Locator for v.
func NewLocator(v *netview.View, opts ...LocatorOption) (*Locator, error) {
	cfg := locatorConfig{cacheSize: DefaultCacheSize, params: DefaultParams()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if v == nil {
		return nil, oops.Code("nil_view").In("hsring").Errorf("view cannot be nil")
	}
	if cfg.cacheSize <= 0 {
		return nil, oops.Code("invalid_cache_size").In("hsring").With("size", cfg.cacheSize).
			Errorf("ring cache size must be positive")
	}
	cache, err := lru.New[cacheKey, *Ring](cfg.cacheSize)
	if err != nil {
		return nil, oops.In("hsring").Wrapf(err, "creating ring cache")
	}
	return &Locator{
		view:   v,
		params: paramsFromView(v, cfg.params),
		cache:  cache,
	}, nil
}

// Bounds on the ring parameters a view may publish.
const (
	MinReplicas = 1
	MaxReplicas = 16
	MinSpread   = 1
	MaxSpread   = 128
)

func paramsFromView(v *netview.View, def Params) Params {
	vp := v.Params()
	return Params{
		Replicas:    boundedParam(vp, netview.ParamHsDirReplicas, def.Replicas, MinReplicas, MaxReplicas),
		SpreadFetch: boundedParam(vp, netview.ParamHsDirSpreadFetch, def.SpreadFetch, MinSpread, MaxSpread),
		SpreadStore: boundedParam(vp, netview.ParamHsDirSpreadStore, def.SpreadStore, MinSpread, MaxSpread),
	}
}

// boundedParam reads name from vp, clamped to [lo, hi]. def is used when
// the view does not publish it.
func boundedParam(vp netview.Params, name string, def, lo, hi int) int {
	v := int(vp.Get(name, int32(def)))
	clamped := min(max(v, lo), hi)
	if clamped != v {
		log.WithFields(logger.Fields{
			"at":      "hsring.paramsFromView",
			"param":   name,
			"value":   v,
			"clamped": clamped,
			"reason":  "param_out_of_range",
		}).Warn("network parameter out of range")
	}
	return clamped
}

// View returns the view rings are built from.
func (l *Locator) View() *netview.View { return l.view }

// Params returns the effective ring parameters.
func (l *Locator) Params() Params { return l.params }

// Locate returns the ring for role in period p.
func (l *Locator) Locate(p Period, role relay.Role) (*Ring, error) {
	if !IsRingRole(role) {
		return nil, oops.In("hsring").With("role", role.String()).Wrap(ErrNotRingRole)
	}
	if len(p.SharedRandom) == 0 {
		return nil, oops.In("hsring").With("period", p.Number).Wrap(ErrNoSharedRandom)
	}
	if p.Length < time.Minute {
		return nil, oops.In("hsring").With("length", p.Length).Wrap(ErrInvalidPeriod)
	}

	key := cacheKey{number: p.Number, length: p.Length, srv: string(p.SharedRandom), role: role}
	if ring, ok := l.cache.Get(key); ok {
		return ring, nil
	}

	p.SharedRandom = append([]byte(nil), p.SharedRandom...)
	ring := buildRing(l.view, p, role)
	if prev, found, _ := l.cache.PeekOrAdd(key, ring); found {
		ring = prev
	}

	log.WithFields(logger.Fields{
		"at":      "hsring.Locate",
		"role":    role.String(),
		"period":  p.Number,
		"members": ring.Len(),
	}).Debug("computed ring")
	return ring, nil
}

// Responsible returns the onion service directories for a blinded id.
func (l *Locator) Responsible(blinded BlindedID, op Op, p Period) ([]*netview.Relay, error) {
	ring, err := l.Locate(p, relay.RoleHsDir)
	if err != nil {
		return nil, err
	}
	return ring.Responsible(blinded, l.params, op), nil
}
