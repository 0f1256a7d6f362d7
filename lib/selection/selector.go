package selection

import (
	"errors"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"

	"github.com/go-i2p/go-relayselect/lib/config"
	"github.com/go-i2p/go-relayselect/lib/exclusion"
	"github.com/go-i2p/go-relayselect/lib/hsring"
	"github.com/go-i2p/go-relayselect/lib/netview"
	"github.com/go-i2p/go-relayselect/lib/relay"
	"github.com/go-i2p/go-relayselect/lib/sampler"
)

// Result is a successful pick.
type Result struct {
	Relay *netview.Relay
	// Weight is the relay's sampling weight for the usage's role.
	Weight uint64
	Mode   sampler.Mode
	// Ring is set when the relay was placed on an onion service ring
	// rather than sampled.
	Ring bool
	Info SelectionInfo
}

// Selector picks and checks relays against one view. It is safe for
// concurrent use.
type Selector struct {
	view    *netview.View
	cfg     config.ConfigDefaults
	filters []RelayFilter
	metrics *Metrics
	locator *hsring.Locator
}

// Option configures a Selector.
type Option func(*Selector)

// WithConfig replaces config.Defaults().
func WithConfig(cfg config.ConfigDefaults) Option {
	return func(s *Selector) {
		s.cfg = cfg
	}
}

// WithFilters adds filters applied after IsSuitable on every pick.
func WithFilters(filters ...RelayFilter) Option {
	return func(s *Selector) {
		s.filters = append(s.filters, filters...)
	}
}

// WithMetrics records picks and path builds in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Selector) {
		s.metrics = m
	}
}

// WithLocator shares a ring locator, and its cache, between selectors for
// the same view.
func WithLocator(l *hsring.Locator) Option {
	return func(s *Selector) {
		s.locator = l
	}
}

// New creates a selector for v.
func New(v *netview.View, opts ...Option) (*Selector, error) {
	if v == nil {
		return nil, oops.Code("nil_view").In("selection").Errorf("view cannot be nil")
	}

	s := &Selector{view: v, cfg: config.Defaults()}
	for _, opt := range opts {
		opt(s)
	}

	if err := config.Validate(s.cfg); err != nil {
		return nil, oops.Code("invalid_config").In("selection").Wrapf(err, "creating selector")
	}

	if s.locator == nil {
		loc, err := hsring.NewLocator(v,
			hsring.WithCacheSize(s.cfg.HsDir.RingCacheSize),
			hsring.WithDefaultParams(s.cfg.HsDir.Params()))
		if err != nil {
			return nil, err
		}
		s.locator = loc
	} else if s.locator.View() != v {
		return nil, oops.Code("locator_view_mismatch").In("selection").
			Errorf("ring locator was built for a different view")
	}

	filterNames := make([]string, len(s.filters))
	for i, f := range s.filters {
		filterNames[i] = f.Name()
	}
	log.WithFields(logger.Fields{
		"at":      "selection.New",
		"view":    v.Version(),
		"relays":  v.Len(),
		"filters": filterNames,
		"reason":  "initialization",
	}).Debug("created relay selector")

	return s, nil
}

// View returns the view the selector was built for.
func (s *Selector) View() *netview.View { return s.view }

// Config returns the selector configuration.
func (s *Selector) Config() config.ConfigDefaults { return s.cfg }

// Locator returns the ring locator.
func (s *Selector) Locator() *hsring.Locator { return s.locator }

// DefaultProfile returns the plain usage for role under the selector
// configuration.
func (s *Selector) DefaultProfile(role relay.Role) UsageProfile {
	switch role {
	case relay.RoleGuard:
		p := GuardProfile()
		p.AllowBridges = s.cfg.Selection.AllowBridges
		return p
	case relay.RoleMiddle:
		return MiddleProfile(nil)
	case relay.RoleExit:
		return ExitProfile(s.cfg.Selection)
	case relay.RoleHsDir:
		return HsDirProfile(nil)
	case relay.RoleIntroduction:
		return IntroductionProfile()
	case relay.RoleRendezvous:
		return RendezvousProfile()
	case relay.RoleDirectoryCache:
		return DirectoryCacheProfile()
	default:
		return UsageProfile{Role: role}
	}
}

// Pick chooses one relay for p that excl does not rule out. excl is read,
// never modified; it may be nil.
//
// When nothing is suitable and p is Flexible, the pick is retried with
// p.Relaxed() and Result.Info records both attempts.
func (s *Selector) Pick(src sampler.Source, p UsageProfile, excl exclusion.Excluder) (Result, error) {
	if err := s.validate(p, src); err != nil {
		return Result{}, err
	}

	res, err := s.pickOnce(src, p, excl)
	if err != nil && canRelax(p, err) {
		strict := res.Info
		res, err = s.pickOnce(src, p.Relaxed(), excl)
		res.Info.Relaxed = true
		res.Info.Strict = &strict
		var se *SelectionError
		if errors.As(err, &se) {
			se.Role = p.Role
			se.Info = res.Info
		}
	}

	s.record(p.Role, res.Info, res.Mode, err)
	return res, err
}

// PickN chooses up to n distinct relays for p. It fails only when none can
// be chosen. Exclusion between the returned relays is not applied.
func (s *Selector) PickN(src sampler.Source, n int, p UsageProfile, excl exclusion.Excluder) ([]*netview.Relay, SelectionInfo, error) {
	if err := s.validate(p, src); err != nil {
		return nil, SelectionInfo{}, err
	}
	if n <= 0 {
		return nil, SelectionInfo{}, oops.Code("invalid_count").In("selection").With("n", n).
			Errorf("relay count must be positive, got %d", n)
	}

	relays, info, mode, err := s.pickNOnce(src, n, p, excl)
	if err != nil && canRelax(p, err) {
		strict := info
		relays, info, mode, err = s.pickNOnce(src, n, p.Relaxed(), excl)
		info.Relaxed = true
		info.Strict = &strict
		var se *SelectionError
		if errors.As(err, &se) {
			se.Role = p.Role
			se.Info = info
		}
	}

	s.record(p.Role, info, mode, err)
	return relays, info, err
}

// Check re-validates a relay chosen earlier, such as a persisted guard,
// against the current view and exclusions.
//
// A relay that is no longer in the view yields a *SelectionError matching
// ErrNoSuitableRelay. A relay that is present but unsuitable yields an
// *UnsuitableError describing the current record; path exclusion is
// reported ahead of any other reason, as in IsSuitable.
func (s *Selector) Check(r *netview.Relay, p UsageProfile, excl exclusion.Excluder) error {
	if !p.valid() {
		return invalidRole(p)
	}
	if r == nil {
		return oops.Code("nil_relay").In("selection").Errorf("relay cannot be nil")
	}

	cur, ok := s.view.Lookup(r)
	if !ok {
		return &SelectionError{
			Kind:   ErrNoSuitableRelay,
			Role:   p.Role,
			Detail: r.String() + " is not in the current view",
		}
	}

	if reason := excludedBy(cur, excl); reason != nil {
		return &UnsuitableError{Relay: cur, Reason: *reason}
	}
	if !cur.IsUsable() {
		detail := "no ntor key"
		if missing := cur.Flags.Missing(relay.FlagRunning | relay.FlagValid); missing != 0 {
			detail = missing.String()
		}
		return &UnsuitableError{Relay: cur, Reason: UnsuitableReason{Kind: MissingRequiredFlag, Detail: detail}}
	}
	if reason := IsSuitable(cur, p, excl); reason != nil {
		return &UnsuitableError{Relay: cur, Reason: *reason}
	}
	if name, rejected := firstRejecting(s.filters, cur); rejected {
		return &UnsuitableError{Relay: cur, Reason: UnsuitableReason{Kind: FilteredOut, Detail: name}}
	}
	return nil
}

// ProfileFunc returns the usage for position index of a path.
type ProfileFunc func(index int, role relay.Role) UsageProfile

// PathProfiles returns the default ProfileFunc for roles: each position
// gets DefaultProfile, except that middles need Stable only when the final
// hop does.
func (s *Selector) PathProfiles(roles []relay.Role) ProfileFunc {
	if len(roles) == 0 {
		return s.indexedDefault
	}
	final := s.DefaultProfile(roles[len(roles)-1])
	last := len(roles) - 1
	return func(i int, role relay.Role) UsageProfile {
		if role == relay.RoleMiddle && i != last {
			return MiddleProfile(&final)
		}
		return s.DefaultProfile(role)
	}
}

func (s *Selector) indexedDefault(_ int, role relay.Role) UsageProfile {
	return s.DefaultProfile(role)
}

// BuildPath fills roles in order, excluding every committed hop's
// identity, family and subnet from later positions. profileFn may be nil,
// in which case PathProfiles(roles) is used.
//
// The result is all or nothing: on failure no relays are returned and the
// error is a *PathError.
func (s *Selector) BuildPath(src sampler.Source, roles []relay.Role, profileFn ProfileFunc) ([]*netview.Relay, error) {
	if len(roles) == 0 {
		return nil, oops.Code("empty_path").In("selection").Errorf("path needs at least one role")
	}
	if profileFn == nil {
		profileFn = s.PathProfiles(roles)
	}

	tracker := exclusion.NewTracker(s.cfg.Selection.SubnetConfig())
	path := make([]*netview.Relay, 0, len(roles))
	for i, role := range roles {
		res, err := s.Pick(src, profileFn(i, role), tracker)
		if err != nil {
			s.metrics.path(OutcomeIncomplete)
			log.WithFields(logger.Fields{
				"at":     "selection.BuildPath",
				"index":  i,
				"role":   role.String(),
				"length": len(roles),
				"reason": "hop could not be filled",
			}).WithError(err).Debug("path build failed")
			return nil, &PathError{Index: i, Role: role, Err: err}
		}
		tracker.Commit(res.Relay)
		path = append(path, res.Relay)
	}

	s.metrics.path(OutcomeOK)
	return path, nil
}

// HsDirs returns the onion service directories responsible for blinded in
// period p. Fetch results are shuffled with src so load spreads across the
// responsible set; store results keep ring order. src may be nil for
// stores.
func (s *Selector) HsDirs(src sampler.Source, blinded hsring.BlindedID, op hsring.Op, p hsring.Period) ([]*netview.Relay, error) {
	dirs, err := s.locator.Responsible(blinded, op, p)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		err := &SelectionError{
			Kind:   ErrEmptyCandidateSet,
			Role:   relay.RoleHsDir,
			Detail: "onion service directory ring is empty",
		}
		s.metrics.pick(relay.RoleHsDir, OutcomeEmpty)
		return nil, err
	}

	if op == hsring.OpFetch {
		if src == nil {
			return nil, oops.Code("nil_source").In("selection").Errorf("fetch needs a random source")
		}
		for i := len(dirs) - 1; i > 0; i-- {
			j := int(src.Uint64N(uint64(i + 1)))
			dirs[i], dirs[j] = dirs[j], dirs[i]
		}
	}

	s.metrics.pick(relay.RoleHsDir, OutcomeOK)
	return dirs, nil
}

func (s *Selector) validate(p UsageProfile, src sampler.Source) error {
	if !p.valid() {
		return invalidRole(p)
	}
	if p.Ring != nil && !hsring.IsRingRole(p.Role) {
		return oops.Code("invalid_profile").In("selection").With("role", p.Role.String()).
			Errorf("ring placement needs an onion service role, got %s", p.Role)
	}
	if src == nil && (p.Ring == nil || p.Flexible) {
		return oops.Code("nil_source").In("selection").Errorf("random source cannot be nil")
	}
	return nil
}

func invalidRole(p UsageProfile) error {
	return oops.Code("invalid_profile").In("selection").With("role", uint8(p.Role)).
		Errorf("unknown role %d", p.Role)
}

func canRelax(p UsageProfile, err error) bool {
	return p.Flexible && p.Role != relay.RoleMiddle && errors.Is(err, ErrNoSuitableRelay)
}

// candidates runs the basic filter, the predicate and the extra filters
// over the whole view.
func (s *Selector) candidates(p UsageProfile, excl exclusion.Excluder) ([]*netview.Relay, SelectionInfo) {
	info := newSelectionInfo()
	var out []*netview.Relay
	for r := range s.view.All() {
		info.Considered++
		if !r.IsUsable() {
			continue
		}
		info.Usable++
		if reason := IsSuitable(r, p, excl); reason != nil {
			info.reject(reason)
			continue
		}
		if name, rejected := firstRejecting(s.filters, r); rejected {
			info.filter(name)
			continue
		}
		out = append(out, r)
	}
	info.Accepted = len(out)
	return out, info
}

func (s *Selector) candidateError(p UsageProfile, info SelectionInfo) error {
	switch {
	case info.Usable == 0:
		return &SelectionError{Kind: ErrEmptyCandidateSet, Role: p.Role, Info: info}
	case info.Accepted == 0:
		return &SelectionError{Kind: ErrNoSuitableRelay, Role: p.Role, Reason: info.mostCommonReason(), Info: info}
	}
	return nil
}

func (s *Selector) weigher(role relay.Role) func(*netview.Relay) uint64 {
	return func(r *netview.Relay) uint64 { return s.view.Weight(r, role) }
}

func (s *Selector) pickOnce(src sampler.Source, p UsageProfile, excl exclusion.Excluder) (Result, error) {
	candidates, info := s.candidates(p, excl)
	if err := s.candidateError(p, info); err != nil {
		return Result{Info: info}, err
	}

	if p.Ring != nil {
		ringed, err := s.walkRing(p, candidates, 1)
		if err != nil {
			return Result{Info: info}, err
		}
		if len(ringed) == 0 {
			return Result{Info: info}, &SelectionError{
				Kind: ErrNoSuitableRelay, Role: p.Role, Info: info,
				Detail: "no suitable relay on the ring",
			}
		}
		r := ringed[0]
		return Result{Relay: r, Weight: s.view.Weight(r, p.Role), Ring: true, Info: info}, nil
	}

	r, mode, _ := sampler.Sample(candidates, s.weigher(p.Role), src)
	return Result{Relay: r, Weight: s.view.Weight(r, p.Role), Mode: mode, Info: info}, nil
}

func (s *Selector) pickNOnce(src sampler.Source, n int, p UsageProfile, excl exclusion.Excluder) ([]*netview.Relay, SelectionInfo, sampler.Mode, error) {
	candidates, info := s.candidates(p, excl)
	if err := s.candidateError(p, info); err != nil {
		return nil, info, sampler.ModeWeighted, err
	}

	if p.Ring != nil {
		ringed, err := s.walkRing(p, candidates, n)
		if err != nil {
			return nil, info, sampler.ModeWeighted, err
		}
		if len(ringed) == 0 {
			return nil, info, sampler.ModeWeighted, &SelectionError{
				Kind: ErrNoSuitableRelay, Role: p.Role, Info: info,
				Detail: "no suitable relay on the ring",
			}
		}
		return ringed, info, sampler.ModeWeighted, nil
	}

	relays, mode := sampler.SampleN(candidates, n, s.weigher(p.Role), src)
	return relays, info, mode, nil
}

// walkRing returns up to n accepted relays in ring order from the target
// index.
func (s *Selector) walkRing(p UsageProfile, accepted []*netview.Relay, n int) ([]*netview.Relay, error) {
	ring, err := s.locator.Locate(p.Ring.Period, p.Role)
	if err != nil {
		return nil, err
	}
	ok := make(map[*netview.Relay]struct{}, len(accepted))
	for _, r := range accepted {
		ok[r] = struct{}{}
	}
	var out []*netview.Relay
	for r := range ring.From(p.Ring.Index) {
		if _, found := ok[r]; found {
			out = append(out, r)
			if len(out) == n {
				break
			}
		}
	}
	return out, nil
}

func (s *Selector) record(role relay.Role, info SelectionInfo, mode sampler.Mode, err error) {
	if err != nil {
		outcome := OutcomeNoSuitable
		if errors.Is(err, ErrEmptyCandidateSet) {
			outcome = OutcomeEmpty
		}
		s.metrics.pick(role, outcome)
		log.WithFields(logger.Fields{
			"at":     "selection.Pick",
			"role":   role.String(),
			"info":   info.String(),
			"reason": outcome,
		}).Debug("relay selection failed")
		return
	}

	if mode == sampler.ModeUniformFallback {
		s.metrics.fallback(role)
		log.WithFields(logger.Fields{
			"at":       "selection.Pick",
			"role":     role.String(),
			"accepted": info.Accepted,
			"reason":   "zero_total_weight",
		}).Warn("all candidates weigh zero, choosing uniformly")
	}

	outcome := OutcomeOK
	if info.Relaxed {
		outcome = OutcomeRelaxed
	}
	s.metrics.pick(role, outcome)
}
