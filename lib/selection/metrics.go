package selection

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/go-i2p/go-relayselect/lib/relay"
)

// Pick outcomes used as the "outcome" label.
const (
	OutcomeOK         = "ok"
	OutcomeRelaxed    = "relaxed"
	OutcomeEmpty      = "empty"
	OutcomeNoSuitable = "no_suitable"
	OutcomeIncomplete = "incomplete"
)

// Metrics holds the selection counters. A nil *Metrics records nothing.
type Metrics struct {
	picks     *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	paths     *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg. A nil reg
// leaves them unregistered. Collectors that are already registered are
// reused, so several selectors can share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		picks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relayselect_picks_total",
				Help: "Relay picks by role and outcome.",
			},
			[]string{"role", "outcome"}),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relayselect_uniform_fallbacks_total",
				Help: "Picks that fell back to uniform choice because every candidate weighed 0.",
			},
			[]string{"role"}),
		paths: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relayselect_path_builds_total",
				Help: "Path builds by outcome.",
			},
			[]string{"outcome"}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.picks, err = register(reg, m.picks); err != nil {
		return nil, err
	}
	if m.fallbacks, err = register(reg, m.fallbacks); err != nil {
		return nil, err
	}
	if m.paths, err = register(reg, m.paths); err != nil {
		return nil, err
	}
	return m, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing, nil
		}
	}
	return nil, oops.Code("metrics_registration").In("selection").Wrapf(err, "registering selection metrics")
}

func (m *Metrics) pick(role relay.Role, outcome string) {
	if m == nil {
		return
	}
	m.picks.WithLabelValues(role.String(), outcome).Inc()
}

func (m *Metrics) fallback(role relay.Role) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(role.String()).Inc()
}

func (m *Metrics) path(outcome string) {
	if m == nil {
		return
	}
	m.paths.WithLabelValues(outcome).Inc()
}
