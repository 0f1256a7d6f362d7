package config

import (
	"github.com/go-i2p/logger"

	"github.com/go-i2p/go-relayselect/lib/hsring"
	"github.com/go-i2p/go-relayselect/lib/netview"
	"github.com/go-i2p/go-relayselect/lib/relay"
	"github.com/go-i2p/go-relayselect/lib/weight"
)

// ConfigDefaults contains every configurable value used by relay selection.
//
// Network parameters published in a view (hsdir_n_replicas and friends)
// take precedence over the HsDir values here.
type ConfigDefaults struct {
	Selection SelectionDefaults
	HsDir     HsDirDefaults
	Weights   WeightsDefaults
}

// SelectionDefaults contains path diversity and usage settings.
type SelectionDefaults struct {
	// SubnetV4Bits is the IPv4 prefix length two relays in one path may
	// not share. A value above 32 disables IPv4 subnet exclusion.
	// Default: 16
	SubnetV4Bits int

	// SubnetV6Bits is the IPv6 analogue of SubnetV4Bits.
	// Default: 32
	SubnetV6Bits int

	// LongLivedPorts are ports whose streams need Stable relays.
	// Default: 21, 22, 706, 1863, 5050, 5190, 5222, 5223, 6523, 6667, 6697, 8300
	LongLivedPorts []uint16

	// AllowBridges permits bridges as guards.
	// Default: false
	AllowBridges bool
}

// HsDirDefaults contains onion service directory ring settings.
type HsDirDefaults struct {
	// NReplicas is how many replicas of a descriptor are placed.
	// Default: 2
	NReplicas int

	// SpreadFetch is how many directories are tried per replica on fetch.
	// Default: 3
	SpreadFetch int

	// SpreadStore is how many directories store each replica.
	// Default: 4
	SpreadStore int

	// RingCacheSize is how many computed rings are memoised.
	// Default: 8
	RingCacheSize int
}

// WeightsDefaults contains bandwidth weighting settings.
type WeightsDefaults struct {
	// Scale is the denominator of the bandwidth-weight keywords when a
	// view does not publish bwweightscale.
	// Default: 10000
	Scale int

	// DefaultVersion labels coefficient tables built from a view.
	// Default: "consensus"
	DefaultVersion string
}

// Defaults returns the default configuration.
func Defaults() ConfigDefaults {
	return ConfigDefaults{
		Selection: SelectionDefaults{
			SubnetV4Bits:   16,
			SubnetV6Bits:   32,
			LongLivedPorts: []uint16{21, 22, 706, 1863, 5050, 5190, 5222, 5223, 6523, 6667, 6697, 8300},
			AllowBridges:   false,
		},
		HsDir: HsDirDefaults{
			NReplicas:     2,
			SpreadFetch:   3,
			SpreadStore:   4,
			RingCacheSize: hsring.DefaultCacheSize,
		},
		Weights: WeightsDefaults{
			Scale:          weight.DefaultScale,
			DefaultVersion: netview.DefaultWeightsVersion,
		},
	}
}

// SubnetConfig returns the subnet grouping described by the selection settings.
func (s SelectionDefaults) SubnetConfig() relay.SubnetConfig {
	return relay.SubnetConfig{V4Bits: s.SubnetV4Bits, V6Bits: s.SubnetV6Bits}
}

// IsLongLived reports whether port is one of the long-lived ports.
func (s SelectionDefaults) IsLongLived(port uint16) bool {
	for _, p := range s.LongLivedPorts {
		if p == port {
			return true
		}
	}
	return false
}

// ViewOptions returns the netview options carrying the weights settings.
func (w WeightsDefaults) ViewOptions() []netview.Option {
	return []netview.Option{
		netview.WithDefaultScale(int32(w.Scale)),
		netview.WithDefaultWeightsVersion(w.DefaultVersion),
	}
}

// Params returns the ring parameters described by the hsdir settings.
func (h HsDirDefaults) Params() hsring.Params {
	return hsring.Params{Replicas: h.NReplicas, SpreadFetch: h.SpreadFetch, SpreadStore: h.SpreadStore}
}

// Validate checks that cfg holds usable values.
func Validate(cfg ConfigDefaults) error {
	log.WithFields(logger.Fields{
		"at":     "config.Validate",
		"reason": "verification_requested",
	}).Debug("validating configuration")
	return runConfigValidators(cfg)
}

// runConfigValidators executes all configuration validators in sequence.
// Returns the first error encountered or nil if all validations pass.
func runConfigValidators(cfg ConfigDefaults) error {
	validators := []func() error{
		func() error { return validateSelection(cfg.Selection) },
		func() error { return validateHsDir(cfg.HsDir) },
		func() error { return validateWeights(cfg.Weights) },
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			log.WithError(err).Error("Configuration validation failed")
			return err
		}
	}
	log.WithFields(logger.Fields{
		"at":     "config.Validate",
		"reason": "all_validators_passed",
	}).Debug("all configuration validations passed")
	return nil
}

func validateSelection(s SelectionDefaults) error {
	// A /0 key would put every relay in one subnet. Widths past the
	// address length stay allowed and disable subnet exclusion.
	if s.SubnetV4Bits < 1 {
		log.WithField("subnet_v4_bits", s.SubnetV4Bits).Error("Invalid selection configuration")
		return newValidationError("Selection.SubnetV4Bits must be at least 1")
	}
	if s.SubnetV6Bits < 1 {
		log.WithField("subnet_v6_bits", s.SubnetV6Bits).Error("Invalid selection configuration")
		return newValidationError("Selection.SubnetV6Bits must be at least 1")
	}
	for _, p := range s.LongLivedPorts {
		if p == 0 {
			return newValidationError("Selection.LongLivedPorts must not contain port 0")
		}
	}
	return nil
}

func validateHsDir(h HsDirDefaults) error {
	if h.NReplicas < hsring.MinReplicas || h.NReplicas > hsring.MaxReplicas {
		log.WithFields(logger.Fields{
			"at":         "validateHsDir",
			"reason":     "n_replicas_out_of_range",
			"n_replicas": h.NReplicas,
		}).Error("invalid hsdir configuration")
		return newValidationError("HsDir.NReplicas must be between 1 and 16")
	}
	if h.SpreadFetch < hsring.MinSpread || h.SpreadStore < hsring.MinSpread {
		log.WithFields(logger.Fields{
			"at":           "validateHsDir",
			"reason":       "spread_too_low",
			"spread_fetch": h.SpreadFetch,
			"spread_store": h.SpreadStore,
		}).Error("invalid hsdir configuration")
		return newValidationError("HsDir.SpreadFetch and HsDir.SpreadStore must be at least 1")
	}
	if h.SpreadFetch > hsring.MaxSpread || h.SpreadStore > hsring.MaxSpread {
		return newValidationError("HsDir.SpreadFetch and HsDir.SpreadStore must be at most 128")
	}
	if h.RingCacheSize < 1 {
		return newValidationError("HsDir.RingCacheSize must be at least 1")
	}
	return nil
}

func validateWeights(w WeightsDefaults) error {
	if w.Scale < 1 {
		log.WithField("scale", w.Scale).Error("Invalid weights configuration")
		return newValidationError("Weights.Scale must be at least 1")
	}
	if w.DefaultVersion == "" {
		return newValidationError("Weights.DefaultVersion must not be empty")
	}
	return nil
}

type validationError struct {
	message string
}

func newValidationError(message string) error {
	return &validationError{message: message}
}

func (e *validationError) Error() string {
	return "configuration validation failed: " + e.message
}
