// Package config provides configuration management for relay selection.
//
// Settings live in $HOME/.go-relayselect/config.yaml (or the file named by
// CfgFile) and are read through viper. InitConfig creates the default file
// on first use. CurrentConfig returns the effective values, and Validate
// checks them.
//
// Keys:
//
//	selection.subnet_v4_bits    selection.subnet_v6_bits
//	selection.long_lived_ports  selection.allow_bridges
//	hsdir.n_replicas            hsdir.spread_fetch
//	hsdir.spread_store          hsdir.ring_cache_size
//	weights.scale               weights.default_version
package config
