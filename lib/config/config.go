package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/spf13/viper"

	"github.com/go-i2p/go-relayselect/lib/util"
)

var (
	CfgFile string
	log     = logger.GetGoI2PLogger()
)

// BaseDirName is the directory under the user's home holding config.yaml.
const BaseDirName = ".go-relayselect"

// InitConfig points viper at CfgFile, or at config.yaml in the default
// directory, loads defaults and reads the file. A missing default file is
// created from the defaults; a missing explicit file is an error.
func InitConfig() error {
	if CfgFile != "" {
		viper.SetConfigFile(CfgFile)
	} else {
		viper.AddConfigPath(BuildConfigDirPath())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	return handleConfigFile()
}

func setDefaults() {
	d := Defaults()

	viper.SetDefault("selection.subnet_v4_bits", d.Selection.SubnetV4Bits)
	viper.SetDefault("selection.subnet_v6_bits", d.Selection.SubnetV6Bits)
	viper.SetDefault("selection.long_lived_ports", portsToInts(d.Selection.LongLivedPorts))
	viper.SetDefault("selection.allow_bridges", d.Selection.AllowBridges)

	viper.SetDefault("hsdir.n_replicas", d.HsDir.NReplicas)
	viper.SetDefault("hsdir.spread_fetch", d.HsDir.SpreadFetch)
	viper.SetDefault("hsdir.spread_store", d.HsDir.SpreadStore)
	viper.SetDefault("hsdir.ring_cache_size", d.HsDir.RingCacheSize)

	viper.SetDefault("weights.scale", d.Weights.Scale)
	viper.SetDefault("weights.default_version", d.Weights.DefaultVersion)
}

// CurrentConfig reads the effective configuration from viper. Keys that
// were never set fall back to the values in Defaults.
func CurrentConfig() ConfigDefaults {
	return ConfigDefaults{
		Selection: SelectionDefaults{
			SubnetV4Bits:   viper.GetInt("selection.subnet_v4_bits"),
			SubnetV6Bits:   viper.GetInt("selection.subnet_v6_bits"),
			LongLivedPorts: intsToPorts(viper.GetIntSlice("selection.long_lived_ports")),
			AllowBridges:   viper.GetBool("selection.allow_bridges"),
		},
		HsDir: HsDirDefaults{
			NReplicas:     viper.GetInt("hsdir.n_replicas"),
			SpreadFetch:   viper.GetInt("hsdir.spread_fetch"),
			SpreadStore:   viper.GetInt("hsdir.spread_store"),
			RingCacheSize: viper.GetInt("hsdir.ring_cache_size"),
		},
		Weights: WeightsDefaults{
			Scale:          viper.GetInt("weights.scale"),
			DefaultVersion: viper.GetString("weights.default_version"),
		},
	}
}

func createDefaultConfig(defaultConfigDir string) error {
	defaultConfigFile := filepath.Join(defaultConfigDir, "config.yaml")
	if err := createConfigDirectory(defaultConfigDir); err != nil {
		return err
	}

	if err := viper.SafeWriteConfigAs(defaultConfigFile); err != nil {
		return oops.In("config").With("file", defaultConfigFile).Wrapf(err, "writing default config file")
	}

	log.WithFields(logger.Fields{
		"at":   "createDefaultConfig",
		"file": defaultConfigFile,
	}).Debug("created default configuration")
	return nil
}

func handleConfigFile() error {
	err := viper.ReadInConfig()
	if err == nil {
		log.WithField("file", viper.ConfigFileUsed()).Debug("using config file")
		warnLoosePermissions(viper.ConfigFileUsed())
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	switch {
	case CfgFile != "" && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)):
		return oops.Code("config_not_found").In("config").With("file", CfgFile).Wrapf(err, "config file not found")
	case errors.As(err, &notFound):
		return createDefaultConfig(BuildConfigDirPath())
	default:
		return oops.In("config").Wrapf(err, "reading config file")
	}
}

// BuildConfigDirPath returns $HOME/.go-relayselect.
func BuildConfigDirPath() string {
	return filepath.Join(util.UserHome(), BaseDirName)
}

func portsToInts(ports []uint16) []int {
	out := make([]int, len(ports))
	for i, p := range ports {
		out[i] = int(p)
	}
	return out
}

func intsToPorts(in []int) []uint16 {
	out := make([]uint16, 0, len(in))
	for _, p := range in {
		if p <= 0 || p > 65535 {
			log.WithFields(logger.Fields{
				"at":     "intsToPorts",
				"reason": "port_out_of_range",
				"port":   p,
			}).Warn("ignoring invalid long-lived port")
			continue
		}
		out = append(out, uint16(p))
	}
	return out
}
