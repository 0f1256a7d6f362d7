package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// ConfigDirPermissions is the mode of the directory holding config.yaml.
const ConfigDirPermissions = 0o755

// ConfigFilePermissions is the widest mode a config file may carry
// before a warning is logged.
const ConfigFilePermissions = 0o644

// createConfigDirectory creates dir and tightens its mode, which MkdirAll
// may have inherited from the umask.
func createConfigDirectory(dir string) error {
	clean := filepath.Clean(dir)
	if err := os.MkdirAll(clean, ConfigDirPermissions); err != nil {
		return oops.In("config").With("dir", clean).Wrapf(err, "creating config directory")
	}
	if err := os.Chmod(clean, ConfigDirPermissions); err != nil {
		log.WithFields(logger.Fields{
			"at":     "createConfigDirectory",
			"reason": "chmod_failed",
			"path":   clean,
		}).WithError(err).Warn("could not set permissions on config directory")
	}
	return nil
}

// hasLooserMode reports whether path grants any permission bit
// outside maxMode. A missing path is not.
func hasLooserMode(path string, maxMode os.FileMode) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().Perm()&^maxMode != 0, nil
}

// warnLoosePermissions logs when the config file in use is more open
// than ConfigFilePermissions.
func warnLoosePermissions(path string) {
	loose, err := hasLooserMode(path, ConfigFilePermissions)
	if err != nil || !loose {
		return
	}
	info, _ := os.Stat(path)
	log.WithFields(logger.Fields{
		"at":     "warnLoosePermissions",
		"reason": "loose_permissions",
		"path":   path,
		"mode":   fmt.Sprintf("%04o", info.Mode().Perm()),
	}).Warn("config file is writable by other users")
}
