package util

import (
	"os"
)

// UserHome returns the current user's home directory, where the
// configuration directory lives.
// Falls back to $HOME, then %USERPROFILE%, then the working directory, so
// that the CLI still runs in containers without a home directory.
func UserHome() string {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		return homeDir
	}
	for _, env := range []string{"HOME", "USERPROFILE"} {
		if home := os.Getenv(env); home != "" {
			log.WithError(err).WithField("env", env).Warn("os.UserHomeDir failed, using environment")
			return home
		}
	}
	wd, wdErr := os.Getwd()
	if wdErr != nil {
		log.WithError(wdErr).Error("no home or working directory, using current directory")
		return "."
	}
	log.WithError(err).Warn("os.UserHomeDir and $HOME unavailable; falling back to working directory")
	return wd
}
