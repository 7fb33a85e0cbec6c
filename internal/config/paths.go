package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for an explicit config path.
	EnvConfigPath = "STASH_CONFIG"
	// ConfigFileName is the config file name looked up in the working directory.
	ConfigFileName = "stash.yaml"
	// ConfigDirName is the config directory name under ~/.config.
	ConfigDirName = "stash"
)

// FindConfigPath returns the first existing config file among
// $STASH_CONFIG, ./stash.yaml and ~/.config/stash/config.yaml, or "".
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if fileExists(path) {
			return path
		}
	}

	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}

	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
