// Package paths resolves configuration and data directory locations and
// expands home-relative paths.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigDirName is the CWD-relative configuration directory.
const DefaultConfigDirName = ".friction"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "FRICTION_CONFIG_DIR"
	EnvDataDir   = "FRICTION_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir func() (string, error)
	getwd   func() (string, error)
}{
	homeDir: os.UserHomeDir,
	getwd:   os.Getwd,
}

// ExpandHome replaces a leading "~" or "~/" with the invoking user's home
// directory. Other paths, including "~user" forms, are returned unchanged.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path, nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// Abs expands a leading "~" and returns the absolute form of path.
func Abs(path string) (string, error) {
	expanded, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > FRICTION_CONFIG_DIR env > $(CWD)/.friction.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return Abs(env)
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultConfigDirName), nil
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configValue > FRICTION_DATA_DIR env > $(CWD).
//
// The database file lives directly in the working directory unless one of
// the overrides is set.
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return Abs(flag)
	}
	if configValue != "" {
		return Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return Abs(env)
	}
	return platformDir.getwd()
}
