package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment
// variables first. Environment variables:
//   - NETBACK_CONFIG_PATH: config file location (default: ~/.config/netback.toml)
//   - NETBACK_HOME: base directory for netback data (default: ~/.local/share/netback)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking NETBACK_CONFIG_PATH
// first, then falling back to ~/.config/netback.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("NETBACK_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "netback.toml"), nil
}

// getBaseDir returns the base directory for netback data, checking
// NETBACK_HOME first, then falling back to the XDG default
// ~/.local/share/netback.
func getBaseDir() (string, error) {
	if path := os.Getenv("NETBACK_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "netback"), nil
}
