package app

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "FSINV_CONFIG_PATH"
	// EnvHome overrides the directory holding the run store and logs.
	EnvHome = "FSINV_HOME"
)

// Defaults are the locations used when no flag or config value says otherwise.
type Defaults struct {
	ConfigPath string
	BaseDir    string
}

// GetDefaults resolves Defaults from the environment, falling back to
// ~/.config/fsinv.toml and ~/.local/share/fsinv.
func GetDefaults() (Defaults, error) {
	configPath, err := fromEnvOrHome(EnvConfigPath, ".config", "fsinv.toml")
	if err != nil {
		return Defaults{}, err
	}
	baseDir, err := fromEnvOrHome(EnvHome, ".local", "share", "fsinv")
	if err != nil {
		return Defaults{}, err
	}
	return Defaults{ConfigPath: configPath, BaseDir: baseDir}, nil
}

func fromEnvOrHome(key string, elem ...string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for %s: %w", key, err)
	}
	return filepath.Join(append([]string{home}, elem...)...), nil
}
