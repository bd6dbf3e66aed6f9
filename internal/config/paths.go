package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/larsvik/berth/internal/constants"
)

func ensureDir(dirPath string) error {
	return os.MkdirAll(dirPath, constants.ModeDirPrivate)
}

// DataDir returns the directory berthd stores its database, artifacts and
// release logs in. BERTH_DATA_DIR overrides the default.
func DataDir() (string, error) {
	if envPath, ok := os.LookupEnv(constants.EnvVarDataDir); ok && envPath != "" {
		if strings.HasPrefix(envPath, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			envPath = filepath.Join(home, envPath[2:])
		}
		return envPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "berth"), nil
}

// ConfigDir returns the berth configuration directory.
func ConfigDir() (string, error) {
	if envPath, ok := os.LookupEnv("BERTH_CONFIG_DIR"); ok && envPath != "" {
		if strings.HasPrefix(envPath, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			envPath = filepath.Join(home, envPath[2:])
		}
		if err := ensureDir(envPath); err != nil {
			return "", err
		}
		return envPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(home, ".config", "berth")
	if err := ensureDir(path); err != nil {
		return "", err
	}
	return path, nil
}

// ArtifactsDir returns the directory built artifact bundles are written to.
func ArtifactsDir() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "artifacts"), nil
}

// ReleaseLogsDir returns the directory per-release log files are written to.
func ReleaseLogsDir() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, constants.ReleaseLogsDirName), nil
}

// KnownHostsPath returns the known_hosts file used for host key verification.
// berthd keeps its own file instead of sharing the operator's so the set of
// trusted hosts is explicit.
func KnownHostsPath() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, constants.KnownHostsFileName), nil
}
