package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/larsvik/berth/internal/constants"
)

// LoadAPIToken loads the API token from environment variables or .env files.
func LoadAPIToken() (string, error) {
	LoadEnvFiles()

	token := os.Getenv(constants.EnvVarAPIToken)
	if token == "" {
		return "", fmt.Errorf("API token not found. Please set %s environment variable or create a .env file", constants.EnvVarAPIToken)
	}

	return token, nil
}

// LoadEnvFiles attempts to load .env files from the working directory and the
// berth config directory. Missing files are not an error.
func LoadEnvFiles() {
	_ = godotenv.Load(constants.ConfigEnvFileName)

	if configEnvPath, err := GetConfigEnvFilePath(); err == nil {
		_ = godotenv.Load(configEnvPath)
	}
}

// GetConfigEnvFilePath returns the path to the .env file in the berth config directory.
func GetConfigEnvFilePath() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, constants.ConfigEnvFileName), nil
}
