package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	supportedExtensions  = []string{".json", ".yaml", ".yml", ".toml"}
	supportedConfigNames = []string{"berth.json", "berth.yaml", "berth.yml", "berth.toml"}
)

// LoadAppConfig finds, parses, validates and normalizes an app config.
// Field tags matching the file format are used for decoding so error messages
// and unknown-field checks line up with what the user wrote.
func LoadAppConfig(path string) (AppConfig, error) {
	configFile, err := FindConfigFile(path)
	if err != nil {
		return AppConfig{}, err
	}

	format, err := getConfigFormat(configFile)
	if err != nil {
		return AppConfig{}, err
	}

	parser, err := getConfigParser(configFile)
	if err != nil {
		return AppConfig{}, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configFile), parser); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load config file: %w", err)
	}

	var appConfig AppConfig
	decoderConfig := &mapstructure.DecoderConfig{
		TagName: format,
		Result:  &appConfig,
		// This ensures that embedded structs with inline tags work properly
		Squash:     true,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	}

	unmarshalConf := koanf.UnmarshalConf{
		Tag:           format,
		DecoderConfig: decoderConfig,
	}

	if err := k.UnmarshalWithConf("", &appConfig, unmarshalConf); err != nil {
		return AppConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfig.Format = format
	appConfig.Normalize()

	if err := appConfig.Validate(); err != nil {
		return AppConfig{}, err
	}

	return appConfig, nil
}

// FindConfigFile finds a berth config file based on the given path.
// It supports:
// - Full path to a config file
// - Directory containing a berth config file
// - Relative paths
func FindConfigFile(path string) (string, error) {
	if path == "" {
		path = "."
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("path does not exist: %s", absPath)
	}

	// If it's a file, validate it's a supported extension
	if !stat.IsDir() {
		ext := filepath.Ext(absPath)
		if !slices.Contains(supportedExtensions, ext) {
			return "", fmt.Errorf("file %s is not a valid berth config file (must be .json, .yaml, .yml, or .toml)", absPath)
		}
		return absPath, nil
	}

	for _, configName := range supportedConfigNames {
		configPath := filepath.Join(absPath, configName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	dirName := path
	if path == "." {
		if cwd, err := os.Getwd(); err == nil {
			dirName = filepath.Base(cwd)
		}
	}

	return "", fmt.Errorf("no berth config file found in directory %s (looking for: %s)",
		dirName, strings.Join(supportedConfigNames, ", "))
}
