package config

import (
	"time"

	"github.com/larsvik/berth/internal/constants"
)

// BuildConfig describes the local build stages run before anything touches a
// remote host. Each command is run through the shell in Dir. Empty commands
// skip the stage.
type BuildConfig struct {
	Dir     string `json:"dir,omitempty" yaml:"dir,omitempty" toml:"dir,omitempty"`
	Install string `json:"install,omitempty" yaml:"install,omitempty" toml:"install,omitempty"`
	Test    string `json:"test,omitempty" yaml:"test,omitempty" toml:"test,omitempty"`
	Build   string `json:"build,omitempty" yaml:"build,omitempty" toml:"build,omitempty"`
}

// HealthCheckConfig controls the post-deploy liveness poll against a target.
type HealthCheckConfig struct {
	Path     string        `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
	Port     int           `json:"port,omitempty" yaml:"port,omitempty" toml:"port,omitempty"`
	Interval time.Duration `json:"interval,omitempty" yaml:"interval,omitempty" toml:"interval,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}

type TargetConfig struct {
	Host           string             `json:"host,omitempty" yaml:"host,omitempty" toml:"host,omitempty"`
	User           string             `json:"user,omitempty" yaml:"user,omitempty" toml:"user,omitempty"`
	Port           int                `json:"port,omitempty" yaml:"port,omitempty" toml:"port,omitempty"`
	KeyFile        string             `json:"keyFile,omitempty" yaml:"key_file,omitempty" toml:"key_file,omitempty"`
	KeySecret      string             `json:"keySecret,omitempty" yaml:"key_secret,omitempty" toml:"key_secret,omitempty"`
	DeployPath     string             `json:"deployPath,omitempty" yaml:"deploy_path,omitempty" toml:"deploy_path,omitempty"`
	ProcessName    string             `json:"processName,omitempty" yaml:"process_name,omitempty" toml:"process_name,omitempty"`
	StartScript    string             `json:"startScript,omitempty" yaml:"start_script,omitempty" toml:"start_script,omitempty"`
	HealthCheck    *HealthCheckConfig `json:"healthCheck,omitempty" yaml:"health_check,omitempty" toml:"health_check,omitempty"`
	ReleasesToKeep *int               `json:"releasesToKeep,omitempty" yaml:"releases_to_keep,omitempty" toml:"releases_to_keep,omitempty"`
}

type AppConfig struct {
	Name  string      `json:"name" yaml:"name" toml:"name"`
	Build BuildConfig `json:"build,omitempty" yaml:"build,omitempty" toml:"build,omitempty"`

	// This tag tells the unmarshaler to treat TargetConfig's
	// fields as if they were part of AppConfig directly.
	TargetConfig `mapstructure:",squash" json:",inline" yaml:",inline" toml:",inline"`
	Targets      map[string]*TargetConfig `json:"targets,omitempty" yaml:"targets,omitempty" toml:"targets,omitempty"`

	// Format records which file format the config was loaded from so error
	// messages can reference the field names the user actually wrote.
	Format string `json:"-" yaml:"-" toml:"-"`
}

// MergeWithTarget creates a new AppConfig by applying a target's overrides to
// the base config. Target values take precedence.
func (ac *AppConfig) MergeWithTarget(override *TargetConfig) *AppConfig {
	mergedConfig := *ac

	if override == nil {
		mergedConfig.Targets = nil
		return &mergedConfig
	}

	if override.Host != "" {
		mergedConfig.Host = override.Host
	}
	if override.User != "" {
		mergedConfig.User = override.User
	}
	if override.Port != 0 {
		mergedConfig.Port = override.Port
	}
	if override.KeyFile != "" {
		mergedConfig.KeyFile = override.KeyFile
	}
	if override.KeySecret != "" {
		mergedConfig.KeySecret = override.KeySecret
	}
	if override.DeployPath != "" {
		mergedConfig.DeployPath = override.DeployPath
	}
	if override.ProcessName != "" {
		mergedConfig.ProcessName = override.ProcessName
	}
	if override.StartScript != "" {
		mergedConfig.StartScript = override.StartScript
	}
	if override.HealthCheck != nil {
		mergedConfig.HealthCheck = override.HealthCheck
	}
	if override.ReleasesToKeep != nil {
		mergedConfig.ReleasesToKeep = override.ReleasesToKeep
	}

	// The final, merged config has no concept of targets.
	mergedConfig.Targets = nil

	return &mergedConfig
}

// Normalize sets default values which will be inherited by all targets.
func (ac *AppConfig) Normalize() {
	if ac.Port == 0 {
		ac.Port = constants.DefaultSSHPort
	}
	if ac.ProcessName == "" {
		ac.ProcessName = ac.Name
	}
	if ac.StartScript == "" {
		ac.StartScript = "ecosystem.config.js"
	}
	if ac.Build.Dir == "" {
		ac.Build.Dir = "."
	}
	if ac.HealthCheck == nil {
		ac.HealthCheck = &HealthCheckConfig{}
	}
	if ac.HealthCheck.Path == "" {
		ac.HealthCheck.Path = constants.DefaultHealthCheckPath
	}
	if ac.HealthCheck.Port == 0 {
		ac.HealthCheck.Port = constants.DefaultHealthCheckPort
	}
	if ac.HealthCheck.Interval == 0 {
		ac.HealthCheck.Interval = 2 * time.Second
	}
	if ac.HealthCheck.Timeout == 0 {
		ac.HealthCheck.Timeout = 30 * time.Second
	}
	if ac.ReleasesToKeep == nil {
		keep := constants.DefaultReleasesToKeep
		ac.ReleasesToKeep = &keep
	}
}
