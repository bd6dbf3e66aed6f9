package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/larsvik/berth/internal/helpers"
)

func (ac *AppConfig) Validate() error {
	if err := helpers.IsValidAppName(ac.Name); err != nil {
		return fmt.Errorf("invalid app name '%s': %w", ac.Name, err)
	}

	// In a multi-target config the base section is only a template; fields
	// like host may live entirely in the target overrides.
	if len(ac.Targets) == 0 {
		return ac.validateTarget(&ac.TargetConfig)
	}

	for name, target := range ac.Targets {
		merged := ac.MergeWithTarget(target)
		if err := merged.validateTarget(&merged.TargetConfig); err != nil {
			return fmt.Errorf("target '%s': %w", name, err)
		}
	}

	return nil
}

func (ac *AppConfig) validateTarget(tc *TargetConfig) error {
	if tc.Host == "" {
		return errors.New("host is required")
	}
	if err := helpers.IsValidHost(tc.Host); err != nil {
		return fmt.Errorf("invalid host '%s': %w", tc.Host, err)
	}

	if tc.User == "" {
		return errors.New("user is required")
	}

	if tc.Port < 0 || tc.Port > 65535 {
		return fmt.Errorf("invalid SSH port %d", tc.Port)
	}

	if tc.KeyFile != "" && tc.KeySecret != "" {
		return errors.New("keyFile and keySecret are mutually exclusive; set only one")
	}

	if tc.DeployPath == "" {
		return errors.New("deployPath is required")
	}
	if !filepath.IsAbs(tc.DeployPath) {
		return fmt.Errorf("deployPath '%s' must be an absolute path", tc.DeployPath)
	}

	if tc.HealthCheck != nil {
		if err := validateHealthCheck(tc.HealthCheck); err != nil {
			return err
		}
	}

	if tc.ReleasesToKeep != nil && *tc.ReleasesToKeep < 1 {
		return errors.New("releasesToKeep must be at least 1")
	}

	return nil
}

func validateHealthCheck(hc *HealthCheckConfig) error {
	if hc.Path != "" && !strings.HasPrefix(hc.Path, "/") {
		return fmt.Errorf("health check path '%s' must start with '/'", hc.Path)
	}
	if hc.Port < 0 || hc.Port > 65535 {
		return fmt.Errorf("invalid health check port %d", hc.Port)
	}
	if hc.Interval < 0 {
		return errors.New("health check interval cannot be negative")
	}
	if hc.Timeout < 0 {
		return errors.New("health check timeout cannot be negative")
	}
	if hc.Interval > 0 && hc.Timeout > 0 && hc.Interval > hc.Timeout {
		return errors.New("health check interval cannot exceed the timeout")
	}
	return nil
}
