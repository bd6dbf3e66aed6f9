package appconfigloader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/larsvik/berth/internal/config"
)

// AppConfigTarget is a fully resolved config for one deploy target.
type AppConfigTarget struct {
	TargetName        string
	ResolvedAppConfig config.AppConfig
}

// Load reads an app config and resolves it into one config per selected
// target. Target overrides are applied to a deep copy of the base config so
// shared nested values (health check settings, retention) never leak between
// targets.
func Load(configPath string, targets []string, allTargets bool) ([]AppConfigTarget, *config.AppConfig, error) {
	baseConfig, err := config.LoadAppConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	isMultiTarget := len(baseConfig.Targets) > 0

	var targetsToProcess []string
	if isMultiTarget {
		if len(targets) == 0 && !allTargets {
			var availableTargets []string
			for name := range baseConfig.Targets {
				availableTargets = append(availableTargets, name)
			}
			sort.Strings(availableTargets)
			return nil, nil, fmt.Errorf("multiple targets available (%s); specify targets with --targets or use --all", strings.Join(availableTargets, ", "))
		}
		if allTargets {
			for name := range baseConfig.Targets {
				targetsToProcess = append(targetsToProcess, name)
			}
			sort.Strings(targetsToProcess)
		} else {
			for _, name := range targets {
				if _, exists := baseConfig.Targets[name]; !exists {
					return nil, nil, fmt.Errorf("target '%s' not found in configuration", name)
				}
			}
			targetsToProcess = targets
		}
	} else {
		if len(targets) > 0 || allTargets {
			return nil, nil, fmt.Errorf("the --targets and --all flags are not applicable for a single-target configuration file")
		}
		targetsToProcess = []string{""}
	}

	var resolved []AppConfigTarget
	for _, targetName := range targetsToProcess {
		var baseCopy config.AppConfig
		if err := copier.CopyWithOption(&baseCopy, baseConfig, copier.Option{DeepCopy: true}); err != nil {
			return nil, nil, fmt.Errorf("failed to copy config for target resolution: %w", err)
		}

		mergedConfig := baseCopy.MergeWithTarget(baseCopy.Targets[targetName])
		mergedConfig.Normalize()
		if err := mergedConfig.Validate(); err != nil {
			if targetName != "" {
				return nil, nil, fmt.Errorf("validation failed for target '%s': %w", targetName, err)
			}
			return nil, nil, fmt.Errorf("validation failed: %w", err)
		}

		resolved = append(resolved, AppConfigTarget{
			TargetName:        targetName,
			ResolvedAppConfig: *mergedConfig,
		})
	}

	return resolved, &baseConfig, nil
}
