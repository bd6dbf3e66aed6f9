package berth

import (
	"github.com/larsvik/berth/internal/appconfigloader"
	"github.com/larsvik/berth/internal/ui"
	"github.com/spf13/cobra"
)

func ValidateAppConfigCmd(configPath *string, flags *appCmdFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a berth configuration file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			resolved, baseConfig, err := appconfigloader.Load(*configPath, nil, true)
			if err != nil {
				// Single-target configs reject --all; load them directly.
				resolved, baseConfig, err = appconfigloader.Load(*configPath, nil, false)
			}
			if err != nil {
				ui.Error("%v", err)
				return
			}

			ui.Success("Configuration for %s is valid", baseConfig.Name)
			for _, target := range resolved {
				if target.TargetName != "" {
					ui.Info("  target %s -> %s@%s:%s", target.TargetName, target.ResolvedAppConfig.User, target.ResolvedAppConfig.Host, target.ResolvedAppConfig.DeployPath)
				} else {
					ui.Info("  %s@%s:%s", target.ResolvedAppConfig.User, target.ResolvedAppConfig.Host, target.ResolvedAppConfig.DeployPath)
				}
			}
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file or directory (default: .)")

	return cmd
}
