package berth

import (
	"fmt"
	"time"

	"github.com/larsvik/berth/internal/config"
	"github.com/larsvik/berth/internal/ui"
	"github.com/spf13/cobra"
)

func StatusAppCmd(configPath *string, flags *appCmdFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest release for an application",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			appConfig, err := config.LoadAppConfig(*configPath)
			if err != nil {
				ui.Error("Failed to load config: %v", err)
				return
			}

			client := newClient(flags)
			response, err := client.ReleaseHistory(ctx, appConfig.Name, 1)
			if err != nil {
				ui.Error("Failed to fetch status: %v", err)
				return
			}
			if len(response.Releases) == 0 {
				ui.Info("No releases found for %s", appConfig.Name)
				return
			}

			rel := response.Releases[0]
			ui.Info("App:      %s", rel.AppName)
			if rel.TargetName != "" {
				ui.Info("Target:   %s", rel.TargetName)
			}
			ui.Info("Release:  %s", describeRelease(rel))
			if rel.SourceRef != "" {
				ui.Info("Source:   %s", shortRef(rel.SourceRef))
			}
			ui.Info("Started:  %s", rel.CreatedAt.Local().Format(time.RFC822))
			if !rel.FinishedAt.IsZero() {
				ui.Info("Duration: %s", rel.FinishedAt.Sub(rel.CreatedAt).Round(time.Second))
			}
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file or directory (default: .)")

	return cmd
}

func HistoryCmd(configPath *string, flags *appCmdFlags) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show release history for an application",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			appConfig, err := config.LoadAppConfig(*configPath)
			if err != nil {
				ui.Error("Failed to load config: %v", err)
				return
			}

			client := newClient(flags)
			response, err := client.ReleaseHistory(ctx, appConfig.Name, limitFlag)
			if err != nil {
				ui.Error("Failed to fetch history: %v", err)
				return
			}
			if len(response.Releases) == 0 {
				ui.Info("No releases found for %s", appConfig.Name)
				return
			}

			for _, rel := range response.Releases {
				line := fmt.Sprintf("%s  %-15s  %s", rel.CreatedAt.Local().Format("2006-01-02 15:04"), rel.TargetName, describeRelease(rel))
				if rel.SourceRef != "" {
					line += fmt.Sprintf("  [%s]", shortRef(rel.SourceRef))
				}
				fmt.Println(line)
			}
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file or directory (default: .)")
	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Maximum number of releases to show")

	return cmd
}
