package berth

import (
	"context"
	"fmt"

	"github.com/larsvik/berth/internal/appconfigloader"
	"github.com/larsvik/berth/internal/release"
	"github.com/larsvik/berth/internal/ui"
	"github.com/spf13/cobra"
)

func RollbackAppCmd(configPath *string, flags *appCmdFlags) *cobra.Command {
	var noWaitFlag bool

	cmd := &cobra.Command{
		Use:   "rollback [release-id]",
		Short: "Roll an application back to an earlier release",
		Long:  "Redeploy an earlier release's artifact. Without a release ID the most recent succeeded release before the current one is used.",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			toReleaseID := ""
			if len(args) > 0 {
				toReleaseID = args[0]
			}

			targets, _, err := appconfigloader.Load(*configPath, flags.targets, flags.all)
			if err != nil {
				ui.Error("%v", err)
				return
			}
			if len(targets) != 1 {
				ui.Error("Rollback operates on one target at a time; use --targets to pick one")
				return
			}
			target := targets[0]

			client := newClient(flags)
			response, err := client.Rollback(ctx, target.ResolvedAppConfig, target.TargetName, toReleaseID)
			if err != nil {
				ui.Error("Failed to start rollback: %v", err)
				return
			}
			ui.Info("Rollback release %s started", response.ReleaseID)

			if noWaitFlag {
				return
			}

			waitCtx, cancel := context.WithTimeout(ctx, releaseWaitTimeout)
			defer cancel()
			rel, err := client.WaitForRelease(waitCtx, response.ReleaseID, releasePollInterval)
			if err != nil {
				ui.Error("%v", err)
				return
			}

			if rel.Status == release.StatusSucceeded {
				ui.Success("Rolled back to release %s", rel.RolledBackTo)
			} else {
				ui.Error("Rollback release %s ended in %s: %s", rel.ID, rel.Status, rel.Reason)
			}
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file or directory (default: .)")
	cmd.Flags().StringSliceVarP(&flags.targets, "targets", "t", nil, "Target to roll back")
	cmd.Flags().BoolVar(&noWaitFlag, "no-wait", false, "Return immediately without waiting for the rollback to finish")

	return cmd
}

func RollbackTargetsCmd(configPath *string, flags *appCmdFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback-targets",
		Short: "List releases an application can be rolled back to",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			targets, _, err := appconfigloader.Load(*configPath, flags.targets, flags.all)
			if err != nil {
				ui.Error("%v", err)
				return
			}
			if len(targets) != 1 {
				ui.Error("Pick one target with --targets")
				return
			}
			target := targets[0]

			client := newClient(flags)
			response, err := client.RollbackTargets(ctx, target.ResolvedAppConfig.Name, target.TargetName)
			if err != nil {
				ui.Error("Failed to fetch rollback targets: %v", err)
				return
			}
			if len(response.Targets) == 0 {
				ui.Info("No earlier releases to roll back to")
				return
			}

			for _, rel := range response.Targets {
				line := describeRelease(rel)
				if rel.SourceRef != "" {
					line += fmt.Sprintf("  [%s]", shortRef(rel.SourceRef))
				}
				fmt.Println(line)
			}
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file or directory (default: .)")
	cmd.Flags().StringSliceVarP(&flags.targets, "targets", "t", nil, "Target to inspect")

	return cmd
}
