package berth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/larsvik/berth/internal/appconfigloader"
	"github.com/larsvik/berth/internal/release"
	"github.com/larsvik/berth/internal/ui"
	"github.com/spf13/cobra"
)

const (
	releasePollInterval = 2 * time.Second
	releaseWaitTimeout  = 20 * time.Minute
)

func DeployAppCmd(configPath *string, flags *appCmdFlags) *cobra.Command {
	var noWaitFlag bool

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy an application",
		Long:  "Build, ship and activate an application using a berth configuration file.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			targets, _, err := appconfigloader.Load(*configPath, flags.targets, flags.all)
			if err != nil {
				ui.Error("%v", err)
				return
			}

			sourceRef := detectSourceRef(hooksWorkDir(*configPath))

			var wg sync.WaitGroup
			for _, target := range targets {
				wg.Add(1)
				go func(target appconfigloader.AppConfigTarget) {
					defer wg.Done()
					deployTarget(ctx, flags, target, sourceRef, noWaitFlag, len(targets) > 1)
				}(target)
			}
			wg.Wait()
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file or directory (default: .)")
	cmd.Flags().StringSliceVarP(&flags.targets, "targets", "t", nil, "Deploy to specific targets (comma-separated)")
	cmd.Flags().BoolVarP(&flags.all, "all", "a", false, "Deploy to all targets")
	cmd.Flags().BoolVar(&noWaitFlag, "no-wait", false, "Return immediately without waiting for the release to finish")

	return cmd
}

func deployTarget(ctx context.Context, flags *appCmdFlags, target appconfigloader.AppConfigTarget, sourceRef string, noWait, showTargetName bool) {
	appConfig := target.ResolvedAppConfig

	prefix := ""
	if showTargetName {
		prefix = lipgloss.NewStyle().Bold(true).Foreground(ui.White).Render(fmt.Sprintf("%s ", target.TargetName))
	}
	pui := &ui.PrefixedUI{Prefix: prefix}

	client := newClient(flags)
	response, err := client.Deploy(ctx, appConfig, target.TargetName, sourceRef)
	if err != nil {
		pui.Error("Failed to start release: %v", err)
		return
	}
	pui.Info("Release %s started for %s", response.ReleaseID, appConfig.Name)

	if noWait {
		pui.Info("Check progress with: berth status")
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, releaseWaitTimeout)
	defer cancel()
	rel, err := client.WaitForRelease(waitCtx, response.ReleaseID, releasePollInterval)
	if err != nil {
		pui.Error("%v", err)
		return
	}

	switch rel.Status {
	case release.StatusSucceeded:
		pui.Success("Release %s succeeded", rel.ID)
	case release.StatusRolledBack:
		pui.Warn("Release %s failed (%s); rolled back to %s", rel.ID, rel.Reason, rel.RolledBackTo)
	default:
		pui.Error("Release %s failed: %s", rel.ID, rel.Reason)
		pui.Info("Full logs: berth logs %s", rel.ID)
	}
}

// hooksWorkDir is the directory git commands run in: the config file's
// directory, or the path itself when it already is a directory.
func hooksWorkDir(configPath string) string {
	info, err := os.Stat(configPath)
	if err == nil && info.IsDir() {
		return configPath
	}
	return filepath.Dir(configPath)
}
