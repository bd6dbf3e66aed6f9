package berth

import (
	"github.com/larsvik/berth/internal/config"
	"github.com/spf13/cobra"
)

// appCmdFlags holds the values for all flags shared by app-related commands.
type appCmdFlags struct {
	configPath string
	targets    []string
	all        bool
	serverURL  string
}

func NewRootCmd() *cobra.Command {
	appFlags := &appCmdFlags{}
	resolvedConfigPath := "."

	cmd := &cobra.Command{
		Use:   "berth",
		Short: "berth deploys Node.js applications to your own servers over SSH",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnvFiles()

			if appFlags.configPath != "" {
				resolvedConfigPath = appFlags.configPath
			}
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVarP(&appFlags.serverURL, "server", "s", "", "URL of the berthd server (default: $BERTH_SERVER_URL or "+defaultServerURL+")")

	cmd.AddCommand(
		DeployAppCmd(&resolvedConfigPath, appFlags),
		StatusAppCmd(&resolvedConfigPath, appFlags),
		HistoryCmd(&resolvedConfigPath, appFlags),
		RollbackTargetsCmd(&resolvedConfigPath, appFlags),
		RollbackAppCmd(&resolvedConfigPath, appFlags),
		LogsCmd(appFlags),
		SecretsCmd(appFlags),
		ValidateAppConfigCmd(&resolvedConfigPath, appFlags),
		VersionCmd(appFlags),
	)

	return cmd
}
