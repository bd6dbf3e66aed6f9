package berth

import (
	"github.com/larsvik/berth/internal/constants"
	"github.com/larsvik/berth/internal/ui"
	"github.com/spf13/cobra"
)

func VersionCmd(flags *appCmdFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show client and server versions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			ui.Info("berth %s", constants.Version)

			client := newClient(flags)
			response, err := client.Version(cmd.Context())
			if err != nil {
				ui.Warn("berthd unreachable at %s", serverURL(flags))
				return
			}
			ui.Info("berthd %s", response.Version)
		},
	}
}
