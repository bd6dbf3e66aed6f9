package berth

import (
	"fmt"

	"github.com/larsvik/berth/internal/ui"
	"github.com/spf13/cobra"
)

func LogsCmd(flags *appCmdFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logs <release-id>",
		Short: "Show the full log of a release",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			client := newClient(flags)
			logs, err := client.ReleaseLogs(cmd.Context(), args[0])
			if err != nil {
				ui.Error("Failed to fetch logs: %v", err)
				return
			}
			fmt.Print(logs)
		},
	}
}
