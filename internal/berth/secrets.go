package berth

import (
	"fmt"

	"github.com/larsvik/berth/internal/ui"
	"github.com/spf13/cobra"
)

func SecretsCmd(flags *appCmdFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage secrets stored on the berthd server",
		Long:  "Secrets are encrypted at rest on the server and referenced from app configs, for example as key_secret.",
	}

	cmd.AddCommand(
		secretsListCmd(flags),
		secretsSetCmd(flags),
		secretsDeleteCmd(flags),
	)

	return cmd
}

func secretsListCmd(flags *appCmdFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List secret names",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			client := newClient(flags)
			response, err := client.SecretsList(cmd.Context())
			if err != nil {
				ui.Error("Failed to list secrets: %v", err)
				return
			}
			if len(response.Secrets) == 0 {
				ui.Info("No secrets stored")
				return
			}
			for _, secret := range response.Secrets {
				fmt.Printf("%s  (updated %s)\n", secret.Name, secret.UpdatedAt)
			}
		},
	}
}

func secretsSetCmd(flags *appCmdFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Store a secret",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			client := newClient(flags)
			if err := client.SetSecret(cmd.Context(), args[0], args[1]); err != nil {
				ui.Error("Failed to set secret: %v", err)
				return
			}
			ui.Success("Secret %s stored", args[0])
		},
	}
}

func secretsDeleteCmd(flags *appCmdFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a secret",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			client := newClient(flags)
			if err := client.DeleteSecret(cmd.Context(), args[0]); err != nil {
				ui.Error("Failed to delete secret: %v", err)
				return
			}
			ui.Success("Secret %s deleted", args[0])
		},
	}
}
