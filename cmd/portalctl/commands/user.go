package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meridianhq/portal-backend/internal/app"
	"github.com/meridianhq/portal-backend/internal/directory"
)

func NewUserCommand(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Inspect and maintain the user directory",
	}

	cmd.AddCommand(
		newUserGetCommand(a),
		newUserSyncCommand(a),
		newUserDeleteCommand(a),
	)
	return cmd
}

func newUserGetCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <user-name>",
		Short: "Show a user's projected profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.Directory().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newUserSyncCommand(a *app.App) *cobra.Command {
	var attrs directory.Attributes

	cmd := &cobra.Command{
		Use:   "sync <user-name>",
		Short: "Create or update a user from its profile attributes",
		Long: `Apply the same create-or-update step the identity-provider hook runs on
sign-up and sign-in.

Examples:
  portalctl user sync jdoe --email jdoe@example.com --name "Jane Doe"
  portalctl user sync jdoe --email jdoe@example.com --family-name Doe --given-name Jane`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Directory().Upsert(cmd.Context(), args[0], attrs); err != nil {
				return err
			}
			fmt.Printf("user '%s' synced\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&attrs.Email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&attrs.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&attrs.FamilyName, "family-name", "", "Family name, used when no display name is given")
	cmd.Flags().StringVar(&attrs.GivenName, "given-name", "", "Given name, used when no display name is given")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newUserDeleteCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-name>",
		Short: "Remove a user from the directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Directory().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("user '%s' deleted\n", args[0])
			return nil
		},
	}
}
