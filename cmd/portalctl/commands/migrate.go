package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/meridianhq/portal-backend/internal/app"
)

func NewMigrateCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Upgrade the application database schema to the latest embedded version.

Safe to run repeatedly, already applied migrations are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := a.Migrations().Run(cmd.Context())
			if err := printJSON(result); err != nil {
				return err
			}
			if !result.Success {
				return errors.New(result.Message)
			}
			return nil
		},
	}
}
