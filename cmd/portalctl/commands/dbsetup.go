package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meridianhq/portal-backend/internal/app"
	"github.com/meridianhq/portal-backend/internal/database"
)

func NewDBSetupCommand(a *app.App) *cobra.Command {
	var (
		action   string
		dbName   string
		username string
		encoding string
	)

	cmd := &cobra.Command{
		Use:   "db-setup [event-json]",
		Short: "Provision database roles and schemas",
		Long: `Run a provisioning action against the database cluster using the master
credentials.

The action is given either through flags or as a single JSON event argument,
the same shape the deployed function receives.

Examples:
  # Create the application role and database
  portalctl db-setup --action create

  # Drop a database by name
  portalctl db-setup --action drop-db --db-name example

  # Raw event, as delivered by the deployment pipeline
  portalctl db-setup '{"action": "create", "encoding": "de_DE.UTF8"}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := database.Request{
				Action:   action,
				DBName:   dbName,
				Username: username,
				Encoding: encoding,
			}
			if len(args) == 1 {
				if err := json.Unmarshal([]byte(args[0]), &req); err != nil {
					return fmt.Errorf("failed to parse event: %w", err)
				}
			}

			result := a.Provisioner().Apply(cmd.Context(), req)
			if err := printJSON(result); err != nil {
				return err
			}
			if !result.Success {
				return errors.New(result.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "Provisioning action: create, drop-db or drop-user")
	cmd.Flags().StringVar(&dbName, "db-name", "", "Database name (defaults to the application database)")
	cmd.Flags().StringVar(&username, "username", "", "Role name for drop-user")
	cmd.Flags().StringVar(&encoding, "encoding", "", "Collation for create (defaults to en_US.UTF8)")

	return cmd
}
