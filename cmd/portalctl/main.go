package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridianhq/portal-backend/cmd/portalctl/commands"
	"github.com/meridianhq/portal-backend/internal/app"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var debug bool

	// Filled in once flags are parsed
	a := &app.App{}

	rootCmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Portal backend operations - provision, migrate and inspect",
		Long: `portalctl runs the portal backend's operational tasks from the command
line: database provisioning, schema migrations and user directory queries.

Configuration is read from the environment (and an optional .env file),
exactly as the deployed functions read it.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				os.Setenv("LOG_LEVEL", "DEBUG")
			}
			*a = *app.New()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewDBSetupCommand(a),
		commands.NewMigrateCommand(a),
		commands.NewUserCommand(a),
	)

	return rootCmd.Execute()
}
