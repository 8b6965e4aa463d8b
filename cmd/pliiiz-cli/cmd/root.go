package cmd

import (
	"context"
	"os"

	"github.com/pliiiz/pliiiz/internal/app"
	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pliiiz-cli",
	Short: "Pliiiz administration tool",
	Long: `pliiiz-cli runs maintenance tasks against a Pliiiz deployment.

Available commands:
  version    Print the CLI version
  token      Mint a service token for the admin endpoints
  resync     Rebuild contact rows from accepted requests
  regen      Process one batch of queued image regeneration jobs
  jobs       List image regeneration jobs

Configuration is read from the environment (and .env) exactly like the server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.New()
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withDependencies connects to the database, runs fn and closes everything.
func withDependencies(ctx context.Context, fn func(d *app.Dependencies) error) error {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		return err
	}
	d, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = d.Close(context.WithoutCancel(ctx))
	}()
	return fn(d)
}
