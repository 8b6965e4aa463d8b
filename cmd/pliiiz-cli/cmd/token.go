package cmd

import (
	"fmt"
	"time"

	"github.com/pliiiz/pliiiz/internal/auth"
	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/spf13/cobra"
)

var (
	tokenName string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin service token",
	Long: `Signs a bearer token with AUTH_TOKEN_SECRET whose subject is "service:<name>".
The API treats it as an administrator, so it can call the /admin routes and
the admin RPC procedures. No database connection is needed.

Examples:
  pliiiz-cli token --name cron
  pliiiz-cli token --name backfill --ttl 1h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens, err := auth.NewTokens(config.New().GetAuthTokenSecret(), tokenTTL)
		if err != nil {
			return err
		}
		signed, exp, err := tokens.IssueFor(serviceSubject(tokenName), domain.RoleAdmin, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), signed)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.UTC().Format(time.RFC3339))
		return nil
	},
}

func serviceSubject(name string) string {
	if name == "" {
		return ""
	}
	return "service:" + name
}

func init() {
	tokenCmd.Flags().StringVar(&tokenName, "name", "cli", "Service name recorded in the token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
