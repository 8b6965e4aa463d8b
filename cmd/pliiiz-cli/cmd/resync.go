package cmd

import (
	"fmt"

	"github.com/pliiiz/pliiiz/internal/app"
	"github.com/pliiiz/pliiiz/internal/modules/contacts"
	"github.com/pliiiz/pliiiz/internal/pubsub"
	"github.com/spf13/cobra"
)

var resyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Rebuild contact rows from accepted contact requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDependencies(cmd.Context(), func(d *app.Dependencies) error {
			svc := contacts.NewService(contacts.Deps{
				Users:      d.Repos.Users,
				Profiles:   d.Repos.Profiles,
				Contacts:   d.Repos.Contacts,
				Publisher:  pubsub.Publisher(d.Bus),
				Email:      d.Email,
				AppBaseURL: d.Config.GetAppBaseURL(),
			})
			res, err := svc.Resync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, removed %d\n", res.Created, res.Removed)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(resyncCmd)
}
