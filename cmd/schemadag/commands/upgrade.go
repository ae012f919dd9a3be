package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// NewUpgradeCommand applies every pending migration in dependency order.
func NewUpgradeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func() error {
				co, closer, err := openCoordinator(cmd)
				if err != nil {
					return err
				}
				defer closer()
				return co.Upgrade(context.Background())
			})
		},
	}
}

// NewUpgradeListCommand prints the migrations Upgrade would apply, without
// effecting anything.
func NewUpgradeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade-list",
		Short: "List pending migrations without applying them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func() error {
				co, closer, err := openCoordinator(cmd)
				if err != nil {
					return err
				}
				defer closer()

				pending, err := co.ListPending(context.Background())
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					printSuccess("up to date")
					return nil
				}
				for _, id := range pending {
					printSuccess("%s", id)
				}
				return nil
			})
		},
	}
}
