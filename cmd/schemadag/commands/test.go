package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// NewTestCommand applies then reverts a migration's plan inside a
// transaction that is always rolled back, as a round-trip safety check.
func NewTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test <migration_id>",
		Short: "Apply and revert a migration as a round-trip check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func() error {
				co, closer, err := openCoordinator(cmd)
				if err != nil {
					return err
				}
				defer closer()
				return co.Test(context.Background(), args[0])
			})
		},
	}
}
