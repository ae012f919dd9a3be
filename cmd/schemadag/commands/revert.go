package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRevertCommand removes one migration and everything that depends on it.
func NewRevertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revert <migration_id>",
		Short: "Revert a migration and its dependents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func() error {
				co, closer, err := openCoordinator(cmd)
				if err != nil {
					return err
				}
				defer closer()
				return co.Revert(context.Background(), args[0])
			})
		},
	}
}
