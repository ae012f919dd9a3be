package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// NewApplyCommand installs one migration and everything it depends on.
func NewApplyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <migration_id>",
		Short: "Apply a migration and its dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func() error {
				co, closer, err := openCoordinator(cmd)
				if err != nil {
					return err
				}
				defer closer()
				return co.Apply(context.Background(), args[0])
			})
		},
	}
}
