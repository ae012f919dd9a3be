package commands

import (
	"github.com/spf13/cobra"

	"github.com/herenow/schemadag/internal/store"
)

// NewNewCommand creates an empty migration file template in the store.
func NewNewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "new <migration_id>",
		Short: "Create an empty migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func() error {
				cfg, err := getGlobalConfig(cmd)
				if err != nil {
					return err
				}
				st := store.New(cfg.storePath)
				if err := st.CreateNew(args[0]); err != nil {
					return err
				}
				printSuccess("created %s", st.Resolve(args[0]))
				return nil
			})
		},
	}
}
