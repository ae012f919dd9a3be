// Command schemadag applies and reverts SQL migrations recorded as a
// dependency graph rather than a linear sequence.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/herenow/schemadag/cmd/schemadag/commands"
)

func main() {
	root := &cobra.Command{
		Use:   "schemadag",
		Short: "Dependency-graph SQL migration tool",
	}

	root.PersistentFlags().StringP("store", "s", "migrations", "path to the migration store directory")
	root.PersistentFlags().StringP("db", "d", "", "postgres connection string (postgres://...)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		commands.NewNewCommand(),
		commands.NewApplyCommand(),
		commands.NewRevertCommand(),
		commands.NewTestCommand(),
		commands.NewUpgradeCommand(),
		commands.NewUpgradeListCommand(),
		commands.NewStatusCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
