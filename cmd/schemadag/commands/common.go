// Package commands implements the cobra subcommands of schemadag.
// Grounded on the teacher's cmd/pebble-migrate/commands/common.go:
// persistent-flag plumbing, resource helpers, and uniform error
// formatting.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/herenow/schemadag/internal/backend"
	"github.com/herenow/schemadag/internal/backend/postgres"
	"github.com/herenow/schemadag/internal/coordinator"
	"github.com/herenow/schemadag/internal/schema"
	"github.com/herenow/schemadag/internal/store"
)

// globalConfig holds the values of the root command's persistent flags.
type globalConfig struct {
	storePath string
	dsn       string
	verbose   bool
}

func getGlobalConfig(cmd *cobra.Command) (*globalConfig, error) {
	storePath, err := cmd.Flags().GetString("store")
	if err != nil {
		return nil, err
	}
	dsn, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, err
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}
	return &globalConfig{storePath: storePath, dsn: dsn, verbose: verbose}, nil
}

// openCoordinator builds the store, opens the postgres backend, and
// returns a ready Coordinator plus a closer the caller must defer.
func openCoordinator(cmd *cobra.Command) (*coordinator.Coordinator, func() error, error) {
	cfg, err := getGlobalConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cfg.dsn == "" {
		return nil, nil, schema.NewUsageError("--db is required")
	}

	st := store.New(cfg.storePath)

	be, err := postgres.Open(cfg.dsn)
	if err != nil {
		return nil, nil, err
	}

	logger := schema.Logger(schema.NewDefaultLogger(cfg.verbose))
	co := coordinator.New(st, be, logger)

	closer := func() error {
		return closeBackend(be)
	}
	return co, closer, nil
}

func closeBackend(be backend.Backend) error {
	return be.Close()
}

// run wraps a subcommand body, reformatting any SqlError uniformly before
// handing it back to cobra (which prints to stderr and sets exit code 1).
func run(fn func() error) error {
	if err := fn(); err != nil {
		return coordinator.FormatSQLError(err)
	}
	return nil
}

func printSuccess(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}
