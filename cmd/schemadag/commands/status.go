package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// NewStatusCommand reports installed/pending counts and the graph's root
// migrations, derived live from the ledger and the graph rather than from
// persisted dirty/migrating state, which has no analogue over a
// database/sql backend's transactional guarantees.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report installed and pending migration counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func() error {
				co, closer, err := openCoordinator(cmd)
				if err != nil {
					return err
				}
				defer closer()

				report, err := co.Status(context.Background())
				if err != nil {
					return err
				}
				printSuccess("installed: %d", report.Installed)
				printSuccess("pending:   %d", report.Pending)
				for _, id := range report.PendingIDs {
					printSuccess("  %s", id)
				}
				printSuccess("roots:     %d", len(report.Roots))
				for _, id := range report.Roots {
					printSuccess("  %s", id)
				}
				return nil
			})
		},
	}
}
