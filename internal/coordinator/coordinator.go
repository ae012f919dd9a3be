// Package coordinator is the heart of the system: it loads the migration
// set, builds its dependency graph, opens a database session, and drives
// the six verbs against the Backend, handling transactional discipline and
// progress reporting. Grounded on the teacher's MigrationEngine.ExecutePlan
// dispatch (engine.go) generalized from Pebble key/value effects to SQL
// transactions, and on jjeffery-migration's transact() Begin/Commit/
// Rollback pattern.
package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/herenow/schemadag/internal/backend"
	"github.com/herenow/schemadag/internal/graph"
	"github.com/herenow/schemadag/internal/schema"
	"github.com/herenow/schemadag/internal/store"
)

// Coordinator wires the store, graph and backend together for a single
// CLI invocation.
type Coordinator struct {
	store   *store.Store
	backend backend.Backend
	logger  schema.Logger
}

// New returns a Coordinator ready to drive operations.
func New(st *store.Store, be backend.Backend, logger schema.Logger) *Coordinator {
	if logger == nil {
		logger = &schema.NopLogger{}
	}
	return &Coordinator{store: st, backend: be, logger: logger}
}

// StatusReport is the supplemental introspection result for the `status`
// verb, derived live from the ledger and the graph rather than from a
// persisted status field.
type StatusReport struct {
	Installed int
	Pending   int
	PendingIDs []string
	Roots      []string
}

// prepare loads the migration set, builds its graph, bootstraps the
// ledger in its own eagerly-committed transaction, and opens a fresh
// session for the caller's own operation.
func (c *Coordinator) prepare(ctx context.Context) (schema.Set, *graph.Graph, backend.Session, error) {
	ms, err := c.store.LoadAll()
	if err != nil {
		return nil, nil, nil, err
	}
	c.logger.Debugf("loaded %d migration(s) from store", len(ms))

	g, err := graph.Build(ms)
	if err != nil {
		return nil, nil, nil, err
	}
	c.logger.Debugf("built dependency graph with %d node(s), roots: %v", len(g.Nodes()), g.Roots())

	boot, err := c.backend.Begin(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := boot.Bootstrap(ctx); err != nil {
		boot.Rollback()
		return nil, nil, nil, err
	}
	if err := boot.Commit(); err != nil {
		return nil, nil, nil, err
	}
	c.logger.Debugf("bootstrap committed")

	sess, err := c.backend.Begin(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return ms, g, sess, nil
}

// pendingPlan computes the migrations in ms not yet in installed, ordered
// so each id's dependencies precede it — shared by Upgrade and ListPending.
func pendingPlan(ms schema.Set, g *graph.Graph, installed map[string]bool) []string {
	var candidates []string
	for _, id := range ms.IDs() {
		if !installed[id] {
			candidates = append(candidates, id)
		}
	}
	return g.TopologicalOrder(candidates)
}

// Upgrade applies every migration in the store not yet installed, in
// dependency order, inside a single transaction.
func (c *Coordinator) Upgrade(ctx context.Context) error {
	ms, g, sess, err := c.prepare(ctx)
	if err != nil {
		return err
	}

	installed, err := sess.ListInstalled(ctx)
	if err != nil {
		sess.Rollback()
		return err
	}

	required := pendingPlan(ms, g, installed)
	c.logger.Debugf("upgrade plan: %v", required)
	if len(required) == 0 {
		sess.Rollback()
		c.logger.Printf("up to date")
		return nil
	}

	for _, id := range required {
		if err := c.applyOne(ctx, sess, ms[id]); err != nil {
			sess.Rollback()
			return err
		}
	}
	if err := sess.Commit(); err != nil {
		return err
	}
	return nil
}

// Apply installs target and every migration it transitively depends on
// that is not already installed.
func (c *Coordinator) Apply(ctx context.Context, target string) error {
	ms, g, sess, err := c.prepare(ctx)
	if err != nil {
		return err
	}
	if _, ok := ms[target]; !ok {
		sess.Rollback()
		return schema.NewNotFoundError(target)
	}

	installed, err := sess.ListInstalled(ctx)
	if err != nil {
		sess.Rollback()
		return err
	}

	ancestors, err := g.Ancestors(target)
	if err != nil {
		sess.Rollback()
		return err
	}
	plan := filterInstalled(append(append([]string(nil), ancestors...), target), installed, ms)
	c.logger.Debugf("apply plan for %s: %v", target, plan)

	if len(plan) == 0 {
		sess.Rollback()
		c.logger.Printf("already installed")
		return nil
	}

	for _, id := range plan {
		if err := c.applyOne(ctx, sess, ms[id]); err != nil {
			sess.Rollback()
			return err
		}
	}
	return sess.Commit()
}

// Revert removes target and every migration that transitively depends on
// it, in leaves-first order, that is currently installed.
func (c *Coordinator) Revert(ctx context.Context, target string) error {
	ms, g, sess, err := c.prepare(ctx)
	if err != nil {
		return err
	}
	if _, ok := ms[target]; !ok {
		sess.Rollback()
		return schema.NewNotFoundError(target)
	}

	installed, err := sess.ListInstalled(ctx)
	if err != nil {
		sess.Rollback()
		return err
	}

	descendants, err := g.Descendants(target)
	if err != nil {
		sess.Rollback()
		return err
	}
	plan := keepInstalled(append(append([]string(nil), descendants...), target), installed)
	c.logger.Debugf("revert plan for %s: %v", target, plan)

	if len(plan) == 0 {
		sess.Rollback()
		c.logger.Printf("not installed")
		return nil
	}

	for _, id := range plan {
		m, ok := ms[id]
		if !ok {
			sess.Rollback()
			return schema.NewNotFoundError(id)
		}
		if err := c.revertOne(ctx, sess, m); err != nil {
			sess.Rollback()
			return err
		}
	}
	return sess.Commit()
}

// Test applies target's plan, then reverts exactly that list in reverse,
// and unconditionally rolls back so the database ends exactly as it
// began. This is the primary round-trip safety check.
func (c *Coordinator) Test(ctx context.Context, target string) error {
	ms, g, sess, err := c.prepare(ctx)
	if err != nil {
		return err
	}
	defer sess.Rollback()

	if _, ok := ms[target]; !ok {
		return schema.NewNotFoundError(target)
	}

	installed, err := sess.ListInstalled(ctx)
	if err != nil {
		return err
	}

	ancestors, err := g.Ancestors(target)
	if err != nil {
		return err
	}
	plan := filterInstalled(append(append([]string(nil), ancestors...), target), installed, ms)
	c.logger.Debugf("test plan for %s: %v", target, plan)

	var applied []string
	for _, id := range plan {
		if err := c.applyOne(ctx, sess, ms[id]); err != nil {
			return err
		}
		applied = append(applied, id)
	}

	for i := len(applied) - 1; i >= 0; i-- {
		m := ms[applied[i]]
		if !m.HasRevert() {
			return schema.NewUsageError("migration %q has no Revert script, cannot be tested", m.ID)
		}
		if err := c.revertOne(ctx, sess, m); err != nil {
			return err
		}
	}

	c.logger.Debugf("test round-trip applied and reverted %d migration(s): %v", len(applied), applied)
	c.logger.Printf("Successfully tested migrations.")
	return nil
}

// ListPending reports, without effecting anything, the migrations Upgrade
// would apply.
func (c *Coordinator) ListPending(ctx context.Context) ([]string, error) {
	ms, g, sess, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	installed, err := sess.ListInstalled(ctx)
	if err != nil {
		return nil, err
	}
	pending := pendingPlan(ms, g, installed)
	c.logger.Debugf("pending plan: %v", pending)
	return pending, nil
}

// New delegates directly to the store.
func (c *Coordinator) New(id string) error {
	return c.store.CreateNew(id)
}

// Status reports installed/pending counts derived live from the ledger
// and the graph.
func (c *Coordinator) Status(ctx context.Context) (*StatusReport, error) {
	ms, g, sess, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	installed, err := sess.ListInstalled(ctx)
	if err != nil {
		return nil, err
	}
	pending := pendingPlan(ms, g, installed)

	return &StatusReport{
		Installed:  len(installed),
		Pending:    len(pending),
		PendingIDs: pending,
		Roots:      g.Roots(),
	}, nil
}

func (c *Coordinator) applyOne(ctx context.Context, sess backend.Session, m *schema.Migration) error {
	c.logger.Printf("Applying: %s...", m.ID)
	if err := sess.ApplyMigration(ctx, m); err != nil {
		return err
	}
	c.logger.Printf("Applying: %s... done.", m.ID)
	return nil
}

func (c *Coordinator) revertOne(ctx context.Context, sess backend.Session, m *schema.Migration) error {
	if !m.HasRevert() {
		return schema.NewUsageError("migration %q has no Revert script", m.ID)
	}
	c.logger.Printf("Reverting: %s...", m.ID)
	if err := sess.RevertMigration(ctx, m); err != nil {
		return err
	}
	c.logger.Printf("Reverting: %s... done.", m.ID)
	return nil
}

// filterInstalled keeps ids (in order, de-duplicated) that are present in
// ms and not yet installed.
func filterInstalled(ids []string, installed map[string]bool, ms schema.Set) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if seen[id] || installed[id] {
			continue
		}
		if _, ok := ms[id]; !ok {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// keepInstalled keeps ids (in order, de-duplicated) that are currently
// installed.
func keepInstalled(ids []string, installed map[string]bool) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if seen[id] || !installed[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// FormatSQLError matches the CLI shell's uniform reformatting of backend
// failures: "A database error occurred: <msg>".
func FormatSQLError(err error) error {
	var sqlErr *schema.SQLError
	if errors.As(err, &sqlErr) {
		return fmt.Errorf("A database error occurred: %s", sqlErr.Message)
	}
	return err
}
