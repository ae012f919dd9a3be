// Package store reads and writes the on-disk representation of
// migrations: one file per migration, named <id>.mig inside the store
// directory.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/herenow/schemadag/internal/schema"
)

// Extension is the fixed suffix every migration file carries.
const Extension = ".mig"

// Store owns the migration files under a directory on disk.
type Store struct {
	root string
}

// New returns a Store rooted at dir. dir is not created or validated here;
// that happens on first use (LoadAll tolerates a missing directory as an
// empty set, CreateNew creates the directory if needed).
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the store's directory.
func (s *Store) Root() string { return s.root }

// Resolve returns the path a migration with the given id would live at.
// It is pure: it does not check the file exists.
func (s *Store) Resolve(id string) string {
	return filepath.Join(s.root, id+Extension)
}

// LoadAll walks the store directory, parses each migration file, and
// returns the complete id -> Migration mapping. It fails with a
// ParseError, DuplicateIDError, or UnresolvedDependencyError (the latter
// checked only after every file has parsed successfully).
func (s *Store) LoadAll() (schema.Set, error) {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return schema.Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store directory %s: %w", s.root, err)
	}

	ms := make(schema.Set, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Extension {
			continue
		}

		id := entry.Name()[:len(entry.Name())-len(Extension)]
		path := filepath.Join(s.root, entry.Name())

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading migration file %s: %w", path, err)
		}

		m, err := parseMigration(id, raw)
		if err != nil {
			return nil, err
		}

		if _, exists := ms[id]; exists {
			return nil, schema.NewDuplicateIDError(id)
		}
		ms[id] = m
	}

	if err := ValidateAll(ms); err != nil {
		return nil, err
	}

	for id, m := range ms {
		for _, dep := range m.Depends {
			if dep == schema.BootstrapID {
				continue
			}
			if _, ok := ms[dep]; !ok {
				return nil, schema.NewUnresolvedDependencyError(id, dep)
			}
		}
	}

	return ms, nil
}

// ValidateAll runs the duplicate-id and naming-convention checks the
// teacher's DiscoveryService.ValidateMigrations performs before a
// migration set is ever handed to the graph, so those failures surface
// as StoreErrors distinct from the graph's own cycle/dependency errors.
// LoadAll calls this itself; it is also exported so a hand-assembled
// schema.Set (as in tests) can be checked the same way.
//
// Naming-convention failures are keyed by the map key (the file the
// offending entry loaded from, when called from LoadAll); the duplicate
// check instead compares each Migration's own ID field, which catches
// two differently-named files that both declare the same logical
// migration id internally.
func ValidateAll(ms schema.Set) error {
	seen := make(map[string]bool, len(ms))
	for _, id := range ms.IDs() {
		if !schema.ValidID(id) {
			return schema.NewParseError(id, "migration id must match <timestamp>_<slug>")
		}
		m := ms[id]
		if seen[m.ID] {
			return schema.NewDuplicateIDError(m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

// CreateNew writes a template migration file for id: empty Depends, empty
// Apply/Revert, current timestamp, a placeholder description. It fails if
// a file already exists at that path or id is syntactically invalid.
func (s *Store) CreateNew(id string) error {
	if !schema.ValidID(id) {
		return schema.NewUsageError("migration id %q must match <timestamp>_<slug>", id)
	}

	path := s.Resolve(id)
	if _, err := os.Stat(path); err == nil {
		return schema.NewAlreadyExistsError(id)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking for existing migration file %s: %w", path, err)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating store directory %s: %w", s.root, err)
	}

	template := renderTemplate(id, time.Now().UTC())
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("writing migration file %s: %w", path, err)
	}
	return nil
}
