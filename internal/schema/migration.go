// Package schema holds the core domain types shared by the store, graph,
// backend and coordinator: the Migration itself, the set it belongs to,
// and the error vocabulary the rest of the tool propagates.
package schema

import (
	"regexp"
	"sort"
	"time"
)

// BootstrapID is the fixed id of the hard-coded internal migration that
// creates the ledger table. It is never loaded from the store.
const BootstrapID = "root"

// idPattern is the naming convention every user-authored migration id
// must satisfy: a unix-timestamp prefix plus a lowercase slug.
var idPattern = regexp.MustCompile(`^[0-9]+_[a-z0-9_]+$`)

// ValidID reports whether id follows the <timestamp>_<slug> convention.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Migration is the fundamental unit: a named, dependency-bearing pair of
// forward/backward SQL scripts.
type Migration struct {
	ID          string
	Depends     []string
	Apply       string
	Revert      string // empty means the migration is one-way
	Description string
	Created     time.Time
}

// HasRevert reports whether the migration declares backward SQL.
func (m *Migration) HasRevert() bool {
	return m.Revert != ""
}

// Set is the id -> Migration mapping loaded once per invocation from the
// store. It is not modified after store.LoadAll has filled it.
type Set map[string]*Migration

// IDs returns the set's migration ids in lexicographic order.
func (s Set) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
