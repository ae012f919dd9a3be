package schema

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// UsageError signals a bad verb or missing positional arguments at the CLI
// boundary.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// NewUsageError constructs a UsageError with a stack trace attached.
func NewUsageError(format string, args ...interface{}) error {
	return errors.WithStack(&UsageError{Message: fmt.Sprintf(format, args...)})
}

// ParseError reports an unreadable or malformed migration file.
type ParseError struct {
	ID     string
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("migration %q: %s", e.ID, e.Detail)
}

// NewParseError constructs a ParseError with a stack trace attached.
func NewParseError(id, detail string) error {
	return errors.WithStack(&ParseError{ID: id, Detail: detail})
}

// DuplicateIDError reports two files resolving to the same migration id.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate migration id %q", e.ID)
}

// NewDuplicateIDError constructs a DuplicateIDError with a stack trace.
func NewDuplicateIDError(id string) error {
	return errors.WithStack(&DuplicateIDError{ID: id})
}

// UnresolvedDependencyError reports a migration depending on an id that
// does not exist in the loaded set.
type UnresolvedDependencyError struct {
	ID  string
	Dep string
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("migration %q depends on unresolved migration %q", e.ID, e.Dep)
}

// NewUnresolvedDependencyError constructs an UnresolvedDependencyError.
func NewUnresolvedDependencyError(id, dep string) error {
	return errors.WithStack(&UnresolvedDependencyError{ID: id, Dep: dep})
}

// CycleError reports a dependency cycle found while building the graph.
// Path begins and ends at the same migration id.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	msg := "dependency cycle detected:"
	for i, id := range e.Path {
		if i > 0 {
			msg += " ->"
		}
		msg += " " + id
	}
	return msg
}

// NewCycleError constructs a CycleError with a stack trace.
func NewCycleError(path []string) error {
	return errors.WithStack(&CycleError{Path: path})
}

// NotFoundError reports a migration id absent from the loaded set.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("migration %q not found", e.ID)
}

// NewNotFoundError constructs a NotFoundError with a stack trace.
func NewNotFoundError(id string) error {
	return errors.WithStack(&NotFoundError{ID: id})
}

// SQLError wraps any failure surfaced by the Backend.
type SQLError struct {
	Message string
	cause   error
}

func (e *SQLError) Error() string { return e.Message }
func (e *SQLError) Unwrap() error { return e.cause }

// NewSQLError wraps cause as a SQLError, attaching a stack trace.
func NewSQLError(cause error) error {
	return errors.WithStack(&SQLError{Message: cause.Error(), cause: cause})
}

// AlreadyExistsError reports `new` targeting a migration id that already
// has a file in the store.
type AlreadyExistsError struct {
	ID string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("migration %q already exists", e.ID)
}

// NewAlreadyExistsError constructs an AlreadyExistsError with a stack trace.
func NewAlreadyExistsError(id string) error {
	return errors.WithStack(&AlreadyExistsError{ID: id})
}
