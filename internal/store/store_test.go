package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/herenow/schemadag/internal/schema"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
}

func TestLoadAllMissingDirectory(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "does-not-exist"))
	ms, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll on missing dir: %v", err)
	}
	if len(ms) != 0 {
		t.Fatalf("expected empty set, got %d", len(ms))
	}
}

func TestLoadAllValidFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1700000000_add_users.mig", ""+
		"Description: add users table\n"+
		"Created: 2023-11-14T22:13:20Z\n"+
		"Depends: []\n"+
		"Apply: |\n"+
		"  CREATE TABLE users (id SERIAL PRIMARY KEY);\n"+
		"Revert: |\n"+
		"  DROP TABLE users;\n")

	s := New(dir)
	ms, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	m, ok := ms["1700000000_add_users"]
	if !ok {
		t.Fatalf("expected migration to be loaded, got %v", ms.IDs())
	}
	if m.Description != "add users table" {
		t.Errorf("Description = %q", m.Description)
	}
	if m.Apply != "CREATE TABLE users (id SERIAL PRIMARY KEY);" {
		t.Errorf("Apply = %q", m.Apply)
	}
	if m.Revert != "DROP TABLE users;" {
		t.Errorf("Revert = %q", m.Revert)
	}
	if !m.HasRevert() {
		t.Errorf("expected HasRevert() true")
	}
}

func TestLoadAllDependsList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1700000000_base.mig", ""+
		"Description: base\n"+
		"Created: 2023-11-14T22:13:20Z\n"+
		"Depends: []\n"+
		"Apply: |\n"+
		"  SELECT 1;\n")
	writeFile(t, dir, "1700000100_child.mig", ""+
		"Description: child\n"+
		"Created: 2023-11-14T22:15:00Z\n"+
		"Depends: [1700000000_base]\n"+
		"Apply: |\n"+
		"  SELECT 2;\n")

	s := New(dir)
	ms, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	child := ms["1700000100_child"]
	if len(child.Depends) != 1 || child.Depends[0] != "1700000000_base" {
		t.Fatalf("Depends = %v", child.Depends)
	}
}

func TestLoadAllRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1700000000_bad.mig", ""+
		"Description: bad\n"+
		"Created: 2023-11-14T22:13:20Z\n"+
		"Depends: []\n"+
		"Author: someone\n"+
		"Apply: |\n"+
		"  SELECT 1;\n")

	_, err := New(dir).LoadAll()
	if err == nil {
		t.Fatal("expected a parse error for unknown field")
	}
	var parseErr *schema.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *schema.ParseError, got %T: %v", err, err)
	}
}

func TestLoadAllRejectsDuplicateField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1700000000_bad.mig", ""+
		"Description: bad\n"+
		"Description: bad again\n"+
		"Created: 2023-11-14T22:13:20Z\n"+
		"Depends: []\n"+
		"Apply: |\n"+
		"  SELECT 1;\n")

	_, err := New(dir).LoadAll()
	if err == nil {
		t.Fatal("expected a parse error for duplicate field")
	}
}

func TestLoadAllRejectsOutOfOrderField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1700000000_bad.mig", ""+
		"Created: 2023-11-14T22:13:20Z\n"+
		"Description: bad\n"+
		"Depends: []\n"+
		"Apply: |\n"+
		"  SELECT 1;\n")

	_, err := New(dir).LoadAll()
	if err == nil {
		t.Fatal("expected a parse error for out-of-order field")
	}
}

func TestLoadAllRejectsMissingRequiredField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1700000000_bad.mig", ""+
		"Description: bad\n"+
		"Created: 2023-11-14T22:13:20Z\n"+
		"Apply: |\n"+
		"  SELECT 1;\n")

	_, err := New(dir).LoadAll()
	if err == nil {
		t.Fatal("expected a parse error for missing Depends field")
	}
}

func TestLoadAllRejectsNonConformingFilename(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "badname.mig", ""+
		"Description: bad filename\n"+
		"Created: 2023-11-14T22:13:20Z\n"+
		"Depends: []\n"+
		"Apply: |\n"+
		"  SELECT 1;\n")

	_, err := New(dir).LoadAll()
	if err == nil {
		t.Fatal("expected a parse error for a filename not matching <timestamp>_<slug>")
	}
	var parseErr *schema.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *schema.ParseError, got %T: %v", err, err)
	}
}

func TestValidateAllRejectsMismatchedDuplicateID(t *testing.T) {
	ms := schema.Set{
		"1700000000_foo": &schema.Migration{ID: "1700000000_shared"},
		"1700000100_bar": &schema.Migration{ID: "1700000000_shared"},
	}
	err := ValidateAll(ms)
	if err == nil {
		t.Fatal("expected a duplicate id error")
	}
	var dupErr *schema.DuplicateIDError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected *schema.DuplicateIDError, got %T: %v", err, err)
	}
}

func TestLoadAllRejectsSelfDependency(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1700000000_bad.mig", ""+
		"Description: bad\n"+
		"Created: 2023-11-14T22:13:20Z\n"+
		"Depends: [1700000000_bad]\n"+
		"Apply: |\n"+
		"  SELECT 1;\n")

	_, err := New(dir).LoadAll()
	if err == nil {
		t.Fatal("expected a parse error for self-dependency")
	}
}

func TestLoadAllRejectsReservedBootstrapID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "root.mig", ""+
		"Description: bad\n"+
		"Created: 2023-11-14T22:13:20Z\n"+
		"Depends: []\n"+
		"Apply: |\n"+
		"  SELECT 1;\n")

	_, err := New(dir).LoadAll()
	if err == nil {
		t.Fatal("expected a parse error for reserved bootstrap id")
	}
}

func TestLoadAllRejectsUnresolvedDependency(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1700000000_child.mig", ""+
		"Description: child\n"+
		"Created: 2023-11-14T22:13:20Z\n"+
		"Depends: [1699999999_missing]\n"+
		"Apply: |\n"+
		"  SELECT 1;\n")

	_, err := New(dir).LoadAll()
	if err == nil {
		t.Fatal("expected an unresolved dependency error")
	}
	var depErr *schema.UnresolvedDependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected *schema.UnresolvedDependencyError, got %T: %v", err, err)
	}
}

func TestLoadAllAllowsBootstrapAsDependency(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1700000000_root_dep.mig", ""+
		"Description: depends on bootstrap explicitly\n"+
		"Created: 2023-11-14T22:13:20Z\n"+
		"Depends: [root]\n"+
		"Apply: |\n"+
		"  SELECT 1;\n")

	if _, err := New(dir).LoadAll(); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
}

func TestCreateNewRejectsInvalidID(t *testing.T) {
	dir := t.TempDir()
	if err := New(dir).CreateNew("not-a-valid-id"); err == nil {
		t.Fatal("expected a usage error for an invalid id")
	}
}

func TestCreateNewRejectsExisting(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.CreateNew("1700000000_first"); err != nil {
		t.Fatalf("first CreateNew: %v", err)
	}
	err := s.CreateNew("1700000000_first")
	if err == nil {
		t.Fatal("expected AlreadyExistsError on second CreateNew")
	}
	var existsErr *schema.AlreadyExistsError
	if !errors.As(err, &existsErr) {
		t.Fatalf("expected *schema.AlreadyExistsError, got %T: %v", err, err)
	}
}

func TestCreateNewThenLoadAllRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.CreateNew("1700000000_first"); err != nil {
		t.Fatalf("CreateNew: %v", err)
	}
	ms, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if _, ok := ms["1700000000_first"]; !ok {
		t.Fatalf("expected freshly created migration to load back, got %v", ms.IDs())
	}
}
