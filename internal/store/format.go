package store

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/herenow/schemadag/internal/schema"
)

// Field order is fixed. Unknown fields, duplicates, and trailing content
// after Revert's block are all parse errors.
const (
	fieldDescription = "Description"
	fieldCreated     = "Created"
	fieldDepends     = "Depends"
	fieldApply       = "Apply"
	fieldRevert      = "Revert"
)

var fieldOrder = []string{fieldDescription, fieldCreated, fieldDepends, fieldApply, fieldRevert}

// lineCursor wraps a slice of lines with a single-token lookahead, which
// is all the block scanner below needs to know where a field's body ends.
type lineCursor struct {
	lines []string
	pos   int
}

func (c *lineCursor) next() (string, bool) {
	if c.pos >= len(c.lines) {
		return "", false
	}
	line := c.lines[c.pos]
	c.pos++
	return line, true
}

func (c *lineCursor) peek() (string, bool) {
	if c.pos >= len(c.lines) {
		return "", false
	}
	return c.lines[c.pos], true
}

// parseMigration parses the line-oriented migration file format described
// in SPEC_FULL.md §6.2. Only the Depends: value is handed to a YAML
// decoder (it is a bracketed flow sequence); every other field is
// collected verbatim by this scanner, which is what lets the parser
// reject unknown fields and out-of-order fields precisely.
func parseMigration(id string, raw []byte) (*schema.Migration, error) {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, schema.NewParseError(id, err.Error())
	}

	cur := &lineCursor{lines: lines}
	m := &schema.Migration{ID: id}
	nextField := 0
	seen := make(map[string]bool)

	for {
		line, ok := cur.next()
		if !ok {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		name, rest, blockStart := splitFieldLine(line)
		if name == "" {
			return nil, schema.NewParseError(id, fmt.Sprintf("unexpected line outside any field: %q", line))
		}

		idx := fieldIndex(name)
		if idx < 0 {
			return nil, schema.NewParseError(id, fmt.Sprintf("unknown field %q", name))
		}
		if seen[name] {
			return nil, schema.NewParseError(id, fmt.Sprintf("duplicate field %q", name))
		}
		if idx < nextField {
			return nil, schema.NewParseError(id, fmt.Sprintf("field %q out of order", name))
		}
		seen[name] = true
		nextField = idx + 1

		var value string
		var err error
		if blockStart {
			value, err = scanBlock(cur)
		} else {
			value = strings.TrimSpace(rest)
		}
		if err != nil {
			return nil, schema.NewParseError(id, err.Error())
		}

		switch name {
		case fieldDescription:
			m.Description = value
		case fieldCreated:
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return nil, schema.NewParseError(id, fmt.Sprintf("invalid Created timestamp: %v", err))
			}
			m.Created = t
		case fieldDepends:
			var deps []string
			if err := yaml.Unmarshal([]byte(value), &deps); err != nil {
				return nil, schema.NewParseError(id, fmt.Sprintf("invalid Depends list: %v", err))
			}
			for _, dep := range deps {
				if dep == id {
					return nil, schema.NewParseError(id, "migration cannot depend on itself")
				}
			}
			m.Depends = deps
		case fieldApply:
			m.Apply = value
		case fieldRevert:
			m.Revert = value
		}
	}

	if !seen[fieldDescription] || !seen[fieldCreated] || !seen[fieldDepends] || !seen[fieldApply] {
		return nil, schema.NewParseError(id, "missing required field (need Description, Created, Depends, Apply)")
	}
	if id == schema.BootstrapID {
		return nil, schema.NewParseError(id, `"root" is reserved for the hard-coded bootstrap migration`)
	}

	return m, nil
}

// splitFieldLine recognizes a top-level "Name: value" or "Name: |" line.
// Indented lines (part of a block body) are not field lines and return
// name == "".
func splitFieldLine(line string) (name, rest string, blockStart bool) {
	if line == "" || line[0] == ' ' || line[0] == '\t' {
		return "", "", false
	}
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return "", "", false
	}
	name = line[:colon]
	rest = line[colon+1:]
	if strings.TrimSpace(rest) == "|" {
		return name, "", true
	}
	return name, rest, false
}

// scanBlock consumes indented lines (two-space indent) immediately
// following a "Field: |" header, until EOF or a non-indented line, and
// returns the dedented body. It leaves the terminating non-indented line
// (if any) unconsumed so the outer loop can parse it as the next field.
func scanBlock(cur *lineCursor) (string, error) {
	var lines []string
	for {
		line, ok := cur.peek()
		if !ok {
			break
		}
		if strings.TrimSpace(line) != "" && line[0] != ' ' && line[0] != '\t' {
			break
		}
		cur.next()
		lines = append(lines, strings.TrimPrefix(line, "  "))
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("block field has no body")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n"), nil
}

func fieldIndex(name string) int {
	for i, f := range fieldOrder {
		if f == name {
			return i
		}
	}
	return -1
}

func renderTemplate(id string, created time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Description: TODO describe %s\n", id)
	fmt.Fprintf(&b, "Created: %s\n", created.Format(time.RFC3339))
	fmt.Fprintf(&b, "Depends: []\n")
	fmt.Fprintf(&b, "Apply: |\n  -- TODO\n")
	fmt.Fprintf(&b, "Revert: |\n  -- TODO\n")
	return b.String()
}
