// Package schema defines the ordered column-to-type mapping used by a
// table, and the table/column name validation rules.
package schema

import (
	"regexp"

	"coredb/internal/coltype"
	"coredb/internal/dberr"
)

// Column is one named, typed field of a table.
type Column struct {
	Name string
	Type coltype.Type
}

// Schema is an ordered list of columns. Order is part of identity: it
// governs on-disk byte layout and row decode order.
type Schema []Column

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateName reports whether name is a legal table or column name.
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return dberr.Newf(dberr.KindInvalidSchema, "invalid name %q", name)
	}
	return nil
}

// Validate checks that every column has a valid name and a supported
// type, and that column names are unique. The table name is checked
// separately with ValidateName.
func (s Schema) Validate() error {
	seen := make(map[string]bool, len(s))
	for _, c := range s {
		if err := ValidateName(c.Name); err != nil {
			return err
		}
		if seen[c.Name] {
			return dberr.Newf(dberr.KindInvalidSchema, "duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
		switch c.Type {
		case coltype.Int, coltype.Varchar, coltype.Timestamp, coltype.Boolean:
		default:
			return dberr.Newf(dberr.KindInvalidSchema, "column %q has unsupported type", c.Name)
		}
	}
	return nil
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// ColumnType looks up the type of a named column.
func (s Schema) ColumnType(name string) (coltype.Type, bool) {
	for _, c := range s {
		if c.Name == name {
			return c.Type, true
		}
	}
	return 0, false
}

// Equal reports whether two schemas have identical columns in the same
// order.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of s.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	copy(out, s)
	return out
}
