// Package catalog defines the Glue Data Catalog layout of the data lake and
// registers it. Schemas and table lists are plain data (loadable from YAML)
// validated once when a Registry is built; Provisioner turns a plan into
// Glue CreateDatabase/CreateTable calls.
package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// ColumnType is a Hive primitive type allowed in table schemas.
type ColumnType string

const (
	TypeString    ColumnType = "string"
	TypeDouble    ColumnType = "double"
	TypeTimestamp ColumnType = "timestamp"
)

var columnTypes = []ColumnType{TypeString, TypeDouble, TypeTimestamp}

func (t ColumnType) Valid() bool {
	return slices.Contains(columnTypes, t)
}

// Column is one (name, type) pair of a schema.
type Column struct {
	Name string     `yaml:"name" json:"name"`
	Type ColumnType `yaml:"type" json:"type"`
}

// Schema is an ordered list of columns. Schemas handed out by a Registry are
// copies, so callers cannot change what other tables see.
type Schema []Column

func (s Schema) Validate() error {
	seen := make(map[string]bool, len(s))
	for i, c := range s {
		if c.Name == "" {
			return fmt.Errorf("column %d: name is required", i)
		}
		if !c.Type.Valid() {
			return fmt.Errorf("column %q: unsupported type %q (expected one of %v)", c.Name, c.Type, columnTypes)
		}
		// Hive column names are case-insensitive.
		lower := strings.ToLower(c.Name)
		if seen[lower] {
			return fmt.Errorf("column %q: duplicate column name", c.Name)
		}
		seen[lower] = true
	}
	return nil
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

func (s Schema) clone() Schema {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

// Zone is the data-lake zone a table belongs to, derived from its name suffix.
type Zone string

const (
	ZoneLanding Zone = "landing"
	ZoneTrusted Zone = "trusted"
	ZoneCurated Zone = "curated"
)

func (z Zone) suffix() string {
	return "_" + string(z)
}

// ZoneOf returns the zone encoded in a table name's suffix.
func ZoneOf(table string) (Zone, bool) {
	for _, z := range []Zone{ZoneLanding, ZoneTrusted, ZoneCurated} {
		if strings.HasSuffix(table, z.suffix()) && len(table) > len(z.suffix()) {
			return z, true
		}
	}
	return "", false
}

// TrustedCounterpart maps a landing table name to the trusted table whose
// schema it borrows, e.g. "customer_landing" -> "customer_trusted".
func TrustedCounterpart(landing string) string {
	return strings.TrimSuffix(landing, ZoneLanding.suffix()) + ZoneTrusted.suffix()
}
