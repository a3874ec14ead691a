package checks

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TypeTable maps a contract's logical data type to the physical column
// type spellings that satisfy it. Matching is substring-based on the
// lowercased physical type, so "character varying(255)" satisfies the
// logical type "string" via the "character varying" spelling.
type TypeTable map[string][]string

// DefaultTypeTable returns the built-in mapping. Callers get a fresh copy
// and may mutate it freely.
func DefaultTypeTable() TypeTable {
	return TypeTable{
		"string":    {"varchar", "text", "char", "character varying", "character"},
		"integer":   {"int", "integer", "bigint", "smallint", "serial", "bigserial", "int4", "int8"},
		"float":     {"float", "real", "double precision", "float4", "float8"},
		"decimal":   {"decimal", "numeric"},
		"boolean":   {"bool", "boolean"},
		"date":      {"date"},
		"datetime":  {"timestamp", "timestamp without time zone"},
		"timestamp": {"timestamp", "timestamp with time zone", "timestamptz"},
		"uuid":      {"uuid"},
		"json":      {"json", "jsonb"},
		"array":     {"array", "[]"},
	}
}

// LoadTypeTable reads a YAML file of logical-type overrides and merges it
// over the default table. An override replaces the default spelling list
// for its logical type; types absent from the file keep their defaults.
func LoadTypeTable(path string) (TypeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read type table: %w", err)
	}

	var overrides map[string][]string
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse type table: %w", err)
	}

	table := DefaultTypeTable()
	for logical, spellings := range overrides {
		table[strings.ToLower(logical)] = spellings
	}
	return table, nil
}

// Compatible reports whether a physical column type satisfies the given
// logical type. Unknown logical types match nothing.
func (t TypeTable) Compatible(logical, physical string) bool {
	spellings, ok := t[strings.ToLower(logical)]
	if !ok {
		return false
	}

	lowered := strings.ToLower(physical)
	for _, spelling := range spellings {
		if strings.Contains(lowered, spelling) {
			return true
		}
	}
	return false
}
