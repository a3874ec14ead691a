// Package checks holds the contract validators: schema drift detection
// against a live schema probe and quality rule evaluation against a
// metrics probe. Validators are pure; fetching and outcome recording live
// in the service layer.
package checks

import (
	"fmt"
	"sort"

	"contract-compliance-monitor/internal/contract"
	"contract-compliance-monitor/internal/probe"
)

// SchemaResult is the outcome of validating declared fields against a
// schema probe.
type SchemaResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Details renders the result in the shape recorded with the compliance
// outcome.
func (r SchemaResult) Details() map[string]any {
	return map[string]any{
		"is_valid": r.Valid,
		"errors":   r.Errors,
		"warnings": r.Warnings,
	}
}

// SchemaValidator compares a contract's declared fields with the columns a
// provider actually exposes.
type SchemaValidator struct {
	types TypeTable
}

func NewSchemaValidator(types TypeTable) *SchemaValidator {
	if types == nil {
		types = DefaultTypeTable()
	}
	return &SchemaValidator{types: types}
}

type liveColumn struct {
	table  string
	column probe.ColumnSchema
}

// Validate checks every declared field for presence, type compatibility
// and nullability, and reports live columns no contract field documents.
//
// Multi-table probes are flattened into a single column namespace: tables
// are walked in sorted name order and a column name appearing in several
// tables resolves to the last table's definition. Contracts are expected
// to describe one table; the flattening only matters for providers that
// expose more.
func (v *SchemaValidator) Validate(declared []contract.FieldSpec, sp probe.SchemaProbe) SchemaResult {
	result := SchemaResult{
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}

	tables := make([]string, 0, len(sp.Tables))
	for name := range sp.Tables {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	live := make(map[string]liveColumn)
	order := make([]string, 0)
	for _, table := range tables {
		for _, column := range sp.Tables[table].Columns {
			if _, seen := live[column.Name]; !seen {
				order = append(order, column.Name)
			}
			live[column.Name] = liveColumn{table: table, column: column}
		}
	}

	documented := make(map[string]struct{}, len(declared))
	for _, field := range declared {
		documented[field.Name] = struct{}{}

		actual, ok := live[field.Name]
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("Missing required field: %s", field.Name))
			continue
		}

		if !v.types.Compatible(field.DataType, actual.column.Type) {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"Type mismatch for '%s': expected %s, got %s",
				field.Name, field.DataType, actual.column.Type))
		}

		if !field.Nullable && actual.column.Nullable {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"Field '%s' should be NOT NULL but is nullable", field.Name))
		}
	}

	for _, name := range order {
		if _, ok := documented[name]; !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Undocumented field in schema: %s", name))
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}
