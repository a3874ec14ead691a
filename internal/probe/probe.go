// Package probe defines the payloads self-reported by monitored data
// services. Probes are fetched fresh per check and consumed once.
package probe

// SchemaProbe is the response of a service's /schema endpoint.
type SchemaProbe struct {
	Service      string                 `json:"service"`
	ContractName string                 `json:"contract_name"`
	Tables       map[string]TableSchema `json:"tables"`
}

// TableSchema describes one reported table.
type TableSchema struct {
	Columns     []ColumnSchema `json:"columns"`
	ForeignKeys []ForeignKey   `json:"foreign_keys"`
}

// ColumnSchema describes one physical column.
type ColumnSchema struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Nullable   bool    `json:"nullable"`
	Default    *string `json:"default"`
	PrimaryKey bool    `json:"primary_key"`
}

// ForeignKey names a reported foreign key relation.
type ForeignKey struct {
	Columns    []string `json:"columns"`
	References *string  `json:"references"`
}

// MetricsProbe is the response of a service's /metrics endpoint.
// Sections a service does not measure come back with nil values; the
// evaluator reports those as warnings rather than guessing.
type MetricsProbe struct {
	Timestamp    string              `json:"timestamp"`
	Freshness    FreshnessMetrics    `json:"freshness"`
	Completeness CompletenessMetrics `json:"completeness"`
	RowCount     int64               `json:"row_count"`
	Availability AvailabilityMetrics `json:"availability"`
}

// FreshnessMetrics reports the age of the newest data.
type FreshnessMetrics struct {
	LastUpdate         *string  `json:"last_update"`
	SecondsSinceUpdate *float64 `json:"seconds_since_update"`
	IsFresh            bool     `json:"is_fresh"`
}

// CompletenessMetrics reports non-null ratios per field.
type CompletenessMetrics struct {
	TotalRows           int64              `json:"total_rows"`
	FieldCompleteness   map[string]float64 `json:"field_completeness"`
	OverallCompleteness *float64           `json:"overall_completeness"`
}

// AvailabilityMetrics reports the service's own uptime accounting.
type AvailabilityMetrics struct {
	Status           string   `json:"status"`
	UptimePercentage *float64 `json:"uptime_percentage"`
}
