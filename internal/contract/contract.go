// Package contract mirrors the registry's wire model for data contracts
// and the compliance records the monitor appends to their history.
package contract

import (
	"time"

	"github.com/google/uuid"
)

// Contract lifecycle statuses as reported by the registry.
const (
	StatusActive     = "active"
	StatusDeprecated = "deprecated"
	StatusDraft      = "draft"
)

// Check types dispatched by the scheduler.
const (
	CheckSchema       = "schema"
	CheckQuality      = "quality"
	CheckAvailability = "availability"
)

// Outcome statuses recorded against a contract's history.
const (
	CheckPass    = "pass"
	CheckFail    = "fail"
	CheckWarning = "warning"
	CheckError   = "error"
)

// Quality rule metric types.
const (
	MetricFreshness    = "freshness"
	MetricCompleteness = "completeness"
	MetricAccuracy     = "accuracy"
	MetricAvailability = "availability"
	MetricUniqueness   = "uniqueness"
)

// Snapshot is a read-only view of one contract as served by the registry.
// The monitor fetches it fresh per run and never mutates it.
type Snapshot struct {
	ID             uuid.UUID     `json:"id"`
	Name           string        `json:"name"`
	Version        string        `json:"version"`
	Description    string        `json:"description"`
	Status         string        `json:"status"`
	PublisherTeam  string        `json:"publisher_team"`
	PublisherOwner string        `json:"publisher_owner"`
	ContactEmail   string        `json:"contact_email"`
	Fields         []FieldSpec   `json:"fields"`
	QualityRules   []QualityRule `json:"quality_metrics"`
	Access         *AccessConfig `json:"access_config"`
	Tags           []string      `json:"tags"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// FieldSpec declares one field of the contract schema.
type FieldSpec struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	Description  string `json:"description"`
	Nullable     bool   `json:"nullable"`
	IsPII        bool   `json:"is_pii"`
	IsPrimaryKey bool   `json:"is_primary_key"`
}

// QualityRule declares one quality SLA. Threshold is a human-readable
// string in the registry ("15 minutes", "99.5%"); parsing happens check-side.
type QualityRule struct {
	MetricType    string `json:"metric_type"`
	Threshold     string `json:"threshold"`
	AlertOnBreach bool   `json:"alert_on_breach"`
}

// AccessConfig points at the live data service backing the contract.
type AccessConfig struct {
	EndpointURL string   `json:"endpoint_url"`
	Methods     []string `json:"methods"`
	AuthType    string   `json:"auth_type"`
}

// Monitorable reports whether the contract is eligible for compliance runs:
// only active contracts with a declared access endpoint are checked.
func (s Snapshot) Monitorable() bool {
	return s.Status == StatusActive && s.Access != nil && s.Access.EndpointURL != ""
}

// Outcome is one immutable compliance record. Every run appends a new one;
// records are never overwritten, so concurrent runs for the same contract
// stay safe without coordination.
type Outcome struct {
	ContractID      uuid.UUID      `json:"contract_id"`
	ContractName    string         `json:"contract_name"`
	ContractVersion string         `json:"contract_version"`
	CheckType       string         `json:"check_type"`
	Status          string         `json:"status"`
	Errors          []string       `json:"errors,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	CheckedAt       time.Time      `json:"checked_at"`
}

// NewOutcome stamps a fresh record for the given contract and check type.
func NewOutcome(s Snapshot, checkType, status string) Outcome {
	return Outcome{
		ContractID:      s.ID,
		ContractName:    s.Name,
		ContractVersion: s.Version,
		CheckType:       checkType,
		Status:          status,
		CheckedAt:       time.Now().UTC(),
	}
}
