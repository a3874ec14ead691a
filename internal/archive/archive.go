// Package archive keeps a local mirror of check outcomes and fired alerts.
// The registry holds the authoritative compliance history; the archive
// only serves operator inspection through the show and export commands.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotConfigured indicates the archive store was not initialised.
var ErrNotConfigured = errors.New("archive: store not configured")

// OutcomeRecord is one archived compliance check outcome.
type OutcomeRecord struct {
	ID              int64
	ContractID      uuid.UUID
	ContractName    string
	ContractVersion string
	CheckType       string
	Status          string
	Details         json.RawMessage
	ErrorMessage    *string
	CheckedAt       time.Time
	CreatedAt       time.Time
}

// AlertRecord captures one alert that passed the cooldown gate.
type AlertRecord struct {
	ID           int64
	ContractID   uuid.UUID
	ContractName string
	CheckType    string
	Status       string
	Message      string
	CreatedAt    time.Time
}

// OutcomeFilter narrows outcome queries. Zero values mean no constraint.
type OutcomeFilter struct {
	Contract  string
	CheckType string
	From      time.Time
	To        time.Time
	Limit     int
}

// OutcomeStore persists and queries archived outcomes.
type OutcomeStore interface {
	InsertOutcome(ctx context.Context, rec OutcomeRecord) error
	ListRecentOutcomes(ctx context.Context, filter OutcomeFilter) ([]OutcomeRecord, error)
	ListOutcomesBetween(ctx context.Context, filter OutcomeFilter) ([]OutcomeRecord, error)
	CountOutcomes(ctx context.Context) (int64, error)
}

// AlertLogStore persists the audit trail of fired alerts.
type AlertLogStore interface {
	InsertAlert(ctx context.Context, rec AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// Store aggregates outcome and alert persistence behind one handle.
type Store interface {
	OutcomeStore
	AlertLogStore
	Close() error
}
