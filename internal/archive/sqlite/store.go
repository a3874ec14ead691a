// Package sqlite backs the compliance archive with a local SQLite file,
// for single-node deployments that run without Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"contract-compliance-monitor/internal/archive"
)

const migrateSQL = `
CREATE TABLE IF NOT EXISTS compliance_outcomes (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	contract_id      TEXT NOT NULL,
	contract_name    TEXT NOT NULL,
	contract_version TEXT NOT NULL,
	check_type       TEXT NOT NULL,
	status           TEXT NOT NULL,
	details          TEXT,
	error_message    TEXT,
	checked_at       TEXT NOT NULL,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_contract_checked
	ON compliance_outcomes (contract_name, checked_at DESC);
CREATE INDEX IF NOT EXISTS idx_outcomes_checked
	ON compliance_outcomes (checked_at);

CREATE TABLE IF NOT EXISTS compliance_alerts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	contract_id   TEXT NOT NULL,
	contract_name TEXT NOT NULL,
	check_type    TEXT NOT NULL,
	status        TEXT NOT NULL,
	message       TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_created
	ON compliance_alerts (created_at DESC);
`

const outcomeColumns = `id, contract_id, contract_name, contract_version, check_type, status, details, error_message, checked_at, created_at`

// Store implements archive.Store on a SQLite file.
type Store struct {
	db *sql.DB
}

// New opens the database file, applies the schema and returns a ready
// store.
func New(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("archive.dsn is required")
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, migrateSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) getDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, archive.ErrNotConfigured
	}
	return s.db, nil
}

// InsertOutcome appends one archived outcome.
func (s *Store) InsertOutcome(ctx context.Context, rec archive.OutcomeRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	var details interface{}
	if len(rec.Details) > 0 {
		details = string(rec.Details)
	}
	var errMsg interface{}
	if rec.ErrorMessage != nil {
		errMsg = *rec.ErrorMessage
	}

	query := `INSERT INTO compliance_outcomes (contract_id, contract_name, contract_version, check_type, status, details, error_message, checked_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, execErr := db.ExecContext(ctx, query,
		rec.ContractID.String(),
		rec.ContractName,
		rec.ContractVersion,
		rec.CheckType,
		rec.Status,
		details,
		errMsg,
		rec.CheckedAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if execErr != nil {
		return fmt.Errorf("insert outcome: %w", execErr)
	}
	return nil
}

// ListRecentOutcomes returns outcomes newest first, optionally filtered by
// contract name and check type.
func (s *Store) ListRecentOutcomes(ctx context.Context, filter archive.OutcomeFilter) ([]archive.OutcomeRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	qb := strings.Builder{}
	qb.WriteString("SELECT " + outcomeColumns + " FROM compliance_outcomes WHERE 1=1")
	args := make([]interface{}, 0, 3)
	if filter.Contract != "" {
		args = append(args, filter.Contract)
		qb.WriteString(" AND contract_name = ?")
	}
	if filter.CheckType != "" {
		args = append(args, filter.CheckType)
		qb.WriteString(" AND check_type = ?")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	qb.WriteString(" ORDER BY checked_at DESC LIMIT ?")

	rows, queryErr := db.QueryContext(ctx, qb.String(), args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent outcomes: %w", queryErr)
	}
	defer rows.Close()

	return collectOutcomes(rows)
}

// ListOutcomesBetween returns outcomes inside a time window, oldest first.
func (s *Store) ListOutcomesBetween(ctx context.Context, filter archive.OutcomeFilter) ([]archive.OutcomeRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	qb := strings.Builder{}
	qb.WriteString("SELECT " + outcomeColumns + " FROM compliance_outcomes WHERE 1=1")
	args := make([]interface{}, 0, 5)
	if filter.Contract != "" {
		args = append(args, filter.Contract)
		qb.WriteString(" AND contract_name = ?")
	}
	if filter.CheckType != "" {
		args = append(args, filter.CheckType)
		qb.WriteString(" AND check_type = ?")
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From.UTC().Format(time.RFC3339Nano))
		qb.WriteString(" AND checked_at >= ?")
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To.UTC().Format(time.RFC3339Nano))
		qb.WriteString(" AND checked_at < ?")
	}
	qb.WriteString(" ORDER BY checked_at")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		qb.WriteString(" LIMIT ?")
	}

	rows, queryErr := db.QueryContext(ctx, qb.String(), args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list outcomes between: %w", queryErr)
	}
	defer rows.Close()

	return collectOutcomes(rows)
}

// CountOutcomes counts archived outcomes.
func (s *Store) CountOutcomes(ctx context.Context) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM compliance_outcomes`).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count outcomes: %w", scanErr)
	}
	return count, nil
}

// InsertAlert records one fired alert and returns it with id and timestamp.
func (s *Store) InsertAlert(ctx context.Context, rec archive.AlertRecord) (archive.AlertRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return archive.AlertRecord{}, err
	}

	now := time.Now().UTC()
	query := `INSERT INTO compliance_alerts (contract_id, contract_name, check_type, status, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	res, execErr := db.ExecContext(ctx, query,
		rec.ContractID.String(),
		rec.ContractName,
		rec.CheckType,
		rec.Status,
		rec.Message,
		now.Format(time.RFC3339Nano),
	)
	if execErr != nil {
		return archive.AlertRecord{}, fmt.Errorf("insert alert: %w", execErr)
	}

	id, idErr := res.LastInsertId()
	if idErr != nil {
		return archive.AlertRecord{}, fmt.Errorf("insert alert id: %w", idErr)
	}
	rec.ID = id
	rec.CreatedAt = now
	return rec, nil
}

// ListRecentAlerts lists fired alerts newest first.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]archive.AlertRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, contract_id, contract_name, check_type, status, message, created_at FROM compliance_alerts ORDER BY created_at DESC LIMIT ?`
	rows, queryErr := db.QueryContext(ctx, query, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]archive.AlertRecord, 0, limit)
	for rows.Next() {
		var rec archive.AlertRecord
		var contractID, createdAt string
		if err := rows.Scan(&rec.ID, &contractID, &rec.ContractName, &rec.CheckType, &rec.Status, &rec.Message, &createdAt); err != nil {
			return nil, err
		}
		parsed, parseErr := uuid.Parse(contractID)
		if parseErr != nil {
			return nil, fmt.Errorf("parse contract id: %w", parseErr)
		}
		rec.ContractID = parsed
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore prunes the alert audit trail.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	query := `DELETE FROM compliance_alerts WHERE created_at < ?`
	if _, execErr := db.ExecContext(ctx, query, olderThan.UTC().Format(time.RFC3339Nano)); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func collectOutcomes(rows *sql.Rows) ([]archive.OutcomeRecord, error) {
	outcomes := make([]archive.OutcomeRecord, 0)
	for rows.Next() {
		var (
			rec        archive.OutcomeRecord
			contractID string
			details    sql.NullString
			errMsg     sql.NullString
			checkedAt  string
			createdAt  string
		)
		if err := rows.Scan(
			&rec.ID,
			&contractID,
			&rec.ContractName,
			&rec.ContractVersion,
			&rec.CheckType,
			&rec.Status,
			&details,
			&errMsg,
			&checkedAt,
			&createdAt,
		); err != nil {
			return nil, err
		}

		parsed, parseErr := uuid.Parse(contractID)
		if parseErr != nil {
			return nil, fmt.Errorf("parse contract id: %w", parseErr)
		}
		rec.ContractID = parsed

		if details.Valid && details.String != "" {
			rec.Details = json.RawMessage(details.String)
		}
		if errMsg.Valid {
			msg := errMsg.String
			rec.ErrorMessage = &msg
		}
		rec.CheckedAt, _ = time.Parse(time.RFC3339Nano, checkedAt)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		outcomes = append(outcomes, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return outcomes, nil
}

var _ archive.Store = (*Store)(nil)
