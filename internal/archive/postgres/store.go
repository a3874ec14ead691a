// Package postgres backs the compliance archive with PostgreSQL via pgx.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"contract-compliance-monitor/internal/archive"
)

const (
	migrateSQL = `
	CREATE TABLE IF NOT EXISTS compliance_outcomes (
		id               BIGSERIAL PRIMARY KEY,
		contract_id      UUID NOT NULL,
		contract_name    TEXT NOT NULL,
		contract_version TEXT NOT NULL,
		check_type       TEXT NOT NULL,
		status           TEXT NOT NULL,
		details          JSONB,
		error_message    TEXT,
		checked_at       TIMESTAMPTZ NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_contract_checked
		ON compliance_outcomes (contract_name, checked_at DESC);
	CREATE INDEX IF NOT EXISTS idx_outcomes_checked
		ON compliance_outcomes (checked_at);

	CREATE TABLE IF NOT EXISTS compliance_alerts (
		id            BIGSERIAL PRIMARY KEY,
		contract_id   UUID NOT NULL,
		contract_name TEXT NOT NULL,
		check_type    TEXT NOT NULL,
		status        TEXT NOT NULL,
		message       TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_created
		ON compliance_alerts (created_at DESC);`

	insertOutcomeSQL = `INSERT INTO compliance_outcomes (
        contract_id,
        contract_name,
        contract_version,
        check_type,
        status,
        details,
        error_message,
        checked_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    );`

	countOutcomesSQL = `SELECT COUNT(*) FROM compliance_outcomes;`

	insertAlertSQL = `INSERT INTO compliance_alerts (
        contract_id,
        contract_name,
        check_type,
        status,
        message
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    RETURNING id, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        contract_id,
        contract_name,
        check_type,
        status,
        message,
        created_at
    FROM compliance_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM compliance_alerts WHERE created_at < $1;`

	outcomeColumns = `id, contract_id, contract_name, contract_version, check_type, status, details, error_message, checked_at, created_at`
)

// Options configure the archive connection pool.
type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store implements archive.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects, migrates the archive schema and returns a ready store.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("archive.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse archive dsn: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}

	store := &Store{pool: pool}
	if _, err := pool.Exec(ctx, migrateSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate archive schema: %w", err)
	}
	return store, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, archive.ErrNotConfigured
	}
	return s.pool, nil
}

// InsertOutcome appends one archived outcome.
func (s *Store) InsertOutcome(ctx context.Context, rec archive.OutcomeRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var details interface{}
	if len(rec.Details) > 0 {
		details = []byte(rec.Details)
	}
	var errMsg interface{}
	if rec.ErrorMessage != nil {
		errMsg = *rec.ErrorMessage
	}

	_, execErr := pool.Exec(ctx, insertOutcomeSQL,
		rec.ContractID.String(),
		rec.ContractName,
		rec.ContractVersion,
		rec.CheckType,
		rec.Status,
		details,
		errMsg,
		rec.CheckedAt,
	)
	if execErr != nil {
		return fmt.Errorf("insert outcome: %w", execErr)
	}
	return nil
}

// ListRecentOutcomes returns outcomes newest first, optionally filtered by
// contract name and check type.
func (s *Store) ListRecentOutcomes(ctx context.Context, filter archive.OutcomeFilter) ([]archive.OutcomeRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	qb := strings.Builder{}
	qb.WriteString("SELECT " + outcomeColumns + " FROM compliance_outcomes WHERE 1=1")
	args := make([]interface{}, 0, 3)
	if filter.Contract != "" {
		args = append(args, filter.Contract)
		fmt.Fprintf(&qb, " AND contract_name = $%d", len(args))
	}
	if filter.CheckType != "" {
		args = append(args, filter.CheckType)
		fmt.Fprintf(&qb, " AND check_type = $%d", len(args))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	fmt.Fprintf(&qb, " ORDER BY checked_at DESC LIMIT $%d", len(args))

	rows, queryErr := pool.Query(ctx, qb.String(), args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent outcomes: %w", queryErr)
	}
	defer rows.Close()

	return collectOutcomes(rows, limit)
}

// ListOutcomesBetween returns outcomes inside a time window, oldest first.
func (s *Store) ListOutcomesBetween(ctx context.Context, filter archive.OutcomeFilter) ([]archive.OutcomeRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	qb := strings.Builder{}
	qb.WriteString("SELECT " + outcomeColumns + " FROM compliance_outcomes WHERE 1=1")
	args := make([]interface{}, 0, 5)
	if filter.Contract != "" {
		args = append(args, filter.Contract)
		fmt.Fprintf(&qb, " AND contract_name = $%d", len(args))
	}
	if filter.CheckType != "" {
		args = append(args, filter.CheckType)
		fmt.Fprintf(&qb, " AND check_type = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		fmt.Fprintf(&qb, " AND checked_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		fmt.Fprintf(&qb, " AND checked_at < $%d", len(args))
	}
	qb.WriteString(" ORDER BY checked_at")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&qb, " LIMIT $%d", len(args))
	}

	rows, queryErr := pool.Query(ctx, qb.String(), args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list outcomes between: %w", queryErr)
	}
	defer rows.Close()

	return collectOutcomes(rows, 0)
}

// CountOutcomes counts archived outcomes.
func (s *Store) CountOutcomes(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countOutcomesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count outcomes: %w", scanErr)
	}
	return count, nil
}

// InsertAlert records one fired alert and returns it with id and timestamp.
func (s *Store) InsertAlert(ctx context.Context, rec archive.AlertRecord) (archive.AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return archive.AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		rec.ContractID.String(),
		rec.ContractName,
		rec.CheckType,
		rec.Status,
		rec.Message,
	)
	if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
		return archive.AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists fired alerts newest first.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]archive.AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]archive.AlertRecord, 0, limit)
	for rows.Next() {
		var rec archive.AlertRecord
		var contractID string
		if err := rows.Scan(
			&rec.ID,
			&contractID,
			&rec.ContractName,
			&rec.CheckType,
			&rec.Status,
			&rec.Message,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		parsed, parseErr := uuid.Parse(contractID)
		if parseErr != nil {
			return nil, fmt.Errorf("parse contract id: %w", parseErr)
		}
		rec.ContractID = parsed
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore prunes the alert audit trail.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func collectOutcomes(rows pgx.Rows, sizeHint int) ([]archive.OutcomeRecord, error) {
	outcomes := make([]archive.OutcomeRecord, 0, sizeHint)
	for rows.Next() {
		rec, scanErr := scanOutcome(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		outcomes = append(outcomes, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return outcomes, nil
}

func scanOutcome(rows pgx.Rows) (archive.OutcomeRecord, error) {
	var (
		rec        archive.OutcomeRecord
		contractID string
		details    []byte
		errMsg     sql.NullString
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
		&rec.CheckedAt,
		&rec.CreatedAt,
	); err != nil {
		return archive.OutcomeRecord{}, err
	}

	parsed, err := uuid.Parse(contractID)
	if err != nil {
		return archive.OutcomeRecord{}, fmt.Errorf("parse contract id: %w", err)
	}
	rec.ContractID = parsed

	if len(details) > 0 {
		rec.Details = json.RawMessage(details)
	}
	if errMsg.Valid {
		msg := errMsg.String
		rec.ErrorMessage = &msg
	}
	return rec, nil
}

var _ archive.Store = (*Store)(nil)
