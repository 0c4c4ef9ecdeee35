package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"carehome-go/internal/models"

	"github.com/lib/pq"
)

const defaultAlertLimit = 200

const alertColumns = `id, resident_id, organization_id, COALESCE(team_id, 0), alert_type, severity, title, message,
	metadata, dedup_key, is_resolved, resolved_at, resolved_by, created_at`

func scanAlert(row rowScanner) (models.Alert, error) {
	var a models.Alert
	var metadata []byte
	var resolvedAt sql.NullTime
	var resolvedBy sql.NullInt64

	err := row.Scan(&a.ID, &a.ResidentID, &a.OrganizationID, &a.TeamID, &a.AlertType, &a.Severity, &a.Title, &a.Message,
		&metadata, &a.DedupKey, &a.IsResolved, &resolvedAt, &resolvedBy, &a.CreatedAt)
	if err != nil {
		return models.Alert{}, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return models.Alert{}, fmt.Errorf("decode metadata of alert %d: %w", a.ID, err)
		}
	}
	a.ResolvedAt = timePtr(resolvedAt)
	if resolvedBy.Valid {
		by := int(resolvedBy.Int64)
		a.ResolvedBy = &by
	}
	return a, nil
}

// FindOpenAlert returns the unresolved alert for the given period, or nil
// when there is none.
func (s *PostgresStore) FindOpenAlert(ctx context.Context, residentID int, alertType, dedupKey string) (*models.Alert, error) {
	a, err := scanAlert(s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE resident_id = $1 AND alert_type = $2 AND dedup_key = $3 AND NOT is_resolved
		 ORDER BY id LIMIT 1`,
		residentID, alertType, dedupKey,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) CreateAlert(ctx context.Context, a *models.Alert) error {
	var metadata any
	if len(a.Metadata) > 0 {
		data, err := json.Marshal(a.Metadata)
		if err != nil {
			return fmt.Errorf("encode alert metadata: %w", err)
		}
		metadata = data
	}

	return s.db.QueryRowContext(ctx,
		`INSERT INTO alerts (resident_id, organization_id, team_id, alert_type, severity, title, message, metadata, dedup_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		 RETURNING id, created_at`,
		a.ResidentID, a.OrganizationID, nullInt(a.TeamID), a.AlertType, a.Severity, a.Title, a.Message, metadata, a.DedupKey,
	).Scan(&a.ID, &a.CreatedAt)
}

// ResolveOpenAlerts closes every unresolved alert for the period and reports
// how many were closed. by is nil for automatic resolution.
func (s *PostgresStore) ResolveOpenAlerts(ctx context.Context, residentID int, alertType, dedupKey string, by *int) (int64, error) {
	var resolvedBy any
	if by != nil {
		resolvedBy = *by
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET is_resolved = TRUE, resolved_at = NOW(), resolved_by = $1
		 WHERE resident_id = $2 AND alert_type = $3 AND dedup_key = $4 AND NOT is_resolved`,
		resolvedBy, residentID, alertType, dedupKey,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ResolveResidentAlerts closes every open alert of a resident, whatever its
// type. Used when the resident leaves the sweeps.
func (s *PostgresStore) ResolveResidentAlerts(ctx context.Context, residentID int, by *int) (int64, error) {
	var resolvedBy any
	if by != nil {
		resolvedBy = *by
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET is_resolved = TRUE, resolved_at = NOW(), resolved_by = $1
		 WHERE resident_id = $2 AND NOT is_resolved`,
		resolvedBy, residentID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *PostgresStore) GetAlert(ctx context.Context, id int64) (models.Alert, error) {
	a, err := scanAlert(s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, fmt.Errorf("alert %d: %w", id, ErrNotFound)
	}
	return a, err
}

func (s *PostgresStore) ListAlerts(ctx context.Context, f models.AlertFilter) ([]models.Alert, error) {
	var where []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	switch f.Status {
	case "open":
		where = append(where, "NOT is_resolved")
	case "resolved":
		where = append(where, "is_resolved")
	}
	if f.Severity != "" {
		add("severity = $%d", f.Severity)
	}
	if f.AlertType != "" {
		add("alert_type = $%d", f.AlertType)
	}
	if f.ResidentID != 0 {
		add("resident_id = $%d", f.ResidentID)
	}
	if f.TeamIDs != nil {
		add("team_id = ANY($%d)", pq.Array(f.TeamIDs))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add("(title ILIKE $%[1]d OR message ILIKE $%[1]d)", "%"+q+"%")
	}

	query := `SELECT ` + alertColumns + ` FROM alerts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *PostgresStore) ResolveAlert(ctx context.Context, id int64, by int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET is_resolved = TRUE, resolved_at = NOW(), resolved_by = $1
		 WHERE id = $2 AND NOT is_resolved`,
		nullInt(by), id,
	)
	if err != nil {
		return err
	}
	return expectAffected(result, "open alert", id)
}

// PurgeResolvedAlerts deletes alerts resolved before olderThan.
func (s *PostgresStore) PurgeResolvedAlerts(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM alerts WHERE is_resolved AND resolved_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
