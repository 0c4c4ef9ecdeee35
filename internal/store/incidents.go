package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carehome-go/internal/models"
)

func (s *PostgresStore) CreateIncident(ctx context.Context, i *models.Incident) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO incidents (reference, resident_id, severity, category, description, reported_by, source, occurred_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		 ON CONFLICT (reference) DO NOTHING
		 RETURNING id, created_at`,
		i.Reference, i.ResidentID, i.Severity, i.Category, i.Description, nullInt(i.ReportedBy), i.Source, i.OccurredAt,
	).Scan(&i.ID, &i.CreatedAt)
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	// Retried delivery: hand back the incident already on file.
	var existing models.Incident
	err = s.db.QueryRowContext(ctx,
		`SELECT id, reference, resident_id, severity, category, description, COALESCE(reported_by, 0), source, occurred_at, created_at
		 FROM incidents WHERE reference = $1`,
		i.Reference,
	).Scan(&existing.ID, &existing.Reference, &existing.ResidentID, &existing.Severity, &existing.Category, &existing.Description,
		&existing.ReportedBy, &existing.Source, &existing.OccurredAt, &existing.CreatedAt)
	if err != nil {
		return err
	}
	if existing.ResidentID != i.ResidentID {
		return fmt.Errorf("incident reference %q: %w", i.Reference, ErrConflict)
	}
	*i = existing
	return nil
}

// ListIncidents returns the newest incidents, optionally for one resident.
func (s *PostgresStore) ListIncidents(ctx context.Context, residentID, limit int) ([]models.Incident, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, reference, resident_id, severity, category, description, COALESCE(reported_by, 0), source, occurred_at, created_at
		 FROM incidents
		 WHERE ($1 = 0 OR resident_id = $1)
		 ORDER BY occurred_at DESC
		 LIMIT $2`,
		residentID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incidents []models.Incident
	for rows.Next() {
		var i models.Incident
		if err := rows.Scan(&i.ID, &i.Reference, &i.ResidentID, &i.Severity, &i.Category, &i.Description,
			&i.ReportedBy, &i.Source, &i.OccurredAt, &i.CreatedAt); err != nil {
			return nil, err
		}
		incidents = append(incidents, i)
	}
	return incidents, rows.Err()
}
