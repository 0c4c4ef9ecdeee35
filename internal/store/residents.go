package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"carehome-go/internal/models"
)

const residentColumns = `id, organization_id, COALESCE(team_id, 0), first_name, last_name, preferred_name,
	room_number, date_of_birth, status, admitted_at, created_at, updated_at`

func scanResident(row rowScanner) (models.Resident, error) {
	var r models.Resident
	var dob sql.NullTime
	if err := row.Scan(&r.ID, &r.OrganizationID, &r.TeamID, &r.FirstName, &r.LastName, &r.PreferredName,
		&r.RoomNumber, &dob, &r.Status, &r.AdmittedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return models.Resident{}, err
	}
	r.DateOfBirth = timePtr(dob)
	return r, nil
}

func (s *PostgresStore) CreateResident(ctx context.Context, r *models.Resident) error {
	if r.Status == "" {
		r.Status = models.ResidentActive
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO residents (organization_id, team_id, first_name, last_name, preferred_name,
			room_number, date_of_birth, status, admitted_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9::timestamptz, NOW()), NOW(), NOW())
		 RETURNING id, admitted_at, created_at, updated_at`,
		r.OrganizationID, nullInt(r.TeamID), r.FirstName, r.LastName, r.PreferredName,
		r.RoomNumber, nullTime(r.DateOfBirth), r.Status, nullAdmitted(r),
	).Scan(&r.ID, &r.AdmittedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create resident: %w", err)
	}
	return nil
}

func nullAdmitted(r *models.Resident) any {
	if r.AdmittedAt.IsZero() {
		return nil
	}
	return r.AdmittedAt
}

func (s *PostgresStore) GetResident(ctx context.Context, id int) (models.Resident, error) {
	r, err := scanResident(s.db.QueryRowContext(ctx,
		`SELECT `+residentColumns+` FROM residents WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Resident{}, fmt.Errorf("resident %d: %w", id, ErrNotFound)
	}
	return r, err
}

func (s *PostgresStore) ListResidents(ctx context.Context, f ResidentFilter) ([]models.Resident, error) {
	var where []string
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.TeamIDs != nil {
		args = append(args, pq.Array(f.TeamIDs))
		where = append(where, fmt.Sprintf("team_id = ANY($%d)", len(args)))
	}

	query := `SELECT ` + residentColumns + ` FROM residents`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY last_name, first_name`

	return s.queryResidents(ctx, query, args...)
}

// ListActiveResidents returns the residents the alert sweep evaluates.
func (s *PostgresStore) ListActiveResidents(ctx context.Context) ([]models.Resident, error) {
	return s.queryResidents(ctx,
		`SELECT `+residentColumns+` FROM residents WHERE status = $1 ORDER BY id`,
		models.ResidentActive,
	)
}

func (s *PostgresStore) queryResidents(ctx context.Context, query string, args ...any) ([]models.Resident, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var residents []models.Resident
	for rows.Next() {
		r, err := scanResident(rows)
		if err != nil {
			return nil, err
		}
		residents = append(residents, r)
	}
	return residents, rows.Err()
}

func (s *PostgresStore) UpdateResident(ctx context.Context, r *models.Resident) error {
	err := s.db.QueryRowContext(ctx,
		`UPDATE residents SET organization_id = $1, team_id = $2, first_name = $3, last_name = $4,
			preferred_name = $5, room_number = $6, date_of_birth = $7, updated_at = NOW()
		 WHERE id = $8
		 RETURNING updated_at`,
		r.OrganizationID, nullInt(r.TeamID), r.FirstName, r.LastName,
		r.PreferredName, r.RoomNumber, nullTime(r.DateOfBirth), r.ID,
	).Scan(&r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("resident %d: %w", r.ID, ErrNotFound)
	}
	return err
}

// SetResidentStatus is the only way a resident leaves the sweep; rows are
// never deleted.
func (s *PostgresStore) SetResidentStatus(ctx context.Context, id int, status string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE residents SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return err
	}
	return expectAffected(result, "resident", id)
}
