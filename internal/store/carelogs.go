package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carehome-go/internal/models"
)

// Food and fluid

func (s *PostgresStore) AddFoodFluidLog(ctx context.Context, l *models.FoodFluidLog) error {
	return s.db.QueryRowContext(ctx,
		`INSERT INTO food_fluid_logs (resident_id, kind, description, amount_ml, portion, recorded_by, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		l.ResidentID, l.Kind, l.Description, l.AmountML, l.Portion, nullInt(l.RecordedBy), l.RecordedAt,
	).Scan(&l.ID)
}

func (s *PostgresStore) ListFoodFluidLogs(ctx context.Context, residentID int, since time.Time) ([]models.FoodFluidLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, resident_id, kind, description, amount_ml, portion, COALESCE(recorded_by, 0), recorded_at
		 FROM food_fluid_logs
		 WHERE resident_id = $1 AND recorded_at >= $2
		 ORDER BY recorded_at DESC`,
		residentID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.FoodFluidLog
	for rows.Next() {
		var l models.FoodFluidLog
		if err := rows.Scan(&l.ID, &l.ResidentID, &l.Kind, &l.Description, &l.AmountML, &l.Portion, &l.RecordedBy, &l.RecordedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// LastFoodFluidAt returns the newest entry time of the given kind, or nil
// when the resident has none.
func (s *PostgresStore) LastFoodFluidAt(ctx context.Context, residentID int, kind string) (*time.Time, error) {
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(recorded_at) FROM food_fluid_logs WHERE resident_id = $1 AND kind = $2`,
		residentID, kind,
	).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("last %s entry for resident %d: %w", kind, residentID, err)
	}
	return timePtr(last), nil
}

func (s *PostgresStore) FluidTotalSince(ctx context.Context, residentID int, since time.Time) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_ml), 0) FROM food_fluid_logs
		 WHERE resident_id = $1 AND kind = $2 AND recorded_at >= $3`,
		residentID, models.IntakeFluid, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("fluid total for resident %d: %w", residentID, err)
	}
	return total, nil
}

// Medication

const intakeColumns = `id, resident_id, medication_name, dosage, scheduled_time, status,
	administered_at, administered_by, notes`

func scanIntake(row rowScanner) (models.MedicationIntake, error) {
	var m models.MedicationIntake
	var administeredAt sql.NullTime
	var administeredBy sql.NullInt64
	if err := row.Scan(&m.ID, &m.ResidentID, &m.MedicationName, &m.Dosage, &m.ScheduledTime, &m.Status,
		&administeredAt, &administeredBy, &m.Notes); err != nil {
		return models.MedicationIntake{}, err
	}
	m.AdministeredAt = timePtr(administeredAt)
	if administeredBy.Valid {
		by := int(administeredBy.Int64)
		m.AdministeredBy = &by
	}
	return m, nil
}

func (s *PostgresStore) ScheduleMedication(ctx context.Context, m *models.MedicationIntake) error {
	if m.Status == "" {
		m.Status = models.MedicationScheduled
	}
	return s.db.QueryRowContext(ctx,
		`INSERT INTO medication_intakes (resident_id, medication_name, dosage, scheduled_time, status, notes)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		m.ResidentID, m.MedicationName, m.Dosage, m.ScheduledTime, m.Status, m.Notes,
	).Scan(&m.ID)
}

func (s *PostgresStore) GetMedicationIntake(ctx context.Context, id int64) (models.MedicationIntake, error) {
	m, err := scanIntake(s.db.QueryRowContext(ctx,
		`SELECT `+intakeColumns+` FROM medication_intakes WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.MedicationIntake{}, fmt.Errorf("medication intake %d: %w", id, ErrNotFound)
	}
	return m, err
}

func (s *PostgresStore) ListMedicationIntakes(ctx context.Context, residentID int, from, to time.Time) ([]models.MedicationIntake, error) {
	return s.queryIntakes(ctx,
		`SELECT `+intakeColumns+` FROM medication_intakes
		 WHERE resident_id = $1 AND scheduled_time >= $2 AND scheduled_time < $3
		 ORDER BY scheduled_time`,
		residentID, from, to,
	)
}

// PendingMedicationIntakes lists doses still marked scheduled within [from, to).
func (s *PostgresStore) PendingMedicationIntakes(ctx context.Context, residentID int, from, to time.Time) ([]models.MedicationIntake, error) {
	return s.queryIntakes(ctx,
		`SELECT `+intakeColumns+` FROM medication_intakes
		 WHERE resident_id = $1 AND status = $2 AND scheduled_time >= $3 AND scheduled_time < $4
		 ORDER BY scheduled_time`,
		residentID, models.MedicationScheduled, from, to,
	)
}

func (s *PostgresStore) queryIntakes(ctx context.Context, query string, args ...any) ([]models.MedicationIntake, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intakes []models.MedicationIntake
	for rows.Next() {
		m, err := scanIntake(rows)
		if err != nil {
			return nil, err
		}
		intakes = append(intakes, m)
	}
	return intakes, rows.Err()
}

// RecordMedicationOutcome closes a pending dose. Doses that already have an
// outcome are left untouched and reported as not found.
func (s *PostgresStore) RecordMedicationOutcome(ctx context.Context, id int64, status string, by int, at time.Time, notes string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE medication_intakes
		 SET status = $1, administered_at = $2, administered_by = $3, notes = $4
		 WHERE id = $5 AND status = $6`,
		status, at, nullInt(by), notes, id, models.MedicationScheduled,
	)
	if err != nil {
		return err
	}
	return expectAffected(result, "pending medication intake", id)
}

// Night checks

func (s *PostgresStore) UpsertNightCheckConfig(ctx context.Context, c *models.NightCheckConfig) error {
	return s.db.QueryRowContext(ctx,
		`INSERT INTO night_check_configs (resident_id, start_hour, end_hour, interval_minutes, is_active, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (resident_id) DO UPDATE SET
			start_hour = EXCLUDED.start_hour,
			end_hour = EXCLUDED.end_hour,
			interval_minutes = EXCLUDED.interval_minutes,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		 RETURNING id, updated_at`,
		c.ResidentID, c.StartHour, c.EndHour, c.IntervalMinutes, c.IsActive,
	).Scan(&c.ID, &c.UpdatedAt)
}

// ListNightCheckConfigs returns the resident's active configs.
func (s *PostgresStore) ListNightCheckConfigs(ctx context.Context, residentID int) ([]models.NightCheckConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, resident_id, start_hour, end_hour, interval_minutes, is_active, updated_at
		 FROM night_check_configs WHERE resident_id = $1 AND is_active`,
		residentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []models.NightCheckConfig
	for rows.Next() {
		var c models.NightCheckConfig
		if err := rows.Scan(&c.ID, &c.ResidentID, &c.StartHour, &c.EndHour, &c.IntervalMinutes, &c.IsActive, &c.UpdatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

func (s *PostgresStore) AddNightCheck(ctx context.Context, c *models.NightCheck) error {
	return s.db.QueryRowContext(ctx,
		`INSERT INTO night_checks (resident_id, config_id, checked_at, checked_by, notes)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		c.ResidentID, c.ConfigID, c.CheckedAt, nullInt(c.CheckedBy), c.Notes,
	).Scan(&c.ID)
}

func (s *PostgresStore) LastNightCheckAt(ctx context.Context, residentID, configID int) (*time.Time, error) {
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(checked_at) FROM night_checks WHERE resident_id = $1 AND config_id = $2`,
		residentID, configID,
	).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("last night check for resident %d: %w", residentID, err)
	}
	return timePtr(last), nil
}
