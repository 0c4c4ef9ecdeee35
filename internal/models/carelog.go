package models

import "time"

const (
	IntakeFood  = "food"
	IntakeFluid = "fluid"
)

// FoodFluidLog records a single meal, snack or drink.
type FoodFluidLog struct {
	ID          int64     `json:"id"`
	ResidentID  int       `json:"resident_id"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	AmountML    int       `json:"amount_ml,omitempty"`
	Portion     string    `json:"portion,omitempty"`
	RecordedBy  int       `json:"recorded_by"`
	RecordedAt  time.Time `json:"recorded_at"`
}

const (
	MedicationScheduled    = "scheduled"
	MedicationAdministered = "administered"
	MedicationRefused      = "refused"
	MedicationMissed       = "missed"
)

// MedicationIntake is one scheduled dose on a resident's chart.
type MedicationIntake struct {
	ID             int64      `json:"id"`
	ResidentID     int        `json:"resident_id"`
	MedicationName string     `json:"medication_name"`
	Dosage         string     `json:"dosage"`
	ScheduledTime  time.Time  `json:"scheduled_time"`
	Status         string     `json:"status"`
	AdministeredAt *time.Time `json:"administered_at,omitempty"`
	AdministeredBy *int       `json:"administered_by,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

func (m MedicationIntake) Pending() bool {
	return m.Status == MedicationScheduled
}

// NightCheckConfig describes how often a resident is checked overnight.
// The window wraps midnight when StartHour > EndHour.
type NightCheckConfig struct {
	ID              int       `json:"id"`
	ResidentID      int       `json:"resident_id"`
	StartHour       int       `json:"start_hour"`
	EndHour         int       `json:"end_hour"`
	IntervalMinutes int       `json:"interval_minutes"`
	IsActive        bool      `json:"is_active"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type NightCheck struct {
	ID         int64     `json:"id"`
	ResidentID int       `json:"resident_id"`
	ConfigID   int       `json:"config_id"`
	CheckedAt  time.Time `json:"checked_at"`
	CheckedBy  int       `json:"checked_by"`
	Notes      string    `json:"notes,omitempty"`
}
