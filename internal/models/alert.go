package models

import "time"

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

const (
	AlertFoodMissed        = "food_missed"
	AlertFluidGap          = "fluid_gap"
	AlertFluidLow          = "fluid_low"
	AlertNightCheckOverdue = "night_check_overdue"
	AlertMedicationDue     = "medication_due"
	AlertMedicationOverdue = "medication_overdue"
	AlertIncident          = "incident"
)

// Alert is a persisted notification for an unmet care threshold.
// DedupKey identifies the logical period the alert covers; at most one
// unresolved alert exists per (ResidentID, AlertType, DedupKey).
type Alert struct {
	ID             int64          `json:"id"`
	ResidentID     int            `json:"resident_id"`
	OrganizationID string         `json:"organization_id"`
	TeamID         int            `json:"team_id,omitempty"`
	AlertType      string         `json:"alert_type"`
	Severity       string         `json:"severity"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	DedupKey       string         `json:"dedup_key"`
	IsResolved     bool           `json:"is_resolved"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	ResolvedBy     *int           `json:"resolved_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// AlertFilter narrows alert listings. Zero values are ignored.
type AlertFilter struct {
	Status     string // "open", "resolved" or "" for both
	Severity   string
	AlertType  string
	ResidentID int
	TeamIDs    []int
	Query      string
	Limit      int
}

func ValidSeverity(s string) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}
