package models

import "time"

type Incident struct {
	ID          int64     `json:"id"`
	Reference   string    `json:"reference"`
	ResidentID  int       `json:"resident_id"`
	Severity    string    `json:"severity"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	ReportedBy  int       `json:"reported_by,omitempty"`
	Source      string    `json:"source"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
}
