package models

import (
	"strings"
	"time"
)

const (
	ResidentActive     = "active"
	ResidentInactive   = "inactive"
	ResidentDischarged = "discharged"
)

// Resident is a person in care. Residents are never deleted; leaving the
// home flips Status away from "active".
type Resident struct {
	ID             int        `json:"id"`
	OrganizationID string     `json:"organization_id"`
	TeamID         int        `json:"team_id,omitempty"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	PreferredName  string     `json:"preferred_name,omitempty"`
	RoomNumber     string     `json:"room_number,omitempty"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	Status         string     `json:"status"`
	AdmittedAt     time.Time  `json:"admitted_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (r Resident) IsActive() bool {
	return r.Status == ResidentActive
}

// DisplayName prefers the name the resident likes to be called by.
func (r Resident) DisplayName() string {
	first := r.FirstName
	if r.PreferredName != "" {
		first = r.PreferredName
	}
	return strings.TrimSpace(first + " " + r.LastName)
}

func ValidResidentStatus(s string) bool {
	return s == ResidentActive || s == ResidentInactive || s == ResidentDischarged
}
