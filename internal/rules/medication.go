package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"carehome-go/internal/models"
)

// Dose is a pending medication intake as seen by the rules.
type Dose struct {
	IntakeID  int64
	Name      string
	Dosage    string
	Scheduled time.Time
}

func (d Dose) label() string {
	return strings.TrimSpace(d.Name + " " + d.Dosage)
}

// Medication decides between a due-soon notice and an overdue alert for one
// pending dose. The two outcomes are mutually exclusive: a dose is either
// still ahead of its scheduled time or behind it.
func Medication(now time.Time, dose Dose, cfg MedicationConfig) *Decision {
	if !cfg.Enabled {
		return nil
	}
	until := dose.Scheduled.Sub(now)
	meta := map[string]any{
		"intake_id":      dose.IntakeID,
		"scheduled_time": dose.Scheduled.UTC().Format(time.RFC3339),
	}
	at := dose.Scheduled.In(now.Location()).Format("15:04")

	if until > 0 {
		if until > time.Duration(cfg.DueSoonMinutes)*time.Minute {
			return nil
		}
		mins := int(until.Round(time.Minute) / time.Minute)
		return &Decision{
			AlertType: models.AlertMedicationDue,
			Severity:  models.SeverityInfo,
			Title:     "Medication due soon",
			Message:   fmt.Sprintf("%s is due in %s (at %s).", dose.label(), FormatDuration(mins), at),
			PeriodKey: strconv.FormatInt(dose.IntakeID, 10),
			Metadata:  meta,
		}
	}

	late := -until
	if late <= time.Duration(cfg.OverdueAfterMinutes)*time.Minute {
		return nil
	}
	mins := int(late / time.Minute)
	meta["late_minutes"] = mins
	return &Decision{
		AlertType: models.AlertMedicationOverdue,
		Severity:  models.SeverityCritical,
		Title:     "Medication overdue",
		Message:   fmt.Sprintf("%s is overdue by %s (scheduled %s).", dose.label(), FormatDuration(mins), at),
		PeriodKey: strconv.FormatInt(dose.IntakeID, 10),
		Metadata:  meta,
	}
}
