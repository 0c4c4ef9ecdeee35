package rules

import (
	"fmt"
	"time"

	"carehome-go/internal/models"
)

// NightWindow is one resident's night-check schedule.
type NightWindow struct {
	ConfigID        int
	StartHour       int
	EndHour         int
	IntervalMinutes int
}

// WindowStart returns the start of the night window containing now.
// Windows with StartHour > EndHour wrap midnight.
func (w NightWindow) WindowStart(now time.Time) (time.Time, bool) {
	h := now.Hour()
	switch {
	case w.StartHour == w.EndHour:
		return time.Time{}, false
	case w.StartHour > w.EndHour:
		if h >= w.StartHour {
			return atHour(now, w.StartHour), true
		}
		if h < w.EndHour {
			return atHour(startOfDay(now).AddDate(0, 0, -1), w.StartHour), true
		}
		return time.Time{}, false
	default:
		if h >= w.StartHour && h < w.EndHour {
			return atHour(now, w.StartHour), true
		}
		return time.Time{}, false
	}
}

// WindowFor builds the window for a stored config, filling unset hours and
// interval from the configured defaults.
func WindowFor(c models.NightCheckConfig, defaults NightConfig) NightWindow {
	w := NightWindow{
		ConfigID:        c.ID,
		StartHour:       c.StartHour,
		EndHour:         c.EndHour,
		IntervalMinutes: c.IntervalMinutes,
	}
	if w.StartHour == w.EndHour {
		w.StartHour = defaults.DefaultStartHour
		w.EndHour = defaults.DefaultEndHour
	}
	if w.IntervalMinutes <= 0 {
		w.IntervalMinutes = defaults.DefaultIntervalMinutes
	}
	return w
}

// PeriodKey is the dedup key of the night that started at start.
func (w NightWindow) PeriodKey(start time.Time) string {
	return fmt.Sprintf("%d:%s", w.ConfigID, dateKey(start))
}

// NightCheckOverdue fires when the next check, due IntervalMinutes after the
// last one (or after the window opened), is more than GraceMinutes late.
// Being late by more than a whole interval escalates to critical.
func NightCheckOverdue(now time.Time, lastCheck *time.Time, window NightWindow, cfg NightConfig) *Decision {
	if !cfg.Enabled || window.IntervalMinutes <= 0 {
		return nil
	}
	start, ok := window.WindowStart(now)
	if !ok {
		return nil
	}

	ref := start
	if lastCheck != nil && lastCheck.After(ref) {
		ref = *lastCheck
	}
	due := ref.Add(time.Duration(window.IntervalMinutes) * time.Minute)
	late := minutesBetween(due, now)
	if late <= cfg.GraceMinutes {
		return nil
	}

	severity := models.SeverityWarning
	if late > window.IntervalMinutes {
		severity = models.SeverityCritical
	}

	msg := fmt.Sprintf("Night check overdue by %s.", FormatDuration(late))
	if ref.Equal(start) {
		msg += fmt.Sprintf(" No check recorded since %s.", start.Format("15:04"))
	} else {
		msg += fmt.Sprintf(" Last check was %s ago.", FormatDuration(minutesBetween(ref, now)))
	}

	return &Decision{
		AlertType: models.AlertNightCheckOverdue,
		Severity:  severity,
		Title:     "Night check overdue",
		Message:   msg,
		PeriodKey: window.PeriodKey(start),
		Metadata: map[string]any{
			"config_id":    window.ConfigID,
			"night_of":     dateKey(start),
			"due_at":       due.UTC().Format(time.RFC3339),
			"late_minutes": late,
		},
	}
}
