package rules

import (
	"fmt"
	"time"

	"carehome-go/internal/models"
)

// FluidGap fires during the daytime window when no drink has been recorded
// for MaxGapMinutes. The gap is measured from the window start if the last
// drink was before it.
func FluidGap(now time.Time, lastDrink *time.Time, cfg FluidConfig) *Decision {
	if !cfg.Enabled {
		return nil
	}
	if now.Hour() < cfg.WindowStartHour || now.Hour() >= cfg.WindowEndHour {
		return nil
	}

	ref := atHour(now, cfg.WindowStartHour)
	if lastDrink != nil && lastDrink.After(ref) {
		ref = *lastDrink
	}
	gap := minutesBetween(ref, now)
	if gap < cfg.MaxGapMinutes {
		return nil
	}

	meta := map[string]any{
		"date":        dateKey(now),
		"gap_minutes": gap,
	}
	if lastDrink != nil {
		meta["last_drink_at"] = lastDrink.UTC().Format(time.RFC3339)
	}

	return &Decision{
		AlertType: models.AlertFluidGap,
		Severity:  models.SeverityWarning,
		Title:     "No fluids recorded",
		Message:   fmt.Sprintf("No fluids have been recorded for %s.", FormatDuration(gap)),
		PeriodKey: dateKey(now),
		Metadata:  meta,
	}
}

// FluidLow fires after TargetCheckHour when the day's total is under target.
// A zero target disables the check.
func FluidLow(now time.Time, totalML int, cfg FluidConfig) *Decision {
	if !cfg.Enabled || cfg.DailyTargetML <= 0 {
		return nil
	}
	if now.Hour() < cfg.TargetCheckHour || totalML >= cfg.DailyTargetML {
		return nil
	}

	return &Decision{
		AlertType: models.AlertFluidLow,
		Severity:  models.SeverityWarning,
		Title:     "Fluid intake below target",
		Message:   fmt.Sprintf("Only %d ml of the %d ml daily target has been recorded today.", totalML, cfg.DailyTargetML),
		PeriodKey: dateKey(now),
		Metadata: map[string]any{
			"date":      dateKey(now),
			"total_ml":  totalML,
			"target_ml": cfg.DailyTargetML,
		},
	}
}
