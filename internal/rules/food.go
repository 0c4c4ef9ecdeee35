package rules

import (
	"fmt"
	"time"

	"carehome-go/internal/models"
)

// FoodMissed fires once the cutoff hour has passed without a food entry
// since local midnight.
func FoodMissed(now time.Time, lastMeal *time.Time, cfg FoodConfig) *Decision {
	if !cfg.Enabled {
		return nil
	}
	dayStart := startOfDay(now)
	if now.Before(atHour(now, cfg.CutoffHour)) {
		return nil
	}
	if lastMeal != nil && !lastMeal.Before(dayStart) {
		return nil
	}

	msg := fmt.Sprintf("No food has been logged today (expected by %02d:00).", cfg.CutoffHour)
	meta := map[string]any{"date": dateKey(dayStart)}
	if lastMeal != nil {
		msg += fmt.Sprintf(" Last meal was recorded %s ago.", FormatDuration(minutesBetween(*lastMeal, now)))
		meta["last_meal_at"] = lastMeal.UTC().Format(time.RFC3339)
	} else {
		msg += " No meals are on record."
	}

	return &Decision{
		AlertType: models.AlertFoodMissed,
		Severity:  models.SeverityCritical,
		Title:     "No food logged",
		Message:   msg,
		PeriodKey: dateKey(dayStart),
		Metadata:  meta,
	}
}
