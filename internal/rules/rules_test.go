package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carehome-go/internal/models"
)

var london = mustLoad("Europe/London")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, london)
}

func ptr(t time.Time) *time.Time { return &t }

func TestDefaultConfig_Validates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Food.CutoffHour = 24
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Fluid.WindowStartHour = 20
	cfg.Fluid.WindowEndHour = 8
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}

func TestFoodMissed(t *testing.T) {
	cfg := DefaultConfig().Food

	t.Run("before cutoff", func(t *testing.T) {
		assert.Nil(t, FoodMissed(at(11, 59), nil, cfg))
	})

	t.Run("no meals at cutoff", func(t *testing.T) {
		d := FoodMissed(at(12, 0), nil, cfg)
		require.NotNil(t, d)
		assert.Equal(t, models.AlertFoodMissed, d.AlertType)
		assert.Equal(t, models.SeverityCritical, d.Severity)
		assert.Equal(t, "2026-03-10", d.PeriodKey)
		assert.Contains(t, d.Message, "No meals are on record")
	})

	t.Run("last meal yesterday", func(t *testing.T) {
		d := FoodMissed(at(13, 0), ptr(at(13, 0).Add(-24*time.Hour-90*time.Minute)), cfg)
		require.NotNil(t, d)
		assert.Contains(t, d.Message, "25 hours 30 minutes ago")
	})

	t.Run("breakfast logged", func(t *testing.T) {
		assert.Nil(t, FoodMissed(at(15, 0), ptr(at(8, 30)), cfg))
	})

	t.Run("disabled", func(t *testing.T) {
		off := cfg
		off.Enabled = false
		assert.Nil(t, FoodMissed(at(15, 0), nil, off))
	})
}

func TestFluidGap(t *testing.T) {
	cfg := DefaultConfig().Fluid

	assert.Nil(t, FluidGap(at(7, 0), nil, cfg), "before window")
	assert.Nil(t, FluidGap(at(20, 30), nil, cfg), "after window")
	assert.Nil(t, FluidGap(at(10, 59), nil, cfg), "gap from window start under threshold")

	d := FluidGap(at(11, 0), nil, cfg)
	require.NotNil(t, d)
	assert.Equal(t, models.AlertFluidGap, d.AlertType)
	assert.Equal(t, "No fluids have been recorded for 3 hours.", d.Message)

	assert.Nil(t, FluidGap(at(14, 0), ptr(at(12, 0)), cfg))

	d = FluidGap(at(16, 10), ptr(at(13, 0)), cfg)
	require.NotNil(t, d)
	assert.Equal(t, "No fluids have been recorded for 3 hours 10 minutes.", d.Message)
}

func TestFluidLow(t *testing.T) {
	cfg := DefaultConfig().Fluid

	assert.Nil(t, FluidLow(at(17, 0), 0, cfg))
	assert.Nil(t, FluidLow(at(18, 0), 1500, cfg))

	d := FluidLow(at(18, 0), 800, cfg)
	require.NotNil(t, d)
	assert.Equal(t, models.SeverityWarning, d.Severity)
	assert.Equal(t, 800, d.Metadata["total_ml"])

	cfg.DailyTargetML = 0
	assert.Nil(t, FluidLow(at(19, 0), 0, cfg))
}

func TestNightWindow_WindowStart(t *testing.T) {
	w := NightWindow{StartHour: 22, EndHour: 7, IntervalMinutes: 120}

	start, ok := w.WindowStart(at(23, 0))
	require.True(t, ok)
	assert.Equal(t, at(22, 0), start)

	start, ok = w.WindowStart(at(3, 0))
	require.True(t, ok)
	assert.Equal(t, at(22, 0).AddDate(0, 0, -1), start)

	_, ok = w.WindowStart(at(12, 0))
	assert.False(t, ok)

	day := NightWindow{StartHour: 1, EndHour: 5, IntervalMinutes: 60}
	_, ok = day.WindowStart(at(0, 30))
	assert.False(t, ok)
	start, ok = day.WindowStart(at(2, 0))
	require.True(t, ok)
	assert.Equal(t, at(1, 0), start)
}

func TestWindowFor_FillsDefaults(t *testing.T) {
	cfg := DefaultConfig().Night

	w := WindowFor(models.NightCheckConfig{ID: 4}, cfg)
	assert.Equal(t, cfg.DefaultStartHour, w.StartHour)
	assert.Equal(t, cfg.DefaultEndHour, w.EndHour)
	assert.Equal(t, cfg.DefaultIntervalMinutes, w.IntervalMinutes)

	w = WindowFor(models.NightCheckConfig{ID: 4, StartHour: 21, EndHour: 6, IntervalMinutes: 60}, cfg)
	assert.Equal(t, NightWindow{ConfigID: 4, StartHour: 21, EndHour: 6, IntervalMinutes: 60}, w)
	assert.Equal(t, "4:2026-03-10", w.PeriodKey(at(21, 0)))
}

func TestNightCheckOverdue(t *testing.T) {
	cfg := DefaultConfig().Night
	w := NightWindow{ConfigID: 7, StartHour: 22, EndHour: 7, IntervalMinutes: 120}

	assert.Nil(t, NightCheckOverdue(at(18, 0), nil, w, cfg), "outside window")
	assert.Nil(t, NightCheckOverdue(at(0, 10).AddDate(0, 0, 1), nil, w, cfg), "within grace")

	d := NightCheckOverdue(at(0, 30).AddDate(0, 0, 1), nil, w, cfg)
	require.NotNil(t, d)
	assert.Equal(t, models.SeverityWarning, d.Severity)
	assert.Equal(t, "7:2026-03-10", d.PeriodKey)
	assert.Equal(t, "Night check overdue by 30 minutes. No check recorded since 22:00.", d.Message)

	last := at(23, 0)
	d = NightCheckOverdue(at(3, 30).AddDate(0, 0, 1), &last, w, cfg)
	require.NotNil(t, d)
	assert.Equal(t, models.SeverityCritical, d.Severity)
	assert.Contains(t, d.Message, "Last check was 4 hours 30 minutes ago.")

	last = at(1, 0).AddDate(0, 0, 1)
	assert.Nil(t, NightCheckOverdue(at(2, 30).AddDate(0, 0, 1), &last, w, cfg))
}

func TestMedication(t *testing.T) {
	cfg := DefaultConfig().Medication
	now := at(14, 0)
	dose := func(offset time.Duration) Dose {
		return Dose{IntakeID: 42, Name: "Paracetamol", Dosage: "500mg", Scheduled: now.Add(offset)}
	}

	t.Run("due in ten minutes", func(t *testing.T) {
		d := Medication(now, dose(10*time.Minute), cfg)
		require.NotNil(t, d)
		assert.Equal(t, models.AlertMedicationDue, d.AlertType)
		assert.Equal(t, models.SeverityInfo, d.Severity)
		assert.Equal(t, "42", d.PeriodKey)
		assert.Equal(t, "Paracetamol 500mg is due in 10 minutes (at 14:10).", d.Message)
	})

	t.Run("far in the future", func(t *testing.T) {
		assert.Nil(t, Medication(now, dose(2*time.Hour), cfg))
	})

	t.Run("just past due", func(t *testing.T) {
		assert.Nil(t, Medication(now, dose(-5*time.Minute), cfg))
	})

	t.Run("twenty minutes late", func(t *testing.T) {
		d := Medication(now, dose(-20*time.Minute), cfg)
		require.NotNil(t, d)
		assert.Equal(t, models.AlertMedicationOverdue, d.AlertType)
		assert.Equal(t, models.SeverityCritical, d.Severity)
		assert.Equal(t, "42", d.PeriodKey)
		assert.Equal(t, "Paracetamol 500mg is overdue by 20 minutes (scheduled 13:40).", d.Message)
	})
}
