// Package rules holds the care threshold checks run by the alert sweep.
//
// Every rule is a pure function of the current time, the time of the last
// relevant care event and its configuration. A rule returns a *Decision when
// its threshold is unmet and nil otherwise. The caller passes now in the care
// home's local time zone; day and night boundaries are computed in now's
// location.
package rules

import (
	"fmt"
	"time"
)

// Decision describes an alert a rule wants raised.
type Decision struct {
	AlertType string
	Severity  string
	Title     string
	Message   string
	// PeriodKey names the logical period the decision covers, e.g. a date
	// or an intake id. The sink deduplicates on it.
	PeriodKey string
	Metadata  map[string]any
}

// Config is the full set of thresholds, loadable from YAML.
type Config struct {
	Timezone   string           `yaml:"timezone"`
	Food       FoodConfig       `yaml:"food"`
	Fluid      FluidConfig      `yaml:"fluid"`
	Night      NightConfig      `yaml:"night"`
	Medication MedicationConfig `yaml:"medication"`
}

type FoodConfig struct {
	Enabled    bool `yaml:"enabled"`
	CutoffHour int  `yaml:"cutoff_hour"`
}

type FluidConfig struct {
	Enabled         bool `yaml:"enabled"`
	WindowStartHour int  `yaml:"window_start_hour"`
	WindowEndHour   int  `yaml:"window_end_hour"`
	MaxGapMinutes   int  `yaml:"max_gap_minutes"`
	DailyTargetML   int  `yaml:"daily_target_ml"`
	TargetCheckHour int  `yaml:"target_check_hour"`
}

type NightConfig struct {
	Enabled                bool `yaml:"enabled"`
	GraceMinutes           int  `yaml:"grace_minutes"`
	DefaultStartHour       int  `yaml:"default_start_hour"`
	DefaultEndHour         int  `yaml:"default_end_hour"`
	DefaultIntervalMinutes int  `yaml:"default_interval_minutes"`
}

type MedicationConfig struct {
	Enabled             bool `yaml:"enabled"`
	DueSoonMinutes      int  `yaml:"due_soon_minutes"`
	OverdueAfterMinutes int  `yaml:"overdue_after_minutes"`
	LookbackHours       int  `yaml:"lookback_hours"`
}

func DefaultConfig() Config {
	return Config{
		Timezone: "Europe/London",
		Food: FoodConfig{
			Enabled:    true,
			CutoffHour: 12,
		},
		Fluid: FluidConfig{
			Enabled:         true,
			WindowStartHour: 8,
			WindowEndHour:   20,
			MaxGapMinutes:   180,
			DailyTargetML:   1500,
			TargetCheckHour: 18,
		},
		Night: NightConfig{
			Enabled:                true,
			GraceMinutes:           15,
			DefaultStartHour:       22,
			DefaultEndHour:         7,
			DefaultIntervalMinutes: 120,
		},
		Medication: MedicationConfig{
			Enabled:             true,
			DueSoonMinutes:      15,
			OverdueAfterMinutes: 15,
			LookbackHours:       12,
		},
	}
}

// Validate rejects thresholds that would make a rule meaningless.
func (c Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	hours := map[string]int{
		"food.cutoff_hour":         c.Food.CutoffHour,
		"fluid.window_start_hour":  c.Fluid.WindowStartHour,
		"fluid.window_end_hour":    c.Fluid.WindowEndHour,
		"fluid.target_check_hour":  c.Fluid.TargetCheckHour,
		"night.default_start_hour": c.Night.DefaultStartHour,
		"night.default_end_hour":   c.Night.DefaultEndHour,
	}
	for name, h := range hours {
		if h < 0 || h > 23 {
			return fmt.Errorf("%s must be between 0 and 23, got %d", name, h)
		}
	}
	if c.Fluid.WindowStartHour >= c.Fluid.WindowEndHour {
		return fmt.Errorf("fluid window start (%d) must be before end (%d)", c.Fluid.WindowStartHour, c.Fluid.WindowEndHour)
	}
	if c.Fluid.MaxGapMinutes <= 0 {
		return fmt.Errorf("fluid.max_gap_minutes must be positive")
	}
	if c.Night.DefaultIntervalMinutes <= 0 {
		return fmt.Errorf("night.default_interval_minutes must be positive")
	}
	if c.Medication.DueSoonMinutes < 0 || c.Medication.OverdueAfterMinutes < 0 {
		return fmt.Errorf("medication thresholds must not be negative")
	}
	if c.Medication.LookbackHours <= 0 {
		return fmt.Errorf("medication.lookback_hours must be positive")
	}
	return nil
}

// Location resolves Timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func atHour(day time.Time, hour int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, day.Location())
}

func minutesBetween(from, to time.Time) int {
	return int(to.Sub(from) / time.Minute)
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// DayStart returns midnight of t's day in t's location.
func DayStart(t time.Time) time.Time {
	return startOfDay(t)
}

// DayKey is the dedup key of the local day containing t.
func DayKey(t time.Time) string {
	return dateKey(t)
}
