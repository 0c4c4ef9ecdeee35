package sweep

import (
	"context"
	"fmt"
	"time"

	"carehome-go/internal/models"
	"carehome-go/internal/rules"
	"carehome-go/internal/store"
)

// Evaluator checks one care domain for a single resident. now is already in
// the care home's local time and cfg is the snapshot for the whole pass.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, r models.Resident, now time.Time, cfg rules.Config) ([]rules.Decision, error)
}

func collect(ds ...*rules.Decision) []rules.Decision {
	var out []rules.Decision
	for _, d := range ds {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out
}

// FoodEvaluator raises missed-meal alerts.
type FoodEvaluator struct {
	Logs store.CareLogStore
}

func (e FoodEvaluator) Name() string { return "food" }

func (e FoodEvaluator) Evaluate(ctx context.Context, r models.Resident, now time.Time, cfg rules.Config) ([]rules.Decision, error) {
	if !cfg.Food.Enabled || now.Hour() < cfg.Food.CutoffHour {
		return nil, nil
	}
	last, err := e.Logs.LastFoodFluidAt(ctx, r.ID, models.IntakeFood)
	if err != nil {
		return nil, err
	}
	return collect(rules.FoodMissed(now, last, cfg.Food)), nil
}

// FluidEvaluator raises fluid gap and daily fluid target alerts.
type FluidEvaluator struct {
	Logs store.CareLogStore
}

func (e FluidEvaluator) Name() string { return "fluid" }

func (e FluidEvaluator) Evaluate(ctx context.Context, r models.Resident, now time.Time, cfg rules.Config) ([]rules.Decision, error) {
	if !cfg.Fluid.Enabled {
		return nil, nil
	}
	last, err := e.Logs.LastFoodFluidAt(ctx, r.ID, models.IntakeFluid)
	if err != nil {
		return nil, err
	}
	decisions := collect(rules.FluidGap(now, last, cfg.Fluid))

	if now.Hour() >= cfg.Fluid.TargetCheckHour {
		total, err := e.Logs.FluidTotalSince(ctx, r.ID, rules.DayStart(now))
		if err != nil {
			return decisions, err
		}
		decisions = append(decisions, collect(rules.FluidLow(now, total, cfg.Fluid))...)
	}
	return decisions, nil
}

// NightEvaluator raises overdue night-check alerts for each of the
// resident's active night-check configs.
type NightEvaluator struct {
	Logs store.CareLogStore
}

func (e NightEvaluator) Name() string { return "night" }

func (e NightEvaluator) Evaluate(ctx context.Context, r models.Resident, now time.Time, cfg rules.Config) ([]rules.Decision, error) {
	if !cfg.Night.Enabled {
		return nil, nil
	}
	configs, err := e.Logs.ListNightCheckConfigs(ctx, r.ID)
	if err != nil {
		return nil, err
	}

	var decisions []rules.Decision
	for _, c := range configs {
		if !c.IsActive {
			continue
		}
		window := rules.WindowFor(c, cfg.Night)
		if _, inside := window.WindowStart(now); !inside {
			continue
		}
		last, err := e.Logs.LastNightCheckAt(ctx, r.ID, c.ID)
		if err != nil {
			return decisions, fmt.Errorf("night config %d: %w", c.ID, err)
		}
		decisions = append(decisions, collect(rules.NightCheckOverdue(now, last, window, cfg.Night))...)
	}
	return decisions, nil
}

// MedicationEvaluator raises due-soon and overdue alerts for pending doses
// scheduled between LookbackHours ago and the due-soon horizon.
type MedicationEvaluator struct {
	Logs store.CareLogStore
}

func (e MedicationEvaluator) Name() string { return "medication" }

func (e MedicationEvaluator) Evaluate(ctx context.Context, r models.Resident, now time.Time, cfg rules.Config) ([]rules.Decision, error) {
	mc := cfg.Medication
	if !mc.Enabled {
		return nil, nil
	}
	from := now.Add(-time.Duration(mc.LookbackHours) * time.Hour)
	to := now.Add(time.Duration(mc.DueSoonMinutes)*time.Minute + time.Minute)

	intakes, err := e.Logs.PendingMedicationIntakes(ctx, r.ID, from, to)
	if err != nil {
		return nil, err
	}

	var decisions []rules.Decision
	for _, in := range intakes {
		if !in.Pending() {
			continue
		}
		dose := rules.Dose{
			IntakeID:  in.ID,
			Name:      in.MedicationName,
			Dosage:    in.Dosage,
			Scheduled: in.ScheduledTime,
		}
		decisions = append(decisions, collect(rules.Medication(now, dose, mc))...)
	}
	return decisions, nil
}
