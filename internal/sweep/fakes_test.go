package sweep

import (
	"context"
	"sync"
	"time"

	"carehome-go/internal/models"
	"carehome-go/internal/store"
)

type fakeResidents struct {
	store.ResidentStore
	residents []models.Resident
	err       error
}

// ListActiveResidents returns every resident unfiltered so the sweeper's own
// status check is exercised.
func (f *fakeResidents) ListActiveResidents(context.Context) ([]models.Resident, error) {
	return f.residents, f.err
}

type fakeLogs struct {
	store.CareLogStore
	lastFood     map[int]*time.Time
	lastFluid    map[int]*time.Time
	fluidTotal   map[int]int
	intakes      map[int][]models.MedicationIntake
	nightConfigs map[int][]models.NightCheckConfig
	lastNight    map[int]*time.Time
}

func newFakeLogs() *fakeLogs {
	return &fakeLogs{
		lastFood:     map[int]*time.Time{},
		lastFluid:    map[int]*time.Time{},
		fluidTotal:   map[int]int{},
		intakes:      map[int][]models.MedicationIntake{},
		nightConfigs: map[int][]models.NightCheckConfig{},
		lastNight:    map[int]*time.Time{},
	}
}

func (f *fakeLogs) LastFoodFluidAt(_ context.Context, residentID int, kind string) (*time.Time, error) {
	if kind == models.IntakeFood {
		return f.lastFood[residentID], nil
	}
	return f.lastFluid[residentID], nil
}

func (f *fakeLogs) FluidTotalSince(_ context.Context, residentID int, _ time.Time) (int, error) {
	return f.fluidTotal[residentID], nil
}

func (f *fakeLogs) PendingMedicationIntakes(_ context.Context, residentID int, from, to time.Time) ([]models.MedicationIntake, error) {
	var out []models.MedicationIntake
	for _, in := range f.intakes[residentID] {
		if in.Status == models.MedicationScheduled && !in.ScheduledTime.Before(from) && in.ScheduledTime.Before(to) {
			out = append(out, in)
		}
	}
	return out, nil
}

func (f *fakeLogs) ListNightCheckConfigs(_ context.Context, residentID int) ([]models.NightCheckConfig, error) {
	return f.nightConfigs[residentID], nil
}

func (f *fakeLogs) LastNightCheckAt(_ context.Context, residentID, _ int) (*time.Time, error) {
	return f.lastNight[residentID], nil
}

type memAlerts struct {
	store.AlertStore
	mu     sync.Mutex
	alerts []models.Alert
}

func (m *memAlerts) FindOpenAlert(_ context.Context, residentID int, alertType, dedupKey string) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		a := m.alerts[i]
		if a.ResidentID == residentID && a.AlertType == alertType && a.DedupKey == dedupKey && !a.IsResolved {
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memAlerts) CreateAlert(_ context.Context, a *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = int64(len(m.alerts) + 1)
	m.alerts = append(m.alerts, *a)
	return nil
}

func (m *memAlerts) ResolveOpenAlerts(_ context.Context, residentID int, alertType, dedupKey string, _ *int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.alerts {
		a := &m.alerts[i]
		if a.ResidentID == residentID && a.AlertType == alertType && a.DedupKey == dedupKey && !a.IsResolved {
			a.IsResolved = true
			n++
		}
	}
	return n, nil
}

func (m *memAlerts) snapshot() []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Alert(nil), m.alerts...)
}

func (m *memAlerts) ofType(alertType string) []models.Alert {
	var out []models.Alert
	for _, a := range m.snapshot() {
		if a.AlertType == alertType {
			out = append(out, a)
		}
	}
	return out
}
