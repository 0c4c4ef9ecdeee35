package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"carehome-go/internal/alerts"
	"carehome-go/internal/models"
	"carehome-go/internal/rules"
	"carehome-go/internal/store"
	"carehome-go/internal/sweep"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var london = func() *time.Location {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		panic(err)
	}
	return loc
}()

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, london)
}

type fakeAdmin struct {
	store.AdminStore
	mu       sync.Mutex
	users    map[int]models.User
	teams    map[int][]models.Team
	audits   []string
	removed  []int
	assigned []int
}

func newFakeAdmin() *fakeAdmin {
	return &fakeAdmin{users: map[int]models.User{}, teams: map[int][]models.Team{}}
}

func (f *fakeAdmin) addUser(t *testing.T, u models.User, password string) models.User {
	t.Helper()
	hash, err := models.HashPassword(password)
	require.NoError(t, err)
	u.PasswordHash = hash
	f.users[u.ID] = u
	return u
}

func (f *fakeAdmin) GetUser(_ context.Context, id int) (models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeAdmin) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (f *fakeAdmin) GetUsers(context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeAdmin) CreateUser(_ context.Context, username, fullName, password, role string) (models.User, error) {
	u := models.User{ID: len(f.users) + 100, Username: username, FullName: fullName, Role: role}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeAdmin) UpdateUser(_ context.Context, id int, username, fullName, role string) error {
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Username, u.FullName, u.Role = username, fullName, role
	f.users[id] = u
	return nil
}

func (f *fakeAdmin) GetUserTeams(_ context.Context, userID int) ([]models.Team, error) {
	return f.teams[userID], nil
}

func (f *fakeAdmin) AssignTeamToUser(_ context.Context, userID, teamID int) error {
	f.assigned = append(f.assigned, teamID)
	f.teams[userID] = append(f.teams[userID], models.Team{ID: teamID})
	return nil
}

func (f *fakeAdmin) RemoveTeamFromUser(_ context.Context, userID, teamID int) error {
	f.removed = append(f.removed, teamID)
	kept := f.teams[userID][:0]
	for _, t := range f.teams[userID] {
		if t.ID != teamID {
			kept = append(kept, t)
		}
	}
	f.teams[userID] = kept
	return nil
}

func (f *fakeAdmin) InsertAudit(_ context.Context, _ int, action, _ string, _ int, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, action)
	return nil
}

type fakeResidents struct {
	store.ResidentStore
	residents map[int]models.Resident
	filter    store.ResidentFilter
	status    map[int]string
}

func (f *fakeResidents) GetResident(_ context.Context, id int) (models.Resident, error) {
	r, ok := f.residents[id]
	if !ok {
		return models.Resident{}, store.ErrNotFound
	}
	return r, nil
}

func (f *fakeResidents) ListResidents(_ context.Context, filter store.ResidentFilter) ([]models.Resident, error) {
	f.filter = filter
	var out []models.Resident
	for _, r := range f.residents {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeResidents) CreateResident(_ context.Context, r *models.Resident) error {
	r.ID = len(f.residents) + 1
	f.residents[r.ID] = *r
	return nil
}

func (f *fakeResidents) UpdateResident(_ context.Context, r *models.Resident) error {
	if _, ok := f.residents[r.ID]; !ok {
		return store.ErrNotFound
	}
	f.residents[r.ID] = *r
	return nil
}

func (f *fakeResidents) SetResidentStatus(_ context.Context, id int, status string) error {
	if f.status == nil {
		f.status = map[int]string{}
	}
	f.status[id] = status
	return nil
}

type fakeCareLogs struct {
	store.CareLogStore
	food     []models.FoodFluidLog
	intakes  map[int64]models.MedicationIntake
	outcomes map[int64]string
	configs  map[int][]models.NightCheckConfig
	checks   []models.NightCheck
}

func (f *fakeCareLogs) FluidTotalSince(_ context.Context, residentID int, since time.Time) (int, error) {
	total := 0
	for _, l := range f.food {
		if l.ResidentID == residentID && l.Kind == models.IntakeFluid && !l.RecordedAt.Before(since) {
			total += l.AmountML
		}
	}
	return total, nil
}

func (f *fakeCareLogs) AddFoodFluidLog(_ context.Context, l *models.FoodFluidLog) error {
	l.ID = int64(len(f.food) + 1)
	f.food = append(f.food, *l)
	return nil
}

func (f *fakeCareLogs) GetMedicationIntake(_ context.Context, id int64) (models.MedicationIntake, error) {
	in, ok := f.intakes[id]
	if !ok {
		return models.MedicationIntake{}, store.ErrNotFound
	}
	return in, nil
}

func (f *fakeCareLogs) RecordMedicationOutcome(_ context.Context, id int64, status string, _ int, _ time.Time, _ string) error {
	if f.outcomes == nil {
		f.outcomes = map[int64]string{}
	}
	f.outcomes[id] = status
	return nil
}

func (f *fakeCareLogs) ListNightCheckConfigs(_ context.Context, residentID int) ([]models.NightCheckConfig, error) {
	return f.configs[residentID], nil
}

func (f *fakeCareLogs) AddNightCheck(_ context.Context, c *models.NightCheck) error {
	f.checks = append(f.checks, *c)
	return nil
}

// fakeAlerts records ResolveOpenAlerts calls as "type/key".
type fakeAlerts struct {
	store.AlertStore
	alerts   map[int64]models.Alert
	resolved []string
	filter   models.AlertFilter
	list     []models.Alert
	purged   time.Time
}

func (f *fakeAlerts) ResolveOpenAlerts(_ context.Context, _ int, alertType, dedupKey string, _ *int) (int64, error) {
	f.resolved = append(f.resolved, alertType+"/"+dedupKey)
	return 1, nil
}

func (f *fakeAlerts) ResolveResidentAlerts(_ context.Context, residentID int, _ *int) (int64, error) {
	var n int64
	for id, a := range f.alerts {
		if a.ResidentID == residentID && !a.IsResolved {
			a.IsResolved = true
			f.alerts[id] = a
			n++
		}
	}
	return n, nil
}

func (f *fakeAlerts) GetAlert(_ context.Context, id int64) (models.Alert, error) {
	a, ok := f.alerts[id]
	if !ok {
		return models.Alert{}, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeAlerts) ResolveAlert(_ context.Context, id int64, by int) error {
	a := f.alerts[id]
	a.IsResolved = true
	a.ResolvedBy = &by
	f.alerts[id] = a
	return nil
}

func (f *fakeAlerts) ListAlerts(_ context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	f.filter = filter
	return f.list, nil
}

func (f *fakeAlerts) PurgeResolvedAlerts(_ context.Context, olderThan time.Time) (int64, error) {
	f.purged = olderThan
	return 3, nil
}

type fakeIncidents struct {
	store.IncidentStore
	created []models.Incident
}

func (f *fakeIncidents) CreateIncident(_ context.Context, i *models.Incident) error {
	for _, existing := range f.created {
		if existing.Reference != i.Reference {
			continue
		}
		if existing.ResidentID != i.ResidentID {
			return store.ErrConflict
		}
		*i = existing
		return nil
	}
	i.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *i)
	return nil
}

type fakeSink struct {
	candidates []alerts.Candidate
}

func (f *fakeSink) Raise(_ context.Context, c alerts.Candidate) (bool, error) {
	f.candidates = append(f.candidates, c)
	return true, nil
}

type fakeSweeps struct {
	err  error
	last *sweep.Result
}

func (f *fakeSweeps) Trigger(_ context.Context, job string) (sweep.Result, error) {
	if f.err != nil {
		return sweep.Result{}, f.err
	}
	return sweep.Result{Job: job, RunID: "run-1", Created: 2}, nil
}

func (f *fakeSweeps) LastRun(context.Context, string) (*sweep.Result, error) {
	return f.last, f.err
}

func (f *fakeSweeps) JobNames() []string {
	return []string{sweep.JobCare, sweep.JobNight, sweep.JobMedication}
}

type fixture struct {
	h         *Handler
	mux       *http.ServeMux
	admin     *fakeAdmin
	residents *fakeResidents
	logs      *fakeCareLogs
	alerts    *fakeAlerts
	incidents *fakeIncidents
	sink      *fakeSink
	sweeps    *fakeSweeps
}

var edithBorn = time.Date(1938, time.May, 2, 0, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		admin: newFakeAdmin(),
		residents: &fakeResidents{residents: map[int]models.Resident{
			1: {ID: 1, TeamID: 10, FirstName: "Edith", LastName: "Crawley", Status: models.ResidentActive, OrganizationID: "org-1",
				RoomNumber: "12B", DateOfBirth: &edithBorn},
			2: {ID: 2, TeamID: 20, FirstName: "Albert", LastName: "Hobbs", Status: models.ResidentActive, OrganizationID: "org-1"},
		}},
		logs:      &fakeCareLogs{intakes: map[int64]models.MedicationIntake{}, configs: map[int][]models.NightCheckConfig{}},
		alerts:    &fakeAlerts{alerts: map[int64]models.Alert{}},
		incidents: &fakeIncidents{},
		sink:      &fakeSink{},
		sweeps:    &fakeSweeps{},
	}
	f.admin.addUser(t, models.User{ID: 1, Username: "admin", Role: models.RoleAdmin}, "admin-password")
	f.admin.addUser(t, models.User{ID: 2, Username: "nina", Role: models.RoleNurse}, "nurse-password")
	f.admin.addUser(t, models.User{ID: 3, Username: "carl", Role: models.RoleCarer}, "carer-password")
	f.admin.teams[2] = []models.Team{{ID: 10, Name: "East wing"}}
	f.admin.teams[3] = []models.Team{{ID: 10, Name: "East wing"}}

	h := NewHandler(Stores{
		Residents: f.residents,
		CareLogs:  f.logs,
		Alerts:    f.alerts,
		Incidents: f.incidents,
		Admin:     f.admin,
	}, sessions.NewCookieStore([]byte("test-session-secret-0123456789ab")), zap.NewNop())
	h.Sink = f.sink
	h.Sweeps = f.sweeps
	h.WebhookSecret = "integration-secret"
	h.Rules = func() rules.Config {
		cfg := rules.DefaultConfig()
		cfg.Timezone = "Europe/London"
		return cfg
	}
	h.now = func() time.Time { return at(14, 0) }

	f.h = h
	f.mux = http.NewServeMux()
	h.Routes(f.mux)
	return f
}

// login returns the session cookies for the given user id.
func (f *fixture) login(t *testing.T, userID int) []*http.Cookie {
	t.Helper()
	u, err := f.admin.GetUser(context.Background(), userID)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, f.h.startSession(rec, httptest.NewRequest(http.MethodGet, "/", nil), u))
	return rec.Result().Cookies()
}

func (f *fixture) do(t *testing.T, userID int, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if userID != 0 {
		for _, c := range f.login(t, userID) {
			req.AddCookie(c)
		}
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func jsonBody(format string, args ...any) *strings.Reader {
	return strings.NewReader(fmt.Sprintf(format, args...))
}
