package store

import (
	"context"
	"errors"
	"time"

	"carehome-go/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with an existing row that
// belongs to someone else, such as an incident reference reused for another
// resident.
var ErrConflict = errors.New("conflict")

// ResidentFilter narrows resident listings. Zero values are ignored.
type ResidentFilter struct {
	Status  string
	TeamIDs []int
}

// ResidentStore handles resident records (PostgreSQL)
type ResidentStore interface {
	CreateResident(ctx context.Context, r *models.Resident) error
	GetResident(ctx context.Context, id int) (models.Resident, error)
	ListResidents(ctx context.Context, f ResidentFilter) ([]models.Resident, error)
	ListActiveResidents(ctx context.Context) ([]models.Resident, error)
	UpdateResident(ctx context.Context, r *models.Resident) error
	SetResidentStatus(ctx context.Context, id int, status string) error
}

// CareLogStore handles food/fluid, medication and night-check records (PostgreSQL)
type CareLogStore interface {
	AddFoodFluidLog(ctx context.Context, l *models.FoodFluidLog) error
	ListFoodFluidLogs(ctx context.Context, residentID int, since time.Time) ([]models.FoodFluidLog, error)
	LastFoodFluidAt(ctx context.Context, residentID int, kind string) (*time.Time, error)
	FluidTotalSince(ctx context.Context, residentID int, since time.Time) (int, error)

	ScheduleMedication(ctx context.Context, m *models.MedicationIntake) error
	GetMedicationIntake(ctx context.Context, id int64) (models.MedicationIntake, error)
	ListMedicationIntakes(ctx context.Context, residentID int, from, to time.Time) ([]models.MedicationIntake, error)
	PendingMedicationIntakes(ctx context.Context, residentID int, from, to time.Time) ([]models.MedicationIntake, error)
	RecordMedicationOutcome(ctx context.Context, id int64, status string, by int, at time.Time, notes string) error

	UpsertNightCheckConfig(ctx context.Context, c *models.NightCheckConfig) error
	ListNightCheckConfigs(ctx context.Context, residentID int) ([]models.NightCheckConfig, error)
	AddNightCheck(ctx context.Context, c *models.NightCheck) error
	LastNightCheckAt(ctx context.Context, residentID, configID int) (*time.Time, error)
}

// AlertStore handles persisted alerts (PostgreSQL)
type AlertStore interface {
	FindOpenAlert(ctx context.Context, residentID int, alertType, dedupKey string) (*models.Alert, error)
	CreateAlert(ctx context.Context, a *models.Alert) error
	ResolveOpenAlerts(ctx context.Context, residentID int, alertType, dedupKey string, by *int) (int64, error)
	ResolveResidentAlerts(ctx context.Context, residentID int, by *int) (int64, error)
	GetAlert(ctx context.Context, id int64) (models.Alert, error)
	ListAlerts(ctx context.Context, f models.AlertFilter) ([]models.Alert, error)
	ResolveAlert(ctx context.Context, id int64, by int) error
	PurgeResolvedAlerts(ctx context.Context, olderThan time.Time) (int64, error)
}

// IncidentStore handles incident reports (PostgreSQL)
type IncidentStore interface {
	// CreateIncident stores i unless its reference is already recorded for
	// the same resident, in which case i is filled from the stored row.
	CreateIncident(ctx context.Context, i *models.Incident) error
	ListIncidents(ctx context.Context, residentID, limit int) ([]models.Incident, error)
}

// AdminStore handles staff, teams, audit and push subscriptions (PostgreSQL)
type AdminStore interface {
	CreateUser(ctx context.Context, username, fullName, password, role string) (models.User, error)
	GetUser(ctx context.Context, id int) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id int, username, fullName, role string) error
	DeleteUser(ctx context.Context, id int) error
	UpdateUserPassword(ctx context.Context, userID int, newPasswordHash string) error
	UpdateUser2FA(ctx context.Context, userID int, totpSecret string, enabled bool) error
	Disable2FA(ctx context.Context, userID int) error

	CreateTeam(ctx context.Context, organizationID, name string) (models.Team, error)
	GetTeams(ctx context.Context) ([]models.Team, error)
	DeleteTeam(ctx context.Context, id int) error
	AssignTeamToUser(ctx context.Context, userID, teamID int) error
	RemoveTeamFromUser(ctx context.Context, userID, teamID int) error
	GetUserTeams(ctx context.Context, userID int) ([]models.Team, error)

	InsertAudit(ctx context.Context, actorID int, action, targetType string, targetID int, metadata string) error
	ListAudit(ctx context.Context, limit int) ([]models.AuditLog, error)

	SavePushSubscription(ctx context.Context, userID int, endpoint, p256dh, auth string) error
	GetPushSubscriptions(ctx context.Context) ([]models.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

// FeedStore is the live alert feed (Redis)
type FeedStore interface {
	PublishAlert(ctx context.Context, a models.Alert) error
	RecentAlerts(ctx context.Context, limit int64) ([]models.Alert, error)
	Subscribe(ctx context.Context) *redis.PubSub
}

// SweepLocker coordinates sweep passes across replicas (Redis)
type SweepLocker interface {
	AcquireSweepLock(ctx context.Context, job, owner string, ttl time.Duration) (bool, error)
	ReleaseSweepLock(ctx context.Context, job, owner string) error
	SetLastRun(ctx context.Context, job string, summary []byte) error
	GetLastRun(ctx context.Context, job string) ([]byte, error)
}
