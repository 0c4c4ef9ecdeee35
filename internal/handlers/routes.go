package handlers

import (
	"net/http"

	"carehome-go/internal/models"
)

// Routes registers every page and API endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	auth := h.AuthMiddleware
	admin := func(next http.HandlerFunc) http.HandlerFunc { return auth(h.AdminMiddleware(next)) }
	clinical := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(h.RoleMiddleware(models.RoleAdmin, models.RoleNurse)(next))
	}

	// Public
	mux.HandleFunc("GET /", h.IndexHandler)
	mux.HandleFunc("GET /healthz", h.HealthHandler)
	mux.HandleFunc("POST /api/login", h.LoginHandler)
	mux.HandleFunc("POST /api/login/2fa", h.Verify2FALoginHandler)
	mux.HandleFunc("POST /api/logout", h.LogoutHandler)
	mux.HandleFunc("POST /integrations/incidents", h.SignatureMiddleware(h.IntegrationIncidentHandler))

	// Signed-in staff
	mux.HandleFunc("GET /events", auth(h.SSEHandler))
	mux.HandleFunc("GET /api/me", auth(h.GetCurrentUserHandler))
	mux.HandleFunc("PUT /api/me/password", auth(h.ChangePasswordHandler))
	mux.HandleFunc("POST /api/me/2fa/generate", auth(h.Generate2FAHandler))
	mux.HandleFunc("POST /api/me/2fa/enable", auth(h.Enable2FAHandler))
	mux.HandleFunc("POST /api/me/2fa/disable", auth(h.Disable2FAHandler))

	mux.HandleFunc("GET /api/residents", auth(h.ListResidentsHandler))
	mux.HandleFunc("POST /api/residents", clinical(h.CreateResidentHandler))
	mux.HandleFunc("GET /api/residents/{id}", auth(h.GetResidentHandler))
	mux.HandleFunc("PUT /api/residents/{id}", clinical(h.UpdateResidentHandler))
	mux.HandleFunc("POST /api/residents/{id}/deactivate", clinical(h.DeactivateResidentHandler))

	mux.HandleFunc("GET /api/residents/{id}/food-fluid", auth(h.ListFoodFluidHandler))
	mux.HandleFunc("POST /api/residents/{id}/food-fluid", auth(h.AddFoodFluidHandler))
	mux.HandleFunc("GET /api/residents/{id}/medications", auth(h.ListMedicationsHandler))
	mux.HandleFunc("POST /api/residents/{id}/medications", clinical(h.ScheduleMedicationHandler))
	mux.HandleFunc("POST /api/medications/{id}/administer", clinical(h.RecordMedicationHandler))
	mux.HandleFunc("PUT /api/residents/{id}/night-check-config", clinical(h.SetNightCheckConfigHandler))
	mux.HandleFunc("POST /api/residents/{id}/night-checks", auth(h.AddNightCheckHandler))

	mux.HandleFunc("GET /api/incidents", auth(h.ListIncidentsHandler))
	mux.HandleFunc("POST /api/incidents", auth(h.CreateIncidentHandler))

	mux.HandleFunc("GET /api/alerts", auth(h.ListAlertsHandler))
	mux.HandleFunc("GET /api/alerts/recent", auth(h.RecentAlertsHandler))
	mux.HandleFunc("GET /api/alerts/export", auth(h.ExportAlertsHandler))
	mux.HandleFunc("POST /api/alerts/{id}/resolve", auth(h.ResolveAlertHandler))

	mux.HandleFunc("GET /api/push/vapid", h.GetVAPIDKeyHandler)
	mux.HandleFunc("POST /api/push/subscribe", auth(h.SubscribePushHandler))
	mux.HandleFunc("POST /api/push/unsubscribe", auth(h.UnsubscribePushHandler))

	// Admin pages
	mux.HandleFunc("GET /admin/login", h.AdminLoginPage)
	mux.HandleFunc("GET /admin/dashboard", admin(h.AdminDashboardPage))

	// Admin API
	mux.HandleFunc("GET /api/admin/users", admin(h.GetUsersHandler))
	mux.HandleFunc("POST /api/admin/users", admin(h.CreateUserHandler))
	mux.HandleFunc("PUT /api/admin/users/{id}", admin(h.UpdateUserHandler))
	mux.HandleFunc("DELETE /api/admin/users/{id}", admin(h.DeleteUserHandler))
	mux.HandleFunc("PUT /api/admin/users/{id}/password", admin(h.AdminResetPasswordHandler))
	mux.HandleFunc("POST /api/admin/users/{id}/2fa/disable", admin(h.AdminDisable2FAHandler))

	mux.HandleFunc("GET /api/admin/teams", admin(h.GetTeamsHandler))
	mux.HandleFunc("POST /api/admin/teams", admin(h.CreateTeamHandler))
	mux.HandleFunc("DELETE /api/admin/teams/{id}", admin(h.DeleteTeamHandler))

	mux.HandleFunc("GET /api/admin/audit", admin(h.GetAuditLogs))
	mux.HandleFunc("POST /api/admin/purge", admin(h.PurgeAlertsHandler))

	mux.HandleFunc("GET /api/admin/sweep", admin(h.ListSweepJobsHandler))
	mux.HandleFunc("GET /api/admin/sweep/{job}", admin(h.LastSweepHandler))
	mux.HandleFunc("POST /api/admin/sweep/{job}", admin(h.TriggerSweepHandler))
}
