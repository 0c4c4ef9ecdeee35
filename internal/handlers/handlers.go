package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"carehome-go/internal/alerts"
	"carehome-go/internal/models"
	"carehome-go/internal/rules"
	"carehome-go/internal/store"
	"carehome-go/internal/sweep"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// AlertRaiser persists an alert candidate through the deduplicating sink.
type AlertRaiser interface {
	Raise(ctx context.Context, c alerts.Candidate) (bool, error)
}

// SweepRunner runs sweep jobs on demand.
type SweepRunner interface {
	Trigger(ctx context.Context, job string) (sweep.Result, error)
	LastRun(ctx context.Context, job string) (*sweep.Result, error)
	JobNames() []string
}

// Stores groups the persistence interfaces the handlers read and write.
type Stores struct {
	Residents store.ResidentStore
	CareLogs  store.CareLogStore
	Alerts    store.AlertStore
	Incidents store.IncidentStore
	Admin     store.AdminStore
	Feed      store.FeedStore
}

type Handler struct {
	Residents store.ResidentStore
	CareLogs  store.CareLogStore
	Alerts    store.AlertStore
	Incidents store.IncidentStore
	Admin     store.AdminStore
	Feed      store.FeedStore

	Sink     AlertRaiser
	Sweeps   SweepRunner
	Sessions sessions.Store
	Log      *zap.Logger

	// Rules returns the thresholds in force; its time zone sets day
	// boundaries.
	Rules          func() rules.Config
	VAPIDPublicKey string
	WebhookSecret  string
	HealthChecks   map[string]func(context.Context) error

	Tmpl      *template.Template
	AdminTmpl map[string]*template.Template

	now func() time.Time
}

func NewHandler(s Stores, sessionStore sessions.Store, log *zap.Logger) *Handler {
	return &Handler{
		Residents: s.Residents,
		CareLogs:  s.CareLogs,
		Alerts:    s.Alerts,
		Incidents: s.Incidents,
		Admin:     s.Admin,
		Feed:      s.Feed,
		Sessions:  sessionStore,
		Log:       log,
		Rules:     rules.DefaultConfig,
		now:       time.Now,
	}
}

func (h *Handler) localNow() time.Time {
	return h.now().In(h.Rules().Location())
}

func (h *Handler) RenderAdminPage(w http.ResponseWriter, page string, data any) {
	tmpl, ok := h.AdminTmpl[page]
	if !ok {
		http.Error(w, "Page not found", http.StatusNotFound)
		return
	}
	if err := tmpl.Execute(w, data); err != nil {
		h.Log.Error("template error", zap.String("page", page), zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (h *Handler) AdminLoginPage(w http.ResponseWriter, r *http.Request) {
	h.RenderAdminPage(w, "login", nil)
}

func (h *Handler) AdminDashboardPage(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	h.RenderAdminPage(w, "dashboard", map[string]any{
		"UserID":   u.ID,
		"Username": u.Username,
		"Jobs":     h.jobNames(),
	})
}

func (h *Handler) jobNames() []string {
	if h.Sweeps == nil {
		return nil
	}
	return h.Sweeps.JobNames()
}

// IndexHandler renders the staff dashboard with the open alerts the user
// may see.
func (h *Handler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := map[string]any{}
	if u, ok := h.sessionUser(r); ok {
		teams, err := h.teamScope(r.Context(), u)
		if err != nil {
			h.Log.Error("load team scope", zap.Int("user_id", u.ID), zap.Error(err))
			http.Error(w, "Failed to get alerts", http.StatusInternalServerError)
			return
		}
		list, err := h.Alerts.ListAlerts(r.Context(), models.AlertFilter{Status: "open", TeamIDs: teams, Limit: 100})
		if err != nil {
			h.Log.Error("list alerts", zap.Error(err))
			http.Error(w, "Failed to get alerts", http.StatusInternalServerError)
			return
		}
		data["User"] = u
		data["Alerts"] = list
	}

	if h.Tmpl == nil {
		writeJSON(w, http.StatusOK, data)
		return
	}
	if err := h.Tmpl.Execute(w, data); err != nil {
		h.Log.Error("template error", zap.Error(err))
	}
}

// SSEHandler streams newly created alerts. Staff limited to teams only
// receive alerts for those teams.
func (h *Handler) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	teams, err := h.teamScope(r.Context(), userFrom(r.Context()))
	if err != nil {
		http.Error(w, "Failed to load teams", http.StatusInternalServerError)
		return
	}
	allowed := teamSet(teams)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	pubsub := h.Feed.Subscribe(r.Context())
	defer pubsub.Close()
	ch := pubsub.Channel()

	fmt.Fprintf(w, "data: %s\n\n", "connected")
	flusher.Flush()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if allowed != nil {
				var a models.Alert
				if err := json.Unmarshal([]byte(msg.Payload), &a); err != nil || !allowed[a.TeamID] {
					continue
				}
			}
			fmt.Fprintf(w, "event: alert\ndata: %s\n\n", msg.Payload)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// HealthHandler reports the state of every registered dependency.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.HealthChecks))
	for name, check := range h.HealthChecks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": checks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// storeError maps store failures onto HTTP responses.
func (h *Handler) storeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, store.ErrConflict) {
		http.Error(w, "Conflict", http.StatusConflict)
		return
	}
	h.Log.Error(msg, zap.Error(err))
	http.Error(w, msg, http.StatusInternalServerError)
}

func pathID(r *http.Request, name string) (int, error) {
	return strconv.Atoi(r.PathValue(name))
}

func pathID64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// audit records an admin or care action; failures are logged only.
func (h *Handler) audit(r *http.Request, action, targetType string, targetID int, meta map[string]any) {
	u := userFrom(r.Context())
	if u.ID == 0 {
		return
	}
	data, _ := json.Marshal(meta)
	if err := h.Admin.InsertAudit(r.Context(), u.ID, action, targetType, targetID, string(data)); err != nil {
		h.Log.Warn("insert audit log", zap.String("action", action), zap.Error(err))
	}
}
