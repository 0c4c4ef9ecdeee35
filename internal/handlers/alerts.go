package handlers

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"carehome-go/internal/models"

	"go.uber.org/zap"
)

const maxExportRows = 5000

// alertFilter reads list filters from the query string and narrows them to
// the caller's teams.
func (h *Handler) alertFilter(r *http.Request) (models.AlertFilter, error) {
	q := r.URL.Query()
	f := models.AlertFilter{
		Status:    q.Get("status"),
		Severity:  q.Get("severity"),
		AlertType: q.Get("type"),
		Query:     q.Get("q"),
	}
	switch f.Status {
	case "", "open", "resolved":
	case "all":
		f.Status = ""
	default:
		return f, fmt.Errorf("invalid status %q", f.Status)
	}
	if f.Severity != "" && !models.ValidSeverity(f.Severity) {
		return f, fmt.Errorf("invalid severity %q", f.Severity)
	}
	if v := q.Get("resident"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("invalid resident %q", v)
		}
		f.ResidentID = id
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = n
	}

	teams, err := h.teamScope(r.Context(), userFrom(r.Context()))
	if err != nil {
		return f, err
	}
	f.TeamIDs = teams
	return f, nil
}

// ListAlertsHandler lists alerts filtered by status, severity, type,
// resident and a free-text q.
func (h *Handler) ListAlertsHandler(w http.ResponseWriter, r *http.Request) {
	f, err := h.alertFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if f.TeamIDs != nil && len(f.TeamIDs) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"alerts": []models.Alert{}})
		return
	}

	list, err := h.Alerts.ListAlerts(r.Context(), f)
	if err != nil {
		h.storeError(w, err, "Failed to list alerts")
		return
	}
	if list == nil {
		list = []models.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": list})
}

// RecentAlertsHandler serves the live feed's timeline from Redis.
func (h *Handler) RecentAlertsHandler(w http.ResponseWriter, r *http.Request) {
	limit := int64(50)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			limit = min(n, 500)
		}
	}
	recent, err := h.Feed.RecentAlerts(r.Context(), limit)
	if err != nil {
		h.storeError(w, err, "Failed to load recent alerts")
		return
	}

	teams, err := h.teamScope(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.storeError(w, err, "Failed to load teams")
		return
	}
	allowed := teamSet(teams)
	out := make([]models.Alert, 0, len(recent))
	for _, a := range recent {
		if allowed == nil || allowed[a.TeamID] {
			out = append(out, a)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": out})
}

func (h *Handler) ResolveAlertHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID64(r, "id")
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	a, err := h.Alerts.GetAlert(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "Failed to load alert")
		return
	}

	u := userFrom(r.Context())
	teams, err := h.teamScope(r.Context(), u)
	if err != nil {
		h.storeError(w, err, "Failed to load teams")
		return
	}
	if teams != nil && !slices.Contains(teams, a.TeamID) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if a.IsResolved {
		http.Error(w, "Alert already resolved", http.StatusConflict)
		return
	}

	if err := h.Alerts.ResolveAlert(r.Context(), id, u.ID); err != nil {
		h.storeError(w, err, "Failed to resolve alert")
		return
	}
	h.Log.Info("alert resolved", zap.Int64("alert_id", id), zap.Int("user_id", u.ID), zap.String("alert_type", a.AlertType))
	h.audit(r, "resolve_alert", "alert", int(id), map[string]any{"alert_type": a.AlertType, "resident_id": a.ResidentID})

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ExportAlertsHandler downloads the filtered alert list as a spreadsheet.
func (h *Handler) ExportAlertsHandler(w http.ResponseWriter, r *http.Request) {
	f, err := h.alertFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.Limit = maxExportRows

	var list []models.Alert
	if f.TeamIDs == nil || len(f.TeamIDs) > 0 {
		list, err = h.Alerts.ListAlerts(r.Context(), f)
		if err != nil {
			h.storeError(w, err, "Failed to list alerts")
			return
		}
	}

	data, err := buildAlertWorkbook(list, h.Rules().Location())
	if err != nil {
		h.Log.Error("build alert export", zap.Error(err))
		http.Error(w, "Failed to build export", http.StatusInternalServerError)
		return
	}

	name := fmt.Sprintf("alerts-%s.xlsx", h.localNow().Format("20060102-1504"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
