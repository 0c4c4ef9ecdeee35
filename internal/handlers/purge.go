package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

const defaultPurgeDays = 90

// PurgeAlertsHandler deletes alerts resolved more than older_than_days ago.
func (h *Handler) PurgeAlertsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OlderThanDays int `json:"older_than_days"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
	}
	if req.OlderThanDays < 0 {
		http.Error(w, "older_than_days must not be negative", http.StatusBadRequest)
		return
	}
	if req.OlderThanDays == 0 {
		req.OlderThanDays = defaultPurgeDays
	}

	cutoff := h.now().AddDate(0, 0, -req.OlderThanDays)
	n, err := h.Alerts.PurgeResolvedAlerts(r.Context(), cutoff)
	if err != nil {
		h.Log.Error("purge alerts", zap.Error(err))
		http.Error(w, "Failed to purge alerts", http.StatusInternalServerError)
		return
	}
	h.Log.Info("purged resolved alerts", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	h.audit(r, "purge_alerts", "alert", 0, map[string]any{"older_than_days": req.OlderThanDays, "deleted": n})

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": n})
}
