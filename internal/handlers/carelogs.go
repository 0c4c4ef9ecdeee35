package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"carehome-go/internal/models"
	"carehome-go/internal/rules"

	"go.uber.org/zap"
)

// resolveCovered closes the open alert a newly recorded care event
// satisfies. Failures are logged; the event itself is already stored.
func (h *Handler) resolveCovered(r *http.Request, residentID int, alertType, key string) {
	by := userFrom(r.Context()).ID
	n, err := h.Alerts.ResolveOpenAlerts(r.Context(), residentID, alertType, key, &by)
	if err != nil {
		h.Log.Warn("resolve covered alert", zap.Int("resident_id", residentID),
			zap.String("alert_type", alertType), zap.String("dedup_key", key), zap.Error(err))
		return
	}
	if n > 0 {
		h.Log.Info("alert resolved by care log", zap.Int("resident_id", residentID),
			zap.String("alert_type", alertType), zap.String("dedup_key", key))
	}
}

// resolveFluidTarget closes today's fluid_low alert once the recorded total
// reaches the daily target.
func (h *Handler) resolveFluidTarget(r *http.Request, residentID int, now time.Time) {
	target := h.Rules().Fluid.DailyTargetML
	if target <= 0 {
		return
	}
	total, err := h.CareLogs.FluidTotalSince(r.Context(), residentID, rules.DayStart(now))
	if err != nil {
		h.Log.Warn("fluid total", zap.Int("resident_id", residentID), zap.Error(err))
		return
	}
	if total >= target {
		h.resolveCovered(r, residentID, models.AlertFluidLow, rules.DayKey(now))
	}
}

// sinceParam reads ?since= (RFC 3339) or defaults to local midnight.
func (h *Handler) sinceParam(r *http.Request) (time.Time, error) {
	if v := r.URL.Query().Get("since"); v != "" {
		return time.Parse(time.RFC3339, v)
	}
	return rules.DayStart(h.localNow()), nil
}

// === Food & fluid ===

func (h *Handler) AddFoodFluidHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	res, err := h.residentInScope(r, id)
	if err != nil {
		h.residentError(w, err)
		return
	}

	var req struct {
		Kind        string     `json:"kind"`
		Description string     `json:"description"`
		AmountML    int        `json:"amount_ml"`
		Portion     string     `json:"portion"`
		RecordedAt  *time.Time `json:"recorded_at"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	switch {
	case req.Kind != models.IntakeFood && req.Kind != models.IntakeFluid:
		http.Error(w, "Kind must be food or fluid", http.StatusBadRequest)
		return
	case req.Kind == models.IntakeFluid && req.AmountML <= 0:
		http.Error(w, "Fluid entries need a positive amount_ml", http.StatusBadRequest)
		return
	}

	now := h.localNow()
	recorded := now
	if req.RecordedAt != nil {
		if req.RecordedAt.After(now.Add(5 * time.Minute)) {
			http.Error(w, "recorded_at cannot be in the future", http.StatusBadRequest)
			return
		}
		recorded = req.RecordedAt.In(now.Location())
	}

	entry := models.FoodFluidLog{
		ResidentID:  res.ID,
		Kind:        req.Kind,
		Description: strings.TrimSpace(req.Description),
		AmountML:    req.AmountML,
		Portion:     req.Portion,
		RecordedBy:  userFrom(r.Context()).ID,
		RecordedAt:  recorded,
	}
	if err := h.CareLogs.AddFoodFluidLog(r.Context(), &entry); err != nil {
		h.storeError(w, err, "Failed to save entry")
		return
	}

	day := rules.DayKey(recorded)
	if req.Kind == models.IntakeFood {
		h.resolveCovered(r, res.ID, models.AlertFoodMissed, day)
	} else {
		h.resolveCovered(r, res.ID, models.AlertFluidGap, day)
		if day == rules.DayKey(now) {
			h.resolveFluidTarget(r, res.ID, now)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "entry": entry})
}

func (h *Handler) ListFoodFluidHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if _, err := h.residentInScope(r, id); err != nil {
		h.residentError(w, err)
		return
	}
	since, err := h.sinceParam(r)
	if err != nil {
		http.Error(w, "Invalid since", http.StatusBadRequest)
		return
	}

	entries, err := h.CareLogs.ListFoodFluidLogs(r.Context(), id, since)
	if err != nil {
		h.storeError(w, err, "Failed to list entries")
		return
	}
	total := 0
	for _, e := range entries {
		if e.Kind == models.IntakeFluid {
			total += e.AmountML
		}
	}
	if entries == nil {
		entries = []models.FoodFluidLog{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "fluid_total_ml": total})
}

// === Medication ===

func (h *Handler) ScheduleMedicationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if _, err := h.residentInScope(r, id); err != nil {
		h.residentError(w, err)
		return
	}

	var req struct {
		MedicationName string    `json:"medication_name"`
		Dosage         string    `json:"dosage"`
		ScheduledTime  time.Time `json:"scheduled_time"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.MedicationName) == "" || req.ScheduledTime.IsZero() {
		http.Error(w, "Medication name and scheduled time are required", http.StatusBadRequest)
		return
	}

	intake := models.MedicationIntake{
		ResidentID:     id,
		MedicationName: strings.TrimSpace(req.MedicationName),
		Dosage:         req.Dosage,
		ScheduledTime:  req.ScheduledTime,
	}
	if err := h.CareLogs.ScheduleMedication(r.Context(), &intake); err != nil {
		h.storeError(w, err, "Failed to schedule medication")
		return
	}
	h.audit(r, "schedule_medication", "resident", id, map[string]any{"intake_id": intake.ID, "medication": intake.MedicationName})

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "intake": intake})
}

func (h *Handler) ListMedicationsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if _, err := h.residentInScope(r, id); err != nil {
		h.residentError(w, err)
		return
	}

	from, err := h.sinceParam(r)
	if err != nil {
		http.Error(w, "Invalid since", http.StatusBadRequest)
		return
	}
	to := from.AddDate(0, 0, 1)
	if v := r.URL.Query().Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 || days > 31 {
			http.Error(w, "days must be between 1 and 31", http.StatusBadRequest)
			return
		}
		to = from.AddDate(0, 0, days)
	}

	intakes, err := h.CareLogs.ListMedicationIntakes(r.Context(), id, from, to)
	if err != nil {
		h.storeError(w, err, "Failed to list medications")
		return
	}
	if intakes == nil {
		intakes = []models.MedicationIntake{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"intakes": intakes})
}

// RecordMedicationHandler closes a scheduled intake as administered,
// refused or missed and resolves its open due-soon or overdue alert.
func (h *Handler) RecordMedicationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID64(r, "id")
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	intake, err := h.CareLogs.GetMedicationIntake(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "Failed to load intake")
		return
	}
	if _, err := h.residentInScope(r, intake.ResidentID); err != nil {
		h.residentError(w, err)
		return
	}

	var req struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
	}
	if req.Status == "" {
		req.Status = models.MedicationAdministered
	}
	switch req.Status {
	case models.MedicationAdministered, models.MedicationRefused, models.MedicationMissed:
	default:
		http.Error(w, "Status must be administered, refused or missed", http.StatusBadRequest)
		return
	}
	if !intake.Pending() {
		http.Error(w, "Intake already recorded", http.StatusConflict)
		return
	}

	u := userFrom(r.Context())
	if err := h.CareLogs.RecordMedicationOutcome(r.Context(), id, req.Status, u.ID, h.now(), req.Notes); err != nil {
		h.storeError(w, err, "Failed to record medication")
		return
	}

	key := strconv.FormatInt(id, 10)
	h.resolveCovered(r, intake.ResidentID, models.AlertMedicationDue, key)
	h.resolveCovered(r, intake.ResidentID, models.AlertMedicationOverdue, key)
	h.audit(r, "record_medication", "resident", intake.ResidentID, map[string]any{"intake_id": id, "status": req.Status})

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": req.Status})
}

// === Night checks ===

func (h *Handler) SetNightCheckConfigHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if _, err := h.residentInScope(r, id); err != nil {
		h.residentError(w, err)
		return
	}

	req := models.NightCheckConfig{IsActive: true}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.StartHour < 0 || req.StartHour > 23 || req.EndHour < 0 || req.EndHour > 23 || req.IntervalMinutes < 0 {
		http.Error(w, "Hours must be 0-23 and interval not negative", http.StatusBadRequest)
		return
	}
	req.ResidentID = id

	if err := h.CareLogs.UpsertNightCheckConfig(r.Context(), &req); err != nil {
		h.storeError(w, err, "Failed to save night check config")
		return
	}
	h.audit(r, "set_night_checks", "resident", id, map[string]any{
		"start_hour": req.StartHour, "end_hour": req.EndHour, "interval_minutes": req.IntervalMinutes, "active": req.IsActive,
	})

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "config": req})
}

func (h *Handler) AddNightCheckHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if _, err := h.residentInScope(r, id); err != nil {
		h.residentError(w, err)
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
	}

	configs, err := h.CareLogs.ListNightCheckConfigs(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "Failed to load night check config")
		return
	}
	if len(configs) == 0 {
		http.Error(w, "Night checks are not configured for this resident", http.StatusConflict)
		return
	}
	cfg := configs[0]

	now := h.localNow()
	check := models.NightCheck{
		ResidentID: id,
		ConfigID:   cfg.ID,
		CheckedAt:  now,
		CheckedBy:  userFrom(r.Context()).ID,
		Notes:      strings.TrimSpace(req.Notes),
	}
	if err := h.CareLogs.AddNightCheck(r.Context(), &check); err != nil {
		h.storeError(w, err, "Failed to save night check")
		return
	}

	window := rules.WindowFor(cfg, h.Rules().Night)
	if start, inside := window.WindowStart(now); inside {
		h.resolveCovered(r, id, models.AlertNightCheckOverdue, window.PeriodKey(start))
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "check": check})
}
