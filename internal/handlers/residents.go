package handlers

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"carehome-go/internal/models"
	"carehome-go/internal/store"

	"go.uber.org/zap"
)

// residentRequest is the body of a create or update. Pointer fields left
// out of an update keep their stored value.
type residentRequest struct {
	OrganizationID string     `json:"organization_id"`
	TeamID         *int       `json:"team_id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	PreferredName  *string    `json:"preferred_name"`
	RoomNumber     *string    `json:"room_number"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	AdmittedAt     *time.Time `json:"admitted_at"`
}

func (req residentRequest) apply(r *models.Resident) {
	r.OrganizationID = req.OrganizationID
	r.FirstName = strings.TrimSpace(req.FirstName)
	r.LastName = strings.TrimSpace(req.LastName)
	if req.TeamID != nil {
		r.TeamID = *req.TeamID
	}
	if req.PreferredName != nil {
		r.PreferredName = strings.TrimSpace(*req.PreferredName)
	}
	if req.RoomNumber != nil {
		r.RoomNumber = *req.RoomNumber
	}
	if req.DateOfBirth != nil {
		r.DateOfBirth = req.DateOfBirth
	}
	if req.AdmittedAt != nil {
		r.AdmittedAt = *req.AdmittedAt
	}
}

// teamAllowed reports errOutOfScope when the user may not place a resident
// in teamID.
func (h *Handler) teamAllowed(r *http.Request, teamID int) error {
	teams, err := h.teamScope(r.Context(), userFrom(r.Context()))
	if err != nil {
		return err
	}
	if teams != nil && !slices.Contains(teams, teamID) {
		return errOutOfScope
	}
	return nil
}

func (req residentRequest) validate() string {
	switch {
	case strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "":
		return "First and last name are required"
	case req.OrganizationID == "":
		return "Organization is required"
	}
	return ""
}

// ListResidentsHandler lists the residents of the caller's teams. The
// status query parameter defaults to "active"; "all" lists every status.
func (h *Handler) ListResidentsHandler(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch {
	case status == "":
		status = models.ResidentActive
	case status == "all":
		status = ""
	case !models.ValidResidentStatus(status):
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}

	teams, err := h.teamScope(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.storeError(w, err, "Failed to load teams")
		return
	}
	if teams != nil && len(teams) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"residents": []models.Resident{}})
		return
	}

	list, err := h.Residents.ListResidents(r.Context(), store.ResidentFilter{Status: status, TeamIDs: teams})
	if err != nil {
		h.storeError(w, err, "Failed to list residents")
		return
	}
	if list == nil {
		list = []models.Resident{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"residents": list})
}

func (h *Handler) CreateResidentHandler(w http.ResponseWriter, r *http.Request) {
	var req residentRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if req.TeamID == nil || *req.TeamID <= 0 {
		http.Error(w, "Team is required", http.StatusBadRequest)
		return
	}

	res := models.Resident{Status: models.ResidentActive}
	req.apply(&res)
	if err := h.teamAllowed(r, res.TeamID); err != nil {
		h.residentError(w, err)
		return
	}
	if err := h.Residents.CreateResident(r.Context(), &res); err != nil {
		h.storeError(w, err, "Failed to create resident")
		return
	}
	h.audit(r, "admit_resident", "resident", res.ID, map[string]any{"name": res.DisplayName(), "team_id": res.TeamID})

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "resident": res})
}

func (h *Handler) GetResidentHandler(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, map[string]any{"resident": res})
}

func (h *Handler) UpdateResidentHandler(w http.ResponseWriter, r *http.Request) {
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

	var req residentRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.OrganizationID == "" {
		req.OrganizationID = res.OrganizationID
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	if req.TeamID != nil && *req.TeamID != res.TeamID {
		if err := h.teamAllowed(r, *req.TeamID); err != nil {
			h.residentError(w, err)
			return
		}
	}

	req.apply(&res)
	if err := h.Residents.UpdateResident(r.Context(), &res); err != nil {
		h.storeError(w, err, "Failed to update resident")
		return
	}
	h.audit(r, "update_resident", "resident", res.ID, nil)

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "resident": res})
}

// DeactivateResidentHandler takes a resident out of every sweep. Records
// are kept; the status becomes "inactive" unless "discharged" is given.
func (h *Handler) DeactivateResidentHandler(w http.ResponseWriter, r *http.Request) {
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
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
	}
	if req.Status == "" {
		req.Status = models.ResidentInactive
	}
	if req.Status != models.ResidentInactive && req.Status != models.ResidentDischarged {
		http.Error(w, "Status must be inactive or discharged", http.StatusBadRequest)
		return
	}

	if err := h.Residents.SetResidentStatus(r.Context(), id, req.Status); err != nil {
		h.storeError(w, err, "Failed to deactivate resident")
		return
	}
	by := userFrom(r.Context()).ID
	closed, err := h.Alerts.ResolveResidentAlerts(r.Context(), id, &by)
	if err != nil {
		h.Log.Warn("resolve alerts of deactivated resident", zap.Int("resident_id", id), zap.Error(err))
	}
	h.audit(r, "deactivate_resident", "resident", id, map[string]any{"status": req.Status, "reason": req.Reason, "alerts_resolved": closed})

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": req.Status, "alerts_resolved": closed})
}
