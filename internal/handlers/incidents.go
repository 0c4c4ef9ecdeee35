package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"carehome-go/internal/alerts"
	"carehome-go/internal/models"
	"carehome-go/internal/rules"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	incidentSourceStaff       = "staff"
	incidentSourceIntegration = "integration"

	maxReferenceLen = 128
)

type incidentRequest struct {
	ResidentID  int        `json:"resident_id"`
	Severity    string     `json:"severity"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	OccurredAt  *time.Time `json:"occurred_at"`
	Reference   string     `json:"reference"`
}

func (req *incidentRequest) normalize() string {
	req.Reference = strings.TrimSpace(req.Reference)
	req.Category = strings.TrimSpace(req.Category)
	req.Description = strings.TrimSpace(req.Description)
	if req.Severity == "" {
		req.Severity = models.SeverityWarning
	}
	switch {
	case req.ResidentID <= 0:
		return "resident_id is required"
	case req.Category == "" || req.Description == "":
		return "Category and description are required"
	case !models.ValidSeverity(req.Severity):
		return "Invalid severity"
	case len(req.Reference) > maxReferenceLen:
		return "reference is too long"
	}
	return ""
}

// reportIncident stores the incident and raises an incident alert keyed by
// its reference, so a retried report does not alert twice.
func (h *Handler) reportIncident(r *http.Request, res models.Resident, req incidentRequest, source string, by int) (models.Incident, error) {
	inc := models.Incident{
		Reference:   req.Reference,
		ResidentID:  res.ID,
		Severity:    req.Severity,
		Category:    req.Category,
		Description: req.Description,
		ReportedBy:  by,
		Source:      source,
		OccurredAt:  h.now(),
	}
	if inc.Reference == "" {
		inc.Reference = uuid.NewString()
	}
	if req.OccurredAt != nil {
		inc.OccurredAt = *req.OccurredAt
	}
	if err := h.Incidents.CreateIncident(r.Context(), &inc); err != nil {
		return inc, err
	}

	if h.Sink == nil {
		return inc, nil
	}
	occurred := inc.OccurredAt.In(h.Rules().Location())
	_, err := h.Sink.Raise(r.Context(), alerts.Candidate{
		Resident: res,
		Decision: rules.Decision{
			AlertType: models.AlertIncident,
			Severity:  inc.Severity,
			Title:     "Incident reported: " + inc.Category,
			Message:   fmt.Sprintf("%s (at %s)", inc.Description, occurred.Format("15:04 02 Jan")),
			PeriodKey: inc.Reference,
			Metadata: map[string]any{
				"incident_id": inc.ID,
				"reference":   inc.Reference,
				"source":      source,
			},
		},
	})
	if err != nil {
		h.Log.Error("raise incident alert", zap.String("reference", inc.Reference), zap.Error(err))
	}
	return inc, nil
}

func (h *Handler) CreateIncidentHandler(w http.ResponseWriter, r *http.Request) {
	var req incidentRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if msg := req.normalize(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	res, err := h.residentInScope(r, req.ResidentID)
	if err != nil {
		h.residentError(w, err)
		return
	}

	inc, err := h.reportIncident(r, res, req, incidentSourceStaff, userFrom(r.Context()).ID)
	if err != nil {
		h.storeError(w, err, "Failed to save incident")
		return
	}
	h.audit(r, "report_incident", "resident", res.ID, map[string]any{"reference": inc.Reference, "severity": inc.Severity})

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "incident": inc})
}

func (h *Handler) ListIncidentsHandler(w http.ResponseWriter, r *http.Request) {
	residentID := 0
	if v := r.URL.Query().Get("resident"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid resident", http.StatusBadRequest)
			return
		}
		if _, err := h.residentInScope(r, id); err != nil {
			h.residentError(w, err)
			return
		}
		residentID = id
	} else if !userFrom(r.Context()).IsAdmin() {
		http.Error(w, "resident is required", http.StatusBadRequest)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := h.Incidents.ListIncidents(r.Context(), residentID, limit)
	if err != nil {
		h.storeError(w, err, "Failed to list incidents")
		return
	}
	if list == nil {
		list = []models.Incident{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"incidents": list})
}

// IntegrationIncidentHandler accepts incidents from signed external
// systems such as nurse-call or fall sensors.
func (h *Handler) IntegrationIncidentHandler(w http.ResponseWriter, r *http.Request) {
	var req incidentRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if msg := req.normalize(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	res, err := h.Residents.GetResident(r.Context(), req.ResidentID)
	if err != nil {
		h.storeError(w, err, "Failed to load resident")
		return
	}
	if !res.IsActive() {
		http.Error(w, "Resident is not active", http.StatusUnprocessableEntity)
		return
	}

	inc, err := h.reportIncident(r, res, req, incidentSourceIntegration, 0)
	if err != nil {
		h.storeError(w, err, "Failed to save incident")
		return
	}
	h.Log.Info("integration incident", zap.String("reference", inc.Reference), zap.Int("resident_id", res.ID))

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "reference": inc.Reference})
}
