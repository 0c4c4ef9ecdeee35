package handlers

import (
	"errors"
	"net/http"

	"carehome-go/internal/sweep"

	"go.uber.org/zap"
)

func (h *Handler) sweepError(w http.ResponseWriter, job string, err error) {
	switch {
	case errors.Is(err, sweep.ErrUnknownJob):
		http.Error(w, "Unknown sweep job", http.StatusNotFound)
	case errors.Is(err, sweep.ErrJobLocked):
		http.Error(w, "Sweep already running", http.StatusConflict)
	default:
		h.Log.Error("sweep", zap.String("job", job), zap.Error(err))
		http.Error(w, "Sweep failed", http.StatusInternalServerError)
	}
}

// TriggerSweepHandler runs one pass of a sweep job now.
func (h *Handler) TriggerSweepHandler(w http.ResponseWriter, r *http.Request) {
	job := r.PathValue("job")
	res, err := h.Sweeps.Trigger(r.Context(), job)
	if err != nil {
		h.sweepError(w, job, err)
		return
	}
	h.audit(r, "trigger_sweep", "sweep", 0, map[string]any{"job": job, "run_id": res.RunID, "created": res.Created})

	writeJSON(w, http.StatusOK, res)
}

// LastSweepHandler returns the summary of the job's most recent pass.
func (h *Handler) LastSweepHandler(w http.ResponseWriter, r *http.Request) {
	job := r.PathValue("job")
	res, err := h.Sweeps.LastRun(r.Context(), job)
	if err != nil {
		h.sweepError(w, job, err)
		return
	}
	if res == nil {
		http.Error(w, "No run recorded", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ListSweepJobsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": h.jobNames()})
}
