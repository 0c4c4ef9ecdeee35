package handlers

import (
	"net/http"

	"carehome-go/internal/models"

	"go.uber.org/zap"
)

const minPasswordLength = 8

// GetCurrentUserHandler returns the signed-in user with their teams.
func (h *Handler) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())

	user, err := h.Admin.GetUser(r.Context(), u.ID)
	if err != nil {
		h.storeError(w, err, "Failed to load user")
		return
	}
	teams, err := h.Admin.GetUserTeams(r.Context(), u.ID)
	if err != nil {
		h.storeError(w, err, "Failed to load teams")
		return
	}
	if teams == nil {
		teams = []models.Team{}
	}

	view := userView(user)
	view["teams"] = teams
	writeJSON(w, http.StatusOK, map[string]any{"user": view})
}

// ChangePasswordHandler allows users to change their password
func (h *Handler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if len(req.NewPassword) < minPasswordLength {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	u := userFrom(r.Context())
	user, err := h.Admin.GetUser(r.Context(), u.ID)
	if err != nil {
		h.storeError(w, err, "Failed to load user")
		return
	}
	if !user.CheckPassword(req.OldPassword) {
		http.Error(w, "Incorrect old password", http.StatusUnauthorized)
		return
	}

	newHash, err := models.HashPassword(req.NewPassword)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}
	if err := h.Admin.UpdateUserPassword(r.Context(), u.ID, newHash); err != nil {
		h.Log.Error("update password", zap.Int("user_id", u.ID), zap.Error(err))
		http.Error(w, "Failed to update password", http.StatusInternalServerError)
		return
	}
	h.audit(r, "change_password", "user", u.ID, nil)

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// AdminResetPasswordHandler allows admins to reset a user's password
func (h *Handler) AdminResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var req struct {
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	newHash, err := models.HashPassword(req.NewPassword)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}
	if err := h.Admin.UpdateUserPassword(r.Context(), id, newHash); err != nil {
		h.Log.Error("reset password", zap.Int("user_id", id), zap.Error(err))
		http.Error(w, "Failed to reset password", http.StatusInternalServerError)
		return
	}
	h.audit(r, "reset_password", "user", id, map[string]any{"user_id": id})

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
