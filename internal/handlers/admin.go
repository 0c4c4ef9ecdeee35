package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"carehome-go/internal/models"

	"go.uber.org/zap"
)

// === Staff Management ===

func (h *Handler) GetUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.Admin.GetUsers(r.Context())
	if err != nil {
		h.storeError(w, err, "Failed to get users")
		return
	}

	respUsers := make([]map[string]any, 0, len(users))
	for _, u := range users {
		teams := []models.Team{}
		if u.Role != models.RoleAdmin {
			if assigned, err := h.Admin.GetUserTeams(r.Context(), u.ID); err == nil {
				teams = append(teams, assigned...)
			}
		}
		view := userView(u)
		view["teams"] = teams
		view["created_at"] = u.CreatedAt
		view["last_password_change"] = u.LastPasswordChange
		respUsers = append(respUsers, view)
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": respUsers})
}

type userRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Role     string `json:"role"`
	TeamIDs  []int  `json:"team_ids"`
}

func (req userRequest) validate(requirePassword bool) string {
	switch {
	case strings.TrimSpace(req.Username) == "":
		return "Username is required"
	case !models.ValidRole(req.Role):
		return "Invalid role"
	case requirePassword && len(req.Password) < minPasswordLength:
		return "Password must be at least 8 characters"
	}
	return ""
}

func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if msg := req.validate(true); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	user, err := h.Admin.CreateUser(r.Context(), strings.TrimSpace(req.Username), req.FullName, req.Password, req.Role)
	if err != nil {
		h.storeError(w, err, "Failed to create user")
		return
	}

	if req.Role != models.RoleAdmin {
		for _, teamID := range req.TeamIDs {
			if err := h.Admin.AssignTeamToUser(r.Context(), user.ID, teamID); err != nil {
				h.Log.Warn("assign team", zap.Int("user_id", user.ID), zap.Int("team_id", teamID), zap.Error(err))
			}
		}
	}
	h.audit(r, "create_user", "user", user.ID, map[string]any{"username": user.Username, "role": req.Role, "team_ids": req.TeamIDs})

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": userView(user)})
}

// UpdateUserHandler replaces the user's details and team assignments.
func (h *Handler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if msg := req.validate(false); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	if err := h.Admin.UpdateUser(r.Context(), id, strings.TrimSpace(req.Username), req.FullName, req.Role); err != nil {
		h.storeError(w, err, "Failed to update user")
		return
	}

	if err := h.syncTeams(r, id, req.Role, req.TeamIDs); err != nil {
		h.storeError(w, err, "Failed to update teams")
		return
	}
	h.audit(r, "update_user", "user", id, map[string]any{"username": req.Username, "role": req.Role, "team_ids": req.TeamIDs})

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) syncTeams(r *http.Request, userID int, role string, teamIDs []int) error {
	current, err := h.Admin.GetUserTeams(r.Context(), userID)
	if err != nil {
		return err
	}
	desired := make(map[int]bool, len(teamIDs))
	if role != models.RoleAdmin {
		for _, id := range teamIDs {
			desired[id] = true
		}
	}

	for _, t := range current {
		if desired[t.ID] {
			delete(desired, t.ID)
			continue
		}
		if err := h.Admin.RemoveTeamFromUser(r.Context(), userID, t.ID); err != nil {
			return err
		}
	}
	for id := range desired {
		if err := h.Admin.AssignTeamToUser(r.Context(), userID, id); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if id == userFrom(r.Context()).ID {
		http.Error(w, "You cannot delete your own account", http.StatusBadRequest)
		return
	}

	if err := h.Admin.DeleteUser(r.Context(), id); err != nil {
		h.storeError(w, err, "Failed to delete user")
		return
	}
	h.audit(r, "delete_user", "user", id, nil)

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// === Team Management ===

func (h *Handler) GetTeamsHandler(w http.ResponseWriter, r *http.Request) {
	teams, err := h.Admin.GetTeams(r.Context())
	if err != nil {
		h.storeError(w, err, "Failed to get teams")
		return
	}
	if teams == nil {
		teams = []models.Team{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (h *Handler) CreateTeamHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrganizationID string `json:"organization_id"`
		Name           string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.OrganizationID == "" {
		http.Error(w, "Organization and name are required", http.StatusBadRequest)
		return
	}

	team, err := h.Admin.CreateTeam(r.Context(), req.OrganizationID, strings.TrimSpace(req.Name))
	if err != nil {
		h.storeError(w, err, "Failed to create team")
		return
	}
	h.audit(r, "create_team", "team", team.ID, map[string]any{"name": team.Name})

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "team": team})
}

func (h *Handler) DeleteTeamHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := h.Admin.DeleteTeam(r.Context(), id); err != nil {
		h.storeError(w, err, "Failed to delete team")
		return
	}
	h.audit(r, "delete_team", "team", id, nil)

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Audit listing
func (h *Handler) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = min(v, 500)
		}
	}
	logs, err := h.Admin.ListAudit(r.Context(), limit)
	if err != nil {
		h.storeError(w, err, "Failed to load audit logs")
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}
