package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"carehome-go/internal/models"

	"go.uber.org/zap"
)

const sessionName = "carehome-session"

// SessionUser is the signed-in member of staff as stored in the session.
type SessionUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (u SessionUser) IsAdmin() bool { return u.Role == models.RoleAdmin }

type ctxKey struct{}

func withUser(ctx context.Context, u SessionUser) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func userFrom(ctx context.Context) SessionUser {
	u, _ := ctx.Value(ctxKey{}).(SessionUser)
	return u
}

func (h *Handler) sessionUser(r *http.Request) (SessionUser, bool) {
	session, err := h.Sessions.Get(r, sessionName)
	if err != nil {
		return SessionUser{}, false
	}
	id, ok := session.Values["user_id"].(int)
	if !ok || id == 0 {
		return SessionUser{}, false
	}
	username, _ := session.Values["username"].(string)
	role, _ := session.Values["role"].(string)
	return SessionUser{ID: id, Username: username, Role: role}, true
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user models.User) error {
	session, _ := h.Sessions.Get(r, sessionName)
	delete(session.Values, "pending_user_id")
	session.Values["user_id"] = user.ID
	session.Values["username"] = user.Username
	session.Values["role"] = user.Role
	return session.Save(r, w)
}

// AuthMiddleware rejects requests without a signed-in user.
func (h *Handler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := h.sessionUser(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(withUser(r.Context(), u)))
	}
}

// RoleMiddleware allows only the given roles. It expects AuthMiddleware to
// have run first.
func (h *Handler) RoleMiddleware(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(roles, userFrom(r.Context()).Role) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}
}

// AdminMiddleware checks if user is admin
func (h *Handler) AdminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return h.RoleMiddleware(models.RoleAdmin)(next)
}

func userView(u models.User) map[string]any {
	return map[string]any{
		"id":           u.ID,
		"username":     u.Username,
		"full_name":    u.FullName,
		"role":         u.Role,
		"totp_enabled": u.TOTPEnabled,
	}
}

// LoginHandler checks the password. Users with 2FA get a pending session
// that /api/login/2fa completes.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.Admin.GetUserByUsername(r.Context(), req.Username)
	if err != nil || !user.CheckPassword(req.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}

	if user.TOTPEnabled {
		session, _ := h.Sessions.Get(r, sessionName)
		session.Values = map[any]any{"pending_user_id": user.ID}
		if err := session.Save(r, w); err != nil {
			h.Log.Error("save session", zap.Error(err))
			http.Error(w, "Failed to start session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"requires_2fa": true})
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.Log.Error("save session", zap.Error(err))
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}
	h.Log.Info("user signed in", zap.Int("user_id", user.ID), zap.String("username", user.Username))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": userView(user)})
}

// Verify2FALoginHandler completes a pending login with a TOTP code.
func (h *Handler) Verify2FALoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	session, _ := h.Sessions.Get(r, sessionName)
	pendingID, ok := session.Values["pending_user_id"].(int)
	if !ok || pendingID == 0 {
		http.Error(w, "No login in progress", http.StatusUnauthorized)
		return
	}

	user, err := h.Admin.GetUser(r.Context(), pendingID)
	if err != nil {
		http.Error(w, "User not found", http.StatusUnauthorized)
		return
	}
	if !models.VerifyTOTPCode(user.TOTPSecret, req.Code) {
		http.Error(w, "Invalid verification code", http.StatusUnauthorized)
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.Log.Error("save session", zap.Error(err))
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": userView(user)})
}

// LogoutHandler handles logout
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := h.Sessions.Get(r, sessionName)
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	session.Save(r, w)

	if r.Header.Get("Accept") == "application/json" {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

// teamScope returns the team ids the user is limited to, or nil when the
// user sees every team.
func (h *Handler) teamScope(ctx context.Context, u SessionUser) ([]int, error) {
	if u.IsAdmin() {
		return nil, nil
	}
	if u.ID == 0 {
		return []int{}, nil
	}
	teams, err := h.Admin.GetUserTeams(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func teamSet(ids []int) map[int]bool {
	if ids == nil {
		return nil
	}
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

var errOutOfScope = errors.New("resident outside of user's teams")

// residentInScope loads the resident and checks the user may act on it.
func (h *Handler) residentInScope(r *http.Request, id int) (models.Resident, error) {
	res, err := h.Residents.GetResident(r.Context(), id)
	if err != nil {
		return models.Resident{}, err
	}
	teams, err := h.teamScope(r.Context(), userFrom(r.Context()))
	if err != nil {
		return models.Resident{}, err
	}
	if teams != nil && !slices.Contains(teams, res.TeamID) {
		return models.Resident{}, errOutOfScope
	}
	return res, nil
}

// residentError maps residentInScope failures onto HTTP responses.
func (h *Handler) residentError(w http.ResponseWriter, err error) {
	if errors.Is(err, errOutOfScope) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	h.storeError(w, err, "Failed to load resident")
}

// InitSession creates a default admin when no staff exist yet. An empty
// password is replaced by a random one, logged once.
func (h *Handler) InitSession(ctx context.Context, password string) {
	users, err := h.Admin.GetUsers(ctx)
	if err != nil {
		h.Log.Error("list users", zap.Error(err))
		return
	}
	if len(users) > 0 {
		return
	}

	generated := password == ""
	if generated {
		if password, err = models.GenerateToken(); err != nil {
			h.Log.Error("generate admin password", zap.Error(err))
			return
		}
		password = password[:16]
	}
	user, err := h.Admin.CreateUser(ctx, "admin", "Administrator", password, models.RoleAdmin)
	if err != nil {
		h.Log.Error("create default admin", zap.Error(err))
		return
	}
	if generated {
		h.Log.Warn("created default admin user with a generated password, change it after signing in",
			zap.String("username", user.Username), zap.String("password", password))
		return
	}
	h.Log.Warn("created default admin user, change its password", zap.String("username", user.Username))
}
