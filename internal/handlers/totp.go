package handlers

import (
	"net/http"

	"carehome-go/internal/models"

	"go.uber.org/zap"
)

// Generate2FAHandler creates a TOTP secret for the signed-in user. Nothing
// is stored until Enable2FAHandler confirms a code.
func (h *Handler) Generate2FAHandler(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())

	key, err := models.GenerateTOTPSecret(u.Username)
	if err != nil {
		http.Error(w, "Failed to generate secret", http.StatusInternalServerError)
		return
	}
	qrCode, err := models.QRCodeDataURI(key)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"secret":  key.Secret(),
		"qr_code": qrCode,
		"issuer":  models.TOTPIssuer,
		"account": u.Username,
	})
}

// Enable2FAHandler verifies the TOTP code and enables 2FA
func (h *Handler) Enable2FAHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
		Code   string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !models.VerifyTOTPCode(req.Secret, req.Code) {
		http.Error(w, "Invalid verification code", http.StatusUnauthorized)
		return
	}

	u := userFrom(r.Context())
	if err := h.Admin.UpdateUser2FA(r.Context(), u.ID, req.Secret, true); err != nil {
		h.Log.Error("enable 2fa", zap.Int("user_id", u.ID), zap.Error(err))
		http.Error(w, "Failed to enable 2FA", http.StatusInternalServerError)
		return
	}
	h.audit(r, "enable_2fa", "user", u.ID, nil)

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "2FA enabled successfully"})
}

// Disable2FAHandler turns off the caller's own 2FA. Admin accounts must keep
// it; another admin can reset it with AdminDisable2FAHandler.
func (h *Handler) Disable2FAHandler(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	if u.IsAdmin() {
		http.Error(w, "Admins cannot disable their own 2FA", http.StatusForbidden)
		return
	}

	if err := h.Admin.Disable2FA(r.Context(), u.ID); err != nil {
		h.Log.Error("disable 2fa", zap.Int("user_id", u.ID), zap.Error(err))
		http.Error(w, "Failed to disable 2FA", http.StatusInternalServerError)
		return
	}
	h.audit(r, "disable_2fa", "user", u.ID, nil)

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "2FA disabled successfully"})
}

// AdminDisable2FAHandler allows admins to disable 2FA for any user
func (h *Handler) AdminDisable2FAHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := h.Admin.Disable2FA(r.Context(), id); err != nil {
		h.Log.Error("admin disable 2fa", zap.Int("user_id", id), zap.Error(err))
		http.Error(w, "Failed to disable 2FA", http.StatusInternalServerError)
		return
	}
	h.audit(r, "admin_disable_2fa", "user", id, nil)

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "2FA disabled by admin"})
}
