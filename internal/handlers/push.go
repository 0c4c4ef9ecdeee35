package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// GetVAPIDKeyHandler returns the public VAPID key
func (h *Handler) GetVAPIDKeyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.VAPIDPublicKey})
}

type pushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// SubscribePushHandler saves a push subscription
func (h *Handler) SubscribePushHandler(w http.ResponseWriter, r *http.Request) {
	var req pushSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		http.Error(w, "Endpoint and keys are required", http.StatusBadRequest)
		return
	}

	u := userFrom(r.Context())
	if err := h.Admin.SavePushSubscription(r.Context(), u.ID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth); err != nil {
		h.Log.Error("save push subscription", zap.Int("user_id", u.ID), zap.Error(err))
		http.Error(w, "Failed to save subscription", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

func (h *Handler) UnsubscribePushHandler(w http.ResponseWriter, r *http.Request) {
	var req pushSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil || req.Endpoint == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.Admin.DeletePushSubscription(r.Context(), req.Endpoint); err != nil {
		h.storeError(w, err, "Failed to delete subscription")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
