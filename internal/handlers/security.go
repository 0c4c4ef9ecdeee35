package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
)

const (
	signatureHeader = "X-CareHome-Signature"
	maxWebhookBody  = 1 << 20
)

// validSignature checks the signature header against HMAC-SHA256(body,
// secret) and restores the body for the handler. An empty secret rejects
// every request.
func validSignature(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}
	sig := r.Header.Get(signatureHeader)
	if sig == "" {
		return false
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(expected))
}

// SignatureMiddleware rejects integration calls without a valid signature.
func (h *Handler) SignatureMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !validSignature(r, h.WebhookSecret) {
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
