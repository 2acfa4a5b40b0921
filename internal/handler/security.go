package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/vinoteca/promo-engine/internal/domain/auth"
)

// SecurityHandler authenticates API requests via HMAC-SHA256 hashed API keys
// carried in the api_key header and attaches the resulting actor to the
// request context.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Require wraps next, rejecting requests without a valid API key. On success
// the authenticated actor is stored in the request context; authorization
// (scope checks) stays with the domain services.
func (s *SecurityHandler) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("api_key")
		if key == "" {
			writeError(w, r, http.StatusUnauthorized, "api key required")
			return
		}

		mac := hmac.New(sha256.New, s.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		info, err := s.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := auth.ContextWithActor(r.Context(), auth.Actor{
			ID:     info.ID,
			Name:   info.Name,
			Scopes: info.Scopes,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
