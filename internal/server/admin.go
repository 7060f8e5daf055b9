package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fintrack-uy/fintrack/internal/env"
)

// adminMiddleware checks for a valid admin API key from either
// 'Authorization: Bearer <key>' or 'X-API-Key: <key>' headers.
func (s *Server) adminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminKey, ok := env.Get("ADMIN_API_KEY")
		if !ok {
			s.logger.Error().Msg("ADMIN_API_KEY environment variable not set")
			http.Error(w, "Admin API not configured", http.StatusInternalServerError)
			return
		}

		var providedKey string
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}
			providedKey = parts[1]
		} else if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			providedKey = apiKey
		} else {
			s.logger.Warn().
				Str("uri", r.RequestURI).
				Str("remote_addr", r.RemoteAddr).
				Msg("Missing credentials for admin endpoint")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if providedKey != adminKey {
			s.logger.Warn().
				Str("uri", r.RequestURI).
				Str("remote_addr", r.RemoteAddr).
				Msg("Invalid admin API key provided")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

type sessionStatus struct {
	HasCredential      bool   `json:"has_credential"`
	SessionExpired     bool   `json:"session_expired"`
	ExpiresAt          string `json:"expires_at,omitempty"`
	MinutesUntilExpiry int64  `json:"minutes_until_expiry,omitempty"`
}

func (s *Server) sessionStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := sessionStatus{
		SessionExpired: s.teardown.Torn(),
	}
	if cred := s.store.Get(); cred != nil {
		status.HasCredential = true
		if !cred.ExpiresAt.IsZero() {
			status.ExpiresAt = cred.ExpiresAt.Format(time.RFC3339)
			status.MinutesUntilExpiry = int64(cred.TimeUntilExpiry(time.Now()).Minutes())
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode session status")
	}
}

// sessionRenewHandler forces a renewal, mainly for operational poking.
func (s *Server) sessionRenewHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cred, err := s.refresher.Renew(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Forced renewal failed")
		http.Error(w, "Renewal failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionStatus{
		HasCredential:      true,
		ExpiresAt:          cred.ExpiresAt.Format(time.RFC3339),
		MinutesUntilExpiry: int64(cred.TimeUntilExpiry(time.Now()).Minutes()),
	})
}
