// Package server exposes the fintrack HTTP surface: the /api/* finance
// routes proxied to the backend through the authenticated executor, plus
// health and admin session endpoints.
package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fintrack-uy/fintrack/internal/apiclient"
	"github.com/fintrack-uy/fintrack/internal/session"
)

// RequestExecutor sends one backend call, handling credential renewal.
type RequestExecutor interface {
	Execute(ctx context.Context, req apiclient.Request) (*http.Response, error)
}

type Server struct {
	exec      RequestExecutor
	store     *session.Store
	refresher *session.Refresher
	teardown  *session.Teardown
	apiBase   string
	mux       *http.ServeMux
	logger    zerolog.Logger
}

func New(log zerolog.Logger, exec RequestExecutor, store *session.Store, refresher *session.Refresher, teardown *session.Teardown, apiBase string) *Server {
	s := &Server{
		exec:      exec,
		store:     store,
		refresher: refresher,
		teardown:  teardown,
		apiBase:   strings.TrimRight(apiBase, "/"),
		mux:       http.NewServeMux(),
		logger:    log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/transactions", s.proxyHandler)
	s.mux.HandleFunc("/api/transactions/", s.proxyHandler)
	s.mux.HandleFunc("/api/categories", s.proxyHandler)
	s.mux.HandleFunc("/api/categories/", s.proxyHandler)
	s.mux.HandleFunc("/api/goals", s.proxyHandler)
	s.mux.HandleFunc("/api/goals/", s.proxyHandler)
	s.mux.HandleFunc("/api/summary", s.proxyHandler)
	s.mux.HandleFunc("/api/statements/import", s.importHandler)
	s.mux.HandleFunc("/health", s.healthHandler)
	s.mux.HandleFunc("/admin/session/status", s.adminMiddleware(s.sessionStatusHandler))
	s.mux.HandleFunc("/admin/session/renew", s.adminMiddleware(s.sessionRenewHandler))
	s.mux.HandleFunc("/", s.notFoundHandler)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.loggingMiddleware(s.mux).ServeHTTP(w, r)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote_addr", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn().
		Str("method", r.Method).
		Str("uri", r.RequestURI).
		Msg("Unhandled route")
	http.NotFound(w, r)
}

// proxyHandler forwards the call to the backend verbatim. Payloads are opaque
// here; the executor owns authorization and retry.
func (s *Server) proxyHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error reading request body")
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return
	}
	defer r.Body.Close()

	s.forward(w, r, body)
}

// importHandler forwards a statement upload (multipart PDF) unchanged. Text
// extraction happens on the backend.
func (s *Server) importHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error reading statement upload")
		http.Error(w, "Failed to read upload", http.StatusInternalServerError)
		return
	}
	defer r.Body.Close()

	s.forward(w, r, body)
}

func (s *Server) forward(w http.ResponseWriter, r *http.Request, body []byte) {
	url := s.apiBase + r.URL.Path
	if r.URL.RawQuery != "" {
		url += "?" + r.URL.RawQuery
	}

	header := http.Header{}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		header.Set("Content-Type", ct)
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		header.Set("Accept", accept)
	}

	resp, err := s.exec.Execute(r.Context(), apiclient.Request{
		Method: r.Method,
		URL:    url,
		Header: header,
		Body:   body,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("url", url).Msg("Backend request failed")
		http.Error(w, "Failed to reach backend: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.writeResponse(w, resp)
}

// writeResponse copies the backend response through untouched.
func (s *Server) writeResponse(w http.ResponseWriter, resp *http.Response) {
	defer resp.Body.Close()

	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Error().Err(err).Msg("Error writing backend response to client")
	}
}
