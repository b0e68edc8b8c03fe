package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alfredjeanlab/convgraph/internal/filter"
	"github.com/alfredjeanlab/convgraph/internal/registry"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/converters", s.handleFindConverters)
	mux.HandleFunc("GET /v1/registrations", s.handleListRegistrations)
	mux.HandleFunc("POST /v1/registrations", s.handleRegister)
	mux.HandleFunc("GET /v1/registrations/{id}", s.handleGetRegistration)
	mux.HandleFunc("PUT /v1/registrations/{id}", s.handleModifyRegistration)
	mux.HandleFunc("DELETE /v1/registrations/{id}", s.handleUnregister)
	mux.HandleFunc("GET /v1/graph", s.handleGetGraph)
	mux.HandleFunc("GET /v1/graph/graphml", s.handleGetGraphML)
	mux.HandleFunc("GET /v1/peers", s.handleListPeers)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleFindConverters handles GET /v1/converters?in=&out=.
func (s *Server) handleFindConverters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := s.FindConverters(r.Context(), q.Get("in"), q.Get("out"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var ie inputError
	switch {
	case errors.As(err, &ie),
		errors.Is(err, filter.ErrInvalidFilter),
		errors.Is(err, registry.ErrInvalidRegistration):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrAlreadyRegistered):
		return http.StatusConflict
	case errors.Is(err, registry.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeServiceError writes err with the status it maps to.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeError(w, status, msg)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
