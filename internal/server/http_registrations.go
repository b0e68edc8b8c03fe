package server

import (
	"encoding/json"
	"net/http"

	"github.com/alfredjeanlab/convgraph/internal/model"
)

// registrationRequest is the body of POST and PUT /v1/registrations.
type registrationRequest struct {
	ID         string            `json:"id"`
	Kind       model.Kind        `json:"kind"`
	InFormat   string            `json:"in_format"`
	OutFormat  string            `json:"out_format"`
	Remote     bool              `json:"remote"`
	Label      string            `json:"label"`
	Properties map[string]string `json:"properties"`
}

func (req *registrationRequest) registration() *model.Registration {
	return &model.Registration{
		ID:         req.ID,
		Kind:       req.Kind,
		InFormat:   req.InFormat,
		OutFormat:  req.OutFormat,
		Remote:     req.Remote,
		Label:      req.Label,
		Properties: req.Properties,
	}
}

func decodeRegistration(w http.ResponseWriter, r *http.Request) (*registrationRequest, bool) {
	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return &req, true
}

// handleListRegistrations handles GET /v1/registrations?filter=.
func (s *Server) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ListRegistrations(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRegister handles POST /v1/registrations.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRegistration(w, r)
	if !ok {
		return
	}
	reg, err := s.Register(r.Context(), req.registration())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// handleGetRegistration handles GET /v1/registrations/{id}.
func (s *Server) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := s.GetRegistration(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// handleModifyRegistration handles PUT /v1/registrations/{id}. The path ID
// wins over any ID in the body.
func (s *Server) handleModifyRegistration(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRegistration(w, r)
	if !ok {
		return
	}
	req.ID = r.PathValue("id")
	reg, err := s.Modify(r.Context(), req.registration())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// handleUnregister handles DELETE /v1/registrations/{id}.
func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	if err := s.Unregister(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
