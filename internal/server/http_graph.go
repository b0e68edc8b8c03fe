package server

import (
	"bytes"
	"net/http"

	"github.com/alfredjeanlab/convgraph/internal/export"
)

// handleGetGraph handles GET /v1/graph.
// Returns vertices, edges with registration IDs, and aggregate stats.
func (s *Server) handleGetGraph(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Graph())
}

// handleGetGraphML handles GET /v1/graph/graphml.
func (s *Server) handleGetGraphML(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteGraphML(&buf, s.svc.Graph().Snapshot()); err != nil {
		s.logger.Error("rendering graphml", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to render graph")
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleListPeers handles GET /v1/peers.
func (s *Server) handleListPeers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Peers())
}
