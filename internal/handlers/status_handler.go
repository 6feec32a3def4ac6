package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nodeloop/kuberun/internal/checkauth"
	"github.com/nodeloop/kuberun/internal/monitor"
)

// StatusHandler reports process health and resource usage
type StatusHandler struct {
	BaseHandler
	monitor *monitor.Monitor
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(mon *monitor.Monitor) *StatusHandler {
	return &StatusHandler{monitor: mon}
}

// StatusResponse represents the service status
type StatusResponse struct {
	Status    string            `json:"status"`
	Healthy   bool              `json:"healthy"`
	Resources *monitor.Snapshot `json:"resources,omitempty"`
}

// GetStatus handles GET /api/v1/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Status: "OK", Healthy: true}
	if h.monitor != nil {
		snapshot := h.monitor.Current()
		resp.Resources = &snapshot
		resp.Healthy = h.monitor.IsHealthy()
		if !resp.Healthy {
			resp.Status = "degraded"
		}
	}
	h.respondWithJSON(w, http.StatusOK, resp)
}

// healthHandler answers liveness checks, including whether the request
// carried a valid token
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	response := map[string]interface{}{
		"status": "OK",
		"verification": map[string]interface{}{
			"verified": checkauth.GetVerifiedFromContext(r.Context()),
		},
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
