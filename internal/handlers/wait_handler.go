package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/nodeloop/kuberun/internal/watchwait"
)

// WaitHandler handles watch-wait HTTP requests
type WaitHandler struct {
	BaseHandler
	engine Engine
}

// NewWaitHandler creates a new wait handler
func NewWaitHandler(engine Engine) *WaitHandler {
	return &WaitHandler{engine: engine}
}

// WaitRequest represents the request payload for waiting on a condition
type WaitRequest struct {
	APIVersion     string `json:"apiVersion,omitempty"`
	Kind           string `json:"kind"`
	Namespace      string `json:"namespace,omitempty"`
	Name           string `json:"name"`
	Condition      string `json:"condition"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// WaitResponse represents the outcome of a wait
type WaitResponse struct {
	State    string                 `json:"state"`
	Resource map[string]interface{} `json:"resource,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// Wait handles POST /api/v1/wait
func (h *WaitHandler) Wait(w http.ResponseWriter, r *http.Request) {
	var req WaitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, cluster.NewValidationError("body", "request body is not valid JSON"))
		return
	}

	outcome, err := h.engine.Wait(r.Context(), watchwait.Request{
		APIVersion: req.APIVersion,
		Kind:       req.Kind,
		Namespace:  req.Namespace,
		Name:       req.Name,
		Condition:  req.Condition,
		Timeout:    time.Duration(req.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	resp := WaitResponse{State: string(outcome.State)}
	if outcome.Resource != nil {
		resp.Resource = outcome.Resource.Object
	}
	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	}

	code := http.StatusOK
	switch outcome.State {
	case watchwait.StateTimedOut:
		code = http.StatusGatewayTimeout
	case watchwait.StateErrored:
		code = http.StatusBadGateway
	}
	h.respondWithJSON(w, code, resp)
}
