package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/nodeloop/kuberun/internal/runner"
	"github.com/nodeloop/kuberun/internal/watchwait"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct{}

// respondWithJSON writes a JSON response
func (h *BaseHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal_error","message":"Failed to marshal response"}`)) // Simple fallback
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError sends a standard error response, mapping the error
// taxonomy onto status codes. Callers pass a fallback code for untyped
// errors; typed errors pick their own.
func (h *BaseHandler) respondWithError(w http.ResponseWriter, code int, err error) {
	var message string
	var errType string

	var validationErr *cluster.ValidationError
	var timeoutErr *watchwait.TimeoutError
	var startupErr *runner.PodStartupError
	var callErr *cluster.CallError

	// message carries the full chain so a timeout enriched with a startup
	// reason keeps both parts
	switch {
	case errors.As(err, &validationErr):
		errType = "invalid_input"
		message = err.Error()
		code = http.StatusBadRequest
	case errors.As(err, &timeoutErr):
		errType = "wait_timeout"
		message = err.Error()
		code = http.StatusGatewayTimeout
	case errors.As(err, &startupErr):
		errType = "pod_startup_failure"
		message = err.Error()
		code = http.StatusBadGateway
	case errors.As(err, &callErr):
		switch {
		case apierrors.IsNotFound(callErr):
			errType = "not_found"
			code = http.StatusNotFound
		case apierrors.IsForbidden(callErr) || apierrors.IsUnauthorized(callErr):
			errType = "cluster_forbidden"
			code = http.StatusForbidden
		case apierrors.IsAlreadyExists(callErr):
			errType = "already_exists"
			code = http.StatusConflict
		default:
			errType = "cluster_error"
			code = http.StatusBadGateway
		}
		message = err.Error()
	default:
		errType = "internal_error"
		message = "Internal server error"
		code = http.StatusInternalServerError
	}

	h.respondWithJSON(w, code, ErrorResponse{
		Error:   errType,
		Message: message,
	})
}
