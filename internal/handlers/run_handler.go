package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/nodeloop/kuberun/internal/monitor"
	"github.com/nodeloop/kuberun/internal/runner"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
)

// RunHandler handles pipeline run HTTP requests
type RunHandler struct {
	BaseHandler
	engine  Engine
	monitor *monitor.Monitor
}

// NewRunHandler creates a new run handler
func NewRunHandler(engine Engine, mon *monitor.Monitor) *RunHandler {
	return &RunHandler{
		engine:  engine,
		monitor: mon,
	}
}

// RunPodRequest represents the request payload for running a pod
type RunPodRequest struct {
	Manifest       *corev1.Pod `json:"manifest"`
	Namespace      string      `json:"namespace,omitempty"`
	Container      string      `json:"container,omitempty"`
	TimeoutSeconds int         `json:"timeout_seconds,omitempty"`
}

// RunJobRequest represents the request payload for running a job
type RunJobRequest struct {
	Manifest       *batchv1.Job `json:"manifest"`
	Namespace      string       `json:"namespace,omitempty"`
	Container      string       `json:"container,omitempty"`
	TimeoutSeconds int          `json:"timeout_seconds,omitempty"`
	Cleanup        *bool        `json:"cleanup,omitempty"`
}

// TriggerCronJobRequest represents the request payload for triggering a
// cronjob's template on demand
type TriggerCronJobRequest struct {
	Name           string           `json:"name"`
	Namespace      string           `json:"namespace,omitempty"`
	Overrides      runner.Overrides `json:"overrides,omitempty"`
	Container      string           `json:"container,omitempty"`
	TimeoutSeconds int              `json:"timeout_seconds,omitempty"`
	Cleanup        *bool            `json:"cleanup,omitempty"`
}

// RunPod handles POST /api/v1/run/pod
func (h *RunHandler) RunPod(w http.ResponseWriter, r *http.Request) {
	var req RunPodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, cluster.NewValidationError("body", "request body is not valid JSON"))
		return
	}

	h.recordStart()
	result, err := h.engine.RunPod(r.Context(), runner.PodRun{
		Pod:       req.Manifest,
		Namespace: req.Namespace,
		Container: req.Container,
		Timeout:   time.Duration(req.TimeoutSeconds) * time.Second,
	})
	h.recordEnd(err == nil && result.Status == runner.StatusSucceeded)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, result)
}

// RunJob handles POST /api/v1/run/job
func (h *RunHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	var req RunJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, cluster.NewValidationError("body", "request body is not valid JSON"))
		return
	}

	h.recordStart()
	result, err := h.engine.RunJob(r.Context(), runner.JobRun{
		Job:       req.Manifest,
		Namespace: req.Namespace,
		Container: req.Container,
		Timeout:   time.Duration(req.TimeoutSeconds) * time.Second,
		Cleanup:   req.Cleanup,
	})
	h.recordEnd(err == nil && result.Status == runner.StatusSucceeded)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, result)
}

// TriggerCronJob handles POST /api/v1/trigger/cronjob
func (h *RunHandler) TriggerCronJob(w http.ResponseWriter, r *http.Request) {
	var req TriggerCronJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, cluster.NewValidationError("body", "request body is not valid JSON"))
		return
	}

	h.recordStart()
	result, err := h.engine.TriggerCronJob(r.Context(), runner.CronJobTrigger{
		Name:      req.Name,
		Namespace: req.Namespace,
		Overrides: req.Overrides,
		Container: req.Container,
		Timeout:   time.Duration(req.TimeoutSeconds) * time.Second,
		Cleanup:   req.Cleanup,
	})
	h.recordEnd(err == nil && result.Status == runner.StatusSucceeded)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, result)
}

func (h *RunHandler) recordStart() {
	if h.monitor != nil {
		h.monitor.RecordRunStart()
	}
}

func (h *RunHandler) recordEnd(success bool) {
	if h.monitor != nil {
		h.monitor.RecordRunEnd(success)
	}
}
