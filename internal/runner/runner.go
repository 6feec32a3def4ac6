// Package runner executes one-shot workloads on a cluster. Each pipeline
// follows the same shape: create the workload, watch it to a terminal status,
// collect its container logs, then clean up. Pipelines exist for bare pods,
// jobs, and jobs minted on demand from a cronjob's template.
package runner

import (
	"context"
	"io"
	"time"

	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/nodeloop/kuberun/internal/logstream"
	"github.com/nodeloop/kuberun/internal/watchwait"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// TerminalStatus is the final status of a run
type TerminalStatus string

const (
	StatusSucceeded TerminalStatus = "succeeded"
	StatusFailed    TerminalStatus = "failed"
	// StatusUnknown means the run was interrupted from outside before the
	// workload reached a terminal phase. Timeouts are errors, not unknowns.
	StatusUnknown TerminalStatus = "unknown"
)

// cleanupTimeout bounds the delete calls that run after a pipeline finishes.
// Cleanup uses its own deadline so a cancelled run context cannot leave
// workloads behind.
const cleanupTimeout = 30 * time.Second

// RunResult is the uniform outcome of a pipeline run
type RunResult struct {
	Name      string         `json:"name"`
	Namespace string         `json:"namespace"`
	Status    TerminalStatus `json:"status"`
	RawOutput string         `json:"raw_output"`
	Logs      any            `json:"logs"`
	Cleaned   bool           `json:"cleaned"`
}

// Runner drives the pipelines against one cluster session
type Runner struct {
	session   *cluster.Session
	waiter    *watchwait.Waiter
	collector *logstream.Collector

	// Timeout bounds each wait for a terminal status
	Timeout time.Duration
	// Container names the container logs are read from when a run does not
	// say otherwise
	Container string
	// Cleanup controls whether created workloads are deleted after the run
	Cleanup bool
}

// New creates a Runner with default timeout and cleanup enabled
func New(session *cluster.Session) *Runner {
	return &Runner{
		session:   session,
		waiter:    watchwait.NewWaiter(session),
		collector: logstream.NewCollector(session),
		Timeout:   watchwait.DefaultTimeout,
		Cleanup:   true,
	}
}

// Session returns the cluster session the runner operates on
func (r *Runner) Session() *cluster.Session {
	return r.session
}

// Wait runs a watch-wait for an arbitrary resource condition
func (r *Runner) Wait(ctx context.Context, req watchwait.Request) (watchwait.Outcome, error) {
	return r.waiter.Wait(ctx, req)
}

// CollectLogs reads a pod's logs into a string
func (r *Runner) CollectLogs(ctx context.Context, namespace, pod string, opts logstream.Options) (string, error) {
	return r.collector.Collect(ctx, namespace, pod, opts)
}

// OpenLogs starts a raw log stream; the caller owns the stream
func (r *Runner) OpenLogs(ctx context.Context, namespace, pod string, opts logstream.Options) (io.ReadCloser, error) {
	return r.collector.Open(ctx, namespace, pod, opts)
}

// GetResource reads a single resource of any kind
func (r *Runner) GetResource(ctx context.Context, ref cluster.ResourceRef) (*unstructured.Unstructured, error) {
	return r.session.GetResource(ctx, ref)
}

// ListResources lists resources of a kind, optionally filtered by label
func (r *Runner) ListResources(ctx context.Context, apiVersion, kind, namespace, labelSelector string) (*unstructured.UnstructuredList, error) {
	return r.session.ListResources(ctx, apiVersion, kind, namespace, labelSelector)
}

// PatchResource applies a JSON merge patch to a resource
func (r *Runner) PatchResource(ctx context.Context, ref cluster.ResourceRef, patch []byte) (*unstructured.Unstructured, error) {
	return r.session.PatchResource(ctx, ref, patch)
}

// DeleteResource deletes a resource of any kind
func (r *Runner) DeleteResource(ctx context.Context, ref cluster.ResourceRef) error {
	return r.session.DeleteResource(ctx, ref)
}

// timeoutOr returns the run-level timeout when set, the runner default
// otherwise
func (r *Runner) timeoutOr(timeout time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	return r.Timeout
}

// cleanupOr returns the run-level cleanup choice when set, the runner default
// otherwise
func (r *Runner) cleanupOr(cleanup *bool) bool {
	if cleanup != nil {
		return *cleanup
	}
	return r.Cleanup
}
