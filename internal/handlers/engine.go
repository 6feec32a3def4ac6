package handlers

import (
	"context"
	"io"

	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/nodeloop/kuberun/internal/logstream"
	"github.com/nodeloop/kuberun/internal/runner"
	"github.com/nodeloop/kuberun/internal/watchwait"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Engine is the automation surface the HTTP layer drives. The runner
// satisfies it; tests substitute a mock.
type Engine interface {
	RunPod(ctx context.Context, run runner.PodRun) (runner.RunResult, error)
	RunJob(ctx context.Context, run runner.JobRun) (runner.RunResult, error)
	TriggerCronJob(ctx context.Context, trigger runner.CronJobTrigger) (runner.RunResult, error)
	Wait(ctx context.Context, req watchwait.Request) (watchwait.Outcome, error)
	CollectLogs(ctx context.Context, namespace, pod string, opts logstream.Options) (string, error)
	OpenLogs(ctx context.Context, namespace, pod string, opts logstream.Options) (io.ReadCloser, error)
	GetResource(ctx context.Context, ref cluster.ResourceRef) (*unstructured.Unstructured, error)
	ListResources(ctx context.Context, apiVersion, kind, namespace, labelSelector string) (*unstructured.UnstructuredList, error)
	PatchResource(ctx context.Context, ref cluster.ResourceRef, patch []byte) (*unstructured.Unstructured, error)
	DeleteResource(ctx context.Context, ref cluster.ResourceRef) error
}

// Ensure the runner satisfies the Engine interface
var _ Engine = (*runner.Runner)(nil)
