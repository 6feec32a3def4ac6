package handlers

import (
	"context"
	"io"
	"strings"

	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/nodeloop/kuberun/internal/logstream"
	"github.com/nodeloop/kuberun/internal/runner"
	"github.com/nodeloop/kuberun/internal/watchwait"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// LogsCall records the arguments of one CollectLogs or OpenLogs call
type LogsCall struct {
	Namespace string
	Pod       string
	Opts      logstream.Options
}

// ListCall records the arguments of one ListResources call
type ListCall struct {
	APIVersion    string
	Kind          string
	Namespace     string
	LabelSelector string
}

// PatchCall records the arguments of one PatchResource call
type PatchCall struct {
	Ref   cluster.ResourceRef
	Patch string
}

// MockEngine implements Engine for handler testing
type MockEngine struct {
	RunPodFunc         func(ctx context.Context, run runner.PodRun) (runner.RunResult, error)
	RunJobFunc         func(ctx context.Context, run runner.JobRun) (runner.RunResult, error)
	TriggerCronJobFunc func(ctx context.Context, trigger runner.CronJobTrigger) (runner.RunResult, error)
	WaitFunc           func(ctx context.Context, req watchwait.Request) (watchwait.Outcome, error)
	CollectLogsFunc    func(ctx context.Context, namespace, pod string, opts logstream.Options) (string, error)
	OpenLogsFunc       func(ctx context.Context, namespace, pod string, opts logstream.Options) (io.ReadCloser, error)
	GetResourceFunc    func(ctx context.Context, ref cluster.ResourceRef) (*unstructured.Unstructured, error)
	ListResourcesFunc  func(ctx context.Context, apiVersion, kind, namespace, labelSelector string) (*unstructured.UnstructuredList, error)
	PatchResourceFunc  func(ctx context.Context, ref cluster.ResourceRef, patch []byte) (*unstructured.Unstructured, error)
	DeleteResourceFunc func(ctx context.Context, ref cluster.ResourceRef) error

	// Track calls
	RunPodCalls         []runner.PodRun
	RunJobCalls         []runner.JobRun
	TriggerCronJobCalls []runner.CronJobTrigger
	WaitCalls           []watchwait.Request
	CollectLogsCalls    []LogsCall
	OpenLogsCalls       []LogsCall
	GetResourceCalls    []cluster.ResourceRef
	ListResourcesCalls  []ListCall
	PatchResourceCalls  []PatchCall
	DeleteResourceCalls []cluster.ResourceRef
}

func (m *MockEngine) RunPod(ctx context.Context, run runner.PodRun) (runner.RunResult, error) {
	m.RunPodCalls = append(m.RunPodCalls, run)
	if m.RunPodFunc != nil {
		return m.RunPodFunc(ctx, run)
	}
	return runner.RunResult{Status: runner.StatusSucceeded}, nil
}

func (m *MockEngine) RunJob(ctx context.Context, run runner.JobRun) (runner.RunResult, error) {
	m.RunJobCalls = append(m.RunJobCalls, run)
	if m.RunJobFunc != nil {
		return m.RunJobFunc(ctx, run)
	}
	return runner.RunResult{Status: runner.StatusSucceeded}, nil
}

func (m *MockEngine) TriggerCronJob(ctx context.Context, trigger runner.CronJobTrigger) (runner.RunResult, error) {
	m.TriggerCronJobCalls = append(m.TriggerCronJobCalls, trigger)
	if m.TriggerCronJobFunc != nil {
		return m.TriggerCronJobFunc(ctx, trigger)
	}
	return runner.RunResult{Status: runner.StatusSucceeded}, nil
}

func (m *MockEngine) Wait(ctx context.Context, req watchwait.Request) (watchwait.Outcome, error) {
	m.WaitCalls = append(m.WaitCalls, req)
	if m.WaitFunc != nil {
		return m.WaitFunc(ctx, req)
	}
	return watchwait.Outcome{State: watchwait.StateMet}, nil
}

func (m *MockEngine) CollectLogs(ctx context.Context, namespace, pod string, opts logstream.Options) (string, error) {
	m.CollectLogsCalls = append(m.CollectLogsCalls, LogsCall{Namespace: namespace, Pod: pod, Opts: opts})
	if m.CollectLogsFunc != nil {
		return m.CollectLogsFunc(ctx, namespace, pod, opts)
	}
	return "", nil
}

func (m *MockEngine) OpenLogs(ctx context.Context, namespace, pod string, opts logstream.Options) (io.ReadCloser, error) {
	m.OpenLogsCalls = append(m.OpenLogsCalls, LogsCall{Namespace: namespace, Pod: pod, Opts: opts})
	if m.OpenLogsFunc != nil {
		return m.OpenLogsFunc(ctx, namespace, pod, opts)
	}
	return io.NopCloser(strings.NewReader("")), nil
}

func (m *MockEngine) GetResource(ctx context.Context, ref cluster.ResourceRef) (*unstructured.Unstructured, error) {
	m.GetResourceCalls = append(m.GetResourceCalls, ref)
	if m.GetResourceFunc != nil {
		return m.GetResourceFunc(ctx, ref)
	}
	return &unstructured.Unstructured{Object: map[string]interface{}{}}, nil
}

func (m *MockEngine) ListResources(ctx context.Context, apiVersion, kind, namespace, labelSelector string) (*unstructured.UnstructuredList, error) {
	m.ListResourcesCalls = append(m.ListResourcesCalls, ListCall{
		APIVersion:    apiVersion,
		Kind:          kind,
		Namespace:     namespace,
		LabelSelector: labelSelector,
	})
	if m.ListResourcesFunc != nil {
		return m.ListResourcesFunc(ctx, apiVersion, kind, namespace, labelSelector)
	}
	return &unstructured.UnstructuredList{}, nil
}

func (m *MockEngine) PatchResource(ctx context.Context, ref cluster.ResourceRef, patch []byte) (*unstructured.Unstructured, error) {
	m.PatchResourceCalls = append(m.PatchResourceCalls, PatchCall{Ref: ref, Patch: string(patch)})
	if m.PatchResourceFunc != nil {
		return m.PatchResourceFunc(ctx, ref, patch)
	}
	return &unstructured.Unstructured{Object: map[string]interface{}{}}, nil
}

func (m *MockEngine) DeleteResource(ctx context.Context, ref cluster.ResourceRef) error {
	m.DeleteResourceCalls = append(m.DeleteResourceCalls, ref)
	if m.DeleteResourceFunc != nil {
		return m.DeleteResourceFunc(ctx, ref)
	}
	return nil
}
