package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/nodeloop/kuberun/internal/logstream"
	"github.com/nodeloop/kuberun/internal/metrics"
	"github.com/nodeloop/kuberun/internal/watchwait"
	"github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// PodRun describes one ad-hoc pod run
type PodRun struct {
	// Pod is the manifest to run; a missing name gets a derived one
	Pod *corev1.Pod
	// Namespace overrides the manifest and session namespaces
	Namespace string
	// Container selects which container logs come from; defaults to the
	// first container in the manifest
	Container string
	// Timeout overrides the runner default
	Timeout time.Duration
}

// PodStartupError reports a pod that cannot start
type PodStartupError struct {
	Reason  string
	Message string
}

func (e *PodStartupError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("pod failed to start: %s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("pod failed to start: %s", e.Reason)
}

// IsPodStartupError checks an error chain for a pod startup failure
func IsPodStartupError(err error) bool {
	var startupErr *PodStartupError
	return errors.As(err, &startupErr)
}

// startupFailureReasons are container waiting reasons that will not resolve
// on their own; a pod stuck on one of these never reaches a terminal phase
var startupFailureReasons = map[string]bool{
	"ImagePullBackOff":           true,
	"ErrImagePull":               true,
	"ImageInspectError":          true,
	"ErrImageNeverPull":          true,
	"CrashLoopBackOff":           true,
	"CreateContainerConfigError": true,
	"CreateContainerError":       true,
	"InvalidImageName":           true,
	"RunContainerError":          true,
}

// StartupFailure reports whether the pod is stuck during startup, returning
// the reason and message when it is
func StartupFailure(pod *corev1.Pod) (reason, message string) {
	statuses := make([]corev1.ContainerStatus, 0, len(pod.Status.InitContainerStatuses)+len(pod.Status.ContainerStatuses))
	statuses = append(statuses, pod.Status.InitContainerStatuses...)
	statuses = append(statuses, pod.Status.ContainerStatuses...)
	for _, status := range statuses {
		if status.State.Waiting != nil && startupFailureReasons[status.State.Waiting.Reason] {
			return status.State.Waiting.Reason, status.State.Waiting.Message
		}
	}
	for _, condition := range pod.Status.Conditions {
		if condition.Type == corev1.PodScheduled && condition.Status == corev1.ConditionFalse && condition.Reason == "Unschedulable" {
			return condition.Reason, condition.Message
		}
	}
	return "", ""
}

// podTerminal matches a pod that has finished, in either direction
func podTerminal(obj *unstructured.Unstructured) bool {
	phase, _, _ := unstructured.NestedString(obj.Object, "status", "phase")
	return phase == string(corev1.PodSucceeded) || phase == string(corev1.PodFailed)
}

// RunPod creates a pod, waits for it to reach Succeeded or Failed, collects
// its logs while the pod still exists, then deletes it. The delete happens
// however the wait ends. An external abort returns an empty result and no
// error; a timeout is an error.
func (r *Runner) RunPod(ctx context.Context, run PodRun) (RunResult, error) {
	if run.Pod == nil {
		return RunResult{}, cluster.NewValidationError("pod", "manifest is required")
	}
	if len(run.Pod.Spec.Containers) == 0 {
		return RunResult{}, cluster.NewValidationError("pod", "manifest has no containers")
	}

	pod := run.Pod.DeepCopy()
	if pod.Name == "" {
		pod.Name = DerivedPodName(time.Now())
	}
	if err := ValidateName(pod.Name); err != nil {
		return RunResult{}, err
	}

	namespace := run.Namespace
	if namespace == "" {
		namespace = pod.Namespace
	}
	namespace = r.session.NamespaceOr(namespace)
	pod.Namespace = namespace
	if pod.Labels == nil {
		pod.Labels = map[string]string{}
	}
	pod.Labels[cluster.ManagedByLabel] = cluster.ManagedByValue
	if pod.Spec.RestartPolicy == "" {
		pod.Spec.RestartPolicy = corev1.RestartPolicyNever
	}

	container := run.Container
	if container == "" {
		container = pod.Spec.Containers[0].Name
	}

	logger := logging.Log.WithFields(logrus.Fields{
		"kind":      "Pod",
		"namespace": namespace,
		"name":      pod.Name,
	})
	logger.Info("creating pod")

	created, err := r.session.Core().Pods(namespace).Create(ctx, pod, metav1.CreateOptions{})
	if err != nil {
		metrics.RecordClusterCall("create", "Pod", false)
		return RunResult{}, cluster.NewCallError("create", "Pod", namespace, pod.Name, err)
	}
	metrics.RecordClusterCall("create", "Pod", true)

	started := time.Now()
	var logs string
	outcome, err := r.waiter.Wait(ctx, watchwait.Request{
		APIVersion: "v1",
		Kind:       "Pod",
		Namespace:  namespace,
		Name:       created.Name,
		Timeout:    r.timeoutOr(run.Timeout),
		Match:      podTerminal,
		OnMatch: func(ctx context.Context, obj *unstructured.Unstructured) error {
			out, collectErr := r.collector.Collect(ctx, namespace, created.Name, logstream.Options{Container: container})
			if collectErr != nil {
				return fmt.Errorf("collecting logs for pod %s: %w", created.Name, collectErr)
			}
			logs = out
			return nil
		},
	})

	// read startup state before the delete below removes the evidence
	var startupReason, startupMessage string
	if err == nil && outcome.State == watchwait.StateTimedOut {
		startupReason, startupMessage = r.podStartupReason(namespace, created.Name)
	}

	cleaned := r.deletePod(namespace, created.Name)

	if err != nil {
		return RunResult{}, err
	}

	switch outcome.State {
	case watchwait.StateMet:
		res := RunResult{
			Name:      created.Name,
			Namespace: namespace,
			Status:    StatusFailed,
			RawOutput: logs,
			Logs:      logstream.ParseMaybeJSON(logs),
			Cleaned:   cleaned,
		}
		if phase, _, _ := unstructured.NestedString(outcome.Resource.Object, "status", "phase"); phase == string(corev1.PodSucceeded) {
			res.Status = StatusSucceeded
		}
		metrics.RecordRun("Pod", string(res.Status), time.Since(started).Seconds())
		logger.WithField("status", string(res.Status)).Info("pod run finished")
		return res, nil
	case watchwait.StateTimedOut:
		if startupReason != "" {
			logger.WithFields(logrus.Fields{
				"reason":  startupReason,
				"message": startupMessage,
			}).Error("pod never started")
			return RunResult{}, fmt.Errorf("%w; %w", outcome.Err, &PodStartupError{Reason: startupReason, Message: startupMessage})
		}
		return RunResult{}, outcome.Err
	case watchwait.StateAborted:
		logger.Warn("pod run aborted before completion")
		return RunResult{}, nil
	default:
		return RunResult{}, outcome.Err
	}
}

// podStartupReason does a best-effort read of the pod's startup state
func (r *Runner) podStartupReason(namespace, name string) (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	pod, err := r.session.Core().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return "", ""
	}
	return StartupFailure(pod)
}

// deletePod removes a run pod on its own deadline, so the delete proceeds
// even when the run context is already cancelled
func (r *Runner) deletePod(namespace, name string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	propagation := metav1.DeletePropagationBackground
	err := r.session.Core().Pods(namespace).Delete(ctx, name, metav1.DeleteOptions{PropagationPolicy: &propagation})
	if err != nil {
		metrics.RecordClusterCall("delete", "Pod", false)
		logging.Log.WithError(err).WithFields(logrus.Fields{
			"namespace": namespace,
			"name":      name,
		}).Warn("pod cleanup failed")
		return false
	}
	metrics.RecordClusterCall("delete", "Pod", true)
	return true
}
