package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/nodeloop/kuberun/internal/conditions"
	"github.com/nodeloop/kuberun/internal/logstream"
	"github.com/nodeloop/kuberun/internal/metrics"
	"github.com/nodeloop/kuberun/internal/watchwait"
	"github.com/sirupsen/logrus"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// jobSafetyTTLSeconds is set on jobs the runner will clean up itself, so the
// cluster eventually removes them even if the process dies mid-run
const jobSafetyTTLSeconds = int32(3600)

// JobRun describes one job run
type JobRun struct {
	// Job is the manifest to run; its name is the base a unique run name is
	// derived from
	Job *batchv1.Job
	// Namespace overrides the manifest and session namespaces
	Namespace string
	// Container selects which container logs come from; empty reads the
	// pod's only container
	Container string
	// Timeout overrides the runner default
	Timeout time.Duration
	// Cleanup overrides the runner default
	Cleanup *bool
}

// jobFinished matches a job whose status counters show any terminal pod
func jobFinished(obj *unstructured.Unstructured) bool {
	if n, ok := conditions.StatusCount(obj, "succeeded"); ok && n > 0 {
		return true
	}
	if n, ok := conditions.StatusCount(obj, "failed"); ok && n > 0 {
		return true
	}
	return false
}

// RunJob creates a job under a derived unique name, waits for its status
// counters to report success or failure, collects logs from its first pod,
// and optionally deletes it. The derived name is validated before any
// cluster call.
func (r *Runner) RunJob(ctx context.Context, run JobRun) (RunResult, error) {
	if run.Job == nil {
		return RunResult{}, cluster.NewValidationError("job", "manifest is required")
	}
	if run.Job.Name == "" {
		return RunResult{}, cluster.NewValidationError("job", "manifest needs a name to derive the run name from")
	}

	name := JobRunName(run.Job.Name)
	if err := ValidateName(name); err != nil {
		return RunResult{}, err
	}

	namespace := run.Namespace
	if namespace == "" {
		namespace = run.Job.Namespace
	}
	namespace = r.session.NamespaceOr(namespace)

	cleanup := r.cleanupOr(run.Cleanup)

	job := run.Job.DeepCopy()
	job.Name = name
	job.Namespace = namespace
	if job.Labels == nil {
		job.Labels = map[string]string{}
	}
	job.Labels[cluster.ManagedByLabel] = cluster.ManagedByValue
	if job.Spec.Template.Labels == nil {
		job.Spec.Template.Labels = map[string]string{}
	}
	job.Spec.Template.Labels[cluster.ManagedByLabel] = cluster.ManagedByValue
	if job.Spec.Template.Spec.RestartPolicy == "" {
		job.Spec.Template.Spec.RestartPolicy = corev1.RestartPolicyNever
	}
	if job.Spec.BackoffLimit == nil {
		job.Spec.BackoffLimit = int32Ptr(0)
	}
	if cleanup && job.Spec.TTLSecondsAfterFinished == nil {
		job.Spec.TTLSecondsAfterFinished = int32Ptr(jobSafetyTTLSeconds)
	}

	logger := logging.Log.WithFields(logrus.Fields{
		"kind":      "Job",
		"namespace": namespace,
		"name":      name,
	})
	logger.Info("creating job")

	created, err := r.session.Batch().Jobs(namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		metrics.RecordClusterCall("create", "Job", false)
		return RunResult{}, cluster.NewCallError("create", "Job", namespace, name, err)
	}
	metrics.RecordClusterCall("create", "Job", true)

	return r.awaitJob(ctx, awaitJobParams{
		kindLabel: "Job",
		namespace: namespace,
		name:      created.Name,
		container: run.Container,
		timeout:   r.timeoutOr(run.Timeout),
		cleanup:   cleanup,
	})
}

// awaitJobParams carries the shared tail of the job pipelines
type awaitJobParams struct {
	kindLabel string
	namespace string
	name      string
	container string
	timeout   time.Duration
	cleanup   bool
}

// awaitJob is the common back half of RunJob and TriggerCronJob: wait for
// terminal status counters, collect logs from the first pod, clean up.
func (r *Runner) awaitJob(ctx context.Context, params awaitJobParams) (RunResult, error) {
	logger := logging.Log.WithFields(logrus.Fields{
		"kind":      "Job",
		"namespace": params.namespace,
		"name":      params.name,
	})

	started := time.Now()
	outcome, err := r.waiter.Wait(ctx, watchwait.Request{
		APIVersion: "batch/v1",
		Kind:       "Job",
		Namespace:  params.namespace,
		Name:       params.name,
		Timeout:    params.timeout,
		Match:      jobFinished,
	})
	if err != nil {
		return RunResult{}, err
	}

	res := RunResult{Name: params.name, Namespace: params.namespace, Status: StatusUnknown}

	switch outcome.State {
	case watchwait.StateAborted:
		// interrupted from outside; report what we know instead of failing,
		// since the job may well still run to completion on the cluster
		logger.Warn("job watch aborted externally, reporting unknown status")
		if params.cleanup {
			res.Cleaned = r.cleanupJob(params.namespace, params.name)
		}
		return res, nil
	case watchwait.StateTimedOut:
		if pod, podErr := r.podForJob(ctx, params.namespace, params.name); podErr == nil {
			if reason, message := StartupFailure(pod); reason != "" {
				logger.WithFields(logrus.Fields{
					"pod":     pod.Name,
					"reason":  reason,
					"message": message,
				}).Error("job pod never started")
				return RunResult{}, fmt.Errorf("%w; %w", outcome.Err, &PodStartupError{Reason: reason, Message: message})
			}
		}
		return RunResult{}, outcome.Err
	case watchwait.StateErrored:
		return RunResult{}, outcome.Err
	}

	if n, ok := conditions.StatusCount(outcome.Resource, "succeeded"); ok && n > 0 {
		res.Status = StatusSucceeded
	} else if n, ok := conditions.StatusCount(outcome.Resource, "failed"); ok && n > 0 {
		res.Status = StatusFailed
	}

	if pod, podErr := r.podForJob(ctx, params.namespace, params.name); podErr != nil {
		logger.WithError(podErr).Warn("could not locate a pod for the job, returning result without logs")
	} else {
		if reason, message := StartupFailure(pod); reason != "" {
			logger.WithFields(logrus.Fields{
				"pod":     pod.Name,
				"reason":  reason,
				"message": message,
			}).Warn("job pod failed during startup")
		}
		logs, collectErr := r.collector.Collect(ctx, params.namespace, pod.Name, logstream.Options{Container: params.container})
		if collectErr != nil {
			logger.WithError(collectErr).Warn("failed to collect job logs")
		}
		res.RawOutput = logs
		res.Logs = logstream.ParseMaybeJSON(logs)
	}

	if params.cleanup {
		res.Cleaned = r.cleanupJob(params.namespace, params.name)
	}

	metrics.RecordRun(params.kindLabel, string(res.Status), time.Since(started).Seconds())
	logger.WithField("status", string(res.Status)).Info("job run finished")
	return res, nil
}

// podForJob finds the first pod belonging to a job. Older clusters label job
// pods with job-name, newer ones with the batch.kubernetes.io prefix; both
// are tried in that order.
func (r *Runner) podForJob(ctx context.Context, namespace, name string) (*corev1.Pod, error) {
	selectors := []string{
		fmt.Sprintf("job-name=%s", name),
		fmt.Sprintf("batch.kubernetes.io/job-name=%s", name),
	}
	for _, selector := range selectors {
		pods, err := r.session.Core().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
		if err != nil {
			metrics.RecordClusterCall("list", "Pod", false)
			return nil, cluster.NewCallError("list pods for", "Job", namespace, name, err)
		}
		metrics.RecordClusterCall("list", "Pod", true)
		if len(pods.Items) > 0 {
			return &pods.Items[0], nil
		}
	}
	return nil, fmt.Errorf("no pods found for job %s", name)
}

// cleanupJob removes a job and its pods on its own deadline. Failure is
// reported through the result's Cleaned flag, not as an error.
func (r *Runner) cleanupJob(namespace, name string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	propagation := metav1.DeletePropagationBackground
	err := r.session.Batch().Jobs(namespace).Delete(ctx, name, metav1.DeleteOptions{PropagationPolicy: &propagation})
	if err != nil {
		metrics.RecordClusterCall("delete", "Job", false)
		logging.Log.WithError(err).WithFields(logrus.Fields{
			"namespace": namespace,
			"name":      name,
		}).Warn("job cleanup failed")
		return false
	}
	metrics.RecordClusterCall("delete", "Job", true)
	return true
}

func int32Ptr(i int32) *int32 {
	return &i
}
