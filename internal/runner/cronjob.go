package runner

import (
	"context"
	"strconv"
	"time"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/nodeloop/kuberun/internal/metrics"
	"github.com/sirupsen/logrus"
	batchv1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Provenance markers stamped onto jobs minted from a cronjob, so a triggered
// job can always be traced back to its template and trigger time
const (
	TriggeredFromLabel         = "kuberun.io/triggered-from"
	ManualTriggerLabel         = "kuberun.io/manual-trigger"
	TriggerTimeAnnotation      = "kuberun.io/trigger-time"
	OverridesAppliedAnnotation = "kuberun.io/overrides-applied"
)

// CronJobTrigger describes one on-demand run of a cronjob's template
type CronJobTrigger struct {
	// Name is the cronjob to trigger
	Name string
	// Namespace overrides the session namespace
	Namespace string
	// Overrides adjust the job template before the run
	Overrides Overrides
	// Container selects which container logs come from; empty reads the
	// pod's only container
	Container string
	// Timeout overrides the runner default
	Timeout time.Duration
	// Cleanup overrides the runner default
	Cleanup *bool
}

// TriggerCronJob mints a job from a cronjob's template and runs it to
// completion like any other job run. The template's pod spec is deep copied
// before overrides touch it, so the cronjob itself is never modified. The
// derived job name is validated before the cronjob is even read.
func (r *Runner) TriggerCronJob(ctx context.Context, trigger CronJobTrigger) (RunResult, error) {
	if trigger.Name == "" {
		return RunResult{}, cluster.NewValidationError("name", "must not be empty")
	}

	now := time.Now()
	name := TriggeredJobName(trigger.Name, now)
	if err := ValidateName(name); err != nil {
		return RunResult{}, err
	}

	namespace := r.session.NamespaceOr(trigger.Namespace)
	cleanup := r.cleanupOr(trigger.Cleanup)

	cronJob, err := r.session.Batch().CronJobs(namespace).Get(ctx, trigger.Name, metav1.GetOptions{})
	if err != nil {
		metrics.RecordClusterCall("get", "CronJob", false)
		return RunResult{}, cluster.NewCallError("get", "CronJob", namespace, trigger.Name, err)
	}
	metrics.RecordClusterCall("get", "CronJob", true)

	jobSpec := cronJob.Spec.JobTemplate.Spec.DeepCopy()
	trigger.Overrides.Apply(&jobSpec.Template.Spec)
	if cleanup && jobSpec.TTLSecondsAfterFinished == nil {
		jobSpec.TTLSecondsAfterFinished = int32Ptr(jobSafetyTTLSeconds)
	}

	labels := map[string]string{}
	for k, v := range cronJob.Spec.JobTemplate.Labels {
		labels[k] = v
	}
	labels[cluster.ManagedByLabel] = cluster.ManagedByValue
	labels[TriggeredFromLabel] = cronJob.Name
	labels[ManualTriggerLabel] = "true"

	annotations := map[string]string{}
	for k, v := range cronJob.Spec.JobTemplate.Annotations {
		annotations[k] = v
	}
	annotations[TriggerTimeAnnotation] = now.UTC().Format(time.RFC3339)
	annotations[OverridesAppliedAnnotation] = strconv.FormatBool(!trigger.Overrides.Empty())

	if jobSpec.Template.Labels == nil {
		jobSpec.Template.Labels = map[string]string{}
	}
	jobSpec.Template.Labels[cluster.ManagedByLabel] = cluster.ManagedByValue

	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Namespace:   namespace,
			Labels:      labels,
			Annotations: annotations,
		},
		Spec: *jobSpec,
	}

	logger := logging.Log.WithFields(logrus.Fields{
		"kind":      "CronJob",
		"namespace": namespace,
		"cronjob":   trigger.Name,
		"job":       name,
	})
	logger.WithField("overrides", !trigger.Overrides.Empty()).Info("triggering cronjob")

	created, err := r.session.Batch().Jobs(namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		metrics.RecordClusterCall("create", "Job", false)
		return RunResult{}, cluster.NewCallError("create", "Job", namespace, name, err)
	}
	metrics.RecordClusterCall("create", "Job", true)

	return r.awaitJob(ctx, awaitJobParams{
		kindLabel: "CronJob",
		namespace: namespace,
		name:      created.Name,
		container: trigger.Container,
		timeout:   r.timeoutOr(trigger.Timeout),
		cleanup:   cleanup,
	})
}
