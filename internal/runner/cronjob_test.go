package runner

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func cronJobFixture(name string) *batchv1.CronJob {
	return &batchv1.CronJob{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "test-ns"},
		Spec: batchv1.CronJobSpec{
			Schedule: "0 3 * * *",
			JobTemplate: batchv1.JobTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      map[string]string{"team": "data"},
					Annotations: map[string]string{"owner": "reports"},
				},
				Spec: batchv1.JobSpec{
					Template: corev1.PodTemplateSpec{
						Spec: corev1.PodSpec{
							RestartPolicy: corev1.RestartPolicyNever,
							Containers: []corev1.Container{{
								Name:    "report",
								Image:   "reports:v1",
								Command: []string{"make", "report"},
								Env:     []corev1.EnvVar{{Name: "MODE", Value: "scheduled"}},
							}},
						},
					},
				},
			},
		},
	}
}

func TestTriggerCronJob(t *testing.T) {
	f := newFixture(t, cronJobFixture("nightly-report"))
	f.finishJobsOnWatch(1, 0)
	f.servePods(jobPod("nightly-report-pod", "nightly-report"))

	var created []*batchv1.Job
	f.captureCreatedJobs(&created)

	result, err := f.runner.TriggerCronJob(context.Background(), CronJobTrigger{
		Name: "nightly-report",
		Overrides: Overrides{
			Command: []string{"make", "backfill"},
			Env: []corev1.EnvVar{
				{Name: "MODE", Value: "manual"},
				{Name: "SINCE", Value: "2024-01-01"},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, created, 1)
	job := created[0]

	assert.Regexp(t, regexp.MustCompile(`^nightly-report-\d+$`), job.Name)
	assert.Equal(t, "test-ns", job.Namespace)

	// provenance back to the template
	assert.Equal(t, "data", job.Labels["team"])
	assert.Equal(t, cluster.ManagedByValue, job.Labels[cluster.ManagedByLabel])
	assert.Equal(t, "nightly-report", job.Labels[TriggeredFromLabel])
	assert.Equal(t, "true", job.Labels[ManualTriggerLabel])
	assert.Equal(t, "reports", job.Annotations["owner"])
	assert.Equal(t, "true", job.Annotations[OverridesAppliedAnnotation])
	at, parseErr := time.Parse(time.RFC3339, job.Annotations[TriggerTimeAnnotation])
	require.NoError(t, parseErr)
	assert.WithinDuration(t, time.Now().UTC(), at, time.Minute)

	// overrides applied to the minted job only
	container := job.Spec.Template.Spec.Containers[0]
	assert.Equal(t, []string{"make", "backfill"}, container.Command)
	assert.Equal(t, []corev1.EnvVar{
		{Name: "MODE", Value: "manual"},
		{Name: "SINCE", Value: "2024-01-01"},
	}, container.Env)
	assert.Equal(t, cluster.ManagedByValue, job.Spec.Template.Labels[cluster.ManagedByLabel])
	require.NotNil(t, job.Spec.TTLSecondsAfterFinished)
	assert.Equal(t, int32(3600), *job.Spec.TTLSecondsAfterFinished)

	assert.Equal(t, job.Name, result.Name)
	assert.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, "fake logs", result.RawOutput)
	assert.True(t, result.Cleaned)
}

func TestTriggerCronJobLeavesTemplateAlone(t *testing.T) {
	f := newFixture(t, cronJobFixture("nightly-report"))
	f.finishJobsOnWatch(1, 0)
	f.servePods(jobPod("nightly-report-pod", "nightly-report"))

	_, err := f.runner.TriggerCronJob(context.Background(), CronJobTrigger{
		Name:      "nightly-report",
		Overrides: Overrides{Command: []string{"make", "backfill"}},
	})
	require.NoError(t, err)

	stored, err := f.clientset.BatchV1().CronJobs("test-ns").Get(context.Background(), "nightly-report", metav1.GetOptions{})
	require.NoError(t, err)

	template := stored.Spec.JobTemplate
	assert.Equal(t, []string{"make", "report"}, template.Spec.Template.Spec.Containers[0].Command)
	assert.NotContains(t, template.Labels, cluster.ManagedByLabel)
	assert.NotContains(t, template.Annotations, TriggerTimeAnnotation)
	assert.NotContains(t, template.Spec.Template.Labels, cluster.ManagedByLabel)
}

func TestTriggerCronJobWithoutOverrides(t *testing.T) {
	f := newFixture(t, cronJobFixture("nightly-report"))
	f.finishJobsOnWatch(1, 0)
	f.servePods(jobPod("nightly-report-pod", "nightly-report"))

	var created []*batchv1.Job
	f.captureCreatedJobs(&created)

	_, err := f.runner.TriggerCronJob(context.Background(), CronJobTrigger{Name: "nightly-report"})
	require.NoError(t, err)

	require.Len(t, created, 1)
	job := created[0]
	assert.Equal(t, "false", job.Annotations[OverridesAppliedAnnotation])
	assert.Equal(t, []string{"make", "report"}, job.Spec.Template.Spec.Containers[0].Command)
	assert.Equal(t, []corev1.EnvVar{{Name: "MODE", Value: "scheduled"}}, job.Spec.Template.Spec.Containers[0].Env)
}

func TestTriggerCronJobKeep(t *testing.T) {
	f := newFixture(t, cronJobFixture("nightly-report"))
	f.finishJobsOnWatch(1, 0)
	f.servePods(jobPod("nightly-report-pod", "nightly-report"))

	var created []*batchv1.Job
	f.captureCreatedJobs(&created)

	keep := false
	result, err := f.runner.TriggerCronJob(context.Background(), CronJobTrigger{
		Name:    "nightly-report",
		Cleanup: &keep,
	})
	require.NoError(t, err)

	require.Len(t, created, 1)
	assert.Nil(t, created[0].Spec.TTLSecondsAfterFinished)
	assert.False(t, result.Cleaned)
	assert.Zero(t, countActions(f.clientset.Actions(), "delete", "jobs"))
}

func TestTriggerCronJobNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.runner.TriggerCronJob(context.Background(), CronJobTrigger{Name: "ghost"})
	require.Error(t, err)
	assert.True(t, cluster.IsCallError(err))
	assert.Contains(t, err.Error(), "cluster get CronJob")
}

func TestTriggerCronJobValidation(t *testing.T) {
	tests := []struct {
		name     string
		trigger  CronJobTrigger
		fragment string
	}{
		{"empty name", CronJobTrigger{}, "must not be empty"},
		{"base pushes derived name over the limit", CronJobTrigger{Name: strings.Repeat("a", 58)}, "must be at most 63"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.runner.TriggerCronJob(context.Background(), tt.trigger)
			require.Error(t, err)
			assert.True(t, cluster.IsValidationError(err))
			assert.Contains(t, err.Error(), tt.fragment)
			assert.Empty(t, f.clientset.Actions(), "validation must fail before the cronjob is read")
		})
	}
}
