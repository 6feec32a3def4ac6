package runner

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/nodeloop/kuberun/internal/cluster"
)

// maxNameLength is the DNS-1123 label limit resource names must fit in
const maxNameLength = 63

var dns1123Label = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateName checks that a derived workload name is a usable DNS-1123
// label. Pipelines call this before touching the cluster so a bad name fails
// fast instead of surfacing as an API rejection mid-run.
func ValidateName(name string) error {
	if name == "" {
		return cluster.NewValidationError("name", "must not be empty")
	}
	if len(name) > maxNameLength {
		return cluster.NewValidationError("name", fmt.Sprintf("must be at most %d characters, got %d", maxNameLength, len(name)))
	}
	if !dns1123Label.MatchString(name) {
		return cluster.NewValidationError("name", "must be a DNS-1123 label: lowercase alphanumerics and '-', starting and ending with an alphanumeric")
	}
	return nil
}

// JobRunName derives a unique job name from a base by appending a short
// random suffix
func JobRunName(base string) string {
	return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8])
}

// TriggeredJobName derives the name of a job minted from a cronjob, stamped
// with the trigger second so repeated triggers stay distinct and sortable
func TriggeredJobName(base string, at time.Time) string {
	return fmt.Sprintf("%s-%d", base, at.Unix())
}

// DerivedPodName names an ad-hoc pod when the manifest does not
func DerivedPodName(at time.Time) string {
	return fmt.Sprintf("run-pod-%d", at.Unix())
}
