// Package logstream reads container logs from pods. Reads are bounded by a
// watchdog so that a quiet or endless stream cannot hang a caller: when the
// watchdog expires the stream is closed and whatever was read so far is
// returned as a successful result.
package logstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/nodeloop/kuberun/internal/metrics"
	"github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// DefaultWatchdog bounds a one-shot read of logs already written
	DefaultWatchdog = 10 * time.Second

	// DefaultFollowWatchdog bounds a follow read, which only ends when the
	// container does
	DefaultFollowWatchdog = 300 * time.Second
)

// Options narrow a log read
type Options struct {
	// Container selects a container in the pod; empty means the only one
	Container string
	// SinceTime, when set, must be RFC3339 and limits logs to entries at
	// or after that instant
	SinceTime string
	// TailLines, when set, limits the read to the last N lines
	TailLines *int64
	// Follow keeps the stream open as the container writes
	Follow bool
	// Previous reads the prior container instance after a restart
	Previous bool
	// Watchdog overrides the default read bound
	Watchdog time.Duration
}

// Collector reads pod logs through one cluster session
type Collector struct {
	session *cluster.Session
}

// NewCollector creates a Collector
func NewCollector(session *cluster.Session) *Collector {
	return &Collector{session: session}
}

// Open starts a log stream for a pod. Callers own the returned stream and
// must close it.
func (c *Collector) Open(ctx context.Context, namespace, pod string, opts Options) (io.ReadCloser, error) {
	if pod == "" {
		return nil, cluster.NewValidationError("pod", "must not be empty")
	}
	logOpts := &corev1.PodLogOptions{
		Container: opts.Container,
		Follow:    opts.Follow,
		Previous:  opts.Previous,
		TailLines: opts.TailLines,
	}
	if opts.SinceTime != "" {
		t, err := time.Parse(time.RFC3339, opts.SinceTime)
		if err != nil {
			return nil, cluster.NewValidationError("sinceTime", fmt.Sprintf("must be an RFC3339 timestamp: %v", err))
		}
		since := metav1.NewTime(t)
		logOpts.SinceTime = &since
	}

	namespace = c.session.NamespaceOr(namespace)
	rc, err := c.session.Core().Pods(namespace).GetLogs(pod, logOpts).Stream(ctx)
	if err != nil {
		metrics.RecordClusterCall("logs", "Pod", false)
		return nil, cluster.NewCallError("stream logs", "Pod", namespace, pod, err)
	}
	metrics.RecordClusterCall("logs", "Pod", true)
	return rc, nil
}

// Collect reads a pod's logs into a string. The read ends when the stream
// does or when the watchdog expires, whichever comes first; expiry is not an
// error, it returns what was read. Validation and stream-open failures are.
func (c *Collector) Collect(ctx context.Context, namespace, pod string, opts Options) (string, error) {
	rc, err := c.Open(ctx, namespace, pod, opts)
	if err != nil {
		return "", err
	}

	watchdog := opts.Watchdog
	if watchdog <= 0 {
		if opts.Follow {
			watchdog = DefaultFollowWatchdog
		} else {
			watchdog = DefaultWatchdog
		}
	}

	out, err := drain(rc, watchdog)
	metrics.RecordLogBytes(len(out))
	if err != nil {
		return out, err
	}
	logging.Log.WithFields(logrus.Fields{
		"pod":   pod,
		"bytes": len(out),
	}).Debug("collected pod logs")
	return out, nil
}

// drain copies the stream into memory until it ends or the watchdog fires.
// The copy runs in its own goroutine; on watchdog expiry the stream is closed
// and the goroutine is joined before the buffer is read, so the partial
// result is complete and race free.
func drain(rc io.ReadCloser, watchdog time.Duration) (string, error) {
	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(&buf, rc)
		done <- err
	}()

	select {
	case err := <-done:
		rc.Close()
		if err != nil {
			return buf.String(), fmt.Errorf("reading log stream: %w", err)
		}
		return buf.String(), nil
	case <-time.After(watchdog):
		rc.Close()
		<-done
		return buf.String(), nil
	}
}

// ParseMaybeJSON decodes a log payload as JSON when it is JSON, otherwise
// returns the payload unchanged as a string.
func ParseMaybeJSON(s string) any {
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return s
	}
	return parsed
}
