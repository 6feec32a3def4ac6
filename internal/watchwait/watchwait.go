// Package watchwait turns a long-lived, possibly infinite watch stream into a
// single outcome, exactly once, under a deadline. It opens a collection watch
// narrowed to one object, feeds matching events to a condition predicate, and
// resolves through a one-shot latch on the first of: condition met, deadline
// passed, stream error, or caller cancellation.
package watchwait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/nodeloop/kuberun/internal/conditions"
	"github.com/nodeloop/kuberun/internal/metrics"
	"github.com/sirupsen/logrus"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/watch"
)

const (
	// DefaultTimeout bounds a wait when the caller does not supply one
	DefaultTimeout = 300 * time.Second

	// DefaultCloseGrace is the delay between resolving and closing the
	// stream. Closing synchronously can interleave with an in-flight event
	// handler and surface the machine's own cancellation as a real error.
	DefaultCloseGrace = 250 * time.Millisecond
)

// State identifies the terminal state of a wait
type State string

const (
	StateMet      State = "met"
	StateTimedOut State = "timed_out"
	StateErrored  State = "errored"
	StateAborted  State = "aborted"
)

// Outcome is the single result of a wait. Exactly one outcome is produced per
// request: Met carries the resource as observed when the condition matched,
// TimedOut and Errored carry the error, Aborted means the caller cancelled
// before anything was decided.
type Outcome struct {
	State    State
	Resource *unstructured.Unstructured
	Err      error
}

// MatchFunc decides whether an observed object resolves the wait
type MatchFunc func(obj *unstructured.Unstructured) bool

// MatchHook runs inside the event loop when the predicate first matches,
// before the wait resolves. A hook error resolves the wait as Errored.
type MatchHook func(ctx context.Context, obj *unstructured.Unstructured) error

// Request describes one wait. Match defaults to evaluating Condition through
// the conditions ladder; pipelines substitute their own predicates.
type Request struct {
	APIVersion string
	Kind       string
	Namespace  string
	Name       string
	Condition  string
	Timeout    time.Duration
	Match      MatchFunc
	OnMatch    MatchHook
}

// Waiter runs watch-waits against one cluster session. Each Wait call owns
// its own watch handle, timer and latch; concurrent waits share nothing.
type Waiter struct {
	session *cluster.Session

	// CloseGrace delays the stream close after a wait resolves
	CloseGrace time.Duration
	// DefaultTimeout applies when a request carries no timeout
	DefaultTimeout time.Duration
}

// NewWaiter creates a Waiter with the default grace and deadline
func NewWaiter(session *cluster.Session) *Waiter {
	return &Waiter{
		session:        session,
		CloseGrace:     DefaultCloseGrace,
		DefaultTimeout: DefaultTimeout,
	}
}

// Wait blocks until the request resolves and returns its outcome. The
// returned error covers request validation and watch-open failures only; once
// the stream is up, failures come back inside the outcome.
func (w *Waiter) Wait(ctx context.Context, req Request) (Outcome, error) {
	if req.Kind == "" {
		return Outcome{}, cluster.NewValidationError("kind", "must not be empty")
	}
	if req.Name == "" {
		return Outcome{}, cluster.NewValidationError("name", "must not be empty")
	}
	match := req.Match
	if match == nil {
		if req.Condition == "" {
			return Outcome{}, cluster.NewValidationError("condition", "must not be empty")
		}
		kind, condition := req.Kind, req.Condition
		match = func(obj *unstructured.Unstructured) bool {
			return conditions.Evaluate(kind, obj, condition)
		}
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = w.DefaultTimeout
	}

	namespace := w.session.NamespaceOr(req.Namespace)
	watcher, err := w.session.WatchResource(ctx, cluster.ResourceRef{
		APIVersion: req.APIVersion,
		Kind:       req.Kind,
		Namespace:  namespace,
		Name:       req.Name,
	})
	if err != nil {
		return Outcome{}, err
	}

	logger := logging.Log.WithFields(logrus.Fields{
		"kind":      req.Kind,
		"namespace": namespace,
		"name":      req.Name,
		"condition": req.Condition,
	})
	logger.Debug("watching for condition")

	latch := NewLatch()
	started := time.Now()
	go w.consume(ctx, watcher, req, match, latch, logger)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-latch.Done():
	case <-timer.C:
		if latch.Resolve(Outcome{State: StateTimedOut, Err: &TimeoutError{
			Kind:      req.Kind,
			Name:      req.Name,
			Condition: req.Condition,
			Timeout:   timeout,
		}}) {
			watcher.Stop()
			logger.WithField("timeout", timeout.String()).Warn("deadline passed before condition was met")
		}
	case <-ctx.Done():
		if latch.Resolve(Outcome{State: StateAborted}) {
			watcher.Stop()
			logger.Debug("wait aborted by caller")
		}
	}

	outcome := latch.Outcome()
	metrics.RecordWatchOutcome(req.Kind, string(outcome.State), time.Since(started).Seconds())
	return outcome, nil
}

// consume drains the stream until it closes, resolving the latch on the first
// terminal event. Events are delivered sequentially, so the predicate and the
// OnMatch hook run at most once.
func (w *Waiter) consume(ctx context.Context, watcher watch.Interface, req Request, match MatchFunc, latch *Latch, logger *logrus.Entry) {
	for event := range watcher.ResultChan() {
		switch event.Type {
		case watch.Error:
			if latch.Fired() {
				// the machine closed its own stream after resolving; this is
				// the cancellation echo, not a failure
				echo := &abortError{completed: true, cause: apierrors.FromObject(event.Object).Error()}
				logger.WithError(echo).Debug("suppressing stream error after resolution")
				continue
			}
			cause := apierrors.FromObject(event.Object)
			if latch.Resolve(Outcome{State: StateErrored, Err: fmt.Errorf("watch stream error: %w", cause)}) {
				watcher.Stop()
			}
		case watch.Added, watch.Modified:
			obj, ok := event.Object.(*unstructured.Unstructured)
			if !ok || obj.GetName() != req.Name {
				continue
			}
			if latch.Fired() {
				continue
			}
			if !match(obj) {
				continue
			}
			if req.OnMatch != nil {
				if err := req.OnMatch(ctx, obj); err != nil {
					if latch.Resolve(Outcome{State: StateErrored, Err: err}) {
						watcher.Stop()
					}
					continue
				}
			}
			if latch.Resolve(Outcome{State: StateMet, Resource: obj}) {
				logger.Debug("condition met")
				time.AfterFunc(w.CloseGrace, watcher.Stop)
			}
		case watch.Deleted:
			// deletion of the target is not terminal for any supported
			// condition; keep watching until the deadline decides
		}
	}

	if latch.Fired() {
		return
	}
	if ctx.Err() != nil {
		latch.Resolve(Outcome{State: StateAborted})
		return
	}
	latch.Resolve(Outcome{State: StateErrored, Err: errors.New("watch stream closed before the condition was met")})
}
