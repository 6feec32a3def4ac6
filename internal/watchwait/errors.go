package watchwait

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError means the deadline passed before the condition was observed.
// It is distinct from a failed cluster call: it carries kind/name/condition so
// the caller can tell "never happened" apart from "cluster rejected the call".
type TimeoutError struct {
	Kind      string
	Name      string
	Condition string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s %q to reach condition %q", e.Timeout, e.Kind, e.Name, e.Condition)
}

// IsTimeoutError checks if an error is a watch deadline expiry
// Uses errors.As to handle wrapped errors
func IsTimeoutError(err error) bool {
	var terr *TimeoutError
	return errors.As(err, &terr)
}

// abortError is the stream error the machine induces by closing its own watch
// once the outcome is decided. It never leaves this package: the event loop
// recognizes it by the completed flag and swallows it.
type abortError struct {
	completed bool
	cause     string
}

func (e *abortError) Error() string {
	if e.completed {
		return fmt.Sprintf("watch stream aborted after resolution: %s", e.cause)
	}
	return fmt.Sprintf("watch stream aborted: %s", e.cause)
}
