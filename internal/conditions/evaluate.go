// Package conditions decides whether an observed cluster object satisfies a
// named condition. Evaluation is pure: no I/O, no panics, and unknown
// kind/condition combinations are false rather than errors, so a watch loop
// can feed it anything the stream delivers.
package conditions

import (
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Evaluate reports whether obj satisfies condition for the given kind. The
// per-kind rules are the contract the rest of the engine relies on to mean
// the same thing by "Ready" across resource kinds:
//
//   - Pod: Ready via status.conditions; Succeeded/Failed via status.phase
//   - Deployment: Available via status.conditions
//   - Job: Complete/Failed via status.conditions
//   - StatefulSet: derived from replica counters (no native conditions)
//   - anything else: status.conditions entry of the given type is "True"
func Evaluate(kind string, obj *unstructured.Unstructured, condition string) bool {
	if obj == nil || condition == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "pod":
		return evaluatePod(obj, condition)
	case "deployment", "job":
		// Available, Complete and Failed all live in status.conditions, the
		// same place the generic lookup reads
		return conditionIsTrue(obj, condition)
	case "statefulset":
		return evaluateStatefulSet(obj, condition)
	}
	return conditionIsTrue(obj, condition)
}

func evaluatePod(obj *unstructured.Unstructured, condition string) bool {
	switch condition {
	case "Ready":
		return conditionIsTrue(obj, "Ready")
	case "Succeeded", "Failed":
		phase, found, err := unstructured.NestedString(obj.Object, "status", "phase")
		return err == nil && found && phase == condition
	}
	return conditionIsTrue(obj, condition)
}

// evaluateStatefulSet derives readiness from replica counters since
// statefulsets publish no native conditions. A missing counter means the
// condition is not met.
func evaluateStatefulSet(obj *unstructured.Unstructured, condition string) bool {
	replicas, haveReplicas := StatusCount(obj, "replicas")
	ready, haveReady := StatusCount(obj, "readyReplicas")
	current, haveCurrent := StatusCount(obj, "currentReplicas")
	updated, haveUpdated := StatusCount(obj, "updatedReplicas")

	switch condition {
	case "Ready", "Available":
		return haveReplicas && haveReady && replicas > 0 && ready == replicas
	case "Complete":
		return haveReplicas && haveReady && haveCurrent && haveUpdated &&
			replicas > 0 && ready == replicas && current == replicas && updated == replicas
	case "Succeeded":
		return haveReplicas && haveReady && haveUpdated &&
			ready == updated && updated == replicas
	}
	return conditionIsTrue(obj, condition)
}

// conditionIsTrue searches status.conditions for an entry of the given type
// and tests its status against "True"
func conditionIsTrue(obj *unstructured.Unstructured, conditionType string) bool {
	entries, found, err := unstructured.NestedSlice(obj.Object, "status", "conditions")
	if err != nil || !found {
		return false
	}
	for _, entry := range entries {
		cond, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if condType, _ := cond["type"].(string); condType != conditionType {
			continue
		}
		status, _ := cond["status"].(string)
		return status == "True"
	}
	return false
}

// StatusCount reads a numeric status field, tolerating the int64/float64
// split between API-decoded and hand-built objects
func StatusCount(obj *unstructured.Unstructured, field string) (int64, bool) {
	if obj == nil {
		return 0, false
	}
	val, found, err := unstructured.NestedFieldNoCopy(obj.Object, "status", field)
	if err != nil || !found {
		return 0, false
	}
	switch n := val.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}
