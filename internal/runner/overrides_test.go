package runner

import (
	"reflect"
	"testing"

	corev1 "k8s.io/api/core/v1"
)

func TestOverridesApply(t *testing.T) {
	spec := &corev1.PodSpec{
		InitContainers: []corev1.Container{{
			Name:    "setup",
			Command: []string{"init.sh"},
			Env:     []corev1.EnvVar{{Name: "STAGE", Value: "init"}},
		}},
		Containers: []corev1.Container{
			{
				Name:    "main",
				Command: []string{"run.sh"},
				Args:    []string{"--mode", "standard"},
				Env: []corev1.EnvVar{
					{Name: "A", Value: "1"},
					{Name: "B", Value: "2"},
				},
			},
			{Name: "sidecar"},
		},
	}

	Overrides{
		Command: []string{"other.sh"},
		Env: []corev1.EnvVar{
			{Name: "B", Value: "9"},
			{Name: "C", Value: "3"},
		},
	}.Apply(spec)

	main := spec.Containers[0]
	if !reflect.DeepEqual(main.Command, []string{"other.sh"}) {
		t.Errorf("command = %v, want the override", main.Command)
	}
	if !reflect.DeepEqual(main.Args, []string{"--mode", "standard"}) {
		t.Errorf("args = %v, must stay untouched when not overridden", main.Args)
	}
	wantEnv := []corev1.EnvVar{
		{Name: "A", Value: "1"},
		{Name: "B", Value: "9"},
		{Name: "C", Value: "3"},
	}
	if !reflect.DeepEqual(main.Env, wantEnv) {
		t.Errorf("env = %v, want %v", main.Env, wantEnv)
	}

	if !reflect.DeepEqual(spec.Containers[1].Command, []string{"other.sh"}) {
		t.Errorf("sidecar command = %v, every app container gets the override", spec.Containers[1].Command)
	}

	init := spec.InitContainers[0]
	if !reflect.DeepEqual(init.Command, []string{"init.sh"}) {
		t.Errorf("init command = %v, init containers must not change", init.Command)
	}
	if !reflect.DeepEqual(init.Env, []corev1.EnvVar{{Name: "STAGE", Value: "init"}}) {
		t.Errorf("init env = %v, init containers must not change", init.Env)
	}
}

func TestOverridesApplyArgsOnly(t *testing.T) {
	spec := &corev1.PodSpec{
		Containers: []corev1.Container{{
			Name:    "main",
			Command: []string{"run.sh"},
			Args:    []string{"--mode", "standard"},
		}},
	}

	Overrides{Args: []string{"--mode", "backfill"}}.Apply(spec)

	if !reflect.DeepEqual(spec.Containers[0].Command, []string{"run.sh"}) {
		t.Errorf("command = %v, must stay untouched", spec.Containers[0].Command)
	}
	if !reflect.DeepEqual(spec.Containers[0].Args, []string{"--mode", "backfill"}) {
		t.Errorf("args = %v, want the override", spec.Containers[0].Args)
	}
}

func TestOverridesApplyEmptyIsNoop(t *testing.T) {
	spec := &corev1.PodSpec{
		Containers: []corev1.Container{{
			Name:    "main",
			Command: []string{"run.sh"},
			Args:    []string{"--once"},
			Env:     []corev1.EnvVar{{Name: "A", Value: "1"}},
		}},
	}
	before := spec.DeepCopy()

	Overrides{}.Apply(spec)

	if !reflect.DeepEqual(spec, before) {
		t.Errorf("empty overrides changed the spec: %v", spec)
	}
}

func TestOverridesEmpty(t *testing.T) {
	tests := []struct {
		name      string
		overrides Overrides
		expected  bool
	}{
		{"zero value", Overrides{}, true},
		{"command", Overrides{Command: []string{"x"}}, false},
		{"args", Overrides{Args: []string{"x"}}, false},
		{"env", Overrides{Env: []corev1.EnvVar{{Name: "X"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.overrides.Empty(); got != tt.expected {
				t.Errorf("Empty() = %v, want %v", got, tt.expected)
			}
		})
	}
}
