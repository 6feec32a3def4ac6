package runner

import (
	corev1 "k8s.io/api/core/v1"
)

// Overrides adjust a pod template before a run. Command and args replace the
// template values wholesale when set; env entries merge by name.
type Overrides struct {
	Command []string        `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string        `json:"args,omitempty" yaml:"args,omitempty"`
	Env     []corev1.EnvVar `json:"env,omitempty" yaml:"env,omitempty"`
}

// Empty reports whether the overrides change anything
func (o Overrides) Empty() bool {
	return len(o.Command) == 0 && len(o.Args) == 0 && len(o.Env) == 0
}

// Apply rewrites every app container of the spec. Init containers are left
// alone; they run setup the override should not disturb.
func (o Overrides) Apply(spec *corev1.PodSpec) {
	for i := range spec.Containers {
		if len(o.Command) > 0 {
			spec.Containers[i].Command = o.Command
		}
		if len(o.Args) > 0 {
			spec.Containers[i].Args = o.Args
		}
		if len(o.Env) > 0 {
			spec.Containers[i].Env = mergeEnv(spec.Containers[i].Env, o.Env)
		}
	}
}

// mergeEnv updates base entries by name and appends the rest, keeping base
// order first and override order for additions
func mergeEnv(base, overrides []corev1.EnvVar) []corev1.EnvVar {
	merged := make([]corev1.EnvVar, len(base))
	copy(merged, base)
	for _, override := range overrides {
		replaced := false
		for i := range merged {
			if merged[i].Name == override.Name {
				merged[i] = override
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, override)
		}
	}
	return merged
}
