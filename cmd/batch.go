package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/nodeloop/kuberun/internal/runner"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
)

// BatchCommand runs a batch file of pod runs, job runs, and cronjob triggers
var BatchCommand = &cli.Command{
	Name:      "batch",
	Usage:     "Run a batch of workloads from a batch file and report every result",
	ArgsUsage: "<batch-file>",
	Flags: append(sessionFlags,
		&cli.IntFlag{
			Name:    "concurrency",
			Aliases: []string{"c"},
			Usage:   "How many entries run at once (overrides the batch file setting)",
			EnvVars: []string{"KUBERUN_BATCH_CONCURRENCY"},
		},
	),
	Action: batchAction,
}

// batchEnvVar is a name/value pair; a list keeps override order deterministic
type batchEnvVar struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

type batchOverrides struct {
	Command []string      `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string      `json:"args,omitempty" yaml:"args,omitempty"`
	Env     []batchEnvVar `json:"env,omitempty" yaml:"env,omitempty"`
}

// batchEntry is one workload in a batch file. Type selects the pipeline:
// "pod" and "job" load a manifest file, "cronjob" names an existing cronjob.
type batchEntry struct {
	Type           string          `json:"type" yaml:"type"`
	Manifest       string          `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	Name           string          `json:"name,omitempty" yaml:"name,omitempty"`
	Container      string          `json:"container,omitempty" yaml:"container,omitempty"`
	TimeoutSeconds int             `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	Cleanup        *bool           `json:"cleanup,omitempty" yaml:"cleanup,omitempty"`
	Overrides      *batchOverrides `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

type batchSpec struct {
	Concurrency int          `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Entries     []batchEntry `json:"entries" yaml:"entries"`
}

// batchResult pairs an entry with its outcome, in input order
type batchResult struct {
	Index  int               `json:"index"`
	Type   string            `json:"type"`
	Target string            `json:"target"`
	Result *runner.RunResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func batchAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return fmt.Errorf("usage: kuberun batch <batch-file>")
	}

	batchFile := ctx.Args().Get(0)
	spec, err := loadBatchSpec(batchFile)
	if err != nil {
		return err
	}
	if len(spec.Entries) == 0 {
		return fmt.Errorf("batch file has no entries")
	}

	concurrency := ctx.Int("concurrency")
	if concurrency == 0 {
		concurrency = spec.Concurrency
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	r, err := newRunner()
	if err != nil {
		return err
	}

	baseDir := filepath.Dir(batchFile)
	results := make([]batchResult, len(spec.Entries))

	pool := workerpool.New(concurrency)
	for i, entry := range spec.Entries {
		i, entry := i, entry
		pool.Submit(func() {
			results[i] = runBatchEntry(ctx, r, baseDir, i, entry)
		})
	}
	pool.StopWait()

	if err := printJSON(results); err != nil {
		return err
	}

	for _, res := range results {
		if res.Error != "" || (res.Result != nil && res.Result.Status == runner.StatusFailed) {
			return cli.Exit("", 1)
		}
	}
	return nil
}

// runBatchEntry executes one entry; errors become part of the result rather
// than stopping the batch
func runBatchEntry(ctx *cli.Context, r *runner.Runner, baseDir string, index int, entry batchEntry) batchResult {
	res := batchResult{Index: index, Type: entry.Type}
	timeout := time.Duration(entry.TimeoutSeconds) * time.Second

	switch entry.Type {
	case "pod":
		res.Target = entry.Manifest
		var pod corev1.Pod
		if err := loadManifest(resolveManifestPath(baseDir, entry.Manifest), &pod); err != nil {
			res.Error = err.Error()
			return res
		}
		result, err := r.RunPod(ctx.Context, runner.PodRun{
			Pod:       &pod,
			Container: entry.Container,
			Timeout:   timeout,
		})
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.Result = &result

	case "job":
		res.Target = entry.Manifest
		var job batchv1.Job
		if err := loadManifest(resolveManifestPath(baseDir, entry.Manifest), &job); err != nil {
			res.Error = err.Error()
			return res
		}
		result, err := r.RunJob(ctx.Context, runner.JobRun{
			Job:       &job,
			Container: entry.Container,
			Timeout:   timeout,
			Cleanup:   entry.Cleanup,
		})
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.Result = &result

	case "cronjob":
		res.Target = entry.Name
		result, err := r.TriggerCronJob(ctx.Context, runner.CronJobTrigger{
			Name:      entry.Name,
			Overrides: entry.Overrides.toRunner(),
			Container: entry.Container,
			Timeout:   timeout,
			Cleanup:   entry.Cleanup,
		})
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.Result = &result

	default:
		res.Error = fmt.Sprintf("unknown entry type %q, expected pod, job, or cronjob", entry.Type)
	}

	return res
}

func (o *batchOverrides) toRunner() runner.Overrides {
	if o == nil {
		return runner.Overrides{}
	}
	overrides := runner.Overrides{
		Command: o.Command,
		Args:    o.Args,
	}
	for _, env := range o.Env {
		overrides.Env = append(overrides.Env, corev1.EnvVar{Name: env.Name, Value: env.Value})
	}
	return overrides
}

// resolveManifestPath resolves a manifest path relative to the batch file
func resolveManifestPath(baseDir, manifest string) string {
	if filepath.IsAbs(manifest) {
		return manifest
	}
	return filepath.Join(baseDir, manifest)
}

// loadBatchSpec reads a batch file, YAML or JSON by extension
func loadBatchSpec(path string) (*batchSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var spec batchSpec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
		}
	}
	return &spec, nil
}
