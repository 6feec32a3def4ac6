package cmd

import (
	"fmt"
	"time"

	"github.com/nodeloop/kuberun/internal/runner"
	"github.com/urfave/cli/v2"
	batchv1 "k8s.io/api/batch/v1"
)

// RunJobCommand runs a job manifest under a unique name and prints the result
var RunJobCommand = &cli.Command{
	Name:      "run-job",
	Usage:     "Run a job under a unique name, wait for completion, and collect pod logs",
	ArgsUsage: "<manifest-file>",
	Flags: append(sessionFlags,
		&cli.StringFlag{
			Name:    "container",
			Aliases: []string{"c"},
			Usage:   "Container to collect logs from (defaults to the pod's only container)",
		},
		&cli.IntFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "Seconds to wait for the job to finish (0 uses the configured default)",
			EnvVars: []string{"KUBERUN_WAIT_TIMEOUT_SECONDS"},
		},
		&cli.BoolFlag{
			Name:  "keep",
			Usage: "Keep the job after completion instead of deleting it",
		},
	),
	Action: runJobAction,
}

func runJobAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return fmt.Errorf("usage: kuberun run-job <manifest-file>")
	}

	var job batchv1.Job
	if err := loadManifest(ctx.Args().Get(0), &job); err != nil {
		return err
	}

	r, err := newRunner()
	if err != nil {
		return err
	}

	run := runner.JobRun{
		Job:       &job,
		Container: ctx.String("container"),
		Timeout:   time.Duration(ctx.Int("timeout")) * time.Second,
	}
	if ctx.Bool("keep") {
		keep := false
		run.Cleanup = &keep
	}

	result, err := r.RunJob(ctx.Context, run)
	if err != nil {
		return err
	}

	if err := printJSON(result); err != nil {
		return err
	}
	return runExitErr(result)
}
