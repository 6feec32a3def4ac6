package cmd

import (
	"fmt"
	"time"

	"github.com/nodeloop/kuberun/internal/runner"
	"github.com/urfave/cli/v2"
	corev1 "k8s.io/api/core/v1"
)

// RunPodCommand runs a pod manifest to completion and prints the result
var RunPodCommand = &cli.Command{
	Name:      "run-pod",
	Usage:     "Run a pod to completion, collect its logs, and delete it",
	ArgsUsage: "<manifest-file>",
	Flags: append(sessionFlags,
		&cli.StringFlag{
			Name:    "container",
			Aliases: []string{"c"},
			Usage:   "Container to collect logs from (defaults to the first container)",
		},
		&cli.IntFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "Seconds to wait for the pod to finish (0 uses the configured default)",
			EnvVars: []string{"KUBERUN_WAIT_TIMEOUT_SECONDS"},
		},
	),
	Action: runPodAction,
}

func runPodAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return fmt.Errorf("usage: kuberun run-pod <manifest-file>")
	}

	var pod corev1.Pod
	if err := loadManifest(ctx.Args().Get(0), &pod); err != nil {
		return err
	}

	r, err := newRunner()
	if err != nil {
		return err
	}

	result, err := r.RunPod(ctx.Context, runner.PodRun{
		Pod:       &pod,
		Container: ctx.String("container"),
		Timeout:   time.Duration(ctx.Int("timeout")) * time.Second,
	})
	if err != nil {
		return err
	}

	if err := printJSON(result); err != nil {
		return err
	}
	return runExitErr(result)
}
