package cmd

import (
	"fmt"
	"time"

	"github.com/nodeloop/kuberun/internal/runner"
	"github.com/urfave/cli/v2"
)

// TriggerCronJobCommand mints a one-off job from a cronjob template
var TriggerCronJobCommand = &cli.Command{
	Name:      "trigger-cronjob",
	Usage:     "Run a cronjob's job template immediately, outside its schedule",
	ArgsUsage: "<cronjob-name>",
	Flags: append(sessionFlags,
		&cli.StringSliceFlag{
			Name:  "command",
			Usage: "Replace the container command (can be repeated for each element)",
		},
		&cli.StringSliceFlag{
			Name:  "arg",
			Usage: "Replace the container args (can be repeated for each element)",
		},
		&cli.StringSliceFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "Set or override an env var as KEY=VALUE (can be repeated)",
		},
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
			Usage: "Keep the triggered job after completion instead of deleting it",
		},
	),
	Action: triggerCronJobAction,
}

func triggerCronJobAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return fmt.Errorf("usage: kuberun trigger-cronjob <cronjob-name>")
	}

	env, err := parseEnvVars(ctx.StringSlice("env"))
	if err != nil {
		return err
	}

	r, err := newRunner()
	if err != nil {
		return err
	}

	trigger := runner.CronJobTrigger{
		Name: ctx.Args().Get(0),
		Overrides: runner.Overrides{
			Command: ctx.StringSlice("command"),
			Args:    ctx.StringSlice("arg"),
			Env:     env,
		},
		Container: ctx.String("container"),
		Timeout:   time.Duration(ctx.Int("timeout")) * time.Second,
	}
	if ctx.Bool("keep") {
		keep := false
		trigger.Cleanup = &keep
	}

	result, err := r.TriggerCronJob(ctx.Context, trigger)
	if err != nil {
		return err
	}

	if err := printJSON(result); err != nil {
		return err
	}
	return runExitErr(result)
}
