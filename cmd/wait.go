package cmd

import (
	"fmt"
	"time"

	"github.com/nodeloop/kuberun/internal/config"
	"github.com/nodeloop/kuberun/internal/watchwait"
	"github.com/urfave/cli/v2"
)

// WaitCommand blocks until a resource reaches a condition
var WaitCommand = &cli.Command{
	Name:      "wait",
	Usage:     "Wait for a resource to reach a condition",
	ArgsUsage: "<kind> <name> <condition>",
	Flags: append(sessionFlags,
		&cli.StringFlag{
			Name:    "api-version",
			Value:   "v1",
			Usage:   "API version of the resource (e.g. v1, apps/v1, batch/v1)",
			EnvVars: []string{"KUBERUN_API_VERSION"},
		},
		&cli.IntFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "Seconds to wait before giving up (0 uses the configured default)",
			EnvVars: []string{"KUBERUN_WAIT_TIMEOUT_SECONDS"},
		},
	),
	Action: waitAction,
}

func waitAction(ctx *cli.Context) error {
	if ctx.NArg() < 3 {
		return fmt.Errorf("usage: kuberun wait <kind> <name> <condition>")
	}

	session, err := newSession()
	if err != nil {
		return err
	}

	waiter := watchwait.NewWaiter(session)
	waiter.DefaultTimeout = time.Duration(config.WaitTimeoutSeconds) * time.Second
	outcome, err := waiter.Wait(ctx.Context, watchwait.Request{
		APIVersion: ctx.String("api-version"),
		Kind:       ctx.Args().Get(0),
		Name:       ctx.Args().Get(1),
		Condition:  ctx.Args().Get(2),
		Timeout:    time.Duration(ctx.Int("timeout")) * time.Second,
	})
	if err != nil {
		return err
	}
	if outcome.Err != nil {
		return outcome.Err
	}
	if outcome.State != watchwait.StateMet {
		return fmt.Errorf("wait ended without reaching condition: %s", outcome.State)
	}

	fmt.Printf("%s %s reached condition %s\n", ctx.Args().Get(0), ctx.Args().Get(1), ctx.Args().Get(2))
	return nil
}
