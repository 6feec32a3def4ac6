package main

import (
	"os"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/nodeloop/kuberun/cmd"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "kuberun",
		Usage: "Kubernetes workload automation engine",
		Commands: []*cli.Command{
			cmd.ServeCommand,
			cmd.RunPodCommand,
			cmd.RunJobCommand,
			cmd.TriggerCronJobCommand,
			cmd.WaitCommand,
			cmd.LogsCommand,
			cmd.BatchCommand,
			cmd.ResourceCommand,
			cmd.TokenCommand,
			cmd.HealthCheckCommand,
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		// log fatal so we exit with the proper exit code, this is important for containerized deployment health checks
		logging.Log.WithError(err).Fatal("runtime error")
	}
}
