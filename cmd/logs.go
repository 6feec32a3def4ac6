package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nodeloop/kuberun/internal/config"
	"github.com/nodeloop/kuberun/internal/logstream"
	"github.com/urfave/cli/v2"
)

// LogsCommand collects logs from a pod in the cluster
var LogsCommand = &cli.Command{
	Name:      "logs",
	Usage:     "Collect logs from a pod",
	ArgsUsage: "<pod-name>",
	Flags: append(sessionFlags,
		&cli.StringFlag{
			Name:    "container",
			Aliases: []string{"c"},
			Usage:   "Container to read logs from (defaults to the pod's only container)",
		},
		&cli.StringFlag{
			Name:  "since",
			Usage: "Only return logs at or after this RFC3339 timestamp",
		},
		&cli.Int64Flag{
			Name:  "tail",
			Usage: "Only return the last N lines",
		},
		&cli.BoolFlag{
			Name:    "follow",
			Aliases: []string{"f"},
			Usage:   "Stream logs as the container writes them",
		},
		&cli.BoolFlag{
			Name:    "previous",
			Aliases: []string{"p"},
			Usage:   "Read logs from the previous container instance after a restart",
		},
		&cli.IntFlag{
			Name:  "watchdog",
			Usage: "Seconds before the read is cut off and accumulated logs returned (0 uses the configured default)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file (default: stdout)",
		},
	),
	Action: logsAction,
}

func logsAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return fmt.Errorf("usage: kuberun logs <pod-name>")
	}

	pod := ctx.Args().Get(0)
	outputFile := ctx.String("output")

	session, err := newSession()
	if err != nil {
		return err
	}

	opts := logstream.Options{
		Container: ctx.String("container"),
		SinceTime: ctx.String("since"),
		Follow:    ctx.Bool("follow"),
		Previous:  ctx.Bool("previous"),
		Watchdog:  time.Duration(ctx.Int("watchdog")) * time.Second,
	}
	if ctx.IsSet("tail") {
		tail := ctx.Int64("tail")
		opts.TailLines = &tail
	}

	collector := logstream.NewCollector(session)

	// Follow mode to stdout copies the stream live instead of buffering it
	if opts.Follow && outputFile == "" {
		rc, err := collector.Open(ctx.Context, session.Namespace(), pod, opts)
		if err != nil {
			return err
		}
		defer rc.Close()
		_, err = io.Copy(os.Stdout, rc)
		return err
	}

	if opts.Watchdog == 0 {
		if opts.Follow {
			opts.Watchdog = time.Duration(config.LogFollowTimeoutSeconds) * time.Second
		} else {
			opts.Watchdog = time.Duration(config.LogTimeoutSeconds) * time.Second
		}
	}

	logs, err := collector.Collect(ctx.Context, session.Namespace(), pod, opts)
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(logs), 0644); err != nil {
			return fmt.Errorf("failed to write logs to file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Logs written to: %s\n", outputFile)
	} else {
		fmt.Print(logs)
	}

	return nil
}
