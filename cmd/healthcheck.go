package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nodeloop/kuberun/internal/config"
	"github.com/urfave/cli/v2"
)

// HealthCheckCommand probes a serve-mode instance, for use as a container
// health check. It verifies the health payload, not just the status code.
var HealthCheckCommand = &cli.Command{
	Name:  "healthcheck",
	Usage: "Check if a running API server is healthy",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Aliases: []string{"u"},
			Usage:   "Health endpoint URL (defaults to the configured port on localhost)",
			EnvVars: []string{"KUBERUN_HEALTH_URL"},
		},
		&cli.IntFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Value:   5,
			Usage:   "Timeout in seconds",
			EnvVars: []string{"KUBERUN_HEALTH_TIMEOUT"},
		},
	},
	Action: healthCheckAction,
}

func healthCheckAction(ctx *cli.Context) error {
	url := ctx.String("url")
	if url == "" {
		url = fmt.Sprintf("http://localhost:%d/api/v1/health", config.Port)
	}

	reqCtx, cancel := context.WithTimeout(ctx.Context, time.Duration(ctx.Int("timeout"))*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("health check failed: unreadable response: %w", err)
	}
	if payload.Status != "OK" {
		return fmt.Errorf("health check failed: status %q", payload.Status)
	}

	return nil
}
