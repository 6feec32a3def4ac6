package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/catalystcommunity/app-utils-go/errorutils"
	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/nodeloop/kuberun/internal/config"
	"github.com/nodeloop/kuberun/internal/handlers"
	"github.com/nodeloop/kuberun/internal/monitor"
	"github.com/urfave/cli/v2"
)

var ServeCommand = &cli.Command{
	Name:  "serve",
	Usage: "Run the HTTP API server",
	Flags: append(sessionFlags, serveFlags...),
	Action: func(ctx *cli.Context) error {
		return Serve()
	},
}

var serveFlags = []cli.Flag{
	&cli.IntFlag{
		Name:        "port",
		Aliases:     []string{"p"},
		Value:       6090,
		Usage:       "Port to expose the web API on",
		Destination: &config.Port,
		EnvVars:     []string{"KUBERUN_PORT", "PORT"},
	},
	&cli.StringFlag{
		Name:        "api-token",
		Usage:       "Bearer token required on API requests (empty disables auth)",
		Destination: &config.APIToken,
		EnvVars:     []string{"KUBERUN_API_TOKEN"},
	},
	&cli.StringFlag{
		Name:        "api-token-hash",
		Usage:       "scrypt hash of the bearer token, from `kuberun token hash`",
		Destination: &config.APITokenHash,
		EnvVars:     []string{"KUBERUN_API_TOKEN_HASH"},
	},
	&cli.IntFlag{
		Name:        "wait-timeout",
		Value:       300,
		Usage:       "Default seconds to wait for a workload or condition",
		Destination: &config.WaitTimeoutSeconds,
		EnvVars:     []string{"KUBERUN_WAIT_TIMEOUT_SECONDS"},
	},
	&cli.IntFlag{
		Name:        "monitor-interval",
		Value:       30,
		Usage:       "Seconds between resource monitor samples",
		Destination: &config.MonitorIntervalSeconds,
		EnvVars:     []string{"KUBERUN_MONITOR_INTERVAL_SECONDS"},
	},
}

func Serve() error {
	engine, err := newRunner()
	if err != nil {
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}

	if config.APIToken == "" && config.APITokenHash == "" {
		logging.Log.Warn("No API token configured, authentication is disabled")
	}

	// Start the resource monitor
	mon := monitor.New(time.Duration(config.MonitorIntervalSeconds) * time.Second)
	mon.Start(context.Background())
	defer mon.Stop()

	// Create the handler with routes
	handler := handlers.NewRouter(engine, mon)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: handler,
	}

	// Log startup information
	logging.Log.Infof("Starting HTTP server on port %d", config.Port)
	logging.Log.Infof("Cluster namespace: %s", engine.Session().Namespace())

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logging.Log.Infof("Received signal %v, shutting down gracefully...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Log.WithError(err).Error("HTTP server shutdown failed")
			return err
		}
		logging.Log.Info("HTTP server stopped")
		return nil
	case err := <-errChan:
		// ListenAndServe always eventually errors out, so we log it and return it
		errorutils.LogOnErr(nil, "ListenAndServe exited with: ", err)
		return err
	}
}
