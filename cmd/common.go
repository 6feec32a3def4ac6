package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/nodeloop/kuberun/internal/config"
	"github.com/nodeloop/kuberun/internal/runner"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"
)

// sessionFlags configure the cluster connection and are shared by every
// command that talks to a cluster
var sessionFlags = []cli.Flag{
	&cli.StringFlag{
		Name:        "config-source",
		Aliases:     []string{"s"},
		Value:       "default",
		Usage:       "How to connect to the cluster: default, file, or content",
		Destination: &config.ConfigSource,
		EnvVars:     []string{"KUBERUN_CONFIG_SOURCE"},
	},
	&cli.StringFlag{
		Name:        "kubeconfig",
		Aliases:     []string{"k"},
		Usage:       "Kubeconfig file path (used with --config-source=file)",
		Destination: &config.KubeconfigPath,
		EnvVars:     []string{"KUBERUN_KUBECONFIG", "KUBECONFIG"},
	},
	&cli.StringFlag{
		Name:        "kubeconfig-content",
		Usage:       "Inline kubeconfig YAML (used with --config-source=content)",
		Destination: &config.KubeconfigContent,
		EnvVars:     []string{"KUBERUN_KUBECONFIG_CONTENT"},
	},
	&cli.StringFlag{
		Name:        "namespace",
		Aliases:     []string{"n"},
		Usage:       "Default namespace for all operations",
		Destination: &config.Namespace,
		EnvVars:     []string{"KUBERUN_NAMESPACE"},
	},
}

// newSession builds a cluster session from the resolved configuration
func newSession() (*cluster.Session, error) {
	return cluster.NewSession(cluster.Config{
		Source:            cluster.ConfigSource(config.ConfigSource),
		KubeconfigPath:    config.KubeconfigPath,
		KubeconfigContent: config.KubeconfigContent,
		Namespace:         config.Namespace,
	})
}

// newRunner builds a runner on a fresh session with configured defaults
func newRunner() (*runner.Runner, error) {
	session, err := newSession()
	if err != nil {
		return nil, err
	}
	r := runner.New(session)
	r.Timeout = time.Duration(config.WaitTimeoutSeconds) * time.Second
	r.Container = config.ContainerName
	r.Cleanup = config.CleanupDefault
	return r, nil
}

// printJSON writes v to stdout as indented JSON
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// loadManifest reads a Kubernetes manifest from a YAML or JSON file into out.
// "-" reads from stdin.
func loadManifest(path string, out any) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read manifest from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read manifest file: %w", err)
		}
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return nil
}

// parseEnvVars turns KEY=VALUE strings into env var entries, preserving order
func parseEnvVars(pairs []string) ([]corev1.EnvVar, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make([]corev1.EnvVar, 0, len(pairs))
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid env var %q, expected KEY=VALUE", pair)
		}
		vars = append(vars, corev1.EnvVar{Name: name, Value: value})
	}
	return vars, nil
}

// promptForSecret reads a sensitive value from an env var, a terminal prompt,
// or piped stdin, in that order
func promptForSecret(envVar, prompt string) (string, error) {
	if envVar != "" {
		if value := os.Getenv(envVar); value != "" {
			return value, nil
		}
	}

	fmt.Fprint(os.Stderr, prompt)

	if term.IsTerminal(int(os.Stdin.Fd())) {
		valueBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr) // newline after input
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(valueBytes), nil
	}

	reader := bufio.NewReader(os.Stdin)
	value, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(value), nil
}

// runExitErr maps a failed run to a non-zero exit after the result has
// already been printed
func runExitErr(result runner.RunResult) error {
	if result.Status == runner.StatusFailed {
		return cli.Exit("", 1)
	}
	return nil
}
