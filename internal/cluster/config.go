package cluster

import (
	"fmt"
	"os"
	"strings"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// ConfigSource selects how the cluster connection is resolved. It is an
// explicit discriminant, never inferred from which fields happen to be set.
type ConfigSource string

const (
	// SourceDefault discovers the environment: in-cluster service account
	// when present, else the standard kubeconfig loading rules
	SourceDefault ConfigSource = "default"
	// SourceFile reads a kubeconfig from a file path
	SourceFile ConfigSource = "file"
	// SourceContent parses an inline kubeconfig string
	SourceContent ConfigSource = "content"
)

const (
	serviceAccountTokenPath     = "/var/run/secrets/kubernetes.io/serviceaccount/token"
	serviceAccountNamespacePath = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"
)

// Config holds everything needed to build a Session
type Config struct {
	Source            ConfigSource
	KubeconfigPath    string // used when Source=file
	KubeconfigContent string // used when Source=content
	Namespace         string // default namespace; empty resolves from the environment
}

// restConfig resolves the REST config for the selected source
func (c Config) restConfig() (*rest.Config, error) {
	switch c.Source {
	case SourceFile:
		if c.KubeconfigPath == "" {
			return nil, NewValidationError("kubeconfig path", "required when config source is \"file\"")
		}
		cfg, err := clientcmd.BuildConfigFromFlags("", c.KubeconfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig from %s: %w", c.KubeconfigPath, err)
		}
		return cfg, nil
	case SourceContent:
		if strings.TrimSpace(c.KubeconfigContent) == "" {
			return nil, NewValidationError("kubeconfig content", "required when config source is \"content\"")
		}
		cfg, err := clientcmd.RESTConfigFromKubeConfig([]byte(c.KubeconfigContent))
		if err != nil {
			return nil, fmt.Errorf("failed to parse inline kubeconfig: %w", err)
		}
		return cfg, nil
	case SourceDefault, "":
		if InClusterEnvironment() {
			cfg, err := rest.InClusterConfig()
			if err != nil {
				return nil, fmt.Errorf("failed to get in-cluster config: %w", err)
			}
			return cfg, nil
		}
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{}).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load default cluster config: %w", err)
		}
		return cfg, nil
	default:
		return nil, NewValidationError("config source", fmt.Sprintf("unknown source %q (want default, file, or content)", c.Source))
	}
}

// resolveNamespace picks the session namespace: explicit config wins, then the
// in-cluster service account namespace, then "default"
func (c Config) resolveNamespace() string {
	if c.Namespace != "" {
		return c.Namespace
	}
	if nsBytes, err := os.ReadFile(serviceAccountNamespacePath); err == nil {
		if ns := strings.TrimSpace(string(nsBytes)); ns != "" {
			return ns
		}
	}
	return "default"
}

// InClusterEnvironment checks if the process is running inside a Kubernetes
// cluster by probing for the mounted service account token
func InClusterEnvironment() bool {
	_, err := os.Stat(serviceAccountTokenPath)
	return err == nil
}
