package cluster

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalKubeconfig = `apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://cluster.example.com:6443
  name: test
contexts:
- context:
    cluster: test
    user: tester
  name: test
current-context: test
users:
- name: tester
  user:
    token: test-token
`

func TestRestConfigFromContent(t *testing.T) {
	cfg := Config{Source: SourceContent, KubeconfigContent: minimalKubeconfig}

	restCfg, err := cfg.restConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restCfg.Host != "https://cluster.example.com:6443" {
		t.Errorf("host = %q, want the cluster server", restCfg.Host)
	}
	if restCfg.BearerToken != "test-token" {
		t.Errorf("bearer token = %q, want test-token", restCfg.BearerToken)
	}
}

func TestRestConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kubeconfig")
	if err := os.WriteFile(path, []byte(minimalKubeconfig), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := Config{Source: SourceFile, KubeconfigPath: path}
	restCfg, err := cfg.restConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restCfg.Host != "https://cluster.example.com:6443" {
		t.Errorf("host = %q, want the cluster server", restCfg.Host)
	}
}

func TestRestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"file source without path", Config{Source: SourceFile}},
		{"content source without content", Config{Source: SourceContent}},
		{"content source with blank content", Config{Source: SourceContent, KubeconfigContent: "   \n"}},
		{"unknown source", Config{Source: "telepathy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.restConfig()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !IsValidationError(err) {
				t.Errorf("expected a validation error, got %T", err)
			}
		})
	}
}

func TestRestConfigMalformedContent(t *testing.T) {
	cfg := Config{Source: SourceContent, KubeconfigContent: "not: [valid: kubeconfig"}

	_, err := cfg.restConfig()
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "failed to parse inline kubeconfig") {
		t.Errorf("error %q missing parse context", err)
	}
}

func TestRestConfigMissingFile(t *testing.T) {
	cfg := Config{Source: SourceFile, KubeconfigPath: filepath.Join(t.TempDir(), "nope")}

	_, err := cfg.restConfig()
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "failed to load kubeconfig from") {
		t.Errorf("error %q missing load context", err)
	}
}

func TestResolveNamespace(t *testing.T) {
	explicit := Config{Namespace: "ops"}
	if got := explicit.resolveNamespace(); got != "ops" {
		t.Errorf("explicit namespace: got %q, want ops", got)
	}
}
