package config

import (
	"github.com/catalystcommunity/app-utils-go/env"
)

var (
	// ConfigSource selects how the cluster connection is resolved: "default"
	// (in-cluster service account, else standard kubeconfig loading rules),
	// "file" (KubeconfigPath), or "content" (KubeconfigContent)
	ConfigSource = env.GetEnvOrDefault("KUBERUN_CONFIG_SOURCE", "default")

	// KubeconfigPath is the kubeconfig file path used when ConfigSource=file
	KubeconfigPath = env.GetEnvOrDefault("KUBERUN_KUBECONFIG", "")

	// KubeconfigContent is an inline kubeconfig used when ConfigSource=content
	KubeconfigContent = env.GetEnvOrDefault("KUBERUN_KUBECONFIG_CONTENT", "")

	// Namespace is the default namespace for all operations. Empty means
	// "resolve from the environment" (service account namespace, else "default")
	Namespace = env.GetEnvOrDefault("KUBERUN_NAMESPACE", "")

	// Port is the HTTP server port for serve mode
	Port = env.GetEnvAsIntOrDefault("KUBERUN_PORT", "6090")

	// WaitTimeoutSeconds is the default watch-wait deadline
	WaitTimeoutSeconds = env.GetEnvAsIntOrDefault("KUBERUN_WAIT_TIMEOUT_SECONDS", "300")

	// LogTimeoutSeconds caps a non-follow log collection. Hitting the cap is a
	// normal termination: the collector returns whatever it has accumulated
	LogTimeoutSeconds = env.GetEnvAsIntOrDefault("KUBERUN_LOG_TIMEOUT_SECONDS", "10")

	// LogFollowTimeoutSeconds caps a follow-mode log collection
	LogFollowTimeoutSeconds = env.GetEnvAsIntOrDefault("KUBERUN_LOG_FOLLOW_TIMEOUT_SECONDS", "300")

	// WatchCloseGraceMillis is the delay between a watch resolving and the
	// stream being closed, so an in-flight event handler and the close cannot
	// interleave into a misclassified abort error
	WatchCloseGraceMillis = env.GetEnvAsIntOrDefault("KUBERUN_WATCH_CLOSE_GRACE_MS", "250")

	// ContainerName is the container name used for pods and jobs this engine
	// creates, and the default container for log collection
	ContainerName = env.GetEnvOrDefault("KUBERUN_CONTAINER_NAME", "main")

	// CleanupDefault controls whether run-job and trigger-cronjob delete the
	// Job after completion when the caller does not say
	CleanupDefault = env.GetEnvAsBoolOrDefault("KUBERUN_CLEANUP_DEFAULT", "true")

	// APIToken is a plain bearer token for serve mode. Empty disables auth
	APIToken = env.GetEnvOrDefault("KUBERUN_API_TOKEN", "")

	// APITokenHash is an scrypt token hash ("scrypt:<salt>:<key>", from
	// `kuberun token hash`) checked when APIToken is unset
	APITokenHash = env.GetEnvOrDefault("KUBERUN_API_TOKEN_HASH", "")

	// MonitorIntervalSeconds is how often the resource monitor samples
	MonitorIntervalSeconds = env.GetEnvAsIntOrDefault("KUBERUN_MONITOR_INTERVAL_SECONDS", "30")
)
