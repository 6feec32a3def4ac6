package cluster

import (
	"fmt"

	"github.com/catalystcommunity/app-utils-go/logging"
	appsv1client "k8s.io/client-go/kubernetes/typed/apps/v1"
	batchv1client "k8s.io/client-go/kubernetes/typed/batch/v1"
	corev1client "k8s.io/client-go/kubernetes/typed/core/v1"
	networkingv1client "k8s.io/client-go/kubernetes/typed/networking/v1"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
)

// ManagedByLabel tags every object this engine creates, on metadata and on
// pod templates, so they are identifiable and filterable from outside.
const ManagedByLabel = "managed-by-automation"

// ManagedByValue is the value set under ManagedByLabel
const ManagedByValue = "true"

// Session is an immutable cluster connection: a resolved config, the typed
// client groups, and a dynamic client for arbitrary resources. Build one per
// invocation and discard it after; sessions are safe for concurrent use.
type Session struct {
	clientset kubernetes.Interface
	dynamic   dynamic.Interface
	namespace string
}

// NewSession resolves the config source and connects the clients
func NewSession(cfg Config) (*Session, error) {
	restCfg, err := cfg.restConfig()
	if err != nil {
		return nil, err
	}

	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	namespace := cfg.resolveNamespace()
	logging.Log.WithField("namespace", namespace).Debug("cluster session established")

	return &Session{
		clientset: clientset,
		dynamic:   dynamicClient,
		namespace: namespace,
	}, nil
}

// NewSessionWithClients builds a session around existing clients. Tests use
// this with the fake clientsets.
func NewSessionWithClients(clientset kubernetes.Interface, dynamicClient dynamic.Interface, namespace string) *Session {
	if namespace == "" {
		namespace = "default"
	}
	return &Session{
		clientset: clientset,
		dynamic:   dynamicClient,
		namespace: namespace,
	}
}

// Core returns the core/v1 client group (Pod, Service, ConfigMap, Secret, PVC, Namespace)
func (s *Session) Core() corev1client.CoreV1Interface {
	return s.clientset.CoreV1()
}

// Apps returns the apps/v1 client group (Deployment, ReplicaSet, DaemonSet, StatefulSet)
func (s *Session) Apps() appsv1client.AppsV1Interface {
	return s.clientset.AppsV1()
}

// Batch returns the batch/v1 client group (Job, CronJob)
func (s *Session) Batch() batchv1client.BatchV1Interface {
	return s.clientset.BatchV1()
}

// Networking returns the networking.k8s.io/v1 client group (Ingress, NetworkPolicy)
func (s *Session) Networking() networkingv1client.NetworkingV1Interface {
	return s.clientset.NetworkingV1()
}

// Custom returns the dynamic interface for an arbitrary resource group
func (s *Session) Custom(gvr schema.GroupVersionResource) dynamic.NamespaceableResourceInterface {
	return s.dynamic.Resource(gvr)
}

// Namespace is the session's default namespace
func (s *Session) Namespace() string {
	return s.namespace
}

// NamespaceOr returns the given namespace, or the session default when empty
func (s *Session) NamespaceOr(namespace string) string {
	if namespace != "" {
		return namespace
	}
	return s.namespace
}
