package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
)

// ResourceRef addresses one object: (apiVersion, kind, namespace, name).
// The same four-tuple routes every generic call and every watch.
type ResourceRef struct {
	APIVersion string
	Kind       string
	Namespace  string
	Name       string
}

// wellKnownGVRs routes the kinds this engine is specified against to their
// correct resource names, keyed by "apiVersion/lowercase-kind". Anything not
// in the table goes through naive pluralization.
var wellKnownGVRs = map[string]schema.GroupVersionResource{
	"v1/pod":                   {Version: "v1", Resource: "pods"},
	"v1/service":               {Version: "v1", Resource: "services"},
	"v1/configmap":             {Version: "v1", Resource: "configmaps"},
	"v1/secret":                {Version: "v1", Resource: "secrets"},
	"v1/persistentvolumeclaim": {Version: "v1", Resource: "persistentvolumeclaims"},
	"v1/namespace":             {Version: "v1", Resource: "namespaces"},

	"apps/v1/deployment":  {Group: "apps", Version: "v1", Resource: "deployments"},
	"apps/v1/replicaset":  {Group: "apps", Version: "v1", Resource: "replicasets"},
	"apps/v1/daemonset":   {Group: "apps", Version: "v1", Resource: "daemonsets"},
	"apps/v1/statefulset": {Group: "apps", Version: "v1", Resource: "statefulsets"},

	"batch/v1/job":     {Group: "batch", Version: "v1", Resource: "jobs"},
	"batch/v1/cronjob": {Group: "batch", Version: "v1", Resource: "cronjobs"},

	"networking.k8s.io/v1/ingress":       {Group: "networking.k8s.io", Version: "v1", Resource: "ingresses"},
	"networking.k8s.io/v1/networkpolicy": {Group: "networking.k8s.io", Version: "v1", Resource: "networkpolicies"},
}

// clusterScopedResources are the resources addressed without a namespace
var clusterScopedResources = map[string]bool{
	"namespaces":        true,
	"nodes":             true,
	"persistentvolumes": true,
}

// NormalizeKind lowercases a kind so addressing is case-insensitive
func NormalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

// GVRFor resolves (apiVersion, kind) to a GroupVersionResource. Kinds outside
// the well-known table are pluralized naively (lowercase kind + "s"), which is
// wrong for irregular plurals. Known limitation: callers of custom resources
// must name their kinds so that the naive plural matches the CRD's resource.
func GVRFor(apiVersion, kind string) (schema.GroupVersionResource, error) {
	if strings.TrimSpace(kind) == "" {
		return schema.GroupVersionResource{}, NewValidationError("kind", "must not be empty")
	}
	normalized := NormalizeKind(kind)
	if gvr, ok := wellKnownGVRs[apiVersion+"/"+normalized]; ok {
		return gvr, nil
	}
	gv, err := schema.ParseGroupVersion(apiVersion)
	if err != nil {
		return schema.GroupVersionResource{}, NewValidationError("apiVersion", fmt.Sprintf("%q is not a group/version: %v", apiVersion, err))
	}
	return gv.WithResource(normalized + "s"), nil
}

// resourceClient routes to a namespaced or cluster-scoped dynamic client
func (s *Session) resourceClient(gvr schema.GroupVersionResource, namespace string) dynamic.ResourceInterface {
	if clusterScopedResources[gvr.Resource] {
		return s.dynamic.Resource(gvr)
	}
	return s.dynamic.Resource(gvr).Namespace(s.NamespaceOr(namespace))
}

// GetResource fetches one object through the generic path
func (s *Session) GetResource(ctx context.Context, ref ResourceRef) (*unstructured.Unstructured, error) {
	gvr, err := GVRFor(ref.APIVersion, ref.Kind)
	if err != nil {
		return nil, err
	}
	if ref.Name == "" {
		return nil, NewValidationError("name", "must not be empty")
	}
	obj, err := s.resourceClient(gvr, ref.Namespace).Get(ctx, ref.Name, metav1.GetOptions{})
	if err != nil {
		return nil, NewCallError("get", ref.Kind, s.NamespaceOr(ref.Namespace), ref.Name, err)
	}
	return obj, nil
}

// ListResources lists a collection through the generic path, optionally
// filtered by a label selector
func (s *Session) ListResources(ctx context.Context, apiVersion, kind, namespace, labelSelector string) (*unstructured.UnstructuredList, error) {
	gvr, err := GVRFor(apiVersion, kind)
	if err != nil {
		return nil, err
	}
	list, err := s.resourceClient(gvr, namespace).List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, NewCallError("list", kind, s.NamespaceOr(namespace), "", err)
	}
	return list, nil
}

// PatchResource applies a merge patch: supplied fields overwrite, omitted
// fields are untouched. The patch body must be valid JSON before anything is
// sent to the cluster.
func (s *Session) PatchResource(ctx context.Context, ref ResourceRef, patch []byte) (*unstructured.Unstructured, error) {
	gvr, err := GVRFor(ref.APIVersion, ref.Kind)
	if err != nil {
		return nil, err
	}
	if ref.Name == "" {
		return nil, NewValidationError("name", "must not be empty")
	}
	if !json.Valid(patch) {
		return nil, NewValidationError("patch", "body is not valid JSON")
	}
	obj, err := s.resourceClient(gvr, ref.Namespace).Patch(ctx, ref.Name, types.MergePatchType, patch, metav1.PatchOptions{})
	if err != nil {
		return nil, NewCallError("patch", ref.Kind, s.NamespaceOr(ref.Namespace), ref.Name, err)
	}
	return obj, nil
}

// DeleteResource deletes one object through the generic path
func (s *Session) DeleteResource(ctx context.Context, ref ResourceRef) error {
	gvr, err := GVRFor(ref.APIVersion, ref.Kind)
	if err != nil {
		return err
	}
	if ref.Name == "" {
		return NewValidationError("name", "must not be empty")
	}
	if err := s.resourceClient(gvr, ref.Namespace).Delete(ctx, ref.Name, metav1.DeleteOptions{}); err != nil {
		return NewCallError("delete", ref.Kind, s.NamespaceOr(ref.Namespace), ref.Name, err)
	}
	return nil
}

// WatchResource opens a collection watch narrowed to one object name. Most
// watch endpoints only cover collections, so the field selector plus the
// caller's own name filter stand in for a single-object watch.
func (s *Session) WatchResource(ctx context.Context, ref ResourceRef) (watch.Interface, error) {
	gvr, err := GVRFor(ref.APIVersion, ref.Kind)
	if err != nil {
		return nil, err
	}
	if ref.Name == "" {
		return nil, NewValidationError("name", "must not be empty")
	}
	watcher, err := s.resourceClient(gvr, ref.Namespace).Watch(ctx, metav1.ListOptions{
		FieldSelector: fmt.Sprintf("metadata.name=%s", ref.Name),
	})
	if err != nil {
		return nil, NewCallError("watch", ref.Kind, s.NamespaceOr(ref.Namespace), ref.Name, err)
	}
	return watcher, nil
}
