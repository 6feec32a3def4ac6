package cluster

import (
	"context"
	"testing"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	fakeclientset "k8s.io/client-go/kubernetes/fake"
)

func TestNormalizeKind(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Pod", "pod"},
		{"POD", "pod"},
		{" Deployment ", "deployment"},
		{"cronjob", "cronjob"},
	}

	for _, tt := range tests {
		if got := NormalizeKind(tt.input); got != tt.expected {
			t.Errorf("NormalizeKind(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGVRFor(t *testing.T) {
	tests := []struct {
		name       string
		apiVersion string
		kind       string
		expected   schema.GroupVersionResource
	}{
		{
			name:       "core pod",
			apiVersion: "v1",
			kind:       "Pod",
			expected:   schema.GroupVersionResource{Version: "v1", Resource: "pods"},
		},
		{
			name:       "kind is case insensitive",
			apiVersion: "v1",
			kind:       "pod",
			expected:   schema.GroupVersionResource{Version: "v1", Resource: "pods"},
		},
		{
			name:       "apps deployment",
			apiVersion: "apps/v1",
			kind:       "Deployment",
			expected:   schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"},
		},
		{
			name:       "batch cronjob",
			apiVersion: "batch/v1",
			kind:       "CronJob",
			expected:   schema.GroupVersionResource{Group: "batch", Version: "v1", Resource: "cronjobs"},
		},
		{
			name:       "irregular plural from the table",
			apiVersion: "networking.k8s.io/v1",
			kind:       "Ingress",
			expected:   schema.GroupVersionResource{Group: "networking.k8s.io", Version: "v1", Resource: "ingresses"},
		},
		{
			name:       "custom resource pluralized naively",
			apiVersion: "example.com/v1alpha1",
			kind:       "Widget",
			expected:   schema.GroupVersionResource{Group: "example.com", Version: "v1alpha1", Resource: "widgets"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GVRFor(tt.apiVersion, tt.kind)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("GVRFor(%q, %q) = %v, want %v", tt.apiVersion, tt.kind, got, tt.expected)
			}
		})
	}
}

func TestGVRForErrors(t *testing.T) {
	if _, err := GVRFor("v1", ""); err == nil || !IsValidationError(err) {
		t.Errorf("empty kind: got %v, want a validation error", err)
	}
	if _, err := GVRFor("v1", "   "); err == nil || !IsValidationError(err) {
		t.Errorf("blank kind: got %v, want a validation error", err)
	}
	if _, err := GVRFor("a/b/c", "Widget"); err == nil || !IsValidationError(err) {
		t.Errorf("malformed apiVersion: got %v, want a validation error", err)
	}
}

// resourceSession builds a session over a dynamic fake with list kinds
// registered for the resources the tests touch
func resourceSession(objects ...runtime.Object) (*Session, *dynamicfake.FakeDynamicClient) {
	listKinds := map[schema.GroupVersionResource]string{
		{Version: "v1", Resource: "pods"}:       "PodList",
		{Version: "v1", Resource: "namespaces"}: "NamespaceList",
	}
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), listKinds, objects...)
	return NewSessionWithClients(fakeclientset.NewSimpleClientset(), dyn, "test-ns"), dyn
}

func seedPod(name string, labels map[string]interface{}) *unstructured.Unstructured {
	metadata := map[string]interface{}{
		"name":      name,
		"namespace": "test-ns",
	}
	if labels != nil {
		metadata["labels"] = labels
	}
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Pod",
		"metadata":   metadata,
	}}
}

func TestGetResource(t *testing.T) {
	session, _ := resourceSession(seedPod("web-0", nil))

	obj, err := session.GetResource(context.Background(), ResourceRef{APIVersion: "v1", Kind: "Pod", Name: "web-0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj.GetName() != "web-0" {
		t.Errorf("got %q, want web-0", obj.GetName())
	}
}

func TestGetResourceNotFound(t *testing.T) {
	session, _ := resourceSession()

	_, err := session.GetResource(context.Background(), ResourceRef{APIVersion: "v1", Kind: "Pod", Name: "ghost"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsCallError(err) {
		t.Errorf("expected a call error, got %T", err)
	}
	if !apierrors.IsNotFound(err) {
		t.Error("the not-found reason must survive the wrap")
	}
}

func TestGetResourceValidation(t *testing.T) {
	session, dyn := resourceSession()

	_, err := session.GetResource(context.Background(), ResourceRef{APIVersion: "v1", Kind: "Pod"})
	if err == nil || !IsValidationError(err) {
		t.Fatalf("missing name: got %v, want a validation error", err)
	}
	if len(dyn.Actions()) != 0 {
		t.Error("validation must fail before any cluster call")
	}
}

func TestListResources(t *testing.T) {
	session, _ := resourceSession(
		seedPod("web-0", map[string]interface{}{"app": "web"}),
		seedPod("worker-0", map[string]interface{}{"app": "worker"}),
	)

	all, err := session.ListResources(context.Background(), "v1", "Pod", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all.Items) != 2 {
		t.Fatalf("unfiltered list returned %d items, want 2", len(all.Items))
	}

	filtered, err := session.ListResources(context.Background(), "v1", "Pod", "", "app=web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filtered.Items) != 1 {
		t.Fatalf("filtered list returned %d items, want 1", len(filtered.Items))
	}
	if name := filtered.Items[0].GetName(); name != "web-0" {
		t.Errorf("filtered list returned %q, want web-0", name)
	}
}

func TestPatchResource(t *testing.T) {
	session, _ := resourceSession(seedPod("web-0", nil))

	patched, err := session.PatchResource(context.Background(),
		ResourceRef{APIVersion: "v1", Kind: "Pod", Name: "web-0"},
		[]byte(`{"metadata":{"labels":{"tier":"backend"}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patched.GetLabels()["tier"] != "backend" {
		t.Errorf("patched labels = %v, want tier=backend", patched.GetLabels())
	}

	// the patch is persisted, not just echoed
	stored, err := session.GetResource(context.Background(), ResourceRef{APIVersion: "v1", Kind: "Pod", Name: "web-0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.GetLabels()["tier"] != "backend" {
		t.Errorf("stored labels = %v, want tier=backend", stored.GetLabels())
	}
}

func TestPatchResourceRejectsBadJSON(t *testing.T) {
	session, dyn := resourceSession(seedPod("web-0", nil))

	_, err := session.PatchResource(context.Background(),
		ResourceRef{APIVersion: "v1", Kind: "Pod", Name: "web-0"},
		[]byte(`{"metadata":`))
	if err == nil || !IsValidationError(err) {
		t.Fatalf("got %v, want a validation error", err)
	}
	if len(dyn.Actions()) != 0 {
		t.Error("a bad patch body must be rejected before any cluster call")
	}
}

func TestDeleteResource(t *testing.T) {
	session, _ := resourceSession(seedPod("web-0", nil))

	if err := session.DeleteResource(context.Background(), ResourceRef{APIVersion: "v1", Kind: "Pod", Name: "web-0"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := session.GetResource(context.Background(), ResourceRef{APIVersion: "v1", Kind: "Pod", Name: "web-0"})
	if !apierrors.IsNotFound(err) {
		t.Errorf("expected the pod to be gone, got %v", err)
	}

	err = session.DeleteResource(context.Background(), ResourceRef{APIVersion: "v1", Kind: "Pod", Name: "web-0"})
	if err == nil || !IsCallError(err) {
		t.Errorf("double delete: got %v, want a call error", err)
	}
}

func TestClusterScopedRouting(t *testing.T) {
	ns := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Namespace",
		"metadata":   map[string]interface{}{"name": "ops"},
	}}
	session, _ := resourceSession(ns)

	// a namespace in the ref must not force namespaced routing
	obj, err := session.GetResource(context.Background(), ResourceRef{
		APIVersion: "v1",
		Kind:       "Namespace",
		Namespace:  "ignored",
		Name:       "ops",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj.GetName() != "ops" {
		t.Errorf("got %q, want ops", obj.GetName())
	}
}

func TestWatchResourceValidation(t *testing.T) {
	session, _ := resourceSession()

	_, err := session.WatchResource(context.Background(), ResourceRef{APIVersion: "v1", Kind: "Pod"})
	if err == nil || !IsValidationError(err) {
		t.Errorf("missing name: got %v, want a validation error", err)
	}
}
