package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nodeloop/kuberun/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
)

// setupRouter rebuilds the singleton mux around the given engine and token,
// restoring the previous configuration when the test finishes
func setupRouter(t *testing.T, engine Engine, token string) *http.ServeMux {
	t.Helper()
	prevToken, prevHash := config.APIToken, config.APITokenHash
	ResetAppMux()
	config.APIToken = token
	config.APITokenHash = ""
	mux := GetAppMuxWithEngine(engine, nil)
	t.Cleanup(func() {
		ResetAppMux()
		config.APIToken = prevToken
		config.APITokenHash = prevHash
	})
	return mux
}

func TestRouterHealthEndpointsSkipAuth(t *testing.T) {
	mux := setupRouter(t, &MockEngine{}, "secret")

	for _, path := range []string{"/api/health", "/api/v1/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, "path %s", path)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "OK", resp["status"])
		verification, ok := resp["verification"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, false, verification["verified"])
	}
}

func TestRouterHealthReportsVerifiedToken(t *testing.T) {
	mux := setupRouter(t, &MockEngine{}, "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	verification, ok := resp["verification"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, verification["verified"])
}

func TestRouterProtectedRoutesRequireAuth(t *testing.T) {
	mux := setupRouter(t, &MockEngine{}, "secret")

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/status"},
		{http.MethodPost, "/api/v1/run/pod"},
		{http.MethodPost, "/api/v1/run/job"},
		{http.MethodPost, "/api/v1/trigger/cronjob"},
		{http.MethodPost, "/api/v1/wait"},
		{http.MethodGet, "/api/v1/logs"},
		{http.MethodGet, "/api/v1/logs/stream"},
		{http.MethodGet, "/api/v1/resources"},
		{http.MethodGet, "/api/v1/resources/list"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "expected auth rejection without a token")

			req = httptest.NewRequest(route.method, route.path, nil)
			req.Header.Set("Authorization", "Bearer secret")
			rec = httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.NotEqual(t, http.StatusUnauthorized, rec.Code, "expected the token to be accepted")
		})
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	mux := setupRouter(t, &MockEngine{}, "secret")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// Auth runs before the method check on protected routes
	req = httptest.NewRequest(http.MethodGet, "/api/v1/run/pod", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouterMetricsEndpointSkipsAuth(t *testing.T) {
	mux := setupRouter(t, &MockEngine{}, "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP")
}

func TestRouterStatusEndpoint(t *testing.T) {
	mux := setupRouter(t, &MockEngine{}, "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Status)
	assert.True(t, resp.Healthy)
}

func TestRouterRunPodEndToEnd(t *testing.T) {
	engine := &MockEngine{}
	mux := setupRouter(t, engine, "secret")

	req := postJSON(t, "/api/v1/run/pod", RunPodRequest{
		Manifest: &corev1.Pod{
			Spec: corev1.PodSpec{
				Containers: []corev1.Container{{Name: "main", Image: "busybox"}},
			},
		},
	})
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, engine.RunPodCalls, 1)
}

func TestRouterAuthDisabledWithoutToken(t *testing.T) {
	engine := &MockEngine{}
	mux := setupRouter(t, engine, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resources/list?kind=Pod", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, engine.ListResourcesCalls, 1)
}

func TestRouterMuxIsSingleton(t *testing.T) {
	engine := &MockEngine{}
	mux := setupRouter(t, engine, "")

	assert.Same(t, mux, GetAppMux())

	ResetAppMux()
	rebuilt := GetAppMuxWithEngine(engine, nil)
	assert.NotSame(t, mux, rebuilt)
}
