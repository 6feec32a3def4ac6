package handlers

import (
	"net/http"

	"github.com/nodeloop/kuberun/internal/config"
	"github.com/nodeloop/kuberun/internal/metrics"
	"github.com/nodeloop/kuberun/internal/middleware"
	"github.com/nodeloop/kuberun/internal/monitor"

	"github.com/rs/cors"
)

var (
	// Singleton instance of the app's ServeMux
	appMux *http.ServeMux
	// Engine for the singleton
	singletonEngine Engine
	// Monitor for the singleton
	singletonMonitor *monitor.Monitor
)

// GetAppMux returns the application's HTTP ServeMux for both API and tests.
// This ensures all tests use the same router configuration as the actual
// application.
func GetAppMux() *http.ServeMux {
	return GetAppMuxWithEngine(nil, nil)
}

// GetAppMuxWithEngine returns the application's HTTP ServeMux wired to the
// given engine and monitor
func GetAppMuxWithEngine(engine Engine, mon *monitor.Monitor) *http.ServeMux {
	// Only create the mux once
	if appMux == nil {
		singletonEngine = engine
		singletonMonitor = mon
		appMux = createAppMux()
	}
	return appMux
}

// ResetAppMux resets the app mux singleton (useful for testing)
func ResetAppMux() {
	appMux = nil
	singletonEngine = nil
	singletonMonitor = nil
}

// createAppMux creates and configures the application ServeMux with all routes
func createAppMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Create handlers
	runHandler := NewRunHandler(singletonEngine, singletonMonitor)
	waitHandler := NewWaitHandler(singletonEngine)
	resourceHandler := NewResourceHandler(singletonEngine)
	logsHandler := NewLogsHandler(singletonEngine)
	statusHandler := NewStatusHandler(singletonMonitor)

	// Apply middleware to all handlers
	requestMiddleware := middleware.RequestMiddleware
	authMiddleware := middleware.APITokenMiddleware(config.APIToken, config.APITokenHash)

	// Health check endpoint
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		requestMiddleware(http.HandlerFunc(healthHandler)).ServeHTTP(w, r)
	})

	// API v1 routes

	// Health check endpoint (v1, no auth required)
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		requestMiddleware(http.HandlerFunc(healthHandler)).ServeHTTP(w, r)
	})

	// Metrics endpoint (v1, no auth required)
	mux.Handle("/api/v1/metrics", metrics.Handler())

	// Status endpoint (requires auth)
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		handler := requestMiddleware(authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				statusHandler.GetStatus(w, r)
			} else {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})))
		handler.ServeHTTP(w, r)
	})

	// Run routes (require auth)
	mux.HandleFunc("/api/v1/run/pod", func(w http.ResponseWriter, r *http.Request) {
		handler := requestMiddleware(authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				runHandler.RunPod(w, r)
			} else {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})))
		handler.ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/v1/run/job", func(w http.ResponseWriter, r *http.Request) {
		handler := requestMiddleware(authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				runHandler.RunJob(w, r)
			} else {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})))
		handler.ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/v1/trigger/cronjob", func(w http.ResponseWriter, r *http.Request) {
		handler := requestMiddleware(authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				runHandler.TriggerCronJob(w, r)
			} else {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})))
		handler.ServeHTTP(w, r)
	})

	// Wait route (requires auth)
	mux.HandleFunc("/api/v1/wait", func(w http.ResponseWriter, r *http.Request) {
		handler := requestMiddleware(authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				waitHandler.Wait(w, r)
			} else {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})))
		handler.ServeHTTP(w, r)
	})

	// Log routes (require auth)
	mux.HandleFunc("/api/v1/logs", func(w http.ResponseWriter, r *http.Request) {
		handler := requestMiddleware(authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				logsHandler.GetLogs(w, r)
			} else {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})))
		handler.ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/v1/logs/stream", func(w http.ResponseWriter, r *http.Request) {
		handler := requestMiddleware(authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				logsHandler.StreamLogs(w, r)
			} else {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})))
		handler.ServeHTTP(w, r)
	})

	// Resource routes (require auth)
	mux.HandleFunc("/api/v1/resources", func(w http.ResponseWriter, r *http.Request) {
		handler := requestMiddleware(authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				resourceHandler.GetResource(w, r)
			case http.MethodPatch:
				resourceHandler.PatchResource(w, r)
			case http.MethodDelete:
				resourceHandler.DeleteResource(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})))
		handler.ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/v1/resources/list", func(w http.ResponseWriter, r *http.Request) {
		handler := requestMiddleware(authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				resourceHandler.ListResources(w, r)
			} else {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})))
		handler.ServeHTTP(w, r)
	})

	return mux
}

// NewRouter creates a new router for the API with CORS handling.
// This is used by the API server.
func NewRouter(engine Engine, mon *monitor.Monitor) http.Handler {
	mux := GetAppMuxWithEngine(engine, mon)

	// Set up CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	return c.Handler(mux)
}
