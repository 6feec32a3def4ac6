package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/nodeloop/kuberun/internal/metrics"
	"github.com/sirupsen/logrus"
)

// RequestMiddleware wraps each request with metrics and structured logging.
// The response writer is wrapped to capture the status code the handler set.
func RequestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		sw := &statusResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(sw, r)

		duration := time.Since(started)
		metrics.RecordAPIRequest(r.Method, r.URL.Path, strconv.Itoa(sw.statusCode))
		metrics.RecordAPIRequestDuration(r.Method, r.URL.Path, duration.Seconds())
		logging.Log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": sw.statusCode,
			"duration_ms": duration.Milliseconds(),
		}).Debug("request handled")
	})
}

// statusResponseWriter wraps http.ResponseWriter to track the status code
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader overrides the http.ResponseWriter.WriteHeader method to track status code
func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack forwards to the underlying writer so websocket upgrades work behind
// the wrapper
func (w *statusResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Flush forwards to the underlying writer when it supports streaming
func (w *statusResponseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
