package handlers

import (
	"bufio"
	"net/http"
	"strconv"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/gorilla/websocket"
	"github.com/nodeloop/kuberun/internal/cluster"
	"github.com/nodeloop/kuberun/internal/logstream"
)

// LogsHandler handles log retrieval HTTP requests
type LogsHandler struct {
	BaseHandler
	engine   Engine
	upgrader websocket.Upgrader
}

// NewLogsHandler creates a new logs handler
func NewLogsHandler(engine Engine) *LogsHandler {
	return &LogsHandler{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// LogsResponse represents collected logs for a pod
type LogsResponse struct {
	Pod  string `json:"pod"`
	Logs any    `json:"logs"`
}

// GetLogs handles GET /api/v1/logs
func (h *LogsHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pod := q.Get("pod")
	if pod == "" {
		h.respondWithError(w, http.StatusBadRequest, cluster.NewValidationError("pod", "query parameter is required"))
		return
	}

	opts := logstream.Options{
		Container: q.Get("container"),
		SinceTime: q.Get("sinceTime"),
	}
	if v := q.Get("tailLines"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, cluster.NewValidationError("tailLines", "must be an integer"))
			return
		}
		opts.TailLines = &n
	}

	logs, err := h.engine.CollectLogs(r.Context(), q.Get("namespace"), pod, opts)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	resp := LogsResponse{Pod: pod, Logs: logs}
	if q.Get("parse") == "true" {
		resp.Logs = logstream.ParseMaybeJSON(logs)
	}
	h.respondWithJSON(w, http.StatusOK, resp)
}

// StreamLogs handles GET /api/v1/logs/stream, upgrading to a websocket and
// forwarding log lines until the container or the client ends the stream
func (h *LogsHandler) StreamLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pod := q.Get("pod")
	if pod == "" {
		h.respondWithError(w, http.StatusBadRequest, cluster.NewValidationError("pod", "query parameter is required"))
		return
	}

	// open the stream before upgrading so failures still get a plain HTTP
	// error response
	rc, err := h.engine.OpenLogs(r.Context(), q.Get("namespace"), pod, logstream.Options{
		Container: q.Get("container"),
		Follow:    true,
	})
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rc.Close()
		logging.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	defer rc.Close()

	// reader pump: a client disconnect surfaces here first, closing the log
	// stream unblocks the scanner below
	go func() {
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				rc.Close()
				return
			}
		}
	}()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if writeErr := conn.WriteMessage(websocket.TextMessage, scanner.Bytes()); writeErr != nil {
			return
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "log stream error"))
		return
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "log stream ended"))
}
