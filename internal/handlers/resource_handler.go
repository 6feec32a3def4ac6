package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/nodeloop/kuberun/internal/cluster"
)

// ResourceHandler handles generic resource HTTP requests
type ResourceHandler struct {
	BaseHandler
	engine Engine
}

// NewResourceHandler creates a new resource handler
func NewResourceHandler(engine Engine) *ResourceHandler {
	return &ResourceHandler{engine: engine}
}

// refFromQuery builds a resource reference from query parameters
func refFromQuery(r *http.Request) cluster.ResourceRef {
	q := r.URL.Query()
	return cluster.ResourceRef{
		APIVersion: q.Get("apiVersion"),
		Kind:       q.Get("kind"),
		Namespace:  q.Get("namespace"),
		Name:       q.Get("name"),
	}
}

// GetResource handles GET /api/v1/resources
func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	obj, err := h.engine.GetResource(r.Context(), refFromQuery(r))
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, obj.Object)
}

// PatchResource handles PATCH /api/v1/resources, applying the body as a JSON
// merge patch
func (h *ResourceHandler) PatchResource(w http.ResponseWriter, r *http.Request) {
	patch, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, cluster.NewValidationError("body", "could not read request body"))
		return
	}

	obj, err := h.engine.PatchResource(r.Context(), refFromQuery(r), patch)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, obj.Object)
}

// DeleteResource handles DELETE /api/v1/resources
func (h *ResourceHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	ref := refFromQuery(r)
	if err := h.engine.DeleteResource(r.Context(), ref); err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"deleted":   true,
		"kind":      ref.Kind,
		"namespace": ref.Namespace,
		"name":      ref.Name,
	})
}

// ListResources handles GET /api/v1/resources/list. With managed=true the
// list is narrowed to resources this service created.
func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	labelSelector := q.Get("labelSelector")
	if q.Get("managed") == "true" {
		managedSelector := fmt.Sprintf("%s=%s", cluster.ManagedByLabel, cluster.ManagedByValue)
		if labelSelector == "" {
			labelSelector = managedSelector
		} else {
			labelSelector = labelSelector + "," + managedSelector
		}
	}

	list, err := h.engine.ListResources(r.Context(), q.Get("apiVersion"), q.Get("kind"), q.Get("namespace"), labelSelector)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"items": list.Items,
		"total": len(list.Items),
	})
}
