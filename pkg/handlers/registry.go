package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
	"github.com/d4l-data4life/go-mcp-registry/pkg/registry"
	"github.com/d4l-data4life/go-svc/pkg/instrumented"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// RegistryHandler serves the tool catalog: listing, search, entry
// details and registration of third-party entries.
type RegistryHandler struct {
	*instrumented.Handler
	catalog    *registry.Catalog
	dispatcher *dispatcher.Dispatcher
}

// NewRegistryHandler initializes a new handler
func NewRegistryHandler(catalog *registry.Catalog, d *dispatcher.Dispatcher) *RegistryHandler {
	return &RegistryHandler{
		Handler:    GetHandlerFactory().NewHandler("RegistryHandler"),
		catalog:    catalog,
		dispatcher: d,
	}
}

// Routes returns the routes for the RegistryHandler
func (h *RegistryHandler) Routes() *chi.Mux {
	router := chi.NewRouter()
	router.Get(h.InstrumentChi("/", h.List))
	router.Get(h.InstrumentChi("/search", h.Search))
	router.Get(h.InstrumentChi("/{mcpId}", h.Get))
	router.Get(h.InstrumentChi("/{mcpId}/stats", h.Stats))
	router.Post(h.InstrumentChi("/", h.Register))
	return router
}

// InternalRoutes returns the service-to-service routes
func (h *RegistryHandler) InternalRoutes() *chi.Mux {
	router := chi.NewRouter()
	router.Post(h.InstrumentChi("/cache/clear", h.ClearCache))
	router.Patch(h.InstrumentChi("/{mcpId}/status", h.UpdateStatus))
	return router
}

// List returns catalog entries, optionally filtered by scope.
func (h *RegistryHandler) List(w http.ResponseWriter, r *http.Request) {
	scope := models.Scope(r.URL.Query().Get("scope"))

	var entries []*models.RegistryEntry
	var err error
	switch {
	case scope == "":
		entries, err = h.catalog.ListAll()
	case scope.Valid():
		entries, err = h.catalog.ListByScope(scope)
	default:
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Invalid scope"})
		return
	}
	if err != nil {
		logging.LogErrorfCtx(r.Context(), err, "Failed to list registry entries")
		http.Error(w, "Failed to list registry entries", http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, entries)
}

// Search performs a substring search over names and descriptions.
func (h *RegistryHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	scope := models.Scope(r.URL.Query().Get("scope"))
	if scope != "" && !scope.Valid() {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Invalid scope"})
		return
	}

	entries, err := h.catalog.Search(query, scope)
	if err != nil {
		logging.LogErrorfCtx(r.Context(), err, "Registry search failed")
		http.Error(w, "Registry search failed", http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, entries)
}

// Get returns a single entry by id.
func (h *RegistryHandler) Get(w http.ResponseWriter, r *http.Request) {
	mcpID := chi.URLParam(r, "mcpId")
	entry, err := h.catalog.Get(mcpID)
	if err != nil {
		logging.LogErrorfCtx(r.Context(), err, "Failed to load registry entry")
		http.Error(w, "Failed to load registry entry", http.StatusInternalServerError)
		return
	}
	if entry == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "Registry entry not found"})
		return
	}
	render.JSON(w, r, entry)
}

// Stats returns the in-memory usage counters of an entry.
func (h *RegistryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	mcpID := chi.URLParam(r, "mcpId")
	entry, err := h.catalog.Get(mcpID)
	if err != nil {
		http.Error(w, "Failed to load registry entry", http.StatusInternalServerError)
		return
	}
	if entry == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "Registry entry not found"})
		return
	}
	render.JSON(w, r, h.dispatcher.Stats(mcpID))
}

// Register validates and stores a new third-party entry.
func (h *RegistryHandler) Register(w http.ResponseWriter, r *http.Request) {
	var entry models.RegistryEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		logging.LogErrorfCtx(r.Context(), err, "Error decoding request payload")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.catalog.Register(&entry); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": err.Error()})
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, entry)
}

// ClearCache drops the catalog's third-party cache.
func (h *RegistryHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.catalog.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus changes the lifecycle status of a third-party entry.
func (h *RegistryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	mcpID := chi.URLParam(r, "mcpId")

	var body struct {
		Status models.EntryStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !body.Status.Valid() {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Invalid status"})
		return
	}

	if err := h.catalog.UpdateStatus(mcpID, body.Status); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
