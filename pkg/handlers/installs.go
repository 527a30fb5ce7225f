package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
	"github.com/d4l-data4life/go-mcp-registry/pkg/registry"
	"github.com/d4l-data4life/go-svc/pkg/instrumented"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// InstallsHandler serves per-user install management.
type InstallsHandler struct {
	*instrumented.Handler
	installs *registry.InstallManager
}

// NewInstallsHandler initializes a new handler
func NewInstallsHandler(installs *registry.InstallManager) *InstallsHandler {
	return &InstallsHandler{
		Handler:  GetHandlerFactory().NewHandler("InstallsHandler"),
		installs: installs,
	}
}

// Routes returns the routes for the InstallsHandler
func (h *InstallsHandler) Routes() *chi.Mux {
	router := chi.NewRouter()
	router.Get(h.InstrumentChi("/", h.List))
	router.Get(h.InstrumentChi("/available", h.Available))
	router.Post(h.InstrumentChi("/", h.Install))
	router.Patch(h.InstrumentChi("/{mcpId}", h.Update))
	router.Delete(h.InstrumentChi("/{mcpId}", h.Uninstall))
	return router
}

type installRequest struct {
	MCPID  string         `json:"mcpId"`
	Scope  models.Scope   `json:"scope"`
	Config datatypes.JSON `json:"config,omitempty"`
}

type updateInstallRequest struct {
	IsEnabled *bool           `json:"isEnabled,omitempty"`
	Config    *datatypes.JSON `json:"config,omitempty"`
}

// List returns all installs of the caller.
func (h *InstallsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := GetUserIDFromContext(r.Context())

	rows, err := h.installs.ListInstalls(userID)
	if err != nil {
		logging.LogErrorfCtx(r.Context(), err, "Failed to list installs")
		http.Error(w, "Failed to list installs", http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, rows)
}

// Available resolves the caller's effective tool set for a scope:
// built-ins plus enabled installs.
func (h *InstallsHandler) Available(w http.ResponseWriter, r *http.Request) {
	userID := GetUserIDFromContext(r.Context())
	scope := models.Scope(r.URL.Query().Get("scope"))
	if !scope.Valid() {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Invalid scope"})
		return
	}

	entries, err := h.installs.AvailableForUser(userID, scope)
	if err != nil {
		logging.LogErrorfCtx(r.Context(), err, "Failed to resolve available tools")
		http.Error(w, "Failed to resolve available tools", http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, entries)
}

// Install creates or refreshes an install for the caller.
func (h *InstallsHandler) Install(w http.ResponseWriter, r *http.Request) {
	userID := GetUserIDFromContext(r.Context())

	var body installRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logging.LogErrorfCtx(r.Context(), err, "Error decoding request payload")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.MCPID == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "mcpId is required"})
		return
	}
	if !body.Scope.Valid() && body.Scope != models.ScopeBoth {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Invalid scope"})
		return
	}

	installID, err := h.installs.Install(userID, body.MCPID, body.Scope, body.Config)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownEntry) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Registry entry not found"})
			return
		}
		logging.LogErrorfCtx(r.Context(), err, "Failed to install %s", body.MCPID)
		http.Error(w, "Failed to install", http.StatusInternalServerError)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{"id": installID, "mcpId": body.MCPID})
}

// Update toggles an install or replaces its instance configuration.
func (h *InstallsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := GetUserIDFromContext(r.Context())
	mcpID := chi.URLParam(r, "mcpId")

	var body updateInstallRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if body.IsEnabled != nil {
		if err := h.installs.SetEnabled(userID, mcpID, *body.IsEnabled); err != nil {
			writeInstallError(w, r, err)
			return
		}
	}
	if body.Config != nil {
		if err := h.installs.UpdateConfig(userID, mcpID, *body.Config); err != nil {
			writeInstallError(w, r, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// Uninstall removes the install row entirely.
func (h *InstallsHandler) Uninstall(w http.ResponseWriter, r *http.Request) {
	userID := GetUserIDFromContext(r.Context())
	mcpID := chi.URLParam(r, "mcpId")

	if err := h.installs.Uninstall(userID, mcpID); err != nil {
		writeInstallError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeInstallError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "Install not found"})
		return
	}
	logging.LogErrorfCtx(r.Context(), err, "Install operation failed")
	http.Error(w, "Install operation failed", http.StatusInternalServerError)
}
