package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"gorm.io/gorm"

	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
	"github.com/d4l-data4life/go-svc/pkg/instrumented"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

const (
	defaultCallLogLimit = 50
	maxCallLogLimit     = 500
)

// CallLogsHandler serves the caller's call history.
type CallLogsHandler struct {
	*instrumented.Handler
	db *gorm.DB
}

// NewCallLogsHandler initializes a new handler
func NewCallLogsHandler(db *gorm.DB) *CallLogsHandler {
	return &CallLogsHandler{
		Handler: GetHandlerFactory().NewHandler("CallLogsHandler"),
		db:      db,
	}
}

// Routes returns the routes for the CallLogsHandler
func (h *CallLogsHandler) Routes() *chi.Mux {
	router := chi.NewRouter()
	router.Get(h.InstrumentChi("/", h.List))
	return router
}

// List returns the caller's call logs, newest first. Optional filters:
// mcpId, status, limit, offset.
func (h *CallLogsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := GetUserIDFromContext(r.Context())

	limit := queryInt(r, "limit", defaultCallLogLimit)
	if limit <= 0 || limit > maxCallLogLimit {
		limit = defaultCallLogLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	q := h.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	if mcpID := r.URL.Query().Get("mcpId"); mcpID != "" {
		q = q.Where("mcp_id = ?", mcpID)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var logs []models.CallLog
	if err := q.Find(&logs).Error; err != nil {
		logging.LogErrorfCtx(r.Context(), err, "Failed to list call logs")
		http.Error(w, "Failed to list call logs", http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, logs)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
