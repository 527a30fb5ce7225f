package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
	"github.com/d4l-data4life/go-svc/pkg/instrumented"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// ExecuteHandler is the HTTP face of the dispatcher.
type ExecuteHandler struct {
	*instrumented.Handler
	dispatcher *dispatcher.Dispatcher
}

// NewExecuteHandler initializes a new handler
func NewExecuteHandler(d *dispatcher.Dispatcher) *ExecuteHandler {
	return &ExecuteHandler{
		Handler:    GetHandlerFactory().NewHandler("ExecuteHandler"),
		dispatcher: d,
	}
}

// Routes returns the routes for the ExecuteHandler
func (h *ExecuteHandler) Routes() *chi.Mux {
	router := chi.NewRouter()
	router.Post(h.InstrumentChi("/", h.Execute))
	return router
}

// Execute runs one tool call. The response is always the uniform call
// envelope with HTTP 200; tool failures are carried inside it.
func (h *ExecuteHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req dispatcher.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.LogErrorfCtx(r.Context(), err, "Error decoding request payload")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The authenticated caller wins over whatever the body claims
	req.Context.UserID = GetUserIDFromContext(r.Context())

	resp := h.dispatcher.Execute(r.Context(), req)
	render.JSON(w, r, resp)
}
