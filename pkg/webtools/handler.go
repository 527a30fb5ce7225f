// Package webtools implements the chat scope handler. Every tool
// either reaches a specific whitelisted upstream or performs pure
// computation; there is no filesystem or process access here.
package webtools

import (
	"net/http"
	"time"

	"github.com/d4l-data4life/go-mcp-registry/pkg/config"
	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
	"github.com/d4l-data4life/go-mcp-registry/pkg/registry"
)

// Handler executes chat-scoped tools.
type Handler struct {
	cfg    config.ToolConfig
	client *http.Client
}

// NewHandler creates the chat scope handler with a shared HTTP client.
// The client timeout is the per-call network deadline: a stalled
// upstream fails instead of blocking the dispatcher.
func NewHandler(cfg config.ToolConfig) *Handler {
	timeout := cfg.HTTPFetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Handler{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Register wires all chat tools into the dispatcher table.
func (h *Handler) Register(d *dispatcher.Dispatcher) {
	d.RegisterTool(registry.BuiltinWebSearch, "search", h.Search)
	d.RegisterTool(registry.BuiltinTrending, "get_trends", h.GetTrends)
	d.RegisterTool(registry.BuiltinFetch, "fetch", h.Fetch)
	d.RegisterTool(registry.BuiltinCalculator, "evaluate", h.Evaluate)
}
