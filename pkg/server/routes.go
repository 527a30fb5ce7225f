package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/d4l-data4life/go-mcp-registry/pkg/auth"
	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
	"github.com/d4l-data4life/go-mcp-registry/pkg/handlers"
	"github.com/d4l-data4life/go-mcp-registry/pkg/registry"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// SetupRoutes adds all routes that the server should listen to
func SetupRoutes(
	mux *chi.Mux,
	db *gorm.DB,
	catalog *registry.Catalog,
	installs *registry.InstallManager,
	disp *dispatcher.Dispatcher,
	tokenValidator auth.TokenValidator,
) {
	mux.Mount("/checks", handlers.NewChecksHandler().Routes())
	mux.Mount("/metrics", promhttp.Handler())

	mux.
		With(RequestLogger()).
		Group(func(r chi.Router) {
			handlers.RegisterRoutes(r, db, catalog, installs, disp, tokenValidator)
		})

	// Displays all API paths in when debug enabled
	walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		route = strings.Replace(route, "/*/", "/", -1)
		logging.LogDebugf("%s %s\n", method, route)
		return nil
	}
	if err := chi.Walk(mux, walkFunc); err != nil {
		logging.LogErrorf(err, "logging error")
	}
}
