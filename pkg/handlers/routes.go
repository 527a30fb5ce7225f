package handlers

import (
	"github.com/go-chi/chi"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/d4l-data4life/go-mcp-registry/pkg/auth"
	"github.com/d4l-data4life/go-mcp-registry/pkg/config"
	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
	"github.com/d4l-data4life/go-mcp-registry/pkg/registry"
	"github.com/d4l-data4life/go-svc/pkg/middlewares"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(
	r chi.Router,
	db *gorm.DB,
	catalog *registry.Catalog,
	installs *registry.InstallManager,
	disp *dispatcher.Dispatcher,
	tokenValidator auth.TokenValidator,
) {
	prefix := viper.GetString("PREFIX")

	registryHandler := NewRegistryHandler(catalog, disp)

	// External routes (ingress routes)
	r.Route(prefix, func(r chi.Router) {
		// Protected routes (authentication required)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenValidator))

			r.Mount("/registry", registryHandler.Routes())
			r.Mount("/installs", NewInstallsHandler(installs).Routes())
			r.Mount("/execute", NewExecuteHandler(disp).Routes())
			r.Mount("/calls", NewCallLogsHandler(db).Routes())
		})
	})

	// Internal routes (service-to-service)
	r.Route(config.InternalPrefix, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			serviceSecret := viper.GetString("SERVICE_SECRET")
			if serviceSecret == "" {
				// no service secret configured, skip service routes
				return
			}

			logger := NewServiceAuthLogger()
			serviceAuth := middlewares.NewServiceSecretAuthenticator(serviceSecret, logger)
			r.Use(serviceAuth.Authenticate())

			r.Mount("/registry", registryHandler.InternalRoutes())
		})
	})
}
