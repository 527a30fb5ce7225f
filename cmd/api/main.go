package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/d4l-data4life/go-mcp-registry/pkg/auth"
	"github.com/d4l-data4life/go-mcp-registry/pkg/config"
	"github.com/d4l-data4life/go-mcp-registry/pkg/connector"
	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
	"github.com/d4l-data4life/go-mcp-registry/pkg/metrics"
	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
	"github.com/d4l-data4life/go-mcp-registry/pkg/registry"
	"github.com/d4l-data4life/go-mcp-registry/pkg/sandbox"
	"github.com/d4l-data4life/go-mcp-registry/pkg/server"
	"github.com/d4l-data4life/go-mcp-registry/pkg/webtools"
	"github.com/d4l-data4life/go-svc/pkg/db"
	"github.com/d4l-data4life/go-svc/pkg/logging"
	"github.com/d4l-data4life/go-svc/pkg/standard"
)

func main() {
	config.SetupEnv()
	dbOpts := db.NewConnection(
		db.WithDebug(viper.GetBool("DEBUG")),
		db.WithHost(viper.GetString("DB_HOST")),
		db.WithPort(viper.GetString("DB_PORT")),
		db.WithDatabaseName(viper.GetString("DB_NAME")),
		db.WithUser(viper.GetString("DB_USER")),
		db.WithPassword(viper.GetString("DB_PASS")),
		db.WithSSLMode(viper.GetString("DB_SSL_MODE")),
	)
	standard.Main(mainAPI, config.Name, standard.WithPostgres(dbOpts))
}

// openDB opens the application's gorm handle and applies the schema.
func openDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		viper.GetString("DB_HOST"),
		viper.GetString("DB_PORT"),
		viper.GetString("DB_USER"),
		viper.GetString("DB_PASS"),
		viper.GetString("DB_NAME"),
		viper.GetString("DB_SSL_MODE"),
	)
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return conn, models.MigrationFunc(conn)
}

// mainAPI contains the main service logic - it must finish on runCtx cancelation!
func mainAPI(runCtx context.Context, svcName string) <-chan struct{} {
	port := viper.GetString("PORT")
	corsOptions := config.CorsConfig(strings.Split(viper.GetString("CORS_HOSTS"), " "))
	srv := server.NewServer(svcName,
		cors.New(corsOptions),
		viper.GetInt("HTTP_MAX_PARALLEL_REQUESTS"),
		viper.GetDuration("HTTP_REQUEST_TIMEOUT"),
	)

	dieEarly := make(chan struct{})

	conn, err := openDB()
	if err != nil {
		logging.LogErrorf(err, "Failed to open database connection")
		close(dieEarly)
		return dieEarly
	}

	tokenValidator, err := auth.NewValidator(runCtx, viper.GetString("JWKS_URL"), viper.GetString("JWT_SECRET"))
	if err != nil {
		logging.LogErrorf(err, "Failed to configure token validation")
		close(dieEarly)
		return dieEarly
	}

	toolCfg := config.GetToolConfig()

	catalog := registry.NewCatalog(conn, toolCfg.RegistryCacheTTL)
	installs := registry.NewInstallManager(conn, catalog)

	disp := dispatcher.New(conn, catalog, installs, toolCfg.CallTimeout)
	sandbox.NewHandler(conn, toolCfg).Register(disp)
	webtools.NewHandler(toolCfg).Register(disp)

	tools := connector.New()
	disp.SetConnector(tools)
	go func() {
		<-runCtx.Done()
		tools.Close()
	}()

	server.SetupRoutes(srv.Mux(), conn, catalog, installs, disp, tokenValidator)
	metrics.AddBuildInfoMetric()
	return standard.ListenAndServe(runCtx, srv.Mux(), port)
}
