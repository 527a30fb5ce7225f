package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d4l-data4life/go-mcp-registry/pkg/config"
	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
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
	standard.Main(addTestData, config.Name+"-testdata", standard.WithPostgres(dbOpts))
}

// addTestData seeds a demo third-party entry so a fresh environment
// has something installable next to the built-ins.
func addTestData(_ context.Context, _ string) <-chan struct{} {
	dieEarly := make(chan struct{})
	defer close(dieEarly)

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
		logging.LogErrorf(err, "Failed to open database connection")
		return dieEarly
	}
	if err := models.MigrationFunc(conn); err != nil {
		logging.LogErrorf(err, "Failed to migrate schema")
		return dieEarly
	}

	entry := demoEntry()
	err = conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(entry).Error
	if err != nil {
		logging.LogErrorf(err, "Failed to seed demo entry")
		return dieEarly
	}

	logging.LogInfof("Seeded demo registry entry %s", entry.ID)
	return dieEarly
}

func demoEntry() *models.RegistryEntry {
	manifest := &models.Manifest{
		Name:        "mcp-demo-echo",
		Version:     "1.0.0",
		Description: "Demo echo server for local development",
		Tools: []models.ToolDefinition{
			{
				Name:        "echo",
				Description: "Returns its input unchanged",
				Parameters: []models.ParamSpec{
					{Name: "message", Type: "string", Required: true},
				},
			},
		},
		Permissions: []models.Permission{
			{Type: models.PermissionCustom, Description: "No external access"},
		},
	}
	return &models.RegistryEntry{
		ID:          "mcp-demo-echo",
		Name:        "Demo Echo",
		Description: manifest.Description,
		Version:     manifest.Version,
		Scope:       models.ScopeBoth,
		Status:      models.StatusActive,
		IsEnabled:   true,
		Tools:       datatypes.NewJSONType(manifest.Tools),
		Permissions: datatypes.NewJSONType(manifest.Permissions),
		Connection: datatypes.NewJSONType(models.ConnectionSpec{
			Type:    models.ConnectionStdio,
			Command: "npx",
			Args:    []string{"-y", "@modelcontextprotocol/server-everything"},
		}),
		Manifest: datatypes.NewJSONType(manifest),
	}
}
