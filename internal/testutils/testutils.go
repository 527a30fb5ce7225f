package testutils

import (
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwt"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/d4l-data4life/go-mcp-registry/pkg/auth"
	"github.com/d4l-data4life/go-mcp-registry/pkg/config"
	"github.com/d4l-data4life/go-mcp-registry/pkg/connector"
	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
	"github.com/d4l-data4life/go-mcp-registry/pkg/registry"
	"github.com/d4l-data4life/go-mcp-registry/pkg/sandbox"
	"github.com/d4l-data4life/go-mcp-registry/pkg/server"
	"github.com/d4l-data4life/go-mcp-registry/pkg/webtools"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// TestJWTSecret signs the test tokens issued by TestToken.
const TestJWTSecret = "test-signing-secret"

// TestToolConfig returns a tool configuration confined to a per-test
// temporary directory.
func TestToolConfig(t *testing.T) config.ToolConfig {
	t.Helper()
	return config.ToolConfig{
		SandboxRoot:      t.TempDir(),
		FetchWhitelist:   []string{"example.com"},
		SearchBaseURL:    "https://api.duckduckgo.com",
		TrendsHNBaseURL:  "https://hn.algolia.com/api/v1",
		TrendsRedditURL:  "https://www.reddit.com",
		TrendsGithubURL:  "https://api.github.com",
		RegistryCacheTTL: time.Minute,
		CallTimeout:      5 * time.Second,
		CodeExecTimeout:  5 * time.Second,
		HTTPFetchTimeout: 5 * time.Second,
		NodeBinary:       "node",
		PythonBinary:     "python3",
	}
}

// TestDispatcher wires a dispatcher with both scope handlers against a
// fresh in-memory database.
func TestDispatcher(t *testing.T, cfg config.ToolConfig) (*dispatcher.Dispatcher, *gorm.DB) {
	t.Helper()
	conn := models.InitializeTestDB(t)

	catalog := registry.NewCatalog(conn, cfg.RegistryCacheTTL)
	installs := registry.NewInstallManager(conn, catalog)

	d := dispatcher.New(conn, catalog, installs, cfg.CallTimeout)
	sandbox.NewHandler(conn, cfg).Register(d)
	webtools.NewHandler(cfg).Register(d)
	d.SetConnector(connector.New())
	return d, conn
}

// GetTestMockServer creates the mocked server for tests
func GetTestMockServer(t *testing.T) (*server.Server, *gorm.DB) {
	t.Helper()
	viper.Set("PREFIX", config.APIPrefixV1)

	conn := models.InitializeTestDB(t)
	cfg := TestToolConfig(t)

	catalog := registry.NewCatalog(conn, cfg.RegistryCacheTTL)
	installs := registry.NewInstallManager(conn, catalog)
	d := dispatcher.New(conn, catalog, installs, cfg.CallTimeout)
	sandbox.NewHandler(conn, cfg).Register(d)
	webtools.NewHandler(cfg).Register(d)

	validator, err := auth.NewLocalJWTValidator([]byte(TestJWTSecret))
	require.NoError(t, err)

	corsOptions := config.CorsConfig([]string{"localhost"})
	srv := server.NewServer("TEST_SERVER", cors.New(corsOptions), 4, 10*time.Second)
	server.SetupRoutes(srv.Mux(), conn, catalog, installs, d, validator)
	return srv, conn
}

// TestToken mints a signed bearer token for the given user.
func TestToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token := jwt.New()
	require.NoError(t, token.Set(jwt.SubjectKey, userID.String()))
	require.NoError(t, token.Set(jwt.IssuedAtKey, time.Now()))
	require.NoError(t, token.Set(jwt.ExpirationKey, time.Now().Add(time.Hour)))

	signed, err := jwt.Sign(token, jwa.HS256, []byte(TestJWTSecret))
	require.NoError(t, err)
	return string(signed)
}

// NewTestEntry builds a valid third-party registry entry for tests.
func NewTestEntry(id string, scope models.Scope) *models.RegistryEntry {
	manifest := &models.Manifest{
		Name:        id,
		Version:     "1.0.0",
		Description: "test entry " + id,
		Tools: []models.ToolDefinition{
			{Name: "echo", Description: "echoes its input"},
		},
	}
	return &models.RegistryEntry{
		ID:          id,
		Name:        id,
		Description: "test entry " + id,
		Version:     "1.0.0",
		Scope:       scope,
		Status:      models.StatusActive,
		IsEnabled:   true,
		Tools:       datatypes.NewJSONType(manifest.Tools),
		Connection: datatypes.NewJSONType(models.ConnectionSpec{
			Type: models.ConnectionHTTP,
			URL:  "http://127.0.0.1:0/rpc",
		}),
		Manifest: datatypes.NewJSONType(manifest),
	}
}

// GetRequestPayload converts a given object into a reader of that obect as json payload
func GetRequestPayload(payload interface{}) io.Reader {
	bytes, _ := json.Marshal(payload)
	return strings.NewReader(string(bytes))
}

func MustJSON[T any](object T) datatypes.JSON {
	bytes, err := json.Marshal(object)
	if err != nil {
		logging.LogErrorf(err, "failed marshalling to JSON")
		return nil
	}
	return bytes
}

func Pointerfy[T any](thing T) *T {
	return &thing
}
