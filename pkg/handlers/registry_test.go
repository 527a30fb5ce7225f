package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/d4l-data4life/go-mcp-registry/internal/testutils"
	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
)

func TestListRegistry(t *testing.T) {
	srv, _ := testutils.GetTestMockServer(t)
	token := testutils.TestToken(t, uuid.New())

	recorder := doRequest(t, srv, http.MethodGet, "/api/v1/registry", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var entries []models.RegistryEntry
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &entries))
	require.NotEmpty(t, entries)

	ids := make(map[string]bool, len(entries))
	for _, e := range entries {
		ids[e.ID] = true
	}
	assert.True(t, ids["mcp-calculator"])
	assert.True(t, ids["mcp-file-system"])
}

func TestListRegistryByScope(t *testing.T) {
	srv, _ := testutils.GetTestMockServer(t)
	token := testutils.TestToken(t, uuid.New())

	recorder := doRequest(t, srv, http.MethodGet, "/api/v1/registry?scope=chat", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var entries []models.RegistryEntry
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &entries))
	for _, e := range entries {
		assert.NotEqual(t, "mcp-file-system", e.ID, "workspace tools are not listed under chat")
	}

	recorder = doRequest(t, srv, http.MethodGet, "/api/v1/registry?scope=galaxy", token, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetRegistryEntry(t *testing.T) {
	srv, _ := testutils.GetTestMockServer(t)
	token := testutils.TestToken(t, uuid.New())

	recorder := doRequest(t, srv, http.MethodGet, "/api/v1/registry/mcp-calculator", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var entry models.RegistryEntry
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &entry))
	assert.Equal(t, "mcp-calculator", entry.ID)
	assert.True(t, entry.IsBuiltin)

	recorder = doRequest(t, srv, http.MethodGet, "/api/v1/registry/mcp-missing", token, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestRegisterEntry(t *testing.T) {
	srv, _ := testutils.GetTestMockServer(t)
	token := testutils.TestToken(t, uuid.New())

	entry := testutils.NewTestEntry("mcp-registered", models.ScopeChat)
	recorder := doRequest(t, srv, http.MethodPost, "/api/v1/registry", token, testutils.GetRequestPayload(entry))
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = doRequest(t, srv, http.MethodGet, "/api/v1/registry/mcp-registered", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var stored models.RegistryEntry
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &stored))
	assert.False(t, stored.IsVerified, "registration never grants verification")
}

func TestRegisterEntryRejectsBadManifest(t *testing.T) {
	srv, _ := testutils.GetTestMockServer(t)
	token := testutils.TestToken(t, uuid.New())

	entry := testutils.NewTestEntry("mcp-broken", models.ScopeChat)
	manifest := entry.Manifest.Data()
	manifest.Version = "not-semver"
	entry.Manifest = datatypes.NewJSONType(manifest)

	recorder := doRequest(t, srv, http.MethodPost, "/api/v1/registry", token, testutils.GetRequestPayload(entry))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestEntryStats(t *testing.T) {
	srv, _ := testutils.GetTestMockServer(t)
	token := testutils.TestToken(t, uuid.New())

	execute := testutils.GetRequestPayload(map[string]interface{}{
		"mcpId":  "mcp-calculator",
		"tool":   "evaluate",
		"params": map[string]interface{}{"expression": "2+2"},
		"scope":  "chat",
	})
	recorder := doRequest(t, srv, http.MethodPost, "/api/v1/execute", token, execute)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, srv, http.MethodGet, "/api/v1/registry/mcp-calculator/stats", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var stats struct {
		CallCount    int64   `json:"callCount"`
		SuccessCount int64   `json:"successCount"`
		SuccessRate  float64 `json:"successRate"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.CallCount)
	assert.Equal(t, int64(1), stats.SuccessCount)
	assert.Equal(t, float64(1), stats.SuccessRate)
}
