package registry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/d4l-data4life/go-mcp-registry/internal/testutils"
	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
	"github.com/d4l-data4life/go-mcp-registry/pkg/registry"
)

func newCatalog(t *testing.T) *registry.Catalog {
	t.Helper()
	return registry.NewCatalog(models.InitializeTestDB(t), time.Minute)
}

func TestBuiltinsAlwaysResolvable(t *testing.T) {
	catalog := newCatalog(t)

	for _, id := range []string{
		registry.BuiltinFileSystem,
		registry.BuiltinCodeExecutor,
		registry.BuiltinDatabase,
		registry.BuiltinWebSearch,
		registry.BuiltinTrending,
		registry.BuiltinFetch,
		registry.BuiltinCalculator,
	} {
		entry, err := catalog.Get(id)
		require.NoError(t, err)
		require.NotNil(t, entry, "builtin %s must resolve", id)
		assert.True(t, entry.IsBuiltin)
		assert.True(t, entry.IsVerified)
		assert.True(t, catalog.IsBuiltin(id))
	}
}

func TestGetUnknownEntryReturnsNil(t *testing.T) {
	catalog := newCatalog(t)

	entry, err := catalog.Get("mcp-does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestClearCachePreservesBuiltins(t *testing.T) {
	catalog := newCatalog(t)

	entry := testutils.NewTestEntry("mcp-test-server", models.ScopeChat)
	require.NoError(t, catalog.Register(entry))

	catalog.ClearCache()

	// builtin survives, third-party entry reloads from storage
	builtin, err := catalog.Get(registry.BuiltinCalculator)
	require.NoError(t, err)
	require.NotNil(t, builtin)

	reloaded, err := catalog.Get("mcp-test-server")
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, entry.Name, reloaded.Name)
}

func TestRegisterRejectsBuiltinID(t *testing.T) {
	catalog := newCatalog(t)

	entry := testutils.NewTestEntry(registry.BuiltinFetch, models.ScopeChat)
	err := catalog.Register(entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
}

func TestRegisterNeverGrantsVerification(t *testing.T) {
	catalog := newCatalog(t)

	entry := testutils.NewTestEntry("mcp-sneaky", models.ScopeChat)
	entry.IsVerified = true
	entry.IsBuiltin = true
	require.NoError(t, catalog.Register(entry))

	stored, err := catalog.Get("mcp-sneaky")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.IsVerified)
	assert.False(t, stored.IsBuiltin)
}

func TestRegisterRejectsInvalidManifest(t *testing.T) {
	catalog := newCatalog(t)

	entry := testutils.NewTestEntry("mcp-broken", models.ScopeChat)
	manifest := entry.Manifest.Data()
	manifest.Tools = nil
	entry.Manifest = datatypes.NewJSONType(manifest)

	err := catalog.Register(entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest validation failed")
}

func TestListByScope(t *testing.T) {
	catalog := newCatalog(t)

	require.NoError(t, catalog.Register(testutils.NewTestEntry("mcp-chat-only", models.ScopeChat)))
	require.NoError(t, catalog.Register(testutils.NewTestEntry("mcp-everywhere", models.ScopeBoth)))

	chat, err := catalog.ListByScope(models.ScopeChat)
	require.NoError(t, err)

	ids := entryIDs(chat)
	assert.Contains(t, ids, registry.BuiltinCalculator)
	assert.Contains(t, ids, "mcp-chat-only")
	assert.Contains(t, ids, "mcp-everywhere")
	assert.NotContains(t, ids, registry.BuiltinFileSystem)

	workspace, err := catalog.ListByScope(models.ScopeWorkspace)
	require.NoError(t, err)

	ids = entryIDs(workspace)
	assert.Contains(t, ids, registry.BuiltinFileSystem)
	assert.Contains(t, ids, "mcp-everywhere")
	assert.NotContains(t, ids, "mcp-chat-only")
}

func TestSearchMatchesNameAndDescription(t *testing.T) {
	catalog := newCatalog(t)

	entry := testutils.NewTestEntry("mcp-weather", models.ScopeChat)
	entry.Description = "forecast lookups"
	require.NoError(t, catalog.Register(entry))

	byName, err := catalog.Search("weather", models.ScopeChat)
	require.NoError(t, err)
	assert.Contains(t, entryIDs(byName), "mcp-weather")

	byDescription, err := catalog.Search("forecast", models.ScopeChat)
	require.NoError(t, err)
	assert.Contains(t, entryIDs(byDescription), "mcp-weather")

	none, err := catalog.Search("no-such-thing-anywhere", models.ScopeChat)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateStatusRejectsBuiltin(t *testing.T) {
	catalog := newCatalog(t)

	err := catalog.UpdateStatus(registry.BuiltinFetch, models.StatusInactive)
	require.Error(t, err)
}

func TestUpdateStatusTakesEntryOutOfListing(t *testing.T) {
	catalog := newCatalog(t)

	require.NoError(t, catalog.Register(testutils.NewTestEntry("mcp-flaky", models.ScopeChat)))
	require.NoError(t, catalog.UpdateStatus("mcp-flaky", models.StatusError))

	entries, err := catalog.ListByScope(models.ScopeChat)
	require.NoError(t, err)
	assert.NotContains(t, entryIDs(entries), "mcp-flaky")
}

func entryIDs(entries []*models.RegistryEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}
