package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"

	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
)

func TestScopeMatches(t *testing.T) {
	assert.True(t, models.ScopeChat.Matches(models.ScopeChat))
	assert.True(t, models.ScopeWorkspace.Matches(models.ScopeWorkspace))
	assert.True(t, models.ScopeBoth.Matches(models.ScopeChat))
	assert.True(t, models.ScopeBoth.Matches(models.ScopeWorkspace))

	assert.False(t, models.ScopeChat.Matches(models.ScopeWorkspace))
	assert.False(t, models.ScopeWorkspace.Matches(models.ScopeChat))
}

func TestScopeValid(t *testing.T) {
	assert.True(t, models.ScopeChat.Valid())
	assert.True(t, models.ScopeWorkspace.Valid())

	// "both" describes entries, not calls
	assert.False(t, models.ScopeBoth.Valid())
	assert.False(t, models.Scope("global").Valid())
	assert.False(t, models.Scope("").Valid())
}

func TestEntryStatusValid(t *testing.T) {
	for _, s := range []models.EntryStatus{
		models.StatusActive, models.StatusInactive, models.StatusError, models.StatusLoading,
	} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, models.EntryStatus("paused").Valid())
}

func TestEntryToolLookup(t *testing.T) {
	entry := models.RegistryEntry{ID: "mcp-x"}
	_, ok := entry.Tool("echo")
	assert.False(t, ok)

	entry.Tools = datatypes.NewJSONType([]models.ToolDefinition{
		{Name: "echo", Description: "echoes"},
	})

	got, ok := entry.Tool("echo")
	assert.True(t, ok)
	assert.Equal(t, "echoes", got.Description)

	_, ok = entry.Tool("other")
	assert.False(t, ok)
}
