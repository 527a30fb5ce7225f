package registry

import (
	"gorm.io/datatypes"

	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
)

// Built-in entry ids. These are constructed once at process start,
// live for the process lifetime and are never evicted from the cache.
const (
	BuiltinFileSystem   = "mcp-file-system"
	BuiltinCodeExecutor = "mcp-code-executor"
	BuiltinDatabase     = "mcp-database"
	BuiltinWebSearch    = "mcp-web-search"
	BuiltinTrending     = "mcp-trending"
	BuiltinFetch        = "mcp-fetch"
	BuiltinCalculator   = "mcp-calculator"
)

func builtinEntry(id, name, description string, scope models.Scope, handler string, perms []models.Permission, tools []models.ToolDefinition) *models.RegistryEntry {
	return &models.RegistryEntry{
		ID:          id,
		Name:        name,
		Description: description,
		Version:     "1.0.0",
		Scope:       scope,
		Status:      models.StatusActive,
		IsBuiltin:   true,
		IsVerified:  true,
		IsEnabled:   true,
		Tools:       datatypes.NewJSONType(tools),
		Permissions: datatypes.NewJSONType(perms),
		Connection:  datatypes.NewJSONType(models.ConnectionSpec{Type: models.ConnectionBuiltin, Handler: handler}),
	}
}

// BuiltinEntries returns the immutable set of built-in registry entries.
func BuiltinEntries() map[string]*models.RegistryEntry {
	entries := []*models.RegistryEntry{
		builtinEntry(BuiltinFileSystem, "File System", "Read, write, list and delete files inside the workspace sandbox",
			models.ScopeWorkspace, "sandbox.fs",
			[]models.Permission{{Type: models.PermissionFilesystem, Description: "Workspace-confined file access"}},
			[]models.ToolDefinition{
				{
					Name:        "read_file",
					Description: "Read a file from the workspace",
					Parameters: []models.ParamSpec{
						{Name: "path", Type: "string", Required: true},
						{Name: "encoding", Type: "string", Default: "utf-8"},
					},
					Returns: "object",
				},
				{
					Name:        "write_file",
					Description: "Write a file in the workspace, creating parent directories",
					Parameters: []models.ParamSpec{
						{Name: "path", Type: "string", Required: true},
						{Name: "content", Type: "string", Required: true},
					},
					Returns: "object",
				},
				{
					Name:        "list_dir",
					Description: "List a workspace directory without descending into subdirectories",
					Parameters: []models.ParamSpec{
						{Name: "path", Type: "string", Default: "."},
					},
					Returns: "array",
				},
				{
					Name:        "delete_file",
					Description: "Delete a file from the workspace",
					Parameters: []models.ParamSpec{
						{Name: "path", Type: "string", Required: true},
					},
					Returns: "object",
				},
			}),
		builtinEntry(BuiltinCodeExecutor, "Code Executor", "Run JavaScript or Python snippets in a killed-on-timeout child process",
			models.ScopeWorkspace, "sandbox.exec",
			[]models.Permission{{Type: models.PermissionExec, Description: "Spawns a sandboxed child process"}},
			[]models.ToolDefinition{
				{
					Name:        "execute",
					Description: "Execute a code snippet and capture stdout/stderr",
					Parameters: []models.ParamSpec{
						{Name: "code", Type: "string", Required: true},
						{Name: "language", Type: "string", Required: true, Enum: []interface{}{"javascript", "python"}},
						{Name: "timeout", Type: "number", Default: 30000},
					},
					Returns: "object",
				},
			}),
		builtinEntry(BuiltinDatabase, "Database", "Run guarded SQL queries against the workspace database",
			models.ScopeWorkspace, "sandbox.sql",
			[]models.Permission{{Type: models.PermissionDatabase, Description: "Read/write access to the workspace schema"}},
			[]models.ToolDefinition{
				{
					Name:        "query",
					Description: "Execute a SQL statement; destructive patterns are rejected",
					Parameters: []models.ParamSpec{
						{Name: "sql", Type: "string", Required: true},
						{Name: "params", Type: "array", Items: &models.ParamSpec{Name: "param", Type: "string"}},
					},
					Returns: "array",
				},
			}),
		builtinEntry(BuiltinWebSearch, "Web Search", "Search the web through the no-key default engine",
			models.ScopeChat, "webtools.search",
			[]models.Permission{{Type: models.PermissionNetwork, Description: "Calls the configured search upstream"}},
			[]models.ToolDefinition{
				{
					Name:        "search",
					Description: "Search and return normalized results",
					Parameters: []models.ParamSpec{
						{Name: "query", Type: "string", Required: true},
						{Name: "engine", Type: "string", Default: "duckduckgo"},
						{Name: "limit", Type: "number", Default: 10},
					},
					Returns: "array",
				},
			}),
		builtinEntry(BuiltinTrending, "Trending Topics", "Aggregate trending items from supported platforms",
			models.ScopeChat, "webtools.trends",
			[]models.Permission{{Type: models.PermissionNetwork, Description: "Calls the configured trend upstreams"}},
			[]models.ToolDefinition{
				{
					Name:        "get_trends",
					Description: "Fetch trending items for a platform",
					Parameters: []models.ParamSpec{
						{Name: "platform", Type: "string", Required: true, Enum: []interface{}{"hackernews", "reddit", "github"}},
						{Name: "limit", Type: "number", Default: 10},
					},
					Returns: "array",
				},
			}),
		builtinEntry(BuiltinFetch, "HTTP Fetch", "Fetch whitelisted HTTP endpoints",
			models.ScopeChat, "webtools.fetch",
			[]models.Permission{{Type: models.PermissionNetwork, Description: "Reaches whitelisted hosts only"}},
			[]models.ToolDefinition{
				{
					Name:        "fetch",
					Description: "Perform an HTTP request against a whitelisted host",
					Parameters: []models.ParamSpec{
						{Name: "url", Type: "string", Required: true},
						{Name: "method", Type: "string", Default: "GET", Enum: []interface{}{"GET", "HEAD", "POST"}},
						{Name: "headers", Type: "object"},
						{Name: "body", Type: "string"},
					},
					Returns: "object",
				},
			}),
		builtinEntry(BuiltinCalculator, "Calculator", "Evaluate arithmetic expressions",
			models.ScopeChat, "webtools.calc",
			nil,
			[]models.ToolDefinition{
				{
					Name:        "evaluate",
					Description: "Evaluate a numeric expression",
					Parameters: []models.ParamSpec{
						{Name: "expression", Type: "string", Required: true},
					},
					Returns: "number",
				},
			}),
	}

	m := make(map[string]*models.RegistryEntry, len(entries))
	for _, e := range entries {
		m[e.ID] = e
	}
	return m
}
