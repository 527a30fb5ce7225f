package models

import (
	"time"

	"gorm.io/datatypes"
)

// Scope is the trust domain a tool may be invoked under.
type Scope string

const (
	// ScopeWorkspace confines execution to the per-workspace sandbox
	ScopeWorkspace Scope = "workspace"
	// ScopeChat allows whitelisted network access only
	ScopeChat Scope = "chat"
	// ScopeBoth marks entries available under either scope
	ScopeBoth Scope = "both"
)

// Matches reports whether an entry scope satisfies a requested call scope.
func (s Scope) Matches(requested Scope) bool {
	return s == requested || s == ScopeBoth
}

// Valid reports whether s is a known call scope (workspace or chat).
func (s Scope) Valid() bool {
	return s == ScopeWorkspace || s == ScopeChat
}

// EntryStatus is the lifecycle state of a registry entry.
type EntryStatus string

const (
	StatusActive   EntryStatus = "active"
	StatusInactive EntryStatus = "inactive"
	StatusError    EntryStatus = "error"
	StatusLoading  EntryStatus = "loading"
)

// Valid reports whether s is a known lifecycle status.
func (s EntryStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusError, StatusLoading:
		return true
	}
	return false
}

// PermissionType classifies the capability a tool needs to run.
type PermissionType string

const (
	PermissionNetwork    PermissionType = "network"
	PermissionFilesystem PermissionType = "filesystem"
	PermissionEnv        PermissionType = "env"
	PermissionExec       PermissionType = "exec"
	PermissionDatabase   PermissionType = "database"
	PermissionCustom     PermissionType = "custom"
)

// Permission is a declared capability requirement on a tool.
type Permission struct {
	Type        PermissionType `json:"type"`
	Scope       string         `json:"scope,omitempty"`
	Description string         `json:"description,omitempty"`
}

// ParamSpec describes a single tool parameter.
type ParamSpec struct {
	Name        string               `json:"name"`
	Type        string               `json:"type"` // string, number, boolean, array, object
	Description string               `json:"description,omitempty"`
	Required    bool                 `json:"required"`
	Default     interface{}          `json:"default,omitempty"`
	Enum        []interface{}        `json:"enum,omitempty"`
	Items       *ParamSpec           `json:"items,omitempty"`
	Properties  map[string]ParamSpec `json:"properties,omitempty"`
}

// ToolDefinition describes a callable tool exposed by a registry entry.
// Definitions are immutable once registered.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  []ParamSpec `json:"parameters,omitempty"`
	Returns     string      `json:"returns,omitempty"`
}

// Connection types.
const (
	ConnectionBuiltin   = "builtin"
	ConnectionStdio     = "stdio"
	ConnectionHTTP      = "http"
	ConnectionWebsocket = "websocket"
)

// ConnectionSpec describes how an entry's tools are reached: built-in
// entries name an in-process handler key, third-party entries carry a
// stdio, http or websocket transport configuration.
type ConnectionSpec struct {
	Type    string            `json:"type"` // builtin, stdio, http, websocket
	Handler string            `json:"handler,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Manifest is the self-description submitted when registering a
// third-party entry. It is validated against a JSON schema before the
// entry is persisted.
type Manifest struct {
	Name        string           `json:"name"`
	Version     string           `json:"version"`
	Description string           `json:"description,omitempty"`
	Author      string           `json:"author,omitempty"`
	Homepage    string           `json:"homepage,omitempty"`
	Tools       []ToolDefinition `json:"tools"`
	Permissions []Permission     `json:"permissions,omitempty"`
}

// EntryMetadata carries descriptive, non-functional entry attributes.
type EntryMetadata struct {
	Author string   `json:"author,omitempty"`
	Tags   []string `json:"tags,omitempty"`
	Icon   string   `json:"icon,omitempty"`
}

// RegistryEntry is an MCP registry row. Built-in entries are
// constructed in memory at process start and never persisted; only
// third-party registrations live in this table.
type RegistryEntry struct {
	ID          string                                 `gorm:"primaryKey;size:255" json:"id"`
	Name        string                                 `gorm:"size:255;not null" json:"name"`
	Description string                                 `gorm:"type:text" json:"description,omitempty"`
	Version     string                                 `gorm:"size:50;not null;default:'1.0.0'" json:"version"`
	Scope       Scope                                  `gorm:"size:20;not null;index" json:"scope"`
	Status      EntryStatus                            `gorm:"size:20;not null;default:'active'" json:"status"`
	IsBuiltin   bool                                   `gorm:"not null;default:false" json:"isBuiltin"`
	IsVerified  bool                                   `gorm:"not null;default:false" json:"isVerified"`
	IsEnabled   bool                                   `gorm:"not null;default:true" json:"isEnabled"`
	RatingScore float64                                `gorm:"not null;default:0" json:"ratingScore"`
	RatingCount int64                                  `gorm:"not null;default:0" json:"ratingCount"`
	Tools       datatypes.JSONType[[]ToolDefinition]   `gorm:"column:tools" json:"tools"`
	Permissions datatypes.JSONType[[]Permission]       `gorm:"column:permissions" json:"permissions"`
	Connection  datatypes.JSONType[ConnectionSpec]     `gorm:"column:connection" json:"connection"`
	Manifest    datatypes.JSONType[*Manifest]          `gorm:"column:manifest" json:"manifest,omitempty"`
	Metadata    datatypes.JSONType[EntryMetadata]      `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time                              `json:"createdAt"`
	UpdatedAt   time.Time                              `json:"updatedAt"`
}

// TableName specifies the table name for RegistryEntry
func (RegistryEntry) TableName() string {
	return "mcp_registry"
}

// Tool returns the named tool definition, if the entry exposes it.
func (e *RegistryEntry) Tool(name string) (ToolDefinition, bool) {
	for _, t := range e.Tools.Data() {
		if t.Name == name {
			return t, true
		}
	}
	return ToolDefinition{}, false
}
