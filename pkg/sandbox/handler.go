// Package sandbox implements the workspace scope handler: filesystem,
// code execution and database tools, all confined to a per-workspace
// root directory.
package sandbox

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/d4l-data4life/go-mcp-registry/pkg/config"
	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
	"github.com/d4l-data4life/go-mcp-registry/pkg/registry"
)

// DefaultWorkspace is used when a call carries no workspace id.
const DefaultWorkspace = "default"

// Handler executes workspace-scoped tools.
type Handler struct {
	cfg config.ToolConfig
	db  *gorm.DB
}

// NewHandler creates the workspace scope handler.
func NewHandler(db *gorm.DB, cfg config.ToolConfig) *Handler {
	return &Handler{cfg: cfg, db: db}
}

// Register wires all workspace tools into the dispatcher table.
func (h *Handler) Register(d *dispatcher.Dispatcher) {
	d.RegisterTool(registry.BuiltinFileSystem, "read_file", h.ReadFile)
	d.RegisterTool(registry.BuiltinFileSystem, "write_file", h.WriteFile)
	d.RegisterTool(registry.BuiltinFileSystem, "list_dir", h.ListDir)
	d.RegisterTool(registry.BuiltinFileSystem, "delete_file", h.DeleteFile)
	d.RegisterTool(registry.BuiltinCodeExecutor, "execute", h.Execute)
	d.RegisterTool(registry.BuiltinDatabase, "query", h.Query)
}

// workspaceRoot resolves (and lazily creates) the sandbox root for a
// call. Workspace ids must be plain names; anything resembling a path
// is rejected before it can influence the root location.
func (h *Handler) workspaceRoot(callCtx dispatcher.CallContext) (string, error) {
	id := callCtx.WorkspaceID
	if id == "" {
		id = DefaultWorkspace
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return "", dispatcher.Validationf("invalid workspace id %q", id)
	}

	root, err := filepath.Abs(filepath.Join(h.cfg.SandboxRoot, id))
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve workspace root")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return "", errors.Wrapf(err, "failed to create workspace root %s", root)
	}
	return root, nil
}

// resolvePath joins a relative tool path onto the workspace root and
// verifies the result stays inside it. Absolute paths and `..` escapes
// are rejected with a VALIDATION error before any filesystem call.
func resolvePath(root, path string) (string, error) {
	if path == "" {
		return "", dispatcher.Validationf("path is required")
	}
	if filepath.IsAbs(path) {
		return "", dispatcher.Validationf("path traversal detected: absolute paths are not allowed")
	}

	joined := filepath.Join(root, filepath.Clean(path))
	resolved, err := filepath.Abs(joined)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve path")
	}
	if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		return "", dispatcher.Validationf("path traversal detected: %s escapes the workspace", path)
	}
	return resolved, nil
}
