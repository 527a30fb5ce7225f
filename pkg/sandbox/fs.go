package sandbox

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
)

// maxReadSize caps read_file results to keep tool responses bounded.
const maxReadSize = 10 << 20 // 10 MiB

// DirEntry is one list_dir result row.
type DirEntry struct {
	Name string `json:"name"`
	Type string `json:"type"` // file or directory
}

// ReadFile reads a workspace file.
func (h *Handler) ReadFile(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
	root, err := h.workspaceRoot(call.Context)
	if err != nil {
		return nil, err
	}
	path, err := call.RequiredString("path")
	if err != nil {
		return nil, err
	}
	resolved, err := resolvePath(root, path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dispatcher.Validationf("file not found: %s", path)
		}
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}
	if info.IsDir() {
		return nil, dispatcher.Validationf("%s is a directory", path)
	}
	if info.Size() > maxReadSize {
		return nil, dispatcher.Validationf("file %s exceeds the %d byte read limit", path, maxReadSize)
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	return map[string]interface{}{
		"path":    path,
		"content": string(content),
		"size":    info.Size(),
	}, nil
}

// WriteFile writes a workspace file, creating intermediate directories.
func (h *Handler) WriteFile(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
	root, err := h.workspaceRoot(call.Context)
	if err != nil {
		return nil, err
	}
	path, err := call.RequiredString("path")
	if err != nil {
		return nil, err
	}
	content, err := call.RequiredString("content")
	if err != nil {
		return nil, err
	}
	resolved, err := resolvePath(root, path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o750); err != nil {
		return nil, errors.Wrapf(err, "failed to create parent directories for %s", path)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o640); err != nil {
		return nil, errors.Wrapf(err, "failed to write %s", path)
	}

	return map[string]interface{}{
		"path":    path,
		"written": len(content),
	}, nil
}

// ListDir lists a workspace directory without descending into
// subdirectories.
func (h *Handler) ListDir(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
	root, err := h.workspaceRoot(call.Context)
	if err != nil {
		return nil, err
	}
	path := call.StringParam("path", ".")
	resolved, err := resolvePath(root, path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dispatcher.Validationf("directory not found: %s", path)
		}
		return nil, errors.Wrapf(err, "failed to list %s", path)
	}

	result := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		kind := "file"
		if entry.IsDir() {
			kind = "directory"
		}
		result = append(result, DirEntry{Name: entry.Name(), Type: kind})
	}
	return result, nil
}

// DeleteFile removes a workspace file.
func (h *Handler) DeleteFile(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
	root, err := h.workspaceRoot(call.Context)
	if err != nil {
		return nil, err
	}
	path, err := call.RequiredString("path")
	if err != nil {
		return nil, err
	}
	resolved, err := resolvePath(root, path)
	if err != nil {
		return nil, err
	}

	if err := os.Remove(resolved); err != nil {
		if os.IsNotExist(err) {
			return nil, dispatcher.Validationf("file not found: %s", path)
		}
		return nil, errors.Wrapf(err, "failed to delete %s", path)
	}

	return map[string]interface{}{
		"path":    path,
		"deleted": true,
	}, nil
}
