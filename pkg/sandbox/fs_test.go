package sandbox_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d4l-data4life/go-mcp-registry/internal/testutils"
	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
	"github.com/d4l-data4life/go-mcp-registry/pkg/sandbox"
)

func newFSHandler(t *testing.T) *sandbox.Handler {
	t.Helper()
	return sandbox.NewHandler(models.InitializeTestDB(t), testutils.TestToolConfig(t))
}

func fsCall(params map[string]interface{}) dispatcher.ToolCall {
	return dispatcher.ToolCall{
		MCPID:   "mcp-file-system",
		Params:  params,
		Context: dispatcher.CallContext{WorkspaceID: "ws1"},
	}
}

func requireCallError(t *testing.T, err error, code dispatcher.ErrorCode) *dispatcher.CallError {
	t.Helper()
	require.Error(t, err)
	callErr, ok := err.(*dispatcher.CallError)
	require.True(t, ok, "expected *dispatcher.CallError, got %T", err)
	assert.Equal(t, code, callErr.Code)
	return callErr
}

func TestFileRoundtrip(t *testing.T) {
	h := newFSHandler(t)
	ctx := context.Background()

	_, err := h.WriteFile(ctx, fsCall(map[string]interface{}{
		"path":    "notes/hello.txt",
		"content": "hello sandbox",
	}))
	require.NoError(t, err)

	read, err := h.ReadFile(ctx, fsCall(map[string]interface{}{"path": "notes/hello.txt"}))
	require.NoError(t, err)
	got := read.(map[string]interface{})
	assert.Equal(t, "hello sandbox", got["content"])
	assert.Equal(t, int64(len("hello sandbox")), got["size"])

	listed, err := h.ListDir(ctx, fsCall(map[string]interface{}{"path": "notes"}))
	require.NoError(t, err)
	entries := listed.([]sandbox.DirEntry)
	require.Len(t, entries, 1)
	assert.Equal(t, "hello.txt", entries[0].Name)
	assert.Equal(t, "file", entries[0].Type)

	_, err = h.DeleteFile(ctx, fsCall(map[string]interface{}{"path": "notes/hello.txt"}))
	require.NoError(t, err)

	_, err = h.ReadFile(ctx, fsCall(map[string]interface{}{"path": "notes/hello.txt"}))
	requireCallError(t, err, dispatcher.CodeValidation)
}

func TestListDirShowsDirectories(t *testing.T) {
	h := newFSHandler(t)
	ctx := context.Background()

	_, err := h.WriteFile(ctx, fsCall(map[string]interface{}{
		"path":    "project/src/main.js",
		"content": "console.log(1)",
	}))
	require.NoError(t, err)

	listed, err := h.ListDir(ctx, fsCall(map[string]interface{}{"path": "project"}))
	require.NoError(t, err)
	entries := listed.([]sandbox.DirEntry)
	require.Len(t, entries, 1)
	assert.Equal(t, "directory", entries[0].Type)
}

func TestPathTraversalRejected(t *testing.T) {
	h := newFSHandler(t)
	ctx := context.Background()

	for _, path := range []string{"../escape.txt", "a/../../escape.txt", "/etc/passwd"} {
		t.Run(path, func(t *testing.T) {
			_, err := h.ReadFile(ctx, fsCall(map[string]interface{}{"path": path}))
			callErr := requireCallError(t, err, dispatcher.CodeValidation)
			assert.Contains(t, callErr.Message, "path traversal")
		})
	}
}

func TestWorkspacesAreIsolated(t *testing.T) {
	h := newFSHandler(t)
	ctx := context.Background()

	_, err := h.WriteFile(ctx, dispatcher.ToolCall{
		Params:  map[string]interface{}{"path": "secret.txt", "content": "ws1 only"},
		Context: dispatcher.CallContext{WorkspaceID: "ws1"},
	})
	require.NoError(t, err)

	_, err = h.ReadFile(ctx, dispatcher.ToolCall{
		Params:  map[string]interface{}{"path": "secret.txt"},
		Context: dispatcher.CallContext{WorkspaceID: "ws2"},
	})
	requireCallError(t, err, dispatcher.CodeValidation)
}

func TestInvalidWorkspaceID(t *testing.T) {
	h := newFSHandler(t)

	for _, id := range []string{"../up", "a/b", `a\b`} {
		_, err := h.ListDir(context.Background(), dispatcher.ToolCall{
			Params:  map[string]interface{}{"path": "."},
			Context: dispatcher.CallContext{WorkspaceID: id},
		})
		callErr := requireCallError(t, err, dispatcher.CodeValidation)
		assert.Contains(t, callErr.Message, "workspace id")
	}
}

func TestReadDirectoryRejected(t *testing.T) {
	h := newFSHandler(t)
	ctx := context.Background()

	_, err := h.WriteFile(ctx, fsCall(map[string]interface{}{
		"path":    "dir/file.txt",
		"content": "x",
	}))
	require.NoError(t, err)

	_, err = h.ReadFile(ctx, fsCall(map[string]interface{}{"path": "dir"}))
	callErr := requireCallError(t, err, dispatcher.CodeValidation)
	assert.Contains(t, callErr.Message, "directory")
}

func TestWriteMissingContent(t *testing.T) {
	h := newFSHandler(t)

	_, err := h.WriteFile(context.Background(), fsCall(map[string]interface{}{"path": "x.txt"}))
	requireCallError(t, err, dispatcher.CodeValidation)
}
