package sandbox_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d4l-data4life/go-mcp-registry/internal/testutils"
	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
	"github.com/d4l-data4life/go-mcp-registry/pkg/sandbox"
)

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not installed", name)
	}
}

func execCall(params map[string]interface{}) dispatcher.ToolCall {
	return dispatcher.ToolCall{
		MCPID:   "mcp-code-executor",
		Tool:    "execute",
		Params:  params,
		Context: dispatcher.CallContext{WorkspaceID: "ws1"},
	}
}

func TestExecutePython(t *testing.T) {
	requireBinary(t, "python3")
	h := sandbox.NewHandler(models.InitializeTestDB(t), testutils.TestToolConfig(t))

	result, err := h.Execute(context.Background(), execCall(map[string]interface{}{
		"code":     "print(6 * 7)",
		"language": "python",
	}))
	require.NoError(t, err)

	res := result.(sandbox.ExecResult)
	assert.True(t, res.Success)
	assert.Equal(t, "42\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Killed)
}

func TestExecuteJavascript(t *testing.T) {
	requireBinary(t, "node")
	h := sandbox.NewHandler(models.InitializeTestDB(t), testutils.TestToolConfig(t))

	result, err := h.Execute(context.Background(), execCall(map[string]interface{}{
		"code":     "console.log(6 * 7)",
		"language": "javascript",
	}))
	require.NoError(t, err)

	res := result.(sandbox.ExecResult)
	assert.True(t, res.Success)
	assert.Equal(t, "42\n", res.Stdout)
}

func TestExecuteNonZeroExit(t *testing.T) {
	requireBinary(t, "python3")
	h := sandbox.NewHandler(models.InitializeTestDB(t), testutils.TestToolConfig(t))

	result, err := h.Execute(context.Background(), execCall(map[string]interface{}{
		"code":     "import sys; sys.exit(3)",
		"language": "python",
	}))
	require.NoError(t, err, "a failing script is a result, not a dispatcher error")

	res := result.(sandbox.ExecResult)
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Killed)
}

func TestExecuteTimeoutKillsProcess(t *testing.T) {
	requireBinary(t, "python3")
	h := sandbox.NewHandler(models.InitializeTestDB(t), testutils.TestToolConfig(t))

	start := time.Now()
	result, err := h.Execute(context.Background(), execCall(map[string]interface{}{
		"code":     "while True: pass",
		"language": "python",
		"timeout":  float64(200),
	}))
	require.NoError(t, err)

	res := result.(sandbox.ExecResult)
	assert.False(t, res.Success)
	assert.True(t, res.Killed)
	assert.Contains(t, res.Error, "Execution timeout")
	assert.Less(t, time.Since(start), 10*time.Second)
}

// The configured execution timeout applies when the caller does not
// pass one.
func TestExecuteConfiguredDefaultTimeout(t *testing.T) {
	requireBinary(t, "python3")
	cfg := testutils.TestToolConfig(t)
	cfg.CodeExecTimeout = 200 * time.Millisecond
	h := sandbox.NewHandler(models.InitializeTestDB(t), cfg)

	start := time.Now()
	result, err := h.Execute(context.Background(), execCall(map[string]interface{}{
		"code":     "while True: pass",
		"language": "python",
	}))
	require.NoError(t, err)

	res := result.(sandbox.ExecResult)
	assert.True(t, res.Killed)
	assert.Contains(t, res.Error, "Execution timeout (200ms)")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExecuteUnsupportedLanguage(t *testing.T) {
	h := sandbox.NewHandler(models.InitializeTestDB(t), testutils.TestToolConfig(t))

	_, err := h.Execute(context.Background(), execCall(map[string]interface{}{
		"code":     "puts 42",
		"language": "ruby",
	}))
	callErr := requireCallError(t, err, dispatcher.CodeValidation)
	assert.Contains(t, callErr.Message, "unsupported language")
}

func TestExecuteMissingCode(t *testing.T) {
	h := sandbox.NewHandler(models.InitializeTestDB(t), testutils.TestToolConfig(t))

	_, err := h.Execute(context.Background(), execCall(map[string]interface{}{
		"language": "python",
	}))
	requireCallError(t, err, dispatcher.CodeValidation)
}
