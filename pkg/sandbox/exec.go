package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

const (
	defaultExecTimeoutMS = 30000
	maxExecTimeoutMS     = 120000
	maxOutputBytes       = 1 << 20 // 1 MiB per stream
	// grace period between SIGTERM and SIGKILL on timeout
	killGracePeriod = 2 * time.Second
)

// ExecResult is the in-band outcome of a code execution. Timeouts and
// non-zero exits are results, not dispatcher errors.
type ExecResult struct {
	Success       bool   `json:"success"`
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	ExitCode      int    `json:"exitCode"`
	Killed        bool   `json:"killed"`
	ExecutionTime int64  `json:"executionTime"` // milliseconds
	Error         string `json:"error,omitempty"`
}

// Execute runs a JavaScript or Python snippet in a child process
// confined to the workspace directory. The child is terminated when
// the per-call timer fires; abandoning a running child would be a
// resource leak, so termination is enforced through the command
// context plus a SIGKILL fallback.
func (h *Handler) Execute(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
	root, err := h.workspaceRoot(call.Context)
	if err != nil {
		return nil, err
	}
	code, err := call.RequiredString("code")
	if err != nil {
		return nil, err
	}
	language := call.StringParam("language", "")

	fallbackMS := int64(defaultExecTimeoutMS)
	if h.cfg.CodeExecTimeout > 0 {
		fallbackMS = h.cfg.CodeExecTimeout.Milliseconds()
	}
	timeoutMS := int64(call.NumberParam("timeout", float64(fallbackMS)))
	if timeoutMS <= 0 {
		timeoutMS = fallbackMS
	}
	if timeoutMS > maxExecTimeoutMS {
		timeoutMS = maxExecTimeoutMS
	}

	var bin string
	var args []string
	switch language {
	case "javascript":
		bin = h.cfg.NodeBinary
		args = []string{"-e", code}
	case "python":
		// -I: isolated mode, ignores user site-packages and env hooks
		bin = h.cfg.PythonBinary
		args = []string{"-I", "-c", code}
	default:
		return nil, dispatcher.Validationf("unsupported language %q (want javascript or python)", language)
	}

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMS)*time.Millisecond)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(execCtx, bin, args...)
	cmd.Dir = root
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Ask nicely first; CommandContext escalates to SIGKILL after WaitDelay
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killGracePeriod

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	result := ExecResult{
		Stdout:        truncate(stdout.String(), maxOutputBytes),
		Stderr:        truncate(stderr.String(), maxOutputBytes),
		ExecutionTime: elapsed.Milliseconds(),
	}

	switch {
	case execCtx.Err() == context.DeadlineExceeded:
		result.Killed = true
		result.ExitCode = -1
		result.Error = fmt.Sprintf("Execution timeout (%dms)", timeoutMS)
		logging.LogDebugf("Killed %s execution after %dms", language, timeoutMS)
	case runErr != nil:
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			result.Error = fmt.Sprintf("process exited with code %d", result.ExitCode)
		} else {
			result.ExitCode = -1
			result.Error = runErr.Error()
		}
	default:
		result.Success = true
	}

	return result, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
