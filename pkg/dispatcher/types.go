package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
)

// ErrorCode classifies every failure the dispatcher can surface.
type ErrorCode string

const (
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeValidation       ErrorCode = "VALIDATION"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeAPIError         ErrorCode = "API_ERROR"
)

// CallContext carries the trust and routing context of a call.
type CallContext struct {
	WorkspaceID    string    `json:"workspaceId,omitempty"`
	ConversationID string    `json:"conversationId,omitempty"`
	WorkflowID     string    `json:"workflowId,omitempty"`
	NodeID         string    `json:"nodeId,omitempty"`
	UserID         uuid.UUID `json:"userId,omitempty"`
}

// CallRequest is the single entry envelope into the dispatcher.
type CallRequest struct {
	MCPID   string                 `json:"mcpId"`
	Tool    string                 `json:"tool"`
	Params  map[string]interface{} `json:"params"`
	Scope   models.Scope           `json:"scope"`
	Context CallContext            `json:"context,omitempty"`
}

// CallError is the structured error half of the response envelope.
// Handlers may return it directly to pick their error code; any other
// error is classified as API_ERROR.
type CallError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Validationf builds a VALIDATION call error.
func Validationf(format string, args ...interface{}) *CallError {
	return &CallError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// APIErrorf builds an API_ERROR call error.
func APIErrorf(format string, args ...interface{}) *CallError {
	return &CallError{Code: CodeAPIError, Message: fmt.Sprintf(format, args...)}
}

// CallMetadata is always populated, regardless of outcome.
type CallMetadata struct {
	Duration  int64  `json:"duration"` // milliseconds
	Timestamp string `json:"timestamp"`
	MCPID     string `json:"mcpId"`
	Tool      string `json:"tool"`
	Scope     string `json:"scope"`
}

// CallResponse is the uniform response envelope. Exactly one of
// Result/Error is populated.
type CallResponse struct {
	Success  bool         `json:"success"`
	Result   interface{}  `json:"result,omitempty"`
	Error    *CallError   `json:"error,omitempty"`
	Metadata CallMetadata `json:"metadata"`
}

// ToolCall is what a registered tool handler receives.
type ToolCall struct {
	MCPID   string
	Tool    string
	Params  map[string]interface{}
	Context CallContext
}

// ToolFunc executes one tool. Blocking work must honor ctx.
type ToolFunc func(ctx context.Context, call ToolCall) (interface{}, error)

// Invoker reaches tools of non-built-in entries through their
// declared connection (stdio, http or websocket transport).
type Invoker interface {
	Invoke(ctx context.Context, entry *models.RegistryEntry, tool string, params map[string]interface{}) (interface{}, error)
}

// EntryStats are best-effort, in-memory usage counters per entry.
type EntryStats struct {
	CallCount    int64   `json:"callCount"`
	SuccessCount int64   `json:"successCount"`
	SuccessRate  float64 `json:"successRate"`
	AvgLatencyMS float64 `json:"avgLatencyMs"`

	totalLatencyMS int64
}

func (s *EntryStats) record(success bool, latency time.Duration) {
	s.CallCount++
	if success {
		s.SuccessCount++
	}
	s.totalLatencyMS += latency.Milliseconds()
	s.SuccessRate = float64(s.SuccessCount) / float64(s.CallCount)
	s.AvgLatencyMS = float64(s.totalLatencyMS) / float64(s.CallCount)
}
