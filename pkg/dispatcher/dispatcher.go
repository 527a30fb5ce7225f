package dispatcher

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/d4l-data4life/go-mcp-registry/pkg/metrics"
	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
	"github.com/d4l-data4life/go-mcp-registry/pkg/registry"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// DefaultCallTimeout bounds a tool call when no tighter deadline is set.
const DefaultCallTimeout = 30 * time.Second

// scopePermissions maps each call scope to the permission types it may
// satisfy. A call is denied unless every permission the entry declares
// is covered.
var scopePermissions = map[models.Scope]map[models.PermissionType]bool{
	models.ScopeWorkspace: {
		models.PermissionFilesystem: true,
		models.PermissionExec:       true,
		models.PermissionDatabase:   true,
		models.PermissionEnv:        true,
		models.PermissionCustom:     true,
	},
	models.ScopeChat: {
		models.PermissionNetwork: true,
		models.PermissionCustom:  true,
	},
}

// Dispatcher is the single entry point for tool execution: it resolves
// the entry, checks permissions, routes to the registered handler (or
// the connector for third-party entries), enforces the deadline and
// the response envelope, and emits the call log.
type Dispatcher struct {
	catalog  *registry.Catalog
	installs *registry.InstallManager
	db       *gorm.DB
	timeout  time.Duration

	// connector reaches non-built-in entries; optional
	connector Invoker

	handlersMu sync.RWMutex
	handlers   map[string]ToolFunc

	statsMu sync.Mutex
	stats   map[string]*EntryStats
}

// New creates a dispatcher. Scope handlers register their tools via
// RegisterTool; adding a tool is a registration, not a switch-arm edit.
func New(db *gorm.DB, catalog *registry.Catalog, installs *registry.InstallManager, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Dispatcher{
		catalog:  catalog,
		installs: installs,
		db:       db,
		timeout:  timeout,
		handlers: make(map[string]ToolFunc),
		stats:    make(map[string]*EntryStats),
	}
}

// SetConnector wires the transport used for non-built-in entries.
func (d *Dispatcher) SetConnector(inv Invoker) {
	d.connector = inv
}

// RegisterTool registers the handler for a (mcpId, tool) pair.
func (d *Dispatcher) RegisterTool(mcpID, tool string, fn ToolFunc) {
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()
	d.handlers[mcpID+"/"+tool] = fn
}

// Stats returns a copy of the in-memory usage counters for an entry.
func (d *Dispatcher) Stats(mcpID string) EntryStats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	if s, ok := d.stats[mcpID]; ok {
		return *s
	}
	return EntryStats{}
}

// Execute runs one tool call. It never returns an error to the caller:
// every failure path is captured in the response envelope.
func (d *Dispatcher) Execute(ctx context.Context, req CallRequest) CallResponse {
	start := time.Now()

	result, callErr := d.execute(ctx, req)

	duration := time.Since(start)
	resp := CallResponse{
		Success: callErr == nil,
		Result:  result,
		Error:   callErr,
		Metadata: CallMetadata{
			Duration:  duration.Milliseconds(),
			Timestamp: start.UTC().Format(time.RFC3339),
			MCPID:     req.MCPID,
			Tool:      req.Tool,
			Scope:     string(req.Scope),
		},
	}

	d.recordOutcome(req, resp, duration)
	return resp
}

func (d *Dispatcher) execute(ctx context.Context, req CallRequest) (interface{}, *CallError) {
	if !req.Scope.Valid() {
		return nil, Validationf("unknown scope %q", req.Scope)
	}
	if req.MCPID == "" || req.Tool == "" {
		return nil, Validationf("mcpId and tool are required")
	}

	entry, err := d.catalog.Get(req.MCPID)
	if err != nil {
		return nil, APIErrorf("registry lookup failed: %v", err)
	}
	if entry == nil {
		return nil, &CallError{Code: CodeNotFound, Message: "unknown mcp id " + req.MCPID}
	}

	if denied := deniedPermission(entry, req.Scope); denied != nil {
		return nil, &CallError{
			Code:    CodePermissionDenied,
			Message: "permission " + string(denied.Type) + " is not available under scope " + string(req.Scope),
		}
	}

	if !entry.Scope.Matches(req.Scope) {
		return nil, Validationf("entry %s is scoped to %s, not %s", entry.ID, entry.Scope, req.Scope)
	}

	if _, ok := entry.Tool(req.Tool); !ok {
		return nil, &CallError{Code: CodeNotFound, Message: "entry " + entry.ID + " has no tool " + req.Tool}
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if entry.IsBuiltin {
		d.handlersMu.RLock()
		fn, ok := d.handlers[entry.ID+"/"+req.Tool]
		d.handlersMu.RUnlock()
		if !ok {
			return nil, APIErrorf("no handler registered for %s/%s", entry.ID, req.Tool)
		}
		return d.invoke(callCtx, fn, ToolCall{
			MCPID:   req.MCPID,
			Tool:    req.Tool,
			Params:  req.Params,
			Context: req.Context,
		})
	}

	if d.connector == nil {
		return nil, APIErrorf("no connector configured for third-party entry %s", entry.ID)
	}
	result, err := d.connector.Invoke(callCtx, entry, req.Tool, req.Params)
	if err != nil {
		return nil, classify(callCtx, err)
	}
	return result, nil
}

// invoke races the handler against the call deadline. Handlers that
// ignore ctx keep running in their goroutine, but the dispatcher moves
// on; subprocess-backed handlers are killed through CommandContext.
func (d *Dispatcher) invoke(ctx context.Context, fn ToolFunc, call ToolCall) (interface{}, *CallError) {
	type outcome struct {
		result interface{}
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: errors.Errorf("tool handler panic: %v", r)}
			}
		}()
		result, err := fn(ctx, call)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, &CallError{Code: CodeTimeout, Message: "tool call deadline exceeded"}
	case out := <-done:
		if out.err != nil {
			return nil, classify(ctx, out.err)
		}
		return out.result, nil
	}
}

// classify maps handler errors onto the error taxonomy.
func classify(ctx context.Context, err error) *CallError {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr
	}
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return &CallError{Code: CodeTimeout, Message: "tool call deadline exceeded"}
	}
	return &CallError{Code: CodeAPIError, Message: err.Error()}
}

func deniedPermission(entry *models.RegistryEntry, scope models.Scope) *models.Permission {
	allowed := scopePermissions[scope]
	for _, perm := range entry.Permissions.Data() {
		if !allowed[perm.Type] {
			p := perm
			return &p
		}
	}
	return nil
}

// recordOutcome writes the call log, updates in-memory stats and
// prometheus counters, and touches the install row. All of it is
// best-effort and never fails the call.
func (d *Dispatcher) recordOutcome(req CallRequest, resp CallResponse, duration time.Duration) {
	status := callStatus(resp)

	metrics.ObserveToolCall(req.MCPID, req.Tool, string(status), duration)

	d.statsMu.Lock()
	s, ok := d.stats[req.MCPID]
	if !ok {
		s = &EntryStats{}
		d.stats[req.MCPID] = s
	}
	s.record(resp.Success, duration)
	d.statsMu.Unlock()

	log := models.CallLog{
		UserID:    req.Context.UserID,
		MCPID:     req.MCPID,
		ToolName:  req.Tool,
		Scope:     req.Scope,
		Status:    status,
		LatencyMS: duration.Milliseconds(),
	}
	if raw, err := json.Marshal(req.Params); err == nil {
		log.Params = raw
	}
	if resp.Success {
		if raw, err := json.Marshal(resp.Result); err == nil {
			log.Result = raw
		}
	} else {
		log.ErrorMessage = resp.Error.Message
	}
	if err := d.db.Create(&log).Error; err != nil {
		logging.LogWarningf(err, "Failed to write call log for %s/%s", req.MCPID, req.Tool)
	}

	if resp.Success {
		d.installs.TouchLastUsed(req.Context.UserID, req.MCPID)
	}
}

func callStatus(resp CallResponse) models.CallStatus {
	if resp.Success {
		return models.CallSuccess
	}
	switch resp.Error.Code {
	case CodeTimeout:
		return models.CallTimeout
	case CodePermissionDenied:
		return models.CallPermissionDenied
	default:
		return models.CallFailed
	}
}
