package dispatcher_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
	"github.com/d4l-data4life/go-mcp-registry/pkg/registry"
)

func newDispatcher(t *testing.T, timeout time.Duration) (*dispatcher.Dispatcher, *gorm.DB) {
	t.Helper()
	db := models.InitializeTestDB(t)
	catalog := registry.NewCatalog(db, time.Minute)
	installs := registry.NewInstallManager(db, catalog)
	return dispatcher.New(db, catalog, installs, timeout), db
}

func checkEnvelope(t *testing.T, resp dispatcher.CallResponse) {
	t.Helper()
	if resp.Success {
		assert.Nil(t, resp.Error, "successful responses carry no error")
	} else {
		require.NotNil(t, resp.Error, "failed responses carry an error")
		assert.Nil(t, resp.Result, "failed responses carry no result")
		assert.NotEmpty(t, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.Message)
	}
	assert.NotEmpty(t, resp.Metadata.Timestamp)
	assert.GreaterOrEqual(t, resp.Metadata.Duration, int64(0))
}

func TestExecuteUnknownEntry(t *testing.T) {
	d, _ := newDispatcher(t, time.Second)

	resp := d.Execute(context.Background(), dispatcher.CallRequest{
		MCPID: "mcp-ghost",
		Tool:  "anything",
		Scope: models.ScopeChat,
	})

	checkEnvelope(t, resp)
	require.False(t, resp.Success)
	assert.Equal(t, dispatcher.CodeNotFound, resp.Error.Code)
}

func TestExecuteUnknownTool(t *testing.T) {
	d, _ := newDispatcher(t, time.Second)

	resp := d.Execute(context.Background(), dispatcher.CallRequest{
		MCPID: registry.BuiltinCalculator,
		Tool:  "differentiate",
		Scope: models.ScopeChat,
	})

	checkEnvelope(t, resp)
	require.False(t, resp.Success)
	assert.Equal(t, dispatcher.CodeNotFound, resp.Error.Code)
}

func TestExecuteInvalidScope(t *testing.T) {
	d, _ := newDispatcher(t, time.Second)

	resp := d.Execute(context.Background(), dispatcher.CallRequest{
		MCPID: registry.BuiltinCalculator,
		Tool:  "evaluate",
		Scope: "global",
	})

	checkEnvelope(t, resp)
	require.False(t, resp.Success)
	assert.Equal(t, dispatcher.CodeValidation, resp.Error.Code)
}

func TestExecuteDeniesCrossScopePermissions(t *testing.T) {
	d, db := newDispatcher(t, time.Second)

	// file system needs the filesystem permission; chat scope cannot
	// satisfy it
	resp := d.Execute(context.Background(), dispatcher.CallRequest{
		MCPID:  registry.BuiltinFileSystem,
		Tool:   "read_file",
		Params: map[string]interface{}{"path": "notes.txt"},
		Scope:  models.ScopeChat,
		Context: dispatcher.CallContext{
			UserID: uuid.New(),
		},
	})

	checkEnvelope(t, resp)
	require.False(t, resp.Success)
	assert.Equal(t, dispatcher.CodePermissionDenied, resp.Error.Code)

	// the denial is audited
	var logs []models.CallLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, models.CallPermissionDenied, logs[0].Status)
}

func TestExecuteSuccessEnvelopeAndLog(t *testing.T) {
	d, db := newDispatcher(t, time.Second)
	d.RegisterTool(registry.BuiltinCalculator, "evaluate", func(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
		return map[string]interface{}{"result": 4.0}, nil
	})

	resp := d.Execute(context.Background(), dispatcher.CallRequest{
		MCPID:  registry.BuiltinCalculator,
		Tool:   "evaluate",
		Params: map[string]interface{}{"expression": "2+2"},
		Scope:  models.ScopeChat,
	})

	checkEnvelope(t, resp)
	require.True(t, resp.Success)
	assert.Equal(t, registry.BuiltinCalculator, resp.Metadata.MCPID)
	assert.Equal(t, "evaluate", resp.Metadata.Tool)
	assert.Equal(t, string(models.ScopeChat), resp.Metadata.Scope)

	var logs []models.CallLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, models.CallSuccess, logs[0].Status)
	assert.Equal(t, "evaluate", logs[0].ToolName)
}

func TestExecuteTimeout(t *testing.T) {
	d, db := newDispatcher(t, 50*time.Millisecond)
	d.RegisterTool(registry.BuiltinCalculator, "evaluate", func(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return "too late", nil
		}
	})

	start := time.Now()
	resp := d.Execute(context.Background(), dispatcher.CallRequest{
		MCPID:  registry.BuiltinCalculator,
		Tool:   "evaluate",
		Params: map[string]interface{}{"expression": "2+2"},
		Scope:  models.ScopeChat,
	})

	checkEnvelope(t, resp)
	require.False(t, resp.Success)
	assert.Equal(t, dispatcher.CodeTimeout, resp.Error.Code)
	assert.Less(t, time.Since(start), time.Second, "dispatcher must not wait for the slow handler")

	var logs []models.CallLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, models.CallTimeout, logs[0].Status)
}

func TestExecuteRecoversHandlerPanic(t *testing.T) {
	d, _ := newDispatcher(t, time.Second)
	d.RegisterTool(registry.BuiltinCalculator, "evaluate", func(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
		panic("boom")
	})

	resp := d.Execute(context.Background(), dispatcher.CallRequest{
		MCPID:  registry.BuiltinCalculator,
		Tool:   "evaluate",
		Params: map[string]interface{}{"expression": "2+2"},
		Scope:  models.ScopeChat,
	})

	checkEnvelope(t, resp)
	require.False(t, resp.Success)
	assert.Equal(t, dispatcher.CodeAPIError, resp.Error.Code)
}

func TestExecuteClassifiesCallErrors(t *testing.T) {
	d, _ := newDispatcher(t, time.Second)
	d.RegisterTool(registry.BuiltinCalculator, "evaluate", func(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
		return nil, dispatcher.Validationf("expression is garbage")
	})

	resp := d.Execute(context.Background(), dispatcher.CallRequest{
		MCPID:  registry.BuiltinCalculator,
		Tool:   "evaluate",
		Params: map[string]interface{}{"expression": "@@"},
		Scope:  models.ScopeChat,
	})

	checkEnvelope(t, resp)
	require.False(t, resp.Success)
	assert.Equal(t, dispatcher.CodeValidation, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "garbage")
}

func TestStatsAccumulate(t *testing.T) {
	d, _ := newDispatcher(t, time.Second)
	d.RegisterTool(registry.BuiltinCalculator, "evaluate", func(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
		return 4.0, nil
	})

	for i := 0; i < 3; i++ {
		d.Execute(context.Background(), dispatcher.CallRequest{
			MCPID:  registry.BuiltinCalculator,
			Tool:   "evaluate",
			Params: map[string]interface{}{"expression": "2+2"},
			Scope:  models.ScopeChat,
		})
	}
	d.Execute(context.Background(), dispatcher.CallRequest{
		MCPID: registry.BuiltinCalculator,
		Tool:  "no-such-tool",
		Scope: models.ScopeChat,
	})

	stats := d.Stats(registry.BuiltinCalculator)
	assert.Equal(t, int64(4), stats.CallCount)
	assert.Equal(t, int64(3), stats.SuccessCount)
	assert.InDelta(t, 0.75, stats.SuccessRate, 0.001)
}
