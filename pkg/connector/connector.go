package connector

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
	"github.com/d4l-data4life/go-mcp-registry/pkg/models"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

const protocolVersion = "2024-11-05"

// Connector maintains one initialized client per registry entry and
// routes tool invocations to it.
type Connector struct {
	mu      sync.Mutex
	clients map[string]*client
	nextID  int64
}

type client struct {
	transport transport

	initOnce sync.Once
	initErr  error
}

// New creates an empty connector. Clients are dialed lazily on first
// invocation and reused afterwards.
func New() *Connector {
	return &Connector{clients: make(map[string]*client)}
}

// Invoke calls a tool on the entry's server. It satisfies the
// dispatcher invoker for all non-builtin entries.
func (c *Connector) Invoke(ctx context.Context, entry *models.RegistryEntry, tool string, params map[string]interface{}) (interface{}, error) {
	spec := entry.Connection.Data()
	if spec.Type == models.ConnectionBuiltin {
		return nil, errors.Errorf("builtin entry %s routed to connector", entry.ID)
	}

	cl, err := c.clientFor(entry.ID, spec)
	if err != nil {
		return nil, dispatcher.APIErrorf("failed to connect to %s: %v", entry.ID, err)
	}
	if err := c.ensureInitialized(ctx, cl); err != nil {
		c.drop(entry.ID)
		return nil, dispatcher.APIErrorf("failed to initialize %s: %v", entry.ID, err)
	}

	raw, err := cl.transport.call(ctx, &rpcRequest{
		JSONRPC: jsonrpcVersion,
		ID:      atomic.AddInt64(&c.nextID, 1),
		Method:  methodCallTool,
		Params:  callToolParams{Name: tool, Arguments: params},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, dispatcher.APIErrorf("%s/%s failed: %v", entry.ID, tool, err)
	}

	return decodeToolResult(entry.ID, tool, raw)
}

// Close shuts down all pooled clients.
func (c *Connector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, cl := range c.clients {
		if err := cl.transport.close(); err != nil {
			logging.LogWarningf(err, "Failed to close connection to %s", id)
		}
		delete(c.clients, id)
	}
}

func (c *Connector) clientFor(entryID string, spec models.ConnectionSpec) (*client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.clients[entryID]; ok {
		return cl, nil
	}
	t, err := newTransport(spec)
	if err != nil {
		return nil, err
	}
	cl := &client{transport: t}
	c.clients[entryID] = cl
	return cl, nil
}

func (c *Connector) drop(entryID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.clients[entryID]; ok {
		cl.transport.close()
		delete(c.clients, entryID)
	}
}

// ensureInitialized performs the initialize handshake exactly once per
// client.
func (c *Connector) ensureInitialized(ctx context.Context, cl *client) error {
	cl.initOnce.Do(func() {
		_, err := cl.transport.call(ctx, &rpcRequest{
			JSONRPC: jsonrpcVersion,
			ID:      atomic.AddInt64(&c.nextID, 1),
			Method:  methodInitialize,
			Params: initializeParams{
				ProtocolVersion: protocolVersion,
				ClientInfo:      clientInfo{Name: "mcp-registry", Version: "1.0"},
			},
		})
		if err != nil {
			cl.initErr = err
			return
		}
		cl.initErr = cl.transport.notify(ctx, &rpcNotification{
			JSONRPC: jsonrpcVersion,
			Method:  methodInitialized,
		})
	})
	return cl.initErr
}

// decodeToolResult unwraps a tools/call result. Text content that
// parses as JSON is returned structured; servers flagging isError get
// surfaced as API errors.
func decodeToolResult(entryID, tool string, raw json.RawMessage) (interface{}, error) {
	var result callToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// not a standard result envelope, pass through as-is
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, dispatcher.APIErrorf("%s/%s returned an unreadable result", entryID, tool)
		}
		return generic, nil
	}

	texts := make([]string, 0, len(result.Content))
	for _, block := range result.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	joined := strings.Join(texts, "\n")

	if result.IsError {
		return nil, dispatcher.APIErrorf("%s/%s failed: %s", entryID, tool, joined)
	}

	var structured interface{}
	if err := json.Unmarshal([]byte(joined), &structured); err == nil {
		return structured, nil
	}
	return joined, nil
}
