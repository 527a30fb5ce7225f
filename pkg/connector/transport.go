package connector

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/d4l-data4life/go-mcp-registry/pkg/models"
)

// transport is one JSON-RPC connection to a tool server. call blocks
// until the matching response arrives or the context is done.
type transport interface {
	call(ctx context.Context, req *rpcRequest) (json.RawMessage, error)
	notify(ctx context.Context, note *rpcNotification) error
	close() error
}

// newTransport builds the transport matching a connection spec.
// Builtin specs never reach the connector; the dispatcher handles
// them in-process.
func newTransport(spec models.ConnectionSpec) (transport, error) {
	switch spec.Type {
	case models.ConnectionStdio:
		return newStdioTransport(spec.Command, spec.Args, spec.Env)
	case models.ConnectionHTTP:
		return newHTTPTransport(spec.URL, spec.Headers)
	case models.ConnectionWebsocket:
		return newWebsocketTransport(spec.URL, spec.Headers)
	default:
		return nil, errors.Errorf("unsupported connection type %q", spec.Type)
	}
}
