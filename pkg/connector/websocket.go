package connector

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// websocketTransport speaks JSON-RPC over a single websocket
// connection. Like stdio, a background read loop routes responses to
// waiting callers by request id.
type websocketTransport struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[int64]chan *rpcResponse

	closeOnce sync.Once
	done      chan struct{}
}

func newWebsocketTransport(url string, headers map[string]string) (*websocketTransport, error) {
	if url == "" {
		return nil, errors.New("websocket connection requires a url")
	}

	header := http.Header{}
	for key, value := range headers {
		header.Set(key, value)
	}

	dialer := &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(url, header)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", url)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	t := &websocketTransport{
		conn:    conn,
		pending: make(map[int64]chan *rpcResponse),
		done:    make(chan struct{}),
	}
	go t.readLoop()

	logging.LogDebugf("Connected websocket tool server: %s", url)
	return t, nil
}

func (t *websocketTransport) call(ctx context.Context, req *rpcRequest) (json.RawMessage, error) {
	responseChan := make(chan *rpcResponse, 1)
	t.pendingMu.Lock()
	t.pending[req.ID] = responseChan
	t.pendingMu.Unlock()
	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, req.ID)
		t.pendingMu.Unlock()
	}()

	if err := t.writeJSON(req); err != nil {
		return nil, errors.Wrap(err, "failed to write request")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, errors.New("tool server connection closed")
	case response := <-responseChan:
		if response.Error != nil {
			return nil, errors.Errorf("tool server error %d: %s", response.Error.Code, response.Error.Message)
		}
		return response.Result, nil
	}
}

func (t *websocketTransport) notify(ctx context.Context, note *rpcNotification) error {
	return t.writeJSON(note)
}

func (t *websocketTransport) close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.conn.Close()
	})
	return nil
}

func (t *websocketTransport) writeJSON(message interface{}) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(message)
}

func (t *websocketTransport) readLoop() {
	for {
		var response rpcResponse
		if err := t.conn.ReadJSON(&response); err != nil {
			t.close()
			return
		}
		if response.ID == nil {
			continue
		}
		t.pendingMu.Lock()
		ch, ok := t.pending[*response.ID]
		t.pendingMu.Unlock()
		if ok {
			ch <- &response
		}
	}
}
