package connector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// httpTransport posts each JSON-RPC message to the server URL. Servers
// may answer either with plain JSON or with a single SSE event whose
// data lines carry the response.
type httpTransport struct {
	url     string
	headers map[string]string
	client  *http.Client

	sessionMu sync.Mutex
	sessionID string
}

func newHTTPTransport(url string, headers map[string]string) (*httpTransport, error) {
	if url == "" {
		return nil, errors.New("http connection requires a url")
	}
	return &httpTransport{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (t *httpTransport) call(ctx context.Context, req *rpcRequest) (json.RawMessage, error) {
	resp, err := t.post(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("tool server returned status %d: %s", resp.StatusCode, string(body))
	}

	// initialize responses carry the session id to echo on later calls
	if req.Method == methodInitialize {
		if sid := resp.Header.Get("mcp-session-id"); sid != "" {
			t.sessionMu.Lock()
			t.sessionID = sid
			t.sessionMu.Unlock()
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read tool server response")
	}

	var response rpcResponse
	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		payload, err := extractSSEData(string(raw))
		if err != nil {
			return nil, err
		}
		raw = []byte(payload)
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, errors.Wrap(err, "failed to decode tool server response")
	}
	if response.Error != nil {
		return nil, errors.Errorf("tool server error %d: %s", response.Error.Code, response.Error.Message)
	}
	return response.Result, nil
}

func (t *httpTransport) notify(ctx context.Context, note *rpcNotification) error {
	resp, err := t.post(ctx, note)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (t *httpTransport) close() error {
	t.client.CloseIdleConnections()
	return nil
}

func (t *httpTransport) post(ctx context.Context, message interface{}) (*http.Response, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	for key, value := range t.headers {
		req.Header.Set(key, value)
	}
	t.sessionMu.Lock()
	if t.sessionID != "" {
		req.Header.Set("mcp-session-id", t.sessionID)
	}
	t.sessionMu.Unlock()

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "tool server request failed")
	}
	return resp, nil
}

// extractSSEData joins the data: lines of the first SSE event.
func extractSSEData(payload string) (string, error) {
	var data strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(payload))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" && data.Len() > 0 {
			break
		}
		if strings.HasPrefix(line, "data:") {
			if data.Len() > 0 {
				data.WriteString("\n")
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if data.Len() == 0 {
		return "", errors.New("no data in event stream response")
	}
	return data.String(), nil
}
