package connector

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/pkg/errors"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// stdioTransport speaks newline-delimited JSON-RPC with a child
// process. Responses arrive on a background read loop and are routed
// to the waiting caller by request id.
type stdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	reader *bufio.Reader
	writer *bufio.Writer

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[int64]chan *rpcResponse

	closeOnce sync.Once
	done      chan struct{}
}

func newStdioTransport(command string, args []string, env map[string]string) (*stdioTransport, error) {
	if command == "" {
		return nil, errors.New("stdio connection requires a command")
	}

	cmd := exec.Command(command, args...)
	cmd.Env = os.Environ()
	for key, value := range env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, errors.Wrap(err, "failed to create stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, errors.Wrap(err, "failed to create stderr pipe")
	}

	t := &stdioTransport{
		cmd:     cmd,
		stdin:   stdin,
		reader:  bufio.NewReader(stdout),
		writer:  bufio.NewWriter(stdin),
		pending: make(map[int64]chan *rpcResponse),
		done:    make(chan struct{}),
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", command)
	}

	go t.readLoop()
	go t.stderrLoop(stderr)

	logging.LogDebugf("Started stdio tool server: %s %v", command, args)
	return t, nil
}

func (t *stdioTransport) call(ctx context.Context, req *rpcRequest) (json.RawMessage, error) {
	responseChan := make(chan *rpcResponse, 1)
	t.pendingMu.Lock()
	t.pending[req.ID] = responseChan
	t.pendingMu.Unlock()
	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, req.ID)
		t.pendingMu.Unlock()
	}()

	if err := t.writeMessage(req); err != nil {
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

func (t *stdioTransport) notify(ctx context.Context, note *rpcNotification) error {
	return t.writeMessage(note)
}

func (t *stdioTransport) close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.stdin.Close()
		if t.cmd.Process != nil {
			t.cmd.Process.Kill()
		}
		t.cmd.Wait()
	})
	return nil
}

func (t *stdioTransport) writeMessage(message interface{}) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	data, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}
	if _, err := t.writer.Write(data); err != nil {
		return err
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return err
	}
	return t.writer.Flush()
}

func (t *stdioTransport) readLoop() {
	for {
		line, err := t.reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				logging.LogErrorf(err, "Error reading from tool server")
			}
			t.close()
			return
		}

		var response rpcResponse
		if err := json.Unmarshal(line, &response); err != nil || response.ID == nil {
			// notifications and malformed lines are dropped
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

func (t *stdioTransport) stderrLoop(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		logging.LogDebugf("tool server stderr: %s", scanner.Text())
	}
}
