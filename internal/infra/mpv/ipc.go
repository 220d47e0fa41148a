package mpv

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrConnClosed is returned for requests on a closed IPC connection.
var ErrConnClosed = errors.New("mpv: ipc connection closed")

// message is one line received from mpv: either a reply or an event.
type message struct {
	RequestID *int64          `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`

	Event     string `json:"event,omitempty"`
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Reason    string `json:"reason,omitempty"`
	FileError string `json:"file_error,omitempty"`
}

type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// conn is a JSON IPC connection. Replies are matched to requests by
// request_id; events are handed to onEvent on the reader goroutine.
type conn struct {
	nc      net.Conn
	timeout time.Duration
	onEvent func(message)

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan message
	closed  bool
	done    chan struct{}
}

func newConn(nc net.Conn, timeout time.Duration, onEvent func(message)) *conn {
	c := &conn{
		nc:      nc,
		timeout: timeout,
		onEvent: onEvent,
		pending: make(map[int64]chan message),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Done is closed when the connection stops reading.
func (c *conn) Done() <-chan struct{} {
	return c.done
}

// Call sends a command and waits for its reply.
func (c *conn) Call(args ...any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnClosed
	}
	c.nextID++
	id := c.nextID
	ch := make(chan message, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	line, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode command")
	}
	line = append(line, '\n')

	c.writeMu.Lock()
	_ = c.nc.SetWriteDeadline(time.Now().Add(c.timeout))
	_, err = c.nc.Write(line)
	c.writeMu.Unlock()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send command %v", args[0])
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case msg := <-ch:
		if msg.Error != "" && msg.Error != "success" {
			return nil, errors.Newf("mpv: command %v failed: %s", args[0], msg.Error)
		}
		return msg.Data, nil
	case <-c.done:
		return nil, ErrConnClosed
	case <-timer.C:
		return nil, errors.Newf("mpv: command %v timed out", args[0])
	}
}

// GetFloat reads a numeric property.
func (c *conn) GetFloat(name string) (float64, error) {
	data, err := c.Call("get_property", name)
	if err != nil {
		return 0, err
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, errors.Wrapf(err, "property %s is not a number", name)
	}
	return v, nil
}

// GetBool reads a boolean property.
func (c *conn) GetBool(name string) (bool, error) {
	data, err := c.Call("get_property", name)
	if err != nil {
		return false, err
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return false, errors.Wrapf(err, "property %s is not a flag", name)
	}
	return v, nil
}

// Close closes the connection and fails pending requests.
func (c *conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.nc.Close()
}

func (c *conn) readLoop() {
	defer close(c.done)

	scanner := bufio.NewScanner(c.nc)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if msg.RequestID != nil && msg.Event == "" {
			c.mu.Lock()
			ch, ok := c.pending[*msg.RequestID]
			c.mu.Unlock()
			if ok {
				ch <- msg
			}
			continue
		}
		if msg.Event != "" && c.onEvent != nil {
			c.onEvent(msg)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		_ = c.nc.Close()
	}
}
