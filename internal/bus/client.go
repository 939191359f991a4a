package bus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// SocketPath returns the default daemon socket path.
func SocketPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".parley", "parley.sock")
}

// Client communicates with the parley daemon over a single Unix socket
// connection. Requests and responses are correlated by id, so command
// round-trips and the subscribed event stream share the connection.
type Client struct {
	conn net.Conn
	wmu  sync.Mutex // serializes frame writes

	mu      sync.Mutex
	pending map[string]chan Response
	closed  bool
	readErr error

	onEvent func(Event)
	done    chan struct{}
}

// Dial connects to the daemon socket and starts the read loop.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}

	c := &Client{
		conn:    conn,
		pending: make(map[string]chan Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// SetEventHandler installs the callback invoked for every event frame. It
// must be set before any subscription is established and is called from the
// read loop, so it must not block.
func (c *Client) SetEventHandler(fn func(Event)) {
	c.mu.Lock()
	c.onEvent = fn
	c.mu.Unlock()
}

// Close shuts down the connection. Pending invocations fail.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

// Done is closed when the read loop terminates, whether by Close or by a
// connection failure.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns the terminal read loop error, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Invoke sends one request and blocks until its response arrives or the
// connection dies. A response with ok=false is returned as an error; the
// daemon's message is passed through opaquely and never retried here.
func (c *Client) Invoke(req Request) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	ch := make(chan Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Response{}, fmt.Errorf("%s: connection closed", req.Op)
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	if err := c.writeFrame(req); err != nil {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
		return Response{}, fmt.Errorf("%s: %w", req.Op, err)
	}

	select {
	case resp := <-ch:
		if !resp.OK {
			return resp, fmt.Errorf("%s: %s", req.Op, resp.Error)
		}
		return resp, nil
	case <-c.done:
		// A response may have landed just before the connection died.
		select {
		case resp := <-ch:
			if !resp.OK {
				return resp, fmt.Errorf("%s: %s", req.Op, resp.Error)
			}
			return resp, nil
		default:
			return Response{}, fmt.Errorf("%s: connection closed", req.Op)
		}
	}
}

func (c *Client) writeFrame(req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

// readLoop demuxes frames: event frames go to the event handler, response
// frames complete their pending invocation. Frames that fail to decode are
// skipped; one bad line must not kill the stream.
func (c *Client) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB frames

	for scanner.Scan() {
		var env envelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			continue
		}

		switch {
		case env.Event != "":
			c.mu.Lock()
			fn := c.onEvent
			c.mu.Unlock()
			if fn != nil {
				fn(Event{Event: env.Event, Payload: env.Payload})
			}
		case env.ID != "":
			c.mu.Lock()
			ch, ok := c.pending[env.ID]
			if ok {
				delete(c.pending, env.ID)
			}
			c.mu.Unlock()
			if ok {
				ch <- Response{ID: env.ID, OK: env.OK, Error: env.Error, MeetingID: env.Meeting}
			}
		}
	}

	err := scanner.Err()
	if err == nil {
		err = fmt.Errorf("connection closed")
	}

	c.mu.Lock()
	c.readErr = err
	c.pending = make(map[string]chan Response)
	c.mu.Unlock()
	close(c.done)
}
