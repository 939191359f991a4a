package bus

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"sync"
	"testing"
)

// testDaemon is a scriptable daemon on a Unix socket. Every request is
// recorded and answered ok unless an op is gated or failed. Events can be
// pushed to the client at any point; writes share one mutex so frame order
// on the wire matches call order.
type testDaemon struct {
	t    *testing.T
	path string
	reqs chan Request

	ready chan struct{}
	conn  net.Conn
	wmu   sync.Mutex

	mu   sync.Mutex
	hold map[string]chan struct{}
	fail map[string]string
}

func startDaemon(t *testing.T) *testDaemon {
	t.Helper()

	d := &testDaemon{
		t:     t,
		path:  filepath.Join(t.TempDir(), "parley.sock"),
		reqs:  make(chan Request, 32),
		ready: make(chan struct{}),
		hold:  make(map[string]chan struct{}),
		fail:  make(map[string]string),
	}

	ln, err := net.Listen("unix", d.path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		d.conn = conn
		close(d.ready)

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var req Request
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				continue
			}
			d.reqs <- req

			d.mu.Lock()
			gate := d.hold[req.Op]
			failMsg := d.fail[req.Op]
			d.mu.Unlock()

			go func(req Request, gate chan struct{}, failMsg string) {
				if gate != nil {
					<-gate
				}
				resp := Response{ID: req.ID, OK: true, MeetingID: 7}
				if failMsg != "" {
					resp = Response{ID: req.ID, OK: false, Error: failMsg}
				}
				d.write(resp)
			}(req, gate, failMsg)
		}
	}()

	return d
}

// holdOp delays responses for an op until the returned release func runs.
func (d *testDaemon) holdOp(op string) (release func()) {
	gate := make(chan struct{})
	d.mu.Lock()
	d.hold[op] = gate
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.hold, op)
		d.mu.Unlock()
		close(gate)
	}
}

// failOp makes every response for an op report the given error.
func (d *testDaemon) failOp(op, msg string) {
	d.mu.Lock()
	d.fail[op] = msg
	d.mu.Unlock()
}

func (d *testDaemon) write(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		d.t.Errorf("marshal frame: %v", err)
		return
	}
	d.wmu.Lock()
	defer d.wmu.Unlock()
	d.conn.Write(append(data, '\n'))
}

// emit streams an event frame to the connected client.
func (d *testDaemon) emit(event string, payload any) {
	<-d.ready
	raw, err := json.Marshal(payload)
	if err != nil {
		d.t.Fatalf("marshal payload: %v", err)
	}
	d.write(Event{Event: event, Payload: raw})
}

func TestInvoke(t *testing.T) {
	d := startDaemon(t)

	client, err := Dial(d.path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	resp, err := client.Invoke(Request{Op: OpStartMeeting, SourceLang: "en"})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if resp.MeetingID != 7 {
		t.Errorf("meeting id = %d, want 7", resp.MeetingID)
	}

	req := <-d.reqs
	if req.Op != OpStartMeeting || req.SourceLang != "en" {
		t.Errorf("daemon saw %+v", req)
	}
	if req.ID == "" {
		t.Error("request id should be assigned")
	}
}

func TestInvokeDaemonFailure(t *testing.T) {
	d := startDaemon(t)
	d.failOp(OpUpdateNote, "no such note")

	client, err := Dial(d.path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	_, err = client.Invoke(Request{Op: OpUpdateNote, NoteID: 9})
	if err == nil {
		t.Fatal("expected error from failed op")
	}
}

func TestDialFailure(t *testing.T) {
	_, err := Dial("/nonexistent/path/parley.sock")
	if err == nil {
		t.Error("expected error dialing nonexistent socket")
	}
}

func TestInvokeConcurrent(t *testing.T) {
	d := startDaemon(t)

	client, err := Dial(d.path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Invoke(Request{Op: OpStopMeeting}); err != nil {
				t.Errorf("invoke: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestInvokeAfterClose(t *testing.T) {
	d := startDaemon(t)

	client, err := Dial(d.path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	client.Close()
	<-client.Done()

	if _, err := client.Invoke(Request{Op: OpStopMeeting}); err == nil {
		t.Error("expected error invoking on closed client")
	}
}
