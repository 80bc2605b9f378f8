package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gridbot.ai/internal/grid"
	"gridbot.ai/internal/protocol"
)

// ErrClosed is returned by requests issued after Close.
var ErrClosed = errors.New("remote world closed")

// ResponseError is a request the remote world answered with ok=false.
type ResponseError struct {
	Op      string
	Code    string
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Code)
}

type DialOptions struct {
	Name string
	// Strict validates every message in both directions against its schema.
	Strict  bool
	Timeout time.Duration
}

// RemoteWorld implements agent.World over a websocket connection to a Server.
// Position, Carried and Energy are answered from the state attached to the
// last response.
type RemoteWorld struct {
	conn    *websocket.Conn
	strict  bool
	timeout time.Duration

	agentID string
	rows    int
	cols    int

	mu     sync.Mutex
	nextID uint64
	self   protocol.SelfState
	sink   grid.EventSink
	closed bool
	broken error
}

func Dial(ctx context.Context, url string, opts DialOptions) (*RemoteWorld, error) {
	if opts.Name == "" {
		opts.Name = "gridbot"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	rw := &RemoteWorld{conn: conn, strict: opts.Strict, timeout: opts.Timeout}

	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, AgentName: opts.Name}
	if err := rw.write(hello); err != nil {
		_ = conn.Close()
		return nil, err
	}
	var welcome protocol.WelcomeMsg
	if err := rw.read(&welcome); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}
	if welcome.Type != protocol.TypeWelcome {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake: unexpected %s", welcome.Type)
	}
	rw.agentID = welcome.AgentID
	rw.rows, rw.cols = welcome.Rows, welcome.Cols
	rw.self = welcome.Self
	return rw, nil
}

func (rw *RemoteWorld) AgentID() string { return rw.agentID }
func (rw *RemoteWorld) Size() (rows, cols int) {
	return rw.rows, rw.cols
}

// SetSink directs the events attached to each response to s.
func (rw *RemoteWorld) SetSink(s grid.EventSink) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.sink = s
}

// Err reports the transport failure or out-of-order response that broke the
// connection, if any. After it every request fails with the same error.
func (rw *RemoteWorld) Err() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.broken
}

func (rw *RemoteWorld) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.closed {
		return nil
	}
	rw.closed = true
	_ = rw.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return rw.conn.Close()
}

func (rw *RemoteWorld) encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if rw.strict {
		if err := protocol.Validate(b); err != nil {
			return nil, fmt.Errorf("outbound message: %w", err)
		}
	}
	return b, nil
}

func (rw *RemoteWorld) send(b []byte) error {
	_ = rw.conn.SetWriteDeadline(time.Now().Add(rw.timeout))
	return rw.conn.WriteMessage(websocket.TextMessage, b)
}

func (rw *RemoteWorld) write(v any) error {
	b, err := rw.encode(v)
	if err != nil {
		return err
	}
	return rw.send(b)
}

func (rw *RemoteWorld) read(v any) error {
	_ = rw.conn.SetReadDeadline(time.Now().Add(rw.timeout))
	_, msg, err := rw.conn.ReadMessage()
	if err != nil {
		return err
	}
	if rw.strict {
		if err := protocol.Validate(msg); err != nil {
			return fmt.Errorf("inbound message: %w", err)
		}
	}
	return json.Unmarshal(msg, v)
}

// do sends one request and waits for its response. Events are forwarded to
// the sink before do returns, whether or not the request succeeded.
func (rw *RemoteWorld) do(req protocol.ReqMsg) (protocol.ResMsg, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.closed {
		return protocol.ResMsg{}, ErrClosed
	}
	if rw.broken != nil {
		return protocol.ResMsg{}, rw.broken
	}
	rw.nextID++
	req.Type = protocol.TypeReq
	req.ProtocolVersion = protocol.Version
	req.ID = rw.nextID

	b, err := rw.encode(req)
	if err != nil {
		return protocol.ResMsg{}, err
	}
	if err := rw.send(b); err != nil {
		rw.broken = fmt.Errorf("connection lost: %w", err)
		return protocol.ResMsg{}, rw.broken
	}
	var res protocol.ResMsg
	if err := rw.read(&res); err != nil {
		rw.broken = fmt.Errorf("connection lost: %w", err)
		return protocol.ResMsg{}, rw.broken
	}
	if res.ID != req.ID {
		rw.broken = fmt.Errorf("connection out of sync: response id %d for request %d", res.ID, req.ID)
		return protocol.ResMsg{}, rw.broken
	}
	rw.self = res.Self
	if rw.sink != nil {
		for _, e := range res.Events {
			rw.sink.RecordEvent(e)
		}
	}
	if !res.OK {
		return res, &ResponseError{Op: req.Op, Code: res.Code, Message: res.Message}
	}
	return res, nil
}

func (rw *RemoteWorld) Sense() (grid.View, error) {
	res, err := rw.do(protocol.ReqMsg{Op: protocol.OpSense})
	return res.View.View(), err
}

func (rw *RemoteWorld) SenseDirection(d grid.Direction, distance int) (grid.View, error) {
	res, err := rw.do(protocol.ReqMsg{Op: protocol.OpSenseDir, Dir: d, Distance: distance})
	return res.View.View(), err
}

func (rw *RemoteWorld) Move(d grid.Direction) error {
	_, err := rw.do(protocol.ReqMsg{Op: protocol.OpMove, Dir: d})
	return err
}

func (rw *RemoteWorld) Destroy(d grid.Direction) error {
	_, err := rw.do(protocol.ReqMsg{Op: protocol.OpDestroy, Dir: d})
	return err
}

func (rw *RemoteWorld) Deposit(d grid.Direction, content grid.Content, n int) error {
	_, err := rw.do(protocol.ReqMsg{Op: protocol.OpDeposit, Dir: d, Content: content.String(), Amount: n})
	return err
}

func (rw *RemoteWorld) Teleport(to grid.Coordinate) error {
	_, err := rw.do(protocol.ReqMsg{Op: protocol.OpTeleport, Target: &to})
	return err
}

// Refresh fetches the body state without acting.
func (rw *RemoteWorld) Refresh() error {
	_, err := rw.do(protocol.ReqMsg{Op: protocol.OpState})
	return err
}

func (rw *RemoteWorld) Position() grid.Coordinate {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.self.Pos
}

func (rw *RemoteWorld) Carried(content grid.Content) int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.self.Carried[content.String()]
}

func (rw *RemoteWorld) Energy() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.self.Energy
}
