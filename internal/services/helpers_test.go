package services

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/stefan-vatov/nightwatch-deck/internal/models"
)

// fakeConn is a recording transport. Tests that drive the actor directly
// never run the client pumps, so only Close is observed; outbound traffic
// is read straight from the client's send buffer.
type fakeConn struct {
	mu          sync.Mutex
	writes      [][]byte
	closed      bool
	closeStatus websocket.StatusCode
	closeReason string
}

func (f *fakeConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	<-ctx.Done()
	return 0, nil, ctx.Err()
}

func (f *fakeConn) Write(ctx context.Context, typ websocket.MessageType, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return net.ErrClosed
	}
	f.writes = append(f.writes, p)
	return nil
}

// Writes returns every payload written before the connection closed,
// decoded.
func (f *fakeConn) Writes(t *testing.T) []*models.ServerMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*models.ServerMessage, 0, len(f.writes))
	for _, data := range f.writes {
		var msg models.ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		out = append(out, &msg)
	}
	return out
}

func (f *fakeConn) Ping(ctx context.Context) error {
	return nil
}

func (f *fakeConn) Close(code websocket.StatusCode, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeStatus = code
	f.closeReason = reason
	return nil
}

func (f *fakeConn) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) CloseStatus() websocket.StatusCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeStatus
}

func (f *fakeConn) CloseReason() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeReason
}

func newTestActor(t *testing.T) *RoomActor {
	t.Helper()
	metrics := NewMetrics()
	return newRoomActor("DEMO01", NewManager(metrics), metrics)
}

// attach registers a client on the actor without starting pumps.
func attach(t *testing.T, a *RoomActor) (*Client, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	c := newClient(conn, a)
	a.handle(command{kind: cmdAttach, client: c})
	return c, conn
}

func deliver(a *RoomActor, c *Client, raw string) {
	a.handle(command{kind: cmdMessage, client: c, data: []byte(raw)})
}

func join(t *testing.T, a *RoomActor, c *Client, playerID, name string) {
	t.Helper()
	deliver(a, c, `{"type":"join","playerId":"`+playerID+`","name":"`+name+`"}`)
}

// received drains and decodes everything queued on the client's send
// buffer.
func received(t *testing.T, c *Client) []*models.ServerMessage {
	t.Helper()
	var out []*models.ServerMessage
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var msg models.ServerMessage
			require.NoError(t, json.Unmarshal(data, &msg))
			out = append(out, &msg)
		default:
			return out
		}
	}
}

// lastOfType returns the most recent message of the given type, or nil.
func lastOfType(msgs []*models.ServerMessage, msgType string) *models.ServerMessage {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == msgType {
			return msgs[i]
		}
	}
	return nil
}
