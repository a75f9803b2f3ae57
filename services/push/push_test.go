package pushsvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yasheenyash33/StacklyHub-main-main/core/state"
)

// wsServer is a minimal event-stream endpoint: it records the token of each
// connection and pushes whatever the test writes to its send channel.
type wsServer struct {
	*httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	tokens []string
	conns  []*websocket.Conn
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	srv := &wsServer{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := srv.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		srv.mu.Lock()
		srv.tokens = append(srv.tokens, r.URL.Query().Get("token"))
		srv.conns = append(srv.conns, conn)
		srv.mu.Unlock()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (srv *wsServer) wsURL() string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (srv *wsServer) connCount() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.conns)
}

func (srv *wsServer) seenTokens() []string {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return append([]string(nil), srv.tokens...)
}

// send writes msg on the most recent connection.
func (srv *wsServer) send(t *testing.T, msg string) {
	t.Helper()
	srv.mu.Lock()
	conn := srv.conns[len(srv.conns)-1]
	srv.mu.Unlock()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
}

// dropLast closes the most recent connection server-side, simulating a
// backend restart.
func (srv *wsServer) dropLast() {
	srv.mu.Lock()
	conn := srv.conns[len(srv.conns)-1]
	srv.mu.Unlock()
	conn.Close()
}

func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestClientDeliversEvents(t *testing.T) {
	srv := newWSServer(t)

	var (
		mu     sync.Mutex
		events []state.Event
	)
	c := New(srv.wsURL(), func() string { return "tok-1" }, func(ev state.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	eventually(t, func() bool { return srv.connCount() == 1 }, "connection")
	assert.Equal(t, []string{"tok-1"}, srv.seenTokens())

	srv.send(t, `{"type":"user_created","data":{"user_id":2,"user":{"id":2,"username":"bob"}}}`)
	// malformed frames are skipped, the stream stays up
	srv.send(t, `{invalid`)
	srv.send(t, `{"type":"session_deleted","data":{"session_id":7}}`)

	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, "event delivery")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, state.EvUserCreated, events[0].Type)
	assert.Equal(t, state.EvSessionDeleted, events[1].Type)
	assert.Equal(t, Connected, c.State())
}

func TestClientReconnectsWithRotatedToken(t *testing.T) {
	srv := newWSServer(t)

	var (
		tokMu sync.Mutex
		tok   = "tok-1"
	)
	c := New(srv.wsURL(), func() string {
		tokMu.Lock()
		defer tokMu.Unlock()
		return tok
	}, func(state.Event) {}, nil)
	c.delay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	eventually(t, func() bool { return srv.connCount() == 1 }, "first connection")

	tokMu.Lock()
	tok = "tok-2"
	tokMu.Unlock()
	srv.dropLast()

	eventually(t, func() bool { return srv.connCount() == 2 }, "reconnect")
	assert.Equal(t, []string{"tok-1", "tok-2"}, srv.seenTokens())
}

func TestClientStops(t *testing.T) {
	t.Run("on context cancel", func(t *testing.T) {
		srv := newWSServer(t)
		c := New(srv.wsURL(), func() string { return "tok-1" }, func(state.Event) {}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			c.Run(ctx)
			close(done)
		}()

		eventually(t, func() bool { return srv.connCount() == 1 }, "connection")
		cancel()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
		assert.Equal(t, Disconnected, c.State())
	})

	t.Run("on empty token", func(t *testing.T) {
		c := New("ws://127.0.0.1:0/ws", func() string { return "" }, func(state.Event) {}, nil)
		done := make(chan struct{})
		go func() {
			c.Run(context.Background())
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not return with an empty token")
		}
	})

	t.Run("on token cleared before reconnect", func(t *testing.T) {
		srv := newWSServer(t)
		var (
			tokMu sync.Mutex
			tok   = "tok-1"
		)
		c := New(srv.wsURL(), func() string {
			tokMu.Lock()
			defer tokMu.Unlock()
			return tok
		}, func(state.Event) {}, nil)
		c.delay = 10 * time.Millisecond

		done := make(chan struct{})
		go func() {
			c.Run(context.Background())
			close(done)
		}()

		eventually(t, func() bool { return srv.connCount() == 1 }, "connection")
		tokMu.Lock()
		tok = ""
		tokMu.Unlock()
		srv.dropLast()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after the token was cleared")
		}
	})
}
