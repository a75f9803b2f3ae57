package pushsvc

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Yasheenyash33/StacklyHub-main-main/core"
	"github.com/Yasheenyash33/StacklyHub-main-main/core/state"
)

// State of the push-channel connection.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Retrying
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Retrying:
		return "retrying"
	default:
		return "disconnected"
	}
}

// Client maintains a live connection to the backend's event stream and
// dispatches decoded events into the store. On any unclean close it
// schedules a reconnect after a fixed delay, indefinitely, as long as a
// token remains set; cancelling the Run context is the only other stop.
type Client struct {
	url    string
	token  func() string
	apply  func(state.Event)
	delay  time.Duration
	dialer *websocket.Dialer
	logger core.Logger

	mu    sync.RWMutex
	state State
}

var _ state.PushChannel = (*Client)(nil)

func New(wsURL string, token func() string, apply func(state.Event), logger core.Logger) *Client {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Client{
		url:    wsURL,
		token:  token,
		apply:  apply,
		delay:  core.Conf.ReconnectDelay,
		dialer: websocket.DefaultDialer,
		logger: logger,
	}
}

// Factory adapts New to the store's PushFactory hook.
func Factory(wsURL string, logger core.Logger) state.PushFactory {
	return func(token func() string, apply func(state.Event)) state.PushChannel {
		return New(wsURL, token, apply, logger)
	}
}

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run drives the connection state machine until ctx is cancelled or the
// token is cleared. The token is re-read before every dial so reconnects
// carry a rotated token.
func (c *Client) Run(ctx context.Context) {
	defer c.setState(Disconnected)
	for {
		token := c.token()
		if token == "" {
			return
		}

		c.setState(Connecting)
		conn, err := c.dial(ctx, token)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("push channel connect", err)
			c.setState(Retrying)
			if !c.wait(ctx) {
				return
			}
			continue
		}

		c.setState(Connected)
		c.logger.Info("push channel connected")
		c.read(ctx, conn)

		if ctx.Err() != nil {
			// intentional teardown (logout): no further attempts
			return
		}
		c.setState(Retrying)
		if !c.wait(ctx) {
			return
		}
	}
}

func (c *Client) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	u := c.url + "?token=" + url.QueryEscape(token)
	conn, resp, err := c.dialer.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// read pumps messages into the reducer until the connection drops or ctx
// is cancelled. A payload that fails to decode is logged and skipped; it
// never takes the connection down.
func (c *Client) read(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("push channel closed", err)
			}
			return
		}
		var ev state.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			c.logger.Error("malformed push message", err)
			continue
		}
		c.apply(ev)
	}
}

// wait sleeps the fixed reconnect delay; false means ctx was cancelled.
func (c *Client) wait(ctx context.Context) bool {
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
