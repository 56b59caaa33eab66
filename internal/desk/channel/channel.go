// Package channel keeps the desk's live-update connection: one websocket
// per session, read by a single goroutine, with every push logged and
// turned into at most one alert.
package channel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/clinica/clinic/internal/desk/alert"
)

// State is where the channel is in its connection lifecycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "idle"
	}
}

// ErrNoToken is returned by Activate when there is nothing to authenticate with.
var ErrNoToken = errors.New("no session token")

// Options configures a Channel. Zero durations take the defaults.
type Options struct {
	// URL is the live endpoint, e.g. ws://localhost:8000/ws.
	URL              string
	HandshakeTimeout time.Duration
	// MaxReconnects bounds redial attempts after a drop. The budget is only
	// restored by a connection that stayed up for StableAfter. Zero
	// disables reconnecting.
	MaxReconnects int
	// Backoff is the first redial delay; it doubles per attempt.
	Backoff time.Duration
	// StableAfter defaults to 30s.
	StableAfter time.Duration
	// OnMessage runs on the reader goroutine after the message is logged.
	OnMessage func(Message)
}

// Channel is the live connection for one session at a time.
type Channel struct {
	opts   Options
	sink   alert.Sink
	logger zerolog.Logger
	dialer *websocket.Dialer
	now    func() time.Time

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	dialing  net.Conn
	gen      uint64
	cancel   context.CancelFunc
	done     chan struct{}
	messages []Message

	wmu sync.Mutex
}

// New returns an idle channel that raises alerts on sink.
func New(opts Options, sink alert.Sink, logger zerolog.Logger) *Channel {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	if opts.StableAfter <= 0 {
		opts.StableAfter = 30 * time.Second
	}
	c := &Channel{
		opts:   opts,
		sink:   sink,
		logger: logger.With().Str("component", "channel").Logger(),
		now:    time.Now,
	}
	c.dialer = &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout, NetDialContext: c.netDial}
	return c
}

// Activate opens the connection for token, replacing any previous one.
// An empty token is a no-op and returns ErrNoToken. A failed first dial
// leaves the channel disconnected; it is retried in the background only
// when reconnects are enabled.
func (c *Channel) Activate(ctx context.Context, token string) error {
	if token == "" {
		return ErrNoToken
	}
	c.Close()

	target, err := c.target(token)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.state = StateConnecting
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	// Close cancels runCtx, which also aborts a handshake still in flight.
	dialCtx, stopDial := context.WithCancel(runCtx)
	stopWatch := context.AfterFunc(ctx, stopDial)
	conn, dialErr := c.dial(dialCtx, target)
	stopWatch()
	stopDial()

	if dialErr != nil && runCtx.Err() != nil {
		close(done)
		return nil
	}
	if dialErr == nil && !c.adopt(gen, conn) {
		conn.Close()
		cancel()
		close(done)
		return nil
	}
	if dialErr != nil {
		c.setState(gen, StateDisconnected)
		if c.opts.MaxReconnects == 0 {
			cancel()
			close(done)
			return dialErr
		}
	}

	go c.supervise(runCtx, gen, target, conn, done)
	return dialErr
}

func (c *Channel) target(token string) (string, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid live channel url %q", c.opts.URL)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// netDial remembers the socket of the handshake in flight so Close can cut
// it; the websocket upgrade itself only honours the handshake deadline.
func (c *Channel) netDial(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		conn.Close()
		return nil, err
	}
	c.dialing = conn
	return conn, nil
}

func (c *Channel) dial(ctx context.Context, target string) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, target, nil)
	c.mu.Lock()
	c.dialing = nil
	c.mu.Unlock()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("connecting live channel: %w", err)
	}
	return conn, nil
}

// adopt installs conn as the active connection unless the activation has
// been torn down meanwhile.
func (c *Channel) adopt(gen uint64, conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.cancel == nil {
		return false
	}
	c.conn = conn
	c.state = StateConnected
	c.logger.Info().Msg("live channel connected")
	return true
}

func (c *Channel) setState(gen uint64, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.state = s
	}
}

func (c *Channel) supervise(ctx context.Context, gen uint64, target string, conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	attempts := 0
	for {
		if conn != nil {
			up := time.Now()
			err := c.read(gen, conn)
			c.drop(gen, conn)
			if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				c.logger.Warn().Err(err).Msg("live channel rejected the session, not reconnecting")
				return
			}
			if time.Since(up) >= c.opts.StableAfter {
				attempts = 0
			}
		}
		if ctx.Err() != nil || attempts >= c.opts.MaxReconnects {
			return
		}
		delay := c.opts.Backoff << attempts
		attempts++
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		c.setState(gen, StateConnecting)
		next, err := c.dial(ctx, target)
		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempts).Msg("live channel reconnect failed")
			c.setState(gen, StateDisconnected)
			conn = nil
			continue
		}
		if !c.adopt(gen, next) {
			next.Close()
			return
		}
		conn = next
	}
}

// read dispatches frames until the connection fails and returns that error.
func (c *Channel) read(gen uint64, conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("live channel read ended")
			}
			return err
		}
		c.dispatch(gen, raw)
	}
}

// drop marks the connection lost. The connection is closed here unless
// Close already took it.
func (c *Channel) drop(gen uint64, conn *websocket.Conn) {
	c.mu.Lock()
	owned := c.gen == gen && c.conn == conn
	if owned {
		c.conn = nil
		c.state = StateDisconnected
	}
	c.mu.Unlock()
	if owned {
		conn.Close()
		c.logger.Info().Msg("live channel disconnected")
	}
}

func (c *Channel) dispatch(gen uint64, raw []byte) {
	msg, err := Decode(raw, c.now())
	if err != nil {
		c.logger.Warn().Err(err).Msg("dropping unreadable live message")
		return
	}

	c.mu.Lock()
	if c.gen != gen || c.cancel == nil {
		c.mu.Unlock()
		return
	}
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	if a, ok := AlertFor(msg); ok {
		c.sink.Show(a)
	} else {
		c.logger.Debug().Str("type", msg.Type).Msg("live message without alert")
	}
	if c.opts.OnMessage != nil {
		c.opts.OnMessage(msg)
	}
}

// Close tears the connection down and waits for the reader to exit. It is
// safe to call repeatedly; only the first call after an activation acts.
func (c *Channel) Close() {
	c.mu.Lock()
	cancel, done, conn, dialing := c.cancel, c.done, c.conn, c.dialing
	if cancel == nil {
		c.mu.Unlock()
		return
	}
	// cancelled under mu so a dial racing with us sees it in netDial
	cancel()
	c.gen++
	c.cancel, c.done, c.conn, c.dialing = nil, nil, nil, nil
	if c.state != StateIdle {
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	if dialing != nil {
		dialing.Close()
	}
	if conn != nil {
		c.wmu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.wmu.Unlock()
		conn.Close()
	}
	<-done
}

// Send writes v as JSON when connected and silently discards it otherwise.
func (c *Channel) Send(v interface{}) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected || conn == nil {
		return
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := conn.WriteJSON(v); err != nil {
		c.logger.Debug().Err(err).Msg("live send failed")
	}
}

// State reports the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether State is StateConnected.
func (c *Channel) Connected() bool {
	return c.State() == StateConnected
}

// Messages returns the log of decoded pushes in arrival order.
func (c *Channel) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// ClearMessages empties the log. Later pushes are still appended.
func (c *Channel) ClearMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}
