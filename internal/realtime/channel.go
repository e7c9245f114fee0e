package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/metrics"
)

// State is the connection state of a Channel.
type State string

// Channel states.
const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed-intentional"
	StateRetrying   State = "closed-pending-retry"
	StateExhausted  State = "exhausted"
)

// Defaults applied by New.
const (
	DefaultReconnectInterval = 3 * time.Second
	DefaultReconnectAttempts = 5
)

// ErrClosed is returned by Connect after Close.
var ErrClosed = errors.New("realtime channel closed")

// Options configures a Channel.
type Options struct {
	// URL is the full websocket URL, usually built with BuildURL.
	URL string
	// Reconnect enables reconnection after unexpected closes.
	Reconnect bool
	// ReconnectInterval is the fixed delay before each reconnect.
	ReconnectInterval time.Duration
	// ReconnectAttempts bounds consecutive reconnects. The counter resets on
	// every successful open.
	ReconnectAttempts int
	Dialer            Dialer
	Logger            *zap.Logger

	OnOpen    func()
	OnMessage func([]byte)
	OnError   func(error)
	// OnClose runs after every close with the state the channel moved to:
	// StateRetrying, StateExhausted or StateClosed for an intentional Close.
	OnClose func(State)
}

type stopper interface {
	Stop() bool
}

// Channel is a reconnecting push connection.
type Channel struct {
	opts   Options
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	conn     Conn
	gen      uint64
	attempts int
	timer    stopper

	closeOnce sync.Once

	afterFunc func(time.Duration, func()) stopper
}

// New constructs an idle Channel.
func New(opts Options) (*Channel, error) {
	if opts.URL == "" {
		return nil, errors.New("realtime url is required")
	}
	if opts.Dialer == nil {
		return nil, errors.New("realtime dialer is required")
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = DefaultReconnectInterval
	}
	if opts.ReconnectAttempts < 0 {
		opts.ReconnectAttempts = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		opts:   opts,
		logger: logger.Named("realtime").With(zap.String("url", opts.URL)),
		ctx:    ctx,
		cancel: cancel,
		state:  StateIdle,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}, nil
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the channel is open.
func (c *Channel) Connected() bool {
	return c.State() == StateOpen
}

// Attempts returns the number of reconnects scheduled since the last open.
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Connect dials the backend. A failed dial counts as a close and schedules a
// reconnect when attempts remain. Calling Connect while connecting or open is
// a no-op.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return ErrClosed
	case StateConnecting, StateOpen:
		c.mu.Unlock()
		return nil
	case StateRetrying:
		c.stopTimerLocked()
	}
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()
	return c.dial(ctx)
}

// Send marshals v and writes it as one text frame. While disconnected the
// message is dropped with a warning and nil is returned.
func (c *Channel) Send(v any) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open || conn == nil {
		c.logger.Warn("dropping outbound message while disconnected")
		metrics.ObserveFrame("out", "dropped")
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode outbound message: %w", err)
	}
	if err := conn.Write(data); err != nil {
		metrics.ObserveFrame("out", "error")
		c.logger.Warn("failed to send message", zap.Error(err))
		return fmt.Errorf("send: %w", err)
	}
	metrics.ObserveFrame("out", "sent")
	return nil
}

// Close cancels any pending reconnect and closes the live connection. It is
// safe to call more than once.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.stopTimerLocked()
		conn := c.conn
		c.conn = nil
		c.setStateLocked(StateClosed)
		c.mu.Unlock()

		c.cancel()
		if conn != nil {
			err = conn.Close()
		}
		c.fireClose(StateClosed)
	})
	return err
}

func (c *Channel) dial(ctx context.Context) error {
	conn, err := c.opts.Dialer.Dial(ctx, c.opts.URL)

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return ErrClosed
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("websocket connect failed", zap.Error(err))
		c.fireError(err)
		c.handleClose()
		return fmt.Errorf("connect %s: %w", c.opts.URL, err)
	}
	c.conn = conn
	c.gen++
	gen := c.gen
	c.attempts = 0
	c.setStateLocked(StateOpen)
	c.mu.Unlock()

	c.logger.Info("websocket connected")
	if c.opts.OnOpen != nil {
		c.opts.OnOpen()
	}
	go c.readLoop(conn, gen)
	return nil
}

func (c *Channel) readLoop(conn Conn, gen uint64) {
	for {
		data, err := conn.Read()
		if err != nil {
			if !c.release(gen) {
				return
			}
			if !cleanClose(err) {
				c.fireError(err)
			}
			c.logger.Info("websocket closed", zap.Error(err))
			_ = conn.Close()
			c.handleClose()
			return
		}
		if !json.Valid(data) {
			metrics.ObserveFrame("in", "malformed")
			c.logger.Warn("dropping malformed message", zap.Int("bytes", len(data)))
			continue
		}
		metrics.ObserveFrame("in", "received")
		if c.opts.OnMessage != nil {
			c.opts.OnMessage(data)
		}
	}
}

// release detaches the connection of generation gen. It reports false when
// the connection was already replaced or the channel was closed.
func (c *Channel) release(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state != StateOpen {
		return false
	}
	c.conn = nil
	return true
}

func (c *Channel) handleClose() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	if !c.opts.Reconnect || c.attempts >= c.opts.ReconnectAttempts {
		c.setStateLocked(StateExhausted)
		if c.opts.Reconnect {
			c.logger.Warn("giving up on reconnect", zap.Int("attempts", c.attempts))
		}
		c.mu.Unlock()
		c.fireClose(StateExhausted)
		return
	}
	c.attempts++
	c.setStateLocked(StateRetrying)
	metrics.ObserveReconnect()
	c.logger.Info("scheduling reconnect",
		zap.Int("attempt", c.attempts),
		zap.Int("max_attempts", c.opts.ReconnectAttempts),
		zap.Duration("interval", c.opts.ReconnectInterval),
	)
	c.timer = c.afterFunc(c.opts.ReconnectInterval, c.reconnect)
	c.mu.Unlock()
	c.fireClose(StateRetrying)
}

func (c *Channel) reconnect() {
	c.mu.Lock()
	if c.state != StateRetrying {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()
	_ = c.dial(c.ctx)
}

func (c *Channel) fireError(err error) {
	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
}

func (c *Channel) fireClose(s State) {
	if c.opts.OnClose != nil {
		c.opts.OnClose(s)
	}
}

func (c *Channel) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Channel) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.logger.Debug("state change", zap.String("from", string(c.state)), zap.String("to", string(s)))
	c.state = s
	metrics.ObserveRealtimeState(string(s))
}

// BuildURL joins the push root and path. Paths that already start with "ws"
// are returned unchanged.
func BuildURL(pushRoot, path string) string {
	if strings.HasPrefix(path, "ws") {
		return path
	}
	return strings.TrimRight(pushRoot, "/") + "/" + strings.TrimLeft(path, "/")
}

// TaskPath is the push path of a single task's event feed.
func TaskPath(taskID string) string {
	return "/task/" + url.PathEscape(taskID)
}
