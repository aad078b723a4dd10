// Package stream keeps a reconnecting subscription to the platform's log
// WebSocket and turns it into a channel of decoded events.
package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atikulmunna/pulse/internal/frame"
)

const (
	DefaultConnectDelay   = 500 * time.Millisecond
	DefaultReconnectDelay = 3 * time.Second

	eventBuffer = 256
)

// State is the position of the client in its connection lifecycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateReconnectScheduled
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateReconnectScheduled:
		return "reconnect-scheduled"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Kind tells consumers what an Event carries.
type Kind int

const (
	KindConnected Kind = iota + 1
	KindDisconnected
	KindFrame
)

// Event is emitted in arrival order on the Events channel.
type Event struct {
	Kind  Kind
	Frame frame.Frame // set for KindFrame
	At    time.Time
}

// Recorder receives transport statistics.
type Recorder interface {
	FrameReceived(typ string)
	FrameDiscarded(reason string)
	Reconnect()
}

type nopRecorder struct{}

func (nopRecorder) FrameReceived(string)  {}
func (nopRecorder) FrameDiscarded(string) {}
func (nopRecorder) Reconnect()            {}

// Options configures a Client. Zero values fall back to production defaults.
type Options struct {
	ConnectDelay   time.Duration
	ReconnectDelay time.Duration
	Dialer         Dialer
	Scheduler      Scheduler
	Recorder       Recorder
	Logger         *zap.Logger
}

// Client owns one WebSocket connection and its reconnect timer.
// Nothing else may write to either.
type Client struct {
	url    string
	opts   Options
	logger *zap.Logger
	events chan Event

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu      sync.Mutex
	state   State
	started bool
	conn    Conn
	timer   Timer
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a Client for the given ws:// or wss:// URL. Call Start to connect.
func New(url string, opts Options) *Client {
	if opts.ConnectDelay <= 0 {
		opts.ConnectDelay = DefaultConnectDelay
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = NewWebSocketDialer(nil)
	}
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Client{
		url:    url,
		opts:   opts,
		logger: opts.Logger.With(zap.String("endpoint", url)),
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Events returns the channel of connection and frame events. It is never
// closed; consumers stop on their own context.
func (c *Client) Events() <-chan Event {
	return c.events
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the socket is currently open.
func (c *Client) Connected() bool {
	return c.State() == StateOpen
}

// Start schedules the first connection attempt after ConnectDelay.
// Cancelling ctx has the same effect as Close.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started || c.state == StateStopped {
		return
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.timer = c.opts.Scheduler.AfterFunc(c.opts.ConnectDelay, c.connect)

	go func() {
		select {
		case <-c.ctx.Done():
			_ = c.Close()
		case <-c.done:
		}
	}()
}

// Close stops the pending reconnect, closes the socket and prevents any
// further connection attempts. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })

	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return nil
	}
	c.state = StateStopped
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.wg.Wait()
	c.logger.Debug("stream closed")
	return err
}

func (c *Client) connect() {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.state = StateConnecting
	ctx := c.ctx
	c.mu.Unlock()

	c.logger.Debug("dialing")
	conn, err := c.opts.Dialer.Dial(ctx, c.url)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStopped {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		c.logger.Warn("dial failed", zap.Error(err), zap.Duration("retry_in", c.opts.ReconnectDelay))
		c.state = StateClosed
		c.scheduleReconnectLocked()
		return
	}

	c.conn = conn
	c.state = StateOpen
	c.logger.Info("connected")
	c.emit(Event{Kind: KindConnected, At: time.Now()})

	c.wg.Add(1)
	go c.readLoop(conn)
}

func (c *Client) readLoop(conn Conn) {
	defer c.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.dropped(conn, err)
			return
		}

		f, err := frame.Decode(data)
		if err != nil {
			reason := "malformed"
			if errors.Is(err, frame.ErrUnknownType) {
				reason = "unknown_type"
			}
			c.opts.Recorder.FrameDiscarded(reason)
			c.logger.Debug("discarding frame", zap.Error(err))
			continue
		}

		c.opts.Recorder.FrameReceived(f.Type())
		if !c.emit(Event{Kind: KindFrame, Frame: f, At: time.Now()}) {
			return
		}
	}
}

func (c *Client) dropped(conn Conn, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStopped || c.conn != conn {
		return
	}
	c.conn = nil
	_ = conn.Close()
	c.state = StateClosed
	c.logger.Info("connection lost", zap.Error(cause), zap.Duration("retry_in", c.opts.ReconnectDelay))
	c.emit(Event{Kind: KindDisconnected, At: time.Now()})
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the single reconnect timer. c.mu must be held.
func (c *Client) scheduleReconnectLocked() {
	if c.timer != nil {
		return
	}
	c.state = StateReconnectScheduled
	c.opts.Recorder.Reconnect()
	c.timer = c.opts.Scheduler.AfterFunc(c.opts.ReconnectDelay, c.connect)
}

// emit delivers ev unless the client is closing. Close closes done before
// taking c.mu, so emitting while holding the lock cannot deadlock.
func (c *Client) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}
