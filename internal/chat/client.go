// Package chat sends user messages and renders the assistant's streamed
// reply as it arrives.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/atikulmunna/pulse/internal/api"
)

// ErrBusy is returned when Send is called while a reply is still streaming.
var ErrBusy = errors.New("a reply is still streaming")

const readChunk = 4 << 10

// Poster starts a chat call. *api.Client satisfies it.
type Poster interface {
	Chat(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error)
}

// Client drives one conversation.
type Client struct {
	poster     Poster
	sessionID  string
	transcript *Transcript
	onUpdate   func(Message)
	now        func() time.Time
	logger     *zap.Logger
	busy       atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// OnUpdate registers a callback invoked after every transcript change,
// including each streamed fragment.
func OnUpdate(fn func(Message)) Option {
	return func(c *Client) { c.onUpdate = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a conversation bound to sessionID.
func NewClient(p Poster, sessionID string, opts ...Option) *Client {
	c := &Client{
		poster:    p,
		sessionID: sessionID,
		onUpdate:  func(Message) {},
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.transcript = NewTranscript(c.now())
	return c
}

// Transcript returns the conversation.
func (c *Client) Transcript() *Transcript {
	return c.transcript
}

// Send posts text and streams the reply into the transcript. Blank text is
// ignored. A transport failure adds one error message and is returned; it
// is never retried.
func (c *Client) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)

	c.notify(c.transcript.add(Message{Role: RoleUser, Content: text, Timestamp: c.now()}))

	body, err := c.poster.Chat(ctx, api.ChatRequest{Message: text, SessionID: c.sessionID})
	if err != nil {
		return c.fail(fmt.Errorf("send chat message: %w", err))
	}
	defer body.Close()

	reply := c.transcript.add(Message{Role: RoleAssistant, Timestamp: c.now(), Streaming: true})
	c.notify(reply)

	var dec textDecoder
	buf := make([]byte, readChunk)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if frag := dec.Decode(buf[:n]); frag != "" {
				c.notify(c.transcript.update(reply.ID, func(m *Message) { m.Content += frag }))
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			c.finish(reply.ID, dec.Flush())
			return c.fail(fmt.Errorf("read chat reply: %w", readErr))
		}
	}

	c.finish(reply.ID, dec.Flush())
	return nil
}

func (c *Client) finish(id, tail string) {
	now := c.now()
	c.notify(c.transcript.update(id, func(m *Message) {
		m.Content += tail
		m.Streaming = false
		m.Timestamp = now
	}))
}

func (c *Client) fail(err error) error {
	c.logger.Warn("chat failed", zap.Error(err))
	c.notify(c.transcript.add(Message{
		Role:      RoleAssistant,
		Content:   ErrorText,
		Timestamp: c.now(),
		Failed:    true,
	}))
	return err
}

func (c *Client) notify(m Message) {
	c.onUpdate(m)
}
