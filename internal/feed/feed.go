// Package feed keeps the bounded, arrival-ordered list of pipeline log
// entries shown by the event monitor.
package feed

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atikulmunna/pulse/internal/frame"
	"github.com/atikulmunna/pulse/internal/model"
	"github.com/atikulmunna/pulse/internal/stream"
)

// MaxEntries is the number of most recent entries retained.
const MaxEntries = 50

const (
	systemState    = "SISTEMA"
	connectedMsg   = "Conexión segura establecida con el Núcleo."
	streamingCueOn = 4 * time.Second
)

// Feed consumes stream events and maintains the visible log.
type Feed struct {
	endpoint string
	now      func() time.Time
	logger   *zap.Logger

	mu             sync.RWMutex
	entries        []model.LogEntry
	connected      bool
	streamingUntil time.Time
	listeners      []func(model.LogEntry)
}

// Option configures a Feed.
type Option func(*Feed)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) { f.now = now }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Feed) { f.logger = l }
}

// New creates an empty feed for the given stream endpoint.
func New(endpoint string, opts ...Option) *Feed {
	f := &Feed{
		endpoint: endpoint,
		now:      time.Now,
		logger:   zap.NewNop(),
		entries:  make([]model.LogEntry, 0, MaxEntries),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// OnAppend registers fn to be called with every new entry, after it has
// been stored. Callbacks run on the goroutine that applies events.
func (f *Feed) OnAppend(fn func(model.LogEntry)) {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
}

// Run applies events until ctx is done or events is closed.
func (f *Feed) Run(ctx context.Context, events <-chan stream.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			f.Apply(ev)
		}
	}
}

// Apply handles a single event. Graph frames are not the feed's concern
// and are ignored.
func (f *Feed) Apply(ev stream.Event) {
	switch ev.Kind {
	case stream.KindConnected:
		f.setConnected(true)
		f.append(model.LogEntry{
			Timestamp: f.now(),
			State:     systemState,
			Message:   connectedMsg,
			Status:    model.StatusSuccess,
			Data:      f.connectionData(),
		})
	case stream.KindDisconnected:
		f.setConnected(false)
	case stream.KindFrame:
		lf, ok := ev.Frame.(frame.LogFrame)
		if !ok {
			return
		}
		if isSynthesizing(lf.Message) {
			f.mu.Lock()
			f.streamingUntil = f.now().Add(streamingCueOn)
			f.mu.Unlock()
		}
		f.append(model.LogEntry{
			Timestamp: f.now(),
			State:     lf.Step,
			Message:   lf.Message,
			Status:    lf.Status,
			Data:      lf.Data,
		})
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (f *Feed) Entries() []model.LogEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]model.LogEntry, len(f.entries))
	copy(out, f.entries)
	for i := range out {
		if out[i].Data != nil {
			out[i].Data = append(json.RawMessage(nil), out[i].Data...)
		}
	}
	return out
}

// Len returns the number of retained entries.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// Connected reports the last known connection status.
func (f *Feed) Connected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connected
}

// Streaming reports whether the platform recently announced it is
// synthesising a reply.
func (f *Feed) Streaming() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now().Before(f.streamingUntil)
}

func (f *Feed) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *Feed) append(e model.LogEntry) {
	f.mu.Lock()
	if len(f.entries) == MaxEntries {
		copy(f.entries, f.entries[1:])
		f.entries = f.entries[:MaxEntries-1]
	}
	f.entries = append(f.entries, e)
	listeners := f.listeners
	f.mu.Unlock()

	f.logger.Debug("entry appended", zap.String("state", e.State), zap.String("status", string(e.Status)))
	for _, fn := range listeners {
		fn(e)
	}
}

func (f *Feed) connectionData() json.RawMessage {
	proto := "WS"
	if u, err := url.Parse(f.endpoint); err == nil && u.Scheme == "wss" {
		proto = "WSS"
	}
	data, _ := json.Marshal(map[string]string{
		"protocol": proto,
		"endpoint": f.endpoint,
	})
	return data
}

func isSynthesizing(msg string) bool {
	return strings.Contains(msg, "Sintetizando") || strings.Contains(msg, "Synthesizing")
}
