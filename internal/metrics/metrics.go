// Package metrics aggregates feed statistics and exposes them both as a
// JSON snapshot and as Prometheus series.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const window = 5 * time.Second

// Stats holds a point-in-time snapshot of the feed metrics.
type Stats struct {
	Uptime      string           `json:"uptime"`
	TotalFrames int64            `json:"total_frames"`
	FPS         float64          `json:"fps"`
	TypeCounts  map[string]int64 `json:"type_counts"`
	Discarded   map[string]int64 `json:"discarded"`
	Reconnects  int64            `json:"reconnects"`
	Dropped     int64            `json:"dropped_events"`
}

// Aggregator records transport statistics. It satisfies stream.Recorder.
type Aggregator struct {
	now       func() time.Time
	startTime time.Time
	dropped   func() int64

	mu          sync.RWMutex
	totalFrames int64
	typeCounts  map[string]int64
	discarded   map[string]int64
	reconnects  int64
	recent      []time.Time

	registry      *prometheus.Registry
	framesTotal   *prometheus.CounterVec
	discardTotal  *prometheus.CounterVec
	reconnectsCtr prometheus.Counter
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New creates an Aggregator. droppedFn reports events the hub could not
// deliver; it may be nil.
func New(droppedFn func() int64, opts ...Option) *Aggregator {
	a := &Aggregator{
		now:        time.Now,
		dropped:    droppedFn,
		typeCounts: make(map[string]int64),
		discarded:  make(map[string]int64),
		registry:   prometheus.NewRegistry(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.dropped == nil {
		a.dropped = func() int64 { return 0 }
	}
	a.startTime = a.now()

	a.framesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulse",
		Name:      "frames_total",
		Help:      "Frames received from the event feed, by type.",
	}, []string{"type"})
	a.discardTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulse",
		Name:      "frames_discarded_total",
		Help:      "Frames dropped before dispatch, by reason.",
	}, []string{"reason"})
	a.reconnectsCtr = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pulse",
		Name:      "reconnects_total",
		Help:      "Reconnect attempts scheduled after a lost connection.",
	})
	dropped := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "pulse",
		Name:      "events_dropped_total",
		Help:      "Events not delivered to a slow subscriber.",
	}, func() float64 { return float64(a.dropped()) })
	fps := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "pulse",
		Name:      "frames_per_second",
		Help:      "Frames per second over the last five seconds.",
	}, func() float64 { return a.Snapshot().FPS })

	a.registry.MustRegister(
		a.framesTotal,
		a.discardTotal,
		a.reconnectsCtr,
		dropped,
		fps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return a
}

// FrameReceived counts one decoded frame.
func (a *Aggregator) FrameReceived(typ string) {
	a.framesTotal.WithLabelValues(typ).Inc()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalFrames++
	a.typeCounts[typ]++
	a.recent = append(a.recent, a.now())
}

// FrameDiscarded counts one frame that failed to decode.
func (a *Aggregator) FrameDiscarded(reason string) {
	a.discardTotal.WithLabelValues(reason).Inc()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.discarded[reason]++
}

// Reconnect counts one scheduled reconnect.
func (a *Aggregator) Reconnect() {
	a.reconnectsCtr.Inc()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.reconnects++
}

// Snapshot returns the current metrics.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	now := a.now()
	cutoff := now.Add(-window)
	var n int
	for _, t := range a.recent {
		if t.After(cutoff) {
			n++
		}
	}

	return Stats{
		Uptime:      now.Sub(a.startTime).Truncate(time.Second).String(),
		TotalFrames: a.totalFrames,
		FPS:         float64(n) / window.Seconds(),
		TypeCounts:  copyCounts(a.typeCounts),
		Discarded:   copyCounts(a.discarded),
		Reconnects:  a.reconnects,
		Dropped:     a.dropped(),
	}
}

// Handler serves the Prometheus exposition of the private registry.
func (a *Aggregator) Handler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})
}

// Start prunes the rate window until ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.prune()
		}
	}
}

func (a *Aggregator) prune() {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.now().Add(-window)
	i := 0
	for _, t := range a.recent {
		if t.After(cutoff) {
			a.recent[i] = t
			i++
		}
	}
	a.recent = a.recent[:i]
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
