package cmd

import (
	"context"

	"github.com/atikulmunna/pulse/internal/feed"
	"github.com/atikulmunna/pulse/internal/graph"
	"github.com/atikulmunna/pulse/internal/hub"
	"github.com/atikulmunna/pulse/internal/metrics"
	"github.com/atikulmunna/pulse/internal/stream"
)

// pipeline is the realtime side of pulse: one WebSocket subscription fanned
// out to the feed, the graph view and any extra subscribers.
type pipeline struct {
	stream  *stream.Client
	hub     *hub.Hub
	feed    *feed.Feed
	graph   *graph.View
	metrics *metrics.Aggregator
}

func newPipeline() *pipeline {
	p := &pipeline{
		feed:  feed.New(cfg.FeedURL(), feed.WithLogger(logger.Named("feed"))),
		graph: graph.NewView(logger.Named("graph")),
	}
	// The hub does not exist yet; resolve its drop counter lazily.
	p.metrics = metrics.New(func() int64 { return p.hub.Dropped() })
	p.stream = stream.New(cfg.FeedURL(), stream.Options{
		ConnectDelay:   cfg.ConnectDelay,
		ReconnectDelay: cfg.ReconnectDelay,
		Recorder:       p.metrics,
		Logger:         logger.Named("stream"),
	})
	p.hub = hub.New(p.stream.Events(), logger.Named("hub"))
	return p
}

// run starts every component and blocks until ctx is done. Subscribers
// must be taken before calling run.
func (p *pipeline) run(ctx context.Context) {
	feedEvents := p.hub.Subscribe()
	graphEvents := p.hub.Subscribe()

	go p.metrics.Start(ctx)
	go p.feed.Run(ctx, feedEvents)
	go p.graph.Run(ctx, graphEvents)
	go p.hub.Start(ctx)
	p.stream.Start(ctx)

	<-ctx.Done()
	_ = p.stream.Close()
}
