// Package graph holds the knowledge-graph view state: a topology fetched
// over HTTP, replaced by pushed snapshots and re-weighted by heat events.
package graph

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/atikulmunna/pulse/internal/frame"
	"github.com/atikulmunna/pulse/internal/model"
	"github.com/atikulmunna/pulse/internal/stream"
)

// Fetcher loads the current topology.
type Fetcher interface {
	Graph(ctx context.Context) (model.Graph, error)
}

// Snapshot is a point-in-time copy of the view.
type Snapshot struct {
	Graph  model.Graph `json:"graph"`
	AIMode bool        `json:"ai_mode"` // last replacement came from a pushed snapshot
}

// View is private to its owner; other components only reach it through
// the stream events it consumes.
type View struct {
	logger *zap.Logger

	mu     sync.RWMutex
	graph  model.Graph
	index  map[string]int
	aiMode bool
	gen    uint64
}

// NewView creates an empty view.
func NewView(logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{logger: logger, index: map[string]int{}}
}

// Load fetches the topology and replaces the view with it. If a pushed
// snapshot or a newer Load replaced the state meanwhile, the result is
// discarded.
func (v *View) Load(ctx context.Context, f Fetcher) error {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	g, err := f.Graph(ctx)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gen != gen {
		v.logger.Debug("discarding superseded graph load")
		return nil
	}
	v.replaceLocked(g, false)
	return nil
}

// Run applies events until ctx is done or events is closed.
func (v *View) Run(ctx context.Context, events <-chan stream.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			v.Apply(ev)
		}
	}
}

// Apply handles one event. Only graph frames change the view.
func (v *View) Apply(ev stream.Event) {
	if ev.Kind != stream.KindFrame {
		return
	}

	switch f := ev.Frame.(type) {
	case frame.GraphDataFrame:
		v.mu.Lock()
		v.gen++
		v.replaceLocked(f.Graph, true)
		v.mu.Unlock()
	case frame.GraphHeatFrame:
		v.mu.Lock()
		i, ok := v.index[f.NodeID]
		if ok {
			v.graph.Nodes[i].Val = f.Val
		}
		v.mu.Unlock()
		if !ok {
			v.logger.Debug("heat for unknown node", zap.String("node", f.NodeID))
		}
	}
}

// Snapshot returns a deep copy of the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Snapshot{Graph: v.graph.Clone(), AIMode: v.aiMode}
}

func (v *View) replaceLocked(g model.Graph, ai bool) {
	v.graph = g.Clone()
	v.aiMode = ai
	v.index = make(map[string]int, len(g.Nodes))
	for i, n := range v.graph.Nodes {
		v.index[n.ID] = i
	}
}
