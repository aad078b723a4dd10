package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/pulse/internal/feed"
	"github.com/atikulmunna/pulse/internal/frame"
	"github.com/atikulmunna/pulse/internal/graph"
	"github.com/atikulmunna/pulse/internal/metrics"
	"github.com/atikulmunna/pulse/internal/model"
	"github.com/atikulmunna/pulse/internal/stream"
)

type fixture struct {
	srv   *Server
	http  *httptest.Server
	feed  *feed.Feed
	graph *graph.View
	stats *metrics.Aggregator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := feed.New("ws://localhost:8000/ws/logs")
	g := graph.NewView(nil)
	m := metrics.New(nil)
	s := New(f, g, m, "127.0.0.1:0", nil)
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(hs.Close)
	return &fixture{srv: s, http: hs, feed: f, graph: g, stats: m}
}

func (fx *fixture) getJSON(t *testing.T, path string, out any) {
	t.Helper()
	resp, err := http.Get(fx.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func logEvent(step, msg string) stream.Event {
	return stream.Event{Kind: stream.KindFrame, Frame: frame.LogFrame{Step: step, Message: msg, Status: model.StatusInfo}}
}

func TestHealthz(t *testing.T) {
	fx := newFixture(t)
	var body map[string]any
	fx.getJSON(t, "/healthz", &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["connected"])
}

func TestFeedEndpoint(t *testing.T) {
	fx := newFixture(t)
	fx.feed.Apply(stream.Event{Kind: stream.KindConnected})
	fx.feed.Apply(logEvent("RAG", "buscando"))

	var body struct {
		Connected bool             `json:"connected"`
		Streaming bool             `json:"streaming"`
		Entries   []model.LogEntry `json:"entries"`
	}
	fx.getJSON(t, "/api/feed", &body)
	assert.True(t, body.Connected)
	require.Len(t, body.Entries, 2)
	assert.Equal(t, "SISTEMA", body.Entries[0].State)
	assert.Equal(t, "RAG", body.Entries[1].State)
}

func TestGraphEndpoint(t *testing.T) {
	fx := newFixture(t)
	fx.graph.Apply(stream.Event{Kind: stream.KindFrame, Frame: frame.GraphDataFrame{Graph: model.Graph{
		Nodes: []model.GraphNode{{ID: "IA", Val: 2}},
	}}})

	var snap graph.Snapshot
	fx.getJSON(t, "/api/graph", &snap)
	assert.True(t, snap.AIMode)
	require.Len(t, snap.Graph.Nodes, 1)
	assert.Equal(t, "IA", snap.Graph.Nodes[0].ID)
}

func TestStatsAndMetrics(t *testing.T) {
	fx := newFixture(t)
	fx.stats.FrameReceived(frame.TypeLog)

	var stats metrics.Stats
	fx.getJSON(t, "/api/stats", &stats)
	assert.EqualValues(t, 1, stats.TotalFrames)

	resp, err := http.Get(fx.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketRepublishesEntries(t *testing.T) {
	fx := newFixture(t)

	url := "ws" + strings.TrimPrefix(fx.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return fx.srv.clients.count() == 1 }, time.Second, 5*time.Millisecond)

	fx.feed.Apply(logEvent("LLM", "Sintetizando respuesta"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got model.LogEntry
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "LLM", got.State)
	assert.Equal(t, "Sintetizando respuesta", got.Message)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return fx.srv.clients.count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSlowClientDoesNotBlockFeed(t *testing.T) {
	b := newBroadcaster(nil)
	ch := b.add()
	for i := 0; i < clientBuffer+10; i++ {
		b.publish(model.LogEntry{Message: "x"})
	}
	assert.Len(t, ch, clientBuffer)
	assert.EqualValues(t, 10, b.droppedCount())

	b.closeAll()
	assert.Zero(t, b.count())
	b.remove(ch)
}

func TestStartStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	f := feed.New("ws://localhost/ws/logs")
	s := New(f, graph.NewView(nil), metrics.New(nil), addr, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not stop")
	}
}
