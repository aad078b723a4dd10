// Package server exposes the live feed, graph, and metrics to a local
// browser dashboard.
package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atikulmunna/pulse/internal/feed"
	"github.com/atikulmunna/pulse/internal/graph"
	"github.com/atikulmunna/pulse/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// Server holds the Gin engine and the views it reads from.
type Server struct {
	engine  *gin.Engine
	feed    *feed.Feed
	graph   *graph.View
	metrics *metrics.Aggregator
	clients *broadcaster
	addr    string
	logger  *zap.Logger
}

// New creates the dashboard server and subscribes it to new feed entries.
func New(f *feed.Feed, g *graph.View, m *metrics.Aggregator, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine:  engine,
		feed:    f,
		graph:   g,
		metrics: m,
		clients: newBroadcaster(logger),
		addr:    addr,
		logger:  logger,
	}
	f.OnAppend(s.clients.publish)

	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		stats := s.metrics.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"connected":  s.feed.Connected(),
			"uptime":     stats.Uptime,
			"fps":        stats.FPS,
			"clients":    s.clients.count(),
			"ws_dropped": s.clients.droppedCount(),
		})
	})

	s.engine.GET("/api/feed", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"connected": s.feed.Connected(),
			"streaming": s.feed.Streaming(),
			"entries":   s.feed.Entries(),
		})
	})

	s.engine.GET("/api/graph", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.graph.Snapshot())
	})

	s.engine.GET("/api/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.metrics.Snapshot())
	})

	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	s.engine.GET("/ws", s.handleWebSocket)

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.clients.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
