package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atikulmunna/pulse/internal/server"
	"github.com/atikulmunna/pulse/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local dashboard",
	Long: `Follow the live feed in the background and expose it, together with the
knowledge graph and feed metrics, on a local HTTP server.

Endpoints:
  /healthz     liveness and connection status
  /api/feed    retained feed entries
  /api/graph   knowledge-graph snapshot
  /api/stats   feed statistics
  /metrics     Prometheus metrics
  /ws          new feed entries as they arrive`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "dashboard listen address (default :7070)")
	cobra.CheckErr(v.BindPFlag("listen", serveCmd.Flags().Lookup("listen")))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	p := newPipeline()

	client, sess, err := newClient()
	if err != nil {
		return err
	}
	// Follow logins and logouts made by other pulse invocations.
	if w, err := session.NewWatcher(sess); err != nil {
		logger.Warn("token watcher unavailable", zap.Error(err))
	} else {
		go w.Run(ctx)
	}

	// Seed the graph from HTTP; pushed snapshots replace it later.
	go func() {
		if err := p.graph.Load(ctx, client); err != nil {
			logger.Warn("initial graph load failed", zap.Error(err))
		}
	}()

	srv := server.New(p.feed, p.graph, p.metrics, cfg.Listen, logger.Named("server"))
	fmt.Fprintf(os.Stderr, "Pulse dashboard on %s, following %s\n", cfg.Listen, cfg.FeedURL())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()
	stopped := make(chan struct{})
	go func() {
		p.run(ctx)
		close(stopped)
	}()

	select {
	case err = <-errCh:
		cancel()
	case <-ctx.Done():
		err = <-errCh
	}
	<-stopped
	return err
}
