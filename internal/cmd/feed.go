package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atikulmunna/pulse/internal/feed"
	"github.com/atikulmunna/pulse/internal/model"
	"github.com/atikulmunna/pulse/internal/output"
	"github.com/atikulmunna/pulse/internal/stream"
)

var (
	stepFilter  string
	inspectData bool
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Follow the live reasoning feed",
	Long: `Connect to the platform's log stream and print each pipeline step as it
happens. The connection is retried every few seconds until interrupted.

Examples:
  pulse feed
  pulse feed --step "{RAG,LLM}*"
  pulse feed --inspect`,
	Args: cobra.NoArgs,
	RunE: runFeed,
}

func init() {
	feedCmd.Flags().StringVarP(&stepFilter, "step", "s", "", "only show steps matching these glob patterns (comma-separated)")
	feedCmd.Flags().BoolVarP(&inspectData, "inspect", "i", false, "print attached payloads below each entry")
	rootCmd.AddCommand(feedCmd)
}

func runFeed(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	filter, err := feed.NewStepFilter(stepFilter)
	if err != nil {
		return err
	}
	renderer, err := output.New(outputFmt, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	p := newPipeline()
	p.feed.OnAppend(func(e model.LogEntry) {
		if !filter.Match(e) {
			return
		}
		if err := renderer.Render(e); err != nil {
			logger.Warn("render failed", zap.Error(err))
		}
		if inspectData && !jsonOutput() && e.HasData() {
			_ = output.Inspect(cmd.OutOrStdout(), e)
		}
	})

	// Connection status goes to stderr so it never mixes with --output json.
	status := p.hub.Subscribe()
	go func() {
		for ev := range status {
			switch ev.Kind {
			case stream.KindConnected:
				fmt.Fprintln(os.Stderr, output.StatusLine(true), cfg.FeedURL())
			case stream.KindDisconnected:
				fmt.Fprintln(os.Stderr, output.StatusLine(false), "reconnecting in", cfg.ReconnectDelay)
			}
		}
	}()

	fmt.Fprintf(os.Stderr, "Pulse following %s\n\n", cfg.FeedURL())
	p.run(ctx)
	return nil
}
