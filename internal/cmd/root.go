package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/atikulmunna/pulse/internal/api"
	"github.com/atikulmunna/pulse/internal/config"
	"github.com/atikulmunna/pulse/internal/logging"
	"github.com/atikulmunna/pulse/internal/session"
)

var (
	cfgFile   string
	outputFmt string

	v      = viper.New()
	cfg    config.Config
	logger = zap.NewNop()
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse: operator console for the CIAY assistant platform",
	Long: `Pulse is a terminal console for the CIAY assistant platform.
It follows the live reasoning feed over WebSocket, chats with the assistant
with streamed replies, and manages the analytics records behind the admin
dashboard.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { _ = logger.Sync() },
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./.pulse.yaml or $HOME/.pulse.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "output format: text, json")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("api-url", "", "platform HTTP base URL")
	rootCmd.PersistentFlags().String("ws-url", "", "platform WebSocket base URL")

	cobra.CheckErr(v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level")))
	cobra.CheckErr(v.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url")))
	cobra.CheckErr(v.BindPFlag("ws_url", rootCmd.PersistentFlags().Lookup("ws-url")))
}

func setup(cmd *cobra.Command, _ []string) error {
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format %q", outputFmt)
	}
	if err := config.Init(v, cfgFile); err != nil {
		return err
	}
	c, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = c

	l, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	logger = l.With(zap.String("cmd", cmd.Name()))
	logger.Debug("config loaded", zap.String("file", v.ConfigFileUsed()), zap.String("api_url", cfg.APIURL))
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nPulse shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func openSession() (*session.Session, error) {
	s, err := session.New(session.NewStore(cfg.TokenFile), logger)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return s, nil
}

// newClient returns an API client authenticated by the stored session.
func newClient() (*api.Client, *session.Session, error) {
	s, err := openSession()
	if err != nil {
		return nil, nil, err
	}
	c, err := api.New(cfg.APIURL, s, api.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return c, s, nil
}

func jsonOutput() bool {
	return outputFmt == "json"
}
