package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	wickdeep "wick_deep"
	"wick_deep/agent"
)

var (
	cfg     *wickdeep.AppConfig
	verbose bool
	logger  *zap.Logger
)

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()
	cfg = wickdeep.LoadAppConfig()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "wick_deep",
		Short:        "Deep research agents with isolated sub-agent contexts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "agent config file (env WICK_CONFIG)")
	root.PersistentFlags().StringVar(&cfg.Host, "host", cfg.Host, "listen host (env HOST)")
	root.PersistentFlags().IntVar(&cfg.Port, "port", cfg.Port, "listen port (env PORT)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCmd(), newRunCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := append(cfg.Options(), wickdeep.WithLogger(logger))
			return wickdeep.New(opts...).Start(ctx)
		},
	}
}

func newRunCmd() *cobra.Command {
	var showFiles, transcript bool
	cmd := &cobra.Command{
		Use:   "run <agent> <task>",
		Short: "Run one task against a configured agent and print the answer",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfgs, err := wickdeep.LoadConfigFile(cfg.ConfigFile)
			if err != nil {
				return err
			}
			b := &wickdeep.Builder{Logger: logger, TavilyAPIKey: cfg.TavilyAPIKey}

			state, t, err := wickdeep.RunTask(ctx, b, cfgs, args[0], strings.Join(args[1:], " "))
			if t != nil {
				logger.Info("run finished",
					zap.String("trace_id", t.TraceID),
					zap.Float64("duration_ms", t.DurationMs),
				)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if transcript {
				fmt.Fprintln(out, agent.Messages(state.Messages).String())
			}
			fmt.Fprintln(out, agent.FinalAnswer(state))
			if showFiles {
				fmt.Fprintln(out, "\nFiles:")
				for _, p := range agent.ListFiles(state) {
					fmt.Fprintf(out, "  %s (%d bytes)\n", p, len(state.Files[p]))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showFiles, "files", true, "list the file store after the answer")
	cmd.Flags().BoolVar(&transcript, "transcript", false, "print the full conversation before the answer")
	return cmd
}
