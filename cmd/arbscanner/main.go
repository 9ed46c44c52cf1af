// Command arbscanner finds cross-exchange arbitrage between equivalent
// prediction markets. It loads configuration, sets up logging and signal
// handling, and runs the subcommand.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/arbscanner/internal/app"
	"github.com/alanyoungcy/arbscanner/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "arbscanner",
	Short: "Cross-exchange prediction market arbitrage scanner",
	Long: `arbscanner pairs equivalent binary markets across Kalshi and Polymarket,
validates that each pair really settles on the same outcome, and prices the
two-leg arbitrage after fees.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan on a schedule and serve the HTTP and WebSocket API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			return a.Run(ctx)
		})
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single scan cycle and print the result as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			return a.Scan(ctx, cmd.OutOrStdout())
		})
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <fixture.json>",
	Short: "Evaluate one market pair offline from a JSON fixture",
	Long: `Runs feature extraction, validation, scoring, resolution alignment and
pricing over the two markets and quotes in the fixture without calling any
exchange.

Example:
  arbscanner evaluate testdata/btc-pair.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			return a.Evaluate(ctx, args[0], cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to configuration file; empty uses defaults and environment only")
	rootCmd.AddCommand(runCmd, scanCmd, evaluateCmd)
}

// withApp loads and validates the configuration, builds the App and runs
// fn until SIGINT or SIGTERM.
func withApp(parent context.Context, fn func(context.Context, *app.App) error) error {
	path := configPath
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return err
	}
	logger.Debug("configuration loaded", slog.Any("config", config.RedactedConfig(cfg)))

	a := app.New(cfg, logger)
	defer a.Close()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := fn(ctx, a); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("arbscanner shut down gracefully")
			return nil
		}
		logger.Error("arbscanner exited with error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// newLogger writes JSON to stderr so scan and evaluate output on stdout
// stays machine-readable.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
