package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelbrown/playground/internal/config"
	"github.com/michaelbrown/playground/internal/events"
	"github.com/michaelbrown/playground/internal/logging"
	"github.com/michaelbrown/playground/internal/piston"
)

var (
	configFlag  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "playground",
	Short: "Playground - run programs against test cases",
	Long: `Playground runs C++ and Python programs against up to six stdin/expected-output
test cases on a Piston execution service and reports a verdict per case.

It can serve a web API for browser editors, run suites from the command line,
or drive an interactive workspace.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: ./playground.yaml or ~/.playground/playground.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show informational logs")
}

func configOnly() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// setup loads configuration and builds the logger. Interactive commands
// only log warnings unless --verbose is given.
func setup(interactive bool) (*config.Config, *zap.Logger, error) {
	cfg, err := configOnly()
	if err != nil {
		return nil, nil, err
	}
	if interactive && !verboseFlag {
		cfg.Log.Level = "warn"
		cfg.Log.Development = true
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newPistonClient(cfg *config.Config, logger *zap.Logger) *piston.Client {
	opts := append(cfg.PistonOptions(), piston.WithLogger(logger))
	return piston.NewClient(cfg.Piston.BaseURL, opts...)
}

// newPublisher connects to NATS when configured. The returned func drains
// the connection.
func newPublisher(cfg *config.Config, logger *zap.Logger) (events.Publisher, func(), error) {
	if cfg.NATS.URL == "" {
		return events.Nop{}, func() {}, nil
	}
	nc, err := events.Connect(cfg.NATS.URL, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("publishing run progress", zap.String("nats", cfg.NATS.URL), zap.String("subject", cfg.NATS.Subject))
	return events.NewNATSPublisher(nc, cfg.NATS.Subject, logger), func() { nc.Drain() }, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
