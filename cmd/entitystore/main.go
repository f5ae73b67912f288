// Command entitystore runs and inspects the asynchronous entity persistence
// service against a configured blob store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"entitystore/internal/blob"
	"entitystore/internal/config"
	"entitystore/internal/logging"
	"entitystore/internal/metrics"
	"entitystore/internal/persist"
)

var exitFunc = os.Exit

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitFunc(1)
	}
}

// app carries state shared by every subcommand once the root pre-run has
// loaded configuration and built the logger.
type app struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "entitystore",
		Short:         "Asynchronous entity persistence service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `entitystore accepts persistence requests and applies them in order on a
single worker against a file system, S3, sqlite or PostgreSQL blob store.

Configuration is read from an optional YAML file (--config) and from
ENTITYSTORE_* environment variables, which take precedence.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(a),
		newScanCmd(a),
		newReadCmd(a),
		newWriteCmd(a),
	)
	return root
}

// startService opens the configured store and starts a service on it. The
// returned shutdown stops the service and releases the store.
func (a *app) startService(ctx context.Context, m *metrics.Metrics) (*persist.Service, func() error, error) {
	store, err := blob.Open(ctx, a.cfg.BlobConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", a.cfg.Store.Driver, err)
	}
	opts, err := a.cfg.ServiceOptions()
	if err != nil {
		_ = blob.Close(store)
		return nil, nil, err
	}
	opts = append(opts, persist.WithLogger(logging.Adapt(a.logger)), persist.WithMetrics(m))
	svc := persist.New(store, opts...)
	if err := svc.Start(ctx); err != nil {
		_ = blob.Close(store)
		return nil, nil, err
	}
	shutdown := func() error {
		stopErr := svc.Stop(a.cfg.Worker.StopTimeout)
		if err := blob.Close(store); err != nil && stopErr == nil {
			return err
		}
		return stopErr
	}
	return svc, shutdown, nil
}
