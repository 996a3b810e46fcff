package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/signalbook/internal/api"
	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/metrics"
	"github.com/newthinker/signalbook/internal/sample"
	"github.com/newthinker/signalbook/internal/storage/archive"
	signalstore "github.com/newthinker/signalbook/internal/storage/signal"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the signalbook server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}

	store, closer, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.Seed.Enabled {
		if err := seedIfEmpty(ctx, store, log); err != nil {
			return err
		}
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		for _, state := range []core.SignalState{core.StateOpen, core.StateClosed} {
			n, err := store.Count(ctx, signalstore.ListFilter{State: state})
			if err != nil {
				return fmt.Errorf("counting signals: %w", err)
			}
			reg.SetSignals(state, n)
		}
	}

	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		backend, err := archive.Open(cfg.Archive.Backend())
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		archiver = archive.NewArchiver(backend, log)
	}

	notifiers, err := newNotifiers(cfg.Notify, log)
	if err != nil {
		return err
	}

	log.Info("starting signalbook server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Bool("archive", archiver != nil),
		zap.Bool("notify", notifiers != nil),
	)

	server, err := api.NewServer(api.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		APIKey:       cfg.Server.APIKey,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		MetricsPath:  cfg.Metrics.Path,
	}, api.Dependencies{
		SignalStore: store,
		Metrics:     reg,
		Archiver:    archiver,
		Notifiers:   notifiers,
	}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down signalbook server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// seedIfEmpty loads the sample signals into an empty store.
func seedIfEmpty(ctx context.Context, store signalstore.Store, log *zap.Logger) error {
	n, err := store.Count(ctx, signalstore.ListFilter{})
	if err != nil {
		return fmt.Errorf("counting signals: %w", err)
	}
	if n > 0 {
		log.Info("store not empty, skipping seed", zap.Int("signals", n))
		return nil
	}

	seeded, err := sample.Seed(ctx, store, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("seeding samples: %w", err)
	}
	log.Info("seeded sample signals", zap.Int("count", seeded))
	return nil
}
