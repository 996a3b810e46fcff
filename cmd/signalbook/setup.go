package main

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/newthinker/signalbook/internal/config"
	"github.com/newthinker/signalbook/internal/logger"
	"github.com/newthinker/signalbook/internal/notifier"
	"github.com/newthinker/signalbook/internal/notifier/telegram"
	"github.com/newthinker/signalbook/internal/notifier/webhook"
	"github.com/newthinker/signalbook/internal/storage/signal"
)

// loadConfig reads --config, or falls back to defaults, and validates.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newLogger honours --debug over the configured level.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if debug {
		return logger.New(true, "debug")
	}
	return logger.New(cfg.Log.Development, cfg.Log.Level)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the configured signal store. The closer releases any
// underlying database handle.
func openStore(cfg config.StorageConfig) (signal.Store, io.Closer, error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := signal.NewGormStore(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, store, nil
	default:
		return signal.NewMemoryStore(cfg.MaxSignals), nopCloser{}, nil
	}
}

// newNotifiers registers every enabled notification channel. It returns nil
// when no channel is enabled.
func newNotifiers(cfg config.NotifyConfig, log *zap.Logger) (*notifier.Registry, error) {
	reg := notifier.NewRegistry(cfg.ClosedOnly, log)

	for name, ch := range cfg.Channels {
		if !ch.Enabled {
			continue
		}

		var n notifier.Notifier
		switch name {
		case "telegram":
			n = telegram.New("", "")
		case "webhook":
			n = webhook.New("", nil)
		default:
			return nil, fmt.Errorf("unknown notifier %q", name)
		}

		if err := n.Init(ch.Notifier(name)); err != nil {
			return nil, fmt.Errorf("initializing %s notifier: %w", name, err)
		}
		if err := reg.Register(n); err != nil {
			return nil, err
		}
		log.Info("notifier enabled", zap.String("notifier", name))
	}

	if len(reg.Names()) == 0 {
		return nil, nil
	}
	return reg, nil
}
