package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/storage/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Copy closed signals into the configured archive",
	RunE:  runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Archive.Enabled {
		return fmt.Errorf("archive is disabled in config")
	}
	if cfg.Storage.Driver == "memory" {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("archive command needs a durable store, storage driver is memory"))
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	store, closer, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer closer.Close()

	backend, err := archive.Open(cfg.Archive.Backend())
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}

	n, err := archive.NewArchiver(backend, log).ArchiveClosed(cmd.Context(), store)
	if err != nil {
		return err
	}

	log.Info("archive complete", zap.Int("written", n), zap.String("type", cfg.Archive.Type))
	fmt.Fprintf(cmd.OutOrStdout(), "archived %d signal(s)\n", n)
	return nil
}
