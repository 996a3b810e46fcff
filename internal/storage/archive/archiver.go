// internal/storage/archive/archiver.go
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/lifecycle"
	"github.com/newthinker/signalbook/internal/storage/signal"
)

// Record is the archived form of a closed signal.
type Record struct {
	Signal     core.Signal      `json:"signal"`
	Status     lifecycle.Status `json:"status"`
	ArchivedAt time.Time        `json:"archived_at"`
}

// Lister is the part of the signal store the archiver reads from.
type Lister interface {
	List(ctx context.Context, filter signal.ListFilter) ([]core.Signal, error)
}

// Archiver copies closed signals into cold storage.
type Archiver struct {
	storage Storage
	logger  *zap.Logger
	now     func() time.Time
}

// NewArchiver creates an archiver writing to storage.
func NewArchiver(storage Storage, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{storage: storage, logger: logger, now: time.Now}
}

// RecordPath returns the object path for a signal: signals/<yyyy>/<mm>/<id>.json,
// keyed by creation month.
func RecordPath(sig core.Signal) string {
	t := sig.CreatedAt.UTC()
	return fmt.Sprintf("signals/%04d/%02d/%s.json", t.Year(), int(t.Month()), sig.ID)
}

// ArchiveClosed writes every closed signal not yet archived and returns how
// many objects were written. Archived records are immutable so existing
// objects are skipped.
func (a *Archiver) ArchiveClosed(ctx context.Context, store Lister) (int, error) {
	signals, err := store.List(ctx, signal.ListFilter{State: core.StateClosed})
	if err != nil {
		return 0, core.WrapError(core.ErrArchiveFailed, err)
	}

	written := 0
	for _, sig := range signals {
		path := RecordPath(sig)
		exists, err := a.storage.Exists(ctx, path)
		if err != nil {
			return written, core.WrapError(core.ErrArchiveFailed, err)
		}
		if exists {
			continue
		}

		data, err := json.Marshal(Record{
			Signal:     sig,
			Status:     lifecycle.Evaluate(sig.Actions),
			ArchivedAt: a.now().UTC(),
		})
		if err != nil {
			return written, core.WrapError(core.ErrArchiveFailed, err)
		}
		if err := a.storage.Write(ctx, path, data); err != nil {
			return written, core.WrapError(core.ErrArchiveFailed, err)
		}
		written++
		a.logger.Debug("archived signal", zap.String("id", sig.ID), zap.String("path", path))
	}

	a.logger.Info("archive run complete",
		zap.Int("closed", len(signals)),
		zap.Int("written", written))
	return written, nil
}

// Load reads an archived record back.
func (a *Archiver) Load(ctx context.Context, path string) (*Record, error) {
	data, err := a.storage.Read(ctx, path)
	if err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}
	return &rec, nil
}
