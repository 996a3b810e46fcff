package api

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/newthinker/signalbook/internal/api/job"
	"github.com/newthinker/signalbook/internal/api/response"
	"github.com/newthinker/signalbook/internal/metrics"
	"github.com/newthinker/signalbook/internal/storage/archive"
	"github.com/newthinker/signalbook/internal/storage/signal"
)

const archiveJobType = "archive"

// ArchiveHandler starts archive runs in the background and reports on them.
type ArchiveHandler struct {
	archiver *archive.Archiver
	store    signal.Store
	jobs     *job.Store
	metrics  *metrics.Registry
	logger   *zap.Logger
}

// NewArchiveHandler creates an archive handler. reg may be nil.
func NewArchiveHandler(archiver *archive.Archiver, store signal.Store, jobs *job.Store, reg *metrics.Registry, logger *zap.Logger) *ArchiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveHandler{archiver: archiver, store: store, jobs: jobs, metrics: reg, logger: logger}
}

// Start launches an archive run and returns its job.
func (h *ArchiveHandler) Start(w http.ResponseWriter, r *http.Request) {
	// The run outlives the request.
	j := h.jobs.Run(context.Background(), archiveJobType, func(ctx context.Context) (any, error) {
		n, err := h.archiver.ArchiveClosed(ctx, h.store)
		if err != nil {
			h.logger.Error("archive run failed", zap.Error(err))
			return nil, err
		}
		if h.metrics != nil {
			h.metrics.RecordArchived(n)
		}
		return map[string]int{"written": n}, nil
	})

	response.JSON(w, http.StatusAccepted, j)
}

// GetJob returns one job by ID.
func (h *ArchiveHandler) GetJob(w http.ResponseWriter, r *http.Request, id string) {
	j, err := h.jobs.Get(id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}
