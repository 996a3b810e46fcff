package api

import (
	"net/http"

	"github.com/newthinker/signalbook/internal/api/response"
	"github.com/newthinker/signalbook/internal/stats"
	"github.com/newthinker/signalbook/internal/storage/signal"
)

// StatsHandler serves the strategy track record.
type StatsHandler struct {
	store signal.Store
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(store signal.Store) *StatsHandler {
	return &StatsHandler{store: store}
}

// Get summarizes every stored signal, optionally narrowed by symbol,
// strategy and timeframe.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	signals, err := h.store.List(r.Context(), signal.ListFilter{
		Symbol:    q.Get("symbol"),
		Strategy:  q.Get("strategy"),
		Timeframe: q.Get("timeframe"),
	})
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, stats.Summarize(signals))
}
