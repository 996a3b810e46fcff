// internal/api/handler/api/signals.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/signalbook/internal/api/response"
	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/lifecycle"
	"github.com/newthinker/signalbook/internal/metrics"
	"github.com/newthinker/signalbook/internal/notifier"
	"github.com/newthinker/signalbook/internal/storage/signal"
)

const (
	defaultLimit = 50
	maxLimit     = 500
	maxBodyBytes = 1 << 20
)

// SignalView is a signal with its evaluated status.
type SignalView struct {
	core.Signal
	Status lifecycle.Status `json:"status"`
}

func viewOf(sig core.Signal) SignalView {
	return SignalView{Signal: sig, Status: lifecycle.Evaluate(sig.Actions)}
}

// SignalsHandler handles signal-related API requests.
type SignalsHandler struct {
	store     signal.Store
	metrics   *metrics.Registry
	notifiers *notifier.Registry
	logger    *zap.Logger
}

// NewSignalsHandler creates a new signals handler. reg may be nil.
func NewSignalsHandler(store signal.Store, reg *metrics.Registry, logger *zap.Logger) *SignalsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalsHandler{store: store, metrics: reg, logger: logger}
}

// WithNotifiers sets the registry that appended actions are dispatched to.
func (h *SignalsHandler) WithNotifiers(n *notifier.Registry) *SignalsHandler {
	h.notifiers = n
	return h
}

// List returns signals matching query parameters.
func (h *SignalsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	signals, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Fail(w, err)
		return
	}

	counted := filter
	counted.Limit, counted.Offset = 0, 0
	count, err := h.store.Count(r.Context(), counted)
	if err != nil {
		response.Fail(w, err)
		return
	}

	views := make([]SignalView, 0, len(signals))
	for _, sig := range signals {
		views = append(views, viewOf(sig))
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"signals": views,
		"total":   count,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

func parseFilter(r *http.Request) (signal.ListFilter, error) {
	q := r.URL.Query()

	filter := signal.ListFilter{
		Symbol:    q.Get("symbol"),
		Strategy:  q.Get("strategy"),
		Timeframe: q.Get("timeframe"),
		Limit:     defaultLimit,
	}

	if state := q.Get("state"); state != "" {
		filter.State = core.SignalState(state)
		if !filter.State.Valid() {
			return filter, core.WrapError(core.ErrBadRequest, fmt.Errorf("unknown state %q", state))
		}
	}
	if result := q.Get("result"); result != "" {
		filter.Result = core.SignalResult(result)
		if !filter.Result.Valid() {
			return filter, core.WrapError(core.ErrBadRequest, fmt.Errorf("unknown result %q", result))
		}
	}

	var err error
	if filter.From, err = parseTime(q.Get("from")); err != nil {
		return filter, err
	}
	if filter.To, err = parseTime(q.Get("to")); err != nil {
		return filter, err
	}

	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return filter, core.WrapError(core.ErrBadRequest, fmt.Errorf("invalid limit %q", limit))
		}
		filter.Limit = min(n, maxLimit)
	}
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return filter, core.WrapError(core.ErrBadRequest, fmt.Errorf("invalid offset %q", offset))
		}
		filter.Offset = n
	}

	return filter, nil
}

// parseTime accepts RFC 3339 or a bare date. Empty means unset.
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, core.WrapError(core.ErrBadRequest, fmt.Errorf("invalid time %q", v))
}

// GetByID returns a single signal by ID.
func (h *SignalsHandler) GetByID(w http.ResponseWriter, r *http.Request, id string) {
	sig, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, viewOf(*sig))
}

// Create stores a new signal, optionally with an initial action log.
func (h *SignalsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var sig core.Signal
	if err := decode(r, &sig); err != nil {
		response.Fail(w, err)
		return
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}

	id, err := h.store.Save(r.Context(), sig)
	if err != nil {
		response.Fail(w, err)
		return
	}

	saved, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}

	h.logger.Info("signal created", zap.String("id", id), zap.String("symbol", saved.Symbol))
	if h.metrics != nil {
		for _, a := range saved.Actions {
			h.metrics.RecordAction(a.Type)
		}
		if result, closed := lifecycle.Result(saved.Actions); closed {
			h.metrics.RecordResult(result)
		}
		h.refreshGauges(r.Context())
	}

	response.JSON(w, http.StatusCreated, viewOf(*saved))
}

// AppendAction appends one action to a signal's log and returns the
// re-evaluated signal.
func (h *SignalsHandler) AppendAction(w http.ResponseWriter, r *http.Request, id string) {
	var action core.SignalAction
	if err := decode(r, &action); err != nil {
		response.Fail(w, err)
		return
	}
	if action.Timestamp.IsZero() {
		action.Timestamp = time.Now().UTC()
	}

	sig, err := h.store.AppendAction(r.Context(), id, action)
	if err != nil {
		response.Fail(w, err)
		return
	}
	appended := sig.Actions[len(sig.Actions)-1]
	view := viewOf(*sig)

	h.logger.Info("action appended",
		zap.String("signal_id", id),
		zap.String("action_id", appended.ID),
		zap.String("type", string(action.Type)),
		zap.String("reason", action.Reason),
		zap.String("state", string(view.Status.State)))

	if h.metrics != nil {
		h.metrics.RecordAction(action.Type)
		if view.Status.State == core.StateClosed {
			h.metrics.RecordResult(view.Status.Result)
		}
		h.refreshGauges(r.Context())
	}

	if h.notifiers != nil {
		h.notifiers.Dispatch(notifier.NewEvent(*sig, appended))
	}

	response.JSON(w, http.StatusCreated, view)
}

// refreshGauges recounts signals per state.
func (h *SignalsHandler) refreshGauges(ctx context.Context) {
	for _, state := range []core.SignalState{core.StateOpen, core.StateClosed} {
		n, err := h.store.Count(ctx, signal.ListFilter{State: state})
		if err != nil {
			h.logger.Warn("counting signals", zap.String("state", string(state)), zap.Error(err))
			continue
		}
		h.metrics.SetSignals(state, n)
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return core.WrapError(core.ErrBadRequest, err)
	}
	return nil
}
