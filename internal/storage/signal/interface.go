// internal/storage/signal/interface.go
package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/lifecycle"
)

// Store defines the interface for signal and action log persistence.
type Store interface {
	// Save persists a signal and its initial actions, assigning an ID when empty.
	Save(ctx context.Context, signal core.Signal) (string, error)

	// AppendAction appends one action to a signal's log and returns the
	// signal as it stood right after the append. The appended action, with
	// its assigned ID, is the last entry of the returned log.
	AppendAction(ctx context.Context, signalID string, action core.SignalAction) (*core.Signal, error)

	// GetByID retrieves a signal with its full action log.
	GetByID(ctx context.Context, id string) (*core.Signal, error)

	// List retrieves signals matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]core.Signal, error)

	// Count returns the number of signals matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter defines criteria for listing signals.
type ListFilter struct {
	Symbol    string
	Strategy  string
	Timeframe string
	State     core.SignalState
	Result    core.SignalResult
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// Matches reports whether sig satisfies every criterion of the filter
// except paging.
func (f ListFilter) Matches(sig core.Signal) bool {
	if f.Symbol != "" && sig.Symbol != f.Symbol {
		return false
	}
	if f.Strategy != "" && sig.Strategy != f.Strategy {
		return false
	}
	if f.Timeframe != "" && sig.Timeframe != f.Timeframe {
		return false
	}
	if !f.From.IsZero() && sig.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && sig.CreatedAt.After(f.To) {
		return false
	}
	if f.State != "" && lifecycle.State(sig.Actions) != f.State {
		return false
	}
	if f.Result != "" {
		if r, ok := lifecycle.Result(sig.Actions); !ok || r != f.Result {
			return false
		}
	}
	return true
}

// page applies offset and limit to an already filtered slice.
func page(items []core.Signal, offset, limit int) []core.Signal {
	if offset >= len(items) {
		return []core.Signal{}
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// prepareAction checks an action against the current log and fills in its ID.
// Logs are append-only and chronological, and nothing may follow a close.
func prepareAction(log []core.SignalAction, action core.SignalAction) (core.SignalAction, error) {
	if !action.Type.Valid() {
		return action, core.WrapError(core.ErrInvalidAction,
			fmt.Errorf("unknown action type %q", action.Type))
	}
	if err := checkTimestamp(action); err != nil {
		return action, err
	}
	if n := len(log); n > 0 && action.Timestamp.Before(log[n-1].Timestamp) {
		return action, core.WrapError(core.ErrInvalidAction,
			fmt.Errorf("timestamp %s precedes last action at %s",
				action.Timestamp.Format(time.RFC3339), log[n-1].Timestamp.Format(time.RFC3339)))
	}
	if lifecycle.State(log) == core.StateClosed {
		return action, core.ErrSignalClosed
	}
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	return action, nil
}

func checkTimestamp(a core.SignalAction) error {
	if a.Timestamp.IsZero() {
		return core.WrapError(core.ErrInvalidAction, fmt.Errorf("timestamp required"))
	}
	return nil
}

// prepareSignal validates a new signal and its initial log.
func prepareSignal(sig core.Signal) (core.Signal, error) {
	if !sig.IsValid() {
		return sig, core.WrapError(core.ErrInvalidSignal,
			fmt.Errorf("symbol, timeframe and created_at are required"))
	}
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}

	actions := make([]core.SignalAction, 0, len(sig.Actions))
	for _, a := range sig.Actions {
		if !a.Type.Valid() {
			return sig, core.WrapError(core.ErrInvalidAction,
				fmt.Errorf("unknown action type %q", a.Type))
		}
		if err := checkTimestamp(a); err != nil {
			return sig, err
		}
		if n := len(actions); n > 0 && a.Timestamp.Before(actions[n-1].Timestamp) {
			return sig, core.WrapError(core.ErrInvalidAction, fmt.Errorf("actions out of order"))
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		actions = append(actions, a)
	}
	sig.Actions = actions
	return sig, nil
}
