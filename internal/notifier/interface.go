// Package notifier pushes signal lifecycle events to external channels.
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/lifecycle"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Kind says what happened to a signal.
type Kind string

const (
	KindAction Kind = "action" // an action was appended and the signal is still open
	KindClosed Kind = "closed" // the appended action closed the signal
)

// Event is one lifecycle change of a signal.
type Event struct {
	Kind      Kind              `json:"kind"`
	SignalID  string            `json:"signal_id"`
	Symbol    string            `json:"symbol"`
	Timeframe string            `json:"timeframe"`
	Strategy  string            `json:"strategy,omitempty"`
	Action    core.SignalAction `json:"action"`
	Status    lifecycle.Status  `json:"status"`
	At        time.Time         `json:"at"`
}

// NewEvent derives the event for an action just appended to sig.
func NewEvent(sig core.Signal, action core.SignalAction) Event {
	status := lifecycle.Evaluate(sig.Actions)
	kind := KindAction
	if status.State == core.StateClosed {
		kind = KindClosed
	}
	return Event{
		Kind:      kind,
		SignalID:  sig.ID,
		Symbol:    sig.Symbol,
		Timeframe: sig.Timeframe,
		Strategy:  sig.Strategy,
		Action:    action,
		Status:    status,
		At:        action.Timestamp,
	}
}

// Summary is a one-line human rendering of the event.
func (e Event) Summary() string {
	if e.Kind == KindClosed {
		return fmt.Sprintf("%s %s closed: %s", e.Symbol, e.Timeframe, e.Status.ResultLabel)
	}
	return fmt.Sprintf("%s %s: %s", e.Symbol, e.Timeframe, e.Status.LastEvent)
}

// Notifier defines the interface for lifecycle notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Notify delivers a single event
	Notify(ctx context.Context, event Event) error
}
