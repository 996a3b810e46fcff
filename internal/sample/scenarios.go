// Package sample provides canned signals and action logs for demos and tests.
package sample

import (
	"fmt"
	"sort"
	"time"

	"github.com/moznion/go-optional"

	"github.com/newthinker/signalbook/internal/core"
)

// Scenario names.
const (
	OpenTP1BreakEven = "open_tp1_be"
	OpenTrailing     = "open_trailing"
	OpenDerisk       = "open_derisk"
	ClosedTP1        = "closed_tp1"
	ClosedTP2        = "closed_tp2"
	ClosedSL         = "closed_sl"
	ClosedRisk       = "closed_risk"
	ClosedFlip       = "closed_flip"
	ClosedInvalidate = "closed_invalidate"
	Default          = "default"
)

type step struct {
	after     time.Duration
	typ       core.ActionType
	reason    string
	change    optional.Option[float64]
	remaining optional.Option[float64]
}

func open(reason string) step {
	return step{typ: core.ActionOpen, reason: reason, remaining: optional.Some(100.0)}
}

func move(after time.Duration, typ core.ActionType, reason string, remaining float64) step {
	return step{after: after, typ: typ, reason: reason, remaining: optional.Some(remaining)}
}

func cut(after time.Duration, reason string, change, remaining float64) step {
	return step{after: after, typ: core.ActionClose, reason: reason, change: optional.Some(change), remaining: optional.Some(remaining)}
}

// closeOut is a full close followed by the closing marker one millisecond later.
func closeOut(after time.Duration, reason string, change float64) []step {
	return []step{
		cut(after, reason, change, 0),
		{after: after + time.Millisecond, typ: core.ActionDoNothing, reason: "All Legs Closed", remaining: optional.Some(0.0)},
	}
}

var scenarios = map[string][]step{
	OpenTP1BreakEven: {
		open("Entry 4h FS=85.5"),
		move(time.Hour, core.ActionModifyTP, "TP1 Hit -> BE", 66),
	},
	OpenTrailing: {
		open("Entry 1d FS=78.2"),
		move(2*time.Hour, core.ActionModifyTP, "TP1 Hit -> BE", 66),
		move(4*time.Hour, core.ActionModifySL, "TP2 Hit -> Trailing", 33),
	},
	OpenDerisk: {
		open("Entry 4h FS=62.0"),
		cut(3*time.Hour, "EVaR Soft Limit - Derisk 50%", -50, 50),
	},
	ClosedTP1: append([]step{
		open("Entry 1h FS=74.5"),
	}, closeOut(2*time.Hour, "TP1 Hit", -100)...),
	ClosedTP2: append([]step{
		open("Entry 4h FS=88.0"),
		move(time.Hour, core.ActionModifyTP, "TP1 Hit -> BE", 66),
	}, closeOut(3*time.Hour, "TP2 Hit", -66)...),
	ClosedSL: append([]step{
		open("Entry 1d FS=55.0"),
	}, closeOut(6*time.Hour, "SL Hit Leg 1", -100)...),
	ClosedRisk: append([]step{
		open("Entry 4h FS=70.0"),
	}, closeOut(5*time.Hour, "EVaR Hard Limit (Heartbeat)", -100)...),
	ClosedFlip: append([]step{
		open("Entry 1h FS=65.0"),
	}, closeOut(4*time.Hour, "Flip Signal", -100)...),
	ClosedInvalidate: append([]step{
		open("Entry 4h FS=58.0"),
	}, closeOut(8*time.Hour, "Invalidate Signal", -100)...),
	Default: {
		open("Entry 4h FS=75.0"),
	},
}

// Names returns every scenario name in sorted order.
func Names() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scenario builds the action log of a named scenario starting at start.
// Action ids are derived from signalID. Unknown names fall back to Default.
func Scenario(name, signalID string, start time.Time) []core.SignalAction {
	steps, ok := scenarios[name]
	if !ok {
		steps = scenarios[Default]
	}

	actions := make([]core.SignalAction, 0, len(steps))
	for i, s := range steps {
		actions = append(actions, core.SignalAction{
			ID:            fmt.Sprintf("%s-%d", signalID, i+1),
			Type:          s.typ,
			Reason:        s.reason,
			Timestamp:     start.Add(s.after),
			SizeChange:    s.change,
			RemainingSize: s.remaining,
		})
	}
	return actions
}
