// Package lifecycle interprets the action log of a trading signal.
//
// Every function here recomputes from the full snapshot it is given. None of
// them keep state between calls, mutate their input, or fail: unknown reason
// strings fall through to well-defined defaults.
package lifecycle

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/newthinker/signalbook/internal/core"
)

const (
	maxLabelLen   = 20
	truncatedLen  = 18
	ellipsis      = "…"
	partialTPTail = " Hit (partial)"
)

var deriskPattern = regexp.MustCompile(`Derisk (\d+%)`)

var causeResults = map[Cause]core.SignalResult{
	CauseTP1:         core.ResultTP1,
	CauseTP2:         core.ResultTP2,
	CauseTP3:         core.ResultTP3,
	CauseStopLoss:    core.ResultSL,
	CauseRiskLimit:   core.ResultRisk,
	CauseFlip:        core.ResultFlip,
	CauseInvalidated: core.ResultInvalidated,
}

// Result returns the signal result this cause closes with.
func (c Cause) Result() (core.SignalResult, bool) {
	r, ok := causeResults[c]
	return r, ok
}

func isClosingMarker(a core.SignalAction) bool {
	return a.Reason == ReasonAllLegsClosed
}

func closes(a core.SignalAction) bool {
	return isClosingMarker(a) || (a.RemainingSize.IsSome() && a.RemainingSize.Unwrap() == 0)
}

// State reports CLOSED when any record is the closing marker or leaves no
// remaining size. Position in the log does not matter.
func State(actions []core.SignalAction) core.SignalState {
	if First(actions, closes) >= 0 {
		return core.StateClosed
	}
	return core.StateOpen
}

// Result classifies why a closed signal closed. ok is false for open signals.
//
// Only records before the first closing marker are considered, newest first;
// the most recent recognised cause wins and anything else yields Closed.
func Result(actions []core.SignalAction) (core.SignalResult, bool) {
	if State(actions) == core.StateOpen {
		return "", false
	}

	window := actions
	if i := First(actions, isClosingMarker); i >= 0 {
		window = actions[:i]
	}

	cause, _, found := Latest(window, func(a core.SignalAction) (Cause, bool) {
		c := ClassifyCause(a.Reason)
		return c, c != CauseNone
	})
	if !found {
		return core.ResultClosed, true
	}
	r, _ := cause.Result()
	return r, true
}

// LastEventLabel returns a short label for the newest record of an open
// signal. ok is false when the signal is closed or has no records.
func LastEventLabel(actions []core.SignalAction) (string, bool) {
	if len(actions) == 0 || State(actions) == core.StateClosed {
		return "", false
	}

	last := actions[len(actions)-1]
	reason := last.Reason

	switch ClassifyEvent(reason) {
	case EventTP1BreakEven:
		return "TP1 • BE", true
	case EventTP2Trailing:
		return "TP2 • Trailing", true
	case EventTrailing:
		return "Trailing moved", true
	case EventDerisk:
		if m := deriskPattern.FindStringSubmatch(reason); m != nil {
			return "Derisk " + m[1], true
		}
		return "Derisk", true
	case EventEntry:
		return reason, true
	case EventPartialTP:
		return strings.Replace(reason, " Hit", partialTPTail, 1), true
	case EventStopLoss:
		if last.RemainingSize.IsSome() && last.RemainingSize.Unwrap() > 0 {
			return "SL Hit (partial)", true
		}
	}

	return truncate(reason), true
}

func truncate(reason string) string {
	if utf8.RuneCountInString(reason) <= maxLabelLen {
		return reason
	}
	return string([]rune(reason)[:truncatedLen]) + ellipsis
}
