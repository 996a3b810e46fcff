package lifecycle

import (
	"github.com/moznion/go-optional"

	"github.com/newthinker/signalbook/internal/core"
)

// Status bundles every view of a signal's action log.
type Status struct {
	State         core.SignalState         `json:"state"`
	Result        core.SignalResult        `json:"result,omitempty"`
	ResultLabel   string                   `json:"result_label,omitempty"`
	LastEvent     string                   `json:"last_event,omitempty"`
	LastReason    string                   `json:"last_reason,omitempty"`
	RemainingSize optional.Option[float64] `json:"remaining_size,omitempty"`
	FinalEvent    optional.Option[int]     `json:"final_event_index,omitempty"`
}

// Evaluate derives the full status of a signal from its action log.
func Evaluate(actions []core.SignalAction) Status {
	st := Status{State: State(actions)}

	if r, ok := Result(actions); ok {
		st.Result = r
		st.ResultLabel = ResultLabel(r)
	}
	if label, ok := LastEventLabel(actions); ok {
		st.LastEvent = label
	}
	if len(actions) > 0 {
		st.LastReason = actions[len(actions)-1].Reason
	}
	if size, ok := RemainingSize(actions); ok {
		st.RemainingSize = optional.Some(size)
	}
	if idx, ok := FinalEventIndex(actions); ok {
		st.FinalEvent = optional.Some(idx)
	}
	return st
}

// RemainingSize returns the newest remaining size recorded in the log.
func RemainingSize(actions []core.SignalAction) (float64, bool) {
	size, _, ok := Latest(actions, func(a core.SignalAction) (float64, bool) {
		return a.RemainingSize.TakeOr(0), a.RemainingSize.IsSome()
	})
	return size, ok
}

// LastLeg returns the newest leg id recorded in the log.
func LastLeg(actions []core.SignalAction) (string, bool) {
	leg, _, ok := Latest(actions, func(a core.SignalAction) (string, bool) {
		return a.LegID, a.LegID != ""
	})
	return leg, ok
}

// FinalEventIndex returns the index of the record that immediately precedes
// the closing marker of a closed signal. That record carries the cause shown
// to users.
func FinalEventIndex(actions []core.SignalAction) (int, bool) {
	if State(actions) != core.StateClosed {
		return 0, false
	}
	i := First(actions, isClosingMarker)
	if i <= 0 {
		return 0, false
	}
	return i - 1, true
}

// ResultLabel is the badge text for a result.
func ResultLabel(r core.SignalResult) string {
	if r == core.ResultRisk {
		return "Risk (EVaR)"
	}
	return string(r)
}

// IsWin reports whether a result counts as a take-profit outcome.
func IsWin(r core.SignalResult) bool {
	switch r {
	case core.ResultTP1, core.ResultTP2, core.ResultTP3:
		return true
	}
	return false
}

// IsLoss reports whether a result counts as a stop or forced risk exit.
func IsLoss(r core.SignalResult) bool {
	return r == core.ResultSL || r == core.ResultRisk
}
