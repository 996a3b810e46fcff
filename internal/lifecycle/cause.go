package lifecycle

import "strings"

// Reason strings with fixed meaning in the action log.
const (
	ReasonAllLegsClosed    = "All Legs Closed"
	ReasonFlipSignal       = "Flip Signal"
	ReasonInvalidateSignal = "Invalidate Signal"
	ReasonTP1BreakEven     = "TP1 Hit -> BE"
	ReasonTP2Trailing      = "TP2 Hit -> Trailing"
	ReasonTrailing         = "Trailing"
)

// Cause is the closing cause a reason string carries, if any.
type Cause int

const (
	CauseNone Cause = iota
	CauseTP1
	CauseTP2
	CauseTP3
	CauseStopLoss
	CauseRiskLimit
	CauseFlip
	CauseInvalidated
)

var causeNames = map[Cause]string{
	CauseNone:        "none",
	CauseTP1:         "tp1",
	CauseTP2:         "tp2",
	CauseTP3:         "tp3",
	CauseStopLoss:    "stop_loss",
	CauseRiskLimit:   "risk_limit",
	CauseFlip:        "flip",
	CauseInvalidated: "invalidated",
}

func (c Cause) String() string {
	if name, ok := causeNames[c]; ok {
		return name
	}
	return "unknown"
}

// ClassifyCause maps a raw reason to its closing cause. The checks run in a
// fixed order and the first hit wins, so a reason mentioning both TP1 and SL
// is a TP1 cause.
func ClassifyCause(reason string) Cause {
	switch {
	case strings.Contains(reason, "TP1 Hit"):
		return CauseTP1
	case strings.Contains(reason, "TP2 Hit"):
		return CauseTP2
	case strings.Contains(reason, "TP3 Hit"):
		return CauseTP3
	case strings.Contains(reason, "SL Hit"):
		return CauseStopLoss
	case strings.Contains(reason, "EVaR Hard Limit"):
		return CauseRiskLimit
	case reason == ReasonFlipSignal:
		return CauseFlip
	case reason == ReasonInvalidateSignal:
		return CauseInvalidated
	}
	return CauseNone
}

// Event is the kind of the most recent event of an open signal, used for
// the short label shown next to it.
type Event int

const (
	EventOther Event = iota
	EventTP1BreakEven
	EventTP2Trailing
	EventTrailing
	EventDerisk
	EventEntry
	EventPartialTP
	EventStopLoss
)

// ClassifyEvent maps a raw reason to an event kind. Exact matches are tried
// before the looser substring rules.
func ClassifyEvent(reason string) Event {
	switch {
	case reason == ReasonTP1BreakEven:
		return EventTP1BreakEven
	case reason == ReasonTP2Trailing:
		return EventTP2Trailing
	case reason == ReasonTrailing:
		return EventTrailing
	case strings.Contains(reason, "EVaR Soft Limit - Derisk"):
		return EventDerisk
	case strings.HasPrefix(reason, "Entry"):
		return EventEntry
	case strings.Contains(reason, "TP") && strings.Contains(reason, "Hit") && !strings.Contains(reason, "->"):
		return EventPartialTP
	case strings.Contains(reason, "SL Hit"):
		return EventStopLoss
	}
	return EventOther
}
