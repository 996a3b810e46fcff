package core

import (
	"time"

	"github.com/moznion/go-optional"
)

// ActionType is the kind of a lifecycle event recorded for a signal.
type ActionType string

const (
	ActionOpen      ActionType = "OPEN"
	ActionClose     ActionType = "CLOSE"
	ActionAddLeg    ActionType = "ADD_LEG"
	ActionModifySL  ActionType = "MODIFY_SL"
	ActionModifyTP  ActionType = "MODIFY_TP"
	ActionDoNothing ActionType = "DO_NOTHING"
)

// Valid reports whether t is one of the known action types.
func (t ActionType) Valid() bool {
	switch t {
	case ActionOpen, ActionClose, ActionAddLeg, ActionModifySL, ActionModifyTP, ActionDoNothing:
		return true
	}
	return false
}

// SignalAction is one immutable event in a signal's lifecycle.
// Reason is free text; the lifecycle package recovers meaning from it.
type SignalAction struct {
	ID            string                   `json:"id"`
	Type          ActionType               `json:"action_type"`
	Reason        string                   `json:"reason"`
	Timestamp     time.Time                `json:"timestamp"`
	LegID         string                   `json:"leg_id,omitempty"`
	SizeChange    optional.Option[float64] `json:"size_change,omitempty"`    // signed percent delta
	RemainingSize optional.Option[float64] `json:"remaining_size,omitempty"` // percent of original position, 0-100
}

// SignalState is the derived open/closed state of a signal.
type SignalState string

const (
	StateOpen   SignalState = "OPEN"
	StateClosed SignalState = "CLOSED"
)

// Valid reports whether s is a known state.
func (s SignalState) Valid() bool {
	return s == StateOpen || s == StateClosed
}

// SignalResult is the terminal classification of a closed signal.
type SignalResult string

const (
	ResultTP1         SignalResult = "TP1"
	ResultTP2         SignalResult = "TP2"
	ResultTP3         SignalResult = "TP3"
	ResultSL          SignalResult = "SL"
	ResultRisk        SignalResult = "Risk"
	ResultFlip        SignalResult = "Flip"
	ResultInvalidated SignalResult = "Invalidated"
	ResultClosed      SignalResult = "Closed"
)

// Valid reports whether r is a known result.
func (r SignalResult) Valid() bool {
	switch r {
	case ResultTP1, ResultTP2, ResultTP3, ResultSL, ResultRisk, ResultFlip, ResultInvalidated, ResultClosed:
		return true
	}
	return false
}

// Signal is a generated trading recommendation together with its action log.
// Actions are kept in chronological (insertion) order.
type Signal struct {
	ID            string                   `json:"id"`
	Symbol        string                   `json:"symbol"`
	Name          string                   `json:"name,omitempty"`
	Timeframe     string                   `json:"timeframe"`
	Strategy      string                   `json:"strategy"`
	Rating        string                   `json:"rating,omitempty"`
	RiskLevel     string                   `json:"risk_level,omitempty"`
	HoldingPeriod string                   `json:"holding_period,omitempty"`
	TotalScore    float64                  `json:"total_score"`
	EntryPrice    float64                  `json:"entry_price"`
	TargetPrice   float64                  `json:"target_price"`
	TargetPrice2  optional.Option[float64] `json:"target_price_2,omitempty"`
	TargetPrice3  optional.Option[float64] `json:"target_price_3,omitempty"`
	StopLoss      float64                  `json:"stop_loss"`
	CreatedAt     time.Time                `json:"created_at"`
	Actions       []SignalAction           `json:"actions"`
}

// IsValid checks if the signal has required fields
func (s Signal) IsValid() bool {
	return s.Symbol != "" && s.Timeframe != "" && !s.CreatedAt.IsZero()
}
