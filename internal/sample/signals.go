package sample

import (
	"context"
	"fmt"
	"time"

	"github.com/moznion/go-optional"

	"github.com/newthinker/signalbook/internal/core"
)

// Saver is the part of a signal store Seed needs.
type Saver interface {
	Save(ctx context.Context, signal core.Signal) (string, error)
}

type fixture struct {
	id                  string
	age                 time.Duration
	symbol, name        string
	timeframe           string
	score               float64
	rating, risk, hold  string
	strategy            string
	entry, target, stop float64
	target2, target3    float64
	scenario            string
}

var fixtures = []fixture{
	{"1", time.Hour, "BTC", "Bitcoin", "4h", 86, "Strong Buy", "Medium", "Scalping", "Aggressive", 67500, 72000, 65000, 74500, 78000, OpenTP1BreakEven},
	{"2", 2 * time.Hour, "SOL", "Solana", "1d", 81, "Buy", "Medium", "Day trade", "Moderate", 145.50, 165, 138, 175, 0, OpenTrailing},
	{"3", 3 * time.Hour, "AAPL", "Apple Inc.", "1h", 74, "Buy", "Low", "Swing", "Cautious", 178.25, 183.50, 175.80, 0, 0, ClosedTP1},
	{"4", 4 * time.Hour, "ETH", "Ethereum", "4h", 45, "Neutral", "Medium", "Day trade", "Cautious", 3550, 3650, 3480, 0, 0, OpenDerisk},
	{"5", 24 * time.Hour, "BTC", "Bitcoin", "1d", 88, "Strong Buy", "Low", "Swing", "Aggressive", 65200, 70000, 63000, 72500, 75000, ClosedTP2},
	{"6", 48 * time.Hour, "ETH", "Ethereum", "4h", 52, "Neutral", "High", "Day trade", "Aggressive", 3420, 3550, 3350, 0, 0, ClosedSL},
	{"7", 72 * time.Hour, "TSLA", "Tesla Inc.", "1d", 68, "Buy", "Medium", "Swing", "Moderate", 245, 260, 235, 0, 0, ClosedRisk},
	{"8", 96 * time.Hour, "SOL", "Solana", "1h", 72, "Buy", "Low", "Scalping", "Cautious", 138, 148, 132, 0, 0, ClosedFlip},
	{"9", 120 * time.Hour, "NVDA", "NVIDIA Corp.", "4h", 55, "Neutral", "Medium", "Day trade", "Moderate", 875, 920, 850, 0, 0, ClosedInvalidate},
	{"10", 30 * time.Minute, "BTC", "Bitcoin", "1h", 79, "Buy", "Low", "Scalping", "Moderate", 68200, 71000, 66500, 0, 0, Default},
}

// Signals returns the sample signals relative to now. Each action log starts
// at the signal's creation time.
func Signals(now time.Time) []core.Signal {
	out := make([]core.Signal, 0, len(fixtures))
	for _, f := range fixtures {
		created := now.Add(-f.age)
		id := "sample-" + f.id
		out = append(out, core.Signal{
			ID:            id,
			Symbol:        f.symbol,
			Name:          f.name,
			Timeframe:     f.timeframe,
			Strategy:      f.strategy,
			Rating:        f.rating,
			RiskLevel:     f.risk,
			HoldingPeriod: f.hold,
			TotalScore:    f.score,
			EntryPrice:    f.entry,
			TargetPrice:   f.target,
			TargetPrice2:  positive(f.target2),
			TargetPrice3:  positive(f.target3),
			StopLoss:      f.stop,
			CreatedAt:     created,
			Actions:       Scenario(f.scenario, id, created),
		})
	}
	return out
}

// Seed saves every sample signal into the store.
func Seed(ctx context.Context, store Saver, now time.Time) (int, error) {
	n := 0
	for _, sig := range Signals(now) {
		if _, err := store.Save(ctx, sig); err != nil {
			return n, fmt.Errorf("seeding %s: %w", sig.ID, err)
		}
		n++
	}
	return n, nil
}

func positive(v float64) optional.Option[float64] {
	if v > 0 {
		return optional.Some(v)
	}
	return optional.None[float64]()
}
