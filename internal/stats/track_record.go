// Package stats aggregates signal outcomes into a per-strategy track record.
package stats

import (
	"sort"

	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/lifecycle"
)

// StrategyStats is the track record of one strategy.
type StrategyStats struct {
	Strategy string                    `json:"strategy"`
	Total    int                       `json:"total_signals"`
	Open     int                       `json:"open"`
	Closed   int                       `json:"closed"`
	Wins     int                       `json:"wins"`
	Losses   int                       `json:"losses"`
	WinRate  float64                   `json:"win_rate"`
	Results  map[core.SignalResult]int `json:"results"`
}

// Report is the track record across all strategies.
type Report struct {
	Total      int                       `json:"total_signals"`
	Open       int                       `json:"open"`
	Closed     int                       `json:"closed"`
	Results    map[core.SignalResult]int `json:"results"`
	Strategies []StrategyStats           `json:"strategies"`
}

// Summarize evaluates every signal's log and tallies the outcomes.
// Win rate is wins over closed signals; flips, invalidations and plain
// closes count as closed but neither win nor loss.
func Summarize(signals []core.Signal) Report {
	report := Report{Results: make(map[core.SignalResult]int)}
	byStrategy := make(map[string]*StrategyStats)

	for _, sig := range signals {
		s, ok := byStrategy[sig.Strategy]
		if !ok {
			s = &StrategyStats{Strategy: sig.Strategy, Results: make(map[core.SignalResult]int)}
			byStrategy[sig.Strategy] = s
		}

		report.Total++
		s.Total++

		result, closed := lifecycle.Result(sig.Actions)
		if !closed {
			report.Open++
			s.Open++
			continue
		}

		report.Closed++
		report.Results[result]++
		s.Closed++
		s.Results[result]++
		switch {
		case lifecycle.IsWin(result):
			s.Wins++
		case lifecycle.IsLoss(result):
			s.Losses++
		}
	}

	report.Strategies = make([]StrategyStats, 0, len(byStrategy))
	for _, s := range byStrategy {
		if s.Closed > 0 {
			s.WinRate = float64(s.Wins) / float64(s.Closed)
		}
		report.Strategies = append(report.Strategies, *s)
	}
	sort.Slice(report.Strategies, func(i, j int) bool {
		return report.Strategies[i].Strategy < report.Strategies[j].Strategy
	})

	return report
}
