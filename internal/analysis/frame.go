// Package analysis derives structural and pattern state from candle windows:
// rolling swing/pivot extrema, support/resistance levels, trend reference and
// reversal flags. Everything here is a pure function of the input window.
package analysis

import (
	"math"

	"okx-market-monitor/internal/okx"
)

// Row bundles one retained candle with its derived state.
type Row struct {
	Candle    okx.Candle     `json:"candle"`
	Structure StructurePoint `json:"structure"`
	Pattern   PatternState   `json:"pattern"`
}

// Frame is the analyzed view of a candle window. Candles whose swing window
// is incomplete, or for which no support/resistance could be established, are
// excluded; downstream code only ever sees fully defined rows.
type Frame struct {
	Rows []Row `json:"rows"`
}

// Analyzer computes Frames with fixed lookback parameters.
type Analyzer struct {
	swingLookback int
	pivotLookback int
	trendPeriod   int
}

func NewAnalyzer(swingLookback, pivotLookback, trendPeriod int) *Analyzer {
	return &Analyzer{
		swingLookback: swingLookback,
		pivotLookback: pivotLookback,
		trendPeriod:   trendPeriod,
	}
}

// Analyze derives the frame for a candle window, oldest first. Returns an
// empty frame when the window is too short or no pivots exist.
func (a *Analyzer) Analyze(candles []okx.Candle) *Frame {
	points := extractStructure(candles, a.swingLookback, a.pivotLookback)

	rows := make([]Row, 0, len(points))
	for _, p := range points {
		if !p.HasLevels {
			continue
		}
		rows = append(rows, Row{
			Candle:    candles[p.Index],
			Structure: p,
			Pattern:   classify(candles, p.Index, a.trendPeriod, p),
		})
	}

	return &Frame{Rows: rows}
}

// Len returns the number of retained rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// Latest returns the most recent retained row.
func (f *Frame) Latest() (Row, bool) {
	if len(f.Rows) == 0 {
		return Row{}, false
	}
	return f.Rows[len(f.Rows)-1], true
}

// Prev returns the second-to-last retained row, the last one whose high and
// low are no longer revising.
func (f *Frame) Prev() (Row, bool) {
	if len(f.Rows) < 2 {
		return Row{}, false
	}
	return f.Rows[len(f.Rows)-2], true
}

// ReturnStdDevPct is the sample standard deviation of close-to-close percent
// returns over the retained rows, in percent.
func (f *Frame) ReturnStdDevPct() float64 {
	if len(f.Rows) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(f.Rows)-1)
	for i := 1; i < len(f.Rows); i++ {
		prev := f.Rows[i-1].Candle.Close
		if prev == 0 {
			continue
		}
		returns = append(returns, (f.Rows[i].Candle.Close-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * 100
}
