package analysis

import (
	"okx-market-monitor/internal/okx"
)

// StructurePoint is the per-candle structural state derived from rolling
// extrema. Support and Resistance carry the most recent confirmed pivot
// low/high; HasLevels is false when no pivot exists anywhere in the window.
type StructurePoint struct {
	Index      int     `json:"index"` // index into the source candle window
	SwingHigh  float64 `json:"swing_high"`
	SwingLow   float64 `json:"swing_low"`
	PivotHigh  bool    `json:"pivot_high"`
	PivotLow   bool    `json:"pivot_low"`
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
	HasLevels  bool    `json:"has_levels"`
}

// extractStructure computes swing/pivot extrema over centered windows and
// derives forward/back-filled support and resistance levels.
//
// A candle is a pivot high when its high equals the maximum over the
// centered pivot window, a pivot low when its low equals the minimum.
// Resistance at index i is the high of the most recent pivot high at or
// before i; leading candles with no prior pivot take the first pivot after
// them. Support is symmetric over pivot lows.
//
// Only candles whose swing window is fully inside the series are returned;
// pivots are still detected across the wider pivot-valid range so they can
// seed the fills.
func extractStructure(candles []okx.Candle, swingLookback, pivotLookback int) []StructurePoint {
	n := len(candles)
	if n < 2*swingLookback+1 {
		return nil
	}

	// Pivot detection over every index with a complete pivot window.
	pivotHigh := make([]bool, n)
	pivotLow := make([]bool, n)
	for i := pivotLookback; i < n-pivotLookback; i++ {
		maxHigh, minLow := windowExtrema(candles, i-pivotLookback, i+pivotLookback)
		pivotHigh[i] = candles[i].High == maxHigh
		pivotLow[i] = candles[i].Low == minLow
	}

	// Forward-fill the most recent pivot level, back-fill the leading gap.
	resistance := fillLevels(candles, pivotHigh, func(c okx.Candle) float64 { return c.High })
	support := fillLevels(candles, pivotLow, func(c okx.Candle) float64 { return c.Low })

	points := make([]StructurePoint, 0, n-2*swingLookback)
	for i := swingLookback; i < n-swingLookback; i++ {
		maxHigh, minLow := windowExtrema(candles, i-swingLookback, i+swingLookback)

		p := StructurePoint{
			Index:     i,
			SwingHigh: maxHigh,
			SwingLow:  minLow,
			PivotHigh: pivotHigh[i],
			PivotLow:  pivotLow[i],
		}
		if support != nil && resistance != nil {
			p.Support = support[i]
			p.Resistance = resistance[i]
			p.HasLevels = true
		}
		points = append(points, p)
	}

	return points
}

// windowExtrema returns the maximum high and minimum low over candles[lo..hi]
// inclusive.
func windowExtrema(candles []okx.Candle, lo, hi int) (float64, float64) {
	maxHigh := candles[lo].High
	minLow := candles[lo].Low
	for i := lo + 1; i <= hi; i++ {
		if candles[i].High > maxHigh {
			maxHigh = candles[i].High
		}
		if candles[i].Low < minLow {
			minLow = candles[i].Low
		}
	}
	return maxHigh, minLow
}

// fillLevels carries the value of the most recent flagged candle forward and
// fills the leading stretch from the first flagged candle. Returns nil when
// no candle is flagged at all.
func fillLevels(candles []okx.Candle, flags []bool, value func(okx.Candle) float64) []float64 {
	n := len(candles)
	levels := make([]float64, n)

	first := -1
	last := -1
	for i := 0; i < n; i++ {
		if flags[i] {
			if first == -1 {
				first = i
			}
			last = i
		}
		if last >= 0 {
			levels[i] = value(candles[last])
		}
	}
	if first == -1 {
		return nil
	}

	// Back-fill candles before the first pivot
	for i := 0; i < first; i++ {
		levels[i] = value(candles[first])
	}

	return levels
}
