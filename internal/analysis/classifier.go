package analysis

import (
	"okx-market-monitor/internal/okx"
)

// PatternState is the per-candle pattern/trend state. Bullish and bearish
// are independent flags; both may be false. Distances are relative, negative
// when the level has been breached.
type PatternState struct {
	Bullish          bool    `json:"bullish"`
	Bearish          bool    `json:"bearish"`
	EMA              float64 `json:"ema"`
	AvgVolume        float64 `json:"avg_volume"`
	DistToSupport    float64 `json:"dist_to_support"`
	DistToResistance float64 `json:"dist_to_resistance"`
}

// classify derives the pattern state for candles[idx] against the structure
// point at the same index. Pure function of the candle window.
func classify(candles []okx.Candle, idx, trendPeriod int, sp StructurePoint) PatternState {
	c := candles[idx]

	state := PatternState{
		Bullish:   isBullishReversal(candles, idx),
		Bearish:   isBearishReversal(candles, idx),
		EMA:       emaAt(candles, idx, trendPeriod),
		AvgVolume: avgVolumeAt(candles, idx, trendPeriod),
	}

	if sp.HasLevels && sp.Support > 0 {
		state.DistToSupport = (c.Close - sp.Support) / sp.Support
	}
	if sp.HasLevels && sp.Resistance > 0 {
		state.DistToResistance = (sp.Resistance - c.Close) / sp.Resistance
	}

	return state
}

// isBullishReversal flags a bullish engulfing of the prior candle, or two
// consecutive higher closes ending in a bullish body.
func isBullishReversal(candles []okx.Candle, idx int) bool {
	if idx < 1 {
		return false
	}
	c1, c2 := candles[idx-1], candles[idx]

	if isBullishEngulfing(c1, c2) {
		return true
	}

	// Momentum: two rising closes with a bullish last body
	if idx >= 2 {
		c0 := candles[idx-2]
		if c1.Close > c0.Close && c2.Close > c1.Close && c2.Close > c2.Open {
			return true
		}
	}

	return false
}

// isBearishReversal mirrors isBullishReversal.
func isBearishReversal(candles []okx.Candle, idx int) bool {
	if idx < 1 {
		return false
	}
	c1, c2 := candles[idx-1], candles[idx]

	if isBearishEngulfing(c1, c2) {
		return true
	}

	if idx >= 2 {
		c0 := candles[idx-2]
		if c1.Close < c0.Close && c2.Close < c1.Close && c2.Close < c2.Open {
			return true
		}
	}

	return false
}

// isBullishEngulfing checks that a bearish candle is followed by a bullish
// candle whose body completely engulfs it.
func isBullishEngulfing(c1, c2 okx.Candle) bool {
	if c1.Close >= c1.Open {
		return false
	}
	if c2.Close <= c2.Open {
		return false
	}
	return c2.Open <= c1.Close && c2.Close >= c1.Open
}

// isBearishEngulfing is the mirrored check.
func isBearishEngulfing(c1, c2 okx.Candle) bool {
	if c1.Close <= c1.Open {
		return false
	}
	if c2.Close >= c2.Open {
		return false
	}
	return c2.Open >= c1.Close && c2.Close <= c1.Open
}

// emaAt computes the exponential moving average of closes over
// candles[0..idx]. Falls back to a simple average when fewer than period
// candles precede idx.
func emaAt(candles []okx.Candle, idx, period int) float64 {
	if idx+1 < period {
		return smaAt(candles, idx, idx+1)
	}

	// Seed with the SMA of the first period closes
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += candles[i].Close
	}
	ema := sum / float64(period)

	multiplier := 2.0 / float64(period+1)
	for i := period; i <= idx; i++ {
		ema = (candles[i].Close * multiplier) + (ema * (1 - multiplier))
	}

	return ema
}

func smaAt(candles []okx.Candle, idx, period int) float64 {
	sum := 0.0
	for i := idx - period + 1; i <= idx; i++ {
		sum += candles[i].Close
	}
	return sum / float64(period)
}

// avgVolumeAt averages volume over the trailing period ending at idx,
// shrinking the window at the start of the series.
func avgVolumeAt(candles []okx.Candle, idx, period int) float64 {
	if idx+1 < period {
		period = idx + 1
	}
	sum := 0.0
	for i := idx - period + 1; i <= idx; i++ {
		sum += candles[i].Volume
	}
	return sum / float64(period)
}
