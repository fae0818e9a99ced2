// Package strategy turns analyzed candle state into trade signals, exit
// suggestions and order placement ratings.
package strategy

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"okx-market-monitor/config"
	"okx-market-monitor/internal/analysis"
	"okx-market-monitor/internal/okx"
)

type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
)

// Signal is a directional entry suggestion. Confidence is a heuristic
// 0-95 score; see calculateConfidence.
type Signal struct {
	Type       SignalType `json:"type"`
	Symbol     string     `json:"symbol"`
	EntryPrice float64    `json:"entry_price"`
	StopLoss   float64    `json:"stop_loss"`
	TakeProfit float64    `json:"take_profit"`
	Confidence int        `json:"confidence"`
	Reason     string     `json:"reason"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Generator evaluates the entry rule for one instrument at a time.
type Generator struct {
	provider okx.MarketDataProvider
	analyzer *analysis.Analyzer
	cfg      config.SignalConfig
	logger   zerolog.Logger
}

func NewGenerator(provider okx.MarketDataProvider, analyzer *analysis.Analyzer, cfg config.SignalConfig, logger zerolog.Logger) *Generator {
	return &Generator{
		provider: provider,
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger.With().Str("component", "SignalGenerator").Logger(),
	}
}

// Generate evaluates the entry rule for an instrument. A nil signal with a
// nil error means no setup; insufficient history is not an error. The rule
// is judged on the second-to-last retained candle because the newest one may
// still be revising; the newest close only prices the entry.
//
// BUY is checked before SELL; when both rule sets hold, BUY wins.
func (g *Generator) Generate(instID string) (*Signal, error) {
	candles, err := g.provider.GetCandles(instID, g.cfg.SignalCandles)
	if err != nil {
		return nil, fmt.Errorf("fetching candles for %s: %w", instID, err)
	}

	frame := g.analyzer.Analyze(candles)
	if frame.Len() < g.cfg.MinValidCandles {
		g.logger.Debug().
			Str("symbol", instID).
			Int("valid_candles", frame.Len()).
			Msg("Insufficient history, no signal")
		return nil, nil
	}

	prev, _ := frame.Prev()
	latest, _ := frame.Latest()
	entry := latest.Candle.Close

	// BUY: near support, bullish reversal, above trend line
	if prev.Pattern.DistToSupport < g.cfg.SNRThreshold &&
		prev.Pattern.Bullish &&
		prev.Candle.Close > prev.Pattern.EMA {

		return &Signal{
			Type:       SignalBuy,
			Symbol:     instID,
			EntryPrice: entry,
			StopLoss:   entry * (1 - g.cfg.StopLossPct),
			TakeProfit: entry * (1 + g.cfg.TakeProfitPct),
			Confidence: g.calculateConfidence(frame, SignalBuy),
			Reason:     fmt.Sprintf("price near support ($%.4f) + bullish reversal + above EMA", prev.Structure.Support),
			Timestamp:  time.Now(),
		}, nil
	}

	// SELL: near resistance, bearish reversal, below trend line
	if prev.Pattern.DistToResistance < g.cfg.SNRThreshold &&
		prev.Pattern.Bearish &&
		prev.Candle.Close < prev.Pattern.EMA {

		return &Signal{
			Type:       SignalSell,
			Symbol:     instID,
			EntryPrice: entry,
			StopLoss:   entry * (1 + g.cfg.StopLossPct),
			TakeProfit: entry * (1 - g.cfg.TakeProfitPct),
			Confidence: g.calculateConfidence(frame, SignalSell),
			Reason:     fmt.Sprintf("price near resistance ($%.4f) + bearish reversal + below EMA", prev.Structure.Resistance),
			Timestamp:  time.Now(),
		}, nil
	}

	return nil, nil
}

// calculateConfidence scores a signal: base 50, +15 for trend alignment on
// the latest candle, +10 for volume above 1.5x the baseline, +10 for a
// return stddev strictly between 1% and 5%. Capped at 95.
func (g *Generator) calculateConfidence(frame *analysis.Frame, direction SignalType) int {
	score := 50

	latest, ok := frame.Latest()
	if !ok {
		return score
	}

	switch direction {
	case SignalBuy:
		if latest.Candle.Close > latest.Pattern.EMA {
			score += 15
		}
	case SignalSell:
		if latest.Candle.Close < latest.Pattern.EMA {
			score += 15
		}
	}

	if latest.Candle.Volume > latest.Pattern.AvgVolume*1.5 {
		score += 10
	}

	if volatility := frame.ReturnStdDevPct(); volatility > 1 && volatility < 5 {
		score += 10
	}

	if score > 95 {
		score = 95
	}
	return score
}
