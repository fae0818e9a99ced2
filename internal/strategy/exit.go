package strategy

import (
	"okx-market-monitor/internal/analysis"
	"okx-market-monitor/internal/okx"
)

type AlertType string

const (
	AlertTakeProfit AlertType = "TAKE_PROFIT_SUGGEST"
	AlertStopLoss   AlertType = "STOP_LOSS_SUGGEST"
)

// ExitAlert suggests closing or reducing an open position.
type ExitAlert struct {
	Type       AlertType `json:"type"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"` // long or short
	PnLPct     float64   `json:"pnl_pct"`
	Suggestion string    `json:"suggestion"`
}

// Exit thresholds in percent of unrealized PnL. Both boundaries are
// inclusive; between them no alert fires.
const (
	takeProfitPnLPct = 5.0
	stopLossPnLPct   = -3.0

	// minExitRows is the minimum retained candle count before exit
	// evaluation runs for a position.
	minExitRows = 10
)

// EvaluateExit checks one open position against freshly analyzed candle
// state. The take-profit branch needs a profit of at least +5% plus a
// reversal flag against the position; the stop-loss branch needs a loss of
// at least -3% plus the mark price through the structural level. The
// branches are independent.
func EvaluateExit(pos okx.Position, frame *analysis.Frame) []ExitAlert {
	if pos.Size == 0 {
		return nil
	}
	if frame == nil || frame.Len() < minExitRows {
		return nil
	}

	latest, _ := frame.Latest()
	pnlPct := pos.UnrealizedPnLRatio * 100

	var alerts []ExitAlert

	if pnlPct >= takeProfitPnLPct {
		reversal := (pos.Side == okx.PositionLong && latest.Pattern.Bearish) ||
			(pos.Side == okx.PositionShort && latest.Pattern.Bullish)
		if reversal {
			alerts = append(alerts, ExitAlert{
				Type:       AlertTakeProfit,
				Symbol:     pos.InstID,
				Side:       pos.Side,
				PnLPct:     pnlPct,
				Suggestion: "consider closing 50% to lock in profit; reversal signal present",
			})
		}
	}

	if pnlPct <= stopLossPnLPct {
		structureBroken := (pos.Side == okx.PositionLong && pos.MarkPrice < latest.Structure.Support) ||
			(pos.Side == okx.PositionShort && pos.MarkPrice > latest.Structure.Resistance)
		if structureBroken {
			alerts = append(alerts, ExitAlert{
				Type:       AlertStopLoss,
				Symbol:     pos.InstID,
				Side:       pos.Side,
				PnLPct:     pnlPct,
				Suggestion: "consider exiting; structure has broken against the position",
			})
		}
	}

	return alerts
}
