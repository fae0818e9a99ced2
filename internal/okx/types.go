package okx

// Candle represents one OHLCV bar. Timestamp is the bar open time in
// milliseconds. Sequences handed out by this package are ordered oldest
// first.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Position side constants as OKX reports them.
const (
	PositionLong  = "long"
	PositionShort = "short"
)

// Position is an open position snapshot.
type Position struct {
	InstID             string  `json:"inst_id"`
	Size               float64 `json:"size"`
	AvgEntryPrice      float64 `json:"avg_entry_price"`
	MarkPrice          float64 `json:"mark_price"`
	Side               string  `json:"side"` // long or short
	UnrealizedPnLRatio float64 `json:"unrealized_pnl_ratio"`
}

// PendingOrder is an unfilled limit order.
type PendingOrder struct {
	InstID string  `json:"inst_id"`
	Price  float64 `json:"price"`
	Side   string  `json:"side"` // buy or sell
}

// Ticker holds the last traded price for an instrument.
type Ticker struct {
	InstID string  `json:"inst_id"`
	Last   float64 `json:"last"`
}
