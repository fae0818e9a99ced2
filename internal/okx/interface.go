package okx

// MarketDataProvider supplies public market data. Implementations degrade to
// an error per instrument; callers treat any failure as "no data" and move
// on.
type MarketDataProvider interface {
	// GetCandles returns up to limit candles for the instrument, ordered
	// oldest first.
	GetCandles(instID string, limit int) ([]Candle, error)

	// GetTicker returns the latest price for the instrument.
	GetTicker(instID string) (*Ticker, error)
}

// AccountProvider supplies authenticated account state.
type AccountProvider interface {
	// GetBalance returns the available USDT balance.
	GetBalance() (float64, error)

	// GetPositions returns open positions keyed by instrument ID.
	GetPositions() (map[string]Position, error)

	// GetPendingOrders returns unfilled limit orders.
	GetPendingOrders() ([]PendingOrder, error)
}

// Provider combines market data and account access, which the REST client
// implements in one place.
type Provider interface {
	MarketDataProvider
	AccountProvider
}
