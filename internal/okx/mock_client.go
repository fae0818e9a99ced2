package okx

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// MockClient provides simulated market and account data for development and
// testing. It implements Provider.
type MockClient struct {
	prices     map[string]float64
	positions  map[string]Position
	orders     []PendingOrder
	balance    float64
	lastUpdate time.Time
	mu         sync.RWMutex // Protects prices and lastUpdate
}

// NewMockClient creates a mock provider seeded with realistic base prices.
func NewMockClient() *MockClient {
	return &MockClient{
		prices: map[string]float64{
			"BTC-USDT-SWAP":   104500.00,
			"ETH-USDT-SWAP":   3900.00,
			"SOL-USDT-SWAP":   220.00,
			"XRP-USDT-SWAP":   2.35,
			"DOGE-USDT-SWAP":  0.40,
			"ADA-USDT-SWAP":   1.05,
			"AVAX-USDT-SWAP":  50.00,
			"LINK-USDT-SWAP":  28.00,
			"MATIC-USDT-SWAP": 0.55,
			"DOT-USDT-SWAP":   9.50,
			"UNI-USDT-SWAP":   17.50,
			"ATOM-USDT-SWAP":  12.00,
		},
		balance:    10000.0,
		lastUpdate: time.Now(),
	}
}

// updatePrices adds small random variations to simulate market movement
func (mc *MockClient) updatePrices() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if time.Since(mc.lastUpdate) < time.Second {
		return
	}

	for instID, price := range mc.prices {
		// Random walk: -0.5% to +0.5% change
		change := (rand.Float64() - 0.5) * 0.01
		mc.prices[instID] = price * (1 + change)
	}
	mc.lastUpdate = time.Now()
}

// GetCandles returns simulated candlestick data, oldest first.
func (mc *MockClient) GetCandles(instID string, limit int) ([]Candle, error) {
	mc.updatePrices()

	mc.mu.RLock()
	basePrice, ok := mc.prices[instID]
	mc.mu.RUnlock()
	if !ok {
		basePrice = 100.0
	}

	candles := make([]Candle, limit)
	now := time.Now()
	currentPrice := basePrice

	for i := limit - 1; i >= 0; i-- {
		openTime := now.Add(-time.Duration(limit-i) * time.Hour)

		volatility := 0.02
		open := currentPrice
		change := (rand.Float64() - 0.5) * volatility * 2
		close := open * (1 + change)

		high := math.Max(open, close) * (1 + rand.Float64()*volatility*0.5)
		low := math.Min(open, close) * (1 - rand.Float64()*volatility*0.5)
		volume := 1000 + rand.Float64()*5000

		candles[i] = Candle{
			Timestamp: openTime.UnixMilli(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
		}
		currentPrice = open
	}

	return candles, nil
}

// GetTicker returns the simulated latest price.
func (mc *MockClient) GetTicker(instID string) (*Ticker, error) {
	mc.updatePrices()

	mc.mu.RLock()
	price, ok := mc.prices[instID]
	mc.mu.RUnlock()
	if !ok {
		price = 100.0
	}

	return &Ticker{InstID: instID, Last: price}, nil
}

// GetBalance returns the simulated available balance.
func (mc *MockClient) GetBalance() (float64, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.balance, nil
}

// GetPositions returns the configured simulated positions.
func (mc *MockClient) GetPositions() (map[string]Position, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	positions := make(map[string]Position, len(mc.positions))
	for k, v := range mc.positions {
		positions[k] = v
	}
	return positions, nil
}

// GetPendingOrders returns the configured simulated orders.
func (mc *MockClient) GetPendingOrders() ([]PendingOrder, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return append([]PendingOrder(nil), mc.orders...), nil
}

// SetBalance overrides the simulated balance (for tests).
func (mc *MockClient) SetBalance(balance float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.balance = balance
}

// SetPosition installs a simulated position (for tests).
func (mc *MockClient) SetPosition(pos Position) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.positions == nil {
		mc.positions = make(map[string]Position)
	}
	mc.positions[pos.InstID] = pos
}

// SetPendingOrders installs simulated pending orders (for tests).
func (mc *MockClient) SetPendingOrders(orders []PendingOrder) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.orders = orders
}
