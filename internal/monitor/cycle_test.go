package monitor

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"okx-market-monitor/config"
	"okx-market-monitor/internal/analysis"
	"okx-market-monitor/internal/notification"
	"okx-market-monitor/internal/okx"
	"okx-market-monitor/internal/scanner"
	"okx-market-monitor/internal/strategy"
)

// flatMarket serves a flat candle window at the configured price.
type flatMarket struct {
	price float64
}

func (m *flatMarket) GetCandles(instID string, limit int) ([]okx.Candle, error) {
	candles := make([]okx.Candle, limit)
	for i := range candles {
		candles[i] = okx.Candle{
			Timestamp: int64(i) * 3600_000,
			Open:      m.price,
			High:      m.price + 0.5,
			Low:       m.price - 0.5,
			Close:     m.price,
			Volume:    1000,
		}
	}
	return candles, nil
}

func (m *flatMarket) GetTicker(instID string) (*okx.Ticker, error) {
	return &okx.Ticker{InstID: instID, Last: m.price}, nil
}

// windowMarket serves one fixed, hand-built candle window.
type windowMarket struct {
	candles []okx.Candle
}

func (m *windowMarket) GetCandles(instID string, limit int) ([]okx.Candle, error) {
	return append([]okx.Candle(nil), m.candles...), nil
}

func (m *windowMarket) GetTicker(instID string) (*okx.Ticker, error) {
	return &okx.Ticker{InstID: instID, Last: m.candles[len(m.candles)-1].Close}, nil
}

// flatThenTrend builds n candles flat at base, then stepping by step per
// candle from trendStart onward. A monotonic tail forms no new pivots, so
// support and resistance stay anchored in the flat region while the close
// walks away from them.
func flatThenTrend(n, trendStart int, base, step float64) []okx.Candle {
	candles := make([]okx.Candle, n)
	for i := range candles {
		px := base
		if i >= trendStart {
			px = base + step*float64(i-trendStart+1)
		}
		candles[i] = okx.Candle{
			Timestamp: int64(i) * 3600_000,
			Open:      px,
			High:      px + 0.5,
			Low:       px - 0.5,
			Close:     px,
			Volume:    1000,
		}
	}
	return candles
}

// quietSource never finds a setup.
type quietSource struct{}

func (quietSource) Generate(instID string) (*strategy.Signal, error) { return nil, nil }

func testMonitorConfig() (config.SignalConfig, config.MonitorConfig) {
	signalCfg := config.SignalConfig{
		SwingLookback:    3,
		PivotLookback:    1,
		SNRThreshold:     0.08,
		StopLossPct:      0.033,
		TakeProfitPct:    0.084,
		TrendPeriod:      5,
		SignalCandles:    40,
		OrderCandles:     30,
		ExitCandles:      30,
		MinValidCandles:  5,
		MinConfidence:    60,
		NotifyListFloor:  70,
		NotifyEntryFloor: 65,
	}
	monitorCfg := config.MonitorConfig{
		Symbols:                []string{"TEST-USDT-SWAP"},
		ScanSymbols:            []string{"TEST-USDT-SWAP"},
		IntervalSeconds:        300,
		PriceAlertThreshold:    0.02,
		BalanceChangeThreshold: 0.05,
	}
	return signalCfg, monitorCfg
}

func newTestMonitor(market okx.MarketDataProvider, account *okx.MockClient) *Monitor {
	signalCfg, monitorCfg := testMonitorConfig()
	analyzer := analysis.NewAnalyzer(signalCfg.SwingLookback, signalCfg.PivotLookback, signalCfg.TrendPeriod)
	sc := scanner.NewScanner(quietSource{}, monitorCfg.ScanSymbols, 1, signalCfg.MinConfidence, 5, zerolog.Nop())
	notifier := notification.NewManager(false, signalCfg.NotifyListFloor, signalCfg.NotifyEntryFloor, zerolog.Nop())

	accounts := []Account{{
		Config:   config.AccountConfig{Type: config.AccountMain, Name: "main"},
		Provider: account,
	}}

	return New(accounts, market, analyzer, quietSource{}, sc, notifier, nil, nil, signalCfg, monitorCfg, zerolog.Nop())
}

func alertsOfType(alerts []Alert, alertType AlertType) []Alert {
	var out []Alert
	for _, a := range alerts {
		if a.Type == alertType {
			out = append(out, a)
		}
	}
	return out
}

func TestFirstCycleSeedsStateWithoutAlerts(t *testing.T) {
	market := &flatMarket{price: 100}
	account := okx.NewMockClient()
	mon := newTestMonitor(market, account)
	state := NewCycleState()

	alerts := mon.RunCycle(context.Background(), state)

	if len(alerts) != 0 {
		t.Fatalf("First cycle on a quiet market must not alert, got %+v", alerts)
	}
	if state.LastPrices["TEST-USDT-SWAP"] != 100 {
		t.Errorf("Expected last price 100, got %v", state.LastPrices["TEST-USDT-SWAP"])
	}
	if state.LastBalances["main"] != 10000 {
		t.Errorf("Expected last balance 10000, got %v", state.LastBalances["main"])
	}
}

func TestVolatilityAlertOnPriceJump(t *testing.T) {
	market := &flatMarket{price: 100}
	account := okx.NewMockClient()
	mon := newTestMonitor(market, account)
	state := NewCycleState()

	mon.RunCycle(context.Background(), state)

	// 3% jump between cycles, still inside the new window's levels
	market.price = 103
	alerts := mon.RunCycle(context.Background(), state)

	vol := alertsOfType(alerts, AlertVolatility)
	if len(vol) != 1 {
		t.Fatalf("Expected one volatility alert, got %+v", alerts)
	}
	if state.LastPrices["TEST-USDT-SWAP"] != 103 {
		t.Errorf("Expected state updated to 103, got %v", state.LastPrices["TEST-USDT-SWAP"])
	}
}

func TestSmallMoveStaysQuiet(t *testing.T) {
	market := &flatMarket{price: 100}
	account := okx.NewMockClient()
	mon := newTestMonitor(market, account)
	state := NewCycleState()

	mon.RunCycle(context.Background(), state)

	market.price = 100.9 // under the 2% threshold
	alerts := mon.RunCycle(context.Background(), state)

	if len(alertsOfType(alerts, AlertVolatility)) != 0 {
		t.Fatalf("Sub-threshold move must not alert, got %+v", alerts)
	}
}

func TestBreakdownAlertOnSupportBreak(t *testing.T) {
	market := &windowMarket{candles: flatThenTrend(30, 30, 100, 0)}
	account := okx.NewMockClient()
	mon := newTestMonitor(market, account)
	state := NewCycleState()

	mon.RunCycle(context.Background(), state) // seeds last price 100

	// Slide the tail below the flat region's support (99.5); the last
	// retained candle closes at 98 while support holds at the old pivot.
	market.candles = flatThenTrend(30, 23, 100, -0.5)
	alerts := mon.RunCycle(context.Background(), state)

	breakdowns := alertsOfType(alerts, AlertBreakdown)
	if len(breakdowns) != 1 {
		t.Fatalf("Expected one breakdown alert, got %+v", alerts)
	}
	if len(alertsOfType(alerts, AlertVolatility)) != 0 {
		t.Errorf("Level break must not double-report as volatility: %+v", alerts)
	}
}

func TestBreakoutAlertOnResistanceBreak(t *testing.T) {
	market := &windowMarket{candles: flatThenTrend(30, 30, 100, 0)}
	account := okx.NewMockClient()
	mon := newTestMonitor(market, account)
	state := NewCycleState()

	mon.RunCycle(context.Background(), state)

	// Mirror move through the flat region's resistance (100.5)
	market.candles = flatThenTrend(30, 23, 100, 0.5)
	alerts := mon.RunCycle(context.Background(), state)

	breakouts := alertsOfType(alerts, AlertBreakout)
	if len(breakouts) != 1 {
		t.Fatalf("Expected one breakout alert, got %+v", alerts)
	}
	if len(alertsOfType(alerts, AlertVolatility)) != 0 {
		t.Errorf("Level break must not double-report as volatility: %+v", alerts)
	}
}

func TestBalanceAnomalyAlert(t *testing.T) {
	market := &flatMarket{price: 100}
	account := okx.NewMockClient()
	mon := newTestMonitor(market, account)
	state := NewCycleState()

	mon.RunCycle(context.Background(), state)

	account.SetBalance(9000) // -10%
	alerts := mon.RunCycle(context.Background(), state)

	anomalies := alertsOfType(alerts, AlertBalanceAnomaly)
	if len(anomalies) != 1 {
		t.Fatalf("Expected one balance anomaly, got %+v", alerts)
	}
	if anomalies[0].Account != "main" {
		t.Errorf("Expected account main, got %s", anomalies[0].Account)
	}
	if state.LastBalances["main"] != 9000 {
		t.Errorf("Expected state updated to 9000, got %v", state.LastBalances["main"])
	}
}

func TestExitAlertForLosingPosition(t *testing.T) {
	market := &flatMarket{price: 100}
	account := okx.NewMockClient()
	// Long underwater with the mark through support (flat window support is 99.5)
	account.SetPosition(okx.Position{
		InstID:             "TEST-USDT-SWAP",
		Size:               1,
		AvgEntryPrice:      104,
		MarkPrice:          99,
		Side:               okx.PositionLong,
		UnrealizedPnLRatio: -0.048,
	})
	mon := newTestMonitor(market, account)
	state := NewCycleState()

	alerts := mon.RunCycle(context.Background(), state)

	exits := alertsOfType(alerts, AlertExit)
	if len(exits) != 1 {
		t.Fatalf("Expected one exit alert, got %+v", alerts)
	}
	if exits[0].Symbol != "TEST-USDT-SWAP" || exits[0].Account != "main" {
		t.Errorf("Unexpected exit alert: %+v", exits[0])
	}
}

// TestExitAlertAtProductionLookbacks runs a cycle with the default-sized
// candle windows: the swing exclusion eats 60 candles per window, so the
// exit fetch must still leave enough rows to evaluate open positions.
func TestExitAlertAtProductionLookbacks(t *testing.T) {
	signalCfg := config.SignalConfig{
		SwingLookback:    30,
		PivotLookback:    2,
		SNRThreshold:     0.08,
		StopLossPct:      0.033,
		TakeProfitPct:    0.084,
		TrendPeriod:      30,
		SignalCandles:    150,
		OrderCandles:     100,
		ExitCandles:      100,
		MinValidCandles:  50,
		MinConfidence:    60,
		NotifyListFloor:  70,
		NotifyEntryFloor: 65,
	}
	monitorCfg := config.MonitorConfig{
		Symbols:                []string{"TEST-USDT-SWAP"},
		ScanSymbols:            []string{"TEST-USDT-SWAP"},
		IntervalSeconds:        300,
		PriceAlertThreshold:    0.02,
		BalanceChangeThreshold: 0.05,
	}

	market := &flatMarket{price: 100}
	account := okx.NewMockClient()
	account.SetPosition(okx.Position{
		InstID:             "TEST-USDT-SWAP",
		Size:               1,
		AvgEntryPrice:      104,
		MarkPrice:          99,
		Side:               okx.PositionLong,
		UnrealizedPnLRatio: -0.048,
	})

	analyzer := analysis.NewAnalyzer(signalCfg.SwingLookback, signalCfg.PivotLookback, signalCfg.TrendPeriod)
	sc := scanner.NewScanner(quietSource{}, monitorCfg.ScanSymbols, 1, signalCfg.MinConfidence, 5, zerolog.Nop())
	notifier := notification.NewManager(false, signalCfg.NotifyListFloor, signalCfg.NotifyEntryFloor, zerolog.Nop())
	accounts := []Account{{
		Config:   config.AccountConfig{Type: config.AccountMain, Name: "main"},
		Provider: account,
	}}
	mon := New(accounts, market, analyzer, quietSource{}, sc, notifier, nil, nil, signalCfg, monitorCfg, zerolog.Nop())

	alerts := mon.RunCycle(context.Background(), NewCycleState())

	if len(alertsOfType(alerts, AlertExit)) != 1 {
		t.Fatalf("Expected one exit alert with production candle windows, got %+v", alerts)
	}
}

func TestOrderAdviceForWellPlacedOrder(t *testing.T) {
	market := &flatMarket{price: 100}
	account := okx.NewMockClient()
	// Buy resting right on the flat window's support level
	account.SetPendingOrders([]okx.PendingOrder{
		{InstID: "TEST-USDT-SWAP", Price: 99.5, Side: "buy"},
	})
	mon := newTestMonitor(market, account)
	state := NewCycleState()

	alerts := mon.RunCycle(context.Background(), state)

	advice := alertsOfType(alerts, AlertOrderAdvice)
	if len(advice) != 1 {
		t.Fatalf("Expected one order advice alert, got %+v", alerts)
	}
}

func TestAlertsCarryIDAndTimestamp(t *testing.T) {
	market := &flatMarket{price: 100}
	account := okx.NewMockClient()
	mon := newTestMonitor(market, account)
	state := NewCycleState()

	mon.RunCycle(context.Background(), state)
	account.SetBalance(20000)
	alerts := mon.RunCycle(context.Background(), state)

	if len(alerts) == 0 {
		t.Fatal("Expected at least one alert")
	}
	for _, a := range alerts {
		if a.ID.String() == "00000000-0000-0000-0000-000000000000" {
			t.Errorf("Alert missing ID: %+v", a)
		}
		if a.Timestamp.IsZero() {
			t.Errorf("Alert missing timestamp: %+v", a)
		}
	}
	if got := mon.LastAlerts(); len(got) != len(alerts) {
		t.Errorf("LastAlerts returned %d, want %d", len(got), len(alerts))
	}
}
