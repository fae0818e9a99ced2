// Package monitor drives the periodic watch cycle: price alerts, balance
// anomaly detection, position exit checks, pending order review, entry
// signals and the hourly opportunity scan.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"okx-market-monitor/config"
	"okx-market-monitor/internal/alertlog"
	"okx-market-monitor/internal/analysis"
	"okx-market-monitor/internal/notification"
	"okx-market-monitor/internal/okx"
	"okx-market-monitor/internal/scanner"
	"okx-market-monitor/internal/strategy"
)

// AlertType classifies monitor cycle output.
type AlertType string

const (
	AlertBreakout       AlertType = "breakout"
	AlertBreakdown      AlertType = "breakdown"
	AlertVolatility     AlertType = "volatility"
	AlertBalanceAnomaly AlertType = "balance_anomaly"
	AlertExit           AlertType = "exit"
	AlertOrderAdvice    AlertType = "order_advice"
	AlertEntrySignal    AlertType = "entry_signal"
)

// Alert is one monitoring finding, shaped for logging, persistence and
// websocket broadcast alike.
type Alert struct {
	ID        uuid.UUID `json:"id"`
	Type      AlertType `json:"type"`
	Symbol    string    `json:"symbol,omitempty"`
	Account   string    `json:"account,omitempty"`
	Message   string    `json:"message"`
	PnLPct    float64   `json:"pnl_pct,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CycleState carries the only memory that survives between cycles: the
// previous cycle's observed prices and per-account balances. Created once at
// startup, threaded through every cycle, discarded at shutdown.
type CycleState struct {
	LastPrices   map[string]float64
	LastBalances map[string]float64
}

func NewCycleState() *CycleState {
	return &CycleState{
		LastPrices:   make(map[string]float64),
		LastBalances: make(map[string]float64),
	}
}

// Account pairs an account's configuration with its API access.
type Account struct {
	Config   config.AccountConfig
	Provider okx.Provider
}

// Broadcaster pushes alerts to connected live consumers. Optional.
type Broadcaster interface {
	BroadcastAlert(alert Alert)
}

// SignalSource evaluates the entry rule for one instrument.
type SignalSource interface {
	Generate(instID string) (*strategy.Signal, error)
}

// Monitor owns the periodic cycle.
type Monitor struct {
	accounts  []Account
	market    okx.MarketDataProvider
	analyzer  *analysis.Analyzer
	generator SignalSource
	scanner   *scanner.Scanner
	notifier  *notification.Manager
	repo      *alertlog.Repository // nil when persistence is disabled
	broadcast Broadcaster          // nil when no live consumers
	signalCfg config.SignalConfig
	cfg       config.MonitorConfig
	logger    zerolog.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup

	mu          sync.RWMutex
	lastTopScan time.Time
	lastAlerts  []Alert
}

func New(
	accounts []Account,
	market okx.MarketDataProvider,
	analyzer *analysis.Analyzer,
	generator SignalSource,
	sc *scanner.Scanner,
	notifier *notification.Manager,
	repo *alertlog.Repository,
	broadcast Broadcaster,
	signalCfg config.SignalConfig,
	cfg config.MonitorConfig,
	logger zerolog.Logger,
) *Monitor {
	return &Monitor{
		accounts:  accounts,
		market:    market,
		analyzer:  analyzer,
		generator: generator,
		scanner:   sc,
		notifier:  notifier,
		repo:      repo,
		broadcast: broadcast,
		signalCfg: signalCfg,
		cfg:       cfg,
		logger:    logger.With().Str("component", "Monitor").Logger(),
		stopChan:  make(chan struct{}),
	}
}

// Start begins the background monitoring loop.
func (m *Monitor) Start(state *CycleState) {
	m.wg.Add(1)
	go m.runLoop(state)
	m.logger.Info().
		Dur("interval", m.cfg.Interval()).
		Int("symbols", len(m.cfg.Symbols)).
		Int("accounts", len(m.accounts)).
		Msg("Monitor started")
}

func (m *Monitor) runLoop(state *CycleState) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval())
	defer ticker.Stop()

	// Run immediately
	m.RunCycle(context.Background(), state)

	for {
		select {
		case <-ticker.C:
			m.RunCycle(context.Background(), state)
		case <-m.stopChan:
			m.logger.Info().Msg("Monitor stopped")
			return
		}
	}
}

// Stop gracefully shuts down the monitor.
func (m *Monitor) Stop() {
	close(m.stopChan)
	m.wg.Wait()
}

// LastAlerts returns the alerts from the most recent completed cycle.
func (m *Monitor) LastAlerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Alert, len(m.lastAlerts))
	copy(out, m.lastAlerts)
	return out
}

// emit stamps, records, persists and broadcasts one alert.
func (m *Monitor) emit(ctx context.Context, alert Alert) Alert {
	alert.ID = uuid.New()
	alert.Timestamp = time.Now()

	m.logger.Info().
		Str("type", string(alert.Type)).
		Str("symbol", alert.Symbol).
		Str("account", alert.Account).
		Msg(alert.Message)

	if m.repo != nil {
		if _, err := m.repo.SaveAlert(ctx, string(alert.Type), alert.Symbol, alert.Account, string(alert.Type), alert.Message, alert.PnLPct); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to persist alert")
		}
	}
	if m.broadcast != nil {
		m.broadcast.BroadcastAlert(alert)
	}
	return alert
}
