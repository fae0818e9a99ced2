// Package notification formats monitoring output into chat messages and
// decides when a message is worth sending at all.
package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"okx-market-monitor/internal/strategy"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifyOpportunities NotificationType = "opportunities"
	NotifyEntrySignal   NotificationType = "entry_signal"
	NotifyExitAlert     NotificationType = "exit_alert"
	NotifyOrderAdvice   NotificationType = "order_advice"
	NotifyPriceAlert    NotificationType = "price_alert"
	NotifyBalanceAlert  NotificationType = "balance_alert"
	NotifyInfo          NotificationType = "info"
)

// Notification represents a notification message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Symbol    string
	Timestamp time.Time
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager fans notifications out to every enabled provider and owns the
// should-we-notify decision rules.
type Manager struct {
	notifiers  []Notifier
	enabled    bool
	listFloor  int // minimum confidence for the top-list gate
	entryFloor int // minimum confidence for the single-entry gate
	logger     zerolog.Logger
}

// NewManager creates a notification manager. listFloor and entryFloor are
// the confidence thresholds used by ShouldNotifyList and ShouldNotifyEntry.
func NewManager(enabled bool, listFloor, entryFloor int, logger zerolog.Logger) *Manager {
	return &Manager{
		notifiers:  make([]Notifier, 0),
		enabled:    enabled,
		listFloor:  listFloor,
		entryFloor: entryFloor,
		logger:     logger.With().Str("component", "NotificationManager").Logger(),
	}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send sends a notification to all enabled providers
func (m *Manager) Send(notification *Notification) error {
	if !m.enabled {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if !n.IsEnabled() {
			continue
		}
		if err := n.Send(notification); err != nil {
			m.logger.Warn().Err(err).Str("provider", n.Name()).Msg("Notification delivery failed")
			lastErr = err
		}
	}
	return lastErr
}

// ShouldNotifyList reports whether a ranked opportunity list is worth a
// message: at least one entry must reach the list floor.
func (m *Manager) ShouldNotifyList(opportunities []*strategy.Signal) bool {
	for _, s := range opportunities {
		if s.Confidence >= m.listFloor {
			return true
		}
	}
	return false
}

// ShouldNotifyEntry reports whether a single signal is worth a message:
// confidence at or above the entry floor, and only for buys.
func (m *Manager) ShouldNotifyEntry(signal *strategy.Signal) bool {
	if signal == nil {
		return false
	}
	return signal.Confidence >= m.entryFloor && signal.Type == strategy.SignalBuy
}

// SendOpportunities sends the ranked opportunity list.
func (m *Manager) SendOpportunities(opportunities []*strategy.Signal) error {
	var sb strings.Builder
	for i, s := range opportunities {
		sb.WriteString(fmt.Sprintf("%d. %s %s @ $%.4f (confidence %d/100)\n   %s\n",
			i+1, s.Type, s.Symbol, s.EntryPrice, s.Confidence, s.Reason))
	}
	sb.WriteString("\nReview before placing any orders. Not investment advice.")

	return m.Send(&Notification{
		Type:      NotifyOpportunities,
		Title:     "Trade Opportunities",
		Message:   sb.String(),
		Timestamp: time.Now(),
	})
}

// SendEntrySignal sends one entry signal with its price levels.
func (m *Manager) SendEntrySignal(signal *strategy.Signal, account string) error {
	direction := "🟢 BUY"
	if signal.Type == strategy.SignalSell {
		direction = "🔴 SELL"
	}
	stars := strings.Repeat("⭐", signal.Confidence/20)

	message := fmt.Sprintf(
		"Symbol: %s\nDirection: %s\nConfidence: %d/100 %s\nEntry: $%.4f\nStop loss: $%.4f\nTake profit: $%.4f\nReason: %s\n\nAccount: %s",
		signal.Symbol, direction, signal.Confidence, stars,
		signal.EntryPrice, signal.StopLoss, signal.TakeProfit, signal.Reason, account)

	return m.Send(&Notification{
		Type:      NotifyEntrySignal,
		Title:     fmt.Sprintf("Entry Signal: %s", signal.Symbol),
		Message:   message,
		Symbol:    signal.Symbol,
		Timestamp: time.Now(),
	})
}

// SendExitAlert sends a take-profit or stop-loss suggestion for an open
// position.
func (m *Manager) SendExitAlert(alert strategy.ExitAlert, account string) error {
	message := fmt.Sprintf("%s %s position\nPnL: %+.2f%%\nSuggestion: %s\n\nAccount: %s",
		alert.Symbol, alert.Side, alert.PnLPct, alert.Suggestion, account)

	return m.Send(&Notification{
		Type:      NotifyExitAlert,
		Title:     fmt.Sprintf("Exit Alert: %s (%s)", alert.Symbol, alert.Type),
		Message:   message,
		Symbol:    alert.Symbol,
		Timestamp: time.Now(),
	})
}

// SendOrderAdvice sends placement feedback for pending orders that rated
// outside neutral.
func (m *Manager) SendOrderAdvice(evals []strategy.OrderEvaluation, account string) error {
	var sb strings.Builder
	for _, e := range evals {
		sb.WriteString(fmt.Sprintf("%s %s @ $%.4f [%s]: %s\n",
			e.Symbol, e.Side, e.OrderPrice, e.Rating, e.Comment))
	}
	sb.WriteString(fmt.Sprintf("\nCheck whether these orders need adjusting.\nAccount: %s", account))

	return m.Send(&Notification{
		Type:      NotifyOrderAdvice,
		Title:     "Pending Order Review",
		Message:   sb.String(),
		Timestamp: time.Now(),
	})
}

// SendPriceAlert sends a single-cycle price move alert.
func (m *Manager) SendPriceAlert(symbol string, changePct float64, price float64) error {
	direction := "breakout"
	if changePct < 0 {
		direction = "breakdown"
	}
	return m.Send(&Notification{
		Type:      NotifyPriceAlert,
		Title:     fmt.Sprintf("Price %s: %s", direction, symbol),
		Message:   fmt.Sprintf("%s moved %+.2f%% since last cycle, now $%.4f", symbol, changePct, price),
		Symbol:    symbol,
		Timestamp: time.Now(),
	})
}

// SendBalanceAlert sends a balance anomaly alert.
func (m *Manager) SendBalanceAlert(account string, changePct, balance float64) error {
	return m.Send(&Notification{
		Type:      NotifyBalanceAlert,
		Title:     fmt.Sprintf("Balance Anomaly: %s", account),
		Message:   fmt.Sprintf("Account balance changed %+.2f%% since last cycle, now %.2f USDT", changePct, balance),
		Timestamp: time.Now(),
	})
}
