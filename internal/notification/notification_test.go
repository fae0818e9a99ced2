package notification

import (
	"testing"

	"github.com/rs/zerolog"

	"okx-market-monitor/internal/strategy"
)

// recorder captures notifications instead of delivering them.
type recorder struct {
	sent []*Notification
}

func (r *recorder) Send(n *Notification) error { r.sent = append(r.sent, n); return nil }
func (r *recorder) Name() string               { return "recorder" }
func (r *recorder) IsEnabled() bool            { return true }

func newTestManager() (*Manager, *recorder) {
	m := NewManager(true, 70, 65, zerolog.Nop())
	rec := &recorder{}
	m.AddNotifier(rec)
	return m, rec
}

func TestShouldNotifyListNeedsHighConfidence(t *testing.T) {
	m, _ := newTestManager()

	low := []*strategy.Signal{
		{Type: strategy.SignalBuy, Symbol: "A", Confidence: 65},
		{Type: strategy.SignalBuy, Symbol: "B", Confidence: 69},
	}
	if m.ShouldNotifyList(low) {
		t.Error("List with nothing at 70+ must not notify")
	}

	mixed := append(low, &strategy.Signal{Type: strategy.SignalSell, Symbol: "C", Confidence: 70})
	if !m.ShouldNotifyList(mixed) {
		t.Error("One entry at 70 is enough to notify")
	}

	if m.ShouldNotifyList(nil) {
		t.Error("Empty list must not notify")
	}
}

func TestShouldNotifyEntryBuysOnly(t *testing.T) {
	m, _ := newTestManager()

	buy := &strategy.Signal{Type: strategy.SignalBuy, Symbol: "A", Confidence: 65}
	if !m.ShouldNotifyEntry(buy) {
		t.Error("BUY at the floor must notify")
	}

	lowBuy := &strategy.Signal{Type: strategy.SignalBuy, Symbol: "A", Confidence: 64}
	if m.ShouldNotifyEntry(lowBuy) {
		t.Error("BUY below the floor must not notify")
	}

	sell := &strategy.Signal{Type: strategy.SignalSell, Symbol: "A", Confidence: 90}
	if m.ShouldNotifyEntry(sell) {
		t.Error("SELL signals never pass the entry gate")
	}

	if m.ShouldNotifyEntry(nil) {
		t.Error("Nil signal must not notify")
	}
}

func TestManagerFansOut(t *testing.T) {
	m, rec := newTestManager()
	second := &recorder{}
	m.AddNotifier(second)

	if err := m.SendPriceAlert("BTC-USDT-SWAP", 2.5, 65000); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rec.sent) != 1 || len(second.sent) != 1 {
		t.Errorf("Expected both notifiers to receive the message, got %d and %d", len(rec.sent), len(second.sent))
	}
	if rec.sent[0].Type != NotifyPriceAlert {
		t.Errorf("Expected price alert type, got %s", rec.sent[0].Type)
	}
}

func TestDisabledManagerSendsNothing(t *testing.T) {
	m := NewManager(false, 70, 65, zerolog.Nop())
	rec := &recorder{}
	m.AddNotifier(rec)

	if err := m.SendBalanceAlert("main", -6.5, 940); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rec.sent) != 0 {
		t.Errorf("Disabled manager must not deliver, got %d", len(rec.sent))
	}
}

func TestSendEntrySignalFormatsLevels(t *testing.T) {
	m, rec := newTestManager()
	signal := &strategy.Signal{
		Type:       strategy.SignalBuy,
		Symbol:     "BTC-USDT-SWAP",
		EntryPrice: 65000,
		StopLoss:   62855,
		TakeProfit: 70460,
		Confidence: 75,
		Reason:     "price near support + bullish reversal + above EMA",
	}

	if err := m.SendEntrySignal(signal, "main"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rec.sent) != 1 {
		t.Fatalf("Expected one notification, got %d", len(rec.sent))
	}
	got := rec.sent[0]
	if got.Type != NotifyEntrySignal || got.Symbol != "BTC-USDT-SWAP" {
		t.Errorf("Unexpected notification: %+v", got)
	}
}

func TestDisabledNotifiersSkipped(t *testing.T) {
	feishu := NewFeishuNotifier(FeishuConfig{Enabled: true, WebhookURL: ""})
	if feishu.IsEnabled() {
		t.Error("Feishu without a webhook URL must be disabled")
	}
	telegram := NewTelegramNotifier(TelegramConfig{Enabled: true, BotToken: "x", ChatID: ""})
	if telegram.IsEnabled() {
		t.Error("Telegram without a chat ID must be disabled")
	}
}
