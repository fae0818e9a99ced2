package alertlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"okx-market-monitor/internal/strategy"
)

// AlertRecord is one persisted alert row.
type AlertRecord struct {
	ID        uuid.UUID `json:"id"`
	AlertType string    `json:"alert_type"`
	Symbol    string    `json:"symbol"`
	Account   string    `json:"account"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	PnLPct    float64   `json:"pnl_pct"`
	CreatedAt time.Time `json:"created_at"`
}

// SignalRecord is one persisted signal row.
type SignalRecord struct {
	ID         uuid.UUID `json:"id"`
	SignalType string    `json:"signal_type"`
	Symbol     string    `json:"symbol"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Confidence int       `json:"confidence"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository provides alert and signal persistence.
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveAlert persists one alert and returns its generated ID.
func (r *Repository) SaveAlert(ctx context.Context, alertType, symbol, account, title, message string, pnlPct float64) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO alerts (id, alert_type, symbol, account, title, message, pnl_pct)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, alertType, symbol, account, title, message, pnlPct)
	if err != nil {
		return uuid.Nil, fmt.Errorf("saving alert: %w", err)
	}
	return id, nil
}

// SaveSignal persists one generated signal.
func (r *Repository) SaveSignal(ctx context.Context, s *strategy.Signal) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO signals (id, signal_type, symbol, entry_price, stop_loss, take_profit, confidence, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, string(s.Type), s.Symbol, s.EntryPrice, s.StopLoss, s.TakeProfit, s.Confidence, s.Reason)
	if err != nil {
		return uuid.Nil, fmt.Errorf("saving signal: %w", err)
	}
	return id, nil
}

// ListRecentAlerts returns the newest alerts, most recent first.
func (r *Repository) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, alert_type, COALESCE(symbol, ''), COALESCE(account, ''), title, message, COALESCE(pnl_pct, 0), created_at
		 FROM alerts ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	var records []AlertRecord
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(&rec.ID, &rec.AlertType, &rec.Symbol, &rec.Account, &rec.Title, &rec.Message, &rec.PnLPct, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning alert row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListRecentSignals returns the newest signals, most recent first.
func (r *Repository) ListRecentSignals(ctx context.Context, limit int) ([]SignalRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, signal_type, symbol, entry_price, stop_loss, take_profit, confidence, COALESCE(reason, ''), created_at
		 FROM signals ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing signals: %w", err)
	}
	defer rows.Close()

	var records []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		if err := rows.Scan(&rec.ID, &rec.SignalType, &rec.Symbol, &rec.EntryPrice, &rec.StopLoss, &rec.TakeProfit, &rec.Confidence, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning signal row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
