package monitor

import (
	"context"
	"fmt"
	"math"
	"time"

	"okx-market-monitor/config"
	"okx-market-monitor/internal/strategy"
)

// topScanInterval is how often the full opportunity scan runs; the regular
// cycle is much more frequent.
const topScanInterval = time.Hour

// RunCycle executes one full monitoring pass. All derived state is recomputed
// from fresh candle windows; the only cross-cycle memory is in state.
func (m *Monitor) RunCycle(ctx context.Context, state *CycleState) []Alert {
	start := time.Now()
	m.logger.Info().Msg("Monitoring cycle started")

	var alerts []Alert

	alerts = append(alerts, m.checkPriceAlerts(ctx, state)...)

	for _, account := range m.accounts {
		accountAlerts, err := m.monitorAccount(ctx, account, state)
		if err != nil {
			m.logger.Error().Err(err).Str("account", account.Config.Name).Msg("Account monitoring failed")
			continue
		}
		alerts = append(alerts, accountAlerts...)
	}

	alerts = append(alerts, m.checkEntrySignals(ctx)...)
	alerts = append(alerts, m.runTopScan(ctx)...)

	m.mu.Lock()
	m.lastAlerts = alerts
	m.mu.Unlock()

	m.logger.Info().
		Int("alerts", len(alerts)).
		Dur("duration", time.Since(start)).
		Msg("Monitoring cycle completed")

	return alerts
}

// checkPriceAlerts compares each watched symbol's latest close against the
// previous cycle: a close through support or resistance fires a breakdown or
// breakout alert, any other move past the threshold fires a volatility alert.
func (m *Monitor) checkPriceAlerts(ctx context.Context, state *CycleState) []Alert {
	var alerts []Alert

	for _, symbol := range m.cfg.Symbols {
		candles, err := m.market.GetCandles(symbol, m.signalCfg.OrderCandles)
		if err != nil {
			m.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch candles for price check")
			continue
		}
		if len(candles) < m.signalCfg.MinValidCandles {
			continue
		}

		frame := m.analyzer.Analyze(candles)
		latest, ok := frame.Latest()
		if !ok {
			continue
		}
		currentPrice := latest.Candle.Close

		if lastPrice, seen := state.LastPrices[symbol]; seen && lastPrice > 0 {
			changePct := (currentPrice - lastPrice) / lastPrice

			switch {
			case currentPrice < latest.Structure.Support && lastPrice >= latest.Structure.Support:
				alerts = append(alerts, m.emit(ctx, Alert{
					Type:    AlertBreakdown,
					Symbol:  symbol,
					Message: fmt.Sprintf("%s broke below support $%.2f, now $%.2f", symbol, latest.Structure.Support, currentPrice),
				}))
				m.notifyPriceMove(symbol, changePct*100, currentPrice)

			case currentPrice > latest.Structure.Resistance && lastPrice <= latest.Structure.Resistance:
				alerts = append(alerts, m.emit(ctx, Alert{
					Type:    AlertBreakout,
					Symbol:  symbol,
					Message: fmt.Sprintf("%s broke above resistance $%.2f, now $%.2f", symbol, latest.Structure.Resistance, currentPrice),
				}))
				m.notifyPriceMove(symbol, changePct*100, currentPrice)

			case math.Abs(changePct) > m.cfg.PriceAlertThreshold:
				alerts = append(alerts, m.emit(ctx, Alert{
					Type:    AlertVolatility,
					Symbol:  symbol,
					Message: fmt.Sprintf("%s moved %+.2f%% since last cycle, now $%.2f", symbol, changePct*100, currentPrice),
				}))
				m.notifyPriceMove(symbol, changePct*100, currentPrice)
			}
		}

		state.LastPrices[symbol] = currentPrice
	}

	return alerts
}

func (m *Monitor) notifyPriceMove(symbol string, changePct, price float64) {
	if err := m.notifier.SendPriceAlert(symbol, changePct, price); err != nil {
		m.logger.Warn().Err(err).Str("symbol", symbol).Msg("Price alert notification failed")
	}
}

// monitorAccount runs the per-account checks: balance anomaly, position exit
// evaluation and pending order review.
func (m *Monitor) monitorAccount(ctx context.Context, account Account, state *CycleState) ([]Alert, error) {
	var alerts []Alert
	name := account.Config.Name

	// Balance anomaly
	balance, err := account.Provider.GetBalance()
	if err != nil {
		return nil, fmt.Errorf("fetching balance for %s: %w", name, err)
	}
	if last, seen := state.LastBalances[name]; seen && balance > 0 && last > 0 {
		changePct := (balance - last) / last
		if math.Abs(changePct) > m.cfg.BalanceChangeThreshold {
			alerts = append(alerts, m.emit(ctx, Alert{
				Type:    AlertBalanceAnomaly,
				Account: name,
				Message: fmt.Sprintf("balance changed %+.2f%%, now %.2f USDT", changePct*100, balance),
				PnLPct:  changePct * 100,
			}))
			if err := m.notifier.SendBalanceAlert(name, changePct*100, balance); err != nil {
				m.logger.Warn().Err(err).Str("account", name).Msg("Balance alert notification failed")
			}
		}
	}
	state.LastBalances[name] = balance

	// Position exits
	positions, err := account.Provider.GetPositions()
	if err != nil {
		return alerts, fmt.Errorf("fetching positions for %s: %w", name, err)
	}
	for _, pos := range positions {
		if pos.Size == 0 {
			continue
		}
		candles, err := m.market.GetCandles(pos.InstID, m.signalCfg.ExitCandles)
		if err != nil {
			m.logger.Warn().Err(err).Str("symbol", pos.InstID).Msg("Failed to fetch candles for exit check")
			continue
		}
		frame := m.analyzer.Analyze(candles)
		for _, exitAlert := range strategy.EvaluateExit(pos, frame) {
			alerts = append(alerts, m.emit(ctx, Alert{
				Type:    AlertExit,
				Symbol:  exitAlert.Symbol,
				Account: name,
				Message: fmt.Sprintf("%s: %s", exitAlert.Type, exitAlert.Suggestion),
				PnLPct:  exitAlert.PnLPct,
			}))
			if err := m.notifier.SendExitAlert(exitAlert, name); err != nil {
				m.logger.Warn().Err(err).Str("symbol", exitAlert.Symbol).Msg("Exit alert notification failed")
			}
		}
	}

	// Pending order review
	orders, err := account.Provider.GetPendingOrders()
	if err != nil {
		return alerts, fmt.Errorf("fetching pending orders for %s: %w", name, err)
	}
	var flagged []strategy.OrderEvaluation
	for _, order := range orders {
		candles, err := m.market.GetCandles(order.InstID, m.signalCfg.OrderCandles)
		if err != nil {
			m.logger.Warn().Err(err).Str("symbol", order.InstID).Msg("Failed to fetch candles for order check")
			continue
		}
		frame := m.analyzer.Analyze(candles)
		latest, ok := frame.Latest()
		if !ok {
			continue
		}
		eval := strategy.EvaluateOrder(order, latest.Candle.Close, latest)
		if eval.Rating == strategy.RatingNeutral {
			continue
		}
		flagged = append(flagged, eval)
		alerts = append(alerts, m.emit(ctx, Alert{
			Type:    AlertOrderAdvice,
			Symbol:  eval.Symbol,
			Account: name,
			Message: fmt.Sprintf("%s order @ $%.4f rated %s: %s", eval.Side, eval.OrderPrice, eval.Rating, eval.Comment),
		}))
	}
	if len(flagged) > 0 {
		if err := m.notifier.SendOrderAdvice(flagged, name); err != nil {
			m.logger.Warn().Err(err).Str("account", name).Msg("Order advice notification failed")
		}
	}

	return alerts, nil
}

// checkEntrySignals evaluates the entry rule on every watched symbol and
// pushes the ones that pass the notification gate.
func (m *Monitor) checkEntrySignals(ctx context.Context) []Alert {
	var alerts []Alert

	for _, symbol := range m.cfg.Symbols {
		signal, err := m.generator.Generate(symbol)
		if err != nil {
			m.logger.Warn().Err(err).Str("symbol", symbol).Msg("Signal generation failed")
			continue
		}
		if signal == nil {
			continue
		}

		if m.repo != nil {
			if _, err := m.repo.SaveSignal(ctx, signal); err != nil {
				m.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to persist signal")
			}
		}

		alerts = append(alerts, m.emit(ctx, Alert{
			Type:    AlertEntrySignal,
			Symbol:  signal.Symbol,
			Message: fmt.Sprintf("%s signal @ $%.4f, confidence %d: %s", signal.Type, signal.EntryPrice, signal.Confidence, signal.Reason),
		}))

		if m.notifier.ShouldNotifyEntry(signal) {
			if err := m.notifier.SendEntrySignal(signal, m.accountLabel()); err != nil {
				m.logger.Warn().Err(err).Str("symbol", symbol).Msg("Entry signal notification failed")
			}
		}
	}

	return alerts
}

// runTopScan refreshes the opportunity ranking once per topScanInterval and
// notifies when the list clears the gate.
func (m *Monitor) runTopScan(ctx context.Context) []Alert {
	m.mu.RLock()
	due := time.Since(m.lastTopScan) >= topScanInterval
	m.mu.RUnlock()
	if !due {
		return nil
	}

	opportunities := m.scanner.Scan()

	m.mu.Lock()
	m.lastTopScan = time.Now()
	m.mu.Unlock()

	if m.repo != nil {
		for _, s := range opportunities {
			if _, err := m.repo.SaveSignal(ctx, s); err != nil {
				m.logger.Warn().Err(err).Str("symbol", s.Symbol).Msg("Failed to persist scanned signal")
			}
		}
	}

	if m.notifier.ShouldNotifyList(opportunities) {
		if err := m.notifier.SendOpportunities(opportunities); err != nil {
			m.logger.Warn().Err(err).Msg("Opportunity list notification failed")
		}
	}

	return nil
}

// accountLabel names the account entry signals are attributed to: the main
// account when configured, otherwise the first one.
func (m *Monitor) accountLabel() string {
	for _, a := range m.accounts {
		if a.Config.Type == config.AccountMain {
			return a.Config.Name
		}
	}
	if len(m.accounts) > 0 {
		return m.accounts[0].Config.Name
	}
	return "unconfigured"
}
