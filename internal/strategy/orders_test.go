package strategy

import (
	"testing"

	"okx-market-monitor/internal/analysis"
	"okx-market-monitor/internal/okx"
)

func orderRow(support, resistance float64) analysis.Row {
	return analysis.Row{
		Structure: analysis.StructurePoint{Support: support, Resistance: resistance, HasLevels: true},
	}
}

func TestBuyOrderAtSupportIsExcellent(t *testing.T) {
	order := okx.PendingOrder{InstID: "BTC-USDT-SWAP", Price: 100, Side: "buy"}
	eval := EvaluateOrder(order, 105, orderRow(100, 120))

	if eval.Rating != RatingExcellent {
		t.Errorf("Expected excellent, got %s", eval.Rating)
	}
}

func TestBuyOrderWithinOnePercentOfSupport(t *testing.T) {
	order := okx.PendingOrder{InstID: "BTC-USDT-SWAP", Price: 100.9, Side: "buy"}
	eval := EvaluateOrder(order, 105, orderRow(100, 120))

	if eval.Rating != RatingExcellent {
		t.Errorf("Expected excellent within 1%% of support, got %s", eval.Rating)
	}
}

func TestBuyOrderAtExactProximityBoundaryNotExcellent(t *testing.T) {
	// Exactly 1% from support falls outside the strict proximity bound.
	order := okx.PendingOrder{InstID: "BTC-USDT-SWAP", Price: 101, Side: "buy"}
	eval := EvaluateOrder(order, 100, orderRow(100, 120))

	if eval.Rating != RatingNeutral {
		t.Errorf("Expected neutral at exactly 1%% from support, got %s", eval.Rating)
	}
}

func TestBuyOrderTooHigh(t *testing.T) {
	order := okx.PendingOrder{InstID: "BTC-USDT-SWAP", Price: 103, Side: "buy"}
	eval := EvaluateOrder(order, 100, orderRow(90, 120))

	if eval.Rating != RatingTooHigh {
		t.Errorf("Expected too_high at current*1.03, got %s", eval.Rating)
	}
}

func TestBuyOrderTooLow(t *testing.T) {
	order := okx.PendingOrder{InstID: "BTC-USDT-SWAP", Price: 97, Side: "buy"}
	eval := EvaluateOrder(order, 105, orderRow(100, 120))

	if eval.Rating != RatingTooLow {
		t.Errorf("Expected too_low at support*0.97, got %s", eval.Rating)
	}
}

func TestBuyOrderNeutral(t *testing.T) {
	order := okx.PendingOrder{InstID: "BTC-USDT-SWAP", Price: 99, Side: "buy"}
	eval := EvaluateOrder(order, 100, orderRow(95, 120))

	if eval.Rating != RatingNeutral {
		t.Errorf("Expected neutral, got %s", eval.Rating)
	}
}

func TestSellOrderAtResistanceIsExcellent(t *testing.T) {
	order := okx.PendingOrder{InstID: "BTC-USDT-SWAP", Price: 120, Side: "sell"}
	eval := EvaluateOrder(order, 110, orderRow(100, 120))

	if eval.Rating != RatingExcellent {
		t.Errorf("Expected excellent at resistance, got %s", eval.Rating)
	}
}

func TestSellOrderAtExactProximityBoundaryNotExcellent(t *testing.T) {
	order := okx.PendingOrder{InstID: "BTC-USDT-SWAP", Price: 101, Side: "sell"}
	eval := EvaluateOrder(order, 100, orderRow(90, 100))

	if eval.Rating != RatingNeutral {
		t.Errorf("Expected neutral at exactly 1%% from resistance, got %s", eval.Rating)
	}
}

func TestSellOrderTooLow(t *testing.T) {
	order := okx.PendingOrder{InstID: "BTC-USDT-SWAP", Price: 105, Side: "sell"}
	eval := EvaluateOrder(order, 110, orderRow(100, 125))

	if eval.Rating != RatingTooLow {
		t.Errorf("Expected too_low below current*0.98, got %s", eval.Rating)
	}
}

func TestSellOrderHasNoTooHighRating(t *testing.T) {
	// A sell parked far above both resistance and current price stays
	// neutral: the sell side deliberately has no too_high rating.
	order := okx.PendingOrder{InstID: "BTC-USDT-SWAP", Price: 150, Side: "sell"}
	eval := EvaluateOrder(order, 110, orderRow(100, 120))

	if eval.Rating != RatingNeutral {
		t.Errorf("Expected neutral for a high sell, got %s", eval.Rating)
	}
}
