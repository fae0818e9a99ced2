package strategy

import (
	"fmt"
	"math"

	"okx-market-monitor/internal/analysis"
	"okx-market-monitor/internal/okx"
)

type OrderRating string

const (
	RatingExcellent OrderRating = "excellent"
	RatingTooHigh   OrderRating = "too_high"
	RatingTooLow    OrderRating = "too_low"
	RatingNeutral   OrderRating = "neutral"
)

// OrderEvaluation rates the placement quality of a resting order against
// current price and structure.
type OrderEvaluation struct {
	Symbol       string      `json:"symbol"`
	OrderPrice   float64     `json:"order_price"`
	CurrentPrice float64     `json:"current_price"`
	Side         string      `json:"side"`
	Rating       OrderRating `json:"rating"`
	Comment      string      `json:"comment"`
}

// Placement thresholds: strictly closer than 1% to a level is well placed,
// more than 2% away from the reference is questionable.
const (
	levelProximityPct = 0.01
	priceDriftPct     = 0.02
)

// EvaluateOrder rates one pending order. Pure function; side is "buy" or
// "sell". A buy order is excellent near support, too high when chasing more
// than 2% above the current price, too low when parked more than 2% below
// support. A sell order is excellent near resistance and too low when more
// than 2% below the current price; there is no too-high rating for sells.
func EvaluateOrder(order okx.PendingOrder, currentPrice float64, latest analysis.Row) OrderEvaluation {
	eval := OrderEvaluation{
		Symbol:       order.InstID,
		OrderPrice:   order.Price,
		CurrentPrice: currentPrice,
		Side:         order.Side,
		Rating:       RatingNeutral,
		Comment:      "order placement looks reasonable",
	}

	support := latest.Structure.Support
	resistance := latest.Structure.Resistance

	switch order.Side {
	case "buy":
		if support > 0 && math.Abs(order.Price-support)/support < levelProximityPct {
			eval.Rating = RatingExcellent
			eval.Comment = fmt.Sprintf("buy order within 1%% of support ($%.4f)", support)
		} else if currentPrice > 0 && order.Price > currentPrice*(1+priceDriftPct) {
			eval.Rating = RatingTooHigh
			eval.Comment = "buy order more than 2% above current price, unlikely to fill favorably"
		} else if support > 0 && order.Price < support*(1-priceDriftPct) {
			eval.Rating = RatingTooLow
			eval.Comment = fmt.Sprintf("buy order more than 2%% below support ($%.4f), may wait indefinitely", support)
		}
	case "sell":
		if resistance > 0 && math.Abs(order.Price-resistance)/resistance < levelProximityPct {
			eval.Rating = RatingExcellent
			eval.Comment = fmt.Sprintf("sell order within 1%% of resistance ($%.4f)", resistance)
		} else if currentPrice > 0 && order.Price < currentPrice*(1-priceDriftPct) {
			eval.Rating = RatingTooLow
			eval.Comment = "sell order more than 2% below current price, giving up edge"
		}
	}

	return eval
}
