package strategy

import (
	"math"

	"rangebot-go/internal/signal"
)

// Classify compares a close against the opening range widened by multiplier*atr. Touching a
// boundary is not a breakout, and an undefined range or atr always yields Hold.
func Classify(close float64, rng OpeningRange, atr, multiplier float64) signal.Side {
	if !rng.Valid || math.IsNaN(atr) {
		return signal.Hold
	}
	buffer := multiplier * atr
	switch {
	case close > rng.Upper+buffer:
		return signal.Buy
	case close < rng.Lower-buffer:
		return signal.Sell
	default:
		return signal.Hold
	}
}

// ClassifyAll applies Classify bar by bar.
func ClassifyAll(bars []signal.Bar, ranges []OpeningRange, atr []float64, multiplier float64) []signal.Side {
	out := make([]signal.Side, len(bars))
	for i, b := range bars {
		out[i] = Classify(b.Close, ranges[i], atr[i], multiplier)
	}
	return out
}
