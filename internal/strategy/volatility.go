package strategy

import (
	"math"

	"rangebot-go/internal/signal"
)

// TrueRange returns the per-bar true range. The first bar has no previous close and uses
// high minus low.
func TrueRange(bars []signal.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		tr := b.High - b.Low
		if i > 0 {
			prevClose := bars[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
		}
		out[i] = tr
	}
	return out
}

// ATR is the trailing mean of true range over period bars, inclusive of the current bar.
// The first period-1 values are NaN. The window spans session boundaries.
func ATR(bars []signal.Bar, period int) []float64 {
	out := make([]float64, len(bars))
	if period <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	tr := TrueRange(bars)
	var sum float64
	for i := range tr {
		sum += tr[i]
		if i >= period {
			sum -= tr[i-period]
		}
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		// Rolling subtraction can leave a tiny negative residue on flat data.
		out[i] = math.Max(0, sum/float64(period))
	}
	return out
}
