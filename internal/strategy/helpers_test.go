package strategy

import (
	"math/rand"
	"testing"
	"time"

	"rangebot-go/internal/signal"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// ohlc is a compact bar literal: open, high, low, close.
type ohlc [4]float64

func barsFrom(start time.Time, interval time.Duration, rows ...ohlc) []signal.Bar {
	out := make([]signal.Bar, len(rows))
	for i, r := range rows {
		out[i] = signal.Bar{
			Ts:     start.Add(time.Duration(i) * interval),
			Open:   r[0],
			High:   r[1],
			Low:    r[2],
			Close:  r[3],
			Volume: 10,
		}
	}
	return out
}

func flatBars(start time.Time, n int, px float64) []signal.Bar {
	rows := make([]ohlc, n)
	for i := range rows {
		rows[i] = ohlc{px, px, px, px}
	}
	return barsFrom(start, 15*time.Minute, rows...)
}

// randomWalk produces several days of 15 minute bars with occasional jumps so that
// breakouts and cooldown suppression both occur.
func randomWalk(seed int64, n int) []signal.Bar {
	rng := rand.New(rand.NewSource(seed))
	px := 100.0
	rows := make([]ohlc, n)
	for i := range rows {
		open := px
		move := rng.NormFloat64() * 0.6
		if rng.Intn(12) == 0 {
			move *= 6
		}
		px = open + move
		if px < 1 {
			px = 1
		}
		high := max(open, px) + rng.Float64()*0.4
		low := min(open, px) - rng.Float64()*0.4
		if low <= 0 {
			low = 0.5
		}
		rows[i] = ohlc{open, high, low, px}
	}
	return barsFrom(day0, 15*time.Minute, rows...)
}

func testParams() Params {
	p := DefaultParams()
	p.LookbackMinutes = 30
	p.ATRPeriod = 2
	p.ATRMultiplier = 0
	p.CooldownHours = 1
	return p
}

func mustPipeline(t *testing.T, p Params) *Pipeline {
	t.Helper()
	pl, err := NewPipeline(p)
	if err != nil {
		t.Fatalf("NewPipeline returned error: %v", err)
	}
	return pl
}

func finals(rows []Row) []signal.Side {
	out := make([]signal.Side, len(rows))
	for i, r := range rows {
		out[i] = r.Final
	}
	return out
}
