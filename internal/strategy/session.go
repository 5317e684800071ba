package strategy

import (
	"math"
	"time"

	"rangebot-go/internal/signal"
)

// OpeningRange is the reference range of one session. Valid is false when no bar of the
// session fell inside the opening window (or, in incremental mode, none has yet).
type OpeningRange struct {
	Upper float64
	Lower float64
	Valid bool
}

// SessionWindow describes where the opening window sits inside each calendar session.
type SessionWindow struct {
	Location *time.Location
	Open     time.Duration // offset from local midnight
	Lookback time.Duration
	MaxBars  int
	Mode     string
}

// SessionKey returns the calendar date of ts in loc, the grouping key for sessions.
func SessionKey(ts time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Format("2006-01-02")
}

// SessionRanges computes one OpeningRange per bar. Bars must already be ordered, so each
// session is a contiguous run.
func SessionRanges(bars []signal.Bar, w SessionWindow) []OpeningRange {
	if w.Location == nil {
		w.Location = time.UTC
	}
	out := make([]OpeningRange, len(bars))
	for start := 0; start < len(bars); {
		key := SessionKey(bars[start].Ts, w.Location)
		end := start + 1
		for end < len(bars) && SessionKey(bars[end].Ts, w.Location) == key {
			end++
		}
		w.fill(bars[start:end], out[start:end])
		start = end
	}
	return out
}

func (w SessionWindow) fill(session []signal.Bar, out []OpeningRange) {
	local := session[0].Ts.In(w.Location)
	// wall-clock open, so DST days keep the configured local time
	windowStart := time.Date(local.Year(), local.Month(), local.Day(),
		int(w.Open/time.Hour), int(w.Open%time.Hour/time.Minute), 0, 0, w.Location)
	windowEnd := windowStart.Add(w.Lookback)

	upper, lower := math.Inf(-1), math.Inf(1)
	taken := 0
	for i, b := range session {
		if taken < w.MaxBars && !b.Ts.Before(windowStart) && b.Ts.Before(windowEnd) {
			upper = math.Max(upper, b.High)
			lower = math.Min(lower, b.Low)
			taken++
		}
		if w.Mode == RangeIncremental && taken > 0 {
			out[i] = OpeningRange{Upper: upper, Lower: lower, Valid: true}
		}
	}
	if w.Mode == RangeIncremental || taken == 0 {
		return
	}
	for i := range out {
		out[i] = OpeningRange{Upper: upper, Lower: lower, Valid: true}
	}
}
