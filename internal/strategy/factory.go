package strategy

import (
	"sort"
	"strings"
	"time"

	"rangebot-go/internal/signal"
)

// Strategy defines behaviour shared by strategy implementations used by the bot. Evaluate
// classifies the newest bar of history and returns the cooldown state to pass to the next call.
type Strategy interface {
	Evaluate(history []signal.Bar, st State) (signal.Side, State, error)
	Name() string
}

// State is carried between Evaluate calls. A zero LastFire means nothing has fired yet.
// Suppressed counts raw signals the cooldown has held back so far.
type State struct {
	LastFire   time.Time
	Suppressed int
}

// gate applies the cooldown to the newest bar of history. When the last fire is still
// inside history the distance is counted in bars; older fires fall back to elapsed time.
func (st State) gate(history []signal.Bar, raw signal.Side, cfg settings) (signal.Side, State) {
	newest := history[len(history)-1]
	if !st.LastFire.IsZero() && barsSince(history, st.LastFire, cfg.interval) <= cfg.cooldownBars {
		if raw != signal.Hold {
			st.Suppressed++
		}
		return signal.Hold, st
	}
	if raw != signal.Hold {
		st.LastFire = newest.Ts
	}
	return raw, st
}

func barsSince(history []signal.Bar, at time.Time, interval time.Duration) int {
	n := len(history)
	newest := history[n-1].Ts
	if !at.Before(newest) {
		return 0
	}
	if at.Before(history[0].Ts) {
		return int(newest.Sub(at) / interval)
	}
	j := sort.Search(n, func(k int) bool { return !history[k].Ts.Before(at) })
	if history[j].Ts.Equal(at) {
		return n - 1 - j
	}
	return n - j
}

// Build returns a strategy implementation matching the configured mode.
func Build(mode string, params Params) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "orb", "opening_range", "opening_range_breakout":
		return NewPipeline(params)
	case "threshold", "simple":
		return NewThreshold(params)
	default:
		return nil, &ConfigError{Param: "mode", Value: mode, Reason: "expected opening_range or threshold"}
	}
}
