package strategy

import (
	"fmt"

	"rangebot-go/internal/signal"
)

// Threshold buys when the close drops below a fixed level and sells when it rises above
// another, subject to the same cooldown as the breakout pipeline.
type Threshold struct {
	buyBelow  float64
	sellAbove float64
	cfg       settings
}

// NewThreshold builds a threshold strategy from params.BuyBelow and params.SellAbove.
func NewThreshold(params Params) (*Threshold, error) {
	cfg, err := params.compile()
	if err != nil {
		return nil, err
	}
	if params.BuyBelow <= 0 {
		return nil, &ConfigError{Param: "buy_below", Value: params.BuyBelow, Reason: "must be positive"}
	}
	if params.SellAbove < params.BuyBelow {
		return nil, &ConfigError{Param: "sell_above", Value: params.SellAbove, Reason: "must not be below buy_below"}
	}
	return &Threshold{buyBelow: params.BuyBelow, sellAbove: params.SellAbove, cfg: cfg}, nil
}

// Name returns the configured identifier for logging.
func (t *Threshold) Name() string { return "Threshold" }

// MinHistory keeps the cooldown window in memory.
func (t *Threshold) MinHistory() int { return t.cfg.cooldownBars + 1 }

// Evaluate compares the newest close against the two levels.
func (t *Threshold) Evaluate(history []signal.Bar, st State) (signal.Side, State, error) {
	if len(history) == 0 {
		return signal.Hold, st, nil
	}
	if err := ValidateBars(history); err != nil {
		return signal.Hold, st, fmt.Errorf("evaluate %s: %w", t.Name(), err)
	}
	side, next := st.gate(history, t.classify(history[len(history)-1].Close), t.cfg)
	return side, next, nil
}

// Analyze classifies every bar against the two levels and runs the batch cooldown. The
// range and ATR columns stay undefined.
func (t *Threshold) Analyze(bars []signal.Bar) ([]Row, error) {
	if err := ValidateBars(bars); err != nil {
		return nil, err
	}
	raw := make([]signal.Side, len(bars))
	for i, b := range bars {
		raw[i] = t.classify(b.Close)
	}
	final, _ := Cooldown{Bars: t.cfg.cooldownBars}.Apply(raw, CooldownState{})
	rows := make([]Row, len(bars))
	for i, b := range bars {
		rows[i] = Row{Ts: b.Ts, Close: b.Close, Raw: raw[i], Final: final[i]}
	}
	return rows, nil
}

func (t *Threshold) classify(px float64) signal.Side {
	switch {
	case px < t.buyBelow:
		return signal.Buy
	case px > t.sellAbove:
		return signal.Sell
	}
	return signal.Hold
}
