// Package strategy turns ordered bar sequences into BUY/SELL/HOLD decisions.
package strategy

import (
	"fmt"
	"math"
	"time"

	"rangebot-go/internal/signal"
)

// Row is the per-bar diagnostic frame produced by Pipeline.Analyze. Undefined inputs are
// normalised to zero and flagged with HasRange / HasATR.
type Row struct {
	Ts       time.Time
	Close    float64
	Upper    float64
	Lower    float64
	HasRange bool
	ATR      float64
	HasATR   bool
	Raw      signal.Side
	Final    signal.Side
}

// Pipeline is the opening-range breakout strategy: session range, ATR buffer, breakout test
// and cooldown, applied left to right over an ordered bar sequence.
type Pipeline struct {
	params Params
	cfg    settings
}

// NewPipeline validates params and returns a ready pipeline.
func NewPipeline(params Params) (*Pipeline, error) {
	cfg, err := params.compile()
	if err != nil {
		return nil, err
	}
	return &Pipeline{params: params, cfg: cfg}, nil
}

// Name returns the identifier for logging.
func (p *Pipeline) Name() string { return "OpeningRangeBreakout" }

// Params returns the parameters the pipeline was built with.
func (p *Pipeline) Params() Params { return p.params }

// MinHistory is the trailing bar count a live caller should retain: enough to warm the ATR
// and to hold a whole session.
func (p *Pipeline) MinHistory() int {
	perDay := int(24 * time.Hour / p.cfg.interval)
	return p.cfg.atrPeriod + perDay + p.cfg.cooldownBars + 1
}

func (p *Pipeline) window() SessionWindow {
	return SessionWindow{
		Location: p.cfg.loc,
		Open:     p.cfg.openOffset,
		Lookback: p.cfg.lookback,
		MaxBars:  p.cfg.barsInWindow,
		Mode:     p.cfg.rangeMode,
	}
}

func (p *Pipeline) raw(bars []signal.Bar) ([]OpeningRange, []float64, []signal.Side) {
	ranges := SessionRanges(bars, p.window())
	atr := ATR(bars, p.cfg.atrPeriod)
	return ranges, atr, ClassifyAll(bars, ranges, atr, p.cfg.atrMultiplier)
}

// Analyze runs every stage over bars and returns one Row per bar in input order.
func (p *Pipeline) Analyze(bars []signal.Bar) ([]Row, error) {
	if err := ValidateBars(bars); err != nil {
		return nil, err
	}
	ranges, atr, raw := p.raw(bars)
	final, _ := Cooldown{Bars: p.cfg.cooldownBars}.Apply(raw, CooldownState{})

	rows := make([]Row, len(bars))
	for i, b := range bars {
		row := Row{Ts: b.Ts, Close: b.Close, Raw: raw[i], Final: final[i]}
		if ranges[i].Valid {
			row.Upper, row.Lower, row.HasRange = ranges[i].Upper, ranges[i].Lower, true
		}
		if !math.IsNaN(atr[i]) {
			row.ATR, row.HasATR = atr[i], true
		}
		rows[i] = row
	}
	return rows, nil
}

// Run returns the final (timestamp, side) series, one point per input bar.
func (p *Pipeline) Run(bars []signal.Bar) ([]signal.Point, error) {
	rows, err := p.Analyze(bars)
	if err != nil {
		return nil, err
	}
	points := make([]signal.Point, len(rows))
	for i, r := range rows {
		points[i] = signal.Point{Ts: r.Ts, Side: r.Final}
	}
	return points, nil
}

// Evaluate classifies the newest bar of history and applies the cooldown carried in st.
func (p *Pipeline) Evaluate(history []signal.Bar, st State) (signal.Side, State, error) {
	if len(history) == 0 {
		return signal.Hold, st, nil
	}
	if err := ValidateBars(history); err != nil {
		return signal.Hold, st, fmt.Errorf("evaluate %s: %w", p.Name(), err)
	}
	_, _, raw := p.raw(history)
	side, next := st.gate(history, raw[len(raw)-1], p.cfg)
	return side, next, nil
}
