package strategy

import (
	"math"
	"strings"
	"time"
)

// Range modes accepted by Params.RangeMode.
const (
	// RangeFullWindow assigns the completed opening-window range to every bar of the session,
	// including bars inside the window. It looks ahead and is meant for end-of-day analysis.
	RangeFullWindow = "full_window"
	// RangeIncremental only uses window bars observed up to the bar being classified.
	RangeIncremental = "incremental"
)

// Params expresses tunable knobs required by strategy constructors.
type Params struct {
	Interval        time.Duration
	LookbackMinutes int
	ATRPeriod       int
	ATRMultiplier   float64
	CooldownHours   float64
	SessionOpen     string // local "HH:MM" the opening window starts at
	Timezone        string // IANA name; empty means UTC
	RangeMode       string

	// Threshold strategy levels.
	BuyBelow  float64
	SellAbove float64
}

// DefaultParams returns the knobs used when the config leaves them out.
func DefaultParams() Params {
	return Params{
		Interval:        15 * time.Minute,
		LookbackMinutes: 30,
		ATRPeriod:       14,
		ATRMultiplier:   0.5,
		CooldownHours:   2,
		SessionOpen:     "00:00",
		Timezone:        "UTC",
		RangeMode:       RangeFullWindow,
	}
}

// settings is the validated, derived form of Params.
type settings struct {
	interval      time.Duration
	lookback      time.Duration
	barsInWindow  int
	atrPeriod     int
	atrMultiplier float64
	cooldownBars  int
	openOffset    time.Duration
	loc           *time.Location
	rangeMode     string
}

// Validate reports the first configuration problem, if any.
func (p Params) Validate() error {
	_, err := p.compile()
	return err
}

// BarsInWindow is lookback_minutes expressed in bars. It is zero for invalid params.
func (p Params) BarsInWindow() int {
	s, err := p.compile()
	if err != nil {
		return 0
	}
	return s.barsInWindow
}

// CooldownBars is cooldown_hours expressed in bars. It is zero for invalid params.
func (p Params) CooldownBars() int {
	s, err := p.compile()
	if err != nil {
		return 0
	}
	return s.cooldownBars
}

func (p Params) compile() (settings, error) {
	var s settings
	if p.Interval <= 0 {
		return s, &ConfigError{Param: "interval", Value: p.Interval, Reason: "must be positive"}
	}
	s.interval = p.Interval

	if p.ATRPeriod <= 0 {
		return s, &ConfigError{Param: "atr_period", Value: p.ATRPeriod, Reason: "must be positive"}
	}
	s.atrPeriod = p.ATRPeriod

	if math.IsNaN(p.ATRMultiplier) || math.IsInf(p.ATRMultiplier, 0) || p.ATRMultiplier < 0 {
		return s, &ConfigError{Param: "atr_multiplier", Value: p.ATRMultiplier, Reason: "must be a finite non-negative number"}
	}
	s.atrMultiplier = p.ATRMultiplier

	if p.LookbackMinutes <= 0 {
		return s, &ConfigError{Param: "lookback_minutes", Value: p.LookbackMinutes, Reason: "must be positive"}
	}
	s.lookback = time.Duration(p.LookbackMinutes) * time.Minute
	if s.lookback%p.Interval != 0 {
		return s, &ConfigError{Param: "lookback_minutes", Value: p.LookbackMinutes, Reason: "not a multiple of interval " + p.Interval.String()}
	}
	s.barsInWindow = int(s.lookback / p.Interval)

	if math.IsNaN(p.CooldownHours) || math.IsInf(p.CooldownHours, 0) || p.CooldownHours <= 0 {
		return s, &ConfigError{Param: "cooldown_hours", Value: p.CooldownHours, Reason: "must be positive"}
	}
	cooldown := time.Duration(math.Round(p.CooldownHours*3600)) * time.Second
	if cooldown <= 0 || cooldown%p.Interval != 0 {
		return s, &ConfigError{Param: "cooldown_hours", Value: p.CooldownHours, Reason: "not a multiple of interval " + p.Interval.String()}
	}
	s.cooldownBars = int(cooldown / p.Interval)

	open := strings.TrimSpace(p.SessionOpen)
	if open == "" {
		open = "00:00"
	}
	at, err := time.Parse("15:04", open)
	if err != nil {
		return s, &ConfigError{Param: "session_open", Value: p.SessionOpen, Reason: "expected HH:MM"}
	}
	s.openOffset = time.Duration(at.Hour())*time.Hour + time.Duration(at.Minute())*time.Minute

	tz := strings.TrimSpace(p.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return s, &ConfigError{Param: "timezone", Value: p.Timezone, Reason: err.Error()}
	}
	s.loc = loc

	switch mode := strings.ToLower(strings.TrimSpace(p.RangeMode)); mode {
	case "", RangeFullWindow:
		s.rangeMode = RangeFullWindow
	case RangeIncremental:
		s.rangeMode = RangeIncremental
	default:
		return s, &ConfigError{Param: "range_mode", Value: p.RangeMode, Reason: "expected full_window or incremental"}
	}
	return s, nil
}
