package strategy

import (
	"errors"
	"fmt"
	"math"
	"time"

	"rangebot-go/internal/signal"
)

var (
	// ErrConfig is wrapped by every ConfigError.
	ErrConfig = errors.New("invalid strategy configuration")
	// ErrMalformedBar is wrapped by every MalformedBarError.
	ErrMalformedBar = errors.New("malformed bar")
)

// ConfigError reports a parameter rejected before any bar is processed.
type ConfigError struct {
	Param  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %s", ErrConfig, e.Param, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// MalformedBarError identifies the first bar that made a batch unusable.
type MalformedBarError struct {
	Index  int
	Ts     time.Time
	Reason string
}

func (e *MalformedBarError) Error() string {
	return fmt.Sprintf("%s at index %d (%s): %s", ErrMalformedBar, e.Index, e.Ts.Format(time.RFC3339), e.Reason)
}

func (e *MalformedBarError) Unwrap() error { return ErrMalformedBar }

// ValidateBars rejects the whole batch on the first bar with a missing timestamp, a
// non-increasing timestamp, a non-positive or non-finite price, an inverted high/low, or an
// invalid volume.
func ValidateBars(bars []signal.Bar) error {
	for i, b := range bars {
		if b.Ts.IsZero() {
			return &MalformedBarError{Index: i, Ts: b.Ts, Reason: "missing timestamp"}
		}
		if i > 0 && !b.Ts.After(bars[i-1].Ts) {
			return &MalformedBarError{Index: i, Ts: b.Ts, Reason: fmt.Sprintf("timestamp not after previous bar %s", bars[i-1].Ts.Format(time.RFC3339))}
		}
		for _, px := range [...]struct {
			name string
			v    float64
		}{{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}} {
			if math.IsNaN(px.v) || math.IsInf(px.v, 0) || px.v <= 0 {
				return &MalformedBarError{Index: i, Ts: b.Ts, Reason: fmt.Sprintf("%s must be positive, got %v", px.name, px.v)}
			}
		}
		if b.High < b.Low {
			return &MalformedBarError{Index: i, Ts: b.Ts, Reason: fmt.Sprintf("high %v below low %v", b.High, b.Low)}
		}
		if math.IsNaN(b.Volume) || math.IsInf(b.Volume, 0) || b.Volume < 0 {
			return &MalformedBarError{Index: i, Ts: b.Ts, Reason: fmt.Sprintf("volume must be non-negative, got %v", b.Volume)}
		}
	}
	return nil
}
