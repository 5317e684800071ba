// Package signal standardizes payloads shared between data ingestion, strategy and sink layers.
package signal

import (
	"fmt"
	"strings"
	"time"
)

// Bar models one OHLCV observation for a fixed interval. Bars are produced by feeds or
// files and consumed read-only by strategies.
type Bar struct {
	Ts     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Side is the ternary decision attached to a bar.
type Side int

const (
	// Sell indicates a downside breakout.
	Sell Side = -1
	// Hold means no action.
	Hold Side = 0
	// Buy indicates an upside breakout.
	Buy Side = 1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// ParseSide accepts BUY/SELL/HOLD (any case) or the numeric forms +1/-1/0.
func ParseSide(v string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "BUY", "1", "+1":
		return Buy, nil
	case "SELL", "-1":
		return Sell, nil
	case "HOLD", "0", "":
		return Hold, nil
	default:
		return Hold, fmt.Errorf("unknown side %q", v)
	}
}

// MarshalText renders the side as BUY/SELL/HOLD for JSON and YAML payloads.
func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText is the inverse of MarshalText.
func (s *Side) UnmarshalText(b []byte) error {
	parsed, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Point pairs a bar timestamp with its final side.
type Point struct {
	Ts   time.Time `json:"ts"`
	Side Side      `json:"side"`
}

// Signal is the payload handed to sinks for the newest bar of a live run.
type Signal struct {
	Symbol string    `json:"symbol"`
	Side   Side      `json:"side"`
	Close  float64   `json:"close"`
	Reason string    `json:"reason,omitempty"`
	Ts     time.Time `json:"ts"`
}
