package signal

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseSide(t *testing.T) {
	cases := map[string]Side{
		"BUY": Buy, "buy": Buy, "1": Buy, "+1": Buy,
		"SELL": Sell, " sell ": Sell, "-1": Sell,
		"HOLD": Hold, "0": Hold, "": Hold,
	}
	for in, want := range cases {
		got, err := ParseSide(in)
		if err != nil {
			t.Fatalf("ParseSide(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseSide(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseSide("short"); err == nil {
		t.Fatalf("expected error for unknown side")
	}
}

func TestSideJSON(t *testing.T) {
	p := Point{Ts: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Side: Sell}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"ts":"2024-01-02T00:00:00Z","side":"SELL"}` {
		t.Fatalf("unexpected payload %s", raw)
	}
	var back Point
	if err := json.Unmarshal([]byte(`{"ts":"2024-01-02T00:00:00Z","side":"-1"}`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Side != Sell {
		t.Fatalf("expected SELL from numeric form, got %s", back.Side)
	}
	if err := json.Unmarshal([]byte(`{"side":"maybe"}`), &back); err == nil {
		t.Fatalf("expected error for unknown side")
	}
}
