package sink

import (
	"context"
	"sync"

	"rangebot-go/internal/signal"
)

// Ledger keeps emitted signals in memory along with per-side tallies. cmd/backtest prints
// its run summary from it.
type Ledger struct {
	mu      sync.Mutex
	signals []signal.Signal
	bySide  map[signal.Side]int
	last    map[string]signal.Signal
}

// NewLedger returns an empty ledger; capacity pre-sizes the signal slice.
func NewLedger(capacity int) *Ledger {
	return &Ledger{
		signals: make([]signal.Signal, 0, max(capacity, 0)),
		bySide:  make(map[signal.Side]int),
		last:    make(map[string]signal.Signal),
	}
}

func (l *Ledger) Emit(_ context.Context, sig signal.Signal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.signals = append(l.signals, sig)
	l.bySide[sig.Side]++
	l.last[sig.Symbol] = sig
	return nil
}

// Snapshot returns a copy of everything emitted so far, in emission order.
func (l *Ledger) Snapshot() []signal.Signal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]signal.Signal(nil), l.signals...)
}

// Counts reports how many BUY and SELL signals were emitted.
func (l *Ledger) Counts() (buys, sells int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bySide[signal.Buy], l.bySide[signal.Sell]
}

// Last returns the most recent signal for symbol.
func (l *Ledger) Last(symbol string) (signal.Signal, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sig, ok := l.last[symbol]
	return sig, ok
}

func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.signals = l.signals[:0]
	clear(l.bySide)
	clear(l.last)
}
