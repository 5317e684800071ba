package sink

import (
	"context"

	"github.com/rs/zerolog"

	"rangebot-go/internal/signal"
)

// Log writes signals to a zerolog logger. It stands where an order router would sit.
type Log struct{ log zerolog.Logger }

// NewLog wraps a zerolog logger.
func NewLog(log zerolog.Logger) *Log { return &Log{log: log} }

// Emit logs BUY/SELL at info and HOLD at debug.
func (l *Log) Emit(_ context.Context, sig signal.Signal) error {
	ev := l.log.Info()
	if sig.Side == signal.Hold {
		ev = l.log.Debug()
	}
	ev.Str("sym", sig.Symbol).
		Str("side", sig.Side.String()).
		Float64("close", sig.Close).
		Time("bar", sig.Ts).
		Str("reason", sig.Reason).
		Msg("signal")
	return nil
}
