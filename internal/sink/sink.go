// Package sink delivers emitted signals to logs, files and storage.
package sink

import (
	"context"
	"errors"

	"rangebot-go/internal/signal"
)

// Sink consumes signals produced by the runner or a backtest.
type Sink interface {
	Emit(ctx context.Context, sig signal.Signal) error
}

// Multi fans a signal out to every sink. Every sink is tried; errors are joined.
type Multi []Sink

// Emit forwards sig to each member sink.
func (m Multi) Emit(ctx context.Context, sig signal.Signal) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, sig); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
