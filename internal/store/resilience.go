package store

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// do runs one primary-store operation under the circuit breaker and retrier,
// bounded by the configured op timeout. A breaker-open result or a timeout is
// the same failure class as an I/O error. No in-process lock may be held
// across this call.
func (s *Store) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "store."+op, trace.WithAttributes(attribute.String("op", op)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.retrier.Run(ctx, func() error {
			return fn(ctx)
		})
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}
