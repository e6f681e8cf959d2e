// Package publish compone publishers de eventos: un registro en el log y un
// fan-out a varios destinos.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/alejandrodnm/stocksense/internal/ports"
)

// Log escribe cada evento publicado en el log estructurado.
type Log struct{}

func (Log) Publish(_ context.Context, events []domain.DomainEvent) error {
	for _, e := range events {
		attrs := []any{
			"event_id", e.ID,
			"aggregate_id", e.AggregateID,
			"version", e.Version,
			"type", string(e.Type()),
		}
		if f, ok := e.Payload.(domain.AssetFeelingDetected); ok {
			attrs = append(attrs, "ticker", f.Ticker, "score", f.Score)
		}
		slog.Info("event published", attrs...)
	}
	return nil
}

// Fanout entrega los eventos a todos los publishers aunque alguno falle.
type Fanout []ports.EventPublisher

// NewFanout descarta los publishers nil.
func NewFanout(publishers ...ports.EventPublisher) Fanout {
	out := make(Fanout, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (f Fanout) Publish(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("publish.Fanout: %w", err)
	}
	return nil
}
