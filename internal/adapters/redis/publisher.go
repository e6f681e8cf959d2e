package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alejandrodnm/stocksense/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Publisher implementa ports.EventPublisher con PUBLISH de un Envelope por evento.
type Publisher struct {
	client  *goredis.Client
	channel string
}

func NewPublisher(client *goredis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// Publish intenta publicar todos los eventos y devuelve los errores unidos.
func (p *Publisher) Publish(ctx context.Context, events []domain.DomainEvent) error {
	var errs []error
	for _, e := range events {
		env, err := NewEnvelope(e)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", e.ID, err))
			continue
		}
		msg, err := json.Marshal(env)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %s: marshal: %w", e.ID, err))
			continue
		}
		if err := p.client.Publish(ctx, p.channel, msg).Err(); err != nil {
			errs = append(errs, fmt.Errorf("event %s: publish: %w", e.ID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("redis.Publish: %w", err)
	}
	return nil
}
