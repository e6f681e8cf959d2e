// Package redis agrupa los adaptadores sobre Redis: caché de la última
// noticia por ticker, publicación de eventos y escucha de altas de compañías.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Connect abre un cliente a partir de una URL redis:// y comprueba que responde.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis.Connect: parse url: %w", err)
	}
	client := goredis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis.Connect: ping: %w", err)
	}
	return client, nil
}

// Envelope es el mensaje publicado por cada evento de dominio.
type Envelope struct {
	EventID     string          `json:"eventId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	AggregateID string          `json:"aggregateId"`
	Version     int             `json:"version"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
}

// NewEnvelope serializa un evento de dominio.
func NewEnvelope(e domain.DomainEvent) (Envelope, error) {
	typ, payload, err := domain.EncodePayload(e.Payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:     e.ID,
		OccurredAt:  e.OccurredAt.UTC(),
		AggregateID: e.AggregateID,
		Version:     e.Version,
		Type:        string(typ),
		Payload:     payload,
	}, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("redis.%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}
