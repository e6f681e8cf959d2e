package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/stocksense/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// EventAssetCreated es el evento externo que da de alta una compañía.
const EventAssetCreated = "ASSET_CREATED"

// CompanyRegistrar es el subconjunto de companies.Service que usa el listener.
type CompanyRegistrar interface {
	Register(ctx context.Context, id, ticker, name string) (domain.Company, error)
}

type assetCreated struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// Listener consume envelopes de un canal y registra las compañías creadas.
type Listener struct {
	client    *goredis.Client
	channel   string
	registrar CompanyRegistrar
}

func NewListener(client *goredis.Client, channel string, registrar CompanyRegistrar) *Listener {
	return &Listener{client: client, channel: channel, registrar: registrar}
}

// Run escucha hasta que ctx se cancele. Los mensajes que fallan se
// registran en el log y se descartan.
func (l *Listener) Run(ctx context.Context) error {
	sub := l.client.Subscribe(ctx, l.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis.Listener: subscribe %s: %w", l.channel, err)
	}
	slog.Info("listening for company events", "channel", l.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			slog.Info("company listener stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := l.handle(ctx, []byte(msg.Payload)); err != nil {
				slog.Warn("company event dropped", "channel", l.channel, "err", err)
			}
		}
	}
}

func (l *Listener) handle(ctx context.Context, data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type != EventAssetCreated {
		return nil
	}
	var p assetCreated
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	if _, err := l.registrar.Register(ctx, env.AggregateID, p.Ticker, p.Name); err != nil {
		return fmt.Errorf("register %s: %w", p.Ticker, err)
	}
	return nil
}
