package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const latestKeyPrefix = "latest:"

// LatestCache implementa ports.LatestCache con una clave por ticker.
type LatestCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewLatestCache crea la caché; ttl <= 0 guarda sin expiración.
func NewLatestCache(client *goredis.Client, ttl time.Duration) *LatestCache {
	return &LatestCache{client: client, ttl: ttl}
}

func latestKey(ticker string) string {
	return latestKeyPrefix + domain.NormalizeTicker(ticker)
}

func (c *LatestCache) Get(ctx context.Context, ticker string) (domain.LatestNews, bool, error) {
	b, err := c.client.Get(ctx, latestKey(ticker)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.LatestNews{}, false, nil
	}
	if err != nil {
		return domain.LatestNews{}, false, unavailable("Get", err)
	}
	var n domain.LatestNews
	if err := json.Unmarshal(b, &n); err != nil {
		// Una entrada ilegible se trata como fallo de caché.
		return domain.LatestNews{}, false, nil
	}
	return n, true, nil
}

// Set guarda la noticia salvo que la caché ya tenga una más reciente.
// La comparación y la escritura van en una transacción WATCH para que dos
// writers no se pisen.
func (c *LatestCache) Set(ctx context.Context, n domain.LatestNews) error {
	key := latestKey(n.Ticker)
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("redis.Set: marshal: %w", err)
	}

	txf := func(tx *goredis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		if err == nil {
			var existing domain.LatestNews
			if json.Unmarshal(cur, &existing) == nil && existing.Date.After(n.Date) {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err = c.client.Watch(ctx, txf, key)
		if !errors.Is(err, goredis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return unavailable("Set "+key, err)
	}
	return nil
}
