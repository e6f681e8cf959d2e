package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
)

// Cache es una caché genérica con TTL. Un ttl <= 0 no expira nunca.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]cacheItem[V]
	ttl   time.Duration
	now   func() time.Time
}

type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

func NewCache[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]cacheItem[V]),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || c.expired(item) {
		var zero V
		return zero, false
	}
	return item.value, true
}

func (c *Cache[K, V]) Set(key K, value V) {
	item := c.newItem(value)
	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
}

// SetUnless guarda value salvo que keep devuelva true para el valor vigente
// (no expirado). La comparación y la escritura ocurren bajo el mismo lock.
// Devuelve si se escribió.
func (c *Cache[K, V]) SetUnless(key K, value V, keep func(cur V) bool) bool {
	item := c.newItem(value)
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.items[key]; ok && !c.expired(cur) && keep(cur.value) {
		return false
	}
	c.items[key] = item
	return true
}

func (c *Cache[K, V]) newItem(value V) cacheItem[V] {
	item := cacheItem[V]{value: value}
	if c.ttl > 0 {
		item.expiration = c.now().Add(c.ttl)
	}
	return item
}

// Purge elimina las entradas expiradas y devuelve cuántas borró.
func (c *Cache[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, item := range c.items {
		if c.expired(item) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// RunJanitor purga periódicamente hasta que ctx se cancela.
func (c *Cache[K, V]) RunJanitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}

func (c *Cache[K, V]) expired(item cacheItem[V]) bool {
	return !item.expiration.IsZero() && c.now().After(item.expiration)
}

// LatestCache implementa ports.LatestCache: última noticia puntuada por ticker.
type LatestCache struct {
	cache *Cache[string, domain.LatestNews]
}

// NewLatestCache crea la caché con el TTL dado.
func NewLatestCache(ttl time.Duration) *LatestCache {
	return &LatestCache{cache: NewCache[string, domain.LatestNews](ttl)}
}

func (l *LatestCache) Get(_ context.Context, ticker string) (domain.LatestNews, bool, error) {
	n, ok := l.cache.Get(domain.NormalizeTicker(ticker))
	return n, ok, nil
}

// Set guarda la noticia salvo que ya haya una más reciente para el ticker.
func (l *LatestCache) Set(_ context.Context, n domain.LatestNews) error {
	l.cache.SetUnless(domain.NormalizeTicker(n.Ticker), n, func(cur domain.LatestNews) bool {
		return cur.Date.After(n.Date)
	})
	return nil
}

// Janitor expone la caché subyacente para lanzar RunJanitor.
func (l *LatestCache) Janitor() *Cache[string, domain.LatestNews] {
	return l.cache
}
