package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
)

// ReadModel implementa ports.ReadModel en memoria.
type ReadModel struct {
	mu   sync.RWMutex
	rows map[string]domain.LatestNews
}

// NewReadModel crea un read model vacío.
func NewReadModel() *ReadModel {
	return &ReadModel{rows: make(map[string]domain.LatestNews)}
}

func (r *ReadModel) Get(_ context.Context, newsID string) (domain.LatestNews, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.rows[newsID]
	return n, ok, nil
}

// Save hace upsert salvo que la fila existente tenga una versión mayor.
func (r *ReadModel) Save(_ context.Context, n domain.LatestNews) error {
	if n.ID == "" || n.Ticker == "" {
		return fmt.Errorf("memory.Save: %w: news id and ticker are required", domain.ErrInvalidInput)
	}
	n.Ticker = domain.NormalizeTicker(n.Ticker)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.rows[n.ID]; ok && cur.StreamVersion > n.StreamVersion {
		return nil
	}
	r.rows[n.ID] = n
	return nil
}

// ByDateRange devuelve las noticias de [from, to), más recientes primero.
func (r *ReadModel) ByDateRange(_ context.Context, ticker string, from, to time.Time) ([]domain.LatestNews, error) {
	return r.filter(ticker, func(n domain.LatestNews) bool {
		return !n.Date.Before(from) && n.Date.Before(to)
	}, 0), nil
}

func (r *ReadModel) RecentForTicker(_ context.Context, ticker string, limit int) ([]domain.LatestNews, error) {
	return r.filter(ticker, func(domain.LatestNews) bool { return true }, domain.ClampRecentLimit(limit)), nil
}

func (r *ReadModel) filter(ticker string, keep func(domain.LatestNews) bool, limit int) []domain.LatestNews {
	ticker = domain.NormalizeTicker(ticker)

	r.mu.RLock()
	out := make([]domain.LatestNews, 0)
	for _, n := range r.rows {
		if n.Ticker == ticker && keep(n) {
			out = append(out, n)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
