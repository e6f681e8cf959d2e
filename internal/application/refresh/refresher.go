// Package refresh pide periódicamente la última noticia de cada compañía
// seguida para mantener el read model y la caché calientes.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/alejandrodnm/stocksense/internal/ports"
)

// Config contiene la configuración del refresher.
type Config struct {
	Interval time.Duration
	Workers  int // goroutines para refresco paralelo (0 = NumCPU*2)
	Once     bool
}

// LatestNews es el subconjunto de news.Service que usa el refresher.
type LatestNews interface {
	GetLatestNews(ctx context.Context, ticker string) (domain.LatestNews, error)
}

// Refresher es el loop de refresco.
type Refresher struct {
	cfg       Config
	directory ports.CompanyDirectory
	news      LatestNews
	notifier  ports.Notifier
}

// New crea un Refresher con todas las dependencias inyectadas.
func New(cfg Config, directory ports.CompanyDirectory, news LatestNews, notifier ports.Notifier) *Refresher {
	return &Refresher{
		cfg:       cfg,
		directory: directory,
		news:      news,
		notifier:  notifier,
	}
}

// Run ejecuta ciclos hasta que el contexto se cancele.
// Si cfg.Once está activo, solo ejecuta un ciclo.
func (r *Refresher) Run(ctx context.Context) error {
	slog.Info("refresher starting",
		"interval", r.cfg.Interval,
		"once", r.cfg.Once,
		"workers", r.cfg.Workers,
	)

	if err := r.runCycle(ctx); err != nil {
		slog.Error("refresh cycle failed", "err", err)
		if r.cfg.Once {
			return err
		}
	}
	if r.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresher stopped")
			return nil
		case <-ticker.C:
			if err := r.runCycle(ctx); err != nil {
				slog.Error("refresh cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta exactamente un ciclo y devuelve los resultados ordenados por ticker.
func (r *Refresher) RunOnce(ctx context.Context) ([]domain.RefreshResult, error) {
	companies, err := r.directory.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh.RunOnce: list companies: %w", err)
	}
	results := refreshConcurrent(ctx, r.news, companies, r.cfg.Workers)
	sort.Slice(results, func(i, j int) bool { return results[i].Ticker < results[j].Ticker })
	return results, nil
}

// runCycle ejecuta un ciclo y notifica el resultado.
func (r *Refresher) runCycle(ctx context.Context) error {
	start := time.Now()

	results, err := r.RunOnce(ctx)
	if err != nil {
		return err
	}

	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, results); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	ok, missing, failed := countOutcomes(results)
	slog.Info("refresh cycle complete",
		"tickers", len(results),
		"ok", ok,
		"no_news", missing,
		"failed", failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func countOutcomes(results []domain.RefreshResult) (ok, missing, failed int) {
	for _, res := range results {
		switch {
		case res.OK():
			ok++
		case errors.Is(res.Err, domain.ErrNotFound):
			missing++
		default:
			failed++
		}
	}
	return
}
