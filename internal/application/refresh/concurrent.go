package refresh

// Worker pool para refrescar todos los tickers en paralelo.

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/stocksense/internal/domain"
)

// refreshConcurrent pide la última noticia de cada compañía con un pool de
// workers. Devuelve un resultado por compañía, con el error si lo hubo.
//
// Si workers <= 0 usa runtime.NumCPU() × 2.
func refreshConcurrent(
	ctx context.Context,
	news LatestNews,
	companies []domain.Company,
	workers int,
) []domain.RefreshResult {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	workCh := make(chan domain.Company, len(companies))
	resultCh := make(chan domain.RefreshResult, len(companies))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range workCh {
				resultCh <- refreshOne(ctx, news, c)
			}
		}()
	}

	for _, c := range companies {
		workCh <- c
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]domain.RefreshResult, 0, len(companies))
	for res := range resultCh {
		results = append(results, res)
	}

	slog.Debug("concurrent refresh complete",
		"tickers", len(companies),
		"workers", workers,
	)
	return results
}

func refreshOne(ctx context.Context, news LatestNews, c domain.Company) domain.RefreshResult {
	if err := ctx.Err(); err != nil {
		return domain.RefreshResult{Ticker: c.Ticker, Err: err}
	}
	latest, err := news.GetLatestNews(ctx, c.Ticker)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Debug("no news for ticker", "ticker", c.Ticker)
		} else {
			slog.Warn("refresh failed", "ticker", c.Ticker, "err", err)
		}
		return domain.RefreshResult{Ticker: c.Ticker, Err: err}
	}
	return domain.RefreshResult{Ticker: c.Ticker, News: latest}
}
