package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
)

// DefaultCompanies es el directorio de -dry-run.
var DefaultCompanies = []domain.Company{
	{ID: "AAPL", Ticker: "AAPL", Name: "Apple Inc."},
	{ID: "MSFT", Ticker: "MSFT", Name: "Microsoft Corporation"},
	{ID: "AMZN", Ticker: "AMZN", Name: "Amazon.com, Inc."},
	{ID: "GOOGL", Ticker: "GOOGL", Name: "Alphabet Inc."},
	{ID: "NVDA", Ticker: "NVDA", Name: "NVIDIA Corporation"},
	{ID: "TSLA", Ticker: "TSLA", Name: "Tesla, Inc."},
	{ID: "NFLX", Ticker: "NFLX", Name: "Netflix, Inc."},
	{ID: "ADBE", Ticker: "ADBE", Name: "Adobe Inc."},
	{ID: "INTC", Ticker: "INTC", Name: "Intel Corporation"},
}

// DefaultNews son las noticias fijas de -dry-run, en orden cronológico.
var DefaultNews = map[string][]domain.News{
	"NFLX": {
		{
			ID:     "NFLX-2024-04-06T12:00:00Z-1",
			Ticker: "NFLX",
			Date:   time.Date(2024, 4, 6, 12, 0, 0, 0, time.UTC),
			Title:  "Netflix hits new subscriber record",
			URL:    "https://example.com/netflix-news1",
		},
		{
			ID:     "NFLX-2024-04-07T09:30:00Z-2",
			Ticker: "NFLX",
			Date:   time.Date(2024, 4, 7, 9, 30, 0, 0, time.UTC),
			Title:  "Netflix announces price increase",
			URL:    "https://example.com/netflix-news2",
		},
	},
}

// DefaultPrices son los precios fijos de -dry-run.
var DefaultPrices = map[string][]domain.HistoricalPrice{
	"AAPL": {
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Open: 130.0, Close: 132.5},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 132.5, Close: 135.0},
	},
	"MSFT": {
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Open: 220.0, Close: 225.0},
	},
}

// --- Directory ---

// Directory implementa ports.CompanyDirectory y ports.CompanyInfo.
type Directory struct {
	mu        sync.RWMutex
	companies map[string]domain.Company // por ticker
}

// NewDirectory crea un directorio con las compañías dadas.
func NewDirectory(companies ...domain.Company) *Directory {
	d := &Directory{companies: make(map[string]domain.Company, len(companies))}
	for _, c := range companies {
		_ = d.Save(context.Background(), c)
	}
	return d
}

func (d *Directory) Resolve(_ context.Context, ticker string) (domain.Company, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.companies[domain.NormalizeTicker(ticker)]
	if !ok {
		return domain.Company{}, fmt.Errorf("company %q: %w", ticker, domain.ErrNotFound)
	}
	return c, nil
}

func (d *Directory) List(_ context.Context) ([]domain.Company, error) {
	d.mu.RLock()
	out := make([]domain.Company, 0, len(d.companies))
	for _, c := range d.companies {
		out = append(out, c)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (d *Directory) Exists(_ context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.companies {
		if c.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (d *Directory) Save(_ context.Context, c domain.Company) error {
	c.Ticker = domain.NormalizeTicker(c.Ticker)
	if c.Ticker == "" {
		return fmt.Errorf("memory.Save: %w: empty ticker", domain.ErrInvalidInput)
	}
	if c.ID == "" {
		c.ID = c.Ticker
	}
	d.mu.Lock()
	d.companies[c.Ticker] = c
	d.mu.Unlock()
	return nil
}

// CompanyName resuelve el nombre con el propio directorio.
func (d *Directory) CompanyName(ctx context.Context, ticker string) (string, error) {
	c, err := d.Resolve(ctx, ticker)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

// --- NewsSource ---

// NewsSource implementa ports.NewsSource con noticias fijas; la última de
// cada lista es la más reciente.
type NewsSource struct {
	news map[string][]domain.News
}

func NewNewsSource(news map[string][]domain.News) *NewsSource {
	return &NewsSource{news: news}
}

func (s *NewsSource) LatestFor(_ context.Context, ticker string) (domain.News, bool, error) {
	list := s.news[domain.NormalizeTicker(ticker)]
	if len(list) == 0 {
		return domain.News{}, false, nil
	}
	return list[len(list)-1], true, nil
}

// --- PriceHistory ---

// Prices implementa ports.PriceHistory con precios fijos; el rango es inclusivo.
type Prices struct {
	prices map[string][]domain.HistoricalPrice
}

func NewPrices(prices map[string][]domain.HistoricalPrice) *Prices {
	return &Prices{prices: prices}
}

func (p *Prices) HistoricalPrices(_ context.Context, ticker string, start, end time.Time) ([]domain.HistoricalPrice, error) {
	out := make([]domain.HistoricalPrice, 0)
	for _, hp := range p.prices[domain.NormalizeTicker(ticker)] {
		if !hp.Date.Before(start) && !hp.Date.After(end) {
			out = append(out, hp)
		}
	}
	return out, nil
}

// --- PredictionModel ---

// Model implementa ports.PredictionModel con una heurística de palabras
// clave. Solo sirve para -dry-run y tests.
type Model struct {
	// Fixed, si no es nil, se devuelve siempre.
	Fixed *float64
}

var (
	positiveWords = []string{"record", "beats", "rise", "growth", "surge", "strong", "increase"}
	negativeWords = []string{"drop", "miss", "falls", "loss", "weak", "lawsuit", "cut"}
)

func (m *Model) ScoreText(_ context.Context, text, _ string) (float64, error) {
	if m.Fixed != nil {
		return *m.Fixed, nil
	}
	return keywordScore(text), nil
}

func (m *Model) ScoreURL(_ context.Context, url, _ string) (float64, error) {
	if m.Fixed != nil {
		return *m.Fixed, nil
	}
	return keywordScore(url), nil
}

// keywordScore parte de 5 (neutral) y suma o resta por palabra.
func keywordScore(text string) float64 {
	text = strings.ToLower(text)
	score := 5.0
	for _, w := range positiveWords {
		if strings.Contains(text, w) {
			score += 1.5
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(text, w) {
			score -= 1.5
		}
	}
	return score
}
