// Package yahoo obtiene precios diarios y nombres de compañía de la API
// chart de Yahoo Finance.
package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alejandrodnm/stocksense/internal/adapters/httpclient"
	"github.com/alejandrodnm/stocksense/internal/domain"
)

const (
	defaultBase = "https://query1.finance.yahoo.com"

	// Yahoo no documenta límites; 2 req/s evita los 429 en la práctica.
	ratePerSec = 2
	userAgent  = "Mozilla/5.0 (compatible; stocksense/1.0)"
)

// Client implementa ports.PriceHistory y ports.CompanyInfo.
type Client struct {
	http *httpclient.Client
	base string
}

// NewClient crea un Client. Si base está vacío usa la URL de producción.
func NewClient(base string) *Client {
	return NewClientWith(base, httpclient.Config{RatePerSec: ratePerSec, Burst: 2, UserAgent: userAgent})
}

// NewClientWith permite ajustar el cliente HTTP (tests).
func NewClientWith(base string, cfg httpclient.Config) *Client {
	if base == "" {
		base = defaultBase
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = userAgent
	}
	return &Client{http: httpclient.New(cfg), base: strings.TrimRight(base, "/")}
}

// chartResponse es el subconjunto usado de /v8/finance/chart.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		LongName  string `json:"longName"`
		ShortName string `json:"shortName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open  []*float64 `json:"open"`
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// HistoricalPrices devuelve apertura y cierre diarios entre start y end, ambos inclusivos.
func (c *Client) HistoricalPrices(ctx context.Context, ticker string, start, end time.Time) ([]domain.HistoricalPrice, error) {
	ticker = domain.NormalizeTicker(ticker)
	from := truncateDay(start)
	to := truncateDay(end).AddDate(0, 0, 1)

	q := url.Values{}
	q.Set("period1", fmt.Sprintf("%d", from.Unix()))
	q.Set("period2", fmt.Sprintf("%d", to.Unix()))
	q.Set("interval", "1d")

	res, err := c.chart(ctx, ticker, q)
	if err != nil {
		return nil, fmt.Errorf("yahoo.HistoricalPrices: %w", err)
	}
	return toPrices(res, from, to), nil
}

// CompanyName devuelve el nombre largo de la compañía (o el corto si falta).
func (c *Client) CompanyName(ctx context.Context, ticker string) (string, error) {
	ticker = domain.NormalizeTicker(ticker)
	q := url.Values{}
	q.Set("range", "1d")
	q.Set("interval", "1d")

	res, err := c.chart(ctx, ticker, q)
	if err != nil {
		return "", fmt.Errorf("yahoo.CompanyName: %w", err)
	}
	if res.Meta.LongName != "" {
		return res.Meta.LongName, nil
	}
	if res.Meta.ShortName != "" {
		return res.Meta.ShortName, nil
	}
	return "", fmt.Errorf("yahoo.CompanyName: %s has no name: %w", ticker, domain.ErrNotFound)
}

func (c *Client) chart(ctx context.Context, ticker string, q url.Values) (chartResult, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.base, url.PathEscape(ticker), q.Encode())

	var resp chartResponse
	if err := c.http.Get(ctx, u, &resp); err != nil {
		return chartResult{}, fmt.Errorf("chart %s: %w", ticker, err)
	}
	if resp.Chart.Error != nil {
		return chartResult{}, fmt.Errorf("chart %s: %s: %w", ticker, resp.Chart.Error.Description, domain.ErrNotFound)
	}
	if len(resp.Chart.Result) == 0 {
		return chartResult{}, fmt.Errorf("chart %s: empty result: %w", ticker, domain.ErrNotFound)
	}
	return resp.Chart.Result[0], nil
}

// toPrices convierte las series paralelas de la API, saltando los días sin
// cotización (valores null) y los que caen fuera de [from, to).
func toPrices(res chartResult, from, to time.Time) []domain.HistoricalPrice {
	out := make([]domain.HistoricalPrice, 0, len(res.Timestamp))
	if len(res.Indicators.Quote) == 0 {
		return out
	}
	q := res.Indicators.Quote[0]
	for i, ts := range res.Timestamp {
		if i >= len(q.Open) || i >= len(q.Close) || q.Open[i] == nil || q.Close[i] == nil {
			continue
		}
		day := truncateDay(time.Unix(ts, 0))
		if day.Before(from) || !day.Before(to) {
			continue
		}
		out = append(out, domain.HistoricalPrice{Date: day, Open: *q.Open[i], Close: *q.Close[i]})
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
