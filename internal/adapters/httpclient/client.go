// Package httpclient es el cliente HTTP JSON compartido por los adaptadores
// externos: rate limiting, retries con backoff exponencial y traducción de
// estados HTTP a errores de dominio.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultRatePerSec = 5
	defaultBurst      = 5
	defaultMaxRetries = 3
	defaultRetryWait  = 500 * time.Millisecond
)

// Config configura un Client. Los campos a cero toman valores por defecto.
type Config struct {
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	MaxRetries int
	RetryWait  time.Duration
	UserAgent  string
}

// Client es un cliente HTTP JSON con rate limiting y retries.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryWait  time.Duration
	userAgent  string
}

// New crea un Client aplicando los valores por defecto de Config.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaultRetryWait
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		maxRetries: cfg.MaxRetries,
		retryWait:  cfg.RetryWait,
		userAgent:  cfg.UserAgent,
	}
}

// Get hace un GET y decodifica la respuesta JSON en out.
func (c *Client) Get(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return c.http.Do(req)
	}, out)
}

// Post hace un POST JSON y decodifica la respuesta JSON en out.
func (c *Client) Post(ctx context.Context, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("httpclient.Post: marshal body: %w", err)
	}
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		c.setHeaders(req)
		return c.http.Do(req)
	}, out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// doWithRetry ejecuta la función con backoff exponencial.
// 404 → domain.ErrNotFound; 429 y 5xx se reintentan; el resto de 4xx y los
// reintentos agotados → domain.ErrUpstream.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", domain.ErrUpstream, ctx.Err())
			}
			if attempt == c.maxRetries {
				return fmt.Errorf("%w: request failed after %d retries: %w", domain.ErrUpstream, c.maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			if attempt == c.maxRetries {
				return fmt.Errorf("%w: status %d after %d retries", domain.ErrUpstream, resp.StatusCode, c.maxRetries)
			}
			slog.Warn("upstream retryable status", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return fmt.Errorf("upstream status 404: %w", domain.ErrNotFound)

		case resp.StatusCode >= 400:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("%w: client error %d: %s", domain.ErrUpstream, resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %w", domain.ErrUpstream, err)
		}
		return nil
	}
	return fmt.Errorf("%w: exhausted %d retries", domain.ErrUpstream, c.maxRetries)
}

// sleep espera con backoff exponencial respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
