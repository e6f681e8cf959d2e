// Package model es el cliente del servicio remoto de scoring de sentimiento.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/stocksense/internal/adapters/httpclient"
	"github.com/alejandrodnm/stocksense/internal/domain"
)

// Client implementa ports.PredictionModel contra la API HTTP del modelo.
type Client struct {
	http *httpclient.Client
	base string
}

// NewClient crea un Client contra baseURL. timeout acota cada petición;
// el modelo descarga y analiza artículos, así que suele ser mayor que el de
// las APIs de mercado.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWith(baseURL, httpclient.Config{Timeout: timeout, RatePerSec: 10, Burst: 10})
}

// NewClientWith permite ajustar el cliente HTTP (tests).
func NewClientWith(baseURL string, cfg httpclient.Config) *Client {
	return &Client{http: httpclient.New(cfg), base: strings.TrimRight(baseURL, "/")}
}

type textRequest struct {
	Text    string `json:"text"`
	Company string `json:"company"`
}

type urlRequest struct {
	URL     string `json:"url"`
	Company string `json:"company"`
}

type scoreResponse struct {
	Score json.RawMessage `json:"score"`
}

// ScoreText puntúa un texto libre.
func (c *Client) ScoreText(ctx context.Context, text, companyName string) (float64, error) {
	return c.score(ctx, "/score/text", textRequest{Text: text, Company: companyName})
}

// ScoreURL puntúa el artículo de la URL dada.
func (c *Client) ScoreURL(ctx context.Context, url, companyName string) (float64, error) {
	return c.score(ctx, "/score/url", urlRequest{URL: url, Company: companyName})
}

func (c *Client) score(ctx context.Context, path string, body any) (float64, error) {
	var resp scoreResponse
	if err := c.http.Post(ctx, c.base+path, body, &resp); err != nil {
		return 0, fmt.Errorf("model.score: %s: %w", path, err)
	}
	if len(resp.Score) == 0 || string(resp.Score) == "null" {
		return 0, fmt.Errorf("model.score: %s: %w: missing score", path, domain.ErrInvalidScore)
	}
	var score float64
	if err := json.Unmarshal(resp.Score, &score); err != nil {
		return 0, fmt.Errorf("model.score: %s: %w: %s", path, domain.ErrInvalidScore, resp.Score)
	}
	return score, nil
}
