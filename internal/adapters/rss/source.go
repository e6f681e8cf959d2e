// Package rss obtiene titulares por ticker del feed RSS de Yahoo Finance.
package rss

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"
)

const (
	// DefaultFeedURL lleva %s en lugar del ticker.
	DefaultFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"

	ratePerSec = 2
	userAgent  = "Mozilla/5.0 (compatible; stocksense/1.0)"
)

// NewsSource implementa ports.NewsSource sobre un feed RSS por ticker.
type NewsSource struct {
	client  *http.Client
	feedURL string
	limiter *rate.Limiter
	parser  *gofeed.Parser
}

// NewNewsSource crea la fuente. feedURL debe contener un %s para el
// ticker; vacío usa DefaultFeedURL.
func NewNewsSource(feedURL string, timeout time.Duration) *NewsSource {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NewsSource{
		client:  &http.Client{Timeout: timeout},
		feedURL: feedURL,
		limiter: rate.NewLimiter(ratePerSec, 2),
		parser:  gofeed.NewParser(),
	}
}

// LatestFor devuelve la noticia más reciente del feed del ticker.
func (s *NewsSource) LatestFor(ctx context.Context, ticker string) (domain.News, bool, error) {
	ticker = domain.NormalizeTicker(ticker)
	items, err := s.fetch(ctx, ticker)
	if err != nil {
		return domain.News{}, false, fmt.Errorf("rss.LatestFor: %s: %w", ticker, err)
	}

	var (
		latest domain.News
		found  bool
	)
	for _, it := range items {
		n, ok := toNews(ticker, it)
		if !ok {
			continue
		}
		if !found || n.Date.After(latest.Date) {
			latest, found = n, true
		}
	}
	return latest, found, nil
}

func (s *NewsSource) fetch(ctx context.Context, ticker string) ([]*gofeed.Item, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	feedURL := fmt.Sprintf(s.feedURL, url.QueryEscape(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch feed: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: feed returned status %d", domain.ErrUpstream, resp.StatusCode)
	}

	feed, err := s.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed: %w", domain.ErrUpstream, err)
	}
	return feed.Items, nil
}

// toNews descarta los items sin título, enlace o fecha.
func toNews(ticker string, it *gofeed.Item) (domain.News, bool) {
	if it == nil {
		return domain.News{}, false
	}
	title := strings.TrimSpace(it.Title)
	link := strings.TrimSpace(it.Link)
	if title == "" || link == "" {
		return domain.News{}, false
	}
	published := it.PublishedParsed
	if published == nil {
		published = it.UpdatedParsed
	}
	if published == nil {
		return domain.News{}, false
	}
	date := published.UTC().Truncate(time.Second)
	return domain.News{
		ID:     NewsID(ticker, date, title, link),
		Ticker: ticker,
		Date:   date,
		Title:  title,
		URL:    link,
	}, true
}

// NewsID es el id determinista de una noticia: la misma noticia vista dos
// veces produce el mismo stream.
func NewsID(ticker string, date time.Time, title, link string) string {
	raw := strings.Join([]string{
		domain.NormalizeTicker(ticker),
		date.UTC().Format("2006-01-02T15:04:05"),
		strings.TrimSpace(title),
		strings.TrimSpace(link),
	}, "||")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(raw)).String()
}
