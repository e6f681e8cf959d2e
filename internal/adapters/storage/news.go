package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
)

// SQLiteReadModel implementa ports.ReadModel.
type SQLiteReadModel struct {
	db  *sql.DB
	now func() time.Time
}

const newsCols = `news_id, ticker, published_at, title, url, score, interpretation, percentage_range, stream_version`

// Get devuelve la fila de una noticia.
func (r *SQLiteReadModel) Get(ctx context.Context, newsID string) (domain.LatestNews, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+newsCols+` FROM latest_news WHERE news_id = ?`, newsID)
	n, err := scanNews(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LatestNews{}, false, nil
	}
	if err != nil {
		return domain.LatestNews{}, false, err
	}
	return n, true, nil
}

// Save hace upsert de la fila; una versión de stream menor no pisa a una mayor.
func (r *SQLiteReadModel) Save(ctx context.Context, n domain.LatestNews) error {
	if n.ID == "" || n.Ticker == "" {
		return fmt.Errorf("storage.Save: %w: news id and ticker are required", domain.ErrInvalidInput)
	}
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO latest_news
			(news_id, ticker, published_at, title, url, score, interpretation,
			 percentage_range, stream_version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(news_id) DO UPDATE SET
			ticker           = excluded.ticker,
			published_at     = excluded.published_at,
			title            = excluded.title,
			url              = excluded.url,
			score            = excluded.score,
			interpretation   = excluded.interpretation,
			percentage_range = excluded.percentage_range,
			stream_version   = excluded.stream_version,
			updated_at       = excluded.updated_at
		WHERE excluded.stream_version >= latest_news.stream_version
	`,
		n.ID,
		domain.NormalizeTicker(n.Ticker),
		formatTime(n.Date),
		n.Title,
		n.URL,
		n.Prediction.Score,
		n.Prediction.Interpretation,
		n.Prediction.PercentageRange,
		n.StreamVersion,
		formatTime(r.now()),
	); err != nil {
		return unavailable("Save: upsert "+n.ID, err)
	}
	return nil
}

// ByDateRange devuelve las noticias publicadas en [from, to), más recientes primero.
func (r *SQLiteReadModel) ByDateRange(ctx context.Context, ticker string, from, to time.Time) ([]domain.LatestNews, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+newsCols+`
		FROM latest_news
		WHERE ticker = ? AND published_at >= ? AND published_at < ?
		ORDER BY published_at DESC
	`, domain.NormalizeTicker(ticker), formatTime(from), formatTime(to))
	if err != nil {
		return nil, unavailable("ByDateRange: query", err)
	}
	return collectNews(rows)
}

// RecentForTicker devuelve las últimas noticias del ticker.
func (r *SQLiteReadModel) RecentForTicker(ctx context.Context, ticker string, limit int) ([]domain.LatestNews, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+newsCols+`
		FROM latest_news
		WHERE ticker = ?
		ORDER BY published_at DESC
		LIMIT ?
	`, domain.NormalizeTicker(ticker), domain.ClampRecentLimit(limit))
	if err != nil {
		return nil, unavailable("RecentForTicker: query", err)
	}
	return collectNews(rows)
}

// --- helpers internos ---

func collectNews(rows *sql.Rows) ([]domain.LatestNews, error) {
	defer rows.Close()
	out := make([]domain.LatestNews, 0)
	for rows.Next() {
		n, err := scanNews(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("news rows", err)
	}
	return out, nil
}

func scanNews(scan func(dest ...any) error) (domain.LatestNews, error) {
	var (
		n         domain.LatestNews
		published string
	)
	err := scan(
		&n.ID,
		&n.Ticker,
		&published,
		&n.Title,
		&n.URL,
		&n.Prediction.Score,
		&n.Prediction.Interpretation,
		&n.Prediction.PercentageRange,
		&n.StreamVersion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return n, err
	}
	if err != nil {
		return n, unavailable("scan news", err)
	}
	if n.Date, err = parseTime(published); err != nil {
		return n, fmt.Errorf("storage.scanNews: published_at %q: %w", published, err)
	}
	return n, nil
}
