package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
)

// ReadModel es la proyección consultable de las noticias ya puntuadas.
type ReadModel interface {
	// Get devuelve la fila de una noticia. ok=false si no existe.
	Get(ctx context.Context, newsID string) (news domain.LatestNews, ok bool, err error)

	// Save hace upsert de la fila. Nunca sustituye una fila con una versión
	// de stream mayor.
	Save(ctx context.Context, news domain.LatestNews) error

	// ByDateRange devuelve las noticias del ticker publicadas en [from, to),
	// más recientes primero.
	ByDateRange(ctx context.Context, ticker string, from, to time.Time) ([]domain.LatestNews, error)

	// RecentForTicker devuelve las últimas limit noticias del ticker.
	RecentForTicker(ctx context.Context, ticker string, limit int) ([]domain.LatestNews, error)
}

// LatestCache guarda la última noticia servida por ticker.
// Es un atajo de rendimiento: puede servir datos antiguos.
type LatestCache interface {
	Get(ctx context.Context, ticker string) (news domain.LatestNews, ok bool, err error)
	Set(ctx context.Context, news domain.LatestNews) error
}
