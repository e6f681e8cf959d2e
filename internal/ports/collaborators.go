package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
)

// CompanyDirectory resuelve tickers a compañías seguidas.
type CompanyDirectory interface {
	// Resolve devuelve domain.ErrNotFound si el ticker no está registrado.
	Resolve(ctx context.Context, ticker string) (domain.Company, error)
	List(ctx context.Context) ([]domain.Company, error)
	Exists(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, company domain.Company) error
}

// CompanyInfo consulta el nombre público de un ticker en un proveedor externo.
type CompanyInfo interface {
	CompanyName(ctx context.Context, ticker string) (string, error)
}

// NewsSource obtiene la noticia más reciente de un ticker.
type NewsSource interface {
	// LatestFor devuelve ok=false si no hay noticias; un error indica un
	// fallo transitorio de la fuente.
	LatestFor(ctx context.Context, ticker string) (news domain.News, ok bool, err error)
}

// PredictionModel puntúa un texto o un artículo para una compañía.
// Devuelve la salida cruda del modelo; la normalización es del dominio.
type PredictionModel interface {
	ScoreText(ctx context.Context, text, companyName string) (float64, error)
	ScoreURL(ctx context.Context, url, companyName string) (float64, error)
}

// PriceHistory obtiene precios diarios históricos.
type PriceHistory interface {
	HistoricalPrices(ctx context.Context, ticker string, start, end time.Time) ([]domain.HistoricalPrice, error)
}
