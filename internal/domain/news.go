package domain

import (
	"strings"
	"time"
)

// Company es una compañía cotizada que el servicio sigue.
type Company struct {
	ID     string // asset id del sistema de origen; suele coincidir con el ticker
	Ticker string
	Name   string
}

// NormalizeTicker devuelve el ticker en mayúsculas y sin espacios.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// News es una noticia sobre un ticker obtenida de la fuente de noticias.
type News struct {
	ID     string
	Ticker string
	Date   time.Time
	Title  string
	URL    string
}

// HistoricalPrice es la apertura y el cierre de un día de mercado.
type HistoricalPrice struct {
	Date  time.Time `json:"date"`
	Open  float64   `json:"open"`
	Close float64   `json:"close"`
}

// LatestNews es la fila del read model: una noticia con su predicción ya
// renderizada. Es una caché reconstruible desde el event store.
type LatestNews struct {
	ID            string     `json:"id"`
	Ticker        string     `json:"ticker"`
	Date          time.Time  `json:"date"`
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	Prediction    Prediction `json:"prediction"`
	StreamVersion int        `json:"stream_version"` // versión del stream que produjo la fila
}

// LatestNewsFromState renderiza el estado de un agregado como fila del read model.
func LatestNewsFromState(s PredictionState, streamVersion int) LatestNews {
	return LatestNews{
		ID:            s.NewsID,
		Ticker:        s.Ticker,
		Date:          s.Date,
		Title:         s.Title,
		URL:           s.URL,
		Prediction:    s.Prediction,
		StreamVersion: streamVersion,
	}
}

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 50
)

// ClampRecentLimit aplica el límite por defecto (<= 0) y el máximo a los
// listados de noticias recientes.
func ClampRecentLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}

// RefreshResult es el resultado de refrescar un ticker en un ciclo.
type RefreshResult struct {
	Ticker string
	News   LatestNews
	Err    error
}

// OK devuelve true si el ticker se refrescó sin error.
func (r RefreshResult) OK() bool {
	return r.Err == nil
}
