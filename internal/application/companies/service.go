// Package companies gestiona el directorio de compañías seguidas y sus precios.
package companies

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/alejandrodnm/stocksense/internal/ports"
)

// Service implementa las consultas y el registro de compañías.
type Service struct {
	directory ports.CompanyDirectory
	info      ports.CompanyInfo
	prices    ports.PriceHistory
}

func New(directory ports.CompanyDirectory, info ports.CompanyInfo, prices ports.PriceHistory) *Service {
	return &Service{directory: directory, info: info, prices: prices}
}

// List devuelve todas las compañías seguidas.
func (s *Service) List(ctx context.Context) ([]domain.Company, error) {
	out, err := s.directory.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("companies.List: %w", err)
	}
	return out, nil
}

// Info devuelve la compañía del ticker o domain.ErrNotFound.
func (s *Service) Info(ctx context.Context, ticker string) (domain.Company, error) {
	c, err := s.directory.Resolve(ctx, ticker)
	if err != nil {
		return domain.Company{}, fmt.Errorf("companies.Info: %w", err)
	}
	return c, nil
}

// HistoricalPrices devuelve los precios diarios entre start y end, ambos inclusivos.
func (s *Service) HistoricalPrices(ctx context.Context, ticker string, start, end time.Time) ([]domain.HistoricalPrice, error) {
	if start.After(end) {
		return nil, fmt.Errorf("companies.HistoricalPrices: %w: start %s after end %s",
			domain.ErrInvalidInput, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	c, err := s.directory.Resolve(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("companies.HistoricalPrices: %w", err)
	}
	out, err := s.prices.HistoricalPrices(ctx, c.Ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("companies.HistoricalPrices: %s: %w", c.Ticker, err)
	}
	return out, nil
}

// Register añade una compañía al directorio. Es idempotente sobre el id:
// si ya existe no se modifica. Sin nombre, se consulta a CompanyInfo, que
// devuelve domain.ErrNotFound para tickers que no cotizan.
func (s *Service) Register(ctx context.Context, id, ticker, name string) (domain.Company, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return domain.Company{}, fmt.Errorf("companies.Register: %w: empty ticker", domain.ErrInvalidInput)
	}
	if id == "" {
		id = ticker
	}

	name = strings.TrimSpace(name)
	if name == "" {
		n, err := s.info.CompanyName(ctx, ticker)
		if err != nil {
			return domain.Company{}, fmt.Errorf("companies.Register: lookup %s: %w", ticker, err)
		}
		name = n
	}

	company := domain.Company{ID: id, Ticker: ticker, Name: name}
	exists, err := s.directory.Exists(ctx, id)
	if err != nil {
		return domain.Company{}, fmt.Errorf("companies.Register: %w", err)
	}
	if exists {
		slog.Debug("company already registered", "id", id, "ticker", ticker)
		return company, nil
	}
	if err := s.directory.Save(ctx, company); err != nil {
		return domain.Company{}, fmt.Errorf("companies.Register: save %s: %w", ticker, err)
	}
	slog.Info("company registered", "id", id, "ticker", ticker, "name", name)
	return company, nil
}
