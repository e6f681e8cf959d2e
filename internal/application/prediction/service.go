// Package prediction puntúa textos o URLs arbitrarios sin registrar eventos.
package prediction

import (
	"context"
	"fmt"
	"strings"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/alejandrodnm/stocksense/internal/ports"
)

// Service expone el modelo de predicción para un ticker seguido.
type Service struct {
	directory ports.CompanyDirectory
	model     ports.PredictionModel
}

func New(directory ports.CompanyDirectory, model ports.PredictionModel) *Service {
	return &Service{directory: directory, model: model}
}

// PredictFromText puntúa un texto libre sobre la compañía del ticker.
func (s *Service) PredictFromText(ctx context.Context, ticker, text string) (domain.Prediction, error) {
	return s.predict(ctx, ticker, text, s.model.ScoreText)
}

// PredictFromURL puntúa el artículo apuntado por url.
func (s *Service) PredictFromURL(ctx context.Context, ticker, url string) (domain.Prediction, error) {
	return s.predict(ctx, ticker, url, s.model.ScoreURL)
}

type scoreFunc func(ctx context.Context, input, companyName string) (float64, error)

func (s *Service) predict(ctx context.Context, ticker, input string, score scoreFunc) (domain.Prediction, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return domain.Prediction{}, fmt.Errorf("prediction.predict: %w: empty input", domain.ErrInvalidInput)
	}
	company, err := s.directory.Resolve(ctx, ticker)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("prediction.predict: %w", err)
	}
	raw, err := score(ctx, input, company.Name)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("prediction.predict: %s: %w", company.Ticker, err)
	}
	rs, err := domain.NormalizeScore(raw)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("prediction.predict: %s: %w", company.Ticker, err)
	}
	return domain.Project(rs.Int()), nil
}
