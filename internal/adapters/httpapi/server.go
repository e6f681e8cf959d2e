// Package httpapi expone los casos de uso por HTTP con fiber.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// CompanyService es lo que la API necesita de companies.Service.
type CompanyService interface {
	List(ctx context.Context) ([]domain.Company, error)
	Info(ctx context.Context, ticker string) (domain.Company, error)
	HistoricalPrices(ctx context.Context, ticker string, start, end time.Time) ([]domain.HistoricalPrice, error)
}

// NewsService es lo que la API necesita de news.Service.
type NewsService interface {
	GetLatestNews(ctx context.Context, ticker string) (domain.LatestNews, error)
	NewsByDate(ctx context.Context, ticker string, start, end time.Time) ([]domain.LatestNews, error)
	RecentNews(ctx context.Context, ticker string, limit int) ([]domain.LatestNews, error)
}

// PredictionService es lo que la API necesita de prediction.Service.
type PredictionService interface {
	PredictFromText(ctx context.Context, ticker, text string) (domain.Prediction, error)
	PredictFromURL(ctx context.Context, ticker, url string) (domain.Prediction, error)
}

// Config ajusta el servidor HTTP.
type Config struct {
	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server agrupa los handlers de la API.
type Server struct {
	cfg         Config
	companies   CompanyService
	news        NewsService
	predictions PredictionService
	started     time.Time
}

func NewServer(cfg Config, companies CompanyService, news NewsService, predictions PredictionService) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 35 * time.Second
	}
	return &Server{
		cfg:         cfg,
		companies:   companies,
		news:        news,
		predictions: predictions,
		started:     time.Now(),
	}
}

// App construye la aplicación fiber con middleware y rutas.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "stocksense",
		StrictRouting:         false,
		ReadTimeout:           s.cfg.ReadTimeout,
		WriteTimeout:          s.cfg.WriteTimeout,
		BodyLimit:             1 * 1024 * 1024,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(requestLogger)

	app.Get("/health", s.health)

	companies := app.Group("/companies")
	companies.Get("/", s.listCompanies)
	companies.Get("/:ticker", s.companyInfo)
	companies.Get("/:ticker/historical-prices", s.historicalPrices)
	companies.Get("/:ticker/news/latest", s.latestNews)
	companies.Get("/:ticker/news", s.newsList)

	prediction := app.Group("/prediction")
	prediction.Post("/text", s.predictText)
	prediction.Post("/url", s.predictURL)

	return app
}

// ctx deriva el contexto de la petición con el timeout configurado.
func (s *Server) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.cfg.RequestTimeout)
}

// ErrorResponse es el cuerpo de toda respuesta de error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// statusFor traduce los errores de dominio a códigos HTTP.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidScore), errors.Is(err, domain.ErrUpstream):
		return fiber.StatusBadGateway
	case errors.Is(err, domain.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler es el fiber.ErrorHandler de la API. Los 5xx no exponen el
// detalle interno del error.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	msg := err.Error()
	if code == fiber.StatusInternalServerError {
		msg = "internal server error"
	}
	return c.Status(code).JSON(ErrorResponse{Error: msg, Code: code})
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	attrs := []any{
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"latency_ms", time.Since(start).Milliseconds(),
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
	}
	switch {
	case status >= 500:
		slog.Error("http request", append(attrs, "err", err)...)
	case err != nil:
		slog.Info("http request", append(attrs, "err", err)...)
	default:
		slog.Debug("http request", attrs...)
	}
	return err
}
