// Package news orquesta el caso de uso "última noticia puntuada de un
// ticker": fetch → score → rehidratar → registrar → append → publicar →
// actualizar read model.
package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/alejandrodnm/stocksense/internal/ports"
)

// Config contiene la configuración del servicio.
type Config struct {
	CallTimeout time.Duration // límite por llamada a un colaborador (0 = sin límite)
}

// Service implementa GetLatestNews y RegisterNews sobre el event store.
type Service struct {
	cfg       Config
	directory ports.CompanyDirectory
	source    ports.NewsSource
	model     ports.PredictionModel
	events    ports.EventStore
	readModel ports.ReadModel
	cache     ports.LatestCache
	publisher ports.EventPublisher
	now       func() time.Time
}

// New crea un Service con todas las dependencias inyectadas.
func New(
	cfg Config,
	directory ports.CompanyDirectory,
	source ports.NewsSource,
	model ports.PredictionModel,
	events ports.EventStore,
	readModel ports.ReadModel,
	cache ports.LatestCache,
	publisher ports.EventPublisher,
) *Service {
	return &Service{
		cfg:       cfg,
		directory: directory,
		source:    source,
		model:     model,
		events:    events,
		readModel: readModel,
		cache:     cache,
		publisher: publisher,
		now:       time.Now,
	}
}

// GetLatestNews devuelve la última noticia del ticker con su predicción.
// Un ticker desconocido devuelve domain.ErrNotFound sin tocar ningún otro
// colaborador. La caché por ticker puede servir una noticia algo antigua.
func (s *Service) GetLatestNews(ctx context.Context, ticker string) (domain.LatestNews, error) {
	company, err := s.resolve(ctx, ticker)
	if err != nil {
		return domain.LatestNews{}, err
	}

	if cached, ok := s.cachedLatest(ctx, company.Ticker); ok {
		return cached, nil
	}

	item, found, err := s.latestFor(ctx, company.Ticker)
	if err != nil {
		return domain.LatestNews{}, fmt.Errorf("news.GetLatestNews: fetch %s: %w", company.Ticker, err)
	}
	if !found {
		return domain.LatestNews{}, fmt.Errorf("news.GetLatestNews: no news for %s: %w", company.Ticker, domain.ErrNotFound)
	}
	return s.register(ctx, company, item)
}

// RegisterNews puntúa y registra una noticia concreta. Registrar dos veces
// la misma noticia devuelve la proyección existente sin emitir eventos.
func (s *Service) RegisterNews(ctx context.Context, item domain.News) (domain.LatestNews, error) {
	if item.ID == "" {
		return domain.LatestNews{}, fmt.Errorf("news.RegisterNews: %w: empty news id", domain.ErrInvalidInput)
	}
	company, err := s.resolve(ctx, item.Ticker)
	if err != nil {
		return domain.LatestNews{}, err
	}
	return s.register(ctx, company, item)
}

// NewsByDate devuelve las noticias puntuadas entre dos fechas, ambas inclusivas.
func (s *Service) NewsByDate(ctx context.Context, ticker string, start, end time.Time) ([]domain.LatestNews, error) {
	company, err := s.resolve(ctx, ticker)
	if err != nil {
		return nil, err
	}
	from, to := startOfDay(start), startOfDay(end)
	if from.After(to) {
		return nil, fmt.Errorf("news.NewsByDate: %w: start %s after end %s",
			domain.ErrInvalidInput, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	out, err := s.readModel.ByDateRange(cctx, company.Ticker, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("news.NewsByDate: %w", err)
	}
	return out, nil
}

// RecentNews devuelve las últimas noticias puntuadas del ticker.
func (s *Service) RecentNews(ctx context.Context, ticker string, limit int) ([]domain.LatestNews, error) {
	company, err := s.resolve(ctx, ticker)
	if err != nil {
		return nil, err
	}
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	out, err := s.readModel.RecentForTicker(cctx, company.Ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("news.RecentNews: %w", err)
	}
	return out, nil
}

// register ejecuta el flujo de escritura para una noticia de una compañía ya resuelta.
func (s *Service) register(ctx context.Context, company domain.Company, item domain.News) (domain.LatestNews, error) {
	item.Ticker = company.Ticker

	// 1. Ya proyectada: nada que escribir.
	if existing, ok, err := s.readModelGet(ctx, item.ID); err != nil {
		return domain.LatestNews{}, err
	} else if ok {
		s.setCache(ctx, existing)
		return existing, nil
	}

	// 2. Rehidratar el stream de la noticia.
	agg, err := s.load(ctx, item.ID)
	if err != nil {
		return domain.LatestNews{}, err
	}

	// 3. Puntuar solo si el stream no tiene detección (p. ej. un proceso
	//    anterior hizo append pero no llegó a proyectar).
	if !agg.State().HasDetection() {
		score, err := s.score(ctx, company, item)
		if err != nil {
			return domain.LatestNews{}, err
		}
		if err := agg.RegisterObservation(item, score, s.now()); err != nil {
			return domain.LatestNews{}, fmt.Errorf("news.register: %w", err)
		}
	}

	// 4. Persistir con control de concurrencia optimista.
	pending := agg.PendingEvents()
	if len(pending) > 0 {
		cctx, cancel := s.callCtx(ctx)
		err := s.events.Append(cctx, agg.ID(), pending, agg.ExpectedVersion())
		cancel()
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			slog.Info("concurrent registration lost, using winner",
				"ticker", company.Ticker,
				"news_id", item.ID,
				"err", err,
			)
			return s.winner(ctx, item.ID)
		}
		if err != nil {
			return domain.LatestNews{}, fmt.Errorf("news.register: append %s: %w", item.ID, err)
		}

		// 5. Publicar: best-effort, el event store ya es la fuente de verdad.
		s.publish(ctx, pending)
	}
	agg.MarkCommitted()

	// 6. Proyectar.
	projection := domain.LatestNewsFromState(agg.State(), agg.Version()-1)
	if err := s.save(ctx, projection); err != nil {
		return domain.LatestNews{}, err
	}
	slog.Debug("news registered",
		"ticker", projection.Ticker,
		"news_id", projection.ID,
		"score", projection.Prediction.Score,
		"new_events", len(pending),
	)
	return projection, nil
}

// winner devuelve la proyección escrita por quien ganó la carrera; si todavía
// no está en el read model, la reconstruye desde el stream.
func (s *Service) winner(ctx context.Context, newsID string) (domain.LatestNews, error) {
	if existing, ok, err := s.readModelGet(ctx, newsID); err != nil {
		return domain.LatestNews{}, err
	} else if ok {
		s.setCache(ctx, existing)
		return existing, nil
	}

	agg, err := s.load(ctx, newsID)
	if err != nil {
		return domain.LatestNews{}, err
	}
	if !agg.State().HasDetection() {
		return domain.LatestNews{}, fmt.Errorf("news.winner: %w: stream %s has no detection after conflict",
			domain.ErrCorruptStream, newsID)
	}
	projection := domain.LatestNewsFromState(agg.State(), agg.Version()-1)
	if err := s.save(ctx, projection); err != nil {
		return domain.LatestNews{}, err
	}
	return projection, nil
}

// --- llamadas a colaboradores, cada una con su timeout ---

func (s *Service) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}

func (s *Service) resolve(ctx context.Context, ticker string) (domain.Company, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	company, err := s.directory.Resolve(cctx, ticker)
	if err != nil {
		return domain.Company{}, fmt.Errorf("news.resolve: %w", err)
	}
	return company, nil
}

func (s *Service) cachedLatest(ctx context.Context, ticker string) (domain.LatestNews, bool) {
	if s.cache == nil {
		return domain.LatestNews{}, false
	}
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	n, ok, err := s.cache.Get(cctx, ticker)
	if err != nil {
		slog.Warn("latest cache read failed", "ticker", ticker, "err", err)
		return domain.LatestNews{}, false
	}
	return n, ok
}

func (s *Service) latestFor(ctx context.Context, ticker string) (domain.News, bool, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	return s.source.LatestFor(cctx, ticker)
}

func (s *Service) readModelGet(ctx context.Context, newsID string) (domain.LatestNews, bool, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	n, ok, err := s.readModel.Get(cctx, newsID)
	if err != nil {
		return domain.LatestNews{}, false, fmt.Errorf("news.readModelGet: %s: %w", newsID, err)
	}
	return n, ok, nil
}

func (s *Service) load(ctx context.Context, newsID string) (*domain.PredictionAggregate, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	stream, err := s.events.Events(cctx, newsID)
	if err != nil {
		return nil, fmt.Errorf("news.load: events %s: %w", newsID, err)
	}
	agg, err := domain.RehydratePrediction(newsID, stream)
	if err != nil {
		return nil, fmt.Errorf("news.load: %w", err)
	}
	return agg, nil
}

func (s *Service) score(ctx context.Context, company domain.Company, item domain.News) (domain.RawScore, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	raw, err := s.model.ScoreURL(cctx, item.URL, company.Name)
	if err != nil {
		return 0, fmt.Errorf("news.score: %s: %w", item.ID, err)
	}
	score, err := domain.NormalizeScore(raw)
	if err != nil {
		return 0, fmt.Errorf("news.score: %s: %w", item.ID, err)
	}
	return score, nil
}

func (s *Service) publish(ctx context.Context, events []domain.DomainEvent) {
	if s.publisher == nil {
		return
	}
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	if err := s.publisher.Publish(cctx, events); err != nil {
		slog.Warn("event publish failed",
			"aggregate_id", events[0].AggregateID,
			"events", len(events),
			"err", err,
		)
	}
}

func (s *Service) save(ctx context.Context, n domain.LatestNews) error {
	cctx, cancel := s.callCtx(ctx)
	err := s.readModel.Save(cctx, n)
	cancel()
	if err != nil {
		return fmt.Errorf("news.save: %s: %w", n.ID, err)
	}
	s.setCache(ctx, n)
	return nil
}

func (s *Service) setCache(ctx context.Context, n domain.LatestNews) {
	if s.cache == nil {
		return
	}
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	if err := s.cache.Set(cctx, n); err != nil {
		slog.Warn("latest cache write failed", "ticker", n.Ticker, "err", err)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
