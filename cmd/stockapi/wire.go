package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/stocksense/config"
	"github.com/alejandrodnm/stocksense/internal/adapters/firestore"
	"github.com/alejandrodnm/stocksense/internal/adapters/httpclient"
	"github.com/alejandrodnm/stocksense/internal/adapters/memory"
	"github.com/alejandrodnm/stocksense/internal/adapters/model"
	"github.com/alejandrodnm/stocksense/internal/adapters/notify"
	"github.com/alejandrodnm/stocksense/internal/adapters/publish"
	"github.com/alejandrodnm/stocksense/internal/adapters/redis"
	"github.com/alejandrodnm/stocksense/internal/adapters/rss"
	"github.com/alejandrodnm/stocksense/internal/adapters/storage"
	"github.com/alejandrodnm/stocksense/internal/adapters/telegram"
	"github.com/alejandrodnm/stocksense/internal/adapters/yahoo"
	"github.com/alejandrodnm/stocksense/internal/application/companies"
	"github.com/alejandrodnm/stocksense/internal/application/news"
	"github.com/alejandrodnm/stocksense/internal/application/prediction"
	"github.com/alejandrodnm/stocksense/internal/application/refresh"
	"github.com/alejandrodnm/stocksense/internal/ports"
	goredis "github.com/redis/go-redis/v9"
)

const janitorEvery = 5 * time.Minute

type options struct {
	dryRun bool
	table  bool
	once   bool
}

// app agrupa los servicios ya cableados y lo que hay que cerrar al salir.
type app struct {
	companies   *companies.Service
	news        *news.Service
	predictions *prediction.Service
	refresher   *refresh.Refresher
	listener    *redis.Listener
	redisClient *goredis.Client
	memCache    *memory.LatestCache
	closers     []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", "err", err)
		}
	}
}

// startBackground lanza el listener de compañías, el janitor de la caché en
// memoria y, si se pide, el refresco periódico.
func (a *app) startBackground(ctx context.Context, refreshLoop bool) {
	if a.listener != nil {
		go func() {
			if err := a.listener.Run(ctx); err != nil {
				slog.Error("company listener exited", "err", err)
			}
		}()
	}
	if a.memCache != nil {
		go a.memCache.Janitor().RunJanitor(ctx, janitorEvery)
	}
	if refreshLoop {
		go func() {
			if err := a.refresher.Run(ctx); err != nil {
				slog.Error("refresher exited", "err", err)
			}
		}()
	}
}

// collaborators son los puertos que cambian entre -dry-run y producción.
type collaborators struct {
	directory ports.CompanyDirectory
	info      ports.CompanyInfo
	prices    ports.PriceHistory
	source    ports.NewsSource
	model     ports.PredictionModel
	events    ports.EventStore
	readModel ports.ReadModel
	cache     ports.LatestCache
	publisher ports.EventPublisher
}

func wire(ctx context.Context, cfg *config.Config, opts options) (*app, error) {
	a := &app{}

	var (
		c   collaborators
		err error
	)
	if opts.dryRun {
		c = dryRunCollaborators(cfg)
	} else {
		c, err = liveCollaborators(ctx, cfg, a)
		if err != nil {
			a.close()
			return nil, err
		}
	}
	if mc, ok := c.cache.(*memory.LatestCache); ok {
		a.memCache = mc
	}

	a.companies = companies.New(c.directory, c.info, c.prices)
	a.predictions = prediction.New(c.directory, c.model)
	a.news = news.New(news.Config{CallTimeout: cfg.CallTimeout()},
		c.directory, c.source, c.model, c.events, c.readModel, c.cache, c.publisher)

	a.refresher = refresh.New(refresh.Config{
		Interval: cfg.RefreshInterval(),
		Workers:  cfg.Refresh.Workers,
		Once:     opts.once,
	}, c.directory, a.news, notify.NewConsole(opts.table))

	if a.redisClient != nil {
		a.listener = redis.NewListener(a.redisClient, cfg.Redis.AssetsChannel, a.companies)
	}
	return a, nil
}

func dryRunCollaborators(cfg *config.Config) collaborators {
	dir := memory.NewDirectory(memory.DefaultCompanies...)
	return collaborators{
		directory: dir,
		info:      dir,
		prices:    memory.NewPrices(memory.DefaultPrices),
		source:    memory.NewNewsSource(memory.DefaultNews),
		model:     &memory.Model{},
		events:    memory.NewEventStore(),
		readModel: memory.NewReadModel(),
		cache:     memory.NewLatestCache(cfg.CacheTTL()),
		publisher: publish.NewFanout(publish.Log{}),
	}
}

func liveCollaborators(ctx context.Context, cfg *config.Config, a *app) (collaborators, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return collaborators{}, fmt.Errorf("open storage %q: %w", cfg.Storage.DSN, err)
	}
	a.closers = append(a.closers, store.Close)

	dir := store.Directory()
	if err := dir.Seed(ctx, cfg.CompanyList()); err != nil {
		return collaborators{}, fmt.Errorf("seed companies: %w", err)
	}

	var events ports.EventStore = store.EventStore()
	if cfg.Storage.Driver == "firestore" {
		fs, err := firestore.NewEventStore(ctx, cfg.Storage.FirestoreProject)
		if err != nil {
			return collaborators{}, err
		}
		a.closers = append(a.closers, fs.Close)
		events = fs
	}

	market := yahoo.NewClientWith(cfg.API.YahooBase, httpclient.Config{RatePerSec: cfg.API.RatePerSec})

	c := collaborators{
		directory: dir,
		info:      market,
		prices:    market,
		source:    rss.NewNewsSource(cfg.API.NewsFeedURL, cfg.CallTimeout()),
		model:     model.NewClient(cfg.API.ModelBase, cfg.ModelTimeout()),
		events:    events,
		readModel: store.ReadModel(),
	}

	publishers := []ports.EventPublisher{publish.Log{}}

	// Redis es opcional: si no responde se sigue con caché en memoria.
	if cfg.Redis.URL != "" {
		client, err := redis.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			slog.Warn("redis unavailable, using in-memory cache", "err", err)
		} else {
			a.closers = append(a.closers, client.Close)
			c.cache = redis.NewLatestCache(client, cfg.CacheTTL())
			publishers = append(publishers, redis.NewPublisher(client, cfg.Redis.EventsChannel))
			a.redisClient = client
		}
	}
	if c.cache == nil {
		c.cache = memory.NewLatestCache(cfg.CacheTTL())
	}

	if cfg.TelegramEnabled() {
		tg, err := telegram.NewPublisher(telegram.Config{
			BotToken:   cfg.Telegram.BotToken,
			ChatID:     cfg.Telegram.ChatID,
			MaxRetries: cfg.Telegram.MaxRetries,
			RetryDelay: cfg.TelegramRetryDelay(),
			Timeout:    cfg.CallTimeout(),
		})
		if err != nil {
			slog.Warn("telegram disabled", "err", err)
		} else {
			publishers = append(publishers, tg)
		}
	}

	c.publisher = publish.NewFanout(publishers...)
	slog.Info("collaborators wired",
		"events", cfg.Storage.Driver,
		"redis", cfg.Redis.URL != "",
		"publishers", len(publishers),
	)
	return c, nil
}
