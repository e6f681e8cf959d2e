package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/stocksense/config"
	"github.com/alejandrodnm/stocksense/internal/adapters/httpapi"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "use in-memory adapters and local fixtures")
	refreshLoop := flag.Bool("refresh", false, "refresh every company's latest news in the background")
	once := flag.Bool("once", false, "run one refresh cycle, print the table and exit")
	table := flag.Bool("table", true, "print the full table after each refresh (false: compact 1-line)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("stocksense starting",
		"config", *configPath,
		"addr", cfg.Server.Addr,
		"storage", cfg.Storage.Driver,
		"dry_run", *dryRun,
		"refresh", *refreshLoop,
		"once", *once,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := wire(ctx, cfg, options{dryRun: *dryRun, table: *table, once: *once})
	if err != nil {
		slog.Error("failed to wire service", "err", err)
		os.Exit(1)
	}
	defer a.close()

	if *once {
		if err := a.refresher.Run(ctx); err != nil {
			slog.Error("refresh failed", "err", err)
			os.Exit(1)
		}
		return
	}

	a.startBackground(ctx, *refreshLoop)

	if err := serve(ctx, cfg, a); err != nil {
		slog.Error("http server exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("stocksense stopped cleanly")
}

// serve atiende HTTP hasta que ctx se cancele y apaga con un plazo de gracia.
func serve(ctx context.Context, cfg *config.Config, a *app) error {
	srv := httpapi.NewServer(httpapi.Config{RequestTimeout: cfg.RequestTimeout()},
		a.companies, a.news, a.predictions).App()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}
	slog.Info("http api listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Listener(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
