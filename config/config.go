package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del servicio.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	News      NewsConfig      `yaml:"news"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Companies []CompanyConfig `yaml:"companies"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controla la API HTTP.
type ServerConfig struct {
	Addr                  string `yaml:"addr"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

// NewsConfig controla el flujo de registro de noticias.
type NewsConfig struct {
	CallTimeoutSeconds int `yaml:"call_timeout_seconds"` // por llamada a colaborador
	CacheTTLSeconds    int `yaml:"cache_ttl_seconds"`    // última noticia por ticker
}

// RefreshConfig controla el refresco periódico.
type RefreshConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	Workers         int `yaml:"workers"` // 0 = NumCPU*2
}

// APIConfig contiene los base URLs de los servicios externos.
type APIConfig struct {
	YahooBase           string  `yaml:"yahoo_base"`
	NewsFeedURL         string  `yaml:"news_feed_url"` // con %s para el ticker; vacío usa el feed de Yahoo
	ModelBase           string  `yaml:"model_base"`
	ModelTimeoutSeconds int     `yaml:"model_timeout_seconds"`
	RatePerSec          float64 `yaml:"rate_per_sec"`
}

// StorageConfig controla dónde se persisten eventos, read model y compañías.
type StorageConfig struct {
	Driver           string `yaml:"driver"` // sqlite | firestore (solo eventos)
	DSN              string `yaml:"dsn"`    // ruta al archivo SQLite, o ":memory:"
	FirestoreProject string `yaml:"firestore_project"`
}

// RedisConfig es opcional: sin URL se usan caché y publisher en memoria.
type RedisConfig struct {
	URL           string `yaml:"url"`
	EventsChannel string `yaml:"events_channel"`
	AssetsChannel string `yaml:"assets_channel"`
}

// TelegramConfig es opcional: sin token no se envían notificaciones.
type TelegramConfig struct {
	BotToken          string `yaml:"bot_token"`
	ChatID            string `yaml:"chat_id"`
	MaxRetries        int    `yaml:"max_retries"`
	RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
}

// CompanyConfig es una compañía sembrada al arrancar.
type CompanyConfig struct {
	ID     string `yaml:"id"`
	Ticker string `yaml:"ticker"`
	Name   string `yaml:"name"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse interpreta un YAML ya leído, aplica entorno y defaults, y valida.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.News.CallTimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.News.CacheTTLSeconds) * time.Second
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.API.ModelTimeoutSeconds) * time.Second
}

func (c *Config) TelegramRetryDelay() time.Duration {
	return time.Duration(c.Telegram.RetryDelaySeconds) * time.Second
}

// TelegramEnabled indica si hay credenciales de bot.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// CompanyList devuelve las compañías a sembrar con el ticker normalizado.
func (c *Config) CompanyList() []domain.Company {
	out := make([]domain.Company, 0, len(c.Companies))
	for _, cc := range c.Companies {
		ticker := domain.NormalizeTicker(cc.Ticker)
		if ticker == "" {
			continue
		}
		id := cc.ID
		if id == "" {
			id = ticker
		}
		out = append(out, domain.Company{ID: id, Ticker: ticker, Name: cc.Name})
	}
	return out
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FORMAT", &cfg.Log.Format},
		{"STORAGE_DSN", &cfg.Storage.DSN},
		{"STORAGE_DRIVER", &cfg.Storage.Driver},
		{"FIRESTORE_PROJECT", &cfg.Storage.FirestoreProject},
		{"REDIS_URL", &cfg.Redis.URL},
		{"TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken},
		{"TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID},
		{"MODEL_BASE_URL", &cfg.API.ModelBase},
		{"HTTP_ADDR", &cfg.Server.Addr},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RequestTimeoutSeconds <= 0 {
		cfg.Server.RequestTimeoutSeconds = 30
	}
	if cfg.News.CallTimeoutSeconds <= 0 {
		cfg.News.CallTimeoutSeconds = 10
	}
	if cfg.News.CacheTTLSeconds <= 0 {
		cfg.News.CacheTTLSeconds = 300
	}
	if cfg.Refresh.IntervalSeconds <= 0 {
		cfg.Refresh.IntervalSeconds = 60
	}
	if cfg.API.YahooBase == "" {
		cfg.API.YahooBase = "https://query1.finance.yahoo.com"
	}
	if cfg.API.ModelBase == "" {
		cfg.API.ModelBase = "http://localhost:8000"
	}
	if cfg.API.ModelTimeoutSeconds <= 0 {
		cfg.API.ModelTimeoutSeconds = 20
	}
	if cfg.API.RatePerSec <= 0 {
		cfg.API.RatePerSec = 2
	}
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "stocksense.db"
	}
	if cfg.Redis.EventsChannel == "" {
		cfg.Redis.EventsChannel = "stocksense.events"
	}
	if cfg.Redis.AssetsChannel == "" {
		cfg.Redis.AssetsChannel = "stocksense.assets"
	}
	if cfg.Telegram.MaxRetries <= 0 {
		cfg.Telegram.MaxRetries = 3
	}
	if cfg.Telegram.RetryDelaySeconds <= 0 {
		cfg.Telegram.RetryDelaySeconds = 1
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite":
	case "firestore":
		if c.Storage.FirestoreProject == "" {
			return fmt.Errorf("storage.driver firestore requires storage.firestore_project")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q (sqlite | firestore)", c.Storage.Driver)
	}
	if c.API.NewsFeedURL != "" && !strings.Contains(c.API.NewsFeedURL, "%s") {
		return fmt.Errorf("api.news_feed_url must contain %%s for the ticker")
	}
	return nil
}
