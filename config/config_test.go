package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/stocksense/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"LOG_LEVEL", "LOG_FORMAT", "STORAGE_DSN", "STORAGE_DRIVER", "FIRESTORE_PROJECT",
	"REDIS_URL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "MODEL_BASE_URL", "HTTP_ADDR",
}

// clearEnv aísla el test de variables del entorno del desarrollador.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.CallTimeout())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.Equal(t, time.Minute, cfg.RefreshInterval())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "stocksense.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.TelegramEnabled())
	assert.Empty(t, cfg.Redis.URL)
}

func TestParse_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORAGE_DSN", ":memory:")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "123")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := config.Parse([]byte("log:\n  level: warn\nstorage:\n  dsn: file.db\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Redis.URL)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.TelegramEnabled())
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown driver", "storage:\n  driver: mongo\n"},
		{"firestore without project", "storage:\n  driver: firestore\n"},
		{"feed without placeholder", "api:\n  news_feed_url: https://example.com/rss\n"},
		{"malformed yaml", "storage: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := config.Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestCompanyList(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Parse([]byte(`
companies:
  - { ticker: " nflx ", name: "Netflix, Inc." }
  - { id: asset-1, ticker: AAPL, name: "Apple Inc." }
  - { ticker: "", name: "ignored" }
`))
	require.NoError(t, err)

	list := cfg.CompanyList()
	require.Len(t, list, 2)
	assert.Equal(t, "NFLX", list[0].Ticker)
	assert.Equal(t, "NFLX", list[0].ID)
	assert.Equal(t, "asset-1", list[1].ID)
}

func TestLoad_ExampleFile(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load("config.yaml")
	require.NoError(t, err)
	assert.Len(t, cfg.CompanyList(), 9)
	assert.Equal(t, 4, cfg.Refresh.Workers)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
