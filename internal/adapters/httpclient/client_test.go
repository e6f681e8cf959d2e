package httpclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/stocksense/internal/adapters/httpclient"
	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient() *httpclient.Client {
	return httpclient.New(httpclient.Config{
		RatePerSec: 1000,
		Burst:      100,
		MaxRetries: 2,
		RetryWait:  time.Millisecond,
		UserAgent:  "stocksense-test",
	})
}

func TestGet_DecodesAndSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "stocksense-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"value": 42}`))
	}))
	defer srv.Close()

	var out struct{ Value int }
	require.NoError(t, fastClient().Get(context.Background(), srv.URL, &out))
	assert.Equal(t, 42, out.Value)
}

func TestPost_SendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	var out struct{ OK bool }
	require.NoError(t, fastClient().Post(context.Background(), srv.URL, map[string]string{"a": "b"}, &out))
	assert.True(t, out.OK)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var out map[string]any
	require.NoError(t, fastClient().Get(context.Background(), srv.URL, &out))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_ExhaustedRetriesIsUpstream(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var out map[string]any
	err := fastClient().Get(context.Background(), srv.URL, &out)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusBadRequest, domain.ErrUpstream},
		{http.StatusUnauthorized, domain.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			var out map[string]any
			assert.ErrorIs(t, fastClient().Get(context.Background(), srv.URL, &out), tt.want)
		})
	}
}

func TestGet_BadJSONIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	var out map[string]any
	assert.ErrorIs(t, fastClient().Get(context.Background(), srv.URL, &out), domain.ErrUpstream)
}
