package storage_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/stocksense/internal/adapters/storage"
	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func detection(id string, version int, score int) domain.DomainEvent {
	return domain.NewEvent(id, version, time.Now(), domain.AssetFeelingDetected{
		Ticker: "NFLX",
		NewsID: id,
		URL:    "https://example.com/" + id,
		Title:  "Netflix beats estimates",
		Date:   time.Date(2024, 4, 15, 14, 30, 0, 0, time.UTC),
		Score:  score,
	})
}

func TestSQLiteEventStore_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	store := openStorage(t).EventStore()

	e := detection("news-1", 0, 9)
	require.NoError(t, store.Append(ctx, "news-1", []domain.DomainEvent{e}, 0))

	stream, err := store.Events(ctx, "news-1")
	require.NoError(t, err)
	require.Len(t, stream, 1)
	assert.Equal(t, e.ID, stream[0].ID)
	assert.Equal(t, 0, stream[0].Version)
	assert.Equal(t, domain.EventAssetFeelingDetected, stream[0].Type())
	assert.True(t, e.OccurredAt.Equal(stream[0].OccurredAt))

	p, ok := stream[0].Payload.(domain.AssetFeelingDetected)
	require.True(t, ok)
	assert.Equal(t, 9, p.Score)
	assert.Equal(t, "NFLX", p.Ticker)
}

func TestSQLiteEventStore_EventsUnknownStream(t *testing.T) {
	stream, err := openStorage(t).EventStore().Events(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, stream)
	assert.Empty(t, stream)
}

func TestSQLiteEventStore_EmptyBatchIsNoop(t *testing.T) {
	store := openStorage(t).EventStore()
	require.NoError(t, store.Append(context.Background(), "news-1", nil, 0))
}

func TestSQLiteEventStore_ConflictLeavesStreamUnchanged(t *testing.T) {
	ctx := context.Background()
	store := openStorage(t).EventStore()

	first := detection("news-1", 0, 9)
	require.NoError(t, store.Append(ctx, "news-1", []domain.DomainEvent{first}, 0))

	err := store.Append(ctx, "news-1", []domain.DomainEvent{detection("news-1", 0, 2)}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConcurrencyConflict))

	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, ce.Expected)
	assert.Equal(t, 1, ce.Actual)

	stream, err := store.Events(ctx, "news-1")
	require.NoError(t, err)
	require.Len(t, stream, 1)
	assert.Equal(t, first.ID, stream[0].ID)
}

func TestSQLiteEventStore_VersionsAreConsecutive(t *testing.T) {
	ctx := context.Background()
	store := openStorage(t).EventStore()

	open := domain.NewEvent("news-1", 0, time.Now(), domain.FirstTickerPrediction{Ticker: "NFLX"})
	require.NoError(t, store.Append(ctx, "news-1", []domain.DomainEvent{open}, 0))
	require.NoError(t, store.Append(ctx, "news-1", []domain.DomainEvent{detection("news-1", 1, 5)}, 1))

	stream, err := store.Events(ctx, "news-1")
	require.NoError(t, err)
	require.Len(t, stream, 2)
	for i, e := range stream {
		assert.Equal(t, i, e.Version)
	}
}

func TestSQLiteEventStore_RejectsMalformedBatch(t *testing.T) {
	ctx := context.Background()
	store := openStorage(t).EventStore()

	tests := []struct {
		name     string
		id       string
		events   []domain.DomainEvent
		expected int
	}{
		{"empty aggregate id", "", []domain.DomainEvent{detection("news-1", 0, 5)}, 0},
		{"foreign event", "news-1", []domain.DomainEvent{detection("news-2", 0, 5)}, 0},
		{"version gap", "news-1", []domain.DomainEvent{detection("news-1", 3, 5)}, 0},
		{"negative expected", "news-1", []domain.DomainEvent{detection("news-1", 0, 5)}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Append(ctx, tt.id, tt.events, tt.expected)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	stream, err := store.Events(ctx, "news-1")
	require.NoError(t, err)
	assert.Empty(t, stream)
}

func TestSQLiteEventStore_ConcurrentAppendersOneWins(t *testing.T) {
	ctx := context.Background()
	store := openStorage(t).EventStore()

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			err := store.Append(ctx, "news-1", []domain.DomainEvent{detection("news-1", 0, score)}, 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrConcurrencyConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, conflicts)

	stream, err := store.Events(ctx, "news-1")
	require.NoError(t, err)
	assert.Len(t, stream, 1)
}

func TestSQLiteEventStore_RehydratesAggregate(t *testing.T) {
	ctx := context.Background()
	store := openStorage(t).EventStore()

	agg := domain.NewPredictionAggregate("news-1")
	news := domain.News{ID: "news-1", Ticker: "NFLX", Title: "t", URL: "u", Date: time.Now()}
	require.NoError(t, agg.RegisterObservation(news, 9, time.Now()))
	require.NoError(t, store.Append(ctx, agg.ID(), agg.PendingEvents(), agg.ExpectedVersion()))

	stream, err := store.Events(ctx, "news-1")
	require.NoError(t, err)
	got, err := domain.RehydratePrediction("news-1", stream)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version())
	assert.Equal(t, "Significant rise", got.State().Prediction.Interpretation)
}

// --- read model ---

func makeNews(id string, date time.Time, score int, version int) domain.LatestNews {
	return domain.LatestNews{
		ID:            id,
		Ticker:        "NFLX",
		Date:          date,
		Title:         "title " + id,
		URL:           "https://example.com/" + id,
		Prediction:    domain.Project(score),
		StreamVersion: version,
	}
}

func TestSQLiteReadModel_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	rm := openStorage(t).ReadModel()

	_, found, err := rm.Get(ctx, "news-1")
	require.NoError(t, err)
	assert.False(t, found)

	date := time.Date(2024, 4, 15, 14, 30, 0, 0, time.UTC)
	require.NoError(t, rm.Save(ctx, makeNews("news-1", date, 9, 0)))

	got, found, err := rm.Get(ctx, "news-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "NFLX", got.Ticker)
	assert.True(t, date.Equal(got.Date))
	assert.Equal(t, domain.Project(9), got.Prediction)
}

func TestSQLiteReadModel_OlderVersionDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	rm := openStorage(t).ReadModel()
	date := time.Now()

	require.NoError(t, rm.Save(ctx, makeNews("news-1", date, 9, 1)))
	require.NoError(t, rm.Save(ctx, makeNews("news-1", date, 2, 0)))

	got, _, err := rm.Get(ctx, "news-1")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Prediction.Score)
	assert.Equal(t, 1, got.StreamVersion)
}

func TestSQLiteReadModel_ByDateRange(t *testing.T) {
	ctx := context.Background()
	rm := openStorage(t).ReadModel()
	day := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, rm.Save(ctx, makeNews("a", day.Add(-time.Hour), 5, 0)))
	require.NoError(t, rm.Save(ctx, makeNews("b", day.Add(2*time.Hour), 6, 0)))
	require.NoError(t, rm.Save(ctx, makeNews("c", day.Add(20*time.Hour), 7, 0)))
	require.NoError(t, rm.Save(ctx, makeNews("d", day.Add(24*time.Hour), 8, 0)))

	got, err := rm.ByDateRange(ctx, "nflx", day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestSQLiteReadModel_RecentForTicker(t *testing.T) {
	ctx := context.Background()
	rm := openStorage(t).ReadModel()
	base := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, rm.Save(ctx, makeNews(id, base.Add(time.Duration(i)*time.Hour), 5, 0)))
	}

	got, err := rm.RecentForTicker(ctx, "NFLX", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	none, err := rm.RecentForTicker(ctx, "AAPL", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// --- directory ---

func TestSQLiteDirectory_SaveResolveList(t *testing.T) {
	ctx := context.Background()
	dir := openStorage(t).Directory()

	require.NoError(t, dir.Seed(ctx, []domain.Company{
		{ID: "NFLX", Ticker: "nflx", Name: "Netflix, Inc."},
		{ID: "AAPL", Ticker: "AAPL", Name: "Apple Inc."},
	}))

	c, err := dir.Resolve(ctx, " Nflx ")
	require.NoError(t, err)
	assert.Equal(t, "NFLX", c.Ticker)
	assert.Equal(t, "Netflix, Inc.", c.Name)

	_, err = dir.Resolve(ctx, "MSFT")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := dir.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "AAPL", list[0].Ticker)

	exists, err := dir.Exists(ctx, "NFLX")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = dir.Exists(ctx, "MSFT")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSQLiteDirectory_SaveRequiresTicker(t *testing.T) {
	err := openStorage(t).Directory().Save(context.Background(), domain.Company{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
