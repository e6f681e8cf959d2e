package firestore_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/stocksense/internal/adapters/firestore"
	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Estos tests necesitan el emulador:
//
//	gcloud emulators firestore start --host-port=localhost:8081
//	FIRESTORE_EMULATOR_HOST=localhost:8081 go test ./internal/adapters/firestore/
func newStore(t *testing.T) *firestore.EventStore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	s, err := firestore.NewEventStore(context.Background(), "stocksense-test")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func batch(id string, from int, n int) []domain.DomainEvent {
	out := make([]domain.DomainEvent, n)
	for i := range out {
		v := from + i
		var p domain.Payload = domain.AssetFeelingDetected{Ticker: "NFLX", NewsID: id, Score: 7}
		if v == 0 {
			p = domain.FirstTickerPrediction{Ticker: "NFLX"}
		}
		out[i] = domain.NewEvent(id, v, time.Now(), p)
	}
	return out
}

func TestEventStore_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := uuid.NewString()

	got, err := s.Events(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	require.NoError(t, s.Append(ctx, id, batch(id, 0, 2), 0))

	got, err = s.Events(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.EventFirstTickerPrediction, got[0].Type())
	assert.Equal(t, 7, got[1].Payload.(domain.AssetFeelingDetected).Score)
}

func TestEventStore_Conflict(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := uuid.NewString()

	require.NoError(t, s.Append(ctx, id, batch(id, 0, 1), 0))
	err := s.Append(ctx, id, batch(id, 0, 1), 0)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	got, err := s.Events(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEventStore_ConcurrentAppendsOneWinner(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := uuid.NewString()

	const writers = 5
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Append(ctx, id, batch(id, 0, 2), 0)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		// Con contención alta el emulador puede abortar la transacción.
		assert.True(t, errors.Is(err, domain.ErrConcurrencyConflict) || errors.Is(err, domain.ErrStorageUnavailable), err)
	}
	assert.Equal(t, 1, wins)

	got, err := s.Events(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestEventStore_RejectsMalformedBatch(t *testing.T) {
	s := newStore(t)
	err := s.Append(context.Background(), "x", batch("x", 1, 1), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
