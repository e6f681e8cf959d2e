package domain_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 4, 6, 12, 0, 0, 0, time.UTC)

func makeNews(id string) domain.News {
	return domain.News{
		ID:     id,
		Ticker: "NFLX",
		Date:   t0,
		Title:  "Netflix hits record",
		URL:    "https://example.com/netflix-news1",
	}
}

func feelingEvent(aggID string, version, score int) domain.DomainEvent {
	return domain.NewEvent(aggID, version, t0, domain.AssetFeelingDetected{
		Ticker: "NFLX",
		NewsID: aggID,
		URL:    "https://example.com/" + aggID,
		Title:  "title " + aggID,
		Date:   t0,
		Score:  score,
	})
}

func TestAggregate_RegisterObservation_Empty(t *testing.T) {
	agg := domain.NewPredictionAggregate("n1")

	require.NoError(t, agg.RegisterObservation(makeNews("n1"), 9, t0))

	pending := agg.PendingEvents()
	require.Len(t, pending, 1)
	e := pending[0]
	assert.Equal(t, domain.EventAssetFeelingDetected, e.Type())
	assert.Equal(t, "n1", e.AggregateID)
	assert.Equal(t, 0, e.Version)
	assert.NotEmpty(t, e.ID)

	st := agg.State()
	assert.Equal(t, "NFLX", st.Ticker)
	assert.Equal(t, "n1", st.NewsID)
	assert.Equal(t, 9, st.Prediction.Score)
	assert.Equal(t, "Significant rise", st.Prediction.Interpretation)
	assert.Equal(t, "+2% a +2.5%", st.Prediction.PercentageRange)

	assert.Equal(t, 1, agg.Version())
	assert.Equal(t, 0, agg.ExpectedVersion())
}

func TestAggregate_RegisterObservation_Duplicate(t *testing.T) {
	agg, err := domain.RehydratePrediction("n1", []domain.DomainEvent{feelingEvent("n1", 0, 7)})
	require.NoError(t, err)

	require.NoError(t, agg.RegisterObservation(makeNews("n1"), 2, t0))

	assert.Empty(t, agg.PendingEvents())
	assert.Equal(t, 7, agg.State().Prediction.Score, "el primer sentimiento registrado se conserva")
	assert.Equal(t, 1, agg.ExpectedVersion())
}

func TestAggregate_RegisterObservation_AfterFirstTicker(t *testing.T) {
	first := domain.NewEvent("n1", 0, t0, domain.FirstTickerPrediction{Ticker: "NFLX"})
	agg, err := domain.RehydratePrediction("n1", []domain.DomainEvent{first})
	require.NoError(t, err)

	require.NoError(t, agg.RegisterObservation(makeNews("n1"), 3, t0))

	pending := agg.PendingEvents()
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Version)
	assert.Equal(t, 1, agg.ExpectedVersion())
	assert.Equal(t, "Slight drop", agg.State().Prediction.Interpretation)
}

func TestAggregate_RegisterObservation_WrongStream(t *testing.T) {
	agg := domain.NewPredictionAggregate("n1")
	err := agg.RegisterObservation(makeNews("other"), 5, t0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, agg.PendingEvents())
}

func TestAggregate_MarkCommitted(t *testing.T) {
	agg := domain.NewPredictionAggregate("n1")
	require.NoError(t, agg.RegisterObservation(makeNews("n1"), 5, t0))

	agg.MarkCommitted()

	assert.Empty(t, agg.PendingEvents())
	assert.Equal(t, 1, agg.Version(), "los eventos committed siguen en el historial")
	assert.Equal(t, 1, agg.ExpectedVersion())
	assert.Equal(t, 5, agg.State().Prediction.Score)
}

func TestRehydratePrediction_Idempotent(t *testing.T) {
	stream := []domain.DomainEvent{
		domain.NewEvent("n1", 0, t0, domain.FirstTickerPrediction{Ticker: "NFLX"}),
		feelingEvent("n1", 1, 8),
	}

	a, err := domain.RehydratePrediction("n1", stream)
	require.NoError(t, err)
	b, err := domain.RehydratePrediction("n1", stream)
	require.NoError(t, err)

	assert.Equal(t, a.State(), b.State())
	assert.Equal(t, a.Version(), b.Version())
	assert.Equal(t, 2, a.Version())
	assert.Empty(t, a.PendingEvents())
}

func TestRehydratePrediction_EmptyStream(t *testing.T) {
	agg, err := domain.RehydratePrediction("n1", nil)
	require.NoError(t, err)
	assert.True(t, agg.State().IsEmpty())
	assert.Equal(t, 0, agg.Version())
}

func TestRehydratePrediction_Corrupt(t *testing.T) {
	tests := []struct {
		name   string
		stream []domain.DomainEvent
	}{
		{
			name:   "version gap",
			stream: []domain.DomainEvent{feelingEvent("n1", 1, 5)},
		},
		{
			name:   "duplicated version",
			stream: []domain.DomainEvent{feelingEvent("n1", 0, 5), feelingEvent("n1", 0, 6)},
		},
		{
			name:   "foreign event",
			stream: []domain.DomainEvent{feelingEvent("n2", 0, 5)},
		},
		{
			name: "first prediction on active stream",
			stream: []domain.DomainEvent{
				feelingEvent("n1", 0, 5),
				domain.NewEvent("n1", 1, t0, domain.FirstTickerPrediction{Ticker: "NFLX"}),
			},
		},
		{
			name:   "nil payload",
			stream: []domain.DomainEvent{{ID: "x", AggregateID: "n1", Version: 0}},
		},
		{
			name:   "score out of range",
			stream: []domain.DomainEvent{feelingEvent("n1", 0, 42)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.RehydratePrediction("n1", tt.stream)
			assert.ErrorIs(t, err, domain.ErrCorruptStream)
		})
	}
}

func TestPayloadCodec(t *testing.T) {
	in := domain.AssetFeelingDetected{
		Ticker: "NFLX", NewsID: "n1", URL: "https://x", Title: "t", Date: t0, Score: 9,
	}
	typ, data, err := domain.EncodePayload(in)
	require.NoError(t, err)
	assert.Equal(t, domain.EventAssetFeelingDetected, typ)

	out, err := domain.DecodePayload(typ, data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = domain.DecodePayload("SOMETHING_ELSE", data)
	assert.ErrorIs(t, err, domain.ErrCorruptStream)

	_, err = domain.DecodePayload(domain.EventAssetFeelingDetected, []byte("{"))
	assert.ErrorIs(t, err, domain.ErrCorruptStream)
}

func TestConflictError_Is(t *testing.T) {
	var err error = &domain.ConflictError{AggregateID: "n1", Expected: 0, Actual: 1}
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Contains(t, err.Error(), "n1")
}
