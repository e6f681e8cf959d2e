package prediction_test

import (
	"context"
	"math"
	"testing"

	"github.com/alejandrodnm/stocksense/internal/adapters/memory"
	"github.com/alejandrodnm/stocksense/internal/application/prediction"
	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(score float64) *prediction.Service {
	return prediction.New(
		memory.NewDirectory(memory.DefaultCompanies...),
		&memory.Model{Fixed: &score},
	)
}

func TestPredictFromText(t *testing.T) {
	got, err := newService(8.7).PredictFromText(context.Background(), "nflx", "Netflix beats estimates")
	require.NoError(t, err)
	assert.Equal(t, domain.Project(9), got)
}

func TestPredictFromURL_ClampsModelOutput(t *testing.T) {
	got, err := newService(-3).PredictFromURL(context.Background(), "AAPL", "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Score)
	assert.Equal(t, "Very sharp drop", got.Interpretation)
}

func TestPredict_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := newService(5).PredictFromText(ctx, "NFLX", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = newService(5).PredictFromText(ctx, "FAKE", "text")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = newService(math.Inf(1)).PredictFromURL(ctx, "NFLX", "https://example.com/a")
	assert.ErrorIs(t, err, domain.ErrInvalidScore)
}
