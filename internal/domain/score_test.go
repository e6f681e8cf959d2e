package domain_test

import (
	"math"
	"testing"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		want domain.RawScore
	}{
		{"negative clamps to zero", -5.7, 0},
		{"above range clamps to ten", 15.2, 10},
		{"rounds up", 8.7, 9},
		{"rounds down", 3.2, 3},
		{"half to even down", 4.5, 4},
		{"half to even up", 5.5, 6},
		{"negative half rounds to zero", -0.5, 0},
		{"upper half clamps", 10.5, 10},
		{"exact", 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.NormalizeScore(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeScore_NonFinite(t *testing.T) {
	for _, raw := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := domain.NormalizeScore(raw)
		assert.ErrorIs(t, err, domain.ErrInvalidScore)
	}
}

func TestNormalizeScore_AlwaysInRange(t *testing.T) {
	for raw := -100.0; raw <= 100.0; raw += 0.25 {
		got, err := domain.NormalizeScore(raw)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Int(), domain.MinScore)
		assert.LessOrEqual(t, got.Int(), domain.MaxScore)
	}
}
