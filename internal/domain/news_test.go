package domain_test

import (
	"testing"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestClampRecentLimit(t *testing.T) {
	assert.Equal(t, domain.DefaultRecentLimit, domain.ClampRecentLimit(0))
	assert.Equal(t, domain.DefaultRecentLimit, domain.ClampRecentLimit(-3))
	assert.Equal(t, 7, domain.ClampRecentLimit(7))
	assert.Equal(t, domain.MaxRecentLimit, domain.ClampRecentLimit(500))
}

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "NFLX", domain.NormalizeTicker(" nflx "))
	assert.Equal(t, "", domain.NormalizeTicker("   "))
}
