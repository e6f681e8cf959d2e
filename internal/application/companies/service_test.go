package companies_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/stocksense/internal/adapters/memory"
	"github.com/alejandrodnm/stocksense/internal/application/companies"
	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockInfo struct {
	names map[string]string
	calls int
}

func (m *mockInfo) CompanyName(_ context.Context, ticker string) (string, error) {
	m.calls++
	n, ok := m.names[ticker]
	if !ok {
		return "", domain.ErrNotFound
	}
	return n, nil
}

func newService(info *mockInfo) (*companies.Service, *memory.Directory) {
	dir := memory.NewDirectory(memory.DefaultCompanies...)
	return companies.New(dir, info, memory.NewPrices(memory.DefaultPrices)), dir
}

func TestRegister_LooksUpName(t *testing.T) {
	ctx := context.Background()
	info := &mockInfo{names: map[string]string{"ORCL": "Oracle Corporation"}}
	svc, dir := newService(info)

	c, err := svc.Register(ctx, "asset-1", "orcl", "")
	require.NoError(t, err)
	assert.Equal(t, domain.Company{ID: "asset-1", Ticker: "ORCL", Name: "Oracle Corporation"}, c)

	got, err := dir.Resolve(ctx, "ORCL")
	require.NoError(t, err)
	assert.Equal(t, "asset-1", got.ID)
}

func TestRegister_IdempotentOnID(t *testing.T) {
	ctx := context.Background()
	svc, dir := newService(&mockInfo{})

	_, err := svc.Register(ctx, "NFLX", "NFLX", "Renamed")
	require.NoError(t, err)

	got, err := dir.Resolve(ctx, "NFLX")
	require.NoError(t, err)
	assert.Equal(t, "Netflix, Inc.", got.Name)
}

func TestRegister_ProvidedNameSkipsLookup(t *testing.T) {
	info := &mockInfo{}
	svc, _ := newService(info)

	_, err := svc.Register(context.Background(), "", "ibm", "IBM")
	require.NoError(t, err)
	assert.Zero(t, info.calls)
}

func TestRegister_UnknownTicker(t *testing.T) {
	svc, _ := newService(&mockInfo{})

	_, err := svc.Register(context.Background(), "x", "ZZZZ", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Register(context.Background(), "x", " ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListAndInfo(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(&mockInfo{})

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(memory.DefaultCompanies))

	c, err := svc.Info(ctx, "tsla")
	require.NoError(t, err)
	assert.Equal(t, "Tesla, Inc.", c.Name)

	_, err = svc.Info(ctx, "FAKE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoricalPrices(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(&mockInfo{})
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan2 := jan1.AddDate(0, 0, 1)

	got, err := svc.HistoricalPrices(ctx, "AAPL", jan1, jan2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = svc.HistoricalPrices(ctx, "AAPL", jan2, jan1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.HistoricalPrices(ctx, "FAKE", jan1, jan2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
