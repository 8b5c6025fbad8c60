package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"fund-report-rag/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCompute_PICAndDPI(t *testing.T) {
	calls := []models.CapitalCall{
		{FundID: 1, CallDate: date(2020, 1, 15), Amount: decimal.NewFromInt(100)},
		{FundID: 1, CallDate: date(2020, 6, 15), Amount: decimal.NewFromInt(50)},
	}
	adjs := []models.Adjustment{
		{FundID: 1, AdjustmentDate: date(2020, 7, 1), Amount: decimal.NewFromInt(10)},
	}
	dists := []models.Distribution{
		{FundID: 1, DistributionDate: date(2022, 1, 15), Amount: decimal.NewFromInt(70)},
	}

	m := Compute(calls, dists, adjs)

	assert.InDelta(t, 140.0, m.PIC, 1e-9)
	assert.InDelta(t, 70.0, m.TotalDistributions, 1e-9)
	assert.InDelta(t, 0.5, m.DPI, 1e-9)
	require.NotNil(t, m.TVPI)
	assert.InDelta(t, 0.5, *m.TVPI, 1e-9)
	assert.Nil(t, m.NAV)
	assert.Nil(t, m.RVPI)
}

func TestCompute_AllAdjustmentsReducePIC(t *testing.T) {
	calls := []models.CapitalCall{
		{FundID: 1, CallDate: date(2020, 1, 1), Amount: decimal.NewFromInt(100)},
		{FundID: 1, CallDate: date(2020, 2, 1), Amount: decimal.NewFromInt(50)},
	}
	// Ingested adjustments carry no special flag; every one offsets
	// contributed capital.
	adjs := []models.Adjustment{
		{FundID: 1, AdjustmentDate: date(2020, 3, 1), Amount: decimal.NewFromInt(10)},
	}

	m := Compute(calls, nil, adjs)
	assert.InDelta(t, 140.0, m.PIC, 1e-9)
}

func TestCompute_ZeroPIC(t *testing.T) {
	dists := []models.Distribution{
		{FundID: 1, DistributionDate: date(2022, 1, 15), Amount: decimal.NewFromInt(70)},
	}

	m := Compute(nil, dists, nil)

	assert.Zero(t, m.PIC)
	assert.Zero(t, m.DPI)
	assert.Nil(t, m.TVPI)
	assert.InDelta(t, 70.0, m.TotalDistributions, 1e-9)
}

func TestCompute_IRRPositive(t *testing.T) {
	calls := []models.CapitalCall{
		{FundID: 1, CallDate: date(2020, 1, 1), Amount: decimal.NewFromInt(1000)},
	}
	dists := []models.Distribution{
		{FundID: 1, DistributionDate: date(2022, 1, 1), Amount: decimal.NewFromInt(1440)},
	}

	m := Compute(calls, dists, nil)

	require.NotNil(t, m.IRR)
	// 1000 grows to 1440 over two years: rate = sqrt(1.44) - 1 = 0.2.
	assert.InDelta(t, 0.2, *m.IRR, 1e-3)
}

func TestCompute_IRRNeedsSignChange(t *testing.T) {
	calls := []models.CapitalCall{
		{FundID: 1, CallDate: date(2020, 1, 1), Amount: decimal.NewFromInt(100)},
		{FundID: 1, CallDate: date(2021, 1, 1), Amount: decimal.NewFromInt(100)},
	}

	m := Compute(calls, nil, nil)
	assert.Nil(t, m.IRR)

	m = Compute(nil, nil, nil)
	assert.Nil(t, m.IRR)
}

type fakeSource struct {
	calls []models.CapitalCall
	dists []models.Distribution
	adjs  []models.Adjustment
	err   error
}

func (s *fakeSource) ListCapitalCalls(ctx context.Context, fundID int64) ([]models.CapitalCall, error) {
	return s.calls, s.err
}

func (s *fakeSource) ListDistributions(ctx context.Context, fundID int64) ([]models.Distribution, error) {
	return s.dists, s.err
}

func (s *fakeSource) ListAdjustments(ctx context.Context, fundID int64) ([]models.Adjustment, error) {
	return s.adjs, s.err
}

func TestCalculateAll(t *testing.T) {
	source := &fakeSource{
		calls: []models.CapitalCall{{CallDate: date(2020, 1, 1), Amount: decimal.NewFromInt(200)}},
		dists: []models.Distribution{{DistributionDate: date(2021, 1, 1), Amount: decimal.NewFromInt(100)}},
	}

	m, err := NewCalculator(source).CalculateAll(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, m.PIC, 1e-9)
	assert.InDelta(t, 0.5, m.DPI, 1e-9)
}

func TestCalculateAll_SourceError(t *testing.T) {
	source := &fakeSource{err: errors.New("db down")}

	_, err := NewCalculator(source).CalculateAll(context.Background(), 1)
	require.Error(t, err)
}
