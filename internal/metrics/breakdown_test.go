package metrics

import (
	"context"
	"testing"

	"fund-report-rag/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func breakdownSource() *fakeSource {
	return &fakeSource{
		calls: []models.CapitalCall{
			{CallDate: date(2020, 1, 1), Amount: decimal.NewFromInt(100), Description: "Initial call"},
			{CallDate: date(2020, 2, 1), Amount: decimal.NewFromInt(50), Description: "Follow-on"},
		},
		adjs: []models.Adjustment{
			{AdjustmentDate: date(2020, 3, 1), Amount: decimal.NewFromInt(10), Description: "Fee"},
		},
		dists: []models.Distribution{
			{DistributionDate: date(2020, 6, 1), Amount: decimal.NewFromInt(90), Description: "Proceeds"},
			{DistributionDate: date(2021, 1, 1), Amount: decimal.NewFromInt(50), Description: "Proceeds"},
		},
	}
}

func TestCalculationBreakdown_PIC(t *testing.T) {
	calc := NewCalculator(breakdownSource())

	b, err := calc.CalculationBreakdown(context.Background(), 1, "pic")
	require.NoError(t, err)

	assert.Equal(t, "PIC", b.Metric)
	require.NotNil(t, b.Result)
	assert.InDelta(t, 140.0, *b.Result, 1e-9)
	require.NotNil(t, b.TotalCalls)
	assert.InDelta(t, 150.0, *b.TotalCalls, 1e-9)
	require.NotNil(t, b.TotalAdjustments)
	assert.InDelta(t, 10.0, *b.TotalAdjustments, 1e-9)
	assert.Len(t, b.Transactions.CapitalCalls, 2)
	assert.Len(t, b.Transactions.Adjustments, 1)
}

func TestCalculationBreakdown_DPI(t *testing.T) {
	calc := NewCalculator(breakdownSource())

	b, err := calc.CalculationBreakdown(context.Background(), 1, "DPI")
	require.NoError(t, err)

	assert.Equal(t, "DPI", b.Metric)
	require.NotNil(t, b.Result)
	assert.InDelta(t, 1.0, *b.Result, 1e-9)
	require.NotNil(t, b.PIC)
	assert.InDelta(t, 140.0, *b.PIC, 1e-9)
	require.NotNil(t, b.TotalDistributions)
	assert.InDelta(t, 140.0, *b.TotalDistributions, 1e-9)
	assert.Len(t, b.Transactions.Distributions, 2)
}

func TestCalculationBreakdown_IRRCashFlows(t *testing.T) {
	calc := NewCalculator(breakdownSource())

	b, err := calc.CalculationBreakdown(context.Background(), 1, "irr")
	require.NoError(t, err)

	assert.Equal(t, "IRR", b.Metric)
	require.NotNil(t, b.Result)
	require.Len(t, b.CashFlows, 4)
	// Flows are chronological with calls negated.
	assert.InDelta(t, -100.0, b.CashFlows[0].Amount, 1e-9)
	assert.InDelta(t, 50.0, b.CashFlows[3].Amount, 1e-9)

	require.NotNil(t, b.CashFlowSummary)
	assert.Less(t, b.CashFlowSummary.TotalOutflows, 0.0)
	assert.Greater(t, b.CashFlowSummary.TotalInflows, 0.0)
	assert.Equal(t, 4, b.CashFlowSummary.Count)
}

func TestCalculationBreakdown_UnknownMetric(t *testing.T) {
	calc := NewCalculator(breakdownSource())

	_, err := calc.CalculationBreakdown(context.Background(), 1, "moic")
	require.ErrorIs(t, err, ErrUnknownMetric)
}
