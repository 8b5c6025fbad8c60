package metrics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"fund-report-rag/internal/models"
)

// TransactionSource supplies a fund's persisted transactions.
type TransactionSource interface {
	ListCapitalCalls(ctx context.Context, fundID int64) ([]models.CapitalCall, error)
	ListDistributions(ctx context.Context, fundID int64) ([]models.Distribution, error)
	ListAdjustments(ctx context.Context, fundID int64) ([]models.Adjustment, error)
}

// Calculator computes fund performance metrics from persisted transactions.
type Calculator struct {
	source TransactionSource
}

func NewCalculator(source TransactionSource) *Calculator {
	return &Calculator{source: source}
}

// CalculateAll computes the full metric set for a fund.
//
// PIC is the sum of capital calls minus the sum of adjustments; adjustments
// are fee and expense entries that offset contributed capital, so a negative
// adjustment raises PIC. DPI is total distributions over PIC (zero when PIC
// is zero). IRR
// is solved over the dated signed cash-flow series and is nil when the
// series has no sign change. NAV requires a valuation feed this system does
// not have, so NAV and RVPI are nil and TVPI falls back to DPI.
func (c *Calculator) CalculateAll(ctx context.Context, fundID int64) (*models.Metrics, error) {
	calls, err := c.source.ListCapitalCalls(ctx, fundID)
	if err != nil {
		return nil, fmt.Errorf("load capital calls: %w", err)
	}
	dists, err := c.source.ListDistributions(ctx, fundID)
	if err != nil {
		return nil, fmt.Errorf("load distributions: %w", err)
	}
	adjs, err := c.source.ListAdjustments(ctx, fundID)
	if err != nil {
		return nil, fmt.Errorf("load adjustments: %w", err)
	}

	return Compute(calls, dists, adjs), nil
}

// Compute derives the metric set from in-memory transactions.
func Compute(calls []models.CapitalCall, dists []models.Distribution, adjs []models.Adjustment) *models.Metrics {
	m := &models.Metrics{}

	totalCalls := 0.0
	for _, c := range calls {
		totalCalls += c.Amount.InexactFloat64()
	}
	totalAdjustments := 0.0
	for _, a := range adjs {
		totalAdjustments += a.Amount.InexactFloat64()
	}
	m.PIC = totalCalls - totalAdjustments

	for _, d := range dists {
		m.TotalDistributions += d.Amount.InexactFloat64()
	}

	if m.PIC != 0 {
		m.DPI = m.TotalDistributions / m.PIC
		// No valuation feed: residual value is unknown, so TVPI degrades to
		// the realized multiple.
		tvpi := m.DPI
		m.TVPI = &tvpi
	}

	if irr, ok := solveIRR(cashFlows(calls, dists)); ok {
		m.IRR = &irr
	}

	return m
}

// cashFlow is one dated signed amount: calls negative, distributions
// positive.
type cashFlow struct {
	date   time.Time
	amount float64
}

func cashFlows(calls []models.CapitalCall, dists []models.Distribution) []cashFlow {
	flows := make([]cashFlow, 0, len(calls)+len(dists))
	for _, c := range calls {
		flows = append(flows, cashFlow{date: c.CallDate, amount: -c.Amount.InexactFloat64()})
	}
	for _, d := range dists {
		flows = append(flows, cashFlow{date: d.DistributionDate, amount: d.Amount.InexactFloat64()})
	}
	sort.Slice(flows, func(i, j int) bool { return flows[i].date.Before(flows[j].date) })
	return flows
}

const (
	irrLow        = -0.99
	irrHigh       = 10.0
	irrTolerance  = 1e-7
	irrIterations = 200
)

// solveIRR finds the annualized rate at which the series' net present value
// is zero, by bisection. Returns false when the series cannot have a root:
// fewer than two flows or no sign change.
func solveIRR(flows []cashFlow) (float64, bool) {
	if len(flows) < 2 {
		return 0, false
	}
	hasNegative, hasPositive := false, false
	for _, f := range flows {
		if f.amount < 0 {
			hasNegative = true
		}
		if f.amount > 0 {
			hasPositive = true
		}
	}
	if !hasNegative || !hasPositive {
		return 0, false
	}

	low, high := irrLow, irrHigh
	npvLow := npv(flows, low)
	npvHigh := npv(flows, high)
	if npvLow*npvHigh > 0 {
		return 0, false
	}

	for i := 0; i < irrIterations; i++ {
		mid := (low + high) / 2
		npvMid := npv(flows, mid)
		if math.Abs(npvMid) < irrTolerance || (high-low)/2 < irrTolerance {
			return mid, true
		}
		if npvLow*npvMid < 0 {
			high = mid
		} else {
			low = mid
			npvLow = npvMid
		}
	}
	return (low + high) / 2, true
}

// npv discounts each flow by years elapsed since the first flow.
func npv(flows []cashFlow, rate float64) float64 {
	t0 := flows[0].date
	total := 0.0
	for _, f := range flows {
		years := f.date.Sub(t0).Hours() / (24 * 365.25)
		total += f.amount / math.Pow(1+rate, years)
	}
	return total
}
