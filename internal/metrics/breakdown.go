package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fund-report-rag/internal/models"
)

// ErrUnknownMetric is returned when a breakdown is requested for a metric
// name the calculator does not recognize.
var ErrUnknownMetric = errors.New("unknown metric")

// Transactions groups the persisted rows that fed a calculation.
type Transactions struct {
	CapitalCalls  []models.CapitalCall  `json:"capital_calls"`
	Distributions []models.Distribution `json:"distributions"`
	Adjustments   []models.Adjustment   `json:"adjustments"`
}

// CashFlowEntry is one dated signed flow: calls negative, distributions
// positive.
type CashFlowEntry struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// CashFlowSummary aggregates a cash-flow series by sign.
type CashFlowSummary struct {
	TotalInflows  float64 `json:"total_inflows"`
	TotalOutflows float64 `json:"total_outflows"`
	Count         int     `json:"count"`
}

// Breakdown explains how a single metric was derived. Only the fields
// relevant to the requested metric are populated.
type Breakdown struct {
	Metric             string           `json:"metric"`
	Result             *float64         `json:"result"`
	PIC                *float64         `json:"pic,omitempty"`
	TotalCalls         *float64         `json:"total_calls,omitempty"`
	TotalAdjustments   *float64         `json:"total_adjustments,omitempty"`
	TotalDistributions *float64         `json:"total_distributions,omitempty"`
	Transactions       Transactions     `json:"transactions"`
	CashFlows          []CashFlowEntry  `json:"cash_flows,omitempty"`
	CashFlowSummary    *CashFlowSummary `json:"cash_flow_summary,omitempty"`
}

// CalculationBreakdown loads a fund's transactions and explains one metric:
// the result plus the intermediate totals and rows behind it. The metric
// name is case-insensitive; pic, dpi, tvpi and irr are supported.
func (c *Calculator) CalculationBreakdown(ctx context.Context, fundID int64, metric string) (*Breakdown, error) {
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

	m := Compute(calls, dists, adjs)
	b := &Breakdown{
		Transactions: Transactions{
			CapitalCalls:  calls,
			Distributions: dists,
			Adjustments:   adjs,
		},
	}

	switch strings.ToLower(metric) {
	case "pic":
		b.Metric = "PIC"
		b.Result = ptr(m.PIC)
		totalCalls := 0.0
		for _, call := range calls {
			totalCalls += call.Amount.InexactFloat64()
		}
		totalAdjustments := 0.0
		for _, a := range adjs {
			totalAdjustments += a.Amount.InexactFloat64()
		}
		b.TotalCalls = ptr(totalCalls)
		b.TotalAdjustments = ptr(totalAdjustments)
	case "dpi":
		b.Metric = "DPI"
		b.Result = ptr(m.DPI)
		b.PIC = ptr(m.PIC)
		b.TotalDistributions = ptr(m.TotalDistributions)
	case "tvpi":
		b.Metric = "TVPI"
		b.Result = m.TVPI
		b.PIC = ptr(m.PIC)
		b.TotalDistributions = ptr(m.TotalDistributions)
	case "irr":
		b.Metric = "IRR"
		b.Result = m.IRR
		flows := cashFlows(calls, dists)
		summary := &CashFlowSummary{Count: len(flows)}
		for _, f := range flows {
			b.CashFlows = append(b.CashFlows, CashFlowEntry{Date: f.date, Amount: f.amount})
			if f.amount < 0 {
				summary.TotalOutflows += f.amount
			} else {
				summary.TotalInflows += f.amount
			}
		}
		b.CashFlowSummary = summary
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	return b, nil
}

func ptr(v float64) *float64 { return &v }
