package store

import (
	"context"
	"fmt"

	"fund-report-rag/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionStore persists the financial rows extracted from report tables.
// Each Save call writes its batch atomically: a failed insert rolls back the
// whole batch.
type TransactionStore struct {
	pool *pgxpool.Pool
}

func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// SaveCapitalCalls inserts a batch of capital calls in one transaction.
func (s *TransactionStore) SaveCapitalCalls(ctx context.Context, calls []models.CapitalCall) error {
	if len(calls) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range calls {
		batch.Queue(`
			INSERT INTO capital_calls (fund_id, call_date, call_type, amount, description)
			VALUES ($1, $2, $3, $4, $5)
		`, c.FundID, c.CallDate, c.CallType, c.Amount, c.Description)
	}
	if err := s.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("save capital calls: %w", err)
	}
	return nil
}

// SaveDistributions inserts a batch of distributions in one transaction.
func (s *TransactionStore) SaveDistributions(ctx context.Context, dists []models.Distribution) error {
	if len(dists) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, d := range dists {
		batch.Queue(`
			INSERT INTO distributions (fund_id, distribution_date, distribution_type, is_recallable, amount, description)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, d.FundID, d.DistributionDate, d.DistributionType, d.IsRecallable, d.Amount, d.Description)
	}
	if err := s.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("save distributions: %w", err)
	}
	return nil
}

// SaveAdjustments inserts a batch of adjustments in one transaction.
func (s *TransactionStore) SaveAdjustments(ctx context.Context, adjs []models.Adjustment) error {
	if len(adjs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range adjs {
		batch.Queue(`
			INSERT INTO adjustments (fund_id, adjustment_date, adjustment_type, category, amount, is_contribution_adjustment, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, a.FundID, a.AdjustmentDate, a.AdjustmentType, a.Category, a.Amount, a.IsContributionAdjustment, a.Description)
	}
	if err := s.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("save adjustments: %w", err)
	}
	return nil
}

func (s *TransactionStore) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return tx.Commit(ctx)
}

// ListCapitalCalls returns a fund's capital calls in date order.
func (s *TransactionStore) ListCapitalCalls(ctx context.Context, fundID int64) ([]models.CapitalCall, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, fund_id, call_date, call_type, amount, description
		FROM capital_calls WHERE fund_id = $1 ORDER BY call_date, id
	`, fundID)
	if err != nil {
		return nil, fmt.Errorf("list capital calls: %w", err)
	}
	defer rows.Close()

	var calls []models.CapitalCall
	for rows.Next() {
		var c models.CapitalCall
		if err := rows.Scan(&c.ID, &c.FundID, &c.CallDate, &c.CallType, &c.Amount, &c.Description); err != nil {
			return nil, fmt.Errorf("scan capital call: %w", err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate capital calls: %w", err)
	}
	return calls, nil
}

// ListDistributions returns a fund's distributions in date order.
func (s *TransactionStore) ListDistributions(ctx context.Context, fundID int64) ([]models.Distribution, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, fund_id, distribution_date, distribution_type, is_recallable, amount, description
		FROM distributions WHERE fund_id = $1 ORDER BY distribution_date, id
	`, fundID)
	if err != nil {
		return nil, fmt.Errorf("list distributions: %w", err)
	}
	defer rows.Close()

	var dists []models.Distribution
	for rows.Next() {
		var d models.Distribution
		if err := rows.Scan(&d.ID, &d.FundID, &d.DistributionDate, &d.DistributionType,
			&d.IsRecallable, &d.Amount, &d.Description); err != nil {
			return nil, fmt.Errorf("scan distribution: %w", err)
		}
		dists = append(dists, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distributions: %w", err)
	}
	return dists, nil
}

// ListAdjustments returns a fund's adjustments in date order.
func (s *TransactionStore) ListAdjustments(ctx context.Context, fundID int64) ([]models.Adjustment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, fund_id, adjustment_date, adjustment_type, category, amount, is_contribution_adjustment, description
		FROM adjustments WHERE fund_id = $1 ORDER BY adjustment_date, id
	`, fundID)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var adjs []models.Adjustment
	for rows.Next() {
		var a models.Adjustment
		if err := rows.Scan(&a.ID, &a.FundID, &a.AdjustmentDate, &a.AdjustmentType,
			&a.Category, &a.Amount, &a.IsContributionAdjustment, &a.Description); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		adjs = append(adjs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate adjustments: %w", err)
	}
	return adjs, nil
}
