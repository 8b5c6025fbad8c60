package store

import (
	"context"
	"errors"
	"fmt"

	"fund-report-rag/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FundStore persists funds.
type FundStore struct {
	pool *pgxpool.Pool
}

func NewFundStore(pool *pgxpool.Pool) *FundStore {
	return &FundStore{pool: pool}
}

// Create inserts a fund and returns it with its assigned id.
func (s *FundStore) Create(ctx context.Context, name string) (*models.Fund, error) {
	fund := &models.Fund{Name: name}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO funds (name) VALUES ($1)
		RETURNING id, created_at
	`, name).Scan(&fund.ID, &fund.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create fund: %w", err)
	}
	return fund, nil
}

// GetOrCreate returns the fund with the given name, creating it if absent.
func (s *FundStore) GetOrCreate(ctx context.Context, name string) (*models.Fund, error) {
	fund := &models.Fund{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO funds (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at
	`, name).Scan(&fund.ID, &fund.Name, &fund.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create fund: %w", err)
	}
	return fund, nil
}

// Get returns the fund with the given id.
func (s *FundStore) Get(ctx context.Context, id int64) (*models.Fund, error) {
	fund := &models.Fund{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, created_at FROM funds WHERE id = $1
	`, id).Scan(&fund.ID, &fund.Name, &fund.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrFundNotFound
		}
		return nil, fmt.Errorf("get fund: %w", err)
	}
	return fund, nil
}

// List returns all funds, newest first.
func (s *FundStore) List(ctx context.Context) ([]models.Fund, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, created_at FROM funds ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list funds: %w", err)
	}
	defer rows.Close()

	var funds []models.Fund
	for rows.Next() {
		var fund models.Fund
		if err := rows.Scan(&fund.ID, &fund.Name, &fund.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fund: %w", err)
		}
		funds = append(funds, fund)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate funds: %w", err)
	}
	return funds, nil
}
