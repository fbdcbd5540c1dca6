package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/splashxmoon/domufi-app/internal/domain"
)

type PropertyRepository struct {
	db dbtx
}

func NewPropertyRepository(pool *pgxpool.Pool) *PropertyRepository {
	return &PropertyRepository{db: pool}
}

func NewPropertyRepositoryWithTx(tx pgx.Tx) *PropertyRepository {
	return &PropertyRepository{db: tx}
}

func (r *PropertyRepository) Create(ctx context.Context, p *domain.Property) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO properties (id, title, city, state, property_type, bedrooms, price, token_price, tokens_total, tokens_sold, expected_yield, risk_level, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID, p.Title, p.City, p.State, p.PropertyType, p.Bedrooms, p.Price, p.TokenPrice, p.TokensTotal, p.TokensSold, p.ExpectedYield, p.RiskLevel, p.Status, p.CreatedAt,
	)
	return err
}

func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	var p domain.Property
	err := r.db.QueryRow(ctx,
		`SELECT id, title, city, state, property_type, bedrooms, price, token_price, tokens_total, tokens_sold, expected_yield, risk_level, status, created_at
		 FROM properties WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Title, &p.City, &p.State, &p.PropertyType, &p.Bedrooms, &p.Price, &p.TokenPrice, &p.TokensTotal, &p.TokensSold, &p.ExpectedYield, &p.RiskLevel, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPropertyNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PropertyRepository) ListAvailable(ctx context.Context, limit int) ([]domain.Property, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, title, city, state, property_type, bedrooms, price, token_price, tokens_total, tokens_sold, expected_yield, risk_level, status, created_at
		 FROM properties
		 WHERE status = 'available' AND tokens_sold < tokens_total
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPropertyRows(rows)
}

func (r *PropertyRepository) ListByCity(ctx context.Context, city string, limit int) ([]domain.Property, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, title, city, state, property_type, bedrooms, price, token_price, tokens_total, tokens_sold, expected_yield, risk_level, status, created_at
		 FROM properties
		 WHERE LOWER(city) = LOWER($1)
		 ORDER BY expected_yield DESC
		 LIMIT $2`,
		city, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPropertyRows(rows)
}

func scanPropertyRows(rows pgx.Rows) ([]domain.Property, error) {
	var items []domain.Property
	for rows.Next() {
		var p domain.Property
		if err := rows.Scan(&p.ID, &p.Title, &p.City, &p.State, &p.PropertyType, &p.Bedrooms, &p.Price, &p.TokenPrice, &p.TokensTotal, &p.TokensSold, &p.ExpectedYield, &p.RiskLevel, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
