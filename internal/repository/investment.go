package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/splashxmoon/domufi-app/internal/domain"
)

type InvestmentRepository struct {
	db dbtx
}

func NewInvestmentRepository(pool *pgxpool.Pool) *InvestmentRepository {
	return &InvestmentRepository{db: pool}
}

func NewInvestmentRepositoryWithTx(tx pgx.Tx) *InvestmentRepository {
	return &InvestmentRepository{db: tx}
}

func (r *InvestmentRepository) Create(ctx context.Context, inv *domain.Investment) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO investments (id, user_id, property_id, tokens, amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inv.ID, inv.UserID, inv.PropertyID, inv.Tokens, inv.Amount, inv.Status, inv.CreatedAt,
	)
	return err
}

func (r *InvestmentRepository) ListByUser(ctx context.Context, userID string) ([]domain.Investment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, property_id, tokens, amount, status, created_at
		 FROM investments
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Investment
	for rows.Next() {
		var inv domain.Investment
		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.PropertyID, &inv.Tokens, &inv.Amount, &inv.Status, &inv.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, inv)
	}
	return items, rows.Err()
}
