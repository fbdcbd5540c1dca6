package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/splashxmoon/domufi-app/internal/domain"
)

type PortfolioRepository struct {
	db dbtx
}

func NewPortfolioRepository(pool *pgxpool.Pool) *PortfolioRepository {
	return &PortfolioRepository{db: pool}
}

func NewPortfolioRepositoryWithTx(tx pgx.Tx) *PortfolioRepository {
	return &PortfolioRepository{db: tx}
}

// GetByUser assembles a portfolio from the positions table. A user with no
// positions gets an empty portfolio, not an error.
func (r *PortfolioRepository) GetByUser(ctx context.Context, userID string) (*domain.Portfolio, error) {
	rows, err := r.db.Query(ctx,
		`SELECT pp.property_id, p.title, pp.tokens, pp.invested, pp.current_value, pp.yield_to_date, pp.updated_at
		 FROM portfolio_positions pp
		 JOIN properties p ON p.id = pp.property_id
		 WHERE pp.user_id = $1
		 ORDER BY pp.invested DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pf := domain.Portfolio{UserID: userID}
	for rows.Next() {
		var pos domain.PortfolioPosition
		var updatedAt time.Time
		if err := rows.Scan(&pos.PropertyID, &pos.PropertyTitle, &pos.Tokens, &pos.Invested, &pos.CurrentValue, &pos.YieldToDate, &updatedAt); err != nil {
			return nil, err
		}
		pf.Positions = append(pf.Positions, pos)
		pf.TotalInvested += pos.Invested
		pf.TotalValue += pos.CurrentValue
		if updatedAt.After(pf.LastUpdated) {
			pf.LastUpdated = updatedAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if pf.TotalInvested > 0 {
		pf.TotalReturn = (pf.TotalValue - pf.TotalInvested) / pf.TotalInvested
	}
	return &pf, nil
}

// UpsertPosition records or updates a user's holding in one property.
func (r *PortfolioRepository) UpsertPosition(ctx context.Context, userID string, pos domain.PortfolioPosition) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO portfolio_positions (user_id, property_id, tokens, invested, current_value, yield_to_date, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (user_id, property_id) DO UPDATE SET
		   tokens = portfolio_positions.tokens + EXCLUDED.tokens,
		   invested = portfolio_positions.invested + EXCLUDED.invested,
		   current_value = EXCLUDED.current_value,
		   yield_to_date = EXCLUDED.yield_to_date,
		   updated_at = NOW()`,
		userID, pos.PropertyID, pos.Tokens, pos.Invested, pos.CurrentValue, pos.YieldToDate,
	)
	return err
}
