package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/splashxmoon/domufi-app/internal/domain"
)

type MarketDataRepository struct {
	db dbtx
}

func NewMarketDataRepository(pool *pgxpool.Pool) *MarketDataRepository {
	return &MarketDataRepository{db: pool}
}

func NewMarketDataRepositoryWithTx(tx pgx.Tx) *MarketDataRepository {
	return &MarketDataRepository{db: tx}
}

func (r *MarketDataRepository) GetByCity(ctx context.Context, city string) (*domain.MarketStats, error) {
	var m domain.MarketStats
	err := r.db.QueryRow(ctx,
		`SELECT city, median_price, avg_rental_yield, price_change_yoy, inventory, as_of
		 FROM market_data
		 WHERE LOWER(city) = LOWER($1)
		 ORDER BY as_of DESC
		 LIMIT 1`,
		city,
	).Scan(&m.City, &m.MedianPrice, &m.AvgRentalYield, &m.PriceChangeYoY, &m.Inventory, &m.AsOf)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoMarketData
		}
		return nil, err
	}
	return &m, nil
}

func (r *MarketDataRepository) Upsert(ctx context.Context, m *domain.MarketStats) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO market_data (city, median_price, avg_rental_yield, price_change_yoy, inventory, as_of)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (city, as_of) DO UPDATE SET
		   median_price = EXCLUDED.median_price,
		   avg_rental_yield = EXCLUDED.avg_rental_yield,
		   price_change_yoy = EXCLUDED.price_change_yoy,
		   inventory = EXCLUDED.inventory`,
		m.City, m.MedianPrice, m.AvgRentalYield, m.PriceChangeYoY, m.Inventory, m.AsOf,
	)
	return err
}
