package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/splashxmoon/domufi-app/internal/domain"
)

type WalletRepository struct {
	db dbtx
}

func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{db: pool}
}

func NewWalletRepositoryWithTx(tx pgx.Tx) *WalletRepository {
	return &WalletRepository{db: tx}
}

func (r *WalletRepository) GetByUser(ctx context.Context, userID string) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.db.QueryRow(ctx,
		`SELECT user_id, balance, currency, updated_at
		 FROM wallets WHERE user_id = $1`,
		userID,
	).Scan(&w.UserID, &w.Balance, &w.Currency, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepository) Credit(ctx context.Context, userID string, amount float64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO wallets (user_id, balance, currency, updated_at)
		 VALUES ($1, $2, 'USD', NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
		   balance = wallets.balance + EXCLUDED.balance,
		   updated_at = NOW()`,
		userID, amount,
	)
	return err
}
