package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/splashxmoon/domufi-app/internal/service"
)

// TxRunner provides transactional repositories using a pgx pool.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := &txRepos{tx: tx}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type txRepos struct {
	tx pgx.Tx
}

func (r *txRepos) Properties() service.PropertyWriter {
	return NewPropertyRepositoryWithTx(r.tx)
}

func (r *txRepos) Markets() service.MarketWriter {
	return NewMarketDataRepositoryWithTx(r.tx)
}

func (r *txRepos) Wallets() service.WalletWriter {
	return NewWalletRepositoryWithTx(r.tx)
}

func (r *txRepos) Portfolios() service.PortfolioWriter {
	return NewPortfolioRepositoryWithTx(r.tx)
}

func (r *txRepos) Investments() service.InvestmentWriter {
	return NewInvestmentRepositoryWithTx(r.tx)
}
