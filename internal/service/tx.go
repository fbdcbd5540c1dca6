package service

import (
	"context"

	"github.com/splashxmoon/domufi-app/internal/domain"
)

// PropertyWriter creates property listings.
type PropertyWriter interface {
	Create(ctx context.Context, p *domain.Property) error
}

// MarketWriter writes aggregated market rows.
type MarketWriter interface {
	Upsert(ctx context.Context, m *domain.MarketStats) error
}

// WalletWriter adjusts a user's cash balance.
type WalletWriter interface {
	Credit(ctx context.Context, userID string, amount float64) error
}

// PortfolioWriter records a user's holdings.
type PortfolioWriter interface {
	UpsertPosition(ctx context.Context, userID string, pos domain.PortfolioPosition) error
}

// InvestmentWriter records completed purchases.
type InvestmentWriter interface {
	Create(ctx context.Context, inv *domain.Investment) error
}

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Properties() PropertyWriter
	Markets() MarketWriter
	Wallets() WalletWriter
	Portfolios() PortfolioWriter
	Investments() InvestmentWriter
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
