package service

import (
	"context"
	"log"

	"github.com/splashxmoon/domufi-app/internal/domain"
)

// PropertyReader is the listing surface the data service reads.
type PropertyReader interface {
	ListAvailable(ctx context.Context, limit int) ([]domain.Property, error)
}

// PortfolioReader loads a user's assembled portfolio.
type PortfolioReader interface {
	GetByUser(ctx context.Context, userID string) (*domain.Portfolio, error)
}

// InvestmentReader lists a user's purchases.
type InvestmentReader interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Investment, error)
}

// WalletReader loads a user's cash balance.
type WalletReader interface {
	GetByUser(ctx context.Context, userID string) (*domain.Wallet, error)
}

// MarketReader loads aggregated market rows.
type MarketReader interface {
	GetByCity(ctx context.Context, city string) (*domain.MarketStats, error)
}

const platformListLimit = 50

// PlatformDataService adapts the repositories to the response generator.
// Every accessor degrades to empty data on failure so the chat path keeps
// answering from knowledge alone when the database is down or absent.
type PlatformDataService struct {
	properties  PropertyReader
	portfolios  PortfolioReader
	investments InvestmentReader
	wallets     WalletReader
	markets     MarketReader
}

func NewPlatformDataService(
	properties PropertyReader,
	portfolios PortfolioReader,
	investments InvestmentReader,
	wallets WalletReader,
	markets MarketReader,
) *PlatformDataService {
	return &PlatformDataService{
		properties:  properties,
		portfolios:  portfolios,
		investments: investments,
		wallets:     wallets,
		markets:     markets,
	}
}

func (s *PlatformDataService) Properties(ctx context.Context) []domain.Property {
	if s.properties == nil {
		return nil
	}
	items, err := s.properties.ListAvailable(ctx, platformListLimit)
	if err != nil {
		log.Printf("platform: list properties: %v", err)
		return nil
	}
	return items
}

func (s *PlatformDataService) Portfolio(ctx context.Context, userID string) *domain.Portfolio {
	if s.portfolios == nil || userID == "" {
		return nil
	}
	pf, err := s.portfolios.GetByUser(ctx, userID)
	if err != nil {
		log.Printf("platform: portfolio for %s: %v", userID, err)
		return nil
	}
	return pf
}

func (s *PlatformDataService) Investments(ctx context.Context, userID string) []domain.Investment {
	if s.investments == nil || userID == "" {
		return nil
	}
	items, err := s.investments.ListByUser(ctx, userID)
	if err != nil {
		log.Printf("platform: investments for %s: %v", userID, err)
		return nil
	}
	return items
}

func (s *PlatformDataService) Wallet(ctx context.Context, userID string) *domain.Wallet {
	if s.wallets == nil || userID == "" {
		return nil
	}
	w, err := s.wallets.GetByUser(ctx, userID)
	if err != nil {
		log.Printf("platform: wallet for %s: %v", userID, err)
		return nil
	}
	return w
}

func (s *PlatformDataService) Market(ctx context.Context, city string) *domain.MarketStats {
	if s.markets == nil || city == "" {
		return nil
	}
	m, err := s.markets.GetByCity(ctx, city)
	if err != nil {
		log.Printf("platform: market stats for %s: %v", city, err)
		return nil
	}
	return m
}
