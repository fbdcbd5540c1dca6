package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/splashxmoon/domufi-app/internal/domain"
)

// DemoUserID is the account the sample wallet and portfolio belong to.
const DemoUserID = "demo-user"

// SeedDemoData loads a small set of sample listings, market rows and one
// demo account so a fresh database has something to answer from. A
// database that already has listings is left alone. Returns whether it
// seeded anything.
func SeedDemoData(ctx context.Context, runner TxRunner, properties PropertyReader) (bool, error) {
	existing, err := properties.ListAvailable(ctx, 1)
	if err != nil {
		return false, fmt.Errorf("check existing listings: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	now := time.Now().UTC()
	listings := demoListings(now)

	err = runner.WithTx(ctx, func(repos TxRepositories) error {
		for i := range listings {
			if err := repos.Properties().Create(ctx, &listings[i]); err != nil {
				return fmt.Errorf("seed property %q: %w", listings[i].Title, err)
			}
		}

		for _, m := range demoMarkets(now) {
			stats := m
			if err := repos.Markets().Upsert(ctx, &stats); err != nil {
				return fmt.Errorf("seed market %q: %w", m.City, err)
			}
		}

		if err := repos.Wallets().Credit(ctx, DemoUserID, 1000); err != nil {
			return fmt.Errorf("seed demo wallet: %w", err)
		}

		first := listings[0]
		tokens := int64(4)
		amount := float64(tokens) * first.TokenPrice

		inv := domain.Investment{
			ID:         uuid.NewString(),
			UserID:     DemoUserID,
			PropertyID: first.ID,
			Tokens:     tokens,
			Amount:     amount,
			Status:     "completed",
			CreatedAt:  now,
		}
		if err := repos.Investments().Create(ctx, &inv); err != nil {
			return fmt.Errorf("seed demo investment: %w", err)
		}

		pos := domain.PortfolioPosition{
			PropertyID:    first.ID,
			PropertyTitle: first.Title,
			Tokens:        tokens,
			Invested:      amount,
			CurrentValue:  amount,
			YieldToDate:   0,
		}
		if err := repos.Portfolios().UpsertPosition(ctx, DemoUserID, pos); err != nil {
			return fmt.Errorf("seed demo portfolio: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	log.Printf("seed: stored %d demo listings and the %s account", len(listings), DemoUserID)
	return true, nil
}

func demoListings(now time.Time) []domain.Property {
	return []domain.Property{
		{
			ID:            uuid.NewString(),
			Title:         "Downtown Brooklyn Condo",
			City:          "New York",
			State:         "NY",
			PropertyType:  "condo",
			Bedrooms:      2,
			Price:         780000,
			TokenPrice:    50,
			TokensTotal:   15600,
			ExpectedYield: 5.2,
			RiskLevel:     "low",
			Status:        "available",
			CreatedAt:     now,
		},
		{
			ID:            uuid.NewString(),
			Title:         "Wynwood Apartment Unit",
			City:          "Miami",
			State:         "FL",
			PropertyType:  "apartment",
			Bedrooms:      1,
			Price:         420000,
			TokenPrice:    50,
			TokensTotal:   8400,
			ExpectedYield: 6.8,
			RiskLevel:     "medium",
			Status:        "available",
			CreatedAt:     now,
		},
		{
			ID:            uuid.NewString(),
			Title:         "East Austin Single Family Home",
			City:          "Austin",
			State:         "TX",
			PropertyType:  "house",
			Bedrooms:      3,
			Price:         510000,
			TokenPrice:    50,
			TokensTotal:   10200,
			ExpectedYield: 7.4,
			RiskLevel:     "medium",
			Status:        "available",
			CreatedAt:     now,
		},
	}
}

func demoMarkets(now time.Time) []domain.MarketStats {
	return []domain.MarketStats{
		{City: "New York", MedianPrice: 785000, AvgRentalYield: 4.8, PriceChangeYoY: 3.1, Inventory: 4200, AsOf: now},
		{City: "Miami", MedianPrice: 450000, AvgRentalYield: 6.1, PriceChangeYoY: 4.6, Inventory: 6100, AsOf: now},
		{City: "Austin", MedianPrice: 505000, AvgRentalYield: 6.9, PriceChangeYoY: 2.4, Inventory: 5300, AsOf: now},
	}
}
