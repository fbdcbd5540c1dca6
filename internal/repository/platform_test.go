//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/splashxmoon/domufi-app/internal/domain"
	"github.com/splashxmoon/domufi-app/internal/service"
	"github.com/splashxmoon/domufi-app/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlatformPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pc.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)
	return pool
}

func newTestProperty(city, state string, yield float64) *domain.Property {
	return &domain.Property{
		ID:            uuid.NewString(),
		Title:         "Test Listing " + city,
		City:          city,
		State:         state,
		PropertyType:  "condo",
		Bedrooms:      2,
		Price:         500000,
		TokenPrice:    50,
		TokensTotal:   10000,
		ExpectedYield: yield,
		RiskLevel:     "medium",
		Status:        "available",
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestPropertyRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool := newPlatformPool(ctx, t)
	repo := NewPropertyRepository(pool)

	p := newTestProperty("New York", "NY", 5.2)
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, p.City, got.City)
	assert.InDelta(t, p.ExpectedYield, got.ExpectedYield, 0.001)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
}

func TestPropertyRepository_ListAvailable(t *testing.T) {
	ctx := context.Background()
	pool := newPlatformPool(ctx, t)
	repo := NewPropertyRepository(pool)

	open := newTestProperty("Miami", "FL", 6.8)
	require.NoError(t, repo.Create(ctx, open))

	soldOut := newTestProperty("Austin", "TX", 7.4)
	soldOut.TokensSold = soldOut.TokensTotal
	require.NoError(t, repo.Create(ctx, soldOut))

	funded := newTestProperty("Denver", "CO", 6.1)
	funded.Status = "funded"
	require.NoError(t, repo.Create(ctx, funded))

	items, err := repo.ListAvailable(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, open.ID, items[0].ID)
}

func TestPropertyRepository_ListByCity(t *testing.T) {
	ctx := context.Background()
	pool := newPlatformPool(ctx, t)
	repo := NewPropertyRepository(pool)

	low := newTestProperty("Miami", "FL", 5.0)
	high := newTestProperty("Miami", "FL", 8.0)
	other := newTestProperty("Austin", "TX", 7.0)
	for _, p := range []*domain.Property{low, high, other} {
		require.NoError(t, repo.Create(ctx, p))
	}

	items, err := repo.ListByCity(ctx, "miami", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, high.ID, items[0].ID)
	assert.Equal(t, low.ID, items[1].ID)
}

func TestMarketDataRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	pool := newPlatformPool(ctx, t)
	repo := NewMarketDataRepository(pool)

	older := &domain.MarketStats{
		City:           "New York",
		MedianPrice:    760000,
		AvgRentalYield: 4.5,
		Inventory:      4000,
		AsOf:           time.Now().UTC().Add(-24 * time.Hour).Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Upsert(ctx, older))

	newer := &domain.MarketStats{
		City:           "New York",
		MedianPrice:    785000,
		AvgRentalYield: 4.8,
		PriceChangeYoY: 3.1,
		Inventory:      4200,
		AsOf:           time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Upsert(ctx, newer))

	got, err := repo.GetByCity(ctx, "new york")
	require.NoError(t, err)
	assert.InDelta(t, 785000, got.MedianPrice, 0.001)
	assert.Equal(t, 4200, got.Inventory)

	_, err = repo.GetByCity(ctx, "Nowhere")
	assert.ErrorIs(t, err, domain.ErrNoMarketData)
}

func TestWalletRepository_CreditAndGet(t *testing.T) {
	ctx := context.Background()
	pool := newPlatformPool(ctx, t)
	repo := NewWalletRepository(pool)

	_, err := repo.GetByUser(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)

	require.NoError(t, repo.Credit(ctx, "u1", 500))
	require.NoError(t, repo.Credit(ctx, "u1", 250))

	w, err := repo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 750, w.Balance, 0.001)
	assert.Equal(t, "USD", w.Currency)
}

func TestPortfolioRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	pool := newPlatformPool(ctx, t)
	properties := NewPropertyRepository(pool)
	repo := NewPortfolioRepository(pool)

	p := newTestProperty("New York", "NY", 5.2)
	require.NoError(t, properties.Create(ctx, p))

	pos := domain.PortfolioPosition{
		PropertyID:   p.ID,
		Tokens:       4,
		Invested:     200,
		CurrentValue: 210,
	}
	require.NoError(t, repo.UpsertPosition(ctx, "u1", pos))
	require.NoError(t, repo.UpsertPosition(ctx, "u1", pos))

	pf, err := repo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pf.Positions, 1)
	assert.Equal(t, int64(8), pf.Positions[0].Tokens)
	assert.Equal(t, p.Title, pf.Positions[0].PropertyTitle)
	assert.InDelta(t, 400, pf.TotalInvested, 0.001)
	assert.InDelta(t, 210, pf.TotalValue, 0.001)
}

func TestInvestmentRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	pool := newPlatformPool(ctx, t)
	properties := NewPropertyRepository(pool)
	repo := NewInvestmentRepository(pool)

	p := newTestProperty("Miami", "FL", 6.8)
	require.NoError(t, properties.Create(ctx, p))

	older := &domain.Investment{
		ID:         uuid.NewString(),
		UserID:     "u1",
		PropertyID: p.ID,
		Tokens:     2,
		Amount:     100,
		Status:     "completed",
		CreatedAt:  time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond),
	}
	newer := &domain.Investment{
		ID:         uuid.NewString(),
		UserID:     "u1",
		PropertyID: p.ID,
		Tokens:     4,
		Amount:     200,
		Status:     "completed",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	items, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, newer.ID, items[0].ID)

	none, err := repo.ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInsightRepository_ArchiveAndSearch(t *testing.T) {
	ctx := context.Background()
	pool := newPlatformPool(ctx, t)
	repo := NewInsightRepository(pool)

	embed := func(seed float32) []float32 {
		vec := make([]float32, 1536)
		vec[0] = seed
		vec[1] = 1 - seed
		return vec
	}

	near := domain.LearnedInsight{
		ID:        uuid.NewString(),
		Topic:     "NYC market trends",
		Category:  "market_data",
		Content:   "NYC rental yields average 4-6 percent annually.",
		Source:    "curated:nyc-market",
		Embedding: embed(0.9),
		LearnedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	far := domain.LearnedInsight{
		ID:        uuid.NewString(),
		Topic:     "Diversification",
		Category:  "investor_education",
		Content:   "Spreading capital across markets reduces risk.",
		Source:    "curated:investment-strategies",
		Embedding: embed(0.1),
		LearnedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.ArchiveInsight(ctx, near))
	require.NoError(t, repo.ArchiveInsight(ctx, far))

	got, err := repo.SearchSimilar(ctx, embed(0.85), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, near.ID, got[0].ID)

	counts, err := repo.CountByCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["market_data"])
	assert.Equal(t, 1, counts["investor_education"])
}

func TestInsightRepository_ArchiveKeepsEveryRow(t *testing.T) {
	ctx := context.Background()
	pool := newPlatformPool(ctx, t)
	repo := NewInsightRepository(pool)

	contents := []string{
		"Austin median prices rose 3 percent year over year.",
		"Austin rental demand stays strong near the tech corridor.",
		"Austin new construction keeps inventory above the national average.",
	}
	for _, content := range contents {
		ins := domain.LearnedInsight{
			ID:        uuid.NewString(),
			Topic:     "Austin market update",
			Category:  "market_data",
			Content:   content,
			Source:    "background_learner",
			LearnedAt: time.Now().UTC(),
		}
		require.NoError(t, repo.ArchiveInsight(ctx, ins))
	}

	counts, err := repo.CountByCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(contents), counts["market_data"])
}

func TestTxRunner_SeedDemoData(t *testing.T) {
	ctx := context.Background()
	pool := newPlatformPool(ctx, t)
	runner := NewTxRunner(pool)
	properties := NewPropertyRepository(pool)

	seeded, err := service.SeedDemoData(ctx, runner, properties)
	require.NoError(t, err)
	assert.True(t, seeded)

	items, err := properties.ListAvailable(ctx, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, items)

	w, err := NewWalletRepository(pool).GetByUser(ctx, service.DemoUserID)
	require.NoError(t, err)
	assert.InDelta(t, 1000, w.Balance, 0.001)

	pf, err := NewPortfolioRepository(pool).GetByUser(ctx, service.DemoUserID)
	require.NoError(t, err)
	require.Len(t, pf.Positions, 1)

	seeded, err = service.SeedDemoData(ctx, runner, properties)
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestTxRunner_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	pool := newPlatformPool(ctx, t)
	runner := NewTxRunner(pool)

	p := newTestProperty("Austin", "TX", 7.4)
	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		if err := repos.Properties().Create(ctx, p); err != nil {
			return err
		}
		// Duplicate primary key forces the transaction to fail.
		return repos.Properties().Create(ctx, p)
	})
	require.Error(t, err)

	_, err = NewPropertyRepository(pool).GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
}
