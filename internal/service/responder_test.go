package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splashxmoon/domufi-app/internal/domain"
)

// stubPlatform is a fixed-data PlatformData implementation.
type stubPlatform struct {
	properties  []domain.Property
	portfolio   *domain.Portfolio
	investments []domain.Investment
	wallet      *domain.Wallet
	market      *domain.MarketStats
}

func (s *stubPlatform) Properties(context.Context) []domain.Property { return s.properties }
func (s *stubPlatform) Portfolio(context.Context, string) *domain.Portfolio {
	return s.portfolio
}
func (s *stubPlatform) Investments(context.Context, string) []domain.Investment {
	return s.investments
}
func (s *stubPlatform) Wallet(context.Context, string) *domain.Wallet      { return s.wallet }
func (s *stubPlatform) Market(context.Context, string) *domain.MarketStats { return s.market }

func TestResponder_Greeting(t *testing.T) {
	r := NewResponder(nil)

	reply := r.Generate(context.Background(), Analysis{Intent: domain.IntentGreeting}, nil, nil, "u1")

	assert.Contains(t, reply.Answer, "Welcome to domufi")
	assert.InDelta(t, 0.95, reply.Confidence, 1e-6)
	assert.NotEmpty(t, reply.Suggestions)
	assert.Empty(t, reply.Actions)
}

func TestResponder_FractionalExplanationCanned(t *testing.T) {
	r := NewResponder(nil)

	analysis := Analysis{
		Intent:   domain.IntentExplanation,
		Message:  "How does fractional ownership work?",
		Entities: domain.Entities{Topic: "fractional ownership"},
	}
	reply := r.Generate(context.Background(), analysis, nil, nil, "u1")

	assert.Contains(t, strings.ToLower(reply.Answer), "fractional ownership")
	assert.InDelta(t, 0.9, reply.Confidence, 1e-6)
}

func TestResponder_ExplanationPrefersSynthesis(t *testing.T) {
	r := NewResponder(nil)

	und := &domain.Understanding{
		Synthesized: strings.Repeat("Fractional ownership splits a property into tokens held by many investors. ", 3),
		Takeaways:   []string{"Tokens start around $50 each."},
	}
	analysis := Analysis{
		Intent:   domain.IntentExplanation,
		Message:  "How does fractional ownership work?",
		Entities: domain.Entities{Topic: "fractional ownership"},
	}
	reply := r.Generate(context.Background(), analysis, und, nil, "u1")

	assert.Contains(t, reply.Answer, "What is Fractional Ownership?")
	assert.Contains(t, reply.Answer, "Key Points:")
	assert.Contains(t, reply.Answer, "Tokens start around $50 each.")
}

func TestResponder_WalletAnswer(t *testing.T) {
	platform := &stubPlatform{wallet: &domain.Wallet{UserID: "u1", Balance: 1250}}
	r := NewResponder(platform)

	reply := r.Generate(context.Background(), Analysis{Intent: domain.IntentWalletInquiry}, nil, nil, "u1")

	assert.Contains(t, reply.Answer, "1,250")
	assert.InDelta(t, 0.95, reply.Confidence, 1e-6)
	require.Len(t, reply.Actions, 1)
	assert.Equal(t, "/wallet", reply.Actions[0].URL)
}

func TestResponder_WalletAnswerEmpty(t *testing.T) {
	r := NewResponder(nil)

	reply := r.Generate(context.Background(), Analysis{Intent: domain.IntentWalletInquiry}, nil, nil, "u1")

	assert.Contains(t, reply.Answer, "Add funds to start investing")
}

func TestResponder_PortfolioAnswer(t *testing.T) {
	platform := &stubPlatform{
		portfolio: &domain.Portfolio{
			UserID:        "u1",
			TotalInvested: 1000,
			TotalValue:    1100,
			TotalReturn:   0.1,
			Positions: []domain.PortfolioPosition{
				{PropertyTitle: "Brooklyn Heights Duplex", Tokens: 20, Invested: 1000},
			},
		},
	}
	r := NewResponder(platform)

	reply := r.Generate(context.Background(), Analysis{Intent: domain.IntentPortfolioInquiry}, nil, nil, "u1")

	assert.Contains(t, reply.Answer, "Brooklyn Heights Duplex")
	assert.Contains(t, reply.Answer, "Properties Owned:** 1")
	require.Len(t, reply.Actions, 1)
	assert.Equal(t, "/portfolio", reply.Actions[0].URL)
}

func TestResponder_PortfolioAnswerNoHoldings(t *testing.T) {
	r := NewResponder(&stubPlatform{})

	reply := r.Generate(context.Background(), Analysis{Intent: domain.IntentPortfolioInquiry}, nil, nil, "u1")

	assert.Contains(t, reply.Answer, "don't have any investments yet")
}

func TestResponder_PropertySearchFiltersBudget(t *testing.T) {
	platform := &stubPlatform{
		properties: []domain.Property{
			{ID: "p1", Title: "Affordable Studio", City: "Atlanta", State: "GA", TokenPrice: 50},
			{ID: "p2", Title: "Luxury Penthouse", City: "NYC", State: "NY", TokenPrice: 900},
		},
	}
	r := NewResponder(platform)

	analysis := Analysis{
		Intent:   domain.IntentPropertySearch,
		Entities: domain.Entities{Budget: &domain.Budget{Max: 100, Type: domain.BudgetTypeMax}},
	}
	reply := r.Generate(context.Background(), analysis, nil, nil, "u1")

	assert.Contains(t, reply.Answer, "Affordable Studio")
	assert.NotContains(t, reply.Answer, "Luxury Penthouse")
	assert.Contains(t, reply.Answer, "Found 1 properties")
}

func TestResponder_PropertySearchNoMatches(t *testing.T) {
	r := NewResponder(nil)

	reply := r.Generate(context.Background(), Analysis{Intent: domain.IntentPropertySearch}, nil, nil, "u1")

	assert.Contains(t, reply.Answer, "No properties found")
}

func TestResponder_InvestmentAdviceRanksByYield(t *testing.T) {
	platform := &stubPlatform{
		properties: []domain.Property{
			{ID: "p1", Title: "Low Yield", City: "Chicago", State: "IL", TokenPrice: 50, ExpectedYield: 0.05, RiskLevel: "high"},
			{ID: "p2", Title: "High Yield", City: "Atlanta", State: "GA", TokenPrice: 60, ExpectedYield: 0.11, RiskLevel: "low"},
		},
		wallet: &domain.Wallet{Balance: 500},
	}
	r := NewResponder(platform)

	reply := r.Generate(context.Background(), Analysis{Intent: domain.IntentInvestmentAdvice}, nil, nil, "u1")

	highIdx := strings.Index(reply.Answer, "High Yield")
	lowIdx := strings.Index(reply.Answer, "Low Yield")
	require.GreaterOrEqual(t, highIdx, 0)
	require.GreaterOrEqual(t, lowIdx, 0)
	assert.Less(t, highIdx, lowIdx)
	assert.Contains(t, reply.Answer, "Available Capital:** $500")
}

func TestResponder_NYCMiamiComparison(t *testing.T) {
	r := NewResponder(nil)

	analysis := Analysis{
		Intent:  domain.IntentComparisonRequest,
		Message: "Compare NYC to Miami markets",
	}
	reply := r.Generate(context.Background(), analysis, nil, nil, "u1")

	lower := strings.ToLower(reply.Answer)
	assert.Contains(t, lower, "nyc")
	assert.Contains(t, lower, "miami")
	assert.InDelta(t, 0.85, reply.Confidence, 1e-6)
}

func TestResponder_MarketAnalysisDefaultSummary(t *testing.T) {
	r := NewResponder(nil)

	analysis := Analysis{
		Intent:   domain.IntentMarketAnalysis,
		Message:  "How is the market in NYC?",
		Entities: domain.Entities{City: "NYC"},
	}
	reply := r.Generate(context.Background(), analysis, nil, nil, "u1")

	// With no research and no prior knowledge a substantial overview still
	// comes back for the city.
	assert.Contains(t, reply.Answer, "NYC")
	assert.Greater(t, len(reply.Answer), 200)
	assert.InDelta(t, 0.9, reply.Confidence, 1e-6)
}

func TestResponder_MarketAnalysisBeginner(t *testing.T) {
	r := NewResponder(nil)

	analysis := Analysis{
		Intent:  domain.IntentMarketAnalysis,
		Message: "What's the best market for beginners?",
	}
	reply := r.Generate(context.Background(), analysis, nil, nil, "u1")

	lower := strings.ToLower(reply.Answer)
	assert.Contains(t, lower, "beginner")
}

func TestResponder_HelpRequest(t *testing.T) {
	r := NewResponder(nil)

	reply := r.Generate(context.Background(), Analysis{Intent: domain.IntentHelpRequest}, nil, nil, "u1")

	assert.Contains(t, reply.Answer, "Getting Started with domufi")
	assert.Contains(t, reply.Answer, "wallet")
}

func TestResponder_GeneralUsesPriorKnowledge(t *testing.T) {
	r := NewResponder(nil)

	prior := []domain.SearchResult{
		{Item: domain.StoredItem{Text: "Diversifying across markets materially reduces location-specific risk for investors."}, Score: 0.8},
	}
	analysis := Analysis{Intent: domain.IntentGeneralInquiry, Message: "any tips?"}
	reply := r.Generate(context.Background(), analysis, nil, prior, "u1")

	assert.Contains(t, reply.Answer, "Diversifying across markets")
	assert.InDelta(t, 0.6, reply.Confidence, 1e-6)
}

func TestFilterProperties(t *testing.T) {
	props := []domain.Property{
		{ID: "p1", City: "Miami", State: "FL", TokenPrice: 40, PropertyType: "condo"},
		{ID: "p2", City: "NYC", State: "NY", TokenPrice: 40, PropertyType: "apartment"},
		{ID: "p3", City: "Miami", State: "FL", TokenPrice: 400, PropertyType: "condo"},
	}

	got := filterProperties(props, domain.Entities{
		City:   "Miami",
		Budget: &domain.Budget{Max: 100, Type: domain.BudgetTypeMax},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)

	got = filterProperties(props, domain.Entities{PropertyType: "condo"})
	assert.Len(t, got, 2)

	got = filterProperties(props, domain.Entities{})
	assert.Len(t, got, 3)
}

func TestFormatDollars(t *testing.T) {
	assert.Equal(t, "500", formatDollars(500))
	assert.Equal(t, "1,250", formatDollars(1250))
	assert.Equal(t, "1,000,000", formatDollars(1e6))
	assert.Equal(t, "0", formatDollars(0))
	assert.Equal(t, "-1,234", formatDollars(-1234))
}
