package domain

import "time"

// Property is a listing available for fractional investment.
type Property struct {
	ID            string
	Title         string
	City          string
	State         string
	PropertyType  string
	Bedrooms      int
	Price         float64
	TokenPrice    float64
	TokensTotal   int64
	TokensSold    int64
	ExpectedYield float64
	RiskLevel     string
	Status        string
	CreatedAt     time.Time
}

// PortfolioPosition is a user's holding in one property.
type PortfolioPosition struct {
	PropertyID    string
	PropertyTitle string
	Tokens        int64
	Invested      float64
	CurrentValue  float64
	YieldToDate   float64
}

// Portfolio summarizes a user's holdings.
type Portfolio struct {
	UserID        string
	TotalInvested float64
	TotalValue    float64
	TotalReturn   float64
	Positions     []PortfolioPosition
	LastUpdated   time.Time
}

// Investment is a single completed purchase of property tokens.
type Investment struct {
	ID         string
	UserID     string
	PropertyID string
	Tokens     int64
	Amount     float64
	Status     string
	CreatedAt  time.Time
}

// Wallet is a user's cash balance on the platform.
type Wallet struct {
	UserID    string
	Balance   float64
	Currency  string
	UpdatedAt time.Time
}

// MarketStats is aggregated market data for a city.
type MarketStats struct {
	City           string
	MedianPrice    float64
	AvgRentalYield float64
	PriceChangeYoY float64
	Inventory      int
	AsOf           time.Time
}
