package service

import (
	"context"
	"strings"
	"time"

	"github.com/splashxmoon/domufi-app/internal/domain"
)

// ResearchCollector gathers raw material about a topic for the learning
// loops. The curated collector below serves environments without outbound
// scraping; a production deployment can plug in a live implementation.
type ResearchCollector interface {
	Collect(ctx context.Context, topic string) (domain.ResearchReport, error)
}

// curatedEntry is one block of vetted real estate knowledge, matched
// against a topic by keyword.
type curatedEntry struct {
	keywords []string
	source   string
	content  []string
	facts    []string
}

// CuratedCollector serves a fixed corpus of real estate investment
// knowledge. Every Collect returns whatever entries match the topic, so
// learning loops always have material to work with.
type CuratedCollector struct {
	entries []curatedEntry
}

func NewCuratedCollector() *CuratedCollector {
	return &CuratedCollector{entries: curatedCorpus}
}

// Collect matches the topic against the curated corpus by keyword. Topics
// with no dedicated entry fall back to the general investing material.
func (c *CuratedCollector) Collect(_ context.Context, topic string) (domain.ResearchReport, error) {
	report := domain.ResearchReport{
		Topic:       topic,
		CollectedAt: time.Now().UTC(),
	}

	topicLower := strings.ToLower(topic)
	for _, entry := range c.entries {
		for _, kw := range entry.keywords {
			if strings.Contains(topicLower, kw) {
				report.Sources = append(report.Sources, entry.source)
				report.Content = append(report.Content, entry.content...)
				report.KeyFacts = append(report.KeyFacts, entry.facts...)
				break
			}
		}
	}

	if len(report.Content) == 0 {
		general := c.entries[0]
		report.Sources = append(report.Sources, general.source)
		report.Content = append(report.Content, general.content...)
		report.KeyFacts = append(report.KeyFacts, general.facts...)
	}
	return report, nil
}

var curatedCorpus = []curatedEntry{
	{
		keywords: []string{"investment", "strategy", "strategies", "advice", "beginner"},
		source:   "curated:investment-strategies",
		content: []string{
			"Buy and hold is a long-term real estate investment strategy where you purchase properties and hold them for rental income and appreciation. It suits investors seeking steady cash flow, property appreciation, tax benefits, and a hedge against inflation over a horizon of five to thirty years.",
			"Diversification in real estate investment means spreading capital across multiple properties, locations, and property types to reduce risk. A common approach is to invest in five to ten different properties across different markets, mixing residential, commercial, and mixed-use assets.",
			"Cash flow focused real estate investment prioritizes properties that generate positive monthly income, targeting cash-on-cash returns above 8 percent and low vacancy rates in markets with strong rental demand and reasonable property prices.",
			"Value investing in real estate means finding undervalued properties in good locations with growth potential, using indicators such as below-market prices, rising neighborhoods, infrastructure development, and job growth.",
			"Appreciation focused strategies target high-growth markets with strong population growth and economic development, such as emerging tech hubs and areas with planned infrastructure investment.",
		},
		facts: []string{
			"A good annual ROI for real estate investment is generally 8-15 percent.",
			"Diversifying across 3-5 properties in different markets materially reduces location-specific risk.",
			"Cash-on-cash return of 6-10 percent is good and above 10 percent is excellent for rental property.",
		},
	},
	{
		keywords: []string{"fractional", "token", "co-ownership", "reit"},
		source:   "curated:fractional-ownership",
		content: []string{
			"Fractional ownership lets multiple investors share ownership of a single property through tokens, each representing a fraction of the asset. Investors earn rental income and appreciation in proportion to the tokens they hold, with entry points far below a traditional down payment.",
			"Compared with REITs, fractional ownership gives investors direct exposure to a specific property rather than a managed fund of assets, so returns track the performance of the building they chose. Liquidity is improving as secondary markets for property tokens mature.",
			"Property tokenization divides a property's value into a fixed number of digital shares. A typical token is priced near 50 dollars, which lets small investors build diversified real estate positions across several markets at once.",
		},
		facts: []string{
			"Property tokens on fractional platforms are commonly priced around $50 each.",
			"Fractional ownership reduces the real estate entry barrier from a six-figure down payment to a few hundred dollars.",
			"Token holders receive rental income in proportion to their stake in the property.",
		},
	},
	{
		keywords: []string{"nyc", "new york", "manhattan", "brooklyn"},
		source:   "curated:nyc-market",
		content: []string{
			"The New York City real estate market remains among the most resilient in the country, with median resale prices from the mid-$700,000s in Brooklyn to above $900,000 in Manhattan and market-rate rents averaging roughly $3,600 per month.",
			"NYC housing inventory is lean at roughly five months of supply citywide, and limited new construction keeps pressure on available units in neighborhoods with strong rental demand such as Downtown Brooklyn and Long Island City.",
			"Rental yields in the NYC real estate market typically run 4-6 percent annually, with appreciation of 3-5 percent per year and vacancy rates near 2-3 percent, reflecting a stable, mature market.",
		},
		facts: []string{
			"NYC median home prices range from the mid-$700Ks in Brooklyn to $900K+ in Manhattan.",
			"NYC rental yields average 4-6% annually with vacancy near 2-3%.",
			"NYC apartment rents average roughly $3,600 per month for market-rate units.",
		},
	},
	{
		keywords: []string{"miami", "florida"},
		source:   "curated:miami-market",
		content: []string{
			"The Miami real estate market combines a median home price near $450,000 with rental yields of 5-7 percent annually, supported by rapid population growth and sustained international migration into South Florida.",
			"Miami property appreciation has averaged 4-6 percent per year as finance and technology employers expand in the region, though vacancy rates of 4-6 percent run higher than mature northern markets.",
		},
		facts: []string{
			"Miami's median home price is approximately $450,000.",
			"Miami rental yields run 5-7% annually, higher than NYC.",
			"Miami benefits from rapid population growth and international migration.",
		},
	},
	{
		keywords: []string{"atlanta", "chicago", "dallas", "phoenix", "austin", "market analysis", "housing market", "market trends", "real estate market"},
		source:   "curated:growth-markets",
		content: []string{
			"Atlanta's real estate market offers a median home price around $350,000 with rental yields of 7-9 percent, making it one of the most affordable entry points among major growth markets with a strong, diverse job market.",
			"Chicago real estate remains very affordable with a median home price near $280,000 and rental yields of 6-8 percent, a stable established market favored by cash flow investors.",
			"Dallas and Phoenix real estate markets show median home prices of $320,000 and $420,000 respectively, with rental yields of 5-8 percent driven by strong job growth and rapid population inflows.",
			"Healthy real estate markets show months of supply between four and six; below four months indicates a seller's market with rising prices, while above six favors buyers. Job growth, population growth, and income growth are the leading demand indicators for any market analysis.",
		},
		facts: []string{
			"Atlanta median home price is about $350,000 with 7-9% rental yields.",
			"Chicago median home price is about $280,000 with 6-8% rental yields.",
			"Months of supply between 4 and 6 indicates a balanced housing market.",
		},
	},
	{
		keywords: []string{"roi", "return", "cap rate", "cash on cash", "noi", "yield", "financial", "formula", "metric"},
		source:   "curated:financial-metrics",
		content: []string{
			"ROI in real estate is calculated as total return minus initial investment, divided by initial investment, times 100. For example, investing $10,000 and receiving $1,200 in returns gives an ROI of 12 percent; 8-15 percent annually is considered good.",
			"Cap rate is net operating income divided by property value times 100, with 4-8 percent typical depending on the market. It is the standard way to compare investment properties within the same market.",
			"Cash-on-cash return measures annual cash flow against total cash invested; 6-10 percent is good and above 10 percent is excellent. Net operating income is gross rental income minus operating expenses such as management, maintenance, insurance, taxes, and a vacancy allowance.",
			"Rental yield is annual rental income as a percentage of property value, with 5-10 percent typical depending on location and property type. Gross yield ignores expenses while net yield accounts for them.",
		},
		facts: []string{
			"ROI formula: (total return - initial investment) / initial investment × 100%.",
			"Cap rate formula: net operating income / property value × 100%, typically 4-8%.",
			"A debt service coverage ratio of at least 1.25-1.5x is considered safe.",
		},
	},
	{
		keywords: []string{"risk", "vacancy", "due diligence", "insurance"},
		source:   "curated:risk-management",
		content: []string{
			"Real estate market risk, the chance property values decline with economic conditions, is mitigated through diversification, long holding periods, and careful location research. Liquidity risk is reduced by fractional ownership, since tokens are easier to sell than whole buildings.",
			"Tenant risk covers non-payment, damage, and vacancy, and is managed with screening, insurance, professional management, and an emergency fund. Interest rate risk is addressed with fixed-rate financing and rate monitoring.",
		},
		facts: []string{
			"Fractional ownership mitigates liquidity risk because tokens trade more easily than whole properties.",
			"Vacancy allowance should be budgeted into net operating income calculations.",
		},
	},
	{
		keywords: []string{"platform", "help", "getting started", "how to", "wallet", "portfolio"},
		source:   "curated:platform-guide",
		content: []string{
			"Getting started with fractional real estate investment takes four steps: fund a wallet, browse the marketplace, buy property tokens starting around $50, and track rental income and appreciation in a portfolio dashboard.",
			"A diversified starter portfolio spreads $500-$1,000 across tokens in two or three different markets, prioritizing rental yield over appreciation while learning how the platform works.",
		},
		facts: []string{
			"New investors can start with $500-$1,000 spread across 2-3 markets.",
			"Platform portfolios track invested capital, current value, and total return per property.",
		},
	},
}
