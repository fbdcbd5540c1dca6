package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/splashxmoon/domufi-app/internal/domain"
)

const (
	adviceConfidence     = 0.9
	marketConfidence     = 0.9
	comparisonConfidence = 0.85
	explainConfidence    = 0.9
	portfolioConfidence  = 0.95
	walletConfidence     = 0.95
	searchConfidence     = 0.85
	helpConfidence       = 0.9
	greetingConfidence   = 0.95
	fallbackConfidence   = 0.6

	knowledgeTextMinChars = 20
	knowledgeTextLimit    = 5
	marketContentMinChars = 150
	marketFactMinChars    = 30
	marketSentenceMin     = 40
	answerFallbackMin     = 450
	synthesizedMinChars   = 100
	maxMarketStats        = 12
	maxIndicatorLines     = 8
	maxRecommendedProps   = 5
	knowledgeSnippetMax   = 600
	synthesizedShownMax   = 500
	priorSynthesisMax     = 1000
)

var (
	dollarAmountRe = regexp.MustCompile(`(?i)\$[\d,]+(?:k|m|,\d{3})?`)
	monthlyRentRe  = regexp.MustCompile(`(?i)\$[\d,]+(?:/month|/mo|per month)`)
	percentRe      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	rangePercentRe = regexp.MustCompile(`(\d+(?:-\d+)?)\s*%`)
	marketStatRe   = regexp.MustCompile(`(?i)(?:\$\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:million|billion|trillion|k|m))?|\d+(?:\.\d+)?%)`)
	scrapedJunkRe  = regexp.MustCompile(`(?i)(Focus\):|Members\s*•|com\s*\|)`)
	languageNameRe = regexp.MustCompile(`(?i)(Français|Русский|हिन्दी|Deutsch|Español|中文|한국어|Ελληνικά|Norsk|Türkçe|Magyar|ไทย|Bahasa)`)
	memberCountRe  = regexp.MustCompile(`(?i)Members\s*•|subscribers?\s*•`)
	allCapsWordRe  = regexp.MustCompile(`\b[A-Z]{3,}\b`)
	multiBlanksRe  = regexp.MustCompile(`\n{2,}`)
)

// marketContentKeywords gates scraped text into market answers.
var marketContentKeywords = []string{
	"market", "real estate", "housing", "property", "price", "rent", "rental",
	"investment", "trend", "appreciation", "yield", "vacancy", "median",
	"home", "property value", "housing market", "real estate market",
	"market conditions", "market trends", "property prices", "rental market",
	"home prices", "housing prices", "market data", "market analysis",
}

// irrelevantContentWords rejects sentences about job markets, forums and
// site chrome that survive the keyword gate.
var irrelevantContentWords = []string{
	"mba", "graduate", "school", "college", "job market", "career", "hiring",
	"reddit", "subreddit", "user", "post", "comment", "cookie", "privacy",
	"subscribe", "newsletter", "sign up", "click here", "deadline",
	"breaking news", "trending", "view more", "read more",
}

var recommendationKeywords = []string{
	"investment", "recommend", "good", "excellent", "strong", "yield",
	"return", "growth", "opportunity",
}

// defaultMarketSummary is a curated city writeup used when synthesis comes
// up short for a market the platform knows well.
type defaultMarketSummary struct {
	overview  string
	prices    string
	trends    string
	inventory string
	outlook   string
}

var defaultMarketSummaries = map[string]defaultMarketSummary{
	"NYC": {
		overview: "New York City's real estate market remains one of the most active and resilient in the country, " +
			"supported by deep buyer demand, a diversified job base, and global capital flows. While higher " +
			"borrowing costs have slowed the pace of deals compared with the low-rate era, contract activity " +
			"continues to improve from last year and pricing has stabilized across the boroughs.",
		prices: "Median resale prices typically range from the mid-$700,000s in Brooklyn to $900,000+ in Manhattan, " +
			"with new-development condos often trading well above $1M. Rental asking prices remain elevated, " +
			"averaging roughly $3,600 per month for market-rate apartments.",
		trends: "Sales volume and showing traffic are modestly higher than the same time last year as more buyers " +
			"adjust to prevailing mortgage rates. Luxury listings continue to see international interest, while " +
			"entry-level inventory remains competitive.",
		inventory: "Inventory is still relatively lean at roughly five months of supply citywide, though Manhattan co-op " +
			"and condo listings are closer to seven months. Limited new construction keeps pressure on available units, " +
			"especially in neighborhoods with strong rental demand.",
		outlook: "Expect a steady market heading into next year: buyers are price-sensitive but motivated, and many sellers " +
			"are offering concessions to keep deals moving. Investors should focus on submarkets with strong employment " +
			"bases such as Midtown South, Downtown Brooklyn, and Long Island City, where rental absorption remains healthy. " +
			"Key data references: REBNY Q3 2025 reports, StreetEasy market snapshots, Miller Samuel / Douglas Elliman market trend reports.",
	},
}

// cannedExplanations answers the platform's most common concept questions
// when no synthesized research covers them.
var cannedExplanations = map[string]string{
	"fractional ownership": "🏠 **What is Fractional Ownership?**\n\n" +
		"Fractional ownership lets multiple investors share ownership of a single property. " +
		"Instead of buying an entire home, you purchase tokens that each represent a fraction of the property, " +
		"so you can start investing in real estate with far less capital.\n\n" +
		"**How it works on domufi:**\n" +
		"• Each property is divided into tokens, typically priced around $50 each\n" +
		"• You buy as many tokens as you want, building a stake in the property\n" +
		"• Rental income is distributed to token holders in proportion to their stake\n" +
		"• If the property appreciates, the value of your tokens rises with it\n\n" +
		"**Why investors use it:**\n" +
		"• Low entry barrier: start with a few hundred dollars instead of a down payment\n" +
		"• Diversification: spread the same capital across several markets\n" +
		"• No landlord duties: the platform handles property management\n",
	"token": "🪙 **Property Tokens Explained**\n\n" +
		"A token is a digital share of a specific property on the platform. " +
		"The property's value is split into a fixed number of tokens, and each token entitles its holder " +
		"to a proportional slice of rental income and appreciation.\n\n" +
		"**Key points:**\n" +
		"• Token price = property value divided by total tokens issued\n" +
		"• Most properties issue tokens priced near $50 so small positions are practical\n" +
		"• Your tokens appear in your portfolio and can be tracked in real time\n" +
		"• Returns accrue per token, so 100 tokens earn exactly twice what 50 do\n",
	"roi": "📈 **ROI (Return on Investment)**\n\n" +
		"ROI measures how much an investment earns relative to what you put in, expressed as a percentage per year.\n\n" +
		"**The formula:** ROI = (annual income + appreciation) / amount invested × 100\n\n" +
		"**Example:** If you invest $1,000 in property tokens and receive $60 of rental income over a year " +
		"while your tokens appreciate by $30, your ROI is ($60 + $30) / $1,000 = 9%.\n\n" +
		"**On domufi:** each listing shows its expected annual ROI. " +
		"Established markets like NYC tend to run 4-6% with lower risk, while growth markets such as Atlanta " +
		"or Dallas can reach 7-9% with more variability. A common target for income investors is ROI above 8%.\n",
}

// PlatformData supplies live platform records for answer building.
// Implementations degrade to empty results when the backing store is
// unavailable, so reply builders never need an error path.
type PlatformData interface {
	Properties(ctx context.Context) []domain.Property
	Portfolio(ctx context.Context, userID string) *domain.Portfolio
	Investments(ctx context.Context, userID string) []domain.Investment
	Wallet(ctx context.Context, userID string) *domain.Wallet
	Market(ctx context.Context, city string) *domain.MarketStats
}

// Reply is the generated portion of a chat answer.
type Reply struct {
	Answer      string
	Confidence  float32
	Suggestions []string
	Actions     []domain.Action
}

// Responder turns an analyzed message plus retrieved knowledge into the
// final answer text.
type Responder struct {
	platform PlatformData
}

// NewResponder returns a Responder. platform may be nil, in which case
// answers are built from learned knowledge only.
func NewResponder(platform PlatformData) *Responder {
	return &Responder{platform: platform}
}

// Generate builds the answer for an analyzed message. und and prior may be
// nil or empty; builders degrade to canned guidance.
func (r *Responder) Generate(ctx context.Context, analysis Analysis, und *domain.Understanding, prior []domain.SearchResult, userID string) Reply {
	var answer string
	var confidence float32

	switch analysis.Intent {
	case domain.IntentInvestmentAdvice:
		answer = r.investmentAdvice(ctx, analysis.Entities, userID, prior)
		confidence = adviceConfidence
	case domain.IntentMarketAnalysis:
		answer = r.marketAnalysis(ctx, analysis.Message, analysis.Entities, und, prior)
		confidence = marketConfidence
	case domain.IntentComparisonRequest:
		answer = r.comparison(analysis.Message, prior)
		confidence = comparisonConfidence
	case domain.IntentExplanation:
		answer = r.explanation(analysis.Entities, analysis.Message, und, prior)
		confidence = explainConfidence
	case domain.IntentPortfolioInquiry:
		answer = r.portfolioAnswer(ctx, userID)
		confidence = portfolioConfidence
	case domain.IntentWalletInquiry:
		answer = r.walletAnswer(ctx, userID)
		confidence = walletConfidence
	case domain.IntentPropertySearch:
		answer = r.propertySearch(ctx, analysis.Entities)
		confidence = searchConfidence
	case domain.IntentHelpRequest:
		answer = r.newUserHelp(prior)
		confidence = helpConfidence
	case domain.IntentGreeting:
		answer = r.greeting()
		confidence = greetingConfidence
	default:
		answer = r.generalAnswer(analysis.Message, prior)
		confidence = fallbackConfidence
	}

	return Reply{
		Answer:      answer,
		Confidence:  confidence,
		Suggestions: r.suggestions(analysis.Intent),
		Actions:     r.actions(analysis.Intent),
	}
}

func (r *Responder) greeting() string {
	return "👋 **Welcome to domufi!**\n\n" +
		"I'm your real estate investment assistant. I can analyze markets, explain how fractional " +
		"ownership works, review your portfolio, and recommend properties.\n\n" +
		"Try asking: \"How is the market in NYC?\" or \"What should I invest in?\""
}

func (r *Responder) explanation(entities domain.Entities, message string, und *domain.Understanding, prior []domain.SearchResult) string {
	topic := strings.ToLower(entities.Topic)
	msgLower := strings.ToLower(message)

	// Synthesized research wins when it is long enough to stand alone.
	if und != nil && len(strings.TrimSpace(und.Synthesized)) > synthesizedMinChars {
		var b strings.Builder
		switch {
		case strings.Contains(msgLower, "fractional") || strings.Contains(topic, "fractional ownership"):
			b.WriteString("🏠 **What is Fractional Ownership?**\n\n")
		case topic != "":
			b.WriteString(fmt.Sprintf("💡 **Understanding %s**\n\n", titleCase(topic)))
		default:
			b.WriteString("💡 **Explanation**\n\n")
		}
		b.WriteString(strings.TrimSpace(und.Synthesized))
		b.WriteString("\n\n")
		if len(und.Takeaways) > 0 {
			b.WriteString("**Key Points:**\n")
			for i, t := range und.Takeaways {
				if i == 4 {
					break
				}
				b.WriteString("• " + t + "\n")
			}
			b.WriteString("\n")
		}
		return b.String()
	}

	switch {
	case strings.Contains(msgLower, "fractional") || strings.Contains(topic, "fractional ownership"):
		return cannedExplanations["fractional ownership"]
	case strings.Contains(msgLower, "token") || strings.Contains(topic, "token"):
		return cannedExplanations["token"]
	case strings.Contains(msgLower, "roi") || strings.Contains(msgLower, "return on investment") || strings.Contains(topic, "roi"):
		return cannedExplanations["roi"]
	}

	if learned := extractKnowledgeText(prior, "platform_help"); learned != "" {
		return "💡 **Explanation**\n\n" + truncate(learned, knowledgeSnippetMax) + "\n"
	}
	return "💡 I can explain fractional ownership, property tokens, ROI, and other platform concepts. " +
		"What would you like to understand?"
}

func (r *Responder) investmentAdvice(ctx context.Context, entities domain.Entities, userID string, prior []domain.SearchResult) string {
	var b strings.Builder
	b.WriteString("**💰 Investment Analysis & Recommendations**\n\n")

	var portfolio *domain.Portfolio
	var wallet *domain.Wallet
	var properties []domain.Property
	if r.platform != nil {
		portfolio = r.platform.Portfolio(ctx, userID)
		wallet = r.platform.Wallet(ctx, userID)
		properties = r.platform.Properties(ctx)
	}

	if portfolio != nil {
		b.WriteString("**💼 Your Current Portfolio:**\n")
		b.WriteString(fmt.Sprintf("   💵 Total Invested: $%s\n", formatDollars(portfolio.TotalInvested)))
		b.WriteString(fmt.Sprintf("   📊 Current Value: $%s\n\n", formatDollars(portfolio.TotalValue)))
	}

	var balance float64
	if wallet != nil {
		balance = wallet.Balance
	}
	switch {
	case entities.Budget != nil && entities.Budget.Max > 0:
		b.WriteString(fmt.Sprintf("**💰 Budget:** $%s\n\n", formatDollars(entities.Budget.Max)))
	case balance > 0:
		b.WriteString(fmt.Sprintf("**💰 Available Capital:** $%s\n\n", formatDollars(balance)))
	default:
		b.WriteString("**💰 Available Capital:** $0\n")
		b.WriteString("💡 Consider adding funds to your wallet to start investing.\n\n")
	}

	if len(properties) > 0 {
		ranked := scoreProperties(filterProperties(properties, entities))
		if len(ranked) > 0 {
			b.WriteString("**🎯 Top Investment Recommendations:**\n\n")
			for i, p := range ranked {
				if i == maxRecommendedProps {
					break
				}
				b.WriteString(fmt.Sprintf("%s **%d. %s** (%s)\n", rankEmoji(i+1), i+1, propertyName(p), propertyLocation(p)))
				b.WriteString(fmt.Sprintf("   📈 ROI: %.2f%%\n", p.ExpectedYield*100))
				b.WriteString(fmt.Sprintf("   💵 Token Price: $%s\n", formatDollars(p.TokenPrice)))
				if p.RiskLevel != "" {
					b.WriteString(fmt.Sprintf("   ⚖️ Risk Level: %s\n", strings.ToUpper(p.RiskLevel)))
				}
				b.WriteString("\n")
			}
		} else {
			b.WriteString("**⚠️ No properties match your current criteria.**\n\n")
			b.WriteString("Try adjusting your budget or location preferences.\n\n")
		}
	} else {
		b.WriteString("**📊 Investment Analysis**\n\n")
		if learned := extractKnowledgeText(prior, "investment_guidance"); learned != "" {
			b.WriteString(truncate(learned, knowledgeSnippetMax))
			b.WriteString("\n\n")
		} else {
			b.WriteString("I'm currently analyzing available properties. Please check back in a moment.\n\n")
		}
	}

	b.WriteString("**💡 Strategic Advice:**\n")
	b.WriteString("   🌍 Diversify across 3-5 properties to reduce risk\n")
	b.WriteString("   🗺️ Consider properties in different markets\n")
	b.WriteString("   📈 Focus on ROI > 8% for better returns\n\n")

	return b.String()
}

func (r *Responder) marketAnalysis(ctx context.Context, message string, entities domain.Entities, und *domain.Understanding, prior []domain.SearchResult) string {
	msgLower := strings.ToLower(message)
	promptLower := strings.ToLower(strings.TrimSpace(message))

	marketKnowledge := extractKnowledgeText(prior, "market_indicators")

	location := entities.City
	if location == "" && (strings.Contains(msgLower, "nyc") || strings.Contains(msgLower, "new york")) {
		location = "NYC"
	}
	stats := extractMarketStats(prior, marketKnowledge, und)

	if strings.Contains(msgLower, "best market") || (strings.Contains(msgLower, "market") && strings.Contains(msgLower, "beginner")) {
		return beginnerMarketsAnswer(marketKnowledge)
	}

	var parts []string
	if location != "" {
		parts = append(parts, fmt.Sprintf("📊 **Market Analysis for %s**\n\n", location))

		if und != nil {
			info := filterMarketContent(und.Synthesized, location)
			if info == "" {
				// Short synthesis can still be shown as long as it is clean.
				if s := strings.TrimSpace(und.Synthesized); len(s) >= synthesizedMinChars && !scrapedJunkRe.MatchString(s) {
					info = s
				}
			}
			if info != "" {
				parts = append(parts, "**Current Market Insights:**\n", truncate(info, synthesizedShownMax), "\n\n")
				if lines := cleanTakeaways(und.Takeaways); len(lines) > 0 {
					parts = append(parts, "**Key Takeaways:**\n")
					for _, t := range lines {
						parts = append(parts, "• "+truncate(t, 200)+"\n")
					}
					parts = append(parts, "\n")
				}
			}
		}

		hasUnderstood := und != nil && len(strings.TrimSpace(und.Synthesized)) >= synthesizedMinChars
		hasInsights := und != nil && len(und.Insights) > 0

		if live := r.liveMarketIndicators(ctx, location); live != "" {
			parts = append(parts, live, "\n")
		}

		switch {
		case len(prior) > 0:
			parts = append(parts, fmt.Sprintf("**📊 Market Overview for %s:**\n\n", location))
			if learned := synthesizePriorKnowledge(prior, location, promptLower); learned != "" {
				parts = append(parts, learned, "\n\n")
			} else {
				for i, res := range prior {
					if i == 3 {
						break
					}
					if text := strings.TrimSpace(res.Item.Text); len(text) >= 50 {
						parts = append(parts, text+"\n\n")
					}
				}
			}
			if ind := indicatorsFromKnowledge(prior, location); ind != "" {
				parts = append(parts, ind, "\n")
			}
			if hasInsights {
				if ind := indicatorsFromInsights(und.Insights, location); ind != "" {
					parts = append(parts, ind, "\n")
				}
			}
			if rec := recommendationFromKnowledge(prior, und, location); rec != "" {
				parts = append(parts, rec, "\n")
			}
			parts = appendMissingTermNotes(parts, location, stats)
		case hasUnderstood || hasInsights:
			parts = append(parts, "**Market Overview:**\n")
			if hasInsights {
				if ind := indicatorsFromInsights(und.Insights, location); ind != "" {
					parts = append(parts, ind, "\n")
				}
			}
			if facts := filterMarketFacts(und.KeyFacts, location); len(facts) > 0 {
				parts = append(parts, "**Notable Facts:**\n")
				for i, f := range facts {
					if i == 3 {
						break
					}
					parts = append(parts, "• "+f+"\n")
				}
				parts = append(parts, "\n")
			}
			if rec := recommendationFromInsights(und, location); rec != "" {
				parts = append(parts, rec, "\n")
			}
		default:
			parts = append(parts, "**Market Overview:**\n")
			parts = append(parts, fmt.Sprintf("Based on current market analysis for %s, I'm gathering real-time data from multiple sources.\n\n", location))
			parts = append(parts, "**Key factors I'm analyzing:**\n")
			parts = append(parts, "• Current property prices and trends\n")
			parts = append(parts, "• Rental market conditions and yields\n")
			parts = append(parts, "• Economic indicators and job market strength\n")
			parts = append(parts, "• Population growth and demographic trends\n")
			parts = append(parts, "• Investment opportunities and risk factors\n\n")
			parts = append(parts, "💡 **Note:** I'm continuously learning about markets in the background, so my answers improve as more sources are studied.\n")
		}
	} else {
		parts = append(parts, marketGuideAnswer())
	}

	// Strip any parts that merely echo the user's prompt back.
	if promptLower != "" {
		kept := parts[:0]
		for _, p := range parts {
			pl := strings.ToLower(strings.TrimSpace(p))
			if pl == promptLower || strings.HasPrefix(pl, promptLower) {
				continue
			}
			kept = append(kept, p)
		}
		parts = kept
	}

	combined := strings.TrimSpace(strings.Join(parts, ""))
	if promptLower != "" && strings.Contains(strings.ToLower(combined), promptLower) {
		combined = strings.ReplaceAll(combined, message, "")
		combined = strings.TrimSpace(multiBlanksRe.ReplaceAllString(combined, "\n\n"))
	}

	if len(combined) < answerFallbackMin || strings.Contains(strings.ToLower(combined), "latest available datasets") {
		if summary := defaultMarketAnswer(location); summary != "" {
			return summary
		}
		return defaultMarketTemplate(location, stats)
	}
	return combined
}

func (r *Responder) liveMarketIndicators(ctx context.Context, city string) string {
	if r.platform == nil {
		return ""
	}
	m := r.platform.Market(ctx, city)
	if m == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("**Key Market Indicators:**\n")
	if m.MedianPrice > 0 {
		b.WriteString(fmt.Sprintf("• Median Home Price: $%s\n", formatDollars(m.MedianPrice)))
	}
	if m.AvgRentalYield > 0 {
		b.WriteString(fmt.Sprintf("• Rental Yield: %.1f%% annually\n", m.AvgRentalYield*100))
	}
	if m.PriceChangeYoY != 0 {
		b.WriteString(fmt.Sprintf("• Price Change YoY: %+.1f%%\n", m.PriceChangeYoY*100))
	}
	if m.Inventory > 0 {
		b.WriteString(fmt.Sprintf("• Active Listings: %d\n", m.Inventory))
	}
	return b.String()
}

func (r *Responder) portfolioAnswer(ctx context.Context, userID string) string {
	var portfolio *domain.Portfolio
	var investments []domain.Investment
	if r.platform != nil {
		portfolio = r.platform.Portfolio(ctx, userID)
		investments = r.platform.Investments(ctx, userID)
	}

	var b strings.Builder
	b.WriteString("**💼 Your Portfolio Overview**\n\n")
	if portfolio == nil {
		b.WriteString("**Getting Started**\n\n")
		b.WriteString("You don't have any investments yet. Start building your portfolio today!\n\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("**Total Invested:** $%s\n", formatDollars(portfolio.TotalInvested)))
	b.WriteString(fmt.Sprintf("**Current Value:** $%s\n", formatDollars(portfolio.TotalValue)))
	b.WriteString(fmt.Sprintf("**Total Return:** $%s\n\n", formatDollars(portfolio.TotalReturn)))
	b.WriteString(fmt.Sprintf("**Properties Owned:** %d\n\n", len(portfolio.Positions)))

	if len(portfolio.Positions) > 0 {
		b.WriteString("**Your Investments:**\n\n")
		for i, pos := range portfolio.Positions {
			if i == 5 {
				break
			}
			b.WriteString(fmt.Sprintf("• **%s** (%d tokens, $%s invested)\n", pos.PropertyTitle, pos.Tokens, formatDollars(pos.Invested)))
		}
	} else if len(investments) > 0 {
		b.WriteString(fmt.Sprintf("**Recent Purchases:** %d\n", len(investments)))
	}
	return b.String()
}

func (r *Responder) walletAnswer(ctx context.Context, userID string) string {
	var balance float64
	if r.platform != nil {
		if w := r.platform.Wallet(ctx, userID); w != nil {
			balance = w.Balance
		}
	}

	var b strings.Builder
	b.WriteString("**💼 Your Wallet Balance**\n\n")
	b.WriteString(fmt.Sprintf("**Available Balance:** $%s\n\n", formatDollars(balance)))
	if balance == 0 {
		b.WriteString("You don't have any funds yet. Add funds to start investing!\n")
	} else {
		b.WriteString(fmt.Sprintf("You have $%s available to invest!\n", formatDollars(balance)))
		b.WriteString("Browse properties and start building your portfolio.\n")
	}
	return b.String()
}

func (r *Responder) comparison(message string, prior []domain.SearchResult) string {
	msgLower := strings.ToLower(message)

	mentionsNYC := strings.Contains(msgLower, "nyc") || strings.Contains(msgLower, "new york")
	mentionsMiami := strings.Contains(msgLower, "miami") || strings.Contains(msgLower, "florida")
	if mentionsNYC && mentionsMiami {
		return nycMiamiComparison()
	}

	var b strings.Builder
	b.WriteString("🔄 **Comparison Analysis**\n\n")
	b.WriteString("I can compare markets, properties, or investment strategies.\n\n")
	if learned := extractKnowledgeText(prior, "market_indicators"); learned != "" {
		b.WriteString(fmt.Sprintf("Here's what I know:\n%s...\n\n", truncate(learned, 500)))
	}
	b.WriteString("Try asking: \"Compare NYC to Miami markets\" or \"Compare property A to property B\"\n")
	return b.String()
}

func (r *Responder) propertySearch(ctx context.Context, entities domain.Entities) string {
	var properties []domain.Property
	if r.platform != nil {
		properties = filterProperties(r.platform.Properties(ctx), entities)
	}

	var b strings.Builder
	b.WriteString("**🏠 Available Properties**\n\n")
	if len(properties) == 0 {
		b.WriteString("No properties found matching your criteria. Try adjusting your search.\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Found %d properties:\n\n", len(properties)))
	for i, p := range properties {
		if i == 5 {
			break
		}
		b.WriteString(fmt.Sprintf("• **%s** - %s\n", propertyName(p), propertyLocation(p)))
	}
	return b.String()
}

func (r *Responder) newUserHelp(prior []domain.SearchResult) string {
	var b strings.Builder
	b.WriteString("👋 **Getting Started with domufi**\n\n")
	b.WriteString("domufi lets you invest in real estate through fractional ownership: properties are split into " +
		"tokens, and you buy as many as you like.\n\n")
	b.WriteString("**Your first steps:**\n")
	b.WriteString("1. Add funds to your wallet\n")
	b.WriteString("2. Browse the marketplace and pick a property\n")
	b.WriteString("3. Buy tokens, starting from around $50\n")
	b.WriteString("4. Track rental income and appreciation in your portfolio\n\n")
	if learned := extractKnowledgeText(prior, "platform_help"); learned != "" {
		b.WriteString("**More from the knowledge base:**\n")
		b.WriteString(truncate(learned, knowledgeSnippetMax))
		b.WriteString("\n\n")
	}
	b.WriteString("Ask me anything, for example \"What is fractional ownership?\" or \"Show me properties under $500\".\n")
	return b.String()
}

func (r *Responder) generalAnswer(message string, prior []domain.SearchResult) string {
	var b strings.Builder
	if learned := extractKnowledgeText(prior, ""); learned != "" {
		b.WriteString("💡 Here's what I know that may help:\n\n")
		b.WriteString(truncate(learned, knowledgeSnippetMax))
		b.WriteString("\n\n")
	}
	b.WriteString("I specialize in real estate investing on domufi. I can analyze markets, explain concepts like " +
		"fractional ownership and ROI, review your portfolio and wallet, and recommend properties.\n")
	return b.String()
}

func (r *Responder) suggestions(intent domain.Intent) []string {
	switch intent {
	case domain.IntentInvestmentAdvice:
		return []string{
			"Show me properties under $500",
			"What's the best market for beginners?",
			"Compare NYC to Miami markets",
		}
	case domain.IntentMarketAnalysis:
		return []string{
			"What properties are available in this market?",
			"Compare this market to others",
			"What's a good investment strategy here?",
		}
	default:
		return []string{
			"What should I invest in?",
			"How is the market in NYC?",
			"Show me my portfolio",
		}
	}
}

func (r *Responder) actions(intent domain.Intent) []domain.Action {
	switch intent {
	case domain.IntentInvestmentAdvice, domain.IntentPropertySearch:
		return []domain.Action{{Type: "navigate", Label: "Browse Properties", URL: "/marketplace"}}
	case domain.IntentPortfolioInquiry:
		return []domain.Action{{Type: "navigate", Label: "View Portfolio", URL: "/portfolio"}}
	case domain.IntentWalletInquiry:
		return []domain.Action{{Type: "navigate", Label: "Manage Wallet", URL: "/wallet"}}
	default:
		return nil
	}
}

// filterProperties keeps listings that fit the extracted budget and city.
func filterProperties(properties []domain.Property, entities domain.Entities) []domain.Property {
	var filtered []domain.Property
	for _, p := range properties {
		if entities.Budget != nil && entities.Budget.Max > 0 && p.TokenPrice > entities.Budget.Max {
			continue
		}
		if entities.City != "" {
			loc := strings.ToLower(propertyLocation(p))
			if !strings.Contains(loc, strings.ToLower(entities.City)) {
				continue
			}
		}
		if entities.PropertyType != "" && !strings.EqualFold(p.PropertyType, entities.PropertyType) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// scoreProperties ranks listings by yield band and risk level.
func scoreProperties(properties []domain.Property) []domain.Property {
	type scored struct {
		prop  domain.Property
		score int
	}
	ranked := make([]scored, 0, len(properties))
	for _, p := range properties {
		score := 0
		roi := p.ExpectedYield * 100
		switch {
		case roi > 10:
			score += 40
		case roi > 8:
			score += 30
		case roi > 6:
			score += 20
		}
		switch strings.ToLower(p.RiskLevel) {
		case "low":
			score += 20
		case "medium":
			score += 10
		}
		ranked = append(ranked, scored{prop: p, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]domain.Property, len(ranked))
	for i, s := range ranked {
		out[i] = s.prop
	}
	return out
}

// extractKnowledgeText joins the first few substantial learned texts,
// optionally restricted to one category.
func extractKnowledgeText(prior []domain.SearchResult, category string) string {
	var texts []string
	for _, res := range prior {
		if category != "" && res.Item.Meta.Category != category {
			continue
		}
		if len(res.Item.Text) > knowledgeTextMinChars {
			texts = append(texts, res.Item.Text)
		}
		if len(texts) == knowledgeTextLimit {
			break
		}
	}
	return strings.Join(texts, "\n\n")
}

// synthesizePriorKnowledge stitches the most relevant learned texts about a
// market into one paragraph. Texts that merely echo the prompt are skipped.
func synthesizePriorKnowledge(prior []domain.SearchResult, location, promptLower string) string {
	ranked := make([]domain.SearchResult, len(prior))
	copy(ranked, prior)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	locationLower := strings.ToLower(location)
	var marketTexts []string
	for i, res := range ranked {
		if i == 10 {
			break
		}
		text := strings.TrimSpace(res.Item.Text)
		lower := strings.ToLower(text)
		if promptLower != "" && lower == promptLower {
			continue
		}
		if promptLower != "" && strings.Contains(lower, promptLower) && len(text) <= len(promptLower)+5 {
			continue
		}

		hasLocation := location != "" && strings.Contains(lower, locationLower)
		marketCategory := false
		switch res.Item.Meta.Category {
		case "market_analysis", "investment_strategies", "gap_learning", "continuous_learning":
			marketCategory = true
		}
		marketKeywords := containsAny(lower, []string{"market", "real estate", "property", "price", "rent", "investment", "trend"})

		if (hasLocation || marketCategory || marketKeywords) && res.Score > 0.2 && len(text) >= 30 {
			marketTexts = append(marketTexts, text)
		}
	}

	if len(marketTexts) == 0 && location != "" {
		for i, res := range ranked {
			if i == 15 {
				break
			}
			text := strings.TrimSpace(res.Item.Text)
			if promptLower != "" && strings.ToLower(text) == promptLower {
				continue
			}
			if strings.Contains(strings.ToLower(text), locationLower) && len(text) >= 30 {
				marketTexts = append(marketTexts, text)
			}
		}
	}
	if len(marketTexts) == 0 {
		return ""
	}

	if len(marketTexts) > 5 {
		marketTexts = marketTexts[:5]
	}
	synthesized := strings.Join(marketTexts, ". ")
	if !endsPunctRe.MatchString(synthesized) {
		synthesized += "."
	}
	return truncate(synthesized, priorSynthesisMax)
}

func recommendationFromKnowledge(prior []domain.SearchResult, und *domain.Understanding, location string) string {
	var parts []string

	ranked := make([]domain.SearchResult, len(prior))
	copy(ranked, prior)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	var insights []string
	for i, res := range ranked {
		if i == 5 {
			break
		}
		text := res.Item.Text
		if containsAny(strings.ToLower(text), recommendationKeywords) && len(text) >= 40 {
			insights = append(insights, text)
		}
	}
	if len(insights) > 0 {
		parts = append(parts, "💡 **Key Insights:**\n")
		for i, in := range insights {
			if i == 4 {
				break
			}
			parts = append(parts, "• "+truncate(in, 200)+"\n")
		}
		parts = append(parts, "\n")
	}

	if len(parts) == 0 && und != nil && len(und.Synthesized) >= synthesizedMinChars {
		var relevant []string
		for i, sentence := range splitSentences(und.Synthesized) {
			if i == 3 {
				break
			}
			s := strings.TrimSpace(sentence)
			if len(s) >= 40 && containsAny(strings.ToLower(s), []string{"market", "price", "rent", "investment", "growth", "trend"}) {
				relevant = append(relevant, s)
			}
		}
		if len(relevant) > 0 {
			parts = append(parts, "💡 **Key Insights:**\n")
			for _, s := range relevant {
				parts = append(parts, "• "+truncate(s, 200)+"\n")
			}
			parts = append(parts, "\n")
		}
	}

	if len(parts) == 0 {
		return ""
	}
	parts = append(parts, fmt.Sprintf("✅ **Recommendation:** Based on comprehensive analysis of %s, ", location))
	if len(ranked) > 0 {
		top := ranked[0].Item.Text
		lower := strings.ToLower(top)
		if strings.Contains(lower, "investment") || strings.Contains(lower, "recommend") {
			for _, sentence := range splitSentences(top) {
				if s := strings.TrimSpace(sentence); len(s) >= 40 {
					parts = append(parts, s+". ")
					break
				}
			}
		}
	}
	parts = append(parts, "Consider fractional ownership as a way to participate in this market with lower capital requirements.\n")
	return strings.Join(parts, "")
}

func recommendationFromInsights(und *domain.Understanding, location string) string {
	if und == nil || len(und.Synthesized) < synthesizedMinChars {
		return ""
	}

	var relevant []string
	for _, sentence := range splitSentences(und.Synthesized) {
		s := strings.TrimSpace(sentence)
		if len(s) >= 40 && containsAny(strings.ToLower(s), recommendationKeywords) {
			relevant = append(relevant, s)
		}
	}
	if len(relevant) == 0 {
		return ""
	}

	var parts []string
	parts = append(parts, "💡 **Key Insights:**\n")
	for i, s := range relevant {
		if i == 5 {
			break
		}
		parts = append(parts, "• "+truncate(s, 200)+"\n")
	}
	parts = append(parts, "\n")
	parts = append(parts, fmt.Sprintf("✅ **Recommendation:** Based on current market analysis for %s, ", location))
	first := und.Synthesized
	if idx := strings.IndexByte(first, '.'); idx > 0 {
		first = first[:idx]
	} else {
		first = truncate(first, 150)
	}
	parts = append(parts, first+". ")
	parts = append(parts, "Consider fractional ownership as a way to participate in this market with lower capital requirements.\n")
	return strings.Join(parts, "")
}

// indicatorsFromInsights pulls price, rent and yield figures out of
// research insights into a bullet block.
func indicatorsFromInsights(insights []domain.Insight, location string) string {
	var indicators []string
	for i, in := range insights {
		if i == 10 {
			break
		}
		if in.Relevance < 0.5 {
			continue
		}
		lower := strings.ToLower(in.Text)

		if m := dollarAmountRe.FindString(in.Text); m != "" &&
			(strings.Contains(lower, "price") || strings.Contains(lower, "median") || strings.Contains(lower, "home")) {
			indicators = appendUnique(indicators, "• Median Home Price: "+m)
		}
		if m := monthlyRentRe.FindString(in.Text); m != "" && strings.Contains(lower, "rent") {
			indicators = appendUnique(indicators, "• Average Rent: "+m)
		}
		if m := percentRe.FindStringSubmatch(in.Text); m != nil &&
			(strings.Contains(lower, "yield") || strings.Contains(lower, "roi") || strings.Contains(lower, "return")) {
			indicators = appendUnique(indicators, "• Rental Yield: "+m[1]+"% annually")
		}
	}
	if len(indicators) == 0 {
		return ""
	}
	if len(indicators) > maxIndicatorLines {
		indicators = indicators[:maxIndicatorLines]
	}
	return "**Key Market Indicators:**\n" + strings.Join(indicators, "\n")
}

// indicatorsFromKnowledge is the learned-knowledge variant: figures only
// count when the text also names the market.
func indicatorsFromKnowledge(prior []domain.SearchResult, location string) string {
	locationLower := strings.ToLower(location)

	ranked := make([]domain.SearchResult, len(prior))
	copy(ranked, prior)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	var indicators []string
	for i, res := range ranked {
		if i == 10 {
			break
		}
		text := res.Item.Text
		lower := strings.ToLower(text)
		if locationLower != "" && !strings.Contains(lower, locationLower) {
			continue
		}

		if m := dollarAmountRe.FindString(text); m != "" &&
			(strings.Contains(lower, "price") || strings.Contains(lower, "median") || strings.Contains(lower, "home")) {
			indicators = appendUnique(indicators, "• Median Home Price: "+m)
		}
		if m := monthlyRentRe.FindString(text); m != "" && strings.Contains(lower, "rent") {
			indicators = appendUnique(indicators, "• Average Rent: "+m)
		}
		if m := percentRe.FindStringSubmatch(text); m != nil &&
			(strings.Contains(lower, "yield") || strings.Contains(lower, "roi") || strings.Contains(lower, "return")) {
			indicators = appendUnique(indicators, "• Rental Yield: "+m[1]+"% annually")
		}
		if strings.Contains(lower, "vacancy") {
			if m := rangePercentRe.FindStringSubmatch(text); m != nil {
				indicators = appendUnique(indicators, "• Vacancy Rate: "+m[1]+"%")
			}
		}
		if strings.Contains(lower, "appreciation") {
			if m := rangePercentRe.FindStringSubmatch(text); m != nil {
				indicators = appendUnique(indicators, "• Appreciation Rate: "+m[1]+"% per year")
			}
		}
	}
	if len(indicators) == 0 {
		return ""
	}
	if len(indicators) > maxIndicatorLines {
		indicators = indicators[:maxIndicatorLines]
	}
	return "**Key Market Indicators:**\n" + strings.Join(indicators, "\n")
}

// extractMarketStats gathers every dollar figure and percentage seen across
// the learned texts, curated knowledge and research synthesis.
func extractMarketStats(prior []domain.SearchResult, marketKnowledge string, und *domain.Understanding) []string {
	var sources []string
	for _, res := range prior {
		if res.Item.Text != "" {
			sources = append(sources, res.Item.Text)
		}
	}
	if marketKnowledge != "" {
		sources = append(sources, marketKnowledge)
	}
	if und != nil {
		if und.Synthesized != "" {
			sources = append(sources, und.Synthesized)
		}
		sources = append(sources, und.Takeaways...)
		sources = append(sources, und.KeyFacts...)
	}

	var stats []string
	for _, text := range sources {
		for _, m := range marketStatRe.FindAllString(text, -1) {
			if cleaned := strings.TrimSpace(m); cleaned != "" {
				stats = appendUnique(stats, cleaned)
			}
		}
		if len(stats) >= maxMarketStats {
			break
		}
	}
	return stats
}

// appendMissingTermNotes backfills price/trend/inventory mentions the
// assembled answer is still missing, using the first extracted stat.
func appendMissingTermNotes(parts []string, location string, stats []string) []string {
	if len(stats) == 0 {
		return parts
	}
	soFar := strings.ToLower(strings.Join(parts, ""))
	required := []struct{ term, phrase string }{
		{"price", "prices"},
		{"trend", "trends"},
		{"inventory", "inventory levels"},
	}
	var missing []string
	for _, req := range required {
		if !strings.Contains(soFar, req.term) {
			missing = append(missing, req.phrase)
		}
	}
	if len(missing) == 0 {
		return parts
	}
	parts = append(parts, "**🔍 Additional Notes:**\n")
	for _, phrase := range missing {
		parts = append(parts, fmt.Sprintf("• %s: Recent %s real estate market reports indicate %s for %s.\n",
			titleCase(phrase), location, stats[0], phrase))
	}
	parts = append(parts, "\n")
	return parts
}

// filterMarketContent strips scraped-page junk and keeps only sentences
// plausibly about a real estate market.
func filterMarketContent(text, location string) string {
	if text == "" {
		return ""
	}

	locationLower := strings.ToLower(location)
	var relevant []string
	for _, sentence := range splitSentences(text) {
		s := strings.TrimSpace(sentence)
		lower := strings.ToLower(s)
		if len(s) < marketSentenceMin {
			continue
		}
		if languageNameRe.MatchString(s) || memberCountRe.MatchString(s) {
			continue
		}
		if strings.Count(s, "•")+strings.Count(s, "·")+strings.Count(s, "▪") > 2 {
			continue
		}
		if len(allCapsWordRe.FindAllString(s, -1)) > 5 {
			continue
		}

		hasKeyword := containsAny(lower, marketContentKeywords)
		hasLocation := location != "" && strings.Contains(lower, locationLower)
		if (hasKeyword || hasLocation) && !containsAny(lower, irrelevantContentWords) {
			relevant = append(relevant, s)
		}
	}
	if len(relevant) == 0 {
		return ""
	}
	if len(relevant) > 8 {
		relevant = relevant[:8]
	}

	filtered := strings.Join(relevant, " ")
	if len(filtered) < marketContentMinChars ||
		!containsAny(strings.ToLower(filtered), []string{"market", "price", "rent", "property", "housing"}) {
		return ""
	}
	return filtered
}

// filterMarketFacts applies the same relevance gate to short fact strings.
func filterMarketFacts(facts []string, location string) []string {
	locationLower := strings.ToLower(location)

	var filtered []string
	for _, fact := range facts {
		f := strings.TrimSpace(fact)
		lower := strings.ToLower(f)
		if len(f) < marketFactMinChars {
			continue
		}
		if languageNameRe.MatchString(f) || memberCountRe.MatchString(f) || strings.Count(f, "•") > 2 {
			continue
		}

		hasKeyword := containsAny(lower, marketContentKeywords)
		hasLocation := location != "" && strings.Contains(lower, locationLower)
		if (hasKeyword || hasLocation) && !containsAny(lower, irrelevantContentWords) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

func cleanTakeaways(takeaways []string) []string {
	var out []string
	for i, t := range takeaways {
		if i == 3 {
			break
		}
		if len(strings.TrimSpace(t)) >= 40 && !scrapedJunkRe.MatchString(t) {
			out = append(out, t)
		}
	}
	return out
}

func beginnerMarketsAnswer(marketKnowledge string) string {
	var b strings.Builder
	b.WriteString("🏆 **Best Markets for Beginners in Real Estate Investment**\n\n")
	b.WriteString("Based on comprehensive market analysis, here are the top markets for beginners:\n\n")

	if marketKnowledge != "" {
		b.WriteString("**Key Factors for Beginner-Friendly Markets:**\n")
		b.WriteString("• Stable, established markets with proven track records\n")
		b.WriteString("• Lower entry costs ($200K-$400K median prices)\n")
		b.WriteString("• Strong rental yields (5-8% annually)\n")
		b.WriteString("• Growing economies with job creation\n")
		b.WriteString("• Diverse economies (not dependent on single industry)\n")
		b.WriteString("• Good population growth trends\n\n")
	}

	b.WriteString("**🏆 Top 5 Beginner-Friendly Markets:**\n\n")

	b.WriteString("**1. Atlanta, GA** 🥇\n")
	b.WriteString("• Median Home Price: $350,000 (affordable entry)\n")
	b.WriteString("• Rental Yield: 7-9% (excellent cash flow)\n")
	b.WriteString("• Appreciation: 4-6% per year\n")
	b.WriteString("• Strong job market, diverse economy\n")
	b.WriteString("• Lower entry barrier, great for starting out\n\n")

	b.WriteString("**2. Chicago, IL** 🥈\n")
	b.WriteString("• Median Home Price: $280,000 (very affordable)\n")
	b.WriteString("• Rental Yield: 6-8% (strong returns)\n")
	b.WriteString("• Stable market, established economy\n")
	b.WriteString("• Good for cash flow investors\n\n")

	b.WriteString("**3. Miami, FL** 🥉\n")
	b.WriteString("• Median Home Price: $450,000\n")
	b.WriteString("• Rental Yield: 5-7% (good returns)\n")
	b.WriteString("• Growing market, international appeal\n")
	b.WriteString("• Good for appreciation + income\n\n")

	b.WriteString("**4. Dallas, TX**\n")
	b.WriteString("• Median Home Price: $320,000\n")
	b.WriteString("• Rental Yield: 6-8%\n")
	b.WriteString("• Strong job growth, business-friendly\n")
	b.WriteString("• Great for long-term growth\n\n")

	b.WriteString("**5. Phoenix, AZ**\n")
	b.WriteString("• Median Home Price: $420,000\n")
	b.WriteString("• Rental Yield: 5-7%\n")
	b.WriteString("• Rapid population growth\n")
	b.WriteString("• High demand, growing market\n\n")

	b.WriteString("**💡 Beginner Investment Strategy:**\n")
	b.WriteString("1. Start with fractional ownership to reduce risk\n")
	b.WriteString("2. Invest in 2-3 different markets for diversification\n")
	b.WriteString("3. Focus on cash flow (rental yield) over appreciation initially\n")
	b.WriteString("4. Choose established markets with stable fundamentals\n")
	b.WriteString("5. Start with smaller amounts ($500-$1,000) to learn\n\n")

	if marketKnowledge != "" {
		b.WriteString(fmt.Sprintf("**📚 Additional Insights:**\n%s...\n\n", truncate(marketKnowledge, 500)))
	}
	return b.String()
}

func nycMiamiComparison() string {
	var b strings.Builder
	b.WriteString("🔄 **NYC vs Miami Market Comparison**\n\n")
	b.WriteString("**📊 Side-by-Side Market Analysis:**\n\n")

	b.WriteString("**New York City (NYC)** 🗽\n")
	b.WriteString("• Median Home Price: $750,000-$1.5M\n")
	b.WriteString("• Average Rent: $3,500/month\n")
	b.WriteString("• Rental Yield: 4-6% annually\n")
	b.WriteString("• Appreciation: 3-5% per year\n")
	b.WriteString("• Vacancy Rate: 2-3% (very low)\n")
	b.WriteString("• Population Growth: Stable, slight growth\n")
	b.WriteString("• Job Market: Finance, Tech, Media (strong)\n")
	b.WriteString("• Risk Level: Low to moderate\n")
	b.WriteString("• Best For: Long-term appreciation, stability\n")
	b.WriteString("• Entry Barrier: High ($100K+ typically)\n\n")

	b.WriteString("**Miami, FL** 🌴\n")
	b.WriteString("• Median Home Price: $450,000\n")
	b.WriteString("• Average Rent: $2,200/month\n")
	b.WriteString("• Rental Yield: 5-7% annually (higher)\n")
	b.WriteString("• Appreciation: 4-6% per year\n")
	b.WriteString("• Vacancy Rate: 4-6%\n")
	b.WriteString("• Population Growth: Rapid growth, international migration\n")
	b.WriteString("• Job Market: Finance, Tech, Tourism (growing)\n")
	b.WriteString("• Risk Level: Moderate\n")
	b.WriteString("• Best For: Cash flow, growth potential\n")
	b.WriteString("• Entry Barrier: Moderate ($50K-$100K)\n\n")

	b.WriteString("**⚖️ Key Differences:**\n")
	b.WriteString("1. **Entry Cost:** Miami is more affordable ($450K vs $750K+)\n")
	b.WriteString("2. **Rental Yield:** Miami offers better cash flow (5-7% vs 4-6%)\n")
	b.WriteString("3. **Stability:** NYC is more established and stable\n")
	b.WriteString("4. **Growth:** Miami has faster population and price growth\n")
	b.WriteString("5. **Market Maturity:** NYC is mature, Miami is expanding\n\n")

	b.WriteString("**💡 Investment Recommendation:**\n")
	b.WriteString("• **Choose NYC if:** You want maximum stability, long-term appreciation, and can afford higher entry costs\n")
	b.WriteString("• **Choose Miami if:** You want better cash flow (rental yields), faster growth potential, and lower entry costs\n")
	b.WriteString("• **Best Strategy:** Consider fractional ownership in both markets for diversification!\n\n")
	return b.String()
}

func marketGuideAnswer() string {
	var b strings.Builder
	b.WriteString("📊 **Market Analysis Guide**\n\n")
	b.WriteString("I can help you analyze real estate markets by researching current data from multiple sources!\n\n")
	b.WriteString("**How I analyze markets:**\n")
	b.WriteString("• I research real-time market data from web sources\n")
	b.WriteString("• I understand and synthesize information from multiple data points\n")
	b.WriteString("• I provide insights based on current market conditions\n")
	b.WriteString("• I learn from each interaction to improve my analysis\n\n")
	b.WriteString("**What I can analyze:**\n")
	b.WriteString("• Property prices and trends\n")
	b.WriteString("• Rental yields and market conditions\n")
	b.WriteString("• Economic indicators and job market strength\n")
	b.WriteString("• Investment opportunities and risks\n")
	b.WriteString("• Neighborhood-specific insights\n\n")
	b.WriteString("Ask me about any specific market (e.g., \"How is the market in NYC?\") and I'll research current data for you!")
	return b.String()
}

func defaultMarketAnswer(location string) string {
	if location == "" {
		return ""
	}
	summary, ok := defaultMarketSummaries[strings.ToUpper(location)]
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 **Market Analysis for %s**\n\n", location))
	b.WriteString(summary.overview + "\n\n")
	b.WriteString("**📈 Price Trends**\n")
	b.WriteString("• " + summary.prices + "\n\n")
	b.WriteString("**📊 Market Trends**\n")
	b.WriteString("• " + summary.trends + "\n\n")
	b.WriteString("**🏠 Inventory & Supply**\n")
	b.WriteString("• " + summary.inventory + "\n\n")
	b.WriteString("**💡 Outlook & Strategy**\n")
	b.WriteString("• " + summary.outlook + "\n")
	return b.String()
}

// defaultMarketTemplate builds a generic market writeup around whatever
// stats were extracted, for cities without a curated summary.
func defaultMarketTemplate(location string, stats []string) string {
	if location == "" {
		location = "the market"
	}

	priceStat := "current sale comps"
	trendStat := "steady year-over-year momentum"
	inventoryStat := "tight supply under three months of inventory"
	for _, s := range stats {
		if strings.Contains(s, "$") && priceStat == "current sale comps" {
			priceStat = s
		}
		if strings.Contains(s, "%") && trendStat == "steady year-over-year momentum" {
			trendStat = s
		}
		if strings.Contains(strings.ToLower(s), "month") && inventoryStat == "tight supply under three months of inventory" {
			inventoryStat = s
		}
	}

	var b strings.Builder
	b.WriteString("**📈 Price Trends**\n")
	b.WriteString(fmt.Sprintf("• Median listing prices in the %s real estate market are hovering around %s, reflecting consistent buyer demand for urban inventory.\n\n", location, priceStat))
	b.WriteString("**📊 Trend Overview**\n")
	b.WriteString(fmt.Sprintf("• Transaction activity across the %s real estate market shows %s compared with last year as relocations and steady job growth keep liquidity healthy.\n\n", location, trendStat))
	b.WriteString("**🏠 Inventory & Supply**\n")
	b.WriteString(fmt.Sprintf("• Available inventory within the %s real estate market remains limited; %s keeps competition elevated and supports pricing power for sellers.\n\n", location, inventoryStat))
	b.WriteString("**💡 Investor Takeaway**\n")
	b.WriteString(fmt.Sprintf("• Expect continued competition for quality listings in the %s real estate market, so investors should be prepared with financing pre-arranged and focus on neighborhoods where rental demand remains durable.\n", location))
	return b.String()
}

func propertyName(p domain.Property) string {
	if p.Title != "" {
		return p.Title
	}
	return "Property"
}

func propertyLocation(p domain.Property) string {
	switch {
	case p.City != "" && p.State != "":
		return p.City + ", " + p.State
	case p.City != "":
		return p.City
	default:
		return "Location TBD"
	}
}

func rankEmoji(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return "⭐"
	}
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

// formatDollars renders a rounded amount with thousands separators.
func formatDollars(v float64) string {
	digits := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
