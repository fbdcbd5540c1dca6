package domain

// Intent classifies what a user message is asking for.
type Intent string

const (
	IntentGreeting          Intent = "greeting"
	IntentPropertySearch    Intent = "property_search"
	IntentMarketAnalysis    Intent = "market_analysis"
	IntentInvestmentAdvice  Intent = "investment_advice"
	IntentPortfolioInquiry  Intent = "portfolio_inquiry"
	IntentWalletInquiry     Intent = "wallet_inquiry"
	IntentExplanation       Intent = "explanation"
	IntentComparisonRequest Intent = "comparison_request"
	IntentHelpRequest       Intent = "help_request"
	IntentGeneralInquiry    Intent = "general_inquiry"
)

// AllIntents lists every intent the analyzer can produce, in a stable order.
var AllIntents = []Intent{
	IntentGreeting,
	IntentPropertySearch,
	IntentMarketAnalysis,
	IntentInvestmentAdvice,
	IntentPortfolioInquiry,
	IntentWalletInquiry,
	IntentExplanation,
	IntentComparisonRequest,
	IntentHelpRequest,
	IntentGeneralInquiry,
}

// IsValidIntent checks whether an Intent is one the system recognizes.
func IsValidIntent(i Intent) bool {
	for _, known := range AllIntents {
		if i == known {
			return true
		}
	}
	return false
}
