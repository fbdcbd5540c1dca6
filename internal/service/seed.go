package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/splashxmoon/domufi-app/internal/domain"
)

// intentExamples is the starter training set for embedding-based intent
// classification. The analyzer's keyword cascade handles the common
// phrasings; these cover the paraphrases it misses.
var intentExamples = map[domain.Intent][]string{
	domain.IntentPropertySearch: {
		"show me properties under $500",
		"find investment properties in Miami",
		"what properties are available right now",
		"list apartments I can invest in",
	},
	domain.IntentInvestmentAdvice: {
		"what should I invest in",
		"recommend a good investment for beginners",
		"where should I put my money",
		"help me pick my first property",
	},
	domain.IntentMarketAnalysis: {
		"how is the real estate market in NYC",
		"what are the market trends in Brooklyn",
		"is now a good time to buy in Miami",
		"which city has the best market",
	},
	domain.IntentPortfolioInquiry: {
		"show my portfolio",
		"how are my investments doing",
		"what is my portfolio worth",
	},
	domain.IntentWalletInquiry: {
		"what is my wallet balance",
		"how much money do I have",
		"check my available funds",
	},
	domain.IntentExplanation: {
		"how does fractional ownership work",
		"what is a property token",
		"explain ROI to me",
		"what does expected yield mean",
	},
	domain.IntentComparisonRequest: {
		"compare NYC and Miami",
		"which is better, Brooklyn or Queens",
		"NYC vs Miami for investing",
	},
	domain.IntentHelpRequest: {
		"how do I get started",
		"I'm new here, what can you do",
		"help me understand this platform",
	},
	domain.IntentGreeting: {
		"hello",
		"hey there",
		"good morning",
	},
}

// SeedIntentExamples loads the starter examples into the store once. A store
// that already has examples for any intent is left alone.
func SeedIntentExamples(ctx context.Context, store AnalyzerStore) error {
	for intent := range intentExamples {
		if len(store.GetByIntent(intent, 1)) > 0 {
			return nil
		}
	}

	var added int
	now := time.Now().UTC()
	for intent, examples := range intentExamples {
		for _, text := range examples {
			meta := domain.ItemMeta{
				Type:      domain.ItemTypeIntentExample,
				Intent:    intent,
				Source:    "seed",
				LearnedAt: now,
			}
			if _, err := store.Add(ctx, text, meta); err != nil {
				return fmt.Errorf("seed intent examples: %w", err)
			}
			added++
		}
	}
	log.Printf("seed: stored %d intent examples", added)
	return nil
}
