package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/splashxmoon/domufi-app/internal/domain"
	"github.com/splashxmoon/domufi-app/internal/embedding"
	"github.com/splashxmoon/domufi-app/internal/vectorstore"
)

const (
	// defaultIntentConfidence is returned when no rule and no learned
	// example matches.
	defaultIntentConfidence = 0.5

	// maxIntentConfidence caps every classification path.
	maxIntentConfidence = 0.95

	intentExampleLimit    = 10
	intentExampleTopK     = 3
	intentExampleMinScore = 0.3

	followUpMaxWords       = 8
	followUpHistorySim     = 0.4
	followUpPhraseSim      = 0.6
	patternBoostWeight     = 0.3
	patternSearchThreshold = 0.5
)

// AnalyzerEncoder is the embedding surface the analyzer needs.
type AnalyzerEncoder interface {
	Encode(ctx context.Context, text string) []float32
}

// AnalyzerStore is the slice of the vector memory the analyzer reads and
// writes learned patterns through.
type AnalyzerStore interface {
	Add(ctx context.Context, text string, meta domain.ItemMeta) (int, error)
	Search(ctx context.Context, query string, opts vectorstore.SearchOptions) ([]domain.SearchResult, error)
	GetByIntent(intent domain.Intent, limit int) []domain.StoredItem
}

// Analysis is the analyzer's verdict on one message.
type Analysis struct {
	Intent     domain.Intent
	Confidence float32
	Entities   domain.Entities
	Topics     []string
	IsFollowUp bool
	Message    string
}

// intentRule is one row of the keyword cascade. Rules are evaluated in order
// and the first match wins.
type intentRule struct {
	intent     domain.Intent
	confidence float32
	keywords   []string // any must appear in the message
	requireAny []string // when set, at least one must also appear
	excludeAny []string // none may appear
}

// intentRules is the keyword cascade, most specific first.
var intentRules = []intentRule{
	{
		intent:     domain.IntentMarketAnalysis,
		confidence: 0.95,
		keywords: []string{
			"how is the market", "market in", "market conditions", "market trends",
			"best market", "what's the market", "market analysis", "market data",
			"how is the housing market", "real estate market",
		},
	},
	{
		intent:     domain.IntentPropertySearch,
		confidence: 0.9,
		keywords: []string{
			"show me properties", "show properties", "find properties", "search properties",
			"properties under", "available properties", "list properties",
		},
	},
	{
		intent:     domain.IntentInvestmentAdvice,
		confidence: 0.9,
		keywords: []string{
			"what should i invest", "recommend", "suggest", "best investment",
			"what to invest", "investment recommendation",
		},
	},
	{
		intent:     domain.IntentExplanation,
		confidence: 0.95,
		keywords:   explanationKeywords,
		requireAny: []string{"fractional", "ownership", "token"},
	},
	{
		intent:     domain.IntentExplanation,
		confidence: 0.85,
		keywords:   explanationKeywords,
		excludeAny: []string{"market", "nyc", "miami", "city", "location"},
	},
	{
		intent:     domain.IntentPortfolioInquiry,
		confidence: 0.9,
		keywords: []string{
			"show my portfolio", "my investments", "my portfolio",
			"portfolio overview", "view portfolio",
		},
		excludeAny: []string{"properties", "property"},
	},
	{
		intent:     domain.IntentWalletInquiry,
		confidence: 0.9,
		keywords:   []string{"wallet", "balance", "how much do i have"},
	},
	{
		intent:     domain.IntentComparisonRequest,
		confidence: 0.85,
		keywords:   []string{"compare", "vs", "versus", "difference between"},
	},
	{
		intent:     domain.IntentPropertySearch,
		confidence: 0.85,
		keywords:   []string{"find properties", "search for", "show properties", "available properties"},
	},
	{
		intent:     domain.IntentHelpRequest,
		confidence: 0.85,
		keywords: []string{
			"getting started", "how do i start", "new user", "beginner",
			"guide", "need help", "can you help",
		},
	},
}

var explanationKeywords = []string{
	"how does", "how do", "how is", "how are", "how can",
	"what is", "what are", "what does", "what do",
	"explain", "tell me about", "describe", "define",
	"why does", "why do", "why is", "why are",
}

var greetingWords = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "greetings"}

var followUpPhrases = []string{
	"tell me more", "what about", "how about", "and", "also",
	"can you explain", "what does that mean",
}

// cityAliases maps lowercase mentions to the canonical city label. Checked
// before any location regex.
var cityAliases = []struct {
	alias string
	city  string
}{
	{"nyc", "NYC"},
	{"new york", "NYC"},
	{"ny", "NYC"},
	{"miami", "Miami, FL"},
	{"florida", "Miami, FL"},
	{"los angeles", "Los Angeles, CA"},
	{"la", "Los Angeles, CA"},
	{"atlanta", "Atlanta, GA"},
	{"chicago", "Chicago, IL"},
	{"seattle", "Seattle, WA"},
	{"dallas", "Dallas, TX"},
	{"phoenix", "Phoenix, AZ"},
}

var (
	budgetMaxRe   = regexp.MustCompile(`(?i)(?:under|below|less than|up to|maximum|max|at most)\s*\$?(\d+(?:,\d{3})*(?:\.\d{2})?)`)
	budgetMinRe   = regexp.MustCompile(`(?i)(?:over|above|at least|minimum|min|more than)\s*\$?(\d+(?:,\d{3})*(?:\.\d{2})?)`)
	budgetRangeRe = regexp.MustCompile(`(?i)between\s*\$?(\d+(?:,\d{3})*(?:\.\d{2})?)\s*and\s*\$?(\d+(?:,\d{3})*(?:\.\d{2})?)`)
	budgetBareRe  = regexp.MustCompile(`(?i)(?:budget|have|spend|invest)\s*(?:of|:)?\s*\$?(\d+(?:,\d{3})*(?:\.\d{2})?)|\$(\d+(?:,\d{3})*(?:\.\d{2})?)`)

	bedroomsRe = regexp.MustCompile(`(?i)(\d+)\s*(?:bed(?:room)?s?|br)\b`)

	topicPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:what is|explain|tell me about|how does|what are|define|describe)\s+([a-zA-Z\s]+?)(?:\s+work|\?|$|\.)`),
		regexp.MustCompile(`(?i)how does\s+([a-zA-Z\s]+?)\s+work`),
		regexp.MustCompile(`(?i)what is\s+([a-zA-Z\s]+?)(?:\?|$|\.)`),
		regexp.MustCompile(`(?i)explain\s+([a-zA-Z\s]+?)(?:\?|$|\.)`),
		regexp.MustCompile(`(?i)tell me about\s+([a-zA-Z\s]+?)(?:\?|$|\.)`),
	}

	topicStopWordsRe = regexp.MustCompile(`(?i)\b(the|a|an|how|does|is|are|work)\b`)
)

var propertyTypes = []string{"apartment", "condo", "house", "townhouse", "studio", "duplex"}

// SemanticAnalyzer classifies messages into intents and extracts entities.
// Keyword rules run first; when none fires, stored intent examples are
// compared by embedding similarity.
type SemanticAnalyzer struct {
	encoder AnalyzerEncoder
	store   AnalyzerStore
}

// NewSemanticAnalyzer creates a SemanticAnalyzer.
func NewSemanticAnalyzer(encoder AnalyzerEncoder, store AnalyzerStore) *SemanticAnalyzer {
	return &SemanticAnalyzer{encoder: encoder, store: store}
}

// Analyze classifies one message given the conversation so far.
func (a *SemanticAnalyzer) Analyze(ctx context.Context, message string, history []domain.ConversationTurn) Analysis {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return Analysis{
			Intent:     domain.IntentGeneralInquiry,
			Confidence: defaultIntentConfidence,
			Message:    message,
		}
	}

	intent, confidence := a.detectIntent(ctx, trimmed)
	entities := a.extractEntities(trimmed, intent)

	var topics []string
	if entities.Topic != "" {
		topics = []string{entities.Topic}
	}

	return Analysis{
		Intent:     intent,
		Confidence: confidence,
		Entities:   entities,
		Topics:     topics,
		IsFollowUp: a.isFollowUp(ctx, trimmed, history),
		Message:    message,
	}
}

// LearnPattern stores a confirmed message/intent pair so future embedding
// classification can lean on it.
func (a *SemanticAnalyzer) LearnPattern(ctx context.Context, message string, intent domain.Intent, entities domain.Entities) error {
	meta := domain.ItemMeta{
		Type:   domain.ItemTypeUserPattern,
		Intent: intent,
		Source: "user_pattern",
	}
	if entities.City != "" {
		meta.Extra = map[string]string{"city": entities.City}
	}
	_, err := a.store.Add(ctx, message, meta)
	return err
}

func (a *SemanticAnalyzer) detectIntent(ctx context.Context, message string) (domain.Intent, float32) {
	msgLower := strings.ToLower(message)

	if isGreeting(msgLower) {
		return domain.IntentGreeting, 0.95
	}

	for _, rule := range intentRules {
		if rule.matches(msgLower) {
			return rule.intent, rule.confidence
		}
	}

	return a.classifyByExamples(ctx, message)
}

func (r intentRule) matches(msgLower string) bool {
	if !containsAny(msgLower, r.keywords) {
		return false
	}
	if len(r.requireAny) > 0 && !containsAny(msgLower, r.requireAny) {
		return false
	}
	if containsAny(msgLower, r.excludeAny) {
		return false
	}
	return true
}

// classifyByExamples scores the message against learned intent examples:
// average similarity of the top 3 examples per intent, boosted by similar
// stored user patterns, argmax across intents.
func (a *SemanticAnalyzer) classifyByExamples(ctx context.Context, message string) (domain.Intent, float32) {
	queryVec := a.encoder.Encode(ctx, message)

	scores := make(map[domain.Intent]float32)
	for _, intent := range domain.AllIntents {
		examples := a.store.GetByIntent(intent, intentExampleLimit)
		if len(examples) == 0 {
			continue
		}

		sims := make([]float32, 0, len(examples))
		for _, ex := range examples {
			sim := embedding.Similarity(queryVec, a.encoder.Encode(ctx, ex.Text))
			if sim >= intentExampleMinScore {
				sims = append(sims, sim)
			}
		}
		if len(sims) == 0 {
			continue
		}

		topN := topScores(sims, intentExampleTopK)
		var sum float32
		for _, s := range topN {
			sum += s
		}
		scores[intent] = sum / float32(len(topN))
	}

	patterns, err := a.store.Search(ctx, message, vectorstore.SearchOptions{
		TopK:       5,
		Threshold:  patternSearchThreshold,
		TypeFilter: domain.ItemTypeUserPattern,
	})
	if err == nil {
		for _, p := range patterns {
			intent := p.Item.Meta.Intent
			if intent == "" {
				intent = domain.IntentGeneralInquiry
			}
			scores[intent] += p.Score * patternBoostWeight
		}
	}

	if len(scores) == 0 {
		return domain.IntentGeneralInquiry, defaultIntentConfidence
	}

	best := domain.IntentGeneralInquiry
	var bestScore float32 = -1
	for _, intent := range domain.AllIntents {
		if s, ok := scores[intent]; ok && s > bestScore {
			best = intent
			bestScore = s
		}
	}

	if bestScore > maxIntentConfidence {
		bestScore = maxIntentConfidence
	}
	return best, bestScore
}

func (a *SemanticAnalyzer) extractEntities(message string, intent domain.Intent) domain.Entities {
	var entities domain.Entities
	msgLower := strings.ToLower(message)

	for _, alias := range cityAliases {
		if containsWord(msgLower, alias.alias) {
			entities.City = alias.city
			break
		}
	}

	entities.Budget = extractBudget(message)

	if intent == domain.IntentExplanation {
		entities.Topic = extractTopic(message, msgLower)
	}

	for _, pt := range propertyTypes {
		if containsWord(msgLower, pt) {
			entities.PropertyType = pt
			break
		}
	}

	if m := bedroomsRe.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			entities.Bedrooms = n
		}
	}

	return entities
}

func extractBudget(message string) *domain.Budget {
	if m := budgetRangeRe.FindStringSubmatch(message); m != nil {
		lo := parseAmount(m[1])
		hi := parseAmount(m[2])
		if lo > hi {
			lo, hi = hi, lo
		}
		return &domain.Budget{Min: lo, Max: hi, Type: domain.BudgetTypeRange}
	}
	if m := budgetMaxRe.FindStringSubmatch(message); m != nil {
		return &domain.Budget{Max: parseAmount(m[1]), Type: domain.BudgetTypeMax}
	}
	if m := budgetMinRe.FindStringSubmatch(message); m != nil {
		return &domain.Budget{Min: parseAmount(m[1]), Type: domain.BudgetTypeMin}
	}
	if m := budgetBareRe.FindStringSubmatch(message); m != nil {
		amount := m[1]
		if amount == "" {
			amount = m[2]
		}
		return &domain.Budget{Max: parseAmount(amount), Type: domain.BudgetTypeMax}
	}
	return nil
}

func extractTopic(message, msgLower string) string {
	// Fixed shortcuts win over the generic patterns.
	switch {
	case strings.Contains(msgLower, "fractional"):
		return "fractional ownership"
	case strings.Contains(msgLower, "token"):
		return "token"
	case strings.Contains(msgLower, "roi"), strings.Contains(msgLower, "return on investment"):
		return "roi"
	}

	for _, re := range topicPatterns {
		if m := re.FindStringSubmatch(message); m != nil {
			topic := topicStopWordsRe.ReplaceAllString(m[1], "")
			topic = strings.Join(strings.Fields(topic), " ")
			if topic != "" {
				return strings.ToLower(topic)
			}
		}
	}
	return ""
}

// isFollowUp flags short messages semantically close to the last assistant
// turn, or messages close to a known follow-up phrase.
func (a *SemanticAnalyzer) isFollowUp(ctx context.Context, message string, history []domain.ConversationTurn) bool {
	if len(history) == 0 {
		return false
	}

	var lastAssistant string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleAssistant {
			lastAssistant = history[i].Content
			break
		}
	}
	if lastAssistant == "" {
		return false
	}

	msgVec := a.encoder.Encode(ctx, message)

	if len(strings.Fields(message)) < followUpMaxWords {
		sim := embedding.Similarity(msgVec, a.encoder.Encode(ctx, lastAssistant))
		if sim > followUpHistorySim {
			return true
		}
	}

	for _, phrase := range followUpPhrases {
		if embedding.Similarity(msgVec, a.encoder.Encode(ctx, phrase)) > followUpPhraseSim {
			return true
		}
	}

	return false
}

func isGreeting(msgLower string) bool {
	trimmed := strings.TrimRight(strings.TrimSpace(msgLower), "!.? ")
	for _, g := range greetingWords {
		if trimmed == g || strings.HasPrefix(trimmed, g+" ") {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// containsWord reports whether needle appears in s with word boundaries on
// both sides. Substring checks alone would match "la" inside "plans".
func containsWord(s, needle string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		beforeOK := start == 0 || !isWordChar(s[start-1])
		afterOK := end == len(s) || !isWordChar(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func parseAmount(s string) float64 {
	v, _ := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return v
}

func topScores(scores []float32, n int) []float32 {
	if len(scores) <= n {
		return scores
	}
	sorted := make([]float32, len(scores))
	copy(sorted, scores)
	for i := 0; i < n; i++ {
		maxIdx := i
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] > sorted[maxIdx] {
				maxIdx = j
			}
		}
		sorted[i], sorted[maxIdx] = sorted[maxIdx], sorted[i]
	}
	return sorted[:n]
}
