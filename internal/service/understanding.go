package service

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/splashxmoon/domufi-app/internal/domain"
	"github.com/splashxmoon/domufi-app/internal/embedding"
)

const (
	insightMinChars = 40
	insightMaxChars = 500
	factMaxChars    = 300

	insightRelevanceFloor = 0.3
	keywordFallbackScore  = 0.5
	maxInsights           = 10

	synthesisMaxSentences = 6
	synthesisMaxChars     = 600
	synthesisMinUsable    = 50
	lenientMinChars       = 30

	dedupSignatureChars = 60

	takeawayMinChars = 40
	takeawayMaxChars = 150
	maxTakeaways     = 5

	understandingBaseConfidence = 0.3
	highRelevanceBar            = 0.7
	synthesisLengthNorm         = 300
	maxUnderstandingConfidence  = 0.95
)

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
	queryWordRe     = regexp.MustCompile(`\b[a-z]{4,}\b`)
	hasDigitRe      = regexp.MustCompile(`\$?\d+`)
	endsPunctRe     = regexp.MustCompile(`[.!?]$`)

	// junkPatterns strips scraped-page chrome before sentence extraction.
	junkPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Focus\):\s*`),
		regexp.MustCompile(`(?im)^[A-Z][a-z]+\):\s*`),
		regexp.MustCompile(`(?i)\b(members|subscribers)\s*•`),
		regexp.MustCompile(`(?i)Cookie\s+Policy|Privacy\s+Policy|Terms\s+of\s+Service`),
		regexp.MustCompile(`(?i)Sign\s+up|Subscribe|Newsletter|Click\s+here`),
		regexp.MustCompile(`(?i)Read\s+more|Continue\s+reading|View\s+more`),
	}

	junkSentenceRes = []*regexp.Regexp{
		regexp.MustCompile(`focus\):\s*`),
		regexp.MustCompile(`members\s*•`),
		regexp.MustCompile(`com\s*\|\s*straightforward`),
	}
)

// marketVocabulary flags sentences carrying real-estate substance; part of
// the keyword fallback when embedding similarity is inconclusive.
var marketVocabulary = []string{
	"market", "price", "rent", "property", "real estate", "housing",
	"investment", "growth", "trend", "yield", "appreciation",
}

var takeawayKeywords = []string{"price", "rent", "market", "growth", "trend", "investment", "yield"}

// UnderstandingEngine sifts research content for a query: junk removal,
// sentence scoring, synthesis with a fallback ladder, key takeaways and a
// confidence estimate.
type UnderstandingEngine struct {
	encoder AnalyzerEncoder
}

// NewUnderstandingEngine creates an UnderstandingEngine.
func NewUnderstandingEngine(encoder AnalyzerEncoder) *UnderstandingEngine {
	return &UnderstandingEngine{encoder: encoder}
}

// Understand scores the report against the query and synthesizes an answer.
// prior holds previously learned items to blend in when present.
func (e *UnderstandingEngine) Understand(ctx context.Context, report domain.ResearchReport, query string, prior []domain.SearchResult) domain.Understanding {
	out := domain.Understanding{Query: query, Confidence: understandingBaseConfidence}

	content := strings.Join(report.Content, " ")
	if content == "" && len(report.KeyFacts) == 0 {
		return out
	}

	out.Insights = e.understandMeaning(ctx, content, report.KeyFacts, query)
	out.KeyFacts = report.KeyFacts

	if len(prior) > 0 {
		out.Synthesized = e.synthesizeWithKnowledge(out.Insights, prior)
	} else {
		out.Synthesized = e.synthesizeInsights(out.Insights)
	}

	out.Takeaways = extractTakeaways(out.Synthesized)

	if len(strings.TrimSpace(out.Synthesized)) < synthesisMinUsable {
		out.Synthesized = e.fallbackSynthesis(content, out.Insights, report.KeyFacts)
	}

	out.Confidence = understandingConfidence(out.Insights, out.Synthesized)
	return out
}

// understandMeaning extracts scored insight sentences from content and facts.
func (e *UnderstandingEngine) understandMeaning(ctx context.Context, content string, facts []string, query string) []domain.Insight {
	queryVec := e.encoder.Encode(ctx, query)
	insights := make([]domain.Insight, 0, maxInsights)

	content = removeJunkPatterns(content)
	for _, sentence := range splitSentences(content) {
		if len(sentence) < insightMinChars || len(sentence) > insightMaxChars {
			continue
		}
		if isJunkSentence(sentence) {
			continue
		}
		if rel, ok := e.scoreSentence(ctx, queryVec, query, sentence); ok {
			insights = append(insights, domain.Insight{Text: sentence, Relevance: rel, Source: "web_content"})
		}
	}

	for _, fact := range facts {
		fact = strings.TrimSpace(fact)
		if len(fact) < insightMinChars || len(fact) > factMaxChars {
			continue
		}
		if isJunkSentence(fact) {
			continue
		}
		if rel, ok := e.scoreSentence(ctx, queryVec, query, fact); ok {
			insights = append(insights, domain.Insight{Text: fact, Relevance: rel, Source: "web_facts"})
		}
	}

	sortInsights(insights)
	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

// scoreSentence accepts a sentence when its embedding similarity clears the
// floor, or when it shares a meaningful query word and reads like a real
// sentence.
func (e *UnderstandingEngine) scoreSentence(ctx context.Context, queryVec []float32, query, sentence string) (float32, bool) {
	sim := embedding.Similarity(queryVec, e.encoder.Encode(ctx, sentence))
	if sim > insightRelevanceFloor {
		return sim, true
	}

	queryWords := queryWordRe.FindAllString(strings.ToLower(query), -1)
	sentenceLower := strings.ToLower(sentence)
	for _, w := range queryWords {
		if strings.Contains(sentenceLower, w) && isWellFormedSentence(sentence) {
			return keywordFallbackScore, true
		}
	}

	return 0, false
}

// synthesizeInsights joins the best insight sentences into one passage.
func (e *UnderstandingEngine) synthesizeInsights(insights []domain.Insight) string {
	if len(insights) == 0 {
		return ""
	}

	texts := make([]string, 0, len(insights))
	for _, ins := range insights {
		text := strings.TrimSpace(ins.Text)
		if len(text) >= insightMinChars && len(text) <= 400 && isWellFormedSentence(text) {
			text = removeJunkPatterns(text)
			if len(text) >= insightMinChars {
				texts = append(texts, text)
			}
		}
	}

	// Lenient pass: accept shorter sentences rather than give up.
	if len(texts) == 0 {
		for _, ins := range insights {
			text := removeJunkPatterns(strings.TrimSpace(ins.Text))
			if len(text) >= lenientMinChars && len(text) <= insightMaxChars {
				texts = append(texts, text)
				if len(texts) >= 3 {
					break
				}
			}
		}
	}

	if len(texts) == 0 {
		return ""
	}

	return coherentSynthesis(texts)
}

// synthesizeWithKnowledge blends fresh insights with prior knowledge.
func (e *UnderstandingEngine) synthesizeWithKnowledge(insights []domain.Insight, prior []domain.SearchResult) string {
	parts := make([]string, 0, 10)
	if len(prior) > 0 {
		parts = append(parts, "Based on established knowledge and current market data:")
	} else {
		parts = append(parts, "Current market insights:")
	}

	for i, ins := range insights {
		if i >= 8 {
			break
		}
		text := strings.TrimSpace(ins.Text)
		if text == "" {
			continue
		}
		lower := strings.ToLower(text)
		if containsAny(lower, marketVocabulary) || len(text) > insightMinChars {
			parts = append(parts, text)
		}
	}

	if len(parts) <= 1 {
		return ""
	}

	return coherentSynthesis(parts[1:])
}

// fallbackSynthesis is the three-stage ladder used when the main synthesis
// came up short: raw content sentences, then insight texts, then raw facts.
func (e *UnderstandingEngine) fallbackSynthesis(content string, insights []domain.Insight, facts []string) string {
	if len(strings.TrimSpace(content)) > synthesisMinUsable {
		meaningful := make([]string, 0, 5)
		sentences := splitSentences(content)
		if len(sentences) > 10 {
			sentences = sentences[:10]
		}
		for _, s := range sentences {
			if len(s) >= lenientMinChars && len(s) <= 400 && !isJunkSentence(s) {
				meaningful = append(meaningful, s)
				if len(meaningful) >= 5 {
					break
				}
			}
		}
		if len(meaningful) > 0 {
			log.Printf("understanding: fallback used %d raw content sentences", len(meaningful))
			return strings.Join(meaningful, ". ")
		}
	}

	if len(insights) > 0 {
		texts := make([]string, 0, 3)
		for _, ins := range insights {
			text := strings.TrimSpace(ins.Text)
			if len(text) >= lenientMinChars {
				texts = append(texts, text)
				if len(texts) >= 3 {
					break
				}
			}
		}
		if len(texts) > 0 {
			log.Printf("understanding: fallback used %d insights directly", len(texts))
			return strings.Join(texts, ". ")
		}
	}

	texts := make([]string, 0, 3)
	for _, fact := range facts {
		fact = strings.TrimSpace(fact)
		if len(fact) >= lenientMinChars {
			texts = append(texts, fact)
			if len(texts) >= 3 {
				break
			}
		}
	}
	if len(texts) > 0 {
		log.Printf("understanding: fallback used %d raw facts", len(texts))
		return strings.Join(texts, ". ")
	}

	return ""
}

// coherentSynthesis dedups near-identical sentences by prefix signature,
// joins the top few and normalizes the ending.
func coherentSynthesis(sentences []string) string {
	seen := make(map[string]struct{})
	unique := make([]string, 0, len(sentences))
	for _, s := range sentences {
		sig := strings.TrimSpace(strings.ToLower(s))
		if len(sig) > dedupSignatureChars {
			sig = sig[:dedupSignatureChars]
		}
		if len(sig) <= 20 {
			continue
		}
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		unique = append(unique, s)
	}

	if len(unique) == 0 {
		return ""
	}
	if len(unique) > synthesisMaxSentences {
		unique = unique[:synthesisMaxSentences]
	}

	out := strings.Join(unique, ". ")
	if !endsPunctRe.MatchString(out) {
		out += "."
	}
	if len(out) > synthesisMaxChars {
		out = out[:synthesisMaxChars]
	}
	return strings.TrimSpace(out)
}

// extractTakeaways pulls short, substantive sentences out of a synthesis.
func extractTakeaways(synthesized string) []string {
	if synthesized == "" {
		return nil
	}

	takeaways := make([]string, 0, maxTakeaways)
	for _, sentence := range splitSentences(synthesized) {
		if len(sentence) < takeawayMinChars {
			continue
		}
		lower := strings.ToLower(sentence)
		if !containsAny(lower, takeawayKeywords) && !hasDigitRe.MatchString(sentence) {
			continue
		}
		if len(sentence) > takeawayMaxChars {
			sentence = sentence[:takeawayMaxChars] + "..."
		}
		takeaways = append(takeaways, sentence)
		if len(takeaways) >= maxTakeaways {
			break
		}
	}
	return takeaways
}

func understandingConfidence(insights []domain.Insight, synthesized string) float32 {
	if len(insights) == 0 || synthesized == "" {
		return understandingBaseConfidence
	}

	var high int
	for _, ins := range insights {
		if ins.Relevance > highRelevanceBar {
			high++
		}
	}

	relevanceScore := float32(high) / float32(len(insights))
	synthesisScore := float32(len(synthesized)) / synthesisLengthNorm
	if synthesisScore > 1 {
		synthesisScore = 1
	}

	confidence := relevanceScore*0.6 + synthesisScore*0.4
	if confidence > maxUnderstandingConfidence {
		confidence = maxUnderstandingConfidence
	}
	return confidence
}

func removeJunkPatterns(text string) string {
	if text == "" {
		return ""
	}
	for _, re := range junkPatterns {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

func isJunkSentence(sentence string) bool {
	if sentence == "" {
		return true
	}
	lower := strings.ToLower(sentence)
	for _, re := range junkSentenceRes {
		if re.MatchString(lower) {
			return true
		}
	}

	var special int
	for _, r := range sentence {
		switch r {
		case '•', '|', '·', '▪', '▫', '→', '←', '↑', '↓':
			special++
		}
	}
	if float64(special)/float64(len(sentence)) > 0.2 {
		return true
	}

	if len(sentence) < 50 {
		var upper int
		for _, r := range sentence {
			if r >= 'A' && r <= 'Z' {
				upper++
			}
		}
		if float64(upper)/float64(len(sentence)) > 0.7 {
			return true
		}
	}

	return false
}

func isWellFormedSentence(sentence string) bool {
	if len(sentence) < insightMinChars {
		return false
	}

	var alpha int
	for _, r := range sentence {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			alpha++
		}
	}
	return float64(alpha)/float64(len(sentence)) >= 0.6
}

func splitSentences(text string) []string {
	raw := sentenceSplitRe.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sortInsights(insights []domain.Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Relevance > insights[j].Relevance
	})
}
