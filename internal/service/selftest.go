package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/splashxmoon/domufi-app/internal/domain"
	"github.com/splashxmoon/domufi-app/internal/jobs"
)

const (
	// SelfTestInterval paces the focused self-testing loop.
	SelfTestInterval = 10 * time.Minute

	masteryPassCount   = 2
	gapQueryLimit      = 10
	accuracyTrendCap   = 100
	selfTestStateDir   = "self_learning"
	masteredStateFile  = "mastered_questions.json"
	repetitionMinRatio = 0.25
)

var (
	multiDigitRe  = regexp.MustCompile(`\d{2,}`)
	formulaEqRe   = regexp.MustCompile(`(roi|return)\s*=`)
	fractionRe    = regexp.MustCompile(`\b\d+\s*/\s*\d+`)
	topicSplitRe  = regexp.MustCompile(`[\s\-]+`)
	genericPhases = []string{
		"i don't have specific information",
		"i cannot provide",
		"unable to",
		"hardcoded",
		"placeholder",
	}
	numericKeywords = []string{
		"percent", "%", "bps", "basis points", "million", "billion",
		"growth", "increase", "decrease", "trend", "rate", "price",
		"$", "rent", "yield",
	}
	recencyWords     = []string{"2023", "2024", "2025", "current", "recent", "now", "today"}
	explanationWords = []string{"explain", "means", "work", "how", "because", "this means"}
	comparisonWords  = []string{"compare", "versus", "vs", "difference", "similar", "better", "contrast", "relative to"}
)

// topicSynonyms widens topic matching so "new york" satisfies "NYC".
var topicSynonyms = map[string][]string{
	"nyc":                  {"nyc", "new york", "new york city", "manhattan"},
	"miami":                {"miami", "south florida"},
	"atlanta":              {"atlanta", "atl"},
	"los angeles":          {"los angeles", "la", "l.a.", "southern california"},
	"fractional ownership": {"fractional ownership", "fractional investing"},
	"first investment":     {"first investment", "beginner investment", "first-time investor"},
	"roi":                  {"roi", "return on investment"},
	"vacation rental":      {"vacation rental", "short-term rental", "airbnb"},
	"interest rates":       {"interest rate", "interest rates", "rate hikes", "federal reserve"},
	"diversification":      {"diversification", "diversified", "spread risk"},
}

// testCriteria are the checks applied to one suite answer.
type testCriteria struct {
	MinLength          int
	RequiresData       bool
	RequiresRecentInfo bool
	RequiresExplain    bool
	RequiresFormula    bool
	RequiresComparison bool
}

// TestQuestion is one entry of the fixed self-test suite.
type TestQuestion struct {
	Category       string
	Question       string
	ExpectedTopics []string
	Criteria       testCriteria
}

var selfTestSuite = []TestQuestion{
	{
		Category:       "market_analysis",
		Question:       "How is the real estate market in NYC right now?",
		ExpectedTopics: []string{"NYC", "real estate market", "prices", "trends", "inventory"},
		Criteria:       testCriteria{MinLength: 200, RequiresData: true, RequiresRecentInfo: true},
	},
	{
		Category:       "market_analysis",
		Question:       "What's happening with the Miami real estate market?",
		ExpectedTopics: []string{"Miami", "real estate", "market conditions", "growth"},
		Criteria:       testCriteria{MinLength: 150, RequiresData: true},
	},
	{
		Category:       "investment_knowledge",
		Question:       "How does fractional ownership work?",
		ExpectedTopics: []string{"fractional ownership", "shares", "benefits", "process"},
		Criteria:       testCriteria{MinLength: 300, RequiresExplain: true},
	},
	{
		Category:       "investment_knowledge",
		Question:       "What should I invest in for my first real estate investment?",
		ExpectedTopics: []string{"first investment", "recommendations", "risk", "strategy"},
		Criteria:       testCriteria{MinLength: 250},
	},
	{
		Category:       "financial_knowledge",
		Question:       "How do I calculate ROI on a fractional real estate investment?",
		ExpectedTopics: []string{"ROI", "calculation", "formula", "example"},
		Criteria:       testCriteria{MinLength: 200, RequiresFormula: true},
	},
	{
		Category:       "market_comparison",
		Question:       "Compare the real estate markets in Atlanta and Los Angeles",
		ExpectedTopics: []string{"Atlanta", "Los Angeles", "comparison", "differences"},
		Criteria:       testCriteria{MinLength: 300, RequiresComparison: true},
	},
	{
		Category:       "market_analysis",
		Question:       "What are the best real estate markets to invest in 2025?",
		ExpectedTopics: []string{"best markets", "investment", "2025", "recommendations"},
		Criteria:       testCriteria{MinLength: 250, RequiresRecentInfo: true},
	},
	{
		Category:       "property_knowledge",
		Question:       "What should I look for when buying a vacation rental property?",
		ExpectedTopics: []string{"vacation rental", "location", "features", "factors"},
		Criteria:       testCriteria{MinLength: 200},
	},
	{
		Category:       "economic_knowledge",
		Question:       "How do interest rates affect real estate prices?",
		ExpectedTopics: []string{"interest rates", "real estate prices", "relationship", "impact"},
		Criteria:       testCriteria{MinLength: 200, RequiresExplain: true},
	},
	{
		Category:       "investment_strategy",
		Question:       "What's a good diversification strategy for real estate investing?",
		ExpectedTopics: []string{"diversification", "strategy", "portfolio", "risk"},
		Criteria:       testCriteria{MinLength: 250},
	},
}

// Answerer produces an answer for a test question. The reasoning engine
// satisfies this through a thin adapter.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// masteryRecord tracks progress on one question.
type masteryRecord struct {
	Passed        bool       `json:"passed"`
	PassCount     int        `json:"pass_count"`
	LastPassed    *time.Time `json:"last_passed,omitempty"`
	TotalAttempts int        `json:"total_attempts"`
}

// TestOutcome is the result of one question.
type TestOutcome struct {
	Question string   `json:"question"`
	Category string   `json:"category"`
	Passed   bool     `json:"passed"`
	Issues   []string `json:"issues,omitempty"`
	Length   int      `json:"response_length"`
}

// CycleResult summarizes one self-test cycle.
type CycleResult struct {
	Total    int           `json:"total_tests"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Mastered int           `json:"mastered"`
	Suite    int           `json:"suite_size"`
	Details  []TestOutcome `json:"test_details"`
}

// SelfTestStats aggregates results across cycles.
type SelfTestStats struct {
	TotalTests    int       `json:"total_tests"`
	PassedTests   int       `json:"passed_tests"`
	FailedTests   int       `json:"failed_tests"`
	GapsFound     int       `json:"knowledge_gaps_identified"`
	LastTest      time.Time `json:"last_test_time"`
	AccuracyTrend []float64 `json:"accuracy_trend"`
}

// SelfTester grades the engine against the fixed suite, one question at a
// time, and triggers gap learning on failures.
type SelfTester struct {
	answerer Answerer
	store    AnalyzerStore
	learner  *BackgroundLearner
	stateDir string

	mu       sync.Mutex
	mastered map[string]*masteryRecord
	stats    SelfTestStats
	focus    string
}

// NewSelfTester wires the tester. learner may be nil, disabling gap
// learning.
func NewSelfTester(answerer Answerer, store AnalyzerStore, learner *BackgroundLearner, stateDir string) *SelfTester {
	t := &SelfTester{
		answerer: answerer,
		store:    store,
		learner:  learner,
		stateDir: filepath.Join(stateDir, selfTestStateDir),
		mastered: make(map[string]*masteryRecord),
	}
	t.loadMastered()
	return t
}

// Job returns the processor running one focused cycle per tick.
func (t *SelfTester) Job() jobs.JobProcessor { return selfTestJob{t} }

type selfTestJob struct{ t *SelfTester }

func (j selfTestJob) ProcessJobs(ctx context.Context) error {
	_, err := j.t.RunCycle(ctx, true)
	return err
}

// RunCycle tests either the first unmastered question (focused) or the
// whole suite. A pass increments the question's pass count; mastery needs
// masteryPassCount consecutive passes. A failure resets the count and
// triggers gap learning.
func (t *SelfTester) RunCycle(ctx context.Context, focused bool) (CycleResult, error) {
	var toRun []TestQuestion
	t.mu.Lock()
	if focused {
		if q := t.nextFocusQuestion(); q != nil {
			t.focus = q.Question
			toRun = []TestQuestion{*q}
		} else {
			t.focus = ""
			log.Printf("selftest: all %d questions mastered", len(selfTestSuite))
		}
	} else {
		toRun = selfTestSuite
	}
	t.mu.Unlock()

	result := CycleResult{Suite: len(selfTestSuite)}
	for _, q := range toRun {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Total++

		outcome := t.testQuestion(ctx, q)
		result.Details = append(result.Details, outcome)

		t.mu.Lock()
		rec := t.record(q.Question)
		rec.TotalAttempts++

		if outcome.Passed {
			result.Passed++
			rec.PassCount++
			now := time.Now().UTC()
			rec.LastPassed = &now
			if rec.PassCount >= masteryPassCount {
				rec.Passed = true
				log.Printf("selftest: mastered %q after %d passes", q.Question, rec.PassCount)
			}
		} else {
			result.Failed++
			rec.PassCount = 0
		}
		t.mu.Unlock()

		if !outcome.Passed {
			log.Printf("selftest: failed %q: %s", q.Question, strings.Join(outcome.Issues, "; "))
			t.recordCorrection(ctx, q, outcome.Issues)
			t.learnGaps(ctx, q, outcome.Issues)
		}
	}

	t.mu.Lock()
	result.Mastered = t.masteredCount()
	t.stats.TotalTests += result.Total
	t.stats.PassedTests += result.Passed
	t.stats.FailedTests += result.Failed
	t.stats.LastTest = time.Now().UTC()
	if result.Total > 0 {
		t.stats.AccuracyTrend = append(t.stats.AccuracyTrend, float64(result.Passed)/float64(result.Total)*100)
		if len(t.stats.AccuracyTrend) > accuracyTrendCap {
			t.stats.AccuracyTrend = t.stats.AccuracyTrend[len(t.stats.AccuracyTrend)-accuracyTrendCap:]
		}
	}
	t.saveMastered()
	t.mu.Unlock()
	return result, nil
}

func (t *SelfTester) testQuestion(ctx context.Context, q TestQuestion) TestOutcome {
	answer, err := t.answerer.Answer(ctx, q.Question)
	if err != nil {
		return TestOutcome{
			Question: q.Question,
			Category: q.Category,
			Issues:   []string{fmt.Sprintf("error during testing: %v", err)},
		}
	}

	issues := validateAnswer(answer, q)
	return TestOutcome{
		Question: q.Question,
		Category: q.Category,
		Passed:   len(issues) == 0,
		Issues:   issues,
		Length:   len(answer),
	}
}

// validateAnswer applies the question's criteria plus the shared quality
// checks, returning every issue found.
func validateAnswer(answer string, q TestQuestion) []string {
	var issues []string
	lower := strings.ToLower(answer)

	minLen := q.Criteria.MinLength
	if minLen == 0 {
		minLen = 100
	}
	if len(answer) < minLen {
		issues = append(issues, fmt.Sprintf("response too short: %d chars (min %d)", len(answer), minLen))
	}

	var missing []string
	for _, topic := range q.ExpectedTopics {
		if !topicPresent(topic, lower) {
			missing = append(missing, topic)
		}
	}
	if len(missing) > 0 {
		issues = append(issues, "missing topics: "+strings.Join(missing, ", "))
	}

	if q.Criteria.RequiresData && !containsNumericInsight(lower) {
		issues = append(issues, "missing data/statistics")
	}
	if q.Criteria.RequiresRecentInfo && !containsAny(lower, recencyWords) {
		issues = append(issues, "missing recent/current information")
	}
	if q.Criteria.RequiresExplain && !containsAny(lower, explanationWords) {
		issues = append(issues, "missing explanation")
	}
	if q.Criteria.RequiresFormula && !containsFormula(lower) {
		issues = append(issues, "missing formula/calculation")
	}
	if q.Criteria.RequiresComparison && !containsAny(lower, comparisonWords) {
		issues = append(issues, "missing comparison")
	}
	if containsAny(lower, genericPhases) {
		issues = append(issues, "contains generic/hardcoded content")
	}
	if !strings.Contains(answer, "\n") && len(answer) > 200 {
		issues = append(issues, "poor structure (no paragraphs)")
	}
	if words := strings.Fields(lower); len(words) > 0 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		if float64(len(unique))/float64(len(words)) < repetitionMinRatio {
			issues = append(issues, "too repetitive")
		}
	}
	return issues
}

// topicPresent accepts any synonym, or all 3+ letter tokens of the topic
// appearing independently.
func topicPresent(topic, lower string) bool {
	if topic == "" {
		return true
	}
	normalized := strings.ToLower(strings.TrimSpace(topic))
	variants := append([]string{normalized}, topicSynonyms[normalized]...)
	for _, v := range variants {
		if v != "" && strings.Contains(lower, v) {
			return true
		}
	}

	tokens := topicSplitRe.Split(normalized, -1)
	matchedAll := false
	for _, token := range tokens {
		if len(token) <= 2 {
			continue
		}
		if !strings.Contains(lower, token) {
			return false
		}
		matchedAll = true
	}
	return matchedAll
}

func containsNumericInsight(lower string) bool {
	if multiDigitRe.MatchString(lower) {
		return true
	}
	return containsAny(lower, numericKeywords)
}

func containsFormula(lower string) bool {
	if strings.Contains(lower, "formula") || strings.Contains(lower, "calculate") || strings.Contains(lower, "calculation") {
		return true
	}
	return formulaEqRe.MatchString(lower) || fractionRe.MatchString(lower)
}

// recordCorrection stores the failure pattern so future retrieval can show
// what a good answer must contain.
func (t *SelfTester) recordCorrection(ctx context.Context, q TestQuestion, issues []string) {
	text := fmt.Sprintf("Question: %s\nRequired Knowledge: %s\nCommon Issues: %s",
		q.Question, strings.Join(q.ExpectedTopics, ", "), strings.Join(issues, ", "))
	_, err := t.store.Add(ctx, text, domain.ItemMeta{
		Type:      domain.ItemTypeCorrectedResponse,
		Category:  q.Category,
		Source:    "self_learning_system",
		LearnedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("selftest: correction store failed: %v", err)
	}
}

// learnGaps derives learning queries from the missing topics and sends
// them through the background learner.
func (t *SelfTester) learnGaps(ctx context.Context, q TestQuestion, issues []string) {
	if t.learner == nil {
		return
	}

	var gaps []string
	for _, issue := range issues {
		if rest, ok := strings.CutPrefix(issue, "missing topics: "); ok {
			for _, gap := range strings.Split(rest, ",") {
				if g := strings.TrimSpace(gap); g != "" {
					gaps = append(gaps, g)
				}
			}
		}
	}
	if len(gaps) == 0 {
		return
	}
	t.mu.Lock()
	t.stats.GapsFound++
	t.mu.Unlock()

	var queries []string
	for _, gap := range gaps {
		switch q.Category {
		case "market_analysis":
			queries = append(queries,
				"Current real estate market trends in "+gap,
				gap+" real estate market analysis 2025")
		case "investment_knowledge":
			queries = append(queries,
				"Detailed explanation of "+gap,
				"How "+gap+" works in real estate")
		case "financial_knowledge":
			queries = append(queries,
				gap+" calculation formula example real estate",
				"How to calculate "+gap+" real estate investment")
		case "market_comparison":
			queries = append(queries, "Compare "+gap+" real estate markets differences")
		default:
			queries = append(queries, gap+" in real estate investing")
		}
	}
	if len(queries) > gapQueryLimit {
		queries = queries[:gapQueryLimit]
	}

	for _, query := range queries {
		if _, err := t.learner.LearnTopic(ctx, query, "gap_learning", true); err != nil {
			log.Printf("selftest: gap learning %q failed: %v", query, err)
		}
	}
}

// nextFocusQuestion expects t.mu held.
func (t *SelfTester) nextFocusQuestion() *TestQuestion {
	for i := range selfTestSuite {
		if rec, ok := t.mastered[selfTestSuite[i].Question]; !ok || !rec.Passed {
			return &selfTestSuite[i]
		}
	}
	return nil
}

// record expects t.mu held.
func (t *SelfTester) record(question string) *masteryRecord {
	rec, ok := t.mastered[question]
	if !ok {
		rec = &masteryRecord{}
		t.mastered[question] = rec
	}
	return rec
}

// masteredCount expects t.mu held.
func (t *SelfTester) masteredCount() int {
	n := 0
	for _, rec := range t.mastered {
		if rec.Passed {
			n++
		}
	}
	return n
}

// Stats returns aggregate self-test statistics.
func (t *SelfTester) Stats() SelfTestStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.stats
	stats.AccuracyTrend = append([]float64(nil), t.stats.AccuracyTrend...)
	return stats
}

// Progress reports mastery per suite question in suite order.
func (t *SelfTester) Progress() (mastered int, total int, focus string, perQuestion []TestOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, q := range selfTestSuite {
		rec := t.mastered[q.Question]
		out := TestOutcome{Question: q.Question, Category: q.Category}
		if rec != nil {
			out.Passed = rec.Passed
		}
		perQuestion = append(perQuestion, out)
	}
	return t.masteredCount(), len(selfTestSuite), t.focus, perQuestion
}

// saveMastered expects t.mu held.
func (t *SelfTester) saveMastered() {
	if err := os.MkdirAll(t.stateDir, 0o755); err != nil {
		log.Printf("selftest: state dir: %v", err)
		return
	}
	data, err := json.MarshalIndent(t.mastered, "", "  ")
	if err != nil {
		log.Printf("selftest: marshal state: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(t.stateDir, masteredStateFile), data, 0o644); err != nil {
		log.Printf("selftest: write state: %v", err)
	}
}

func (t *SelfTester) loadMastered() {
	data, err := os.ReadFile(filepath.Join(t.stateDir, masteredStateFile))
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, &t.mastered); err != nil {
		log.Printf("selftest: state corrupt, starting fresh: %v", err)
		t.mastered = make(map[string]*masteryRecord)
		return
	}
	log.Printf("selftest: loaded %d mastered question records", len(t.mastered))
}
