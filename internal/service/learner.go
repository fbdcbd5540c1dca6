package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/splashxmoon/domufi-app/internal/domain"
	"github.com/splashxmoon/domufi-app/internal/jobs"
)

const (
	// ContinuousLearnInterval paces the main topic-backlog cycle.
	ContinuousLearnInterval = 300 * time.Second
	// ActiveLearnInterval paces refresh of recently asked queries.
	ActiveLearnInterval = 30 * time.Second
	// TrendingLearnInterval paces the random trending-query pick.
	TrendingLearnInterval = 120 * time.Second

	relearnMainAfter      = 48 * time.Hour
	relearnVariationAfter = 6 * time.Hour

	topicsPerCycle        = 20
	forcedRelearnCount    = 5
	minVariationsPerTopic = 4
	maxVariationsPerTopic = 6
	maxStoredInsights     = 5
	interactionThreshold  = 0.7
	recentQueryBacklog    = 64
	learnHistoryCap       = 1000

	storeSynthesizedMin = 50
	storeTakeawayMin    = 25
	storeInsightMin     = 30
	rawFallbackCap      = 500
	partialSynthesisCap = 200
	partialSynthesisMin = 30

	learnerStateDir   = "background_learner"
	learnedTopicsFile = "learned_topics.json"
)

// learningTopic is one backlog entry for the continuous loop.
type learningTopic struct {
	query      string
	category   string
	variations []string
}

var learningBacklog = []learningTopic{
	{
		query:    "fractional ownership real estate",
		category: "fractional_ownership",
		variations: []string{
			"fractional ownership benefits",
			"fractional ownership investment",
			"property tokenization",
			"fractional ownership vs traditional",
			"REITs vs fractional ownership",
			"property co-ownership",
		},
	},
	{
		query:    "real estate market analysis",
		category: "market_analysis",
		variations: []string{
			"how to analyze real estate markets",
			"market indicators real estate",
			"property market trends",
			"housing market indicators",
			"property valuation methods",
		},
	},
	{
		query:    "NYC real estate market",
		category: "market_analysis",
		variations: []string{
			"New York City housing market",
			"NYC property prices",
			"Manhattan real estate",
			"Brooklyn Queens real estate",
			"NYC rental market",
		},
	},
	{
		query:    "Miami real estate market",
		category: "market_analysis",
		variations: []string{
			"Miami housing market",
			"Florida real estate",
			"Miami property investment",
		},
	},
	{
		query:    "Atlanta real estate market",
		category: "market_analysis",
		variations: []string{
			"Atlanta housing market",
			"Georgia real estate",
			"Atlanta rental market",
		},
	},
	{
		query:    "Chicago real estate market",
		category: "market_analysis",
		variations: []string{
			"Chicago housing market",
			"Illinois real estate",
			"Chicago property investment",
		},
	},
	{
		query:    "Dallas real estate market",
		category: "market_analysis",
		variations: []string{
			"Dallas housing market",
			"Texas real estate",
			"Dallas property investment",
		},
	},
	{
		query:    "real estate investment strategies",
		category: "investment_strategies",
		variations: []string{
			"property investment strategies",
			"cash flow vs appreciation",
			"buy and hold strategy",
			"real estate diversification",
			"passive income real estate",
		},
	},
	{
		query:    "real estate financial analysis",
		category: "financial_analysis",
		variations: []string{
			"cap rate calculation",
			"cash on cash return",
			"NOI calculation",
			"real estate ROI analysis",
			"debt service coverage ratio",
		},
	},
	{
		query:    "real estate investment risks",
		category: "risk_management",
		variations: []string{
			"real estate risk management",
			"property investment risks",
			"tenant risk management",
			"real estate due diligence",
		},
	},
}

var trendingQueries = []string{
	"real estate market trends 2025",
	"fractional ownership news",
	"property investment trends",
	"housing market latest news",
	"real estate market forecast",
	"commercial real estate trends",
	"residential property market",
	"proptech innovations",
	"rental market trends",
	"real estate market indicators",
}

var refreshMarkets = []string{"NYC", "Miami", "Atlanta", "Chicago", "Los Angeles", "Seattle"}

// InsightArchiver persists learned insights to durable storage. Archive
// failures must never interrupt learning.
type InsightArchiver interface {
	ArchiveInsight(ctx context.Context, insight domain.LearnedInsight) error
}

// LearnStats reports progress of the background loops.
type LearnStats struct {
	Cycles        int       `json:"total_learning_cycles"`
	ItemsLearned  int       `json:"total_knowledge_learned"`
	LastCycle     time.Time `json:"last_learning_cycle"`
	TopicsLearned int       `json:"learned_topics_count"`
	IsLearning    bool      `json:"is_learning"`
	QueueSize     int       `json:"queue_size"`
}

// LearnEvent is one completed learning action, kept in a bounded history.
type LearnEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	Category  string    `json:"category"`
	Items     int       `json:"items_learned"`
}

// BackgroundLearner studies topics from the backlog, stores what it learns
// in the vector memory, and optionally archives insights to the database.
type BackgroundLearner struct {
	store     AnalyzerStore
	encoder   AnalyzerEncoder
	engine    *UnderstandingEngine
	collector ResearchCollector
	archiver  InsightArchiver
	stateDir  string

	rngMu sync.Mutex
	rng   *rand.Rand

	mu            sync.Mutex
	learnedTopics map[string]time.Time
	history       []LearnEvent
	recentQueries chan string
	cycles        int
	itemsLearned  int
	lastCycle     time.Time
	learning      bool
}

// NewBackgroundLearner wires the learner. archiver may be nil when no
// database is configured.
func NewBackgroundLearner(store AnalyzerStore, encoder AnalyzerEncoder, engine *UnderstandingEngine, collector ResearchCollector, archiver InsightArchiver, stateDir string) *BackgroundLearner {
	l := &BackgroundLearner{
		store:         store,
		encoder:       encoder,
		engine:        engine,
		collector:     collector,
		archiver:      archiver,
		stateDir:      filepath.Join(stateDir, learnerStateDir),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		learnedTopics: make(map[string]time.Time),
		recentQueries: make(chan string, recentQueryBacklog),
	}
	l.loadState()
	return l
}

// ContinuousJob returns the processor for the main backlog cycle.
func (l *BackgroundLearner) ContinuousJob() jobs.JobProcessor { return continuousJob{l} }

// ActiveJob returns the processor refreshing recently asked queries.
func (l *BackgroundLearner) ActiveJob() jobs.JobProcessor { return activeJob{l} }

// TrendingJob returns the processor studying a random trending query.
func (l *BackgroundLearner) TrendingJob() jobs.JobProcessor { return trendingJob{l} }

type continuousJob struct{ l *BackgroundLearner }
type activeJob struct{ l *BackgroundLearner }
type trendingJob struct{ l *BackgroundLearner }

func (j continuousJob) ProcessJobs(ctx context.Context) error { return j.l.runCycle(ctx) }
func (j activeJob) ProcessJobs(ctx context.Context) error     { return j.l.runActiveRefresh(ctx) }
func (j trendingJob) ProcessJobs(ctx context.Context) error {
	l := j.l
	query := trendingQueries[l.randIntn(len(trendingQueries))]
	_, err := l.LearnTopic(ctx, query, "trending_updates", true)
	return err
}

// runCycle works through the backlog, preferring unlearned topics, then
// topics whose relearn window has lapsed, then forcing the oldest few so a
// cycle always studies something.
func (l *BackgroundLearner) runCycle(ctx context.Context) error {
	l.mu.Lock()
	if l.learning {
		l.mu.Unlock()
		return nil
	}
	l.learning = true
	l.cycles++
	cycle := l.cycles
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.learning = false
		l.lastCycle = time.Now().UTC()
		l.mu.Unlock()
		l.saveState()
	}()

	log.Printf("learner: cycle %d started", cycle)

	now := time.Now().UTC()
	var due []learningTopic
	for _, topic := range learningBacklog {
		last, seen := l.lastLearned(topicKey(topic.category, topic.query))
		if !seen || now.Sub(last) >= relearnMainAfter {
			due = append(due, topic)
		}
	}
	if len(due) == 0 {
		due = l.oldestTopics(forcedRelearnCount)
		log.Printf("learner: backlog fresh, forcing re-learn of %d oldest topics", len(due))
	}

	l.randShuffle(len(due), func(i, j int) { due[i], due[j] = due[j], due[i] })
	if len(due) > topicsPerCycle {
		due = due[:topicsPerCycle]
	}

	learned := 0
	for _, topic := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		count, err := l.LearnTopic(ctx, topic.query, topic.category, false)
		if err != nil {
			log.Printf("learner: topic %q failed: %v", topic.query, err)
			continue
		}
		learned += count

		n := minVariationsPerTopic + l.randIntn(maxVariationsPerTopic-minVariationsPerTopic+1)
		if n > len(topic.variations) {
			n = len(topic.variations)
		}
		for _, variation := range l.pickRandom(topic.variations, n) {
			count, err := l.LearnTopic(ctx, variation, topic.category, true)
			if err != nil {
				continue
			}
			learned += count
		}
	}

	l.mu.Lock()
	l.itemsLearned += learned
	l.mu.Unlock()

	log.Printf("learner: cycle %d complete, %d items learned", cycle, learned)
	return nil
}

// runActiveRefresh drains queries recorded from live conversations, then
// refreshes a random market.
func (l *BackgroundLearner) runActiveRefresh(ctx context.Context) error {
	for {
		select {
		case query := <-l.recentQueries:
			if _, err := l.LearnTopic(ctx, query, "continuous_learning", true); err != nil {
				log.Printf("learner: active refresh %q failed: %v", query, err)
			}
			continue
		default:
		}
		break
	}

	market := refreshMarkets[l.randIntn(len(refreshMarkets))]
	_, err := l.LearnTopic(ctx, market+" real estate market update", "market_analysis", true)
	return err
}

// LearnTopic researches one query and stores the distilled knowledge.
// Returns the number of items added to the vector memory.
func (l *BackgroundLearner) LearnTopic(ctx context.Context, query, category string, variation bool) (int, error) {
	key := topicKey(category, query)
	window := relearnMainAfter
	if variation {
		window = relearnVariationAfter
	}
	if last, seen := l.lastLearned(key); seen && time.Since(last) < window {
		return 0, nil
	}

	report, err := l.collector.Collect(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("collect %q: %w", query, err)
	}
	if len(report.Content) == 0 && len(report.KeyFacts) == 0 {
		return 0, nil
	}

	und := l.engine.Understand(ctx, report, query, nil)

	count := l.storeUnderstanding(ctx, query, category, report, und)
	if count > 0 {
		l.mu.Lock()
		l.learnedTopics[key] = time.Now().UTC()
		l.history = append(l.history, LearnEvent{
			Timestamp: time.Now().UTC(),
			Query:     query,
			Category:  category,
			Items:     count,
		})
		if len(l.history) > learnHistoryCap {
			l.history = l.history[len(l.history)-learnHistoryCap:]
		}
		l.mu.Unlock()
	}
	return count, nil
}

func (l *BackgroundLearner) storeUnderstanding(ctx context.Context, query, category string, report domain.ResearchReport, und domain.Understanding) int {
	count := 0
	now := time.Now().UTC()

	synthesized := strings.TrimSpace(und.Synthesized)
	usable := synthesized != "" || len(und.Insights) > 0 || len(und.Takeaways) > 0
	if !usable {
		// Raw content keeps the topic from being a total loss.
		raw := strings.TrimSpace(strings.Join(report.Content, " "))
		if len(raw) >= storeSynthesizedMin {
			l.addItem(ctx, truncate(raw, rawFallbackCap), domain.ItemMeta{
				Type:       domain.ItemTypeWebKnowledge,
				Category:   category,
				Source:     "background_learner",
				Confidence: 0.3,
				LearnedAt:  now,
				Extra:      map[string]string{"query": query, "subtype": "raw_content_fallback"},
			}, &count)
		}
		return count
	}

	if len(synthesized) >= storeSynthesizedMin {
		l.addItem(ctx, synthesized, domain.ItemMeta{
			Type:       domain.ItemTypeSynthesized,
			Category:   category,
			Source:     "background_learner",
			Confidence: und.Confidence,
			LearnedAt:  now,
			Extra:      map[string]string{"query": query},
		}, &count)
	}

	for _, takeaway := range und.Takeaways {
		if len(strings.TrimSpace(takeaway)) < storeTakeawayMin {
			continue
		}
		l.addItem(ctx, takeaway, domain.ItemMeta{
			Type:      domain.ItemTypeKeyTakeaway,
			Category:  category,
			Source:    "background_learner",
			LearnedAt: now,
			Extra:     map[string]string{"query": query},
		}, &count)
	}

	for i, insight := range und.Insights {
		if i == maxStoredInsights {
			break
		}
		text := strings.TrimSpace(insight.Text)
		if len(text) < storeInsightMin {
			continue
		}
		l.addItem(ctx, text, domain.ItemMeta{
			Type:       domain.ItemTypeWebKnowledge,
			Category:   category,
			Source:     "background_learner",
			Confidence: insight.Relevance,
			LearnedAt:  now,
			Extra:      map[string]string{"query": query, "subtype": "insight"},
		}, &count)
		l.archive(ctx, query, category, text)
	}

	if count == 0 && len(synthesized) >= partialSynthesisMin {
		l.addItem(ctx, truncate(synthesized, partialSynthesisCap), domain.ItemMeta{
			Type:       domain.ItemTypeSynthesized,
			Category:   category,
			Source:     "background_learner",
			Confidence: 0.3,
			LearnedAt:  now,
			Extra:      map[string]string{"query": query, "subtype": "partial_synthesis"},
		}, &count)
	}
	return count
}

func (l *BackgroundLearner) addItem(ctx context.Context, text string, meta domain.ItemMeta, count *int) {
	if _, err := l.store.Add(ctx, text, meta); err != nil {
		log.Printf("learner: store add failed: %v", err)
		return
	}
	*count++
}

func (l *BackgroundLearner) archive(ctx context.Context, query, category, text string) {
	if l.archiver == nil {
		return
	}
	err := l.archiver.ArchiveInsight(ctx, domain.LearnedInsight{
		ID:        uuid.NewString(),
		Topic:     query,
		Category:  category,
		Content:   text,
		Source:    "background_learner",
		Embedding: l.encoder.Encode(ctx, text),
		LearnedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("learner: insight archive failed: %v", err)
	}
}

// NoteInteraction queues follow-up learning when a confident answer shows
// users care about a subject.
func (l *BackgroundLearner) NoteInteraction(analysis Analysis, confidence float32) {
	if confidence <= interactionThreshold {
		return
	}

	var query string
	switch {
	case analysis.Intent == domain.IntentMarketAnalysis && analysis.Entities.City != "":
		query = analysis.Entities.City + " real estate market"
	case analysis.Intent == domain.IntentExplanation && analysis.Entities.Topic != "":
		query = analysis.Entities.Topic + " explanation"
	case analysis.Intent == domain.IntentInvestmentAdvice:
		query = "real estate investment advice"
	default:
		return
	}

	select {
	case l.recentQueries <- query:
	default:
		// Backlog full, drop rather than block the chat path.
	}
}

// Stats snapshots learner progress.
func (l *BackgroundLearner) Stats() LearnStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LearnStats{
		Cycles:        l.cycles,
		ItemsLearned:  l.itemsLearned,
		LastCycle:     l.lastCycle,
		TopicsLearned: len(l.learnedTopics),
		IsLearning:    l.learning,
		QueueSize:     len(l.recentQueries),
	}
}

// History returns recent learn events, newest first, optionally filtered
// by category.
func (l *BackgroundLearner) History(limit int, category string) []LearnEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []LearnEvent
	for i := len(l.history) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if category != "" && l.history[i].Category != category {
			continue
		}
		out = append(out, l.history[i])
	}
	return out
}

// Topics lists backlog queries with their categories.
func (l *BackgroundLearner) Topics() map[string][]string {
	out := make(map[string][]string)
	for _, topic := range learningBacklog {
		out[topic.category] = append(out[topic.category], topic.query)
	}
	return out
}

func (l *BackgroundLearner) lastLearned(key string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.learnedTopics[key]
	return t, ok
}

func (l *BackgroundLearner) oldestTopics(n int) []learningTopic {
	l.mu.Lock()
	defer l.mu.Unlock()

	topics := make([]learningTopic, len(learningBacklog))
	copy(topics, learningBacklog)
	lastOf := func(t learningTopic) time.Time { return l.learnedTopics[topicKey(t.category, t.query)] }
	for i := 0; i < len(topics) && i < n; i++ {
		oldest := i
		for j := i + 1; j < len(topics); j++ {
			if lastOf(topics[j]).Before(lastOf(topics[oldest])) {
				oldest = j
			}
		}
		topics[i], topics[oldest] = topics[oldest], topics[i]
	}
	if n > len(topics) {
		n = len(topics)
	}
	return topics[:n]
}

type learnerState struct {
	LearnedTopics map[string]time.Time `json:"learned_topics"`
	Cycles        int                  `json:"total_learning_cycles"`
	ItemsLearned  int                  `json:"total_knowledge_learned"`
	LastCycle     time.Time            `json:"last_learning_cycle"`
}

func (l *BackgroundLearner) saveState() {
	l.mu.Lock()
	// Copy the map: marshaling iterates it after the unlock, while the
	// other worker loops keep writing it.
	topics := make(map[string]time.Time, len(l.learnedTopics))
	for k, v := range l.learnedTopics {
		topics[k] = v
	}
	state := learnerState{
		LearnedTopics: topics,
		Cycles:        l.cycles,
		ItemsLearned:  l.itemsLearned,
		LastCycle:     l.lastCycle,
	}
	l.mu.Unlock()

	if err := os.MkdirAll(l.stateDir, 0o755); err != nil {
		log.Printf("learner: state dir: %v", err)
		return
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Printf("learner: marshal state: %v", err)
		return
	}
	path := filepath.Join(l.stateDir, learnedTopicsFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("learner: write state: %v", err)
	}
}

func (l *BackgroundLearner) loadState() {
	data, err := os.ReadFile(filepath.Join(l.stateDir, learnedTopicsFile))
	if err != nil {
		return
	}
	var state learnerState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("learner: state corrupt, starting fresh: %v", err)
		return
	}
	if state.LearnedTopics != nil {
		l.learnedTopics = state.LearnedTopics
	}
	l.cycles = state.Cycles
	l.itemsLearned = state.ItemsLearned
	l.lastCycle = state.LastCycle
	log.Printf("learner: loaded %d learned topics", len(l.learnedTopics))
}

func topicKey(category, query string) string {
	return category + ":" + strings.ToLower(query)
}

// randIntn draws from the shared source; the three worker loops race on it
// otherwise.
func (l *BackgroundLearner) randIntn(n int) int {
	l.rngMu.Lock()
	defer l.rngMu.Unlock()
	return l.rng.Intn(n)
}

func (l *BackgroundLearner) randShuffle(n int, swap func(i, j int)) {
	l.rngMu.Lock()
	defer l.rngMu.Unlock()
	l.rng.Shuffle(n, swap)
}

func (l *BackgroundLearner) pickRandom(items []string, n int) []string {
	if n >= len(items) {
		return items
	}
	l.rngMu.Lock()
	idx := l.rng.Perm(len(items))[:n]
	l.rngMu.Unlock()
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, items[i])
	}
	return out
}
