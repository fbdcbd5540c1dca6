package service

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/splashxmoon/domufi-app/internal/domain"
	"github.com/splashxmoon/domufi-app/internal/jobs"
)

const (
	// FeedbackDrainInterval paces the queue drain loop.
	FeedbackDrainInterval = 5 * time.Second

	feedbackPatternCap  = 5000
	feedbackQueueCap    = 256
	feedbackPersistMod  = 10
	feedbackStateDir    = "feedback_finetuner"
	feedbackStateFile   = "feedback_patterns.json"
	positiveConfidence  = 0.9
	correctedConfidence = 0.95
)

// FeedbackType labels user reactions to a reply.
type FeedbackType string

const (
	FeedbackPositive   FeedbackType = "positive"
	FeedbackNegative   FeedbackType = "negative"
	FeedbackCorrection FeedbackType = "correction"
)

// ValidFeedbackType reports whether t is one of the accepted types.
func ValidFeedbackType(t FeedbackType) bool {
	switch t {
	case FeedbackPositive, FeedbackNegative, FeedbackCorrection:
		return true
	}
	return false
}

// Feedback is one user reaction, queued for asynchronous processing.
type Feedback struct {
	UserID    string          `json:"user_id"`
	Query     string          `json:"query"`
	Response  string          `json:"response"`
	Intent    domain.Intent   `json:"intent"`
	Entities  domain.Entities `json:"entities"`
	Type      FeedbackType    `json:"feedback_type"`
	Corrected string          `json:"corrected_response,omitempty"`
	Rating    float32         `json:"rating,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// FeedbackStats aggregates fine-tuner activity.
type FeedbackStats struct {
	TotalReceived   int       `json:"total_feedback_received"`
	Positive        int       `json:"positive_feedback"`
	Negative        int       `json:"negative_feedback"`
	PatternsLearned int       `json:"patterns_learned"`
	Improved        int       `json:"responses_improved"`
	PatternsStored  int       `json:"feedback_patterns_stored"`
	LastProcessed   time.Time `json:"last_finetune"`
}

// FeedbackInsights summarizes feedback, optionally for one intent.
type FeedbackInsights struct {
	TotalPatterns   int     `json:"total_patterns"`
	Positive        int     `json:"positive_feedback"`
	Negative        int     `json:"negative_feedback"`
	AverageRating   float32 `json:"average_rating,omitempty"`
	ImprovementRate float32 `json:"improvement_rate"`
}

// FeedbackTuner turns user reactions into retrievable response patterns
// in the vector memory.
type FeedbackTuner struct {
	store    AnalyzerStore
	stateDir string

	mu       sync.Mutex
	queue    chan Feedback
	patterns []Feedback
	stats    FeedbackStats
}

func NewFeedbackTuner(store AnalyzerStore, stateDir string) *FeedbackTuner {
	t := &FeedbackTuner{
		store:    store,
		stateDir: filepath.Join(stateDir, feedbackStateDir),
		queue:    make(chan Feedback, feedbackQueueCap),
	}
	t.loadState()
	return t
}

// Job returns the processor draining the feedback queue.
func (t *FeedbackTuner) Job() jobs.JobProcessor { return feedbackJob{t} }

type feedbackJob struct{ t *FeedbackTuner }

func (j feedbackJob) ProcessJobs(ctx context.Context) error {
	for {
		select {
		case fb := <-j.t.queue:
			j.t.process(ctx, fb)
		default:
			return nil
		}
	}
}

// RecordFeedback validates and queues one reaction. Returns
// domain.ErrInvalidFeedbackType for unknown types.
func (t *FeedbackTuner) RecordFeedback(fb Feedback) error {
	if !ValidFeedbackType(fb.Type) {
		return domain.ErrInvalidFeedbackType
	}
	if fb.Timestamp.IsZero() {
		fb.Timestamp = time.Now().UTC()
	}

	t.mu.Lock()
	t.stats.TotalReceived++
	switch fb.Type {
	case FeedbackPositive:
		t.stats.Positive++
	case FeedbackNegative:
		t.stats.Negative++
	}
	t.mu.Unlock()

	select {
	case t.queue <- fb:
	default:
		log.Printf("feedback: queue full, dropping %s feedback", fb.Type)
	}
	log.Printf("feedback: recorded %s for intent %q", fb.Type, fb.Intent)
	return nil
}

func (t *FeedbackTuner) process(ctx context.Context, fb Feedback) {
	switch fb.Type {
	case FeedbackPositive:
		t.learnPositive(ctx, fb)
	case FeedbackNegative:
		t.learnNegative(ctx, fb)
	case FeedbackCorrection:
		if fb.Corrected != "" {
			t.learnCorrection(ctx, fb)
		}
	}

	t.mu.Lock()
	t.patterns = append(t.patterns, fb)
	if len(t.patterns) > feedbackPatternCap {
		t.patterns = t.patterns[len(t.patterns)-feedbackPatternCap:]
	}
	t.stats.LastProcessed = time.Now().UTC()
	persist := len(t.patterns)%feedbackPersistMod == 0
	t.mu.Unlock()

	if persist {
		t.saveState()
	}
}

func (t *FeedbackTuner) learnPositive(ctx context.Context, fb Feedback) {
	now := time.Now().UTC()
	t.add(ctx, "Query: "+fb.Query+"\nResponse: "+fb.Response, domain.ItemMeta{
		Type:       domain.ItemTypePositiveFeedback,
		Intent:     fb.Intent,
		Source:     "user_feedback",
		Confidence: positiveConfidence,
		LearnedAt:  now,
	})
	t.add(ctx, fb.Response, domain.ItemMeta{
		Type:      domain.ItemTypeSuccessfulReply,
		Intent:    fb.Intent,
		Source:    "user_feedback",
		LearnedAt: now,
	})
}

func (t *FeedbackTuner) learnNegative(ctx context.Context, fb Feedback) {
	now := time.Now().UTC()
	t.add(ctx, "Query: "+fb.Query+"\nAvoid Response: "+fb.Response, domain.ItemMeta{
		Type:      domain.ItemTypeNegativeFeedback,
		Intent:    fb.Intent,
		Source:    "user_feedback",
		LearnedAt: now,
		Extra:     map[string]string{"avoid": "true"},
	})
	t.add(ctx, fb.Query, domain.ItemMeta{
		Type:      domain.ItemTypeUserPattern,
		Intent:    fb.Intent,
		Source:    "user_feedback",
		LearnedAt: now,
		Extra:     map[string]string{"needs_improvement": "true"},
	})
}

func (t *FeedbackTuner) learnCorrection(ctx context.Context, fb Feedback) {
	now := time.Now().UTC()
	t.add(ctx, "Query: "+fb.Query+"\nCorrect Response: "+fb.Corrected, domain.ItemMeta{
		Type:       domain.ItemTypeCorrectedResponse,
		Intent:     fb.Intent,
		Source:     "user_feedback",
		Confidence: correctedConfidence,
		LearnedAt:  now,
	})
	t.add(ctx, fb.Corrected, domain.ItemMeta{
		Type:      domain.ItemTypePreferredResponse,
		Intent:    fb.Intent,
		Source:    "user_correction",
		LearnedAt: now,
	})

	t.mu.Lock()
	t.stats.Improved++
	t.mu.Unlock()
}

func (t *FeedbackTuner) add(ctx context.Context, text string, meta domain.ItemMeta) {
	if _, err := t.store.Add(ctx, text, meta); err != nil {
		log.Printf("feedback: pattern store failed: %v", err)
		return
	}
	t.mu.Lock()
	t.stats.PatternsLearned++
	t.mu.Unlock()
}

// Insights summarizes recorded feedback, optionally for one intent.
func (t *FeedbackTuner) Insights(intent domain.Intent) FeedbackInsights {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out FeedbackInsights
	var ratingSum float32
	var rated int
	for _, p := range t.patterns {
		if intent != "" && p.Intent != intent {
			continue
		}
		out.TotalPatterns++
		switch p.Type {
		case FeedbackPositive:
			out.Positive++
		case FeedbackNegative:
			out.Negative++
		}
		if p.Rating > 0 {
			ratingSum += p.Rating
			rated++
		}
	}
	if rated > 0 {
		out.AverageRating = ratingSum / float32(rated)
	}
	if t.stats.TotalReceived > 0 {
		out.ImprovementRate = float32(t.stats.Improved) / float32(t.stats.TotalReceived)
	}
	return out
}

// Stats snapshots fine-tuner counters.
func (t *FeedbackTuner) Stats() FeedbackStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.stats
	stats.PatternsStored = len(t.patterns)
	return stats
}

func (t *FeedbackTuner) saveState() {
	t.mu.Lock()
	data, err := json.MarshalIndent(t.patterns, "", "  ")
	t.mu.Unlock()
	if err != nil {
		log.Printf("feedback: marshal state: %v", err)
		return
	}
	if err := os.MkdirAll(t.stateDir, 0o755); err != nil {
		log.Printf("feedback: state dir: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(t.stateDir, feedbackStateFile), data, 0o644); err != nil {
		log.Printf("feedback: write state: %v", err)
	}
}

func (t *FeedbackTuner) loadState() {
	data, err := os.ReadFile(filepath.Join(t.stateDir, feedbackStateFile))
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, &t.patterns); err != nil {
		log.Printf("feedback: state corrupt, starting fresh: %v", err)
		t.patterns = nil
		return
	}
	log.Printf("feedback: loaded %d feedback patterns", len(t.patterns))
}
