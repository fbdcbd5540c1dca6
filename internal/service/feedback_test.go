package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splashxmoon/domufi-app/internal/domain"
	"github.com/splashxmoon/domufi-app/internal/embedding"
	"github.com/splashxmoon/domufi-app/internal/vectorstore"
)

func newTestTuner(t *testing.T) (*FeedbackTuner, vectorstore.Store) {
	t.Helper()
	provider := embedding.NewProvider(nil, 64)
	store := vectorstore.NewLinearStore(provider, "")
	return NewFeedbackTuner(store, t.TempDir()), store
}

func drain(t *testing.T, tuner *FeedbackTuner) {
	t.Helper()
	require.NoError(t, tuner.Job().ProcessJobs(context.Background()))
}

func TestFeedbackTuner_InvalidType(t *testing.T) {
	tuner, _ := newTestTuner(t)

	err := tuner.RecordFeedback(Feedback{Type: "enthusiastic"})
	assert.ErrorIs(t, err, domain.ErrInvalidFeedbackType)
	assert.Zero(t, tuner.Stats().TotalReceived)
}

func TestFeedbackTuner_PositiveFeedback(t *testing.T) {
	tuner, store := newTestTuner(t)

	err := tuner.RecordFeedback(Feedback{
		UserID:   "u1",
		Query:    "How is the NYC market?",
		Response: "The NYC market is strong.",
		Intent:   domain.IntentMarketAnalysis,
		Type:     FeedbackPositive,
	})
	require.NoError(t, err)

	stats := tuner.Stats()
	assert.Equal(t, 1, stats.TotalReceived)
	assert.Equal(t, 1, stats.Positive)
	assert.Zero(t, stats.PatternsLearned)

	drain(t, tuner)

	// The pair pattern and the raw successful reply are both stored.
	assert.Equal(t, 2, store.Len())
	items := store.GetByIntent(domain.IntentMarketAnalysis, 0)
	require.Len(t, items, 2)
	assert.Equal(t, domain.ItemTypePositiveFeedback, items[0].Meta.Type)
	assert.Contains(t, items[0].Text, "Query: How is the NYC market?")
	assert.Equal(t, domain.ItemTypeSuccessfulReply, items[1].Meta.Type)
	assert.Equal(t, "The NYC market is strong.", items[1].Text)

	stats = tuner.Stats()
	assert.Equal(t, 2, stats.PatternsLearned)
	assert.Equal(t, 1, stats.PatternsStored)
	assert.False(t, stats.LastProcessed.IsZero())
}

func TestFeedbackTuner_NegativeFeedback(t *testing.T) {
	tuner, store := newTestTuner(t)

	err := tuner.RecordFeedback(Feedback{
		Query:    "What should I invest in?",
		Response: "Buy everything.",
		Intent:   domain.IntentInvestmentAdvice,
		Type:     FeedbackNegative,
	})
	require.NoError(t, err)
	drain(t, tuner)

	items := store.GetByIntent(domain.IntentInvestmentAdvice, 0)
	require.Len(t, items, 2)
	assert.Equal(t, domain.ItemTypeNegativeFeedback, items[0].Meta.Type)
	assert.Contains(t, items[0].Text, "Avoid Response:")
	assert.Equal(t, "true", items[0].Meta.Extra["avoid"])
	assert.Equal(t, domain.ItemTypeUserPattern, items[1].Meta.Type)
	assert.Equal(t, "true", items[1].Meta.Extra["needs_improvement"])
	assert.Equal(t, 1, tuner.Stats().Negative)
}

func TestFeedbackTuner_Correction(t *testing.T) {
	tuner, store := newTestTuner(t)

	err := tuner.RecordFeedback(Feedback{
		Query:     "What is a cap rate?",
		Response:  "It's a hat measurement.",
		Corrected: "Cap rate is net operating income divided by property value.",
		Intent:    domain.IntentExplanation,
		Type:      FeedbackCorrection,
	})
	require.NoError(t, err)
	drain(t, tuner)

	items := store.GetByIntent(domain.IntentExplanation, 0)
	require.Len(t, items, 2)
	assert.Equal(t, domain.ItemTypeCorrectedResponse, items[0].Meta.Type)
	assert.Contains(t, items[0].Text, "Correct Response:")
	assert.Equal(t, domain.ItemTypePreferredResponse, items[1].Meta.Type)
	assert.Equal(t, "user_correction", items[1].Meta.Source)

	assert.Equal(t, 1, tuner.Stats().Improved)
}

func TestFeedbackTuner_CorrectionWithoutText(t *testing.T) {
	tuner, store := newTestTuner(t)

	err := tuner.RecordFeedback(Feedback{
		Query:  "What is a cap rate?",
		Intent: domain.IntentExplanation,
		Type:   FeedbackCorrection,
	})
	require.NoError(t, err)
	drain(t, tuner)

	// Nothing to learn from, but the pattern is still kept for insights.
	assert.Zero(t, store.Len())
	assert.Equal(t, 1, tuner.Stats().PatternsStored)
	assert.Zero(t, tuner.Stats().Improved)
}

func TestFeedbackTuner_InsightsByIntent(t *testing.T) {
	tuner, _ := newTestTuner(t)

	feedbacks := []Feedback{
		{Query: "q1", Intent: domain.IntentMarketAnalysis, Type: FeedbackPositive, Rating: 5},
		{Query: "q2", Intent: domain.IntentMarketAnalysis, Type: FeedbackNegative, Rating: 1},
		{Query: "q3", Intent: domain.IntentExplanation, Type: FeedbackPositive, Rating: 3},
	}
	for _, fb := range feedbacks {
		require.NoError(t, tuner.RecordFeedback(fb))
	}
	drain(t, tuner)

	market := tuner.Insights(domain.IntentMarketAnalysis)
	assert.Equal(t, 2, market.TotalPatterns)
	assert.Equal(t, 1, market.Positive)
	assert.Equal(t, 1, market.Negative)
	assert.InDelta(t, 3.0, market.AverageRating, 1e-6)

	all := tuner.Insights("")
	assert.Equal(t, 3, all.TotalPatterns)
	assert.InDelta(t, 3.0, all.AverageRating, 1e-6)
}

func TestFeedbackTuner_StatePersists(t *testing.T) {
	stateDir := t.TempDir()
	provider := embedding.NewProvider(nil, 64)
	store := vectorstore.NewLinearStore(provider, "")
	tuner := NewFeedbackTuner(store, stateDir)

	// The tenth processed pattern triggers a state write.
	for i := 0; i < feedbackPersistMod; i++ {
		require.NoError(t, tuner.RecordFeedback(Feedback{
			Query:  "q",
			Intent: domain.IntentGeneralInquiry,
			Type:   FeedbackPositive,
		}))
	}
	drain(t, tuner)

	reloaded := NewFeedbackTuner(store, stateDir)
	assert.Equal(t, feedbackPersistMod, reloaded.Stats().PatternsStored)
}
