package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splashxmoon/domufi-app/internal/domain"
	"github.com/splashxmoon/domufi-app/internal/embedding"
	"github.com/splashxmoon/domufi-app/internal/vectorstore"
)

// scriptedAnswerer returns one fixed answer for every question.
type scriptedAnswerer struct {
	answer string
	err    error
}

func (s *scriptedAnswerer) Answer(context.Context, string) (string, error) {
	return s.answer, s.err
}

// nycPassingAnswer satisfies the first suite question: long enough, names
// the expected topics, carries numbers and a recent year.
const nycPassingAnswer = "NYC real estate market update for 2025:\n\n" +
	"Prices and trends remain firm across the NYC real estate market. Median prices hover near $780,000 " +
	"while inventory sits around five months of supply. Rental trends show yields of 4-6% with vacancy " +
	"near 2-3%, and current inventory stays tight as construction lags demand across the boroughs."

func newTestSelfTester(t *testing.T, answer string) (*SelfTester, vectorstore.Store) {
	t.Helper()
	provider := embedding.NewProvider(nil, 64)
	store := vectorstore.NewLinearStore(provider, "")
	tester := NewSelfTester(&scriptedAnswerer{answer: answer}, store, nil, t.TempDir())
	return tester, store
}

func TestValidateAnswer_Passing(t *testing.T) {
	issues := validateAnswer(nycPassingAnswer, selfTestSuite[0])
	assert.Empty(t, issues)
}

func TestValidateAnswer_TooShort(t *testing.T) {
	issues := validateAnswer("NYC is fine.", selfTestSuite[0])

	require.NotEmpty(t, issues)
	joined := strings.Join(issues, "; ")
	assert.Contains(t, joined, "response too short")
}

func TestValidateAnswer_MissingTopics(t *testing.T) {
	answer := strings.Repeat("Numbers like 2025 and $500 with\nparagraphs. ", 10)
	issues := validateAnswer(answer, selfTestSuite[0])

	joined := strings.Join(issues, "; ")
	assert.Contains(t, joined, "missing topics")
}

func TestValidateAnswer_GenericContent(t *testing.T) {
	answer := nycPassingAnswer + "\nI don't have specific information about that."
	issues := validateAnswer(answer, selfTestSuite[0])

	joined := strings.Join(issues, "; ")
	assert.Contains(t, joined, "generic/hardcoded")
}

func TestValidateAnswer_NoParagraphs(t *testing.T) {
	flat := strings.ReplaceAll(nycPassingAnswer, "\n", " ")
	issues := validateAnswer(flat, selfTestSuite[0])

	joined := strings.Join(issues, "; ")
	assert.Contains(t, joined, "poor structure")
}

func TestTopicPresent_Synonyms(t *testing.T) {
	assert.True(t, topicPresent("NYC", "the new york market is strong"))
	assert.True(t, topicPresent("ROI", "return on investment for this deal"))
	assert.True(t, topicPresent("real estate market", "the real estate market holds steady"))
	// Multi-word topics match when every token appears independently.
	assert.True(t, topicPresent("market conditions", "market data shows conditions improving"))
	assert.False(t, topicPresent("Miami", "the chicago market is flat"))
	assert.True(t, topicPresent("", "anything"))
}

func TestSelfTester_FocusedMastery(t *testing.T) {
	tester, _ := newTestSelfTester(t, nycPassingAnswer)
	ctx := context.Background()

	result, err := tester.RunCycle(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Zero(t, result.Mastered)

	// Mastery needs a second consecutive pass.
	result, err = tester.RunCycle(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Mastered)

	// The next cycle moves focus to the following unmastered question.
	_, err = tester.RunCycle(ctx, true)
	require.NoError(t, err)

	mastered, total, focus, perQuestion := tester.Progress()
	assert.Equal(t, 1, mastered)
	assert.Equal(t, len(selfTestSuite), total)
	assert.NotEqual(t, selfTestSuite[0].Question, focus)
	require.Len(t, perQuestion, len(selfTestSuite))
	assert.True(t, perQuestion[0].Passed)
}

func TestSelfTester_ConcurrentCycleAndStatusReads(t *testing.T) {
	tester, _ := newTestSelfTester(t, nycPassingAnswer)
	ctx := context.Background()

	// The worker runs cycles while the status handlers poll; run with -race.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_, err := tester.RunCycle(ctx, true)
			assert.NoError(t, err)
		}
	}()

	for i := 0; i < 200; i++ {
		_ = tester.Stats()
		mastered, total, _, perQuestion := tester.Progress()
		assert.LessOrEqual(t, mastered, total)
		assert.Len(t, perQuestion, total)
	}
	wg.Wait()

	// The answer only satisfies the first question; focus then sticks on
	// the second, so every cycle still runs exactly one test.
	stats := tester.Stats()
	assert.Equal(t, 20, stats.TotalTests)
	mastered, _, focus, _ := tester.Progress()
	assert.Equal(t, 1, mastered)
	assert.Equal(t, selfTestSuite[1].Question, focus)
}

func TestSelfTester_FailureResetsPassCount(t *testing.T) {
	tester, _ := newTestSelfTester(t, nycPassingAnswer)
	ctx := context.Background()

	_, err := tester.RunCycle(ctx, true)
	require.NoError(t, err)

	// A failure between passes restarts the streak.
	tester.answerer = &scriptedAnswerer{answer: "too short"}
	result, err := tester.RunCycle(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, result.Mastered)

	tester.answerer = &scriptedAnswerer{answer: nycPassingAnswer}
	result, err = tester.RunCycle(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
	assert.Zero(t, result.Mastered)
}

func TestSelfTester_FailureStoresCorrection(t *testing.T) {
	tester, store := newTestSelfTester(t, "way too short")

	_, err := tester.RunCycle(context.Background(), true)
	require.NoError(t, err)

	require.Positive(t, store.Len())
	stats := tester.Stats()
	assert.Equal(t, 1, stats.TotalTests)
	assert.Equal(t, 1, stats.FailedTests)
	require.Len(t, stats.AccuracyTrend, 1)
	assert.Zero(t, stats.AccuracyTrend[0])
}

func TestSelfTester_FullSuite(t *testing.T) {
	tester, _ := newTestSelfTester(t, "nowhere near a passing answer")

	result, err := tester.RunCycle(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, len(selfTestSuite), result.Total)
	assert.Equal(t, len(selfTestSuite), result.Failed)
	assert.Len(t, result.Details, len(selfTestSuite))
	for _, d := range result.Details {
		assert.False(t, d.Passed)
		assert.NotEmpty(t, d.Issues)
	}
}

func TestSelfTester_AnswererError(t *testing.T) {
	provider := embedding.NewProvider(nil, 64)
	store := vectorstore.NewLinearStore(provider, "")
	tester := NewSelfTester(&scriptedAnswerer{err: errors.New("engine offline")}, store, nil, t.TempDir())

	result, err := tester.RunCycle(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	require.NotEmpty(t, result.Details)
	assert.Contains(t, result.Details[0].Issues[0], "engine offline")
}

func TestSelfTester_StatePersists(t *testing.T) {
	stateDir := t.TempDir()
	provider := embedding.NewProvider(nil, 64)
	store := vectorstore.NewLinearStore(provider, "")

	tester := NewSelfTester(&scriptedAnswerer{answer: nycPassingAnswer}, store, nil, stateDir)
	ctx := context.Background()
	_, err := tester.RunCycle(ctx, true)
	require.NoError(t, err)
	_, err = tester.RunCycle(ctx, true)
	require.NoError(t, err)

	reloaded := NewSelfTester(&scriptedAnswerer{answer: nycPassingAnswer}, store, nil, stateDir)
	mastered, _, _, _ := reloaded.Progress()
	assert.Equal(t, 1, mastered)
}

func TestSelfTester_GapLearning(t *testing.T) {
	provider := embedding.NewProvider(nil, 64)
	store := vectorstore.NewLinearStore(provider, "")
	learner := NewBackgroundLearner(store, provider, NewUnderstandingEngine(provider), NewCuratedCollector(), nil, t.TempDir())
	tester := NewSelfTester(&scriptedAnswerer{answer: "far too short"}, store, learner, t.TempDir())

	_, err := tester.RunCycle(context.Background(), true)
	require.NoError(t, err)

	// Missing topics become gap-learning queries routed through the learner.
	assert.Positive(t, tester.Stats().GapsFound)
	assert.Positive(t, learner.Stats().TopicsLearned)
}

func TestEngineAnswererNotReady(t *testing.T) {
	provider := embedding.NewProvider(nil, 64)
	store := vectorstore.NewLinearStore(provider, "")
	analyzer := NewSemanticAnalyzer(provider, store)
	responder := NewResponder(nil)
	understanding := NewUnderstandingEngine(provider)
	engine := NewEngine(analyzer, responder, understanding, nil, nil, nil, store)

	answerer := NewEngineAnswerer(engine)
	_, err := answerer.Answer(context.Background(), "How is the NYC market?")
	assert.ErrorIs(t, err, domain.ErrEngineNotReady)
}
