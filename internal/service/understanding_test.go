package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splashxmoon/domufi-app/internal/domain"
	"github.com/splashxmoon/domufi-app/internal/embedding"
)

func newTestUnderstanding() *UnderstandingEngine {
	return NewUnderstandingEngine(embedding.NewProvider(nil, 64))
}

func marketReport() domain.ResearchReport {
	return domain.ResearchReport{
		Topic:   "Miami real estate market",
		Sources: []string{"curated:miami-market"},
		Content: []string{
			"The Miami market combines a median home price near $450,000 with rental yields of 5 to 7 percent annually. " +
				"Miami property appreciation has averaged 4 to 6 percent per year as employers expand in the region. " +
				"Population growth and international migration keep rental demand in the market strong.",
		},
		KeyFacts: []string{
			"Miami rental yields run 5-7% annually, higher than most mature markets.",
		},
		CollectedAt: time.Now().UTC(),
	}
}

func TestUnderstanding_EmptyReport(t *testing.T) {
	e := newTestUnderstanding()

	und := e.Understand(context.Background(), domain.ResearchReport{}, "miami market", nil)

	assert.Empty(t, und.Insights)
	assert.Empty(t, und.Synthesized)
	assert.InDelta(t, 0.3, und.Confidence, 1e-6)
}

func TestUnderstanding_ExtractsInsights(t *testing.T) {
	e := newTestUnderstanding()

	und := e.Understand(context.Background(), marketReport(), "how is the miami market", nil)

	require.NotEmpty(t, und.Insights)
	for _, ins := range und.Insights {
		assert.GreaterOrEqual(t, len(ins.Text), insightMinChars)
		assert.Positive(t, ins.Relevance)
	}
	assert.NotEmpty(t, und.Synthesized)
	assert.Equal(t, "how is the miami market", und.Query)
}

func TestUnderstanding_JunkSentencesDropped(t *testing.T) {
	e := newTestUnderstanding()

	report := domain.ResearchReport{
		Content: []string{
			"Sign up Subscribe Newsletter Click here to join our mailing list today friends. " +
				"The Miami market shows rental yields of 5 to 7 percent annually for investors buying now.",
		},
	}
	und := e.Understand(context.Background(), report, "miami market yields", nil)

	for _, ins := range und.Insights {
		assert.NotContains(t, ins.Text, "Newsletter")
	}
}

func TestUnderstanding_PriorKnowledgeChangesFraming(t *testing.T) {
	e := newTestUnderstanding()

	prior := []domain.SearchResult{
		{Item: domain.StoredItem{Text: "Miami rental yields historically run above the national average."}, Score: 0.8},
	}
	und := e.Understand(context.Background(), marketReport(), "how is the miami market", prior)

	assert.NotEmpty(t, und.Synthesized)
}

func TestUnderstanding_TakeawaysCarryNumbers(t *testing.T) {
	e := newTestUnderstanding()

	und := e.Understand(context.Background(), marketReport(), "how is the miami market", nil)

	for _, takeaway := range und.Takeaways {
		assert.GreaterOrEqual(t, len(takeaway), takeawayMinChars)
	}
}

func TestExtractTakeaways(t *testing.T) {
	synthesized := "Miami rental yields run 5 to 7 percent annually for most investors. " +
		"Nothing here. The median home price in the market is approximately $450,000 right now."

	takeaways := extractTakeaways(synthesized)

	require.NotEmpty(t, takeaways)
	for _, tw := range takeaways {
		assert.LessOrEqual(t, len(tw), takeawayMaxChars+3)
	}

	assert.Nil(t, extractTakeaways(""))
}

func TestIsJunkSentence(t *testing.T) {
	assert.True(t, isJunkSentence(""))
	assert.True(t, isJunkSentence("• a • b • c • d • e"))
	assert.True(t, isJunkSentence("SIGN UP NOW FOR UPDATES TODAY"))
	assert.False(t, isJunkSentence("The Miami market shows rental yields of five to seven percent annually."))
}

func TestIsWellFormedSentence(t *testing.T) {
	assert.True(t, isWellFormedSentence("The Miami market shows strong rental yields for patient long-term investors."))
	assert.False(t, isWellFormedSentence("too short"))
	assert.False(t, isWellFormedSentence("$$$ 123 456 789 !!! ### 000 111 222 333 444"))
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First sentence. Second one! Third? ")
	assert.Equal(t, []string{"First sentence", "Second one", "Third"}, got)
	assert.Empty(t, splitSentences(""))
}

func TestCoherentSynthesis_Dedup(t *testing.T) {
	sentence := "Miami rental yields run five to seven percent annually for investors"
	out := coherentSynthesis([]string{sentence, sentence, sentence})

	assert.Equal(t, sentence+".", out)
}

func TestUnderstandingConfidence(t *testing.T) {
	assert.InDelta(t, 0.3, understandingConfidence(nil, ""), 1e-6)

	insights := []domain.Insight{{Text: "x", Relevance: 0.9}, {Text: "y", Relevance: 0.9}}
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'a'
	}
	// Both components saturate, so the cap applies.
	conf := understandingConfidence(insights, string(long))
	assert.InDelta(t, maxUnderstandingConfidence, conf, 1e-6)
}
