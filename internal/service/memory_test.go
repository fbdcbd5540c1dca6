package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splashxmoon/domufi-app/internal/domain"
)

func TestMemory_ContextLimit(t *testing.T) {
	m := NewConversationMemory(t.TempDir())

	for i := 0; i < 15; i++ {
		role := string(domain.RoleUser)
		if i%2 == 1 {
			role = string(domain.RoleAssistant)
		}
		m.AddTurn("s1", role, "turn", nil)
	}

	turns := m.Context("s1")
	assert.Len(t, turns, ConversationContextLimit)
}

func TestMemory_UnknownSession(t *testing.T) {
	m := NewConversationMemory(t.TempDir())
	assert.Empty(t, m.Context("missing"))
	assert.Empty(t, m.History("missing"))
}

func TestMemory_HistoryConversion(t *testing.T) {
	m := NewConversationMemory(t.TempDir())

	m.AddTurn("s1", string(domain.RoleUser), "How is the NYC market?", nil)
	m.AddTurn("s1", string(domain.RoleAssistant), "Strong and stable.", nil)

	history := m.History("s1")
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "How is the NYC market?", history[0].Content)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
}

func TestMemory_LearnInteraction(t *testing.T) {
	m := NewConversationMemory(t.TempDir())

	m.LearnInteraction("u1", domain.IntentMarketAnalysis, domain.Entities{City: "NYC"})
	m.LearnInteraction("u1", domain.IntentMarketAnalysis, domain.Entities{City: "Miami, FL"})
	m.LearnInteraction("u1", domain.IntentExplanation, domain.Entities{Topic: "roi"})
	m.LearnInteraction("u2", domain.IntentGreeting, domain.Entities{})

	prefs := m.PreferredIntents("u1")
	require.NotNil(t, prefs)
	assert.Equal(t, 2, prefs[domain.IntentMarketAnalysis])
	assert.Equal(t, 1, prefs[domain.IntentExplanation])

	assert.Nil(t, m.PreferredIntents("unknown"))
}

func TestMemory_LearnInteractionIgnoresEmptyIntent(t *testing.T) {
	m := NewConversationMemory(t.TempDir())

	m.LearnInteraction("u1", "", domain.Entities{City: "NYC"})
	assert.Nil(t, m.PreferredIntents("u1"))
}

func TestMemory_FlushAndReload(t *testing.T) {
	stateDir := t.TempDir()

	m := NewConversationMemory(stateDir)
	m.AddTurn("s1", string(domain.RoleUser), "hello", nil)
	m.LearnInteraction("u1", domain.IntentGreeting, domain.Entities{})
	m.Flush()

	reloaded := NewConversationMemory(stateDir)
	turns := reloaded.Context("s1")
	require.Len(t, turns, 1)
	assert.Equal(t, "hello", turns[0].Content)
	assert.Equal(t, 1, reloaded.PreferredIntents("u1")[domain.IntentGreeting])
}

func TestMemory_TurnMetadata(t *testing.T) {
	m := NewConversationMemory(t.TempDir())

	m.AddTurn("s1", string(domain.RoleAssistant), "answer", map[string]string{"intent": "greeting"})

	turns := m.Context("s1")
	require.Len(t, turns, 1)
	assert.Equal(t, "greeting", turns[0].Metadata["intent"])
	assert.False(t, turns[0].Timestamp.IsZero())
}
