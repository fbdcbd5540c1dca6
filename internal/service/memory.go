package service

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/splashxmoon/domufi-app/internal/domain"
)

const (
	// ConversationContextLimit bounds the turns returned as context.
	ConversationContextLimit = 10

	maxSessionTurns   = 50
	memoryPersistMod  = 10
	conversationsFile = "knowledge.json"
)

// SessionTurn is one message in a session transcript.
type SessionTurn struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// intentPattern counts observed entity values per intent.
type intentPattern struct {
	Count    int                       `json:"count"`
	Entities map[string]map[string]int `json:"entities"`
}

// userPreferences tracks per-user intent frequency.
type userPreferences struct {
	PreferredIntents map[domain.Intent]int `json:"preferred_intents"`
}

type memoryState struct {
	Conversations map[string][]SessionTurn         `json:"conversations"`
	Patterns      map[domain.Intent]*intentPattern `json:"patterns"`
	Preferences   map[string]*userPreferences      `json:"preferences"`
	LastUpdated   time.Time                        `json:"last_updated"`
}

// ConversationMemory keeps session transcripts and lightweight usage
// patterns, persisted as JSON under the state directory.
type ConversationMemory struct {
	stateDir string

	mu    sync.Mutex
	state memoryState
}

func NewConversationMemory(stateDir string) *ConversationMemory {
	m := &ConversationMemory{
		stateDir: stateDir,
		state: memoryState{
			Conversations: make(map[string][]SessionTurn),
			Patterns:      make(map[domain.Intent]*intentPattern),
			Preferences:   make(map[string]*userPreferences),
		},
	}
	m.load()
	return m
}

// Context returns the most recent turns for a session, newest last.
func (m *ConversationMemory) Context(sessionID string) []SessionTurn {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := m.state.Conversations[sessionID]
	if len(turns) > ConversationContextLimit {
		turns = turns[len(turns)-ConversationContextLimit:]
	}
	out := make([]SessionTurn, len(turns))
	copy(out, turns)
	return out
}

// History returns the recent context in the analyzer's turn shape.
func (m *ConversationMemory) History(sessionID string) []domain.ConversationTurn {
	turns := m.Context(sessionID)
	out := make([]domain.ConversationTurn, 0, len(turns))
	for _, t := range turns {
		out = append(out, domain.ConversationTurn{
			Role:    domain.ConversationRole(t.Role),
			Content: t.Content,
		})
	}
	return out
}

// AddTurn appends one message to a session transcript.
func (m *ConversationMemory) AddTurn(sessionID, role, content string, metadata map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := append(m.state.Conversations[sessionID], SessionTurn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	})
	if len(turns) > maxSessionTurns {
		turns = turns[len(turns)-maxSessionTurns:]
	}
	m.state.Conversations[sessionID] = turns
}

// LearnInteraction folds one analyzed message into the intent and user
// preference counters. Persists every tenth distinct pattern.
func (m *ConversationMemory) LearnInteraction(userID string, intent domain.Intent, entities domain.Entities) {
	if intent == "" {
		return
	}

	m.mu.Lock()
	pat := m.state.Patterns[intent]
	if pat == nil {
		pat = &intentPattern{Entities: make(map[string]map[string]int)}
		m.state.Patterns[intent] = pat
	}
	pat.Count++
	for entityType, value := range entities.Flatten() {
		if pat.Entities[entityType] == nil {
			pat.Entities[entityType] = make(map[string]int)
		}
		pat.Entities[entityType][value]++
	}

	if userID != "" {
		prefs := m.state.Preferences[userID]
		if prefs == nil {
			prefs = &userPreferences{PreferredIntents: make(map[domain.Intent]int)}
			m.state.Preferences[userID] = prefs
		}
		prefs.PreferredIntents[intent]++
	}

	persist := len(m.state.Patterns)%memoryPersistMod == 0
	m.mu.Unlock()

	if persist {
		m.Flush()
	}
}

// PreferredIntents returns the intent counts observed for a user.
func (m *ConversationMemory) PreferredIntents(userID string) map[domain.Intent]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefs := m.state.Preferences[userID]
	if prefs == nil {
		return nil
	}
	out := make(map[domain.Intent]int, len(prefs.PreferredIntents))
	for k, v := range prefs.PreferredIntents {
		out[k] = v
	}
	return out
}

// Flush writes the memory state to disk.
func (m *ConversationMemory) Flush() {
	m.mu.Lock()
	m.state.LastUpdated = time.Now().UTC()
	data, err := json.MarshalIndent(m.state, "", "  ")
	m.mu.Unlock()
	if err != nil {
		log.Printf("memory: marshal state: %v", err)
		return
	}
	if err := os.MkdirAll(m.stateDir, 0o755); err != nil {
		log.Printf("memory: state dir: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(m.stateDir, conversationsFile), data, 0o644); err != nil {
		log.Printf("memory: write state: %v", err)
	}
}

func (m *ConversationMemory) load() {
	data, err := os.ReadFile(filepath.Join(m.stateDir, conversationsFile))
	if err != nil {
		return
	}
	var state memoryState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("memory: state corrupt, starting fresh: %v", err)
		return
	}
	if state.Conversations == nil {
		state.Conversations = make(map[string][]SessionTurn)
	}
	if state.Patterns == nil {
		state.Patterns = make(map[domain.Intent]*intentPattern)
	}
	if state.Preferences == nil {
		state.Preferences = make(map[string]*userPreferences)
	}
	m.state = state
	log.Printf("memory: loaded %d sessions, %d intent patterns", len(state.Conversations), len(state.Patterns))
}
