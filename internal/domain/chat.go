package domain

import "time"

// ConversationRole identifies who produced a conversation turn.
type ConversationRole string

const (
	RoleUser      ConversationRole = "user"
	RoleAssistant ConversationRole = "assistant"
)

// ConversationTurn is a single prior message in a chat session.
type ConversationTurn struct {
	Role    ConversationRole `json:"role"`
	Content string           `json:"content"`
}

// ChatQuery is an incoming conversational request.
type ChatQuery struct {
	Message   string             `json:"message"`
	UserID    string             `json:"user_id,omitempty"`
	SessionID string             `json:"session_id,omitempty"`
	Context   map[string]string  `json:"context,omitempty"`
	History   []ConversationTurn `json:"conversation_history,omitempty"`
}

// Action is a client-side shortcut attached to a reply, such as a
// navigation link into the app.
type Action struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ModelInfo describes which components produced a reply.
type ModelInfo struct {
	Analyzer  string `json:"analyzer"`
	Generator string `json:"generator"`
	Version   string `json:"version"`
}

// ChatReply is the assembled answer to a ChatQuery.
type ChatReply struct {
	Answer         string    `json:"answer"`
	Confidence     float32   `json:"confidence"`
	Intent         Intent    `json:"intent"`
	Entities       Entities  `json:"entities"`
	Suggestions    []string  `json:"suggestions"`
	Actions        []Action  `json:"actions"`
	DataSources    []string  `json:"data_sources"`
	ReasoningSteps []string  `json:"reasoning_steps"`
	Timestamp      time.Time `json:"timestamp"`
	ModelInfo      ModelInfo `json:"model_info"`
}
