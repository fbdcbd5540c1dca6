package domain

import "time"

// ItemType categorizes entries held in the vector memory.
type ItemType string

const (
	ItemTypeWebKnowledge      ItemType = "web_knowledge"
	ItemTypeSynthesized       ItemType = "synthesized_knowledge"
	ItemTypeKeyTakeaway       ItemType = "key_takeaway"
	ItemTypeIntentExample     ItemType = "intent_example"
	ItemTypeUserPattern       ItemType = "user_pattern"
	ItemTypePositiveFeedback  ItemType = "positive_feedback_pattern"
	ItemTypeNegativeFeedback  ItemType = "negative_feedback_pattern"
	ItemTypeCorrectedResponse ItemType = "corrected_response_pattern"
	ItemTypePreferredResponse ItemType = "preferred_response_pattern"
	ItemTypeSuccessfulReply   ItemType = "successful_response_pattern"
)

// ItemMeta is the typed metadata attached to every stored vector item.
type ItemMeta struct {
	Type       ItemType          `json:"type"`
	Intent     Intent            `json:"intent,omitempty"`
	Source     string            `json:"source,omitempty"`
	Category   string            `json:"category,omitempty"`
	Confidence float32           `json:"confidence,omitempty"`
	LearnedAt  time.Time         `json:"learned_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// StoredItem is one entry in the vector memory. ID is the insertion index.
type StoredItem struct {
	ID   int      `json:"id"`
	Text string   `json:"text"`
	Meta ItemMeta `json:"meta"`
}

// SearchResult is a stored item with its similarity to a query.
type SearchResult struct {
	Item  StoredItem `json:"item"`
	Score float32    `json:"score"`
}

// ResearchReport is what a research collector returns for a topic.
type ResearchReport struct {
	Topic       string    `json:"topic"`
	Sources     []string  `json:"sources"`
	Content     []string  `json:"content"`
	KeyFacts    []string  `json:"key_facts"`
	CollectedAt time.Time `json:"collected_at"`
}

// Insight is a scored sentence produced by the understanding engine.
type Insight struct {
	Text      string  `json:"text"`
	Relevance float32 `json:"relevance"`
	Source    string  `json:"source,omitempty"`
}

// Understanding is the full output of sifting research content for a query.
type Understanding struct {
	Query       string    `json:"query"`
	Synthesized string    `json:"synthesized"`
	Insights    []Insight `json:"insights"`
	Takeaways   []string  `json:"takeaways"`
	KeyFacts    []string  `json:"key_facts,omitempty"`
	Confidence  float32   `json:"confidence"`
}

// LearnedInsight is an archived insight row persisted to the database.
type LearnedInsight struct {
	ID        string
	Topic     string
	Category  string
	Content   string
	Source    string
	Embedding []float32
	LearnedAt time.Time
}
