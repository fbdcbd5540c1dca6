package domain

import "strconv"

// BudgetType indicates how a budget constraint bounds a search.
type BudgetType string

const (
	BudgetTypeMax   BudgetType = "max"
	BudgetTypeMin   BudgetType = "min"
	BudgetTypeRange BudgetType = "range"
)

// Budget is a monetary constraint extracted from a user message.
type Budget struct {
	Min  float64    `json:"min,omitempty"`
	Max  float64    `json:"max,omitempty"`
	Type BudgetType `json:"type"`
}

// Entities holds everything the analyzer extracts from a message.
// Zero values mean "not present".
type Entities struct {
	City         string  `json:"city,omitempty"`
	Budget       *Budget `json:"budget,omitempty"`
	Topic        string  `json:"topic,omitempty"`
	PropertyType string  `json:"property_type,omitempty"`
	Bedrooms     int     `json:"bedrooms,omitempty"`
}

// IsEmpty reports whether no entity was extracted at all.
func (e Entities) IsEmpty() bool {
	return e.City == "" && e.Budget == nil && e.Topic == "" &&
		e.PropertyType == "" && e.Bedrooms == 0
}

// Flatten returns the present entities as string key/value pairs.
func (e Entities) Flatten() map[string]string {
	out := make(map[string]string)
	if e.City != "" {
		out["city"] = e.City
	}
	if e.Topic != "" {
		out["topic"] = e.Topic
	}
	if e.PropertyType != "" {
		out["property_type"] = e.PropertyType
	}
	if e.Bedrooms > 0 {
		out["bedrooms"] = strconv.Itoa(e.Bedrooms)
	}
	if e.Budget != nil {
		out["budget"] = string(e.Budget.Type)
	}
	return out
}
