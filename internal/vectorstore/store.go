// Package vectorstore provides the in-process, disk-persisted vector memory
// backing the conversational engine. Two backends implement the same Store
// contract: a flat contiguous-matrix index and a plain linear scan. The
// backend is chosen once at composition time.
package vectorstore

import (
	"context"
	"sort"
	"time"

	"github.com/splashxmoon/domufi-app/internal/domain"
)

const (
	// flushEvery controls how often inserts trigger a snapshot to disk.
	flushEvery = 10

	// DefaultTopK is used when SearchOptions.TopK is not positive.
	DefaultTopK = 5
)

// Encoder turns text into unit-length vectors. Satisfied by *embedding.Provider.
type Encoder interface {
	Encode(ctx context.Context, text string) []float32
	Dimensions() int
}

// SearchOptions tunes a similarity search.
type SearchOptions struct {
	TopK       int
	Threshold  float32
	TypeFilter domain.ItemType
}

// Stats is a snapshot of store counters.
type Stats struct {
	Backend   string    `json:"backend"`
	Items     int       `json:"items"`
	Dims      int       `json:"dims"`
	Inserts   int64     `json:"inserts"`
	LastFlush time.Time `json:"last_flush,omitempty"`
}

// Store is the vector memory contract shared by both backends.
type Store interface {
	// Add encodes text, appends it with its metadata and returns the new
	// item's id. Ids are insertion order, starting at 0.
	Add(ctx context.Context, text string, meta domain.ItemMeta) (int, error)

	// Search ranks stored items against the query text. Items below the
	// threshold are dropped, the rest are sorted by descending score and
	// truncated to TopK before the metadata type filter is applied, so a
	// filtered search may return fewer than TopK results.
	Search(ctx context.Context, query string, opts SearchOptions) ([]domain.SearchResult, error)

	// GetByIntent scans items in insertion order and returns up to limit
	// whose metadata intent matches.
	GetByIntent(intent domain.Intent, limit int) []domain.StoredItem

	Len() int
	Stats() Stats

	// Flush writes a snapshot to disk immediately.
	Flush() error

	// Close flushes and releases the store.
	Close() error
}

// New selects a backend by name. Anything other than "linear" gets the
// optimized flat backend.
func New(backend string, encoder Encoder, dir string) Store {
	if backend == "linear" {
		return NewLinearStore(encoder, dir)
	}
	return NewFlatStore(encoder, dir)
}

// rankResults applies the shared ranking pipeline: threshold filter, sort by
// descending score, truncate to TopK, then exact metadata type post-filter.
// Both backends route through this so their result ordering is identical.
func rankResults(scores []float32, items []domain.StoredItem, opts SearchOptions) []domain.SearchResult {
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	results := make([]domain.SearchResult, 0, len(scores))
	for i, score := range scores {
		if score < opts.Threshold {
			continue
		}
		results = append(results, domain.SearchResult{Item: items[i], Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}

	if opts.TypeFilter != "" {
		filtered := results[:0]
		for _, r := range results {
			if r.Item.Meta.Type == opts.TypeFilter {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	return results
}

// scanByIntent is the shared insertion-order intent scan.
func scanByIntent(items []domain.StoredItem, intent domain.Intent, limit int) []domain.StoredItem {
	if limit <= 0 {
		limit = len(items)
	}
	out := make([]domain.StoredItem, 0, limit)
	for _, item := range items {
		if item.Meta.Intent != intent {
			continue
		}
		out = append(out, item)
		if len(out) >= limit {
			break
		}
	}
	return out
}
