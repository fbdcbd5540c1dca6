package vectorstore

import (
	"context"
	"sync"
	"time"

	"github.com/splashxmoon/domufi-app/internal/domain"
	"github.com/splashxmoon/domufi-app/internal/embedding"
)

// LinearStore is the fallback backend: one vector slice per item, scanned in
// full on every search. Simple, always available, and the behavioral
// reference for FlatStore.
type LinearStore struct {
	encoder Encoder
	dir     string

	mu        sync.RWMutex
	vectors   [][]float32
	items     []domain.StoredItem
	inserts   int64
	lastFlush time.Time
}

var _ Store = (*LinearStore)(nil)

// NewLinearStore creates a LinearStore persisted under dir. An empty dir
// disables persistence.
func NewLinearStore(encoder Encoder, dir string) *LinearStore {
	s := &LinearStore{encoder: encoder, dir: dir}
	snap := loadSnapshot(dir, encoder.Dimensions())
	s.vectors = snap.Vectors
	s.items = snap.Items
	return s
}

func (s *LinearStore) Add(ctx context.Context, text string, meta domain.ItemMeta) (int, error) {
	vec := s.encoder.Encode(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()

	id := len(s.items)
	s.vectors = append(s.vectors, vec)
	s.items = append(s.items, domain.StoredItem{ID: id, Text: text, Meta: meta})
	s.inserts++

	if len(s.items)%flushEvery == 0 {
		if err := s.flushLocked(); err != nil {
			return id, err
		}
	}

	return id, nil
}

func (s *LinearStore) Search(ctx context.Context, query string, opts SearchOptions) ([]domain.SearchResult, error) {
	queryVec := s.encoder.Encode(ctx, query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make([]float32, len(s.vectors))
	for i, v := range s.vectors {
		scores[i] = embedding.Similarity(queryVec, v)
	}

	return rankResults(scores, s.items, opts), nil
}

func (s *LinearStore) GetByIntent(intent domain.Intent, limit int) []domain.StoredItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scanByIntent(s.items, intent, limit)
}

func (s *LinearStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *LinearStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Backend:   "linear",
		Items:     len(s.items),
		Dims:      s.encoder.Dimensions(),
		Inserts:   s.inserts,
		LastFlush: s.lastFlush,
	}
}

func (s *LinearStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *LinearStore) Close() error {
	return s.Flush()
}

func (s *LinearStore) flushLocked() error {
	err := saveSnapshot(s.dir, snapshot{
		Dims:    s.encoder.Dimensions(),
		Vectors: s.vectors,
		Items:   s.items,
	})
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "vector store snapshot failed", err)
	}
	s.lastFlush = time.Now().UTC()
	return nil
}
