package vectorstore

import (
	"context"
	"sync"
	"time"

	"github.com/splashxmoon/domufi-app/internal/domain"
)

// FlatStore is the optimized backend: all vectors live in one contiguous
// row-major float32 slice, which keeps scoring cache-friendly and allocation
// free. Behavior matches LinearStore exactly.
type FlatStore struct {
	encoder Encoder
	dir     string
	dims    int

	mu        sync.RWMutex
	data      []float32
	items     []domain.StoredItem
	inserts   int64
	lastFlush time.Time
}

var _ Store = (*FlatStore)(nil)

// NewFlatStore creates a FlatStore persisted under dir. An empty dir disables
// persistence.
func NewFlatStore(encoder Encoder, dir string) *FlatStore {
	s := &FlatStore{encoder: encoder, dir: dir, dims: encoder.Dimensions()}
	snap := loadSnapshot(dir, s.dims)
	s.items = snap.Items
	s.data = make([]float32, 0, len(snap.Vectors)*s.dims)
	for _, v := range snap.Vectors {
		s.data = append(s.data, v...)
	}
	return s
}

func (s *FlatStore) Add(ctx context.Context, text string, meta domain.ItemMeta) (int, error) {
	vec := s.encoder.Encode(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()

	id := len(s.items)
	s.data = append(s.data, vec...)
	s.items = append(s.items, domain.StoredItem{ID: id, Text: text, Meta: meta})
	s.inserts++

	if len(s.items)%flushEvery == 0 {
		if err := s.flushLocked(); err != nil {
			return id, err
		}
	}

	return id, nil
}

func (s *FlatStore) Search(ctx context.Context, query string, opts SearchOptions) ([]domain.SearchResult, error) {
	queryVec := s.encoder.Encode(ctx, query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make([]float32, len(s.items))
	for i := range s.items {
		row := s.data[i*s.dims : (i+1)*s.dims]
		var dot float32
		for j, q := range queryVec {
			dot += q * row[j]
		}
		scores[i] = dot
	}

	return rankResults(scores, s.items, opts), nil
}

func (s *FlatStore) GetByIntent(intent domain.Intent, limit int) []domain.StoredItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scanByIntent(s.items, intent, limit)
}

func (s *FlatStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *FlatStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Backend:   "flat",
		Items:     len(s.items),
		Dims:      s.dims,
		Inserts:   s.inserts,
		LastFlush: s.lastFlush,
	}
}

func (s *FlatStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *FlatStore) Close() error {
	return s.Flush()
}

func (s *FlatStore) flushLocked() error {
	vectors := make([][]float32, len(s.items))
	for i := range s.items {
		vectors[i] = s.data[i*s.dims : (i+1)*s.dims]
	}

	err := saveSnapshot(s.dir, snapshot{Dims: s.dims, Vectors: vectors, Items: s.items})
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "vector store snapshot failed", err)
	}
	s.lastFlush = time.Now().UTC()
	return nil
}
