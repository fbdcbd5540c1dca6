// Package embedding turns text into unit-length vectors, caching results and
// degrading to deterministic pseudo-random vectors when no encoder is available.
package embedding

import (
	"context"
	"hash/fnv"
	"log"
	"math"
	"math/rand"
	"strings"
	"sync"
)

const (
	// DefaultDimensions matches the OpenAI embedding models used in production.
	DefaultDimensions = 1536

	// cacheMaxEntries bounds the in-memory cache. Past this the cache is
	// dropped wholesale rather than evicted entry by entry.
	cacheMaxEntries = 10000
)

// EncoderClient generates raw embeddings for text.
type EncoderClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Stats reports cache and fallback counters for the provider.
type Stats struct {
	CacheHits   int64
	CacheMisses int64
	Fallbacks   int64
	CacheSize   int
}

// Provider encodes text into normalized vectors. Encode never fails: when the
// underlying client errors or is absent, a deterministic fallback vector
// derived from the text is returned instead.
type Provider struct {
	client EncoderClient
	dims   int

	mu    sync.RWMutex
	cache map[string][]float32
	stats Stats
}

// NewProvider creates a Provider. client may be nil, in which case every
// encode uses the fallback path.
func NewProvider(client EncoderClient, dims int) *Provider {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Provider{
		client: client,
		dims:   dims,
		cache:  make(map[string][]float32),
	}
}

// Dimensions returns the vector length this provider produces.
func (p *Provider) Dimensions() int {
	return p.dims
}

// Encode returns a unit-length vector for the text. Results are cached by the
// lowercased, trimmed text.
func (p *Provider) Encode(ctx context.Context, text string) []float32 {
	key := cacheKey(text)

	p.mu.RLock()
	cached, ok := p.cache[key]
	p.mu.RUnlock()
	if ok {
		p.mu.Lock()
		p.stats.CacheHits++
		p.mu.Unlock()
		return cached
	}

	vec := p.encode(ctx, text)

	p.mu.Lock()
	p.stats.CacheMisses++
	if len(p.cache) >= cacheMaxEntries {
		p.cache = make(map[string][]float32)
	}
	p.cache[key] = vec
	p.mu.Unlock()

	return vec
}

// EncodeBatch encodes each text in order.
func (p *Provider) EncodeBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.Encode(ctx, t)
	}
	return out
}

// FindMostSimilar encodes the query and every candidate and returns the index
// and score of the best candidate at or above the threshold. Returns -1 when
// no candidate qualifies.
func (p *Provider) FindMostSimilar(ctx context.Context, query string, candidates []string, threshold float32) (int, float32) {
	if len(candidates) == 0 {
		return -1, 0
	}

	queryVec := p.Encode(ctx, query)

	bestIdx := -1
	var bestScore float32
	for i, c := range candidates {
		score := Similarity(queryVec, p.Encode(ctx, c))
		if score >= threshold && score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}

	return bestIdx, bestScore
}

// Stats returns a snapshot of the provider counters.
func (p *Provider) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.stats
	s.CacheSize = len(p.cache)
	return s
}

func (p *Provider) encode(ctx context.Context, text string) []float32 {
	if p.client != nil {
		vec, err := p.client.GenerateEmbedding(ctx, text)
		if err == nil && len(vec) == p.dims {
			Normalize(vec)
			return vec
		}
		if err != nil {
			log.Printf("embedding: encode failed, using fallback vector: %v", err)
		} else {
			log.Printf("embedding: encoder returned %d dimensions, expected %d, using fallback vector", len(vec), p.dims)
		}
	}

	p.mu.Lock()
	p.stats.Fallbacks++
	p.mu.Unlock()

	return fallbackVector(text, p.dims)
}

// Similarity is the dot product of two vectors. For unit-length vectors this
// equals their cosine similarity.
func Similarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float32
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	return dot
}

// Normalize scales v in place to unit length. Zero vectors are left unchanged.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

// fallbackVector produces a deterministic pseudo-random unit vector for the
// text so identical inputs keep mapping to identical vectors across restarts.
func fallbackVector(text string, dims int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(cacheKey(text)))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}
	Normalize(vec)
	return vec
}

// cacheKey canonicalizes text so identical queries differing only in case or
// surrounding whitespace share one vector.
func cacheKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
