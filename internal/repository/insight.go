package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/splashxmoon/domufi-app/internal/domain"
)

// InsightRepository archives insights the background learner produces,
// with their embeddings for later similarity lookups.
type InsightRepository struct {
	db dbtx
}

func NewInsightRepository(pool *pgxpool.Pool) *InsightRepository {
	return &InsightRepository{db: pool}
}

func NewInsightRepositoryWithTx(tx pgx.Tx) *InsightRepository {
	return &InsightRepository{db: tx}
}

func (r *InsightRepository) ArchiveInsight(ctx context.Context, ins domain.LearnedInsight) error {
	var vec any
	if len(ins.Embedding) > 0 {
		vec = pgvector.NewVector(ins.Embedding)
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO learned_insights (id, topic, category, content, source, embedding, learned_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		ins.ID, ins.Topic, ins.Category, ins.Content, ins.Source, vec, ins.LearnedAt,
	)
	return err
}

// SearchSimilar returns archived insights ordered by cosine distance to the
// query embedding.
func (r *InsightRepository) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]domain.LearnedInsight, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, topic, category, content, source, learned_at
		 FROM learned_insights
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.LearnedInsight
	for rows.Next() {
		var ins domain.LearnedInsight
		if err := rows.Scan(&ins.ID, &ins.Topic, &ins.Category, &ins.Content, &ins.Source, &ins.LearnedAt); err != nil {
			return nil, err
		}
		items = append(items, ins)
	}
	return items, rows.Err()
}

// CountByCategory reports how many insights each category has accumulated.
func (r *InsightRepository) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT category, COUNT(*) FROM learned_insights GROUP BY category`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		counts[category] = n
	}
	return counts, rows.Err()
}
