package pgx

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

const upsertExampleSQL = `
INSERT INTO example_vectors (question_id, embedding, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (question_id) DO UPDATE
SET embedding  = EXCLUDED.embedding,
    updated_at = EXCLUDED.updated_at;
`

const nearestExamplesSQL = `
SELECT question_id
FROM example_vectors
WHERE vector_dims(embedding) = $2
ORDER BY embedding <=> $1
LIMIT $3;
`

// Upsert stores the vector of one example question.
func (s *Store) Upsert(ctx context.Context, id string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("upsert example %s: empty vector", id)
	}
	if s.embedDim > 0 && len(vec) != s.embedDim {
		return fmt.Errorf("upsert example %s: got %d dimensions, want %d", id, len(vec), s.embedDim)
	}

	if _, err := s.conn.Exec(ctx, upsertExampleSQL, id, pgvector.NewVector(vec)); err != nil {
		return fmt.Errorf("upsert example %s: %w", id, err)
	}
	return nil
}

// Nearest returns the ids of the k questions closest to vec by cosine
// distance. Vectors of a different length are never compared.
func (s *Store) Nearest(ctx context.Context, vec []float32, k int) ([]string, error) {
	if k <= 0 || len(vec) == 0 {
		return nil, nil
	}

	rows, err := s.conn.Query(ctx, nearestExamplesSQL, pgvector.NewVector(vec), len(vec), k)
	if err != nil {
		return nil, fmt.Errorf("nearest examples: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, k)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan example: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("nearest examples: %w", err)
	}
	return ids, nil
}
