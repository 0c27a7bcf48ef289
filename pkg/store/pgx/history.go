package pgx

import (
	"context"
	"fmt"
	"time"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/util"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/store"
)

const insertAnswerSQL = `
INSERT INTO answer_history
    (request_id, utterance, source, query, outcome, cache_hit, row_count, truncated, elapsed_ms, schema_version, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (request_id) DO NOTHING;
`

const recentAnswersSQL = `
SELECT request_id, utterance, source, query, outcome, cache_hit, row_count, truncated, elapsed_ms, schema_version, created_at
FROM answer_history
ORDER BY created_at DESC, id DESC
LIMIT $1;
`

func (s *Store) RecordAnswer(ctx context.Context, rec store.HistoryRecord) error {
	if rec.RequestID == "" {
		return fmt.Errorf("record answer: empty request id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.conn.Exec(ctx, insertAnswerSQL,
		rec.RequestID,
		util.SanitizePostgresText(rec.Utterance),
		rec.Source,
		util.SanitizePostgresText(rec.Query),
		rec.Outcome,
		rec.CacheHit,
		rec.RowCount,
		rec.Truncated,
		rec.ElapsedMs,
		rec.SchemaVersion,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record answer %s: %w", rec.RequestID, err)
	}
	return nil
}

func (s *Store) RecentAnswers(ctx context.Context, limit int) ([]store.HistoryRecord, error) {
	if limit <= 0 {
		limit = store.DefaultHistoryLimit
	}
	if s.maxRows > 0 && limit > s.maxRows {
		limit = s.maxRows
	}

	rows, err := s.conn.Query(ctx, recentAnswersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("recent answers: %w", err)
	}
	defer rows.Close()

	out := make([]store.HistoryRecord, 0, limit)
	for rows.Next() {
		var rec store.HistoryRecord
		if err := rows.Scan(
			&rec.RequestID,
			&rec.Utterance,
			&rec.Source,
			&rec.Query,
			&rec.Outcome,
			&rec.CacheHit,
			&rec.RowCount,
			&rec.Truncated,
			&rec.ElapsedMs,
			&rec.SchemaVersion,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent answers: %w", err)
	}
	return out, nil
}
