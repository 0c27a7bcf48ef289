// Package pgx persists answer history and example question vectors in
// PostgreSQL with pgvector.
package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// Store implements store.HistoryStore and examples.VectorIndex on one
// connection or pool.
type Store struct {
	conn     pgxIConn
	maxRows  int
	embedDim int
}

type StoreOption func(*Store)

// WithMaxHistory bounds how many records RecentAnswers returns.
func WithMaxHistory(n int) StoreOption {
	return func(s *Store) {
		s.maxRows = n
	}
}

// WithEmbeddingDimensions rejects vectors of any other length on Upsert.
func WithEmbeddingDimensions(n int) StoreOption {
	return func(s *Store) {
		s.embedDim = n
	}
}

// NewStoreWithConnection creates a Store using an existing database
// connection. The schema is expected to be migrated already.
func NewStoreWithConnection(conn pgxIConn, opts ...StoreOption) *Store {
	s := &Store{conn: conn, maxRows: 500}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}
