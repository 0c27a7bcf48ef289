// Package graphstoretest provides a scripted graphstore.Store for tests.
package graphstoretest

import (
	"context"
	"sync"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/graphstore"
)

// RunFunc handles one Run call. attempt counts calls across the store,
// starting at 1.
type RunFunc func(ctx context.Context, attempt int, query string, params map[string]any, fetchLimit int) (*graphstore.Result, error)

// Store routes every Run to a RunFunc and records the calls it saw.
type Store struct {
	mu      sync.Mutex
	run     RunFunc
	queries []string
	limits  []int
	pingErr error
	closed  bool
}

func New(run RunFunc) *Store {
	return &Store{run: run}
}

// Returning builds a store that always answers with res.
func Returning(res *graphstore.Result) *Store {
	return New(func(context.Context, int, string, map[string]any, int) (*graphstore.Result, error) {
		return res, nil
	})
}

func (s *Store) Run(ctx context.Context, query string, params map[string]any, fetchLimit int) (*graphstore.Result, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.limits = append(s.limits, fetchLimit)
	attempt := len(s.queries)
	run := s.run
	s.mu.Unlock()
	return run(ctx, attempt, query, params, fetchLimit)
}

func (s *Store) SetPingError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingErr
}

func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Queries returns the query text of every Run call so far.
func (s *Store) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// FetchLimits returns the fetchLimit of every Run call so far.
func (s *Store) FetchLimits() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.limits...)
}

func (s *Store) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

var _ graphstore.Store = (*Store)(nil)
