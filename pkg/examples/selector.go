package examples

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Embedder turns text into a vector. ai.GraphAIClient satisfies it.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)
}

// VectorIndex stores question vectors and finds the nearest ones.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vec []float32) error
	Nearest(ctx context.Context, vec []float32, k int) ([]string, error)
}

// Selector picks few-shot examples for an utterance. With an embedder and an
// indexed bank it returns the most similar questions, otherwise the bank's
// first questions.
type Selector struct {
	bank     *Bank
	embedder Embedder
	index    VectorIndex
	parallel int
	ready    atomic.Bool
}

type NewSelectorParams struct {
	Bank     *Bank
	Embedder Embedder
	Index    VectorIndex
	// Parallel bounds concurrent embedding requests during Embed.
	Parallel int
}

func NewSelector(params NewSelectorParams) *Selector {
	bank := params.Bank
	if bank == nil {
		bank = Default()
	}
	index := params.Index
	if index == nil && params.Embedder != nil {
		index = NewMemoryIndex()
	}
	parallel := params.Parallel
	if parallel <= 0 {
		parallel = 4
	}
	return &Selector{bank: bank, embedder: params.Embedder, index: index, parallel: parallel}
}

func (s *Selector) Bank() *Bank {
	return s.bank
}

type batchEmbedder interface {
	GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error)
}

const embedBatch = 16

// Embed computes a vector for every question and stores it in the index.
// Embedders that accept batches are called in chunks, others once per
// question. Selection falls back to the first questions until Embed
// succeeds.
func (s *Selector) Embed(ctx context.Context) error {
	if s.embedder == nil {
		return nil
	}
	questions := s.bank.All()

	vecs, err := s.embedAll(ctx, questions)
	if err != nil {
		return err
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(s.parallel)
	for i, q := range questions {
		eg.Go(func() error {
			if err := s.index.Upsert(ectx, q.ID, vecs[i]); err != nil {
				return fmt.Errorf("index question %s: %w", q.ID, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	s.ready.Store(true)
	logger.Info("Indexed example questions", "count", len(questions))
	return nil
}

func (s *Selector) embedAll(ctx context.Context, questions []common.Question) ([][]float32, error) {
	out := make([][]float32, len(questions))

	if b, ok := s.embedder.(batchEmbedder); ok {
		for start := 0; start < len(questions); start += embedBatch {
			end := min(start+embedBatch, len(questions))
			inputs := make([][]byte, 0, end-start)
			for _, q := range questions[start:end] {
				inputs = append(inputs, []byte(q.Question))
			}
			vecs, err := b.GenerateEmbeddings(ctx, inputs)
			if err != nil {
				return nil, fmt.Errorf("embed questions %d-%d: %w", start, end, err)
			}
			if len(vecs) != len(inputs) {
				return nil, fmt.Errorf("embed questions %d-%d: got %d vectors", start, end, len(vecs))
			}
			copy(out[start:end], vecs)
		}
		return out, nil
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(s.parallel)
	for i, q := range questions {
		eg.Go(func() error {
			vec, err := s.embedder.GenerateEmbedding(ectx, []byte(q.Question))
			if err != nil {
				return fmt.Errorf("embed question %s: %w", q.ID, err)
			}
			out[i] = vec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Select returns up to n examples for utterance, most relevant first.
func (s *Selector) Select(ctx context.Context, utterance string, n int) []common.Question {
	if n <= 0 {
		return nil
	}
	if s.embedder == nil || !s.ready.Load() {
		return s.bank.First(n)
	}

	vec, err := s.embedder.GenerateEmbedding(ctx, []byte(utterance))
	if err != nil {
		logger.Warn("Falling back to default examples", "err", err)
		return s.bank.First(n)
	}
	ids, err := s.index.Nearest(ctx, vec, n)
	if err != nil {
		logger.Warn("Falling back to default examples", "err", err)
		return s.bank.First(n)
	}

	out := make([]common.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := s.bank.Get(id); ok {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return s.bank.First(n)
	}
	return out
}

// MemoryIndex is a VectorIndex ranking by cosine similarity.
type MemoryIndex struct {
	mu   sync.RWMutex
	vecs map[string][]float32
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{vecs: make(map[string][]float32)}
}

func (m *MemoryIndex) Upsert(_ context.Context, id string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vecs[id] = slices.Clone(vec)
	return nil
}

func (m *MemoryIndex) Nearest(_ context.Context, vec []float32, k int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		id    string
		score float64
	}
	all := make([]scored, 0, len(m.vecs))
	for id, v := range m.vecs {
		all = append(all, scored{id: id, score: cosine(vec, v)})
	}
	slices.SortFunc(all, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return strings.Compare(a.id, b.id)
		}
	})

	if k > len(all) {
		k = len(all)
	}
	ids := make([]string, k)
	for i := range k {
		ids[i] = all[i].id
	}
	return ids, nil
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := range n {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
