// Package store persists what the service answered. Implementations live in
// subpackages; MemoryHistory serves deployments without a database.
package store

import (
	"context"
	"sync"
	"time"
)

// HistoryRecord is one terminal answer. Outcome is "Done" or the failure
// kind.
type HistoryRecord struct {
	RequestID     string    `json:"request_id"`
	Utterance     string    `json:"utterance"`
	Source        string    `json:"source"`
	Query         string    `json:"query,omitempty"`
	Outcome       string    `json:"outcome"`
	CacheHit      bool      `json:"cache_hit"`
	RowCount      int       `json:"row_count"`
	Truncated     bool      `json:"truncated"`
	ElapsedMs     int64     `json:"elapsed_ms"`
	SchemaVersion string    `json:"schema_version,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// HistoryStore records answers and lists the most recent ones first.
type HistoryStore interface {
	RecordAnswer(ctx context.Context, rec HistoryRecord) error
	RecentAnswers(ctx context.Context, limit int) ([]HistoryRecord, error)
}

const DefaultHistoryLimit = 50

// MemoryHistory keeps the last Capacity records in memory.
type MemoryHistory struct {
	mu       sync.Mutex
	capacity int
	records  []HistoryRecord
}

func NewMemoryHistory(capacity int) *MemoryHistory {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryHistory{capacity: capacity}
}

func (m *MemoryHistory) RecordAnswer(_ context.Context, rec HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	if over := len(m.records) - m.capacity; over > 0 {
		m.records = append(m.records[:0], m.records[over:]...)
	}
	return nil
}

func (m *MemoryHistory) RecentAnswers(_ context.Context, limit int) ([]HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := min(limit, len(m.records))
	out := make([]HistoryRecord, 0, n)
	for i := len(m.records) - 1; i >= len(m.records)-n; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

var _ HistoryStore = (*MemoryHistory)(nil)
