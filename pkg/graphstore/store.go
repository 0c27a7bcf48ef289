// Package graphstore defines the narrow contract the pipeline needs from a
// graph database: run a read query, check connectivity, close.
package graphstore

import (
	"context"
	"errors"
	"strings"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
)

// Store runs read-only queries. Run returns at most fetchLimit records;
// HasMore reports that the store had at least one more. A fetchLimit <= 0
// reads everything.
type Store interface {
	Run(ctx context.Context, query string, params map[string]any, fetchLimit int) (*Result, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result holds converted records. Each record has one value per column, in
// column order.
type Result struct {
	Columns []string
	Records [][]common.Value
	HasMore bool
}

var (
	// ErrTransient marks failures worth retrying: lost connections, leader
	// switches, pool exhaustion.
	ErrTransient = errors.New("transient store failure")
	// ErrQueryRejected marks queries the store refused to run, e.g. a syntax
	// or type error detected server side.
	ErrQueryRejected = errors.New("query rejected by store")
)

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no route to host",
	"i/o timeout",
	"server unavailable",
	"temporarily unavailable",
}

// IsTransient reports whether err is a retryable store failure. Adapters
// should wrap ErrTransient; the message patterns catch errors that escape
// adapter classification. Context errors are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	if errors.Is(err, ErrQueryRejected) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
