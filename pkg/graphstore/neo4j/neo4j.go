// Package neo4j implements graphstore.Store on the official Neo4j driver.
// Every query runs in a read session as an auto-commit transaction, so the
// driver's managed retries stay out of the way of the executor's own.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/graphstore"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
)

type neo4jDriver interface {
	NewSession(ctx context.Context, cfg neo4j.SessionConfig) neo4j.SessionWithContext
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

type Store struct {
	driver   neo4jDriver
	database string
	txLimit  time.Duration
}

// NewStoreParams configures the connection. TxTimeout is enforced server
// side in addition to the caller's context deadline; zero leaves the server
// default.
type NewStoreParams struct {
	URI            string
	Username       string
	Password       string
	Database       string
	MaxConnections int
	AcquireTimeout time.Duration
	TxTimeout      time.Duration
}

// NewStore creates the driver and verifies connectivity, the equivalent of
// probing the server with RETURN 1.
func NewStore(ctx context.Context, params NewStoreParams) (*Store, error) {
	if params.URI == "" {
		return nil, errors.New("neo4j: URI is required")
	}

	driver, err := neo4j.NewDriverWithContext(
		params.URI,
		neo4j.BasicAuth(params.Username, params.Password, ""),
		func(c *config.Config) {
			if params.MaxConnections > 0 {
				c.MaxConnectionPoolSize = params.MaxConnections
			}
			if params.AcquireTimeout > 0 {
				c.ConnectionAcquisitionTimeout = params.AcquireTimeout
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("neo4j: create driver: %w", err)
	}

	s := NewStoreWithDriver(driver, params.Database, params.TxTimeout)
	if err := s.Ping(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	logger.Info("Connected to graph store", "uri", params.URI, "database", params.Database)
	return s, nil
}

// NewStoreWithDriver wraps an existing driver.
func NewStoreWithDriver(driver neo4jDriver, database string, txTimeout time.Duration) *Store {
	return &Store{driver: driver, database: database, txLimit: txTimeout}
}

var _ graphstore.Store = (*Store)(nil)

func (s *Store) Run(ctx context.Context, query string, params map[string]any, fetchLimit int) (*graphstore.Result, error) {
	cfg := neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	}
	if fetchLimit > 0 {
		cfg.FetchSize = fetchLimit + 1
	}
	session := s.driver.NewSession(ctx, cfg)
	defer func() {
		if err := session.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Debug("Closing graph session failed", "err", err)
		}
	}()

	var txOpts []func(*neo4j.TransactionConfig)
	if s.txLimit > 0 {
		txOpts = append(txOpts, neo4j.WithTxTimeout(s.txLimit))
	}
	result, err := session.Run(ctx, query, params, txOpts...)
	if err != nil {
		return nil, classify(ctx, err)
	}

	columns, err := result.Keys()
	if err != nil {
		return nil, classify(ctx, err)
	}

	out := &graphstore.Result{Columns: columns}
	for result.Next(ctx) {
		if fetchLimit > 0 && len(out.Records) == fetchLimit {
			out.HasMore = true
			break
		}
		rec := result.Record()
		row := make([]common.Value, len(rec.Values))
		for i, v := range rec.Values {
			row[i] = Convert(v)
		}
		out.Records = append(out.Records, row)
	}
	if !out.HasMore {
		if err := result.Err(); err != nil {
			return nil, classify(ctx, err)
		}
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return classify(ctx, err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// classify maps driver failures onto graphstore sentinels. Context errors
// pass through unchanged so callers can tell a deadline from an outage.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("neo4j: %w: %w", ctxErr, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("neo4j: %w", err)
	}

	var connErr *neo4j.ConnectivityError
	if errors.As(err, &connErr) || neo4j.IsRetryable(err) {
		return fmt.Errorf("neo4j: %w: %w", graphstore.ErrTransient, err)
	}

	var dbErr *neo4j.Neo4jError
	if errors.As(err, &dbErr) {
		switch dbErr.Classification() {
		case "TransientError":
			return fmt.Errorf("neo4j: %w: %w", graphstore.ErrTransient, err)
		case "ClientError":
			return fmt.Errorf("neo4j: %w: %s", graphstore.ErrQueryRejected, dbErr.Code)
		}
	}
	return fmt.Errorf("neo4j: %w", err)
}
