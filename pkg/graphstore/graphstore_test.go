package graphstore_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/graphstore"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/graphstore/graphstoretest"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{fmt.Errorf("run: %w", graphstore.ErrTransient), true},
		{fmt.Errorf("run: %w", graphstore.ErrQueryRejected), false},
		{errors.New("dial tcp 10.0.0.1:7687: connect: connection refused"), true},
		{errors.New("read: connection reset by peer"), true},
		{errors.New("Neo.ClientError.Statement.SyntaxError"), false},
		{context.DeadlineExceeded, false},
		{fmt.Errorf("%w: %w", graphstore.ErrTransient, context.Canceled), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, graphstore.IsTransient(tt.err), "%v", tt.err)
	}
}

func strs(s ...string) common.Value {
	out := make([]common.Value, len(s))
	for i, v := range s {
		out[i] = common.String(v)
	}
	return common.List(out...)
}

func schemaStore() *graphstoretest.Store {
	return graphstoretest.New(func(_ context.Context, _ int, query string, params map[string]any, _ int) (*graphstore.Result, error) {
		switch {
		case strings.Contains(query, "db.labels()"):
			return &graphstore.Result{Columns: []string{"label"}, Records: [][]common.Value{
				{common.String("Supplier")}, {common.String("Shipment")}, {common.String("Empty")},
			}}, nil
		case strings.Contains(query, "db.relationshipTypes()"):
			return &graphstore.Result{Columns: []string{"relationshipType"}, Records: [][]common.Value{
				{common.String("SENDS")},
			}}, nil
		case strings.Contains(query, "nodeTypeProperties"):
			return &graphstore.Result{Records: [][]common.Value{
				{strs("Supplier"), common.String("supplier_name"), strs("String")},
				{strs("Shipment"), common.String("status"), strs("String")},
				{strs("Shipment"), common.String("shipment_date"), strs("Date")},
				{strs("Shipment"), common.String("cost"), strs("Long", "Double")},
				{strs("Empty"), common.Null(), common.Null()},
			}}, nil
		case strings.Contains(query, "relTypeProperties"):
			return &graphstore.Result{Records: [][]common.Value{
				{common.String(":`SENDS`"), common.String("carrier"), strs("String")},
			}}, nil
		case strings.Contains(query, "MATCH (a)-[r]->(b)"):
			if params["sample"] != 500 {
				return nil, fmt.Errorf("unexpected sample %v", params["sample"])
			}
			return &graphstore.Result{Records: [][]common.Value{
				{common.String("SENDS"), common.String("Supplier"), common.String("Shipment")},
			}}, nil
		}
		return nil, fmt.Errorf("unexpected query %q", query)
	})
}

func TestIntrospect(t *testing.T) {
	store := schemaStore()
	inv, err := graphstore.NewIntrospector(store, 500).Introspect(context.Background())
	require.NoError(t, err)

	snap := catalog.NewSnapshot(*inv, time.Now())
	assert.Equal(t, []string{"Empty", "Shipment", "Supplier"}, snap.LabelNames())

	p, ok := snap.LabelProperty("Shipment", "shipment_date")
	require.True(t, ok)
	assert.Equal(t, catalog.PropertyType("DATE"), p.Type)

	p, ok = snap.LabelProperty("Shipment", "cost")
	require.True(t, ok)
	assert.Equal(t, catalog.PropertyTypeAny, p.Type)

	sends, ok := snap.Relationship("SENDS")
	require.True(t, ok)
	assert.Equal(t, []string{"Supplier"}, sends.Sources)
	assert.Equal(t, []string{"Shipment"}, sends.Targets)
	assert.Equal(t, catalog.DirectionOutgoing, sends.Direction)
	_, ok = snap.RelationshipProperty("SENDS", "carrier")
	assert.True(t, ok)

	assert.Equal(t, 5, store.Calls())
	for _, limit := range store.FetchLimits() {
		assert.Zero(t, limit, "introspection reads complete results")
	}
}

func TestIntrospectDirection(t *testing.T) {
	store := graphstoretest.New(func(_ context.Context, _ int, query string, _ map[string]any, _ int) (*graphstore.Result, error) {
		if !strings.Contains(query, "MATCH (a)-[r]->(b)") {
			return &graphstore.Result{}, nil
		}
		return &graphstore.Result{Records: [][]common.Value{
			{common.String("SUPPLIED_BY"), common.String("Product"), common.String("Supplier")},
			{common.String("LINKED"), common.String("Supplier"), common.String("Shipment")},
			{common.String("LINKED"), common.String("Shipment"), common.String("Supplier")},
			{common.String("BOUGHTWITH"), common.String("Product"), common.String("Product")},
		}}, nil
	})
	inv, err := graphstore.NewIntrospector(store, 0).Introspect(context.Background())
	require.NoError(t, err)

	snap := catalog.NewSnapshot(*inv, time.Now())
	want := map[string]catalog.Direction{
		"SUPPLIED_BY": catalog.DirectionOutgoing,
		"LINKED":      catalog.DirectionBoth,
		"BOUGHTWITH":  catalog.DirectionOutgoing,
	}
	for name, dir := range want {
		r, ok := snap.Relationship(name)
		require.True(t, ok, name)
		assert.Equal(t, dir, r.Direction, name)
	}
	assert.Contains(t, snap.Vocabulary(), "- (:Shipment|Supplier)-[:LINKED]-(:Shipment|Supplier)\n")
	assert.Contains(t, snap.Vocabulary(), "- (:Product)-[:SUPPLIED_BY]->(:Supplier)\n")
}

func TestIntrospectError(t *testing.T) {
	store := graphstoretest.New(func(context.Context, int, string, map[string]any, int) (*graphstore.Result, error) {
		return nil, graphstore.ErrTransient
	})
	_, err := graphstore.NewIntrospector(store, 0).Introspect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, graphstore.ErrTransient)
	assert.Contains(t, err.Error(), "list labels")
}
