package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection refused")
	classified := NewError(ErrStoreUnavailable, "execute.Execute", cause)

	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, ErrStoreUnavailable, KindOf(classified))
	assert.Equal(t, ErrStoreUnavailable, KindOf(fmt.Errorf("answer: %w", classified)))
	assert.Equal(t, ErrCancelled, KindOf(context.Canceled))
	assert.Equal(t, ErrCancelled, KindOf(fmt.Errorf("wait: %w", context.DeadlineExceeded)))
	assert.Equal(t, ErrInternal, KindOf(cause))

	assert.ErrorIs(t, classified, cause)
	assert.True(t, IsKind(classified, ErrStoreUnavailable))
	assert.False(t, IsKind(nil, ErrInternal))
}

func TestNewErrorKeepsFirstClassification(t *testing.T) {
	inner := Errorf(ErrExecutionTimeout, "execute.Execute", "after %d attempts", 3)
	outer := NewError(ErrInternal, "query.Answer", fmt.Errorf("run: %w", inner))

	assert.Equal(t, ErrExecutionTimeout, outer.Kind)
	assert.Equal(t, "execute.Execute: ExecutionTimeout: after 3 attempts", outer.Error())
	assert.Equal(t, "catalog.Load: CatalogUnavailable", (&Error{Kind: ErrCatalogUnavailable, Op: "catalog.Load"}).Error())
}

func TestUserMessages(t *testing.T) {
	cases := map[ErrorKind]string{
		ErrProviderTimeout:        "could not translate your request",
		ErrNoCandidateProduced:    "could not translate your request",
		ErrWriteNotAllowed:        "the request could not be safely answered",
		ErrUnknownSchemaReference: "the request could not be safely answered",
		ErrStoreUnavailable:       "the data source is currently unavailable",
		ErrCatalogUnavailable:     "the data source is currently unavailable",
		ErrCancelled:              "the request was cancelled",
	}
	for kind, msg := range cases {
		assert.Equal(t, msg, kind.UserMessage(), kind)
	}
	assert.NotContains(t, ErrInternal.UserMessage(), "Internal")

	assert.True(t, ErrQueryTooExpensive.IsValidation())
	assert.True(t, ErrSyntaxError.IsValidation())
	assert.False(t, ErrNoCandidateProduced.IsValidation())
	assert.False(t, ErrStoreUnavailable.IsValidation())
}

func TestValueText(t *testing.T) {
	supplier := Node(NodeRef{
		ID:     "4:1",
		Labels: []string{"Supplier"},
		Properties: map[string]Value{
			"name":   String("Acme"),
			"rating": Float(4.5),
		},
	})

	assert.Equal(t, "", Value{}.Text())
	assert.Equal(t, "42", Integer(42).Text())
	assert.Equal(t, "0.25", Float(0.25).Text())
	assert.Equal(t, "true", Boolean(true).Text())
	assert.Equal(t, "(:Supplier {name: Acme, rating: 4.5})", supplier.Text())
	assert.Equal(t, "[:SENDS {}]", Relationship(RelationshipRef{Type: "SENDS"}).Text())
	assert.Equal(t, `["a",1]`, List(String("a"), Integer(1)).Text())
}

func TestValueJSON(t *testing.T) {
	row := map[string]Value{
		"supplier": Node(NodeRef{ID: "4:1", Labels: []string{"Supplier"}, Properties: map[string]Value{"name": String("Acme")}}),
		"orders":   Integer(3),
		"missing":  Null(),
	}
	b, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"supplier": {"id": "4:1", "labels": ["Supplier"], "properties": {"name": "Acme"}},
		"orders": 3,
		"missing": null
	}`, string(b))
}

type sku int

func (s sku) String() string { return fmt.Sprintf("SKU-%04d", int(s)) }

func TestFromNative(t *testing.T) {
	v := FromNative(map[string]any{
		"count":  int32(7),
		"share":  float32(0.5),
		"tags":   []string{"fresh", "frozen"},
		"nested": []any{nil, true},
		"sku":    sku(12),
	})
	require.Equal(t, KindMap, v.Kind)
	assert.Equal(t, Integer(7), v.Map["count"])
	assert.Equal(t, KindFloat, v.Map["share"].Kind)
	assert.Equal(t, List(String("fresh"), String("frozen")), v.Map["tags"])
	assert.Equal(t, List(Null(), Boolean(true)), v.Map["nested"])
	assert.Equal(t, String("SKU-0012"), v.Map["sku"])

	assert.Equal(t, String("x"), FromNative(String("x")))
	assert.Equal(t, "path", KindPath.String())
	assert.Equal(t, "unknown", ValueKind(99).String())
}
