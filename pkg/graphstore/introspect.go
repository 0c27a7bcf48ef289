package graphstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
)

const (
	queryLabels        = "CALL db.labels() YIELD label RETURN label"
	queryRelTypes      = "CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType"
	queryNodeTypeProps = "CALL db.schema.nodeTypeProperties() YIELD nodeLabels, propertyName, propertyTypes " +
		"RETURN nodeLabels, propertyName, propertyTypes"
	queryRelTypeProps = "CALL db.schema.relTypeProperties() YIELD relType, propertyName, propertyTypes " +
		"RETURN relType, propertyName, propertyTypes"
	// Endpoints are sampled rather than scanned; a relationship type whose
	// first $sample occurrences never show a label pair gets no endpoints.
	queryEndpoints = "MATCH (a)-[r]->(b) WITH a, r, b LIMIT $sample " +
		"UNWIND labels(a) AS source UNWIND labels(b) AS target " +
		"RETURN DISTINCT type(r) AS rel, source, target"
)

const DefaultEndpointSample = 10000

// Introspector builds a catalog inventory from the store's schema procedures.
type Introspector struct {
	store  Store
	sample int
}

func NewIntrospector(store Store, endpointSample int) *Introspector {
	if endpointSample <= 0 {
		endpointSample = DefaultEndpointSample
	}
	return &Introspector{store: store, sample: endpointSample}
}

var _ catalog.Introspector = (*Introspector)(nil)

// cypher type names as reported by db.schema.*TypeProperties
var propertyTypeNames = map[string]catalog.PropertyType{
	"String":        "STRING",
	"StringArray":   "LIST<STRING>",
	"Long":          "INTEGER",
	"LongArray":     "LIST<INTEGER>",
	"Integer":       "INTEGER",
	"Double":        "FLOAT",
	"DoubleArray":   "LIST<FLOAT>",
	"Float":         "FLOAT",
	"Boolean":       "BOOLEAN",
	"Date":          "DATE",
	"DateTime":      "DATETIME",
	"LocalDateTime": "LOCAL DATETIME",
	"LocalTime":     "LOCAL TIME",
	"Time":          "TIME",
	"Duration":      "DURATION",
	"Point":         "POINT",
}

func propertyType(types []common.Value) catalog.PropertyType {
	if len(types) != 1 {
		return catalog.PropertyTypeAny
	}
	name := types[0].Str
	if t, ok := propertyTypeNames[name]; ok {
		return t
	}
	return catalog.PropertyType(strings.ToUpper(name))
}

// relTypeName turns ":`CONTAINS`" into "CONTAINS".
func relTypeName(raw string) string {
	return strings.Trim(strings.TrimPrefix(raw, ":"), "`")
}

func (in *Introspector) rows(ctx context.Context, query string, params map[string]any) ([][]common.Value, error) {
	res, err := in.store.Run(ctx, query, params, 0)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

func (in *Introspector) Introspect(ctx context.Context) (*catalog.Inventory, error) {
	labels := map[string]*catalog.NodeLabel{}
	rels := map[string]*catalog.RelationshipType{}
	label := func(name string) *catalog.NodeLabel {
		l, ok := labels[name]
		if !ok {
			l = &catalog.NodeLabel{Name: name}
			labels[name] = l
		}
		return l
	}
	rel := func(name string) *catalog.RelationshipType {
		r, ok := rels[name]
		if !ok {
			r = &catalog.RelationshipType{Name: name}
			rels[name] = r
		}
		return r
	}

	recs, err := in.rows(ctx, queryLabels, nil)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	for _, rec := range recs {
		if len(rec) > 0 {
			label(rec[0].Str)
		}
	}

	recs, err = in.rows(ctx, queryRelTypes, nil)
	if err != nil {
		return nil, fmt.Errorf("list relationship types: %w", err)
	}
	for _, rec := range recs {
		if len(rec) > 0 {
			rel(rec[0].Str)
		}
	}

	recs, err = in.rows(ctx, queryNodeTypeProps, nil)
	if err != nil {
		return nil, fmt.Errorf("list node properties: %w", err)
	}
	for _, rec := range recs {
		if len(rec) < 3 || rec[1].IsNull() {
			continue
		}
		p := catalog.Property{Key: rec[1].Str, Type: propertyType(rec[2].List)}
		for _, l := range rec[0].List {
			nl := label(l.Str)
			nl.Properties = append(nl.Properties, p)
		}
	}

	recs, err = in.rows(ctx, queryRelTypeProps, nil)
	if err != nil {
		return nil, fmt.Errorf("list relationship properties: %w", err)
	}
	for _, rec := range recs {
		if len(rec) < 3 || rec[1].IsNull() {
			continue
		}
		r := rel(relTypeName(rec[0].Str))
		r.Properties = append(r.Properties, catalog.Property{Key: rec[1].Str, Type: propertyType(rec[2].List)})
	}

	recs, err = in.rows(ctx, queryEndpoints, map[string]any{"sample": in.sample})
	if err != nil {
		return nil, fmt.Errorf("sample relationship endpoints: %w", err)
	}
	type endpoints struct{ rel, source, target string }
	seen := map[endpoints]bool{}
	for _, rec := range recs {
		if len(rec) < 3 {
			continue
		}
		r := rel(rec[0].Str)
		r.Sources = append(r.Sources, rec[1].Str)
		r.Targets = append(r.Targets, rec[2].Str)
		seen[endpoints{rec[0].Str, rec[1].Str, rec[2].Str}] = true
	}
	for e := range seen {
		r := rels[e.rel]
		switch {
		case e.source != e.target && seen[endpoints{e.rel, e.target, e.source}]:
			r.Direction = catalog.DirectionBoth
		case r.Direction == "":
			r.Direction = catalog.DirectionOutgoing
		}
	}

	inv := &catalog.Inventory{}
	for _, l := range labels {
		inv.Labels = append(inv.Labels, *l)
	}
	for _, r := range rels {
		inv.Relationships = append(inv.Relationships, *r)
	}
	return inv, nil
}
