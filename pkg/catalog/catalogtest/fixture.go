// Package catalogtest provides a schema fixture that mirrors the supply-chain
// graph for use in tests.
package catalogtest

import (
	"context"
	"sync"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog"
)

func props(typ catalog.PropertyType, keys ...string) []catalog.Property {
	out := make([]catalog.Property, len(keys))
	for i, k := range keys {
		out[i] = catalog.Property{Key: k, Type: typ}
	}
	return out
}

func join(lists ...[]catalog.Property) []catalog.Property {
	var out []catalog.Property
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// SupplyChain returns the inventory of the retail supply-chain graph:
// users place orders containing products, products sit in aisles and
// departments, suppliers send shipments.
func SupplyChain() catalog.Inventory {
	return catalog.Inventory{
		Labels: []catalog.NodeLabel{
			{Name: "User", Properties: props("INTEGER", "user_id")},
			{Name: "Order", Properties: join(
				props("INTEGER", "order_id", "order_number", "order_hour_of_day", "order_dow"),
				props("FLOAT", "days_since_prior_order"),
			)},
			{Name: "Product", Properties: join(
				props("INTEGER", "product_id", "community_louvain"),
				props("STRING", "name"),
				props("FLOAT", "betweenness", "pageRank"),
			)},
			{Name: "Department", Properties: props("STRING", "department")},
			{Name: "Aisle", Properties: props("STRING", "aisle")},
			{Name: "Supplier", Properties: props("STRING", "supplier_name")},
			{Name: "Shipment", Properties: join(
				props("STRING", "status"),
				props("DATE", "expected_delivery_date", "actual_delivery_date", "shipment_date"),
			)},
		},
		Relationships: []catalog.RelationshipType{
			{Name: "ORDERED", Sources: []string{"User"}, Targets: []string{"Order"}, Direction: catalog.DirectionOutgoing},
			{Name: "CONTAINS", Sources: []string{"Order"}, Targets: []string{"Product"}, Direction: catalog.DirectionOutgoing,
				Properties: props("INTEGER", "add_to_cart_order", "reordered")},
			{Name: "BOUGHTWITH", Sources: []string{"Product"}, Targets: []string{"Product"}, Direction: catalog.DirectionOutgoing,
				Properties: props("INTEGER", "weight")},
			{Name: "IN_DEPARTMENT", Sources: []string{"Product"}, Targets: []string{"Department"}, Direction: catalog.DirectionOutgoing},
			{Name: "IN_AISLE", Sources: []string{"Product"}, Targets: []string{"Aisle"}, Direction: catalog.DirectionOutgoing},
			{Name: "SUPPLIED_BY", Sources: []string{"Product"}, Targets: []string{"Supplier"}, Direction: catalog.DirectionOutgoing},
			{Name: "SENDS", Sources: []string{"Supplier"}, Targets: []string{"Shipment"}, Direction: catalog.DirectionOutgoing},
		},
	}
}

// Snapshot returns a snapshot of SupplyChain.
func Snapshot() *catalog.Snapshot {
	return catalog.NewStaticCatalog(SupplyChain()).Describe()
}

// Introspector is a scripted catalog.Introspector. Each call returns the next
// scripted result; the last one repeats.
type Introspector struct {
	mu      sync.Mutex
	results []Result
	calls   int
}

type Result struct {
	Inventory *catalog.Inventory
	Err       error
}

func NewIntrospector(results ...Result) *Introspector {
	return &Introspector{results: results}
}

func (f *Introspector) Introspect(ctx context.Context) (*catalog.Inventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := min(f.calls, len(f.results)-1)
	f.calls++
	if i < 0 {
		inv := SupplyChain()
		return &inv, nil
	}
	return f.results[i].Inventory, f.results[i].Err
}

func (f *Introspector) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
