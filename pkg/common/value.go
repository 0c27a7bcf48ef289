package common

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind enumerates the closed set of shapes a result value can take.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindInteger
	KindFloat
	KindBoolean
	KindList
	KindMap
	KindNode
	KindRelationship
	KindPath
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindNode:
		return "node"
	case KindRelationship:
		return "relationship"
	case KindPath:
		return "path"
	default:
		return "unknown"
	}
}

// NodeRef is a store-agnostic copy of a graph node.
type NodeRef struct {
	ID         string           `json:"id"`
	Labels     []string         `json:"labels"`
	Properties map[string]Value `json:"properties"`
}

// RelationshipRef is a store-agnostic copy of a graph relationship.
type RelationshipRef struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	StartID    string           `json:"start_id"`
	EndID      string           `json:"end_id"`
	Properties map[string]Value `json:"properties"`
}

// PathRef is an alternating walk of nodes and relationships.
type PathRef struct {
	Nodes         []NodeRef         `json:"nodes"`
	Relationships []RelationshipRef `json:"relationships"`
}

// Value is a single cell of a result row. Exactly the field matching Kind
// is meaningful; consumers switch on Kind.
type Value struct {
	Kind         ValueKind
	Str          string
	Int          int64
	Float        float64
	Bool         bool
	List         []Value
	Map          map[string]Value
	Node         *NodeRef
	Relationship *RelationshipRef
	Path         *PathRef
}

func Null() Value { return Value{Kind: KindNull} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Integer(i int64) Value { return Value{Kind: KindInteger, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func Boolean(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }
func List(items ...Value) Value { return Value{Kind: KindList, List: items} }
func Map(m map[string]Value) Value { return Value{Kind: KindMap, Map: m} }

func Node(n NodeRef) Value { return Value{Kind: KindNode, Node: &n} }

func Relationship(r RelationshipRef) Value {
	return Value{Kind: KindRelationship, Relationship: &r}
}

func Path(p PathRef) Value { return Value{Kind: KindPath, Path: &p} }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Native returns v as plain Go values (string, int64, float64, bool, nil,
// []any, map[string]any). Graph entities become maps with their id, labels
// or type, and properties.
func (v Value) Native() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInteger:
		return v.Int
	case KindFloat:
		return v.Float
	case KindBoolean:
		return v.Bool
	case KindList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			out[i] = item.Native()
		}
		return out
	case KindMap:
		return nativeMap(v.Map)
	case KindNode:
		return map[string]any{
			"id":         v.Node.ID,
			"labels":     v.Node.Labels,
			"properties": nativeMap(v.Node.Properties),
		}
	case KindRelationship:
		return map[string]any{
			"id":         v.Relationship.ID,
			"type":       v.Relationship.Type,
			"start_id":   v.Relationship.StartID,
			"end_id":     v.Relationship.EndID,
			"properties": nativeMap(v.Relationship.Properties),
		}
	case KindPath:
		nodes := make([]any, len(v.Path.Nodes))
		for i, n := range v.Path.Nodes {
			nodes[i] = Node(n).Native()
		}
		rels := make([]any, len(v.Path.Relationships))
		for i, r := range v.Path.Relationships {
			rels[i] = Relationship(r).Native()
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	default:
		return nil
	}
}

func nativeMap(m map[string]Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Native()
	}
	return out
}

// Text renders v as a single flat string, suitable for CSV cells.
func (v Value) Text() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindString:
		return v.Str
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.Bool)
	case KindNode:
		return fmt.Sprintf("(:%s %s)", strings.Join(v.Node.Labels, ":"), propsText(v.Node.Properties))
	case KindRelationship:
		return fmt.Sprintf("[:%s %s]", v.Relationship.Type, propsText(v.Relationship.Properties))
	default:
		b, err := json.Marshal(v.Native())
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func propsText(props map[string]Value) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+props[k].Text())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalJSON encodes v as its native JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// FromNative converts plain Go values into a Value. Unknown types are
// rendered through fmt so no foreign handle survives the conversion.
func FromNative(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Boolean(t)
	case int:
		return Integer(int64(t))
	case int8:
		return Integer(int64(t))
	case int16:
		return Integer(int64(t))
	case int32:
		return Integer(int64(t))
	case int64:
		return Integer(t)
	case uint8:
		return Integer(int64(t))
	case uint16:
		return Integer(int64(t))
	case uint32:
		return Integer(int64(t))
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromNative(item)
		}
		return List(items...)
	case []string:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = String(item)
		}
		return List(items...)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = FromNative(item)
		}
		return Map(m)
	case fmt.Stringer:
		return String(t.String())
	default:
		return String(fmt.Sprintf("%v", t))
	}
}
