package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// PropertyType is the declared scalar type of a property key, as reported
// by store introspection (e.g. "STRING", "INTEGER", "DATE").
type PropertyType string

const PropertyTypeAny PropertyType = "ANY"

type Property struct {
	Key  string       `json:"key"`
	Type PropertyType `json:"type"`
}

type NodeLabel struct {
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

// Direction tells how a relationship type is stored between its endpoints.
type Direction string

const (
	// DirectionOutgoing relationships always run from a Sources label to a
	// Targets label.
	DirectionOutgoing Direction = "OUTGOING"
	// DirectionBoth relationships were seen in both orientations between the
	// same labels, so they are traversed without a direction.
	DirectionBoth Direction = "BOTH"
)

// RelationshipType describes a relationship type with the labels observed at
// its start (Sources) and end (Targets). Direction is empty when no endpoint
// was sampled.
type RelationshipType struct {
	Name       string     `json:"name"`
	Sources    []string   `json:"sources"`
	Targets    []string   `json:"targets"`
	Direction  Direction  `json:"direction,omitempty"`
	Properties []Property `json:"properties"`
}

// Inventory is the raw result of one introspection run.
type Inventory struct {
	Labels        []NodeLabel        `json:"labels"`
	Relationships []RelationshipType `json:"relationships"`
}

// Snapshot is an immutable view of the schema. Components receive it
// explicitly and never observe a partially refreshed catalog.
type Snapshot struct {
	Labels        []NodeLabel        `json:"labels"`
	Relationships []RelationshipType `json:"relationships"`
	Version       string             `json:"version"`
	LoadedAt      time.Time          `json:"loaded_at"`

	labels map[string]int
	rels   map[string]int
	keys   map[string]bool
}

// NewSnapshot normalises inv (sorted, deduplicated) and derives its version
// from the content, so identical schemas always share a version.
func NewSnapshot(inv Inventory, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		Labels:        normaliseLabels(inv.Labels),
		Relationships: normaliseRelationships(inv.Relationships),
		LoadedAt:      loadedAt,
	}
	s.index()
	s.Version = s.hash()
	return s
}

func normaliseProperties(props []Property) []Property {
	byKey := make(map[string]PropertyType, len(props))
	for _, p := range props {
		if p.Key == "" {
			continue
		}
		t := p.Type
		if t == "" {
			t = PropertyTypeAny
		}
		if prev, ok := byKey[p.Key]; ok && prev != t {
			t = PropertyTypeAny
		}
		byKey[p.Key] = t
	}
	out := make([]Property, 0, len(byKey))
	for k, t := range byKey {
		out = append(out, Property{Key: k, Type: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func normaliseNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func normaliseLabels(in []NodeLabel) []NodeLabel {
	merged := make(map[string][]Property)
	for _, l := range in {
		if l.Name == "" {
			continue
		}
		merged[l.Name] = append(merged[l.Name], l.Properties...)
	}
	out := make([]NodeLabel, 0, len(merged))
	for name, props := range merged {
		out = append(out, NodeLabel{Name: name, Properties: normaliseProperties(props)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func normaliseRelationships(in []RelationshipType) []RelationshipType {
	merged := make(map[string]*RelationshipType)
	for _, r := range in {
		if r.Name == "" {
			continue
		}
		m, ok := merged[r.Name]
		if !ok {
			m = &RelationshipType{Name: r.Name}
			merged[r.Name] = m
		}
		m.Sources = append(m.Sources, r.Sources...)
		m.Targets = append(m.Targets, r.Targets...)
		m.Properties = append(m.Properties, r.Properties...)
		if r.Direction == DirectionBoth || m.Direction == "" {
			m.Direction = r.Direction
		}
	}
	out := make([]RelationshipType, 0, len(merged))
	for _, m := range merged {
		out = append(out, RelationshipType{
			Name:       m.Name,
			Sources:    normaliseNames(m.Sources),
			Targets:    normaliseNames(m.Targets),
			Direction:  m.Direction,
			Properties: normaliseProperties(m.Properties),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Snapshot) index() {
	s.labels = make(map[string]int, len(s.Labels))
	for i, l := range s.Labels {
		s.labels[l.Name] = i
	}
	s.rels = make(map[string]int, len(s.Relationships))
	for i, r := range s.Relationships {
		s.rels[r.Name] = i
	}
	s.keys = make(map[string]bool)
	for _, l := range s.Labels {
		for _, p := range l.Properties {
			s.keys[p.Key] = true
		}
	}
	for _, r := range s.Relationships {
		for _, p := range r.Properties {
			s.keys[p.Key] = true
		}
	}
}

func (s *Snapshot) hash() string {
	// LoadedAt is excluded: the version identifies content, not load time.
	b, err := json.Marshal(Inventory{Labels: s.Labels, Relationships: s.Relationships})
	if err != nil {
		panic(fmt.Sprintf("catalog: encode snapshot: %v", err))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

func (s *Snapshot) HasLabel(name string) bool {
	_, ok := s.labels[name]
	return ok
}

func (s *Snapshot) HasRelationship(name string) bool {
	_, ok := s.rels[name]
	return ok
}

func (s *Snapshot) Label(name string) (NodeLabel, bool) {
	i, ok := s.labels[name]
	if !ok {
		return NodeLabel{}, false
	}
	return s.Labels[i], true
}

func (s *Snapshot) Relationship(name string) (RelationshipType, bool) {
	i, ok := s.rels[name]
	if !ok {
		return RelationshipType{}, false
	}
	return s.Relationships[i], true
}

func findProperty(props []Property, key string) (Property, bool) {
	i := sort.Search(len(props), func(i int) bool { return props[i].Key >= key })
	if i < len(props) && props[i].Key == key {
		return props[i], true
	}
	return Property{}, false
}

// LabelProperty looks up key on label.
func (s *Snapshot) LabelProperty(label, key string) (Property, bool) {
	l, ok := s.Label(label)
	if !ok {
		return Property{}, false
	}
	return findProperty(l.Properties, key)
}

// RelationshipProperty looks up key on relationship type rel.
func (s *Snapshot) RelationshipProperty(rel, key string) (Property, bool) {
	r, ok := s.Relationship(rel)
	if !ok {
		return Property{}, false
	}
	return findProperty(r.Properties, key)
}

// HasProperty reports whether any label or relationship type carries key.
func (s *Snapshot) HasProperty(key string) bool {
	return s.keys[key]
}

// LabelNames returns all label names in sorted order.
func (s *Snapshot) LabelNames() []string {
	out := make([]string, len(s.Labels))
	for i, l := range s.Labels {
		out[i] = l.Name
	}
	return out
}

func propertyList(props []Property) string {
	if len(props) == 0 {
		return ""
	}
	parts := make([]string, len(props))
	for i, p := range props {
		parts[i] = p.Key + ": " + string(p.Type)
	}
	return " {" + strings.Join(parts, ", ") + "}"
}

func endpoint(labels []string) string {
	if len(labels) == 0 {
		return "()"
	}
	return "(:" + strings.Join(labels, "|") + ")"
}

// Vocabulary renders the schema as prompt text: one line per label and one
// line per relationship type with its observed endpoints.
func (s *Snapshot) Vocabulary() string {
	var b strings.Builder
	b.WriteString("Node labels:\n")
	for _, l := range s.Labels {
		fmt.Fprintf(&b, "- %s%s\n", l.Name, propertyList(l.Properties))
	}
	b.WriteString("Relationship types:\n")
	for _, r := range s.Relationships {
		arrow := "->"
		if r.Direction == DirectionBoth {
			arrow = "-"
		}
		fmt.Fprintf(&b, "- %s-[:%s%s]%s%s\n", endpoint(r.Sources), r.Name, propertyList(r.Properties), arrow, endpoint(r.Targets))
	}
	return b.String()
}
