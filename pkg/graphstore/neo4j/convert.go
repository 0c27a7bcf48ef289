package neo4j

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
)

// Convert turns a driver value into a common.Value. Temporal values become
// ISO-8601 strings; nodes, relationships and paths become references keyed
// by element id.
func Convert(v any) common.Value {
	switch t := v.(type) {
	case nil:
		return common.Null()
	case neo4j.Node:
		return common.Node(node(t))
	case neo4j.Relationship:
		return common.Relationship(relationship(t))
	case neo4j.Path:
		p := common.PathRef{
			Nodes:         make([]common.NodeRef, len(t.Nodes)),
			Relationships: make([]common.RelationshipRef, len(t.Relationships)),
		}
		for i, n := range t.Nodes {
			p.Nodes[i] = node(n)
		}
		for i, r := range t.Relationships {
			p.Relationships[i] = relationship(r)
		}
		return common.Path(p)
	case []any:
		items := make([]common.Value, len(t))
		for i, item := range t {
			items[i] = Convert(item)
		}
		return common.List(items...)
	case map[string]any:
		return common.Map(properties(t))
	case neo4j.Date:
		return common.String(time.Time(t).Format(time.DateOnly))
	case neo4j.LocalDateTime:
		return common.String(time.Time(t).Format("2006-01-02T15:04:05.999999999"))
	case neo4j.LocalTime:
		return common.String(time.Time(t).Format("15:04:05.999999999"))
	case neo4j.Time:
		return common.String(time.Time(t).Format("15:04:05.999999999Z07:00"))
	case time.Time:
		return common.String(t.Format(time.RFC3339Nano))
	case neo4j.Duration:
		return common.String(t.String())
	case []byte:
		return common.String(string(t))
	default:
		return common.FromNative(t)
	}
}

func properties(props map[string]any) map[string]common.Value {
	out := make(map[string]common.Value, len(props))
	for k, v := range props {
		out[k] = Convert(v)
	}
	return out
}

func node(n neo4j.Node) common.NodeRef {
	return common.NodeRef{
		ID:         n.ElementId,
		Labels:     append([]string(nil), n.Labels...),
		Properties: properties(n.Props),
	}
}

func relationship(r neo4j.Relationship) common.RelationshipRef {
	return common.RelationshipRef{
		ID:         r.ElementId,
		Type:       r.Type,
		StartID:    r.StartElementId,
		EndID:      r.EndElementId,
		Properties: properties(r.Props),
	}
}
