package validate

import (
	"math"
	"path"
	"strings"
)

// Policy holds the limits applied to every candidate query.
type Policy struct {
	// DefaultRowCap is the row cap used when a query carries no LIMIT.
	DefaultRowCap int
	// MaxRowCap is the largest row count any query may return.
	MaxRowCap int
	// MaxFanOut is the largest estimated traversal fan-out accepted.
	MaxFanOut float64
	// HopFactor is the assumed branching factor of a single hop.
	HopFactor float64
	// MaxVarLength is the hop count assumed for unbounded variable-length
	// patterns such as [*] or [*2..].
	MaxVarLength int
	// AllowedProcedures are path.Match patterns for read-only procedures
	// that may be CALLed.
	AllowedProcedures []string
	// DeniedFunctions are path.Match patterns, lower case, for functions
	// that run dynamic Cypher or reach outside the graph.
	DeniedFunctions []string
}

// DefaultPolicy returns the production defaults.
func DefaultPolicy() Policy {
	return Policy{
		DefaultRowCap: 1000,
		MaxRowCap:     10000,
		MaxFanOut:     1e6,
		HopFactor:     10,
		MaxVarLength:  8,
		AllowedProcedures: []string{
			"db.labels",
			"db.relationshipTypes",
			"db.propertyKeys",
			"db.schema.*",
			"db.info",
			"dbms.components",
			"gds.*.stream",
			"gds.*.stats",
			"gds.graph.list",
		},
		DeniedFunctions: []string{
			"apoc.cypher.*",
			"apoc.create.*",
			"apoc.merge.*",
			"apoc.refactor.*",
			"apoc.periodic.*",
			"apoc.trigger.*",
			"apoc.load.*",
			"apoc.import.*",
			"apoc.export.*",
			"apoc.util.sleep",
			"apoc.nodes.delete",
			"db.create.*",
			"dbms.*",
		},
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.DefaultRowCap <= 0 {
		p.DefaultRowCap = d.DefaultRowCap
	}
	if p.MaxRowCap <= 0 {
		p.MaxRowCap = d.MaxRowCap
	}
	if p.DefaultRowCap > p.MaxRowCap {
		p.DefaultRowCap = p.MaxRowCap
	}
	if p.MaxFanOut <= 0 {
		p.MaxFanOut = d.MaxFanOut
	}
	if p.HopFactor <= 1 {
		p.HopFactor = d.HopFactor
	}
	if p.MaxVarLength <= 0 {
		p.MaxVarLength = d.MaxVarLength
	}
	if p.AllowedProcedures == nil {
		p.AllowedProcedures = d.AllowedProcedures
	}
	if p.DeniedFunctions == nil {
		p.DeniedFunctions = d.DeniedFunctions
	}
	return p
}

func (p Policy) procedureAllowed(name string) bool {
	for _, pattern := range p.AllowedProcedures {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// functionDenied ignores case, as Cypher does for function names.
func (p Policy) functionDenied(name string) bool {
	name = strings.ToLower(name)
	for _, pattern := range p.DeniedFunctions {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// hopCost is the fan-out weight of one hop: HopFactor per hop, raised to the
// upper bound for variable-length hops.
func (p Policy) hopCost(minHops, maxHops int, varLength, unbounded bool) float64 {
	if !varLength {
		return p.HopFactor
	}
	n := maxHops
	if unbounded || n > p.MaxVarLength {
		n = p.MaxVarLength
	}
	if n < minHops {
		n = minHops
	}
	if n < 1 {
		// [*0..0] matches the start node only
		return 1
	}
	return math.Pow(p.HopFactor, float64(n))
}
