// Package validate decides whether a candidate query may run against the
// graph store. Checks run in a fixed order: syntax, schema references,
// write operations, row cap and estimated cost. A query that passes is
// returned in sanitized form with a guaranteed top-level row limit.
package validate

import (
	"fmt"
	"strings"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/cypher"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
)

// Verdict is the outcome of validating one candidate.
//
// For accepted candidates Query is the sanitized text to execute and RowCap
// the number of rows the caller may return. The sanitized query may produce
// one row more than RowCap so the executor can tell whether the result was
// truncated. For rejected candidates Reason and Message describe the first
// failed check.
type Verdict struct {
	Accepted        bool                  `json:"accepted"`
	Candidate       common.CandidateQuery `json:"candidate"`
	Query           string                `json:"query,omitempty"`
	RowCap          int                   `json:"row_cap,omitempty"`
	LimitInjected   bool                  `json:"limit_injected,omitempty"`
	EstimatedFanOut float64               `json:"estimated_fan_out,omitempty"`
	Warnings        []string              `json:"warnings,omitempty"`
	Reason          common.ErrorKind      `json:"reason,omitempty"`
	Message         string                `json:"message,omitempty"`
}

// Err returns the rejection as a classified error, or nil when accepted.
func (v Verdict) Err() error {
	if v.Accepted {
		return nil
	}
	return common.Errorf(v.Reason, "validate.Validate", "%s", v.Message)
}

func rejected(c common.CandidateQuery, kind common.ErrorKind, format string, args ...any) Verdict {
	return Verdict{Candidate: c, Reason: kind, Message: fmt.Sprintf(format, args...)}
}

type Validator struct {
	policy Policy
}

func NewValidator(policy Policy) *Validator {
	return &Validator{policy: policy.withDefaults()}
}

func (v *Validator) Policy() Policy {
	return v.policy
}

// Validate runs every check against one candidate.
func (v *Validator) Validate(c common.CandidateQuery, snap *catalog.Snapshot) Verdict {
	a, err := cypher.Analyze(c.Query)
	if err != nil {
		return rejected(c, common.ErrSyntaxError, "%v", err)
	}
	// a standalone call without named columns cannot take a LIMIT
	if a.TrailingCall != nil && !a.TrailingCall.Yield {
		return rejected(c, common.ErrSyntaxError, "procedure %s must YIELD named columns", a.TrailingCall.Name)
	}

	if msg := checkReferences(a, snap); msg != "" {
		return rejected(c, common.ErrUnknownSchemaReference, "%s", msg)
	}

	if len(a.Writes) > 0 {
		return rejected(c, common.ErrWriteNotAllowed, "%s is not allowed in a read-only query", firstWrite(a.Writes))
	}
	for _, proc := range a.Procedures {
		if !v.policy.procedureAllowed(proc) {
			return rejected(c, common.ErrWriteNotAllowed, "procedure %q is not on the read-only allow list", proc)
		}
	}
	for _, fn := range a.Functions {
		if v.policy.functionDenied(fn) {
			return rejected(c, common.ErrWriteNotAllowed, "function %q is not allowed in a read-only query", fn)
		}
	}

	verdict := Verdict{Accepted: true, Candidate: c}
	v.capRows(a, &verdict)

	verdict.EstimatedFanOut = v.fanOut(a)
	if verdict.EstimatedFanOut > v.policy.MaxFanOut {
		return rejected(c, common.ErrQueryTooExpensive,
			"estimated fan-out %.0f exceeds the limit of %.0f", verdict.EstimatedFanOut, v.policy.MaxFanOut)
	}
	return verdict
}

// capRows guarantees a top-level LIMIT. The emitted limit is one above the
// row cap so truncation stays observable.
func (v *Validator) capRows(a *cypher.Analysis, verdict *Verdict) {
	p := v.policy
	switch {
	case a.Limit == nil:
		verdict.RowCap = p.DefaultRowCap
		verdict.Query = cypher.AppendLimit(a, p.DefaultRowCap+1)
		verdict.LimitInjected = true
	case !a.Limit.Literal:
		verdict.RowCap = p.MaxRowCap
		verdict.Query = a.Statement
		verdict.Warnings = append(verdict.Warnings, fmt.Sprintf("non-literal LIMIT, result capped at %d rows", p.MaxRowCap))
	case a.Limit.Value > int64(p.MaxRowCap):
		verdict.RowCap = p.MaxRowCap
		verdict.Query = cypher.ReplaceLimit(a, p.MaxRowCap+1)
		verdict.Warnings = append(verdict.Warnings, fmt.Sprintf("LIMIT %d lowered to %d", a.Limit.Value, p.MaxRowCap))
	default:
		verdict.RowCap = int(a.Limit.Value)
		verdict.Query = a.Statement
	}
}

// fanOut multiplies hop costs within a clause and sums the clauses.
func (v *Validator) fanOut(a *cypher.Analysis) float64 {
	perClause := make(map[int]float64)
	for _, h := range a.Hops {
		cost := v.policy.hopCost(h.Min, h.Max, h.VarLength, h.Unbounded)
		if prev, ok := perClause[h.Clause]; ok {
			perClause[h.Clause] = prev * cost
		} else {
			perClause[h.Clause] = cost
		}
	}
	total := 0.0
	for _, c := range perClause {
		total += c
	}
	return total
}

func firstWrite(writes []string) string {
	if len(writes) > 1 && writes[0] == "DETACH" && writes[1] == "DELETE" {
		return "DETACH DELETE"
	}
	return writes[0]
}

func suggest(name string, known []string) string {
	for _, k := range known {
		if strings.EqualFold(k, name) {
			return fmt.Sprintf(" (did you mean %q?)", k)
		}
	}
	return ""
}

func relationshipNames(snap *catalog.Snapshot) []string {
	out := make([]string, len(snap.Relationships))
	for i, r := range snap.Relationships {
		out[i] = r.Name
	}
	return out
}

func propertyExists(snap *catalog.Snapshot, ref cypher.PropertyRef) bool {
	for _, l := range ref.Labels {
		if _, ok := snap.LabelProperty(l, ref.Key); ok {
			return true
		}
	}
	for _, t := range ref.Types {
		if _, ok := snap.RelationshipProperty(t, ref.Key); ok {
			return true
		}
	}
	return false
}

// checkReferences returns a description of the first label, relationship
// type or property key the snapshot does not know, or "".
//
// A property of a variable bound to labels or relationship types must exist
// on one of them. A property of a variable whose labels are unknown must
// exist somewhere in the schema.
func checkReferences(a *cypher.Analysis, snap *catalog.Snapshot) string {
	for _, l := range a.Labels {
		if !snap.HasLabel(l) {
			return fmt.Sprintf("unknown label %q%s", l, suggest(l, snap.LabelNames()))
		}
	}
	for _, t := range a.RelationshipTypes {
		if !snap.HasRelationship(t) {
			return fmt.Sprintf("unknown relationship type %q%s", t, suggest(t, relationshipNames(snap)))
		}
	}
	for _, ref := range a.Properties {
		if len(ref.Labels) == 0 && len(ref.Types) == 0 {
			if !snap.HasProperty(ref.Key) {
				return fmt.Sprintf("unknown property %q on %s", ref.Key, ref.Variable)
			}
			continue
		}
		if !propertyExists(snap, ref) {
			owner := strings.Join(append(append([]string(nil), ref.Labels...), ref.Types...), "|")
			return fmt.Sprintf("unknown property %q on %s", ref.Key, owner)
		}
	}
	return ""
}

// Select validates candidates in rank order and returns the first accepted
// verdict. When none is accepted it returns the rejection of the first
// (highest-ranked) candidate.
func (v *Validator) Select(candidates []common.CandidateQuery, snap *catalog.Snapshot) Verdict {
	if len(candidates) == 0 {
		return Verdict{Reason: common.ErrNoCandidateProduced, Message: "no candidate queries to validate"}
	}

	var first Verdict
	for i, c := range candidates {
		verdict := v.Validate(c, snap)
		if verdict.Accepted {
			if i > 0 {
				logger.Debug("Accepted lower ranked candidate", "rank", i, "confidence", c.Confidence)
			}
			return verdict
		}
		logger.Debug("Candidate rejected", "rank", i, "reason", verdict.Reason, "message", verdict.Message)
		if i == 0 {
			first = verdict
		}
	}
	return first
}
