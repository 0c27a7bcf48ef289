// Package cypher statically inspects Cypher query text: it checks the overall
// statement shape and extracts the labels, relationship types, property keys,
// traversal hops, write clauses, procedure and function calls a query refers
// to.
//
// The analysis is token based and deliberately permissive about expressions.
// Anything it cannot prove malformed is left for the store to reject.
package cypher

import (
	"slices"
	"strconv"
	"strings"
)

type Direction int

const (
	DirectionNone Direction = iota
	DirectionOutgoing
	DirectionIncoming
	DirectionBoth
)

// Hop is one relationship step of a pattern. Fixed-length hops have
// Min == Max == 1. Unbounded is set for "*" and "*n.." ranges.
type Hop struct {
	Variable  string
	Types     []string
	Min       int
	Max       int
	VarLength bool
	Unbounded bool
	Direction Direction
	Clause    int
}

// PropertyRef is a property key read through a pattern variable or written
// inline in a pattern map. Labels and Types are what the variable was bound
// to when the key was referenced.
type PropertyRef struct {
	Variable string
	Key      string
	Labels   []string
	Types    []string
	Pos      int
}

// Limit describes the LIMIT that applies to the final result. Start and End
// delimit the literal value in Statement when Literal is set.
type Limit struct {
	Literal bool
	Value   int64
	Start   int
	End     int
}

// Call is a procedure call that ends the statement on its own. Yield is set
// when it names the columns it yields.
type Call struct {
	Name  string
	Yield bool
}

// Analysis is the static summary of one query.
type Analysis struct {
	// Statement is the query text without a trailing semicolon.
	Statement         string
	Clauses           []string
	Labels            []string
	RelationshipTypes []string
	Properties        []PropertyRef
	Hops              []Hop
	Writes            []string
	Procedures        []string
	Functions         []string
	Union             bool
	Limit             *Limit
	// TrailingCall is set when the statement ends in a standalone
	// procedure call.
	TrailingCall *Call
}

// References lists every label and relationship type, labels first.
func (a *Analysis) References() []string {
	out := make([]string, 0, len(a.Labels)+len(a.RelationshipTypes))
	out = append(out, a.Labels...)
	return append(out, a.RelationshipTypes...)
}

var clauseKeywords = map[string]bool{
	"MATCH": true, "OPTIONAL": true, "WHERE": true, "WITH": true, "UNWIND": true,
	"RETURN": true, "ORDER": true, "SKIP": true, "LIMIT": true, "UNION": true,
	"CALL": true, "YIELD": true, "FINISH": true,
	"EXPLAIN": true, "PROFILE": true,
	"CREATE": true, "MERGE": true, "DELETE": true, "DETACH": true, "SET": true,
	"REMOVE": true, "DROP": true, "FOREACH": true, "LOAD": true,
	"ALTER": true, "GRANT": true, "DENY": true, "REVOKE": true, "TERMINATE": true,
}

// WriteKeywords are clauses that can change data or the database itself.
var WriteKeywords = map[string]bool{
	"CREATE": true, "MERGE": true, "DELETE": true, "DETACH": true, "SET": true,
	"REMOVE": true, "DROP": true, "FOREACH": true, "LOAD": true,
	"ALTER": true, "GRANT": true, "DENY": true, "REVOKE": true, "TERMINATE": true,
}

// sub-clauses never start or end a query part on their own
var subClauses = map[string]bool{
	"WHERE": true, "ORDER": true, "SKIP": true, "LIMIT": true, "YIELD": true,
	"EXPLAIN": true, "PROFILE": true,
}

var patternKeywords = map[string]bool{
	"AND": true, "OR": true, "XOR": true, "NOT": true, "DISTINCT": true,
}

// operators that may be followed by a parenthesis without being a call
var notFunctions = map[string]bool{
	"AND": true, "OR": true, "XOR": true, "NOT": true, "DISTINCT": true,
	"IN": true, "IS": true, "AS": true, "BY": true, "CASE": true, "WHEN": true,
	"THEN": true, "ELSE": true, "END": true, "STARTS": true, "ENDS": true,
	"CONTAINS": true,
}

type binding struct {
	labels []string
	types  []string
}

type local struct {
	name  string
	depth int
}

type analyzer struct {
	toks   []Token
	depth  []int
	match  []int
	clause []bool
	used   []bool

	a      *Analysis
	seenL  map[string]bool
	seenT  map[string]bool
	scope  map[string]*binding
	locals []local

	curClause  int
	curKeyword string
	pending    map[string]*binding
	pendingAt  int
}

// Analyze parses query and returns its static summary, or a *SyntaxError.
func Analyze(query string) (*Analysis, error) {
	toks, err := Lex(query)
	if err != nil {
		return nil, err
	}

	statement := query
	if n := len(toks); n >= 2 && toks[n-2].is(";") {
		statement = query[:toks[n-2].Pos]
		toks = append(toks[:n-2], Token{Kind: TokenEOF, Pos: len(statement)})
	}
	for _, t := range toks {
		if t.is(";") {
			return nil, syntaxErrorf(t.Pos, "multiple statements are not supported")
		}
	}
	if len(toks) == 1 {
		return nil, syntaxErrorf(0, "empty query")
	}

	z := &analyzer{
		toks:      toks,
		depth:     make([]int, len(toks)),
		match:     make([]int, len(toks)),
		clause:    make([]bool, len(toks)),
		used:      make([]bool, len(toks)),
		a:         &Analysis{Statement: statement},
		seenL:     make(map[string]bool),
		seenT:     make(map[string]bool),
		scope:     make(map[string]*binding),
		curClause: -1,
		pendingAt: -1,
	}
	if err := z.brackets(); err != nil {
		return nil, err
	}
	z.classify()
	if err := z.checkShape(); err != nil {
		return nil, err
	}
	z.scan()
	z.findFunctions()
	z.findTrailingCall()
	z.findLimit()
	return z.a, nil
}

func (z *analyzer) brackets() error {
	pairs := map[string]string{")": "(", "]": "[", "}": "{"}
	var stack []int
	for i, t := range z.toks {
		z.match[i] = -1
		if t.Kind != TokenPunct {
			z.depth[i] = len(stack)
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			z.depth[i] = len(stack)
			stack = append(stack, i)
		case ")", "]", "}":
			if len(stack) == 0 {
				return syntaxErrorf(t.Pos, "unexpected %q", t.Text)
			}
			open := stack[len(stack)-1]
			if z.toks[open].Text != pairs[t.Text] {
				return syntaxErrorf(t.Pos, "%q does not close %q", t.Text, z.toks[open].Text)
			}
			stack = stack[:len(stack)-1]
			z.depth[i] = len(stack)
			z.match[i] = open
			z.match[open] = i
		default:
			z.depth[i] = len(stack)
		}
	}
	if len(stack) > 0 {
		open := z.toks[stack[len(stack)-1]]
		return syntaxErrorf(open.Pos, "unclosed %q", open.Text)
	}
	return nil
}

func (z *analyzer) nameContext(i int) bool {
	if i > 0 {
		prev := z.toks[i-1]
		if prev.is(".") || prev.is(":") || prev.is("|") || prev.is("&") {
			return true
		}
	}
	return z.toks[i+1].is(":")
}

func (z *analyzer) classify() {
	for i, t := range z.toks {
		kw := t.upper()
		if !clauseKeywords[kw] || z.nameContext(i) {
			continue
		}
		if i > 0 {
			p := z.toks[i-1].upper()
			if p == "AS" || (kw == "WITH" && (p == "STARTS" || p == "ENDS")) {
				continue
			}
		}
		z.clause[i] = true
	}
}

func (z *analyzer) kw(i int) string {
	if !z.clause[i] {
		return ""
	}
	return z.toks[i].upper()
}

// endsOperand reports whether token i cannot start the argument of a clause.
func (z *analyzer) endsOperand(i int) bool {
	return z.toks[i].Kind == TokenEOF || z.clause[i] || z.toks[i].is(")") || z.toks[i].is("}")
}

func (z *analyzer) checkShape() error {
	first := 0
	for z.kw(first) == "EXPLAIN" || z.kw(first) == "PROFILE" {
		first++
	}
	if !z.clause[first] || subClauses[z.kw(first)] {
		return syntaxErrorf(z.toks[first].Pos, "query must start with a clause, found %q", z.toks[first].Text)
	}

	lastMain := ""
	for i, t := range z.toks {
		kw := z.kw(i)
		if kw == "" {
			continue
		}
		next := z.toks[i+1]
		switch kw {
		case "OPTIONAL":
			if z.kw(i+1) != "MATCH" {
				return syntaxErrorf(t.Pos, "OPTIONAL must be followed by MATCH")
			}
		case "MATCH", "MERGE", "CREATE":
			// MERGE ... ON CREATE SET / ON MATCH SET
			if i > 0 && z.toks[i-1].upper() == "ON" {
				break
			}
			if z.clause[i+1] || (!next.is("(") && next.Kind != TokenIdent) {
				return syntaxErrorf(t.Pos, "%s must be followed by a pattern", kw)
			}
		case "ORDER":
			if next.upper() != "BY" {
				return syntaxErrorf(t.Pos, "ORDER must be followed by BY")
			}
			if z.endsOperand(i + 2) {
				return syntaxErrorf(t.Pos, "ORDER BY without an expression")
			}
		case "RETURN", "WITH", "UNWIND", "WHERE", "SKIP", "LIMIT", "YIELD", "DELETE", "SET", "REMOVE":
			if z.endsOperand(i + 1) {
				return syntaxErrorf(t.Pos, "%s without an expression", kw)
			}
		}

		if z.depth[i] != 0 || subClauses[kw] {
			continue
		}
		if kw == "UNION" {
			if lastMain != "RETURN" {
				return syntaxErrorf(t.Pos, "each part of a UNION must end with RETURN")
			}
			if next.upper() == "ALL" {
				next = z.toks[i+2]
			}
			if next.Kind == TokenEOF {
				return syntaxErrorf(t.Pos, "UNION without a following query")
			}
			lastMain = ""
			continue
		}
		lastMain = kw
	}

	switch {
	case lastMain == "RETURN", lastMain == "CALL", lastMain == "FINISH", WriteKeywords[lastMain]:
		return nil
	default:
		return syntaxErrorf(len(z.a.Statement), "query must end with RETURN, found %s", lastMain)
	}
}

func (z *analyzer) addLabel(name string) {
	if !z.seenL[name] {
		z.seenL[name] = true
		z.a.Labels = append(z.a.Labels, name)
	}
}

func (z *analyzer) addType(name string) {
	if !z.seenT[name] {
		z.seenT[name] = true
		z.a.RelationshipTypes = append(z.a.RelationshipTypes, name)
	}
}

func (z *analyzer) addWrite(name string) {
	if !slices.Contains(z.a.Writes, name) {
		z.a.Writes = append(z.a.Writes, name)
	}
}

func (z *analyzer) bind(name string, labels, types []string) {
	if name == "" {
		return
	}
	b, ok := z.scope[name]
	if !ok {
		b = &binding{}
		z.scope[name] = b
	}
	for _, l := range labels {
		if !slices.Contains(b.labels, l) {
			b.labels = append(b.labels, l)
		}
	}
	for _, t := range types {
		if !slices.Contains(b.types, t) {
			b.types = append(b.types, t)
		}
	}
}

func (z *analyzer) isLocal(name string) bool {
	for _, l := range z.locals {
		if l.name == name {
			return true
		}
	}
	return false
}

func (z *analyzer) scan() {
	for i := 0; i < len(z.toks); i++ {
		if i == z.pendingAt {
			z.scope = z.pending
			z.pending, z.pendingAt = nil, -1
		}
		t := z.toks[i]

		if z.clause[i] {
			z.enterClause(i)
			continue
		}

		switch t.Kind {
		case TokenPunct:
			switch t.Text {
			case "(":
				z.nodePattern(i)
			case "[":
				if i > 0 && z.toks[i-1].is("-") {
					z.relPattern(i)
				}
			case "-":
				z.bareHop(i)
			case ")", "]", "}":
				d := z.depth[i]
				z.locals = slices.DeleteFunc(z.locals, func(l local) bool { return l.depth > d })
			}
		case TokenIdent:
			if z.used[i] {
				continue
			}
			z.identifier(i)
		}
	}
}

func (z *analyzer) enterClause(i int) {
	kw := z.toks[i].upper()
	z.a.Clauses = append(z.a.Clauses, kw)
	z.curClause = len(z.a.Clauses) - 1
	z.curKeyword = kw

	if WriteKeywords[kw] {
		if kw == "LOAD" && z.toks[i+1].upper() == "CSV" {
			z.addWrite("LOAD CSV")
		} else {
			z.addWrite(kw)
		}
	}

	switch kw {
	case "UNION":
		if z.depth[i] == 0 {
			z.a.Union = true
			z.scope = make(map[string]*binding)
		}
	case "WITH":
		if z.depth[i] == 0 {
			z.pending, z.pendingAt = z.projectScope(i)
		}
	case "CALL":
		z.procedure(i)
	case "UNWIND":
		z.unwind(i)
	}
}

// dottedName reads a namespaced name such as apoc.cypher.run starting at j.
// It returns the name and the index of its last token.
func (z *analyzer) dottedName(j int) (string, int) {
	parts := []string{z.toks[j].Text}
	for z.toks[j+1].is(".") && z.toks[j+2].Kind == TokenIdent {
		parts = append(parts, z.toks[j+2].Text)
		j += 2
	}
	return strings.Join(parts, "."), j
}

func (z *analyzer) procedure(i int) {
	j := i + 1
	if z.toks[j].Kind != TokenIdent {
		return
	}
	name, last := z.dottedName(j)
	for k := j; k <= last; k += 2 {
		z.used[k] = true
	}
	z.a.Procedures = append(z.a.Procedures, name)
}

// unwind binds the alias of the UNWIND at i. Unwinding a variable or a
// collect() of one keeps its labels. The elements of nodes() and
// relationships() are entities of unknown label. Any other list holds plain
// values and leaves the alias unbound.
func (z *analyzer) unwind(i int) {
	end := z.nextClause(i+1, z.depth[i])
	if end-i < 4 || z.toks[end-2].upper() != "AS" || z.toks[end-1].Kind != TokenIdent {
		return
	}
	alias := z.toks[end-1].Text
	z.used[end-1] = true
	switch b := z.source(i+1, end-2); {
	case b != nil:
		z.scope[alias] = &binding{labels: slices.Clone(b.labels), types: slices.Clone(b.types)}
	case z.pathElements(i+1, end-2):
		z.scope[alias] = &binding{}
	default:
		delete(z.scope, alias)
	}
}

func (z *analyzer) pathElements(s, e int) bool {
	if e-s < 3 || !z.toks[s+1].is("(") || z.match[s+1] != e-1 {
		return false
	}
	name := strings.ToLower(z.toks[s].Text)
	return name == "nodes" || name == "relationships"
}

// source returns the binding behind the expression toks[s:e] when it is a
// bound variable or collect([DISTINCT] variable).
func (z *analyzer) source(s, e int) *binding {
	switch {
	case e-s == 1 && z.toks[s].Kind == TokenIdent:
		return z.scope[z.toks[s].Text]
	case e-s >= 4 && strings.EqualFold(z.toks[s].Text, "collect") && z.toks[s+1].is("(") && z.match[s+1] == e-1:
		arg := s + 2
		if z.toks[arg].upper() == "DISTINCT" {
			arg++
		}
		if arg == e-2 && z.toks[arg].Kind == TokenIdent {
			return z.scope[z.toks[arg].Text]
		}
	}
	return nil
}

// nextClause returns the index of the next clause keyword at depth d, the
// closing bracket of the enclosing scope, or EOF.
func (z *analyzer) nextClause(from, d int) int {
	for k := from; k < len(z.toks); k++ {
		if z.toks[k].Kind == TokenEOF || z.depth[k] < d || (z.clause[k] && z.depth[k] == d) {
			return k
		}
	}
	return len(z.toks) - 1
}

// projectScope computes the variable bindings visible after the WITH at i.
func (z *analyzer) projectScope(i int) (map[string]*binding, int) {
	d := z.depth[i]
	end := z.nextClause(i+1, d)
	next := make(map[string]*binding)

	start := i + 1
	if z.toks[start].upper() == "DISTINCT" {
		start++
	}
	for k := start; k <= end; k++ {
		if k == end || (z.toks[k].is(",") && z.depth[k] == d) {
			z.projectItem(start, k, next)
			start = k + 1
		}
	}
	return next, end
}

func (z *analyzer) projectItem(s, e int, next map[string]*binding) {
	n := e - s
	switch {
	case n == 1 && z.toks[s].is("*"):
		for k, v := range z.scope {
			next[k] = v
		}
	case n == 1 && z.toks[s].Kind == TokenIdent:
		if b, ok := z.scope[z.toks[s].Text]; ok {
			next[z.toks[s].Text] = b
		}
	case n >= 3 && z.toks[e-2].upper() == "AS" && z.toks[e-1].Kind == TokenIdent:
		// a collected list keeps the labels of its elements for a later UNWIND
		if b := z.source(s, e-2); b != nil {
			next[z.toks[e-1].Text] = b
		}
	}
}

func (z *analyzer) patternContext(i int) bool {
	if i == 0 {
		return true
	}
	prev := z.toks[i-1]
	switch prev.Kind {
	case TokenPunct:
		switch prev.Text {
		case "(", "-", ">", "<", ",", "=", "[", "{", "|":
			return true
		}
	case TokenIdent:
		return z.clause[i-1] || patternKeywords[prev.upper()]
	}
	return false
}

// labelList reads a label or type expression starting at j, which must be
// the ":" token. It returns the names, their token indices and the index
// after the expression; ok is false when the expression is malformed.
func (z *analyzer) labelList(j int) (names []string, idx []int, next int, ok bool) {
	j++
	for {
		for z.toks[j].is("!") {
			j++
		}
		if z.toks[j].Kind != TokenIdent {
			return nil, nil, j, false
		}
		names = append(names, z.toks[j].Text)
		idx = append(idx, j)
		j++
		if z.toks[j].is("|") || z.toks[j].is("&") || z.toks[j].is(":") {
			j++
			if z.toks[j].is(":") {
				j++
			}
			continue
		}
		return names, idx, j, true
	}
}

// mapKeys returns the indices of the keys of the map literal opened at j.
func (z *analyzer) mapKeys(j int) []int {
	var keys []int
	d := z.depth[j] + 1
	for k := j + 1; k < z.match[j]; k++ {
		if z.depth[k] != d || z.toks[k].Kind != TokenIdent || !z.toks[k+1].is(":") {
			continue
		}
		if p := z.toks[k-1]; p.is("{") || p.is(",") {
			keys = append(keys, k)
		}
	}
	return keys
}

func (z *analyzer) nodePattern(i int) {
	end := z.match[i]
	if !z.patternContext(i) {
		return
	}

	j := i + 1
	name, nameIdx := "", -1
	if z.toks[j].Kind == TokenIdent && !z.clause[j] {
		name, nameIdx = z.toks[j].Text, j
		j++
	}
	var labels []string
	var labelIdx []int
	if z.toks[j].is(":") {
		var ok bool
		labels, labelIdx, j, ok = z.labelList(j)
		if !ok {
			return
		}
	}
	var keys []int
	switch {
	case z.toks[j].is("{"):
		keys = z.mapKeys(j)
		j = z.match[j] + 1
	case z.toks[j].Kind == TokenParam:
		j++
	}
	if z.toks[j].upper() == "WHERE" {
		j = end
	}
	if j != end {
		return
	}

	if nameIdx >= 0 {
		z.used[nameIdx] = true
	}
	for _, k := range labelIdx {
		z.used[k] = true
	}
	for _, l := range labels {
		z.addLabel(l)
	}
	if name != "" && !z.isLocal(name) {
		z.bind(name, labels, nil)
		if b := z.scope[name]; b != nil {
			labels = b.labels
		}
	}
	for _, k := range keys {
		z.used[k] = true
		z.a.Properties = append(z.a.Properties, PropertyRef{
			Variable: name,
			Key:      z.toks[k].Text,
			Labels:   slices.Clone(labels),
			Pos:      z.toks[k].Pos,
		})
	}
}

func (z *analyzer) relPattern(i int) {
	end := z.match[i]
	j := i + 1
	name, nameIdx := "", -1
	if z.toks[j].Kind == TokenIdent && !z.clause[j] {
		name, nameIdx = z.toks[j].Text, j
		j++
	}
	var types []string
	var typeIdx []int
	if z.toks[j].is(":") {
		var ok bool
		types, typeIdx, j, ok = z.labelList(j)
		if !ok {
			return
		}
	}

	hop := Hop{Variable: name, Types: types, Min: 1, Max: 1, Clause: z.curClause}
	if z.toks[j].is("*") {
		hop.VarLength = true
		hop.Unbounded = true
		j++
		if n, ok := z.intAt(j); ok {
			hop.Min, hop.Max, hop.Unbounded = n, n, false
			j++
			if z.toks[j].is("..") {
				hop.Unbounded = true
				j++
				if m, ok := z.intAt(j); ok {
					hop.Max, hop.Unbounded = m, false
					j++
				}
			}
		} else if z.toks[j].is("..") {
			j++
			if m, ok := z.intAt(j); ok {
				hop.Max, hop.Unbounded = m, false
				j++
			}
		}
	}
	var keys []int
	switch {
	case z.toks[j].is("{"):
		keys = z.mapKeys(j)
		j = z.match[j] + 1
	case z.toks[j].Kind == TokenParam:
		j++
	}
	if z.toks[j].upper() == "WHERE" {
		j = end
	}
	if j != end {
		return
	}

	left := i >= 2 && z.toks[i-2].is("<")
	right := z.toks[end+1].is("-") && z.toks[end+2].is(">")
	switch {
	case left && right:
		hop.Direction = DirectionBoth
	case left:
		hop.Direction = DirectionIncoming
	case right:
		hop.Direction = DirectionOutgoing
	}
	z.a.Hops = append(z.a.Hops, hop)

	if nameIdx >= 0 {
		z.used[nameIdx] = true
	}
	for _, k := range typeIdx {
		z.used[k] = true
	}
	for _, t := range types {
		z.addType(t)
	}
	if name != "" && !z.isLocal(name) {
		z.bind(name, nil, types)
		if b := z.scope[name]; b != nil {
			types = b.types
		}
	}
	for _, k := range keys {
		z.used[k] = true
		z.a.Properties = append(z.a.Properties, PropertyRef{
			Variable: name,
			Key:      z.toks[k].Text,
			Types:    slices.Clone(types),
			Pos:      z.toks[k].Pos,
		})
	}
}

// bareHop records relationships written without brackets: --, -->, <--.
func (z *analyzer) bareHop(i int) {
	if !z.toks[i+1].is("-") || i == 0 {
		return
	}
	left := z.toks[i-1].is("<") && i >= 2 && z.toks[i-2].is(")")
	if !left && !z.toks[i-1].is(")") {
		return
	}
	right := z.toks[i+2].is(">")
	after := i + 2
	if right {
		after++
	}
	if !z.toks[after].is("(") {
		return
	}

	hop := Hop{Min: 1, Max: 1, Clause: z.curClause}
	switch {
	case left && right:
		hop.Direction = DirectionBoth
	case left:
		hop.Direction = DirectionIncoming
	case right:
		hop.Direction = DirectionOutgoing
	}
	z.a.Hops = append(z.a.Hops, hop)
}

func (z *analyzer) intAt(j int) (int, bool) {
	if z.toks[j].Kind != TokenNumber {
		return 0, false
	}
	n, err := strconv.Atoi(z.toks[j].Text)
	if err != nil {
		return 0, false
	}
	return n, true
}

// innermost returns the bracket that encloses token i, or "" at top level.
func (z *analyzer) innermost(i int) string {
	d := z.depth[i]
	if d == 0 {
		return ""
	}
	for k := i - 1; k >= 0; k-- {
		if z.depth[k] == d-1 && z.match[k] > i {
			return z.toks[k].Text
		}
	}
	return ""
}

func (z *analyzer) identifier(i int) {
	t := z.toks[i]
	next := z.toks[i+1]

	if z.curKeyword == "YIELD" {
		delete(z.scope, t.Text)
		return
	}

	if t.upper() == "TRANSACTIONS" && i > 0 && !z.nameContext(i) {
		z.addWrite("IN TRANSACTIONS")
		return
	}

	// n:Label predicate
	if next.is(":") && z.toks[i+2].Kind == TokenIdent && z.innermost(i) != "{" {
		if i > 0 && z.toks[i-1].is(".") {
			return
		}
		names, idx, _, ok := z.labelList(i + 1)
		if !ok {
			return
		}
		for k, name := range names {
			z.used[idx[k]] = true
			z.addLabel(name)
		}
		return
	}

	// x IN list inside a comprehension, reduce or quantifier
	if next.upper() == "IN" && z.depth[i] > 0 && i > 0 {
		if p := z.toks[i-1]; p.is("(") || p.is("[") || p.is(",") {
			z.locals = append(z.locals, local{name: t.Text, depth: z.depth[i]})
			return
		}
	}

	if i > 0 && z.toks[i-1].is(".") {
		return
	}
	if z.isLocal(t.Text) {
		return
	}
	// properties of a bound variable without labels are checked against
	// the whole schema
	b, bound := z.scope[t.Text]
	if !bound {
		return
	}

	switch {
	case next.is(".") && z.toks[i+2].Kind == TokenIdent && !z.toks[i+3].is("("):
		z.addProperty(t.Text, b, i+2)
	case next.is("{") && z.innermost(i) != "{":
		open := i + 1
		d := z.depth[open] + 1
		for k := open + 1; k < z.match[open]; k++ {
			if z.depth[k] == d && z.toks[k].is(".") && z.toks[k+1].Kind == TokenIdent {
				if p := z.toks[k-1]; p.is("{") || p.is(",") {
					z.addProperty(t.Text, b, k+1)
				}
			}
		}
	}
}

func (z *analyzer) addProperty(variable string, b *binding, keyIdx int) {
	z.used[keyIdx] = true
	z.a.Properties = append(z.a.Properties, PropertyRef{
		Variable: variable,
		Key:      z.toks[keyIdx].Text,
		Labels:   slices.Clone(b.labels),
		Types:    slices.Clone(b.types),
		Pos:      z.toks[keyIdx].Pos,
	})
}

// findFunctions records every name called as a function, namespaced names
// in full.
func (z *analyzer) findFunctions() {
	for i := 0; i < len(z.toks); i++ {
		t := z.toks[i]
		if t.Kind != TokenIdent || z.clause[i] || notFunctions[t.upper()] {
			continue
		}
		if i > 0 && (z.toks[i-1].is(".") || z.toks[i-1].is(":")) {
			continue
		}
		name, last := z.dottedName(i)
		if z.toks[last+1].is("(") && !slices.Contains(z.a.Procedures, name) && !slices.Contains(z.a.Functions, name) {
			z.a.Functions = append(z.a.Functions, name)
		}
		i = last
	}
}

func (z *analyzer) findTrailingCall() {
	if z.a.Union {
		return
	}
	last := -1
	for i := range z.toks {
		if kw := z.kw(i); kw != "" && z.depth[i] == 0 && !subClauses[kw] {
			last = i
		}
	}
	if last < 0 || z.kw(last) != "CALL" || z.toks[last+1].Kind != TokenIdent {
		return
	}
	name, _ := z.dottedName(last + 1)
	call := &Call{Name: name}
	for k := last + 1; k < len(z.toks); k++ {
		// YIELD * is only valid in a standalone call
		if z.kw(k) == "YIELD" && z.depth[k] == 0 && !z.toks[k+1].is("*") {
			call.Yield = true
		}
	}
	z.a.TrailingCall = call
}

func (z *analyzer) findLimit() {
	if z.a.Union {
		return
	}
	lastReturn := -1
	for i := range z.toks {
		if z.kw(i) == "RETURN" && z.depth[i] == 0 {
			lastReturn = i
		}
	}
	if lastReturn < 0 {
		return
	}
	for i := lastReturn + 1; i < len(z.toks); i++ {
		if z.kw(i) != "LIMIT" || z.depth[i] != 0 {
			continue
		}
		end := z.nextClause(i+1, 0)
		lim := &Limit{}
		if end == i+2 && z.toks[i+1].Kind == TokenNumber {
			if v, err := strconv.ParseInt(z.toks[i+1].Text, 10, 64); err == nil {
				lim.Literal = true
				lim.Value = v
				lim.Start = z.toks[i+1].Pos
				lim.End = lim.Start + len(z.toks[i+1].Text)
			}
		}
		z.a.Limit = lim
		return
	}
}
