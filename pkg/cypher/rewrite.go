package cypher

import (
	"strconv"
	"strings"
)

// AppendLimit returns the statement with a top-level LIMIT n added. UNION
// queries are wrapped in a subquery so the limit caps the combined result.
// A trailing procedure call that yields named columns is turned into an
// in-query call; one without YIELD cannot be limited and is returned as is.
func AppendLimit(a *Analysis, n int) string {
	body := strings.TrimRight(a.Statement, " \t\r\n")
	limit := strconv.Itoa(n)
	switch {
	case a.Union:
		return "CALL {\n" + body + "\n}\nRETURN *\nLIMIT " + limit
	case a.TrailingCall != nil && !a.TrailingCall.Yield:
		return body
	case a.TrailingCall != nil:
		return body + "\nRETURN *\nLIMIT " + limit
	}
	return body + "\nLIMIT " + limit
}

// ReplaceLimit rewrites the literal top-level LIMIT value to n. It returns
// the statement unchanged when the limit is absent or not a literal.
func ReplaceLimit(a *Analysis, n int) string {
	if a.Limit == nil || !a.Limit.Literal {
		return a.Statement
	}
	return a.Statement[:a.Limit.Start] + strconv.Itoa(n) + a.Statement[a.Limit.End:]
}
