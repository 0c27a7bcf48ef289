package cypher

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenString
	TokenNumber
	TokenParam
	TokenPunct
)

// Token is one lexical unit of a query. Quoted is set for backtick names,
// whose Text holds the unquoted name.
type Token struct {
	Kind   TokenKind
	Text   string
	Pos    int
	Quoted bool
}

// upper returns the keyword form of an unquoted identifier.
func (t Token) upper() string {
	if t.Kind != TokenIdent || t.Quoted {
		return ""
	}
	return strings.ToUpper(t.Text)
}

func (t Token) is(punct string) bool {
	return t.Kind == TokenPunct && t.Text == punct
}

// SyntaxError reports malformed query text at a byte offset.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

func syntaxErrorf(pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

var multiPunct = []string{"..", "<>", "<=", ">=", "=~", "+=", "::"}

const singlePunct = "()[]{},:;.|*+-/%^=<>&!"

// Lex splits query into tokens, dropping whitespace and comments. The last
// token is always TokenEOF.
func Lex(query string) ([]Token, error) {
	var tokens []Token
	i := 0
	for i < len(query) {
		r, size := utf8.DecodeRuneInString(query[i:])
		switch {
		case unicode.IsSpace(r):
			i += size

		case strings.HasPrefix(query[i:], "//"):
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				i = len(query)
			} else {
				i += end + 1
			}

		case strings.HasPrefix(query[i:], "/*"):
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				return nil, syntaxErrorf(i, "unterminated comment")
			}
			i += 2 + end + 2

		case r == '\'' || r == '"':
			text, next, err := lexString(query, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Kind: TokenString, Text: text, Pos: i})
			i = next

		case r == '`':
			text, next, err := lexQuotedName(query, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Kind: TokenIdent, Text: text, Pos: i, Quoted: true})
			i = next

		case r == '$':
			j := i + 1
			for j < len(query) && isIdentPart(rune(query[j])) {
				j++
			}
			if j == i+1 {
				return nil, syntaxErrorf(i, "parameter without a name")
			}
			tokens = append(tokens, Token{Kind: TokenParam, Text: query[i+1 : j], Pos: i})
			i = j

		case r >= '0' && r <= '9':
			j := lexNumber(query, i)
			tokens = append(tokens, Token{Kind: TokenNumber, Text: query[i:j], Pos: i})
			i = j

		case r == '_' || unicode.IsLetter(r):
			j := i + size
			for j < len(query) {
				rr, sz := utf8.DecodeRuneInString(query[j:])
				if !isIdentPart(rr) {
					break
				}
				j += sz
			}
			tokens = append(tokens, Token{Kind: TokenIdent, Text: query[i:j], Pos: i})
			i = j

		default:
			matched := false
			for _, p := range multiPunct {
				if strings.HasPrefix(query[i:], p) {
					tokens = append(tokens, Token{Kind: TokenPunct, Text: p, Pos: i})
					i += len(p)
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			if r < utf8.RuneSelf && strings.IndexByte(singlePunct, byte(r)) >= 0 {
				tokens = append(tokens, Token{Kind: TokenPunct, Text: string(r), Pos: i})
				i += size
				continue
			}
			return nil, syntaxErrorf(i, "unexpected character %q", r)
		}
	}
	tokens = append(tokens, Token{Kind: TokenEOF, Pos: len(query)})
	return tokens, nil
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func lexString(query string, start int) (string, int, error) {
	quote := query[start]
	var b strings.Builder
	i := start + 1
	for i < len(query) {
		c := query[i]
		switch {
		case c == '\\' && i+1 < len(query):
			b.WriteByte(query[i+1])
			i += 2
		case c == quote:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, syntaxErrorf(start, "unterminated string")
}

// lexQuotedName reads a backtick name. A doubled backtick inside it stands
// for one backtick.
func lexQuotedName(query string, start int) (string, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(query) {
		end := strings.IndexByte(query[i:], '`')
		if end < 0 {
			break
		}
		b.WriteString(query[i : i+end])
		i += end + 1
		if i < len(query) && query[i] == '`' {
			b.WriteByte('`')
			i++
			continue
		}
		return b.String(), i, nil
	}
	return "", 0, syntaxErrorf(start, "unterminated quoted name")
}

// lexNumber scans an integer or float. "1..3" lexes as 1, "..", 3.
func lexNumber(query string, i int) int {
	j := i
	for j < len(query) && query[j] >= '0' && query[j] <= '9' {
		j++
	}
	if j+1 < len(query) && query[j] == '.' && query[j+1] >= '0' && query[j+1] <= '9' {
		j++
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
	}
	if j < len(query) && (query[j] == 'e' || query[j] == 'E') {
		k := j + 1
		if k < len(query) && (query[k] == '+' || query[k] == '-') {
			k++
		}
		if k < len(query) && query[k] >= '0' && query[k] <= '9' {
			for k < len(query) && query[k] >= '0' && query[k] <= '9' {
				k++
			}
			j = k
		}
	}
	return j
}
