package expr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenType int

const (
	eofToken tokenType = iota
	numberToken
	stringToken
	identToken
	puncToken
)

type token struct {
	kind tokenType
	v    string
	pos  int
}

func (t token) String() string {
	if t.kind == eofToken {
		return "end of expression"
	}

	return fmt.Sprintf("%q at %v", t.v, t.pos)
}

// operators, longest first so that "===" wins over "==".
var operators = []string{
	"===", "!==",
	"==", "!=", "<=", ">=", "&&", "||",
	"+", "-", "*", "/", "%", "<", ">", "!",
	"(", ")", "[", "]", ".", ",", "?", ":",
}

func isIdentStart(c rune) bool {
	return c == '_' || c == '$' || unicode.IsLetter(c)
}

func isIdentChar(c rune) bool {
	return isIdentStart(c) || unicode.IsDigit(c)
}

// tokenize splits an expression into numbers, string literals,
// identifiers and punctuation.
func tokenize(src string) (tokens []token, err error) {
	rs := []rune(src)
	for i := 0; i < len(rs); {
		c := rs[i]
		switch {
		case unicode.IsSpace(c):
			i++

		case unicode.IsDigit(c) || (c == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			dot := false
			for i < len(rs) && (unicode.IsDigit(rs[i]) || (rs[i] == '.' && !dot)) {
				if rs[i] == '.' {
					dot = true
				}
				i++
			}
			tokens = append(tokens, token{numberToken, string(rs[start:i]), start})

		case isIdentStart(c):
			start := i
			for i < len(rs) && isIdentChar(rs[i]) {
				i++
			}
			tokens = append(tokens, token{identToken, string(rs[start:i]), start})

		case c == '\'' || c == '"':
			start := i
			var sb strings.Builder
			i++
			for {
				if i >= len(rs) {
					return nil, fmt.Errorf("No matching quote for string at %v", start)
				}
				if rs[i] == c {
					i++
					break
				}
				if rs[i] == '\\' && i+1 < len(rs) {
					i++
					switch rs[i] {
					case 'n':
						sb.WriteRune('\n')
					case 't':
						sb.WriteRune('\t')
					default:
						sb.WriteRune(rs[i])
					}
					i++
					continue
				}
				sb.WriteRune(rs[i])
				i++
			}
			tokens = append(tokens, token{stringToken, sb.String(), start})

		default:
			matched := false
			for _, op := range operators {
				if strings.HasPrefix(string(rs[i:]), op) {
					tokens = append(tokens, token{puncToken, op, i})
					i += len([]rune(op))
					matched = true
					break
				}
			}

			if !matched {
				return nil, fmt.Errorf("Character %q is not allowed", c)
			}
		}
	}

	tokens = append(tokens, token{kind: eofToken, pos: len(rs)})
	return
}
