package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokenKind classifies lexer tokens.
type tokenKind int

const (
	tokEOF    tokenKind = iota
	tokIdent            // lowercase-leading identifier: functor, atom or keyword
	tokVar              // uppercase- or '_'-leading identifier
	tokInt              // decimal integer, unsigned
	tokQuoted           // 'single quoted' atom
	tokOp               // punctuation and operators
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokVar:
		return "variable"
	case tokInt:
		return "integer"
	case tokQuoted:
		return "quoted atom"
	default:
		return "operator"
	}
}

type token struct {
	kind tokenKind
	text string
	col  int // 1-based column of the first byte
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.text)
}

// is reports whether t is the operator op.
func (t token) is(op string) bool {
	return t.kind == tokOp && t.text == op
}

// operators, longest first so that maximal munch picks '<=>' over '<='.
var operators = []string{
	"<=>", "==>", "===", "!==", `=\=`,
	"=<", "<=", ">=", "==", "!=", `\=`, "&&", "||",
	"@", ":", ",", "(", ")", "|", `\`, ".",
	"+", "-", "*", "/", "%", "<", ">", "=", "!",
}

// lexLine tokenizes one line of rule or fact text.
//
// '#' and '//' start a comment anywhere; '%' starts a comment only as the
// first non-blank character, since it is also the modulo operator.
func lexLine(line string, lineNo int, source string) ([]token, error) {
	if strings.HasPrefix(strings.TrimSpace(line), "%") {
		return []token{{kind: tokEOF, col: len(line) + 1}}, nil
	}

	var toks []token
	i := 0
	for i < len(line) {
		r, size := utf8.DecodeRuneInString(line[i:])
		col := i + 1

		switch {
		case unicode.IsSpace(r):
			i += size
			continue

		case r == '#' || strings.HasPrefix(line[i:], "//"):
			i = len(line)
			continue

		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(line) {
				r, size := utf8.DecodeRuneInString(line[i:])
				if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
			text := line[start:i]
			kind := tokIdent
			if r == '_' || unicode.IsUpper(r) {
				kind = tokVar
			}
			toks = append(toks, token{kind: kind, text: text, col: col})
			continue

		case r >= '0' && r <= '9':
			start := i
			for i < len(line) && line[i] >= '0' && line[i] <= '9' {
				i++
			}
			toks = append(toks, token{kind: tokInt, text: line[start:i], col: col})
			continue

		case r == '\'':
			end := strings.IndexByte(line[i+1:], '\'')
			if end < 0 {
				return nil, &CompileError{
					Code:    ErrSyntax,
					Message: "unterminated quoted atom",
					Source:  source,
					Line:    lineNo,
					Column:  col,
				}
			}
			toks = append(toks, token{kind: tokQuoted, text: line[i+1 : i+1+end], col: col})
			i += end + 2
			continue
		}

		op := matchOperator(line[i:])
		if op == "" {
			return nil, &CompileError{
				Code:    ErrSyntax,
				Message: fmt.Sprintf("unexpected character %q", r),
				Source:  source,
				Line:    lineNo,
				Column:  col,
			}
		}
		toks = append(toks, token{kind: tokOp, text: op, col: col})
		i += len(op)
	}

	return append(toks, token{kind: tokEOF, col: len(line) + 1}), nil
}

func matchOperator(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

// isBlank reports whether a line holds nothing but whitespace or a comment.
func isBlank(line string) bool {
	t := strings.TrimSpace(line)
	return t == "" || t[0] == '%' || t[0] == '#' || strings.HasPrefix(t, "//")
}
