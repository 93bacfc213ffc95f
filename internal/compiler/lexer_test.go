package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTexts(toks []token) []string {
	var out []string
	for _, t := range toks {
		if t.kind != tokEOF {
			out = append(out, t.text)
		}
	}
	return out
}

func TestLexLine_Operators(t *testing.T) {
	toks, err := lexLine(`a(X) \ b <=> X =\= 1, Y \= 2, Z =< 3 | c.`, 1, "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a", "(", "X", ")", `\`, "b", "<=>",
		"X", `=\=`, "1", ",", "Y", `\=`, "2", ",", "Z", "=<", "3", "|", "c", ".",
	}, tokenTexts(toks))
}

func TestLexLine_MaximalMunch(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"<=>", []string{"<=>"}},
		{"<= >", []string{"<=", ">"}},
		{"==>", []string{"==>"}},
		{"=== !==", []string{"===", "!=="}},
		{"|| |", []string{"||", "|"}},
		{"&&!", []string{"&&", "!"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			toks, err := lexLine(tt.in, 1, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, tokenTexts(toks))
		})
	}
}

func TestLexLine_Kinds(t *testing.T) {
	toks, err := lexLine(`foo Bar _ _x 42 'Hello World'`, 1, "")
	require.NoError(t, err)
	require.Len(t, toks, 7)

	kinds := []tokenKind{tokIdent, tokVar, tokVar, tokVar, tokInt, tokQuoted, tokEOF}
	for i, k := range kinds {
		assert.Equal(t, k, toks[i].kind, "token %d (%s)", i, toks[i])
	}
	assert.Equal(t, "Hello World", toks[5].text)
}

func TestLexLine_Columns(t *testing.T) {
	toks, err := lexLine("  p(X)", 1, "")
	require.NoError(t, err)
	assert.Equal(t, 3, toks[0].col)
	assert.Equal(t, 5, toks[2].col)
}

func TestLexLine_Comments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"percent line", "% a comment <=>", nil},
		{"indented percent line", "   % a comment", nil},
		{"hash", "p <=> q # trailing", []string{"p", "<=>", "q"}},
		{"slashes", "p <=> q // trailing", []string{"p", "<=>", "q"}},
		{"percent is modulo inside a rule", "Y % X", []string{"Y", "%", "X"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := lexLine(tt.in, 1, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, tokenTexts(toks))
		})
	}
}

func TestLexLine_Errors(t *testing.T) {
	_, err := lexLine("p('open", 3, "rules.chr")
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrSyntax, ce.Code)
	assert.Equal(t, 3, ce.Line)
	assert.Equal(t, 3, ce.Column)
	assert.Contains(t, ce.Error(), "rules.chr:3:3")

	_, err = lexLine("p <=> q;", 1, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unexpected character ';'`)
}

func TestIsBlank(t *testing.T) {
	for _, line := range []string{"", "   ", "% x", "# x", "// x", "\t"} {
		assert.True(t, isBlank(line), "%q", line)
	}
	assert.False(t, isBlank("p <=> q"))
}
