package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chr/internal/ir"
)

// =============================================================================
// Inline Grammar Tests
// =============================================================================

func TestParseRule_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simplification", "start @ upto(N) <=> count(0, N)", "start @ upto(N) <=> count(0, N)"},
		{"colon name and trailing dot", "step : count(I, N) <=> I < N | count(I+1, N).", "step @ count(I, N) <=> I < N | count(I + 1, N)"},
		{"unnamed propagation", "edge(X,Y), edge(Y,Z) ==> path(X,Z)", "edge(X, Y), edge(Y, Z) ==> path(X, Z)"},
		{"simpagation", `gcd(N) \ gcd(M) <=> N =< M | gcd(M - N)`, `gcd(N) \ gcd(M) <=> N <= M | gcd(M - N)`},
		{"modulo guard", "sift @ prime(X), prime(Y) <=> Y > X, Y % X == 0 | prime(X)", "sift @ prime(X), prime(Y) <=> Y > X, Y % X == 0 | prime(X)"},
		{"zero arity", "go <=> done", "go <=> done"},
		{"true body", "stop @ upto(N) <=> N =< 1 | true", "stop @ upto(N) <=> N <= 1 | true"},
		{"wildcard and constants", "p(_, red, -1, X) <=> q(X)", "p(_, red, -1, X) <=> q(X)"},
		{"logical precedence", "p(X) <=> X > 1 && X < 10 || X == 0 | q(X)", "p(X) <=> X > 1 && X < 10 || X == 0 | q(X)"},
		{"parentheses kept where needed", "p(X) <=> q((X + 1) * 2)", "p(X) <=> q((X + 1) * 2)"},
		{"not", "p(X) <=> !(X > 1) | q", "p(X) <=> !(X > 1) | q"},
		{"trailing comment", "p(X) <=> q(X) # done", "p(X) <=> q(X)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseRule(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.String())

			again, err := ParseRule(r.String())
			require.NoError(t, err, "printed rule must re-parse")
			assert.Equal(t, r.String(), again.String())
		})
	}
}

func TestParseRule_Heads(t *testing.T) {
	r, err := ParseRule(`a(X), b(X) \ c(X, _), d <=> true`)
	require.NoError(t, err)

	assert.Equal(t, ir.Simpagation, r.Kind())
	require.Len(t, r.Kept, 2)
	require.Len(t, r.Removed, 2)
	assert.Equal(t, "a", r.Kept[0].Functor)
	assert.Equal(t, ir.Wildcard{}, r.Removed[0].Args[1])
	assert.Empty(t, r.Removed[1].Args)
	assert.Equal(t, []ir.BodyTerm{{Functor: "true"}}, r.Body)
}

func TestParseRule_ComparisonAliases(t *testing.T) {
	tests := []struct {
		guard string
		op    ir.BinaryOp
	}{
		{"X < Y", ir.OpLt},
		{"X <= Y", ir.OpLe},
		{"X =< Y", ir.OpLe},
		{"X > Y", ir.OpGt},
		{"X >= Y", ir.OpGe},
		{"X == Y", ir.OpEq},
		{"X === Y", ir.OpEq},
		{"X != Y", ir.OpNe},
		{"X !== Y", ir.OpNe},
		{`X =\= Y`, ir.OpNe},
		{`X \= Y`, ir.OpNe},
	}
	for _, tt := range tests {
		t.Run(tt.guard, func(t *testing.T) {
			r, err := ParseRule("p(X), q(Y) <=> " + tt.guard + " | r")
			require.NoError(t, err)
			require.Len(t, r.Guards, 1)
			assert.Equal(t, ir.GuardTest, r.Guards[0].Kind)
			assert.Equal(t, tt.op, r.Guards[0].Expr.(ir.Binary).Op)
		})
	}
}

func TestParseRule_BindGuards(t *testing.T) {
	t.Run("is binds an unbound variable", func(t *testing.T) {
		r, err := ParseRule("add @ a(X), b(Y) <=> Z is X + Y | sum(Z)")
		require.NoError(t, err)
		require.Len(t, r.Guards, 1)
		assert.Equal(t, ir.GuardBind, r.Guards[0].Kind)
		assert.Equal(t, "Z", r.Guards[0].Var)
		assert.Equal(t, "add @ a(X), b(Y) <=> Z = X + Y | sum(Z)", r.String())
	})

	t.Run("= binds and later guards see the variable", func(t *testing.T) {
		r, err := ParseRule("p(X) <=> Y = X * 2, Y > 4 | q(Y)")
		require.NoError(t, err)
		require.Len(t, r.Guards, 2)
		assert.Equal(t, ir.GuardBind, r.Guards[0].Kind)
		assert.Equal(t, ir.GuardTest, r.Guards[1].Kind)
	})

	t.Run("= on a bound variable tests equality", func(t *testing.T) {
		r, err := ParseRule("p(X), q(Y) <=> X = Y | r(X)")
		require.NoError(t, err)
		require.Len(t, r.Guards, 1)
		assert.Equal(t, ir.GuardTest, r.Guards[0].Kind)
		assert.Equal(t, "p(X), q(Y) <=> X == Y | r(X)", r.String())
	})

	t.Run("is on a bound variable tests equality", func(t *testing.T) {
		r, err := ParseRule("p(X, Y) <=> Y is X + 1 | q")
		require.NoError(t, err)
		assert.Equal(t, ir.GuardTest, r.Guards[0].Kind)
	})

	t.Run("= inside a larger expression is equality", func(t *testing.T) {
		r, err := ParseRule("p(X) <=> X = 1 || X = 2 | q")
		require.NoError(t, err)
		require.Len(t, r.Guards, 1)
		assert.Equal(t, ir.GuardTest, r.Guards[0].Kind)
		assert.Equal(t, "X == 1 || X == 2", r.Guards[0].Expr.String())
	})
}

func TestParseRule_BodyExpressions(t *testing.T) {
	r, err := ParseRule("p(X) <=> q(X + 1, -X, 7 / 2, done)")
	require.NoError(t, err)
	require.Len(t, r.Body, 1)
	args := r.Body[0].Args
	require.Len(t, args, 4)
	assert.Equal(t, ir.Binary{Op: ir.OpAdd, L: ir.VarRef{Name: "X"}, R: ir.Lit{Value: ir.Int(1)}}, args[0])
	assert.Equal(t, ir.Unary{Op: ir.OpNeg, X: ir.VarRef{Name: "X"}}, args[1])
	assert.Equal(t, ir.Lit{Value: ir.Atom("done")}, args[3])
}

func TestParseRule_NegativeLiteralFolds(t *testing.T) {
	r, err := ParseRule("p(X) <=> X > -3 | q(X - -3)")
	require.NoError(t, err)
	assert.Equal(t, ir.Lit{Value: ir.Int(-3)}, r.Guards[0].Expr.(ir.Binary).R)
}

// =============================================================================
// Error Tests
// =============================================================================

func requireCompileError(t *testing.T, err error, code string) *CompileError {
	t.Helper()
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce, "error %v is not a CompileError", err)
	assert.Equal(t, code, ce.Code, "error: %v", err)
	return ce
}

func TestParseRule_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code string
	}{
		{"missing arrow", "upto(N) count(0, N)", ErrMissingArrow},
		{"missing arrow at end", "upto(N), count(0, N)", ErrMissingArrow},
		{"unbound body variable", "p(X) <=> q(Y)", ErrUnboundVariable},
		{"unbound guard variable", "p(X) <=> Y > 1 | q(X)", ErrUnboundVariable},
		{"bind guard uses later variable", "p(X) <=> Y = Z, Z = X | q(Y)", ErrUnboundVariable},
		{"value guard", "p(X) <=> X + 1 | q(X)", ErrTypeMismatch},
		{"boolean body argument", "p(X) <=> q(X > 1)", ErrTypeMismatch},
		{"value in logical operator", "p(X) <=> X > 1 && X | q", ErrTypeMismatch},
		{"not of a value", "p(X) <=> !X | q", ErrTypeMismatch},
		{"wildcard in guard", "p(X) <=> _ > 1 | q", ErrWildcardInExpr},
		{"sentinel with arguments", "p(X) <=> true(X)", ErrSentinelArgs},
		{"simpagation with propagation arrow", `a \ b ==> c`, ErrSyntax},
		{"chained comparison", "p(X) <=> 1 < X < 3 | q", ErrSyntax},
		{"trailing junk", "p(X) <=> q(X) r", ErrSyntax},
		{"missing body", "p(X) <=>", ErrUnexpectedEOF},
		{"unclosed head", "p(X <=> q", ErrSyntax},
		{"call in guard", "p(X) <=> f(X) > 1 | q", ErrSyntax},
		{"head starts with variable", "X <=> q", ErrSyntax},
		{"integer overflow", "p(99999999999999999999) <=> q", ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRule(tt.in)
			requireCompileError(t, err, tt.code)
		})
	}
}

func TestParseRules_MissingArrowPosition(t *testing.T) {
	src := "% counting\nstart @ upto(N) <=> count(0, N)\nupto(N) count(0, N)\n"

	rules, err := ParseRules(src, "count.chr")

	assert.Nil(t, rules, "no rules on error")
	ce := requireCompileError(t, err, ErrMissingArrow)
	assert.Equal(t, "count.chr", ce.Source)
	assert.Equal(t, 3, ce.Line)
	assert.Equal(t, 9, ce.Column)
	assert.Contains(t, err.Error(), "count.chr:3:9: [E201]")
}

func TestParseRules_CollectsAllErrors(t *testing.T) {
	src := "p(X) <=> q(Y)\nok @ a <=> b\nr(X) s(X)\n"

	_, err := ParseRules(src, "bad.chr")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.chr:1:")
	assert.Contains(t, err.Error(), "bad.chr:3:")
	assert.NotContains(t, err.Error(), "bad.chr:2:")
}

func TestParseRules_DuplicateNames(t *testing.T) {
	_, err := ParseRules("r @ a <=> b\n\nr @ b <=> c\n", "dup.chr")

	ce := requireCompileError(t, err, ErrDuplicateRule)
	assert.Equal(t, 3, ce.Line)
}

func TestParseRules_SkipsBlankAndCommentLines(t *testing.T) {
	src := `
% counting from zero
# another comment
// and another

start @ upto(N) <=> count(0, N)
step  @ count(I, N) <=> I < N | count(I + 1, N)
done  @ count(I, N) <=> I >= N | counted(I)
`
	rules, err := ParseRules(src, "")
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, []string{"start", "step", "done"}, []string{rules[0].Name, rules[1].Name, rules[2].Name})
}

// =============================================================================
// Fact Tests
// =============================================================================

func TestParseFacts(t *testing.T) {
	src := "upto(5)\nprime(-3).\n\n% ignored\ncolor(red, 'Dark Blue')\ngo\nempty()\n"

	facts, err := ParseFacts(src, "facts.txt")
	require.NoError(t, err)

	assert.Equal(t, []string{"upto(5)", "prime(-3)", "color(red, Dark Blue)", "go", "empty"}, ir.Strings(facts))
	assert.Equal(t, ir.Atom("Dark Blue"), facts[2].Args[1])
}

func TestParseFacts_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code string
	}{
		{"variable", "p(X)", ErrNonGroundFact},
		{"unclosed", "p(1", ErrUnexpectedEOF},
		{"expression", "p(1 + 2)", ErrSyntax},
		{"rule", "p <=> q", ErrSyntax},
		{"number as functor", "5(1)", ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFacts(tt.in, "")
			requireCompileError(t, err, tt.code)
		})
	}
}

func TestParseFact(t *testing.T) {
	c, err := ParseFact("gcd(9)")
	require.NoError(t, err)
	assert.True(t, c.Equal(ir.NewConstraint("gcd", ir.Int(9))))
}
