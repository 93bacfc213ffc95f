package compiler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/chr/internal/ir"
)

// ruleSyntax is a parsed rule before name resolution and type checking.
type ruleSyntax struct {
	name    string
	kept    []ir.Pattern
	removed []ir.Pattern
	guards  []guardSyntax
	body    []bodySyntax
	line    int
	col     int
}

// guardSyntax is one parsed guard. A top-level `V = e` or `V is e` keeps
// the variable and right-hand side apart: whether it binds or tests depends
// on whether V is already bound, which only the checker knows.
type guardSyntax struct {
	assign string
	rhs    ir.Expr
	expr   ir.Expr // the whole guard when assign is empty
	col    int
}

type bodySyntax struct {
	term ir.BodyTerm
	col  int
}

// parser is a recursive descent parser over the tokens of one line.
type parser struct {
	toks   []token
	pos    int
	source string
	line   int
}

func newParser(text string, line int, source string) (*parser, error) {
	toks, err := lexLine(text, line, source)
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks, source: source, line: line}, nil
}

// newParserAt parses text found at byte offset within a line, so reported
// columns point into the original line.
func newParserAt(text string, line int, source string, offset int) (*parser, error) {
	p, err := newParser(text, line, source)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			ce.Column += offset
		}
		return nil, err
	}
	for i := range p.toks {
		p.toks[i].col += offset
	}
	return p, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, code, format string, args ...any) *CompileError {
	if code == ErrSyntax && t.kind == tokEOF {
		code = ErrUnexpectedEOF
	}
	return &CompileError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Source:  p.source,
		Line:    p.line,
		Column:  t.col,
	}
}

func (p *parser) expect(op string) error {
	t := p.next()
	if !t.is(op) {
		return p.errorf(t, ErrSyntax, "expected %q, found %s", op, t)
	}
	return nil
}

// end accepts an optional trailing '.' and requires end of input.
func (p *parser) end() error {
	if p.peek().is(".") {
		p.next()
	}
	if t := p.peek(); t.kind != tokEOF {
		return p.errorf(t, ErrSyntax, "unexpected %s", t)
	}
	return nil
}

// rule parses
//
//	[name ('@'|':')] heads ['\' heads] ('<=>'|'==>') [guards '|'] body ['.']
func (p *parser) rule() (*ruleSyntax, error) {
	rs := &ruleSyntax{line: p.line, col: p.peek().col}

	if t := p.peek(); t.kind == tokIdent && (p.peekAt(1).is("@") || p.peekAt(1).is(":")) {
		rs.name = t.text
		p.pos += 2
	}

	first, err := p.patterns()
	if err != nil {
		return nil, err
	}

	var second []ir.Pattern
	simpagation := p.peek().is(`\`)
	if simpagation {
		p.next()
		if second, err = p.patterns(); err != nil {
			return nil, err
		}
	}

	arrow := p.next()
	switch {
	case arrow.is("<=>"):
		if simpagation {
			rs.kept, rs.removed = first, second
		} else {
			rs.removed = first
		}
	case arrow.is("==>"):
		if simpagation {
			return nil, p.errorf(arrow, ErrSyntax, "simpagation rules use '<=>', not '==>'")
		}
		rs.kept = first
	default:
		return nil, p.errorf(arrow, ErrMissingArrow, "expected '<=>' or '==>' after rule heads, found %s", arrow)
	}

	if p.hasGuardBar() {
		for {
			g, err := p.guard()
			if err != nil {
				return nil, err
			}
			rs.guards = append(rs.guards, g)
			if !p.peek().is(",") {
				break
			}
			p.next()
		}
		if err := p.expect("|"); err != nil {
			return nil, err
		}
	}

	for {
		b, err := p.bodyTerm()
		if err != nil {
			return nil, err
		}
		rs.body = append(rs.body, b)
		if !p.peek().is(",") {
			break
		}
		p.next()
	}

	if err := p.end(); err != nil {
		return nil, err
	}
	return rs, nil
}

// hasGuardBar reports whether a '|' follows at parenthesis depth zero.
func (p *parser) hasGuardBar() bool {
	depth := 0
	for _, t := range p.toks[p.pos:] {
		switch {
		case t.is("("):
			depth++
		case t.is(")"):
			depth--
		case t.is("|") && depth == 0:
			return true
		}
	}
	return false
}

func (p *parser) patterns() ([]ir.Pattern, error) {
	var ps []ir.Pattern
	for {
		pat, err := p.pattern()
		if err != nil {
			return nil, err
		}
		ps = append(ps, pat)
		if !p.peek().is(",") {
			return ps, nil
		}
		p.next()
	}
}

// pattern parses name or name(term, ...).
func (p *parser) pattern() (ir.Pattern, error) {
	t := p.next()
	if t.kind != tokIdent {
		return ir.Pattern{}, p.errorf(t, ErrSyntax, "expected a constraint name, found %s", t)
	}
	pat := ir.Pattern{Functor: t.text}
	if !p.peek().is("(") {
		return pat, nil
	}
	p.next()
	if p.peek().is(")") {
		p.next()
		return pat, nil
	}
	for {
		term, err := p.term()
		if err != nil {
			return ir.Pattern{}, err
		}
		pat.Args = append(pat.Args, term)
		if !p.peek().is(",") {
			break
		}
		p.next()
	}
	if err := p.expect(")"); err != nil {
		return ir.Pattern{}, err
	}
	return pat, nil
}

// term parses a head argument: variable, wildcard or constant.
func (p *parser) term() (ir.Term, error) {
	t := p.peek()
	switch t.kind {
	case tokVar:
		p.next()
		if t.text == "_" {
			return ir.Wildcard{}, nil
		}
		return ir.Var{Name: t.text}, nil
	case tokIdent, tokQuoted, tokInt:
		v, err := p.constant()
		if err != nil {
			return nil, err
		}
		return ir.Const{Value: v}, nil
	}
	if t.is("-") {
		v, err := p.constant()
		if err != nil {
			return nil, err
		}
		return ir.Const{Value: v}, nil
	}
	return nil, p.errorf(t, ErrSyntax, "expected a variable, number or atom, found %s", t)
}

// constant parses an integer (optionally negative) or an atom.
func (p *parser) constant() (ir.Value, error) {
	t := p.next()
	switch {
	case t.kind == tokIdent || t.kind == tokQuoted:
		return ir.Atom(t.text), nil
	case t.kind == tokInt:
		return p.integer(t, t.text)
	case t.is("-"):
		n := p.next()
		if n.kind != tokInt {
			return nil, p.errorf(n, ErrSyntax, "expected a number after '-', found %s", n)
		}
		return p.integer(t, "-"+n.text)
	case t.kind == tokVar:
		return nil, p.errorf(t, ErrNonGroundFact, "variable %s in a ground term", t.text)
	default:
		return nil, p.errorf(t, ErrSyntax, "expected a number or atom, found %s", t)
	}
}

func (p *parser) integer(at token, text string) (ir.Value, error) {
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, p.errorf(at, ErrSyntax, "integer %s out of range", text)
	}
	return ir.Int(n), nil
}

// guard parses one guard. `V = e` and `V is e` followed by the end of the
// guard are kept as candidate bindings.
func (p *parser) guard() (guardSyntax, error) {
	start := p.pos
	col := p.peek().col

	if v := p.peek(); v.kind == tokVar && v.text != "_" {
		if op := p.peekAt(1); op.is("=") || (op.kind == tokIdent && op.text == "is") {
			p.pos += 2
			rhs, err := p.additive()
			if err == nil && p.atGuardEnd() {
				return guardSyntax{assign: v.text, rhs: rhs, col: col}, nil
			}
			p.pos = start
		}
	}

	e, err := p.expr()
	if err != nil {
		return guardSyntax{}, err
	}
	return guardSyntax{expr: e, col: col}, nil
}

func (p *parser) atGuardEnd() bool {
	t := p.peek()
	return t.kind == tokEOF || t.is(",") || t.is("|") || t.is(")")
}

// bodyTerm parses name or name(expr, ...).
func (p *parser) bodyTerm() (bodySyntax, error) {
	t := p.next()
	if t.kind != tokIdent {
		return bodySyntax{}, p.errorf(t, ErrSyntax, "expected a constraint name in rule body, found %s", t)
	}
	b := bodySyntax{term: ir.BodyTerm{Functor: t.text}, col: t.col}
	if !p.peek().is("(") {
		return b, nil
	}
	p.next()
	if p.peek().is(")") {
		p.next()
		return b, nil
	}
	for {
		e, err := p.expr()
		if err != nil {
			return bodySyntax{}, err
		}
		b.term.Args = append(b.term.Args, e)
		if !p.peek().is(",") {
			break
		}
		p.next()
	}
	if err := p.expect(")"); err != nil {
		return bodySyntax{}, err
	}
	return b, nil
}

// Expression grammar, loosest first:
//
//	expr     = and {'||' and}
//	and      = compare {'&&' compare}
//	compare  = additive [cmpop additive]
//	additive = mul {('+'|'-') mul}
//	mul      = unary {('*'|'/'|'%') unary}
//	unary    = ('-'|'!') unary | primary
//	primary  = INT | VAR | ATOM | '(' expr ')'
func (p *parser) expr() (ir.Expr, error) {
	l, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.peek().is("||") {
		p.next()
		r, err := p.and()
		if err != nil {
			return nil, err
		}
		l = ir.Binary{Op: ir.OpOr, L: l, R: r}
	}
	return l, nil
}

func (p *parser) and() (ir.Expr, error) {
	l, err := p.compare()
	if err != nil {
		return nil, err
	}
	for p.peek().is("&&") {
		p.next()
		r, err := p.compare()
		if err != nil {
			return nil, err
		}
		l = ir.Binary{Op: ir.OpAnd, L: l, R: r}
	}
	return l, nil
}

// comparisons maps every accepted comparison spelling to its operator.
var comparisons = map[string]ir.BinaryOp{
	"<":   ir.OpLt,
	"<=":  ir.OpLe,
	"=<":  ir.OpLe,
	">":   ir.OpGt,
	">=":  ir.OpGe,
	"=":   ir.OpEq,
	"==":  ir.OpEq,
	"===": ir.OpEq,
	"!=":  ir.OpNe,
	"!==": ir.OpNe,
	`=\=`: ir.OpNe,
	`\=`:  ir.OpNe,
}

func (p *parser) compare() (ir.Expr, error) {
	l, err := p.additive()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	op, ok := comparisons[t.text]
	if t.kind == tokIdent && t.text == "is" {
		op, ok = ir.OpEq, true
	} else if t.kind != tokOp {
		ok = false
	}
	if !ok {
		return l, nil
	}
	p.next()
	r, err := p.additive()
	if err != nil {
		return nil, err
	}
	if n := p.peek(); n.kind == tokOp {
		if _, chained := comparisons[n.text]; chained {
			return nil, p.errorf(n, ErrSyntax, "comparisons cannot be chained; use &&")
		}
	}
	return ir.Binary{Op: op, L: l, R: r}, nil
}

func (p *parser) additive() (ir.Expr, error) {
	l, err := p.mul()
	if err != nil {
		return nil, err
	}
	for {
		var op ir.BinaryOp
		switch t := p.peek(); {
		case t.is("+"):
			op = ir.OpAdd
		case t.is("-"):
			op = ir.OpSub
		default:
			return l, nil
		}
		p.next()
		r, err := p.mul()
		if err != nil {
			return nil, err
		}
		l = ir.Binary{Op: op, L: l, R: r}
	}
}

func (p *parser) mul() (ir.Expr, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		var op ir.BinaryOp
		switch t := p.peek(); {
		case t.is("*"):
			op = ir.OpMul
		case t.is("/"):
			op = ir.OpDiv
		case t.is("%"):
			op = ir.OpMod
		default:
			return l, nil
		}
		p.next()
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		l = ir.Binary{Op: op, L: l, R: r}
	}
}

func (p *parser) unary() (ir.Expr, error) {
	t := p.peek()
	switch {
	case t.is("-") && p.peekAt(1).kind == tokInt:
		v, err := p.constant()
		if err != nil {
			return nil, err
		}
		return ir.Lit{Value: v}, nil
	case t.is("-"):
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return ir.Unary{Op: ir.OpNeg, X: x}, nil
	case t.is("!"):
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return ir.Unary{Op: ir.OpNot, X: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (ir.Expr, error) {
	t := p.next()
	switch t.kind {
	case tokInt:
		v, err := p.integer(t, t.text)
		if err != nil {
			return nil, err
		}
		return ir.Lit{Value: v}, nil
	case tokVar:
		if t.text == "_" {
			return nil, p.errorf(t, ErrWildcardInExpr, "wildcard '_' cannot be used in an expression")
		}
		return ir.VarRef{Name: t.text}, nil
	case tokIdent:
		if p.peek().is("(") {
			return nil, p.errorf(t, ErrSyntax, "%s(...) is not an expression; only constraints in the body take arguments", t.text)
		}
		return ir.Lit{Value: ir.Atom(t.text)}, nil
	case tokQuoted:
		return ir.Lit{Value: ir.Atom(t.text)}, nil
	}
	if t.is("(") {
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, p.errorf(t, ErrSyntax, "expected an expression, found %s", t)
}

// fact parses a ground constraint: name or name(const, ...).
func (p *parser) fact() (ir.Constraint, error) {
	t := p.next()
	if t.kind != tokIdent {
		return ir.Constraint{}, p.errorf(t, ErrSyntax, "expected a constraint name, found %s", t)
	}
	c := ir.Constraint{Functor: t.text}
	if p.peek().is("(") {
		p.next()
		for !p.peek().is(")") {
			v, err := p.constant()
			if err != nil {
				return ir.Constraint{}, err
			}
			c.Args = append(c.Args, v)
			if !p.peek().is(",") {
				break
			}
			p.next()
		}
		if err := p.expect(")"); err != nil {
			return ir.Constraint{}, err
		}
	}
	if err := p.end(); err != nil {
		return ir.Constraint{}, err
	}
	return ir.NewConstraint(c.Functor, c.Args...), nil
}
