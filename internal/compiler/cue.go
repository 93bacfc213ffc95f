package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/chr/internal/ir"
)

// cueRule is the struct form of a rule in a CUE program.
type cueRule struct {
	Name   string   `json:"name"`
	Keep   []string `json:"keep"`
	Remove []string `json:"remove"`
	Guard  []string `json:"guard"`
	Body   []string `json:"body"`
}

// CompileCUE compiles a CUE program. Uses CUE SDK's Go API directly (not
// CLI subprocess).
//
// The program has a `rules` list whose elements are inline-grammar strings
// or structs, and an optional `facts` list of ground constraint strings:
//
//	rules: [
//		"start @ upto(N) <=> count(0, N)",
//		{name: "step", remove: ["count(I, N)"], guard: ["I < N"], body: ["count(I + 1, N)"]},
//	]
//	facts: ["upto(5)"]
//
// CUE constraints and definitions may be used freely; only the evaluated
// rules and facts fields are read.
func CompileCUE(src []byte, source string) (*ir.Program, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(source))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, source)
	}
	return CompileCUEValue(v, source)
}

// CompileCUEValue compiles an already evaluated CUE value.
func CompileCUEValue(v cue.Value, source string) (*ir.Program, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, source)
	}

	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &CompileError{Code: ErrCUE, Message: "rules is required", Source: source}
	}
	iter, err := rulesVal.List()
	if err != nil {
		return nil, formatCUEError(err, source)
	}

	prog := &ir.Program{}
	var lines []int
	for iter.Next() {
		elem := iter.Value()
		line := elem.Pos().Line()

		var r ir.Rule
		switch elem.Kind() {
		case cue.StringKind:
			text, err := elem.String()
			if err != nil {
				return nil, formatCUEError(err, source)
			}
			r, err = parseRuleLine(text, line, source)
			if err != nil {
				return nil, err
			}
		case cue.StructKind:
			var cr cueRule
			if err := elem.Decode(&cr); err != nil {
				return nil, formatCUEError(err, source)
			}
			r, err = compileCUERule(cr, line, source)
			if err != nil {
				return nil, err
			}
		default:
			return nil, &CompileError{
				Code:    ErrCUE,
				Message: fmt.Sprintf("rules[%s] must be a string or a struct, found %s", iter.Selector(), elem.Kind()),
				Source:  source,
				Line:    line,
			}
		}
		prog.Rules = append(prog.Rules, r)
		lines = append(lines, line)
	}
	if err := checkProgram(prog.Rules, lines, source); err != nil {
		return nil, err
	}

	factsVal := v.LookupPath(cue.ParsePath("facts"))
	if factsVal.Exists() {
		var facts []string
		if err := factsVal.Decode(&facts); err != nil {
			return nil, formatCUEError(err, source)
		}
		line := factsVal.Pos().Line()
		for _, f := range facts {
			c, err := parseFactLine(f, line, source)
			if err != nil {
				return nil, err
			}
			prog.Facts = append(prog.Facts, c)
		}
	}

	return prog, nil
}

func compileCUERule(cr cueRule, line int, source string) (ir.Rule, error) {
	rs := &ruleSyntax{name: cr.Name, line: line}

	patterns := func(texts []string) ([]ir.Pattern, error) {
		var ps []ir.Pattern
		for _, t := range texts {
			p, err := newParser(t, line, source)
			if err != nil {
				return nil, err
			}
			pat, err := p.pattern()
			if err != nil {
				return nil, err
			}
			if err := p.end(); err != nil {
				return nil, err
			}
			ps = append(ps, pat)
		}
		return ps, nil
	}

	var err error
	if rs.kept, err = patterns(cr.Keep); err != nil {
		return ir.Rule{}, err
	}
	if rs.removed, err = patterns(cr.Remove); err != nil {
		return ir.Rule{}, err
	}

	for _, t := range cr.Guard {
		p, err := newParser(t, line, source)
		if err != nil {
			return ir.Rule{}, err
		}
		g, err := p.guard()
		if err != nil {
			return ir.Rule{}, err
		}
		if err := p.end(); err != nil {
			return ir.Rule{}, err
		}
		rs.guards = append(rs.guards, g)
	}

	for _, t := range cr.Body {
		p, err := newParser(t, line, source)
		if err != nil {
			return ir.Rule{}, err
		}
		b, err := p.bodyTerm()
		if err != nil {
			return ir.Rule{}, err
		}
		if err := p.end(); err != nil {
			return ir.Rule{}, err
		}
		rs.body = append(rs.body, b)
	}

	return resolve(rs, source)
}
