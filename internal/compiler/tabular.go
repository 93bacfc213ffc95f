package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/chr/internal/ir"
)

// ParseTabular compiles the tab-separated rule format:
//
//	name <TAB> heads <TAB> guards <TAB> body
//
// Heads are removed heads. In the guards column plain constraints are kept
// heads and parenthesised items are guard expressions. In the body column
// parenthesised items must be computed bindings such as (Z = X + Y); they
// run after the guards, in column order. Commas inside parentheses do not
// split items.
func ParseTabular(src, source string) ([]ir.Rule, error) {
	var rules []ir.Rule
	var lines []int
	var errs []error
	for i, line := range strings.Split(src, "\n") {
		if isBlank(line) {
			continue
		}
		r, err := parseTabularLine(line, i+1, source)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rules = append(rules, r)
		lines = append(lines, i+1)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := checkProgram(rules, lines, source); err != nil {
		return nil, err
	}
	return rules, nil
}

func parseTabularLine(line string, lineNo int, source string) (ir.Rule, error) {
	line = strings.TrimRight(line, "\r")
	columns := strings.Split(line, "\t")
	if len(columns) != 4 {
		return ir.Rule{}, &CompileError{
			Code:    ErrTabularColumns,
			Message: fmt.Sprintf("expected 4 tab-separated columns (name, heads, guards, body), found %d", len(columns)),
			Source:  source,
			Line:    lineNo,
		}
	}

	offsets := make([]int, 4)
	for i := 1; i < 4; i++ {
		offsets[i] = offsets[i-1] + len(columns[i-1]) + 1
	}

	rs := &ruleSyntax{name: strings.TrimSpace(columns[0]), line: lineNo, col: 1}
	cellErr := func(c cell, format string, args ...any) error {
		return &CompileError{
			Code:    ErrTabularCell,
			Message: fmt.Sprintf(format, args...),
			Source:  source,
			Line:    lineNo,
			Column:  c.offset + 1,
		}
	}

	for _, c := range splitCells(columns[1], offsets[1]) {
		if c.parenthesised() {
			return ir.Rule{}, cellErr(c, "heads column holds constraints only, found %s", c.text)
		}
		pat, err := parseCellPattern(c, lineNo, source)
		if err != nil {
			return ir.Rule{}, err
		}
		rs.removed = append(rs.removed, pat)
	}

	for _, c := range splitCells(columns[2], offsets[2]) {
		if !c.parenthesised() {
			pat, err := parseCellPattern(c, lineNo, source)
			if err != nil {
				return ir.Rule{}, err
			}
			rs.kept = append(rs.kept, pat)
			continue
		}
		g, err := parseCellGuard(c, lineNo, source)
		if err != nil {
			return ir.Rule{}, err
		}
		rs.guards = append(rs.guards, g)
	}

	var bindings []guardSyntax
	for _, c := range splitCells(columns[3], offsets[3]) {
		if c.parenthesised() {
			g, err := parseCellGuard(c, lineNo, source)
			if err != nil {
				return ir.Rule{}, err
			}
			if g.assign == "" {
				return ir.Rule{}, cellErr(c, "computed body items must bind a variable, as in (Z = X + Y); found %s", c.text)
			}
			bindings = append(bindings, g)
			continue
		}
		p, err := newParserAt(c.text, lineNo, source, c.offset)
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
	rs.guards = append(rs.guards, bindings...)

	return resolve(rs, source)
}

func parseCellPattern(c cell, lineNo int, source string) (ir.Pattern, error) {
	p, err := newParserAt(c.text, lineNo, source, c.offset)
	if err != nil {
		return ir.Pattern{}, err
	}
	pat, err := p.pattern()
	if err != nil {
		return ir.Pattern{}, err
	}
	if err := p.end(); err != nil {
		return ir.Pattern{}, err
	}
	return pat, nil
}

// parseCellGuard parses a parenthesised item as one guard.
func parseCellGuard(c cell, lineNo int, source string) (guardSyntax, error) {
	text, offset := c.text, c.offset
	if wrapped(text) {
		text, offset = text[1:len(text)-1], offset+1
	}
	p, err := newParserAt(text, lineNo, source, offset)
	if err != nil {
		return guardSyntax{}, err
	}
	g, err := p.guard()
	if err != nil {
		return guardSyntax{}, err
	}
	if err := p.end(); err != nil {
		return guardSyntax{}, err
	}
	return g, nil
}

// cell is one comma-separated item of a tabular column.
type cell struct {
	text   string
	offset int // byte offset of text within the line
}

func (c cell) parenthesised() bool {
	return strings.HasPrefix(c.text, "(")
}

// splitCells splits a column on commas at parenthesis depth zero, dropping
// empty items.
func splitCells(column string, offset int) []cell {
	var cells []cell
	depth, start := 0, 0
	flush := func(end int) {
		raw := column[start:end]
		text := strings.TrimSpace(raw)
		if text != "" {
			lead := len(raw) - len(strings.TrimLeft(raw, " \t"))
			cells = append(cells, cell{text: text, offset: offset + start + lead})
		}
	}
	for i := 0; i < len(column); i++ {
		switch column[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(column))
	return cells
}

// wrapped reports whether the opening parenthesis of s closes at its end.
func wrapped(s string) bool {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return true
}
