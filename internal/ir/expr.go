package ir

import "fmt"

// ExprType is the static type of an expression node.
type ExprType int

const (
	// TypeValue is an expression producing an Int or Atom.
	TypeValue ExprType = iota + 1
	// TypeBool is an expression producing a truth value (guards only).
	TypeBool
)

// String names the type for diagnostics.
func (t ExprType) String() string {
	switch t {
	case TypeValue:
		return "value"
	case TypeBool:
		return "boolean"
	default:
		return fmt.Sprintf("ExprType(%d)", int(t))
	}
}

// Expr is a sealed interface for guard and body expressions.
// Only VarRef, Lit, Unary and Binary implement this.
//
// Expressions replace host-language code generation: guards are parsed
// into this tree once at load time and interpreted against a Bindings
// environment by the engine's evaluator.
type Expr interface {
	expr() // Sealed
	Type() ExprType
	String() string
}

// VarRef references a variable bound by a head or an earlier bind guard.
type VarRef struct {
	Name string
}

func (VarRef) expr() {}

// Type of a variable reference is always a value.
func (VarRef) Type() ExprType { return TypeValue }

// String returns the variable name.
func (v VarRef) String() string { return v.Name }

// Lit is a literal value.
type Lit struct {
	Value Value
}

func (Lit) expr() {}

// Type of a literal is always a value.
func (Lit) Type() ExprType { return TypeValue }

// String renders the literal.
func (l Lit) String() string { return l.Value.String() }

// UnaryOp enumerates prefix operators.
type UnaryOp int

const (
	// OpNeg is arithmetic negation (-X).
	OpNeg UnaryOp = iota + 1
	// OpNot is logical negation (!G).
	OpNot
)

// Unary applies a prefix operator.
type Unary struct {
	Op UnaryOp
	X  Expr
}

func (Unary) expr() {}

// Type is boolean for OpNot, value for OpNeg.
func (u Unary) Type() ExprType {
	if u.Op == OpNot {
		return TypeBool
	}
	return TypeValue
}

// String renders the expression.
func (u Unary) String() string {
	op := "-"
	if u.Op == OpNot {
		op = "!"
	}
	return op + wrap(u.X, precUnary)
}

// BinaryOp enumerates infix operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota + 1
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binaryOpText = map[BinaryOp]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
	OpEq:  "==",
	OpNe:  "!=",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpAnd: "&&",
	OpOr:  "||",
}

// String returns the canonical operator spelling.
func (op BinaryOp) String() string {
	if s, ok := binaryOpText[op]; ok {
		return s
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// IsArithmetic reports whether op maps two values to a value.
func (op BinaryOp) IsArithmetic() bool {
	return op >= OpAdd && op <= OpMod
}

// IsComparison reports whether op maps two values to a truth value.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// IsLogical reports whether op maps two truth values to a truth value.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// Binary applies an infix operator.
type Binary struct {
	Op   BinaryOp
	L, R Expr
}

func (Binary) expr() {}

// Type is value for arithmetic operators, boolean otherwise.
func (b Binary) Type() ExprType {
	if b.Op.IsArithmetic() {
		return TypeValue
	}
	return TypeBool
}

// String renders the expression with the minimum parentheses.
func (b Binary) String() string {
	p := precedence(b.Op)
	// Right operand binds tighter to keep left associativity visible.
	return wrap(b.L, p) + " " + b.Op.String() + " " + wrap(b.R, p+1)
}

const (
	precOr = iota + 1
	precAnd
	precCompare
	precAdd
	precMul
	precUnary
)

func precedence(op BinaryOp) int {
	switch op {
	case OpOr:
		return precOr
	case OpAnd:
		return precAnd
	case OpAdd, OpSub:
		return precAdd
	case OpMul, OpDiv, OpMod:
		return precMul
	default:
		return precCompare
	}
}

func wrap(e Expr, min int) string {
	if b, ok := e.(Binary); ok && precedence(b.Op) < min {
		return "(" + b.String() + ")"
	}
	return e.String()
}

// FreeVars returns the variables referenced by e in first-occurrence order.
func FreeVars(e Expr) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case VarRef:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case Unary:
			walk(n.X)
		case Binary:
			walk(n.L)
			walk(n.R)
		}
	}
	walk(e)
	return names
}
