package compiler

import "github.com/rill-lang/rill/pkg/bytecode"

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Rill
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes. Every node can produce
// a bytecode fragment (see codegen.go) and exposes its children for the
// recursive prototype pre-scan.
type Node interface {
	Span() Span
	Children() []Node
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes. Code generation (codegen.go)
// either materializes the value in a register of the generator's choosing
// (genExpr) or writes it into a caller-chosen destination (genInto).
type Expr interface {
	Node
	expr() // marker method
	genExpr(s *Session, fn *FnDecl) ([]bytecode.Instruction, string, error)
	genInto(s *Session, fn *FnDecl, dst string) ([]bytecode.Instruction, error)
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

func (n *IntLiteral) Span() Span       { return n.SpanVal }
func (n *IntLiteral) Children() []Node { return nil }
func (n *IntLiteral) node()            {}
func (n *IntLiteral) expr()            {}

// FloatLiteral represents a floating-point literal.
type FloatLiteral struct {
	SpanVal Span
	Value   float64
}

func (n *FloatLiteral) Span() Span       { return n.SpanVal }
func (n *FloatLiteral) Children() []Node { return nil }
func (n *FloatLiteral) node()            {}
func (n *FloatLiteral) expr()            {}

// StringLiteral represents a string literal.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span       { return n.SpanVal }
func (n *StringLiteral) Children() []Node { return nil }
func (n *StringLiteral) node()            {}
func (n *StringLiteral) expr()            {}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLiteral) Span() Span       { return n.SpanVal }
func (n *BoolLiteral) Children() []Node { return nil }
func (n *BoolLiteral) node()            {}
func (n *BoolLiteral) expr()            {}

// Variable represents a variable reference.
type Variable struct {
	SpanVal Span
	Name    string
}

func (n *Variable) Span() Span       { return n.SpanVal }
func (n *Variable) Children() []Node { return nil }
func (n *Variable) node()            {}
func (n *Variable) expr()            {}

// BinaryExpr represents a binary operation (a + b).
type BinaryExpr struct {
	SpanVal Span
	Op      TokenType
	Left    Expr
	Right   Expr
}

func (n *BinaryExpr) Span() Span       { return n.SpanVal }
func (n *BinaryExpr) Children() []Node { return []Node{n.Left, n.Right} }
func (n *BinaryExpr) node()            {}
func (n *BinaryExpr) expr()            {}

// UnaryExpr represents a unary operation (-a, !a).
type UnaryExpr struct {
	SpanVal Span
	Op      TokenType
	Operand Expr
}

func (n *UnaryExpr) Span() Span       { return n.SpanVal }
func (n *UnaryExpr) Children() []Node { return []Node{n.Operand} }
func (n *UnaryExpr) node()            {}
func (n *UnaryExpr) expr()            {}

// CallExpr represents a function call.
type CallExpr struct {
	SpanVal Span
	Name    string
	Args    []Expr
}

func (n *CallExpr) Span() Span { return n.SpanVal }
func (n *CallExpr) Children() []Node {
	out := make([]Node, len(n.Args))
	for i, a := range n.Args {
		out[i] = a
	}
	return out
}
func (n *CallExpr) node() {}
func (n *CallExpr) expr() {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes. gen produces the statement's
// bytecode fragment given the session and the enclosing function, if any.
type Stmt interface {
	Node
	stmt() // marker method
	gen(s *Session, fn *FnDecl) ([]bytecode.Instruction, error)
}

// Assign represents an assignment (x = expr). The target register is
// resolved through the enclosing scopes; an unbound name is allocated in the
// innermost scope.
type Assign struct {
	SpanVal Span
	Name    string
	Value   Expr
}

func (n *Assign) Span() Span       { return n.SpanVal }
func (n *Assign) Children() []Node { return []Node{n.Value} }
func (n *Assign) node()            {}
func (n *Assign) stmt()            {}

// VarDecl represents a declaration (var x = expr). Unlike Assign, the name is
// always bound fresh in the current scope, shadowing any outer binding.
type VarDecl struct {
	SpanVal Span
	Name    string
	Value   Expr // may be nil: zero-initialized
}

func (n *VarDecl) Span() Span { return n.SpanVal }
func (n *VarDecl) Children() []Node {
	if n.Value == nil {
		return nil
	}
	return []Node{n.Value}
}
func (n *VarDecl) node() {}
func (n *VarDecl) stmt() {}

// FnDecl represents a function declaration.
type FnDecl struct {
	SpanVal Span
	Name    string
	Params  []string
	Body    []Stmt
}

func (n *FnDecl) Span() Span { return n.SpanVal }
func (n *FnDecl) Children() []Node {
	out := make([]Node, len(n.Body))
	for i, s := range n.Body {
		out[i] = s
	}
	return out
}
func (n *FnDecl) node() {}
func (n *FnDecl) stmt() {}

// ReturnsValue reports whether any return statement in the function body
// carries a value. Nested function declarations are not considered.
func (n *FnDecl) ReturnsValue() bool {
	var walk func(nodes []Node) bool
	walk = func(nodes []Node) bool {
		for _, c := range nodes {
			if _, ok := c.(*FnDecl); ok {
				continue
			}
			if r, ok := c.(*Return); ok && r.Value != nil {
				return true
			}
			if walk(c.Children()) {
				return true
			}
		}
		return false
	}
	return walk(n.Children())
}

// If represents a conditional with an optional else branch.
type If struct {
	SpanVal Span
	Cond    Expr
	Then    []Stmt
	Else    []Stmt // nil when absent
}

func (n *If) Span() Span { return n.SpanVal }
func (n *If) Children() []Node {
	out := []Node{n.Cond}
	for _, s := range n.Then {
		out = append(out, s)
	}
	for _, s := range n.Else {
		out = append(out, s)
	}
	return out
}
func (n *If) node() {}
func (n *If) stmt() {}

// While represents a while loop.
type While struct {
	SpanVal Span
	Cond    Expr
	Body    []Stmt
}

func (n *While) Span() Span { return n.SpanVal }
func (n *While) Children() []Node {
	out := []Node{n.Cond}
	for _, s := range n.Body {
		out = append(out, s)
	}
	return out
}
func (n *While) node() {}
func (n *While) stmt() {}

// For represents a C-style for loop (init; cond; step).
type For struct {
	SpanVal Span
	Init    Stmt // may be nil
	Cond    Expr // may be nil: loops forever
	Step    Stmt // may be nil
	Body    []Stmt
}

func (n *For) Span() Span { return n.SpanVal }
func (n *For) Children() []Node {
	var out []Node
	if n.Init != nil {
		out = append(out, n.Init)
	}
	if n.Cond != nil {
		out = append(out, n.Cond)
	}
	if n.Step != nil {
		out = append(out, n.Step)
	}
	for _, s := range n.Body {
		out = append(out, s)
	}
	return out
}
func (n *For) node() {}
func (n *For) stmt() {}

// Break represents a break statement.
type Break struct {
	SpanVal Span
}

func (n *Break) Span() Span       { return n.SpanVal }
func (n *Break) Children() []Node { return nil }
func (n *Break) node()            {}
func (n *Break) stmt()            {}

// Continue represents a continue statement.
type Continue struct {
	SpanVal Span
}

func (n *Continue) Span() Span       { return n.SpanVal }
func (n *Continue) Children() []Node { return nil }
func (n *Continue) node()            {}
func (n *Continue) stmt()            {}

// Return represents a return statement with an optional value.
type Return struct {
	SpanVal Span
	Value   Expr // may be nil
}

func (n *Return) Span() Span { return n.SpanVal }
func (n *Return) Children() []Node {
	if n.Value == nil {
		return nil
	}
	return []Node{n.Value}
}
func (n *Return) node() {}
func (n *Return) stmt() {}

// Block represents a braced statement block introducing its own scope.
type Block struct {
	SpanVal Span
	Stmts   []Stmt
}

func (n *Block) Span() Span { return n.SpanVal }
func (n *Block) Children() []Node {
	out := make([]Node, len(n.Stmts))
	for i, s := range n.Stmts {
		out[i] = s
	}
	return out
}
func (n *Block) node() {}
func (n *Block) stmt() {}

// ExprStmt represents an expression evaluated for its effect (e.g. a call).
type ExprStmt struct {
	SpanVal Span
	X       Expr
}

func (n *ExprStmt) Span() Span       { return n.SpanVal }
func (n *ExprStmt) Children() []Node { return []Node{n.X} }
func (n *ExprStmt) node()            {}
func (n *ExprStmt) stmt()            {}
