package compiler

import (
	"fmt"
	"strconv"

	"github.com/rill-lang/rill/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Codegen: per-node bytecode fragment generation
// ---------------------------------------------------------------------------
//
// Every node produces a fragment: an in-order slice of labeled instructions.
// Labels are minted at instruction creation, so generation order is emission
// order. A forward jump target inside a fragment is completed with
// PeekNextLabel once the code it skips over has been generated; a break
// target is not known to the break itself, so break leaves a placeholder
// operand that the enclosing loop patches.

// pendingBreakTarget marks a break jump awaiting its loop-end label.
const pendingBreakTarget = "?"

// patchBreaks completes pending break jumps in a loop's fragment.
// Inner loops have already patched their own, so any remaining placeholder
// belongs to this loop.
func patchBreaks(frag []bytecode.Instruction, target string) {
	for i := range frag {
		if frag[i].Op == bytecode.OpJump && frag[i].Operands[0] == pendingBreakTarget {
			frag[i].Operands[0] = target
		}
	}
}

var binaryOpcodes = map[TokenType]bytecode.Opcode{
	TokenPlus:    bytecode.OpAdd,
	TokenMinus:   bytecode.OpSub,
	TokenStar:    bytecode.OpMul,
	TokenSlash:   bytecode.OpDiv,
	TokenPercent: bytecode.OpMod,
	TokenEq:      bytecode.OpEq,
	TokenNe:      bytecode.OpNe,
	TokenLt:      bytecode.OpLt,
	TokenLe:      bytecode.OpLe,
	TokenGt:      bytecode.OpGt,
	TokenGe:      bytecode.OpGe,
	TokenAnd:     bytecode.OpAnd,
	TokenOr:      bytecode.OpOr,
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// genViaTemp materializes an expression in a fresh internal register.
func genViaTemp(s *Session, fn *FnDecl, e Expr) ([]bytecode.Instruction, string, error) {
	dst := s.AllocateInternalRegister()
	frag, err := e.genInto(s, fn, dst)
	if err != nil {
		return nil, "", err
	}
	return frag, dst, nil
}

func (n *IntLiteral) genInto(s *Session, fn *FnDecl, dst string) ([]bytecode.Instruction, error) {
	return []bytecode.Instruction{s.newInstruction(bytecode.OpLoad, dst, strconv.FormatInt(n.Value, 10))}, nil
}

func (n *IntLiteral) genExpr(s *Session, fn *FnDecl) ([]bytecode.Instruction, string, error) {
	return genViaTemp(s, fn, n)
}

func (n *FloatLiteral) genInto(s *Session, fn *FnDecl, dst string) ([]bytecode.Instruction, error) {
	return []bytecode.Instruction{s.newInstruction(bytecode.OpLoad, dst, strconv.FormatFloat(n.Value, 'g', -1, 64))}, nil
}

func (n *FloatLiteral) genExpr(s *Session, fn *FnDecl) ([]bytecode.Instruction, string, error) {
	return genViaTemp(s, fn, n)
}

func (n *StringLiteral) genInto(s *Session, fn *FnDecl, dst string) ([]bytecode.Instruction, error) {
	return []bytecode.Instruction{s.newInstruction(bytecode.OpLoad, dst, strconv.Quote(n.Value))}, nil
}

func (n *StringLiteral) genExpr(s *Session, fn *FnDecl) ([]bytecode.Instruction, string, error) {
	return genViaTemp(s, fn, n)
}

func (n *BoolLiteral) genInto(s *Session, fn *FnDecl, dst string) ([]bytecode.Instruction, error) {
	lit := "0"
	if n.Value {
		lit = "1"
	}
	return []bytecode.Instruction{s.newInstruction(bytecode.OpLoad, dst, lit)}, nil
}

func (n *BoolLiteral) genExpr(s *Session, fn *FnDecl) ([]bytecode.Instruction, string, error) {
	return genViaTemp(s, fn, n)
}

// genExpr for a variable reference is free: the value already lives in the
// variable's register.
func (n *Variable) genExpr(s *Session, fn *FnDecl) ([]bytecode.Instruction, string, error) {
	reg, ok := s.LookupRegister(n.Name)
	if !ok {
		return nil, "", compileErrorf(n.SpanVal, "undefined variable %q", n.Name)
	}
	return nil, reg, nil
}

func (n *Variable) genInto(s *Session, fn *FnDecl, dst string) ([]bytecode.Instruction, error) {
	src, ok := s.LookupRegister(n.Name)
	if !ok {
		return nil, compileErrorf(n.SpanVal, "undefined variable %q", n.Name)
	}
	return []bytecode.Instruction{s.newInstruction(bytecode.OpMove, dst, src)}, nil
}

func (n *UnaryExpr) genInto(s *Session, fn *FnDecl, dst string) ([]bytecode.Instruction, error) {
	frag, reg, err := n.Operand.genExpr(s, fn)
	if err != nil {
		return nil, err
	}

	var op bytecode.Opcode
	switch n.Op {
	case TokenMinus:
		op = bytecode.OpNeg
	case TokenBang:
		op = bytecode.OpNot
	default:
		return nil, compileErrorf(n.SpanVal, "unknown unary operator %s", n.Op)
	}
	return append(frag, s.newInstruction(op, dst, reg)), nil
}

func (n *UnaryExpr) genExpr(s *Session, fn *FnDecl) ([]bytecode.Instruction, string, error) {
	return genViaTemp(s, fn, n)
}

func (n *BinaryExpr) genInto(s *Session, fn *FnDecl, dst string) ([]bytecode.Instruction, error) {
	op, ok := binaryOpcodes[n.Op]
	if !ok {
		return nil, compileErrorf(n.SpanVal, "unknown binary operator %s", n.Op)
	}

	frag, left, err := n.Left.genExpr(s, fn)
	if err != nil {
		return nil, err
	}
	rightFrag, right, err := n.Right.genExpr(s, fn)
	if err != nil {
		return nil, err
	}
	frag = append(frag, rightFrag...)
	return append(frag, s.newInstruction(op, dst, left, right)), nil
}

func (n *BinaryExpr) genExpr(s *Session, fn *FnDecl) ([]bytecode.Instruction, string, error) {
	return genViaTemp(s, fn, n)
}

func (n *CallExpr) genInto(s *Session, fn *FnDecl, dst string) ([]bytecode.Instruction, error) {
	return n.genCall(s, fn, dst)
}

func (n *CallExpr) genExpr(s *Session, fn *FnDecl) ([]bytecode.Instruction, string, error) {
	return genViaTemp(s, fn, n)
}

// genCall emits a call. dst is empty in statement context, where a missing
// return value is fine; with a destination the callee must return one.
func (n *CallExpr) genCall(s *Session, fn *FnDecl, dst string) ([]bytecode.Instruction, error) {
	if n.Name == "print" {
		return n.genPrint(s, fn, dst)
	}

	callID, err := s.CallTargetOf(n.Name)
	if err != nil {
		return nil, fmt.Errorf("line %d: call to undefined function %q: %w", n.SpanVal.Start.Line, n.Name, err)
	}
	returns, err := s.ReturnsValue(n.Name)
	if err != nil {
		return nil, err
	}
	if dst != "" && !returns {
		return nil, compileErrorf(n.SpanVal, "function %q does not return a value", n.Name)
	}

	var frag []bytecode.Instruction
	for _, arg := range n.Args {
		argFrag, reg, err := arg.genExpr(s, fn)
		if err != nil {
			return nil, err
		}
		frag = append(frag, argFrag...)
		frag = append(frag, s.newInstruction(bytecode.OpArg, reg))
	}

	call := s.newInstruction(bytecode.OpCall, callID)
	call.Comment = n.Name
	frag = append(frag, call)

	if dst != "" {
		frag = append(frag, s.newInstruction(bytecode.OpGetRet, dst))
	}
	return frag, nil
}

// genPrint emits the print builtin.
func (n *CallExpr) genPrint(s *Session, fn *FnDecl, dst string) ([]bytecode.Instruction, error) {
	if dst != "" {
		return nil, compileErrorf(n.SpanVal, "print has no value")
	}
	if len(n.Args) != 1 {
		return nil, compileErrorf(n.SpanVal, "print takes exactly one argument, got %d", len(n.Args))
	}
	frag, reg, err := n.Args[0].genExpr(s, fn)
	if err != nil {
		return nil, err
	}
	return append(frag, s.newInstruction(bytecode.OpPrint, reg)), nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (n *Assign) gen(s *Session, fn *FnDecl) ([]bytecode.Instruction, error) {
	reg, fresh := s.ResolveOrAllocateRegister(n.Name)
	frag, err := n.Value.genInto(s, fn, reg)
	if err != nil {
		return nil, err
	}
	if len(frag) > 0 {
		last := &frag[len(frag)-1]
		if last.Comment == "" {
			if fresh {
				last.Comment = "init " + n.Name
			} else {
				last.Comment = n.Name
			}
		}
	}
	return frag, nil
}

func (n *VarDecl) gen(s *Session, fn *FnDecl) ([]bytecode.Instruction, error) {
	reg := s.BindRegister(n.Name)

	if n.Value == nil {
		ins := s.newInstruction(bytecode.OpLoad, reg, "0")
		ins.Comment = "var " + n.Name
		return []bytecode.Instruction{ins}, nil
	}

	frag, err := n.Value.genInto(s, fn, reg)
	if err != nil {
		return nil, err
	}
	if len(frag) > 0 && frag[len(frag)-1].Comment == "" {
		frag[len(frag)-1].Comment = "var " + n.Name
	}
	return frag, nil
}

func (n *ExprStmt) gen(s *Session, fn *FnDecl) ([]bytecode.Instruction, error) {
	// Calls in statement position need no result register.
	if call, ok := n.X.(*CallExpr); ok {
		returns := false
		if call.Name != "print" {
			if r, err := s.ReturnsValue(call.Name); err == nil {
				returns = r
			}
		}
		if !returns {
			return call.genCall(s, fn, "")
		}
	}

	frag, _, err := n.X.genExpr(s, fn)
	return frag, err
}

func (n *Block) gen(s *Session, fn *FnDecl) ([]bytecode.Instruction, error) {
	s.EnterScope()

	var frag []bytecode.Instruction
	for _, st := range n.Stmts {
		f, err := st.gen(s, fn)
		if err != nil {
			return nil, err
		}
		frag = append(frag, f...)
	}
	frag = append(frag, s.FlushCleanup()...)

	if err := s.LeaveScope(); err != nil {
		return nil, err
	}
	return frag, nil
}

func (n *If) gen(s *Session, fn *FnDecl) ([]bytecode.Instruction, error) {
	frag, condReg, err := n.Cond.genExpr(s, fn)
	if err != nil {
		return nil, err
	}

	jfIdx := len(frag)
	frag = append(frag, s.newInstruction(bytecode.OpJumpFalse, condReg, ""))

	// Branch scopes are not flushed here: their cleanup propagates to the
	// enclosing scope and is emitted at its flush point.
	s.EnterScope()
	for _, st := range n.Then {
		f, err := st.gen(s, fn)
		if err != nil {
			return nil, err
		}
		frag = append(frag, f...)
	}
	if err := s.LeaveScope(); err != nil {
		return nil, err
	}

	if len(n.Else) == 0 {
		frag[jfIdx].Operands[1] = s.PeekNextLabel()
		return frag, nil
	}

	skipIdx := len(frag)
	frag = append(frag, s.newInstruction(bytecode.OpJump, ""))
	frag[jfIdx].Operands[1] = s.PeekNextLabel()

	s.EnterScope()
	for _, st := range n.Else {
		f, err := st.gen(s, fn)
		if err != nil {
			return nil, err
		}
		frag = append(frag, f...)
	}
	if err := s.LeaveScope(); err != nil {
		return nil, err
	}

	frag[skipIdx].Operands[0] = s.PeekNextLabel()
	return frag, nil
}

func (n *While) gen(s *Session, fn *FnDecl) ([]bytecode.Instruction, error) {
	s.EnterScope()

	header := s.PeekNextLabel()
	s.PushLoopHeader(header)
	s.PushLoopContinue(header)

	frag, condReg, err := n.Cond.genExpr(s, fn)
	if err != nil {
		return nil, err
	}

	jfIdx := len(frag)
	frag = append(frag, s.newInstruction(bytecode.OpJumpFalse, condReg, ""))

	for _, st := range n.Body {
		f, err := st.gen(s, fn)
		if err != nil {
			return nil, err
		}
		frag = append(frag, f...)
	}

	// Per-iteration cleanup runs before the back jump.
	frag = append(frag, s.FlushCleanup()...)

	back := s.newInstruction(bytecode.OpJump, header)
	back.Comment = "loop"
	frag = append(frag, back)

	end := s.PeekNextLabel()
	frag[jfIdx].Operands[1] = end
	patchBreaks(frag, end)

	s.PopLoopContinue()
	s.PopLoopHeader()
	if err := s.LeaveScope(); err != nil {
		return nil, err
	}
	return frag, nil
}

func (n *For) gen(s *Session, fn *FnDecl) ([]bytecode.Instruction, error) {
	s.EnterScope() // holds the init bindings

	var frag []bytecode.Instruction
	if n.Init != nil {
		f, err := n.Init.gen(s, fn)
		if err != nil {
			return nil, err
		}
		frag = append(frag, f...)
	}

	header := s.PeekNextLabel()
	s.PushLoopHeader(header)

	jfIdx := -1
	if n.Cond != nil {
		condFrag, condReg, err := n.Cond.genExpr(s, fn)
		if err != nil {
			return nil, err
		}
		frag = append(frag, condFrag...)
		jfIdx = len(frag)
		frag = append(frag, s.newInstruction(bytecode.OpJumpFalse, condReg, ""))
	}

	// The step fragment is emitted ahead of the body so the continue target
	// exists before any continue inside the body is generated.
	overStepIdx := len(frag)
	frag = append(frag, s.newInstruction(bytecode.OpJump, ""))

	stepLabel := s.PeekNextLabel()
	s.PushLoopContinue(stepLabel)

	if n.Step != nil {
		f, err := n.Step.gen(s, fn)
		if err != nil {
			return nil, err
		}
		frag = append(frag, f...)
	}
	back := s.newInstruction(bytecode.OpJump, header)
	back.Comment = "loop"
	frag = append(frag, back)

	frag[overStepIdx].Operands[0] = s.PeekNextLabel() // body start

	s.EnterScope()
	for _, st := range n.Body {
		f, err := st.gen(s, fn)
		if err != nil {
			return nil, err
		}
		frag = append(frag, f...)
	}
	frag = append(frag, s.FlushCleanup()...)
	if err := s.LeaveScope(); err != nil {
		return nil, err
	}
	frag = append(frag, s.newInstruction(bytecode.OpJump, stepLabel))

	end := s.PeekNextLabel()
	if jfIdx >= 0 {
		frag[jfIdx].Operands[1] = end
	}
	patchBreaks(frag, end)

	s.PopLoopContinue()
	s.PopLoopHeader()

	// The init bindings are cleared once, after the loop.
	frag = append(frag, s.FlushCleanup()...)
	if err := s.LeaveScope(); err != nil {
		return nil, err
	}
	return frag, nil
}

func (n *FnDecl) gen(s *Session, fn *FnDecl) ([]bytecode.Instruction, error) {
	id := s.RegisterFunction(n) // idempotent: the pre-scan already ran

	marker := s.newInstruction(bytecode.OpFunc, id.CallID)
	marker.Comment = "fn " + n.Name
	frag := []bytecode.Instruction{marker}

	s.EnterScope()
	s.PushFunctionExit(id.ExitID)

	for _, p := range n.Params {
		reg := s.BindRegister(p)
		ins := s.newInstruction(bytecode.OpParam, reg)
		ins.Comment = p
		frag = append(frag, ins)
	}

	for _, st := range n.Body {
		f, err := st.gen(s, n)
		if err != nil {
			return nil, err
		}
		frag = append(frag, f...)
	}

	exit := s.newInstruction(bytecode.OpExit, id.ExitID)
	exit.Comment = "exit " + n.Name
	frag = append(frag, exit)

	// Function-scope cleanup runs between the exit marker and the return,
	// so it covers both explicit returns and falling off the end.
	frag = append(frag, s.FlushCleanup()...)
	frag = append(frag, s.newInstruction(bytecode.OpRet))

	s.PopFunctionExit()
	if err := s.LeaveScope(); err != nil {
		return nil, err
	}
	return frag, nil
}

func (n *Return) gen(s *Session, fn *FnDecl) ([]bytecode.Instruction, error) {
	exitID, ok := s.PeekFunctionExit()
	if !ok {
		return nil, compileErrorf(n.SpanVal, "return outside function")
	}

	var frag []bytecode.Instruction
	if n.Value != nil {
		f, reg, err := n.Value.genExpr(s, fn)
		if err != nil {
			return nil, err
		}
		frag = append(f, s.newInstruction(bytecode.OpSetRet, reg))
	}

	jump := s.newInstruction(bytecode.OpJumpExit, exitID)
	jump.Comment = "return"
	if fn != nil {
		jump.Comment = "return from " + fn.Name
	}
	return append(frag, jump), nil
}

func (n *Break) gen(s *Session, fn *FnDecl) ([]bytecode.Instruction, error) {
	if _, ok := s.PeekLoopHeader(); !ok {
		return nil, compileErrorf(n.SpanVal, "break outside loop")
	}
	jump := s.newInstruction(bytecode.OpJump, pendingBreakTarget)
	jump.Comment = "break"
	return []bytecode.Instruction{jump}, nil
}

func (n *Continue) gen(s *Session, fn *FnDecl) ([]bytecode.Instruction, error) {
	target, ok := s.PeekLoopContinue()
	if !ok {
		return nil, compileErrorf(n.SpanVal, "continue outside loop")
	}
	jump := s.newInstruction(bytecode.OpJump, target)
	jump.Comment = "continue"
	return []bytecode.Instruction{jump}, nil
}
