package compiler

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/rill-lang/rill/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Session: per-compilation allocation, scope and control-flow state
// ---------------------------------------------------------------------------

// Session carries all state for one compilation: the label, register and
// function-id counters, the scope-tree cursor and the control-flow label
// stacks. One Session corresponds to exactly one compilation; counters are
// never reset, which makes them the sole source of uniqueness for labels,
// registers and function ids across the whole program.
//
// A Session is not safe for concurrent use. Compilation is a single
// depth-first pass driven by one goroutine.
type Session struct {
	id string // build id, unique per session

	labelCounter    int
	registerCounter int
	functionCounter int

	root    *Scope
	current *Scope

	// Control-flow label stacks, pushed on construct entry, popped on leave.
	loopHeaders   []string // loop condition re-entry points
	loopContinues []string // continue targets (step label for for-loops)
	functionExits []string // return targets (function exit ids)
}

// NewSession creates a fresh compilation session with an empty root scope.
func NewSession() *Session {
	root := newScope(nil)
	return &Session{
		id:      uuid.NewString(),
		root:    root,
		current: root,
	}
}

// ID returns the session's unique build id.
func (s *Session) ID() string {
	return s.id
}

// ---------------------------------------------------------------------------
// Labels
// ---------------------------------------------------------------------------

// NextLabel consumes and returns the next instruction label. Labels form a
// strictly increasing, gap-free sequence starting at "1"; since the output
// is one flat sequence, a label is both an instruction's address and a jump
// target.
func (s *Session) NextLabel() string {
	s.labelCounter++
	return strconv.Itoa(s.labelCounter)
}

// PeekNextLabel returns the label the next NextLabel call will produce,
// without consuming it. Branch instructions referencing code not yet emitted
// use this to name that code's future address.
func (s *Session) PeekNextLabel() string {
	return strconv.Itoa(s.labelCounter + 1)
}

// newInstruction mints an instruction with a fresh label.
func (s *Session) newInstruction(op bytecode.Opcode, operands ...string) bytecode.Instruction {
	return bytecode.Instruction{
		Label:    s.NextLabel(),
		Op:       op,
		Operands: operands,
	}
}

// ---------------------------------------------------------------------------
// Registers
// ---------------------------------------------------------------------------

// newRegister mints a fresh register. Registers are never recycled at
// compile time; cleanup clears the runtime slot and drops the name binding
// but the numeric identity is spent for good.
func (s *Session) newRegister() string {
	s.registerCounter++
	return bytecode.Register(s.registerCounter)
}

// ResolveOrAllocateRegister looks a variable name up across the full
// ancestor chain, innermost binding first. If found, the existing register
// is returned with fresh=false. Otherwise a new register is minted, bound in
// the current (innermost) scope, and returned with fresh=true. Callers use
// the flag to decide whether to also emit initialization code.
func (s *Session) ResolveOrAllocateRegister(name string) (register string, fresh bool) {
	if reg, ok := s.current.lookupRegister(name); ok {
		return reg, false
	}
	reg := s.newRegister()
	s.current.bind(name, reg)
	return reg, true
}

// BindRegister mints a fresh register and binds it in the current scope,
// shadowing any binding of the same name in an enclosing scope. Used by
// parameters and var declarations.
func (s *Session) BindRegister(name string) string {
	reg := s.newRegister()
	s.current.bind(name, reg)
	return reg
}

// AllocateInternalRegister mints a fresh unnamed register and records it in
// the current scope's temporary list. Used for scratch storage with no
// source-level name.
func (s *Session) AllocateInternalRegister() string {
	reg := s.newRegister()
	s.current.internalRegisters = append(s.current.internalRegisters, reg)
	return reg
}

// LookupRegister resolves a variable name to its register across the
// ancestor chain without allocating.
func (s *Session) LookupRegister(name string) (string, bool) {
	return s.current.lookupRegister(name)
}

// LookupName resolves a register back to its variable name, for diagnostics.
func (s *Session) LookupName(register string) (string, bool) {
	return s.current.lookupName(register)
}

// ---------------------------------------------------------------------------
// Scope lifecycle and deferred cleanup
// ---------------------------------------------------------------------------

// EnterScope opens a new lexical scope under the current one and makes it
// current.
func (s *Session) EnterScope() {
	child := newScope(s.current)
	s.current.children = append(s.current.children, child)
	s.current = child
}

// LeaveScope closes the current scope. On the root it is a no-op: the top
// scope persists for the whole program. Otherwise the scope's own cleanup
// list is computed and handed to the parent's pending list (no instructions
// are emitted here), the node is pruned from the tree and the cursor moves
// up. A current node that is not among its parent's children means the
// caller entered and left scopes out of order; that fails with
// ErrUnbalancedScope.
func (s *Session) LeaveScope() error {
	if s.current == s.root {
		return nil
	}

	parent := s.current.parent
	if parent == nil || !parent.detachChild(s.current) {
		return fmt.Errorf("leave scope: %w", ErrUnbalancedScope)
	}

	own := s.current.ownCleanup()
	s.current.registersToClean = append(s.current.registersToClean, own...)
	parent.registersToClean = append(parent.registersToClean, s.current.registersToClean...)

	s.current = parent
	return nil
}

// FlushCleanup emits one clear instruction per register awaiting cleanup in
// the current scope, then resets the scope's bindings and pending list.
// The pending list is flushed in insertion order (entries inherited from
// closed inner scopes first), followed by this scope's own named bindings
// and then its unnamed temporaries. Leaving a scope never emits cleanup by
// itself; only this explicit flush does, at the end of a block, loop or
// function, or once at program end.
func (s *Session) FlushCleanup() []bytecode.Instruction {
	pending := append(s.current.registersToClean, s.current.ownCleanup()...)

	out := make([]bytecode.Instruction, 0, len(pending))
	for _, entry := range pending {
		ins := s.newInstruction(bytecode.OpClear, entry.register)
		ins.Comment = "cleanup"
		if entry.name != "" {
			ins.Comment = "cleanup " + entry.name
		}
		out = append(out, ins)
	}

	s.current.reset()
	return out
}

// Root reports whether the cursor is back at the root scope.
func (s *Session) Root() *Scope {
	return s.root
}

// CurrentScope returns the scope the cursor points at.
func (s *Session) CurrentScope() *Scope {
	return s.current
}

// ---------------------------------------------------------------------------
// Function identities (two-pass resolution)
// ---------------------------------------------------------------------------

// RegisterPrototypes recursively walks every node and its full child tree,
// registering an identity for every function declaration encountered. It
// runs before any code generation so that every function, including ones
// declared after their first call site and ones in mutual recursion, has a
// stable identity when call sites are compiled.
func (s *Session) RegisterPrototypes(nodes []Node) {
	for _, n := range nodes {
		if fd, ok := n.(*FnDecl); ok {
			s.RegisterFunction(fd)
		}
		s.RegisterPrototypes(n.Children())
	}
}

// RegisterFunction registers a function declaration, minting a call id and
// an exit id on first sight. It is idempotent by name across the ancestor
// chain: an already reachable registration is returned unchanged.
func (s *Session) RegisterFunction(decl *FnDecl) *FunctionIdentity {
	if id, ok := s.current.lookupFunction(decl.Name); ok {
		return id
	}

	s.functionCounter++
	callID := "f" + strconv.Itoa(s.functionCounter)
	s.functionCounter++
	exitID := "f" + strconv.Itoa(s.functionCounter)

	id := &FunctionIdentity{
		CallID:       callID,
		ExitID:       exitID,
		ReturnsValue: decl.ReturnsValue(),
	}
	s.current.functionMap[decl.Name] = id
	return id
}

// CallTargetOf resolves a function name to its call id.
func (s *Session) CallTargetOf(name string) (string, error) {
	id, ok := s.current.lookupFunction(name)
	if !ok {
		return "", fmt.Errorf("call target of %q: %w", name, ErrFunctionNotFound)
	}
	return id.CallID, nil
}

// ExitTargetOf resolves a function name to its exit id.
func (s *Session) ExitTargetOf(name string) (string, error) {
	id, ok := s.current.lookupFunction(name)
	if !ok {
		return "", fmt.Errorf("exit target of %q: %w", name, ErrFunctionNotFound)
	}
	return id.ExitID, nil
}

// ReturnsValue reports whether the named function returns a value.
func (s *Session) ReturnsValue(name string) (bool, error) {
	id, ok := s.current.lookupFunction(name)
	if !ok {
		return false, fmt.Errorf("returns value of %q: %w", name, ErrFunctionNotFound)
	}
	return id.ReturnsValue, nil
}

// FunctionCount returns how many function identities have been minted.
func (s *Session) FunctionCount() int {
	return s.functionCounter / 2
}

// ---------------------------------------------------------------------------
// Control-flow label stacks
// ---------------------------------------------------------------------------
//
// Three independent LIFO stacks track the innermost active jump targets for
// loop re-entry, continue and return. An empty peek or pop is an absence,
// not a failure: the code generation for break/continue/return decides how
// to report a statement outside its required construct.

// PushLoopHeader records a loop's condition re-entry label.
func (s *Session) PushLoopHeader(label string) {
	s.loopHeaders = append(s.loopHeaders, label)
}

// PopLoopHeader removes and returns the innermost loop header.
func (s *Session) PopLoopHeader() (string, bool) {
	if len(s.loopHeaders) == 0 {
		return "", false
	}
	label := s.loopHeaders[len(s.loopHeaders)-1]
	s.loopHeaders = s.loopHeaders[:len(s.loopHeaders)-1]
	return label, true
}

// PeekLoopHeader returns the innermost loop header without consuming it.
func (s *Session) PeekLoopHeader() (string, bool) {
	if len(s.loopHeaders) == 0 {
		return "", false
	}
	return s.loopHeaders[len(s.loopHeaders)-1], true
}

// PushLoopContinue records a loop's continue target. For while loops this is
// the header itself; for for-loops it is the step label, so continue runs the
// step before re-testing the condition.
func (s *Session) PushLoopContinue(label string) {
	s.loopContinues = append(s.loopContinues, label)
}

// PopLoopContinue removes and returns the innermost continue target.
func (s *Session) PopLoopContinue() (string, bool) {
	if len(s.loopContinues) == 0 {
		return "", false
	}
	label := s.loopContinues[len(s.loopContinues)-1]
	s.loopContinues = s.loopContinues[:len(s.loopContinues)-1]
	return label, true
}

// PeekLoopContinue returns the innermost continue target without consuming it.
func (s *Session) PeekLoopContinue() (string, bool) {
	if len(s.loopContinues) == 0 {
		return "", false
	}
	return s.loopContinues[len(s.loopContinues)-1], true
}

// PushFunctionExit records a function's exit id, the target for return.
func (s *Session) PushFunctionExit(exitID string) {
	s.functionExits = append(s.functionExits, exitID)
}

// PopFunctionExit removes and returns the innermost function exit id.
func (s *Session) PopFunctionExit() (string, bool) {
	if len(s.functionExits) == 0 {
		return "", false
	}
	id := s.functionExits[len(s.functionExits)-1]
	s.functionExits = s.functionExits[:len(s.functionExits)-1]
	return id, true
}

// PeekFunctionExit returns the innermost function exit id without consuming it.
func (s *Session) PeekFunctionExit() (string, bool) {
	if len(s.functionExits) == 0 {
		return "", false
	}
	return s.functionExits[len(s.functionExits)-1], true
}
