package compiler

import (
	"errors"
	"testing"
)

func TestNextLabelStrictlyIncreasing(t *testing.T) {
	s := NewSession()

	want := []string{"1", "2", "3", "4", "5"}
	for _, w := range want {
		if peek := s.PeekNextLabel(); peek != w {
			t.Errorf("PeekNextLabel = %q, want %q", peek, w)
		}
		if got := s.NextLabel(); got != w {
			t.Errorf("NextLabel = %q, want %q", got, w)
		}
	}
}

func TestPeekNextLabelDoesNotConsume(t *testing.T) {
	s := NewSession()

	for i := 0; i < 10; i++ {
		if s.PeekNextLabel() != s.PeekNextLabel() {
			t.Fatal("PeekNextLabel consumed a label")
		}
	}
	if got := s.NextLabel(); got != "1" {
		t.Errorf("NextLabel after peeks = %q, want %q", got, "1")
	}
}

func TestResolveOrAllocateRegister(t *testing.T) {
	s := NewSession()

	reg1, fresh := s.ResolveOrAllocateRegister("x")
	if !fresh {
		t.Error("first resolve of x should be fresh")
	}
	if reg1 != "r1" {
		t.Errorf("register = %q, want r1", reg1)
	}

	reg2, fresh := s.ResolveOrAllocateRegister("x")
	if fresh {
		t.Error("second resolve of x should reuse")
	}
	if reg2 != reg1 {
		t.Errorf("second resolve = %q, want %q", reg2, reg1)
	}
}

func TestResolveFindsAncestorBinding(t *testing.T) {
	s := NewSession()

	outer, _ := s.ResolveOrAllocateRegister("x")
	s.EnterScope()
	inner, fresh := s.ResolveOrAllocateRegister("x")
	if fresh || inner != outer {
		t.Errorf("resolve in child = (%q, fresh=%v), want (%q, reused)", inner, fresh, outer)
	}
	if err := s.LeaveScope(); err != nil {
		t.Fatalf("leave: %v", err)
	}
}

func TestAllocateInternalRegister(t *testing.T) {
	s := NewSession()

	a := s.AllocateInternalRegister()
	b := s.AllocateInternalRegister()
	if a == b {
		t.Errorf("internal registers not unique: %q", a)
	}
	if _, ok := s.LookupName(a); ok {
		t.Error("internal register should have no name")
	}
}

func TestLookupName(t *testing.T) {
	s := NewSession()

	reg, _ := s.ResolveOrAllocateRegister("counter")
	name, ok := s.LookupName(reg)
	if !ok || name != "counter" {
		t.Errorf("LookupName(%q) = (%q, %v), want counter", reg, name, ok)
	}
	if _, ok := s.LookupName("r999"); ok {
		t.Error("unknown register should not resolve")
	}
}

func TestRegisterFunctionIdempotent(t *testing.T) {
	s := NewSession()
	decl := &FnDecl{Name: "fib", Params: []string{"n"}, Body: []Stmt{
		&Return{Value: &IntLiteral{Value: 1}},
	}}

	first := s.RegisterFunction(decl)
	second := s.RegisterFunction(decl)

	if first != second {
		t.Errorf("re-registration minted a new identity: %+v vs %+v", first, second)
	}
	if first.CallID != "f1" || first.ExitID != "f2" {
		t.Errorf("ids = (%q, %q), want (f1, f2)", first.CallID, first.ExitID)
	}
	if !first.ReturnsValue {
		t.Error("fib returns a value")
	}
	if s.FunctionCount() != 1 {
		t.Errorf("function count = %d, want 1", s.FunctionCount())
	}
}

func TestFunctionLookups(t *testing.T) {
	s := NewSession()
	s.RegisterFunction(&FnDecl{Name: "go", Body: []Stmt{&Return{}}})

	call, err := s.CallTargetOf("go")
	if err != nil || call != "f1" {
		t.Errorf("CallTargetOf = (%q, %v)", call, err)
	}
	exit, err := s.ExitTargetOf("go")
	if err != nil || exit != "f2" {
		t.Errorf("ExitTargetOf = (%q, %v)", exit, err)
	}
	returns, err := s.ReturnsValue("go")
	if err != nil || returns {
		t.Errorf("ReturnsValue = (%v, %v), want false", returns, err)
	}
}

func TestFunctionNotFound(t *testing.T) {
	s := NewSession()

	if _, err := s.CallTargetOf("missing"); !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("CallTargetOf error = %v, want ErrFunctionNotFound", err)
	}
	if _, err := s.ExitTargetOf("missing"); !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("ExitTargetOf error = %v, want ErrFunctionNotFound", err)
	}
	if _, err := s.ReturnsValue("missing"); !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("ReturnsValue error = %v, want ErrFunctionNotFound", err)
	}
}

func TestFunctionResolvedThroughAncestorChain(t *testing.T) {
	s := NewSession()
	s.RegisterFunction(&FnDecl{Name: "outer"})

	s.EnterScope()
	if _, err := s.CallTargetOf("outer"); err != nil {
		t.Errorf("outer not reachable from child scope: %v", err)
	}
	// Idempotence reaches through the chain too.
	id := s.RegisterFunction(&FnDecl{Name: "outer"})
	if id.CallID != "f1" {
		t.Errorf("re-registration in child minted %q, want f1", id.CallID)
	}
	if err := s.LeaveScope(); err != nil {
		t.Fatalf("leave: %v", err)
	}
}

func TestRegisterPrototypesRecursesNestedDeclarations(t *testing.T) {
	s := NewSession()

	inner := &FnDecl{Name: "inner", Body: []Stmt{&Return{Value: &IntLiteral{Value: 2}}}}
	outer := &FnDecl{Name: "outer", Body: []Stmt{inner}}
	loop := &While{
		Cond: &BoolLiteral{Value: true},
		Body: []Stmt{&FnDecl{Name: "looped"}},
	}

	s.RegisterPrototypes([]Node{outer, loop})

	for _, name := range []string{"outer", "inner", "looped"} {
		if _, err := s.CallTargetOf(name); err != nil {
			t.Errorf("prototype pre-scan missed %q: %v", name, err)
		}
	}
}

func TestControlFlowStacks(t *testing.T) {
	s := NewSession()

	if _, ok := s.PeekLoopHeader(); ok {
		t.Error("empty loop-header peek should report absence")
	}
	if _, ok := s.PopLoopContinue(); ok {
		t.Error("empty loop-continue pop should report absence")
	}
	if _, ok := s.PeekFunctionExit(); ok {
		t.Error("empty function-exit peek should report absence")
	}

	s.PushLoopHeader("10")
	s.PushLoopHeader("20")
	if got, _ := s.PeekLoopHeader(); got != "20" {
		t.Errorf("peek = %q, want innermost 20", got)
	}
	if got, _ := s.PopLoopHeader(); got != "20" {
		t.Errorf("pop = %q, want 20", got)
	}
	if got, _ := s.PeekLoopHeader(); got != "10" {
		t.Errorf("peek after pop = %q, want 10", got)
	}

	s.PushLoopContinue("15")
	s.PushFunctionExit("f2")
	if got, _ := s.PeekLoopContinue(); got != "15" {
		t.Errorf("continue peek = %q", got)
	}
	if got, _ := s.PopFunctionExit(); got != "f2" {
		t.Errorf("function exit pop = %q", got)
	}
}

func TestSessionIDsUnique(t *testing.T) {
	a, b := NewSession(), NewSession()
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("session ids not unique: %q vs %q", a.ID(), b.ID())
	}
}

func TestIndependentSessionsDoNotInterfere(t *testing.T) {
	a, b := NewSession(), NewSession()

	a.NextLabel()
	a.NextLabel()
	if got := b.NextLabel(); got != "1" {
		t.Errorf("second session first label = %q, want 1", got)
	}

	a.ResolveOrAllocateRegister("x")
	reg, _ := b.ResolveOrAllocateRegister("y")
	if reg != "r1" {
		t.Errorf("second session first register = %q, want r1", reg)
	}
}
