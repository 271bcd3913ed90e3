package compiler

import (
	"errors"
	"testing"

	"github.com/rill-lang/rill/pkg/bytecode"
)

func TestBalancedScopesReturnToRoot(t *testing.T) {
	s := NewSession()
	root := s.CurrentScope()

	s.EnterScope()
	s.EnterScope()
	s.EnterScope()
	for i := 0; i < 3; i++ {
		if err := s.LeaveScope(); err != nil {
			t.Fatalf("leave %d: %v", i, err)
		}
	}

	if s.CurrentScope() != root {
		t.Error("session did not return to the root scope by identity")
	}
	if root != s.Root() {
		t.Error("root changed")
	}
}

func TestLeaveScopeOnRootIsNoop(t *testing.T) {
	s := NewSession()

	for i := 0; i < 3; i++ {
		if err := s.LeaveScope(); err != nil {
			t.Fatalf("leave on root: %v", err)
		}
	}
	if s.CurrentScope() != s.Root() {
		t.Error("cursor moved off the root")
	}
}

func TestShadowing(t *testing.T) {
	s := NewSession()

	outer, _ := s.ResolveOrAllocateRegister("x")

	s.EnterScope()
	inner := s.BindRegister("x")
	if inner == outer {
		t.Fatal("shadow binding reused the outer register")
	}
	if got, _ := s.LookupRegister("x"); got != inner {
		t.Errorf("lookup while shadowed = %q, want %q", got, inner)
	}
	if err := s.LeaveScope(); err != nil {
		t.Fatalf("leave: %v", err)
	}

	// After leaving, lookup falls back to the next enclosing binding.
	if got, _ := s.LookupRegister("x"); got != outer {
		t.Errorf("lookup after leave = %q, want %q", got, outer)
	}
}

func TestLookupAbsentAfterLeave(t *testing.T) {
	s := NewSession()

	s.EnterScope()
	s.BindRegister("local")
	if _, ok := s.LookupRegister("local"); !ok {
		t.Fatal("local not visible in its own scope")
	}
	if err := s.LeaveScope(); err != nil {
		t.Fatalf("leave: %v", err)
	}

	if _, ok := s.LookupRegister("local"); ok {
		t.Error("local still visible after its scope closed")
	}
}

func TestUnbalancedScope(t *testing.T) {
	s := NewSession()
	s.EnterScope()

	// Simulate a structural bug: the current node is no longer among its
	// claimed parent's children.
	s.current.parent.children = nil

	if err := s.LeaveScope(); !errors.Is(err, ErrUnbalancedScope) {
		t.Errorf("leave = %v, want ErrUnbalancedScope", err)
	}
}

func TestLeaveScopePropagatesCleanupToParent(t *testing.T) {
	s := NewSession()

	s.EnterScope()
	reg := s.BindRegister("tmp")
	tmp := s.AllocateInternalRegister()
	if err := s.LeaveScope(); err != nil {
		t.Fatalf("leave: %v", err)
	}

	pending := s.CurrentScope().registersToClean
	if len(pending) != 2 {
		t.Fatalf("pending = %d entries, want 2", len(pending))
	}
	if pending[0].register != reg || pending[0].name != "tmp" {
		t.Errorf("pending[0] = %+v, want named binding first", pending[0])
	}
	if pending[1].register != tmp || pending[1].name != "" {
		t.Errorf("pending[1] = %+v, want unnamed temporary", pending[1])
	}
}

func TestLeaveScopeEmitsNothing(t *testing.T) {
	s := NewSession()

	s.EnterScope()
	s.BindRegister("x")
	before := s.PeekNextLabel()
	if err := s.LeaveScope(); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if after := s.PeekNextLabel(); after != before {
		t.Errorf("leaving a scope consumed labels: %q -> %q", before, after)
	}
}

func TestFlushCleanupOrderAndComments(t *testing.T) {
	s := NewSession()

	named, _ := s.ResolveOrAllocateRegister("a") // r1
	unnamed := s.AllocateInternalRegister()      // r2

	s.EnterScope()
	child := s.BindRegister("b") // r3
	if err := s.LeaveScope(); err != nil {
		t.Fatalf("leave: %v", err)
	}

	flush := s.FlushCleanup()
	if len(flush) != 3 {
		t.Fatalf("flush = %d instructions, want 3", len(flush))
	}

	// Inherited entries first, then own named bindings, then own temporaries.
	wantRegs := []string{child, named, unnamed}
	wantComments := []string{"cleanup b", "cleanup a", "cleanup"}
	for i, ins := range flush {
		if ins.Op != bytecode.OpClear {
			t.Errorf("flush[%d].Op = %v, want CLEAR", i, ins.Op)
		}
		if ins.Operands[0] != wantRegs[i] {
			t.Errorf("flush[%d] clears %q, want %q", i, ins.Operands[0], wantRegs[i])
		}
		if ins.Comment != wantComments[i] {
			t.Errorf("flush[%d].Comment = %q, want %q", i, ins.Comment, wantComments[i])
		}
	}

	// The flush resets the scope: nothing left to clean, names unbound.
	if again := s.FlushCleanup(); len(again) != 0 {
		t.Errorf("second flush emitted %d instructions", len(again))
	}
	if _, ok := s.LookupRegister("a"); ok {
		t.Error("a still bound after flush")
	}
}

func TestFlushCleanupLabelsAreFresh(t *testing.T) {
	s := NewSession()
	s.ResolveOrAllocateRegister("x")
	s.NextLabel() // "1"

	flush := s.FlushCleanup()
	if len(flush) != 1 || flush[0].Label != "2" {
		t.Fatalf("flush labels = %+v, want a single instruction labeled 2", flush)
	}
}

func TestRebindKeepsOldRegisterForCleanup(t *testing.T) {
	s := NewSession()

	first := s.BindRegister("x")
	second := s.BindRegister("x")
	if first == second {
		t.Fatal("rebinding reused the register")
	}

	flush := s.FlushCleanup()
	regs := map[string]bool{}
	for _, ins := range flush {
		regs[ins.Operands[0]] = true
	}
	if !regs[first] || !regs[second] {
		t.Errorf("flush missed a register: %v", regs)
	}
}
