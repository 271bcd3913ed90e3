package compiler

import (
	"strings"
	"testing"
	"time"

	"github.com/rill-lang/rill/pkg/bytecode"
)

// A fuller program exercising scopes, loops, functions and builtins together.
const integrationSrc = `
# sum of squares below a bound
fn square(n) {
	return n * n
}

fn sumSquares(bound) {
	var total = 0
	for var i = 1; i < bound; i = i + 1 {
		total = total + square(i)
	}
	return total
}

result = sumSquares(10)
if result > 100 {
	print("big")
} else {
	print(result)
}
`

func TestCompileIntegrationProgram(t *testing.T) {
	s := NewSession()

	p := NewParser(integrationSrc)
	stmts := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}

	prog, err := s.CompileProgram(stmts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	// The session has fully unwound: back at the root scope, stacks empty.
	if s.CurrentScope() != s.Root() {
		t.Error("session not back at root after compilation")
	}
	if _, ok := s.PeekLoopHeader(); ok {
		t.Error("loop-header stack not empty")
	}
	if _, ok := s.PeekFunctionExit(); ok {
		t.Error("function-exit stack not empty")
	}
	if s.FunctionCount() != 2 {
		t.Errorf("functions = %d, want 2", s.FunctionCount())
	}

	// Program survives the wire format unchanged.
	f := &bytecode.File{
		Version:   bytecode.FormatVersion,
		BuildID:   s.ID(),
		CreatedAt: time.Now().Unix(),
		Program:   *prog,
	}
	data, err := bytecode.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := bytecode.Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Program.Len() != prog.Len() {
		t.Errorf("round trip changed length: %d -> %d", prog.Len(), back.Program.Len())
	}
	if back.BuildID != s.ID() {
		t.Errorf("build id = %q, want %q", back.BuildID, s.ID())
	}

	// The listing mentions both functions and the cleanup trail.
	listing := prog.Disassemble()
	for _, want := range []string{"fn square", "fn sumSquares", "cleanup result"} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q", want)
		}
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	a := compile(t, integrationSrc)
	b := compile(t, integrationSrc)

	if a.Len() != b.Len() {
		t.Fatalf("lengths differ: %d vs %d", a.Len(), b.Len())
	}
	for i := range a.Instructions {
		x, y := a.Instructions[i], b.Instructions[i]
		if x.Label != y.Label || x.Op != y.Op || x.Comment != y.Comment {
			t.Fatalf("instruction %d differs: %v vs %v", i, x, y)
		}
		for j := range x.Operands {
			if x.Operands[j] != y.Operands[j] {
				t.Fatalf("instruction %d operand %d differs: %v vs %v", i, j, x, y)
			}
		}
	}
}
