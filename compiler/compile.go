package compiler

import (
	"fmt"
	"strings"

	"github.com/rill-lang/rill/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Compilation driver
// ---------------------------------------------------------------------------

// CompileProgram turns a parsed program into a bytecode program. It first
// runs the prototype pre-scan over the whole AST so every function has a
// stable identity, then asks each top-level statement for its fragment in
// order, and finally appends the global cleanup fragment for the root scope.
//
// Any error aborts the whole compilation; no partial program is returned.
func (s *Session) CompileProgram(stmts []Stmt) (*bytecode.Program, error) {
	nodes := make([]Node, len(stmts))
	for i, st := range stmts {
		nodes[i] = st
	}
	s.RegisterPrototypes(nodes)

	var prog bytecode.Program
	for _, st := range stmts {
		frag, err := st.gen(s, nil)
		if err != nil {
			return nil, err
		}
		prog.Append(frag...)
	}
	prog.Append(s.FlushCleanup()...)

	return &prog, nil
}

// Compile is the convenience entry point: one fresh session, one program.
func Compile(stmts []Stmt) (*bytecode.Program, error) {
	return NewSession().CompileProgram(stmts)
}

// CompileSource lexes, parses and compiles Rill source text.
func CompileSource(src string) (*bytecode.Program, error) {
	p := NewParser(src)
	stmts := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("parse failed:\n%s", strings.Join(errs, "\n"))
	}
	return Compile(stmts)
}
