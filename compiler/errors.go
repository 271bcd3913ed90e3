package compiler

import (
	"errors"
	"fmt"
)

// ErrUnbalancedScope indicates that leaveScope was invoked on a scope node
// that is not a child of its claimed parent. This is a structural bug in the
// calling code generation logic and aborts the compilation.
var ErrUnbalancedScope = errors.New("unbalanced scope")

// ErrFunctionNotFound indicates a call, return or exit lookup for a function
// name with no reachable registration.
var ErrFunctionNotFound = errors.New("function not found")

// CompileError represents a structural error in the compiled source.
// It includes location information when available from AST nodes.
type CompileError struct {
	Message string
	Line    int
	Column  int
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("compile error: %s", e.Message)
}

// compileErrorf creates a CompileError located at the start of the span.
func compileErrorf(span Span, format string, args ...interface{}) *CompileError {
	return &CompileError{
		Message: fmt.Sprintf(format, args...),
		Line:    span.Start.Line,
		Column:  span.Start.Column,
	}
}
