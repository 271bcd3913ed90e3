package compiler

import "testing"

func TestLexSimpleAssignment(t *testing.T) {
	l := NewLexer("x = 42")

	want := []struct {
		typ TokenType
		lit string
	}{
		{TokenIdentifier, "x"},
		{TokenAssign, "="},
		{TokenInt, "42"},
		{TokenEOF, ""},
	}
	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w.typ || tok.Literal != w.lit {
			t.Errorf("token %d = %v, want %s(%q)", i, tok, w.typ, w.lit)
		}
	}
}

func TestLexOperators(t *testing.T) {
	l := NewLexer("+ - * / % == != < <= > >= && || ! =")

	want := []TokenType{
		TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent,
		TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe,
		TokenAnd, TokenOr, TokenBang, TokenAssign, TokenEOF,
	}
	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w {
			t.Errorf("token %d = %v, want %s", i, tok, w)
		}
	}
}

func TestLexKeywords(t *testing.T) {
	l := NewLexer("var fn if else while for break continue return true false forx")

	want := []TokenType{
		TokenVar, TokenFn, TokenIf, TokenElse, TokenWhile, TokenFor,
		TokenBreak, TokenContinue, TokenReturn, TokenTrue, TokenFalse,
		TokenIdentifier, // forx is not a keyword
	}
	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w {
			t.Errorf("token %d = %v, want %s", i, tok, w)
		}
	}
}

func TestLexString(t *testing.T) {
	l := NewLexer(`"hello\nworld"`)

	tok := l.NextToken()
	if tok.Type != TokenString {
		t.Fatalf("token = %v, want STRING", tok)
	}
	if tok.Literal != "hello\nworld" {
		t.Errorf("literal = %q", tok.Literal)
	}
}

func TestLexUnterminatedString(t *testing.T) {
	l := NewLexer(`"oops`)
	if tok := l.NextToken(); tok.Type != TokenError {
		t.Errorf("token = %v, want ERROR", tok)
	}
}

func TestLexFloat(t *testing.T) {
	l := NewLexer("3.14 10")

	tok := l.NextToken()
	if tok.Type != TokenFloat || tok.Literal != "3.14" {
		t.Errorf("token = %v, want FLOAT(3.14)", tok)
	}
	tok = l.NextToken()
	if tok.Type != TokenInt || tok.Literal != "10" {
		t.Errorf("token = %v, want INT(10)", tok)
	}
}

func TestLexComments(t *testing.T) {
	l := NewLexer("a # the rest is ignored\nb")

	if tok := l.NextToken(); tok.Literal != "a" {
		t.Errorf("token = %v, want a", tok)
	}
	tok := l.NextToken()
	if tok.Literal != "b" {
		t.Errorf("token = %v, want b", tok)
	}
	if tok.Pos.Line != 2 {
		t.Errorf("line = %d, want 2", tok.Pos.Line)
	}
}

func TestLexPositions(t *testing.T) {
	l := NewLexer("x\n  y")

	x := l.NextToken()
	if x.Pos.Line != 1 || x.Pos.Column != 1 {
		t.Errorf("x at %d:%d, want 1:1", x.Pos.Line, x.Pos.Column)
	}
	y := l.NextToken()
	if y.Pos.Line != 2 || y.Pos.Column != 3 {
		t.Errorf("y at %d:%d, want 2:3", y.Pos.Line, y.Pos.Column)
	}
}

func TestLexUnexpectedChar(t *testing.T) {
	l := NewLexer("@")
	if tok := l.NextToken(); tok.Type != TokenError {
		t.Errorf("token = %v, want ERROR", tok)
	}
}
