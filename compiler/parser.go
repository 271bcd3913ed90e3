package compiler

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Rill syntax
// ---------------------------------------------------------------------------

// Parser parses Rill source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []string
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken.Type)
	return false
}

// errorf records a parse error.
func (p *Parser) errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf("line %d: %s", p.curToken.Pos.Line, fmt.Sprintf(format, args...))
	p.errors = append(p.errors, msg)
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string {
	return p.errors
}

// span builds a span from a start position to the current token.
func (p *Parser) span(start Position) Span {
	return Span{Start: start, End: p.curToken.Pos}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses a whole program: a sequence of statements.
func (p *Parser) ParseProgram() []Stmt {
	var stmts []Stmt
	for !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenSemicolon) {
			p.nextToken()
			continue
		}
		stmt := p.ParseStatement()
		if stmt == nil {
			// Error recovery: skip the offending token and resync.
			p.nextToken()
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

// ParseStatement parses a single statement.
func (p *Parser) ParseStatement() Stmt {
	switch p.curToken.Type {
	case TokenVar:
		return p.parseVarDecl()
	case TokenFn:
		return p.parseFnDecl()
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenFor:
		return p.parseFor()
	case TokenBreak:
		start := p.curToken.Pos
		p.nextToken()
		return &Break{SpanVal: p.span(start)}
	case TokenContinue:
		start := p.curToken.Pos
		p.nextToken()
		return &Continue{SpanVal: p.span(start)}
	case TokenReturn:
		return p.parseReturn()
	case TokenLBrace:
		start := p.curToken.Pos
		stmts := p.parseBlock()
		return &Block{SpanVal: p.span(start), Stmts: stmts}
	case TokenError:
		p.errorf("%s", p.curToken.Literal)
		return nil
	default:
		return p.parseSimpleStatement()
	}
}

// parseSimpleStatement parses an assignment or an expression statement.
// Used both at statement level and in for-loop init/step positions.
func (p *Parser) parseSimpleStatement() Stmt {
	start := p.curToken.Pos

	if p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenAssign) {
		name := p.curToken.Literal
		p.nextToken() // name
		p.nextToken() // =
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		return &Assign{SpanVal: p.span(start), Name: name, Value: value}
	}

	expr := p.parseExpression()
	if expr == nil {
		return nil
	}
	return &ExprStmt{SpanVal: p.span(start), X: expr}
}

// parseVarDecl parses: var name [= expr]
func (p *Parser) parseVarDecl() Stmt {
	start := p.curToken.Pos
	p.nextToken() // var

	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected identifier after var, got %s", p.curToken.Type)
		return nil
	}
	name := p.curToken.Literal
	p.nextToken()

	var value Expr
	if p.curTokenIs(TokenAssign) {
		p.nextToken()
		value = p.parseExpression()
		if value == nil {
			return nil
		}
	}
	return &VarDecl{SpanVal: p.span(start), Name: name, Value: value}
}

// parseFnDecl parses: fn name(params) { body }
func (p *Parser) parseFnDecl() Stmt {
	start := p.curToken.Pos
	p.nextToken() // fn

	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected function name, got %s", p.curToken.Type)
		return nil
	}
	name := p.curToken.Literal
	p.nextToken()

	if !p.expect(TokenLParen) {
		return nil
	}

	var params []string
	for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) {
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected parameter name, got %s", p.curToken.Type)
			return nil
		}
		params = append(params, p.curToken.Literal)
		p.nextToken()
		if p.curTokenIs(TokenComma) {
			p.nextToken()
		}
	}
	if !p.expect(TokenRParen) {
		return nil
	}

	body := p.parseBlock()
	return &FnDecl{SpanVal: p.span(start), Name: name, Params: params, Body: body}
}

// parseIf parses: if cond { } [else { } | else if ...]
func (p *Parser) parseIf() Stmt {
	start := p.curToken.Pos
	p.nextToken() // if

	cond := p.parseExpression()
	if cond == nil {
		return nil
	}
	then := p.parseBlock()

	var els []Stmt
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		if p.curTokenIs(TokenIf) {
			chained := p.parseIf()
			if chained != nil {
				els = []Stmt{chained}
			}
		} else {
			els = p.parseBlock()
			if els == nil {
				els = []Stmt{}
			}
		}
	}
	return &If{SpanVal: p.span(start), Cond: cond, Then: then, Else: els}
}

// parseWhile parses: while cond { }
func (p *Parser) parseWhile() Stmt {
	start := p.curToken.Pos
	p.nextToken() // while

	cond := p.parseExpression()
	if cond == nil {
		return nil
	}
	body := p.parseBlock()
	return &While{SpanVal: p.span(start), Cond: cond, Body: body}
}

// parseFor parses: for [init]; [cond]; [step] { }
func (p *Parser) parseFor() Stmt {
	start := p.curToken.Pos
	p.nextToken() // for

	var init Stmt
	if !p.curTokenIs(TokenSemicolon) {
		if p.curTokenIs(TokenVar) {
			init = p.parseVarDecl()
		} else {
			init = p.parseSimpleStatement()
		}
	}
	if !p.expect(TokenSemicolon) {
		return nil
	}

	var cond Expr
	if !p.curTokenIs(TokenSemicolon) {
		cond = p.parseExpression()
	}
	if !p.expect(TokenSemicolon) {
		return nil
	}

	var step Stmt
	if !p.curTokenIs(TokenLBrace) {
		step = p.parseSimpleStatement()
	}

	body := p.parseBlock()
	return &For{SpanVal: p.span(start), Init: init, Cond: cond, Step: step, Body: body}
}

// parseReturn parses: return [expr]
func (p *Parser) parseReturn() Stmt {
	start := p.curToken.Pos
	p.nextToken() // return

	var value Expr
	if !p.curTokenIs(TokenSemicolon) && !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		value = p.parseExpression()
	}
	return &Return{SpanVal: p.span(start), Value: value}
}

// parseBlock parses: { stmt* }
func (p *Parser) parseBlock() []Stmt {
	if !p.expect(TokenLBrace) {
		return nil
	}
	stmts := []Stmt{}
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenSemicolon) {
			p.nextToken()
			continue
		}
		stmt := p.ParseStatement()
		if stmt == nil {
			p.nextToken()
			continue
		}
		stmts = append(stmts, stmt)
	}
	p.expect(TokenRBrace)
	return stmts
}

// ---------------------------------------------------------------------------
// Expression parsing (precedence climbing)
// ---------------------------------------------------------------------------

// parseExpression parses a full expression.
func (p *Parser) parseExpression() Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() Expr {
	left := p.parseAnd()
	for left != nil && p.curTokenIs(TokenOr) {
		op := p.curToken.Type
		p.nextToken()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{SpanVal: spanOf(left, right), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() Expr {
	left := p.parseEquality()
	for left != nil && p.curTokenIs(TokenAnd) {
		op := p.curToken.Type
		p.nextToken()
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{SpanVal: spanOf(left, right), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseEquality() Expr {
	left := p.parseComparison()
	for left != nil && (p.curTokenIs(TokenEq) || p.curTokenIs(TokenNe)) {
		op := p.curToken.Type
		p.nextToken()
		right := p.parseComparison()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{SpanVal: spanOf(left, right), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseComparison() Expr {
	left := p.parseTerm()
	for left != nil && (p.curTokenIs(TokenLt) || p.curTokenIs(TokenLe) ||
		p.curTokenIs(TokenGt) || p.curTokenIs(TokenGe)) {
		op := p.curToken.Type
		p.nextToken()
		right := p.parseTerm()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{SpanVal: spanOf(left, right), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseTerm() Expr {
	left := p.parseFactor()
	for left != nil && (p.curTokenIs(TokenPlus) || p.curTokenIs(TokenMinus)) {
		op := p.curToken.Type
		p.nextToken()
		right := p.parseFactor()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{SpanVal: spanOf(left, right), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseFactor() Expr {
	left := p.parseUnary()
	for left != nil && (p.curTokenIs(TokenStar) || p.curTokenIs(TokenSlash) || p.curTokenIs(TokenPercent)) {
		op := p.curToken.Type
		p.nextToken()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{SpanVal: spanOf(left, right), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	if p.curTokenIs(TokenMinus) || p.curTokenIs(TokenBang) {
		start := p.curToken.Pos
		op := p.curToken.Type
		p.nextToken()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &UnaryExpr{SpanVal: p.span(start), Op: op, Operand: operand}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() Expr {
	start := p.curToken.Pos

	switch p.curToken.Type {
	case TokenInt:
		v, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			p.errorf("invalid integer %q", p.curToken.Literal)
			return nil
		}
		p.nextToken()
		return &IntLiteral{SpanVal: p.span(start), Value: v}

	case TokenFloat:
		v, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			p.errorf("invalid float %q", p.curToken.Literal)
			return nil
		}
		p.nextToken()
		return &FloatLiteral{SpanVal: p.span(start), Value: v}

	case TokenString:
		v := p.curToken.Literal
		p.nextToken()
		return &StringLiteral{SpanVal: p.span(start), Value: v}

	case TokenTrue, TokenFalse:
		v := p.curTokenIs(TokenTrue)
		p.nextToken()
		return &BoolLiteral{SpanVal: p.span(start), Value: v}

	case TokenIdentifier:
		name := p.curToken.Literal
		if p.peekTokenIs(TokenLParen) {
			return p.parseCall()
		}
		p.nextToken()
		return &Variable{SpanVal: p.span(start), Name: name}

	case TokenLParen:
		p.nextToken()
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		p.expect(TokenRParen)
		return expr

	case TokenError:
		p.errorf("%s", p.curToken.Literal)
		return nil

	default:
		p.errorf("unexpected token %s", p.curToken.Type)
		return nil
	}
}

// parseCall parses: name(args)
func (p *Parser) parseCall() Expr {
	start := p.curToken.Pos
	name := p.curToken.Literal
	p.nextToken() // name
	p.nextToken() // (

	var args []Expr
	for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) {
		arg := p.parseExpression()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		if p.curTokenIs(TokenComma) {
			p.nextToken()
		}
	}
	p.expect(TokenRParen)

	return &CallExpr{SpanVal: p.span(start), Name: name, Args: args}
}

// spanOf builds a span covering two expressions.
func spanOf(left, right Expr) Span {
	return Span{Start: left.Span().Start, End: right.Span().End}
}
