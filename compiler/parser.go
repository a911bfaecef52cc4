package compiler

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Slate syntax
// ---------------------------------------------------------------------------

// Error is a syntax or compile error at a source position.
type Error struct {
	Pos     Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Parser parses Slate source code into an AST. It stops at the first
// error.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	return &Parser{tokens: NewLexer(input).Tokenize()}
}

func (p *Parser) cur() Token { return p.tokens[p.pos] }

func (p *Parser) peekAt(n int) Token {
	if i := p.pos + n; i < len(p.tokens) {
		return p.tokens[i]
	}
	return p.tokens[len(p.tokens)-1]
}

// next consumes and returns the current token.
func (p *Parser) next() Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) curIs(t TokenType) bool { return p.cur().Type == t }

// accept consumes the current token if it has type t.
func (p *Parser) accept(t TokenType) bool {
	if p.curIs(t) {
		p.next()
		return true
	}
	return false
}

// expect consumes a token of type t or fails.
func (p *Parser) expect(t TokenType, context string) Token {
	if !p.curIs(t) {
		p.failf("expected '%s' %s, got %s", t, context, describe(p.cur()))
	}
	return p.next()
}

func (p *Parser) expectIdent(context string) Token {
	if !p.curIs(TokenIdentifier) {
		p.failf("expected a name %s, got %s", context, describe(p.cur()))
	}
	return p.next()
}

// failf aborts parsing with an error at the current token.
func (p *Parser) failf(format string, args ...any) {
	if tok := p.cur(); tok.Type == TokenError {
		p.failAt(tok.Pos, "%s", tok.Literal)
	}
	p.failAt(p.cur().Pos, format, args...)
}

func (p *Parser) failAt(pos Position, format string, args ...any) {
	panic(&Error{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses a whole source file.
func (p *Parser) ParseProgram() (prog *Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			prog, err = nil, perr
		}
	}()
	prog = &Program{}
	for !p.curIs(TokenEOF) {
		prog.Stmts = append(prog.Stmts, p.parseStatement())
	}
	return prog, nil
}

// ParseExpression parses a single expression covering the whole input.
func (p *Parser) ParseExpression() (expr Expr, err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			expr, err = nil, perr
		}
	}()
	expr = p.parseExpr()
	if !p.curIs(TokenEOF) {
		p.failf("unexpected %s after expression", describe(p.cur()))
	}
	return expr, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseStatement() Stmt {
	if tok := p.cur(); tok.Type == TokenError {
		p.failAt(tok.Pos, "%s", tok.Literal)
	}
	var s Stmt
	switch tok := p.cur(); tok.Type {
	case TokenSemicolon:
		p.next()
		return &Block{At: tok.Pos}
	case TokenVar, TokenVal:
		s = p.parseVarDecl()
	case TokenFunction:
		if p.peekAt(1).Type == TokenIdentifier {
			fn := p.parseFunction()
			return &FunctionDecl{At: tok.Pos, Function: fn}
		}
		s = p.parseExprStatement()
	case TokenLBrace:
		return p.parseBlock()
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenFor:
		return p.parseFor()
	case TokenBreak:
		p.next()
		s = &Break{At: tok.Pos}
	case TokenContinue:
		p.next()
		s = &Continue{At: tok.Pos}
	case TokenReturn:
		s = p.parseReturn()
	case TokenImport:
		s = p.parseImport()
	default:
		s = p.parseExprStatement()
	}
	p.endStatement()
	return s
}

// endStatement accepts an optional semicolon. Without one, the next token
// must start a new line, close the enclosing block or be an else.
func (p *Parser) endStatement() {
	if p.accept(TokenSemicolon) {
		return
	}
	tok := p.cur()
	if tok.Type == TokenEOF || tok.Type == TokenRBrace || tok.Type == TokenElse || tok.NewlineBefore {
		return
	}
	p.failf("unexpected %s; expected end of statement", describe(tok))
}

func (p *Parser) parseExprStatement() Stmt {
	at := p.cur().Pos
	return &ExprStmt{At: at, Expr: p.parseExpr()}
}

func (p *Parser) parseVarDecl() Stmt {
	tok := p.next()
	name := p.expectIdent("after " + tok.Literal)
	decl := &VarDecl{At: tok.Pos, Name: name.Literal, Immutable: tok.Type == TokenVal}
	if p.accept(TokenAssign) {
		decl.Value = p.parseExpr()
	} else if decl.Immutable {
		p.failf("val '%s' needs an initializer", name.Literal)
	}
	return decl
}

func (p *Parser) parseBlock() *Block {
	open := p.expect(TokenLBrace, "to open block")
	b := &Block{At: open.Pos}
	for !p.curIs(TokenRBrace) {
		if p.curIs(TokenEOF) {
			p.failf("unexpected end of input in block opened at line %d", open.Pos.Line)
		}
		b.Stmts = append(b.Stmts, p.parseStatement())
	}
	p.next()
	return b
}

func (p *Parser) parseCondition(keyword string) Expr {
	p.expect(TokenLParen, "after "+keyword)
	cond := p.parseExpr()
	p.expect(TokenRParen, "after "+keyword+" condition")
	return cond
}

func (p *Parser) parseIf() Stmt {
	tok := p.next()
	s := &If{At: tok.Pos, Cond: p.parseCondition("if")}
	s.Then = p.parseStatement()
	if p.accept(TokenElse) {
		s.Else = p.parseStatement()
	}
	return s
}

func (p *Parser) parseWhile() Stmt {
	tok := p.next()
	s := &While{At: tok.Pos, Cond: p.parseCondition("while")}
	s.Body = p.parseStatement()
	return s
}

func (p *Parser) parseFor() Stmt {
	tok := p.next()
	p.expect(TokenLParen, "after for")
	p.accept(TokenVar)
	name := p.expectIdent("for loop variable")
	p.expect(TokenIn, "after loop variable")
	iterable := p.parseExpr()
	p.expect(TokenRParen, "after for clause")
	return &ForIn{At: tok.Pos, Name: name.Literal, Iterable: iterable, Body: p.parseStatement()}
}

func (p *Parser) parseReturn() Stmt {
	tok := p.next()
	s := &Return{At: tok.Pos}
	switch next := p.cur(); {
	case next.Type == TokenSemicolon, next.Type == TokenRBrace, next.Type == TokenEOF, next.NewlineBefore:
	default:
		s.Value = p.parseExpr()
	}
	return s
}

// parseImport parses `import a.b.c [as m]`, `import a.b.*` and
// `import a.b.{x, y as z}`.
func (p *Parser) parseImport() Stmt {
	tok := p.next()
	s := &Import{At: tok.Pos}
	parts := []string{p.expectIdent("after import").Literal}
path:
	for p.accept(TokenDot) {
		switch {
		case p.accept(TokenStar):
			s.Wildcard = true
			break path
		case p.curIs(TokenLBrace):
			s.Names = p.parseImportNames()
			break path
		}
		parts = append(parts, p.expectIdent("in module path").Literal)
	}
	s.Path = strings.Join(parts, ".")
	if s.Wildcard || s.Names != nil {
		return s
	}
	s.Alias = parts[len(parts)-1]
	if p.accept(TokenAs) {
		s.Alias = p.expectIdent("after as").Literal
	}
	return s
}

func (p *Parser) parseImportNames() []ImportName {
	p.expect(TokenLBrace, "to open import list")
	names := []ImportName{}
	for !p.curIs(TokenRBrace) {
		name := p.expectIdent("in import list").Literal
		entry := ImportName{Name: name, Alias: name}
		if p.accept(TokenAs) {
			entry.Alias = p.expectIdent("after as").Literal
		}
		names = append(names, entry)
		if !p.accept(TokenComma) {
			break
		}
	}
	p.expect(TokenRBrace, "to close import list")
	if len(names) == 0 {
		p.failf("empty import list")
	}
	return names
}

// ---------------------------------------------------------------------------
// Expressions, lowest precedence first
// ---------------------------------------------------------------------------

func (p *Parser) parseExpr() Expr {
	return p.parseAssignment()
}

var assignOps = map[TokenType]bool{
	TokenAssign: true, TokenPlusAssign: true, TokenMinusAssign: true,
	TokenStarAssign: true, TokenSlashAssign: true,
}

func (p *Parser) parseAssignment() Expr {
	target := p.parseTernary()
	tok := p.cur()
	if !assignOps[tok.Type] {
		return target
	}
	switch target.(type) {
	case *Identifier, *Member, *Index:
	default:
		p.failAt(tok.Pos, "invalid assignment target")
	}
	p.next()
	return &Assign{At: tok.Pos, Op: tok.Type, Target: target, Value: p.parseAssignment()}
}

func (p *Parser) parseTernary() Expr {
	cond := p.parseCoalesce()
	if !p.curIs(TokenQuestion) {
		return cond
	}
	tok := p.next()
	then := p.parseAssignment()
	p.expect(TokenColon, "in conditional expression")
	return &Ternary{At: tok.Pos, Cond: cond, Then: then, Else: p.parseAssignment()}
}

// binaryLevel parses a left-associative level over ops.
func (p *Parser) binaryLevel(next func() Expr, ops ...TokenType) Expr {
	left := next()
	for {
		tok := p.cur()
		matched := false
		for _, op := range ops {
			if tok.Type == op {
				matched = true
				break
			}
		}
		if !matched {
			return left
		}
		p.next()
		right := next()
		if tok.Type == TokenAndAnd || tok.Type == TokenOrOr {
			left = &Logical{At: tok.Pos, Op: tok.Type, Left: left, Right: right}
		} else {
			left = &Binary{At: tok.Pos, Op: tok.Type, Left: left, Right: right}
		}
	}
}

func (p *Parser) parseCoalesce() Expr {
	return p.binaryLevel(p.parseOr, TokenQuestionQ)
}

func (p *Parser) parseOr() Expr {
	return p.binaryLevel(p.parseAnd, TokenOrOr)
}

func (p *Parser) parseAnd() Expr {
	return p.binaryLevel(p.parseBitOr, TokenAndAnd)
}

func (p *Parser) parseBitOr() Expr {
	return p.binaryLevel(p.parseBitXor, TokenPipe)
}

func (p *Parser) parseBitXor() Expr {
	return p.binaryLevel(p.parseBitAnd, TokenCaret)
}

func (p *Parser) parseBitAnd() Expr {
	return p.binaryLevel(p.parseEquality, TokenAmp)
}

func (p *Parser) parseEquality() Expr {
	return p.binaryLevel(p.parseRelational, TokenEqual, TokenNotEqual)
}

func (p *Parser) parseRelational() Expr {
	return p.binaryLevel(p.parseRange,
		TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual, TokenIn, TokenInstanceof)
}

// parseRange parses a..b, a..<b and an optional contextual `step s`.
func (p *Parser) parseRange() Expr {
	start := p.parseShift()
	tok := p.cur()
	if tok.Type != TokenDotDot && tok.Type != TokenDotDotLess {
		return start
	}
	p.next()
	r := &RangeExpr{At: tok.Pos, Start: start, End: p.parseShift(), Exclusive: tok.Type == TokenDotDotLess}
	if t := p.cur(); t.Type == TokenIdentifier && t.Literal == "step" {
		p.next()
		r.Step = p.parseShift()
	}
	return r
}

func (p *Parser) parseShift() Expr {
	return p.binaryLevel(p.parseAdditive, TokenShiftLeft, TokenShiftRight, TokenShiftRightU)
}

func (p *Parser) parseAdditive() Expr {
	return p.binaryLevel(p.parseMultiplicative, TokenPlus, TokenMinus)
}

func (p *Parser) parseMultiplicative() Expr {
	return p.binaryLevel(p.parseUnary, TokenStar, TokenSlash, TokenSlashSlash, TokenPercent)
}

func (p *Parser) parseUnary() Expr {
	tok := p.cur()
	switch tok.Type {
	case TokenMinus, TokenBang, TokenTilde:
		p.next()
		return &Unary{At: tok.Pos, Op: tok.Type, Operand: p.parseUnary()}
	case TokenPlusPlus, TokenMinusMinus:
		p.next()
		target := p.parseUnary()
		p.checkUpdateTarget(target, tok)
		return &Update{At: tok.Pos, Op: tok.Type, Prefix: true, Target: target}
	}
	return p.parsePower()
}

// parsePower binds tighter than unary minus on its left and accepts a
// unary operand on its right: -2 ** 2 is -(2 ** 2), 2 ** -1 is allowed.
func (p *Parser) parsePower() Expr {
	base := p.parsePostfix()
	if !p.curIs(TokenStarStar) {
		return base
	}
	tok := p.next()
	return &Binary{At: tok.Pos, Op: TokenStarStar, Left: base, Right: p.parseUnary()}
}

func (p *Parser) checkUpdateTarget(target Expr, tok Token) {
	switch target.(type) {
	case *Identifier, *Member, *Index:
		return
	}
	p.failAt(tok.Pos, "invalid operand for %s", tok.Type)
}

// parsePostfix parses calls, member access, indexing and postfix ++/--.
// A call or index must start on the line of its operand.
func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	for {
		tok := p.cur()
		switch {
		case tok.Type == TokenDot:
			p.next()
			name := p.expectIdent("after '.'")
			expr = &Member{At: name.Pos, Object: expr, Name: name.Literal}
		case tok.Type == TokenLParen && !tok.NewlineBefore:
			p.next()
			expr = &Call{At: tok.Pos, Callee: expr, Args: p.parseArgs(TokenRParen)}
		case tok.Type == TokenLBracket && !tok.NewlineBefore:
			p.next()
			idx := p.parseExpr()
			p.expect(TokenRBracket, "to close index")
			expr = &Index{At: tok.Pos, Object: expr, Index: idx}
		case (tok.Type == TokenPlusPlus || tok.Type == TokenMinusMinus) && !tok.NewlineBefore:
			p.checkUpdateTarget(expr, tok)
			p.next()
			expr = &Update{At: tok.Pos, Op: tok.Type, Target: expr}
		default:
			return expr
		}
	}
}

// parseArgs parses a comma-separated list up to and including close.
func (p *Parser) parseArgs(close TokenType) []Expr {
	var args []Expr
	for !p.curIs(close) {
		args = append(args, p.parseExpr())
		if !p.accept(TokenComma) {
			break
		}
	}
	p.expect(close, "to close list")
	return args
}

func (p *Parser) parsePrimary() Expr {
	tok := p.cur()
	switch tok.Type {
	case TokenInteger:
		p.next()
		return p.intLiteral(tok)
	case TokenFloat:
		p.next()
		return p.floatLiteral(tok)
	case TokenString:
		p.next()
		return &StringLiteral{At: tok.Pos, Value: tok.Literal}
	case TokenTrue, TokenFalse:
		p.next()
		return &BoolLiteral{At: tok.Pos, Value: tok.Type == TokenTrue}
	case TokenNull:
		p.next()
		return &NullLiteral{At: tok.Pos}
	case TokenUndefined:
		p.next()
		return &UndefinedLiteral{At: tok.Pos}
	case TokenIdentifier:
		if p.peekAt(1).Type == TokenArrow {
			return p.parseArrow([]string{p.next().Literal}, tok.Pos)
		}
		p.next()
		return &Identifier{At: tok.Pos, Name: tok.Literal}
	case TokenLParen:
		if p.isArrowParams() {
			return p.parseArrow(p.parseParams(), tok.Pos)
		}
		p.next()
		expr := p.parseExpr()
		p.expect(TokenRParen, "to close parenthesis")
		return expr
	case TokenLBracket:
		p.next()
		return &ArrayLiteral{At: tok.Pos, Elements: p.parseArgs(TokenRBracket)}
	case TokenLBrace:
		return p.parseObject()
	case TokenFunction:
		return p.parseFunction()
	case TokenError:
		p.failAt(tok.Pos, "%s", tok.Literal)
	}
	p.failf("unexpected %s", describe(tok))
	return nil
}

func (p *Parser) intLiteral(tok Token) Expr {
	text := strings.ReplaceAll(tok.Literal, "_", "")
	n, ok := new(big.Int).SetString(text, 0)
	if !ok {
		p.failAt(tok.Pos, "malformed integer %s", tok.Literal)
	}
	return &IntLiteral{At: tok.Pos, Value: n}
}

func (p *Parser) floatLiteral(tok Token) Expr {
	text := strings.ReplaceAll(tok.Literal, "_", "")
	lit := &FloatLiteral{At: tok.Pos}
	bits := 64
	if strings.HasSuffix(text, "f") || strings.HasSuffix(text, "F") {
		text = text[:len(text)-1]
		lit.Float32 = true
		bits = 32
	}
	f, err := strconv.ParseFloat(text, bits)
	if err != nil {
		p.failAt(tok.Pos, "malformed float %s", tok.Literal)
	}
	lit.Value = f
	return lit
}

// isArrowParams reports whether the parenthesis at the current token
// closes a parameter list followed by =>.
func (p *Parser) isArrowParams() bool {
	depth := 0
	for i := p.pos; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
			if depth == 0 {
				return i+1 < len(p.tokens) && p.tokens[i+1].Type == TokenArrow
			}
		case TokenEOF:
			return false
		}
	}
	return false
}

// parseParams parses (a, b, ...).
func (p *Parser) parseParams() []string {
	p.expect(TokenLParen, "to open parameter list")
	params := []string{}
	seen := make(map[string]bool)
	for !p.curIs(TokenRParen) {
		name := p.expectIdent("in parameter list")
		if seen[name.Literal] {
			p.failAt(name.Pos, "duplicate parameter '%s'", name.Literal)
		}
		seen[name.Literal] = true
		params = append(params, name.Literal)
		if !p.accept(TokenComma) {
			break
		}
	}
	p.expect(TokenRParen, "to close parameter list")
	return params
}

func (p *Parser) parseArrow(params []string, at Position) Expr {
	p.expect(TokenArrow, "after parameters")
	fn := &FunctionLiteral{At: at, Params: params}
	if p.curIs(TokenLBrace) {
		fn.Body = p.parseBlock().Stmts
	} else {
		fn.Result = p.parseAssignment()
	}
	return fn
}

// parseFunction parses `function [name](params) { body }`.
func (p *Parser) parseFunction() *FunctionLiteral {
	tok := p.expect(TokenFunction, "")
	fn := &FunctionLiteral{At: tok.Pos}
	if p.curIs(TokenIdentifier) {
		fn.Name = p.next().Literal
	}
	fn.Params = p.parseParams()
	fn.Body = p.parseBlock().Stmts
	return fn
}

// parseObject parses {k: v, "k": v}.
func (p *Parser) parseObject() Expr {
	open := p.expect(TokenLBrace, "")
	obj := &ObjectLiteral{At: open.Pos}
	seen := make(map[string]bool)
	for !p.curIs(TokenRBrace) {
		key := p.cur()
		switch key.Type {
		case TokenIdentifier, TokenString:
		default:
			if _, reserved := reservedWords[key.Literal]; !reserved || key.Literal == "" {
				p.failf("expected a property name, got %s", describe(key))
			}
		}
		p.next()
		if seen[key.Literal] {
			p.failAt(key.Pos, "duplicate key '%s'", key.Literal)
		}
		seen[key.Literal] = true
		p.expect(TokenColon, "after property name")
		obj.Keys = append(obj.Keys, key.Literal)
		obj.Values = append(obj.Values, p.parseExpr())
		if !p.accept(TokenComma) {
			break
		}
	}
	p.expect(TokenRBrace, "to close object")
	return obj
}
