package parser

import (
	"math/big"
	"strings"

	"github.com/ecmavm/engine/internal/ast"
	"github.com/ecmavm/engine/internal/lexer"
	"github.com/ecmavm/engine/internal/token"
)

// Precedence levels, lowest to highest. Grounded on funxy's
// `parser/expressions_core.go` Pratt-precedence table, rebuilt for
// ECMAScript's operator set (exponent, nullish coalescing, optional
// chaining) instead of funxy's.
type precedence int

const (
	lowest precedence = iota
	assignPrec
	conditionalPrec
	nullishPrec
	logicalOrPrec
	logicalAndPrec
	bitOrPrec
	bitXorPrec
	bitAndPrec
	equalityPrec
	relationalPrec
	shiftPrec
	additivePrec
	multiplicativePrec
	exponentPrec
	unaryPrec
	updatePrec
	callPrec
)

var precedences = map[token.Type]precedence{
	token.ASSIGN: assignPrec, token.PLUS_ASSIGN: assignPrec, token.MINUS_ASSIGN: assignPrec,
	token.STAR_ASSIGN: assignPrec, token.SLASH_ASSIGN: assignPrec, token.PERCENT_ASSIGN: assignPrec,
	token.STAR_STAR_ASSIGN: assignPrec, token.SHL_ASSIGN: assignPrec, token.SHR_ASSIGN: assignPrec,
	token.USHR_ASSIGN: assignPrec, token.BAND_ASSIGN: assignPrec, token.BOR_ASSIGN: assignPrec,
	token.BXOR_ASSIGN: assignPrec, token.AND_ASSIGN: assignPrec, token.OR_ASSIGN: assignPrec,
	token.NULLISH_ASSIGN: assignPrec,

	token.QUESTION: conditionalPrec,
	token.NULLISH:  nullishPrec,
	token.OR:       logicalOrPrec,
	token.AND:      logicalAndPrec,
	token.BOR:      bitOrPrec,
	token.BXOR:     bitXorPrec,
	token.BAND:     bitAndPrec,

	token.EQ: equalityPrec, token.NEQ: equalityPrec, token.STRICT_EQ: equalityPrec, token.STRICT_NEQ: equalityPrec,

	token.LT: relationalPrec, token.GT: relationalPrec, token.LE: relationalPrec, token.GE: relationalPrec,
	token.INSTANCEOF: relationalPrec, token.IN: relationalPrec,

	token.SHL: shiftPrec, token.SHR: shiftPrec, token.USHR: shiftPrec,

	token.PLUS: additivePrec, token.MINUS: additivePrec,
	token.STAR: multiplicativePrec, token.SLASH: multiplicativePrec, token.PERCENT: multiplicativePrec,
	token.STAR_STAR: exponentPrec,

	token.LPAREN: callPrec, token.DOT: callPrec, token.LBRACKET: callPrec, token.OPTIONAL_CHAIN: callPrec,

	token.INC: updatePrec, token.DEC: updatePrec,
}

// peekPrecedence reports the precedence that keeps the Pratt loop folding
// tokens into `left`. A postfix ++/-- preceded by a line terminator is not
// part of the current expression (ASI): treated as lowest so the loop stops
// and the operator is left for the next statement to consume as a prefix.
func (p *Parser) peekPrecedence() precedence {
	if (p.peek.Type == token.INC || p.peek.Type == token.DEC) && p.peek.NewlineBefore {
		return lowest
	}
	if pr, ok := precedences[p.peek.Type]; ok {
		return pr
	}
	return lowest
}

// parseExpression parses a full expression including top-level comma
// (SequenceExpression); parseAssignExpr is used wherever the grammar
// restricts to a single AssignmentExpression (call arguments, array/object
// elements, for-of's right side).
func (p *Parser) parseExpression(min precedence) ast.Expression {
	expr := p.parseAssignExprAt(min)
	if min <= lowest && p.curIs(token.COMMA) {
		base := expr.(ast.Node)
		seq := &ast.SequenceExpression{Base: ast.Base{Line: lineOf(base), Column: colOf(base)}, Expressions: []ast.Expression{expr}}
		for p.curIs(token.COMMA) {
			p.advance()
			seq.Expressions = append(seq.Expressions, p.parseAssignExprAt(min))
		}
		return seq
	}
	return expr
}

func lineOf(n ast.Node) int { l, _ := n.Pos(); return l }
func colOf(n ast.Node) int  { _, c := n.Pos(); return c }

func (p *Parser) parseAssignExpr() ast.Expression {
	return p.parseAssignExprAt(lowest)
}

// parseAssignExprAt implements the Pratt loop: parse a prefix expression,
// then repeatedly fold in infix/postfix operators whose precedence exceeds
// min. Assignment and conditional are right-associative, handled as
// special infix cases.
func (p *Parser) parseAssignExprAt(min precedence) ast.Expression {
	left := p.parsePrefix()

	for min < p.peekPrecedence() {
		p.advance()
		left = p.parseInfix(left)
	}
	return left
}

func (p *Parser) parseInfix(left ast.Expression) ast.Expression {
	switch p.cur.Type {
	case token.ASSIGN, token.PLUS_ASSIGN, token.MINUS_ASSIGN, token.STAR_ASSIGN, token.SLASH_ASSIGN,
		token.PERCENT_ASSIGN, token.STAR_STAR_ASSIGN, token.SHL_ASSIGN, token.SHR_ASSIGN, token.USHR_ASSIGN,
		token.BAND_ASSIGN, token.BOR_ASSIGN, token.BXOR_ASSIGN, token.AND_ASSIGN, token.OR_ASSIGN, token.NULLISH_ASSIGN:
		op := p.cur.Lexeme
		base := ast.At(p.cur)
		p.advance()
		value := p.parseAssignExprAt(assignPrec - 1)
		var target ast.Node
		if op == "=" {
			target = exprToPattern(left)
		} else {
			target = left
		}
		return &ast.AssignmentExpression{Base: base, Op: op, Target: target, Value: value}

	case token.QUESTION:
		base := ast.At(p.cur)
		p.advance()
		cons := p.parseAssignExprAt(lowest)
		p.expect(token.COLON)
		alt := p.parseAssignExprAt(assignPrec - 1)
		return &ast.ConditionalExpression{Base: base, Test: left, Consequent: cons, Alternate: alt}

	case token.NULLISH:
		return p.parseLogical(left, ast.LogNullish, nullishPrec)
	case token.OR:
		return p.parseLogical(left, ast.LogOr, logicalOrPrec)
	case token.AND:
		return p.parseLogical(left, ast.LogAnd, logicalAndPrec)

	case token.DOT:
		base := ast.At(p.cur)
		p.advance()
		if p.curIs(token.PRIVATE_IDENT) {
			name := p.cur.Lexeme
			p.advance()
			return &ast.PrivateMemberExpression{Base: base, Object: left, Private: name}
		}
		prop := p.cur
		p.advance()
		return &ast.MemberExpression{Base: base, Object: left, Property: &ast.Identifier{Base: ast.At(prop), Name: prop.Lexeme}}

	case token.OPTIONAL_CHAIN:
		base := ast.At(p.cur)
		p.advance()
		if p.curIs(token.LPAREN) {
			args := p.parseCallArgs()
			return &ast.CallExpression{Base: base, Callee: left, Args: args, Optional: true}
		}
		if p.curIs(token.LBRACKET) {
			p.advance()
			prop := p.parseExpression(lowest)
			p.expect(token.RBRACKET)
			return &ast.MemberExpression{Base: base, Object: left, Property: prop, Computed: true, Optional: true}
		}
		prop := p.cur
		p.advance()
		return &ast.MemberExpression{Base: base, Object: left, Property: &ast.Identifier{Base: ast.At(prop), Name: prop.Lexeme}, Optional: true}

	case token.LBRACKET:
		base := ast.At(p.cur)
		p.advance()
		prop := p.parseExpression(lowest)
		p.expect(token.RBRACKET)
		return &ast.MemberExpression{Base: base, Object: left, Property: prop, Computed: true}

	case token.LPAREN:
		base := ast.At(p.cur)
		args := p.parseCallArgs()
		return &ast.CallExpression{Base: base, Callee: left, Args: args}

	case token.TEMPLATE_STRING:
		quasi := p.parseTemplateLiteral()
		return &ast.TaggedTemplateExpression{Base: quasi.Base, Tag: left, Quasi: quasi}

	case token.INC, token.DEC:
		base := ast.At(p.cur)
		op := p.cur.Lexeme
		return &ast.UpdateExpression{Base: base, Op: op, Arg: left, Prefix: false}

	default:
		return p.parseBinary(left)
	}
}

func (p *Parser) parseLogical(left ast.Expression, op ast.LogicalOp, prec precedence) ast.Expression {
	base := ast.At(p.cur)
	p.advance()
	right := p.parseAssignExprAt(prec)
	return &ast.LogicalExpression{Base: base, Op: op, Left: left, Right: right}
}

var binaryOps = map[token.Type]ast.BinaryOp{
	token.PLUS: ast.BinAdd, token.MINUS: ast.BinSub, token.STAR: ast.BinMul, token.SLASH: ast.BinDiv,
	token.PERCENT: ast.BinMod, token.STAR_STAR: ast.BinPow,
	token.EQ: ast.BinEq, token.NEQ: ast.BinNeq, token.STRICT_EQ: ast.BinStrictEq, token.STRICT_NEQ: ast.BinStrictNeq,
	token.LT: ast.BinLt, token.GT: ast.BinGt, token.LE: ast.BinLe, token.GE: ast.BinGe,
	token.BAND: ast.BinBAnd, token.BOR: ast.BinBOr, token.BXOR: ast.BinBXor,
	token.SHL: ast.BinShl, token.SHR: ast.BinShr, token.USHR: ast.BinUShr,
	token.INSTANCEOF: ast.BinInstanceof, token.IN: ast.BinIn,
}

func (p *Parser) parseBinary(left ast.Expression) ast.Expression {
	opTok := p.cur
	base := ast.At(opTok)
	op, ok := binaryOps[opTok.Type]
	if !ok {
		p.errorf("unexpected token %s in expression", opTok.Type)
		return left
	}
	prec := precedences[opTok.Type]
	p.advance()
	// `**` is right-associative; every other binary operator is left-associative.
	rhsMin := prec
	if opTok.Type == token.STAR_STAR {
		rhsMin = prec - 1
	}
	right := p.parseAssignExprAt(rhsMin)
	return &ast.BinaryExpression{Base: base, Op: op, Left: left, Right: right}
}

func (p *Parser) parseCallArgs() []ast.CallArgument {
	p.expect(token.LPAREN)
	var args []ast.CallArgument
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		if p.curIs(token.DOTDOTDOT) {
			p.advance()
			args = append(args, ast.CallArgument{Expr: p.parseAssignExpr(), IsSpread: true})
		} else {
			args = append(args, ast.CallArgument{Expr: p.parseAssignExpr()})
		}
		if p.curIs(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN)
	return args
}

// parsePrefix parses a prefix operator or a primary expression.
func (p *Parser) parsePrefix() ast.Expression {
	switch p.cur.Type {
	case token.MINUS, token.PLUS, token.NOT, token.BNOT:
		return p.parseUnary()
	case token.TYPEOF:
		return p.parseKeywordUnary(ast.UnaryTypeof)
	case token.VOID:
		return p.parseKeywordUnary(ast.UnaryVoid)
	case token.DELETE:
		return p.parseKeywordUnary(ast.UnaryDelete)
	case token.INC, token.DEC:
		return p.parseUpdatePrefix()
	case token.YIELD:
		return p.parseYield()
	case token.AWAIT:
		return p.parseAwait()
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parseUnary() ast.Expression {
	tok := p.cur
	base := ast.At(tok)
	p.advance()
	arg := p.parseAssignExprAt(unaryPrec)
	var op ast.UnaryOp
	switch tok.Type {
	case token.MINUS:
		op = ast.UnaryMinus
	case token.PLUS:
		op = ast.UnaryPlus
	case token.NOT:
		op = ast.UnaryNot
	case token.BNOT:
		op = ast.UnaryBitNot
	}
	return &ast.UnaryExpression{Base: base, Op: op, Arg: arg}
}

func (p *Parser) parseKeywordUnary(op ast.UnaryOp) ast.Expression {
	base := ast.At(p.cur)
	p.advance()
	arg := p.parseAssignExprAt(unaryPrec)
	return &ast.UnaryExpression{Base: base, Op: op, Arg: arg}
}

func (p *Parser) parseUpdatePrefix() ast.Expression {
	base := ast.At(p.cur)
	op := p.cur.Lexeme
	p.advance()
	arg := p.parseAssignExprAt(unaryPrec)
	return &ast.UpdateExpression{Base: base, Op: op, Arg: arg, Prefix: true}
}

func (p *Parser) parseYield() ast.Expression {
	base := ast.At(p.cur)
	p.advance()
	expr := &ast.YieldExpression{Base: base}
	if p.curIs(token.STAR) {
		p.advance()
		expr.Delegate = true
	}
	if !p.curIs(token.SEMICOLON) && !p.curIs(token.RBRACE) && !p.curIs(token.RPAREN) &&
		!p.curIs(token.RBRACKET) && !p.curIs(token.COMMA) && !p.curIs(token.EOF) && !p.cur.NewlineBefore {
		expr.Argument = p.parseAssignExprAt(assignPrec)
	}
	return expr
}

func (p *Parser) parseAwait() ast.Expression {
	base := ast.At(p.cur)
	p.advance()
	arg := p.parseAssignExprAt(unaryPrec)
	return &ast.AwaitExpression{Base: base, Argument: arg}
}

func (p *Parser) parsePrimary() ast.Expression {
	switch p.cur.Type {
	case token.NUMBER:
		tok := p.cur
		p.advance()
		return &ast.NumberLiteral{Base: ast.At(tok), Value: tok.Literal.(float64)}
	case token.BIGINT:
		tok := p.cur
		p.advance()
		return &ast.BigIntLiteral{Base: ast.At(tok), Text: (tok.Literal.(*big.Int)).String()}
	case token.STRING:
		tok := p.cur
		p.advance()
		return &ast.StringLiteral{Base: ast.At(tok), Value: tok.Literal.(string)}
	case token.TRUE:
		tok := p.cur
		p.advance()
		return &ast.BooleanLiteral{Base: ast.At(tok), Value: true}
	case token.FALSE:
		tok := p.cur
		p.advance()
		return &ast.BooleanLiteral{Base: ast.At(tok), Value: false}
	case token.NULL:
		tok := p.cur
		p.advance()
		return &ast.NullLiteral{Base: ast.At(tok)}
	case token.UNDEFINED:
		tok := p.cur
		p.advance()
		return &ast.UndefinedLiteral{Base: ast.At(tok)}
	case token.THIS:
		tok := p.cur
		p.advance()
		return &ast.ThisExpression{Base: ast.At(tok)}
	case token.SUPER:
		tok := p.cur
		p.advance()
		return &ast.SuperExpression{Base: ast.At(tok)}
	case token.REGEX:
		tok := p.cur
		p.advance()
		pattern, flags := splitRegexLiteral(tok.Lexeme)
		return &ast.RegexLiteral{Base: ast.At(tok), Pattern: pattern, Flags: flags}
	case token.TEMPLATE_STRING:
		return p.parseTemplateLiteral()
	case token.IDENT:
		return p.parseIdentOrArrow()
	case token.ASYNC:
		return p.parseAsyncPrimary()
	case token.LPAREN:
		return p.parseParenOrArrow()
	case token.LBRACKET:
		return p.parseArrayLiteral()
	case token.LBRACE:
		return p.parseObjectLiteral()
	case token.FUNCTION:
		return p.parseFunctionExpression(false)
	case token.CLASS:
		return p.parseClassExpression()
	case token.NEW:
		return p.parseNewExpression()
	default:
		tok := p.cur
		p.errorf("unexpected token %s (%q) in expression", tok.Type, tok.Lexeme)
		p.advance()
		return &ast.UndefinedLiteral{Base: ast.At(tok)}
	}
}

func splitRegexLiteral(lexeme string) (pattern, flags string) {
	lastSlash := strings.LastIndex(lexeme, "/")
	return lexeme[1:lastSlash], lexeme[lastSlash+1:]
}

// parseIdentOrArrow handles a bare identifier, which might turn out to be
// a single-parameter arrow function (`x => x + 1`).
func (p *Parser) parseIdentOrArrow() ast.Expression {
	tok := p.cur
	p.advance()
	if p.curIs(token.ARROW) && !p.cur.NewlineBefore {
		p.advance()
		param := &ast.Identifier{Base: ast.At(tok), Name: tok.Lexeme}
		return p.finishArrow(ast.At(tok), []ast.Pattern{param}, false)
	}
	return &ast.Identifier{Base: ast.At(tok), Name: tok.Lexeme}
}

func (p *Parser) parseAsyncPrimary() ast.Expression {
	tok := p.cur
	if p.peekIs(token.FUNCTION) {
		p.advance()
		return p.parseFunctionExpression(true)
	}
	if p.peekIs(token.IDENT) {
		// async x => ...
		save := p.cur
		p.advance()
		name := p.cur
		p.advance()
		if p.curIs(token.ARROW) && !p.cur.NewlineBefore {
			p.advance()
			param := &ast.Identifier{Base: ast.At(name), Name: name.Lexeme}
			return p.finishArrow(ast.At(save), []ast.Pattern{param}, true)
		}
		// not actually an async arrow; treat `async` as a plain identifier
		// reference followed by whatever `name` turned out to be (rare in
		// practice; `async` used as a variable name).
		return &ast.Identifier{Base: ast.At(save), Name: save.Lexeme}
	}
	if p.peekIs(token.LPAREN) && p.arrowAhead() {
		p.advance()
		base := ast.At(p.cur)
		params := p.parseFunctionParams()
		p.expect(token.ARROW)
		return p.finishArrow(base, params, true)
	}
	p.advance()
	return &ast.Identifier{Base: ast.At(tok), Name: tok.Lexeme}
}

// arrowAhead reports whether, starting from p.cur == LPAREN, the matching
// `)` is followed by `=>`. Implemented with a throwaway copy of the
// lexer's value (cheap: no pointers/slices in Lexer) rather than general
// backtracking machinery, since this is the only ambiguity in the grammar
// that needs lookahead past the two-token window.
func (p *Parser) arrowAhead() bool {
	clone := *p.l
	depth := 1
	tok := p.peek
	for depth > 0 {
		switch tok.Type {
		case token.LPAREN, token.LBRACE, token.LBRACKET:
			depth++
		case token.RPAREN, token.RBRACE, token.RBRACKET:
			depth--
		case token.EOF:
			return false
		}
		if depth == 0 {
			break
		}
		tok = (&clone).NextToken()
	}
	next := (&clone).NextToken()
	return next.Type == token.ARROW
}

func (p *Parser) parseParenOrArrow() ast.Expression {
	if p.arrowAhead() {
		base := ast.At(p.cur)
		params := p.parseFunctionParams()
		p.expect(token.ARROW)
		return p.finishArrow(base, params, false)
	}
	p.expect(token.LPAREN)
	expr := p.parseExpression(lowest)
	p.expect(token.RPAREN)
	return expr
}

func (p *Parser) finishArrow(base ast.Base, params []ast.Pattern, isAsync bool) ast.Expression {
	savedFn, savedGen, savedAsync := p.inFunction, p.inGenerator, p.inAsync
	p.inFunction, p.inGenerator, p.inAsync = true, false, isAsync
	var body ast.Node
	if p.curIs(token.LBRACE) {
		body = p.parseBlockStatement()
	} else {
		body = p.parseAssignExprAt(assignPrec - 1)
	}
	p.inFunction, p.inGenerator, p.inAsync = savedFn, savedGen, savedAsync
	return &ast.ArrowFunctionExpression{Base: base, Params: params, Body: body, IsAsync: isAsync}
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	base := ast.At(p.cur)
	p.expect(token.LBRACKET)
	arr := &ast.ArrayExpression{Base: base}
	for !p.curIs(token.RBRACKET) && !p.curIs(token.EOF) {
		if p.curIs(token.COMMA) {
			arr.Elements = append(arr.Elements, ast.ArrayElement{})
			p.advance()
			continue
		}
		if p.curIs(token.DOTDOTDOT) {
			p.advance()
			arr.Elements = append(arr.Elements, ast.ArrayElement{Expr: p.parseAssignExpr(), IsSpread: true})
		} else {
			arr.Elements = append(arr.Elements, ast.ArrayElement{Expr: p.parseAssignExpr()})
		}
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RBRACKET)
	return arr
}

func (p *Parser) parseObjectLiteral() ast.Expression {
	base := ast.At(p.cur)
	p.expect(token.LBRACE)
	obj := &ast.ObjectExpression{Base: base}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		propBase := ast.At(p.cur)
		if p.curIs(token.DOTDOTDOT) {
			p.advance()
			obj.Properties = append(obj.Properties, &ast.ObjectProperty{Base: propBase, Value: p.parseAssignExpr(), IsSpread: true})
			if p.curIs(token.COMMA) {
				p.advance()
			}
			continue
		}

		isGenerator, isAsync := false, false
		kind := ast.MemberField
		if (p.curIs(token.GET) || p.curIs(token.SET)) && !p.peekIs(token.COMMA) && !p.peekIs(token.COLON) && !p.peekIs(token.RBRACE) && !p.peekIs(token.LPAREN) {
			if p.curIs(token.GET) {
				kind = ast.MemberGetter
			} else {
				kind = ast.MemberSetter
			}
			p.advance()
		} else if p.curIs(token.ASYNC) && !p.peekIs(token.COMMA) && !p.peekIs(token.COLON) && !p.peekIs(token.RBRACE) && !p.peekIs(token.LPAREN) {
			isAsync = true
			p.advance()
		}
		if p.curIs(token.STAR) {
			isGenerator = true
			p.advance()
		}

		key, computed := p.parsePropertyKey()
		prop := &ast.ObjectProperty{Base: propBase, Key: key, Computed: computed, Kind: kind}

		switch {
		case p.curIs(token.LPAREN):
			params := p.parseFunctionParams()
			savedFn, savedGen, savedAsync := p.inFunction, p.inGenerator, p.inAsync
			p.inFunction, p.inGenerator, p.inAsync = true, isGenerator, isAsync
			body := p.parseBlockStatement()
			p.inFunction, p.inGenerator, p.inAsync = savedFn, savedGen, savedAsync
			prop.Value = &ast.FunctionExpression{Base: propBase, Params: params, Body: body, IsGenerator: isGenerator, IsAsync: isAsync}
			if kind == ast.MemberField {
				prop.Kind = ast.MemberMethod
			}
		case p.curIs(token.COLON):
			p.advance()
			prop.Value = p.parseAssignExpr()
		default:
			prop.Shorthand = true
			if ident, ok := key.(*ast.Identifier); ok {
				if p.curIs(token.ASSIGN) {
					// Cover grammar: shorthand default only valid when this
					// object literal is later reinterpreted as a pattern.
					p.advance()
					def := p.parseAssignExpr()
					prop.Value = &ast.AssignmentExpression{Base: propBase, Op: "=", Target: ident, Value: def}
				} else {
					prop.Value = ident
				}
			}
		}
		obj.Properties = append(obj.Properties, prop)
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RBRACE)
	return obj
}

func (p *Parser) parseFunctionExpression(isAsync bool) ast.Expression {
	base := ast.At(p.cur)
	p.expect(token.FUNCTION)
	isGenerator := false
	if p.curIs(token.STAR) {
		p.advance()
		isGenerator = true
	}
	name := ""
	if p.curIs(token.IDENT) {
		name = p.cur.Lexeme
		p.advance()
	}
	savedFn, savedGen, savedAsync := p.inFunction, p.inGenerator, p.inAsync
	p.inFunction, p.inGenerator, p.inAsync = true, isGenerator, isAsync
	params := p.parseFunctionParams()
	body := p.parseBlockStatement()
	p.inFunction, p.inGenerator, p.inAsync = savedFn, savedGen, savedAsync
	return &ast.FunctionExpression{Base: base, Name: name, Params: params, Body: body, IsGenerator: isGenerator, IsAsync: isAsync}
}

func (p *Parser) parseClassExpression() ast.Expression {
	base := ast.At(p.cur)
	p.expect(token.CLASS)
	name := ""
	if p.curIs(token.IDENT) {
		name = p.cur.Lexeme
		p.advance()
	}
	var super ast.Expression
	if p.curIs(token.EXTENDS) {
		p.advance()
		super = p.parseLeftHandSideExpr()
	}
	members := p.parseClassBody()
	return &ast.ClassExpression{Base: base, Name: name, SuperClass: super, Members: members}
}

// parseLeftHandSideExpr parses a member/call-expression-level expression,
// used for the `extends` clause (which forbids a bare comma/assignment
// expression).
func (p *Parser) parseLeftHandSideExpr() ast.Expression {
	return p.parseAssignExprAt(callPrec - 1)
}

func (p *Parser) parseNewExpression() ast.Expression {
	base := ast.At(p.cur)
	p.expect(token.NEW)
	if p.curIs(token.DOT) {
		// new.target
		p.advance()
		p.expect(token.IDENT) // "target"
		return &ast.Identifier{Base: base, Name: "new.target"}
	}
	callee := p.parseMemberExprNoCall()
	var args []ast.CallArgument
	if p.curIs(token.LPAREN) {
		args = p.parseCallArgs()
	}
	return p.continueMemberChain(&ast.NewExpression{Base: base, Callee: callee, Args: args})
}

// parseMemberExprNoCall parses the callee of a `new` expression: primary
// expression plus `.`/`[]` member access, but NOT a call (since `(...)`
// immediately following belongs to `new`, not to a nested call).
func (p *Parser) parseMemberExprNoCall() ast.Expression {
	var left ast.Expression
	if p.curIs(token.NEW) {
		left = p.parseNewExpression()
	} else {
		left = p.parsePrimary()
	}
	for {
		switch p.cur.Type {
		case token.DOT:
			base := ast.At(p.cur)
			p.advance()
			prop := p.cur
			p.advance()
			left = &ast.MemberExpression{Base: base, Object: left, Property: &ast.Identifier{Base: ast.At(prop), Name: prop.Lexeme}}
		case token.LBRACKET:
			base := ast.At(p.cur)
			p.advance()
			prop := p.parseExpression(lowest)
			p.expect(token.RBRACKET)
			left = &ast.MemberExpression{Base: base, Object: left, Property: prop, Computed: true}
		default:
			return left
		}
	}
}

func (p *Parser) continueMemberChain(left ast.Expression) ast.Expression {
	for {
		switch p.cur.Type {
		case token.DOT, token.LBRACKET, token.LPAREN, token.OPTIONAL_CHAIN:
			left = p.parseInfix(left)
		default:
			return left
		}
	}
}

func (p *Parser) parseTemplateLiteral() *ast.TemplateLiteral {
	tok := p.cur
	parts := tok.Literal.([]lexer.TemplatePart)
	p.advance()
	tpl := &ast.TemplateLiteral{Base: ast.At(tok)}
	for i, part := range parts {
		tpl.Quasis = append(tpl.Quasis, ast.TemplateElement{Cooked: part.Cooked, Raw: part.Raw})
		if i < len(parts)-1 || part.Expr != "" {
			if part.Expr != "" {
				expr, errs := ParseExpressionString(part.Expr)
				p.errors = append(p.errors, errs...)
				tpl.Expressions = append(tpl.Expressions, expr)
			}
		}
	}
	return tpl
}

// exprToPattern converts an expression parsed as an assignment's left-hand
// side into a Pattern, for destructuring assignment (`[a, b] = pair`,
// `({x} = obj)`). Identifiers already satisfy Pattern; anything not
// recognized as destructurable (a plain member expression target) is
// wrapped so it can still flow through the same Pattern-typed field.
func exprToPattern(expr ast.Expression) ast.Pattern {
	switch e := expr.(type) {
	case *ast.Identifier:
		return e
	case *ast.ArrayExpression:
		pat := &ast.ArrayPattern{Base: e.Base}
		for _, el := range e.Elements {
			if el.Expr == nil {
				pat.Elements = append(pat.Elements, &ast.ArrayPatternElement{Base: e.Base})
				continue
			}
			if el.IsSpread {
				pat.Elements = append(pat.Elements, &ast.ArrayPatternElement{Base: e.Base, IsRest: true, Target: exprToPattern(el.Expr)})
				continue
			}
			if assign, ok := el.Expr.(*ast.AssignmentExpression); ok && assign.Op == "=" {
				pat.Elements = append(pat.Elements, &ast.ArrayPatternElement{Base: e.Base, Target: assign.Target.(ast.Pattern), Default: assign.Value})
				continue
			}
			pat.Elements = append(pat.Elements, &ast.ArrayPatternElement{Base: e.Base, Target: exprToPattern(el.Expr)})
		}
		return pat
	case *ast.ObjectExpression:
		pat := &ast.ObjectPattern{Base: e.Base}
		for _, prop := range e.Properties {
			if prop.IsSpread {
				pat.Properties = append(pat.Properties, &ast.ObjectPatternProperty{Base: e.Base, IsRest: true, Value: exprToPattern(prop.Value)})
				continue
			}
			p := &ast.ObjectPatternProperty{Base: e.Base, Key: prop.Key, Computed: prop.Computed}
			if assign, ok := prop.Value.(*ast.AssignmentExpression); ok && assign.Op == "=" {
				p.Value = assign.Target.(ast.Pattern)
				p.Default = assign.Value
			} else {
				p.Value = exprToPattern(prop.Value)
			}
			pat.Properties = append(pat.Properties, p)
		}
		return pat
	default:
		return &ast.ExprPattern{Base: ast.Base{Line: lineOf(expr), Column: colOf(expr)}, Expr: expr}
	}
}
