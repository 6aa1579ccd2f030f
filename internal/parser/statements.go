package parser

import (
	"github.com/ecmavm/engine/internal/ast"
	"github.com/ecmavm/engine/internal/token"
)

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur.Type {
	case token.SEMICOLON:
		base := ast.At(p.cur)
		p.advance()
		return &ast.EmptyStatement{Base: base}
	case token.LBRACE:
		return p.parseBlockStatement()
	case token.VAR, token.LET, token.CONST:
		decl := p.parseVariableDeclaration()
		p.consumeSemicolon()
		return decl
	case token.FUNCTION:
		return p.parseFunctionDeclaration(false)
	case token.ASYNC:
		if p.peekIs(token.FUNCTION) {
			p.advance()
			return p.parseFunctionDeclaration(true)
		}
	case token.CLASS:
		return p.parseClassDeclaration()
	case token.IF:
		return p.parseIfStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DO:
		return p.parseDoWhileStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.BREAK:
		return p.parseBreakStatement()
	case token.CONTINUE:
		return p.parseContinueStatement()
	case token.THROW:
		return p.parseThrowStatement()
	case token.TRY:
		return p.parseTryStatement()
	case token.SWITCH:
		return p.parseSwitchStatement()
	}

	if p.curIs(token.IDENT) && p.peekIs(token.COLON) {
		return p.parseLabeledStatement()
	}

	return p.parseExpressionStatement()
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	base := ast.At(p.cur)
	p.expect(token.LBRACE)
	block := &ast.BlockStatement{Base: base}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			block.Body = append(block.Body, stmt)
		}
	}
	p.expect(token.RBRACE)
	return block
}

func (p *Parser) parseVariableDeclaration() *ast.VariableDeclaration {
	base := ast.At(p.cur)
	var kind ast.VarKind
	switch p.cur.Type {
	case token.VAR:
		kind = ast.VarVar
	case token.LET:
		kind = ast.VarLet
	case token.CONST:
		kind = ast.VarConst
	}
	p.advance()

	decl := &ast.VariableDeclaration{Base: base, Kind: kind}
	for {
		declBase := ast.At(p.cur)
		target := p.parseBindingTarget()
		var init ast.Expression
		if p.curIs(token.ASSIGN) {
			p.advance()
			init = p.parseAssignExpr()
		}
		decl.Declarations = append(decl.Declarations, &ast.VariableDeclarator{Base: declBase, Target: target, Init: init})
		if !p.curIs(token.COMMA) {
			break
		}
		p.advance()
	}
	return decl
}

// parseBindingTarget parses an identifier, array pattern, or object pattern
// appearing in a declaration or parameter position.
func (p *Parser) parseBindingTarget() ast.Pattern {
	switch p.cur.Type {
	case token.LBRACKET:
		return p.parseArrayPattern()
	case token.LBRACE:
		return p.parseObjectPattern()
	default:
		name := p.expect(token.IDENT)
		return &ast.Identifier{Base: ast.At(name), Name: name.Lexeme}
	}
}

func (p *Parser) parseArrayPattern() *ast.ArrayPattern {
	base := ast.At(p.cur)
	p.expect(token.LBRACKET)
	pat := &ast.ArrayPattern{Base: base}
	for !p.curIs(token.RBRACKET) && !p.curIs(token.EOF) {
		if p.curIs(token.COMMA) {
			pat.Elements = append(pat.Elements, &ast.ArrayPatternElement{Base: ast.At(p.cur)})
			p.advance()
			continue
		}
		elemBase := ast.At(p.cur)
		elem := &ast.ArrayPatternElement{Base: elemBase}
		if p.curIs(token.DOTDOTDOT) {
			p.advance()
			elem.IsRest = true
			elem.Target = p.parseBindingTarget()
		} else {
			elem.Target = p.parseBindingTarget()
			if p.curIs(token.ASSIGN) {
				p.advance()
				elem.Default = p.parseAssignExpr()
			}
		}
		pat.Elements = append(pat.Elements, elem)
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RBRACKET)
	return pat
}

func (p *Parser) parseObjectPattern() *ast.ObjectPattern {
	base := ast.At(p.cur)
	p.expect(token.LBRACE)
	pat := &ast.ObjectPattern{Base: base}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		propBase := ast.At(p.cur)
		prop := &ast.ObjectPatternProperty{Base: propBase}
		if p.curIs(token.DOTDOTDOT) {
			p.advance()
			prop.IsRest = true
			name := p.expect(token.IDENT)
			prop.Value = &ast.Identifier{Base: ast.At(name), Name: name.Lexeme}
			pat.Properties = append(pat.Properties, prop)
			if p.curIs(token.COMMA) {
				p.advance()
			}
			continue
		}
		if p.curIs(token.LBRACKET) {
			p.advance()
			prop.Computed = true
			prop.Key = p.parseAssignExpr()
			p.expect(token.RBRACKET)
			p.expect(token.COLON)
			prop.Value = p.parseBindingTarget()
		} else {
			keyTok := p.cur
			p.advance()
			prop.Key = &ast.StringLiteral{Base: ast.At(keyTok), Value: keyTok.Lexeme}
			if p.curIs(token.COLON) {
				p.advance()
				prop.Value = p.parseBindingTarget()
			} else {
				prop.Value = &ast.Identifier{Base: ast.At(keyTok), Name: keyTok.Lexeme}
			}
		}
		if p.curIs(token.ASSIGN) {
			p.advance()
			prop.Default = p.parseAssignExpr()
		}
		pat.Properties = append(pat.Properties, prop)
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RBRACE)
	return pat
}

func (p *Parser) parseFunctionDeclaration(isAsync bool) *ast.FunctionDeclaration {
	base := ast.At(p.cur)
	p.expect(token.FUNCTION)
	isGenerator := false
	if p.curIs(token.STAR) {
		p.advance()
		isGenerator = true
	}
	name := p.expect(token.IDENT)
	savedFn, savedGen, savedAsync := p.inFunction, p.inGenerator, p.inAsync
	p.inFunction, p.inGenerator, p.inAsync = true, isGenerator, isAsync
	params := p.parseFunctionParams()
	body := p.parseBlockStatement()
	p.inFunction, p.inGenerator, p.inAsync = savedFn, savedGen, savedAsync
	return &ast.FunctionDeclaration{
		Base: base, Name: name.Lexeme, Params: params, Body: body,
		IsGenerator: isGenerator, IsAsync: isAsync,
	}
}

// parseFunctionParams parses a parenthesized, comma-separated parameter
// list supporting defaults and a trailing rest parameter.
func (p *Parser) parseFunctionParams() []ast.Pattern {
	p.expect(token.LPAREN)
	var params []ast.Pattern
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		if p.curIs(token.DOTDOTDOT) {
			base := ast.At(p.cur)
			p.advance()
			target := p.parseBindingTarget()
			params = append(params, &ast.RestElement{Base: base, Target: target})
		} else {
			target := p.parseBindingTarget()
			if p.curIs(token.ASSIGN) {
				base := ast.At(p.cur)
				p.advance()
				def := p.parseAssignExpr()
				params = append(params, &ast.AssignmentPattern{Base: base, Target: target, Default: def})
			} else {
				params = append(params, target)
			}
		}
		if p.curIs(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN)
	return params
}

func (p *Parser) parseClassDeclaration() *ast.ClassDeclaration {
	base := ast.At(p.cur)
	p.expect(token.CLASS)
	name := p.expect(token.IDENT)
	var super ast.Expression
	if p.curIs(token.EXTENDS) {
		p.advance()
		super = p.parseLeftHandSideExpr()
	}
	members := p.parseClassBody()
	return &ast.ClassDeclaration{Base: base, Name: name.Lexeme, SuperClass: super, Members: members}
}

func (p *Parser) parseClassBody() []*ast.ClassMember {
	p.expect(token.LBRACE)
	var members []*ast.ClassMember
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		if p.curIs(token.SEMICOLON) {
			p.advance()
			continue
		}
		members = append(members, p.parseClassMember())
	}
	p.expect(token.RBRACE)
	return members
}

func (p *Parser) parseClassMember() *ast.ClassMember {
	base := ast.At(p.cur)
	member := &ast.ClassMember{Base: base, Kind: ast.MemberMethod}

	if p.curIs(token.STATIC) && !p.peekIs(token.LPAREN) && !p.peekIs(token.ASSIGN) {
		p.advance()
		member.IsStatic = true
	}

	isGenerator := false
	isAsync := false
	if p.curIs(token.ASYNC) && !p.peekIs(token.LPAREN) && !p.peekIs(token.ASSIGN) {
		p.advance()
		isAsync = true
	}
	if p.curIs(token.STAR) {
		p.advance()
		isGenerator = true
	}
	if (p.curIs(token.GET) || p.curIs(token.SET)) && !p.peekIs(token.LPAREN) && !p.peekIs(token.ASSIGN) {
		if p.curIs(token.GET) {
			member.Kind = ast.MemberGetter
		} else {
			member.Kind = ast.MemberSetter
		}
		p.advance()
	}

	member.Key, member.Computed = p.parsePropertyKey()

	switch {
	case p.curIs(token.LPAREN):
		params := p.parseFunctionParams()
		savedFn, savedGen, savedAsync := p.inFunction, p.inGenerator, p.inAsync
		p.inFunction, p.inGenerator, p.inAsync = true, isGenerator, isAsync
		body := p.parseBlockStatement()
		p.inFunction, p.inGenerator, p.inAsync = savedFn, savedGen, savedAsync
		if member.Kind == ast.MemberMethod {
			member.Kind = ast.MemberMethod
		}
		member.Value = &ast.FunctionExpression{Base: base, Params: params, Body: body, IsGenerator: isGenerator, IsAsync: isAsync}
	default:
		member.Kind = ast.MemberField
		if p.curIs(token.ASSIGN) {
			p.advance()
			member.Value = p.parseAssignExpr()
		}
		p.consumeSemicolon()
	}
	return member
}

// parsePropertyKey parses an object-literal or class-member key: an
// identifier, string, number, private name, or a computed `[expr]` key.
func (p *Parser) parsePropertyKey() (ast.Expression, bool) {
	switch p.cur.Type {
	case token.LBRACKET:
		p.advance()
		key := p.parseAssignExpr()
		p.expect(token.RBRACKET)
		return key, true
	case token.STRING:
		tok := p.cur
		p.advance()
		return &ast.StringLiteral{Base: ast.At(tok), Value: tok.Literal.(string)}, false
	case token.NUMBER:
		tok := p.cur
		p.advance()
		return &ast.NumberLiteral{Base: ast.At(tok), Value: tok.Literal.(float64)}, false
	case token.PRIVATE_IDENT:
		tok := p.cur
		p.advance()
		return &ast.Identifier{Base: ast.At(tok), Name: tok.Lexeme}, false
	default:
		tok := p.cur
		p.advance()
		return &ast.Identifier{Base: ast.At(tok), Name: tok.Lexeme}, false
	}
}

func (p *Parser) parseIfStatement() *ast.IfStatement {
	base := ast.At(p.cur)
	p.expect(token.IF)
	p.expect(token.LPAREN)
	test := p.parseExpression(lowest)
	p.expect(token.RPAREN)
	consequent := p.parseStatement()
	stmt := &ast.IfStatement{Base: base, Test: test, Consequent: consequent}
	if p.curIs(token.ELSE) {
		p.advance()
		stmt.Alternate = p.parseStatement()
	}
	return stmt
}

func (p *Parser) parseWhileStatement() *ast.WhileStatement {
	base := ast.At(p.cur)
	p.expect(token.WHILE)
	p.expect(token.LPAREN)
	test := p.parseExpression(lowest)
	p.expect(token.RPAREN)
	p.loopDepth++
	body := p.parseStatement()
	p.loopDepth--
	return &ast.WhileStatement{Base: base, Test: test, Body: body}
}

func (p *Parser) parseDoWhileStatement() *ast.DoWhileStatement {
	base := ast.At(p.cur)
	p.expect(token.DO)
	p.loopDepth++
	body := p.parseStatement()
	p.loopDepth--
	p.expect(token.WHILE)
	p.expect(token.LPAREN)
	test := p.parseExpression(lowest)
	p.expect(token.RPAREN)
	p.consumeSemicolon()
	return &ast.DoWhileStatement{Base: base, Body: body, Test: test}
}

// parseForStatement disambiguates plain C-style for from for-in/for-of by
// parsing the init clause then checking for `in`/`of`.
func (p *Parser) parseForStatement() ast.Statement {
	base := ast.At(p.cur)
	p.expect(token.FOR)
	isAwait := false
	if p.curIs(token.AWAIT) {
		p.advance()
		isAwait = true
	}
	p.expect(token.LPAREN)

	var decl *ast.VariableDeclaration
	var initExpr ast.Expression
	var init ast.Node

	switch {
	case p.curIs(token.SEMICOLON):
		// no init
	case p.curIs(token.VAR) || p.curIs(token.LET) || p.curIs(token.CONST):
		declBase := ast.At(p.cur)
		var kind ast.VarKind
		switch p.cur.Type {
		case token.VAR:
			kind = ast.VarVar
		case token.LET:
			kind = ast.VarLet
		case token.CONST:
			kind = ast.VarConst
		}
		p.advance()
		target := p.parseBindingTarget()
		if p.curIs(token.IN) || p.curIs(token.OF) {
			kindTok := p.cur.Type
			p.advance()
			right := p.parseAssignExpr()
			if kindTok == token.OF {
				right = p.parseAssignExprContinue(right)
			}
			p.expect(token.RPAREN)
			p.loopDepth++
			body := p.parseStatement()
			p.loopDepth--
			fiKind := ast.ForIn
			if kindTok == token.OF {
				fiKind = ast.ForOf
			}
			return &ast.ForInOfStatement{
				Base: base, Kind: fiKind,
				Decl:  &ast.VariableDeclaration{Base: declBase, Kind: kind, Declarations: []*ast.VariableDeclarator{{Base: declBase, Target: target}}},
				Right: right, Body: body, IsAwait: isAwait,
			}
		}
		var declInit ast.Expression
		if p.curIs(token.ASSIGN) {
			p.advance()
			declInit = p.parseAssignExpr()
		}
		vd := &ast.VariableDeclaration{Base: declBase, Kind: kind, Declarations: []*ast.VariableDeclarator{{Base: declBase, Target: target, Init: declInit}}}
		for p.curIs(token.COMMA) {
			p.advance()
			t2 := p.parseBindingTarget()
			var i2 ast.Expression
			if p.curIs(token.ASSIGN) {
				p.advance()
				i2 = p.parseAssignExpr()
			}
			vd.Declarations = append(vd.Declarations, &ast.VariableDeclarator{Base: declBase, Target: t2, Init: i2})
		}
		decl = vd
		init = decl
	default:
		initExpr = p.parseExpression(lowest)
		if p.curIs(token.IN) || p.curIs(token.OF) {
			kindTok := p.cur.Type
			p.advance()
			right := p.parseAssignExpr()
			p.expect(token.RPAREN)
			p.loopDepth++
			body := p.parseStatement()
			p.loopDepth--
			fiKind := ast.ForIn
			if kindTok == token.OF {
				fiKind = ast.ForOf
			}
			return &ast.ForInOfStatement{Base: base, Kind: fiKind, Target: initExpr, Right: right, Body: body, IsAwait: isAwait}
		}
		init = initExpr
	}

	p.expect(token.SEMICOLON)
	var test ast.Expression
	if !p.curIs(token.SEMICOLON) {
		test = p.parseExpression(lowest)
	}
	p.expect(token.SEMICOLON)
	var update ast.Expression
	if !p.curIs(token.RPAREN) {
		update = p.parseExpression(lowest)
	}
	p.expect(token.RPAREN)
	p.loopDepth++
	body := p.parseStatement()
	p.loopDepth--
	return &ast.ForStatement{Base: base, Init: init, Test: test, Update: update, Body: body}
}

// parseAssignExprContinue allows a for-of's right-hand side (already
// partially parsed as an assignment expression) to fold in a trailing
// comma-free continuation; the grammar restricts for-of's right side to an
// AssignmentExpression so no further work is needed, kept as a named hook
// for clarity at the call site above.
func (p *Parser) parseAssignExprContinue(expr ast.Expression) ast.Expression { return expr }

func (p *Parser) parseReturnStatement() *ast.ReturnStatement {
	base := ast.At(p.cur)
	p.expect(token.RETURN)
	stmt := &ast.ReturnStatement{Base: base}
	if !p.curIs(token.SEMICOLON) && !p.curIs(token.RBRACE) && !p.curIs(token.EOF) && !p.cur.NewlineBefore {
		stmt.Argument = p.parseExpression(lowest)
	}
	p.consumeSemicolon()
	return stmt
}

func (p *Parser) parseBreakStatement() *ast.BreakStatement {
	base := ast.At(p.cur)
	p.expect(token.BREAK)
	stmt := &ast.BreakStatement{Base: base}
	if p.curIs(token.IDENT) && !p.cur.NewlineBefore {
		stmt.Label = p.cur.Lexeme
		p.advance()
	}
	p.consumeSemicolon()
	return stmt
}

func (p *Parser) parseContinueStatement() *ast.ContinueStatement {
	base := ast.At(p.cur)
	p.expect(token.CONTINUE)
	stmt := &ast.ContinueStatement{Base: base}
	if p.curIs(token.IDENT) && !p.cur.NewlineBefore {
		stmt.Label = p.cur.Lexeme
		p.advance()
	}
	p.consumeSemicolon()
	return stmt
}

func (p *Parser) parseThrowStatement() *ast.ThrowStatement {
	base := ast.At(p.cur)
	p.expect(token.THROW)
	arg := p.parseExpression(lowest)
	p.consumeSemicolon()
	return &ast.ThrowStatement{Base: base, Argument: arg}
}

func (p *Parser) parseTryStatement() *ast.TryStatement {
	base := ast.At(p.cur)
	p.expect(token.TRY)
	block := p.parseBlockStatement()
	stmt := &ast.TryStatement{Base: base, Block: block}
	if p.curIs(token.CATCH) {
		catchBase := ast.At(p.cur)
		p.advance()
		var param ast.Pattern
		if p.curIs(token.LPAREN) {
			p.advance()
			param = p.parseBindingTarget()
			p.expect(token.RPAREN)
		}
		body := p.parseBlockStatement()
		stmt.Handler = &ast.CatchClause{Base: catchBase, Param: param, Body: body}
	}
	if p.curIs(token.FINALLY) {
		p.advance()
		stmt.Finally = p.parseBlockStatement()
	}
	return stmt
}

func (p *Parser) parseSwitchStatement() *ast.SwitchStatement {
	base := ast.At(p.cur)
	p.expect(token.SWITCH)
	p.expect(token.LPAREN)
	disc := p.parseExpression(lowest)
	p.expect(token.RPAREN)
	p.expect(token.LBRACE)
	stmt := &ast.SwitchStatement{Base: base, Discriminant: disc}
	p.switchDepth++
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		caseBase := ast.At(p.cur)
		c := &ast.SwitchCase{Base: caseBase}
		if p.curIs(token.CASE) {
			p.advance()
			c.Test = p.parseExpression(lowest)
		} else {
			p.expect(token.DEFAULT)
		}
		p.expect(token.COLON)
		for !p.curIs(token.CASE) && !p.curIs(token.DEFAULT) && !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
			c.Consequent = append(c.Consequent, p.parseStatement())
		}
		stmt.Cases = append(stmt.Cases, c)
	}
	p.switchDepth--
	p.expect(token.RBRACE)
	return stmt
}

func (p *Parser) parseLabeledStatement() *ast.LabeledStatement {
	base := ast.At(p.cur)
	label := p.cur.Lexeme
	p.advance()
	p.expect(token.COLON)
	body := p.parseStatement()
	return &ast.LabeledStatement{Base: base, Label: label, Body: body}
}

func (p *Parser) parseExpressionStatement() *ast.ExpressionStatement {
	base := ast.At(p.cur)
	expr := p.parseExpression(lowest)
	p.consumeSemicolon()
	return &ast.ExpressionStatement{Base: base, Expr: expr}
}
