// Package parser builds an ast.Program from a token stream. Grounded on
// funxy's `internal/parser` package split by grammar concern (statements.go,
// expressions_*.go) and its `processor.go` pipeline-stage wrapper — same
// idea (a Parser struct holding a two-token lookahead and a table of
// prefix/infix handlers keyed by token type, "Pratt parsing"), rebuilt for
// ECMAScript's grammar instead of funxy's row-polymorphic functional one.
package parser

import (
	"fmt"

	"github.com/ecmavm/engine/internal/ast"
	"github.com/ecmavm/engine/internal/lexer"
	"github.com/ecmavm/engine/internal/token"
)

type Parser struct {
	l *lexer.Lexer

	cur  token.Token
	peek token.Token

	errors []error

	// inFunction/inGenerator/inAsync/inLoop/inSwitch track the bodies
	// enclosing the current parse position, needed to validate `return`,
	// `yield`, `await`, `break`, and `continue` placement.
	inFunction  bool
	inGenerator bool
	inAsync     bool
	loopDepth   int
	switchDepth int
}

func New(src string) *Parser {
	p := &Parser{l: lexer.New(src)}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) Errors() []error { return p.errors }

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) curIs(t token.Type) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peek.Type == t }

func (p *Parser) expect(t token.Type) token.Token {
	if !p.curIs(t) {
		p.errorf("expected %s, got %s (%q)", t, p.cur.Type, p.cur.Lexeme)
		return p.cur
	}
	tok := p.cur
	p.advance()
	return tok
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Errorf("parse error at line %d: %s", p.cur.Line, fmt.Sprintf(format, args...)))
}

// consumeSemicolon implements automatic semicolon insertion: an explicit
// `;`, a `}` closing the enclosing block, EOF, or a newline before the next
// token all terminate a statement.
func (p *Parser) consumeSemicolon() {
	if p.curIs(token.SEMICOLON) {
		p.advance()
		return
	}
	if p.curIs(token.RBRACE) || p.curIs(token.EOF) || p.cur.NewlineBefore {
		return
	}
	p.errorf("expected ';', got %s", p.cur.Type)
}

// Parse parses a full program.
func Parse(src string) (*ast.Program, []error) {
	p := New(src)
	prog := &ast.Program{Base: ast.At(p.cur)}
	for !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Body = append(prog.Body, stmt)
		}
	}
	return prog, p.errors
}

// ParseExpressionString parses a standalone expression, used to re-parse a
// template literal's `${...}` substitution source captured by the lexer.
func ParseExpressionString(src string) (ast.Expression, []error) {
	p := New(src)
	expr := p.parseExpression(lowest)
	return expr, p.errors
}
