package compiler

import (
	"fmt"

	"github.com/ecmavm/engine/internal/ast"
	"github.com/ecmavm/engine/internal/bytecode"
)

// funcLiteral is the shape shared by function declarations, function
// expressions, methods, and arrows, gathered here so compileFunction has a
// single entry point regardless of which concrete AST node produced it.
type funcLiteral struct {
	name        string
	params      []ast.Pattern
	body        ast.Node // *ast.BlockStatement, or a bare Expression for an arrow's concise body
	isArrow     bool
	isGenerator bool
	isAsync     bool
	isClassCtor bool
}

// compileFunction compiles fn as a child Descriptor of c and returns its
// index in c.desc.Children, for the caller to pair with OpCreateClosure.
// Grounded on funxy's per-function Compiler nesting (compiler.go's
// beginFunction/endFunction split), adapted since this engine resolves
// parameters and locals by name in a fresh CallScope rather than by
// allocating stack slots.
func (c *Compiler) compileFunction(fn funcLiteral) int {
	child := newCompiler(fn.name, c)
	child.inGenerator = fn.isGenerator
	child.inAsync = fn.isAsync
	child.desc.IsArrow = fn.isArrow
	child.desc.IsGenerator = fn.isGenerator
	child.desc.IsAsync = fn.isAsync
	child.desc.IsClassCtor = fn.isClassCtor

	paramCount := 0
	for _, p := range fn.params {
		if rest, ok := p.(*ast.RestElement); ok {
			child.desc.HasRest = true
			child.compileRestParam(rest)
			continue
		}
		paramCount++
		child.compileParam(p, paramCount-1)
	}
	child.desc.ParamCount = paramCount

	if fn.isArrow {
		if expr, ok := fn.body.(ast.Expression); ok {
			child.compileExpression(expr)
			child.desc.EmitOp(bytecode.OpReturn)
		} else {
			block := fn.body.(*ast.BlockStatement)
			child.compileStatements(block.Body)
			child.desc.EmitOp(bytecode.OpUndef)
			child.desc.EmitOp(bytecode.OpReturn)
		}
	} else {
		block := fn.body.(*ast.BlockStatement)
		child.compileStatements(block.Body)
		child.desc.EmitOp(bytecode.OpUndef)
		child.desc.EmitOp(bytecode.OpReturn)
	}

	c.errors = append(c.errors, child.errors...)
	return c.desc.AddChild(child.desc)
}

// compileParam declares parameter i by binding it from the argument the VM's
// call sequence places in the fresh call scope under the synthetic name
// "%argN" before running the descriptor's code (see internal/vm's Frame
// setup), then runs any destructuring/default over it. Missing trailing
// arguments are bound to undefined by the same VM step, which is what makes
// default-value destructuring ("x = 1") fire correctly here.
func (c *Compiler) compileParam(p ast.Pattern, i int) {
	c.emitName(fmt.Sprintf("%%arg%d", i))
	c.desc.EmitOp(bytecode.OpGetVar)
	c.compileDeclarePattern(p, ast.VarLet)
}

// compileRestParam binds "%rest", the array of arguments beyond
// desc.ParamCount that the VM's call sequence assembles using the
// descriptor's already-known ParamCount.
func (c *Compiler) compileRestParam(rest *ast.RestElement) {
	c.emitName("%rest")
	c.desc.EmitOp(bytecode.OpGetVar)
	c.compileDeclarePattern(rest.Target, ast.VarLet)
}

// compileClosure emits the CREATE_CLOSURE sequence for fn at the current
// compile position, leaving the closure value on top of the stack.
func (c *Compiler) compileClosure(fn funcLiteral) {
	idx := c.compileFunction(fn)
	c.emitIndex(idx)
	c.desc.EmitOp(bytecode.OpCreateClosure)
}
