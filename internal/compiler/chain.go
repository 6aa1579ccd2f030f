package compiler

import (
	"github.com/ecmavm/engine/internal/ast"
	"github.com/ecmavm/engine/internal/bytecode"
)

// compileOptionalChain compiles a MemberExpression/CallExpression/
// NewExpression tree, short-circuiting the whole expression to undefined
// the instant any `?.` step along the way sees a null/undefined base — per
// ECMAScript's optional-chaining semantics, a `?.` anywhere in the chain
// shorts out everything to its right, not just the one access it guards.
// Grounded on nothing in the teacher (funxy has no optional chaining); built
// the way the rest of this compiler builds control flow, as a jump list
// patched to one shared landing point once the whole chain is known.
func (c *Compiler) compileOptionalChain(expr ast.Expression) {
	var jumps []int
	c.compileChainExpr(expr, &jumps)
	if len(jumps) == 0 {
		return
	}
	end := c.emitJump(bytecode.OpJump)
	for _, j := range jumps {
		c.patchJumpHere(j)
	}
	c.desc.EmitOp(bytecode.OpPop)
	c.desc.EmitOp(bytecode.OpUndef)
	c.patchJumpHere(end)
}

// compileChainExpr compiles one link of a member/call chain, appending any
// short-circuit jump it introduces to jumps. It always leaves exactly one
// value on the stack (the chain's running result so far, or the nullish
// base that a short-circuit jump will later discard).
func (c *Compiler) compileChainExpr(expr ast.Expression, jumps *[]int) {
	switch e := expr.(type) {
	case *ast.MemberExpression:
		if _, ok := e.Object.(*ast.SuperExpression); ok {
			c.emitName(e.Property.(*ast.Identifier).Name)
			c.desc.EmitOp(bytecode.OpGetSuperProp)
			return
		}
		c.compileChainExpr(e.Object, jumps)
		if e.Optional {
			c.desc.EmitOp(bytecode.OpDup)
			*jumps = append(*jumps, c.emitJump(bytecode.OpIfNullUndef))
		}
		if e.Computed {
			c.compileExpression(e.Property)
			c.desc.EmitOp(bytecode.OpGetElem)
		} else {
			c.emitName(e.Property.(*ast.Identifier).Name)
			c.desc.EmitOp(bytecode.OpGetProp)
		}

	case *ast.CallExpression:
		if _, ok := e.Callee.(*ast.SuperExpression); ok {
			c.compileSuperCall(e)
			return
		}
		if m, ok := e.Callee.(*ast.MemberExpression); ok {
			if _, ok := m.Object.(*ast.SuperExpression); ok {
				c.emitName(m.Property.(*ast.Identifier).Name)
				c.desc.EmitOp(bytecode.OpGetSuperProp)
				for _, a := range e.Args {
					c.compileExpression(a.Expr)
				}
				c.emitIndex(len(e.Args))
				c.desc.EmitOp(bytecode.OpCallOnSuper)
				return
			}
			c.compileChainExpr(m.Object, jumps)
			if m.Optional {
				c.desc.EmitOp(bytecode.OpDup)
				*jumps = append(*jumps, c.emitJump(bytecode.OpIfNullUndef))
			}
			c.desc.EmitOp(bytecode.OpDup)
			if m.Computed {
				c.compileExpression(m.Property)
				c.desc.EmitOp(bytecode.OpGetElem)
			} else {
				c.emitName(m.Property.(*ast.Identifier).Name)
				c.desc.EmitOp(bytecode.OpGetProp)
			}
			if e.Optional {
				// A nullish method leaves [this, callee]; drop the callee
				// before joining the chain's shared short-circuit landing.
				c.desc.EmitOp(bytecode.OpDup)
				skip := c.emitJump(bytecode.OpIfNullUndef)
				c.compileCallArgsMethod(e.Args)
				done := c.emitJump(bytecode.OpJump)
				c.patchJumpHere(skip)
				c.desc.EmitOp(bytecode.OpPop)
				*jumps = append(*jumps, c.emitJump(bytecode.OpJump))
				c.patchJumpHere(done)
				return
			}
			c.compileCallArgsMethod(e.Args)
			return
		}
		c.compileChainExpr(e.Callee, jumps)
		if e.Optional {
			c.desc.EmitOp(bytecode.OpDup)
			*jumps = append(*jumps, c.emitJump(bytecode.OpIfNullUndef))
		}
		c.compileCallArgsPlain(e.Args)

	case *ast.NewExpression:
		c.compileExpression(e.Callee)
		c.compileCallArgsNew(e.Args)

	default:
		c.compileExpression(expr)
	}
}

func hasSpread(args []ast.CallArgument) bool {
	for _, a := range args {
		if a.IsSpread {
			return true
		}
	}
	return false
}

// compileArgsArray builds a single array value from a call-argument list,
// used whenever any argument is a spread.
func (c *Compiler) compileArgsArray(args []ast.CallArgument) {
	c.desc.EmitOp(bytecode.OpNewArray)
	for _, a := range args {
		c.compileExpression(a.Expr)
		if a.IsSpread {
			c.desc.EmitOp(bytecode.OpSpreadArray)
		} else {
			c.desc.EmitOp(bytecode.OpArrayAppend)
		}
	}
}

// compileCallArgsPlain compiles a plain (no bound `this`) call's arguments
// and emits the call itself. Entered with [fn] on the stack.
func (c *Compiler) compileCallArgsPlain(args []ast.CallArgument) {
	if hasSpread(args) {
		c.desc.EmitOp(bytecode.OpUndef)
		c.desc.EmitOp(bytecode.OpSwap)
		c.compileArgsArray(args)
		c.desc.EmitOp(bytecode.OpCallSpread)
		return
	}
	for _, a := range args {
		c.compileExpression(a.Expr)
	}
	c.emitIndex(len(args))
	c.desc.EmitOp(bytecode.OpCall)
}

// compileCallArgsMethod is compileCallArgsPlain's method-call counterpart,
// entered with [this, fn] on the stack.
func (c *Compiler) compileCallArgsMethod(args []ast.CallArgument) {
	if hasSpread(args) {
		c.compileArgsArray(args)
		c.desc.EmitOp(bytecode.OpCallSpread)
		return
	}
	for _, a := range args {
		c.compileExpression(a.Expr)
	}
	c.emitIndex(len(args))
	c.desc.EmitOp(bytecode.OpCallMethod)
}

// compileCallArgsNew is the `new` counterpart, entered with [ctor].
func (c *Compiler) compileCallArgsNew(args []ast.CallArgument) {
	if hasSpread(args) {
		c.compileArgsArray(args)
		c.desc.EmitOp(bytecode.OpNewSpread)
		return
	}
	for _, a := range args {
		c.compileExpression(a.Expr)
	}
	c.emitIndex(len(args))
	c.desc.EmitOp(bytecode.OpNew)
}

// compileSuperCall compiles `super(...)`, valid only in a derived class
// constructor; the VM resolves the parent constructor from the running
// class's prototype chain rather than a compiled-in reference, since the
// superclass isn't known until the class expression/declaration evaluates.
func (c *Compiler) compileSuperCall(e *ast.CallExpression) {
	if hasSpread(e.Args) {
		c.compileArgsArray(e.Args)
		c.desc.EmitOp(bytecode.OpSuperCallSpread)
		return
	}
	for _, a := range e.Args {
		c.compileExpression(a.Expr)
	}
	c.emitIndex(len(e.Args))
	c.desc.EmitOp(bytecode.OpSuperCall)
}
