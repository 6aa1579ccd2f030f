package compiler

import (
	"github.com/ecmavm/engine/internal/ast"
	"github.com/ecmavm/engine/internal/bytecode"
)

// compileAssignment compiles an AssignmentExpression, leaving the assigned
// value on top of the stack as the expression's result.
func (c *Compiler) compileAssignment(e *ast.AssignmentExpression) {
	switch e.Op {
	case "=":
		c.compileExpression(e.Value)
		c.desc.EmitOp(bytecode.OpDup)
		c.compileAssignPattern(e.Target.(ast.Pattern))
	case "&&=", "||=", "??=":
		c.compileLogicalAssign(e)
	default:
		binOp, ok := compoundOps[e.Op]
		if !ok {
			c.errorf("unknown assignment operator %q", e.Op)
			return
		}
		c.compileCompoundAssign(e.Target.(ast.Expression), binOp, e.Value)
	}
}

// compileAssignTo assigns the value already on top of the stack (consuming
// it) into target, a plain (non-destructuring) assignment target.
func (c *Compiler) compileAssignTo(target ast.Expression) {
	switch t := target.(type) {
	case *ast.Identifier:
		c.emitName(t.Name)
		c.desc.EmitOp(bytecode.OpSetVar)
	case *ast.MemberExpression:
		tmp := c.stashTemp()
		c.compileExpression(t.Object)
		if t.Computed {
			c.compileExpression(t.Property)
			c.loadTemp(tmp)
			c.desc.EmitOp(bytecode.OpSetElem)
		} else {
			c.loadTemp(tmp)
			c.emitName(t.Property.(*ast.Identifier).Name)
			c.desc.EmitOp(bytecode.OpSetProp)
		}
	case *ast.PrivateMemberExpression:
		tmp := c.stashTemp()
		c.compileExpression(t.Object)
		c.loadTemp(tmp)
		c.emitName(t.Private)
		c.desc.EmitOp(bytecode.OpSetPrivate)
	default:
		c.errorf("invalid assignment target %T", target)
	}
}

// compileCompoundAssign implements `target op= value` for the arithmetic,
// bitwise, and shift compound operators.
func (c *Compiler) compileCompoundAssign(target ast.Expression, binOp ast.BinaryOp, value ast.Expression) {
	switch t := target.(type) {
	case *ast.Identifier:
		c.emitName(t.Name)
		c.desc.EmitOp(bytecode.OpGetVarTDZ)
		c.compileExpression(value)
		c.emitBinaryOp(binOp)
		c.desc.EmitOp(bytecode.OpDup)
		c.emitName(t.Name)
		c.desc.EmitOp(bytecode.OpSetVar)
	case *ast.MemberExpression:
		objTmp := c.stashTempFrom(t.Object)
		var keyTmp string
		if t.Computed {
			keyTmp = c.stashTempFrom(t.Property)
		}
		c.loadTemp(objTmp)
		if t.Computed {
			c.loadTemp(keyTmp)
			c.desc.EmitOp(bytecode.OpGetElem)
		} else {
			c.emitName(t.Property.(*ast.Identifier).Name)
			c.desc.EmitOp(bytecode.OpGetProp)
		}
		c.compileExpression(value)
		c.emitBinaryOp(binOp)
		c.desc.EmitOp(bytecode.OpDup)
		result := c.stashTemp()
		c.loadTemp(objTmp)
		if t.Computed {
			c.loadTemp(keyTmp)
			c.loadTemp(result)
			c.desc.EmitOp(bytecode.OpSetElem)
		} else {
			c.loadTemp(result)
			c.emitName(t.Property.(*ast.Identifier).Name)
			c.desc.EmitOp(bytecode.OpSetProp)
		}
	default:
		c.errorf("invalid compound-assignment target %T", target)
		c.desc.EmitOp(bytecode.OpUndef)
	}
}

// compileLogicalAssign implements `target &&= / ||= / ??= value`, which
// short-circuits: value is evaluated and stored only when the current value
// fails the corresponding truthy/falsy/nullish test.
func (c *Compiler) compileLogicalAssign(e *ast.AssignmentExpression) {
	target := e.Target.(ast.Expression)
	switch t := target.(type) {
	case *ast.Identifier:
		c.emitName(t.Name)
		c.desc.EmitOp(bytecode.OpGetVarTDZ)
		c.desc.EmitOp(bytecode.OpDup)
		skip := c.emitSkipJump(e.Op)
		c.desc.EmitOp(bytecode.OpPop)
		c.compileExpression(e.Value)
		c.desc.EmitOp(bytecode.OpDup)
		c.emitName(t.Name)
		c.desc.EmitOp(bytecode.OpSetVar)
		end := c.emitJump(bytecode.OpJump)
		c.patchJumpHere(skip)
		c.patchJumpHere(end)
	case *ast.MemberExpression:
		objTmp := c.stashTempFrom(t.Object)
		var keyTmp string
		if t.Computed {
			keyTmp = c.stashTempFrom(t.Property)
		}
		c.loadTemp(objTmp)
		if t.Computed {
			c.loadTemp(keyTmp)
			c.desc.EmitOp(bytecode.OpGetElem)
		} else {
			c.emitName(t.Property.(*ast.Identifier).Name)
			c.desc.EmitOp(bytecode.OpGetProp)
		}
		c.desc.EmitOp(bytecode.OpDup)
		skip := c.emitSkipJump(e.Op)
		c.desc.EmitOp(bytecode.OpPop)
		c.compileExpression(e.Value)
		c.desc.EmitOp(bytecode.OpDup)
		result := c.stashTemp()
		c.loadTemp(objTmp)
		if t.Computed {
			c.loadTemp(keyTmp)
			c.loadTemp(result)
			c.desc.EmitOp(bytecode.OpSetElem)
		} else {
			c.loadTemp(result)
			c.emitName(t.Property.(*ast.Identifier).Name)
			c.desc.EmitOp(bytecode.OpSetProp)
		}
		end := c.emitJump(bytecode.OpJump)
		c.patchJumpHere(skip)
		c.patchJumpHere(end)
	default:
		c.errorf("invalid logical-assignment target %T", target)
		c.desc.EmitOp(bytecode.OpUndef)
	}
}

func (c *Compiler) emitSkipJump(op string) int {
	switch op {
	case "&&=":
		return c.emitJump(bytecode.OpJumpIfFalse)
	case "??=":
		return c.emitJump(bytecode.OpIfNotNullUndef)
	default: // "||="
		return c.emitJump(bytecode.OpJumpIfTrue)
	}
}

// stashTempFrom compiles expr and immediately stashes its value, returning
// the temp name — a shorthand for the common "evaluate once, reuse twice"
// shape member-target compound/logical assignment needs for the object and
// (when computed) the key.
func (c *Compiler) stashTempFrom(expr ast.Expression) string {
	c.compileExpression(expr)
	return c.stashTemp()
}
