package compiler

import (
	"strings"

	"github.com/ecmavm/engine/internal/ast"
	"github.com/ecmavm/engine/internal/bytecode"
)

// Class-member storage flags, preloaded via emitIndex immediately before
// emitName's key register and consumed together by OpClassStorage. Not
// part of spec.md's own vocabulary — an internal convention of this
// compiler/VM pair, the way funxy's compiler and VM privately agree on
// opcode operand shapes nowhere else documented.
const (
	classFlagStatic  = 1 << 0
	classFlagGetter  = 1 << 1
	classFlagSetter  = 1 << 2
	classFlagField   = 1 << 3
	classFlagPrivate = 1 << 4
)

func (c *Compiler) compileClassExpr(e *ast.ClassExpression) {
	c.compileClass(e.Name, e.SuperClass, e.Members)
}

// compileClass builds a class value, leaving it on top of the stack.
// Grounded on funxy's absence of classes entirely; built as literal-style
// construction (OpNewObject's sibling OpClassDef, then one OpClassStorage
// append per member) matching how this compiler already builds object and
// array literals incrementally on the stack.
func (c *Compiler) compileClass(name string, superClass ast.Expression, members []*ast.ClassMember) {
	if superClass != nil {
		c.compileExpression(superClass)
	} else {
		c.desc.EmitOp(bytecode.OpUndef)
	}

	var ctor *ast.ClassMember
	for _, m := range members {
		if !m.IsStatic && m.Kind == ast.MemberMethod && isNamed(m.Key, "constructor") {
			ctor = m
			break
		}
	}
	if ctor != nil {
		fn := ctor.Value.(*ast.FunctionExpression)
		c.compileClosure(funcLiteral{
			name: "constructor", params: fn.Params, body: fn.Body, isClassCtor: true,
		})
	} else {
		c.desc.EmitOp(bytecode.OpUndef)
	}

	c.emitName(name)
	c.desc.EmitOp(bytecode.OpClassDef)

	for _, m := range members {
		if m == ctor || m.Kind == ast.MemberStaticBlock {
			continue
		}
		c.compileClassMember(m)
	}
}

func (c *Compiler) compileClassMember(m *ast.ClassMember) {
	flags := 0
	if m.IsStatic {
		flags |= classFlagStatic
	}

	privateName, isPrivate := privateKeyName(m.Key)
	if isPrivate {
		flags |= classFlagPrivate
	}

	switch m.Kind {
	case ast.MemberGetter:
		flags |= classFlagGetter
		c.compileExpression(m.Value)
	case ast.MemberSetter:
		flags |= classFlagSetter
		c.compileExpression(m.Value)
	case ast.MemberField:
		flags |= classFlagField
		if m.Value != nil {
			c.compileClosure(funcLiteral{params: nil, body: m.Value, isArrow: true})
		} else {
			c.desc.EmitOp(bytecode.OpUndef)
		}
	default: // MemberMethod
		c.compileExpression(m.Value)
	}

	c.emitIndex(flags)
	if isPrivate {
		c.emitName(privateName)
	} else if m.Computed {
		c.compileExpression(m.Key)
	} else {
		c.emitName(keyName(m.Key))
	}
	c.desc.EmitOp(bytecode.OpClassStorage)
}

func isNamed(key ast.Expression, name string) bool {
	id, ok := key.(*ast.Identifier)
	return ok && id.Name == name
}

func privateKeyName(key ast.Expression) (string, bool) {
	id, ok := key.(*ast.Identifier)
	if !ok || !strings.HasPrefix(id.Name, "#") {
		return "", false
	}
	return id.Name, true
}

func keyName(key ast.Expression) string {
	switch k := key.(type) {
	case *ast.Identifier:
		return k.Name
	case *ast.StringLiteral:
		return k.Value
	case *ast.NumberLiteral:
		return formatNumberKey(k.Value)
	default:
		return ""
	}
}
