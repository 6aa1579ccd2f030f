package compiler

import (
	"github.com/ecmavm/engine/internal/ast"
	"github.com/ecmavm/engine/internal/bytecode"
)

// destructureSink receives each leaf binding target a pattern resolves to.
// bindName fires for an Identifier leaf (declarations and simple assignment
// targets); assignExpr fires for an ast.ExprPattern leaf, which only occurs
// when destructuring an assignment expression's left-hand side against an
// arbitrary member expression (e.g. `[a.b] = pair`) rather than a
// declaration, so callers that only ever destructure declarations may leave
// it nil.
type destructureSink struct {
	bindName   func(name string)
	assignExpr func(expr ast.Expression)
}

// compileDestructure emits code to pick apart the value currently on top of
// the stack according to pat, routing each leaf through sink and leaving the
// stack exactly as it found it (the source value is consumed). Grounded on
// funxy's absence of destructuring entirely — this is new machinery, built
// the way the rest of the compiler builds expression-tree walks: one case
// per ast.Pattern variant, index/key access reusing the same GETELEM the
// member-expression compiler already emits.
func (c *Compiler) compileDestructure(pat ast.Pattern, sink destructureSink) {
	switch p := pat.(type) {
	case *ast.Identifier:
		sink.bindName(p.Name)

	case *ast.ExprPattern:
		if sink.assignExpr == nil {
			c.errorf("invalid destructuring target at line %d", p.Line)
			c.desc.EmitOp(bytecode.OpPop)
			return
		}
		sink.assignExpr(p.Expr)

	case *ast.AssignmentPattern:
		c.emitDefault(p.Default)
		c.compileDestructure(p.Target, sink)

	case *ast.ArrayPattern:
		for i, el := range p.Elements {
			if el == nil {
				continue
			}
			if el.IsRest {
				c.desc.EmitOp(bytecode.OpDup)
				c.desc.EmitOp(bytecode.OpNewArray)
				c.desc.EmitOp(bytecode.OpSwap)
				c.emitIndex(i)
				c.desc.EmitOp(bytecode.OpSpreadArray)
				c.compileDestructure(el.Target, sink)
				continue
			}
			c.desc.EmitOp(bytecode.OpDup)
			c.emitSmallInt(i)
			c.desc.EmitOp(bytecode.OpGetElem)
			if el.Default != nil {
				c.emitDefault(el.Default)
			}
			c.compileDestructure(el.Target, sink)
		}
		c.desc.EmitOp(bytecode.OpPop)

	case *ast.ObjectPattern:
		var excluded []string
		for _, prop := range p.Properties {
			if prop.IsRest {
				c.desc.EmitOp(bytecode.OpDup)
				c.desc.EmitOp(bytecode.OpNewObject)
				c.desc.EmitOp(bytecode.OpSwap)
				c.desc.EmitOp(bytecode.OpSpreadObject)
				for _, key := range excluded {
					c.desc.EmitOp(bytecode.OpDup)
					c.emitString(key)
					c.desc.EmitOp(bytecode.OpDeleteElem)
					c.desc.EmitOp(bytecode.OpPop)
				}
				c.compileDestructure(prop.Value, sink)
				continue
			}
			c.desc.EmitOp(bytecode.OpDup)
			switch {
			case prop.Computed:
				c.compileExpression(prop.Key)
			default:
				switch k := prop.Key.(type) {
				case *ast.Identifier:
					c.emitString(k.Name)
					excluded = append(excluded, k.Name)
				case *ast.StringLiteral:
					c.emitString(k.Value)
					excluded = append(excluded, k.Value)
				default:
					c.compileExpression(prop.Key)
				}
			}
			c.desc.EmitOp(bytecode.OpGetElem)
			if prop.Default != nil {
				c.emitDefault(prop.Default)
			}
			c.compileDestructure(prop.Value, sink)
		}
		c.desc.EmitOp(bytecode.OpPop)

	default:
		c.errorf("unsupported binding pattern %T", pat)
		c.desc.EmitOp(bytecode.OpPop)
	}
}

// compileDeclarePattern destructures the value on top of the stack, binding
// each leaf identifier as a fresh declaration of kind (var/let/const) in the
// current scope. Used for variable declarators and function parameters.
func (c *Compiler) compileDeclarePattern(pat ast.Pattern, kind ast.VarKind) {
	c.compileDestructure(pat, destructureSink{
		bindName: func(name string) {
			c.emitName(name)
			c.desc.EmitOp(c.declareKind(kind))
		},
	})
}

// compileAssignPattern destructures the value on top of the stack, assigning
// each leaf into an already-declared binding or member expression. Used for
// bare assignment-expression destructuring (`[a, b] = pair`), which may
// target arbitrary left-hand-side expressions rather than fresh bindings.
func (c *Compiler) compileAssignPattern(pat ast.Pattern) {
	c.compileDestructure(pat, destructureSink{
		bindName: func(name string) {
			c.emitName(name)
			c.desc.EmitOp(bytecode.OpSetVar)
		},
		assignExpr: func(expr ast.Expression) {
			c.compileAssignTo(expr)
		},
	})
}
