package compiler

import (
	"github.com/ecmavm/engine/internal/ast"
	"github.com/ecmavm/engine/internal/bytecode"
)

// compileStatements hoists this list's let/const/class/function
// declarations into the current scope, then compiles each statement in
// order. Used both for the top level of a script/function body (where the
// "current scope" is already the enclosing CallScope/GlobalScope, so no
// extra scope frame is pushed) and, via compileBlock, for a nested block.
func (c *Compiler) compileStatements(stmts []ast.Statement) {
	c.hoistDeclarations(stmts)
	for _, s := range stmts {
		c.compileStatement(s)
	}
}

// compileBlock runs stmts in a fresh block scope, per spec.md 4.C's
// BlockScope: every `{ ... }` except a function's own top-level body (see
// functions.go, which hoists params directly into the call scope and
// compiles its body with compileStatements, not compileBlock) gets its own
// scope frame so let/const/class there don't leak to the enclosing block.
func (c *Compiler) compileBlock(stmts []ast.Statement) {
	c.desc.EmitOp(bytecode.OpPushBlockScope)
	c.compileStatements(stmts)
	c.desc.EmitOp(bytecode.OpPopBlockScope)
}

// hoistDeclarations pre-declares this block's direct let/const/class
// bindings in the TDZ and eagerly defines its function declarations, so
// that a reference before the binding's own statement correctly raises
// (let/const/class) or correctly sees the function (function declarations
// hoist fully, matching ECMAScript). It does not recurse into nested
// blocks, loops, or function bodies — those hoist independently when their
// own compileStatements/compileBlock runs. `var` is deliberately NOT hoisted
// here: it is declared directly at its own statement position, one block
// short of ECMAScript's function-wide var hoisting — a scope simplification
// recorded in the design notes rather than full var-to-function hoisting.
func (c *Compiler) hoistDeclarations(stmts []ast.Statement) {
	for _, s := range stmts {
		switch st := s.(type) {
		case *ast.VariableDeclaration:
			if st.Kind == ast.VarVar {
				continue
			}
			for _, d := range st.Declarations {
				c.hoistPatternNames(d.Target, st.Kind)
			}
		case *ast.ClassDeclaration:
			c.desc.EmitOp(bytecode.OpTDZConst)
			c.emitName(st.Name)
			c.desc.EmitOp(bytecode.OpDeclareLet)
		case *ast.FunctionDeclaration:
			c.compileClosure(funcLiteral{
				name: st.Name, params: st.Params, body: st.Body,
				isGenerator: st.IsGenerator, isAsync: st.IsAsync,
			})
			c.emitName(st.Name)
			c.desc.EmitOp(bytecode.OpDeclareVar)
		}
	}
}

func (c *Compiler) hoistPatternNames(pat ast.Pattern, kind ast.VarKind) {
	switch p := pat.(type) {
	case *ast.Identifier:
		c.desc.EmitOp(bytecode.OpTDZConst)
		c.emitName(p.Name)
		c.desc.EmitOp(c.declareKind(kind))
	case *ast.AssignmentPattern:
		c.hoistPatternNames(p.Target, kind)
	case *ast.ArrayPattern:
		for _, el := range p.Elements {
			if el != nil {
				c.hoistPatternNames(el.Target, kind)
			}
		}
	case *ast.ObjectPattern:
		for _, pr := range p.Properties {
			c.hoistPatternNames(pr.Value, kind)
		}
	case *ast.RestElement:
		c.hoistPatternNames(p.Target, kind)
	}
}

func (c *Compiler) compileStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		c.compileExpression(s.Expr)
		c.desc.EmitOp(bytecode.OpPop)
	case *ast.BlockStatement:
		c.compileBlock(s.Body)
	case *ast.VariableDeclaration:
		c.compileVariableDeclaration(s)
	case *ast.FunctionDeclaration:
		// already hoisted and bound by hoistDeclarations; nothing left to do.
	case *ast.ClassDeclaration:
		c.compileClassDeclarationBody(s)
	case *ast.IfStatement:
		c.compileIf(s)
	case *ast.WhileStatement:
		c.compileWhile(s, "")
	case *ast.DoWhileStatement:
		c.compileDoWhile(s, "")
	case *ast.ForStatement:
		c.compileFor(s, "")
	case *ast.ForInOfStatement:
		c.compileForInOf(s, "")
	case *ast.ReturnStatement:
		if s.Argument != nil {
			c.compileExpression(s.Argument)
		} else {
			c.desc.EmitOp(bytecode.OpUndef)
		}
		c.desc.EmitOp(bytecode.OpReturn)
	case *ast.BreakStatement:
		c.compileBreak(s.Label)
	case *ast.ContinueStatement:
		c.compileContinue(s.Label)
	case *ast.ThrowStatement:
		c.compileExpression(s.Argument)
		c.desc.EmitOp(bytecode.OpThrow)
	case *ast.TryStatement:
		c.compileTry(s)
	case *ast.SwitchStatement:
		c.compileSwitch(s, "")
	case *ast.LabeledStatement:
		c.compileLabeled(s)
	case *ast.EmptyStatement:
		// nothing to emit
	default:
		c.errorf("unsupported statement %T", stmt)
	}
}

func (c *Compiler) compileVariableDeclaration(d *ast.VariableDeclaration) {
	for _, decl := range d.Declarations {
		if decl.Init != nil {
			c.compileExpression(decl.Init)
		} else {
			c.desc.EmitOp(bytecode.OpUndef)
		}
		if d.Kind == ast.VarVar {
			c.compileDeclarePattern(decl.Target, ast.VarVar)
		} else {
			c.compileInitPattern(decl.Target)
		}
	}
}

// compileInitPattern destructures the value on top of the stack into
// already-hoisted (TDZ'd) let/const bindings, clearing their TDZ state.
func (c *Compiler) compileInitPattern(pat ast.Pattern) {
	c.compileDestructure(pat, destructureSink{
		bindName: func(name string) {
			c.emitName(name)
			c.desc.EmitOp(bytecode.OpSetLetInit)
		},
	})
}

// compileClassDeclarationBody compiles the class's value into the binding
// hoistDeclarations already TDZ-declared for it.
func (c *Compiler) compileClassDeclarationBody(d *ast.ClassDeclaration) {
	c.compileClass(d.Name, d.SuperClass, d.Members)
	c.emitName(d.Name)
	c.desc.EmitOp(bytecode.OpSetLetInit)
}

func (c *Compiler) compileIf(s *ast.IfStatement) {
	c.compileExpression(s.Test)
	elseJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.compileStatement(s.Consequent)
	if s.Alternate == nil {
		c.patchJumpHere(elseJump)
		return
	}
	end := c.emitJump(bytecode.OpJump)
	c.patchJumpHere(elseJump)
	c.compileStatement(s.Alternate)
	c.patchJumpHere(end)
}

// compileTry compiles try/catch/finally using the descriptor's exception
// table plus GOSUB/RETSUB for finally, matching how a non-exceptional
// completion of try (or of catch) still must run finally before continuing.
// A handler row with IsFinally set names a finally entry point directly: the
// VM's unwinder enters it the same way OpGosub does (pushing a resume
// continuation), except the continuation it pushes is "rethrow the pending
// exception" rather than "jump back to the call site" — so a thrown value
// still drains through finally whether it originated in the try block or,
// via the second row below, in the catch block itself. CatchVarIdx is left
// at -1 throughout: the caught value is bound through the same name-based
// scope mechanism as every other binding (compileDeclarePattern), not
// through an integer locals slot. Grounded on funxy's absence of exceptions;
// built directly against bytecode.Descriptor's ExceptionHandler/OpGosub/
// OpRetSub, which spec.md 4.D names for exactly this purpose.
func (c *Compiler) compileTry(s *ast.TryStatement) {
	tryStart := c.desc.CurrentOffset()
	c.compileBlock(s.Block.Body)
	tryEnd := c.desc.CurrentOffset()

	var normalGosub int
	if s.Finally != nil {
		normalGosub = c.emitJump(bytecode.OpGosub)
	}
	afterTry := c.emitJump(bytecode.OpJump)

	catchStart := c.desc.CurrentOffset()
	var catchGosub int
	haveCatchGosub := false
	if s.Handler != nil {
		c.desc.EmitOp(bytecode.OpPushBlockScope)
		if s.Handler.Param != nil {
			c.compileDeclarePattern(s.Handler.Param, ast.VarLet)
		} else {
			c.desc.EmitOp(bytecode.OpPop)
		}
		c.compileStatements(s.Handler.Body.Body)
		c.desc.EmitOp(bytecode.OpPopBlockScope)
		if s.Finally != nil {
			catchGosub = c.emitJump(bytecode.OpGosub)
			haveCatchGosub = true
		}
	}
	catchEnd := c.desc.CurrentOffset()
	afterHandler := c.emitJump(bytecode.OpJump)

	var finallyStart int
	if s.Finally != nil {
		finallyStart = c.desc.CurrentOffset()
		c.compileBlock(s.Finally.Body)
		c.desc.EmitOp(bytecode.OpRetSub)
		c.desc.PatchJump(normalGosub, uint32(finallyStart))
		if haveCatchGosub {
			c.desc.PatchJump(catchGosub, uint32(finallyStart))
		}
	}

	c.patchJumpHere(afterTry)
	c.patchJumpHere(afterHandler)

	switch {
	case s.Handler != nil && s.Finally != nil:
		c.desc.Exceptions = append(c.desc.Exceptions,
			bytecode.ExceptionHandler{Start: tryStart, End: tryEnd, Target: catchStart, IsFinally: false, CatchVarIdx: -1},
			bytecode.ExceptionHandler{Start: catchStart, End: catchEnd, Target: finallyStart, IsFinally: true, CatchVarIdx: -1},
		)
	case s.Handler != nil:
		c.desc.Exceptions = append(c.desc.Exceptions,
			bytecode.ExceptionHandler{Start: tryStart, End: tryEnd, Target: catchStart, IsFinally: false, CatchVarIdx: -1},
		)
	case s.Finally != nil:
		c.desc.Exceptions = append(c.desc.Exceptions,
			bytecode.ExceptionHandler{Start: tryStart, End: tryEnd, Target: finallyStart, IsFinally: true, CatchVarIdx: -1},
		)
	}
}

func (c *Compiler) compileLabeled(s *ast.LabeledStatement) {
	switch body := s.Body.(type) {
	case *ast.WhileStatement:
		c.compileWhile(body, s.Label)
	case *ast.DoWhileStatement:
		c.compileDoWhile(body, s.Label)
	case *ast.ForStatement:
		c.compileFor(body, s.Label)
	case *ast.ForInOfStatement:
		c.compileForInOf(body, s.Label)
	case *ast.SwitchStatement:
		c.compileSwitch(body, s.Label)
	default:
		c.nestSeq++
		c.switchStack = append(c.switchStack, switchContext{label: s.Label, seq: c.nestSeq})
		c.compileStatement(body)
		top := c.switchStack[len(c.switchStack)-1]
		c.switchStack = c.switchStack[:len(c.switchStack)-1]
		for _, j := range top.breakJumps {
			c.patchJumpHere(j)
		}
	}
}
