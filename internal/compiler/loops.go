package compiler

import (
	"github.com/ecmavm/engine/internal/ast"
	"github.com/ecmavm/engine/internal/bytecode"
)

// compileWhile, compileDoWhile, compileFor, and compileForInOf each push a
// loopContext before compiling their body and pop it after, patching every
// break/continue jump collected along the way. label is the loop's own
// label when it's the direct body of a LabeledStatement, or "" otherwise
// (see compileLabeled).

func (c *Compiler) compileWhile(s *ast.WhileStatement, label string) {
	c.nestSeq++
	c.loopStack = append(c.loopStack, loopContext{label: label, seq: c.nestSeq})

	testLabel := c.desc.CurrentOffset()
	c.compileExpression(s.Test)
	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.compileStatement(s.Body)
	c.emitJumpTo(bytecode.OpLoop, testLabel)

	loopEnd := c.desc.CurrentOffset()
	c.desc.PatchJump(exitJump, uint32(loopEnd))
	c.finishLoop(loopEnd, testLabel)
}

func (c *Compiler) compileDoWhile(s *ast.DoWhileStatement, label string) {
	c.nestSeq++
	c.loopStack = append(c.loopStack, loopContext{label: label, seq: c.nestSeq})

	bodyStart := c.desc.CurrentOffset()
	c.compileStatement(s.Body)

	// do/while's continue target is the test, re-evaluated after the body;
	// a true test loops back to the body directly, a false test falls
	// through to loopEnd.
	testLabel := c.desc.CurrentOffset()
	c.compileExpression(s.Test)
	c.emitJumpTo(bytecode.OpJumpIfTrue, bodyStart)

	loopEnd := c.desc.CurrentOffset()
	c.finishLoop(loopEnd, testLabel)
}

func (c *Compiler) compileFor(s *ast.ForStatement, label string) {
	hasLetScope := false
	if decl, ok := s.Init.(*ast.VariableDeclaration); ok && decl.Kind != ast.VarVar {
		hasLetScope = true
	}
	if hasLetScope {
		c.desc.EmitOp(bytecode.OpPushBlockScope)
	}
	switch init := s.Init.(type) {
	case *ast.VariableDeclaration:
		c.compileVariableDeclaration(init)
	case ast.Expression:
		c.compileExpression(init)
		c.desc.EmitOp(bytecode.OpPop)
	}

	c.nestSeq++
	c.loopStack = append(c.loopStack, loopContext{label: label, seq: c.nestSeq})

	testLabel := c.desc.CurrentOffset()
	if hasLetScope {
		c.desc.EmitOp(bytecode.OpCopyPerIterScope)
	}
	hasExit := s.Test != nil
	var exitJump int
	if hasExit {
		c.compileExpression(s.Test)
		exitJump = c.emitJump(bytecode.OpJumpIfFalse)
	}
	c.compileStatement(s.Body)

	continueTarget := c.desc.CurrentOffset()
	if s.Update != nil {
		c.compileExpression(s.Update)
		c.desc.EmitOp(bytecode.OpPop)
	}
	c.emitJumpTo(bytecode.OpLoop, testLabel)

	loopEnd := c.desc.CurrentOffset()
	if hasExit {
		c.desc.PatchJump(exitJump, uint32(loopEnd))
	}
	c.finishLoop(loopEnd, continueTarget)

	if hasLetScope {
		c.desc.EmitOp(bytecode.OpPopBlockScope)
	}
}

// compileForInOf compiles both for-in (enumerating property keys) and
// for-of (iterating an iterable), which the VM distinguishes by opcode
// rather than this package trying to model an iterator protocol at compile
// time: GET_ITERATOR/GET_PROP_ENUMERATOR produce a hidden iterator-state
// value, stashed in a hidden temp (see stashTemp) since it must survive
// across iterations the way nothing else in this compiler's stack-only
// model can; ITERATOR_NEXT/ENUMERATOR_NEXT always push a fixed [value,
// done] pair so the loop body can consume the one case and discard the
// other with ordinary jumps, rather than varying stack shape on done.
// Each iteration gets its own fresh PushBlockScope (not a copy of a shared
// one), which already gives per-iteration `let`/`const` bindings their own
// identity for closures without needing OpCopyPerIterScope here.
func (c *Compiler) compileForInOf(s *ast.ForInOfStatement, label string) {
	c.compileExpression(s.Right)
	if s.Kind == ast.ForOf {
		c.desc.EmitOp(bytecode.OpGetIterator)
	} else {
		c.desc.EmitOp(bytecode.OpGetPropEnumerator)
	}
	iterTemp := c.stashTemp()

	c.nestSeq++
	c.loopStack = append(c.loopStack, loopContext{label: label, seq: c.nestSeq})

	testLabel := c.desc.CurrentOffset()
	c.loadTemp(iterTemp)
	if s.Kind == ast.ForOf {
		c.desc.EmitOp(bytecode.OpIteratorNext)
	} else {
		c.desc.EmitOp(bytecode.OpEnumeratorNext)
	}
	// stack: [value, done]; JumpIfTrue pops done, leaving value on both
	// paths — the taken (done) path discards it below, the fallthrough
	// path consumes it via the per-iteration destructure.
	exitJump := c.emitJump(bytecode.OpJumpIfTrue)

	c.desc.EmitOp(bytecode.OpPushBlockScope)
	switch {
	case s.Decl != nil:
		if s.Decl.Kind == ast.VarVar {
			c.compileDeclarePattern(s.Decl.Declarations[0].Target, ast.VarVar)
		} else {
			c.hoistPatternNames(s.Decl.Declarations[0].Target, s.Decl.Kind)
			c.compileInitPattern(s.Decl.Declarations[0].Target)
		}
	case s.Target != nil:
		c.compileAssignTo(s.Target)
	}
	c.compileStatement(s.Body)
	c.desc.EmitOp(bytecode.OpPopBlockScope)

	continueTarget := c.desc.CurrentOffset()
	c.emitJumpTo(bytecode.OpLoop, testLabel)

	c.patchJumpHere(exitJump)
	c.desc.EmitOp(bytecode.OpPop) // discard the leftover value from the done path

	loopEnd := c.desc.CurrentOffset()
	c.finishLoop(loopEnd, continueTarget)
}

// finishLoop pops the innermost loopContext and patches its break jumps to
// end and its continue jumps to continueTarget.
func (c *Compiler) finishLoop(end, continueTarget int) {
	top := c.loopStack[len(c.loopStack)-1]
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	for _, j := range top.breakJumps {
		c.desc.PatchJump(j, uint32(end))
	}
	for _, j := range top.contJumps {
		c.desc.PatchJump(j, uint32(continueTarget))
	}
}

// compileBreak resolves an (optionally labeled) break to the innermost
// enclosing loop or switch, comparing loopStack's and switchStack's top
// entries by seq since a switch nested in a loop (or vice versa) means
// neither stack alone reflects which is actually innermost.
func (c *Compiler) compileBreak(label string) {
	if label != "" {
		for i := len(c.loopStack) - 1; i >= 0; i-- {
			if c.loopStack[i].label == label {
				j := c.emitJump(bytecode.OpJump)
				c.loopStack[i].breakJumps = append(c.loopStack[i].breakJumps, j)
				return
			}
		}
		for i := len(c.switchStack) - 1; i >= 0; i-- {
			if c.switchStack[i].label == label {
				j := c.emitJump(bytecode.OpJump)
				c.switchStack[i].breakJumps = append(c.switchStack[i].breakJumps, j)
				return
			}
		}
		c.errorf("undefined label %q", label)
		return
	}

	loopSeq, hasLoop := -1, len(c.loopStack) > 0
	if hasLoop {
		loopSeq = c.loopStack[len(c.loopStack)-1].seq
	}
	switchSeq, hasSwitch := -1, len(c.switchStack) > 0
	if hasSwitch {
		switchSeq = c.switchStack[len(c.switchStack)-1].seq
	}
	switch {
	case hasLoop && (!hasSwitch || loopSeq > switchSeq):
		i := len(c.loopStack) - 1
		j := c.emitJump(bytecode.OpJump)
		c.loopStack[i].breakJumps = append(c.loopStack[i].breakJumps, j)
	case hasSwitch:
		i := len(c.switchStack) - 1
		j := c.emitJump(bytecode.OpJump)
		c.switchStack[i].breakJumps = append(c.switchStack[i].breakJumps, j)
	default:
		c.errorf("illegal break statement outside loop or switch")
	}
}

// compileContinue resolves an (optionally labeled) continue to the
// innermost enclosing loop; switches are never continue targets.
func (c *Compiler) compileContinue(label string) {
	if len(c.loopStack) == 0 {
		c.errorf("illegal continue statement outside loop")
		return
	}
	if label == "" {
		i := len(c.loopStack) - 1
		j := c.emitJump(bytecode.OpJump)
		c.loopStack[i].contJumps = append(c.loopStack[i].contJumps, j)
		return
	}
	for i := len(c.loopStack) - 1; i >= 0; i-- {
		if c.loopStack[i].label == label {
			j := c.emitJump(bytecode.OpJump)
			c.loopStack[i].contJumps = append(c.loopStack[i].contJumps, j)
			return
		}
	}
	c.errorf("undefined label %q", label)
}

// compileSwitch compiles a switch via a chain of strict-equality tests
// followed by fallthrough case bodies, the same "forward-jump per test,
// patch once targets are known" shape compileIf and compileLogical already
// use. The discriminant is evaluated once and stashed, since every test
// needs it and the stack has no other way to keep it live across an
// arbitrary number of comparisons.
func (c *Compiler) compileSwitch(s *ast.SwitchStatement, label string) {
	c.compileExpression(s.Discriminant)
	discTemp := c.stashTemp()

	var allStmts []ast.Statement
	for _, cs := range s.Cases {
		allStmts = append(allStmts, cs.Consequent...)
	}

	c.nestSeq++
	c.switchStack = append(c.switchStack, switchContext{label: label, seq: c.nestSeq})
	c.desc.EmitOp(bytecode.OpPushBlockScope)
	c.hoistDeclarations(allStmts)

	type pending struct {
		jump int
		cs   *ast.SwitchCase
	}
	var matches []pending
	var defaultCase *ast.SwitchCase
	for _, cs := range s.Cases {
		if cs.Test == nil {
			defaultCase = cs
			continue
		}
		c.loadTemp(discTemp)
		c.compileExpression(cs.Test)
		c.desc.EmitOp(bytecode.OpStrictEq)
		j := c.emitJump(bytecode.OpJumpIfTrue)
		matches = append(matches, pending{jump: j, cs: cs})
	}
	var defaultJump int
	hasDefaultJump := defaultCase != nil
	if hasDefaultJump {
		defaultJump = c.emitJump(bytecode.OpJump)
	}
	noMatchJump := c.emitJump(bytecode.OpJump)

	for _, cs := range s.Cases {
		for _, m := range matches {
			if m.cs == cs {
				c.patchJumpHere(m.jump)
			}
		}
		if cs == defaultCase {
			c.patchJumpHere(defaultJump)
		}
		for _, st := range cs.Consequent {
			c.compileStatement(st)
		}
	}
	if !hasDefaultJump {
		c.patchJumpHere(noMatchJump)
	} else {
		// every case already falls through in source order; a discriminant
		// matching nothing, with a default present, still must run it, so
		// the "no match" path and the default path are the same target.
		c.desc.PatchJump(noMatchJump, uint32(c.funcOffsetOfJumpTarget(defaultJump)))
	}

	c.desc.EmitOp(bytecode.OpPopBlockScope)
	end := c.desc.CurrentOffset()
	top := c.switchStack[len(c.switchStack)-1]
	c.switchStack = c.switchStack[:len(c.switchStack)-1]
	for _, j := range top.breakJumps {
		c.desc.PatchJump(j, uint32(end))
	}
}

// funcOffsetOfJumpTarget reads back the target a forward jump at offset was
// already patched to, so a second jump can be pointed at the same place.
func (c *Compiler) funcOffsetOfJumpTarget(offset int) uint32 {
	return bytecode.ReadUint32(c.desc.Code, offset+1)
}
