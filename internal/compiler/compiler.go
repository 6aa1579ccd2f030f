// Package compiler translates an ast.Program into bytecode.Descriptor trees
// (spec.md 4.D). Grounded on funxy's `internal/vm/compiler.go` split of
// concerns (a `Compiler` struct nesting one instance per function body,
// a loop-context stack for break/continue, emit/patch helpers over the
// current chunk) — generalized here from funxy's slot-indexed locals and
// relative-offset jumps to this engine's name-based scope chain (see
// internal/scope) and the Descriptor's absolute-offset jump operands,
// since spec.md 4.C resolves bindings by walking Scope maps at runtime
// rather than by a fixed stack-slot layout known at compile time.
package compiler

import (
	"fmt"
	"math/big"

	"github.com/ecmavm/engine/internal/ast"
	"github.com/ecmavm/engine/internal/bytecode"
)

// loopContext tracks the information needed to patch break/continue jumps
// once a loop's extent is known, grounded on funxy's LoopContext. seq is a
// monotonically increasing nesting counter: an unlabeled break must find
// whichever of loopStack/switchStack was pushed most recently, since the two
// stacks track independent nestings (a switch inside a loop, or a loop
// inside a switch) and neither stack alone records their relative order.
type loopContext struct {
	label      string // empty for an unlabeled loop
	seq        int
	breakJumps []int // EmitOp4 offsets of break jumps, patched once the loop ends
	contJumps  []int // offsets of continue jumps, patched forward once the continue target (update/test re-eval point) is known
}

// switchContext lets break find its way out of a switch that isn't itself a loop.
type switchContext struct {
	label      string
	seq        int
	breakJumps []int
}

// Compiler compiles one function body (or the top-level script) into a
// single bytecode.Descriptor. Nested function/arrow/class-method bodies
// each get their own Compiler linked via enclosing, mirroring funxy's
// per-function Compiler nesting for closures.
type Compiler struct {
	desc      *bytecode.Descriptor
	enclosing *Compiler

	blockDepth int // not read or updated by any compile path

	loopStack   []loopContext
	switchStack []switchContext
	nestSeq     int // shared counter stamping loopContext/switchContext.seq in push order

	errors []error

	inGenerator bool
	inAsync     bool

	tempCounter int
}

// newTemp returns a hidden binding name no source identifier can spell,
// used to stash intermediate values in the current scope when a compound
// operation (member update, compound/logical assignment) needs to hold more
// state than Dup/Dup2/Swap can reorder on the stack alone.
func (c *Compiler) newTemp() string {
	c.tempCounter++
	return fmt.Sprintf("@t%d", c.tempCounter)
}

// stashTemp pops the value on top of the stack into a fresh hidden
// binding and returns its name for a later loadTemp.
func (c *Compiler) stashTemp() string {
	name := c.newTemp()
	c.emitName(name)
	c.desc.EmitOp(bytecode.OpDeclareLet)
	return name
}

func (c *Compiler) loadTemp(name string) {
	c.emitName(name)
	c.desc.EmitOp(bytecode.OpGetVar)
}

func newCompiler(name string, enclosing *Compiler) *Compiler {
	return &Compiler{desc: bytecode.NewDescriptor(name), enclosing: enclosing}
}

// Compile compiles a top-level program into its Descriptor.
func Compile(prog *ast.Program) (*bytecode.Descriptor, []error) {
	c := newCompiler("<script>", nil)
	c.compileStatements(prog.Body)
	c.desc.EmitOp(bytecode.OpHalt)
	return c.desc, c.errors
}

func (c *Compiler) errorf(format string, args ...interface{}) {
	c.errors = append(c.errors, fmt.Errorf(format, args...))
}

// --- name operand emission ---

// emitName preloads the string-pool index of name into the register the
// next opcode consumes, choosing the narrowest REG_STR* prefix that fits,
// per spec.md 4.D's REG_* prefix family.
func (c *Compiler) emitName(name string) {
	idx := c.desc.AddString(name)
	switch {
	case idx <= 0xff:
		c.desc.EmitOp1(bytecode.OpRegStr1, byte(idx))
	case idx <= 0xffff:
		c.desc.EmitOp2(bytecode.OpRegStr2, uint16(idx))
	default:
		c.desc.EmitOp4(bytecode.OpRegStr4, uint32(idx))
	}
}

// emitIndex preloads an arbitrary small integer operand (constant-pool
// index, per-iteration scope depth, etc.) using the same narrowing scheme.
func (c *Compiler) emitIndex(n int) {
	switch {
	case n <= 0xff:
		c.desc.EmitOp1(bytecode.OpRegInd1, byte(n))
	case n <= 0xffff:
		c.desc.EmitOp2(bytecode.OpRegInd2, uint16(n))
	default:
		c.desc.EmitOp4(bytecode.OpRegInd4, uint32(n))
	}
}

func (c *Compiler) emitString(s string) {
	idx := c.desc.AddString(s)
	switch {
	case idx <= 0xff:
		c.desc.EmitOp1(bytecode.OpStr1, byte(idx))
	case idx <= 0xffff:
		c.desc.EmitOp2(bytecode.OpStr2, uint16(idx))
	default:
		c.desc.EmitOp4(bytecode.OpStr4, uint32(idx))
	}
}

func (c *Compiler) emitDouble(f float64) {
	idx := c.desc.AddDouble(f)
	c.desc.EmitOp2(bytecode.OpDoubleC, uint16(idx))
}

func (c *Compiler) emitBigInt(b *big.Int) {
	idx := c.desc.AddBigInt(b)
	c.desc.EmitOp2(bytecode.OpBigIntC, uint16(idx))
}

// emitSmallInt pushes a plain integer value (array index, etc.), not to be
// confused with emitIndex's REG_IND operand preload.
func (c *Compiler) emitSmallInt(n int) {
	switch {
	case n == 0:
		c.desc.EmitOp(bytecode.OpZero)
	case n == 1:
		c.desc.EmitOp(bytecode.OpOne)
	case n >= -128 && n <= 127:
		c.desc.EmitOp1(bytecode.OpShortInt, byte(int8(n)))
	default:
		c.desc.EmitOp4(bytecode.OpInt, uint32(int32(n)))
	}
}

// emitDefault assumes a value is on top of the stack; if it is strictly
// undefined, pops it and pushes the evaluated def instead, otherwise leaves
// it untouched. Used for destructuring defaults and parameter defaults.
func (c *Compiler) emitDefault(def ast.Expression) {
	c.desc.EmitOp(bytecode.OpDup)
	c.desc.EmitOp(bytecode.OpUndef)
	c.desc.EmitOp(bytecode.OpStrictEq)
	useOriginal := c.emitJump(bytecode.OpJumpIfFalse)
	c.desc.EmitOp(bytecode.OpPop)
	c.compileExpression(def)
	end := c.emitJump(bytecode.OpJump)
	c.patchJumpHere(useOriginal)
	c.patchJumpHere(end)
}

// emitJump emits a forward jump with a placeholder target, returning its
// offset for a later patchJumpHere call.
func (c *Compiler) emitJump(op bytecode.Opcode) int {
	return c.desc.EmitOp4(op, 0)
}

func (c *Compiler) patchJumpHere(offset int) {
	c.desc.PatchJump(offset, uint32(c.desc.CurrentOffset()))
}

func (c *Compiler) emitJumpTo(op bytecode.Opcode, target int) {
	c.desc.EmitOp4(op, uint32(target))
}

// declareKind returns the DECLARE_{VAR,LET,CONST} opcode for kind; the
// emitted opcode declares the preloaded name with the value on top of the
// stack (TDZ when hoisting, the initializer value otherwise).
func (c *Compiler) declareKind(kind ast.VarKind) bytecode.Opcode {
	switch kind {
	case ast.VarLet:
		return bytecode.OpDeclareLet
	case ast.VarConst:
		return bytecode.OpDeclareConst
	default:
		return bytecode.OpDeclareVar
	}
}
