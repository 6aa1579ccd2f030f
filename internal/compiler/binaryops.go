package compiler

import (
	"github.com/ecmavm/engine/internal/ast"
	"github.com/ecmavm/engine/internal/bytecode"
)

// emitBinaryOp emits the single opcode for a BinaryExpression operator,
// assuming both operands are already on the stack.
func (c *Compiler) emitBinaryOp(op ast.BinaryOp) {
	var opcode bytecode.Opcode
	switch op {
	case ast.BinAdd:
		opcode = bytecode.OpAdd
	case ast.BinSub:
		opcode = bytecode.OpSub
	case ast.BinMul:
		opcode = bytecode.OpMul
	case ast.BinDiv:
		opcode = bytecode.OpDiv
	case ast.BinMod:
		opcode = bytecode.OpMod
	case ast.BinPow:
		opcode = bytecode.OpPow
	case ast.BinEq:
		opcode = bytecode.OpEq
	case ast.BinNeq:
		opcode = bytecode.OpNe
	case ast.BinStrictEq:
		opcode = bytecode.OpStrictEq
	case ast.BinStrictNeq:
		opcode = bytecode.OpStrictNe
	case ast.BinLt:
		opcode = bytecode.OpLt
	case ast.BinGt:
		opcode = bytecode.OpGt
	case ast.BinLe:
		opcode = bytecode.OpLe
	case ast.BinGe:
		opcode = bytecode.OpGe
	case ast.BinBAnd:
		opcode = bytecode.OpBAnd
	case ast.BinBOr:
		opcode = bytecode.OpBOr
	case ast.BinBXor:
		opcode = bytecode.OpBXor
	case ast.BinShl:
		opcode = bytecode.OpShl
	case ast.BinShr:
		opcode = bytecode.OpShr
	case ast.BinUShr:
		opcode = bytecode.OpUShr
	case ast.BinInstanceof:
		opcode = bytecode.OpInstanceOf
	case ast.BinIn:
		opcode = bytecode.OpIn
	default:
		c.errorf("unknown binary operator %v", op)
		return
	}
	c.desc.EmitOp(opcode)
}

// compoundOps maps a compound-assignment operator's surface spelling to the
// BinaryOp it applies; logical-assignment forms (&&=, ||=, ??=) short-circuit
// and are handled separately in compileLogicalAssign.
var compoundOps = map[string]ast.BinaryOp{
	"+=":   ast.BinAdd,
	"-=":   ast.BinSub,
	"*=":   ast.BinMul,
	"/=":   ast.BinDiv,
	"%=":   ast.BinMod,
	"**=":  ast.BinPow,
	"<<=":  ast.BinShl,
	">>=":  ast.BinShr,
	">>>=": ast.BinUShr,
	"&=":   ast.BinBAnd,
	"|=":   ast.BinBOr,
	"^=":   ast.BinBXor,
}
