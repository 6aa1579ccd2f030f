package bytecode

import (
	"fmt"
	"strings"
)

// operandWidth returns the number of operand bytes following op in the
// instruction stream. Opcodes not listed here take no operand.
func operandWidth(op Opcode) int {
	switch op {
	case OpShortInt, OpRegStr1, OpRegInd1, OpStr1:
		return 1
	case OpStr2, OpBigIntC, OpDoubleC, OpRegStr2, OpRegInd2, OpRegBigInt2:
		return 2
	case OpInt, OpStr4, OpRegStr4, OpRegInd4, OpJump, OpLoop, OpGosub,
		OpJumpIfFalse, OpJumpIfTrue, OpIfEqPop, OpIfNullUndef, OpIfNotNullUndef:
		return 4
	default:
		return 0
	}
}

// Disassemble renders d (and recursively its Children) as human-readable
// text, grounded on funxy's `vm/disasm.go` Disassemble/disassembleInstruction
// pair — same per-instruction "offset line mnemonic operand" row shape,
// generalized to this engine's operand-width table instead of a big
// opcode switch.
func Disassemble(d *Descriptor, name string) string {
	var sb strings.Builder
	disassemble(&sb, d, name)
	return sb.String()
}

func disassemble(sb *strings.Builder, d *Descriptor, name string) {
	fmt.Fprintf(sb, "== %s ==\n", name)
	offset := 0
	lastLine := -1
	for offset < len(d.Code) {
		op := Opcode(d.Code[offset])
		line, _ := d.LineForOffset(offset)
		fmt.Fprintf(sb, "%04d ", offset)
		if line == lastLine {
			sb.WriteString("   | ")
		} else {
			fmt.Fprintf(sb, "%4d ", line)
			lastLine = line
		}
		sb.WriteString(op.String())

		width := operandWidth(op)
		switch width {
		case 1:
			fmt.Fprintf(sb, " %d", d.Code[offset+1])
		case 2:
			fmt.Fprintf(sb, " %d", ReadUint16(d.Code, offset+1))
		case 4:
			fmt.Fprintf(sb, " %d", ReadUint32(d.Code, offset+1))
		}
		sb.WriteString("\n")
		offset += 1 + width
	}
	for i, child := range d.Children {
		disassemble(sb, child, fmt.Sprintf("%s/closure%d", name, i))
	}
}
