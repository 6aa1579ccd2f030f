package bytecode

import "math/big"

// ExceptionHandler is one row of the exception table: the byte-offset range
// [Start,End) it guards, the offset execution resumes at when a throw lands
// inside the range, and whether the handler is a catch or a finally (a try
// with both clauses compiles to two rows: the try body's range targets the
// catch, and the catch body's range targets the finally).
// Grounded on funxy's `vm/chunk.go` ExceptionHandler, generalized with the
// IsFinally flag spec.md 4.D's GOSUB/STARTSUB/RETSUB scheme needs.
type ExceptionHandler struct {
	Start       int
	End         int
	Target      int
	IsFinally   bool
	CatchVarIdx int // index into Descriptor.Locals the caught value binds to, or -1 for no binding
}

// LineEntry maps a byte offset to a source line, run-length encoded (one
// entry per contiguous run of offsets on the same line), grounded on
// funxy's `vm/chunk.go` line-table encoding.
type LineEntry struct {
	StartOffset int
	Line        int
	Column      int
}

// LocalVar describes one slot in a call's activation record, used by the
// debugger and by the compiler's own bookkeeping (not read by the VM, which
// resolves every binding by name through the scope chain).
type LocalVar struct {
	Name     string
	SlotIdx  int
	IsConst  bool
	IsParam  bool
}

// Descriptor is a single compiled function's code object: spec.md 4.D's
// "compiled function descriptor" — bytecode, constant pools, exception
// table, line table, and the handful of fields the calling convention
// needs (parameter count, whether the function is a generator/async/
// arrow/class-constructor, and its captured free-variable names).
// Grounded on funxy's `vm/objects.go` CompiledFunction + `vm/chunk.go` Chunk.
type Descriptor struct {
	Name      string
	ParamCount int
	HasRest    bool // last parameter is a ...rest
	IsGenerator bool
	IsAsync     bool
	IsArrow     bool
	IsClassCtor bool
	IsStrict    bool

	Code []byte // opcode stream

	// Constant pools, indexed by the operand widths STR1/STR2/STR4 etc.
	Strings  []string
	Ints     []int32
	Doubles  []float64
	BigInts  []*big.Int

	Locals     []LocalVar
	Exceptions []ExceptionHandler
	Lines      []LineEntry

	// Children holds nested function descriptors referenced by CLOSURE
	// opcodes, indexed by the operand the CLOSURE instruction carries.
	Children []*Descriptor

	// UpvalueNames lists the free-variable names this descriptor's closures
	// capture from an enclosing activation, in the order CLOSURE operands
	// reference them (mirrors funxy's Chunk.Upvalues design for capture
	// resolution at closure-creation time rather than at every access).
	UpvalueNames []string
}

func NewDescriptor(name string) *Descriptor {
	return &Descriptor{Name: name}
}

// AddString interns s into the string pool, returning its index. Grounded
// on funxy's `Chunk.AddConstant` dedup-on-insert pattern.
func (d *Descriptor) AddString(s string) int {
	for i, existing := range d.Strings {
		if existing == s {
			return i
		}
	}
	d.Strings = append(d.Strings, s)
	return len(d.Strings) - 1
}

func (d *Descriptor) AddInt(i int32) int {
	for idx, existing := range d.Ints {
		if existing == i {
			return idx
		}
	}
	d.Ints = append(d.Ints, i)
	return len(d.Ints) - 1
}

func (d *Descriptor) AddDouble(f float64) int {
	for idx, existing := range d.Doubles {
		if existing == f {
			return idx
		}
	}
	d.Doubles = append(d.Doubles, f)
	return len(d.Doubles) - 1
}

func (d *Descriptor) AddBigInt(b *big.Int) int {
	for idx, existing := range d.BigInts {
		if existing.Cmp(b) == 0 {
			return idx
		}
	}
	d.BigInts = append(d.BigInts, b)
	return len(d.BigInts) - 1
}

func (d *Descriptor) AddChild(child *Descriptor) int {
	d.Children = append(d.Children, child)
	return len(d.Children) - 1
}

// EmitOp appends a single no-operand opcode and returns its offset.
func (d *Descriptor) EmitOp(op Opcode) int {
	offset := len(d.Code)
	d.Code = append(d.Code, byte(op))
	return offset
}

// EmitOp1 appends op followed by a single byte operand.
func (d *Descriptor) EmitOp1(op Opcode, operand byte) int {
	offset := len(d.Code)
	d.Code = append(d.Code, byte(op), operand)
	return offset
}

// EmitOp2 appends op followed by a big-endian 2-byte operand (pool indices,
// short jump offsets).
func (d *Descriptor) EmitOp2(op Opcode, operand uint16) int {
	offset := len(d.Code)
	d.Code = append(d.Code, byte(op), byte(operand>>8), byte(operand))
	return offset
}

// EmitOp4 appends op followed by a big-endian 4-byte operand (wide pool
// indices, wide jump offsets, 32-bit integer immediates).
func (d *Descriptor) EmitOp4(op Opcode, operand uint32) int {
	offset := len(d.Code)
	d.Code = append(d.Code, byte(op),
		byte(operand>>24), byte(operand>>16), byte(operand>>8), byte(operand))
	return offset
}

// PatchJump overwrites the 4-byte operand at offset (which must have been
// emitted by EmitOp4) with target, the standard "emit a placeholder, patch
// once the target is known" forward-jump pattern.
func (d *Descriptor) PatchJump(offset int, target uint32) {
	d.Code[offset+1] = byte(target >> 24)
	d.Code[offset+2] = byte(target >> 16)
	d.Code[offset+3] = byte(target >> 8)
	d.Code[offset+4] = byte(target)
}

func (d *Descriptor) CurrentOffset() int { return len(d.Code) }

// ReadUint16 and ReadUint32 decode operands during dispatch; the VM's
// fetch loop calls these rather than re-deriving the byte math inline.
func ReadUint16(code []byte, pos int) uint16 {
	return uint16(code[pos])<<8 | uint16(code[pos+1])
}

func ReadUint32(code []byte, pos int) uint32 {
	return uint32(code[pos])<<24 | uint32(code[pos+1])<<16 | uint32(code[pos+2])<<8 | uint32(code[pos+3])
}

// LineForOffset looks up the source line for a code offset via the
// run-length-encoded line table, used for stack traces and the debugger.
func (d *Descriptor) LineForOffset(offset int) (line, column int) {
	line, column = 0, 0
	for _, e := range d.Lines {
		if e.StartOffset > offset {
			break
		}
		line, column = e.Line, e.Column
	}
	return line, column
}

// HandlerFor returns the innermost exception handler guarding offset, or
// nil if none applies. Exceptions tables are appended innermost-last by the
// compiler, so scanning in reverse finds the innermost match first.
func (d *Descriptor) HandlerFor(offset int) *ExceptionHandler {
	for i := len(d.Exceptions) - 1; i >= 0; i-- {
		h := &d.Exceptions[i]
		if offset >= h.Start && offset < h.End {
			return h
		}
	}
	return nil
}
