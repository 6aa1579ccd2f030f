// Package bytecode implements the compiled-function descriptor and opcode
// format of spec.md 4.D: a byte array of opcodes, constant pools, an
// exception-handler table, a line-number table, and the per-function
// metadata the interpreter engine (package vm) needs to run a descriptor.
package bytecode

// Opcode is a single VM instruction, one byte followed by a variable-length
// operand region. Grounded on funxy's `vm/opcodes.go` Opcode-byte-plus-
// OpcodeNames-map convention, generalized from funxy's own opcode set (no
// TDZ, `with`, generators, or classes) to the families spec.md 4.D lists.
type Opcode byte

const (
	// --- Stack shape ---
	OpDup Opcode = iota
	OpDup2
	OpSwap
	OpPop
	OpPopResult // pop into the return register

	// --- Constants ---
	OpUndef
	OpNull
	OpZero
	OpOne
	OpTDZConst // push the TDZ sentinel (used only by the compiler's own bookkeeping, never reaches script)
	OpTrue
	OpFalse
	OpShortInt  // 1-byte signed immediate
	OpInt       // 4-byte signed immediate
	OpStr1      // 1-byte string-pool index
	OpStr2      // 2-byte string-pool index
	OpStr4      // 4-byte string-pool index
	OpBigIntC   // 2-byte BigInt-pool index
	OpDoubleC   // 2-byte float64-pool index (float constants distinct from ints per spec.md Value representation)

	// --- Register preload prefixes ---
	// Each preloads an index/string register consumed by the very next
	// opcode, per spec.md 4.D's REG_* prefix family.
	OpRegStr1
	OpRegStr2
	OpRegStr4
	OpRegInd1
	OpRegInd2
	OpRegInd4
	OpRegBigInt2

	// --- Arithmetic ---
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg
	OpUnPlus

	// --- Bitwise / logical / comparison ---
	OpBAnd
	OpBOr
	OpBXor
	OpBNot
	OpShl
	OpShr
	OpUShr
	OpNot
	OpEq
	OpNe
	OpStrictEq
	OpStrictNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpInstanceOf
	OpIn
	OpTypeOf

	// --- Name ops ---
	OpGetVar
	OpGetVarTDZ // checked read: raises ReferenceError on TDZ/not-found
	OpGetVarTypeof // typeof's read: undefined on not-found, raises ReferenceError on TDZ
	OpSetVar
	OpSetLetInit // clears TDZ (the binding's declaring initializer)
	OpSetLetVar
	OpSetConstVar
	OpDeclareVar
	OpDeclareLet
	OpDeclareConst
	OpDeleteVar

	// --- Property ops ---
	OpGetProp
	OpSetProp
	OpGetElem
	OpSetElem
	OpGetSuperProp
	OpSetSuperProp
	OpDeleteProp
	OpDeleteElem
	OpOptionalChainProp // obj?.prop; pushes undefined rather than throwing on a null/undefined receiver (not emitted by the compiler)

	// --- Scope ops ---
	OpEnterWith
	OpEnterWithConst
	OpLeaveWith
	OpPushBlockScope
	OpPopBlockScope
	OpCopyPerIterScope
	OpSwitchPerIterScope

	// --- Control flow ---
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpIfEqPop // branch and pop
	OpIfNullUndef
	OpIfNotNullUndef
	OpLoop // backward jump

	// --- Calls ---
	OpCall
	OpCallMethod // obj.m(...) call form; binds `this` to obj
	OpCallSpecial // eval/with-sensitive call form
	OpNew
	OpCallSpread
	OpNewSpread
	OpTailCall
	OpCallOnSuper // super.m(...)
	OpReturn

	// --- Iteration (for-in / for-of) ---
	OpGetIterator       // obj -> iterator-state value, per the iterable protocol
	OpGetPropEnumerator // obj -> enumerator-state value walking obj's enumerable keys (own + inherited)
	OpIteratorNext      // iterator-state -> value, done (pops the state; advances it in place)
	OpEnumeratorNext    // enumerator-state -> key, done (pops the state)

	// --- Literal building ---
	OpNewObject
	OpNewArray
	OpArrayHole // extend the array under construction by one hole (sparse array literal element)
	OpArrayAppend
	OpObjectSet
	OpObjectSetComputed
	OpObjectGetter
	OpObjectSetter
	OpSpreadArray // spread an iterable's elements into the array under construction
	OpSpreadObject
	OpSpreadCall // mark a call argument as spread (to be unpacked at the call site)
	OpCreateClosure
	OpInterpConcat // template-literal concatenation

	// --- Exception handling ---
	OpThrow
	OpGosub // invoke a finally block, leaving a return address for RETSUB
	OpRetSub

	// --- Generator / async ---
	OpCreateGenerator
	OpYield
	OpYieldStar
	OpAwait
	OpGeneratorReturn
	OpGeneratorEnd

	// --- Class / private members ---
	OpClassDef
	OpClassStorage // install an instance method/field initializer onto the class under construction
	OpSuperCall
	OpSuperCallSpread
	OpDefaultCtorSuperCall
	OpDefinePrivate
	OpGetPrivate
	OpSetPrivate
	OpCheckBrand

	// --- Special ---
	OpHalt
)

// OpcodeNames maps opcodes to their disassembly mnemonic, grounded on
// funxy's `vm/opcodes.go` OpcodeNames map (same purpose, same shape).
var OpcodeNames = map[Opcode]string{
	OpDup: "DUP", OpDup2: "DUP2", OpSwap: "SWAP", OpPop: "POP", OpPopResult: "POP_RESULT",

	OpUndef: "UNDEF", OpNull: "NULL", OpZero: "ZERO", OpOne: "ONE", OpTDZConst: "TDZ",
	OpTrue: "TRUE", OpFalse: "FALSE", OpShortInt: "SHORT_INT", OpInt: "INT",
	OpStr1: "STR1", OpStr2: "STR2", OpStr4: "STR4", OpBigIntC: "BIGINT_C", OpDoubleC: "DOUBLE_C",

	OpRegStr1: "REG_STR1", OpRegStr2: "REG_STR2", OpRegStr4: "REG_STR4",
	OpRegInd1: "REG_IND1", OpRegInd2: "REG_IND2", OpRegInd4: "REG_IND4",
	OpRegBigInt2: "REG_BIGINT2",

	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpMod: "MOD", OpPow: "POW",
	OpNeg: "NEG", OpUnPlus: "UNPLUS",

	OpBAnd: "BAND", OpBOr: "BOR", OpBXor: "BXOR", OpBNot: "BNOT",
	OpShl: "SHL", OpShr: "SHR", OpUShr: "USHR", OpNot: "NOT",
	OpEq: "EQ", OpNe: "NE", OpStrictEq: "STRICT_EQ", OpStrictNe: "STRICT_NE",
	OpLt: "LT", OpLe: "LE", OpGt: "GT", OpGe: "GE", OpInstanceOf: "INSTANCEOF",
	OpIn: "IN", OpTypeOf: "TYPEOF",

	OpGetVar: "GETVAR", OpGetVarTDZ: "GETVAR_TDZ", OpGetVarTypeof: "GETVAR_TYPEOF", OpSetVar: "SETVAR",
	OpSetLetInit: "SETLETINIT", OpSetLetVar: "SETLETVAR", OpSetConstVar: "SETCONSTVAR",
	OpDeclareVar: "DECLAREVAR", OpDeclareLet: "DECLARELET", OpDeclareConst: "DECLARECONST",
	OpDeleteVar: "DELETEVAR",

	OpGetProp: "GETPROP", OpSetProp: "SETPROP", OpGetElem: "GETELEM", OpSetElem: "SETELEM",
	OpGetSuperProp: "GETSUPERPROP", OpSetSuperProp: "SETSUPERPROP",
	OpDeleteProp: "DELETEPROP", OpDeleteElem: "DELETEELEM",
	OpOptionalChainProp: "OPTIONAL_CHAIN_PROP",

	OpEnterWith: "ENTERWITH", OpEnterWithConst: "ENTERWITH_CONST", OpLeaveWith: "LEAVEWITH",
	OpPushBlockScope: "PUSH_BLOCK_SCOPE", OpPopBlockScope: "POP_BLOCK_SCOPE",
	OpCopyPerIterScope: "COPY_PER_ITER_SCOPE", OpSwitchPerIterScope: "SWITCH_PER_ITER_SCOPE",

	OpJump: "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE", OpJumpIfTrue: "JUMP_IF_TRUE",
	OpIfEqPop: "IFEQ_POP", OpIfNullUndef: "IF_NULL_UNDEF", OpIfNotNullUndef: "IF_NOT_NULL_UNDEF",
	OpLoop: "LOOP",

	OpCall: "CALL", OpCallMethod: "CALL_METHOD", OpCallSpecial: "CALLSPECIAL", OpNew: "NEW",
	OpCallSpread: "CALL_SPREAD", OpNewSpread: "NEW_SPREAD", OpTailCall: "TAIL_CALL",
	OpCallOnSuper: "CALL_ON_SUPER", OpReturn: "RETURN",

	OpGetIterator: "GET_ITERATOR", OpGetPropEnumerator: "GET_PROP_ENUMERATOR",
	OpIteratorNext: "ITERATOR_NEXT", OpEnumeratorNext: "ENUMERATOR_NEXT",

	OpNewObject: "LITERAL_NEW_OBJECT", OpNewArray: "LITERAL_NEW_ARRAY", OpArrayHole: "SPARSE_ARRAYLIT",
	OpArrayAppend: "ARRAY_APPEND", OpObjectSet: "LITERAL_SET", OpObjectSetComputed: "LITERAL_KEY_SET",
	OpObjectGetter: "LITERAL_GETTER", OpObjectSetter: "LITERAL_SETTER",
	OpSpreadArray: "SPREAD", OpSpreadObject: "SPREAD_OBJ", OpSpreadCall: "SPREAD_ARG",
	OpCreateClosure: "CLOSURE", OpInterpConcat: "INTERP_CONCAT",

	OpThrow: "THROW", OpGosub: "GOSUB", OpRetSub: "RETSUB",

	OpCreateGenerator: "GENERATOR", OpYield: "YIELD", OpYieldStar: "YIELD_STAR",
	OpAwait: "AWAIT", OpGeneratorReturn: "GENERATOR_RETURN", OpGeneratorEnd: "GENERATOR_END",

	OpClassDef: "CLASS_DEF", OpClassStorage: "CLASS_STORAGE", OpSuperCall: "SUPER_CALL",
	OpSuperCallSpread: "SUPER_CALL_SPREAD", OpDefaultCtorSuperCall: "DEFAULT_CTOR_SUPER_CALL",
	OpDefinePrivate: "DEFINE_PRIVATE",
	OpGetPrivate: "GET_PRIVATE", OpSetPrivate: "SET_PRIVATE", OpCheckBrand: "CHECK_BRAND",

	OpHalt: "HALT",
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}
