package vm

import (
	"github.com/ecmavm/engine/internal/bytecode"
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
	"github.com/ecmavm/engine/internal/scope"
)

// step fetches and executes exactly one opcode of frame, grounded on
// funxy's vm_exec.go fetch-decode-dispatch switch (same shape: a giant
// switch over the opcode byte, each case doing its own operand reads and
// stack manipulation). done reports that frame itself has completed (via
// OpReturn or OpHalt) and been popped off v.frames; the value it completed
// with is left in both v.finalValue and v.lastReturn (see vm.go's doc
// comment on why two names).
func (v *VM) step(frame *Frame) (done bool, err *runtime.EcmaError) {
	code := frame.desc.Code
	op := bytecode.Opcode(code[frame.ip])
	frame.ip++

	switch op {

	// --- Stack shape ---
	case bytecode.OpDup:
		frame.push(frame.peek(0))
	case bytecode.OpDup2:
		a, b := frame.peek(1), frame.peek(0)
		frame.push(a)
		frame.push(b)
	case bytecode.OpSwap:
		a := frame.pop()
		b := frame.pop()
		frame.push(a)
		frame.push(b)
	case bytecode.OpPop:
		frame.pop()
	case bytecode.OpPopResult:
		frame.lastPopped = frame.pop()

	// --- Constants ---
	case bytecode.OpUndef:
		frame.push(object.Undefined)
	case bytecode.OpNull:
		frame.push(object.Null)
	case bytecode.OpZero:
		frame.push(object.Int32(0))
	case bytecode.OpOne:
		frame.push(object.Int32(1))
	case bytecode.OpTDZConst:
		frame.push(object.TDZ)
	case bytecode.OpTrue:
		frame.push(object.Bool(true))
	case bytecode.OpFalse:
		frame.push(object.Bool(false))
	case bytecode.OpShortInt:
		n := int8(code[frame.ip])
		frame.ip++
		frame.push(object.Int32(int32(n)))
	case bytecode.OpInt:
		n := int32(bytecode.ReadUint32(code, frame.ip))
		frame.ip += 4
		frame.push(object.Int32(n))
	case bytecode.OpStr1:
		idx := int(code[frame.ip])
		frame.ip++
		frame.push(object.String(frame.desc.Strings[idx]))
	case bytecode.OpStr2:
		idx := int(bytecode.ReadUint16(code, frame.ip))
		frame.ip += 2
		frame.push(object.String(frame.desc.Strings[idx]))
	case bytecode.OpStr4:
		idx := int(bytecode.ReadUint32(code, frame.ip))
		frame.ip += 4
		frame.push(object.String(frame.desc.Strings[idx]))
	case bytecode.OpBigIntC:
		idx := int(bytecode.ReadUint16(code, frame.ip))
		frame.ip += 2
		frame.push(object.BigInt(frame.desc.BigInts[idx]))
	case bytecode.OpDoubleC:
		idx := int(bytecode.ReadUint16(code, frame.ip))
		frame.ip += 2
		frame.push(object.Float64(frame.desc.Doubles[idx]))

	// --- Register preload prefixes ---
	case bytecode.OpRegStr1:
		idx := int(code[frame.ip])
		frame.ip++
		frame.reg.hasStr, frame.reg.str = true, frame.desc.Strings[idx]
	case bytecode.OpRegStr2:
		idx := int(bytecode.ReadUint16(code, frame.ip))
		frame.ip += 2
		frame.reg.hasStr, frame.reg.str = true, frame.desc.Strings[idx]
	case bytecode.OpRegStr4:
		idx := int(bytecode.ReadUint32(code, frame.ip))
		frame.ip += 4
		frame.reg.hasStr, frame.reg.str = true, frame.desc.Strings[idx]
	case bytecode.OpRegInd1:
		frame.reg.hasInd, frame.reg.ind = true, int(code[frame.ip])
		frame.ip++
	case bytecode.OpRegInd2:
		frame.reg.hasInd, frame.reg.ind = true, int(bytecode.ReadUint16(code, frame.ip))
		frame.ip += 2
	case bytecode.OpRegInd4:
		frame.reg.hasInd, frame.reg.ind = true, int(bytecode.ReadUint32(code, frame.ip))
		frame.ip += 4
	case bytecode.OpRegBigInt2:
		// Declared but never emitted by the current compiler (constant
		// BigInts always route through OpBigIntC, which pushes directly
		// rather than preloading a register); implemented defensively so a
		// forward-compatible bytecode stream still runs.
		idx := int(bytecode.ReadUint16(code, frame.ip))
		frame.ip += 2
		frame.reg.hasBig, frame.reg.big = true, frame.desc.BigInts[idx]

	// --- Arithmetic ---
	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow,
		bytecode.OpBAnd, bytecode.OpBOr, bytecode.OpBXor, bytecode.OpShl, bytecode.OpShr, bytecode.OpUShr:
		b := frame.pop()
		a := frame.pop()
		res, e := v.binaryArith(op, a, b)
		if e != nil {
			return false, e
		}
		frame.push(res)
	case bytecode.OpNeg:
		a := frame.pop()
		res, e := runtime.Neg(v.realm, a)
		if e != nil {
			return false, e
		}
		frame.push(res)
	case bytecode.OpUnPlus:
		a := frame.pop()
		res, e := runtime.UnaryPlus(v.realm, a)
		if e != nil {
			return false, e
		}
		frame.push(res)
	case bytecode.OpBNot:
		a := frame.pop()
		res, e := runtime.BNot(v.realm, a)
		if e != nil {
			return false, e
		}
		frame.push(res)

	// --- Comparison / logical ---
	case bytecode.OpNot:
		a := frame.pop()
		frame.push(object.Bool(!runtime.ToBoolean(a)))
	case bytecode.OpEq, bytecode.OpNe:
		b := frame.pop()
		a := frame.pop()
		eq, e := runtime.Equals(v.realm, a, b)
		if e != nil {
			return false, e
		}
		if op == bytecode.OpNe {
			eq = !eq
		}
		frame.push(object.Bool(eq))
	case bytecode.OpStrictEq, bytecode.OpStrictNe:
		b := frame.pop()
		a := frame.pop()
		eq := runtime.StrictEquals(a, b)
		if op == bytecode.OpStrictNe {
			eq = !eq
		}
		frame.push(object.Bool(eq))
	case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
		b := frame.pop()
		a := frame.pop()
		res, e := v.compareOp(op, a, b)
		if e != nil {
			return false, e
		}
		frame.push(object.Bool(res))
	case bytecode.OpInstanceOf:
		b := frame.pop()
		a := frame.pop()
		res, e := runtime.InstanceOf(v.realm, a, b)
		if e != nil {
			return false, e
		}
		frame.push(object.Bool(res))
	case bytecode.OpIn:
		obj := frame.pop()
		key := frame.pop()
		res, e := runtime.In(v.realm, key, obj)
		if e != nil {
			return false, e
		}
		frame.push(object.Bool(res))
	case bytecode.OpTypeOf:
		a := frame.pop()
		frame.push(object.String(runtime.TypeOf(a)))

	// --- Name ops ---
	case bytecode.OpGetVar:
		name, _ := frame.takeRegStr()
		val, found, e := runtime.LookupName(v.realm, frame.scope, name)
		if e != nil {
			return false, e
		}
		if !found {
			return false, v.realm.ReferenceError("%s is not defined", name)
		}
		frame.push(val)
	case bytecode.OpGetVarTDZ:
		name, _ := frame.takeRegStr()
		val, e := runtime.GetVarChecked(v.realm, frame.scope, name)
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpGetVarTypeof:
		name, _ := frame.takeRegStr()
		val, e := runtime.GetVarForTypeof(v.realm, frame.scope, name)
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpSetVar, bytecode.OpSetLetVar, bytecode.OpSetConstVar:
		name, _ := frame.takeRegStr()
		val := frame.pop()
		found, e := runtime.AssignName(v.realm, frame.scope, name, val)
		if e != nil {
			return false, e
		}
		if !found {
			if frame.isStrict() {
				return false, v.realm.ReferenceError("%s is not defined", name)
			}
			runtime.DeclareGlobal(v.realm.Global, name, val)
		}
	case bytecode.OpSetLetInit:
		name, _ := frame.takeRegStr()
		val := frame.pop()
		isConst := false
		switch sc := frame.scope.(type) {
		case *scope.BlockScope:
			if b, ok := sc.Get(name); ok {
				isConst = b.IsConst
			}
		case *scope.CallScope:
			if b, ok := sc.Activation.Get(name); ok {
				isConst = b.IsConst
			}
		}
		runtime.DeclareInScope(frame.scope, name, isConst, val)
	case bytecode.OpDeclareVar:
		name, _ := frame.takeRegStr()
		runtime.DeclareInScope(frame.scope, name, false, frame.pop())
	case bytecode.OpDeclareLet:
		name, _ := frame.takeRegStr()
		runtime.DeclareInScope(frame.scope, name, false, frame.pop())
	case bytecode.OpDeclareConst:
		name, _ := frame.takeRegStr()
		runtime.DeclareInScope(frame.scope, name, true, frame.pop())
	case bytecode.OpDeleteVar:
		name, _ := frame.takeRegStr()
		ok, e := runtime.DeleteName(v.realm, frame.scope, name)
		if e != nil {
			return false, e
		}
		frame.push(object.Bool(ok))

	// --- Property ops ---
	case bytecode.OpGetProp:
		name, _ := frame.takeRegStr()
		obj := frame.pop()
		val, e := runtime.GetPropertyChecked(v.realm, obj, object.StringKey(name))
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpSetProp:
		name, _ := frame.takeRegStr()
		val := frame.pop()
		obj := frame.pop()
		ok, e := runtime.SetProperty(v.realm, obj, object.StringKey(name), val)
		if e != nil {
			return false, e
		}
		if !ok && frame.isStrict() {
			return false, v.realm.TypeError("Cannot assign to read only property '%s'", name)
		}
	case bytecode.OpGetElem:
		key := frame.pop()
		obj := frame.pop()
		pk, e := runtime.ToPropertyKey(v.realm, key)
		if e != nil {
			return false, e
		}
		val, e := runtime.GetPropertyChecked(v.realm, obj, pk)
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpSetElem:
		val := frame.pop()
		key := frame.pop()
		obj := frame.pop()
		pk, e := runtime.ToPropertyKey(v.realm, key)
		if e != nil {
			return false, e
		}
		ok, e := runtime.SetProperty(v.realm, obj, pk, val)
		if e != nil {
			return false, e
		}
		if !ok && frame.isStrict() {
			return false, v.realm.TypeError("Cannot assign to read only property '%s'", pk.String())
		}
	case bytecode.OpGetSuperProp:
		name, _ := frame.takeRegStr()
		val, e := v.getSuperProp(frame, object.StringKey(name))
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpSetSuperProp:
		name, _ := frame.takeRegStr()
		val := frame.pop()
		if e := v.setSuperProp(frame, object.StringKey(name), val); e != nil {
			return false, e
		}
	case bytecode.OpDeleteProp:
		name, _ := frame.takeRegStr()
		obj := frame.pop()
		ok, e := deleteKeyOf(v.realm, obj, object.StringKey(name))
		if e != nil {
			return false, e
		}
		frame.push(object.Bool(ok))
	case bytecode.OpDeleteElem:
		key := frame.pop()
		obj := frame.pop()
		pk, e := runtime.ToPropertyKey(v.realm, key)
		if e != nil {
			return false, e
		}
		ok, e := deleteKeyOf(v.realm, obj, pk)
		if e != nil {
			return false, e
		}
		frame.push(object.Bool(ok))
	case bytecode.OpOptionalChainProp:
		// Declared but never emitted (the compiler builds optional chains
		// manually with DUP/IF_NULL_UNDEF/jump lists); implemented as a plain
		// property read that yields undefined instead of throwing on a
		// null/undefined receiver, so a forward-compiled stream using it
		// behaves sensibly rather than panicking the dispatch loop.
		name, _ := frame.takeRegStr()
		obj := frame.pop()
		if obj.IsNullOrUndefined() {
			frame.push(object.Undefined)
		} else {
			val, e := runtime.GetPropertyChecked(v.realm, obj, object.StringKey(name))
			if e != nil {
				return false, e
			}
			frame.push(val)
		}

	// --- Scope ops ---
	case bytecode.OpEnterWith:
		obj := frame.pop()
		o, e := runtime.ToObject(v.realm, obj)
		if e != nil {
			return false, e
		}
		frame.scope = scope.NewWithScope(frame.scope, o)
	case bytecode.OpEnterWithConst:
		// Declared but never emitted; a handful of synthetic with-scopes
		// (catch-pattern destructuring) were planned to use it but the
		// compiler currently builds those via ordinary block scopes instead.
		obj := frame.pop()
		o, e := runtime.ToObject(v.realm, obj)
		if e != nil {
			return false, e
		}
		ws := scope.NewWithScope(frame.scope, o)
		ws.ConstNames = make(map[string]bool)
		for _, k := range o.OwnKeys(false, true) {
			if !k.IsSymbol() {
				ws.ConstNames[k.String()] = true
			}
		}
		frame.scope = ws
	case bytecode.OpLeaveWith:
		frame.scope = frame.scope.Parent()
	case bytecode.OpPushBlockScope:
		frame.scope = scope.NewBlockScope(frame.scope)
	case bytecode.OpPopBlockScope:
		frame.scope = frame.scope.Parent()
	case bytecode.OpCopyPerIterScope:
		if bs, ok := frame.scope.(*scope.BlockScope); ok {
			fresh := scope.NewBlockScope(bs.Parent())
			for _, name := range bs.Order {
				b, _ := bs.Get(name)
				fresh.Declare(name, b.IsConst, b.Value)
			}
			frame.scope = fresh
		}
	case bytecode.OpSwitchPerIterScope:
		// Declared but never emitted (compileSwitch uses a single plain
		// PUSH_BLOCK_SCOPE for the whole statement); behaves identically to
		// COPY_PER_ITER_SCOPE if a future compiler emits it.
		if bs, ok := frame.scope.(*scope.BlockScope); ok {
			fresh := scope.NewBlockScope(bs.Parent())
			for _, name := range bs.Order {
				b, _ := bs.Get(name)
				fresh.Declare(name, b.IsConst, b.Value)
			}
			frame.scope = fresh
		}

	// --- Control flow ---
	case bytecode.OpJump:
		target := bytecode.ReadUint32(code, frame.ip)
		frame.ip = int(target)
	case bytecode.OpJumpIfFalse:
		target := bytecode.ReadUint32(code, frame.ip)
		frame.ip += 4
		if !runtime.ToBoolean(frame.pop()) {
			frame.ip = int(target)
		}
	case bytecode.OpJumpIfTrue:
		target := bytecode.ReadUint32(code, frame.ip)
		frame.ip += 4
		if runtime.ToBoolean(frame.pop()) {
			frame.ip = int(target)
		}
	case bytecode.OpIfEqPop:
		// Declared but never emitted (compileSwitch builds STRICT_EQ +
		// JUMP_IF_TRUE instead); implemented as "pop two, jump if strictly
		// equal" for a forward-compiled stream.
		target := bytecode.ReadUint32(code, frame.ip)
		frame.ip += 4
		b := frame.pop()
		a := frame.pop()
		if runtime.StrictEquals(a, b) {
			frame.ip = int(target)
		}
	case bytecode.OpIfNullUndef:
		target := bytecode.ReadUint32(code, frame.ip)
		frame.ip += 4
		if frame.pop().IsNullOrUndefined() {
			frame.ip = int(target)
		}
	case bytecode.OpIfNotNullUndef:
		target := bytecode.ReadUint32(code, frame.ip)
		frame.ip += 4
		if !frame.pop().IsNullOrUndefined() {
			frame.ip = int(target)
		}
	case bytecode.OpLoop:
		target := bytecode.ReadUint32(code, frame.ip)
		frame.ip = int(target)

	// --- Calls ---
	case bytecode.OpCall, bytecode.OpCallSpecial, bytecode.OpTailCall:
		argc, _ := frame.takeRegInd()
		args := frame.popN(argc)
		fnVal := frame.pop()
		val, e := v.doCall(fnVal, object.Undefined, args)
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpCallMethod:
		argc, _ := frame.takeRegInd()
		args := frame.popN(argc)
		fnVal := frame.pop()
		this := frame.pop()
		val, e := v.doCall(fnVal, this, args)
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpCallSpread:
		argsArray := frame.pop()
		fnVal := frame.pop()
		this := frame.pop()
		args := arrayElements(argsArray)
		val, e := v.doCall(fnVal, this, args)
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpNew:
		argc, _ := frame.takeRegInd()
		args := frame.popN(argc)
		ctor := frame.pop()
		val, e := v.doConstruct(ctor, args)
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpNewSpread:
		argsArray := frame.pop()
		ctor := frame.pop()
		args := arrayElements(argsArray)
		val, e := v.doConstruct(ctor, args)
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpCallOnSuper:
		argc, _ := frame.takeRegInd()
		args := frame.popN(argc)
		fnVal := frame.pop()
		this := frame.activationThis()
		val, e := v.doCall(fnVal, this, args)
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpSuperCall:
		argc, _ := frame.takeRegInd()
		args := frame.popN(argc)
		val, e := v.superCall(frame, args)
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpSuperCallSpread:
		argsArray := frame.pop()
		args := arrayElements(argsArray)
		val, e := v.superCall(frame, args)
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpReturn:
		ret := frame.pop()
		v.finalValue, v.lastReturn = ret, ret
		return true, nil

	// --- Iteration ---
	case bytecode.OpGetIterator:
		val := frame.pop()
		state, e := runtime.GetIterator(v.realm, val)
		if e != nil {
			return false, e
		}
		frame.push(state)
	case bytecode.OpGetPropEnumerator:
		val := frame.pop()
		state, e := runtime.GetPropEnumerator(v.realm, val)
		if e != nil {
			return false, e
		}
		frame.push(state)
	case bytecode.OpIteratorNext:
		state := frame.pop()
		val, isDone, e := runtime.IteratorNext(v.realm, state)
		if e != nil {
			return false, e
		}
		frame.push(val)
		frame.push(object.Bool(isDone))
	case bytecode.OpEnumeratorNext:
		state := frame.pop()
		key, isDone := runtime.EnumeratorNext(state)
		frame.push(key)
		frame.push(object.Bool(isDone))

	// --- Literal building ---
	case bytecode.OpNewObject:
		frame.push(object.FromObject(object.NewObject(v.realm.ObjectProto)))
	case bytecode.OpNewArray:
		frame.push(object.FromObject(object.NewArray(v.realm.ArrayProto)))
	case bytecode.OpArrayHole:
		arr := frame.peek(0).AsObject()
		arr.SetArrayLength(arr.ArrayLength + 1)
	case bytecode.OpArrayAppend:
		val := frame.pop()
		arr := frame.peek(0).AsObject()
		arr.SetIndex(arr.ArrayLength, val)
	case bytecode.OpObjectSet:
		name, _ := frame.takeRegStr()
		val := frame.pop()
		obj := frame.peek(0).AsObject()
		obj.DefineRaw(object.StringKey(name), object.DataSlot(val, true, true, true))
	case bytecode.OpObjectSetComputed:
		val := frame.pop()
		key := frame.pop()
		obj := frame.peek(0).AsObject()
		pk, e := runtime.ToPropertyKey(v.realm, key)
		if e != nil {
			return false, e
		}
		obj.DefineRaw(pk, object.DataSlot(val, true, true, true))
	case bytecode.OpObjectGetter, bytecode.OpObjectSetter:
		getterFn := frame.pop().AsObject()
		obj := frame.peek(0).AsObject()
		var pk object.PropertyKey
		if name, ok := frame.takeRegStr(); ok {
			pk = object.StringKey(name)
		} else {
			var e *runtime.EcmaError
			pk, e = runtime.ToPropertyKey(v.realm, frame.pop())
			if e != nil {
				return false, e
			}
		}
		mergeAccessor(obj, pk, op == bytecode.OpObjectGetter, getterFn)
	case bytecode.OpSpreadArray:
		iterable := frame.pop()
		arr := frame.peek(0).AsObject()
		if e := spreadIntoArray(v.realm, arr, iterable); e != nil {
			return false, e
		}
	case bytecode.OpSpreadObject:
		src := frame.pop()
		obj := frame.peek(0).AsObject()
		if src.IsObject() {
			so := src.AsObject()
			for _, k := range so.OwnKeys(false, true) {
				val, e := runtime.GetPropertyChecked(v.realm, src, k)
				if e != nil {
					return false, e
				}
				obj.DefineRaw(k, object.DataSlot(val, true, true, true))
			}
		}
	case bytecode.OpSpreadCall:
		// Declared but never emitted (array-literal spread uses SPREAD
		// directly; call-argument spread is handled at the compiler level by
		// routing the whole call through CALL_SPREAD instead of marking
		// individual arguments). No-op placeholder for a forward stream.
	case bytecode.OpCreateClosure:
		idx, _ := frame.takeRegInd()
		frame.push(v.createClosure(frame, idx))
	case bytecode.OpInterpConcat:
		count, _ := frame.takeRegInd()
		parts := frame.popN(count)
		out := ""
		for _, p := range parts {
			s, e := runtime.ToString(v.realm, p)
			if e != nil {
				return false, e
			}
			out += s
		}
		frame.push(object.String(out))

	// --- Exception handling ---
	case bytecode.OpThrow:
		thrown := frame.pop()
		return false, &runtime.EcmaError{Value: thrown}
	case bytecode.OpGosub:
		target := bytecode.ReadUint32(code, frame.ip)
		frame.ip += 4
		frame.subStack = append(frame.subStack, subEntry{returnTo: frame.ip})
		frame.ip = int(target)
	case bytecode.OpRetSub:
		n := len(frame.subStack)
		entry := frame.subStack[n-1]
		frame.subStack = frame.subStack[:n-1]
		if entry.isThrow {
			return false, &runtime.EcmaError{Value: entry.thrown}
		}
		frame.ip = entry.returnTo

	// --- Generator / async ---
	case bytecode.OpCreateGenerator:
		// The generator object itself is built by Call (calls.go) before the
		// body frame ever runs; reaching this opcode mid-body (a generator
		// function's own prologue marker) is a no-op under this design.
	case bytecode.OpYield:
		val := frame.pop()
		resumed, e := v.doYield(frame, val, false)
		if e != nil {
			return false, e
		}
		frame.push(resumed)
	case bytecode.OpYieldStar:
		iterable := frame.pop()
		resumed, e := v.doYieldStar(frame, iterable)
		if e != nil {
			return false, e
		}
		frame.push(resumed)
	case bytecode.OpAwait:
		val := frame.pop()
		resolved, e := v.doAwait(val)
		if e != nil {
			return false, e
		}
		frame.push(resolved)
	case bytecode.OpGeneratorReturn:
		ret := frame.pop()
		v.finalValue, v.lastReturn = ret, ret
		return true, nil
	case bytecode.OpGeneratorEnd:
		v.finalValue, v.lastReturn = object.Undefined, object.Undefined
		return true, nil

	// --- Class / private members ---
	case bytecode.OpClassDef:
		name, _ := frame.takeRegStr()
		ctor := frame.pop()
		super := frame.pop()
		val, e := v.classDef(frame, name, super, ctor)
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpClassStorage:
		if e := v.classStorage(frame); e != nil {
			return false, e
		}
	case bytecode.OpDefaultCtorSuperCall:
		// Declared but never emitted (a synthesized default derived
		// constructor instead compiles an explicit `super(...args)` body);
		// implemented as the equivalent of SUPER_CALL with a spread of the
		// current activation's own arguments.
		val, e := v.superCall(frame, frame.activation.Args)
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpDefinePrivate:
		name, _ := frame.takeRegStr()
		val := frame.pop()
		obj := frame.peek(0)
		if e := v.definePrivate(frame, obj, name, val); e != nil {
			return false, e
		}
	case bytecode.OpGetPrivate:
		name, _ := frame.takeRegStr()
		obj := frame.pop()
		pn, e := v.resolvePrivateName(frame, name)
		if e != nil {
			return false, e
		}
		val, e := runtime.GetPrivate(v.realm, obj, pn)
		if e != nil {
			return false, e
		}
		frame.push(val)
	case bytecode.OpSetPrivate:
		name, _ := frame.takeRegStr()
		val := frame.pop()
		obj := frame.pop()
		pn, e := v.resolvePrivateName(frame, name)
		if e != nil {
			return false, e
		}
		if e := runtime.SetPrivate(v.realm, obj, pn, val); e != nil {
			return false, e
		}
	case bytecode.OpCheckBrand:
		name, _ := frame.takeRegStr()
		obj := frame.peek(0)
		pn, e := v.resolvePrivateName(frame, name)
		if e != nil {
			return false, e
		}
		if e := runtime.CheckBrand(v.realm, obj, pn); e != nil {
			return false, e
		}

	// --- Special ---
	case bytecode.OpHalt:
		ret := object.Undefined
		if len(frame.stack) > 0 {
			ret = frame.peek(0)
		}
		v.finalValue, v.lastReturn = ret, ret
		return true, nil

	default:
		return false, v.realm.NewError("SyntaxError", "unsupported opcode %v", op)
	}

	return false, nil
}

// binaryArith dispatches the arithmetic/bitwise opcodes sharing the
// "pop right, pop left, push one result" stack contract onto their
// internal/runtime counterparts.
func (v *VM) binaryArith(op bytecode.Opcode, a, b object.Value) (object.Value, *runtime.EcmaError) {
	switch op {
	case bytecode.OpAdd:
		return runtime.Add(v.realm, a, b)
	case bytecode.OpSub:
		return runtime.Sub(v.realm, a, b)
	case bytecode.OpMul:
		return runtime.Mul(v.realm, a, b)
	case bytecode.OpDiv:
		return runtime.Div(v.realm, a, b)
	case bytecode.OpMod:
		return runtime.Mod(v.realm, a, b)
	case bytecode.OpPow:
		return runtime.Pow(v.realm, a, b)
	case bytecode.OpBAnd:
		return runtime.BAnd(v.realm, a, b)
	case bytecode.OpBOr:
		return runtime.BOr(v.realm, a, b)
	case bytecode.OpBXor:
		return runtime.BXor(v.realm, a, b)
	case bytecode.OpShl:
		return runtime.Shl(v.realm, a, b)
	case bytecode.OpShr:
		return runtime.Shr(v.realm, a, b)
	case bytecode.OpUShr:
		return runtime.UShr(v.realm, a, b)
	}
	return object.Undefined, v.realm.TypeError("unsupported binary operator")
}

func (v *VM) compareOp(op bytecode.Opcode, a, b object.Value) (bool, *runtime.EcmaError) {
	switch op {
	case bytecode.OpLt:
		return runtime.LessThan(v.realm, a, b)
	case bytecode.OpLe:
		return runtime.LessOrEqual(v.realm, a, b)
	case bytecode.OpGt:
		return runtime.GreaterThan(v.realm, a, b)
	case bytecode.OpGe:
		return runtime.GreaterOrEqual(v.realm, a, b)
	}
	return false, v.realm.TypeError("unsupported comparison operator")
}

func deleteKeyOf(r *runtime.Realm, recv object.Value, key object.PropertyKey) (bool, *runtime.EcmaError) {
	if !recv.IsObject() {
		return true, nil
	}
	return runtime.DeleteProperty(r, recv.AsObject(), key)
}

// arrayElements reads a real Array's indexed elements into a plain slice,
// for the spread-call/spread-new/spread-super-call opcodes, which all
// receive an already-built array from compileArgsArray (package compiler).
func arrayElements(v object.Value) []object.Value {
	if !v.IsObject() {
		return nil
	}
	o := v.AsObject()
	n := int(o.ArrayLength)
	out := make([]object.Value, n)
	for i := 0; i < n; i++ {
		out[i] = o.GetIndex(uint32(i))
	}
	return out
}

func mergeAccessor(obj *object.Object, key object.PropertyKey, isGetter bool, fn *object.Object) {
	existing := obj.GetOwn(key)
	get, set := (*object.Object)(nil), (*object.Object)(nil)
	if existing != nil && existing.IsAccessor {
		get, set = existing.Get, existing.Set
	}
	if isGetter {
		get = fn
	} else {
		set = fn
	}
	obj.DefineRaw(key, object.AccessorSlot(get, set, true, true))
}

// spreadIntoArray drains an iterable into arr starting at its current
// length, per the array-literal `...expr` element (compileArgsArray /
// destructure.go's array-rest share this same SPREAD opcode semantics).
func spreadIntoArray(r *runtime.Realm, arr *object.Object, iterable object.Value) *runtime.EcmaError {
	state, err := runtime.GetIterator(r, iterable)
	if err != nil {
		return err
	}
	for {
		val, isDone, err := runtime.IteratorNext(r, state)
		if err != nil {
			return err
		}
		if isDone {
			return nil
		}
		arr.SetIndex(arr.ArrayLength, val)
	}
}
