package stdlib

import (
	"strings"

	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/regexpproxy"
	"github.com/ecmavm/engine/internal/runtime"
)

// sharedRegexProxy backs every RegExp object's compiled-pattern cache,
// process-wide per spec.md 5's "the regex proxy is process-wide and must
// be concurrency-safe for read-mostly workloads" shared-resource policy —
// package regexpproxy.Proxy is itself mutex-guarded for exactly this.
var sharedRegexProxy = regexpproxy.NewProxy()

type regexData struct {
	handle *regexpproxy.Handle
}

func regexHandle(v object.Value) (*regexpproxy.Handle, bool) {
	if !v.IsObject() {
		return nil, false
	}
	o := v.AsObject()
	if o.Kind != object.KindRegExp {
		return nil, false
	}
	rd, ok := o.Extra.(*regexData)
	if !ok {
		return nil, false
	}
	return rd.handle, true
}

func lastIndexOf(o *object.Object) int {
	slot, _ := o.Lookup(object.StringKey("lastIndex"))
	if slot == nil {
		return 0
	}
	return int(slot.Value.NumberValue())
}

func setLastIndex(o *object.Object, n int) {
	o.DefineRaw(object.StringKey("lastIndex"), object.DataSlot(object.Int32(int32(n)), true, false, false))
}

// newRegExpObject compiles source/flags via the shared proxy and builds the
// script-visible RegExp object, per spec.md 6's wrapRegExp(compiled) →
// object contract.
func newRegExpObject(r *runtime.Realm, source, flags string) (*object.Object, *runtime.EcmaError) {
	h, err := sharedRegexProxy.Compile(source, flags)
	if err != nil {
		return nil, r.SyntaxError("%s", err.Error())
	}
	o := object.NewObjectWithKind(r.RegExpProto, object.KindRegExp, "RegExp")
	o.Extra = &regexData{handle: h}
	o.DefineRaw(object.StringKey("source"), object.DataSlot(object.String(source), false, false, false))
	o.DefineRaw(object.StringKey("flags"), object.DataSlot(object.String(flags), false, false, false))
	o.DefineRaw(object.StringKey("global"), object.DataSlot(object.Bool(h.Flags.Global), false, false, false))
	o.DefineRaw(object.StringKey("ignoreCase"), object.DataSlot(object.Bool(h.Flags.IgnoreCase), false, false, false))
	o.DefineRaw(object.StringKey("multiline"), object.DataSlot(object.Bool(h.Flags.Multiline), false, false, false))
	o.DefineRaw(object.StringKey("dotAll"), object.DataSlot(object.Bool(h.Flags.DotAll), false, false, false))
	o.DefineRaw(object.StringKey("unicode"), object.DataSlot(object.Bool(h.Flags.Unicode), false, false, false))
	o.DefineRaw(object.StringKey("sticky"), object.DataSlot(object.Bool(h.Flags.Sticky), false, false, false))
	setLastIndex(o, 0)
	return o, nil
}

// execMatch runs handle against s starting at the given rune offset,
// building the script-visible match array (index 0 is the whole match,
// following indices are capture groups; `index`/`input` own properties are
// attached per spec.md 4.B's exec() return shape) or returning object.Null
// on no match.
func execMatch(r *runtime.Realm, h *regexpproxy.Handle, s string, start int) object.Value {
	m, ok := sharedRegexProxy.Exec(h, s, start)
	if !ok {
		return object.Null
	}
	arr := object.NewArray(r.ArrayProto)
	groups := object.NewObject(nil)
	hasNamed := false
	for i, g := range m.Groups {
		var v object.Value
		if g.Found {
			v = object.String(g.Value)
		} else {
			v = object.Undefined
		}
		arr.DefineRaw(object.IndexKey(uint32(i)), object.DataSlot(v, true, true, true))
		if g.Name != "" {
			hasNamed = true
			groups.DefineRaw(object.StringKey(g.Name), object.DataSlot(v, true, true, true))
		}
	}
	arr.DefineRaw(object.StringKey("index"), object.DataSlot(object.Int32(int32(m.Index)), true, true, true))
	arr.DefineRaw(object.StringKey("input"), object.DataSlot(object.String(s), true, true, true))
	if hasNamed {
		arr.DefineRaw(object.StringKey("groups"), object.DataSlot(object.FromObject(groups), true, true, true))
	} else {
		arr.DefineRaw(object.StringKey("groups"), object.DataSlot(object.Undefined, true, true, true))
	}
	return object.FromObject(arr)
}

// installRegExpProto implements RegExp.prototype.exec/test/toString, the
// method pair String.prototype.match/search/replace (string.go) delegate
// to. exec/test both advance lastIndex themselves for /g and /y regexes,
// per spec.md 6's exec(handle, input, index, lastIndexOut) contract —
// lastIndexOut here is simply writing the RegExp object's own lastIndex
// property back.
func installRegExpProto(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "exec", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		if !this.IsObject() {
			return object.Undefined, rt.TypeError("RegExp.prototype.exec called on incompatible receiver")
		}
		o := this.AsObject()
		h, ok := regexHandle(this)
		if !ok {
			return object.Undefined, rt.TypeError("RegExp.prototype.exec called on incompatible receiver")
		}
		s, serr := runtime.ToString(rt, arg(args, 0))
		if serr != nil {
			return object.Undefined, serr
		}
		start := 0
		if h.Flags.Global || h.Flags.Sticky {
			start = lastIndexOf(o)
		}
		if start > len([]rune(s)) {
			setLastIndex(o, 0)
			return object.Null, nil
		}
		result := execMatch(rt, h, s, start)
		if h.Flags.Global || h.Flags.Sticky {
			if result.IsNull() {
				setLastIndex(o, 0)
			} else {
				matchStr := result.AsObject().GetOwn(object.IndexKey(0)).Value.AsString()
				idxSlot := result.AsObject().GetOwn(object.StringKey("index"))
				setLastIndex(o, int(idxSlot.Value.NumberValue())+len([]rune(matchStr)))
			}
		}
		return result, nil
	})
	method(r, proto, "test", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		execFn := runtime.GetProperty(rt, this, object.StringKey("exec"))
		if !execFn.IsObject() {
			return object.Bool(false), nil
		}
		result, err := rt.Invoker.Call(execFn.AsObject(), this, args)
		if err != nil {
			return object.Undefined, err
		}
		return object.Bool(!result.IsNull()), nil
	})
	method(r, proto, "toString", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		h, ok := regexHandle(this)
		if !ok {
			return object.String("/(?:)/"), nil
		}
		return object.String("/" + h.Source + "/" + h.Flags.Source), nil
	})
}

// installRegExpConstructor builds the global RegExp function: the
// bytecode compiler's regex-literal codegen (compileRegexLiteral) emits
// `new RegExp(pattern, flags)` directly, so this is load-bearing for every
// /pattern/flags literal in a compiled script, not just explicit
// `new RegExp(...)` calls.
func installRegExpConstructor(r *runtime.Realm, global *object.Object) {
	call := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		pattern := ""
		flags := ""
		if len(args) > 0 {
			if h, ok := regexHandle(args[0]); ok {
				pattern = h.Source
				flags = h.Flags.Source
			} else if !args[0].IsUndefined() {
				s, err := runtime.ToString(rt, args[0])
				if err != nil {
					return object.Undefined, err
				}
				pattern = s
			}
		}
		if len(args) > 1 && !args[1].IsUndefined() {
			s, err := runtime.ToString(rt, args[1])
			if err != nil {
				return object.Undefined, err
			}
			flags = s
		}
		o, err := newRegExpObject(rt, pattern, flags)
		if err != nil {
			return object.Undefined, err
		}
		return object.FromObject(o), nil
	}
	ctor := newConstructor(r, "RegExp", 2, call, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return call(rt, this, args)
	}, r.RegExpProto)
	global.DefineRaw(object.StringKey("RegExp"), object.DataSlot(object.FromObject(ctor), true, false, true))
}

// regexEscape is a small helper string.go's split(regex) path uses to
// render a literal separator the same way a RegExp source is rendered,
// avoiding importing regexp-quoting logic twice.
func regexEscape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
