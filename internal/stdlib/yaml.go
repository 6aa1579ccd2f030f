// The global YAML namespace (parse/stringify/readFileSync/writeFileSync),
// grounded on funxy's internal/evaluator/builtins_yaml.go: a thin
// marshal/unmarshal wrapper around gopkg.in/yaml.v3, converting between the
// library's generic interface{} tree and this engine's own value
// representation instead of funxy's Object union.
package stdlib

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

func installYAML(r *runtime.Realm, global *object.Object) {
	ns := object.NewObject(r.ObjectProto)
	method(r, ns, "parse", 1, yamlParse)
	method(r, ns, "stringify", 1, yamlStringify)
	method(r, ns, "readFileSync", 1, yamlReadFileSync)
	method(r, ns, "writeFileSync", 2, yamlWriteFileSync)
	global.DefineRaw(object.StringKey("YAML"), object.DataSlot(object.FromObject(ns), true, false, true))
}

func yamlParse(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	src, err := runtime.ToString(r, arg(args, 0))
	if err != nil {
		return object.Undefined, err
	}
	var data interface{}
	if uerr := yaml.Unmarshal([]byte(src), &data); uerr != nil {
		return object.Undefined, r.NewError("SyntaxError", "YAML parse error: %s", uerr)
	}
	return goToValue(r, data), nil
}

func yamlStringify(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	data, err := valueToGo(r, arg(args, 0), map[*object.Object]bool{})
	if err != nil {
		return object.Undefined, err
	}
	out, merr := yaml.Marshal(data)
	if merr != nil {
		return object.Undefined, r.TypeError("YAML encoding error: %s", merr)
	}
	return object.String(string(out)), nil
}

func yamlReadFileSync(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	path, err := runtime.ToString(r, arg(args, 0))
	if err != nil {
		return object.Undefined, err
	}
	content, rerr := os.ReadFile(path)
	if rerr != nil {
		return object.Undefined, r.NewError("Error", "cannot read file %s: %s", path, rerr)
	}
	var data interface{}
	if uerr := yaml.Unmarshal(content, &data); uerr != nil {
		return object.Undefined, r.NewError("SyntaxError", "YAML parse error: %s", uerr)
	}
	return goToValue(r, data), nil
}

func yamlWriteFileSync(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
	path, err := runtime.ToString(r, arg(args, 0))
	if err != nil {
		return object.Undefined, err
	}
	data, verr := valueToGo(r, arg(args, 1), map[*object.Object]bool{})
	if verr != nil {
		return object.Undefined, verr
	}
	out, merr := yaml.Marshal(data)
	if merr != nil {
		return object.Undefined, r.TypeError("YAML encoding error: %s", merr)
	}
	if werr := os.WriteFile(path, out, 0o644); werr != nil {
		return object.Undefined, r.NewError("Error", "cannot write file %s: %s", path, werr)
	}
	return object.Undefined, nil
}

// valueToGo converts an object.Value into the plain Go interface{} tree
// yaml.Marshal walks, mirroring funxy's objectToGo: arrays become []interface{},
// plain objects become map[string]interface{}, functions/symbols are rejected
// (YAML has no callable node kind), and seen guards against a cyclic object
// graph the same way jsonEncoder's seen set does.
func valueToGo(r *runtime.Realm, v object.Value, seen map[*object.Object]bool) (interface{}, *runtime.EcmaError) {
	if v.IsObject() {
		o := v.AsObject()
		if object.IsCallable(o) {
			return nil, r.TypeError("cannot encode a function as YAML")
		}
		if seen[o] {
			return nil, r.TypeError("cannot encode a circular structure as YAML")
		}
		seen[o] = true
		defer delete(seen, o)

		if boxed, ok := boxedPrimitive(o); ok {
			return valueToGo(r, boxed, seen)
		}
		if o.Kind == object.KindArray {
			out := make([]interface{}, o.ArrayLength)
			for i := uint32(0); i < o.ArrayLength; i++ {
				elem, err := valueToGo(r, o.GetIndex(i), seen)
				if err != nil {
					return nil, err
				}
				out[i] = elem
			}
			return out, nil
		}
		out := make(map[string]interface{})
		for _, key := range o.OwnKeys(false, false) {
			val := runtime.GetProperty(r, v, key)
			goVal, err := valueToGo(r, val, seen)
			if err != nil {
				return nil, err
			}
			out[key.String()] = goVal
		}
		return out, nil
	}
	switch {
	case v.IsUndefined(), v.IsNull():
		return nil, nil
	case v.IsBoolean():
		return v.AsBoolean(), nil
	case v.IsNumber():
		f := v.NumberValue()
		if f == float64(int64(f)) {
			return int64(f), nil
		}
		return f, nil
	case v.IsString():
		return v.AsString(), nil
	case v.IsBigInt():
		return v.AsBigInt().String(), nil
	default:
		return nil, r.TypeError("cannot encode a %s as YAML", v.TypeName())
	}
}

// goToValue is the inverse of valueToGo, converting yaml.v3's decoded tree
// (map[string]interface{} for mappings — yaml.v3, unlike v2, always keys
// mappings by string — []interface{} for sequences, plus the scalar kinds)
// into object.Value, building arrays/objects the same way jsonParser does.
func goToValue(r *runtime.Realm, data interface{}) object.Value {
	switch v := data.(type) {
	case nil:
		return object.Null
	case bool:
		return object.Bool(v)
	case int:
		return object.Float64(float64(v))
	case int64:
		return object.Float64(float64(v))
	case uint64:
		return object.Float64(float64(v))
	case float64:
		return object.Float64(v)
	case string:
		return object.String(v)
	case []interface{}:
		arr := object.NewArray(r.ArrayProto)
		for i, item := range v {
			arr.SetIndex(uint32(i), goToValue(r, item))
		}
		return object.FromObject(arr)
	case map[string]interface{}:
		o := object.NewObject(r.ObjectProto)
		for k, item := range v {
			o.DefineRaw(object.StringKey(k), object.DataSlot(goToValue(r, item), true, true, true))
		}
		return object.FromObject(o)
	case map[interface{}]interface{}:
		o := object.NewObject(r.ObjectProto)
		for k, item := range v {
			o.DefineRaw(object.StringKey(fmt.Sprintf("%v", k)), object.DataSlot(goToValue(r, item), true, true, true))
		}
		return object.FromObject(o)
	default:
		return object.String(fmt.Sprintf("%v", v))
	}
}
