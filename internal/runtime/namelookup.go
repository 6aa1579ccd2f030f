package runtime

import (
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/scope"
)

// LookupName implements spec.md 4.C's name resolution: walk the scope chain
// leaf to root, checking a Block/Call scope's own Bindings map directly and
// a With scope's backing object through ordinary (getter-invoking)
// property lookup, per the package-level split scope.go's doc comment
// describes ("name resolution... lives in package runtime"). found is false
// only when no scope in the chain declares the name at all (a script
// ReferenceError, which the caller raises — this function doesn't raise it
// itself so that GETVAR_TDZ's "undeclared" and "TDZ" cases can be told
// apart by the caller without a second walk).
func LookupName(r *Realm, s scope.Scope, name string) (value object.Value, found bool, err *EcmaError) {
	// `this` is a reserved word, never a declarable binding, so it always
	// resolves through the nearest non-arrow activation rather than a
	// Bindings map probe (spec.md's "arrow-function activation reads this
	// through to the enclosing non-arrow activation"). With no enclosing
	// activation at all (top-level script code), `this` is the global
	// object, matching non-strict top-level `this === globalThis`.
	if name == "this" {
		if act := scope.NearestNonArrowActivation(s); act != nil {
			return act.This, true, nil
		}
		return object.FromObject(r.Global), true, nil
	}
	for cur := s; cur != nil; cur = cur.Parent() {
		switch sc := cur.(type) {
		case *scope.CallScope:
			if b, ok := sc.Activation.Get(name); ok {
				return b.Value, true, nil
			}
		case *scope.BlockScope:
			if b, ok := sc.Get(name); ok {
				return b.Value, true, nil
			}
		case *scope.WithScope:
			has, herr := HasProperty(r, sc.Object, object.StringKey(name))
			if herr != nil {
				return object.Undefined, false, herr
			}
			if has {
				v, gerr := GetPropertyChecked(r, object.FromObject(sc.Object), object.StringKey(name))
				if gerr != nil {
					return object.Undefined, false, gerr
				}
				return v, true, nil
			}
		case *scope.GlobalScope:
			if sc.Object.Has(object.StringKey(name)) {
				v, gerr := GetPropertyChecked(r, object.FromObject(sc.Object), object.StringKey(name))
				if gerr != nil {
					return object.Undefined, false, gerr
				}
				return v, true, nil
			}
		}
	}
	// `arguments` falls back to the lazily built exotic object for the
	// nearest non-arrow activation only once no var/let/const/param binding
	// of that name shadowed it in the walk above, matching spec.md 3's
	// "lazily created; nil until first referenced" Activation.Arguments
	// field and the arrow-reads-through-to-enclosing-activation rule.
	if name == "arguments" {
		if act := scope.NearestNonArrowActivation(s); act != nil {
			if act.Arguments == nil {
				act.Arguments = BuildArgumentsObject(r, act.Args)
			}
			val := object.FromObject(act.Arguments)
			// Install it as a real binding on the owning (non-arrow)
			// activation so a later reassignment (sloppy-mode `arguments =
			// ...`) and any nested arrow's read both go through the normal
			// Bindings-map path instead of re-deriving it each time.
			act.Declare("arguments", false, val)
			return val, true, nil
		}
	}
	return object.Undefined, false, nil
}

// GetVarChecked implements GETVAR_TDZ: like LookupName, but raises
// ReferenceError both for an undeclared name and for one still in its TDZ,
// matching the bytecode opcode's documented "checked read" contract.
func GetVarChecked(r *Realm, s scope.Scope, name string) (object.Value, *EcmaError) {
	v, found, err := LookupName(r, s, name)
	if err != nil {
		return object.Undefined, err
	}
	if !found {
		return object.Undefined, r.ReferenceError("%s is not defined", name)
	}
	if v.IsTDZ() {
		return object.Undefined, r.ReferenceError("Cannot access '%s' before initialization", name)
	}
	return v, nil
}

// GetVarForTypeof implements typeof's identifier-operand read: the inverse
// of GetVarChecked's not-found/TDZ handling. An undeclared name yields
// undefined rather than throwing (typeof is the one place ECMAScript lets
// you probe a name without knowing it exists), while a name still in its
// TDZ still throws ReferenceError — typeof never observes the TDZ sentinel
// as a value.
func GetVarForTypeof(r *Realm, s scope.Scope, name string) (object.Value, *EcmaError) {
	v, found, err := LookupName(r, s, name)
	if err != nil {
		return object.Undefined, err
	}
	if !found {
		return object.Undefined, nil
	}
	if v.IsTDZ() {
		return object.Undefined, r.ReferenceError("Cannot access '%s' before initialization", name)
	}
	return v, nil
}

// AssignName implements SETVAR/SETLETVAR/SETCONSTVAR: find the nearest
// scope declaring name and write through it, raising TypeError for a const
// rebind and ReferenceError for a plain assignment to an undeclared name in
// strict contexts (non-strict sloppy-mode auto-global creation, where
// applicable, is the caller's decision since only the caller knows whether
// the current context is strict — this function just reports "not found").
func AssignName(r *Realm, s scope.Scope, name string, value object.Value) (found bool, err *EcmaError) {
	for cur := s; cur != nil; cur = cur.Parent() {
		switch sc := cur.(type) {
		case *scope.CallScope:
			if b, ok := sc.Activation.Get(name); ok {
				if b.IsConst {
					return true, r.TypeError("Assignment to constant variable.")
				}
				b.Value = value
				return true, nil
			}
		case *scope.BlockScope:
			if b, ok := sc.Get(name); ok {
				if b.IsConst {
					return true, r.TypeError("Assignment to constant variable.")
				}
				b.Value = value
				return true, nil
			}
		case *scope.WithScope:
			has, herr := HasProperty(r, sc.Object, object.StringKey(name))
			if herr != nil {
				return false, herr
			}
			if has {
				if sc.ConstNames != nil && sc.ConstNames[name] {
					return true, r.TypeError("Assignment to constant variable.")
				}
				ok, serr := SetProperty(r, object.FromObject(sc.Object), object.StringKey(name), value)
				if serr != nil {
					return false, serr
				}
				if !ok {
					return true, nil
				}
				return true, nil
			}
		case *scope.GlobalScope:
			if sc.Object.Has(object.StringKey(name)) {
				_, serr := SetProperty(r, object.FromObject(sc.Object), object.StringKey(name), value)
				return true, serr
			}
		}
	}
	return false, nil
}

// DeclareGlobal installs a `var`/function declaration directly on the
// global object, per spec.md 4.C's "GlobalScope is a regular object" rule —
// used by the compiler's top-level DECLAREVAR when the current scope chain
// bottoms out at GlobalScope rather than a CallScope's Activation.
func DeclareGlobal(global *object.Object, name string, value object.Value) {
	if slot := global.GetOwn(object.StringKey(name)); slot != nil {
		if !slot.IsAccessor {
			slot.Value = value
		}
		return
	}
	global.DefineRaw(object.StringKey(name), object.DataSlot(value, true, true, false))
}

// DeclareInScope implements DECLAREVAR/DECLARELET/DECLARECONST: install name
// into whichever scope is currently innermost when the declaration opcode
// runs. Per statements.go's hoistDeclarations (package compiler), `var` is
// deliberately not hoisted to function scope — every declare, `var` included,
// lands in the block or call scope active at the point the compiler emitted
// it, a documented simplification short of full ECMAScript var hoisting. A
// GlobalScope-bottomed chain (top-level script) installs a global object
// property instead of a binding, mirroring DeclareGlobal's shape for `var`
// and extending the same treatment to `let`/`const` since the global object
// is the only backing store GlobalScope has.
func DeclareInScope(s scope.Scope, name string, isConst bool, value object.Value) {
	switch sc := s.(type) {
	case *scope.CallScope:
		sc.Activation.Declare(name, isConst, value)
	case *scope.BlockScope:
		sc.Declare(name, isConst, value)
	case *scope.GlobalScope:
		if slot := sc.Object.GetOwn(object.StringKey(name)); slot != nil {
			if !slot.IsAccessor {
				slot.Value = value
			}
			return
		}
		sc.Object.DefineRaw(object.StringKey(name), object.DataSlot(value, !isConst, true, false))
	case *scope.WithScope:
		DeclareInScope(sc.Parent(), name, isConst, value)
	}
}

// DeleteName implements DELETEVAR: a Call/Block-scoped let/const/var
// binding is never deletable (matching real lexical bindings), only a
// GlobalScope or WithScope's underlying object property can be.
func DeleteName(r *Realm, s scope.Scope, name string) (bool, *EcmaError) {
	for cur := s; cur != nil; cur = cur.Parent() {
		switch sc := cur.(type) {
		case *scope.CallScope:
			if _, ok := sc.Activation.Get(name); ok {
				return false, nil
			}
		case *scope.BlockScope:
			if _, ok := sc.Get(name); ok {
				return false, nil
			}
		case *scope.WithScope:
			has, herr := HasProperty(r, sc.Object, object.StringKey(name))
			if herr != nil {
				return false, herr
			}
			if has {
				return DeleteProperty(r, sc.Object, object.StringKey(name))
			}
		case *scope.GlobalScope:
			if sc.Object.Has(object.StringKey(name)) {
				return DeleteProperty(r, sc.Object, object.StringKey(name))
			}
		}
	}
	return true, nil // deleting an undeclared name is a (no-op) success
}
