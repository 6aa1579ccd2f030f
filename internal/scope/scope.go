// Package scope implements the four lexical scope kinds of spec.md 4.C:
// global, activation (Call), With, and Block. Each kind cooperates through
// a parent-link chain, leaf to root; name resolution itself (which must
// invoke getters when walking through a With scope) lives in package
// runtime, since package scope stays call-free like package object — see
// object.go's doc comment on the same split.
package scope

import "github.com/ecmavm/engine/internal/object"

type Kind uint8

const (
	KindGlobal Kind = iota
	KindCall
	KindWith
	KindBlock
)

// Scope is implemented by GlobalScope, CallScope, WithScope, and BlockScope.
type Scope interface {
	Kind() Kind
	Parent() Scope
}

// Binding is a single name's storage slot inside a Call or Block scope.
// Value may be object.TDZ for an uninitialized let/const; IsConst rejects a
// second SetConst call (spec.md 4.F's setConst).
type Binding struct {
	Value   object.Value
	IsConst bool
}

// GlobalScope is backed directly by the global object: unqualified name
// resolution against it is ordinary property lookup (spec.md 4.C: "a
// regular object; name resolution returns NOT_FOUND -> reference error").
type GlobalScope struct {
	Object *object.Object
}

func NewGlobalScope(global *object.Object) *GlobalScope {
	return &GlobalScope{Object: global}
}

func (s *GlobalScope) Kind() Kind     { return KindGlobal }
func (s *GlobalScope) Parent() Scope  { return nil }

// CallScope wraps a single function invocation's Activation. It does not
// participate in the prototype chain: binding lookup is a direct map probe,
// never a Has/Get walk through a prototype.
type CallScope struct {
	parent     Scope
	Activation *Activation
}

func NewCallScope(parent Scope, act *Activation) *CallScope {
	return &CallScope{parent: parent, Activation: act}
}

func (s *CallScope) Kind() Kind    { return KindCall }
func (s *CallScope) Parent() Scope { return s.parent }

// Activation is the per-invocation record spec.md 3 describes: function
// reference, original argument vector, parameter bindings, declared vars,
// parent activation pointer, strict flag, arrow flag, and a lazily built
// `arguments` object.
type Activation struct {
	Function   *object.Object
	Args       []object.Value
	This       object.Value
	Bindings   map[string]*Binding
	Order      []string // declaration order, for consistent disassembly/debug output
	Parent     *Activation
	Strict     bool
	IsArrow    bool
	SuperBase  *object.Object // home object's prototype, for super property lookups
	NewTarget  object.Value   // the [[NewTarget]] passed to a constructor call
	Arguments  *object.Object // lazily created; nil until first referenced
	SuperCalled bool          // derived-constructor bookkeeping (spec.md 4.F class machinery)
}

func NewActivation(fn *object.Object, args []object.Value, this object.Value, strict, isArrow bool, parent *Activation) *Activation {
	return &Activation{
		Function: fn,
		Args:     args,
		This:     this,
		Bindings: make(map[string]*Binding),
		Strict:   strict,
		IsArrow:  isArrow,
		Parent:   parent,
	}
}

// Declare installs a new binding (replacing any existing one of the same
// name) with the given const flag and initial value; a let/const binding
// is declared with object.TDZ until its initializer runs.
func (a *Activation) Declare(name string, isConst bool, initial object.Value) {
	if _, exists := a.Bindings[name]; !exists {
		a.Order = append(a.Order, name)
	}
	a.Bindings[name] = &Binding{Value: initial, IsConst: isConst}
}

func (a *Activation) Get(name string) (*Binding, bool) {
	b, ok := a.Bindings[name]
	return b, ok
}

// WithScope's prototype is the with-object; resolution reads through
// standard property lookup (including getters) rather than a direct own-
// property probe, per spec.md 4.C. ConstNames marks names ENTERWITH_CONST
// installs as read-only for the duration of the with-block; the compiler
// never emits ENTERWITH_CONST, so ConstNames stays nil in practice.
type WithScope struct {
	parent     Scope
	Object     *object.Object
	ConstNames map[string]bool
}

func NewWithScope(parent Scope, obj *object.Object) *WithScope {
	return &WithScope{parent: parent, Object: obj}
}

func (s *WithScope) Kind() Kind    { return KindWith }
func (s *WithScope) Parent() Scope { return s.parent }

// BlockScope holds `let`/`const` bindings for a single block. Initialized
// entries start as object.TDZ until their declaration statement runs.
type BlockScope struct {
	parent   Scope
	Bindings map[string]*Binding
	Order    []string
}

func NewBlockScope(parent Scope) *BlockScope {
	return &BlockScope{parent: parent, Bindings: make(map[string]*Binding)}
}

func (s *BlockScope) Kind() Kind    { return KindBlock }
func (s *BlockScope) Parent() Scope { return s.parent }

func (s *BlockScope) Declare(name string, isConst bool, initial object.Value) {
	if _, exists := s.Bindings[name]; !exists {
		s.Order = append(s.Order, name)
	}
	s.Bindings[name] = &Binding{Value: initial, IsConst: isConst}
}

func (s *BlockScope) Get(name string) (*Binding, bool) {
	b, ok := s.Bindings[name]
	return b, ok
}

// NearestActivation walks up from s to the innermost enclosing CallScope,
// used to resolve `this`/`arguments` for arrow functions (which capture
// their lexical scope but must read through to the nearest non-arrow
// activation for both).
func NearestActivation(s Scope) *Activation {
	for cur := s; cur != nil; cur = cur.Parent() {
		if cs, ok := cur.(*CallScope); ok {
			return cs.Activation
		}
	}
	return nil
}

// NearestNonArrowActivation walks up to the nearest Call scope whose
// Activation is not itself an arrow, per spec.md 4.C's `this` selection
// rule for arrow functions.
func NearestNonArrowActivation(s Scope) *Activation {
	for cur := s; cur != nil; cur = cur.Parent() {
		if cs, ok := cur.(*CallScope); ok && !cs.Activation.IsArrow {
			return cs.Activation
		}
	}
	return nil
}
