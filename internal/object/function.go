package object

// NewFunction creates a function object. descriptor/scope are stored as
// interface{} (see FunctionData's doc comment); callers in package vm pass
// their own concrete *bytecode.Descriptor and scope.Scope.
func NewFunction(proto *Object, descriptor, scope interface{}, name string, length int) *Object {
	o := NewObjectWithKind(proto, KindFunction, "Function")
	o.Function = &FunctionData{
		Descriptor: descriptor,
		Scope:      scope,
		Name:       name,
		Length:     length,
	}
	return o
}

// NewBoundFunction implements Function.prototype.bind's object, with the
// documented length/name relationship from spec.md 4.B: length is
// max(0, target.length - len(boundArgs)), name is "bound " + target.name.
func NewBoundFunction(proto, target *Object, boundThis Value, boundArgs []Value) *Object {
	o := NewObjectWithKind(proto, KindBoundFunction, "Function")
	o.BoundFunction = &BoundFunctionData{
		Target:    target,
		BoundThis: boundThis,
		BoundArgs: append([]Value(nil), boundArgs...),
	}
	return o
}

func (o *Object) BoundLength() int {
	if o.Kind != KindBoundFunction {
		return 0
	}
	targetLen := FunctionLength(o.BoundFunction.Target)
	n := targetLen - len(o.BoundFunction.BoundArgs)
	if n < 0 {
		return 0
	}
	return n
}

func (o *Object) BoundName() string {
	if o.Kind != KindBoundFunction {
		return ""
	}
	return "bound " + FunctionName(o.BoundFunction.Target)
}

// FunctionLength/FunctionName resolve through bound-function chains so
// Function.prototype.bind composes correctly (binding a bound function).
func FunctionLength(o *Object) int {
	if o == nil {
		return 0
	}
	switch o.Kind {
	case KindFunction:
		return o.Function.Length
	case KindBoundFunction:
		return o.BoundLength()
	default:
		return 0
	}
}

func FunctionName(o *Object) string {
	if o == nil {
		return ""
	}
	switch o.Kind {
	case KindFunction:
		return o.Function.Name
	case KindBoundFunction:
		return o.BoundName()
	default:
		return ""
	}
}

// IsConstructor reports whether o can be used with `new`. Arrow functions
// are never constructors; every other function object is, including
// methods, which are not distinguished from ordinary functions here; a
// bound function is a constructor iff its target is, per spec.md 4.F.
func IsConstructor(o *Object) bool {
	if o == nil {
		return false
	}
	switch o.Kind {
	case KindFunction:
		return !o.Function.IsArrow
	case KindBoundFunction:
		return IsConstructor(o.BoundFunction.Target)
	default:
		return false
	}
}

func IsCallable(o *Object) bool {
	if o == nil {
		return false
	}
	return o.Kind == KindFunction || o.Kind == KindBoundFunction
}

func NewProxy(target, handler *Object) *Object {
	o := NewObjectWithKind(nil, KindProxy, "Proxy")
	o.Proxy = &ProxyData{Target: target, Handler: handler}
	return o
}

func NewNamespace(module interface{}) *Object {
	o := NewObjectWithKind(nil, KindModuleNamespace, "Module")
	o.Namespace = &NamespaceData{Module: module}
	o.PreventExtensions()
	return o
}
