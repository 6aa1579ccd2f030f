package object

// Kind is the tagged-variant discriminator over built-in object kinds, per
// spec.md 9's design note ("model as a tagged variant over object kinds...
// no language-level inheritance needed"). Every specialized operation
// (array length truncation, bound-function call forwarding, proxy trap
// dispatch, ...) switches on Kind rather than using a Go type assertion
// chain or an embedded-interface hierarchy.
type Kind uint8

const (
	KindPlain Kind = iota
	KindArray
	KindFunction
	KindBoundFunction
	KindProxy
	KindModuleNamespace
	KindError
	KindPromise
	KindGenerator
	KindRegExp
	KindMap
	KindSet
	KindWeakMap
	KindWeakSet
	KindArrayBuffer
	KindTypedArray
	KindDate
	KindArguments
)

// Object is the single representation for every object kind the engine
// produces. Kind-specific state lives in the typed fields below (only the
// fields relevant to Kind are populated); this keeps the property-map
// machinery (Get/Put/Delete/OwnKeys/...) identical across every kind, with
// Kind-specific behavior layered on top in package runtime/vm rather than
// via separate Go types per kind.
type Object struct {
	props      *PropertyMap
	proto      *Object
	extensible bool

	Kind      Kind
	ClassName string // script-visible [[Class]] tag, e.g. "Object", "Array", "Function"

	// Kind-specific internal slots. Only the ones matching Kind are valid;
	// see the Kind constant's package-level doc comment for which.
	ArrayLength uint32 // KindArray

	Function       *FunctionData       // KindFunction
	BoundFunction  *BoundFunctionData  // KindBoundFunction
	Proxy          *ProxyData          // KindProxy
	Namespace      *NamespaceData      // KindModuleNamespace
	ErrorData      *ErrorData          // KindError
	Collection     *CollectionData     // KindMap, KindSet, KindWeakMap, KindWeakSet
	Buffer         *BufferData         // KindArrayBuffer
	TypedArrayView *TypedArrayData     // KindTypedArray
	DateValue      float64             // KindDate, milliseconds since epoch (NaN if invalid)

	// Opaque per-kind payloads owned by a higher layer that object can't
	// import without a cycle (generator suspended frames live in package
	// vm; module records live in package modules). Stored as interface{}
	// and type-asserted by the owning package; object itself never reads
	// these fields.
	Extra interface{}

	// Associated is the non-enumerable internal hashtable spec.md 3
	// describes ("used for private fields, cached captures, and per-object
	// annotations"). Keys are arbitrary comparable tokens — private-field
	// brand checks key by a *PrivateName pointer (see runtime/private.go).
	Associated map[interface{}]Value
}

func NewObject(proto *Object) *Object {
	return &Object{
		props:      NewPropertyMap(),
		proto:      proto,
		extensible: true,
		Kind:       KindPlain,
		ClassName:  "Object",
	}
}

func NewObjectWithKind(proto *Object, kind Kind, className string) *Object {
	o := NewObject(proto)
	o.Kind = kind
	o.ClassName = className
	return o
}

func (o *Object) GetPrototype() *Object { return o.proto }

// SetPrototype installs p as o's prototype, enforcing Testable Property 3
// (acyclicity) and that a non-extensible object's prototype is immutable.
// Returns false (not an error) on rejection, matching the
// object/property-model layer's call-free contract from spec.md 9 — the
// caller (runtime.SetPrototypeOf) is responsible for raising the TypeError.
func (o *Object) SetPrototype(p *Object) bool {
	if !o.extensible {
		return p == o.proto
	}
	for cur := p; cur != nil; cur = cur.proto {
		if cur == o {
			return false
		}
	}
	o.proto = p
	return true
}

func (o *Object) IsExtensible() bool { return o.extensible }

func (o *Object) PreventExtensions() { o.extensible = false }

// GetOwn returns the own slot for key without walking the prototype chain.
func (o *Object) GetOwn(key PropertyKey) *Slot {
	if o.Kind == KindArray && key.IsIndex() {
		return o.props.Get(key)
	}
	return o.props.Get(key)
}

// HasOwn reports whether key is an own property.
func (o *Object) HasOwn(key PropertyKey) bool {
	return o.GetOwn(key) != nil
}

// Has walks the prototype chain, per spec.md 4.B's has(key).
func (o *Object) Has(key PropertyKey) bool {
	for cur := o; cur != nil; cur = cur.proto {
		if cur.HasOwn(key) {
			return true
		}
	}
	return false
}

// Lookup walks the prototype chain for key, returning the slot and the
// object it was found on (the latter matters for `super` property access,
// which needs the home object for the walk but the original receiver for
// accessor invocation — see spec.md 4.B's "Property lookup on super").
// Lookup never invokes a getter; it only locates the slot.
func (o *Object) Lookup(key PropertyKey) (*Slot, *Object) {
	for cur := o; cur != nil; cur = cur.proto {
		if slot := cur.GetOwn(key); slot != nil {
			return slot, cur
		}
	}
	return nil, nil
}

// Delete removes key's own slot, honoring the configurable attribute.
// Returns false if the slot exists and is non-configurable.
func (o *Object) Delete(key PropertyKey) bool {
	slot := o.GetOwn(key)
	if slot == nil {
		return true
	}
	if !slot.Configurable {
		return false
	}
	o.props.Delete(key)
	if o.Kind == KindArray && key.IsIndex() && key.Index()+1 == o.ArrayLength {
		o.recomputeArrayLength()
	}
	return true
}

func (o *Object) recomputeArrayLength() {
	// Array length only shrinks to the highest remaining own index + 1;
	// holes below it are preserved, per the standard Array length
	// invariant ("length is a magic property that truncates on decrease").
	for o.ArrayLength > 0 {
		if o.props.Get(IndexKey(o.ArrayLength-1)) != nil {
			break
		}
		o.ArrayLength--
	}
}

// OwnKeys returns own keys in the canonical enumeration order (Testable
// Property 1): ascending integer indices, then string keys in insertion
// order, then symbol keys in insertion order.
func (o *Object) OwnKeys(includeSymbols, includeNonEnumerable bool) []PropertyKey {
	return o.props.OwnKeys(includeSymbols, includeNonEnumerable)
}

// DefineRaw installs slot at key unconditionally, bypassing the
// writable/extensible checks package runtime applies to script-driven
// property writes. Used only for object construction (building a
// literal, installing a built-in), never for a script-driven
// Object.defineProperty call.
func (o *Object) DefineRaw(key PropertyKey, slot *Slot) {
	o.props.Set(key, slot)
	if o.Kind == KindArray && key.IsIndex() && key.Index() >= o.ArrayLength {
		o.ArrayLength = key.Index() + 1
	}
}

func (o *Object) GetAssociated(tok interface{}) (Value, bool) {
	if o.Associated == nil {
		return Undefined, false
	}
	v, ok := o.Associated[tok]
	return v, ok
}

func (o *Object) SetAssociated(tok interface{}, v Value) {
	if o.Associated == nil {
		o.Associated = make(map[interface{}]Value)
	}
	o.Associated[tok] = v
}

// FunctionData holds the descriptor/scope/this-binding state a function
// object needs, per spec.md 3's Function object description. The Descriptor
// field type is `interface{}` (holding a *bytecode.Descriptor in practice)
// and the Scope field likewise (a scope.Scope) to avoid an import cycle
// between package object (low-level) and packages bytecode/scope
// (mid-level, which both import object for Value/Object).
type FunctionData struct {
	Descriptor  interface{} // *bytecode.Descriptor
	Scope       interface{} // scope.Scope captured at creation
	HomeObject  *Object     // for super lookups; nil for non-methods
	IsArrow     bool
	IsGenerator bool
	IsAsync     bool
	IsClassCtor bool
	SuperClass  *Object // the class this constructor extends, if derived
	Fields      []interface{} // instance field initializer thunks (class.go)
	Name        string
	Length      int // formal parameter count, per spec.md 4.B bound-function length rule

	// DeclaringClass is the constructor object of the class body this
	// function was defined inside (a method, accessor, or field-initializer
	// thunk), or nil for an ordinary function/arrow. Private-member opcodes
	// (package vm) resolve a `#name` access by walking from the currently
	// executing function to its DeclaringClass's private-name table, since a
	// PrivateName's identity is per-class-evaluation, not per-source-name.
	DeclaringClass *Object
}

type BoundFunctionData struct {
	Target   *Object
	BoundThis Value
	BoundArgs []Value
}

// ProxyData holds a Proxy's target/handler pair, per spec.md 4.B.
type ProxyData struct {
	Target  *Object
	Handler *Object // nil handler traps are not revoked; Handler == nil means revoked
	Revoked bool
}

// NamespaceData backs a Module namespace object, per spec.md 3's Module
// record / 4.B's Module namespace description. Module itself is an
// interface{} holding the module's value (a *modules.Record) to avoid the object<->modules
// import cycle.
type NamespaceData struct {
	Module interface{}
}

type ErrorData struct {
	ErrorKind  string // TypeError, RangeError, ReferenceError, ...
	Message    string
	SourceURL  string
	Line       int
	Column     int
	LineSource string
	Stack      string
}

// CollectionData backs Map/Set/WeakMap/WeakSet: an insertion-ordered list
// of entries plus a same-value-zero index for O(1) lookup. WeakMap/WeakSet
// reuse the same shape; the engine does not implement true ephemeron GC
// (out of scope per spec.md's non-goals around exact memory behavior), so
// weak collections behave as strong ones that are simply not enumerable
// from script.
type CollectionData struct {
	Keys    []Value
	Values  []Value // unused (zero Value) for Set/WeakSet
	IsMap   bool
	index   map[collectionKey]int
}

type collectionKey struct {
	kind Kind8
	num  float64
	str  string
	obj  *Object
	sym  *Symbol
	big  string
}

type Kind8 = Kind

func NewCollectionData(isMap bool) *CollectionData {
	return &CollectionData{IsMap: isMap, index: make(map[collectionKey]int)}
}

func sameValueZeroKey(v Value) collectionKey {
	switch v.Kind() {
	case KindInt32, KindFloat64:
		f := v.NumberValue()
		if f == 0 {
			f = 0 // normalize -0/+0 for SameValueZero
		}
		return collectionKey{kind: KindInt32, num: f}
	case KindString:
		return collectionKey{kind: KindString, str: v.AsString()}
	case KindBoolean:
		return collectionKey{kind: KindBoolean, num: boolNum(v.AsBoolean())}
	case KindObject:
		return collectionKey{kind: KindObject, obj: v.AsObject()}
	case KindSymbol:
		return collectionKey{kind: KindSymbol, sym: v.AsSymbol()}
	case KindBigInt:
		return collectionKey{kind: KindBigInt, big: v.AsBigInt().String()}
	case KindUndefined:
		return collectionKey{kind: KindUndefined}
	case KindNull:
		return collectionKey{kind: KindNull}
	default:
		return collectionKey{kind: KindUndefined}
	}
}

func boolNum(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (c *CollectionData) Find(key Value) (int, bool) {
	idx, ok := c.index[sameValueZeroKey(key)]
	return idx, ok
}

func (c *CollectionData) Put(key, value Value) {
	k := sameValueZeroKey(key)
	if idx, ok := c.index[k]; ok {
		c.Values[idx] = value
		return
	}
	c.index[k] = len(c.Keys)
	c.Keys = append(c.Keys, key)
	c.Values = append(c.Values, value)
}

func (c *CollectionData) Delete(key Value) bool {
	k := sameValueZeroKey(key)
	idx, ok := c.index[k]
	if !ok {
		return false
	}
	c.Keys = append(c.Keys[:idx], c.Keys[idx+1:]...)
	if c.IsMap {
		c.Values = append(c.Values[:idx], c.Values[idx+1:]...)
	}
	delete(c.index, k)
	for i := idx; i < len(c.Keys); i++ {
		c.index[sameValueZeroKey(c.Keys[i])] = i
	}
	return true
}

type BufferData struct {
	Bytes []byte
}

type TypedArrayKind uint8

const (
	TAInt8 TypedArrayKind = iota
	TAUint8
	TAUint8Clamped
	TAInt16
	TAUint16
	TAInt32
	TAUint32
	TAFloat32
	TAFloat64
	TABigInt64
	TABigUint64
)

type TypedArrayData struct {
	Buffer     *Object // KindArrayBuffer object
	ElemKind   TypedArrayKind
	ByteOffset int
	Length     int // element count
}
